// Copyright 2026 The Vallestelar Sentinel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/vallestelar/sentinel/internal/audit"
	"github.com/vallestelar/sentinel/internal/entity"
)

// Reserved listing query parameters. Anything else is treated as an
// equality filter on a schema column.
var reservedParams = map[string]bool{
	"page":      true,
	"page_size": true,
	"q":         true,
	"order_by":  true,
}

// mountEntityRoutes wires the generic CRUD surface for one schema under
// /api/v1/{path}.
func (h *Handler) mountEntityRoutes(r chi.Router, schema entity.Schema) {
	r.Route("/"+schema.Path, func(r chi.Router) {
		r.Post("/", h.createEntity(schema))
		r.Get("/", h.listEntities(schema))
		r.Get("/{id}", h.getEntity(schema))
		r.Patch("/{id}", h.updateEntity(schema))
		r.Delete("/{id}", h.deleteEntity(schema))
	})
}

// scopedService resolves the tenant-bound service for the request.
func (h *Handler) scopedService(r *http.Request, schema entity.Schema) (entity.Service, error) {
	if schema.TenantColumn == "" {
		return h.registry.Get(schema.Type)
	}
	tenantID := GetTenantID(r.Context())
	return h.registry.Get(schema.Type, entity.Equal(schema.TenantColumn, tenantID))
}

func (h *Handler) createEntity(schema entity.Schema) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, err := h.scopedService(r, schema)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "internal error")
			return
		}

		var fields entity.Record
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		actor := GetUserEmail(r.Context())
		fields["created_by"] = actor
		fields["updated_by"] = actor

		rec, err := svc.Create(r.Context(), fields)
		if err != nil {
			respondEntityError(w, err)
			return
		}

		h.auditLogger.Log(r.Context(), audit.Event{
			Type:     audit.TypeEntityCreated,
			TenantID: GetTenantID(r.Context()),
			ActorID:  GetUserID(r.Context()),
			Resource: rec.ID(),
			Metadata: map[string]any{audit.AttrEntity: schema.Type},
		})
		respondJSON(w, http.StatusCreated, rec)
	}
}

func (h *Handler) getEntity(schema entity.Schema) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, err := h.scopedService(r, schema)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "internal error")
			return
		}

		rec, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respondEntityError(w, err)
			return
		}
		if rec == nil {
			respondError(w, http.StatusNotFound, schema.Label+" not found")
			return
		}
		respondJSON(w, http.StatusOK, rec)
	}
}

func (h *Handler) listEntities(schema entity.Schema) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, err := h.scopedService(r, schema)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "internal error")
			return
		}

		query := r.URL.Query()
		page, _ := strconv.Atoi(query.Get("page"))
		pageSize, _ := strconv.Atoi(query.Get("page_size"))

		var filters entity.Filters
		if q := query.Get("q"); q != "" && schema.SearchColumn != "" {
			filters = append(filters, entity.Substring(schema.SearchColumn, q))
		}
		for key, values := range query {
			if reservedParams[key] || len(values) == 0 {
				continue
			}
			filters = append(filters, entity.Equal(key, values[0]))
		}

		orderBy := entity.ParseOrderBy(splitOrder(query.Get("order_by")))

		result, err := svc.ListPaginated(r.Context(), page, pageSize, filters, orderBy)
		if err != nil {
			respondEntityError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, result)
	}
}

func (h *Handler) updateEntity(schema entity.Schema) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, err := h.scopedService(r, schema)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "internal error")
			return
		}

		var fields entity.Record
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		fields["updated_by"] = GetUserEmail(r.Context())

		id := chi.URLParam(r, "id")
		rec, err := svc.Update(r.Context(), id, fields)
		if err != nil {
			respondEntityError(w, err)
			return
		}
		if rec == nil {
			respondError(w, http.StatusNotFound, schema.Label+" not found")
			return
		}

		h.auditLogger.Log(r.Context(), audit.Event{
			Type:     audit.TypeEntityUpdated,
			TenantID: GetTenantID(r.Context()),
			ActorID:  GetUserID(r.Context()),
			Resource: id,
			Metadata: map[string]any{audit.AttrEntity: schema.Type},
		})
		respondJSON(w, http.StatusOK, rec)
	}
}

func (h *Handler) deleteEntity(schema entity.Schema) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, err := h.scopedService(r, schema)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "internal error")
			return
		}

		id := chi.URLParam(r, "id")
		deleted, err := svc.Delete(r.Context(), id)
		if err != nil {
			respondEntityError(w, err)
			return
		}

		if deleted == 0 {
			respondError(w, http.StatusNotFound, schema.Label+" not found")
			return
		}

		h.auditLogger.Log(r.Context(), audit.Event{
			Type:     audit.TypeEntityDeleted,
			TenantID: GetTenantID(r.Context()),
			ActorID:  GetUserID(r.Context()),
			Resource: id,
			Metadata: map[string]any{
				audit.AttrEntity: schema.Type,
				audit.AttrCount:  deleted,
			},
		})
		respondJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
	}
}

// respondEntityError maps storage errors onto HTTP statuses.
func respondEntityError(w http.ResponseWriter, err error) {
	switch {
	case entity.IsValidation(err):
		respondError(w, http.StatusBadRequest, err.Error())
	case entity.IsConflict(err):
		respondError(w, http.StatusConflict, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func splitOrder(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}
