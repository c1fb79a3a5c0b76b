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

// Package mqtt wraps the broker connection used for actuator command
// dispatch and telemetry ingest. Subscriptions survive reconnects.
package mqtt

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/vallestelar/sentinel/internal/config"
	"github.com/vallestelar/sentinel/internal/observability/logger"
)

var (
	// ErrConnectionFailed is returned when the initial connect does not
	// complete within the configured timeout.
	ErrConnectionFailed = errors.New("mqtt connection failed")

	// ErrNotConnected is returned when publishing without a live connection.
	ErrNotConnected = errors.New("mqtt not connected")
)

const publishTimeout = 5 * time.Second

// MessageHandler is the callback signature for received messages. Handlers
// run on paho goroutines and must not block for long.
type MessageHandler func(topic string, payload []byte) error

type subscription struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// Client wraps paho.mqtt.golang. All methods are safe for concurrent use.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig

	mu            sync.RWMutex
	subscriptions map[string]subscription
}

// Connect establishes the broker connection with auto-reconnect enabled.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{
		cfg:           cfg,
		subscriptions: make(map[string]subscription),
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetOrderMatters(false)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.restoreSubscriptions()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		slog.Warn("mqtt connection lost", logger.Component("mqtt"), logger.Error(err))
	})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, cfg.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return c, nil
}

// Publish sends a payload to the topic at the configured QoS and waits for
// the broker to accept it.
func (c *Client) Publish(topic string, payload []byte) error {
	if !c.client.IsConnected() {
		return ErrNotConnected
	}
	token := c.client.Publish(topic, c.cfg.QoS, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe registers a handler for a topic filter. The subscription is
// re-established automatically after a reconnect.
func (c *Client) Subscribe(topic string, handler MessageHandler) error {
	c.mu.Lock()
	c.subscriptions[topic] = subscription{topic: topic, qos: c.cfg.QoS, handler: handler}
	c.mu.Unlock()

	token := c.client.Subscribe(topic, c.cfg.QoS, wrapHandler(handler))
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("subscribe to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	return nil
}

// Close disconnects from the broker, allowing in-flight messages to drain.
func (c *Client) Close() {
	if c.client != nil {
		c.client.Disconnect(250)
	}
}

// IsConnected reports the current connection state.
func (c *Client) IsConnected() bool {
	return c.client != nil && c.client.IsConnected()
}

func (c *Client) restoreSubscriptions() {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, sub := range c.subscriptions {
		c.client.Subscribe(sub.topic, sub.qos, wrapHandler(sub.handler))
	}
}

// wrapHandler adds panic recovery so a bad payload cannot take down the
// paho dispatch goroutine.
func wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("mqtt handler panic recovered",
					logger.Component("mqtt"),
					logger.Topic(msg.Topic()),
					slog.Any("panic", r),
				)
			}
		}()
		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			slog.Warn("mqtt handler returned error",
				logger.Component("mqtt"),
				logger.Topic(msg.Topic()),
				logger.Error(err),
			)
		}
	}
}
