// Zaparoo Media Service
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Zaparoo Media Service.
//
// Zaparoo Media Service is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Zaparoo Media Service is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Zaparoo Media Service.  If not, see <http://www.gnu.org/licenses/>.

// Package publishers forwards committed-change descriptors to the
// transports other processes listen on.
package publishers

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/notifications"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// mqttClient is the part of mqtt.Client the publisher drives.
type mqttClient interface {
	Connect() mqtt.Token
	IsConnected() bool
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload any) mqtt.Token
}

func newPahoClient(opts *mqtt.ClientOptions) mqttClient {
	return mqtt.NewClient(opts)
}

// MQTTPublisher publishes descriptors to an MQTT broker as JSON.
type MQTTPublisher struct {
	client    mqttClient
	newClient func(*mqtt.ClientOptions) mqttClient
	stopCh    chan struct{}
	broker    string
	topic     string
	filter    []string
	wg        sync.WaitGroup
	stopOnce  sync.Once
}

// NewMQTTPublisher creates a publisher for the given broker and topic. An
// empty filter publishes every descriptor; otherwise only descriptors
// whose method is listed are sent.
func NewMQTTPublisher(broker, topic string, filter []string) *MQTTPublisher {
	return &MQTTPublisher{
		broker:    broker,
		topic:     topic,
		filter:    filter,
		stopCh:    make(chan struct{}),
		newClient: newPahoClient,
	}
}

// Start connects to the broker and forwards descriptors from ch until ch
// closes or Stop is called.
func (p *MQTTPublisher) Start(ch <-chan notifications.Descriptor) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker("tcp://" + p.broker)
	opts.SetClientID("mediasvc-publisher-" + uuid.New().String()[:8])
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)

	opts.OnConnect = func(_ mqtt.Client) {
		log.Info().Msgf("mqtt publisher: connected to %s", p.broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("mqtt publisher: connection lost")
	}

	p.client = p.newClient(opts)

	token := p.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	log.Info().Msgf("mqtt publisher: connected to %s (topic: %s)", p.broker, p.topic)

	p.wg.Add(1)
	go p.publishNotifications(ch)
	return nil
}

// Stop ends the forwarding goroutine and disconnects. Safe to call twice.
func (p *MQTTPublisher) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
	p.wg.Wait()

	if p.client != nil && p.client.IsConnected() {
		log.Debug().Msg("mqtt publisher: disconnecting")
		p.client.Disconnect(250)
	}
}

func (p *MQTTPublisher) publishNotifications(ch <-chan notifications.Descriptor) {
	defer p.wg.Done()
	log.Debug().Msg("mqtt publisher: starting notification publisher goroutine")

	for {
		select {
		case <-p.stopCh:
			log.Debug().Msg("mqtt publisher: stopping notification publisher")
			return
		case d, ok := <-ch:
			if !ok {
				log.Debug().Msg("mqtt publisher: notification channel closed")
				return
			}
			p.publish(d)
		}
	}
}

func (p *MQTTPublisher) publish(d notifications.Descriptor) {
	method := d.Method()
	if !p.matchesFilter(method) {
		return
	}

	payload, err := json.Marshal(d)
	if err != nil {
		log.Error().Err(err).Msg("mqtt publisher: failed to marshal descriptor")
		return
	}

	token := p.client.Publish(p.topic, 0, false, payload)
	if token.Wait() && token.Error() != nil {
		log.Error().Err(token.Error()).Msg("mqtt publisher: failed to publish message")
		return
	}

	log.Debug().Msgf("mqtt publisher: published %s for %s", method, d.Path)
}

// matchesFilter is case sensitive.
func (p *MQTTPublisher) matchesFilter(method string) bool {
	if len(p.filter) == 0 {
		return true
	}
	return slices.Contains(p.filter, method)
}
