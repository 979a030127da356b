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

package publishers

import (
	"slices"

	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/helpers/syncutil"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// fakeBroker records what the publisher sends instead of talking to a
// broker.
type fakeBroker struct {
	connectError   error
	publishError   error
	sent           []sentMessage
	disconnectCall int
	connected      bool
	mu             syncutil.Mutex
}

type sentMessage struct {
	payload any
	topic   string
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{}
}

func (b *fakeBroker) sentCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sent)
}

func (b *fakeBroker) messages() []sentMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.sent)
}

func (b *fakeBroker) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *fakeBroker) Connect() mqtt.Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.connectError != nil {
		return doneToken{err: b.connectError}
	}
	b.connected = true
	return doneToken{}
}

func (b *fakeBroker) Disconnect(uint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = false
	b.disconnectCall++
}

func (b *fakeBroker) Publish(topic string, _ byte, _ bool, payload any) mqtt.Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishError != nil {
		return doneToken{err: b.publishError}
	}
	b.sent = append(b.sent, sentMessage{topic: topic, payload: payload})
	return doneToken{}
}

// doneToken is an already completed token. Only Wait and Error are used
// by the publisher.
type doneToken struct {
	mqtt.Token
	err error
}

func (doneToken) Wait() bool {
	return true
}

func (t doneToken) Error() error {
	return t.err
}
