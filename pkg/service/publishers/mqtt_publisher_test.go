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
	"encoding/json"
	"testing"
	"time"

	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/database"
	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/notifications"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insertDescriptor(p string) notifications.Descriptor {
	return notifications.Descriptor{
		Path:      p,
		UUID:      "0b1f9c5e-4a6d-4e0b-9d3c-7f4b2c1a8e90",
		MimeType:  "image/jpeg",
		OriginPID: 42,
		Mutation:  notifications.MutationInsert,
		Subject:   notifications.SubjectFile,
		MediaKind: database.MediaImage,
	}
}

func startWithFake(t *testing.T, filter []string) (*MQTTPublisher, *fakeBroker, chan notifications.Descriptor) {
	t.Helper()
	client := newFakeBroker()
	publisher := NewMQTTPublisher("localhost:1883", "media/events", filter)
	publisher.newClient = func(*mqtt.ClientOptions) mqttClient { return client }

	ch := make(chan notifications.Descriptor, 10)
	require.NoError(t, publisher.Start(ch))
	t.Cleanup(publisher.Stop)
	return publisher, client, ch
}

func TestNewMQTTPublisher(t *testing.T) {
	t.Parallel()

	publisher := NewMQTTPublisher("broker.example.com:8883", "notifications", []string{"media.file.insert"})
	assert.Equal(t, "broker.example.com:8883", publisher.broker)
	assert.Equal(t, "notifications", publisher.topic)
	assert.Equal(t, []string{"media.file.insert"}, publisher.filter)
	assert.NotNil(t, publisher.stopCh)
}

func TestMatchesFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		filter []string
		want   bool
	}{
		{name: "nil filter matches all", method: "media.file.delete", want: true},
		{name: "empty filter matches all", filter: []string{}, method: "media.file.delete", want: true},
		{name: "method in filter", filter: []string{"media.file.insert", "media.directory.update"}, method: "media.directory.update", want: true},
		{name: "method not in filter", filter: []string{"media.file.insert"}, method: "media.file.delete", want: false},
		{name: "case sensitive", filter: []string{"media.file.insert"}, method: "Media.File.Insert", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			publisher := &MQTTPublisher{filter: tt.filter}
			assert.Equal(t, tt.want, publisher.matchesFilter(tt.method))
		})
	}
}

func TestStart_PublishesDescriptorAsJSON(t *testing.T) {
	t.Parallel()
	_, client, ch := startWithFake(t, nil)

	ch <- insertDescriptor("/opt/usr/media/a.jpg")

	require.Eventually(t, func() bool { return client.sentCount() == 1 }, time.Second, 5*time.Millisecond)
	msg := client.messages()[0]
	assert.Equal(t, "media/events", msg.topic)

	payload, ok := msg.payload.([]byte)
	require.True(t, ok)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "/opt/usr/media/a.jpg", decoded["path"])
	assert.InDelta(t, 42, decoded["pid"], 0)
}

func TestStart_ConnectError(t *testing.T) {
	t.Parallel()
	client := newFakeBroker()
	client.connectError = assert.AnError
	publisher := NewMQTTPublisher("localhost:1883", "media/events", nil)
	publisher.newClient = func(*mqtt.ClientOptions) mqttClient { return client }

	err := publisher.Start(make(chan notifications.Descriptor))
	require.ErrorIs(t, err, assert.AnError)
	publisher.Stop()
}

func TestPublishNotifications_FilteredOut(t *testing.T) {
	t.Parallel()
	_, client, ch := startWithFake(t, []string{"media.directory.update"})

	ch <- insertDescriptor("/opt/usr/media/a.jpg")
	ch <- notifications.DescribeDirectory("/opt/usr/media/DCIM", notifications.MutationUpdate, 42)

	require.Eventually(t, func() bool { return client.sentCount() == 1 }, time.Second, 5*time.Millisecond)
	// the filtered insert was consumed before the directory update
	assert.Equal(t, 1, client.sentCount())
}

func TestPublishNotifications_PublishErrorKeepsRunning(t *testing.T) {
	t.Parallel()
	publisher, client, ch := startWithFake(t, nil)
	client.mu.Lock()
	client.publishError = assert.AnError
	client.mu.Unlock()

	ch <- insertDescriptor("/opt/usr/media/a.jpg")
	ch <- insertDescriptor("/opt/usr/media/b.jpg")
	require.Eventually(t, func() bool { return len(ch) == 0 }, time.Second, 5*time.Millisecond)

	publisher.Stop()
	assert.Zero(t, client.sentCount())
}

func TestPublishNotifications_ChannelClosed(t *testing.T) {
	t.Parallel()
	publisher, _, ch := startWithFake(t, nil)

	close(ch)
	// Stop waits for the goroutine, which has already exited
	publisher.Stop()
}

func TestStop_DisconnectsOnce(t *testing.T) {
	t.Parallel()
	publisher, client, _ := startWithFake(t, nil)

	publisher.Stop()
	publisher.Stop()

	assert.Equal(t, 1, client.disconnectCall)
	assert.False(t, client.IsConnected())
	_, ok := <-publisher.stopCh
	assert.False(t, ok, "stopCh should be closed after Stop()")
}
