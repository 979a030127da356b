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

package mocks

import (
	"context"
	"fmt"

	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/helpers/syncutil"
	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/notifications"
	"github.com/stretchr/testify/mock"
)

// MockPublisher is a mock implementation of notifications.Publisher using
// testify/mock.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, d notifications.Descriptor) error {
	args := m.Called(ctx, d)
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock operation failed: %w", err)
	}
	return nil
}

// RecordingPublisher keeps every descriptor it is given, in order.
type RecordingPublisher struct {
	published []notifications.Descriptor
	mu        syncutil.Mutex
}

func (r *RecordingPublisher) Publish(_ context.Context, d notifications.Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, d)
	return nil
}

func (r *RecordingPublisher) Published() []notifications.Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notifications.Descriptor, len(r.published))
	copy(out, r.published)
	return out
}

// Paths lists the Path of every recorded descriptor.
func (r *RecordingPublisher) Paths() []string {
	published := r.Published()
	paths := make([]string, 0, len(published))
	for _, d := range published {
		paths = append(paths, d.Path)
	}
	return paths
}
