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

package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelPublisher_NonBlocking(t *testing.T) {
	t.Parallel()

	// unbuffered and never read: any blocking send would hang
	ch := make(chan Descriptor)
	pub := NewChannelPublisher(ch)

	done := make(chan error, 1)
	go func() {
		done <- pub.Publish(context.Background(), Descriptor{Path: "/m/a.jpg"})
	}()

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrChannelFull)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("publish blocked on a full channel")
	}
}

func TestChannelPublisher_Delivers(t *testing.T) {
	t.Parallel()

	ch := make(chan Descriptor, 1)
	pub := NewChannelPublisher(ch)

	require.NoError(t, pub.Publish(context.Background(), Descriptor{Path: "/m/a.jpg", UUID: "u1"}))

	select {
	case d := <-ch:
		assert.Equal(t, "/m/a.jpg", d.Path)
		assert.Equal(t, "u1", d.UUID)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected descriptor was not sent")
	}
}

func TestDescriptorMethod(t *testing.T) {
	t.Parallel()

	rec := &database.MediaRecord{
		Path:     "/m/DCIM/a.jpg",
		UUID:     "u1",
		Kind:     database.MediaImage,
		MimeType: "image/jpeg",
	}
	d := Describe(rec, MutationInsert, 42)
	assert.Equal(t, "media.file.insert", d.Method())
	assert.Equal(t, 42, d.OriginPID)
	assert.Equal(t, database.MediaImage, d.MediaKind)
	assert.Equal(t, "image/jpeg", d.MimeType)

	dir := DescribeDirectory("/m/DCIM/Photos", MutationUpdate, 7)
	assert.Equal(t, "media.directory.update", dir.Method())
	assert.Equal(t, SubjectDirectory, dir.Subject)
	assert.Empty(t, dir.UUID)
}

func TestMultiPublisher_JoinsErrors(t *testing.T) {
	t.Parallel()

	errA := errors.New("a down")
	var delivered []string
	ok := PublisherFunc(func(_ context.Context, d Descriptor) error {
		delivered = append(delivered, d.Path)
		return nil
	})
	failing := PublisherFunc(func(context.Context, Descriptor) error { return errA })

	err := MultiPublisher{failing, ok}.Publish(context.Background(), Descriptor{Path: "/x"})
	require.ErrorIs(t, err, errA)
	assert.Equal(t, []string{"/x"}, delivered)
}

func TestPublishNow_SwallowsErrors(t *testing.T) {
	t.Parallel()

	called := false
	pub := PublisherFunc(func(context.Context, Descriptor) error {
		called = true
		return errors.New("bus unavailable")
	})

	assert.NotPanics(t, func() {
		PublishNow(context.Background(), pub, Descriptor{Path: "/x"})
		PublishNow(context.Background(), nil, Descriptor{Path: "/x"})
	})
	assert.True(t, called)
}
