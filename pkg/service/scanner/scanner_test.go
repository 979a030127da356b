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

package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/database"
	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/mediasvc"
	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/metadata"
	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/testing/helpers"
	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/testing/mocks"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, root string) (*mediasvc.Service, *mocks.RecordingPublisher) {
	t.Helper()
	return newServiceWith(t, root, mocks.StubExtractor{MIME: "image/jpeg"})
}

func newServiceWith(
	t *testing.T,
	root string,
	extractor metadata.Extractor,
) (*mediasvc.Service, *mocks.RecordingPublisher) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	db, cleanup := helpers.NewInMemoryMediaDB(t, clock)
	t.Cleanup(cleanup)

	pub := &mocks.RecordingPublisher{}
	svc, err := mediasvc.New(db, mediasvc.Options{
		Fs:         afero.NewOsFs(),
		Clock:      clock,
		Extractor:  extractor,
		Publisher:  pub,
		Roots:      mediasvc.StorageRoots{Internal: root},
		Thumbnails: mediasvc.ThumbnailLayout{Root: filepath.Join(root, ".thumb"), Default: helpers.TestDefaultThumbnail},
	})
	require.NoError(t, err)
	return svc, pub
}

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte("data"), 0o600))
	}
}

//nolint:paralleltest // goose keeps global state
func TestScan_IndexesTreeInOrder(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "c.jpg", "a/1.jpg", "a/b/2.jpg", ".thumb/phone/.jpg-abc.jpg", ".hidden.jpg")
	svc, pub := newService(t, root)

	res, err := New(svc, 2, true).Scan(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, Result{Found: 3, Staged: 3}, res)

	want := []string{
		filepath.ToSlash(filepath.Join(root, "a/1.jpg")),
		filepath.ToSlash(filepath.Join(root, "a/b/2.jpg")),
		filepath.ToSlash(filepath.Join(root, "c.jpg")),
	}
	assert.Equal(t, want, pub.Paths())
	for _, p := range want {
		ok, err := svc.CheckItemExists(context.Background(), p)
		require.NoError(t, err)
		assert.True(t, ok, p)
	}
}

//nolint:paralleltest // goose keeps global state
func TestScan_SkipsIndexedFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.jpg", "b.jpg")
	svc, _ := newService(t, root)
	sc := New(svc, 10, false)

	_, err := sc.Scan(context.Background(), root)
	require.NoError(t, err)

	writeTree(t, root, "c.jpg")
	res, err := sc.Scan(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, Result{Found: 3, Skipped: 2, Staged: 1}, res)
}

//nolint:paralleltest // goose keeps global state
func TestScan_OutsideRootsFails(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	writeTree(t, other, "x.jpg")
	svc, _ := newService(t, root)

	res, err := New(svc, 10, false).Scan(context.Background(), other)
	require.NoError(t, err)
	assert.Equal(t, Result{Found: 1, Failed: 1}, res)
}

//nolint:paralleltest // goose keeps global state
func TestScan_ReleasesSessionOnCancel(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.jpg")
	svc, _ := newService(t, root)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(svc, 10, false).Scan(ctx, root)
	require.ErrorIs(t, err, context.Canceled)

	sess, err := svc.BeginBatch(mediasvc.BatchInsert, 10, mediasvc.BatchOptions{})
	require.NoError(t, err)
	require.NoError(t, sess.End(context.Background()))
}

//nolint:paralleltest // goose keeps global state
func TestScan_MissingRoot(t *testing.T) {
	root := t.TempDir()
	svc, _ := newService(t, root)

	_, err := New(svc, 10, false).Scan(context.Background(), filepath.Join(root, "missing"))
	require.Error(t, err)
}

// racingExtractor indexes another file behind the scanner's back the first
// time it reads trigger, as the watcher does while serve scans.
type racingExtractor struct {
	mocks.StubExtractor
	svc     *mediasvc.Service
	trigger string
	target  string
	fired   bool
}

func (r *racingExtractor) Extract(
	ctx context.Context,
	p string,
	kind database.MediaKind,
) (database.Metadata, error) {
	if p == r.trigger && !r.fired {
		r.fired = true
		if _, err := r.svc.InsertImmediately(ctx, mediasvc.InsertItem{Path: r.target}); err != nil {
			return database.Metadata{}, err
		}
	}
	return r.StubExtractor.Extract(ctx, p, kind)
}

//nolint:paralleltest // goose keeps global state
func TestScan_RestagesBatchAfterConcurrentInsert(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.jpg", "b.jpg", "c.jpg")
	a := filepath.ToSlash(filepath.Join(root, "a.jpg"))
	b := filepath.ToSlash(filepath.Join(root, "b.jpg"))
	c := filepath.ToSlash(filepath.Join(root, "c.jpg"))

	ext := &racingExtractor{StubExtractor: mocks.StubExtractor{MIME: "image/jpeg"}, trigger: b, target: a}
	svc, pub := newServiceWith(t, root, ext)
	ext.svc = svc

	// a is staged, then indexed elsewhere before the batch flushes
	res, err := New(svc, 10, true).Scan(context.Background(), root)
	require.NoError(t, err)
	assert.True(t, ext.fired)
	assert.Equal(t, Result{Found: 3, Skipped: 1, Staged: 2}, res)

	for _, p := range []string{a, b, c} {
		ok, err := svc.CheckItemExists(context.Background(), p)
		require.NoError(t, err)
		assert.True(t, ok, p)
	}
	assert.Equal(t, []string{a, b, c}, pub.Paths())
}
