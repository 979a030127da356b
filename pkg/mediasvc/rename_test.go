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

package mediasvc

import (
	"context"
	"testing"

	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/database"
	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/notifications"
	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/testing/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//nolint:paralleltest // goose keeps global state
func TestRenameFolder_CameraExample(t *testing.T) {
	f := newFixture(t, withRoots(
		StorageRoots{Internal: "/storage"},
		ThumbnailLayout{Root: "/thumb", Default: helpers.TestDefaultThumbnail},
	))
	ctx := context.Background()

	rec := f.insert(t, "/storage/dcim/IMG_1.jpg")
	f.setThumbnail(t, rec.Path, database.ThumbnailAt("/thumb/dcim_IMG_1.jpg"))
	before := len(f.pub.Published())

	res, err := f.svc.RenameFolder(ctx, "/storage/dcim", "/storage/camera")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Folders)
	assert.Equal(t, 1, res.Items)

	moved := f.find(t, "/storage/camera/IMG_1.jpg")
	assert.Equal(t, rec.UUID, moved.UUID)
	thumb, ok := moved.Thumbnail.Path()
	require.True(t, ok)
	assert.Equal(t, f.svc.Thumbnails().PathFor(database.StorageInternal, moved.Path), thumb)
	assert.True(t, f.fs.FileExists(thumb))
	assert.False(t, f.fs.FileExists("/thumb/dcim_IMG_1.jpg"))

	folder, err := f.db.FindFolderByPath(ctx, "/storage/camera")
	require.NoError(t, err)
	assert.Equal(t, "camera", folder.Name)

	published := f.pub.Published()[before:]
	require.Len(t, published, 1)
	assert.Equal(t, "/storage/camera", published[0].Path)
	assert.Equal(t, notifications.SubjectDirectory, published[0].Subject)
	assert.Equal(t, notifications.MutationUpdate, published[0].Mutation)
}

//nolint:paralleltest // goose keeps global state
func TestRenameFolder_LeavesSiblingPrefixAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.insert(t, "/opt/usr/media/a/b/x.jpg")
	f.insert(t, "/opt/usr/media/a/b/deep/y.jpg")
	sibling := f.insert(t, "/opt/usr/media/a/bb/x.jpg")

	res, err := f.svc.RenameFolder(ctx, "/opt/usr/media/a/b", "/opt/usr/media/a/c")
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Folders)
	assert.Equal(t, 2, res.Items)

	assert.True(t, f.exists(t, "/opt/usr/media/a/c/x.jpg"))
	assert.True(t, f.exists(t, "/opt/usr/media/a/c/deep/y.jpg"))
	assert.False(t, f.exists(t, "/opt/usr/media/a/b/x.jpg"))
	assert.Equal(t, sibling.UUID, f.find(t, "/opt/usr/media/a/bb/x.jpg").UUID)

	_, err = f.db.FindFolderByPath(ctx, "/opt/usr/media/a/bb")
	require.NoError(t, err)
}

//nolint:paralleltest // goose keeps global state
func TestRenameFolder_DefaultThumbnailStays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	def := f.insert(t, "/opt/usr/media/a/def.jpg")
	f.setThumbnail(t, def.Path, database.DefaultThumbnail())
	none := f.insert(t, "/opt/usr/media/a/none.jpg")
	require.NoError(t, f.fs.WriteFile(helpers.TestDefaultThumbnail, []byte("png")))

	_, err := f.svc.RenameFolder(ctx, "/opt/usr/media/a", "/opt/usr/media/z")
	require.NoError(t, err)

	assert.Equal(t, database.ThumbnailDefault, f.find(t, "/opt/usr/media/z/def.jpg").Thumbnail.Kind())
	assert.Equal(t, database.ThumbnailNone, f.find(t, "/opt/usr/media/z/none.jpg").Thumbnail.Kind())
	assert.Equal(t, none.UUID, f.find(t, "/opt/usr/media/z/none.jpg").UUID)
	assert.True(t, f.fs.FileExists(helpers.TestDefaultThumbnail))
}

//nolint:paralleltest // goose keeps global state
func TestRenameFolder_ThumbnailFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	one := f.insert(t, "/opt/usr/media/a/1.jpg")
	oneThumb := f.svc.Thumbnails().PathFor(database.StorageInternal, one.Path)
	f.setThumbnail(t, one.Path, database.ThumbnailAt(oneThumb))

	two := f.insert(t, "/opt/usr/media/a/2.jpg")
	twoThumb := f.svc.Thumbnails().PathFor(database.StorageInternal, two.Path)
	f.setThumbnail(t, two.Path, database.ThumbnailAt(twoThumb))
	// second rename fails after the first one has happened
	require.NoError(t, f.fs.Fs.Remove(twoThumb))
	before := len(f.pub.Published())

	_, err := f.svc.RenameFolder(ctx, "/opt/usr/media/a", "/opt/usr/media/b")
	require.Error(t, err)

	assert.True(t, f.exists(t, one.Path))
	assert.True(t, f.exists(t, two.Path))
	assert.False(t, f.exists(t, "/opt/usr/media/b/1.jpg"))
	_, err = f.db.FindFolderByPath(ctx, "/opt/usr/media/a")
	require.NoError(t, err)

	assert.True(t, f.fs.FileExists(oneThumb), "completed rename is reverted")
	assert.False(t, f.fs.FileExists(f.svc.Thumbnails().PathFor(database.StorageInternal, "/opt/usr/media/b/1.jpg")))
	assert.Len(t, f.pub.Published(), before)
}

//nolint:paralleltest // goose keeps global state
func TestRenameFolder_Rejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.insert(t, "/opt/usr/media/a/1.jpg")
	f.insert(t, "/opt/usr/media/taken/2.jpg")

	tests := []struct {
		want error
		name string
		src  string
		dst  string
	}{
		{name: "relative", src: "media/a", dst: "/opt/usr/media/b", want: database.ErrInvalidArgument},
		{name: "onto itself", src: "/opt/usr/media/a", dst: "/opt/usr/media/a/", want: database.ErrInvalidArgument},
		{name: "into itself", src: "/opt/usr/media/a", dst: "/opt/usr/media/a/sub", want: database.ErrInvalidArgument},
		{name: "outside roots", src: "/opt/usr/media/a", dst: "/tmp/a", want: database.ErrInvalidArgument},
		{name: "unknown source", src: "/opt/usr/media/nope", dst: "/opt/usr/media/b", want: database.ErrNotFound},
		{name: "existing destination", src: "/opt/usr/media/a", dst: "/opt/usr/media/taken", want: database.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RenameFolder(ctx, tt.src, tt.dst)
			require.ErrorIs(t, err, tt.want)
		})
	}
	assert.True(t, f.exists(t, "/opt/usr/media/a/1.jpg"))
}
