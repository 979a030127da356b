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
	"path"
	"strings"
	"testing"

	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestStorageRoots_Origin(t *testing.T) {
	t.Parallel()
	roots := StorageRoots{Internal: "/opt/usr/media", External: "/opt/storage/sdcard"}

	tests := []struct {
		path    string
		want    database.StorageOrigin
		wantErr bool
	}{
		{path: "/opt/usr/media", want: database.StorageInternal},
		{path: "/opt/usr/media/DCIM/a.jpg", want: database.StorageInternal},
		{path: "/opt/storage/sdcard/a.jpg", want: database.StorageExternal},
		{path: "/opt/usr/mediax/a.jpg", wantErr: true},
		{path: "/tmp/a.jpg", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			got, err := roots.Origin(tt.path)
			if tt.wantErr {
				require.ErrorIs(t, err, database.ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestThumbnailLayout_PathFor(t *testing.T) {
	t.Parallel()
	layout := ThumbnailLayout{Root: "/opt/usr/media/.thumb", Default: "/opt/usr/media/.thumb/thumb_default.png"}

	internal := layout.PathFor(database.StorageInternal, "/opt/usr/media/a.JPG")
	assert.Equal(t, "/opt/usr/media/.thumb/phone", path.Dir(internal))
	assert.True(t, strings.HasPrefix(path.Base(internal), ".jpg-"))
	assert.True(t, strings.HasSuffix(internal, ".jpg"))

	external := layout.PathFor(database.StorageExternal, "/opt/storage/sdcard/a.jpg")
	assert.Equal(t, "/opt/usr/media/.thumb/mmc", path.Dir(external))

	assert.Equal(t, database.ThumbnailDefault,
		layout.Codec().Decode(layout.Codec().Encode(database.DefaultThumbnail())).Kind())
}

func TestThumbnailLayout_DistinctPathsGetDistinctNames(t *testing.T) {
	t.Parallel()
	layout := ThumbnailLayout{Root: "/thumb"}
	rapid.Check(t, func(t *rapid.T) {
		a := "/m/" + rapid.StringMatching(`[a-z]{1,10}\.jpg`).Draw(t, "a")
		b := "/m/" + rapid.StringMatching(`[a-z]{1,10}\.jpg`).Draw(t, "b")
		same := layout.PathFor(database.StorageInternal, a) == layout.PathFor(database.StorageInternal, b)
		if same != (a == b) {
			t.Fatalf("PathFor(%q) and PathFor(%q) collide=%v", a, b, same)
		}
	})
}
