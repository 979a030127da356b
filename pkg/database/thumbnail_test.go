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

package database

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

const testDefault = "/opt/usr/media/.thumb/thumb_default.png"

func TestThumbnailCodec(t *testing.T) {
	t.Parallel()
	codec := ThumbnailCodec{DefaultPath: testDefault}

	tests := []struct {
		thumb  Thumbnail
		stored sql.NullString
		name   string
	}{
		{name: "none", thumb: NoThumbnail(), stored: sql.NullString{}},
		{name: "default", thumb: DefaultThumbnail(), stored: sql.NullString{String: testDefault, Valid: true}},
		{
			name:   "per item",
			thumb:  ThumbnailAt("/opt/usr/media/.thumb/phone/.jpg-00.jpg"),
			stored: sql.NullString{String: "/opt/usr/media/.thumb/phone/.jpg-00.jpg", Valid: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.stored, codec.Encode(tt.thumb))
			assert.Equal(t, tt.thumb, codec.Decode(tt.stored))
		})
	}
}

func TestThumbnail_DefaultHasNoPath(t *testing.T) {
	t.Parallel()
	_, ok := DefaultThumbnail().Path()
	assert.False(t, ok)
	assert.Equal(t, ThumbnailNone, ThumbnailAt("").Kind())
	assert.Equal(t, ThumbnailNone, ThumbnailCodec{}.Decode(sql.NullString{Valid: true}).Kind())
}

func TestThumbnailCodec_DecodeNeverMistakesPathForDefault(t *testing.T) {
	t.Parallel()
	codec := ThumbnailCodec{DefaultPath: testDefault}
	rapid.Check(t, func(t *rapid.T) {
		p := rapid.StringMatching(`/[a-z]{1,8}(/[a-z0-9.]{1,8}){0,3}`).Draw(t, "path")
		got := codec.Decode(sql.NullString{String: p, Valid: true})
		if got.Kind() != ThumbnailPath {
			t.Fatalf("decoded %q as %v", p, got.Kind())
		}
		if back := codec.Encode(got); back.String != p {
			t.Fatalf("encode(decode(%q)) = %q", p, back.String)
		}
	})
}
