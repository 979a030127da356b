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

package helpers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestHasPathPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		root string
		want bool
	}{
		{name: "same path", path: "/a/b", root: "/a/b", want: true},
		{name: "child", path: "/a/b/c.jpg", root: "/a/b", want: true},
		{name: "trailing slash root", path: "/a/b/c.jpg", root: "/a/b/", want: true},
		{name: "sibling with shared prefix", path: "/a/bb/x", root: "/a/b", want: false},
		{name: "parent", path: "/a", root: "/a/b", want: false},
		{name: "filesystem root", path: "/x", root: "/", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, HasPathPrefix(tt.path, tt.root))
		})
	}
}

func TestReplacePathPrefix(t *testing.T) {
	t.Parallel()

	got, ok := ReplacePathPrefix("/m/DCIM/Camera/x.jpg", "/m/DCIM/Camera", "/m/DCIM/Photos")
	assert.True(t, ok)
	assert.Equal(t, "/m/DCIM/Photos/x.jpg", got)

	got, ok = ReplacePathPrefix("/a/bb/x", "/a/b", "/a/c")
	assert.False(t, ok)
	assert.Equal(t, "/a/bb/x", got)

	got, ok = ReplacePathPrefix("/a/b", "/a/b/", "/z/")
	assert.True(t, ok)
	assert.Equal(t, "/z", got)
}

func TestFileNameHelpers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "song", FileStem("/music/song.MP3"))
	assert.Equal(t, "mp3", FileExt("/music/song.MP3"))
	assert.Equal(t, ".hidden", FileStem("/x/.hidden"))
	assert.Equal(t, "archive.tar", FileStem("/x/archive.tar.gz"))
	assert.Equal(t, "song.MP3", DisplayName("/music/song.MP3"))
	assert.Empty(t, FileExt("/x/noext"))
}

func TestCleanPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/a/b", CleanPath("/a/b/"))
	assert.Equal(t, "/a/c", CleanPath("/a/b/../c"))
	assert.Empty(t, CleanPath(""))
	// decomposed names stay decomposed, only display names are composed
	assert.Equal(t, "/cafe\u0301", CleanPath("/cafe\u0301/"))
	assert.Equal(t, "caf\u00e9", DisplayName("/m/cafe\u0301"))
}

func segment() *rapid.Generator[string] {
	return rapid.StringMatching(`[a-z]{1,6}`)
}

func TestPropertyReplacePathPrefixRoundTrip(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		src := "/" + strings.Join(rapid.SliceOfN(segment(), 1, 4).Draw(t, "src"), "/")
		dst := "/" + strings.Join(rapid.SliceOfN(segment(), 1, 4).Draw(t, "dst"), "/")
		rest := strings.Join(rapid.SliceOfN(segment(), 0, 3).Draw(t, "rest"), "/")

		p := src
		if rest != "" {
			p = src + "/" + rest
		}

		moved, ok := ReplacePathPrefix(p, src, dst)
		if !ok {
			t.Fatalf("%s should be under %s", p, src)
		}
		if !HasPathPrefix(moved, dst) {
			t.Fatalf("%s should be under %s", moved, dst)
		}
		back, ok := ReplacePathPrefix(moved, dst, src)
		if !ok || back != p {
			t.Fatalf("round trip of %s gave %s", p, back)
		}
	})
}

func TestPropertySiblingNeverMatches(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		root := "/" + strings.Join(rapid.SliceOfN(segment(), 1, 3).Draw(t, "root"), "/")
		suffix := segment().Draw(t, "suffix")
		sibling := root + suffix + "/file"

		if HasPathPrefix(sibling, root) {
			t.Fatalf("%s must not be under %s", sibling, root)
		}
		if _, ok := ReplacePathPrefix(sibling, root, "/elsewhere"); ok {
			t.Fatalf("%s must not be rewritten", sibling)
		}
	})
}
