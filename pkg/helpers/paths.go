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
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Media paths are slash separated absolute paths regardless of host OS.

// CleanPath normalises a media path: Clean, no trailing slash. The bytes
// of each name are kept as given since they must still stat on disk.
func CleanPath(p string) string {
	if p == "" {
		return ""
	}
	return path.Clean(p)
}

// HasPathPrefix reports whether p is root itself or lies below it. It
// compares whole path segments, so "/a/bb" is not under "/a/b".
func HasPathPrefix(p, root string) bool {
	if root == "/" {
		return strings.HasPrefix(p, "/")
	}
	root = strings.TrimSuffix(root, "/")
	return p == root || strings.HasPrefix(p, root+"/")
}

// ReplacePathPrefix swaps the leading src segment(s) of p for dst. ok is
// false when p is not under src.
func ReplacePathPrefix(p, src, dst string) (string, bool) {
	src = strings.TrimSuffix(src, "/")
	dst = strings.TrimSuffix(dst, "/")
	if !HasPathPrefix(p, src) {
		return p, false
	}
	return dst + p[len(src):], true
}

// DisplayName returns the NFC base name of a path.
func DisplayName(p string) string {
	return norm.NFC.String(path.Base(p))
}

// FileStem is the base name without its last extension.
func FileStem(p string) string {
	base := path.Base(p)
	ext := path.Ext(base)
	if ext == base {
		return base
	}
	return strings.TrimSuffix(base, ext)
}

// FileExt is the lower-case extension without the dot.
func FileExt(p string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
}
