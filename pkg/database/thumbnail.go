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

import "database/sql"

type ThumbnailKind int

const (
	ThumbnailNone ThumbnailKind = iota
	ThumbnailDefault
	ThumbnailPath
)

// Thumbnail is the thumbnail_path column as a tagged value. The shared
// default image is never renamed or removed, only real per-item files are.
type Thumbnail struct {
	path string
	kind ThumbnailKind
}

func NoThumbnail() Thumbnail {
	return Thumbnail{kind: ThumbnailNone}
}

func DefaultThumbnail() Thumbnail {
	return Thumbnail{kind: ThumbnailDefault}
}

// ThumbnailAt returns a per-item thumbnail, or NoThumbnail for an empty path.
func ThumbnailAt(path string) Thumbnail {
	if path == "" {
		return NoThumbnail()
	}
	return Thumbnail{kind: ThumbnailPath, path: path}
}

func (t Thumbnail) Kind() ThumbnailKind {
	return t.kind
}

// Path returns the per-item file path, ok is false for None and Default.
func (t Thumbnail) Path() (path string, ok bool) {
	return t.path, t.kind == ThumbnailPath
}

// ThumbnailCodec maps Thumbnail values to and from the stored column using
// the configured default-thumbnail sentinel path.
type ThumbnailCodec struct {
	DefaultPath string
}

func (c ThumbnailCodec) Encode(t Thumbnail) sql.NullString {
	switch t.kind {
	case ThumbnailDefault:
		return sql.NullString{String: c.DefaultPath, Valid: true}
	case ThumbnailPath:
		return sql.NullString{String: t.path, Valid: true}
	default:
		return sql.NullString{}
	}
}

func (c ThumbnailCodec) Decode(v sql.NullString) Thumbnail {
	switch {
	case !v.Valid || v.String == "":
		return NoThumbnail()
	case c.DefaultPath != "" && v.String == c.DefaultPath:
		return DefaultThumbnail()
	default:
		return ThumbnailAt(v.String)
	}
}
