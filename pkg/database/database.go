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
	"context"
	"database/sql"
	"fmt"
	"time"
)

// MediaKind is the stored media_type column.
type MediaKind int

const (
	MediaImage MediaKind = iota
	MediaVideo
	MediaSound
	MediaMusic
	MediaOther
)

func (k MediaKind) Valid() bool {
	return k >= MediaImage && k <= MediaOther
}

// HasThumbnail reports whether items of this kind carry a per-item
// thumbnail file that follows the item when it is moved or renamed.
func (k MediaKind) HasThumbnail() bool {
	return k == MediaImage || k == MediaVideo
}

func (k MediaKind) String() string {
	switch k {
	case MediaImage:
		return "image"
	case MediaVideo:
		return "video"
	case MediaSound:
		return "sound"
	case MediaMusic:
		return "music"
	case MediaOther:
		return "other"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// StorageOrigin is the stored storage_type column.
type StorageOrigin int

const (
	StorageInternal StorageOrigin = iota
	StorageExternal
)

func (s StorageOrigin) Valid() bool {
	return s == StorageInternal || s == StorageExternal
}

func (s StorageOrigin) String() string {
	switch s {
	case StorageInternal:
		return "internal"
	case StorageExternal:
		return "external"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

/*
 * Structs for SQL records
 */

// Metadata holds the per-kind descriptive columns of a media row. Numeric
// fields use -1 for "unknown" the same way the table defaults do.
type Metadata struct {
	Title        string
	Album        string
	Artist       string
	AlbumArtist  string
	Genre        string
	Composer     string
	Year         string
	RecordedDate string
	Copyright    string
	TrackNum     string
	Description  string
	DateTaken    string
	Longitude    float64
	Latitude     float64
	Altitude     float64
	Bitrate      int
	Samplerate   int
	Channels     int
	Duration     int
	Width        int
	Height       int
	Orientation  int
}

// UnknownMetadata returns metadata with every numeric field set to unknown.
func UnknownMetadata() Metadata {
	return Metadata{
		Bitrate:     -1,
		Samplerate:  -1,
		Channels:    -1,
		Duration:    -1,
		Width:       -1,
		Height:      -1,
		Orientation: -1,
	}
}

type MediaRecord struct {
	Added      time.Time
	Modified   time.Time
	UUID       string
	Path       string
	FileName   string
	FolderUUID string
	MimeType   string
	Thumbnail  Thumbnail
	Meta       Metadata
	Size       int64
	AlbumID    int64
	Kind       MediaKind
	Storage    StorageOrigin
	Valid      bool
}

type FolderRecord struct {
	Modified time.Time
	UUID     string
	Path     string
	Name     string
	Storage  StorageOrigin
}

type FolderSummary struct {
	ModifiedTime time.Time `csv:"modified_time"`
	Path         string    `csv:"path"`
	ItemCount    int       `csv:"item_count"`
}

type Album struct {
	Name   string
	Artist string
	ID     int64
}

type Playlist struct {
	Name      string
	Thumbnail sql.NullString
	ID        int64
}

// PlaylistEntry is one row of playlist_view. Empty playlists and playlists
// whose members are all invalid appear once with MediaUUID unset.
type PlaylistEntry struct {
	MediaUUID    sql.NullString
	Path         sql.NullString
	PlaylistName string
	PlaylistID   int64
	PlayOrder    int64
}

type Tag struct {
	Name string
	ID   int64
}

// TagEntry is one row of tag_view, shaped like PlaylistEntry.
type TagEntry struct {
	MediaUUID sql.NullString
	Path      sql.NullString
	TagName   string
	TagID     int64
}

type Bookmark struct {
	MarkedTime time.Time
	MediaUUID  string
	Thumbnail  sql.NullString
	ID         int64
}

// Query is a single parameterised statement. Values are never spliced
// into SQL text.
type Query struct {
	SQL  string
	Args []any
}

/*
 * Interfaces for external deps
 */

type GenericDBI interface {
	UnsafeGetSQLDb() *sql.DB
	Truncate(ctx context.Context) error
	Allocate(ctx context.Context) error
	Vacuum(ctx context.Context) error
	Close() error
	GetDBPath() string
}

// MediaTx is the view of an open write transaction used by the folder
// rename cascade. Every method runs inside the same transaction.
type MediaTx interface {
	RenameFolderTree(ctx context.Context, src, dst string, storage StorageOrigin) (int64, error)
	TouchFolderTree(ctx context.Context, root string, modified time.Time) error
	MediaInFolderTree(ctx context.Context, root string) ([]MediaRecord, error)
	ExecAll(ctx context.Context, queries []Query) error
}

type MediaDBI interface {
	GenericDBI
	SchemaVersion(ctx context.Context) (int, error)
	CheckIntegrity(ctx context.Context) error

	Exec(ctx context.Context, q Query) error
	ExecBatch(ctx context.Context, queries []Query) error
	InTransaction(ctx context.Context, fn func(tx MediaTx) error) error

	FindFolderByPath(ctx context.Context, path string) (FolderRecord, error)
	InsertFolder(ctx context.Context, folder FolderRecord) error
	PruneOrphanFolders(ctx context.Context) (int64, error)
	ListFolders(ctx context.Context, prefix string) ([]FolderSummary, error)

	FindMediaByPath(ctx context.Context, path string) (MediaRecord, error)
	MediaExists(ctx context.Context, path string) (bool, error)
	DeleteMediaByPath(ctx context.Context, path string) error
	MediaInStorage(ctx context.Context, storage StorageOrigin, onlyInvalid bool) ([]MediaRecord, error)
	DeleteMediaInStorage(ctx context.Context, storage StorageOrigin, onlyInvalid bool) (int64, error)
	SetStorageValidity(ctx context.Context, storage StorageOrigin, valid bool) (int64, error)
	UpdateMediaMetadata(ctx context.Context, rec MediaRecord) error

	FindOrInsertAlbum(ctx context.Context, name, artist string) (Album, error)
	InsertPlaylist(ctx context.Context, name string) (Playlist, error)
	AddPlaylistMember(ctx context.Context, playlistID int64, mediaUUID string, order int64) error
	PlaylistEntries(ctx context.Context, playlistID int64) ([]PlaylistEntry, error)
	FindOrInsertTag(ctx context.Context, name string) (Tag, error)
	AddTagMember(ctx context.Context, tagID int64, mediaUUID string) error
	TagEntries(ctx context.Context, tagID int64) ([]TagEntry, error)
	InsertBookmark(ctx context.Context, mediaUUID string, marked time.Time, thumb string) (Bookmark, error)
	Bookmarks(ctx context.Context, mediaUUID string) ([]Bookmark, error)
}
