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

package mediadb

import (
	"database/sql"
	"path"
	"strings"
	"time"

	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/database"
)

// Builders for the statements a batch session stages. They only assemble
// SQL text and bound arguments; nothing touches the store until flush.

var mediaInsertColumns = []string{
	"media_uuid", "path", "file_name", "media_type", "mime_type", "size",
	"added_time", "modified_time", "folder_uuid", "thumbnail_path",
	"title", "album_id", "album", "artist", "album_artist", "genre",
	"composer", "year", "recorded_date", "copyright", "track_num",
	"description", "bitrate", "samplerate", "channel", "duration",
	"longitude", "latitude", "altitude", "width", "height", "datetaken",
	"orientation", "storage_type", "validity",
}

// folderOfSQL picks the folder row by path inside the flushing transaction,
// falling back to the uuid resolved at staging time.
const folderOfSQL = "COALESCE((SELECT folder_uuid FROM folder WHERE path = ?), ?)"

var insertMediaSQL = func() string {
	values := make([]string, len(mediaInsertColumns))
	for i, col := range mediaInsertColumns {
		values[i] = "?"
		if col == "folder_uuid" {
			values[i] = folderOfSQL
		}
	}
	return "INSERT INTO media (" + strings.Join(mediaInsertColumns, ", ") +
		") VALUES (" + strings.Join(values, ", ") + ")"
}()

// EnsureFolderQuery recreates a resolved folder row if it vanished between
// staging and flush, for example when its last item was deleted meanwhile.
func EnsureFolderQuery(folder *database.FolderRecord) database.Query {
	return database.Query{
		SQL: `INSERT OR IGNORE INTO folder (folder_uuid, path, name, modified_time, storage_type)
			VALUES (?, ?, ?, ?, ?)`,
		Args: []any{folder.UUID, folder.Path, folder.Name, folder.Modified.Unix(), int(folder.Storage)},
	}
}

func InsertMediaQuery(rec *database.MediaRecord, thumb sql.NullString) database.Query {
	m := rec.Meta
	return database.Query{
		SQL: insertMediaSQL,
		Args: []any{
			rec.UUID, rec.Path, rec.FileName, int(rec.Kind), rec.MimeType, rec.Size,
			rec.Added.Unix(), rec.Modified.Unix(), path.Dir(rec.Path), rec.FolderUUID, thumb,
			nullIfEmpty(m.Title), rec.AlbumID, nullIfEmpty(m.Album), nullIfEmpty(m.Artist),
			nullIfEmpty(m.AlbumArtist), nullIfEmpty(m.Genre),
			nullIfEmpty(m.Composer), nullIfEmpty(m.Year), nullIfEmpty(m.RecordedDate),
			nullIfEmpty(m.Copyright), nullIfEmpty(m.TrackNum),
			nullIfEmpty(m.Description), m.Bitrate, m.Samplerate, m.Channels, m.Duration,
			m.Longitude, m.Latitude, m.Altitude, m.Width, m.Height, nullIfEmpty(m.DateTaken),
			m.Orientation, int(rec.Storage), boolToInt(rec.Valid),
		},
	}
}

// MoveFields describes the new location of a moved item.
type MoveFields struct {
	Modified   time.Time
	DstPath    string
	FileName   string
	FolderUUID string
	Thumbnail  sql.NullString
	Storage    database.StorageOrigin
	// WithThumbnail also rewrites thumbnail_path.
	WithThumbnail bool
}

func MoveMediaQuery(srcPath string, f *MoveFields) database.Query {
	dir := path.Dir(f.DstPath)
	if f.WithThumbnail {
		return database.Query{
			SQL: `UPDATE media SET path = ?, file_name = ?, modified_time = ?, folder_uuid = ` + folderOfSQL + `,
				storage_type = ?, thumbnail_path = ? WHERE path = ?`,
			Args: []any{
				f.DstPath, f.FileName, f.Modified.Unix(), dir, f.FolderUUID,
				int(f.Storage), f.Thumbnail, srcPath,
			},
		}
	}
	return database.Query{
		SQL: `UPDATE media SET path = ?, file_name = ?, modified_time = ?, folder_uuid = ` + folderOfSQL + `,
			storage_type = ? WHERE path = ?`,
		Args: []any{f.DstPath, f.FileName, f.Modified.Unix(), dir, f.FolderUUID, int(f.Storage), srcPath},
	}
}

func SetValidityQuery(path string, valid bool) database.Query {
	return database.Query{
		SQL:  "UPDATE media SET validity = ? WHERE path = ?",
		Args: []any{boolToInt(valid), path},
	}
}

func TouchFolderQuery(folderPath string, modified time.Time) database.Query {
	return database.Query{
		SQL:  "UPDATE folder SET modified_time = ? WHERE path = ?",
		Args: []any{modified.Unix(), folderPath},
	}
}

// UpdateMediaPathQuery is the per-item statement of a folder rename.
func UpdateMediaPathQuery(
	mediaUUID, newPath string,
	storage database.StorageOrigin,
	thumb sql.NullString,
) database.Query {
	return database.Query{
		SQL:  "UPDATE media SET path = ?, storage_type = ?, thumbnail_path = ? WHERE media_uuid = ?",
		Args: []any{newPath, int(storage), thumb, mediaUUID},
	}
}

func DeleteMediaQuery(path string) database.Query {
	return database.Query{
		SQL:  "DELETE FROM media WHERE path = ?",
		Args: []any{path},
	}
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
