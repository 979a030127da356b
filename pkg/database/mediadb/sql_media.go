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
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/database"
	"github.com/rs/zerolog/log"
)

var mediaSelectColumns = strings.Join(mediaInsertColumns, ", ")

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMedia(row rowScanner, codec database.ThumbnailCodec) (database.MediaRecord, error) {
	var rec database.MediaRecord
	var kind, storage, valid int
	var added, modified int64
	var mime, thumb, title, album, artist, albumArtist sql.NullString
	var genre, composer, year, recorded, copyright sql.NullString
	var trackNum, description, dateTaken sql.NullString
	m := &rec.Meta
	err := row.Scan(
		&rec.UUID, &rec.Path, &rec.FileName, &kind, &mime, &rec.Size,
		&added, &modified, &rec.FolderUUID, &thumb,
		&title, &rec.AlbumID, &album, &artist, &albumArtist, &genre,
		&composer, &year, &recorded, &copyright, &trackNum,
		&description, &m.Bitrate, &m.Samplerate, &m.Channels, &m.Duration,
		&m.Longitude, &m.Latitude, &m.Altitude, &m.Width, &m.Height, &dateTaken,
		&m.Orientation, &storage, &valid,
	)
	if err != nil {
		return database.MediaRecord{}, err //nolint:wrapcheck // wrapped by callers
	}

	rec.Kind = database.MediaKind(kind)
	rec.Storage = database.StorageOrigin(storage)
	rec.Valid = valid == 1
	rec.Added = time.Unix(added, 0)
	rec.Modified = time.Unix(modified, 0)
	rec.MimeType = mime.String
	rec.Thumbnail = codec.Decode(thumb)
	m.Title = title.String
	m.Album = album.String
	m.Artist = artist.String
	m.AlbumArtist = albumArtist.String
	m.Genre = genre.String
	m.Composer = composer.String
	m.Year = year.String
	m.RecordedDate = recorded.String
	m.Copyright = copyright.String
	m.TrackNum = trackNum.String
	m.Description = description.String
	m.DateTaken = dateTaken.String
	return rec, nil
}

func queryMedia(
	ctx context.Context,
	db dbtx,
	codec database.ThumbnailCodec,
	where string,
	args ...any,
) ([]database.MediaRecord, error) {
	rows, err := db.QueryContext(ctx, "SELECT "+mediaSelectColumns+" FROM media WHERE "+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query media: %w", database.Classify(err))
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql rows")
		}
	}()

	var items []database.MediaRecord
	for rows.Next() {
		rec, err := scanMedia(rows, codec)
		if err != nil {
			return nil, fmt.Errorf("failed to scan media row: %w", err)
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate media rows: %w", err)
	}
	return items, nil
}

func (db *MediaDB) FindMediaByPath(ctx context.Context, mediaPath string) (database.MediaRecord, error) {
	if db.sql == nil {
		return database.MediaRecord{}, database.ErrNullSQL
	}
	row := db.sql.QueryRowContext(ctx,
		"SELECT "+mediaSelectColumns+" FROM media WHERE path = ?", mediaPath)
	rec, err := scanMedia(row, db.codec)
	if err != nil {
		return database.MediaRecord{}, fmt.Errorf("failed to find media %s: %w", mediaPath, database.Classify(err))
	}
	return rec, nil
}

func (db *MediaDB) MediaExists(ctx context.Context, mediaPath string) (bool, error) {
	if db.sql == nil {
		return false, database.ErrNullSQL
	}
	var count int
	err := db.sql.QueryRowContext(ctx, "SELECT count(*) FROM media WHERE path = ?", mediaPath).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check media %s: %w", mediaPath, database.Classify(err))
	}
	return count > 0, nil
}

// DeleteMediaByPath removes one row. The cleanup triggers drop the
// folder, album, playlist, tag and bookmark references it leaves behind.
func (db *MediaDB) DeleteMediaByPath(ctx context.Context, mediaPath string) error {
	if db.sql == nil {
		return database.ErrNullSQL
	}
	q := DeleteMediaQuery(mediaPath)
	res, err := db.sql.ExecContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return fmt.Errorf("failed to delete media %s: %w", mediaPath, database.Classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to count deleted media: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: media %s", database.ErrNotFound, mediaPath)
	}
	return nil
}

func (db *MediaDB) MediaInStorage(
	ctx context.Context,
	storage database.StorageOrigin,
	onlyInvalid bool,
) ([]database.MediaRecord, error) {
	if db.sql == nil {
		return nil, database.ErrNullSQL
	}
	if onlyInvalid {
		return queryMedia(ctx, db.sql, db.codec, "storage_type = ? AND validity = 0", int(storage))
	}
	return queryMedia(ctx, db.sql, db.codec, "storage_type = ?", int(storage))
}

func (db *MediaDB) DeleteMediaInStorage(
	ctx context.Context,
	storage database.StorageOrigin,
	onlyInvalid bool,
) (int64, error) {
	if db.sql == nil {
		return 0, database.ErrNullSQL
	}
	q := "DELETE FROM media WHERE storage_type = ?"
	if onlyInvalid {
		q += " AND validity = 0"
	}
	res, err := db.sql.ExecContext(ctx, q, int(storage))
	if err != nil {
		return 0, fmt.Errorf("failed to delete %s media: %w", storage, database.Classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted media: %w", err)
	}
	return n, nil
}

func (db *MediaDB) SetStorageValidity(
	ctx context.Context,
	storage database.StorageOrigin,
	valid bool,
) (int64, error) {
	if db.sql == nil {
		return 0, database.ErrNullSQL
	}
	res, err := db.sql.ExecContext(ctx,
		"UPDATE media SET validity = ? WHERE storage_type = ?", boolToInt(valid), int(storage))
	if err != nil {
		return 0, fmt.Errorf("failed to set %s validity: %w", storage, database.Classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count updated media: %w", err)
	}
	return n, nil
}

// UpdateMediaMetadata rewrites the extracted columns of an existing row
// together with its thumbnail column.
func (db *MediaDB) UpdateMediaMetadata(ctx context.Context, rec database.MediaRecord) error {
	if db.sql == nil {
		return database.ErrNullSQL
	}
	m := rec.Meta
	res, err := db.sql.ExecContext(ctx,
		`UPDATE media SET mime_type = ?, size = ?, modified_time = ?, thumbnail_path = ?,
			title = ?, album_id = ?, album = ?, artist = ?, album_artist = ?, genre = ?,
			composer = ?, year = ?, recorded_date = ?, copyright = ?, track_num = ?,
			description = ?, bitrate = ?, samplerate = ?, channel = ?, duration = ?,
			longitude = ?, latitude = ?, altitude = ?, width = ?, height = ?,
			datetaken = ?, orientation = ?
		WHERE media_uuid = ?`,
		rec.MimeType, rec.Size, rec.Modified.Unix(), db.codec.Encode(rec.Thumbnail),
		nullIfEmpty(m.Title), rec.AlbumID, nullIfEmpty(m.Album), nullIfEmpty(m.Artist),
		nullIfEmpty(m.AlbumArtist), nullIfEmpty(m.Genre), nullIfEmpty(m.Composer),
		nullIfEmpty(m.Year), nullIfEmpty(m.RecordedDate), nullIfEmpty(m.Copyright),
		nullIfEmpty(m.TrackNum), nullIfEmpty(m.Description), m.Bitrate, m.Samplerate,
		m.Channels, m.Duration, m.Longitude, m.Latitude, m.Altitude, m.Width, m.Height,
		nullIfEmpty(m.DateTaken), m.Orientation, rec.UUID,
	)
	if err != nil {
		return fmt.Errorf("failed to update media %s: %w", rec.Path, database.Classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to count updated media: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: media %s", database.ErrNotFound, rec.UUID)
	}
	return nil
}

func sqlMediaInFolderTree(
	ctx context.Context,
	db dbtx,
	codec database.ThumbnailCodec,
	root string,
) ([]database.MediaRecord, error) {
	return queryMedia(ctx, db, codec,
		"folder_uuid IN (SELECT folder_uuid FROM folder WHERE "+folderTreeWhere+") ORDER BY path",
		folderTreeArgs(root)...)
}
