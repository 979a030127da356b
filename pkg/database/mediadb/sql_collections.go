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
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/database"
	"github.com/rs/zerolog/log"
)

// Albums, playlists, tags and bookmarks. Membership rows are removed by
// the cleanup triggers when the media row or the parent row goes away.

func (db *MediaDB) FindOrInsertAlbum(ctx context.Context, name, artist string) (database.Album, error) {
	if db.sql == nil {
		return database.Album{}, database.ErrNullSQL
	}
	if name == "" {
		return database.Album{}, fmt.Errorf("%w: empty album name", database.ErrInvalidArgument)
	}

	album := database.Album{Name: name, Artist: artist}
	err := db.sql.QueryRowContext(ctx,
		"SELECT album_id FROM album WHERE name = ? AND artist IS ?", name, nullIfEmpty(artist),
	).Scan(&album.ID)
	if err == nil {
		return album, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return database.Album{}, fmt.Errorf("failed to find album %s: %w", name, database.Classify(err))
	}

	res, err := db.sql.ExecContext(ctx,
		"INSERT INTO album (name, artist) VALUES (?, ?)", name, nullIfEmpty(artist))
	if err != nil {
		return database.Album{}, fmt.Errorf("failed to insert album %s: %w", name, database.Classify(err))
	}
	album.ID, err = res.LastInsertId()
	if err != nil {
		return database.Album{}, fmt.Errorf("failed to get album id: %w", err)
	}
	return album, nil
}

func (db *MediaDB) InsertPlaylist(ctx context.Context, name string) (database.Playlist, error) {
	if db.sql == nil {
		return database.Playlist{}, database.ErrNullSQL
	}
	res, err := db.sql.ExecContext(ctx, "INSERT INTO playlist (name) VALUES (?)", name)
	if err != nil {
		return database.Playlist{}, fmt.Errorf("failed to insert playlist %s: %w", name, database.Classify(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return database.Playlist{}, fmt.Errorf("failed to get playlist id: %w", err)
	}
	return database.Playlist{ID: id, Name: name}, nil
}

func (db *MediaDB) AddPlaylistMember(ctx context.Context, playlistID int64, mediaUUID string, order int64) error {
	if db.sql == nil {
		return database.ErrNullSQL
	}
	_, err := db.sql.ExecContext(ctx,
		"INSERT INTO playlist_map (playlist_id, media_uuid, play_order) VALUES (?, ?, ?)",
		playlistID, mediaUUID, order)
	if err != nil {
		return fmt.Errorf("failed to add playlist member: %w", database.Classify(err))
	}
	return nil
}

func (db *MediaDB) PlaylistEntries(ctx context.Context, playlistID int64) ([]database.PlaylistEntry, error) {
	if db.sql == nil {
		return nil, database.ErrNullSQL
	}
	rows, err := db.sql.QueryContext(ctx,
		`SELECT playlist_id, name, media_uuid, path, play_order FROM playlist_view
		WHERE playlist_id = ? ORDER BY play_order`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist: %w", database.Classify(err))
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql rows")
		}
	}()

	var entries []database.PlaylistEntry
	for rows.Next() {
		var e database.PlaylistEntry
		var order sql.NullInt64
		if err := rows.Scan(&e.PlaylistID, &e.PlaylistName, &e.MediaUUID, &e.Path, &order); err != nil {
			return nil, fmt.Errorf("failed to scan playlist entry: %w", err)
		}
		e.PlayOrder = order.Int64
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate playlist entries: %w", err)
	}
	return entries, nil
}

func (db *MediaDB) FindOrInsertTag(ctx context.Context, name string) (database.Tag, error) {
	if db.sql == nil {
		return database.Tag{}, database.ErrNullSQL
	}
	tag := database.Tag{Name: name}
	err := db.sql.QueryRowContext(ctx, "SELECT tag_id FROM tag WHERE name = ?", name).Scan(&tag.ID)
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return database.Tag{}, fmt.Errorf("failed to find tag %s: %w", name, database.Classify(err))
	}
	res, err := db.sql.ExecContext(ctx, "INSERT INTO tag (name) VALUES (?)", name)
	if err != nil {
		return database.Tag{}, fmt.Errorf("failed to insert tag %s: %w", name, database.Classify(err))
	}
	tag.ID, err = res.LastInsertId()
	if err != nil {
		return database.Tag{}, fmt.Errorf("failed to get tag id: %w", err)
	}
	return tag, nil
}

func (db *MediaDB) AddTagMember(ctx context.Context, tagID int64, mediaUUID string) error {
	if db.sql == nil {
		return database.ErrNullSQL
	}
	_, err := db.sql.ExecContext(ctx,
		"INSERT INTO tag_map (tag_id, media_uuid) VALUES (?, ?)", tagID, mediaUUID)
	if err != nil {
		return fmt.Errorf("failed to tag media: %w", database.Classify(err))
	}
	return nil
}

func (db *MediaDB) TagEntries(ctx context.Context, tagID int64) ([]database.TagEntry, error) {
	if db.sql == nil {
		return nil, database.ErrNullSQL
	}
	rows, err := db.sql.QueryContext(ctx,
		"SELECT tag_id, name, media_uuid, path FROM tag_view WHERE tag_id = ? ORDER BY path", tagID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tag: %w", database.Classify(err))
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql rows")
		}
	}()

	var entries []database.TagEntry
	for rows.Next() {
		var e database.TagEntry
		if err := rows.Scan(&e.TagID, &e.TagName, &e.MediaUUID, &e.Path); err != nil {
			return nil, fmt.Errorf("failed to scan tag entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tag entries: %w", err)
	}
	return entries, nil
}

func (db *MediaDB) InsertBookmark(
	ctx context.Context,
	mediaUUID string,
	marked time.Time,
	thumb string,
) (database.Bookmark, error) {
	if db.sql == nil {
		return database.Bookmark{}, database.ErrNullSQL
	}
	res, err := db.sql.ExecContext(ctx,
		"INSERT INTO bookmark (media_uuid, marked_time, thumbnail_path) VALUES (?, ?, ?)",
		mediaUUID, marked.Unix(), nullIfEmpty(thumb))
	if err != nil {
		return database.Bookmark{}, fmt.Errorf("failed to insert bookmark: %w", database.Classify(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return database.Bookmark{}, fmt.Errorf("failed to get bookmark id: %w", err)
	}
	return database.Bookmark{
		ID:         id,
		MediaUUID:  mediaUUID,
		MarkedTime: time.Unix(marked.Unix(), 0),
		Thumbnail:  nullIfEmpty(thumb),
	}, nil
}

func (db *MediaDB) Bookmarks(ctx context.Context, mediaUUID string) ([]database.Bookmark, error) {
	if db.sql == nil {
		return nil, database.ErrNullSQL
	}
	rows, err := db.sql.QueryContext(ctx,
		`SELECT bookmark_id, media_uuid, marked_time, thumbnail_path FROM bookmark
		WHERE media_uuid = ? ORDER BY marked_time`, mediaUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookmarks: %w", database.Classify(err))
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql rows")
		}
	}()

	var marks []database.Bookmark
	for rows.Next() {
		var b database.Bookmark
		var marked int64
		if err := rows.Scan(&b.ID, &b.MediaUUID, &marked, &b.Thumbnail); err != nil {
			return nil, fmt.Errorf("failed to scan bookmark: %w", err)
		}
		b.MarkedTime = time.Unix(marked, 0)
		marks = append(marks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookmarks: %w", err)
	}
	return marks, nil
}
