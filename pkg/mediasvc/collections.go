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
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/database"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

func (s *Service) CreatePlaylist(ctx context.Context, name string) (database.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return database.Playlist{}, fmt.Errorf("%w: playlist name is empty", database.ErrInvalidArgument)
	}
	return s.db.InsertPlaylist(ctx, name)
}

// AddToPlaylist appends items in the given order after any existing
// members.
func (s *Service) AddToPlaylist(ctx context.Context, playlistID int64, itemPaths ...string) error {
	entries, err := s.db.PlaylistEntries(ctx, playlistID)
	if err != nil {
		return err
	}
	var order int64
	for _, e := range entries {
		if e.MediaUUID.Valid && e.PlayOrder >= order {
			order = e.PlayOrder + 1
		}
	}

	for _, p := range itemPaths {
		uuid, err := s.mediaUUID(ctx, p)
		if err != nil {
			return err
		}
		if err := s.db.AddPlaylistMember(ctx, playlistID, uuid, order); err != nil {
			return err
		}
		order++
	}
	return nil
}

func (s *Service) PlaylistItems(ctx context.Context, playlistID int64) ([]database.PlaylistEntry, error) {
	return s.db.PlaylistEntries(ctx, playlistID)
}

func (s *Service) CreateTag(ctx context.Context, name string) (database.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return database.Tag{}, fmt.Errorf("%w: tag name is empty", database.ErrInvalidArgument)
	}
	return s.db.FindOrInsertTag(ctx, name)
}

// TagMedia attaches a tag to an item. Tagging twice is a no-op.
func (s *Service) TagMedia(ctx context.Context, tagID int64, itemPath string) error {
	uuid, err := s.mediaUUID(ctx, itemPath)
	if err != nil {
		return err
	}
	err = s.db.AddTagMember(ctx, tagID, uuid)
	if errors.Is(err, database.ErrConflict) {
		return nil
	}
	return err
}

func (s *Service) TagItems(ctx context.Context, tagID int64) ([]database.TagEntry, error) {
	return s.db.TagEntries(ctx, tagID)
}

// AddBookmark records a mark on an item. A zero marked time means now.
// One item cannot carry two marks with the same second.
func (s *Service) AddBookmark(
	ctx context.Context,
	itemPath string,
	marked time.Time,
	thumb string,
) (database.Bookmark, error) {
	uuid, err := s.mediaUUID(ctx, itemPath)
	if err != nil {
		return database.Bookmark{}, err
	}
	if marked.IsZero() {
		marked = s.clock.Now()
	}
	return s.db.InsertBookmark(ctx, uuid, marked, thumb)
}

func (s *Service) Bookmarks(ctx context.Context, itemPath string) ([]database.Bookmark, error) {
	uuid, err := s.mediaUUID(ctx, itemPath)
	if err != nil {
		return nil, err
	}
	return s.db.Bookmarks(ctx, uuid)
}

func (s *Service) mediaUUID(ctx context.Context, itemPath string) (string, error) {
	p, err := cleanArg(itemPath)
	if err != nil {
		return "", err
	}
	rec, err := s.db.FindMediaByPath(ctx, p)
	if err != nil {
		return "", err
	}
	return rec.UUID, nil
}

// DeleteAllItemsInStorage drops every row of a storage and clears its
// thumbnail directory except the shared default image.
func (s *Service) DeleteAllItemsInStorage(ctx context.Context, storage database.StorageOrigin) (int64, error) {
	if !storage.Valid() {
		return 0, fmt.Errorf("%w: unknown storage %d", database.ErrInvalidArgument, int(storage))
	}
	n, err := s.db.DeleteMediaInStorage(ctx, storage, false)
	if err != nil {
		return 0, err
	}
	if _, err := s.folders.PruneOrphans(ctx); err != nil {
		log.Warn().Err(err).Msg("folders left after storage delete")
	}
	s.clearThumbnailDir(storage)
	return n, nil
}

// DeleteInvalidItemsInStorage drops rows marked invalid and their
// thumbnails.
func (s *Service) DeleteInvalidItemsInStorage(ctx context.Context, storage database.StorageOrigin) (int64, error) {
	if !storage.Valid() {
		return 0, fmt.Errorf("%w: unknown storage %d", database.ErrInvalidArgument, int(storage))
	}
	invalid, err := s.db.MediaInStorage(ctx, storage, true)
	if err != nil {
		return 0, err
	}
	n, err := s.db.DeleteMediaInStorage(ctx, storage, true)
	if err != nil {
		return 0, err
	}
	for i := range invalid {
		s.removeThumbnail(invalid[i].Thumbnail)
	}
	if _, err := s.folders.PruneOrphans(ctx); err != nil {
		log.Warn().Err(err).Msg("folders left after invalid item delete")
	}
	return n, nil
}

func (s *Service) SetAllStorageItemsValidity(
	ctx context.Context,
	storage database.StorageOrigin,
	valid bool,
) (int64, error) {
	if !storage.Valid() {
		return 0, fmt.Errorf("%w: unknown storage %d", database.ErrInvalidArgument, int(storage))
	}
	return s.db.SetStorageValidity(ctx, storage, valid)
}

func (s *Service) clearThumbnailDir(storage database.StorageOrigin) {
	dir := s.thumbs.Dir(storage)
	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("dir", dir).Msg("cannot list thumbnails")
		}
		return
	}
	for _, e := range entries {
		p := path.Join(dir, e.Name())
		if e.IsDir() || p == s.thumbs.Default {
			continue
		}
		if err := s.fs.Remove(p); err != nil {
			log.Warn().Err(err).Str("path", p).Msg("failed to remove thumbnail")
		}
	}
}
