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
	"fmt"

	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/database"
	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/database/mediadb"
	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/helpers"
	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/notifications"
	"github.com/rs/zerolog/log"
)

// RenameResult reports what a folder rename touched.
type RenameResult struct {
	Folders int64
	Items   int
}

// RenameFolder moves the folder src, every folder below it and every item
// inside them to dst. Rows and real thumbnail files move together: a
// failure rolls the transaction back and puts renamed thumbnails back.
// Items using the default thumbnail keep it.
func (s *Service) RenameFolder(ctx context.Context, src, dst string) (RenameResult, error) {
	src, err := cleanArg(src)
	if err != nil {
		return RenameResult{}, err
	}
	dst, err = cleanArg(dst)
	if err != nil {
		return RenameResult{}, err
	}
	if src == dst {
		return RenameResult{}, fmt.Errorf("%w: rename onto itself", database.ErrInvalidArgument)
	}
	if helpers.HasPathPrefix(dst, src) {
		return RenameResult{}, fmt.Errorf("%w: %s is inside %s", database.ErrInvalidArgument, dst, src)
	}
	dstStorage, err := s.roots.Origin(dst)
	if err != nil {
		return RenameResult{}, err
	}

	var (
		result RenameResult
		done   []thumbRename
	)
	err = s.db.InTransaction(ctx, func(tx database.MediaTx) error {
		n, err := tx.RenameFolderTree(ctx, src, dst, dstStorage)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: folder %s", database.ErrNotFound, src)
		}
		result.Folders = n

		if err := tx.TouchFolderTree(ctx, dst, s.clock.Now()); err != nil {
			return err
		}

		items, err := tx.MediaInFolderTree(ctx, dst)
		if err != nil {
			return err
		}

		queries, renames, err := s.renameItems(items, src, dst)
		if err != nil {
			return err
		}
		if err := tx.ExecAll(ctx, queries); err != nil {
			return err
		}
		result.Items = len(items)

		for _, r := range renames {
			if err := s.renameThumbnail(r); err != nil {
				return err
			}
			done = append(done, r)
		}
		return nil
	})
	if err != nil {
		s.revertRenames(done)
		return RenameResult{}, fmt.Errorf("failed to rename folder %s: %w", src, err)
	}

	log.Info().Str("src", src).Str("dst", dst).
		Int64("folders", result.Folders).Int("items", result.Items).
		Msg("renamed folder")
	s.publish(ctx, notifications.DescribeDirectory(dst, notifications.MutationUpdate, s.originPID))
	return result, nil
}

func (s *Service) renameItems(
	items []database.MediaRecord,
	src, dst string,
) ([]database.Query, []thumbRename, error) {
	queries := make([]database.Query, 0, len(items))
	var renames []thumbRename
	for i := range items {
		item := &items[i]
		newPath, ok := helpers.ReplacePathPrefix(item.Path, src, dst)
		if !ok {
			return nil, nil, fmt.Errorf("%w: item %s is not under %s", database.ErrInternal, item.Path, src)
		}
		storage, err := s.roots.Origin(newPath)
		if err != nil {
			return nil, nil, err
		}

		thumb := item.Thumbnail
		if old, has := thumb.Path(); has && item.Kind.HasThumbnail() {
			moved := s.thumbs.PathFor(storage, newPath)
			renames = append(renames, thumbRename{from: old, to: moved})
			thumb = database.ThumbnailAt(moved)
		}
		queries = append(queries,
			mediadb.UpdateMediaPathQuery(item.UUID, newPath, storage, s.codec.Encode(thumb)))
	}
	return queries, renames, nil
}

// revertRenames undoes completed thumbnail renames, newest first.
func (s *Service) revertRenames(done []thumbRename) {
	for i := len(done) - 1; i >= 0; i-- {
		r := done[i]
		if err := s.renameThumbnail(thumbRename{from: r.to, to: r.from}); err != nil {
			log.Error().Err(err).Str("path", r.to).Msg("failed to restore thumbnail")
		}
	}
}

