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
	"path"

	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/database"
	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/database/mediadb"
	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/helpers"
	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/metadata"
	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/notifications"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// InsertItem names a file to index. An empty MimeType is sniffed from the
// file contents.
type InsertItem struct {
	Path     string
	MimeType string
}

func cleanArg(p string) (string, error) {
	clean := helpers.CleanPath(p)
	if clean == "" || !path.IsAbs(clean) {
		return "", fmt.Errorf("%w: path %q must be absolute", database.ErrInvalidArgument, p)
	}
	return clean, nil
}

func (s *Service) prepareInsert(ctx context.Context, item InsertItem) (stagedItem, *database.MediaRecord, error) {
	p, err := cleanArg(item.Path)
	if err != nil {
		return stagedItem{}, nil, err
	}
	storage, err := s.roots.Origin(p)
	if err != nil {
		return stagedItem{}, nil, err
	}

	fi, err := s.fs.Stat(p)
	if err != nil {
		return stagedItem{}, nil, fmt.Errorf("%w: cannot stat %s: %w", database.ErrInvalidArgument, p, err)
	}
	if fi.IsDir() {
		return stagedItem{}, nil, fmt.Errorf("%w: %s is a directory", database.ErrInvalidArgument, p)
	}

	mime := item.MimeType
	if mime == "" {
		mime, err = s.extractor.DetectMIME(ctx, p)
		if err != nil {
			return stagedItem{}, nil, fmt.Errorf("%w: %w", database.ErrInvalidArgument, err)
		}
	}
	if mime == "" {
		return stagedItem{}, nil, fmt.Errorf("%w: no mime type for %s", database.ErrInvalidArgument, p)
	}
	kind := metadata.KindForMIME(mime)

	meta, err := s.extractor.Extract(ctx, p, kind)
	if err != nil {
		return stagedItem{}, nil, fmt.Errorf("failed to extract metadata of %s: %w", p, err)
	}

	rec := &database.MediaRecord{
		UUID:      uuid.NewString(),
		Path:      p,
		FileName:  path.Base(p),
		MimeType:  mime,
		Kind:      kind,
		Storage:   storage,
		Size:      fi.Size(),
		Added:     s.clock.Now(),
		Modified:  fi.ModTime(),
		Thumbnail: database.NoThumbnail(),
		Meta:      meta,
		Valid:     true,
	}

	if (kind == database.MediaMusic || kind == database.MediaSound) && meta.Album != "" {
		artist := meta.AlbumArtist
		if artist == "" {
			artist = meta.Artist
		}
		album, err := s.db.FindOrInsertAlbum(ctx, meta.Album, artist)
		if err != nil {
			return stagedItem{}, nil, err
		}
		rec.AlbumID = album.ID
	}

	folder, err := s.folders.ResolveOrCreate(ctx, p, storage)
	if err != nil {
		return stagedItem{}, nil, err
	}
	rec.FolderUUID = folder.UUID

	desc := notifications.Describe(rec, notifications.MutationInsert, s.originPID)
	return stagedItem{
		queries: []database.Query{
			s.folders.EnsureQuery(&folder),
			mediadb.InsertMediaQuery(rec, s.codec.Encode(rec.Thumbnail)),
		},
		desc:    &desc,
	}, rec, nil
}

func (s *Service) prepareMove(ctx context.Context, src, dst string) (stagedItem, error) {
	src, err := cleanArg(src)
	if err != nil {
		return stagedItem{}, err
	}
	dst, err = cleanArg(dst)
	if err != nil {
		return stagedItem{}, err
	}

	rec, err := s.db.FindMediaByPath(ctx, src)
	if err != nil {
		return stagedItem{}, err
	}
	storage, err := s.roots.Origin(dst)
	if err != nil {
		return stagedItem{}, err
	}
	folder, err := s.folders.ResolveOrCreate(ctx, dst, storage)
	if err != nil {
		return stagedItem{}, err
	}

	fields := &mediadb.MoveFields{
		DstPath:    dst,
		FileName:   path.Base(dst),
		FolderUUID: folder.UUID,
		Modified:   s.fileTime(dst),
		Storage:    storage,
	}

	var renames []thumbRename
	if old, ok := rec.Thumbnail.Path(); ok && rec.Kind.HasThumbnail() {
		moved := s.thumbs.PathFor(storage, dst)
		fields.WithThumbnail = true
		fields.Thumbnail = s.codec.Encode(database.ThumbnailAt(moved))
		renames = append(renames, thumbRename{from: old, to: moved})
	}

	rec.Path = dst
	desc := notifications.Describe(&rec, notifications.MutationUpdate, s.originPID)
	return stagedItem{
		queries: []database.Query{
			s.folders.EnsureQuery(&folder),
			mediadb.MoveMediaQuery(src, fields),
			s.folders.TouchQuery(&folder),
		},
		renames: renames,
		desc:    &desc,
	}, nil
}

func (s *Service) prepareValidity(
	ctx context.Context,
	itemPath string,
	valid bool,
	describe bool,
) (stagedItem, error) {
	p, err := cleanArg(itemPath)
	if err != nil {
		return stagedItem{}, err
	}
	staged := stagedItem{queries: []database.Query{mediadb.SetValidityQuery(p, valid)}}
	if !describe {
		return staged, nil
	}

	rec, err := s.db.FindMediaByPath(ctx, p)
	switch {
	case err == nil:
		desc := notifications.Describe(&rec, notifications.MutationUpdate, s.originPID)
		staged.desc = &desc
	case errors.Is(err, database.ErrNotFound):
		// nothing to announce, the update matches no row
	default:
		return stagedItem{}, err
	}
	return staged, nil
}

// InsertImmediately indexes one file outside any session. A file that is
// already indexed returns ErrConflict and is logged as benign.
func (s *Service) InsertImmediately(ctx context.Context, item InsertItem) (database.MediaRecord, error) {
	staged, rec, err := s.prepareInsert(ctx, item)
	if err != nil {
		return database.MediaRecord{}, err
	}
	if err := s.db.ExecBatch(ctx, staged.queries); err != nil {
		if errors.Is(err, database.ErrConflict) {
			log.Warn().Str("path", rec.Path).Msg("item already indexed")
		}
		return database.MediaRecord{}, err
	}
	s.publish(ctx, *staged.desc)
	return *rec, nil
}

// DeleteItem removes an item and its thumbnail file.
func (s *Service) DeleteItem(ctx context.Context, itemPath string) error {
	p, err := cleanArg(itemPath)
	if err != nil {
		return err
	}
	rec, err := s.db.FindMediaByPath(ctx, p)
	if err != nil {
		return err
	}
	if err := s.db.DeleteMediaByPath(ctx, p); err != nil {
		return err
	}
	s.removeThumbnail(rec.Thumbnail)
	s.publish(ctx, notifications.Describe(&rec, notifications.MutationDelete, s.originPID))
	return nil
}

// SetValidity updates one item outside any session.
func (s *Service) SetValidity(ctx context.Context, itemPath string, valid bool) error {
	p, err := cleanArg(itemPath)
	if err != nil {
		return err
	}
	return s.db.Exec(ctx, mediadb.SetValidityQuery(p, valid))
}

// RefreshItem drops the item's thumbnail and re-reads its metadata.
func (s *Service) RefreshItem(ctx context.Context, itemPath string) (database.MediaRecord, error) {
	p, err := cleanArg(itemPath)
	if err != nil {
		return database.MediaRecord{}, err
	}
	rec, err := s.db.FindMediaByPath(ctx, p)
	if err != nil {
		return database.MediaRecord{}, err
	}
	fi, err := s.fs.Stat(p)
	if err != nil {
		return database.MediaRecord{}, fmt.Errorf("%w: cannot stat %s: %w", database.ErrInvalidArgument, p, err)
	}

	mime, err := s.extractor.DetectMIME(ctx, p)
	if err != nil {
		return database.MediaRecord{}, fmt.Errorf("%w: %w", database.ErrInvalidArgument, err)
	}
	if metadata.KindForMIME(mime) != rec.Kind {
		log.Debug().Str("path", p).Str("mime", mime).Msg("refreshed mime changes kind, keeping stored kind")
	}
	meta, err := s.extractor.Extract(ctx, p, rec.Kind)
	if err != nil {
		return database.MediaRecord{}, fmt.Errorf("failed to extract metadata of %s: %w", p, err)
	}

	s.removeThumbnail(rec.Thumbnail)
	rec.Thumbnail = database.NoThumbnail()
	rec.MimeType = mime
	rec.Size = fi.Size()
	rec.Modified = fi.ModTime()
	rec.Meta = meta

	if err := s.db.UpdateMediaMetadata(ctx, rec); err != nil {
		return database.MediaRecord{}, err
	}
	s.publish(ctx, notifications.Describe(&rec, notifications.MutationUpdate, s.originPID))
	return rec, nil
}

func (s *Service) CheckItemExists(ctx context.Context, itemPath string) (bool, error) {
	p, err := cleanArg(itemPath)
	if err != nil {
		return false, err
	}
	return s.db.MediaExists(ctx, p)
}

// InsertFolder registers a directory without any media in it. It stays
// until the next orphan prune.
func (s *Service) InsertFolder(ctx context.Context, dirPath string) (database.FolderRecord, error) {
	p, err := cleanArg(dirPath)
	if err != nil {
		return database.FolderRecord{}, err
	}
	storage, err := s.roots.Origin(p)
	if err != nil {
		return database.FolderRecord{}, err
	}
	return s.folders.ResolveDir(ctx, p, storage)
}

func (s *Service) ListFolders(ctx context.Context, prefix string) ([]database.FolderSummary, error) {
	return s.db.ListFolders(ctx, helpers.CleanPath(prefix))
}

func (s *Service) CheckIntegrity(ctx context.Context) error {
	return s.db.CheckIntegrity(ctx)
}
