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

// Package mediasvc is the mutation layer over the media index. It stages
// inserts, moves and validity changes in batch sessions, renames folder
// trees with their thumbnails, and announces every committed change.
package mediasvc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/database"
	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/helpers/syncutil"
	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/metadata"
	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/notifications"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

type Options struct {
	Fs         afero.Fs
	Clock      clockwork.Clock
	Extractor  metadata.Extractor
	Publisher  notifications.Publisher
	Roots      StorageRoots
	Thumbnails ThumbnailLayout
	// OriginPID is stamped on every descriptor; defaults to this process.
	OriginPID int
}

type Service struct {
	db        database.MediaDBI
	fs        afero.Fs
	clock     clockwork.Clock
	extractor metadata.Extractor
	publisher notifications.Publisher
	folders   *FolderResolver
	sessions  map[BatchKind]*Session
	roots     StorageRoots
	thumbs    ThumbnailLayout
	codec     database.ThumbnailCodec
	originPID int
	mu        syncutil.Mutex
}

//nolint:gocritic // options struct passed by value
func New(db database.MediaDBI, opts Options) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: nil media database", database.ErrInvalidArgument)
	}
	if opts.Roots.Internal == "" {
		return nil, fmt.Errorf("%w: internal storage root is required", database.ErrInvalidArgument)
	}
	if opts.Thumbnails.Root == "" {
		return nil, fmt.Errorf("%w: thumbnail root is required", database.ErrInvalidArgument)
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Extractor == nil {
		opts.Extractor = metadata.NewFileExtractor(opts.Fs)
	}
	if opts.Publisher == nil {
		opts.Publisher = notifications.Discard
	}
	if opts.OriginPID == 0 {
		opts.OriginPID = os.Getpid()
	}

	return &Service{
		db:        db,
		fs:        opts.Fs,
		clock:     opts.Clock,
		extractor: opts.Extractor,
		publisher: opts.Publisher,
		folders:   NewFolderResolver(db, opts.Fs, opts.Clock),
		sessions:  make(map[BatchKind]*Session),
		roots:     opts.Roots,
		thumbs:    opts.Thumbnails,
		codec:     opts.Thumbnails.Codec(),
		originPID: opts.OriginPID,
	}, nil
}

func (s *Service) Folders() *FolderResolver {
	return s.folders
}

func (s *Service) Thumbnails() ThumbnailLayout {
	return s.thumbs
}

func (s *Service) Roots() StorageRoots {
	return s.roots
}

// fileTime is the file's modification time, or now when it cannot be read.
func (s *Service) fileTime(p string) time.Time {
	fi, err := s.fs.Stat(p)
	if err != nil {
		log.Debug().Err(err).Str("path", p).Msg("cannot stat file, using current time")
		return s.clock.Now()
	}
	return fi.ModTime()
}

type thumbRename struct {
	from string
	to   string
}

func (s *Service) renameThumbnail(r thumbRename) error {
	if err := s.fs.MkdirAll(path.Dir(r.to), 0o750); err != nil {
		return fmt.Errorf("failed to create thumbnail dir: %w", err)
	}
	if err := s.fs.Rename(r.from, r.to); err != nil {
		return fmt.Errorf("failed to rename thumbnail %s: %w", r.from, err)
	}
	return nil
}

// applyRenames moves thumbnails after their rows have committed. A missing
// file is logged; the row already points at the new location.
func (s *Service) applyRenames(renames []thumbRename) {
	for _, r := range renames {
		if err := s.renameThumbnail(r); err != nil {
			log.Warn().Err(err).Str("to", r.to).Msg("thumbnail not moved")
		}
	}
}

func (s *Service) removeThumbnail(t database.Thumbnail) {
	p, ok := t.Path()
	if !ok {
		return
	}
	if err := s.fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("path", p).Msg("failed to remove thumbnail")
	}
}

func (s *Service) publish(ctx context.Context, d notifications.Descriptor) {
	notifications.PublishNow(ctx, s.publisher, d)
}
