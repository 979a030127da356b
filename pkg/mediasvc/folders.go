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
	"time"

	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/database"
	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/database/mediadb"
	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/helpers"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// FolderResolver maps item paths to folder rows, creating rows on demand.
// Folders are created outside any batch transaction, so a failed flush can
// leave an empty folder behind until the next prune. Staged items carry
// EnsureQuery so the row exists again when their flush commits.
type FolderResolver struct {
	db    database.MediaDBI
	fs    afero.Fs
	clock clockwork.Clock
}

func NewFolderResolver(db database.MediaDBI, fs afero.Fs, clock clockwork.Clock) *FolderResolver {
	return &FolderResolver{db: db, fs: fs, clock: clock}
}

// ResolveOrCreate returns the folder holding itemPath.
func (r *FolderResolver) ResolveOrCreate(
	ctx context.Context,
	itemPath string,
	storage database.StorageOrigin,
) (database.FolderRecord, error) {
	return r.ResolveDir(ctx, path.Dir(itemPath), storage)
}

// ResolveDir looks dir up by exact path and inserts it when missing.
func (r *FolderResolver) ResolveDir(
	ctx context.Context,
	dir string,
	storage database.StorageOrigin,
) (database.FolderRecord, error) {
	folder, err := r.db.FindFolderByPath(ctx, dir)
	if err == nil {
		return folder, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return database.FolderRecord{}, err
	}

	folder = database.FolderRecord{
		UUID:     uuid.NewString(),
		Path:     dir,
		Name:     helpers.DisplayName(dir),
		Storage:  storage,
		Modified: r.modTime(dir),
	}
	err = r.db.InsertFolder(ctx, folder)
	if errors.Is(err, database.ErrConflict) {
		// created by someone else between lookup and insert
		return r.db.FindFolderByPath(ctx, dir)
	}
	if err != nil {
		return database.FolderRecord{}, err
	}

	log.Debug().Str("path", dir).Str("uuid", folder.UUID).Msg("created folder")
	return folder, nil
}

// EnsureQuery recreates folder inside the flush that needs it.
func (r *FolderResolver) EnsureQuery(folder *database.FolderRecord) database.Query {
	return mediadb.EnsureFolderQuery(folder)
}

// TouchQuery builds the modified-time refresh for a folder so a batch
// session can stage it next to the item statement that caused it.
func (r *FolderResolver) TouchQuery(folder *database.FolderRecord) database.Query {
	return mediadb.TouchFolderQuery(folder.Path, r.modTime(folder.Path))
}

// Touch refreshes a folder's modified time immediately.
func (r *FolderResolver) Touch(ctx context.Context, folder *database.FolderRecord) error {
	if err := r.db.Exec(ctx, r.TouchQuery(folder)); err != nil {
		return fmt.Errorf("failed to touch folder %s: %w", folder.Path, err)
	}
	return nil
}

// PruneOrphans removes folders no media row refers to.
func (r *FolderResolver) PruneOrphans(ctx context.Context) (int64, error) {
	n, err := r.db.PruneOrphanFolders(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to prune folders: %w", err)
	}
	return n, nil
}

func (r *FolderResolver) modTime(dir string) time.Time {
	fi, err := r.fs.Stat(dir)
	if err != nil {
		return r.clock.Now()
	}
	return fi.ModTime()
}
