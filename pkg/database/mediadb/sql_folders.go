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
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/database"
	"github.com/rs/zerolog/log"
)

// Subtree predicates compare character prefixes with substr/length so
// "/a/b" never matches the sibling "/a/bb".
const folderTreeWhere = "path = ? OR substr(path, 1, length(?)) = ?"

func folderTreeArgs(root string) []any {
	under := root + "/"
	return []any{root, under, under}
}

func (db *MediaDB) FindFolderByPath(ctx context.Context, folderPath string) (database.FolderRecord, error) {
	if db.sql == nil {
		return database.FolderRecord{}, database.ErrNullSQL
	}
	return sqlFindFolderByPath(ctx, db.sql, folderPath)
}

func (db *MediaDB) InsertFolder(ctx context.Context, folder database.FolderRecord) error {
	if db.sql == nil {
		return database.ErrNullSQL
	}
	return sqlInsertFolder(ctx, db.sql, folder)
}

func (db *MediaDB) PruneOrphanFolders(ctx context.Context) (int64, error) {
	if db.sql == nil {
		return 0, database.ErrNullSQL
	}
	return sqlPruneOrphanFolders(ctx, db.sql)
}

func (db *MediaDB) ListFolders(ctx context.Context, prefix string) ([]database.FolderSummary, error) {
	if db.sql == nil {
		return nil, database.ErrNullSQL
	}
	return sqlListFolders(ctx, db.sql, prefix)
}

func sqlFindFolderByPath(ctx context.Context, db dbtx, folderPath string) (database.FolderRecord, error) {
	var folder database.FolderRecord
	var modified int64
	var storage int
	err := db.QueryRowContext(ctx,
		"SELECT folder_uuid, path, name, modified_time, storage_type FROM folder WHERE path = ?",
		folderPath,
	).Scan(&folder.UUID, &folder.Path, &folder.Name, &modified, &storage)
	if err != nil {
		return database.FolderRecord{}, fmt.Errorf("failed to find folder %s: %w", folderPath, database.Classify(err))
	}
	folder.Modified = time.Unix(modified, 0)
	folder.Storage = database.StorageOrigin(storage)
	return folder, nil
}

func sqlInsertFolder(ctx context.Context, db dbtx, folder database.FolderRecord) error {
	_, err := db.ExecContext(ctx,
		"INSERT INTO folder (folder_uuid, path, name, modified_time, storage_type) VALUES (?, ?, ?, ?, ?)",
		folder.UUID, folder.Path, folder.Name, folder.Modified.Unix(), int(folder.Storage),
	)
	if err != nil {
		return fmt.Errorf("failed to insert folder %s: %w", folder.Path, database.Classify(err))
	}
	return nil
}

func sqlPruneOrphanFolders(ctx context.Context, db dbtx) (int64, error) {
	res, err := db.ExecContext(ctx,
		"DELETE FROM folder WHERE folder_uuid NOT IN (SELECT folder_uuid FROM media)")
	if err != nil {
		return 0, fmt.Errorf("failed to prune folders: %w", database.Classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned folders: %w", err)
	}
	if n > 0 {
		log.Debug().Int64("count", n).Msg("pruned orphan folders")
	}
	return n, nil
}

// sqlListFolders counts only valid items. An empty prefix lists all folders.
func sqlListFolders(ctx context.Context, db dbtx, prefix string) ([]database.FolderSummary, error) {
	q := `SELECT f.path, f.modified_time, COUNT(m.media_uuid)
		FROM folder AS f
		LEFT JOIN media AS m ON m.folder_uuid = f.folder_uuid AND m.validity = 1`
	var args []any
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix != "" {
		q += " WHERE f.path = ? OR substr(f.path, 1, length(?)) = ?"
		args = folderTreeArgs(prefix)
	}
	q += " GROUP BY f.folder_uuid ORDER BY f.path"

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", database.Classify(err))
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql rows")
		}
	}()

	var folders []database.FolderSummary
	for rows.Next() {
		var s database.FolderSummary
		var modified int64
		if err := rows.Scan(&s.Path, &modified, &s.ItemCount); err != nil {
			return nil, fmt.Errorf("failed to scan folder summary: %w", err)
		}
		s.ModifiedTime = time.Unix(modified, 0)
		folders = append(folders, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate folders: %w", err)
	}
	return folders, nil
}

// sqlRenameFolderTree rewrites src and every folder below it to the dst
// prefix. The renamed root also takes the new base name.
func sqlRenameFolderTree(
	ctx context.Context,
	db dbtx,
	src, dst string,
	storage database.StorageOrigin,
) (int64, error) {
	args := []any{dst, src, int(storage), src, path.Base(dst)}
	args = append(args, folderTreeArgs(src)...)
	res, err := db.ExecContext(ctx,
		`UPDATE folder SET
			path = ? || substr(path, length(?) + 1),
			storage_type = ?,
			name = CASE WHEN path = ? THEN ? ELSE name END
		WHERE `+folderTreeWhere,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to rename folders under %s: %w", src, database.Classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count renamed folders: %w", err)
	}
	return n, nil
}

func sqlTouchFolderTree(ctx context.Context, db dbtx, root string, modified time.Time) error {
	args := append([]any{modified.Unix()}, folderTreeArgs(root)...)
	_, err := db.ExecContext(ctx, "UPDATE folder SET modified_time = ? WHERE "+folderTreeWhere, args...)
	if err != nil {
		return fmt.Errorf("failed to touch folders under %s: %w", root, database.Classify(err))
	}
	return nil
}
