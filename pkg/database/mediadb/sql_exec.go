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
	"time"

	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/database"
	"github.com/rs/zerolog/log"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Exec runs a single statement in its own implicit transaction.
func (db *MediaDB) Exec(ctx context.Context, q database.Query) error {
	if db.sql == nil {
		return database.ErrNullSQL
	}
	if _, err := db.sql.ExecContext(ctx, q.SQL, q.Args...); err != nil {
		return fmt.Errorf("failed to execute statement: %w", database.Classify(err))
	}
	return nil
}

// ExecBatch runs every statement inside one transaction. Nothing is applied
// unless all of them succeed.
func (db *MediaDB) ExecBatch(ctx context.Context, queries []database.Query) error {
	switch len(queries) {
	case 0:
		return nil
	case 1:
		return db.Exec(ctx, queries[0])
	}
	return db.InTransaction(ctx, func(tx database.MediaTx) error {
		return tx.ExecAll(ctx, queries)
	})
}

// InTransaction runs fn inside a write transaction and commits when fn
// returns nil. Any error rolls the transaction back and is returned.
func (db *MediaDB) InTransaction(ctx context.Context, fn func(tx database.MediaTx) error) error {
	if db.sql == nil {
		return database.ErrNullSQL
	}

	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", database.Classify(err))
	}

	mtx := &mediaTx{tx: tx, codec: db.codec}
	defer mtx.close()

	if err := fn(mtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("failed to roll back transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", database.Classify(err))
	}
	return nil
}

type mediaTx struct {
	tx    *sql.Tx
	batch *BatchExecutor
	codec database.ThumbnailCodec
}

func (t *mediaTx) ExecAll(ctx context.Context, queries []database.Query) error {
	if t.batch == nil {
		batch, err := NewBatchExecutor(ctx, t.tx)
		if err != nil {
			return err
		}
		t.batch = batch
	}
	return t.batch.ExecAll(queries)
}

func (t *mediaTx) RenameFolderTree(
	ctx context.Context,
	src, dst string,
	storage database.StorageOrigin,
) (int64, error) {
	return sqlRenameFolderTree(ctx, t.tx, src, dst, storage)
}

func (t *mediaTx) TouchFolderTree(ctx context.Context, root string, modified time.Time) error {
	return sqlTouchFolderTree(ctx, t.tx, root, modified)
}

func (t *mediaTx) MediaInFolderTree(ctx context.Context, root string) ([]database.MediaRecord, error) {
	return sqlMediaInFolderTree(ctx, t.tx, t.codec, root)
}

func (t *mediaTx) close() {
	if t.batch != nil {
		t.batch.Close()
	}
}
