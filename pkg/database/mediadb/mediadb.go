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
	"os"
	"path/filepath"

	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/database"
	"github.com/jonboulle/clockwork"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// Write transactions take the RESERVED lock up front so a flush never
// fails half way on a lock upgrade.
const sqliteConnParams = "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_txlock=immediate"

type Options struct {
	Clock clockwork.Clock
	// DefaultThumbnail is the sentinel path stored for items showing the
	// shared default thumbnail.
	DefaultThumbnail string
}

type MediaDB struct {
	sql    *sql.DB
	clock  clockwork.Clock
	codec  database.ThumbnailCodec
	dbPath string
}

var _ database.MediaDBI = (*MediaDB)(nil)

// OpenMediaDB opens or creates the store at dbPath and brings its schema
// up to date.
func OpenMediaDB(ctx context.Context, dbPath string, opts Options) (*MediaDB, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("%w: empty database path", database.ErrInvalidArgument)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	sqlInstance, err := sql.Open("sqlite3", dbPath+sqliteConnParams)
	if err != nil {
		return nil, fmt.Errorf("failed to open media database: %w", err)
	}

	db := newMediaDB(sqlInstance, opts)
	db.dbPath = dbPath

	if err := db.Allocate(ctx); err != nil {
		if closeErr := sqlInstance.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close media database after setup error")
		}
		return nil, err
	}

	log.Info().Str("path", dbPath).Msg("media database opened")
	return db, nil
}

func newMediaDB(sqlDB *sql.DB, opts Options) *MediaDB {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	// one writer; every transaction and statement shares the connection
	sqlDB.SetMaxOpenConns(1)
	return &MediaDB{
		sql:   sqlDB,
		clock: clock,
		codec: database.ThumbnailCodec{DefaultPath: opts.DefaultThumbnail},
	}
}

// SetSQLForTesting wraps an already open connection and prepares the
// schema. Used by tests that need a sqlmock or a custom DSN.
func SetSQLForTesting(ctx context.Context, sqlDB *sql.DB, opts Options) (*MediaDB, error) {
	db := newMediaDB(sqlDB, opts)
	if err := db.Allocate(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// WrapSQLForTesting wraps a connection without touching the schema.
func WrapSQLForTesting(sqlDB *sql.DB, opts Options) *MediaDB {
	return newMediaDB(sqlDB, opts)
}

func (db *MediaDB) GetDBPath() string {
	return db.dbPath
}

func (db *MediaDB) UnsafeGetSQLDb() *sql.DB {
	return db.sql
}

func (db *MediaDB) ThumbnailCodec() database.ThumbnailCodec {
	return db.codec
}

func (db *MediaDB) Allocate(ctx context.Context) error {
	if db.sql == nil {
		return database.ErrNullSQL
	}
	return sqlAllocate(ctx, db.sql)
}

func (db *MediaDB) Truncate(ctx context.Context) error {
	if db.sql == nil {
		return database.ErrNullSQL
	}
	return sqlTruncate(ctx, db.sql)
}

func (db *MediaDB) Vacuum(ctx context.Context) error {
	if db.sql == nil {
		return database.ErrNullSQL
	}
	return sqlVacuum(ctx, db.sql)
}

func (db *MediaDB) Close() error {
	if db.sql == nil {
		return nil
	}
	if err := db.sql.Close(); err != nil {
		return fmt.Errorf("failed to close media database: %w", err)
	}
	return nil
}

func (db *MediaDB) SchemaVersion(ctx context.Context) (int, error) {
	if db.sql == nil {
		return 0, database.ErrNullSQL
	}
	return database.UserVersion(ctx, db.sql)
}

// CheckIntegrity runs a quick check and reports ErrStoreCorrupt unless the
// store answers "ok".
func (db *MediaDB) CheckIntegrity(ctx context.Context) error {
	if db.sql == nil {
		return database.ErrNullSQL
	}
	var result string
	err := db.sql.QueryRowContext(ctx, "PRAGMA quick_check(1)").Scan(&result)
	if err != nil {
		err = database.Classify(err)
		if errors.Is(err, database.ErrStoreCorrupt) {
			return err
		}
		return fmt.Errorf("failed to run integrity check: %w", err)
	}
	if result != "ok" {
		log.Error().Str("result", result).Msg("media database failed integrity check")
		return fmt.Errorf("%w: %s", database.ErrStoreCorrupt, result)
	}
	return nil
}
