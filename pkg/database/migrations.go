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

package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/helpers/syncutil"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"
)

// LatestSchemaVersion is written to PRAGMA user_version once the schema
// has been created. Any lower stored version is dropped and rebuilt.
const LatestSchemaVersion = 2

var migrationMutex syncutil.Mutex

// gooseZerologAdapter implements goose.Logger interface to redirect
// goose output to zerolog instead of stdout
type gooseZerologAdapter struct{}

func (*gooseZerologAdapter) Printf(format string, v ...any) {
	log.Info().Msgf(format, v...)
}

func (*gooseZerologAdapter) Fatalf(format string, v ...any) {
	log.Fatal().Msgf(format, v...)
}

// MigrateUp runs the embedded goose migrations. goose keeps its base
// filesystem in package state, so calls are serialised.
func MigrateUp(db *sql.DB, migrationFiles embed.FS, migrationDir string) error {
	migrationMutex.Lock()
	defer migrationMutex.Unlock()

	goose.SetLogger(&gooseZerologAdapter{})
	goose.SetBaseFS(migrationFiles)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("error setting goose dialect: %w", err)
	}

	log.Debug().Str("migration_dir", migrationDir).Msg("running goose up migrations")
	if err := goose.Up(db, migrationDir); err != nil {
		return fmt.Errorf("error running migrations up: %w", err)
	}

	return nil
}

func UserVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", Classify(err))
	}
	return version, nil
}

// EnsureSchema brings the store to LatestSchemaVersion. A store at an older
// version loses every table, view and trigger before the migrations run
// again. Newer or equal versions are left as they are.
func EnsureSchema(ctx context.Context, db *sql.DB, migrationFiles embed.FS, migrationDir string) error {
	version, err := UserVersion(ctx, db)
	if err != nil {
		return err
	}
	if version >= LatestSchemaVersion {
		log.Debug().Int("version", version).Msg("media schema up to date")
		return nil
	}

	log.Info().
		Int("stored", version).
		Int("latest", LatestSchemaVersion).
		Msg("rebuilding media schema")

	if err := DropSchema(ctx, db); err != nil {
		return err
	}
	if err := MigrateUp(db, migrationFiles, migrationDir); err != nil {
		return err
	}

	// PRAGMA does not accept bound parameters; the value is a constant.
	_, err = db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", LatestSchemaVersion))
	if err != nil {
		return fmt.Errorf("failed to write schema version: %w", Classify(err))
	}
	return nil
}

type schemaObject struct {
	kind string
	name string
}

// DropSchema removes every user object from the store, including the
// goose version table, on a single connection with foreign keys off.
func DropSchema(ctx context.Context, db *sql.DB) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", Classify(err))
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close schema connection")
		}
	}()

	objects, err := listSchemaObjects(ctx, conn)
	if err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("failed to disable foreign keys: %w", Classify(err))
	}
	defer func() {
		if _, fkErr := conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); fkErr != nil {
			log.Warn().Err(fkErr).Msg("failed to re-enable foreign keys")
		}
	}()

	// triggers and views first, tables last
	for _, kind := range []string{"trigger", "view", "table"} {
		for _, obj := range objects {
			if obj.kind != kind {
				continue
			}
			stmt := fmt.Sprintf("DROP %s IF EXISTS %q", kindKeyword(obj.kind), obj.name)
			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to drop %s %s: %w", obj.kind, obj.name, Classify(err))
			}
			log.Debug().Str("type", obj.kind).Str("name", obj.name).Msg("dropped schema object")
		}
	}
	return nil
}

func kindKeyword(kind string) string {
	switch kind {
	case "trigger":
		return "TRIGGER"
	case "view":
		return "VIEW"
	default:
		return "TABLE"
	}
}

func listSchemaObjects(ctx context.Context, conn *sql.Conn) ([]schemaObject, error) {
	rows, err := conn.QueryContext(ctx,
		`SELECT type, name FROM sqlite_master
		WHERE type IN ('table', 'view', 'trigger') AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return nil, fmt.Errorf("failed to list schema objects: %w", Classify(err))
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close schema rows")
		}
	}()

	var objects []schemaObject
	for rows.Next() {
		var obj schemaObject
		if err := rows.Scan(&obj.kind, &obj.name); err != nil {
			return nil, fmt.Errorf("failed to scan schema object: %w", err)
		}
		objects = append(objects, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate schema objects: %w", err)
	}
	return objects, nil
}
