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
	"embed"
	"fmt"

	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/database"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

func sqlAllocate(ctx context.Context, db *sql.DB) error {
	if err := database.EnsureSchema(ctx, db, migrationFiles, "migrations"); err != nil {
		return fmt.Errorf("failed to prepare media database schema: %w", err)
	}
	return nil
}
