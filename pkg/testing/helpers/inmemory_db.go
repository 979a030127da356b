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

package helpers

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/database/mediadb"
	"github.com/jonboulle/clockwork"
)

// TestDefaultThumbnail is the default thumbnail sentinel used by test
// stores and services.
const TestDefaultThumbnail = "/opt/usr/media/.thumb/thumb_default.png"

// NewInMemoryMediaDB opens a migrated media store in a temp file. A file
// is used instead of :memory: so the single pooled connection can be
// recycled without losing the schema.
func NewInMemoryMediaDB(t *testing.T, clock clockwork.Clock) (db *mediadb.MediaDB, cleanup func()) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "mediadb_test.db")
	db, err := mediadb.OpenMediaDB(context.Background(), dbPath, mediadb.Options{
		Clock:            clock,
		DefaultThumbnail: TestDefaultThumbnail,
	})
	if err != nil {
		t.Fatalf("Failed to open test media database: %v", err)
	}

	cleanup = func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close MediaDB: %v", err)
		}
	}
	return db, cleanup
}
