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
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var (
	ErrNullSQL         = errors.New("media database not open")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflicts with existing record")
	ErrStoreCorrupt    = errors.New("store is corrupt")
	ErrStoreInternal   = errors.New("store failure")
	ErrOutOfMemory     = errors.New("out of memory")
	ErrInternal        = errors.New("internal error")
)

// Classify wraps a store error with the matching sentinel. Errors that
// already carry one are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		ErrNullSQL, ErrInvalidArgument, ErrNotFound, ErrConflict,
		ErrStoreCorrupt, ErrStoreInternal, ErrOutOfMemory, ErrInternal,
	} {
		if errors.Is(err, known) {
			return err
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrConstraint:
			return fmt.Errorf("%w: %w", ErrConflict, err)
		case sqlite3.ErrCorrupt, sqlite3.ErrNotADB:
			return fmt.Errorf("%w: %w", ErrStoreCorrupt, err)
		case sqlite3.ErrNomem:
			return fmt.Errorf("%w: %w", ErrOutOfMemory, err)
		default:
			return fmt.Errorf("%w: %w", ErrStoreInternal, err)
		}
	}

	return fmt.Errorf("%w: %w", ErrStoreInternal, err)
}
