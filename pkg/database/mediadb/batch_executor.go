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

	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/database"
	"github.com/rs/zerolog/log"
)

// BatchExecutor runs a queue of staged statements inside one transaction.
// Statements with identical SQL text share a prepared statement, so a
// flush of N inserts prepares once.
type BatchExecutor struct {
	ctx      context.Context
	tx       *sql.Tx
	stmts    map[string]*sql.Stmt
	executed int
}

func NewBatchExecutor(ctx context.Context, tx *sql.Tx) (*BatchExecutor, error) {
	if tx == nil {
		return nil, errors.New("transaction is nil")
	}
	return &BatchExecutor{
		ctx:   ctx,
		tx:    tx,
		stmts: make(map[string]*sql.Stmt),
	}, nil
}

// Exec runs one staged statement. The first failure is returned classified
// and the caller is expected to roll the transaction back.
func (b *BatchExecutor) Exec(q database.Query) error {
	if q.SQL == "" {
		return fmt.Errorf("%w: empty statement at position %d", database.ErrInternal, b.executed)
	}

	stmt, ok := b.stmts[q.SQL]
	if !ok {
		var err error
		stmt, err = b.tx.PrepareContext(b.ctx, q.SQL)
		if err != nil {
			return fmt.Errorf("failed to prepare batch statement: %w", database.Classify(err))
		}
		b.stmts[q.SQL] = stmt
	}

	if _, err := stmt.ExecContext(b.ctx, q.Args...); err != nil {
		log.Error().Err(err).
			Int("position", b.executed).
			Msg("batch statement failed")
		return fmt.Errorf("failed to execute batch statement: %w", database.Classify(err))
	}
	b.executed++
	return nil
}

func (b *BatchExecutor) ExecAll(queries []database.Query) error {
	for _, q := range queries {
		if err := b.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// Executed returns how many statements have run successfully.
func (b *BatchExecutor) Executed() int {
	return b.executed
}

// Close releases the prepared statements. It does not end the transaction.
func (b *BatchExecutor) Close() {
	for text, stmt := range b.stmts {
		if err := stmt.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close batch statement")
		}
		delete(b.stmts, text)
	}
}
