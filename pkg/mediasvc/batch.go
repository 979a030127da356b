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

	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/database"
	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/notifications"
	"github.com/rs/zerolog/log"
)

type BatchKind int

const (
	BatchInsert BatchKind = iota
	BatchMove
	BatchValidity
)

func (k BatchKind) String() string {
	switch k {
	case BatchInsert:
		return "insert"
	case BatchMove:
		return "move"
	case BatchValidity:
		return "validity"
	default:
		return fmt.Sprintf("batch(%d)", int(k))
	}
}

type BatchOptions struct {
	// Notify publishes one descriptor per staged item after its flush
	// commits.
	Notify bool
	// OriginPID replaces the service's origin pid in this session's
	// descriptors when non-zero.
	OriginPID int
}

// Session accumulates mutations of one kind and flushes them in a single
// transaction every Size items and on End. A session belongs to the
// goroutine that opened it.
type Session struct {
	svc        *Service
	correlator *notifications.Correlator
	queue      []database.Query
	renames    []thumbRename
	kind       BatchKind
	size       int
	count      int
	originPID  int
	closed     bool
}

type stagedItem struct {
	desc    *notifications.Descriptor
	queries []database.Query
	renames []thumbRename
}

// BeginBatch opens a session. Only one session per kind may be open on a
// Service at a time. A size of 1 executes every stage call directly.
func (s *Service) BeginBatch(kind BatchKind, size int, opts BatchOptions) (*Session, error) {
	if kind < BatchInsert || kind > BatchValidity {
		return nil, fmt.Errorf("%w: unknown batch kind %d", database.ErrInvalidArgument, int(kind))
	}
	if size < 1 {
		return nil, fmt.Errorf("%w: batch size must be positive, got %d", database.ErrInvalidArgument, size)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[kind] != nil {
		return nil, fmt.Errorf("%w: a %s session is already open", database.ErrConflict, kind)
	}

	sess := &Session{
		svc:       s,
		kind:      kind,
		size:      size,
		originPID: opts.OriginPID,
		queue:     make([]database.Query, 0, size),
	}
	if opts.Notify {
		sess.correlator = notifications.NewCorrelator(s.publisher, size)
	}
	s.sessions[kind] = sess

	log.Debug().Str("kind", kind.String()).Int("size", size).Bool("notify", opts.Notify).
		Msg("batch session opened")
	return sess, nil
}

func (s *Service) releaseSession(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[sess.kind] == sess {
		delete(s.sessions, sess.kind)
	}
}

func (ss *Session) Kind() BatchKind {
	return ss.kind
}

func (ss *Session) Size() int {
	return ss.size
}

// Pending is the number of staged items waiting for a flush.
func (ss *Session) Pending() int {
	return ss.count
}

func (ss *Session) checkKind(want BatchKind) error {
	if ss.closed {
		return fmt.Errorf("%w: %s session already ended", database.ErrInvalidArgument, ss.kind)
	}
	if ss.kind != want {
		return fmt.Errorf("%w: %s staged on a %s session", database.ErrInvalidArgument, want, ss.kind)
	}
	return nil
}

// StageInsert indexes a new file.
func (ss *Session) StageInsert(ctx context.Context, item InsertItem) error {
	if err := ss.checkKind(BatchInsert); err != nil {
		return err
	}
	staged, _, err := ss.svc.prepareInsert(ctx, item)
	if err != nil {
		return err
	}
	return ss.stage(ctx, staged)
}

// StageMove records that the file at src now lives at dst.
func (ss *Session) StageMove(ctx context.Context, src, dst string) error {
	if err := ss.checkKind(BatchMove); err != nil {
		return err
	}
	staged, err := ss.svc.prepareMove(ctx, src, dst)
	if err != nil {
		return err
	}
	return ss.stage(ctx, staged)
}

// StageSetValidity marks an item present or absent without deleting it.
func (ss *Session) StageSetValidity(ctx context.Context, itemPath string, valid bool) error {
	if err := ss.checkKind(BatchValidity); err != nil {
		return err
	}
	staged, err := ss.svc.prepareValidity(ctx, itemPath, valid, ss.correlator != nil)
	if err != nil {
		return err
	}
	return ss.stage(ctx, staged)
}

func (ss *Session) stage(ctx context.Context, item stagedItem) error {
	if item.desc != nil && ss.originPID != 0 {
		item.desc.OriginPID = ss.originPID
	}
	if ss.size == 1 {
		return ss.execNow(ctx, item)
	}
	if ss.count > ss.size-1 {
		return fmt.Errorf("%w: batch counter %d past size %d", database.ErrInternal, ss.count, ss.size)
	}

	ss.queue = append(ss.queue, item.queries...)
	ss.renames = append(ss.renames, item.renames...)
	if ss.correlator != nil && item.desc != nil {
		ss.correlator.Stage(*item.desc)
	}

	if ss.count == ss.size-1 {
		err := ss.flush(ctx)
		ss.count = 0
		return err
	}
	ss.count++
	return nil
}

func (ss *Session) execNow(ctx context.Context, item stagedItem) error {
	if err := ss.svc.db.ExecBatch(ctx, item.queries); err != nil {
		return fmt.Errorf("failed to apply %s: %w", ss.kind, err)
	}
	ss.svc.applyRenames(item.renames)
	if ss.correlator != nil && item.desc != nil {
		ss.svc.publish(ctx, *item.desc)
	}
	if ss.kind == BatchMove {
		if _, err := ss.svc.folders.PruneOrphans(ctx); err != nil {
			return err
		}
	}
	return nil
}

// flush runs the queue in one transaction. The queue is emptied whatever
// the outcome; a failed flush is not retried and announces nothing.
func (ss *Session) flush(ctx context.Context) error {
	queue := ss.queue
	renames := ss.renames
	ss.renames = nil
	defer func() {
		clear(ss.queue)
		ss.queue = ss.queue[:0]
	}()

	err := ss.svc.db.ExecBatch(ctx, queue)
	if err != nil {
		log.Error().Err(err).
			Str("kind", ss.kind.String()).
			Int("statements", len(queue)).
			Msg("batch flush failed, staged items discarded")
		if ss.correlator != nil {
			ss.correlator.Discard()
		}
		return fmt.Errorf("failed to flush %s batch: %w", ss.kind, err)
	}

	log.Debug().Str("kind", ss.kind.String()).Int("statements", len(queue)).Msg("batch flushed")
	ss.svc.applyRenames(renames)
	if ss.correlator != nil {
		ss.correlator.Release(ctx)
	}
	return nil
}

// End flushes what is left, prunes empty folders after moves and closes
// the session. Calling End again is a no-op.
func (ss *Session) End(ctx context.Context) error {
	if ss.closed {
		return nil
	}

	var err error
	if ss.count > 0 {
		err = ss.flush(ctx)
	}
	if ss.kind == BatchMove {
		if _, pruneErr := ss.svc.folders.PruneOrphans(ctx); pruneErr != nil {
			err = errors.Join(err, pruneErr)
		}
	}

	ss.size = 1
	ss.count = 0
	ss.closed = true
	ss.svc.releaseSession(ss)
	return err
}
