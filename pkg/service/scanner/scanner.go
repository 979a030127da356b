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

// Package scanner indexes a directory tree through an insert batch session.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/database"
	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/mediasvc"
	"github.com/charlievieth/fastwalk"
	"github.com/rs/zerolog/log"
)

// Result counts what happened to each regular file found under the root.
type Result struct {
	Found   int
	Skipped int
	Staged  int
	Failed  int
}

type Scanner struct {
	svc       *mediasvc.Service
	batchSize int
	notify    bool
}

func New(svc *mediasvc.Service, batchSize int, notify bool) *Scanner {
	return &Scanner{svc: svc, batchSize: batchSize, notify: notify}
}

// collect lists regular files under root in lexical order. Dot-prefixed
// entries are skipped so the thumbnail directory is never indexed.
func collect(root string) ([]string, error) {
	var (
		mu    sync.Mutex
		files []string
	)
	fi, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat scan root: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("scan root %s is not a directory", root)
	}

	conf := &fastwalk.Config{Follow: false}
	err = fastwalk.Walk(conf, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", p).Msg("scan: skipping unreadable entry")
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		mu.Lock()
		files = append(files, filepath.ToSlash(p))
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	slices.Sort(files)
	return files, nil
}

// attempt is one file queued for indexing. A file whose batch was
// discarded is queued once more with retried set.
type attempt struct {
	path    string
	retried bool
}

// Scan stages every file under root that is not indexed yet. Files the
// service rejects are counted as failed and the scan carries on. Items lost
// to a failed flush are checked again and re-staged in a later pass, so a
// file indexed concurrently is skipped instead of sinking its whole batch.
func (s *Scanner) Scan(ctx context.Context, root string) (Result, error) {
	var res Result
	files, err := collect(root)
	if err != nil {
		return res, err
	}
	res.Found = len(files)

	work := make([]attempt, len(files))
	for i, p := range files {
		work[i] = attempt{path: p}
	}
	for len(work) > 0 {
		work, err = s.pass(ctx, work, &res)
		if err != nil {
			return res, err
		}
	}

	log.Info().
		Str("root", root).
		Int("found", res.Found).
		Int("staged", res.Staged).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Msg("scan finished")
	return res, nil
}

// pass runs work through one insert session and returns the attempts to
// retry. Staged only counts items whose flush committed.
func (s *Scanner) pass(ctx context.Context, work []attempt, res *Result) ([]attempt, error) {
	sess, err := s.svc.BeginBatch(mediasvc.BatchInsert, s.batchSize, mediasvc.BatchOptions{Notify: s.notify})
	if err != nil {
		return nil, fmt.Errorf("failed to open insert session: %w", err)
	}

	var batch, retry []attempt
	drop := func(lost []attempt) {
		for _, a := range lost {
			if a.retried {
				res.Failed++
				continue
			}
			a.retried = true
			retry = append(retry, a)
		}
	}

	for _, a := range work {
		if err := ctx.Err(); err != nil {
			return nil, errors.Join(err, sess.End(ctx))
		}

		exists, err := s.svc.CheckItemExists(ctx, a.path)
		if err != nil {
			return nil, errors.Join(err, sess.End(ctx))
		}
		if exists {
			res.Skipped++
			continue
		}

		before := sess.Pending()
		err = sess.StageInsert(ctx, mediasvc.InsertItem{Path: a.path})
		switch {
		case err == nil:
			if sess.Pending() == 0 {
				res.Staged += len(batch) + 1
				batch = batch[:0]
			} else {
				batch = append(batch, a)
			}
		case errors.Is(err, database.ErrInvalidArgument):
			log.Debug().Err(err).Str("path", a.path).Msg("scan: file not indexed")
			res.Failed++
		case errors.Is(err, database.ErrInternal):
			return nil, errors.Join(err, sess.End(ctx))
		default:
			lost := before - sess.Pending()
			log.Warn().Err(err).Str("path", a.path).Int("discarded", lost+1).Msg("scan: batch discarded")
			drop(batch[:lost])
			drop([]attempt{a})
			batch = append(batch[:0], batch[lost:]...)
		}
	}

	if err := sess.End(ctx); err != nil {
		log.Warn().Err(err).Int("discarded", len(batch)).Msg("scan: final batch discarded")
		drop(batch)
	} else {
		res.Staged += len(batch)
	}
	return retry, nil
}
