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

// Package watcher keeps the index in step with the filesystem by turning
// fsnotify events into immediate mutations.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/database"
	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/mediasvc"
	"github.com/charlievieth/fastwalk"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const DefaultDebounce = 250 * time.Millisecond

type Watcher struct {
	svc      *mediasvc.Service
	fs       afero.Fs
	fsw      *fsnotify.Watcher
	stopCh   chan struct{}
	pending  map[string]struct{}
	paths    []string
	debounce time.Duration
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a watcher over the given directory trees. fs must be the
// filesystem the service reads.
func New(svc *mediasvc.Service, fs afero.Fs, paths []string) *Watcher {
	return &Watcher{
		svc:      svc,
		fs:       fs,
		paths:    paths,
		debounce: DefaultDebounce,
		stopCh:   make(chan struct{}),
		pending:  make(map[string]struct{}),
	}
}

func hidden(p string) bool {
	return strings.HasPrefix(path.Base(p), ".")
}

// addTree watches root and every directory below it.
func (w *Watcher) addTree(root string) error {
	fi, err := w.fs.Stat(root)
	if err != nil {
		return fmt.Errorf("failed to stat watch root: %w", err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("watch root %s is not a directory", root)
	}

	conf := &fastwalk.Config{Follow: false}
	err = fastwalk.Walk(conf, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // unreadable entries are not watched
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && hidden(p) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			log.Warn().Err(err).Str("path", p).Msg("watcher: failed to watch directory")
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}
	return nil
}

// Start begins watching and handling events until Stop or ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	w.fsw = fsw

	for _, p := range w.paths {
		if err := w.addTree(p); err != nil {
			_ = w.fsw.Close()
			return err
		}
	}

	w.wg.Add(1)
	go w.watchEvents(ctx)

	log.Info().Strs("paths", w.paths).Msg("watcher started")
	return nil
}

// Stop ends the event loop and closes the fsnotify watcher. Safe to call
// twice.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		if w.fsw != nil {
			_ = w.fsw.Close()
		}
	})
}

func (w *Watcher) watchEvents(ctx context.Context) {
	defer w.wg.Done()

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				// editors write in bursts; refresh once they settle
				w.pending[filepath.ToSlash(ev.Name)] = struct{}{}
				timer.Reset(w.debounce)
				continue
			}
			w.handle(ctx, ev)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("fsnotify error")

		case <-timer.C:
			w.flushPending(ctx)
		}
	}
}

func (w *Watcher) flushPending(ctx context.Context) {
	for p := range w.pending {
		w.refresh(ctx, p)
	}
	clear(w.pending)
}

// handle applies one event. Failures are logged; the loop never stops on
// a bad file.
func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) {
	p := filepath.ToSlash(ev.Name)
	if hidden(p) {
		return
	}

	switch {
	case ev.Has(fsnotify.Create):
		w.created(ctx, p)
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		delete(w.pending, p)
		w.removed(ctx, p)
	case ev.Has(fsnotify.Write):
		w.refresh(ctx, p)
	}
}

func (w *Watcher) created(ctx context.Context, p string) {
	fi, err := w.fs.Stat(p)
	if err != nil {
		log.Debug().Err(err).Str("path", p).Msg("watcher: created entry vanished")
		return
	}

	if fi.IsDir() {
		if w.fsw != nil {
			if err := w.addTree(p); err != nil {
				log.Warn().Err(err).Msg("watcher: failed to watch new directory")
			}
		}
		if _, err := w.svc.InsertFolder(ctx, p); err != nil {
			log.Warn().Err(err).Str("path", p).Msg("watcher: failed to index folder")
		}
		return
	}

	_, err = w.svc.InsertImmediately(ctx, mediasvc.InsertItem{Path: p})
	switch {
	case err == nil:
		log.Debug().Str("path", p).Msg("watcher: indexed")
	case errors.Is(err, database.ErrConflict):
		// already indexed, usually by a scan
	default:
		log.Warn().Err(err).Str("path", p).Msg("watcher: failed to index file")
	}
}

func (w *Watcher) removed(ctx context.Context, p string) {
	err := w.svc.DeleteItem(ctx, p)
	switch {
	case err == nil:
		log.Debug().Str("path", p).Msg("watcher: removed")
	case errors.Is(err, database.ErrNotFound):
		// a directory or a file that was never indexed; emptied folders
		// disappear with their last item
	default:
		log.Warn().Err(err).Str("path", p).Msg("watcher: failed to remove item")
	}
}

func (w *Watcher) refresh(ctx context.Context, p string) {
	_, err := w.svc.RefreshItem(ctx, p)
	if errors.Is(err, database.ErrNotFound) {
		w.created(ctx, p)
		return
	}
	if err != nil {
		log.Warn().Err(err).Str("path", p).Msg("watcher: failed to refresh item")
	}
}
