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

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/service/scanner"
	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/service/watcher"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// serve watches paths until ctx ends, optionally indexing what is already
// on disk first. The initial scan runs alongside the watcher; files the
// watcher indexes first are skipped by the scan, also when that happens
// while their batch is still open.
func serve(ctx context.Context, env *Env, paths []string, initialScan bool) error {
	if len(paths) == 0 {
		return errors.New("no paths to watch")
	}

	w := watcher.New(env.Svc, env.Fs, paths)
	if err := w.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		w.Stop()
		return nil
	})
	if initialScan {
		g.Go(func() error {
			sc := scanner.New(env.Svc, env.Cfg.BatchSize(), true)
			for _, p := range paths {
				if _, err := sc.Scan(gctx, p); err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return fmt.Errorf("initial scan of %s failed: %w", p, err)
				}
			}
			return nil
		})
	}

	log.Info().Strs("paths", paths).Msg("serving")
	if err := g.Wait(); err != nil {
		return err //nolint:wrapcheck // already wrapped
	}
	log.Info().Msg("stopped serving")
	return nil
}

func newServeCmd() *cobra.Command {
	var initialScan bool
	cmd := &cobra.Command{
		Use:   "serve [DIR...]",
		Short: "Watch directories and keep the index current until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			env := envFrom(cmd)
			paths := args
			if len(paths) == 0 {
				enabled, configured := env.Cfg.WatchPaths()
				if !enabled {
					return errors.New("watcher disabled in config and no directories given")
				}
				paths = configured
			}
			return serve(cmd.Context(), env, paths, initialScan)
		},
	}
	cmd.Flags().BoolVar(&initialScan, "scan", true, "index existing files on start")
	return cmd
}
