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

// Package cli holds the mediasvc command tree and the environment each
// command runs in.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/config"
	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/database/mediadb"
	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/helpers"
	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/mediasvc"
	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/notifications"
	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/service/publishers"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// EnvOptions are the settings taken from global flags.
type EnvOptions struct {
	Fs         afero.Fs
	ConfigDir  string
	LogWriters []io.Writer
	Debug      bool
	// Quiet skips every notification transport.
	Quiet bool
}

// Env is an opened config, store and service, plus the transports
// announcing the service's changes.
type Env struct {
	Cfg     *config.Instance
	DB      *mediadb.MediaDB
	Svc     *mediasvc.Service
	Fs      afero.Fs
	closers []func() error
}

// Opener builds the environment for a command. Tests swap it out.
type Opener func(ctx context.Context, opts EnvOptions) (*Env, error)

//nolint:gocritic // options struct passed by value
func OpenEnv(ctx context.Context, opts EnvOptions) (*Env, error) {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}

	cfg, err := config.NewConfig(opts.Fs, opts.ConfigDir, config.BaseDefaults)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	debug := opts.Debug || cfg.DebugLogging()
	logDir := filepath.Join(filepath.Dir(cfg.Path()), "logs")
	if err := helpers.InitLogging(logDir, debug, opts.LogWriters...); err != nil {
		return nil, err
	}

	env := &Env{Cfg: cfg, Fs: opts.Fs}

	db, err := mediadb.OpenMediaDB(ctx, cfg.DatabasePath(), mediadb.Options{
		DefaultThumbnail: cfg.DefaultThumbnail(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open media database: %w", err)
	}
	env.DB = db
	env.closers = append(env.closers, db.Close)

	var pub notifications.Publisher = notifications.Discard
	if !opts.Quiet {
		pub, err = env.startPublishers()
		if err != nil {
			return nil, errors.Join(err, env.Close())
		}
	}

	internal, external := cfg.StorageRoots()
	svc, err := mediasvc.New(db, mediasvc.Options{
		Fs:        opts.Fs,
		Publisher: pub,
		Roots:     mediasvc.StorageRoots{Internal: internal, External: external},
		Thumbnails: mediasvc.ThumbnailLayout{
			Root:    cfg.ThumbnailRoot(),
			Default: cfg.DefaultThumbnail(),
		},
	})
	if err != nil {
		return nil, errors.Join(err, env.Close())
	}
	env.Svc = svc
	return env, nil
}

// startPublishers connects the configured transports. MQTT is fed from a
// buffered channel so slow brokers never hold up a mutation; D-Bus signals
// are emitted inline.
func (e *Env) startPublishers() (notifications.Publisher, error) {
	var pubs notifications.MultiPublisher

	if enabled, bus := e.Cfg.DBus(); enabled {
		dp, err := publishers.ConnectDBus(bus)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, dp.Close)
		pubs = append(pubs, dp)
	}

	if broker, topic, filter := e.Cfg.MQTT(); broker != "" {
		ch := make(chan notifications.Descriptor, e.Cfg.NotificationBuffer())
		mp := publishers.NewMQTTPublisher(broker, topic, filter)
		if err := mp.Start(ch); err != nil {
			return nil, err
		}
		e.closers = append(e.closers, func() error {
			close(ch)
			mp.Stop()
			return nil
		})
		pubs = append(pubs, notifications.NewChannelPublisher(ch))
	}

	switch len(pubs) {
	case 0:
		return notifications.Discard, nil
	case 1:
		return pubs[0], nil
	default:
		return pubs, nil
	}
}

// Close releases everything in reverse order of opening. Safe to call
// twice.
func (e *Env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	if err := errors.Join(errs...); err != nil {
		log.Warn().Err(err).Msg("errors while closing environment")
		return err
	}
	return nil
}
