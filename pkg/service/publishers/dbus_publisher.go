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

package publishers

import (
	"context"
	"fmt"

	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/config"
	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/notifications"
	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog/log"
)

const (
	DBusObjectPath dbus.ObjectPath = "/org/zaparoo/MediaService"
	DBusInterface                  = "org.zaparoo.MediaService"
	DBusSignal                     = DBusInterface + ".DbUpdated"
)

// SignalEmitter is the part of *dbus.Conn the publisher needs.
type SignalEmitter interface {
	Emit(path dbus.ObjectPath, name string, values ...any) error
}

// DBusPublisher broadcasts each descriptor as a DbUpdated signal. The
// signal body is (pid, subject, mutation, path, uuid, media kind, mime),
// all integers as int32 so listeners can match on the "iiissis" signature.
type DBusPublisher struct {
	emitter SignalEmitter
	closer  func() error
}

func NewDBusPublisher(emitter SignalEmitter) *DBusPublisher {
	return &DBusPublisher{emitter: emitter}
}

// ConnectDBus opens a private connection to the named bus ("session" or
// "system") and returns a publisher that owns it.
func ConnectDBus(bus string) (*DBusPublisher, error) {
	var (
		conn *dbus.Conn
		err  error
	)
	switch bus {
	case config.BusSession:
		conn, err = dbus.SessionBusPrivate()
	case config.BusSystem, "":
		conn, err = dbus.SystemBusPrivate()
	default:
		return nil, fmt.Errorf("unknown dbus bus: %q", bus)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s bus: %w", bus, err)
	}

	if err := conn.Auth(nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to authenticate on %s bus: %w", bus, err)
	}
	if err := conn.Hello(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to register on %s bus: %w", bus, err)
	}

	log.Info().Msgf("dbus publisher: connected to %s bus", bus)
	return &DBusPublisher{emitter: conn, closer: conn.Close}, nil
}

func (p *DBusPublisher) Publish(_ context.Context, d notifications.Descriptor) error {
	err := p.emitter.Emit(
		DBusObjectPath,
		DBusSignal,
		int32(d.OriginPID), //nolint:gosec // pids fit in int32
		int32(d.Subject),   //nolint:gosec // small enum
		int32(d.Mutation),  //nolint:gosec // small enum
		d.Path,
		d.UUID,
		int32(d.MediaKind), //nolint:gosec // small enum
		d.MimeType,
	)
	if err != nil {
		return fmt.Errorf("failed to emit %s for %s: %w", d.Method(), d.Path, err)
	}
	return nil
}

// Close releases a connection opened by ConnectDBus.
func (p *DBusPublisher) Close() error {
	if p.closer == nil {
		return nil
	}
	closer := p.closer
	p.closer = nil
	if err := closer(); err != nil {
		return fmt.Errorf("failed to close dbus connection: %w", err)
	}
	return nil
}
