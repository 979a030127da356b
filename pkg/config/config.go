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

package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"

	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/helpers/syncutil"
	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	SchemaVersion = 1
	CfgEnv        = "MEDIASVC_CFG"
	CfgFile       = "mediasvc.toml"
	BusSession    = "session"
	BusSystem     = "system"
)

type Values struct {
	Storage       Storage       `toml:"storage"`
	Database      Database      `toml:"database"`
	Thumbnails    Thumbnails    `toml:"thumbnails"`
	Notifications Notifications `toml:"notifications,omitempty"`
	Watcher       Watcher       `toml:"watcher,omitempty"`
	Batch         Batch         `toml:"batch"`
	ConfigSchema  int           `toml:"config_schema"`
	DebugLogging  bool          `toml:"debug_logging"`
}

type Database struct {
	Path string `toml:"path" validate:"required"`
}

// Storage roots decide whether a path is internal or external media.
type Storage struct {
	InternalRoot string `toml:"internal_root" validate:"required,abspath"`
	ExternalRoot string `toml:"external_root,omitempty" validate:"omitempty,abspath"`
}

type Thumbnails struct {
	Root    string `toml:"root" validate:"required,abspath"`
	Default string `toml:"default" validate:"required,abspath"`
}

type Batch struct {
	Size int `toml:"size" validate:"gte=1,lte=10000"`
}

type Notifications struct {
	MQTT    MQTT `toml:"mqtt,omitempty"`
	DBus    DBus `toml:"dbus,omitempty"`
	Channel int  `toml:"channel_buffer,omitempty" validate:"gte=0"`
}

type MQTT struct {
	Broker string   `toml:"broker,omitempty" validate:"omitempty,hostname_port"`
	Topic  string   `toml:"topic,omitempty" validate:"required_with=Broker"`
	Filter []string `toml:"filter,omitempty,multiline"`
}

type DBus struct {
	Bus     string `toml:"bus,omitempty" validate:"omitempty,oneof=session system"`
	Enabled bool   `toml:"enabled"`
}

type Watcher struct {
	Paths   []string `toml:"paths,omitempty,multiline" validate:"dive,abspath"`
	Enabled bool     `toml:"enabled"`
}

var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	Database: Database{
		Path: "/opt/usr/dbspace/.media.db",
	},
	Storage: Storage{
		InternalRoot: "/opt/usr/media",
		ExternalRoot: "/opt/storage/sdcard",
	},
	Thumbnails: Thumbnails{
		Root:    "/opt/usr/media/.thumb",
		Default: "/opt/usr/media/.thumb/thumb_default.png",
	},
	Batch: Batch{
		Size: 100,
	},
	Notifications: Notifications{
		Channel: 64,
		DBus:    DBus{Bus: BusSystem},
	},
}

type Instance struct {
	fs       afero.Fs
	cfgPath  string
	vals     Values
	defaults Values
	mu       syncutil.RWMutex
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// media paths are slash separated regardless of host OS
	_ = v.RegisterValidation("abspath", func(fl validator.FieldLevel) bool {
		return path.IsAbs(fl.Field().String())
	})
	return v
}

// Validate checks values before they are used or saved.
//
//nolint:gocritic // config struct copied for immutability
func Validate(vals Values) error {
	if err := validate.Struct(vals); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid config field %s: failed %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// NewConfig loads the config file, creating it from defaults on first run.
// The MEDIASVC_CFG environment variable overrides the file location.
//
//nolint:gocritic // config struct copied for immutability
func NewConfig(fs afero.Fs, configDir string, defaults Values) (*Instance, error) {
	cfgPath := os.Getenv(CfgEnv)
	log.Debug().Msgf("env config path: %s", cfgPath)

	if cfgPath == "" {
		cfgPath = filepath.Join(configDir, CfgFile)
	}

	cfg := &Instance{
		fs:       fs,
		cfgPath:  cfgPath,
		vals:     defaults,
		defaults: defaults,
	}

	exists, err := afero.Exists(fs, cfgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if !exists {
		log.Info().Msg("saving new default config to disk")
		if err := fs.MkdirAll(filepath.Dir(cfgPath), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
		if err := cfg.Save(); err != nil {
			return nil, err
		}
	}

	if err := cfg.Load(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := afero.ReadFile(c.fs, c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// fields missing from the file keep their defaults
	newVals := c.defaults
	newVals.Watcher.Paths = slices.Clone(c.defaults.Watcher.Paths)
	newVals.Notifications.MQTT.Filter = slices.Clone(c.defaults.Notifications.MQTT.Filter)
	if err := toml.Unmarshal(data, &newVals); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if newVals.ConfigSchema != SchemaVersion {
		log.Error().Msgf(
			"schema version mismatch: got %d, expecting %d",
			newVals.ConfigSchema,
			SchemaVersion,
		)
		return errors.New("schema version mismatch")
	}

	if err := Validate(newVals); err != nil {
		return err
	}

	c.vals = newVals
	return nil
}

func (c *Instance) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	c.vals.ConfigSchema = SchemaVersion
	if err := Validate(c.vals); err != nil {
		return err
	}

	data, err := toml.Marshal(&c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := afero.WriteFile(c.fs, c.cfgPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Instance) Path() string {
	return c.cfgPath
}

func (c *Instance) DatabasePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Database.Path
}

func (c *Instance) StorageRoots() (internal, external string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Storage.InternalRoot, c.vals.Storage.ExternalRoot
}

func (c *Instance) ThumbnailRoot() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Thumbnails.Root
}

func (c *Instance) DefaultThumbnail() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Thumbnails.Default
}

func (c *Instance) BatchSize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Batch.Size
}

func (c *Instance) SetBatchSize(size int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.vals
	next.Batch.Size = size
	if err := Validate(next); err != nil {
		return err
	}
	c.vals.Batch.Size = size
	return nil
}

// MQTT returns the broker settings; an empty broker disables the publisher.
func (c *Instance) MQTT() (broker, topic string, filter []string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m := c.vals.Notifications.MQTT
	return m.Broker, m.Topic, slices.Clone(m.Filter)
}

func (c *Instance) DBus() (enabled bool, bus string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d := c.vals.Notifications.DBus
	bus = d.Bus
	if bus == "" {
		bus = BusSystem
	}
	return d.Enabled, bus
}

func (c *Instance) NotificationBuffer() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Notifications.Channel
}

func (c *Instance) WatchPaths() (enabled bool, paths []string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Watcher.Enabled, slices.Clone(c.vals.Watcher.Paths)
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

func (c *Instance) SetDebugLogging(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.DebugLogging = enabled
	if enabled {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
