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
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(t *testing.T, fs afero.Fs) *Instance {
	t.Helper()
	cfg, err := NewConfig(fs, "/etc/mediasvc", BaseDefaults)
	require.NoError(t, err)
	return cfg
}

//nolint:paralleltest // reads MEDIASVC_CFG
func TestNewConfig_WritesDefaults(t *testing.T) {
	t.Setenv(CfgEnv, "")
	fs := afero.NewMemMapFs()

	cfg := newTestConfig(t, fs)

	exists, err := afero.Exists(fs, filepath.Join("/etc/mediasvc", CfgFile))
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, 100, cfg.BatchSize())
	internal, external := cfg.StorageRoots()
	assert.Equal(t, "/opt/usr/media", internal)
	assert.Equal(t, "/opt/storage/sdcard", external)
	assert.Equal(t, "/opt/usr/media/.thumb/thumb_default.png", cfg.DefaultThumbnail())
}

//nolint:paralleltest // reads MEDIASVC_CFG
func TestLoad_OverlaysFileOnDefaults(t *testing.T) {
	t.Setenv(CfgEnv, "")
	fs := afero.NewMemMapFs()
	cfgPath := filepath.Join("/etc/mediasvc", CfgFile)
	require.NoError(t, fs.MkdirAll("/etc/mediasvc", 0o750))
	require.NoError(t, afero.WriteFile(fs, cfgPath, []byte(`
config_schema = 1
debug_logging = true

[batch]
size = 25

[notifications.mqtt]
broker = "localhost:1883"
topic = "media/events"
filter = ["media.file.insert"]

[watcher]
enabled = true
paths = ["/opt/usr/media/DCIM"]
`), 0o600))

	cfg := newTestConfig(t, fs)

	assert.True(t, cfg.DebugLogging())
	assert.Equal(t, 25, cfg.BatchSize())
	broker, topic, filter := cfg.MQTT()
	assert.Equal(t, "localhost:1883", broker)
	assert.Equal(t, "media/events", topic)
	assert.Equal(t, []string{"media.file.insert"}, filter)
	enabled, paths := cfg.WatchPaths()
	assert.True(t, enabled)
	assert.Equal(t, []string{"/opt/usr/media/DCIM"}, paths)
	// untouched sections keep defaults
	assert.Equal(t, "/opt/usr/media/.thumb", cfg.ThumbnailRoot())
	dbusEnabled, bus := cfg.DBus()
	assert.False(t, dbusEnabled)
	assert.Equal(t, BusSystem, bus)
}

//nolint:paralleltest // reads MEDIASVC_CFG
func TestLoad_RejectsSchemaMismatch(t *testing.T) {
	t.Setenv(CfgEnv, "")
	fs := afero.NewMemMapFs()
	cfgPath := filepath.Join("/etc/mediasvc", CfgFile)
	require.NoError(t, afero.WriteFile(fs, cfgPath, []byte("config_schema = 99\n"), 0o600))

	_, err := NewConfig(fs, "/etc/mediasvc", BaseDefaults)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema version mismatch")
}

//nolint:paralleltest // reads MEDIASVC_CFG
func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Setenv(CfgEnv, "")

	tests := []struct {
		name string
		body string
	}{
		{name: "zero batch size", body: "config_schema = 1\n[batch]\nsize = 0\n"},
		{name: "relative storage root", body: "config_schema = 1\n[storage]\ninternal_root = \"media\"\n"},
		{name: "mqtt broker without topic", body: "config_schema = 1\n[notifications.mqtt]\nbroker = \"localhost:1883\"\n"},
		{name: "unknown bus", body: "config_schema = 1\n[notifications.dbus]\nbus = \"peer\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			cfgPath := filepath.Join("/etc/mediasvc", CfgFile)
			require.NoError(t, afero.WriteFile(fs, cfgPath, []byte(tt.body), 0o600))

			_, err := NewConfig(fs, "/etc/mediasvc", BaseDefaults)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config field")
		})
	}
}

//nolint:paralleltest // reads MEDIASVC_CFG
func TestEnvOverridesConfigPath(t *testing.T) {
	t.Setenv(CfgEnv, "/custom/place.toml")
	fs := afero.NewMemMapFs()

	cfg := newTestConfig(t, fs)

	assert.Equal(t, "/custom/place.toml", cfg.Path())
	exists, err := afero.Exists(fs, "/custom/place.toml")
	require.NoError(t, err)
	assert.True(t, exists)
}

//nolint:paralleltest // reads MEDIASVC_CFG
func TestSetBatchSize_Validates(t *testing.T) {
	t.Setenv(CfgEnv, "")
	cfg := newTestConfig(t, afero.NewMemMapFs())

	require.Error(t, cfg.SetBatchSize(0))
	assert.Equal(t, 100, cfg.BatchSize())

	require.NoError(t, cfg.SetBatchSize(3))
	require.NoError(t, cfg.Save())
	require.NoError(t, cfg.Load())
	assert.Equal(t, 3, cfg.BatchSize())
}

func TestValidate_Defaults(t *testing.T) {
	t.Parallel()
	require.NoError(t, Validate(BaseDefaults))
}
