// Copyright 2025 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte("index_url: mem://from-file\nlistener:\n  port: 7000\n"), 0644))

	cmd := newServeCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--config", path, "--host", "0.0.0.0", "--read-only"}))

	cfg, err := loadConfig(cmd, &serveOptions{configPath: path, host: "0.0.0.0", readOnly: true})
	require.NoError(t, err)
	assert.Equal(t, "mem://from-file", cfg.IndexURL)
	assert.Equal(t, 7000, cfg.Listener.Port)
	assert.Equal(t, "0.0.0.0", cfg.Listener.Host)
	assert.True(t, cfg.ReadOnly)
}

func TestLoadConfigDefaults(t *testing.T) {
	cmd := newServeCmd()
	require.NoError(t, cmd.ParseFlags(nil))

	cfg, err := loadConfig(cmd, &serveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Listener.Host)
	assert.Equal(t, 9191, cfg.Listener.Port)
	assert.False(t, cfg.ReadOnly)
}
