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

// Package servercfg loads the yaml configuration of the index server.
package servercfg

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/creasty/defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/dolthub/assetvcs/libraries/utils/filesys"
)

// ListenerYAMLConfig contains information on the network connection that the server will open
type ListenerYAMLConfig struct {
	Host               string `yaml:"host" default:"localhost"`
	Port               int    `yaml:"port" default:"9191"`
	ReadTimeoutMillis  uint64 `yaml:"read_timeout_millis" default:"30000"`
	WriteTimeoutMillis uint64 `yaml:"write_timeout_millis" default:"30000"`
}

type MetricsYAMLConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

// ServerYAMLConfig is the top level configuration of the index server.
type ServerYAMLConfig struct {
	LogLevel string `yaml:"log_level" default:"info"`
	// IndexURL selects the backend the server exposes, see index.Open.
	IndexURL string             `yaml:"index_url" default:"sqlite://assetvcs-index.db"`
	ReadOnly bool               `yaml:"read_only"`
	Listener ListenerYAMLConfig `yaml:"listener"`
	Metrics  MetricsYAMLConfig  `yaml:"metrics"`
}

// DefaultServerConfig returns the configuration used when no file is given.
func DefaultServerConfig() *ServerYAMLConfig {
	cfg := &ServerYAMLConfig{}
	if err := defaults.Set(cfg); err != nil {
		panic(err)
	}
	return cfg
}

// NewYamlConfig parses |data|, filling anything it leaves out with defaults.
// Environment placeholders are expanded before parsing.
func NewYamlConfig(data []byte) (*ServerYAMLConfig, error) {
	data, err := interpolateEnv(data)
	if err != nil {
		return nil, err
	}

	cfg := DefaultServerConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing server config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// YamlConfigFromFile reads the config file at |path|.
func YamlConfigFromFile(fs filesys.ReadableFS, path string) (*ServerYAMLConfig, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading server config %s: %w", path, err)
	}
	return NewYamlConfig(data)
}

func (cfg *ServerYAMLConfig) Validate() error {
	if cfg.IndexURL == "" {
		return fmt.Errorf("index_url must be set")
	}
	if cfg.Listener.Port <= 0 || cfg.Listener.Port > 65535 {
		return fmt.Errorf("listener port %d is out of range", cfg.Listener.Port)
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	if cfg.Metrics.Enabled && (cfg.Metrics.Path == "" || cfg.Metrics.Path[0] != '/') {
		return fmt.Errorf("metrics path %q must start with /", cfg.Metrics.Path)
	}
	return nil
}

// LogrusLevel returns the parsed log level. The config must be valid.
func (cfg *ServerYAMLConfig) LogrusLevel() logrus.Level {
	lvl, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

func (cfg *ServerYAMLConfig) ReadTimeout() time.Duration {
	return time.Duration(cfg.Listener.ReadTimeoutMillis) * time.Millisecond
}

func (cfg *ServerYAMLConfig) WriteTimeout() time.Duration {
	return time.Duration(cfg.Listener.WriteTimeoutMillis) * time.Millisecond
}

// MetricsPath returns the path metrics are served on, or "" if disabled.
func (cfg *ServerYAMLConfig) MetricsPath() string {
	if !cfg.Metrics.Enabled {
		return ""
	}
	return cfg.Metrics.Path
}

// String renders the config as yaml.
func (cfg *ServerYAMLConfig) String() string {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Sprintf("error marshalling config: %v", err)
	}
	return string(data)
}
