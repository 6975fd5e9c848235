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

// assetvcs-index serves a repository index over http so that workspaces can
// share it.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dolthub/assetvcs/libraries/assetcore/index"
	"github.com/dolthub/assetvcs/libraries/assetcore/indexsrv"
	"github.com/dolthub/assetvcs/libraries/assetcore/servercfg"
	"github.com/dolthub/assetvcs/libraries/utils/filesys"
)

type serveOptions struct {
	configPath string
	host       string
	port       int
	indexURL   string
	readOnly   bool
}

func main() {
	if err := newServeCmd().Execute(); err != nil {
		color.New(color.FgRed).Fprintln(color.Error, "error: "+err.Error())
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:           "assetvcs-index",
		Short:         "Serve a repository index over http",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&opts.configPath, "config", "", "Path of a yaml config file")
	cmd.Flags().StringVar(&opts.host, "host", "", "Host to listen on")
	cmd.Flags().IntVar(&opts.port, "port", 0, "Port to listen on")
	cmd.Flags().StringVar(&opts.indexURL, "index", "", "Url of the index backend to serve")
	cmd.Flags().BoolVar(&opts.readOnly, "read-only", false, "Reject writes")
	return cmd
}

// loadConfig reads the config file, if any, and applies the flags the user set
// on top of it.
func loadConfig(cmd *cobra.Command, opts *serveOptions) (*servercfg.ServerYAMLConfig, error) {
	cfg := servercfg.DefaultServerConfig()
	if opts.configPath != "" {
		var err error
		cfg, err = servercfg.YamlConfigFromFile(filesys.LocalFS, opts.configPath)
		if err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Listener.Host = opts.host
	}
	if flags.Changed("port") {
		cfg.Listener.Port = opts.port
	}
	if flags.Changed("index") {
		cfg.IndexURL = opts.indexURL
	}
	if flags.Changed("read-only") {
		cfg.ReadOnly = opts.readOnly
	}
	return cfg, cfg.Validate()
}

func serve(ctx context.Context, cfg *servercfg.ServerYAMLConfig) error {
	logrus.SetLevel(cfg.LogrusLevel())
	lgr := logrus.WithField("service", "assetvcs-index")
	lgr.Debugf("config:\n%s", cfg.String())

	ri, err := index.Open(ctx, cfg.IndexURL)
	if err != nil {
		return err
	}
	defer ri.Close()

	srv, err := indexsrv.NewServer(indexsrv.ServerArgs{
		Logger:       lgr,
		Host:         cfg.Listener.Host,
		Port:         cfg.Listener.Port,
		Index:        ri,
		ReadOnly:     cfg.ReadOnly,
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
		MetricsPath:  cfg.MetricsPath(),
	})
	if err != nil {
		return err
	}

	l, err := srv.Listener()
	if err != nil {
		return err
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		sig := <-sigs
		lgr.Infof("received %s, shutting down", sig)
		srv.GracefulStop()
	}()

	return srv.Serve(l)
}
