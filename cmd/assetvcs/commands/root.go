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

// Package commands implements the assetvcs command line.
package commands

import (
	"context"
	"os"
	"os/user"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dolthub/assetvcs/libraries/assetcore/env"
	"github.com/dolthub/assetvcs/libraries/assetcore/workspace"
	"github.com/dolthub/assetvcs/libraries/utils/filesys"
)

// OwnerEnvVar overrides the owner recorded in new workspaces and commits.
const OwnerEnvVar = "ASSETVCS_OWNER"

type rootOptions struct {
	verbose bool
	dir     string
}

// NewRootCmd returns the assetvcs command with all of its subcommands.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "assetvcs",
		Short: "Version control for large binary assets",
		Long: `assetvcs tracks large binary files in content addressed storage, with
branches, merges and per file locks shared between workspaces.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVarP(&opts.dir, "dir", "C", ".", "Run as if started in this directory")

	root.AddCommand(
		newRepoCmd(),
		newInitCmd(opts),
		newAddCmd(opts),
		newEditCmd(opts),
		newDeleteCmd(opts),
		newRevertCmd(opts),
		newCommitCmd(opts),
		newBranchCmd(opts),
		newMergeCmd(opts),
		newResolveCmd(opts),
		newLockCmd(opts),
		newUnlockCmd(opts),
		newLocksCmd(opts),
		newLogCmd(opts),
		newStatusCmd(opts),
		newSyncCmd(opts),
	)
	return root
}

// sessionFunc runs with an open session on the workspace containing the
// working directory.
type sessionFunc func(ctx context.Context, cmd *cobra.Command, ws *workspace.Workspace, conn *env.Connection, args []string) error

func withSession(opts *rootOptions, fn sessionFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		ws, err := workspace.Find(filesys.LocalFS, opts.dir)
		if err != nil {
			return err
		}
		defer ws.Close()

		if owner := os.Getenv(OwnerEnvVar); owner != "" {
			ws.Spec.Owner = owner
		}

		conn, err := env.Connect(ctx, ws.Spec)
		if err != nil {
			return err
		}
		defer conn.Close()

		return fn(ctx, cmd, ws, conn, args)
	}
}

// relativePaths converts command line paths, relative to the working
// directory, to workspace relative paths.
func relativePaths(opts *rootOptions, ws *workspace.Workspace, args []string) ([]string, error) {
	out := make([]string, len(args))
	for i, a := range args {
		p := a
		if !filepath.IsAbs(a) {
			p = filepath.Join(opts.dir, a)
		}
		rel, err := ws.RelativePath(p)
		if err != nil {
			return nil, err
		}
		out[i] = rel
	}
	return out, nil
}

func defaultOwner() string {
	if owner := os.Getenv(OwnerEnvVar); owner != "" {
		return owner
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return "unknown"
}
