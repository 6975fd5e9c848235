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

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dolthub/assetvcs/libraries/assetcore/env"
	"github.com/dolthub/assetvcs/libraries/assetcore/env/actions"
	"github.com/dolthub/assetvcs/libraries/assetcore/workspace"
)

type fileAction func(ctx context.Context, ws *workspace.Workspace, conn *env.Connection, relativePath string) (workspace.LocalChange, error)

// newFileCmd builds a command applying |action| to each path argument.
func newFileCmd(opts *rootOptions, use, short string, action fileAction) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <path>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: withSession(opts, func(ctx context.Context, cmd *cobra.Command, ws *workspace.Workspace, conn *env.Connection, args []string) error {
			paths, err := relativePaths(opts, ws, args)
			if err != nil {
				return err
			}
			for _, p := range paths {
				ch, err := action(ctx, ws, conn, p)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-6s %s\n", ch.ChangeType, ch.RelativePath)
			}
			return nil
		}),
	}
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	return newFileCmd(opts, "add", "Track new files for the next commit", actions.AddFile)
}

func newEditCmd(opts *rootOptions) *cobra.Command {
	return newFileCmd(opts, "edit", "Make checked out files writable and record the edit", actions.EditFile)
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return newFileCmd(opts, "delete", "Delete checked out files and record the delete", actions.DeleteFile)
}

func newRevertCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "revert <path>...",
		Short: "Discard local changes",
		Args:  cobra.MinimumNArgs(1),
		RunE: withSession(opts, func(ctx context.Context, cmd *cobra.Command, ws *workspace.Workspace, conn *env.Connection, args []string) error {
			paths, err := relativePaths(opts, ws, args)
			if err != nil {
				return err
			}
			for _, p := range paths {
				if err := actions.RevertFile(ctx, ws, conn, p); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reverted %s\n", p)
			}
			return nil
		}),
	}
}

func newResolveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <path>...",
		Short: "Mark conflicted files as resolved",
		Args:  cobra.MinimumNArgs(1),
		RunE: withSession(opts, func(ctx context.Context, cmd *cobra.Command, ws *workspace.Workspace, conn *env.Connection, args []string) error {
			paths, err := relativePaths(opts, ws, args)
			if err != nil {
				return err
			}
			for _, p := range paths {
				if err := actions.MarkResolved(ctx, ws, conn, p); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "resolved %s\n", p)
			}
			return nil
		}),
	}
}
