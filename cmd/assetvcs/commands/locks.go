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

func newLockCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lock <path>...",
		Short: "Lock files in the lock domain of the current branch",
		Args:  cobra.MinimumNArgs(1),
		RunE: withSession(opts, func(ctx context.Context, cmd *cobra.Command, ws *workspace.Workspace, conn *env.Connection, args []string) error {
			paths, err := relativePaths(opts, ws, args)
			if err != nil {
				return err
			}
			for _, p := range paths {
				if _, err := actions.LockFile(ctx, ws, conn, p); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "locked %s\n", p)
			}
			return nil
		}),
	}
}

func newUnlockCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock <path>...",
		Short: "Release locks held by this workspace",
		Args:  cobra.MinimumNArgs(1),
		RunE: withSession(opts, func(ctx context.Context, cmd *cobra.Command, ws *workspace.Workspace, conn *env.Connection, args []string) error {
			paths, err := relativePaths(opts, ws, args)
			if err != nil {
				return err
			}
			for _, p := range paths {
				if err := actions.UnlockFile(ctx, ws, conn, p); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "unlocked %s\n", p)
			}
			return nil
		}),
	}
}

func newLocksCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "locks",
		Short: "List the locks of the current branch's lock domain",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(ctx context.Context, cmd *cobra.Command, ws *workspace.Workspace, conn *env.Connection, args []string) error {
			locks, err := actions.ListLocks(ctx, ws, conn)
			if err != nil {
				return err
			}
			for _, l := range locks {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", l.RelativePath, l.BranchName, l.WorkspaceID)
			}
			return nil
		}),
	}
}
