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

func newBranchCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "branch",
		Short: "Create, switch and list branches",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Create a branch at the current commit and switch to it",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(opts, func(ctx context.Context, cmd *cobra.Command, ws *workspace.Workspace, conn *env.Connection, args []string) error {
			b, err := actions.CreateBranch(ctx, ws, conn, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created branch %s at %s\n", b.Name, b.Head)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "switch <name>",
		Short: "Switch a clean workspace to another branch",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(opts, func(ctx context.Context, cmd *cobra.Command, ws *workspace.Workspace, conn *env.Connection, args []string) error {
			res, err := actions.SwitchBranch(ctx, ws, conn, args[0])
			printSync(cmd, res)
			return err
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List branches",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(ctx context.Context, cmd *cobra.Command, ws *workspace.Workspace, conn *env.Connection, args []string) error {
			branches, err := actions.ListBranches(ctx, conn)
			if err != nil {
				return err
			}
			current, _, err := ws.Head()
			if err != nil {
				return err
			}
			for _, b := range branches {
				marker := " "
				if b.Name == current {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", marker, b.Name, b.Head)
			}
			return nil
		}),
	})

	return cmd
}
