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

func newCommitCmd(opts *rootOptions) *cobra.Command {
	var commitOpts actions.CommitOptions
	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Commit local changes and pending merges to the current branch",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(ctx context.Context, cmd *cobra.Command, ws *workspace.Workspace, conn *env.Connection, args []string) error {
			cm, err := actions.CommitLocalChanges(ctx, ws, conn, commitOpts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "committed %s with %d changes\n", cm.ID, len(cm.Changes))
			return nil
		}),
	}
	cmd.Flags().StringVarP(&commitOpts.Message, "message", "m", "", "Commit message")
	cmd.Flags().BoolVar(&commitOpts.ReleaseLocks, "release-locks", false, "Release this workspace's locks on the committed files")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}
