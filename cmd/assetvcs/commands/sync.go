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

func newSyncCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync [commit]",
		Short: "Bring the workspace to the head of its branch, or to a commit",
		Args:  cobra.MaximumNArgs(1),
		RunE: withSession(opts, func(ctx context.Context, cmd *cobra.Command, ws *workspace.Workspace, conn *env.Connection, args []string) error {
			var res actions.SyncResult
			var err error
			if len(args) == 1 {
				res, err = actions.SyncTo(ctx, ws, conn, args[0])
			} else {
				res, err = actions.Sync(ctx, ws, conn)
			}
			printSync(cmd, res)
			return err
		}),
	}
}

func printSync(cmd *cobra.Command, res actions.SyncResult) {
	out := cmd.OutOrStdout()
	for _, p := range res.Updated {
		fmt.Fprintf(out, "updated %s\n", p)
	}
	for _, rp := range res.Conflicts {
		fmt.Fprintf(out, "conflict %s (base %s, theirs %s)\n", rp.RelativePath, rp.BaseCommitID, rp.TheirsCommitID)
	}
	if res.To != "" {
		fmt.Fprintf(out, "at %s\n", res.To)
	}
}
