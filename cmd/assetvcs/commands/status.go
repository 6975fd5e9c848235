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

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dolthub/assetvcs/libraries/assetcore/env"
	"github.com/dolthub/assetvcs/libraries/assetcore/env/actions"
	"github.com/dolthub/assetvcs/libraries/assetcore/workspace"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the branch, local changes and conflicts of the workspace",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(ctx context.Context, cmd *cobra.Command, ws *workspace.Workspace, conn *env.Connection, args []string) error {
			st, err := actions.GetStatus(ctx, ws, conn)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "On branch %s at %s\n", st.Branch, st.Commit)
			if !st.UpToDate() {
				fmt.Fprintln(out, color.YellowString("Branch is at %s, run sync to update", st.BranchHead))
			}
			for _, pm := range st.Merges {
				fmt.Fprintf(out, "Merging %s at %s\n", pm.Name, pm.Head)
			}
			if len(st.Changes) > 0 {
				fmt.Fprintln(out, "\nChanges to be committed:")
				for _, ch := range st.Changes {
					fmt.Fprintln(out, color.GreenString("\t%-6s %s", ch.ChangeType, ch.RelativePath))
				}
			}
			if len(st.Conflicts) > 0 {
				fmt.Fprintln(out, "\nUnresolved conflicts:")
				for _, rp := range st.Conflicts {
					fmt.Fprintln(out, color.RedString("\t%s (base %s, theirs %s)", rp.RelativePath, rp.BaseCommitID, rp.TheirsCommitID))
				}
			}
			if len(st.Untracked) > 0 {
				fmt.Fprintln(out, "\nUntracked files:")
				for _, p := range st.Untracked {
					fmt.Fprintf(out, "\t%s\n", p)
				}
			}
			return nil
		}),
	}
}
