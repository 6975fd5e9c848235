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
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dolthub/assetvcs/libraries/assetcore/env"
	"github.com/dolthub/assetvcs/libraries/assetcore/env/actions"
	"github.com/dolthub/assetvcs/libraries/assetcore/workspace"
)

func newLogCmd(opts *rootOptions) *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the history of the current branch",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(ctx context.Context, cmd *cobra.Command, ws *workspace.Workspace, conn *env.Connection, args []string) error {
			commits, err := actions.Log(ctx, ws, conn, depth)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, cm := range commits {
				fmt.Fprintln(out, color.YellowString("commit %s", cm.ID))
				if cm.IsMerge() {
					fmt.Fprintf(out, "Merge:  %s\n", strings.Join(cm.Parents, " "))
				}
				fmt.Fprintf(out, "Author: %s\n", cm.Owner)
				fmt.Fprintf(out, "Date:   %s (%s)\n", cm.Timestamp.Format("Mon Jan 02 15:04:05 2006 -0700"), humanize.Time(cm.Timestamp))
				fmt.Fprintf(out, "\n\t%s\n\n", cm.Message)
			}
			return nil
		}),
	}
	cmd.Flags().IntVarP(&depth, "number", "n", 0, "Limit the number of commits shown")
	return cmd
}
