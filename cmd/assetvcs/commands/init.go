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
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dolthub/assetvcs/libraries/assetcore/env/actions"
	"github.com/dolthub/assetvcs/libraries/assetcore/vcsdb"
	"github.com/dolthub/assetvcs/libraries/assetcore/workspace"
	"github.com/dolthub/assetvcs/libraries/utils/filesys"
)

func newInitCmd(opts *rootOptions) *cobra.Command {
	var branch string
	cmd := &cobra.Command{
		Use:   "init <index-url> <blob-url> <repository>",
		Short: "Create a workspace in the current directory and check out a branch",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := workspace.Spec{
				IndexURL:    args[0],
				BlobURL:     args[1],
				Repository:  args[2],
				WorkspaceID: uuid.NewString(),
				Owner:       defaultOwner(),
			}

			ws, conn, err := actions.InitWorkspace(cmd.Context(), filesys.LocalFS, opts.dir, spec, branch)
			if err != nil {
				return err
			}
			defer conn.Close()
			defer ws.Close()

			b, c, err := ws.Head()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "initialized workspace %s on %s at %s\n", spec.WorkspaceID, b, c)
			return nil
		},
	}
	cmd.Flags().StringVarP(&branch, "branch", "b", vcsdb.DefaultBranch, "Branch to check out")
	return cmd
}
