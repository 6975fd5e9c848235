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

	"github.com/spf13/cobra"

	"github.com/dolthub/assetvcs/libraries/assetcore/env/actions"
	"github.com/dolthub/assetvcs/libraries/assetcore/index"
)

func newRepoCmd() *cobra.Command {
	var indexURL string
	cmd := &cobra.Command{
		Use:   "repo",
		Short: "Create, destroy and list repositories of an index",
	}
	cmd.PersistentFlags().StringVar(&indexURL, "index", "", "Url of the repository index")
	_ = cmd.MarkPersistentFlagRequired("index")

	cmd.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Create a repository with an empty main branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ri, err := index.Open(cmd.Context(), indexURL)
			if err != nil {
				return err
			}
			defer ri.Close()

			_, root, err := actions.InitRepository(cmd.Context(), ri, args[0], defaultOwner())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created repository %s at commit %s\n", args[0], root.ID)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "destroy <name>",
		Short: "Delete a repository and all of its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ri, err := index.Open(cmd.Context(), indexURL)
			if err != nil {
				return err
			}
			defer ri.Close()

			if err := ri.DestroyRepository(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "destroyed repository %s\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the repositories of the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ri, err := index.Open(cmd.Context(), indexURL)
			if err != nil {
				return err
			}
			defer ri.Close()

			names, err := ri.ListRepositories(cmd.Context())
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	})

	return cmd
}
