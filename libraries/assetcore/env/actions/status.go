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

package actions

import (
	"context"

	"github.com/dolthub/assetvcs/libraries/assetcore/env"
	"github.com/dolthub/assetvcs/libraries/assetcore/tree"
	"github.com/dolthub/assetvcs/libraries/assetcore/vcsdb"
	"github.com/dolthub/assetvcs/libraries/assetcore/workspace"
)

// Status summarizes the state of a workspace.
type Status struct {
	Branch     string
	Commit     string
	BranchHead string
	Changes    []workspace.LocalChange
	Merges     []workspace.PendingBranchMerge
	Conflicts  []workspace.ResolvePending
	// Untracked lists files on disk that are neither in the current commit
	// nor recorded as a local change.
	Untracked []string
}

// UpToDate returns true if the workspace is at the head of its branch.
func (s Status) UpToDate() bool {
	return s.Commit == s.BranchHead
}

func GetStatus(ctx context.Context, ws *workspace.Workspace, conn *env.Connection) (Status, error) {
	branch, wsCommit, err := currentBranch(ctx, ws, conn)
	if err != nil {
		return Status{}, err
	}
	st := Status{Branch: branch.Name, Commit: wsCommit, BranchHead: branch.Head}

	if st.Changes, err = ws.State.LocalChanges(); err != nil {
		return Status{}, err
	}
	if st.Merges, err = ws.State.PendingMerges(); err != nil {
		return Status{}, err
	}
	if st.Conflicts, err = ws.State.ResolvesPending(); err != nil {
		return Status{}, err
	}

	_, root, err := headRoot(ctx, ws, conn)
	if err != nil {
		return Status{}, err
	}
	known := make(map[string]struct{})
	err = tree.Walk(ctx, conn.Trees, root, func(relativePath string, _ tree.TreeNode) error {
		known[vcsdb.LockKey(relativePath)] = struct{}{}
		return nil
	})
	if err != nil {
		return Status{}, err
	}
	for _, ch := range st.Changes {
		known[vcsdb.LockKey(ch.RelativePath)] = struct{}{}
	}

	files, err := ws.ListFiles()
	if err != nil {
		return Status{}, err
	}
	for _, f := range files {
		if _, ok := known[vcsdb.LockKey(f)]; !ok {
			st.Untracked = append(st.Untracked, f)
		}
	}
	return st, nil
}
