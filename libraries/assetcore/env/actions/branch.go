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

	"github.com/sirupsen/logrus"

	"github.com/dolthub/assetvcs/libraries/assetcore/env"
	"github.com/dolthub/assetvcs/libraries/assetcore/index"
	"github.com/dolthub/assetvcs/libraries/assetcore/vcsdb"
	"github.com/dolthub/assetvcs/libraries/assetcore/vcserr"
	"github.com/dolthub/assetvcs/libraries/assetcore/workspace"
)

// CreateBranch creates branch |name| at the commit the workspace is on and
// switches the workspace to it. The new branch shares the lock domain of the
// current branch. Local changes carry over.
func CreateBranch(ctx context.Context, ws *workspace.Workspace, conn *env.Connection, name string) (vcsdb.Branch, error) {
	cur, wsCommit, err := currentBranch(ctx, ws, conn)
	if err != nil {
		return vcsdb.Branch{}, err
	}

	b, err := vcsdb.NewBranch(name, wsCommit, cur.LockDomainID)
	if err != nil {
		return vcsdb.Branch{}, err
	}
	if err := conn.Index.InsertBranch(ctx, b); err != nil {
		return vcsdb.Branch{}, err
	}
	if err := ws.State.SetHead(b.Name, wsCommit); err != nil {
		return vcsdb.Branch{}, err
	}

	logrus.Infof("created branch %s at %s", b.Name, wsCommit)
	return b, nil
}

// SwitchBranch moves a clean workspace to the head of branch |name|.
func SwitchBranch(ctx context.Context, ws *workspace.Workspace, conn *env.Connection, name string) (SyncResult, error) {
	pending, err := pendingCount(ws)
	if err != nil {
		return SyncResult{}, err
	}
	if pending > 0 {
		return SyncResult{}, vcserr.ErrWorkspaceDirty.New(pending)
	}

	target, err := conn.Index.GetBranch(ctx, name)
	if err != nil {
		return SyncResult{}, err
	}

	_, wsCommit, err := ws.Head()
	if err != nil {
		return SyncResult{}, err
	}
	if err := ws.State.SetHead(target.Name, wsCommit); err != nil {
		return SyncResult{}, err
	}
	return SyncTo(ctx, ws, conn, target.Head)
}

// pendingCount counts the local changes, pending merges and unresolved
// conflicts of the workspace.
func pendingCount(ws *workspace.Workspace) (int, error) {
	changes, err := ws.State.LocalChanges()
	if err != nil {
		return 0, err
	}
	merges, err := ws.State.PendingMerges()
	if err != nil {
		return 0, err
	}
	resolves, err := ws.State.ResolvesPending()
	if err != nil {
		return 0, err
	}
	return len(changes) + len(merges) + len(resolves), nil
}

func ListBranches(ctx context.Context, conn *env.Connection) ([]vcsdb.Branch, error) {
	return conn.Index.ListBranches(ctx, index.ListBranchesQuery{})
}

// Log returns up to |depth| commits of the first parent history of the
// current branch, most recent first. A depth of zero returns all of them.
func Log(ctx context.Context, ws *workspace.Workspace, conn *env.Connection, depth int) ([]*vcsdb.Commit, error) {
	b, _, err := currentBranch(ctx, ws, conn)
	if err != nil {
		return nil, err
	}
	return vcsdb.CommitHistory(ctx, conn.Index, b.Head, depth)
}
