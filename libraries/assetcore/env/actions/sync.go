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
	"github.com/dolthub/assetvcs/libraries/assetcore/tree"
	"github.com/dolthub/assetvcs/libraries/assetcore/vcsdb"
	"github.com/dolthub/assetvcs/libraries/assetcore/vcserr"
	"github.com/dolthub/assetvcs/libraries/assetcore/workspace"
)

// SyncResult describes what a sync did to the workspace.
type SyncResult struct {
	From string
	To   string
	// Updated lists the paths written or deleted.
	Updated []string
	// Conflicts are the paths with local changes that were left untouched.
	Conflicts []workspace.ResolvePending
}

// Sync brings the workspace to the head of its branch.
func Sync(ctx context.Context, ws *workspace.Workspace, conn *env.Connection) (SyncResult, error) {
	branch, _, err := currentBranch(ctx, ws, conn)
	if err != nil {
		return SyncResult{}, err
	}
	return SyncTo(ctx, ws, conn, branch.Head)
}

// SyncTo moves the workspace to |commitID|, which may be ahead of or behind
// the current commit. Paths with local changes are not overwritten. A
// ResolvePending is recorded for each of them instead. Files that are
// writable without a recorded change are skipped and reported in the
// returned SyncIncomplete error. The workspace is moved to |commitID| even if
// some files could not be synced.
func SyncTo(ctx context.Context, ws *workspace.Workspace, conn *env.Connection, commitID string) (SyncResult, error) {
	branchName, current, err := ws.Head()
	if err != nil {
		return SyncResult{}, err
	}
	res := SyncResult{From: current, To: commitID}
	if current == commitID {
		return res, nil
	}

	from, err := conn.Index.GetCommit(ctx, current)
	if err != nil {
		return res, err
	}
	to, err := conn.Index.GetCommit(ctx, commitID)
	if err != nil {
		return res, err
	}

	diffs, err := tree.Diff(ctx, conn.Trees, from.RootHash, to.RootHash)
	if err != nil {
		return res, err
	}

	changes, err := ws.State.LocalChanges()
	if err != nil {
		return res, err
	}
	local := changeKeys(changes)

	var failures []string
	for _, d := range diffs {
		if _, ok := local[vcsdb.LockKey(d.RelativePath)]; ok {
			rp := workspace.ResolvePending{RelativePath: d.RelativePath, BaseCommitID: current, TheirsCommitID: commitID}
			if err := ws.State.PutResolvePending(rp); err != nil {
				failures = append(failures, err.Error())
				continue
			}
			logrus.Infof("%s changed locally, recording a pending resolve and leaving it untouched", d.RelativePath)
			res.Conflicts = append(res.Conflicts, rp)
			continue
		}

		if err := syncFile(ctx, ws, conn, d); err != nil {
			failures = append(failures, err.Error())
			continue
		}
		res.Updated = append(res.Updated, d.RelativePath)
	}

	if err := ws.State.SetHead(branchName, commitID); err != nil {
		failures = append(failures, err.Error())
	}

	logrus.Infof("synced %s to %s: %d files updated, %d conflicts", branchName, commitID, len(res.Updated), len(res.Conflicts))
	if len(failures) > 0 {
		return res, vcserr.ErrSyncIncomplete.New(formatList(failures))
	}
	return res, nil
}

func syncFile(ctx context.Context, ws *workspace.Workspace, conn *env.Connection, d tree.FileDiff) error {
	writable, err := ws.IsWritable(d.RelativePath)
	if err != nil {
		return err
	}
	if writable {
		return vcserr.ErrFileModified.New(d.RelativePath)
	}

	if d.To.IsEmpty() {
		return ws.DeleteFile(d.RelativePath)
	}
	return materialize(ctx, ws, conn, d.RelativePath, d.To)
}
