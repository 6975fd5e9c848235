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
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/dolthub/assetvcs/libraries/assetcore/env"
	"github.com/dolthub/assetvcs/libraries/assetcore/tree"
	"github.com/dolthub/assetvcs/libraries/assetcore/vcsdb"
	"github.com/dolthub/assetvcs/libraries/assetcore/vcserr"
	"github.com/dolthub/assetvcs/libraries/assetcore/workspace"
	"github.com/dolthub/assetvcs/store/hash"
)

// MergeResult describes the outcome of MergeBranch.
type MergeResult struct {
	// FastForward is set when the current branch was moved to the source head.
	FastForward bool
	// UpToDate is set when the source head was already part of the current branch.
	UpToDate  bool
	Conflicts []workspace.ResolvePending
	Messages  []string
}

// MergeBranch merges branch |source| into the branch the workspace is on.
//
// If the current branch head is an ancestor of the source head, the branch is
// moved to the source head and the workspace synced to it from whatever commit
// it was at. Any other merge requires the workspace to be at the branch head. Otherwise the
// source side changes since the latest common ancestor are applied to the
// workspace as local changes and a PendingBranchMerge is recorded so the next
// commit has the source head as a second parent. Paths changed on both sides,
// or changed locally, are not overwritten. They get a ResolvePending instead,
// and the merge fails with a MergeConflicts error listing all of them.
func MergeBranch(ctx context.Context, ws *workspace.Workspace, conn *env.Connection, source string) (MergeResult, error) {
	var res MergeResult

	dest, wsCommit, err := currentBranch(ctx, ws, conn)
	if err != nil {
		return res, err
	}
	if source == dest.Name {
		return res, vcserr.ErrSelfMerge.New(source)
	}
	src, err := conn.Index.GetBranch(ctx, source)
	if err != nil {
		return res, err
	}
	if src.Head == dest.Head {
		res.UpToDate = true
		res.Messages = append(res.Messages, "already up to date")
		return res, nil
	}

	destAncestors, err := vcsdb.FindCommitAncestors(ctx, conn.Index, dest.Head)
	if err != nil {
		return res, err
	}
	if _, ok := destAncestors[src.Head]; ok {
		res.UpToDate = true
		res.Messages = append(res.Messages, "already up to date")
		return res, nil
	}

	srcAncestors, err := vcsdb.FindCommitAncestors(ctx, conn.Index, src.Head)
	if err != nil {
		return res, err
	}
	if _, ok := srcAncestors[dest.Head]; ok {
		return fastForward(ctx, ws, conn, dest, src)
	}
	if dest.Head != wsCommit {
		return res, vcserr.ErrWorkspaceNotUpToDate.New(wsCommit, dest.Name, dest.Head)
	}

	destHistory, err := vcsdb.BranchCommitHistory(ctx, conn.Index, dest)
	if err != nil {
		return res, err
	}
	srcHistory, err := vcsdb.BranchCommitHistory(ctx, conn.Index, src)
	if err != nil {
		return res, err
	}

	srcAncestors[src.Head] = struct{}{}
	ancestor, err := findMergeBase(destHistory, srcAncestors)
	if err != nil {
		return res, err
	}
	logrus.Debugf("merging %s into %s, common ancestor %s", src.Name, dest.Name, ancestor)

	modifiedInSource := vcsdb.ChangesSince(srcHistory, ancestor)
	modifiedInCurrent := vcsdb.ChangesSince(destHistory, ancestor)

	changes, err := ws.State.LocalChanges()
	if err != nil {
		return res, err
	}
	local := changeKeys(changes)
	currentRoot := destHistory[0].RootHash

	keys := make([]string, 0, len(modifiedInSource))
	for k := range modifiedInSource {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var failures []string
	for _, k := range keys {
		ch := modifiedInSource[k]
		_, changedHere := modifiedInCurrent[k]
		_, changedLocally := local[k]

		if changedHere || changedLocally {
			rp := workspace.ResolvePending{RelativePath: ch.RelativePath, BaseCommitID: ancestor, TheirsCommitID: src.Head}
			if err := recordConflict(ws, rp); err != nil {
				failures = append(failures, err.Error())
				continue
			}
			res.Conflicts = append(res.Conflicts, rp)
			failures = append(failures, fmt.Sprintf("conflict on %s (base %s, theirs %s)", rp.RelativePath, rp.BaseCommitID, rp.TheirsCommitID))
			continue
		}

		msg, err := changeFileTo(ctx, ws, conn, currentRoot, ch.RelativePath, ch.Hash)
		if err != nil {
			failures = append(failures, err.Error())
			continue
		}
		if msg != "" {
			res.Messages = append(res.Messages, msg)
		}
	}

	if err := ws.State.AddPendingMerge(workspace.PendingBranchMerge{Name: src.Name, Head: src.Head}); err != nil {
		failures = append(failures, err.Error())
	}

	if len(failures) > 0 {
		return res, vcserr.ErrMergeConflicts.New(formatList(failures))
	}
	res.Messages = append(res.Messages, "merge ready to commit")
	return res, nil
}

func fastForward(ctx context.Context, ws *workspace.Workspace, conn *env.Connection, dest, src vcsdb.Branch) (MergeResult, error) {
	res := MergeResult{FastForward: true}

	moved := dest
	moved.Head = src.Head
	if err := conn.Index.UpdateBranch(ctx, moved, dest.Head); err != nil {
		return res, err
	}
	logrus.Infof("fast forwarded %s to %s", dest.Name, src.Head)
	res.Messages = append(res.Messages, fmt.Sprintf("fast forward %s to %s", dest.Name, src.Head))

	synced, err := SyncTo(ctx, ws, conn, src.Head)
	res.Conflicts = synced.Conflicts
	for _, p := range synced.Updated {
		res.Messages = append(res.Messages, "updated "+p)
	}
	return res, err
}

func recordConflict(ws *workspace.Workspace, rp workspace.ResolvePending) error {
	if err := ws.State.PutResolvePending(rp); err != nil {
		return err
	}
	if ws.Exists(rp.RelativePath) {
		if err := ws.SetReadOnly(rp.RelativePath, false); err != nil {
			return err
		}
	}
	logrus.Warnf("conflict on %s", rp.RelativePath)
	return nil
}

// changeFileTo brings |relativePath| to the contents |target| and records the
// change for the next commit. It does nothing if the file already matches.
func changeFileTo(ctx context.Context, ws *workspace.Workspace, conn *env.Connection, currentRoot hash.Hash, relativePath string, target hash.Hash) (string, error) {
	if ws.Exists(relativePath) {
		local, err := ws.HashFile(relativePath)
		if err != nil {
			return "", err
		}
		if local == target {
			return "", nil
		}
	} else if target.IsEmpty() {
		return "", nil
	}

	if target.IsEmpty() {
		if err := ws.DeleteFile(relativePath); err != nil {
			return "", err
		}
		ch := workspace.LocalChange{RelativePath: relativePath, ChangeType: vcsdb.Delete}
		return "deleted " + relativePath, ws.State.PutLocalChange(ch)
	}

	if err := materialize(ctx, ws, conn, relativePath, target); err != nil {
		return "", err
	}

	_, inTree, err := tree.FindFileHash(ctx, conn.Trees, currentRoot, relativePath)
	if err != nil {
		return "", err
	}
	ch := workspace.LocalChange{RelativePath: relativePath, ChangeType: vcsdb.Add}
	if inTree {
		ch.ChangeType = vcsdb.Edit
	}
	return "updated " + relativePath, ws.State.PutLocalChange(ch)
}
