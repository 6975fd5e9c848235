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

// AddFile records a file of the workspace for the next commit. Paths that are
// part of the current commit are recorded as edits.
func AddFile(ctx context.Context, ws *workspace.Workspace, conn *env.Connection, relativePath string) (workspace.LocalChange, error) {
	p, err := untrackedPath(ws, relativePath)
	if err != nil {
		return workspace.LocalChange{}, err
	}
	if !ws.Exists(p) {
		return workspace.LocalChange{}, vcserr.ErrFileNotFound.New(p)
	}

	branch, _, err := currentBranch(ctx, ws, conn)
	if err != nil {
		return workspace.LocalChange{}, err
	}
	if err := AssertNotLocked(ctx, ws, conn, branch, p); err != nil {
		return workspace.LocalChange{}, err
	}

	_, root, err := headRoot(ctx, ws, conn)
	if err != nil {
		return workspace.LocalChange{}, err
	}
	_, inTree, err := tree.FindFileHash(ctx, conn.Trees, root, p)
	if err != nil {
		return workspace.LocalChange{}, err
	}

	ch := workspace.LocalChange{RelativePath: p, ChangeType: vcsdb.Add}
	if inTree {
		ch.ChangeType = vcsdb.Edit
	}
	return ch, ws.State.PutLocalChange(ch)
}

// EditFile makes a checked out file writable and records the edit.
func EditFile(ctx context.Context, ws *workspace.Workspace, conn *env.Connection, relativePath string) (workspace.LocalChange, error) {
	p, err := untrackedPath(ws, relativePath)
	if err != nil {
		return workspace.LocalChange{}, err
	}
	if err := requireInTree(ctx, ws, conn, p); err != nil {
		return workspace.LocalChange{}, err
	}

	branch, _, err := currentBranch(ctx, ws, conn)
	if err != nil {
		return workspace.LocalChange{}, err
	}
	if err := AssertNotLocked(ctx, ws, conn, branch, p); err != nil {
		return workspace.LocalChange{}, err
	}

	if err := ws.SetReadOnly(p, false); err != nil {
		return workspace.LocalChange{}, err
	}
	ch := workspace.LocalChange{RelativePath: p, ChangeType: vcsdb.Edit}
	return ch, ws.State.PutLocalChange(ch)
}

// DeleteFile removes a checked out file and records the delete.
func DeleteFile(ctx context.Context, ws *workspace.Workspace, conn *env.Connection, relativePath string) (workspace.LocalChange, error) {
	p, err := untrackedPath(ws, relativePath)
	if err != nil {
		return workspace.LocalChange{}, err
	}
	if err := requireInTree(ctx, ws, conn, p); err != nil {
		return workspace.LocalChange{}, err
	}

	branch, _, err := currentBranch(ctx, ws, conn)
	if err != nil {
		return workspace.LocalChange{}, err
	}
	if err := AssertNotLocked(ctx, ws, conn, branch, p); err != nil {
		return workspace.LocalChange{}, err
	}

	if err := ws.DeleteFile(p); err != nil {
		return workspace.LocalChange{}, err
	}
	ch := workspace.LocalChange{RelativePath: p, ChangeType: vcsdb.Delete}
	return ch, ws.State.PutLocalChange(ch)
}

// RevertFile discards the local change on |relativePath|. Edited and deleted
// files are restored from the current commit. Added files are left on disk but
// are no longer tracked.
func RevertFile(ctx context.Context, ws *workspace.Workspace, conn *env.Connection, relativePath string) error {
	p, err := workspace.CleanPath(relativePath)
	if err != nil {
		return err
	}
	ch, ok, err := ws.State.GetLocalChange(p)
	if err != nil {
		return err
	}
	if !ok {
		return vcserr.ErrNotTracked.New(p)
	}

	if ch.ChangeType != vcsdb.Add {
		_, root, err := headRoot(ctx, ws, conn)
		if err != nil {
			return err
		}
		h, inTree, err := tree.FindFileHash(ctx, conn.Trees, root, ch.RelativePath)
		if err != nil {
			return err
		}
		if inTree {
			if err := materialize(ctx, ws, conn, ch.RelativePath, h); err != nil {
				return err
			}
		}
	}

	logrus.Debugf("reverted %s %s", ch.ChangeType, ch.RelativePath)
	return ws.State.DeleteLocalChange(p)
}

// LocalChanges returns the changes the next commit will record.
func LocalChanges(ws *workspace.Workspace) ([]workspace.LocalChange, error) {
	return ws.State.LocalChanges()
}

func untrackedPath(ws *workspace.Workspace, relativePath string) (string, error) {
	p, err := workspace.CleanPath(relativePath)
	if err != nil {
		return "", err
	}
	_, ok, err := ws.State.GetLocalChange(p)
	if err != nil {
		return "", err
	}
	if ok {
		return "", vcserr.ErrAlreadyTracked.New(p)
	}
	return p, nil
}

func requireInTree(ctx context.Context, ws *workspace.Workspace, conn *env.Connection, p string) error {
	commitID, root, err := headRoot(ctx, ws, conn)
	if err != nil {
		return err
	}
	_, inTree, err := tree.FindFileHash(ctx, conn.Trees, root, p)
	if err != nil {
		return err
	}
	if !inTree {
		return vcserr.ErrNotInTree.New(p, commitID)
	}
	return nil
}
