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

// MarkResolved clears the conflict on |relativePath| once the file on disk
// holds the resolved contents. The resolution is recorded as a local change
// unless one already exists.
func MarkResolved(ctx context.Context, ws *workspace.Workspace, conn *env.Connection, relativePath string) error {
	p, err := workspace.CleanPath(relativePath)
	if err != nil {
		return err
	}
	rp, ok, err := ws.State.GetResolvePending(p)
	if err != nil {
		return err
	}
	if !ok {
		return vcserr.ErrNotConflicted.New(p)
	}

	_, hasChange, err := ws.State.GetLocalChange(p)
	if err != nil {
		return err
	}
	if !hasChange {
		_, root, err := headRoot(ctx, ws, conn)
		if err != nil {
			return err
		}
		_, inTree, err := tree.FindFileHash(ctx, conn.Trees, root, rp.RelativePath)
		if err != nil {
			return err
		}

		ch := workspace.LocalChange{RelativePath: rp.RelativePath}
		switch {
		case ws.Exists(rp.RelativePath) && inTree:
			ch.ChangeType = vcsdb.Edit
		case ws.Exists(rp.RelativePath):
			ch.ChangeType = vcsdb.Add
		case inTree:
			ch.ChangeType = vcsdb.Delete
		}
		if ch.ChangeType != 0 {
			if err := ws.State.PutLocalChange(ch); err != nil {
				return err
			}
		}
	}

	logrus.Debugf("resolved %s (base %s, theirs %s)", rp.RelativePath, rp.BaseCommitID, rp.TheirsCommitID)
	return ws.State.DeleteResolvePending(p)
}

// FileAtCommit returns the contents of |relativePath| in commit |commitID|,
// for tools that resolve conflicts between the base and theirs versions.
func FileAtCommit(ctx context.Context, conn *env.Connection, commitID, relativePath string) ([]byte, bool, error) {
	cm, err := conn.Index.GetCommit(ctx, commitID)
	if err != nil {
		return nil, false, err
	}
	h, ok, err := tree.FindFileHash(ctx, conn.Trees, cm.RootHash, relativePath)
	if err != nil || !ok {
		return nil, false, err
	}
	data, err := downloadBlob(ctx, conn.Blobs, h)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}
