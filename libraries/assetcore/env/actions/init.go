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
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dolthub/assetvcs/libraries/assetcore/env"
	"github.com/dolthub/assetvcs/libraries/assetcore/index"
	"github.com/dolthub/assetvcs/libraries/assetcore/tree"
	"github.com/dolthub/assetvcs/libraries/assetcore/vcsdb"
	"github.com/dolthub/assetvcs/libraries/assetcore/workspace"
	"github.com/dolthub/assetvcs/libraries/utils/filesys"
)

// InitRepository creates repository |name| with a root commit holding an
// empty tree and a main branch pointing at it.
func InitRepository(ctx context.Context, ri index.RepositoryIndex, name, owner string) (index.Index, *vcsdb.Commit, error) {
	idx, err := ri.CreateRepository(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	root, err := idx.SaveTree(ctx, tree.NewTree())
	if err != nil {
		return nil, nil, err
	}
	cm, err := vcsdb.NewCommit(uuid.NewString(), owner, "initial commit", nil, root, nil, time.Now())
	if err != nil {
		return nil, nil, err
	}

	trunk, err := vcsdb.NewBranch(vcsdb.DefaultBranch, "", uuid.NewString())
	if err != nil {
		return nil, nil, err
	}
	if err := idx.InsertBranch(ctx, trunk); err != nil {
		return nil, nil, err
	}
	if _, err := idx.CommitToBranch(ctx, cm, trunk); err != nil {
		return nil, nil, err
	}

	logrus.Infof("created repository %s with root commit %s", name, cm.ID)
	return idx, cm, nil
}

// InitWorkspace creates a workspace at |root| on branch |branchName| of the
// repository named by |spec| and checks out the branch head.
func InitWorkspace(ctx context.Context, fs filesys.Filesys, root string, spec workspace.Spec, branchName string) (*workspace.Workspace, *env.Connection, error) {
	if branchName == "" {
		branchName = vcsdb.DefaultBranch
	}
	conn, err := env.Connect(ctx, spec)
	if err != nil {
		return nil, nil, err
	}

	b, err := conn.Index.GetBranch(ctx, branchName)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	head, err := conn.Index.GetCommit(ctx, b.Head)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}

	ws, err := workspace.Create(fs, root, spec, b.Name, b.Head)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}

	n, err := checkout(ctx, ws, conn, head.RootHash)
	if err != nil {
		ws.Close()
		conn.Close()
		return nil, nil, err
	}

	logrus.Infof("checked out %d files of %s at %s", n, b.Name, b.Head)
	return ws, conn, nil
}
