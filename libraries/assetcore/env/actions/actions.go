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

// Package actions implements the operations a workspace performs against its
// repository: tracking files, locking, committing, merging and syncing. Every
// action takes the workspace session and its connection explicitly.
package actions

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dolthub/assetvcs/libraries/assetcore/env"
	"github.com/dolthub/assetvcs/libraries/assetcore/tree"
	"github.com/dolthub/assetvcs/libraries/assetcore/vcsdb"
	"github.com/dolthub/assetvcs/libraries/assetcore/vcserr"
	"github.com/dolthub/assetvcs/libraries/assetcore/workspace"
	"github.com/dolthub/assetvcs/store/blobstore"
	"github.com/dolthub/assetvcs/store/hash"
)

// transferConcurrency bounds the parallel blob uploads and downloads of one action.
const transferConcurrency = 8

// findMergeBase chooses the common ancestor a three-way merge diffs against.
var findMergeBase vcsdb.AncestorFinder = vcsdb.FindLatestCommonAncestor

// currentBranch returns the index's view of the branch the workspace is on,
// along with the commit the workspace is at.
func currentBranch(ctx context.Context, ws *workspace.Workspace, conn *env.Connection) (vcsdb.Branch, string, error) {
	name, commit, err := ws.Head()
	if err != nil {
		return vcsdb.Branch{}, "", err
	}
	b, err := conn.Index.GetBranch(ctx, name)
	if err != nil {
		return vcsdb.Branch{}, "", err
	}
	return b, commit, nil
}

// headRoot returns the root tree hash of the commit the workspace is at.
func headRoot(ctx context.Context, ws *workspace.Workspace, conn *env.Connection) (string, hash.Hash, error) {
	_, commitID, err := ws.Head()
	if err != nil {
		return "", hash.Hash{}, err
	}
	cm, err := conn.Index.GetCommit(ctx, commitID)
	if err != nil {
		return "", hash.Hash{}, err
	}
	return commitID, cm.RootHash, nil
}

func blobKey(h hash.Hash) string {
	return h.String()
}

// downloadBlob fetches the contents of |h| and checks that they hash to |h|.
func downloadBlob(ctx context.Context, bs blobstore.Blobstore, h hash.Hash) ([]byte, error) {
	data, err := blobstore.GetBytes(ctx, bs, blobKey(h))
	if blobstore.IsNotFoundError(err) {
		return nil, vcserr.ErrBlobNotFound.New(h.String())
	} else if err != nil {
		return nil, vcserr.Backendf(err, "downloading blob %s", h.String())
	}

	if got := hash.Of(data); got != h {
		return nil, vcserr.ErrCorruptedTree.New(fmt.Sprintf("blob %s has contents hashing to %s", h.String(), got.String()))
	}
	return data, nil
}

// materialize writes the contents of |h| to |relativePath| and leaves the file read only.
func materialize(ctx context.Context, ws *workspace.Workspace, conn *env.Connection, relativePath string, h hash.Hash) error {
	data, err := downloadBlob(ctx, conn.Blobs, h)
	if err != nil {
		return err
	}
	return ws.WriteFile(relativePath, data, true)
}

// checkout writes every file of the snapshot |root| to the workspace.
func checkout(ctx context.Context, ws *workspace.Workspace, conn *env.Connection, root hash.Hash) (int, error) {
	var files []tree.FileDiff
	err := tree.Walk(ctx, conn.Trees, root, func(relativePath string, node tree.TreeNode) error {
		files = append(files, tree.FileDiff{RelativePath: relativePath, To: node.Hash})
		return nil
	})
	if err != nil {
		return 0, err
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(transferConcurrency)
	for _, f := range files {
		f := f
		eg.Go(func() error {
			return materialize(egCtx, ws, conn, f.RelativePath, f.To)
		})
	}
	return len(files), eg.Wait()
}

func formatList(lines []string) string {
	var sb strings.Builder
	for i, l := range lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("  ")
		sb.WriteString(l)
	}
	return sb.String()
}

func changeKeys(changes []workspace.LocalChange) map[string]workspace.LocalChange {
	m := make(map[string]workspace.LocalChange, len(changes))
	for _, ch := range changes {
		m[vcsdb.LockKey(ch.RelativePath)] = ch
	}
	return m
}
