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
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dolthub/assetvcs/libraries/assetcore/env"
	"github.com/dolthub/assetvcs/libraries/assetcore/tree"
	"github.com/dolthub/assetvcs/libraries/assetcore/vcsdb"
	"github.com/dolthub/assetvcs/libraries/assetcore/vcserr"
	"github.com/dolthub/assetvcs/libraries/assetcore/workspace"
	"github.com/dolthub/assetvcs/store/blobstore"
	"github.com/dolthub/assetvcs/store/hash"
)

type CommitOptions struct {
	// ID of the new commit. A random UUID is used when empty.
	ID string
	// Owner defaults to the owner in the workspace spec.
	Owner   string
	Message string
	// ReleaseLocks releases this workspace's locks on the committed paths once
	// the commit lands.
	ReleaseLocks bool
	// Now overrides the commit timestamp.
	Now time.Time
}

// CommitLocalChanges records the local changes and pending merges of the
// workspace as a new commit on the current branch.
//
// The commit is refused if the workspace is behind its branch, if conflicts
// remain unresolved, or if any changed path is locked by another workspace.
// The branch is advanced with a compare-and-swap on its head, so a commit that
// lands on the branch concurrently fails this one with StaleBranch.
func CommitLocalChanges(ctx context.Context, ws *workspace.Workspace, conn *env.Connection, opts CommitOptions) (*vcsdb.Commit, error) {
	branch, wsCommit, err := currentBranch(ctx, ws, conn)
	if err != nil {
		return nil, err
	}
	if branch.Head != wsCommit {
		return nil, vcserr.ErrWorkspaceNotUpToDate.New(wsCommit, branch.Name, branch.Head)
	}

	changes, err := ws.State.LocalChanges()
	if err != nil {
		return nil, err
	}
	merges, err := ws.State.PendingMerges()
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 && len(merges) == 0 {
		return nil, vcserr.ErrEmptyCommit.New()
	}

	unresolved, err := ws.State.ResolvesPending()
	if err != nil {
		return nil, err
	}
	if len(unresolved) > 0 {
		paths := make([]string, len(unresolved))
		for i, rp := range unresolved {
			paths[i] = rp.RelativePath
		}
		return nil, vcserr.ErrUnresolvedConflicts.New(formatList(paths))
	}

	for _, ch := range changes {
		if err := AssertNotLocked(ctx, ws, conn, branch, ch.RelativePath); err != nil {
			return nil, err
		}
	}

	hashed, uploaded, err := uploadChanges(ctx, ws, conn.Blobs, changes)
	if err != nil {
		return nil, err
	}

	base, err := conn.Index.GetCommit(ctx, wsCommit)
	if err != nil {
		return nil, err
	}
	root, err := tree.UpdateTreeFromChanges(ctx, conn.Trees, base.RootHash, hashed)
	if err != nil {
		return nil, err
	}

	parents := []string{base.ID}
	for _, pm := range merges {
		if !contains(parents, pm.Head) {
			parents = append(parents, pm.Head)
		}
	}

	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	owner := opts.Owner
	if owner == "" {
		owner = ws.Spec.Owner
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	cm, err := vcsdb.NewCommit(id, owner, opts.Message, hashed, root, parents, now)
	if err != nil {
		return nil, err
	}
	head, err := conn.Index.CommitToBranch(ctx, cm, branch)
	if err != nil {
		return nil, err
	}

	if err := ws.State.CompleteCommit(branch.Name, head); err != nil {
		return nil, err
	}

	for _, ch := range hashed {
		if ch.ChangeType == vcsdb.Delete {
			continue
		}
		if err := ws.SetReadOnly(ch.RelativePath, true); err != nil {
			logrus.Warnf("making %s read only: %v", ch.RelativePath, err)
		}
	}

	if opts.ReleaseLocks {
		for _, ch := range hashed {
			err := unlockOwned(ctx, ws, conn, branch, ch.RelativePath)
			if err != nil && !vcserr.Is(err, vcserr.ErrLockNotFound) && !vcserr.Is(err, vcserr.ErrPathLocked) {
				logrus.Warnf("releasing lock on %s: %v", ch.RelativePath, err)
			}
		}
	}

	logrus.Infof("committed %s to %s: %d changes, %s uploaded", head, branch.Name, len(hashed), humanize.Bytes(uploaded))
	return cm, nil
}

// uploadChanges hashes the edited and added files and stores the contents the
// blob store does not have yet. It returns the changes in the order given
// along with the number of bytes uploaded.
func uploadChanges(ctx context.Context, ws *workspace.Workspace, bs blobstore.Blobstore, changes []workspace.LocalChange) ([]vcsdb.HashedChange, uint64, error) {
	hashed := make([]vcsdb.HashedChange, len(changes))
	var uploaded uint64

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(transferConcurrency)
	for i, ch := range changes {
		i, ch := i, ch
		hashed[i] = vcsdb.HashedChange{RelativePath: ch.RelativePath, ChangeType: ch.ChangeType}
		if ch.ChangeType == vcsdb.Delete {
			continue
		}

		eg.Go(func() error {
			data, err := ws.ReadFile(ch.RelativePath)
			if err != nil {
				return err
			}
			h := hash.Of(data)
			hashed[i].Hash = h

			exists, err := bs.Exists(egCtx, blobKey(h))
			if err != nil {
				return vcserr.Backendf(err, "checking blob %s", h.String())
			}
			if exists {
				return nil
			}
			if err := blobstore.PutBytes(egCtx, bs, blobKey(h), data); err != nil {
				return vcserr.Backendf(err, "uploading %s", ch.RelativePath)
			}
			atomic.AddUint64(&uploaded, uint64(len(data)))
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, 0, err
	}
	return hashed, uploaded, nil
}

func contains(ids []string, id string) bool {
	for _, s := range ids {
		if s == id {
			return true
		}
	}
	return false
}

