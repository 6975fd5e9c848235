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

// LockFile claims |relativePath| for this workspace in the lock domain of the
// current branch. Locking a path the workspace already holds is a no-op.
func LockFile(ctx context.Context, ws *workspace.Workspace, conn *env.Connection, relativePath string) (vcsdb.Lock, error) {
	p, err := workspace.CleanPath(relativePath)
	if err != nil {
		return vcsdb.Lock{}, err
	}
	branch, _, err := currentBranch(ctx, ws, conn)
	if err != nil {
		return vcsdb.Lock{}, err
	}

	lock := vcsdb.Lock{
		LockDomainID: branch.LockDomainID,
		RelativePath: p,
		WorkspaceID:  ws.Spec.WorkspaceID,
		BranchName:   branch.Name,
	}

	err = conn.Index.Lock(ctx, lock)
	if vcserr.Is(err, vcserr.ErrLockAlreadyExists) {
		existing, gerr := conn.Index.GetLock(ctx, branch.LockDomainID, p)
		if gerr != nil {
			return vcsdb.Lock{}, gerr
		}
		if existing.OwnedBy(ws.Spec.WorkspaceID, branch.Name) {
			return existing, nil
		}
		return vcsdb.Lock{}, vcserr.ErrPathLocked.New(p, existing.BranchName, existing.WorkspaceID)
	} else if err != nil {
		return vcsdb.Lock{}, err
	}

	logrus.Debugf("locked %s in domain %s", p, branch.LockDomainID)
	return lock, nil
}

// UnlockFile releases a lock held by this workspace. Locks held by others
// cannot be released.
func UnlockFile(ctx context.Context, ws *workspace.Workspace, conn *env.Connection, relativePath string) error {
	p, err := workspace.CleanPath(relativePath)
	if err != nil {
		return err
	}
	branch, _, err := currentBranch(ctx, ws, conn)
	if err != nil {
		return err
	}
	return unlockOwned(ctx, ws, conn, branch, p)
}

func unlockOwned(ctx context.Context, ws *workspace.Workspace, conn *env.Connection, branch vcsdb.Branch, p string) error {
	lock, err := conn.Index.GetLock(ctx, branch.LockDomainID, p)
	if err != nil {
		return err
	}
	if !lock.OwnedBy(ws.Spec.WorkspaceID, branch.Name) {
		return vcserr.ErrPathLocked.New(p, lock.BranchName, lock.WorkspaceID)
	}
	if err := conn.Index.Unlock(ctx, branch.LockDomainID, p); err != nil {
		return err
	}
	logrus.Debugf("unlocked %s in domain %s", p, branch.LockDomainID)
	return nil
}

// ListLocks returns the locks of the current branch's lock domain.
func ListLocks(ctx context.Context, ws *workspace.Workspace, conn *env.Connection) ([]vcsdb.Lock, error) {
	branch, _, err := currentBranch(ctx, ws, conn)
	if err != nil {
		return nil, err
	}
	return conn.Index.ListLocks(ctx, index.ListLocksQuery{LockDomainIDs: []string{branch.LockDomainID}})
}

// AssertNotLocked fails with PathLocked if |relativePath| is locked in the
// domain of |branch| by anyone other than this workspace working on |branch|.
func AssertNotLocked(ctx context.Context, ws *workspace.Workspace, conn *env.Connection, branch vcsdb.Branch, relativePath string) error {
	lock, err := conn.Index.GetLock(ctx, branch.LockDomainID, relativePath)
	if vcserr.Is(err, vcserr.ErrLockNotFound) {
		return nil
	} else if err != nil {
		return err
	}

	if lock.OwnedBy(ws.Spec.WorkspaceID, branch.Name) {
		return nil
	}
	return vcserr.ErrPathLocked.New(relativePath, lock.BranchName, lock.WorkspaceID)
}
