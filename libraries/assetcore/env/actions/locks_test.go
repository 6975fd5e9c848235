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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dolthub/assetvcs/libraries/assetcore/vcsdb"
	"github.com/dolthub/assetvcs/libraries/assetcore/vcserr"
	"github.com/dolthub/assetvcs/libraries/assetcore/workspace"
)

func conflictOn(p string) workspace.ResolvePending {
	return workspace.ResolvePending{RelativePath: p, BaseCommitID: "base", TheirsCommitID: "theirs"}
}

func TestLocks(t *testing.T) {
	ctx := context.Background()
	tr := newTestRepository(t)
	tw1 := tr.newWorkspace("/ws1", "ws-1")
	tw2 := tr.newWorkspace("/ws2", "ws-2")

	lock, err := LockFile(ctx, tw1.ws, tw1.conn, "Art/Hero.png")
	require.NoError(t, err)
	assert.Equal(t, "ws-1", lock.WorkspaceID)
	assert.Equal(t, vcsdb.DefaultBranch, lock.BranchName)

	again, err := LockFile(ctx, tw1.ws, tw1.conn, "art/hero.png")
	require.NoError(t, err)
	assert.Equal(t, lock, again)

	_, err = LockFile(ctx, tw2.ws, tw2.conn, "art/HERO.png")
	assert.True(t, vcserr.Is(err, vcserr.ErrPathLocked))
	assert.True(t, vcserr.Is(UnlockFile(ctx, tw2.ws, tw2.conn, "Art/Hero.png"), vcserr.ErrPathLocked))

	b, _, err := currentBranch(ctx, tw1.ws, tw1.conn)
	require.NoError(t, err)
	assert.NoError(t, AssertNotLocked(ctx, tw1.ws, tw1.conn, b, "art/hero.png"))
	assert.True(t, vcserr.Is(AssertNotLocked(ctx, tw2.ws, tw2.conn, b, "art/hero.png"), vcserr.ErrPathLocked))
	assert.NoError(t, AssertNotLocked(ctx, tw2.ws, tw2.conn, b, "other.png"))

	locks, err := ListLocks(ctx, tw2.ws, tw2.conn)
	require.NoError(t, err)
	require.Len(t, locks, 1)
	assert.Equal(t, "ws-1", locks[0].WorkspaceID)

	require.NoError(t, UnlockFile(ctx, tw1.ws, tw1.conn, "art/hero.png"))
	locks, err = ListLocks(ctx, tw1.ws, tw1.conn)
	require.NoError(t, err)
	assert.Empty(t, locks)
	assert.True(t, vcserr.Is(UnlockFile(ctx, tw1.ws, tw1.conn, "art/hero.png"), vcserr.ErrLockNotFound))
}

func TestLocksAreSharedByBranchesOfADomain(t *testing.T) {
	ctx := context.Background()
	tr := newTestRepository(t)
	tw1 := tr.newWorkspace("/ws1", "ws-1")
	tw2 := tr.newWorkspace("/ws2", "ws-2")

	_, err := LockFile(ctx, tw2.ws, tw2.conn, "a.txt")
	require.NoError(t, err)

	feature, err := CreateBranch(ctx, tw1.ws, tw1.conn, "feature")
	require.NoError(t, err)
	trunk, err := tw1.conn.Index.GetBranch(ctx, vcsdb.DefaultBranch)
	require.NoError(t, err)
	assert.Equal(t, trunk.LockDomainID, feature.LockDomainID)

	require.NoError(t, tw1.ws.WriteFile("a.txt", []byte("a"), false))
	_, err = AddFile(ctx, tw1.ws, tw1.conn, "a.txt")
	assert.True(t, vcserr.Is(err, vcserr.ErrPathLocked))

	// the lock of another branch in the same domain is not owned either
	_, err = LockFile(ctx, tw1.ws, tw1.conn, "b.txt")
	require.NoError(t, err)
	b, err := tw1.conn.Index.GetBranch(ctx, vcsdb.DefaultBranch)
	require.NoError(t, err)
	assert.True(t, vcserr.Is(AssertNotLocked(ctx, tw1.ws, tw1.conn, b, "b.txt"), vcserr.ErrPathLocked))
}
