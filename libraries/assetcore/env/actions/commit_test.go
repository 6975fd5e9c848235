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
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dolthub/assetvcs/libraries/assetcore/index"
	"github.com/dolthub/assetvcs/libraries/assetcore/tree"
	"github.com/dolthub/assetvcs/libraries/assetcore/vcsdb"
	"github.com/dolthub/assetvcs/libraries/assetcore/vcserr"
	"github.com/dolthub/assetvcs/store/hash"
)

func TestCommitLocalChanges(t *testing.T) {
	ctx := context.Background()
	tr := newTestRepository(t)
	tw := tr.newWorkspace("/ws", "ws-1")

	_, err := CommitLocalChanges(ctx, tw.ws, tw.conn, CommitOptions{Message: "nothing"})
	assert.True(t, vcserr.Is(err, vcserr.ErrEmptyCommit))

	tw.add("levels/one.map", "one")
	tw.add("readme.txt", "hello")
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cm, err := CommitLocalChanges(ctx, tw.ws, tw.conn, CommitOptions{ID: "c1", Owner: "alice", Message: "first", Now: now})
	require.NoError(t, err)

	assert.Equal(t, "c1", cm.ID)
	assert.Equal(t, "alice", cm.Owner)
	assert.Equal(t, now, cm.Timestamp)
	assert.Equal(t, []string{tr.root.ID}, cm.Parents)
	assert.Equal(t, []vcsdb.HashedChange{
		{RelativePath: "levels/one.map", Hash: hash.Of([]byte("one")), ChangeType: vcsdb.Add},
		{RelativePath: "readme.txt", Hash: hash.Of([]byte("hello")), ChangeType: vcsdb.Add},
	}, cm.Changes)

	h, ok, err := tree.FindFileHash(ctx, tw.conn.Trees, cm.RootHash, "levels/one.map")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, hash.Of([]byte("one")), h)

	exists, err := tw.conn.Blobs.Exists(ctx, hash.Of([]byte("hello")).String())
	require.NoError(t, err)
	assert.True(t, exists)

	assert.Equal(t, "c1", tw.branchHead(vcsdb.DefaultBranch))
	_, commit := tw.head()
	assert.Equal(t, "c1", commit)
	assert.False(t, tw.writable("readme.txt"))

	changes, err := LocalChanges(tw.ws)
	require.NoError(t, err)
	assert.Empty(t, changes)

	stored, err := tw.conn.Index.GetCommit(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, cm.RootHash, stored.RootHash)
}

func TestCommitRequiresUpToDateWorkspace(t *testing.T) {
	ctx := context.Background()
	tr := newTestRepository(t)
	tw1 := tr.newWorkspace("/ws1", "ws-1")
	tw2 := tr.newWorkspace("/ws2", "ws-2")

	tw1.add("a.txt", "a")
	c1 := tw1.commit("from ws1")

	tw2.add("b.txt", "b")
	_, err := CommitLocalChanges(ctx, tw2.ws, tw2.conn, CommitOptions{Message: "from ws2"})
	assert.True(t, vcserr.Is(err, vcserr.ErrWorkspaceNotUpToDate))
	assert.Equal(t, vcserr.Conflict, vcserr.KindOf(err))

	_, err = Sync(ctx, tw2.ws, tw2.conn)
	require.NoError(t, err)
	assert.Equal(t, "a", tw2.read("a.txt"))

	c2 := tw2.commit("from ws2")
	assert.Equal(t, []string{c1.ID}, c2.Parents)
}

func TestCommitDetectsStaleBranch(t *testing.T) {
	ctx := context.Background()
	tr := newTestRepository(t)
	tw := tr.newWorkspace("/ws", "ws-1")
	tw.add("a.txt", "a")

	// the branch moves after the workspace checked it was up to date
	b, err := tw.conn.Index.GetBranch(ctx, vcsdb.DefaultBranch)
	require.NoError(t, err)
	other, err := vcsdb.NewCommit("other", "someone", "concurrent", nil, tr.root.RootHash, []string{b.Head}, time.Now())
	require.NoError(t, err)

	cm, err := vcsdb.NewCommit("mine", "tester", "mine", nil, tr.root.RootHash, []string{b.Head}, time.Now())
	require.NoError(t, err)
	_, err = tw.conn.Index.CommitToBranch(ctx, other, b)
	require.NoError(t, err)
	_, err = tw.conn.Index.CommitToBranch(ctx, cm, b)
	assert.True(t, vcserr.Is(err, vcserr.ErrStaleBranch))

	_, err = CommitLocalChanges(ctx, tw.ws, tw.conn, CommitOptions{Message: "late"})
	assert.True(t, vcserr.Is(err, vcserr.ErrWorkspaceNotUpToDate))
}

func TestCommitRefusesLockedPaths(t *testing.T) {
	ctx := context.Background()
	tr := newTestRepository(t)
	tw1 := tr.newWorkspace("/ws1", "ws-1")
	tw2 := tr.newWorkspace("/ws2", "ws-2")

	tw1.add("a.txt", "a")
	_, err := LockFile(ctx, tw2.ws, tw2.conn, "a.txt")
	require.NoError(t, err)

	_, err = CommitLocalChanges(ctx, tw1.ws, tw1.conn, CommitOptions{Message: "blocked"})
	assert.True(t, vcserr.Is(err, vcserr.ErrPathLocked))
	assert.Contains(t, err.Error(), "ws-2")
	assert.Equal(t, tr.root.ID, tw1.branchHead(vcsdb.DefaultBranch))

	require.NoError(t, UnlockFile(ctx, tw2.ws, tw2.conn, "a.txt"))
	_, err = LockFile(ctx, tw1.ws, tw1.conn, "a.txt")
	require.NoError(t, err)

	_, err = CommitLocalChanges(ctx, tw1.ws, tw1.conn, CommitOptions{Message: "ok", ReleaseLocks: true})
	require.NoError(t, err)

	n, err := tw1.conn.Index.CountLocks(ctx, index.ListLocksQuery{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCommitRefusesUnresolvedConflicts(t *testing.T) {
	ctx := context.Background()
	tw := newTestRepository(t).newWorkspace("/ws", "ws-1")
	tw.add("a.txt", "a")
	require.NoError(t, tw.ws.State.PutResolvePending(conflictOn("a.txt")))

	_, err := CommitLocalChanges(ctx, tw.ws, tw.conn, CommitOptions{Message: "unresolved"})
	assert.True(t, vcserr.Is(err, vcserr.ErrUnresolvedConflicts))
	assert.Contains(t, err.Error(), "a.txt")
}
