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

func TestSync(t *testing.T) {
	ctx := context.Background()
	tr := newTestRepository(t)
	tw1 := tr.newWorkspace("/ws1", "ws-1")
	tw2 := tr.newWorkspace("/ws2", "ws-2")

	tw1.add("a.txt", "v1")
	tw1.add("b.txt", "b")
	c1 := tw1.commit("one")

	res, err := Sync(ctx, tw2.ws, tw2.conn)
	require.NoError(t, err)
	assert.Equal(t, tr.root.ID, res.From)
	assert.Equal(t, c1.ID, res.To)
	assert.Equal(t, []string{"a.txt", "b.txt"}, res.Updated)
	assert.Equal(t, "v1", tw2.read("a.txt"))
	assert.False(t, tw2.writable("a.txt"))

	res, err = Sync(ctx, tw2.ws, tw2.conn)
	require.NoError(t, err)
	assert.Empty(t, res.Updated)

	tw1.edit("a.txt", "v2")
	_, err = DeleteFile(ctx, tw1.ws, tw1.conn, "b.txt")
	require.NoError(t, err)
	c2 := tw1.commit("two")

	_, err = Sync(ctx, tw2.ws, tw2.conn)
	require.NoError(t, err)
	assert.Equal(t, "v2", tw2.read("a.txt"))
	assert.False(t, tw2.ws.Exists("b.txt"))

	// and back again
	_, err = SyncTo(ctx, tw2.ws, tw2.conn, c1.ID)
	require.NoError(t, err)
	assert.Equal(t, "v1", tw2.read("a.txt"))
	assert.Equal(t, "b", tw2.read("b.txt"))
	_, commit := tw2.head()
	assert.Equal(t, c1.ID, commit)

	_, err = SyncTo(ctx, tw2.ws, tw2.conn, c2.ID)
	require.NoError(t, err)
}

func TestSyncKeepsLocalChanges(t *testing.T) {
	ctx := context.Background()
	tr := newTestRepository(t)
	tw1 := tr.newWorkspace("/ws1", "ws-1")
	tw1.add("a.txt", "v1")
	c1 := tw1.commit("one")

	tw2 := tr.newWorkspace("/ws2", "ws-2")
	tw2.edit("a.txt", "local")

	tw1.edit("a.txt", "v2")
	c2 := tw1.commit("two")

	res, err := Sync(ctx, tw2.ws, tw2.conn)
	require.NoError(t, err)
	expected := workspace.ResolvePending{RelativePath: "a.txt", BaseCommitID: c1.ID, TheirsCommitID: c2.ID}
	assert.Equal(t, []workspace.ResolvePending{expected}, res.Conflicts)
	assert.Equal(t, "local", tw2.read("a.txt"))

	_, commit := tw2.head()
	assert.Equal(t, c2.ID, commit)

	require.NoError(t, MarkResolved(ctx, tw2.ws, tw2.conn, "a.txt"))
	cm := tw2.commit("keep local")
	assert.Equal(t, []string{c2.ID}, cm.Parents)
}

func TestSyncSkipsWritableFiles(t *testing.T) {
	ctx := context.Background()
	tr := newTestRepository(t)
	tw1 := tr.newWorkspace("/ws1", "ws-1")
	tw1.add("a.txt", "v1")
	tw1.add("b.txt", "b1")
	tw1.commit("one")

	tw2 := tr.newWorkspace("/ws2", "ws-2")
	require.NoError(t, tw2.ws.SetReadOnly("a.txt", false))

	tw1.edit("a.txt", "v2")
	tw1.edit("b.txt", "b2")
	c2 := tw1.commit("two")

	res, err := Sync(ctx, tw2.ws, tw2.conn)
	assert.True(t, vcserr.Is(err, vcserr.ErrSyncIncomplete))
	assert.Contains(t, err.Error(), "a.txt")
	assert.Equal(t, []string{"b.txt"}, res.Updated)
	assert.Equal(t, "v1", tw2.read("a.txt"))
	assert.Equal(t, "b2", tw2.read("b.txt"))

	_, commit := tw2.head()
	assert.Equal(t, c2.ID, commit)
}

func TestSwitchBranch(t *testing.T) {
	ctx := context.Background()
	tw := newTestRepository(t).newWorkspace("/ws", "ws-1")

	_, err := CreateBranch(ctx, tw.ws, tw.conn, "feature")
	require.NoError(t, err)
	_, err = CreateBranch(ctx, tw.ws, tw.conn, "feature")
	assert.True(t, vcserr.Is(err, vcserr.ErrBranchAlreadyExists))
	_, err = CreateBranch(ctx, tw.ws, tw.conn, "bad/name")
	assert.Equal(t, vcserr.InvalidArgument, vcserr.KindOf(err))

	tw.add("f.txt", "f")
	_, err = SwitchBranch(ctx, tw.ws, tw.conn, vcsdb.DefaultBranch)
	assert.True(t, vcserr.Is(err, vcserr.ErrWorkspaceDirty))

	tw.commit("feature file")
	switchTo(t, tw, vcsdb.DefaultBranch)
	branch, _ := tw.head()
	assert.Equal(t, vcsdb.DefaultBranch, branch)
	assert.False(t, tw.ws.Exists("f.txt"))

	switchTo(t, tw, "feature")
	assert.Equal(t, "f", tw.read("f.txt"))

	branches, err := ListBranches(ctx, tw.conn)
	require.NoError(t, err)
	assert.Len(t, branches, 2)

	_, err = SwitchBranch(ctx, tw.ws, tw.conn, "missing")
	assert.True(t, vcserr.Is(err, vcserr.ErrBranchNotFound))
}
