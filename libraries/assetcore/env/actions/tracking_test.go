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
)

func TestTrackingErrors(t *testing.T) {
	ctx := context.Background()
	tw := newTestRepository(t).newWorkspace("/ws", "ws-1")

	_, err := AddFile(ctx, tw.ws, tw.conn, "missing.txt")
	assert.True(t, vcserr.Is(err, vcserr.ErrFileNotFound))

	_, err = EditFile(ctx, tw.ws, tw.conn, "missing.txt")
	assert.True(t, vcserr.Is(err, vcserr.ErrNotInTree))

	_, err = DeleteFile(ctx, tw.ws, tw.conn, "missing.txt")
	assert.True(t, vcserr.Is(err, vcserr.ErrNotInTree))

	tw.add("a.txt", "a")
	_, err = AddFile(ctx, tw.ws, tw.conn, "A.TXT")
	assert.True(t, vcserr.Is(err, vcserr.ErrAlreadyTracked))

	err = RevertFile(ctx, tw.ws, tw.conn, "other.txt")
	assert.True(t, vcserr.Is(err, vcserr.ErrNotTracked))

	_, err = AddFile(ctx, tw.ws, tw.conn, ".assetvcs/workspace.json")
	assert.Equal(t, vcserr.InvalidArgument, vcserr.KindOf(err))
	_, err = AddFile(ctx, tw.ws, tw.conn, "../outside.txt")
	assert.Equal(t, vcserr.InvalidArgument, vcserr.KindOf(err))
}

func TestAddOfCommittedPathIsEdit(t *testing.T) {
	ctx := context.Background()
	tw := newTestRepository(t).newWorkspace("/ws", "ws-1")
	tw.add("a.txt", "v1")
	tw.commit("one")

	require.NoError(t, tw.ws.WriteFile("a.txt", []byte("v2"), false))
	ch, err := AddFile(ctx, tw.ws, tw.conn, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, vcsdb.Edit, ch.ChangeType)
}

func TestEditDeleteRevert(t *testing.T) {
	ctx := context.Background()
	tw := newTestRepository(t).newWorkspace("/ws", "ws-1")
	tw.add("dir/a.txt", "v1")
	tw.commit("one")
	assert.False(t, tw.writable("dir/a.txt"))

	tw.edit("dir/a.txt", "v2")
	assert.True(t, tw.writable("dir/a.txt"))
	changes, err := LocalChanges(tw.ws)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, vcsdb.Edit, changes[0].ChangeType)

	require.NoError(t, RevertFile(ctx, tw.ws, tw.conn, "dir/a.txt"))
	assert.Equal(t, "v1", tw.read("dir/a.txt"))
	assert.False(t, tw.writable("dir/a.txt"))

	ch, err := DeleteFile(ctx, tw.ws, tw.conn, "dir/a.txt")
	require.NoError(t, err)
	assert.Equal(t, vcsdb.Delete, ch.ChangeType)
	assert.False(t, tw.ws.Exists("dir/a.txt"))

	require.NoError(t, RevertFile(ctx, tw.ws, tw.conn, "dir/a.txt"))
	assert.Equal(t, "v1", tw.read("dir/a.txt"))

	tw.add("new.txt", "new")
	require.NoError(t, RevertFile(ctx, tw.ws, tw.conn, "new.txt"))
	assert.Equal(t, "new", tw.read("new.txt"))

	changes, err = LocalChanges(tw.ws)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestDeleteIsCommitted(t *testing.T) {
	ctx := context.Background()
	tw := newTestRepository(t).newWorkspace("/ws", "ws-1")
	tw.add("a.txt", "a")
	tw.add("b.txt", "b")
	tw.commit("one")

	_, err := DeleteFile(ctx, tw.ws, tw.conn, "a.txt")
	require.NoError(t, err)
	cm := tw.commit("delete a")
	require.Len(t, cm.Changes, 1)
	assert.True(t, cm.Changes[0].Hash.IsEmpty())

	data, ok, err := FileAtCommit(ctx, tw.conn, cm.ID, "b.txt")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b", string(data))
	_, ok, err = FileAtCommit(ctx, tw.conn, cm.ID, "a.txt")
	require.NoError(t, err)
	assert.False(t, ok)
}
