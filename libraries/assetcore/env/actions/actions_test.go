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

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dolthub/assetvcs/libraries/assetcore/env"
	"github.com/dolthub/assetvcs/libraries/assetcore/index"
	"github.com/dolthub/assetvcs/libraries/assetcore/vcsdb"
	"github.com/dolthub/assetvcs/libraries/assetcore/workspace"
	"github.com/dolthub/assetvcs/libraries/utils/filesys"
)

const testRepo = "game"

// testRepository is a repository in a private mem index and blob store,
// along with a filesystem to create workspaces in.
type testRepository struct {
	t        *testing.T
	fs       *filesys.InMemFS
	indexURL string
	blobURL  string
	root     *vcsdb.Commit
}

func newTestRepository(t *testing.T) *testRepository {
	ctx := context.Background()
	name := "actions-" + uuid.NewString()
	tr := &testRepository{
		t:        t,
		fs:       filesys.EmptyInMemFS("/"),
		indexURL: "mem://" + name,
		blobURL:  "mem://" + name,
	}

	ri, err := index.Open(ctx, tr.indexURL)
	require.NoError(t, err)
	_, tr.root, err = InitRepository(ctx, ri, testRepo, "tester")
	require.NoError(t, err)
	return tr
}

type testWorkspace struct {
	*testRepository
	ws   *workspace.Workspace
	conn *env.Connection
}

func (tr *testRepository) newWorkspace(root, id string) *testWorkspace {
	spec := workspace.Spec{
		IndexURL:    tr.indexURL,
		BlobURL:     tr.blobURL,
		Repository:  testRepo,
		WorkspaceID: id,
		Owner:       id + "-owner",
	}
	ws, conn, err := InitWorkspace(context.Background(), tr.fs, root, spec, vcsdb.DefaultBranch)
	require.NoError(tr.t, err)
	tr.t.Cleanup(func() {
		ws.Close()
		conn.Close()
	})
	return &testWorkspace{testRepository: tr, ws: ws, conn: conn}
}

func (tw *testWorkspace) add(p, contents string) {
	require.NoError(tw.t, tw.ws.WriteFile(p, []byte(contents), false))
	_, err := AddFile(context.Background(), tw.ws, tw.conn, p)
	require.NoError(tw.t, err)
}

func (tw *testWorkspace) edit(p, contents string) {
	_, err := EditFile(context.Background(), tw.ws, tw.conn, p)
	require.NoError(tw.t, err)
	require.NoError(tw.t, tw.ws.WriteFile(p, []byte(contents), false))
}

func (tw *testWorkspace) commit(msg string) *vcsdb.Commit {
	cm, err := CommitLocalChanges(context.Background(), tw.ws, tw.conn, CommitOptions{Message: msg})
	require.NoError(tw.t, err)
	return cm
}

func (tw *testWorkspace) read(p string) string {
	data, err := tw.ws.ReadFile(p)
	require.NoError(tw.t, err)
	return string(data)
}

func (tw *testWorkspace) writable(p string) bool {
	w, err := tw.ws.IsWritable(p)
	require.NoError(tw.t, err)
	return w
}

func (tw *testWorkspace) head() (string, string) {
	b, c, err := tw.ws.Head()
	require.NoError(tw.t, err)
	return b, c
}

func (tw *testWorkspace) branchHead(name string) string {
	b, err := tw.conn.Index.GetBranch(context.Background(), name)
	require.NoError(tw.t, err)
	return b.Head
}

func TestInitRepository(t *testing.T) {
	tr := newTestRepository(t)
	tw := tr.newWorkspace("/ws", "ws-1")

	assert.True(t, tr.root.IsRoot())
	assert.Equal(t, tr.root.ID, tw.branchHead(vcsdb.DefaultBranch))

	branch, commit := tw.head()
	assert.Equal(t, vcsdb.DefaultBranch, branch)
	assert.Equal(t, tr.root.ID, commit)

	branches, err := ListBranches(context.Background(), tw.conn)
	require.NoError(t, err)
	require.Len(t, branches, 1)
	assert.NotEmpty(t, branches[0].LockDomainID)
}

func TestInitWorkspaceChecksOutHead(t *testing.T) {
	tr := newTestRepository(t)
	tw1 := tr.newWorkspace("/ws1", "ws-1")
	tw1.add("a.txt", "alpha")
	tw1.add("art/hero/hero.png", "hero")
	cm := tw1.commit("first")

	tw2 := tr.newWorkspace("/ws2", "ws-2")
	_, commit := tw2.head()
	assert.Equal(t, cm.ID, commit)
	assert.Equal(t, "alpha", tw2.read("a.txt"))
	assert.Equal(t, "hero", tw2.read("art/hero/hero.png"))
	assert.False(t, tw2.writable("a.txt"))
	assert.False(t, tw2.writable("art/hero/hero.png"))
}

func TestStatusAndLog(t *testing.T) {
	ctx := context.Background()
	tr := newTestRepository(t)
	tw := tr.newWorkspace("/ws", "ws-1")

	tw.add("a.txt", "a")
	c1 := tw.commit("one")
	tw.add("b.txt", "b")
	c2 := tw.commit("two")

	history, err := Log(ctx, tw.ws, tw.conn, 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, []string{c2.ID, c1.ID, tr.root.ID}, []string{history[0].ID, history[1].ID, history[2].ID})

	history, err = Log(ctx, tw.ws, tw.conn, 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "two", history[0].Message)
	assert.Equal(t, "ws-1-owner", history[0].Owner)

	tw.add("c.txt", "c")
	require.NoError(t, tw.ws.WriteFile("notes/todo.txt", []byte("todo"), false))

	st, err := GetStatus(ctx, tw.ws, tw.conn)
	require.NoError(t, err)
	assert.True(t, st.UpToDate())
	assert.Equal(t, vcsdb.DefaultBranch, st.Branch)
	assert.Equal(t, []workspace.LocalChange{{RelativePath: "c.txt", ChangeType: vcsdb.Add}}, st.Changes)
	assert.Equal(t, []string{"notes/todo.txt"}, st.Untracked)
	assert.Empty(t, st.Conflicts)
	assert.Empty(t, st.Merges)
}
