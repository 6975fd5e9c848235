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

// Package indextest holds the behavior every index.RepositoryIndex backend must
// share, runnable against any of them.
package indextest

import (
	"context"
	"fmt"
	"sync"
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

// Factory returns a fresh, empty RepositoryIndex for a test.
type Factory func(t *testing.T) index.RepositoryIndex

// RunIndexTests runs the shared RepositoryIndex behavior against the backend
// created by |newRI|.
func RunIndexTests(t *testing.T, newRI Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, ri index.RepositoryIndex)
	}{
		{"Repositories", testRepositories},
		{"Branches", testBranches},
		{"UpdateBranchCAS", testUpdateBranchCAS},
		{"CommitToBranch", testCommitToBranch},
		{"ConcurrentCommits", testConcurrentCommits},
		{"ListCommits", testListCommits},
		{"Trees", testTrees},
		{"Locks", testLocks},
		{"ConcurrentLocks", testConcurrentLocks},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ri := newRI(t)
			t.Cleanup(func() {
				ri.Close()
			})
			test.fn(t, ri)
		})
	}
}

// NewRepo creates |name| in |ri| with an empty root commit on main.
func NewRepo(t *testing.T, ri index.RepositoryIndex, name string) (index.Index, *vcsdb.Commit) {
	ctx := context.Background()
	idx, err := ri.CreateRepository(ctx, name)
	require.NoError(t, err)

	root, err := idx.SaveTree(ctx, tree.NewTree())
	require.NoError(t, err)
	cm, err := vcsdb.NewCommit("root", "tester", "initial commit", nil, root, nil, time.Unix(1700000000, 0))
	require.NoError(t, err)

	require.NoError(t, idx.InsertBranch(ctx, branch(vcsdb.DefaultBranch, "", "domain-1")))
	head, err := idx.CommitToBranch(ctx, cm, branch(vcsdb.DefaultBranch, "", "domain-1"))
	require.NoError(t, err)
	require.Equal(t, "root", head)
	return idx, cm
}

func commitOn(t *testing.T, idx index.Index, branch, id string, parents ...string) *vcsdb.Commit {
	ctx := context.Background()
	b, err := idx.GetBranch(ctx, branch)
	require.NoError(t, err)

	changes := []vcsdb.HashedChange{{RelativePath: id + ".txt", Hash: hash.Of([]byte(id)), ChangeType: vcsdb.Add}}
	cm, err := vcsdb.NewCommit(id, "tester", "commit "+id, changes, tree.EmptyTreeHash, append([]string{b.Head}, parents...), time.Unix(1700000100, 0))
	require.NoError(t, err)
	_, err = idx.CommitToBranch(ctx, cm, b)
	require.NoError(t, err)
	return cm
}

func testRepositories(t *testing.T, ri index.RepositoryIndex) {
	ctx := context.Background()

	_, err := ri.LoadRepository(ctx, "game")
	assert.True(t, vcserr.Is(err, vcserr.ErrRepositoryNotFound))

	_, err = ri.CreateRepository(ctx, "game")
	require.NoError(t, err)
	_, err = ri.CreateRepository(ctx, "art")
	require.NoError(t, err)
	_, err = ri.CreateRepository(ctx, "game")
	assert.True(t, vcserr.Is(err, vcserr.ErrRepositoryAlreadyExists))
	_, err = ri.CreateRepository(ctx, "bad name")
	assert.True(t, vcserr.IsCategory(err, vcserr.InvalidArgument))

	names, err := ri.ListRepositories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"art", "game"}, names)

	idx, err := ri.LoadRepository(ctx, "game")
	require.NoError(t, err)
	assert.Equal(t, "game", idx.RepositoryName())

	require.NoError(t, ri.DestroyRepository(ctx, "game"))
	err = ri.DestroyRepository(ctx, "game")
	assert.True(t, vcserr.Is(err, vcserr.ErrRepositoryNotFound))

	names, err = ri.ListRepositories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"art"}, names)

	idx, err = index.EnsureRepository(ctx, ri, "art")
	require.NoError(t, err)
	assert.Equal(t, "art", idx.RepositoryName())
}

func testBranches(t *testing.T, ri index.RepositoryIndex) {
	ctx := context.Background()
	idx, root := NewRepo(t, ri, "game")

	main, err := idx.GetBranch(ctx, vcsdb.DefaultBranch)
	require.NoError(t, err)
	assert.Equal(t, root.ID, main.Head)
	assert.Equal(t, "domain-1", main.LockDomainID)

	_, err = idx.GetBranch(ctx, "nope")
	assert.True(t, vcserr.Is(err, vcserr.ErrBranchNotFound))

	require.NoError(t, idx.InsertBranch(ctx, branch("feature", root.ID, "domain-1")))
	require.NoError(t, idx.InsertBranch(ctx, branch("release", root.ID, "domain-2")))
	err = idx.InsertBranch(ctx, branch("feature", root.ID, "domain-1"))
	assert.True(t, vcserr.Is(err, vcserr.ErrBranchAlreadyExists))
	err = idx.InsertBranch(ctx, branch("a/b", root.ID, "domain-1"))
	assert.True(t, vcserr.Is(err, vcserr.ErrInvalidBranchName))

	all, err := idx.ListBranches(ctx, index.ListBranchesQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "feature", all[0].Name)
	assert.Equal(t, vcsdb.DefaultBranch, all[1].Name)
	assert.Equal(t, "release", all[2].Name)

	inDomain, err := idx.ListBranches(ctx, index.ListBranchesQuery{LockDomainID: "domain-1"})
	require.NoError(t, err)
	require.Len(t, inDomain, 2)
	assert.Equal(t, "feature", inDomain[0].Name)
	assert.Equal(t, vcsdb.DefaultBranch, inDomain[1].Name)
}

func testUpdateBranchCAS(t *testing.T, ri index.RepositoryIndex) {
	ctx := context.Background()
	idx, root := NewRepo(t, ri, "game")
	require.NoError(t, idx.InsertBranch(ctx, branch("feature", root.ID, "domain-1")))
	c1 := commitOn(t, idx, "feature", "c1")

	main, err := idx.GetBranch(ctx, vcsdb.DefaultBranch)
	require.NoError(t, err)

	advanced := main
	advanced.Head = c1.ID
	require.NoError(t, idx.UpdateBranch(ctx, advanced, root.ID))

	// a second writer still holding the old head loses
	err = idx.UpdateBranch(ctx, advanced, root.ID)
	require.Error(t, err)
	assert.True(t, vcserr.Is(err, vcserr.ErrStaleBranch))
	assert.True(t, vcserr.IsCategory(err, vcserr.Conflict))

	main, err = idx.GetBranch(ctx, vcsdb.DefaultBranch)
	require.NoError(t, err)
	assert.Equal(t, c1.ID, main.Head)

	err = idx.UpdateBranch(ctx, branch("nope", c1.ID, "domain-1"), root.ID)
	assert.True(t, vcserr.Is(err, vcserr.ErrBranchNotFound))
}

func testCommitToBranch(t *testing.T, ri index.RepositoryIndex) {
	ctx := context.Background()
	idx, root := NewRepo(t, ri, "game")

	main, err := idx.GetBranch(ctx, vcsdb.DefaultBranch)
	require.NoError(t, err)

	changes := []vcsdb.HashedChange{
		{RelativePath: "art/hero.png", Hash: hash.Of([]byte("hero")), ChangeType: vcsdb.Add},
		{RelativePath: "old.txt", ChangeType: vcsdb.Delete},
	}
	c1, err := vcsdb.NewCommit("c1", "alice", "add hero", changes, tree.EmptyTreeHash, []string{root.ID}, time.Unix(1700000200, 123000000))
	require.NoError(t, err)

	head, err := idx.CommitToBranch(ctx, c1, main)
	require.NoError(t, err)
	assert.Equal(t, "c1", head)

	got, err := idx.GetCommit(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, c1.ID, got.ID)
	assert.Equal(t, c1.Owner, got.Owner)
	assert.Equal(t, c1.Message, got.Message)
	assert.Equal(t, c1.Changes, got.Changes)
	assert.Equal(t, c1.RootHash, got.RootHash)
	assert.Equal(t, c1.Parents, got.Parents)
	assert.True(t, c1.Timestamp.Equal(got.Timestamp))

	// main moved, so committing against the old head must fail and leave no commit behind
	c2, err := vcsdb.NewCommit("c2", "bob", "late", nil, tree.EmptyTreeHash, []string{root.ID}, time.Unix(1700000300, 0))
	require.NoError(t, err)
	_, err = idx.CommitToBranch(ctx, c2, main)
	assert.True(t, vcserr.Is(err, vcserr.ErrStaleBranch))

	_, err = idx.GetCommit(ctx, "c2")
	assert.True(t, vcserr.Is(err, vcserr.ErrCommitNotFound))

	main, err = idx.GetBranch(ctx, vcsdb.DefaultBranch)
	require.NoError(t, err)
	assert.Equal(t, "c1", main.Head)

	dup, err := vcsdb.NewCommit("c1", "bob", "dup", nil, tree.EmptyTreeHash, []string{"c1-other"}, time.Unix(1700000300, 0))
	require.NoError(t, err)
	_, err = idx.CommitToBranch(ctx, dup, main)
	assert.True(t, vcserr.Is(err, vcserr.ErrCommitAlreadyExists))
}

func testConcurrentCommits(t *testing.T, ri index.RepositoryIndex) {
	ctx := context.Background()
	idx, root := NewRepo(t, ri, "game")

	main, err := idx.GetBranch(ctx, vcsdb.DefaultBranch)
	require.NoError(t, err)

	const writers = 8
	var wg sync.WaitGroup
	results := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cm, err := vcsdb.NewCommit(fmt.Sprintf("w%d", i), "tester", "race", nil, tree.EmptyTreeHash, []string{root.ID}, time.Unix(1700000400, 0))
			if err != nil {
				results[i] = err
				return
			}
			_, results[i] = idx.CommitToBranch(ctx, cm, main)
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range results {
		if err == nil {
			won++
			continue
		}
		assert.True(t, vcserr.Is(err, vcserr.ErrStaleBranch), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, won)
}

func testListCommits(t *testing.T, ri index.RepositoryIndex) {
	ctx := context.Background()
	idx, root := NewRepo(t, ri, "game")
	require.NoError(t, idx.InsertBranch(ctx, branch("feature", root.ID, "domain-1")))

	commitOn(t, idx, vcsdb.DefaultBranch, "a")
	commitOn(t, idx, vcsdb.DefaultBranch, "b")
	commitOn(t, idx, "feature", "x")

	cms, err := idx.ListCommits(ctx, index.ListCommitsQuery{CommitIDs: []string{"b"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "root"}, commitIDs(cms))

	cms, err = idx.ListCommits(ctx, index.ListCommitsQuery{CommitIDs: []string{"b"}, Depth: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, commitIDs(cms))

	cms, err = idx.ListCommits(ctx, index.ListCommitsQuery{CommitIDs: []string{"b", "x"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "root", "x"}, commitIDs(cms))

	_, err = idx.ListCommits(ctx, index.ListCommitsQuery{CommitIDs: []string{"missing"}})
	assert.True(t, vcserr.Is(err, vcserr.ErrCommitNotFound))
}

func commitIDs(cms []*vcsdb.Commit) []string {
	ids := make([]string, len(cms))
	for i, cm := range cms {
		ids[i] = cm.ID
	}
	return ids
}

func testTrees(t *testing.T, ri index.RepositoryIndex) {
	ctx := context.Background()
	idx, _ := NewRepo(t, ri, "game")

	sub := tree.NewTree()
	require.NoError(t, sub.UpsertFileNode(tree.TreeNode{Name: "hero.png", Hash: hash.Of([]byte("hero"))}))
	subHash, err := idx.SaveTree(ctx, sub)
	require.NoError(t, err)
	assert.Equal(t, sub.Hash(), subHash)

	root := tree.NewTree()
	require.NoError(t, root.UpsertDirectoryNode(tree.TreeNode{Name: "Art", Hash: subHash}))
	require.NoError(t, root.UpsertFileNode(tree.TreeNode{Name: "readme.md", Hash: hash.Of([]byte("readme"))}))
	rootHash, err := idx.SaveTree(ctx, root)
	require.NoError(t, err)

	// saving the same contents again is a no-op
	again, err := idx.SaveTree(ctx, root.Clone())
	require.NoError(t, err)
	assert.Equal(t, rootHash, again)

	got, err := idx.GetTree(ctx, rootHash)
	require.NoError(t, err)
	assert.Equal(t, root.DirectoryNodes, got.DirectoryNodes)
	assert.Equal(t, root.FileNodes, got.FileNodes)
	assert.Equal(t, rootHash, got.Hash())

	_, err = idx.GetTree(ctx, hash.Of([]byte("missing")))
	assert.True(t, vcserr.Is(err, vcserr.ErrTreeNotFound))
	_, err = idx.GetTree(ctx, hash.Hash{})
	assert.True(t, vcserr.Is(err, vcserr.ErrTreeNotFound))

	h, ok, err := tree.FindFileHash(ctx, idx, rootHash, "art/HERO.png")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, hash.Of([]byte("hero")), h)
}

func testLocks(t *testing.T, ri index.RepositoryIndex) {
	ctx := context.Background()
	idx, _ := NewRepo(t, ri, "game")

	l1 := vcsdb.Lock{LockDomainID: "domain-1", RelativePath: "Art/Hero.png", WorkspaceID: "ws-1", BranchName: "main"}
	l2 := vcsdb.Lock{LockDomainID: "domain-1", RelativePath: "levels/one.map", WorkspaceID: "ws-2", BranchName: "main"}
	l3 := vcsdb.Lock{LockDomainID: "domain-2", RelativePath: "Art/Hero.png", WorkspaceID: "ws-3", BranchName: "release"}

	require.NoError(t, idx.Lock(ctx, l1))
	require.NoError(t, idx.Lock(ctx, l2))
	require.NoError(t, idx.Lock(ctx, l3))

	// paths are locked case insensitively within a domain
	err := idx.Lock(ctx, vcsdb.Lock{LockDomainID: "domain-1", RelativePath: "art/hero.PNG", WorkspaceID: "ws-9", BranchName: "main"})
	assert.True(t, vcserr.Is(err, vcserr.ErrLockAlreadyExists))

	got, err := idx.GetLock(ctx, "domain-1", "art/hero.png")
	require.NoError(t, err)
	assert.Equal(t, l1, got)

	_, err = idx.GetLock(ctx, "domain-2", "levels/one.map")
	assert.True(t, vcserr.Is(err, vcserr.ErrLockNotFound))

	all, err := idx.ListLocks(ctx, index.ListLocksQuery{})
	require.NoError(t, err)
	assert.Equal(t, []vcsdb.Lock{l1, l2, l3}, all)

	d1, err := idx.ListLocks(ctx, index.ListLocksQuery{LockDomainIDs: []string{"domain-1"}})
	require.NoError(t, err)
	assert.Equal(t, []vcsdb.Lock{l1, l2}, d1)

	n, err := idx.CountLocks(ctx, index.ListLocksQuery{LockDomainIDs: []string{"domain-2"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = idx.CountLocks(ctx, index.ListLocksQuery{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, idx.Unlock(ctx, "domain-1", "ART/HERO.PNG"))
	err = idx.Unlock(ctx, "domain-1", "art/hero.png")
	assert.True(t, vcserr.Is(err, vcserr.ErrLockNotFound))

	n, err = idx.CountLocks(ctx, index.ListLocksQuery{LockDomainIDs: []string{"domain-1"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	none, err := idx.ListLocks(ctx, index.ListLocksQuery{LockDomainIDs: []string{"domain-9"}})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testConcurrentLocks(t *testing.T, ri index.RepositoryIndex) {
	ctx := context.Background()
	idx, _ := NewRepo(t, ri, "game")

	const workers = 8
	var wg sync.WaitGroup
	results := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = idx.Lock(ctx, vcsdb.Lock{LockDomainID: "domain-1", RelativePath: "contested.bin", WorkspaceID: fmt.Sprintf("ws-%d", i), BranchName: "main"})
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range results {
		if err == nil {
			won++
			continue
		}
		assert.True(t, vcserr.Is(err, vcserr.ErrLockAlreadyExists), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, won)
}

func branch(name, head, lockDomainID string) vcsdb.Branch {
	return vcsdb.Branch{Name: name, Head: head, LockDomainID: lockDomainID}
}
