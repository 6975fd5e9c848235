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

package tree

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dolthub/assetvcs/libraries/assetcore/vcsdb"
	"github.com/dolthub/assetvcs/libraries/assetcore/vcserr"
	"github.com/dolthub/assetvcs/store/hash"
)

type memStore struct {
	mu    sync.Mutex
	trees map[hash.Hash][]byte
	gets  int
}

func newMemStore() *memStore {
	return &memStore{trees: make(map[hash.Hash][]byte)}
}

func (ms *memStore) GetTree(_ context.Context, h hash.Hash) (*Tree, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.gets++
	data, ok := ms.trees[h]
	if !ok {
		return nil, vcserr.ErrTreeNotFound.New(h.String())
	}
	return Unmarshal(data)
}

func (ms *memStore) SaveTree(_ context.Context, t *Tree) (hash.Hash, error) {
	data, err := t.Marshal()
	if err != nil {
		return hash.Hash{}, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	h := t.Hash()
	ms.trees[h] = data
	return h, nil
}

func edit(p, content string) vcsdb.HashedChange {
	return vcsdb.HashedChange{RelativePath: p, Hash: hash.Of([]byte(content)), ChangeType: vcsdb.Edit}
}

func add(p, content string) vcsdb.HashedChange {
	return vcsdb.HashedChange{RelativePath: p, Hash: hash.Of([]byte(content)), ChangeType: vcsdb.Add}
}

func del(p string) vcsdb.HashedChange {
	return vcsdb.HashedChange{RelativePath: p, ChangeType: vcsdb.Delete}
}

func saveEmpty(t *testing.T, s Store) hash.Hash {
	h, err := s.SaveTree(context.Background(), NewTree())
	require.NoError(t, err)
	return h
}

func TestTreeHashIsDeterministic(t *testing.T) {
	a := &Tree{
		DirectoryNodes: []TreeNode{{Name: "z", Hash: hash.Of([]byte("z"))}, {Name: "a", Hash: hash.Of([]byte("a"))}},
		FileNodes:      []TreeNode{{Name: "f2", Hash: hash.Of([]byte("2"))}, {Name: "f1", Hash: hash.Of([]byte("1"))}},
	}
	b := a.Clone()
	b.Sort()
	assert.Equal(t, a.Hash(), b.Hash())

	c := b.Clone()
	c.FileNodes[0].Hash = hash.Of([]byte("changed"))
	assert.NotEqual(t, b.Hash(), c.Hash())

	assert.Equal(t, hash.Of(nil), EmptyTreeHash)
}

func TestMarshalRoundTrip(t *testing.T) {
	orig := &Tree{
		DirectoryNodes: []TreeNode{{Name: "dir", Hash: hash.Of([]byte("d"))}},
		FileNodes:      []TreeNode{{Name: "file.bin", Hash: hash.Of([]byte("f"))}},
	}
	data, err := orig.Marshal()
	require.NoError(t, err)
	out, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, orig, out)
	assert.Equal(t, orig.Hash(), out.Hash())

	_, err = Unmarshal([]byte("{not json"))
	assert.True(t, vcserr.Is(err, vcserr.ErrCorruptedTree))
}

func TestCaseInsensitiveLookup(t *testing.T) {
	tr := NewTree()
	require.NoError(t, tr.UpsertFileNode(TreeNode{Name: "Readme.MD", Hash: hash.Of([]byte("1"))}))
	n, ok := tr.FindFileNode("readme.md")
	require.True(t, ok)
	assert.Equal(t, "Readme.MD", n.Name)

	require.NoError(t, tr.UpsertFileNode(TreeNode{Name: "README.md", Hash: hash.Of([]byte("2"))}))
	require.Len(t, tr.FileNodes, 1)
	assert.Equal(t, hash.Of([]byte("2")), tr.FileNodes[0].Hash)

	assert.True(t, tr.RemoveFileNode("readme.MD"))
	assert.True(t, tr.IsEmpty())
}

func TestUpsertRejectsKindMismatch(t *testing.T) {
	tr := NewTree()
	require.NoError(t, tr.UpsertDirectoryNode(TreeNode{Name: "assets", Hash: EmptyTreeHash}))
	err := tr.UpsertFileNode(TreeNode{Name: "Assets", Hash: hash.Of([]byte("x"))})
	assert.True(t, vcserr.Is(err, vcserr.ErrCorruptedTree))
}

func TestUpdateTreeFromChanges(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	empty := saveEmpty(t, s)

	v1, err := UpdateTreeFromChanges(ctx, s, empty, []vcsdb.HashedChange{add("a/b.txt", "H1")})
	require.NoError(t, err)

	// rebuilding a tree from the same changes gives the same root
	v1Again, err := UpdateTreeFromChanges(ctx, s, empty, []vcsdb.HashedChange{add("a/b.txt", "H1")})
	require.NoError(t, err)
	assert.Equal(t, v1, v1Again)

	v2, err := UpdateTreeFromChanges(ctx, s, v1, []vcsdb.HashedChange{edit("a/b.txt", "H2"), add("c/d.txt", "H3")})
	require.NoError(t, err)

	root, err := s.GetTree(ctx, v2)
	require.NoError(t, err)
	require.Len(t, root.DirectoryNodes, 2)
	assert.Equal(t, "a", root.DirectoryNodes[0].Name)
	assert.Equal(t, "c", root.DirectoryNodes[1].Name)
	assert.Empty(t, root.FileNodes)

	a, err := s.GetTree(ctx, root.DirectoryNodes[0].Hash)
	require.NoError(t, err)
	assert.Equal(t, []TreeNode{{Name: "b.txt", Hash: hash.Of([]byte("H2"))}}, a.FileNodes)

	c, err := s.GetTree(ctx, root.DirectoryNodes[1].Hash)
	require.NoError(t, err)
	assert.Equal(t, []TreeNode{{Name: "d.txt", Hash: hash.Of([]byte("H3"))}}, c.FileNodes)

	h, ok, err := FindFileHash(ctx, s, v2, "C/D.TXT")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, hash.Of([]byte("H3")), h)

	_, ok, err = FindFileHash(ctx, s, v2, "a/missing.txt")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateTreeIsOrderIndependent(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	empty := saveEmpty(t, s)

	changes := []vcsdb.HashedChange{add("x/y/z.bin", "1"), add("top.txt", "2"), add("x/w.txt", "3")}
	h1, err := UpdateTreeFromChanges(ctx, s, empty, changes)
	require.NoError(t, err)

	reversed := []vcsdb.HashedChange{changes[2], changes[1], changes[0]}
	h2, err := UpdateTreeFromChanges(ctx, s, empty, reversed)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	// applying the same changes one at a time yields the same snapshot
	step := empty
	for _, ch := range changes {
		step, err = UpdateTreeFromChanges(ctx, s, step, []vcsdb.HashedChange{ch})
		require.NoError(t, err)
	}
	assert.Equal(t, h1, step)
}

func TestUpdateTreeDelete(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	empty := saveEmpty(t, s)

	v1, err := UpdateTreeFromChanges(ctx, s, empty, []vcsdb.HashedChange{add("dir/a.txt", "a"), add("dir/b.txt", "b")})
	require.NoError(t, err)
	v2, err := UpdateTreeFromChanges(ctx, s, v1, []vcsdb.HashedChange{del("dir/a.txt")})
	require.NoError(t, err)

	only, err := UpdateTreeFromChanges(ctx, s, empty, []vcsdb.HashedChange{add("dir/b.txt", "b")})
	require.NoError(t, err)
	assert.Equal(t, only, v2)

	// deleting an absent file is a no-op
	v3, err := UpdateTreeFromChanges(ctx, s, v2, []vcsdb.HashedChange{del("dir/nope.txt")})
	require.NoError(t, err)
	assert.Equal(t, v2, v3)
}

func TestUpdateTreeMergesDirectoryCase(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	empty := saveEmpty(t, s)

	v1, err := UpdateTreeFromChanges(ctx, s, empty, []vcsdb.HashedChange{add("Dir/a.txt", "a"), add("dir/b.txt", "b")})
	require.NoError(t, err)

	root, err := s.GetTree(ctx, v1)
	require.NoError(t, err)
	require.Len(t, root.DirectoryNodes, 1)
	assert.Equal(t, "Dir", root.DirectoryNodes[0].Name)

	for _, p := range []string{"Dir/a.txt", "dir/b.txt"} {
		_, ok, err := FindFileHash(ctx, s, v1, p)
		require.NoError(t, err)
		assert.True(t, ok, p)
	}

	// a later change spelled differently keeps the stored spelling
	v2, err := UpdateTreeFromChanges(ctx, s, v1, []vcsdb.HashedChange{add("DIR/c.txt", "c")})
	require.NoError(t, err)
	root, err = s.GetTree(ctx, v2)
	require.NoError(t, err)
	require.Len(t, root.DirectoryNodes, 1)
	assert.Equal(t, "Dir", root.DirectoryNodes[0].Name)
	dir, err := s.GetTree(ctx, root.DirectoryNodes[0].Hash)
	require.NoError(t, err)
	assert.Len(t, dir.FileNodes, 3)
}

func TestUpdateTreeDeleteUnderMissingDirectory(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	empty := saveEmpty(t, s)

	v1, err := UpdateTreeFromChanges(ctx, s, empty, []vcsdb.HashedChange{add("a.txt", "a")})
	require.NoError(t, err)

	v2, err := UpdateTreeFromChanges(ctx, s, v1, []vcsdb.HashedChange{del("ghost/deep/x.txt")})
	require.NoError(t, err)
	assert.Equal(t, v1, v2)

	root, err := s.GetTree(ctx, v2)
	require.NoError(t, err)
	assert.Empty(t, root.DirectoryNodes)

	// an add next to the delete still creates the directory
	v3, err := UpdateTreeFromChanges(ctx, s, v1, []vcsdb.HashedChange{del("ghost/x.txt"), add("ghost/y.txt", "y")})
	require.NoError(t, err)
	root, err = s.GetTree(ctx, v3)
	require.NoError(t, err)
	require.Len(t, root.DirectoryNodes, 1)
	assert.Equal(t, "ghost", root.DirectoryNodes[0].Name)
}

func TestUpdateTreeCorrupted(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	empty := saveEmpty(t, s)

	v1, err := UpdateTreeFromChanges(ctx, s, empty, []vcsdb.HashedChange{add("a", "file")})
	require.NoError(t, err)

	_, err = UpdateTreeFromChanges(ctx, s, v1, []vcsdb.HashedChange{add("a/b.txt", "x")})
	assert.True(t, vcserr.Is(err, vcserr.ErrCorruptedTree))

	_, err = UpdateTreeFromChanges(ctx, s, v1, []vcsdb.HashedChange{add("../a", "x")})
	assert.True(t, vcserr.Is(err, vcserr.ErrInvalidPath))

	_, err = UpdateTreeFromChanges(ctx, s, v1, []vcsdb.HashedChange{{RelativePath: "b", ChangeType: vcsdb.Add}})
	assert.True(t, vcserr.Is(err, vcserr.ErrInvalidPath))
}

func TestDiff(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	empty := saveEmpty(t, s)

	v1, err := UpdateTreeFromChanges(ctx, s, empty, []vcsdb.HashedChange{add("keep/k.txt", "k"), add("mod.txt", "1"), add("gone/g.txt", "g")})
	require.NoError(t, err)
	v2, err := UpdateTreeFromChanges(ctx, s, v1, []vcsdb.HashedChange{edit("mod.txt", "2"), del("gone/g.txt"), add("new/deep/n.txt", "n")})
	require.NoError(t, err)

	diffs, err := Diff(ctx, s, v1, v2)
	require.NoError(t, err)
	require.Len(t, diffs, 3)

	assert.Equal(t, "gone/g.txt", diffs[0].RelativePath)
	assert.True(t, diffs[0].IsDelete())
	assert.Equal(t, "mod.txt", diffs[1].RelativePath)
	assert.Equal(t, hash.Of([]byte("1")), diffs[1].From)
	assert.Equal(t, hash.Of([]byte("2")), diffs[1].To)
	assert.Equal(t, "new/deep/n.txt", diffs[2].RelativePath)
	assert.True(t, diffs[2].IsAdd())

	none, err := Diff(ctx, s, v2, v2)
	require.NoError(t, err)
	assert.Empty(t, none)

	full, err := Diff(ctx, s, hash.EmptyHash, v1)
	require.NoError(t, err)
	assert.Len(t, full, 3)
}

func TestWalk(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	empty := saveEmpty(t, s)

	root, err := UpdateTreeFromChanges(ctx, s, empty, []vcsdb.HashedChange{add("b/2.txt", "2"), add("a/1.txt", "1"), add("0.txt", "0")})
	require.NoError(t, err)

	var paths []string
	err = Walk(ctx, s, root, func(p string, _ TreeNode) error {
		paths = append(paths, p)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"0.txt", "a/1.txt", "b/2.txt"}, paths)
}

func TestCachingStore(t *testing.T) {
	ctx := context.Background()
	inner := newMemStore()
	cs, err := NewCachingStore(inner, 16)
	require.NoError(t, err)

	tr := NewTree()
	require.NoError(t, tr.UpsertFileNode(TreeNode{Name: "f", Hash: hash.Of([]byte("f"))}))
	h, err := cs.SaveTree(ctx, tr)
	require.NoError(t, err)

	got, err := cs.GetTree(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, h, got.Hash())
	assert.Equal(t, 0, inner.gets)

	// callers may modify the returned tree without affecting the cache
	got.FileNodes[0].Hash = hash.Of([]byte("mutated"))
	again, err := cs.GetTree(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, h, again.Hash())
	assert.Equal(t, 1, cs.Len())
}
