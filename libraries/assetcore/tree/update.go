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
	"path"
	"sort"
	"strings"

	"github.com/dolthub/assetvcs/libraries/assetcore/vcsdb"
	"github.com/dolthub/assetvcs/libraries/assetcore/vcserr"
	"github.com/dolthub/assetvcs/store/hash"
)

// GetTreeOrEmpty loads the tree |h|, treating the empty hash as an empty tree.
func GetTreeOrEmpty(ctx context.Context, s Store, h hash.Hash) (*Tree, error) {
	if h.IsEmpty() {
		return NewTree(), nil
	}
	return s.GetTree(ctx, h)
}

// FetchTreeSubdir returns the tree of directory |dir| (slash separated,
// "" for the root) below |root|. Directories that do not exist yet yield an
// empty tree.
func FetchTreeSubdir(ctx context.Context, s Store, root hash.Hash, dir string) (*Tree, error) {
	t, _, err := fetchSubdir(ctx, s, root, dir)
	return t, err
}

// fetchSubdir is FetchTreeSubdir that also reports whether |dir| exists.
func fetchSubdir(ctx context.Context, s Store, root hash.Hash, dir string) (*Tree, bool, error) {
	cur, err := GetTreeOrEmpty(ctx, s, root)
	if err != nil {
		return nil, false, err
	}

	for _, name := range splitPath(dir) {
		node, ok := cur.FindDirectoryNode(name)
		if !ok {
			if _, isFile := cur.FindFileNode(name); isFile {
				return nil, false, vcserr.ErrCorruptedTree.New("`" + dir + "` names a file where a directory is expected")
			}
			return NewTree(), false, nil
		}

		cur, err = s.GetTree(ctx, node.Hash)
		if err != nil {
			return nil, false, err
		}
	}

	return cur, true, nil
}

// FindFileHash returns the content hash of |relativePath| in the snapshot
// |root|. The bool result is false if the path is not a file in the snapshot.
func FindFileHash(ctx context.Context, s Store, root hash.Hash, relativePath string) (hash.Hash, bool, error) {
	p, err := vcsdb.CleanRelativePath(relativePath)
	if err != nil {
		return hash.Hash{}, false, err
	}

	dir, name := splitDirBase(p)
	t, err := FetchTreeSubdir(ctx, s, root, dir)
	if err != nil {
		if vcserr.Is(err, vcserr.ErrCorruptedTree) {
			return hash.Hash{}, false, nil
		}
		return hash.Hash{}, false, err
	}

	node, ok := t.FindFileNode(name)
	if !ok {
		return hash.Hash{}, false, nil
	}
	return node.Hash, true, nil
}

// UpdateTreeFromChanges applies |changes| to the snapshot |previousRoot| and
// returns the new root hash. Every directory on the path of a change is
// rebuilt, deepest first, so that each parent can record the new hash of its
// rebuilt children. Directories not on a changed path are shared with the
// previous snapshot. Directory names match case insensitively and keep the
// first spelling seen. Deletes below a directory that does not exist do not
// create it.
func UpdateTreeFromChanges(ctx context.Context, s Store, previousRoot hash.Hash, changes []vcsdb.HashedChange) (hash.Hash, error) {
	fileChanges := make(map[string][]vcsdb.HashedChange)
	// keyed by LockKey, valued by the first spelling seen
	dirs := map[string]string{"": ""}
	created := map[string]struct{}{"": {}}

	for _, ch := range changes {
		p, err := vcsdb.CleanRelativePath(ch.RelativePath)
		if err != nil {
			return hash.Hash{}, err
		}
		if ch.ChangeType != vcsdb.Delete && ch.Hash.IsEmpty() {
			return hash.Hash{}, vcserr.ErrInvalidPath.New(p, "only deletes may carry the empty hash")
		}

		dir, _ := splitDirBase(p)
		dirKey := vcsdb.LockKey(dir)
		fileChanges[dirKey] = append(fileChanges[dirKey], vcsdb.HashedChange{RelativePath: p, Hash: ch.Hash, ChangeType: ch.ChangeType})
		for d := dir; d != ""; d, _ = splitDirBase(d) {
			key := vcsdb.LockKey(d)
			if _, ok := dirs[key]; !ok {
				dirs[key] = d
			}
			if ch.ChangeType != vcsdb.Delete {
				created[key] = struct{}{}
			}
		}
	}

	ordered := make([]string, 0, len(dirs))
	for key := range dirs {
		ordered = append(ordered, key)
	}
	sort.Slice(ordered, func(i, j int) bool {
		di, dj := depth(ordered[i]), depth(ordered[j])
		if di != dj {
			return di > dj
		}
		return ordered[i] < ordered[j]
	})

	childNodes := make(map[string][]TreeNode)
	for _, key := range ordered {
		if err := ctx.Err(); err != nil {
			return hash.Hash{}, err
		}

		dir := dirs[key]
		t, exists, err := fetchSubdir(ctx, s, previousRoot, dir)
		if err != nil {
			return hash.Hash{}, err
		}
		if _, ok := created[key]; !ok && !exists {
			continue
		}

		for _, ch := range fileChanges[key] {
			_, name := splitDirBase(ch.RelativePath)
			if ch.ChangeType == vcsdb.Delete {
				t.RemoveFileNode(name)
				continue
			}
			if err := t.UpsertFileNode(TreeNode{Name: name, Hash: ch.Hash}); err != nil {
				return hash.Hash{}, err
			}
		}

		for _, child := range childNodes[key] {
			if existing, ok := t.FindDirectoryNode(child.Name); ok {
				child.Name = existing.Name
			}
			if err := t.UpsertDirectoryNode(child); err != nil {
				return hash.Hash{}, err
			}
		}

		t.Sort()
		h, err := s.SaveTree(ctx, t)
		if err != nil {
			return hash.Hash{}, err
		}

		if dir == "" {
			return h, nil
		}

		parent, name := splitDirBase(dir)
		parentKey := vcsdb.LockKey(parent)
		childNodes[parentKey] = append(childNodes[parentKey], TreeNode{Name: name, Hash: h})
	}

	panic("root directory was never rebuilt")
}

func splitPath(p string) []string {
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// splitDirBase splits a clean relative path into its parent directory and
// base name. The parent of a top level entry is "".
func splitDirBase(p string) (string, string) {
	dir, name := path.Split(p)
	return strings.TrimSuffix(dir, "/"), name
}

func depth(dir string) int {
	if dir == "" {
		return 0
	}
	return strings.Count(dir, "/") + 1
}
