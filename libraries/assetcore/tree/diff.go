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
	"sort"
	"strings"

	"github.com/dolthub/assetvcs/store/hash"
)

// FileDiff describes how a single file differs between two snapshots. From is
// empty for added files and To is empty for deleted files.
type FileDiff struct {
	RelativePath string
	From         hash.Hash
	To           hash.Hash
}

func (fd FileDiff) IsAdd() bool {
	return fd.From.IsEmpty() && !fd.To.IsEmpty()
}

func (fd FileDiff) IsDelete() bool {
	return !fd.From.IsEmpty() && fd.To.IsEmpty()
}

type dirPair struct {
	path     string
	from, to hash.Hash
}

// Diff returns the files that differ between the snapshots |fromRoot| and
// |toRoot|, sorted by path. Subtrees with equal hashes are not visited. Either
// root may be the empty hash.
func Diff(ctx context.Context, s Store, fromRoot, toRoot hash.Hash) ([]FileDiff, error) {
	var diffs []FileDiff
	stack := []dirPair{{path: "", from: fromRoot, to: toRoot}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur.from == cur.to {
			continue
		}

		from, err := GetTreeOrEmpty(ctx, s, cur.from)
		if err != nil {
			return nil, err
		}
		to, err := GetTreeOrEmpty(ctx, s, cur.to)
		if err != nil {
			return nil, err
		}

		for _, pair := range pairNodes(from.FileNodes, to.FileNodes) {
			if pair.from != pair.to {
				diffs = append(diffs, FileDiff{RelativePath: join(cur.path, pair.name), From: pair.from, To: pair.to})
			}
		}
		for _, pair := range pairNodes(from.DirectoryNodes, to.DirectoryNodes) {
			stack = append(stack, dirPair{path: join(cur.path, pair.name), from: pair.from, to: pair.to})
		}
	}

	sort.Slice(diffs, func(i, j int) bool {
		return diffs[i].RelativePath < diffs[j].RelativePath
	})
	return diffs, nil
}

// WalkFunc is called for every file of a snapshot.
type WalkFunc func(relativePath string, node TreeNode) error

// Walk calls |cb| for every file below |root|, in depth first order.
func Walk(ctx context.Context, s Store, root hash.Hash, cb WalkFunc) error {
	type entry struct {
		path string
		h    hash.Hash
	}
	stack := []entry{{path: "", h: root}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		t, err := GetTreeOrEmpty(ctx, s, cur.h)
		if err != nil {
			return err
		}

		for _, f := range t.FileNodes {
			if err := cb(join(cur.path, f.Name), f); err != nil {
				return err
			}
		}
		for i := len(t.DirectoryNodes) - 1; i >= 0; i-- {
			d := t.DirectoryNodes[i]
			stack = append(stack, entry{path: join(cur.path, d.Name), h: d.Hash})
		}
	}

	return nil
}

type nodePair struct {
	name     string
	from, to hash.Hash
}

// pairNodes matches children of two trees by case insensitive name. The name
// of the newer side wins.
func pairNodes(from, to []TreeNode) []nodePair {
	idx := make(map[string]int)
	var pairs []nodePair
	for _, n := range from {
		idx[strings.ToLower(n.Name)] = len(pairs)
		pairs = append(pairs, nodePair{name: n.Name, from: n.Hash})
	}
	for _, n := range to {
		if i, ok := idx[strings.ToLower(n.Name)]; ok {
			pairs[i].name = n.Name
			pairs[i].to = n.Hash
			continue
		}
		pairs = append(pairs, nodePair{name: n.Name, to: n.Hash})
	}
	return pairs
}

func join(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}
