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

// Package tree implements the Merkle directory snapshots that commits point
// at. A Tree lists its subdirectories and files as (name, hash) pairs; the
// hash of a Tree is derived from its sorted children so that equal contents
// always produce the same hash.
package tree

import (
	"crypto/sha256"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/dolthub/assetvcs/libraries/assetcore/vcserr"
	"github.com/dolthub/assetvcs/store/hash"
)

// TreeNode is a named child of a Tree. For files Hash is the blob content
// hash, for directories it is the hash of the child Tree.
type TreeNode struct {
	Name string    `json:"name"`
	Hash hash.Hash `json:"hash"`
}

// Tree is one directory level of a snapshot.
type Tree struct {
	DirectoryNodes []TreeNode `json:"directory_nodes"`
	FileNodes      []TreeNode `json:"file_nodes"`
}

// NewTree returns an empty Tree.
func NewTree() *Tree {
	return &Tree{DirectoryNodes: []TreeNode{}, FileNodes: []TreeNode{}}
}

// EmptyTreeHash is the hash of a Tree with no children.
var EmptyTreeHash = NewTree().Hash()

// Hash returns the content hash of the tree. Children are hashed in name
// order, directories before files, each child contributing its name followed
// by the text form of its hash.
func (t *Tree) Hash() hash.Hash {
	h := sha256.New()
	for _, nodes := range [][]TreeNode{sortedCopy(t.DirectoryNodes), sortedCopy(t.FileNodes)} {
		for _, n := range nodes {
			h.Write([]byte(n.Name))
			h.Write([]byte(n.Hash.String()))
		}
	}
	return hash.New(h.Sum(nil))
}

// IsEmpty returns true if the tree has no children.
func (t *Tree) IsEmpty() bool {
	return len(t.DirectoryNodes) == 0 && len(t.FileNodes) == 0
}

// Clone returns a deep copy of the tree.
func (t *Tree) Clone() *Tree {
	return &Tree{
		DirectoryNodes: append([]TreeNode{}, t.DirectoryNodes...),
		FileNodes:      append([]TreeNode{}, t.FileNodes...),
	}
}

// Sort puts the children of the tree in canonical order.
func (t *Tree) Sort() {
	sortNodes(t.DirectoryNodes)
	sortNodes(t.FileNodes)
}

// FindDirectoryNode returns the directory child named |name|, ignoring case.
func (t *Tree) FindDirectoryNode(name string) (TreeNode, bool) {
	return findNode(t.DirectoryNodes, name)
}

// FindFileNode returns the file child named |name|, ignoring case.
func (t *Tree) FindFileNode(name string) (TreeNode, bool) {
	return findNode(t.FileNodes, name)
}

// UpsertFileNode adds |node| as a file child, replacing any file child with
// the same name.
func (t *Tree) UpsertFileNode(node TreeNode) error {
	if _, ok := t.FindDirectoryNode(node.Name); ok {
		return vcserr.ErrCorruptedTree.New("`" + node.Name + "` is a directory and cannot be stored as a file")
	}
	t.FileNodes = upsertNode(t.FileNodes, node)
	return nil
}

// UpsertDirectoryNode adds |node| as a directory child, replacing any
// directory child with the same name.
func (t *Tree) UpsertDirectoryNode(node TreeNode) error {
	if _, ok := t.FindFileNode(node.Name); ok {
		return vcserr.ErrCorruptedTree.New("`" + node.Name + "` is a file and cannot be stored as a directory")
	}
	t.DirectoryNodes = upsertNode(t.DirectoryNodes, node)
	return nil
}

// RemoveFileNode removes the file child named |name|. It returns false if
// there was no such child.
func (t *Tree) RemoveFileNode(name string) bool {
	for i, n := range t.FileNodes {
		if strings.EqualFold(n.Name, name) {
			t.FileNodes = append(t.FileNodes[:i], t.FileNodes[i+1:]...)
			return true
		}
	}
	return false
}

// Marshal encodes the tree for storage.
func (t *Tree) Marshal() ([]byte, error) {
	return json.Marshal(t)
}

// Unmarshal decodes a tree previously encoded with Marshal.
func Unmarshal(data []byte) (*Tree, error) {
	t := NewTree()
	if err := json.Unmarshal(data, t); err != nil {
		return nil, vcserr.ErrCorruptedTree.Wrap(err, "could not decode tree")
	}
	if t.DirectoryNodes == nil {
		t.DirectoryNodes = []TreeNode{}
	}
	if t.FileNodes == nil {
		t.FileNodes = []TreeNode{}
	}
	return t, nil
}

func findNode(nodes []TreeNode, name string) (TreeNode, bool) {
	for _, n := range nodes {
		if strings.EqualFold(n.Name, name) {
			return n, true
		}
	}
	return TreeNode{}, false
}

func upsertNode(nodes []TreeNode, node TreeNode) []TreeNode {
	for i, n := range nodes {
		if strings.EqualFold(n.Name, node.Name) {
			nodes[i] = node
			sortNodes(nodes)
			return nodes
		}
	}
	nodes = append(nodes, node)
	sortNodes(nodes)
	return nodes
}

func sortNodes(nodes []TreeNode) {
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].Name < nodes[j].Name
	})
}

func sortedCopy(nodes []TreeNode) []TreeNode {
	out := append([]TreeNode{}, nodes...)
	sortNodes(out)
	return out
}
