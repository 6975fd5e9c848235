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

package vcsdb

import (
	"context"
	"fmt"
	"time"

	"github.com/dolthub/assetvcs/libraries/assetcore/vcserr"
	"github.com/dolthub/assetvcs/store/hash"
)

// ChangeType is the kind of modification recorded for a path.
type ChangeType int

const (
	Edit   ChangeType = 1
	Add    ChangeType = 2
	Delete ChangeType = 3
)

func (ct ChangeType) String() string {
	switch ct {
	case Edit:
		return "edit"
	case Add:
		return "add"
	case Delete:
		return "delete"
	}
	return fmt.Sprintf("ChangeType(%d)", int(ct))
}

// ParseChangeType is the inverse of ChangeType.String.
func ParseChangeType(s string) (ChangeType, error) {
	switch s {
	case "edit":
		return Edit, nil
	case "add":
		return Add, nil
	case "delete":
		return Delete, nil
	}
	return 0, vcserr.ErrInvalidArgument.New(fmt.Sprintf("unknown change type %q", s))
}

// HashedChange is a change to a single path together with the content hash
// the path now refers to. Deletes carry the empty hash.
type HashedChange struct {
	RelativePath string     `json:"relative_path"`
	Hash         hash.Hash  `json:"hash"`
	ChangeType   ChangeType `json:"change_type"`
}

// Commit is an immutable history node. Commits are created with NewCommit.
type Commit struct {
	ID        string         `json:"id"`
	Owner     string         `json:"owner"`
	Message   string         `json:"message"`
	Changes   []HashedChange `json:"changes"`
	RootHash  hash.Hash      `json:"root_hash"`
	Parents   []string       `json:"parents"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewCommit validates the history invariants of a commit and returns it. A
// commit may not name itself as a parent, may not repeat a parent, and must
// have an id.
func NewCommit(id, owner, message string, changes []HashedChange, rootHash hash.Hash, parents []string, timestamp time.Time) (*Commit, error) {
	if id == "" {
		return nil, vcserr.ErrInvalidHistory.New(id, "commit id must not be empty")
	}

	seen := make(map[string]struct{}, len(parents))
	for _, p := range parents {
		if p == id {
			return nil, vcserr.ErrInvalidHistory.New(id, "a commit cannot be its own parent")
		}
		if _, ok := seen[p]; ok {
			return nil, vcserr.ErrInvalidHistory.New(id, fmt.Sprintf("parent `%s` is listed twice", p))
		}
		seen[p] = struct{}{}
	}

	if changes == nil {
		changes = []HashedChange{}
	}
	if parents == nil {
		parents = []string{}
	}

	return &Commit{
		ID:        id,
		Owner:     owner,
		Message:   message,
		Changes:   changes,
		RootHash:  rootHash,
		Parents:   parents,
		Timestamp: timestamp.UTC(),
	}, nil
}

// IsRoot returns true for the commit that starts a repository's history.
func (c *Commit) IsRoot() bool {
	return len(c.Parents) == 0
}

// IsMerge returns true if the commit has more than one parent.
func (c *Commit) IsMerge() bool {
	return len(c.Parents) > 1
}

// FirstParent returns the trunk parent of the commit, or "" for a root commit.
func (c *Commit) FirstParent() string {
	if len(c.Parents) == 0 {
		return ""
	}
	return c.Parents[0]
}

// CommitReader resolves commit ids.
type CommitReader interface {
	GetCommit(ctx context.Context, id string) (*Commit, error)
}
