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

// Package index defines the persistent store of branches, commits, trees and
// locks of asset repositories, along with the backends implementing it. A
// backend is chosen when the index is opened, from the scheme of its url.
package index

import (
	"context"
	"regexp"

	"github.com/dolthub/assetvcs/libraries/assetcore/tree"
	"github.com/dolthub/assetvcs/libraries/assetcore/vcsdb"
	"github.com/dolthub/assetvcs/libraries/assetcore/vcserr"
	"github.com/dolthub/assetvcs/store/hash"
)

// RepositoryIndex manages the repositories stored in a backend.
type RepositoryIndex interface {
	// CreateRepository creates an empty repository named |name|.
	CreateRepository(ctx context.Context, name string) (Index, error)

	// DestroyRepository deletes the repository |name| and all of its data.
	DestroyRepository(ctx context.Context, name string) error

	// LoadRepository returns the index of an existing repository.
	LoadRepository(ctx context.Context, name string) (Index, error)

	// ListRepositories returns the names of all repositories, sorted.
	ListRepositories(ctx context.Context) ([]string, error)

	// Close releases the resources held by the backend.
	Close() error
}

// ListBranchesQuery filters the branches returned by Index.ListBranches. The
// zero value matches every branch.
type ListBranchesQuery struct {
	LockDomainID string `json:"lock_domain_id,omitempty"`
}

// ListCommitsQuery selects commits by following first parents from each of
// CommitIDs. At most Depth commits are returned per start commit, zero
// meaning the whole chain.
type ListCommitsQuery struct {
	CommitIDs []string `json:"commit_ids"`
	Depth     int      `json:"depth"`
}

// ListLocksQuery filters the locks returned by Index.ListLocks. Locks of every
// domain are returned when LockDomainIDs is empty.
type ListLocksQuery struct {
	LockDomainIDs []string `json:"lock_domain_ids,omitempty"`
}

// Index is the persistent state of a single repository.
//
// UpdateBranch and CommitToBranch are compare-and-swap operations on the
// branch head and fail with a StaleBranch error when the head has moved. Lock
// is an insert-if-absent and fails with LockAlreadyExists when the path is
// already locked in the domain.
type Index interface {
	RepositoryName() string

	GetBranch(ctx context.Context, name string) (vcsdb.Branch, error)
	ListBranches(ctx context.Context, query ListBranchesQuery) ([]vcsdb.Branch, error)
	InsertBranch(ctx context.Context, branch vcsdb.Branch) error

	// UpdateBranch stores |branch| if the current head of the branch is |prevHead|.
	UpdateBranch(ctx context.Context, branch vcsdb.Branch, prevHead string) error

	GetCommit(ctx context.Context, id string) (*vcsdb.Commit, error)
	ListCommits(ctx context.Context, query ListCommitsQuery) ([]*vcsdb.Commit, error)

	// CommitToBranch persists |commit| and advances |branch| to it, provided the
	// current head of the branch is still |branch.Head|. It returns the new head.
	CommitToBranch(ctx context.Context, commit *vcsdb.Commit, branch vcsdb.Branch) (string, error)

	GetTree(ctx context.Context, h hash.Hash) (*tree.Tree, error)
	SaveTree(ctx context.Context, t *tree.Tree) (hash.Hash, error)

	Lock(ctx context.Context, lock vcsdb.Lock) error
	GetLock(ctx context.Context, lockDomainID, relativePath string) (vcsdb.Lock, error)
	ListLocks(ctx context.Context, query ListLocksQuery) ([]vcsdb.Lock, error)
	Unlock(ctx context.Context, lockDomainID, relativePath string) error
	CountLocks(ctx context.Context, query ListLocksQuery) (int, error)
}

// EnsureRepository loads the repository |name|, creating it if it does not
// exist.
func EnsureRepository(ctx context.Context, ri RepositoryIndex, name string) (Index, error) {
	idx, err := ri.CreateRepository(ctx, name)
	if err == nil {
		return idx, nil
	}
	if vcserr.Is(err, vcserr.ErrRepositoryAlreadyExists) {
		return ri.LoadRepository(ctx, name)
	}
	return nil, err
}

// listCommits implements ListCommits on top of GetCommit.
func listCommits(ctx context.Context, cr vcsdb.CommitReader, query ListCommitsQuery) ([]*vcsdb.Commit, error) {
	var out []*vcsdb.Commit
	seen := make(map[string]struct{})
	for _, id := range query.CommitIDs {
		history, err := vcsdb.CommitHistory(ctx, cr, id, query.Depth)
		if err != nil {
			return nil, err
		}
		for _, cm := range history {
			if _, ok := seen[cm.ID]; ok {
				continue
			}
			seen[cm.ID] = struct{}{}
			out = append(out, cm)
		}
	}
	return out, nil
}

var repositoryNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// ValidateRepositoryName rejects names that cannot be used in urls and keys.
func ValidateRepositoryName(name string) error {
	if !repositoryNameRegex.MatchString(name) {
		return vcserr.ErrInvalidRepoName.New(name)
	}
	return nil
}
