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

package index

import (
	"context"
	"sort"
	"sync"

	"github.com/dolthub/assetvcs/libraries/assetcore/tree"
	"github.com/dolthub/assetvcs/libraries/assetcore/vcsdb"
	"github.com/dolthub/assetvcs/libraries/assetcore/vcserr"
	"github.com/dolthub/assetvcs/libraries/utils/keymutex"
	"github.com/dolthub/assetvcs/store/hash"
)

// MemRepositoryIndex keeps repositories in process memory.
type MemRepositoryIndex struct {
	mu    sync.Mutex
	repos map[string]*MemIndex
}

var _ RepositoryIndex = &MemRepositoryIndex{}

func NewMemRepositoryIndex() *MemRepositoryIndex {
	return &MemRepositoryIndex{repos: make(map[string]*MemIndex)}
}

func (ri *MemRepositoryIndex) CreateRepository(ctx context.Context, name string) (Index, error) {
	if err := ValidateRepositoryName(name); err != nil {
		return nil, err
	}

	ri.mu.Lock()
	defer ri.mu.Unlock()

	if _, ok := ri.repos[name]; ok {
		return nil, vcserr.ErrRepositoryAlreadyExists.New(name)
	}

	idx := newMemIndex(name)
	ri.repos[name] = idx
	return idx, nil
}

func (ri *MemRepositoryIndex) DestroyRepository(ctx context.Context, name string) error {
	ri.mu.Lock()
	defer ri.mu.Unlock()

	if _, ok := ri.repos[name]; !ok {
		return vcserr.ErrRepositoryNotFound.New(name)
	}
	delete(ri.repos, name)
	return nil
}

func (ri *MemRepositoryIndex) LoadRepository(ctx context.Context, name string) (Index, error) {
	ri.mu.Lock()
	defer ri.mu.Unlock()

	idx, ok := ri.repos[name]
	if !ok {
		return nil, vcserr.ErrRepositoryNotFound.New(name)
	}
	return idx, nil
}

func (ri *MemRepositoryIndex) ListRepositories(ctx context.Context) ([]string, error) {
	ri.mu.Lock()
	defer ri.mu.Unlock()

	names := make([]string, 0, len(ri.repos))
	for name := range ri.repos {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (ri *MemRepositoryIndex) Close() error {
	return nil
}

// MemIndex is the in memory Index of a single repository. Maps are guarded by
// |mu|; the compare-and-swap of a branch head additionally holds the branch's
// key in |branchLocks| so that commits to different branches do not wait on
// each other while their commits are copied in.
type MemIndex struct {
	name        string
	mu          sync.RWMutex
	branchLocks keymutex.Keymutex

	branches map[string]vcsdb.Branch
	commits  map[string]*vcsdb.Commit
	trees    map[hash.Hash][]byte
	locks    map[string]map[string]vcsdb.Lock
}

var _ Index = &MemIndex{}

func newMemIndex(name string) *MemIndex {
	return &MemIndex{
		name:        name,
		branchLocks: keymutex.NewMapped(),
		branches:    make(map[string]vcsdb.Branch),
		commits:     make(map[string]*vcsdb.Commit),
		trees:       make(map[hash.Hash][]byte),
		locks:       make(map[string]map[string]vcsdb.Lock),
	}
}

func (idx *MemIndex) RepositoryName() string {
	return idx.name
}

func (idx *MemIndex) GetBranch(ctx context.Context, name string) (vcsdb.Branch, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	b, ok := idx.branches[name]
	if !ok {
		return vcsdb.Branch{}, vcserr.ErrBranchNotFound.New(name)
	}
	return b, nil
}

func (idx *MemIndex) ListBranches(ctx context.Context, query ListBranchesQuery) ([]vcsdb.Branch, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]vcsdb.Branch, 0, len(idx.branches))
	for _, b := range idx.branches {
		if query.LockDomainID == "" || query.LockDomainID == b.LockDomainID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (idx *MemIndex) InsertBranch(ctx context.Context, branch vcsdb.Branch) error {
	if err := vcsdb.ValidateBranchName(branch.Name); err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.branches[branch.Name]; ok {
		return vcserr.ErrBranchAlreadyExists.New(branch.Name)
	}
	idx.branches[branch.Name] = branch
	return nil
}

func (idx *MemIndex) UpdateBranch(ctx context.Context, branch vcsdb.Branch, prevHead string) error {
	if err := idx.branchLocks.Lock(ctx, branch.Name); err != nil {
		return err
	}
	defer idx.branchLocks.Unlock(branch.Name)

	if err := idx.checkHead(branch.Name, prevHead); err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.branches[branch.Name] = branch
	return nil
}

func (idx *MemIndex) checkHead(name, expected string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	cur, ok := idx.branches[name]
	if !ok {
		return vcserr.ErrBranchNotFound.New(name)
	}
	if cur.Head != expected {
		return vcserr.ErrStaleBranch.New(name, cur.Head)
	}
	return nil
}

func (idx *MemIndex) GetCommit(ctx context.Context, id string) (*vcsdb.Commit, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	cm, ok := idx.commits[id]
	if !ok {
		return nil, vcserr.ErrCommitNotFound.New(id)
	}
	return cloneCommit(cm), nil
}

func (idx *MemIndex) ListCommits(ctx context.Context, query ListCommitsQuery) ([]*vcsdb.Commit, error) {
	return listCommits(ctx, idx, query)
}

func (idx *MemIndex) CommitToBranch(ctx context.Context, commit *vcsdb.Commit, branch vcsdb.Branch) (string, error) {
	if err := idx.branchLocks.Lock(ctx, branch.Name); err != nil {
		return "", err
	}
	defer idx.branchLocks.Unlock(branch.Name)

	if err := idx.checkHead(branch.Name, branch.Head); err != nil {
		return "", err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.commits[commit.ID]; ok {
		return "", vcserr.ErrCommitAlreadyExists.New(commit.ID)
	}
	idx.commits[commit.ID] = cloneCommit(commit)

	branch.Head = commit.ID
	idx.branches[branch.Name] = branch
	return commit.ID, nil
}

func (idx *MemIndex) GetTree(ctx context.Context, h hash.Hash) (*tree.Tree, error) {
	idx.mu.RLock()
	data, ok := idx.trees[h]
	idx.mu.RUnlock()

	if !ok {
		return nil, vcserr.ErrTreeNotFound.New(h.String())
	}
	return tree.Unmarshal(data)
}

func (idx *MemIndex) SaveTree(ctx context.Context, t *tree.Tree) (hash.Hash, error) {
	data, err := t.Marshal()
	if err != nil {
		return hash.Hash{}, err
	}
	h := t.Hash()

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.trees[h] = data
	return h, nil
}

func (idx *MemIndex) Lock(ctx context.Context, lock vcsdb.Lock) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	domain, ok := idx.locks[lock.LockDomainID]
	if !ok {
		domain = make(map[string]vcsdb.Lock)
		idx.locks[lock.LockDomainID] = domain
	}
	if _, ok := domain[lock.Key()]; ok {
		return vcserr.ErrLockAlreadyExists.New(lock.RelativePath, lock.LockDomainID)
	}
	domain[lock.Key()] = lock
	return nil
}

func (idx *MemIndex) GetLock(ctx context.Context, lockDomainID, relativePath string) (vcsdb.Lock, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	l, ok := idx.locks[lockDomainID][vcsdb.LockKey(relativePath)]
	if !ok {
		return vcsdb.Lock{}, vcserr.ErrLockNotFound.New(relativePath, lockDomainID)
	}
	return l, nil
}

func (idx *MemIndex) ListLocks(ctx context.Context, query ListLocksQuery) ([]vcsdb.Lock, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var out []vcsdb.Lock
	for domainID, domain := range idx.locks {
		if !matchesDomain(query, domainID) {
			continue
		}
		for _, l := range domain {
			out = append(out, l)
		}
	}
	sortLocks(out)
	return out, nil
}

func (idx *MemIndex) Unlock(ctx context.Context, lockDomainID, relativePath string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	key := vcsdb.LockKey(relativePath)
	if _, ok := idx.locks[lockDomainID][key]; !ok {
		return vcserr.ErrLockNotFound.New(relativePath, lockDomainID)
	}
	delete(idx.locks[lockDomainID], key)
	return nil
}

func (idx *MemIndex) CountLocks(ctx context.Context, query ListLocksQuery) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n := 0
	for domainID, domain := range idx.locks {
		if matchesDomain(query, domainID) {
			n += len(domain)
		}
	}
	return n, nil
}

func matchesDomain(query ListLocksQuery, domainID string) bool {
	if len(query.LockDomainIDs) == 0 {
		return true
	}
	for _, id := range query.LockDomainIDs {
		if id == domainID {
			return true
		}
	}
	return false
}

func sortLocks(locks []vcsdb.Lock) {
	sort.Slice(locks, func(i, j int) bool {
		if locks[i].LockDomainID != locks[j].LockDomainID {
			return locks[i].LockDomainID < locks[j].LockDomainID
		}
		return locks[i].Key() < locks[j].Key()
	})
}

func cloneCommit(cm *vcsdb.Commit) *vcsdb.Commit {
	out := *cm
	out.Changes = append([]vcsdb.HashedChange{}, cm.Changes...)
	out.Parents = append([]string{}, cm.Parents...)
	return &out
}
