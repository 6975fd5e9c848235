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

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dolthub/assetvcs/store/hash"
)

// Store persists trees by their hash. SaveTree must be idempotent.
type Store interface {
	GetTree(ctx context.Context, h hash.Hash) (*Tree, error)
	SaveTree(ctx context.Context, t *Tree) (hash.Hash, error)
}

// DefaultCacheSize is the number of decoded trees a CachingStore keeps.
const DefaultCacheSize = 4096

// CachingStore keeps recently used trees in memory in front of another Store.
// Trees are immutable once saved, so cached entries never go stale.
type CachingStore struct {
	Store
	cache *lru.Cache[hash.Hash, *Tree]
}

var _ Store = &CachingStore{}

// NewCachingStore wraps |s| with an LRU of |size| trees.
func NewCachingStore(s Store, size int) (*CachingStore, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[hash.Hash, *Tree](size)
	if err != nil {
		return nil, err
	}
	return &CachingStore{Store: s, cache: cache}, nil
}

// GetTree returns a copy of the tree, which callers are free to modify.
func (cs *CachingStore) GetTree(ctx context.Context, h hash.Hash) (*Tree, error) {
	if t, ok := cs.cache.Get(h); ok {
		return t.Clone(), nil
	}
	t, err := cs.Store.GetTree(ctx, h)
	if err != nil {
		return nil, err
	}
	cs.cache.Add(h, t.Clone())
	return t, nil
}

func (cs *CachingStore) SaveTree(ctx context.Context, t *Tree) (hash.Hash, error) {
	h := t.Hash()
	if cs.cache.Contains(h) {
		return h, nil
	}
	saved, err := cs.Store.SaveTree(ctx, t)
	if err != nil {
		return hash.Hash{}, err
	}
	cs.cache.Add(saved, t.Clone())
	return saved, nil
}

// Len returns the number of cached trees.
func (cs *CachingStore) Len() int {
	return cs.cache.Len()
}
