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

// Package env connects a workspace to the index and blob store named by its
// spec.
package env

import (
	"context"

	"github.com/dolthub/assetvcs/libraries/assetcore/index"
	"github.com/dolthub/assetvcs/libraries/assetcore/tree"
	"github.com/dolthub/assetvcs/libraries/assetcore/vcserr"
	"github.com/dolthub/assetvcs/libraries/assetcore/workspace"
	"github.com/dolthub/assetvcs/store/blobstore"
)

// Connection holds the remote collaborators of a workspace.
type Connection struct {
	Index index.Index
	Blobs blobstore.Blobstore
	// Trees reads and writes trees through an in process cache.
	Trees tree.Store

	ri index.RepositoryIndex
}

// Connect opens the index and blob store of |spec| and loads its repository.
func Connect(ctx context.Context, spec workspace.Spec) (*Connection, error) {
	ri, err := index.Open(ctx, spec.IndexURL)
	if err != nil {
		return nil, err
	}

	idx, err := ri.LoadRepository(ctx, spec.Repository)
	if err != nil {
		ri.Close()
		return nil, err
	}

	conn, err := NewConnection(ctx, idx, nil, spec.BlobURL)
	if err != nil {
		ri.Close()
		return nil, err
	}
	conn.ri = ri
	return conn, nil
}

// NewConnection builds a Connection on an already open index. The blob store
// is |blobs| if it is non nil, and is opened from |blobURL| otherwise.
func NewConnection(ctx context.Context, idx index.Index, blobs blobstore.Blobstore, blobURL string) (*Connection, error) {
	if blobs == nil {
		var err error
		blobs, err = blobstore.Open(ctx, blobURL)
		if err != nil {
			return nil, vcserr.Backendf(err, "opening blob store %s", blobURL)
		}
	}

	trees, err := tree.NewCachingStore(idx, tree.DefaultCacheSize)
	if err != nil {
		return nil, err
	}

	return &Connection{Index: idx, Blobs: blobs, Trees: trees}, nil
}

// Close releases the repository index if the connection opened it.
func (c *Connection) Close() error {
	if c.ri == nil {
		return nil
	}
	return c.ri.Close()
}
