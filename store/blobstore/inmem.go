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

package blobstore

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// InMemoryBlobstore provides an in memory implementation of the Blobstore interface
type InMemoryBlobstore struct {
	path  string
	mutex sync.RWMutex
	blobs map[string][]byte
}

var _ Blobstore = &InMemoryBlobstore{}

// NewInMemoryBlobstore creates an instance of an InMemoryBlobstore
func NewInMemoryBlobstore(path string) *InMemoryBlobstore {
	return &InMemoryBlobstore{
		path:  path,
		blobs: make(map[string][]byte),
	}
}

func (bs *InMemoryBlobstore) Path() string {
	return bs.path
}

// Get retrieves an io.ReadCloser for the blob stored under |key|.
func (bs *InMemoryBlobstore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	bs.mutex.RLock()
	defer bs.mutex.RUnlock()

	if val, ok := bs.blobs[key]; ok {
		return io.NopCloser(bytes.NewReader(val)), nil
	}

	return nil, NotFound{key}
}

// Put sets the blob for a key
func (bs *InMemoryBlobstore) Put(ctx context.Context, key string, totalSize int64, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	bs.mutex.Lock()
	defer bs.mutex.Unlock()
	bs.blobs[key] = data
	return nil
}

// Exists returns true if a blob exists for the given key, and false if it does not.
// For InMemoryBlobstore instances error should never be returned (though other
// implementations of this interface can)
func (bs *InMemoryBlobstore) Exists(ctx context.Context, key string) (bool, error) {
	bs.mutex.RLock()
	defer bs.mutex.RUnlock()
	_, ok := bs.blobs[key]
	return ok, nil
}

// Len returns the number of stored blobs.
func (bs *InMemoryBlobstore) Len() int {
	bs.mutex.RLock()
	defer bs.mutex.RUnlock()
	return len(bs.blobs)
}
