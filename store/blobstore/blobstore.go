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

// Package blobstore stores file contents by key. Keys are content hashes, so
// a Put of a key that already exists stores the same bytes again and is
// allowed to be a no-op.
package blobstore

import (
	"bytes"
	"context"
	"io"
)

// Blobstore is an interface for storing and retrieving blobs of data by key
type Blobstore interface {
	// Path returns this blobstore's path.
	Path() string

	// Exists returns true if a blob keyed by |key| exists.
	Exists(ctx context.Context, key string) (bool, error)

	// Get returns a reader for the blob keyed by |key|. It returns a NotFound
	// error if there is no such blob.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Put stores the contents of |reader| under |key|.
	Put(ctx context.Context, key string, totalSize int64, reader io.Reader) error
}

// GetBytes is a utility method that reads a whole blob into memory.
func GetBytes(ctx context.Context, bs Blobstore, key string) ([]byte, error) {
	rc, err := bs.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// PutBytes is a utility method that stores |data| under |key|.
func PutBytes(ctx context.Context, bs Blobstore, key string, data []byte) error {
	return bs.Put(ctx, key, int64(len(data)), bytes.NewReader(data))
}
