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
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// LocalBlobstore stores blobs as files below a root directory. Blobs are
// sharded into subdirectories by the first characters of their key.
type LocalBlobstore struct {
	root string
}

var _ Blobstore = &LocalBlobstore{}

// NewLocalBlobstore creates the directory |root| if needed and returns a
// Blobstore backed by it.
func NewLocalBlobstore(root string) (*LocalBlobstore, error) {
	if err := os.MkdirAll(root, os.ModePerm); err != nil {
		return nil, errors.Wrapf(err, "creating blob directory %s", root)
	}
	return &LocalBlobstore{root: root}, nil
}

func (bs *LocalBlobstore) Path() string {
	return bs.root
}

func (bs *LocalBlobstore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(bs.blobPath(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (bs *LocalBlobstore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(bs.blobPath(key))
	if os.IsNotExist(err) {
		return nil, NotFound{key}
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Put writes the blob to a temporary file and renames it into place, so
// readers never observe a partially written blob.
func (bs *LocalBlobstore) Put(ctx context.Context, key string, totalSize int64, reader io.Reader) error {
	dest := bs.blobPath(key)
	if err := os.MkdirAll(filepath.Dir(dest), os.ModePerm); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(bs.root, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	_, err = io.Copy(tmp, reader)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.Wrapf(err, "writing blob %s", key)
	}

	return os.Rename(tmp.Name(), dest)
}

func (bs *LocalBlobstore) blobPath(key string) string {
	if len(key) < 4 {
		return filepath.Join(bs.root, key)
	}
	return filepath.Join(bs.root, key[0:2], key[2:4], key)
}
