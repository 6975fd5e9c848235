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

	"github.com/golang/snappy"
)

// SnappyBlobstore compresses blobs with snappy before handing them to the
// wrapped Blobstore. Keys are unchanged, so the key of a blob remains the hash
// of its uncompressed contents.
type SnappyBlobstore struct {
	bs Blobstore
}

var _ Blobstore = &SnappyBlobstore{}

func NewSnappyBlobstore(bs Blobstore) *SnappyBlobstore {
	return &SnappyBlobstore{bs: bs}
}

func (sb *SnappyBlobstore) Path() string {
	return sb.bs.Path()
}

func (sb *SnappyBlobstore) Exists(ctx context.Context, key string) (bool, error) {
	return sb.bs.Exists(ctx, key)
}

func (sb *SnappyBlobstore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := sb.bs.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return &snappyReadCloser{Reader: snappy.NewReader(rc), inner: rc}, nil
}

func (sb *SnappyBlobstore) Put(ctx context.Context, key string, totalSize int64, reader io.Reader) error {
	var buf bytes.Buffer
	w := snappy.NewBufferedWriter(&buf)
	if _, err := io.Copy(w, reader); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return sb.bs.Put(ctx, key, int64(buf.Len()), &buf)
}

type snappyReadCloser struct {
	*snappy.Reader
	inner io.Closer
}

func (rc *snappyReadCloser) Close() error {
	return rc.inner.Close()
}
