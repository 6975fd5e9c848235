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
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
)

const (
	// MemScheme selects an InMemoryBlobstore. Blobstores opened with the same
	// mem url share their contents for the life of the process.
	MemScheme = "mem"
	// FileScheme selects a LocalBlobstore.
	FileScheme = "file"
	// S3Scheme selects an S3Blobstore, s3://bucket/prefix.
	S3Scheme = "s3"
)

var memStoresMu sync.Mutex
var memStores = map[string]*InMemoryBlobstore{}

// Open returns the Blobstore described by |urlStr|. A compress=snappy query
// parameter wraps the store in a SnappyBlobstore.
func Open(ctx context.Context, urlStr string) (Blobstore, error) {
	u, err := url.Parse(urlStr)
	if err != nil {
		return nil, err
	}

	var bs Blobstore
	switch strings.ToLower(u.Scheme) {
	case MemScheme:
		key := u.Host + u.Path
		memStoresMu.Lock()
		mem, ok := memStores[key]
		if !ok {
			mem = NewInMemoryBlobstore(key)
			memStores[key] = mem
		}
		memStoresMu.Unlock()
		bs = mem
	case FileScheme, "":
		p := u.Path
		if u.Host != "" {
			p = filepath.Join(u.Host, p)
		}
		bs, err = NewLocalBlobstore(filepath.FromSlash(p))
	case S3Scheme:
		bs, err = OpenS3Blobstore(ctx, u.Host, strings.TrimPrefix(u.Path, "/"))
	default:
		return nil, fmt.Errorf("unsupported blobstore scheme %q", u.Scheme)
	}
	if err != nil {
		return nil, err
	}

	switch c := u.Query().Get("compress"); c {
	case "":
	case "snappy":
		bs = NewSnappyBlobstore(bs)
	default:
		return nil, fmt.Errorf("unsupported blob compression %q", c)
	}

	return bs, nil
}
