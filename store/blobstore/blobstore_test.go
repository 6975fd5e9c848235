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
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[*in.Bucket+"/"+*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[*in.Bucket+"/"+*in.Key]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func testBlobstores(t *testing.T) map[string]Blobstore {
	local, err := NewLocalBlobstore(t.TempDir())
	require.NoError(t, err)

	return map[string]Blobstore{
		"inmem":  NewInMemoryBlobstore("test"),
		"local":  local,
		"snappy": NewSnappyBlobstore(NewInMemoryBlobstore("test")),
		"s3":     NewS3Blobstore(newFakeS3(), "bucket", "blobs"),
	}
}

func TestBlobstores(t *testing.T) {
	ctx := context.Background()
	for name, bs := range testBlobstores(t) {
		t.Run(name, func(t *testing.T) {
			const key = "ABCDEF0123456789"
			data := []byte(strings.Repeat("asset data ", 100))

			ok, err := bs.Exists(ctx, key)
			require.NoError(t, err)
			assert.False(t, ok)

			_, err = bs.Get(ctx, key)
			assert.True(t, IsNotFoundError(err))

			require.NoError(t, PutBytes(ctx, bs, key, data))
			ok, err = bs.Exists(ctx, key)
			require.NoError(t, err)
			assert.True(t, ok)

			got, err := GetBytes(ctx, bs, key)
			require.NoError(t, err)
			assert.Equal(t, data, got)

			// putting the same content again is allowed
			require.NoError(t, PutBytes(ctx, bs, key, data))
			got, err = GetBytes(ctx, bs, key)
			require.NoError(t, err)
			assert.Equal(t, data, got)

			require.NoError(t, PutBytes(ctx, bs, "empty", nil))
			got, err = GetBytes(ctx, bs, "empty")
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestSnappyCompresses(t *testing.T) {
	ctx := context.Background()
	inner := NewInMemoryBlobstore("")
	bs := NewSnappyBlobstore(inner)

	data := []byte(strings.Repeat("a", 10000))
	require.NoError(t, PutBytes(ctx, bs, "k", data))

	raw, err := GetBytes(ctx, inner, "k")
	require.NoError(t, err)
	assert.Less(t, len(raw), len(data))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	a, err := Open(ctx, "mem://shared")
	require.NoError(t, err)
	b, err := Open(ctx, "mem://shared")
	require.NoError(t, err)
	require.NoError(t, PutBytes(ctx, a, "k", []byte("v")))
	ok, err := b.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	dir := t.TempDir()
	fs, err := Open(ctx, "file://"+dir+"?compress=snappy")
	require.NoError(t, err)
	assert.IsType(t, &SnappyBlobstore{}, fs)
	assert.Equal(t, dir, fs.Path())

	_, err = Open(ctx, "ftp://nope")
	assert.Error(t, err)
	_, err = Open(ctx, "mem://x?compress=zip")
	assert.Error(t, err)
}
