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

package index_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dolthub/assetvcs/libraries/assetcore/index"
	"github.com/dolthub/assetvcs/libraries/assetcore/index/indextest"
	"github.com/dolthub/assetvcs/libraries/assetcore/vcserr"
)

func TestMemIndex(t *testing.T) {
	indextest.RunIndexTests(t, func(t *testing.T) index.RepositoryIndex {
		return index.NewMemRepositoryIndex()
	})
}

func TestSQLiteIndex(t *testing.T) {
	indextest.RunIndexTests(t, func(t *testing.T) index.RepositoryIndex {
		ri, err := index.Open(context.Background(), "sqlite://"+filepath.Join(t.TempDir(), "index.db"))
		require.NoError(t, err)
		return ri
	})
}

func TestSQLiteIndexPersists(t *testing.T) {
	ctx := context.Background()
	u := "sqlite://" + filepath.Join(t.TempDir(), "index.db")

	ri, err := index.Open(ctx, u)
	require.NoError(t, err)
	indextest.NewRepo(t, ri, "game")
	require.NoError(t, ri.Close())

	ri, err = index.Open(ctx, u)
	require.NoError(t, err)
	defer ri.Close()

	idx, err := ri.LoadRepository(ctx, "game")
	require.NoError(t, err)
	b, err := idx.GetBranch(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, "root", b.Head)
}

func TestOpenMemIsShared(t *testing.T) {
	ctx := context.Background()
	name := "mem://" + uuid.NewString()

	a, err := index.Open(ctx, name)
	require.NoError(t, err)
	b, err := index.Open(ctx, name)
	require.NoError(t, err)
	other, err := index.Open(ctx, "mem://"+uuid.NewString())
	require.NoError(t, err)

	_, err = a.CreateRepository(ctx, "game")
	require.NoError(t, err)

	_, err = b.LoadRepository(ctx, "game")
	assert.NoError(t, err)
	_, err = other.LoadRepository(ctx, "game")
	assert.True(t, vcserr.Is(err, vcserr.ErrRepositoryNotFound))
}

func TestOpenRejectsUnknownScheme(t *testing.T) {
	_, err := index.Open(context.Background(), "ftp://example.com/index")
	require.Error(t, err)
	assert.True(t, vcserr.IsCategory(err, vcserr.InvalidArgument))
}

func TestRemoteErrorsKeepTheirKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := vcserr.ErrBranchNotFound.New("feature")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(index.HTTPStatus(err))
		w.Write([]byte(`{"code":"` + vcserr.Code(err) + `","category":"not_found","message":"` + err.Error() + `"}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	ri := index.NewRemoteRepositoryIndex(srv.URL, srv.Client())
	idx, err := ri.LoadRepository(ctx, "game")
	require.Error(t, err)
	assert.Nil(t, idx)
	assert.True(t, vcserr.Is(err, vcserr.ErrBranchNotFound))
	assert.True(t, vcserr.IsCategory(err, vcserr.NotFound))
	assert.Contains(t, err.Error(), "feature")
}

func TestRemoteRetriesReads(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"repositories":["game"]}`))
	}))
	defer srv.Close()

	ri := index.NewRemoteRepositoryIndex(srv.URL, srv.Client())
	names, err := ri.ListRepositories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"game"}, names)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRemoteDoesNotRetryWrites(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ri := index.NewRemoteRepositoryIndex(srv.URL, srv.Client())
	_, err := ri.CreateRepository(context.Background(), "game")
	require.Error(t, err)
	assert.True(t, vcserr.IsCategory(err, vcserr.Backend))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, index.HTTPStatus(vcserr.ErrCommitNotFound.New("c")))
	assert.Equal(t, http.StatusConflict, index.HTTPStatus(vcserr.ErrStaleBranch.New("main", "c")))
	assert.Equal(t, http.StatusConflict, index.HTTPStatus(vcserr.ErrLockAlreadyExists.New("a", "d")))
	assert.Equal(t, http.StatusBadRequest, index.HTTPStatus(vcserr.ErrInvalidRepoName.New("x y")))
	assert.Equal(t, http.StatusInternalServerError, index.HTTPStatus(vcserr.Backendf(assert.AnError, "boom")))
}
