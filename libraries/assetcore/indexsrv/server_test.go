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

package indexsrv

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dolthub/assetvcs/libraries/assetcore/index"
	"github.com/dolthub/assetvcs/libraries/assetcore/index/indextest"
	"github.com/dolthub/assetvcs/libraries/assetcore/vcsdb"
	"github.com/dolthub/assetvcs/libraries/assetcore/vcserr"
)

func newTestServer(t *testing.T, backend index.RepositoryIndex, readOnly bool) (*Server, *httptest.Server) {
	s, err := NewServer(ServerArgs{Index: backend, ReadOnly: readOnly, MetricsPath: DefaultMetricsPath})
	require.NoError(t, err)
	hs := httptest.NewServer(s.Handler())
	t.Cleanup(hs.Close)
	return s, hs
}

func TestRemoteIndex(t *testing.T) {
	indextest.RunIndexTests(t, func(t *testing.T) index.RepositoryIndex {
		_, hs := newTestServer(t, index.NewMemRepositoryIndex(), false)
		return index.NewRemoteRepositoryIndex(hs.URL, hs.Client())
	})
}

func TestReadOnlyServer(t *testing.T) {
	ctx := context.Background()
	backend := index.NewMemRepositoryIndex()
	indextest.NewRepo(t, backend, "game")

	_, hs := newTestServer(t, backend, true)
	ri := index.NewRemoteRepositoryIndex(hs.URL, hs.Client())

	idx, err := ri.LoadRepository(ctx, "game")
	require.NoError(t, err)
	b, err := idx.GetBranch(ctx, vcsdb.DefaultBranch)
	require.NoError(t, err)
	assert.Equal(t, "root", b.Head)

	err = idx.InsertBranch(ctx, vcsdb.Branch{Name: "feature", Head: "root", LockDomainID: b.LockDomainID})
	require.Error(t, err)
	assert.True(t, vcserr.Is(err, vcserr.ErrReadOnly))

	_, err = ri.CreateRepository(ctx, "other")
	assert.True(t, vcserr.Is(err, vcserr.ErrReadOnly))
}

func TestStaleBranchMetrics(t *testing.T) {
	ctx := context.Background()
	backend := index.NewMemRepositoryIndex()
	s, hs := newTestServer(t, backend, false)
	ri := index.NewRemoteRepositoryIndex(hs.URL, hs.Client())

	idx, _ := indextest.NewRepo(t, ri, "game")
	b, err := idx.GetBranch(ctx, vcsdb.DefaultBranch)
	require.NoError(t, err)

	err = idx.UpdateBranch(ctx, vcsdb.Branch{Name: b.Name, Head: "elsewhere", LockDomainID: b.LockDomainID}, "not-the-head")
	require.Error(t, err)
	assert.True(t, vcserr.Is(err, vcserr.ErrStaleBranch))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.casRejections.WithLabelValues("game")))

	require.NoError(t, idx.Lock(ctx, vcsdb.Lock{LockDomainID: "d", RelativePath: "a.bin", WorkspaceID: "w1", BranchName: "main"}))
	err = idx.Lock(ctx, vcsdb.Lock{LockDomainID: "d", RelativePath: "A.bin", WorkspaceID: "w2", BranchName: "main"})
	assert.True(t, vcserr.Is(err, vcserr.ErrLockAlreadyExists))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.lockConflicts))

	resp, err := hs.Client().Get(hs.URL + DefaultMetricsPath)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "assetvcs_index_requests")
	assert.Contains(t, string(body), "assetvcs_index_stale_branch_rejections")
}

func TestMalformedBody(t *testing.T) {
	backend := index.NewMemRepositoryIndex()
	indextest.NewRepo(t, backend, "game")
	_, hs := newTestServer(t, backend, false)

	resp, err := hs.Client().Post(hs.URL+reposPath+"/game/branches", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUnknownRepository(t *testing.T) {
	_, hs := newTestServer(t, index.NewMemRepositoryIndex(), false)

	resp, err := hs.Client().Get(hs.URL + reposPath + "/missing/branches/main")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
