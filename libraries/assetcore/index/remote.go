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

package index

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"

	"github.com/dolthub/assetvcs/libraries/assetcore/tree"
	"github.com/dolthub/assetvcs/libraries/assetcore/vcsdb"
	"github.com/dolthub/assetvcs/libraries/assetcore/vcserr"
	"github.com/dolthub/assetvcs/store/hash"
)

const defaultReadRetries = 3

// RemoteRepositoryIndex talks to an index server over http. Reads are
// retried with exponential backoff when the server cannot be reached or fails
// internally; writes are sent exactly once.
type RemoteRepositoryIndex struct {
	baseURL     string
	client      *http.Client
	readRetries uint64
}

var _ RepositoryIndex = &RemoteRepositoryIndex{}

// NewRemoteRepositoryIndex returns a client for the server at |baseURL|. A
// nil |client| uses a client with a 30 second timeout.
func NewRemoteRepositoryIndex(baseURL string, client *http.Client) *RemoteRepositoryIndex {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &RemoteRepositoryIndex{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		client:      client,
		readRetries: defaultReadRetries,
	}
}

func (ri *RemoteRepositoryIndex) CreateRepository(ctx context.Context, name string) (Index, error) {
	if err := ri.do(ctx, http.MethodPost, repoPath(name), nil, nil, nil); err != nil {
		return nil, err
	}
	return &RemoteIndex{ri: ri, name: name}, nil
}

func (ri *RemoteRepositoryIndex) DestroyRepository(ctx context.Context, name string) error {
	return ri.do(ctx, http.MethodDelete, repoPath(name), nil, nil, nil)
}

func (ri *RemoteRepositoryIndex) LoadRepository(ctx context.Context, name string) (Index, error) {
	if err := ri.do(ctx, http.MethodGet, repoPath(name), nil, nil, nil); err != nil {
		return nil, err
	}
	return &RemoteIndex{ri: ri, name: name}, nil
}

func (ri *RemoteRepositoryIndex) ListRepositories(ctx context.Context) ([]string, error) {
	var resp ListRepositoriesResponse
	if err := ri.do(ctx, http.MethodGet, APIPrefix+"/repositories", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Repositories, nil
}

func (ri *RemoteRepositoryIndex) Close() error {
	ri.client.CloseIdleConnections()
	return nil
}

type transportError struct {
	err error
}

func (te transportError) Error() string {
	return te.err.Error()
}

func (te transportError) Unwrap() error {
	return te.err
}

func (ri *RemoteRepositoryIndex) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}

	if method != http.MethodGet {
		return unwrapTransport(ri.roundTrip(ctx, method, path, query, payload, out))
	}

	op := func() error {
		err := ri.roundTrip(ctx, method, path, query, payload, out)
		if err == nil || isRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), ri.readRetries), ctx)
	return unwrapTransport(backoff.Retry(op, b))
}

func (ri *RemoteRepositoryIndex) roundTrip(ctx context.Context, method, path string, query url.Values, payload []byte, out interface{}) error {
	u := ri.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := ri.client.Do(req)
	if err != nil {
		return transportError{err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var we WireError
		if err := json.NewDecoder(resp.Body).Decode(&we); err != nil || we.Message == "" {
			return transportError{fmt.Errorf("index server returned %s", resp.Status)}
		}
		return we.Err()
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func isRetryable(err error) bool {
	if _, ok := err.(transportError); ok {
		return true
	}
	return vcserr.KindOf(err) == vcserr.Backend
}

func unwrapTransport(err error) error {
	if te, ok := err.(transportError); ok {
		return vcserr.Backendf(te.err, "contacting index server")
	}
	return err
}

func repoPath(name string) string {
	return APIPrefix + "/repositories/" + url.PathEscape(name)
}

// RemoteIndex is the Index of one repository served by an index server.
type RemoteIndex struct {
	ri   *RemoteRepositoryIndex
	name string
}

var _ Index = &RemoteIndex{}

func (idx *RemoteIndex) RepositoryName() string {
	return idx.name
}

func (idx *RemoteIndex) path(elems ...string) string {
	p := repoPath(idx.name)
	for _, e := range elems {
		p += "/" + url.PathEscape(e)
	}
	return p
}

func (idx *RemoteIndex) GetBranch(ctx context.Context, name string) (vcsdb.Branch, error) {
	var b vcsdb.Branch
	err := idx.ri.do(ctx, http.MethodGet, idx.path("branches", name), nil, nil, &b)
	return b, err
}

func (idx *RemoteIndex) ListBranches(ctx context.Context, query ListBranchesQuery) ([]vcsdb.Branch, error) {
	q := url.Values{}
	if query.LockDomainID != "" {
		q.Set("lock_domain_id", query.LockDomainID)
	}
	var out []vcsdb.Branch
	err := idx.ri.do(ctx, http.MethodGet, idx.path("branches"), q, nil, &out)
	return out, err
}

func (idx *RemoteIndex) InsertBranch(ctx context.Context, branch vcsdb.Branch) error {
	return idx.ri.do(ctx, http.MethodPost, idx.path("branches"), nil, branch, nil)
}

func (idx *RemoteIndex) UpdateBranch(ctx context.Context, branch vcsdb.Branch, prevHead string) error {
	return idx.ri.do(ctx, http.MethodPut, idx.path("branches", branch.Name), nil, UpdateBranchRequest{Branch: branch, PrevHead: prevHead}, nil)
}

func (idx *RemoteIndex) GetCommit(ctx context.Context, id string) (*vcsdb.Commit, error) {
	var cm vcsdb.Commit
	if err := idx.ri.do(ctx, http.MethodGet, idx.path("commits", id), nil, nil, &cm); err != nil {
		return nil, err
	}
	return &cm, nil
}

func (idx *RemoteIndex) ListCommits(ctx context.Context, query ListCommitsQuery) ([]*vcsdb.Commit, error) {
	var out []*vcsdb.Commit
	err := idx.ri.do(ctx, http.MethodPost, idx.path("commit-list"), nil, query, &out)
	return out, err
}

func (idx *RemoteIndex) CommitToBranch(ctx context.Context, commit *vcsdb.Commit, branch vcsdb.Branch) (string, error) {
	var resp CommitToBranchResponse
	err := idx.ri.do(ctx, http.MethodPost, idx.path("commits"), nil, CommitToBranchRequest{Commit: commit, Branch: branch}, &resp)
	return resp.Head, err
}

func (idx *RemoteIndex) GetTree(ctx context.Context, h hash.Hash) (*tree.Tree, error) {
	if h.IsEmpty() {
		return nil, vcserr.ErrTreeNotFound.New(h.String())
	}
	t := tree.NewTree()
	if err := idx.ri.do(ctx, http.MethodGet, idx.path("trees", h.String()), nil, nil, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (idx *RemoteIndex) SaveTree(ctx context.Context, t *tree.Tree) (hash.Hash, error) {
	var resp SaveTreeResponse
	err := idx.ri.do(ctx, http.MethodPost, idx.path("trees"), nil, t, &resp)
	return resp.Hash, err
}

func (idx *RemoteIndex) Lock(ctx context.Context, lock vcsdb.Lock) error {
	return idx.ri.do(ctx, http.MethodPost, idx.path("locks"), nil, lock, nil)
}

func lockValues(lockDomainID, relativePath string) url.Values {
	return url.Values{"lock_domain_id": {lockDomainID}, "relative_path": {relativePath}}
}

func domainValues(query ListLocksQuery) url.Values {
	return url.Values{"lock_domain_id": query.LockDomainIDs}
}

func (idx *RemoteIndex) GetLock(ctx context.Context, lockDomainID, relativePath string) (vcsdb.Lock, error) {
	var l vcsdb.Lock
	err := idx.ri.do(ctx, http.MethodGet, idx.path("lock"), lockValues(lockDomainID, relativePath), nil, &l)
	return l, err
}

func (idx *RemoteIndex) ListLocks(ctx context.Context, query ListLocksQuery) ([]vcsdb.Lock, error) {
	var out []vcsdb.Lock
	err := idx.ri.do(ctx, http.MethodGet, idx.path("locks"), domainValues(query), nil, &out)
	return out, err
}

func (idx *RemoteIndex) Unlock(ctx context.Context, lockDomainID, relativePath string) error {
	return idx.ri.do(ctx, http.MethodDelete, idx.path("lock"), lockValues(lockDomainID, relativePath), nil, nil)
}

func (idx *RemoteIndex) CountLocks(ctx context.Context, query ListLocksQuery) (int, error) {
	var resp CountLocksResponse
	err := idx.ri.do(ctx, http.MethodGet, idx.path("locks", "count"), domainValues(query), nil, &resp)
	return resp.Count, err
}
