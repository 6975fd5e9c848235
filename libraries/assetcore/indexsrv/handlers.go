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
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"

	"github.com/dolthub/assetvcs/libraries/assetcore/index"
	"github.com/dolthub/assetvcs/libraries/assetcore/tree"
	"github.com/dolthub/assetvcs/libraries/assetcore/vcsdb"
	"github.com/dolthub/assetvcs/libraries/assetcore/vcserr"
	"github.com/dolthub/assetvcs/store/hash"
)

const reposPath = index.APIPrefix + "/repositories"

type handlerFunc func(ctx context.Context, r *http.Request, ps httprouter.Params) (interface{}, error)

// repoHandlerFunc handles a request addressed to a single repository.
type repoHandlerFunc func(ctx context.Context, idx index.Index, r *http.Request, ps httprouter.Params) (interface{}, error)

func (s *Server) routes() *httprouter.Router {
	router := httprouter.New()

	router.GET(reposPath, s.handle("list_repositories", false, s.listRepositories))
	router.POST(reposPath+"/:repo", s.handle("create_repository", true, s.createRepository))
	router.DELETE(reposPath+"/:repo", s.handle("destroy_repository", true, s.destroyRepository))
	router.GET(reposPath+"/:repo", s.handle("load_repository", false, s.loadRepository))

	router.GET(reposPath+"/:repo/branches", s.handleRepo("list_branches", false, listBranches))
	router.POST(reposPath+"/:repo/branches", s.handleRepo("insert_branch", true, insertBranch))
	router.GET(reposPath+"/:repo/branches/:branch", s.handleRepo("get_branch", false, getBranch))
	router.PUT(reposPath+"/:repo/branches/:branch", s.handleRepo("update_branch", true, s.updateBranch))

	router.GET(reposPath+"/:repo/commits/:id", s.handleRepo("get_commit", false, getCommit))
	router.POST(reposPath+"/:repo/commits", s.handleRepo("commit_to_branch", true, s.commitToBranch))
	router.POST(reposPath+"/:repo/commit-list", s.handleRepo("list_commits", false, listCommits))

	router.GET(reposPath+"/:repo/trees/:hash", s.handleRepo("get_tree", false, getTree))
	router.POST(reposPath+"/:repo/trees", s.handleRepo("save_tree", true, saveTree))

	router.POST(reposPath+"/:repo/locks", s.handleRepo("lock", true, s.lock))
	router.GET(reposPath+"/:repo/locks", s.handleRepo("list_locks", false, listLocks))
	router.GET(reposPath+"/:repo/locks/count", s.handleRepo("count_locks", false, countLocks))
	router.GET(reposPath+"/:repo/lock", s.handleRepo("get_lock", false, getLock))
	router.DELETE(reposPath+"/:repo/lock", s.handleRepo("unlock", true, unlock))

	return router
}

func (s *Server) handle(route string, write bool, fn handlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		lgr := s.lgr.WithFields(logrus.Fields{
			"route":  route,
			"method": r.Method,
			"path":   r.URL.Path,
		})

		var resp interface{}
		var err error
		if write && s.readOnly {
			err = vcserr.ErrReadOnly.New()
		} else {
			resp, err = fn(r.Context(), r, ps)
		}

		status := http.StatusOK
		if err != nil {
			status = index.HTTPStatus(err)
			if status == http.StatusInternalServerError {
				lgr.WithError(err).Error("request failed")
			} else {
				lgr.WithError(err).Debug("request rejected")
			}
			resp = index.NewWireError(err)
		} else if resp == nil {
			resp = struct{}{}
		}
		s.metrics.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			lgr.WithError(err).Warn("writing response")
		}
	}
}

func (s *Server) handleRepo(route string, write bool, fn repoHandlerFunc) httprouter.Handle {
	return s.handle(route, write, func(ctx context.Context, r *http.Request, ps httprouter.Params) (interface{}, error) {
		idx, err := s.ri.LoadRepository(ctx, ps.ByName("repo"))
		if err != nil {
			return nil, err
		}
		return fn(ctx, idx, r, ps)
	})
}

func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return vcserr.ErrInvalidArgument.New("malformed request body: " + err.Error())
	}
	return nil
}

func (s *Server) listRepositories(ctx context.Context, r *http.Request, ps httprouter.Params) (interface{}, error) {
	names, err := s.ri.ListRepositories(ctx)
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return index.ListRepositoriesResponse{Repositories: names}, nil
}

func (s *Server) createRepository(ctx context.Context, r *http.Request, ps httprouter.Params) (interface{}, error) {
	_, err := s.ri.CreateRepository(ctx, ps.ByName("repo"))
	if err == nil {
		s.lgr.Infof("created repository %s", ps.ByName("repo"))
	}
	return nil, err
}

func (s *Server) destroyRepository(ctx context.Context, r *http.Request, ps httprouter.Params) (interface{}, error) {
	err := s.ri.DestroyRepository(ctx, ps.ByName("repo"))
	if err == nil {
		s.lgr.Infof("destroyed repository %s", ps.ByName("repo"))
	}
	return nil, err
}

func (s *Server) loadRepository(ctx context.Context, r *http.Request, ps httprouter.Params) (interface{}, error) {
	_, err := s.ri.LoadRepository(ctx, ps.ByName("repo"))
	return nil, err
}

func listBranches(ctx context.Context, idx index.Index, r *http.Request, ps httprouter.Params) (interface{}, error) {
	branches, err := idx.ListBranches(ctx, index.ListBranchesQuery{LockDomainID: r.URL.Query().Get("lock_domain_id")})
	if err != nil {
		return nil, err
	}
	if branches == nil {
		branches = []vcsdb.Branch{}
	}
	return branches, nil
}

func insertBranch(ctx context.Context, idx index.Index, r *http.Request, ps httprouter.Params) (interface{}, error) {
	var b vcsdb.Branch
	if err := decodeBody(r, &b); err != nil {
		return nil, err
	}
	return nil, idx.InsertBranch(ctx, b)
}

func getBranch(ctx context.Context, idx index.Index, r *http.Request, ps httprouter.Params) (interface{}, error) {
	return idx.GetBranch(ctx, ps.ByName("branch"))
}

func (s *Server) updateBranch(ctx context.Context, idx index.Index, r *http.Request, ps httprouter.Params) (interface{}, error) {
	var req index.UpdateBranchRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	if req.Branch.Name != ps.ByName("branch") {
		return nil, vcserr.ErrInvalidArgument.New("branch name in body does not match the url")
	}

	err := idx.UpdateBranch(ctx, req.Branch, req.PrevHead)
	s.countStale(idx, err)
	return nil, err
}

func getCommit(ctx context.Context, idx index.Index, r *http.Request, ps httprouter.Params) (interface{}, error) {
	return idx.GetCommit(ctx, ps.ByName("id"))
}

func listCommits(ctx context.Context, idx index.Index, r *http.Request, ps httprouter.Params) (interface{}, error) {
	var query index.ListCommitsQuery
	if err := decodeBody(r, &query); err != nil {
		return nil, err
	}
	cms, err := idx.ListCommits(ctx, query)
	if err != nil {
		return nil, err
	}
	if cms == nil {
		cms = []*vcsdb.Commit{}
	}
	return cms, nil
}

func (s *Server) commitToBranch(ctx context.Context, idx index.Index, r *http.Request, ps httprouter.Params) (interface{}, error) {
	var req index.CommitToBranchRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	if req.Commit == nil {
		return nil, vcserr.ErrInvalidArgument.New("request has no commit")
	}

	c := req.Commit
	cm, err := vcsdb.NewCommit(c.ID, c.Owner, c.Message, c.Changes, c.RootHash, c.Parents, c.Timestamp)
	if err != nil {
		return nil, err
	}

	head, err := idx.CommitToBranch(ctx, cm, req.Branch)
	if err != nil {
		s.countStale(idx, err)
		return nil, err
	}
	return index.CommitToBranchResponse{Head: head}, nil
}

func (s *Server) countStale(idx index.Index, err error) {
	if err != nil && vcserr.Is(err, vcserr.ErrStaleBranch) {
		s.metrics.casRejections.WithLabelValues(idx.RepositoryName()).Inc()
	}
}

func getTree(ctx context.Context, idx index.Index, r *http.Request, ps httprouter.Params) (interface{}, error) {
	h, ok := hash.MaybeParse(ps.ByName("hash"))
	if !ok {
		return nil, vcserr.ErrInvalidArgument.New("`" + ps.ByName("hash") + "` is not a tree hash")
	}
	return idx.GetTree(ctx, h)
}

func saveTree(ctx context.Context, idx index.Index, r *http.Request, ps httprouter.Params) (interface{}, error) {
	t := tree.NewTree()
	if err := decodeBody(r, t); err != nil {
		return nil, err
	}
	h, err := idx.SaveTree(ctx, t)
	if err != nil {
		return nil, err
	}
	return index.SaveTreeResponse{Hash: h}, nil
}

func (s *Server) lock(ctx context.Context, idx index.Index, r *http.Request, ps httprouter.Params) (interface{}, error) {
	var l vcsdb.Lock
	if err := decodeBody(r, &l); err != nil {
		return nil, err
	}
	if l.LockDomainID == "" || l.RelativePath == "" {
		return nil, vcserr.ErrInvalidArgument.New("a lock needs a lock domain and a path")
	}

	err := idx.Lock(ctx, l)
	if err != nil && vcserr.Is(err, vcserr.ErrLockAlreadyExists) {
		s.metrics.lockConflicts.Inc()
	}
	return nil, err
}

func lockQuery(r *http.Request) index.ListLocksQuery {
	return index.ListLocksQuery{LockDomainIDs: r.URL.Query()["lock_domain_id"]}
}

func listLocks(ctx context.Context, idx index.Index, r *http.Request, ps httprouter.Params) (interface{}, error) {
	locks, err := idx.ListLocks(ctx, lockQuery(r))
	if err != nil {
		return nil, err
	}
	if locks == nil {
		locks = []vcsdb.Lock{}
	}
	return locks, nil
}

func countLocks(ctx context.Context, idx index.Index, r *http.Request, ps httprouter.Params) (interface{}, error) {
	n, err := idx.CountLocks(ctx, lockQuery(r))
	if err != nil {
		return nil, err
	}
	return index.CountLocksResponse{Count: n}, nil
}

func getLock(ctx context.Context, idx index.Index, r *http.Request, ps httprouter.Params) (interface{}, error) {
	q := r.URL.Query()
	return idx.GetLock(ctx, q.Get("lock_domain_id"), q.Get("relative_path"))
}

func unlock(ctx context.Context, idx index.Index, r *http.Request, ps httprouter.Params) (interface{}, error) {
	q := r.URL.Query()
	return nil, idx.Unlock(ctx, q.Get("lock_domain_id"), q.Get("relative_path"))
}
