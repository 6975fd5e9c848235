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

package workspace

import (
	"sort"
	"sync"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"github.com/dolthub/assetvcs/libraries/assetcore/vcsdb"
	"github.com/dolthub/assetvcs/libraries/utils/filesys"
)

// LocalChange is a change to a file of the workspace that has not been
// committed yet.
type LocalChange struct {
	RelativePath string           `json:"relative_path"`
	ChangeType   vcsdb.ChangeType `json:"change_type"`
}

// PendingBranchMerge records that the next commit must list Head, the head of
// branch Name at merge time, as an additional parent.
type PendingBranchMerge struct {
	Name string `json:"name"`
	Head string `json:"head"`
}

// ResolvePending is an unresolved conflict on a single path.
type ResolvePending struct {
	RelativePath   string `json:"relative_path"`
	BaseCommitID   string `json:"base_commit_id"`
	TheirsCommitID string `json:"theirs_commit_id"`
}

const (
	metaBucket    = "meta"
	changesBucket = "changes"
	mergesBucket  = "pending_merges"
	resolveBucket = "resolves_pending"

	branchKey = "current_branch"
	commitKey = "current_commit"
)

var allBuckets = []string{metaBucket, changesBucket, mergesBucket, resolveBucket}

type kvReader interface {
	get(bucket, key string) []byte
	forEach(bucket string, cb func(key string, val []byte) error) error
}

type kvWriter interface {
	kvReader
	put(bucket, key string, val []byte) error
	del(bucket, key string) error
	clear(bucket string) error
}

type kvStore interface {
	view(fn func(r kvReader) error) error
	update(fn func(w kvWriter) error) error
	close() error
}

// State is the persisted session state of a workspace: the branch and commit
// the workspace is on, its local changes, and the pending merge records. Each
// method is atomic. Paths are keyed case insensitively.
type State struct {
	kv kvStore
}

// OpenBoltState opens, creating if needed, the bbolt database at |path|.
func OpenBoltState(path string) (*State, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: stateOpenTimeout})
	if err != nil {
		return nil, errors.Wrapf(err, "opening workspace state %s", path)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(b)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating workspace state buckets")
	}

	return &State{kv: boltKV{db}}, nil
}

// OpenFileState keeps the state in a json document at |path| of |fs|. It
// serves filesystems bbolt cannot open, such as filesys.InMemFS.
func OpenFileState(fs filesys.Filesys, path string) (*State, error) {
	kv := &fileKV{fs: fs, path: path, data: newKVData()}
	if exists, _ := fs.Exists(path); exists {
		if err := filesys.UnmarshalJSONFile(fs, path, &kv.data); err != nil {
			return nil, errors.Wrapf(err, "reading workspace state %s", path)
		}
		for _, b := range allBuckets {
			if kv.data[b] == nil {
				kv.data[b] = map[string][]byte{}
			}
		}
	}
	return &State{kv: kv}, nil
}

func (s *State) Close() error {
	return s.kv.close()
}

// Head returns the branch and commit the workspace is on.
func (s *State) Head() (branch string, commit string, err error) {
	err = s.kv.view(func(r kvReader) error {
		branch = string(r.get(metaBucket, branchKey))
		commit = string(r.get(metaBucket, commitKey))
		return nil
	})
	return branch, commit, err
}

func (s *State) SetHead(branch, commit string) error {
	return s.kv.update(func(w kvWriter) error {
		return setHead(w, branch, commit)
	})
}

func setHead(w kvWriter, branch, commit string) error {
	if err := w.put(metaBucket, branchKey, []byte(branch)); err != nil {
		return err
	}
	return w.put(metaBucket, commitKey, []byte(commit))
}

// LocalChanges returns the uncommitted changes, sorted by path.
func (s *State) LocalChanges() ([]LocalChange, error) {
	var out []LocalChange
	err := s.kv.view(func(r kvReader) error {
		return forEachJSON(r, changesBucket, func() interface{} {
			out = append(out, LocalChange{})
			return &out[len(out)-1]
		})
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].RelativePath < out[j].RelativePath
	})
	return out, err
}

// GetLocalChange returns the change recorded for |relativePath|, if any.
func (s *State) GetLocalChange(relativePath string) (LocalChange, bool, error) {
	var ch LocalChange
	var ok bool
	err := s.kv.view(func(r kvReader) error {
		data := r.get(changesBucket, vcsdb.LockKey(relativePath))
		if data == nil {
			return nil
		}
		ok = true
		return json.Unmarshal(data, &ch)
	})
	return ch, ok, err
}

func (s *State) PutLocalChange(ch LocalChange) error {
	return s.kv.update(func(w kvWriter) error {
		return putJSON(w, changesBucket, vcsdb.LockKey(ch.RelativePath), ch)
	})
}

func (s *State) DeleteLocalChange(relativePath string) error {
	return s.kv.update(func(w kvWriter) error {
		return w.del(changesBucket, vcsdb.LockKey(relativePath))
	})
}

// PendingMerges returns the recorded branch merges, sorted by branch name.
func (s *State) PendingMerges() ([]PendingBranchMerge, error) {
	var out []PendingBranchMerge
	err := s.kv.view(func(r kvReader) error {
		return forEachJSON(r, mergesBucket, func() interface{} {
			out = append(out, PendingBranchMerge{})
			return &out[len(out)-1]
		})
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out, err
}

// AddPendingMerge records a merge of branch |pm.Name|, replacing an earlier
// record for the same branch.
func (s *State) AddPendingMerge(pm PendingBranchMerge) error {
	return s.kv.update(func(w kvWriter) error {
		return putJSON(w, mergesBucket, pm.Name, pm)
	})
}

// ResolvesPending returns the unresolved conflicts, sorted by path.
func (s *State) ResolvesPending() ([]ResolvePending, error) {
	var out []ResolvePending
	err := s.kv.view(func(r kvReader) error {
		return forEachJSON(r, resolveBucket, func() interface{} {
			out = append(out, ResolvePending{})
			return &out[len(out)-1]
		})
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].RelativePath < out[j].RelativePath
	})
	return out, err
}

func (s *State) GetResolvePending(relativePath string) (ResolvePending, bool, error) {
	var rp ResolvePending
	var ok bool
	err := s.kv.view(func(r kvReader) error {
		data := r.get(resolveBucket, vcsdb.LockKey(relativePath))
		if data == nil {
			return nil
		}
		ok = true
		return json.Unmarshal(data, &rp)
	})
	return rp, ok, err
}

func (s *State) PutResolvePending(rp ResolvePending) error {
	return s.kv.update(func(w kvWriter) error {
		return putJSON(w, resolveBucket, vcsdb.LockKey(rp.RelativePath), rp)
	})
}

func (s *State) DeleteResolvePending(relativePath string) error {
	return s.kv.update(func(w kvWriter) error {
		return w.del(resolveBucket, vcsdb.LockKey(relativePath))
	})
}

// CompleteCommit moves the workspace to |commit| on |branch| and drops the
// local changes and pending merges the commit recorded, in one update.
func (s *State) CompleteCommit(branch, commit string) error {
	return s.kv.update(func(w kvWriter) error {
		if err := setHead(w, branch, commit); err != nil {
			return err
		}
		if err := w.clear(changesBucket); err != nil {
			return err
		}
		return w.clear(mergesBucket)
	})
}

func putJSON(w kvWriter, bucket, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.put(bucket, key, data)
}

func forEachJSON(r kvReader, bucket string, next func() interface{}) error {
	return r.forEach(bucket, func(key string, val []byte) error {
		return json.Unmarshal(val, next())
	})
}

type boltKV struct {
	db *bbolt.DB
}

type boltTx struct {
	tx *bbolt.Tx
}

func (kv boltKV) view(fn func(r kvReader) error) error {
	return kv.db.View(func(tx *bbolt.Tx) error {
		return fn(boltTx{tx})
	})
}

func (kv boltKV) update(fn func(w kvWriter) error) error {
	return kv.db.Update(func(tx *bbolt.Tx) error {
		return fn(boltTx{tx})
	})
}

func (kv boltKV) close() error {
	return kv.db.Close()
}

func (t boltTx) get(bucket, key string) []byte {
	v := t.tx.Bucket([]byte(bucket)).Get([]byte(key))
	if v == nil {
		return nil
	}
	// bbolt values are only valid for the life of the transaction
	return append([]byte{}, v...)
}

func (t boltTx) forEach(bucket string, cb func(key string, val []byte) error) error {
	return t.tx.Bucket([]byte(bucket)).ForEach(func(k, v []byte) error {
		return cb(string(k), v)
	})
}

func (t boltTx) put(bucket, key string, val []byte) error {
	return t.tx.Bucket([]byte(bucket)).Put([]byte(key), val)
}

func (t boltTx) del(bucket, key string) error {
	return t.tx.Bucket([]byte(bucket)).Delete([]byte(key))
}

func (t boltTx) clear(bucket string) error {
	if err := t.tx.DeleteBucket([]byte(bucket)); err != nil {
		return err
	}
	_, err := t.tx.CreateBucket([]byte(bucket))
	return err
}

type kvData map[string]map[string][]byte

func newKVData() kvData {
	d := make(kvData, len(allBuckets))
	for _, b := range allBuckets {
		d[b] = map[string][]byte{}
	}
	return d
}

func (d kvData) clone() kvData {
	out := make(kvData, len(d))
	for b, m := range d {
		cp := make(map[string][]byte, len(m))
		for k, v := range m {
			cp[k] = v
		}
		out[b] = cp
	}
	return out
}

func (d kvData) get(bucket, key string) []byte {
	v, ok := d[bucket][key]
	if !ok {
		return nil
	}
	return append([]byte{}, v...)
}

func (d kvData) forEach(bucket string, cb func(key string, val []byte) error) error {
	keys := make([]string, 0, len(d[bucket]))
	for k := range d[bucket] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := cb(k, d[bucket][k]); err != nil {
			return err
		}
	}
	return nil
}

func (d kvData) put(bucket, key string, val []byte) error {
	d[bucket][key] = append([]byte{}, val...)
	return nil
}

func (d kvData) del(bucket, key string) error {
	delete(d[bucket], key)
	return nil
}

func (d kvData) clear(bucket string) error {
	d[bucket] = map[string][]byte{}
	return nil
}

// fileKV rewrites the whole document on every update. An update that fails
// leaves both the file and the in memory copy untouched.
type fileKV struct {
	mu   sync.RWMutex
	fs   filesys.Filesys
	path string
	data kvData
}

func (kv *fileKV) view(fn func(r kvReader) error) error {
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	return fn(kv.data)
}

func (kv *fileKV) update(fn func(w kvWriter) error) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	next := kv.data.clone()
	if err := fn(next); err != nil {
		return err
	}

	data, err := json.Marshal(next)
	if err != nil {
		return err
	}
	if err := filesys.WriteFileAndDirs(kv.fs, kv.path, data); err != nil {
		return errors.Wrapf(err, "writing workspace state %s", kv.path)
	}
	kv.data = next
	return nil
}

func (kv *fileKV) close() error {
	return nil
}
