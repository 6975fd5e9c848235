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
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/dolthub/assetvcs/libraries/assetcore/tree"
	"github.com/dolthub/assetvcs/libraries/assetcore/vcsdb"
	"github.com/dolthub/assetvcs/libraries/assetcore/vcserr"
	"github.com/dolthub/assetvcs/store/hash"
)

// schema is written in the subset of SQL understood by SQLite, MySQL and
// PostgreSQL alike.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS repositories (
		name VARCHAR(64) NOT NULL,
		PRIMARY KEY (name))`,
	`CREATE TABLE IF NOT EXISTS branches (
		repository VARCHAR(64) NOT NULL,
		name VARCHAR(255) NOT NULL,
		head VARCHAR(64) NOT NULL,
		lock_domain_id VARCHAR(64) NOT NULL,
		PRIMARY KEY (repository, name))`,
	`CREATE TABLE IF NOT EXISTS commits (
		repository VARCHAR(64) NOT NULL,
		id VARCHAR(64) NOT NULL,
		owner VARCHAR(255) NOT NULL,
		message TEXT NOT NULL,
		root_hash VARCHAR(64) NOT NULL,
		date_time_utc VARCHAR(64) NOT NULL,
		PRIMARY KEY (repository, id))`,
	`CREATE TABLE IF NOT EXISTS commit_parents (
		repository VARCHAR(64) NOT NULL,
		commit_id VARCHAR(64) NOT NULL,
		idx INTEGER NOT NULL,
		parent_id VARCHAR(64) NOT NULL,
		PRIMARY KEY (repository, commit_id, idx))`,
	`CREATE TABLE IF NOT EXISTS commit_changes (
		repository VARCHAR(64) NOT NULL,
		commit_id VARCHAR(64) NOT NULL,
		idx INTEGER NOT NULL,
		relative_path TEXT NOT NULL,
		content_hash VARCHAR(64) NOT NULL,
		change_type INTEGER NOT NULL,
		PRIMARY KEY (repository, commit_id, idx))`,
	`CREATE TABLE IF NOT EXISTS trees (
		repository VARCHAR(64) NOT NULL,
		tree_hash VARCHAR(64) NOT NULL,
		contents TEXT NOT NULL,
		PRIMARY KEY (repository, tree_hash))`,
	`CREATE TABLE IF NOT EXISTS locks (
		repository VARCHAR(64) NOT NULL,
		lock_domain_id VARCHAR(64) NOT NULL,
		path_key VARCHAR(255) NOT NULL,
		relative_path TEXT NOT NULL,
		workspace_id VARCHAR(64) NOT NULL,
		branch_name VARCHAR(255) NOT NULL,
		PRIMARY KEY (repository, lock_domain_id, path_key))`,
}

var repositoryTables = []string{"branches", "commits", "commit_parents", "commit_changes", "trees", "locks"}

type branchRow struct {
	Name         string `db:"name"`
	Head         string `db:"head"`
	LockDomainID string `db:"lock_domain_id"`
}

func (r branchRow) toBranch() vcsdb.Branch {
	return vcsdb.Branch{Name: r.Name, Head: r.Head, LockDomainID: r.LockDomainID}
}

type commitRow struct {
	ID          string `db:"id"`
	Owner       string `db:"owner"`
	Message     string `db:"message"`
	RootHash    string `db:"root_hash"`
	DateTimeUTC string `db:"date_time_utc"`
}

type changeRow struct {
	RelativePath string `db:"relative_path"`
	ContentHash  string `db:"content_hash"`
	ChangeType   int    `db:"change_type"`
}

type lockRow struct {
	LockDomainID string `db:"lock_domain_id"`
	RelativePath string `db:"relative_path"`
	WorkspaceID  string `db:"workspace_id"`
	BranchName   string `db:"branch_name"`
}

func (r lockRow) toLock() vcsdb.Lock {
	return vcsdb.Lock{LockDomainID: r.LockDomainID, RelativePath: r.RelativePath, WorkspaceID: r.WorkspaceID, BranchName: r.BranchName}
}

// SQLRepositoryIndex stores repositories in the tables of a SQL database. All
// repositories share one set of tables keyed by repository name.
type SQLRepositoryIndex struct {
	db *sqlx.DB
}

var _ RepositoryIndex = &SQLRepositoryIndex{}

// OpenSQLRepositoryIndex connects to |dsn| with the database/sql driver
// |driverName| and creates the index tables if needed.
func OpenSQLRepositoryIndex(ctx context.Context, driverName, dsn string) (*SQLRepositoryIndex, error) {
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, vcserr.Backendf(err, "opening %s database", driverName)
	}
	if driverName == sqliteDriver {
		// a single connection serializes writers and keeps :memory: databases alive
		db.SetMaxOpenConns(1)
	}

	ri, err := NewSQLRepositoryIndex(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return ri, nil
}

// NewSQLRepositoryIndex returns a RepositoryIndex over an open database.
func NewSQLRepositoryIndex(ctx context.Context, db *sqlx.DB) (*SQLRepositoryIndex, error) {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, vcserr.Backendf(err, "creating index schema")
		}
	}
	logrus.Debugf("index schema ready on %s database", db.DriverName())
	return &SQLRepositoryIndex{db: db}, nil
}

func (ri *SQLRepositoryIndex) CreateRepository(ctx context.Context, name string) (Index, error) {
	if err := ValidateRepositoryName(name); err != nil {
		return nil, err
	}

	err := withTx(ctx, ri.db, func(tx *sqlx.Tx) error {
		exists, err := repositoryExists(ctx, tx, name)
		if err != nil {
			return err
		}
		if exists {
			return vcserr.ErrRepositoryAlreadyExists.New(name)
		}
		_, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO repositories (name) VALUES (?)`), name)
		return err
	})
	if err != nil {
		return nil, backendErr(err, "creating repository `%s`", name)
	}

	return &SQLIndex{db: ri.db, repo: name}, nil
}

func (ri *SQLRepositoryIndex) DestroyRepository(ctx context.Context, name string) error {
	err := withTx(ctx, ri.db, func(tx *sqlx.Tx) error {
		exists, err := repositoryExists(ctx, tx, name)
		if err != nil {
			return err
		}
		if !exists {
			return vcserr.ErrRepositoryNotFound.New(name)
		}
		for _, table := range repositoryTables {
			if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM `+table+` WHERE repository = ?`), name); err != nil {
				return err
			}
		}
		_, err = tx.ExecContext(ctx, tx.Rebind(`DELETE FROM repositories WHERE name = ?`), name)
		return err
	})
	return backendErr(err, "destroying repository `%s`", name)
}

func (ri *SQLRepositoryIndex) LoadRepository(ctx context.Context, name string) (Index, error) {
	exists, err := repositoryExists(ctx, ri.db, name)
	if err != nil {
		return nil, backendErr(err, "loading repository `%s`", name)
	}
	if !exists {
		return nil, vcserr.ErrRepositoryNotFound.New(name)
	}
	return &SQLIndex{db: ri.db, repo: name}, nil
}

func (ri *SQLRepositoryIndex) ListRepositories(ctx context.Context) ([]string, error) {
	var names []string
	err := ri.db.SelectContext(ctx, &names, `SELECT name FROM repositories ORDER BY name`)
	if err != nil {
		return nil, backendErr(err, "listing repositories")
	}
	return names, nil
}

func (ri *SQLRepositoryIndex) Close() error {
	return ri.db.Close()
}

// SQLIndex is the Index of one repository stored in a SQL database.
type SQLIndex struct {
	db   *sqlx.DB
	repo string
}

var _ Index = &SQLIndex{}

func (idx *SQLIndex) RepositoryName() string {
	return idx.repo
}

func (idx *SQLIndex) GetBranch(ctx context.Context, name string) (vcsdb.Branch, error) {
	b, err := getBranch(ctx, idx.db, idx.repo, name)
	if err != nil {
		return vcsdb.Branch{}, backendErr(err, "reading branch `%s`", name)
	}
	return b, nil
}

func (idx *SQLIndex) ListBranches(ctx context.Context, query ListBranchesQuery) ([]vcsdb.Branch, error) {
	q := `SELECT name, head, lock_domain_id FROM branches WHERE repository = ?`
	args := []interface{}{idx.repo}
	if query.LockDomainID != "" {
		q += ` AND lock_domain_id = ?`
		args = append(args, query.LockDomainID)
	}
	q += ` ORDER BY name`

	var rows []branchRow
	if err := idx.db.SelectContext(ctx, &rows, idx.db.Rebind(q), args...); err != nil {
		return nil, backendErr(err, "listing branches")
	}

	out := make([]vcsdb.Branch, len(rows))
	for i, r := range rows {
		out[i] = r.toBranch()
	}
	return out, nil
}

func (idx *SQLIndex) InsertBranch(ctx context.Context, branch vcsdb.Branch) error {
	if err := vcsdb.ValidateBranchName(branch.Name); err != nil {
		return err
	}

	err := withTx(ctx, idx.db, func(tx *sqlx.Tx) error {
		_, err := getBranch(ctx, tx, idx.repo, branch.Name)
		if err == nil {
			return vcserr.ErrBranchAlreadyExists.New(branch.Name)
		}
		if !vcserr.Is(err, vcserr.ErrBranchNotFound) {
			return err
		}
		_, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO branches (repository, name, head, lock_domain_id) VALUES (?, ?, ?, ?)`),
			idx.repo, branch.Name, branch.Head, branch.LockDomainID)
		return err
	})
	return backendErr(err, "inserting branch `%s`", branch.Name)
}

func (idx *SQLIndex) UpdateBranch(ctx context.Context, branch vcsdb.Branch, prevHead string) error {
	err := withTx(ctx, idx.db, func(tx *sqlx.Tx) error {
		return casBranchHead(ctx, tx, idx.repo, branch, prevHead)
	})
	return backendErr(err, "updating branch `%s`", branch.Name)
}

func (idx *SQLIndex) GetCommit(ctx context.Context, id string) (*vcsdb.Commit, error) {
	cm, err := getCommit(ctx, idx.db, idx.repo, id)
	if err != nil {
		return nil, backendErr(err, "reading commit `%s`", id)
	}
	return cm, nil
}

func (idx *SQLIndex) ListCommits(ctx context.Context, query ListCommitsQuery) ([]*vcsdb.Commit, error) {
	return listCommits(ctx, idx, query)
}

func (idx *SQLIndex) CommitToBranch(ctx context.Context, commit *vcsdb.Commit, branch vcsdb.Branch) (string, error) {
	err := withTx(ctx, idx.db, func(tx *sqlx.Tx) error {
		cur, err := getBranch(ctx, tx, idx.repo, branch.Name)
		if err != nil {
			return err
		}
		if cur.Head != branch.Head {
			return vcserr.ErrStaleBranch.New(branch.Name, cur.Head)
		}

		if err := insertCommit(ctx, tx, idx.repo, commit); err != nil {
			return err
		}

		updated := branch
		updated.Head = commit.ID
		return casBranchHead(ctx, tx, idx.repo, updated, branch.Head)
	})
	if err != nil {
		return "", backendErr(err, "committing `%s` to branch `%s`", commit.ID, branch.Name)
	}
	return commit.ID, nil
}

func (idx *SQLIndex) GetTree(ctx context.Context, h hash.Hash) (*tree.Tree, error) {
	var contents string
	err := idx.db.GetContext(ctx, &contents, idx.db.Rebind(`SELECT contents FROM trees WHERE repository = ? AND tree_hash = ?`), idx.repo, h.String())
	if err == sql.ErrNoRows {
		return nil, vcserr.ErrTreeNotFound.New(h.String())
	}
	if err != nil {
		return nil, backendErr(err, "reading tree `%s`", h.String())
	}
	return tree.Unmarshal([]byte(contents))
}

func (idx *SQLIndex) SaveTree(ctx context.Context, t *tree.Tree) (hash.Hash, error) {
	data, err := t.Marshal()
	if err != nil {
		return hash.Hash{}, err
	}
	h := t.Hash()

	err = withTx(ctx, idx.db, func(tx *sqlx.Tx) error {
		var n int
		err := tx.GetContext(ctx, &n, tx.Rebind(`SELECT COUNT(*) FROM trees WHERE repository = ? AND tree_hash = ?`), idx.repo, h.String())
		if err != nil || n > 0 {
			return err
		}
		_, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO trees (repository, tree_hash, contents) VALUES (?, ?, ?)`), idx.repo, h.String(), string(data))
		return err
	})
	if err != nil {
		// a concurrent save of the same tree is not an error
		if _, gerr := idx.GetTree(ctx, h); gerr == nil {
			return h, nil
		}
		return hash.Hash{}, backendErr(err, "saving tree `%s`", h.String())
	}
	return h, nil
}

func (idx *SQLIndex) Lock(ctx context.Context, lock vcsdb.Lock) error {
	err := withTx(ctx, idx.db, func(tx *sqlx.Tx) error {
		var n int
		err := tx.GetContext(ctx, &n, tx.Rebind(`SELECT COUNT(*) FROM locks WHERE repository = ? AND lock_domain_id = ? AND path_key = ?`),
			idx.repo, lock.LockDomainID, lock.Key())
		if err != nil {
			return err
		}
		if n > 0 {
			return vcserr.ErrLockAlreadyExists.New(lock.RelativePath, lock.LockDomainID)
		}
		_, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO locks (repository, lock_domain_id, path_key, relative_path, workspace_id, branch_name) VALUES (?, ?, ?, ?, ?, ?)`),
			idx.repo, lock.LockDomainID, lock.Key(), lock.RelativePath, lock.WorkspaceID, lock.BranchName)
		return err
	})
	if err != nil && vcserr.KindOf(err) == vcserr.Unknown {
		// the primary key rejected a concurrent insert of the same lock
		if _, gerr := idx.GetLock(ctx, lock.LockDomainID, lock.RelativePath); gerr == nil {
			return vcserr.ErrLockAlreadyExists.New(lock.RelativePath, lock.LockDomainID)
		}
	}
	return backendErr(err, "locking `%s`", lock.RelativePath)
}

func (idx *SQLIndex) GetLock(ctx context.Context, lockDomainID, relativePath string) (vcsdb.Lock, error) {
	var row lockRow
	err := idx.db.GetContext(ctx, &row, idx.db.Rebind(`SELECT lock_domain_id, relative_path, workspace_id, branch_name FROM locks WHERE repository = ? AND lock_domain_id = ? AND path_key = ?`),
		idx.repo, lockDomainID, vcsdb.LockKey(relativePath))
	if err == sql.ErrNoRows {
		return vcsdb.Lock{}, vcserr.ErrLockNotFound.New(relativePath, lockDomainID)
	}
	if err != nil {
		return vcsdb.Lock{}, backendErr(err, "reading lock `%s`", relativePath)
	}
	return row.toLock(), nil
}

func (idx *SQLIndex) ListLocks(ctx context.Context, query ListLocksQuery) ([]vcsdb.Lock, error) {
	q, args, err := idx.lockQuery(`SELECT lock_domain_id, relative_path, workspace_id, branch_name FROM locks`, query)
	if err != nil {
		return nil, err
	}

	var rows []lockRow
	if err := idx.db.SelectContext(ctx, &rows, q+` ORDER BY lock_domain_id, path_key`, args...); err != nil {
		return nil, backendErr(err, "listing locks")
	}

	out := make([]vcsdb.Lock, len(rows))
	for i, r := range rows {
		out[i] = r.toLock()
	}
	return out, nil
}

func (idx *SQLIndex) Unlock(ctx context.Context, lockDomainID, relativePath string) error {
	res, err := idx.db.ExecContext(ctx, idx.db.Rebind(`DELETE FROM locks WHERE repository = ? AND lock_domain_id = ? AND path_key = ?`),
		idx.repo, lockDomainID, vcsdb.LockKey(relativePath))
	if err != nil {
		return backendErr(err, "unlocking `%s`", relativePath)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return backendErr(err, "unlocking `%s`", relativePath)
	}
	if n == 0 {
		return vcserr.ErrLockNotFound.New(relativePath, lockDomainID)
	}
	return nil
}

func (idx *SQLIndex) CountLocks(ctx context.Context, query ListLocksQuery) (int, error) {
	q, args, err := idx.lockQuery(`SELECT COUNT(*) FROM locks`, query)
	if err != nil {
		return 0, err
	}

	var n int
	if err := idx.db.GetContext(ctx, &n, q, args...); err != nil {
		return 0, backendErr(err, "counting locks")
	}
	return n, nil
}

func (idx *SQLIndex) lockQuery(base string, query ListLocksQuery) (string, []interface{}, error) {
	if len(query.LockDomainIDs) == 0 {
		return idx.db.Rebind(base + ` WHERE repository = ?`), []interface{}{idx.repo}, nil
	}

	q, args, err := sqlx.In(base+` WHERE repository = ? AND lock_domain_id IN (?)`, idx.repo, query.LockDomainIDs)
	if err != nil {
		return "", nil, vcserr.Backendf(err, "building lock query")
	}
	return idx.db.Rebind(q), args, nil
}

type queryer interface {
	sqlx.QueryerContext
	Rebind(string) string
}

func repositoryExists(ctx context.Context, q queryer, name string) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, q, &n, q.Rebind(`SELECT COUNT(*) FROM repositories WHERE name = ?`), name)
	return n > 0, err
}

func getBranch(ctx context.Context, q queryer, repo, name string) (vcsdb.Branch, error) {
	var row branchRow
	err := sqlx.GetContext(ctx, q, &row, q.Rebind(`SELECT name, head, lock_domain_id FROM branches WHERE repository = ? AND name = ?`), repo, name)
	if err == sql.ErrNoRows {
		return vcsdb.Branch{}, vcserr.ErrBranchNotFound.New(name)
	}
	if err != nil {
		return vcsdb.Branch{}, err
	}
	return row.toBranch(), nil
}

// casBranchHead stores |branch| if its head in the database is |prevHead|.
func casBranchHead(ctx context.Context, tx *sqlx.Tx, repo string, branch vcsdb.Branch, prevHead string) error {
	res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE branches SET head = ?, lock_domain_id = ? WHERE repository = ? AND name = ? AND head = ?`),
		branch.Head, branch.LockDomainID, repo, branch.Name, prevHead)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	cur, err := getBranch(ctx, tx, repo, branch.Name)
	if err != nil {
		return err
	}
	if cur.Head == branch.Head && cur.Head == prevHead {
		// some drivers report zero affected rows for a no-op update
		return nil
	}
	return vcserr.ErrStaleBranch.New(branch.Name, cur.Head)
}

func getCommit(ctx context.Context, q queryer, repo, id string) (*vcsdb.Commit, error) {
	var row commitRow
	err := sqlx.GetContext(ctx, q, &row, q.Rebind(`SELECT id, owner, message, root_hash, date_time_utc FROM commits WHERE repository = ? AND id = ?`), repo, id)
	if err == sql.ErrNoRows {
		return nil, vcserr.ErrCommitNotFound.New(id)
	}
	if err != nil {
		return nil, err
	}

	parents := []string{}
	err = sqlx.SelectContext(ctx, q, &parents, q.Rebind(`SELECT parent_id FROM commit_parents WHERE repository = ? AND commit_id = ? ORDER BY idx`), repo, id)
	if err != nil {
		return nil, err
	}

	var changeRows []changeRow
	err = sqlx.SelectContext(ctx, q, &changeRows, q.Rebind(`SELECT relative_path, content_hash, change_type FROM commit_changes WHERE repository = ? AND commit_id = ? ORDER BY idx`), repo, id)
	if err != nil {
		return nil, err
	}

	changes := make([]vcsdb.HashedChange, len(changeRows))
	for i, r := range changeRows {
		h, err := hash.Parse(r.ContentHash)
		if err != nil {
			return nil, vcserr.ErrInvalidHistory.New(id, err.Error())
		}
		changes[i] = vcsdb.HashedChange{RelativePath: r.RelativePath, Hash: h, ChangeType: vcsdb.ChangeType(r.ChangeType)}
	}

	root, err := hash.Parse(row.RootHash)
	if err != nil {
		return nil, vcserr.ErrInvalidHistory.New(id, err.Error())
	}
	ts, err := time.Parse(time.RFC3339Nano, row.DateTimeUTC)
	if err != nil {
		return nil, vcserr.ErrInvalidHistory.New(id, err.Error())
	}

	return &vcsdb.Commit{
		ID:        row.ID,
		Owner:     row.Owner,
		Message:   row.Message,
		Changes:   changes,
		RootHash:  root,
		Parents:   parents,
		Timestamp: ts.UTC(),
	}, nil
}

func insertCommit(ctx context.Context, tx *sqlx.Tx, repo string, commit *vcsdb.Commit) error {
	var n int
	err := tx.GetContext(ctx, &n, tx.Rebind(`SELECT COUNT(*) FROM commits WHERE repository = ? AND id = ?`), repo, commit.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return vcserr.ErrCommitAlreadyExists.New(commit.ID)
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO commits (repository, id, owner, message, root_hash, date_time_utc) VALUES (?, ?, ?, ?, ?, ?)`),
		repo, commit.ID, commit.Owner, commit.Message, commit.RootHash.String(), commit.Timestamp.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return err
	}

	for i, p := range commit.Parents {
		_, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO commit_parents (repository, commit_id, idx, parent_id) VALUES (?, ?, ?, ?)`), repo, commit.ID, i, p)
		if err != nil {
			return err
		}
	}

	for i, ch := range commit.Changes {
		_, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO commit_changes (repository, commit_id, idx, relative_path, content_hash, change_type) VALUES (?, ?, ?, ?, ?, ?)`),
			repo, commit.ID, i, ch.RelativePath, ch.Hash.String(), int(ch.ChangeType))
		if err != nil {
			return err
		}
	}

	return nil
}

func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			logrus.Warnf("rolling back index transaction: %v", rerr)
		}
		return err
	}
	return tx.Commit()
}

// backendErr wraps driver failures, leaving errors that already carry a kind
// untouched.
func backendErr(err error, format string, args ...interface{}) error {
	if err == nil || vcserr.KindOf(err) != vcserr.Unknown {
		return err
	}
	if err == context.Canceled || err == context.DeadlineExceeded {
		return err
	}
	return vcserr.Backendf(err, format, args...)
}
