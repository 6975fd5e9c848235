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

// Package vcserr holds every error kind produced by the version control
// engine. Each kind is a go-errors Kind registered with a stable code and a
// Category, so callers can branch on the category of a failure no matter how
// deeply it was wrapped or whether it crossed the wire from a remote index.
package vcserr

import (
	goerrors "errors"
	"fmt"
	"sort"

	"gopkg.in/src-d/go-errors.v1"
)

// Category is the coarse classification of an error.
type Category int

const (
	Unknown Category = iota
	NotFound
	AlreadyExists
	Conflict
	CorruptedTree
	InvalidHistory
	InvalidArgument
	Backend
)

var categoryNames = map[Category]string{
	Unknown:         "unknown",
	NotFound:        "not_found",
	AlreadyExists:   "already_exists",
	Conflict:        "conflict",
	CorruptedTree:   "corrupted_tree",
	InvalidHistory:  "invalid_history",
	InvalidArgument: "invalid_argument",
	Backend:         "backend",
}

func (c Category) String() string {
	if s, ok := categoryNames[c]; ok {
		return s
	}
	return categoryNames[Unknown]
}

// ParseCategory is the inverse of Category.String.
func ParseCategory(s string) Category {
	for c, name := range categoryNames {
		if name == s {
			return c
		}
	}
	return Unknown
}

type kindInfo struct {
	code     string
	category Category
}

var registry = map[*errors.Kind]kindInfo{}
var byCode = map[string]*errors.Kind{}

func register(code string, category Category, msg string) *errors.Kind {
	k := errors.NewKind(msg)
	registry[k] = kindInfo{code: code, category: category}
	byCode[code] = k
	return k
}

var (
	ErrRepositoryNotFound      = register("repository_not_found", NotFound, "repository `%s` was not found")
	ErrRepositoryAlreadyExists = register("repository_already_exists", AlreadyExists, "repository `%s` already exists")
	ErrBranchNotFound          = register("branch_not_found", NotFound, "branch `%s` was not found")
	ErrBranchAlreadyExists     = register("branch_already_exists", AlreadyExists, "branch `%s` already exists")
	ErrCommitNotFound          = register("commit_not_found", NotFound, "commit `%s` was not found")
	ErrTreeNotFound            = register("tree_not_found", NotFound, "tree `%s` was not found")
	ErrBlobNotFound            = register("blob_not_found", NotFound, "blob `%s` was not found")
	ErrLockNotFound            = register("lock_not_found", NotFound, "no lock on `%s` in lock domain `%s`")
	ErrLockAlreadyExists       = register("lock_already_exists", AlreadyExists, "`%s` is already locked in lock domain `%s`")
	ErrCommitAlreadyExists     = register("commit_already_exists", AlreadyExists, "commit `%s` already exists")

	ErrStaleBranch          = register("stale_branch", Conflict, "branch `%s` is now at commit `%s`: sync to the latest commit and try again")
	ErrPathLocked           = register("path_locked", Conflict, "`%s` is locked in branch `%s` by workspace `%s`")
	ErrMergeConflicts       = register("merge_conflicts", Conflict, "the merge was not complete:\n%s")
	ErrSyncIncomplete       = register("sync_incomplete", Conflict, "the sync was not complete:\n%s")
	ErrUnresolvedConflicts  = register("unresolved_conflicts", Conflict, "conflicts must be resolved before committing:\n%s")
	ErrWorkspaceNotUpToDate = register("workspace_not_up_to_date", Conflict, "workspace is at commit `%s` but branch `%s` is at commit `%s`: sync to the latest commit before merging")
	ErrWorkspaceDirty       = register("workspace_dirty", Conflict, "workspace has %d local changes: commit or revert them first")
	ErrWorkspaceBusy        = register("workspace_busy", Conflict, "workspace `%s` is in use by another session")
	ErrFileModified         = register("file_modified", Conflict, "`%s` is writable and may contain local edits, skipping sync")
	ErrReadOnly             = register("read_only", Conflict, "the index server is read only")

	ErrCorruptedTree    = register("corrupted_tree", CorruptedTree, "corrupted tree: %s")
	ErrInvalidHistory   = register("invalid_history", InvalidHistory, "invalid history for commit `%s`: %s")
	ErrNoCommonAncestor = register("no_common_ancestor", InvalidHistory, "commit `%s` shares no history with the merged branch")

	ErrInvalidBranchName = register("invalid_branch_name", InvalidArgument, "invalid branch name `%s`: %s")
	ErrInvalidPath       = register("invalid_path", InvalidArgument, "invalid path `%s`: %s")
	ErrInvalidRepoName   = register("invalid_repository_name", InvalidArgument, "invalid repository name `%s`")
	ErrInvalidArgument   = register("invalid_argument", InvalidArgument, "%s")
	ErrEmptyCommit       = register("empty_commit", InvalidArgument, "nothing to commit")
	ErrSelfMerge         = register("self_merge", InvalidArgument, "cannot merge branch `%s` into itself")
	ErrAlreadyTracked    = register("already_tracked", InvalidArgument, "`%s` already has a local change")
	ErrNotTracked        = register("not_tracked", InvalidArgument, "`%s` has no local change")
	ErrNotConflicted     = register("not_conflicted", InvalidArgument, "`%s` has no unresolved conflict")
	ErrFileNotFound      = register("file_not_found", NotFound, "`%s` does not exist")
	ErrNotInTree         = register("not_in_tree", NotFound, "`%s` is not part of commit `%s`")
	ErrNotAWorkspace     = register("not_a_workspace", NotFound, "`%s` is not an asset workspace")
	ErrWorkspaceExists   = register("workspace_exists", AlreadyExists, "`%s` is already an asset workspace")

	ErrBackend = register("backend", Backend, "%s")
)

// RemoteError is an error reconstructed from its wire representation. It
// still answers Is and KindOf like the kind it was created from.
type RemoteError struct {
	Code     string
	Category Category
	Message  string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// Code returns the stable code of the outermost registered kind found in
// |err|'s chain, and "" otherwise.
func Code(err error) string {
	var code string
	walk(err, func(e error) bool {
		if re, ok := e.(*RemoteError); ok {
			code = re.Code
			return true
		}
		if k := kindOf(e); k != nil {
			code = registry[k].code
			return true
		}
		return false
	})
	return code
}

// KindOf returns the Category of |err|, looking through wrapped causes.
func KindOf(err error) Category {
	if err == nil {
		return Unknown
	}
	cat := Unknown
	walk(err, func(e error) bool {
		if re, ok := e.(*RemoteError); ok {
			cat = re.Category
			return true
		}
		if k := kindOf(e); k != nil {
			cat = registry[k].category
			return true
		}
		return false
	})
	return cat
}

// Is returns true if |k| is found anywhere in |err|'s chain.
func Is(err error, k *errors.Kind) bool {
	found := false
	walk(err, func(e error) bool {
		if k.Is(e) {
			found = true
		} else if re, ok := e.(*RemoteError); ok {
			found = re.Code == registry[k].code
		}
		return found
	})
	return found
}

// IsCategory returns true if the Category of |err| is |cat|.
func IsCategory(err error, cat Category) bool {
	return KindOf(err) == cat
}

// FromCode reconstructs an error previously described by Code, KindOf and
// Error.
func FromCode(code string, category Category, msg string) error {
	if k, ok := byCode[code]; ok {
		category = registry[k].category
	}
	return &RemoteError{Code: code, Category: category, Message: msg}
}

// Backendf wraps a collaborator failure.
func Backendf(cause error, format string, args ...interface{}) error {
	return ErrBackend.Wrap(cause, fmt.Sprintf(format, args...))
}

// Codes lists every registered code, sorted.
func Codes() []string {
	out := make([]string, 0, len(byCode))
	for c := range byCode {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func kindOf(e error) *errors.Kind {
	if _, ok := e.(*errors.Error); !ok {
		return nil
	}
	for k := range registry {
		if k.Is(e) {
			return k
		}
	}
	return nil
}

type causer interface {
	Cause() error
}

// walk visits |err| and its causes, outermost first, until |visit| returns true.
func walk(err error, visit func(error) bool) {
	for err != nil {
		if visit(err) {
			return
		}
		next := goerrors.Unwrap(err)
		if next == nil {
			if c, ok := err.(causer); ok {
				next = c.Cause()
			}
		}
		if next == err {
			return
		}
		err = next
	}
}
