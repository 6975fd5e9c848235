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

package vcsdb

import (
	"path"
	"strings"

	"github.com/dolthub/assetvcs/libraries/assetcore/vcserr"
)

// Lock is an exclusive claim by a workspace on a path within a lock domain.
type Lock struct {
	LockDomainID string `json:"lock_domain_id"`
	RelativePath string `json:"relative_path"`
	WorkspaceID  string `json:"workspace_id"`
	BranchName   string `json:"branch_name"`
}

// Key returns the identity of the lock within its domain.
func (l Lock) Key() string {
	return LockKey(l.RelativePath)
}

// OwnedBy returns true if the lock belongs to |workspaceID| working on |branchName|.
func (l Lock) OwnedBy(workspaceID, branchName string) bool {
	return l.WorkspaceID == workspaceID && l.BranchName == branchName
}

// LockKey returns the case insensitive key used to identify the lock on
// |relativePath|.
func LockKey(relativePath string) string {
	return strings.ToLower(relativePath)
}

// CleanRelativePath normalizes a slash separated path relative to the
// repository root and rejects paths that escape it.
func CleanRelativePath(p string) (string, error) {
	orig := p
	p = strings.ReplaceAll(p, "\\", "/")
	if strings.HasPrefix(p, "/") {
		return "", vcserr.ErrInvalidPath.New(orig, "path must be relative")
	}
	p = path.Clean(p)
	if p == "." || p == "" {
		return "", vcserr.ErrInvalidPath.New(orig, "path names the repository root")
	}
	if p == ".." || strings.HasPrefix(p, "../") {
		return "", vcserr.ErrInvalidPath.New(orig, "path escapes the repository root")
	}
	return p, nil
}
