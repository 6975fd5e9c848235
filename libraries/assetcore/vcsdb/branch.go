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
	"strings"
	"unicode"

	"github.com/dolthub/assetvcs/libraries/assetcore/vcserr"
)

// DefaultBranch is the branch created with every repository.
const DefaultBranch = "main"

const maxBranchNameLen = 255

// Branch is a named, mutable pointer to a commit. Branches sharing a
// LockDomainID share their locks.
type Branch struct {
	Name         string `json:"name"`
	Head         string `json:"head"`
	LockDomainID string `json:"lock_domain_id"`
}

// NewBranch validates |name| and returns a Branch.
func NewBranch(name, head, lockDomainID string) (Branch, error) {
	if err := ValidateBranchName(name); err != nil {
		return Branch{}, err
	}
	return Branch{Name: name, Head: head, LockDomainID: lockDomainID}, nil
}

var invalidBranchSubstrings = []string{"/", "\\", "..", ":", "?", "*", "[", "~", "^"}

// ValidateBranchName returns an InvalidArgument error if |name| cannot be
// used as a branch name.
func ValidateBranchName(name string) error {
	if name == "" {
		return vcserr.ErrInvalidBranchName.New(name, "name is empty")
	}
	if len(name) > maxBranchNameLen {
		return vcserr.ErrInvalidBranchName.New(name, "name is too long")
	}
	for _, r := range name {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return vcserr.ErrInvalidBranchName.New(name, "name contains whitespace")
		}
	}
	for _, s := range invalidBranchSubstrings {
		if strings.Contains(name, s) {
			return vcserr.ErrInvalidBranchName.New(name, "name contains `"+s+"`")
		}
	}
	return nil
}
