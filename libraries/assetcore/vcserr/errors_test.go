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

package vcserr

import (
	goerrors "errors"
	"fmt"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		cat  Category
		code string
	}{
		{"nil", nil, Unknown, ""},
		{"plain", goerrors.New("boom"), Unknown, ""},
		{"direct", ErrBranchNotFound.New("main"), NotFound, "branch_not_found"},
		{"fmt wrapped", fmt.Errorf("loading: %w", ErrStaleBranch.New("main", "abc")), Conflict, "stale_branch"},
		{"pkg wrapped", pkgerrors.Wrap(ErrCorruptedTree.New("x"), "reading"), CorruptedTree, "corrupted_tree"},
		{"backend", Backendf(goerrors.New("disk"), "reading `%s`", "a/b"), Backend, "backend"},
		{"remote", FromCode("lock_already_exists", Unknown, "locked"), AlreadyExists, "lock_already_exists"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.cat, KindOf(test.err))
			assert.Equal(t, test.code, Code(test.err))
		})
	}
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("commit: %w", ErrStaleBranch.New("main", "abc"))
	assert.True(t, Is(err, ErrStaleBranch))
	assert.False(t, Is(err, ErrPathLocked))
	assert.True(t, IsCategory(err, Conflict))

	remote := FromCode(Code(err), KindOf(err), err.Error())
	assert.True(t, Is(remote, ErrStaleBranch))
	assert.False(t, Is(remote, ErrBranchNotFound))
	assert.Equal(t, err.Error(), remote.Error())
}

func TestBackendKeepsCause(t *testing.T) {
	cause := goerrors.New("connection refused")
	err := Backendf(cause, "saving tree `%s`", "ABC")
	assert.Contains(t, err.Error(), "saving tree `ABC`")
	assert.Equal(t, cause, pkgerrors.Cause(err))
}

func TestCategoryNames(t *testing.T) {
	for c := Unknown; c <= Backend; c++ {
		assert.Equal(t, c, ParseCategory(c.String()))
	}
	assert.Equal(t, Unknown, ParseCategory("bogus"))
	assert.Contains(t, Codes(), "merge_conflicts")
}
