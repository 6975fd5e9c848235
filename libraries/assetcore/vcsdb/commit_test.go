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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dolthub/assetvcs/libraries/assetcore/vcserr"
)

func TestParseChangeType(t *testing.T) {
	for _, ct := range []ChangeType{Edit, Add, Delete} {
		parsed, err := ParseChangeType(ct.String())
		require.NoError(t, err)
		assert.Equal(t, ct, parsed)
	}

	_, err := ParseChangeType("rename")
	require.Error(t, err)
	assert.True(t, vcserr.Is(err, vcserr.ErrInvalidArgument))
	assert.Equal(t, vcserr.InvalidArgument, vcserr.KindOf(err))
	assert.Contains(t, err.Error(), "rename")
}
