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

package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfIsSHA256(t *testing.T) {
	h := Of([]byte("abc"))
	assert.Equal(t, "BA7816BF8F01CFEA414140DE5DAE2223B00361A396177A9CB410FF61F20015AD", h.String())
}

func TestEmptyHash(t *testing.T) {
	assert.True(t, EmptyHash.IsEmpty())
	assert.Equal(t, "", EmptyHash.String())
	assert.False(t, Of(nil).IsEmpty())

	h, err := Parse("")
	require.NoError(t, err)
	assert.True(t, h.IsEmpty())
}

func TestParse(t *testing.T) {
	orig := Of([]byte("some content"))

	parsed, err := Parse(orig.String())
	require.NoError(t, err)
	assert.Equal(t, orig, parsed)

	lower, err := Parse("ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad")
	require.NoError(t, err)
	assert.Equal(t, Of([]byte("abc")), lower)

	tests := []string{
		"sha1-00000000000000000000000000000000000000000",
		"BA7816BF",
		"ZA7816BF8F01CFEA414140DE5DAE2223B00361A396177A9CB410FF61F20015AD",
	}
	for _, s := range tests {
		_, err := Parse(s)
		assert.Error(t, err, s)
		assert.False(t, IsValid(s), s)
	}
}

func TestTextRoundTrip(t *testing.T) {
	h := Of([]byte("x"))
	text, err := h.MarshalText()
	require.NoError(t, err)

	var out Hash
	require.NoError(t, out.UnmarshalText(text))
	assert.Equal(t, h, out)

	text, err = EmptyHash.MarshalText()
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestHashSet(t *testing.T) {
	a, b := Of([]byte("a")), Of([]byte("b"))
	hs := NewHashSet(a, b, a)
	assert.Len(t, hs, 2)
	assert.True(t, hs.Has(a))
	hs.Remove(a)
	assert.False(t, hs.Has(a))
	assert.Equal(t, HashSlice{b}, hs.ToSlice())
}
