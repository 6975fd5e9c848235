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

// Package hash implements the content addresses used for blobs and trees.
// A Hash is the SHA-256 digest of the addressed bytes. Its string form is the
// upper case hex encoding of the digest, and the zero Hash (the empty hash)
// renders as the empty string.
package hash

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

const (
	// ByteLen is the number of bytes in a Hash.
	ByteLen = sha256.Size

	// StringLen is the number of characters needed to represent a non empty Hash.
	StringLen = ByteLen * 2
)

var pattern = regexp.MustCompile("^[0-9A-Fa-f]{64}$")

// Hash is a SHA-256 content address.
type Hash [ByteLen]byte

// EmptyHash is the sentinel used for deleted content and for "no tree".
var EmptyHash = Hash{}

// Of computes the Hash of |data|.
func Of(data []byte) Hash {
	return Hash(sha256.Sum256(data))
}

// New creates a Hash from a byte slice that must be ByteLen long.
func New(data []byte) Hash {
	if len(data) != ByteLen {
		panic(fmt.Sprintf("invalid hash length %d", len(data)))
	}
	var h Hash
	copy(h[:], data)
	return h
}

// Parse parses the string form of a Hash. The empty string parses as the
// empty hash.
func Parse(s string) (Hash, error) {
	if s == "" {
		return EmptyHash, nil
	}
	if !pattern.MatchString(s) {
		return EmptyHash, fmt.Errorf("could not parse hash: %q", s)
	}
	var h Hash
	_, err := hex.Decode(h[:], []byte(s))
	if err != nil {
		return EmptyHash, err
	}
	return h, nil
}

// MaybeParse returns the Hash and true if |s| is a valid hash string.
func MaybeParse(s string) (Hash, bool) {
	h, err := Parse(s)
	return h, err == nil
}

// IsValid returns true if |s| is the string form of a Hash.
func IsValid(s string) bool {
	return s == "" || pattern.MatchString(s)
}

// IsEmpty determines if this Hash is equal to the empty hash.
func (h Hash) IsEmpty() bool {
	return h == EmptyHash
}

// String returns the upper case hex representation of the hash, or "" for
// the empty hash.
func (h Hash) String() string {
	if h.IsEmpty() {
		return ""
	}
	return strings.ToUpper(hex.EncodeToString(h[:]))
}

// Less compares two Hashes, returning true if the first is less than the second.
func (h Hash) Less(other Hash) bool {
	return bytes.Compare(h[:], other[:]) < 0
}

// Equal compares two Hashes.
func (h Hash) Equal(other Hash) bool {
	return h == other
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// HashSlice is a sortable slice of Hashes.
type HashSlice []Hash

func (hs HashSlice) Len() int           { return len(hs) }
func (hs HashSlice) Less(i, j int) bool { return hs[i].Less(hs[j]) }
func (hs HashSlice) Swap(i, j int)      { hs[i], hs[j] = hs[j], hs[i] }

// HashSet is a set of Hashes.
type HashSet map[Hash]struct{}

// NewHashSet creates a HashSet containing |hashes|.
func NewHashSet(hashes ...Hash) HashSet {
	out := make(HashSet, len(hashes))
	for _, h := range hashes {
		out.Insert(h)
	}
	return out
}

// Insert adds |h| to the set.
func (hs HashSet) Insert(h Hash) {
	hs[h] = struct{}{}
}

// Has returns true if the HashSet contains |h|.
func (hs HashSet) Has(h Hash) bool {
	_, ok := hs[h]
	return ok
}

// Remove removes |h| from the set.
func (hs HashSet) Remove(h Hash) {
	delete(hs, h)
}

// ToSlice returns the members of the set in sorted order.
func (hs HashSet) ToSlice() HashSlice {
	out := make(HashSlice, 0, len(hs))
	for h := range hs {
		out = append(out, h)
	}
	sort.Sort(out)
	return out
}
