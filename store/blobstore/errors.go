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

package blobstore

import "errors"

// NotFound is the error returned when a blob does not exist.
type NotFound struct {
	Key string
}

func (nf NotFound) Error() string {
	return "blob not found: \"" + nf.Key + "\""
}

// IsNotFoundError returns true if |err| is, or wraps, a NotFound error.
func IsNotFoundError(err error) bool {
	var nf NotFound
	return errors.As(err, &nf)
}
