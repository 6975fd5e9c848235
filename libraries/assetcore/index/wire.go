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
	"net/http"

	"github.com/dolthub/assetvcs/libraries/assetcore/vcsdb"
	"github.com/dolthub/assetvcs/libraries/assetcore/vcserr"
	"github.com/dolthub/assetvcs/store/hash"
)

// APIPrefix is the path prefix of every route of the index http api.
const APIPrefix = "/api/v1"

// WireError is the json body of an unsuccessful api response.
type WireError struct {
	Code     string `json:"code"`
	Category string `json:"category"`
	Message  string `json:"message"`
}

// NewWireError describes |err| for the wire.
func NewWireError(err error) WireError {
	return WireError{
		Code:     vcserr.Code(err),
		Category: vcserr.KindOf(err).String(),
		Message:  err.Error(),
	}
}

// Err reconstructs the error described by the WireError.
func (we WireError) Err() error {
	return vcserr.FromCode(we.Code, vcserr.ParseCategory(we.Category), we.Message)
}

// HTTPStatus maps an error to the status code of its api response.
func HTTPStatus(err error) int {
	switch vcserr.KindOf(err) {
	case vcserr.NotFound:
		return http.StatusNotFound
	case vcserr.AlreadyExists, vcserr.Conflict:
		return http.StatusConflict
	case vcserr.InvalidArgument, vcserr.InvalidHistory:
		return http.StatusBadRequest
	case vcserr.CorruptedTree:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

type ListRepositoriesResponse struct {
	Repositories []string `json:"repositories"`
}

type UpdateBranchRequest struct {
	Branch   vcsdb.Branch `json:"branch"`
	PrevHead string       `json:"prev_head"`
}

type CommitToBranchRequest struct {
	Commit *vcsdb.Commit `json:"commit"`
	Branch vcsdb.Branch  `json:"branch"`
}

type CommitToBranchResponse struct {
	Head string `json:"head"`
}

type SaveTreeResponse struct {
	Hash hash.Hash `json:"hash"`
}

type CountLocksResponse struct {
	Count int `json:"count"`
}
