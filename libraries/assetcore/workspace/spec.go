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

package workspace

import (
	"github.com/goccy/go-json"

	"github.com/dolthub/assetvcs/libraries/assetcore/index"
	"github.com/dolthub/assetvcs/libraries/assetcore/vcserr"
	"github.com/dolthub/assetvcs/libraries/utils/filesys"
)

// Spec is the configuration of a workspace, stored in workspace.json in the
// metadata directory.
type Spec struct {
	IndexURL    string `json:"index_url"`
	BlobURL     string `json:"blob_url"`
	Repository  string `json:"repository"`
	WorkspaceID string `json:"workspace_id"`
	Owner       string `json:"owner"`
}

func (s Spec) Validate() error {
	if s.IndexURL == "" {
		return vcserr.ErrInvalidArgument.New("workspace index_url must not be empty")
	}
	if s.BlobURL == "" {
		return vcserr.ErrInvalidArgument.New("workspace blob_url must not be empty")
	}
	if s.WorkspaceID == "" {
		return vcserr.ErrInvalidArgument.New("workspace workspace_id must not be empty")
	}
	return index.ValidateRepositoryName(s.Repository)
}

func loadSpec(fs filesys.ReadableFS, path string) (Spec, error) {
	var s Spec
	if err := filesys.UnmarshalJSONFile(fs, path, &s); err != nil {
		return Spec{}, err
	}
	return s, s.Validate()
}

func (s Spec) save(fs filesys.Filesys, path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return filesys.WriteFileAndDirs(fs, path, data)
}
