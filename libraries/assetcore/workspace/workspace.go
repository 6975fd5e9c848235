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

// Package workspace manages the local side of an asset repository: the files
// checked out under a root directory and the session state recorded in its
// metadata directory.
package workspace

import (
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/dolthub/assetvcs/libraries/assetcore/vcsdb"
	"github.com/dolthub/assetvcs/libraries/assetcore/vcserr"
	"github.com/dolthub/assetvcs/libraries/utils/filesys"
	"github.com/dolthub/assetvcs/store/hash"
)

const (
	// MetadataDir is the directory below the workspace root holding the
	// workspace spec and state. It is never tracked.
	MetadataDir = ".assetvcs"

	specFile      = "workspace.json"
	boltStateFile = "state.db"
	fileStateFile = "state.json"
	lockFile      = "session.lock"
)

const stateOpenTimeout = time.Second

// Workspace is an open session on a workspace directory. Only one session
// per workspace can be open at a time.
type Workspace struct {
	FS    filesys.Filesys
	Root  string
	Spec  Spec
	State *State

	lock filesys.FilesysLock
}

// Create initializes a workspace at |root| and opens a session on it. The
// workspace starts on |branch| at |commit|.
func Create(fs filesys.Filesys, root string, spec Spec, branch, commit string) (*Workspace, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	root, err := fs.Abs(root)
	if err != nil {
		return nil, err
	}
	if exists, _ := fs.Exists(filepath.Join(root, MetadataDir, specFile)); exists {
		return nil, vcserr.ErrWorkspaceExists.New(root)
	}
	if err := fs.MkDirs(filepath.Join(root, MetadataDir)); err != nil {
		return nil, errors.Wrap(err, "creating workspace metadata directory")
	}
	if err := spec.save(fs, filepath.Join(root, MetadataDir, specFile)); err != nil {
		return nil, errors.Wrap(err, "writing workspace spec")
	}

	ws, err := Load(fs, root)
	if err != nil {
		return nil, err
	}
	if err := ws.State.SetHead(branch, commit); err != nil {
		ws.Close()
		return nil, err
	}
	return ws, nil
}

// Load opens a session on the workspace whose root is |root|. It fails with
// WorkspaceBusy if another session holds the workspace.
func Load(fs filesys.Filesys, root string) (*Workspace, error) {
	root, err := fs.Abs(root)
	if err != nil {
		return nil, err
	}

	meta := filepath.Join(root, MetadataDir)
	if exists, _ := fs.Exists(filepath.Join(meta, specFile)); !exists {
		return nil, vcserr.ErrNotAWorkspace.New(root)
	}

	lck := filesys.CreateFilesysLock(fs, filepath.Join(meta, lockFile))
	ok, err := lck.TryLock()
	if err != nil {
		return nil, errors.Wrap(err, "locking workspace")
	}
	if !ok {
		return nil, vcserr.ErrWorkspaceBusy.New(root)
	}

	spec, err := loadSpec(fs, filepath.Join(meta, specFile))
	if err != nil {
		lck.Unlock()
		return nil, errors.Wrap(err, "reading workspace spec")
	}

	var st *State
	if fs == filesys.LocalFS {
		st, err = OpenBoltState(filepath.Join(meta, boltStateFile))
	} else {
		st, err = OpenFileState(fs, filepath.Join(meta, fileStateFile))
	}
	if err != nil {
		lck.Unlock()
		return nil, err
	}

	return &Workspace{FS: fs, Root: root, Spec: spec, State: st, lock: lck}, nil
}

// Find loads the workspace containing |dir|, searching its parent directories.
func Find(fs filesys.Filesys, dir string) (*Workspace, error) {
	start, err := fs.Abs(dir)
	if err != nil {
		return nil, err
	}

	for cur := start; ; {
		if exists, isDir := fs.Exists(filepath.Join(cur, MetadataDir, specFile)); exists && !isDir {
			return Load(fs, cur)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return nil, vcserr.ErrNotAWorkspace.New(start)
		}
		cur = parent
	}
}

// Close releases the session.
func (ws *Workspace) Close() error {
	err := ws.State.Close()
	if uerr := ws.lock.Unlock(); err == nil {
		err = uerr
	}
	return err
}

// Head returns the branch and commit the workspace is on.
func (ws *Workspace) Head() (string, string, error) {
	return ws.State.Head()
}

// AbsPath returns the location on disk of the workspace relative path |relativePath|.
func (ws *Workspace) AbsPath(relativePath string) string {
	return filepath.Join(ws.Root, filepath.FromSlash(relativePath))
}

// RelativePath converts |p|, absolute or relative to the working directory,
// to a clean slash separated path relative to the workspace root.
func (ws *Workspace) RelativePath(p string) (string, error) {
	abs, err := ws.FS.Abs(p)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(ws.Root, abs)
	if err != nil {
		return "", vcserr.ErrInvalidPath.New(p, "path is outside of the workspace")
	}
	return CleanPath(filepath.ToSlash(rel))
}

// CleanPath normalizes a workspace relative path, rejecting paths outside the
// workspace and paths inside its metadata directory.
func CleanPath(relativePath string) (string, error) {
	clean, err := vcsdb.CleanRelativePath(relativePath)
	if err != nil {
		return "", err
	}
	if isMetadataPath(clean) {
		return "", vcserr.ErrInvalidPath.New(relativePath, "path is inside the workspace metadata directory")
	}
	return clean, nil
}

func isMetadataPath(relativePath string) bool {
	first := strings.SplitN(relativePath, "/", 2)[0]
	return strings.EqualFold(first, MetadataDir)
}

func (ws *Workspace) Exists(relativePath string) bool {
	exists, isDir := ws.FS.Exists(ws.AbsPath(relativePath))
	return exists && !isDir
}

func (ws *Workspace) ReadFile(relativePath string) ([]byte, error) {
	data, err := ws.FS.ReadFile(ws.AbsPath(relativePath))
	if filesys.IsNotExist(err) {
		return nil, vcserr.ErrFileNotFound.New(relativePath)
	}
	return data, err
}

// HashFile returns the content hash of the file at |relativePath|.
func (ws *Workspace) HashFile(relativePath string) (hash.Hash, error) {
	data, err := ws.ReadFile(relativePath)
	if err != nil {
		return hash.Hash{}, err
	}
	return hash.Of(data), nil
}

// WriteFile replaces the contents of |relativePath|, creating parent
// directories as needed, and leaves the file read only if |readOnly| is set.
func (ws *Workspace) WriteFile(relativePath string, data []byte, readOnly bool) error {
	fp := ws.AbsPath(relativePath)
	if ws.Exists(relativePath) {
		if err := ws.FS.SetReadOnly(fp, false); err != nil {
			return err
		}
	}
	if err := filesys.WriteFileAndDirs(ws.FS, fp, data); err != nil {
		return errors.Wrapf(err, "writing %s", relativePath)
	}
	if readOnly {
		return ws.FS.SetReadOnly(fp, true)
	}
	return nil
}

// DeleteFile removes |relativePath| if it exists.
func (ws *Workspace) DeleteFile(relativePath string) error {
	if !ws.Exists(relativePath) {
		return nil
	}
	fp := ws.AbsPath(relativePath)
	if err := ws.FS.SetReadOnly(fp, false); err != nil {
		return err
	}
	return ws.FS.DeleteFile(fp)
}

func (ws *Workspace) SetReadOnly(relativePath string, readOnly bool) error {
	err := ws.FS.SetReadOnly(ws.AbsPath(relativePath), readOnly)
	if filesys.IsNotExist(err) {
		return vcserr.ErrFileNotFound.New(relativePath)
	}
	return err
}

// IsWritable returns true if |relativePath| exists and may be written. Files
// that are checked out but not being edited are read only.
func (ws *Workspace) IsWritable(relativePath string) (bool, error) {
	if !ws.Exists(relativePath) {
		return false, nil
	}
	ro, err := ws.FS.IsReadOnly(ws.AbsPath(relativePath))
	if err != nil {
		return false, err
	}
	return !ro, nil
}

// ListFiles returns the relative paths of every file in the workspace outside
// of the metadata directory, sorted.
func (ws *Workspace) ListFiles() ([]string, error) {
	var files []string
	var relErr error
	err := ws.FS.Iter(ws.Root, true, func(p string, size int64, isDir bool) bool {
		if isDir {
			return false
		}
		rel, err := filepath.Rel(ws.Root, p)
		if err != nil {
			relErr = err
			return true
		}
		rel = filepath.ToSlash(rel)
		if !isMetadataPath(rel) {
			files = append(files, rel)
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	if relErr != nil {
		return nil, relErr
	}
	sort.Strings(files)
	return files, nil
}
