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

package filesys

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type memObj interface {
	isDir() bool
	parent() *memDir
}

type memFile struct {
	absPath   string
	data      []byte
	readOnly  bool
	parentDir *memDir
}

func (mf *memFile) isDir() bool {
	return false
}

func (mf *memFile) parent() *memDir {
	return mf.parentDir
}

type memDir struct {
	absPath   string
	objs      map[string]memObj
	parentDir *memDir
}

func newEmptyDir(path string, parent *memDir) *memDir {
	return &memDir{path, make(map[string]memObj), parent}
}

func (md *memDir) isDir() bool {
	return true
}

func (md *memDir) parent() *memDir {
	return md.parentDir
}

const inMemRoot = "/"

// InMemFS is an in memory filesystem implementation that is primarily intended for testing
type InMemFS struct {
	rwLock *sync.RWMutex
	cwd    string
	objs   map[string]memObj
	locks  map[string]bool
}

var _ Filesys = (*InMemFS)(nil)

// EmptyInMemFS creates an empty InMemFS instance
func EmptyInMemFS(workingDir string) *InMemFS {
	return NewInMemFS([]string{}, map[string][]byte{}, workingDir)
}

// NewInMemFS creates an InMemFS with directories and folders provided.
func NewInMemFS(dirs []string, files map[string][]byte, cwd string) *InMemFS {
	if cwd == "" {
		cwd = inMemRoot
	}
	cwd = filepath.ToSlash(cwd)

	if !strings.HasPrefix(cwd, inMemRoot) {
		panic("cwd for InMemFilesys must be absolute path.")
	}

	fs := &InMemFS{
		rwLock: &sync.RWMutex{},
		cwd:    filepath.Clean(cwd),
		objs:   map[string]memObj{inMemRoot: newEmptyDir(inMemRoot, nil)},
		locks:  make(map[string]bool),
	}

	for _, dir := range dirs {
		if _, err := fs.mkDirs(fs.getAbsPath(dir)); err != nil {
			panic("Initializing InMemFS with invalid data.")
		}
	}

	for path, val := range files {
		if err := fs.writeFile(fs.getAbsPath(path), val, true); err != nil {
			panic("Initializing InMemFS with invalid data.")
		}
	}

	return fs
}

func (fs *InMemFS) getAbsPath(path string) string {
	path = filepath.ToSlash(path)
	if strings.HasPrefix(path, inMemRoot) {
		return filepath.Clean(path)
	}

	return filepath.Join(fs.cwd, path)
}

// Exists will tell you if a file or directory with a given path already exists, and if it does is it a directory
func (fs *InMemFS) Exists(path string) (exists bool, isDir bool) {
	fs.rwLock.RLock()
	defer fs.rwLock.RUnlock()

	return fs.exists(path)
}

func (fs *InMemFS) exists(path string) (exists bool, isDir bool) {
	path = fs.getAbsPath(path)

	if obj, ok := fs.objs[path]; ok {
		return true, obj.isDir()
	}

	return false, false
}

type iterEntry struct {
	path  string
	size  int64
	isDir bool
}

// Iter iterates over the files and subdirectories within a given directory (Optionally recursively).  There
// are no guarantees about the ordering of results. It is also possible that concurrent delete operations could render
// a file path invalid when the callback is made.
func (fs *InMemFS) Iter(path string, recursive bool, cb FSIterCB) error {
	entries, err := func() ([]iterEntry, error) {
		fs.rwLock.RLock()
		defer fs.rwLock.RUnlock()

		var entries []iterEntry
		err := fs.iter(fs.getAbsPath(path), recursive, func(path string, size int64, isDir bool) {
			entries = append(entries, iterEntry{path, size, isDir})
		})
		return entries, err
	}()

	if err != nil {
		return err
	}

	for _, entry := range entries {
		if cb(entry.path, entry.size, entry.isDir) {
			return nil
		}
	}

	return nil
}

func (fs *InMemFS) iter(path string, recursive bool, cb func(string, int64, bool)) error {
	obj, ok := fs.objs[path]

	if !ok {
		return os.ErrNotExist
	} else if !obj.isDir() {
		return ErrIsFile
	}

	stack := []*memDir{obj.(*memDir)}
	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for k, v := range dir.objs {
			var size int
			if !v.isDir() {
				size = len(v.(*memFile).data)
			}

			cb(k, int64(size), v.isDir())

			if v.isDir() && recursive {
				stack = append(stack, v.(*memDir))
			}
		}
	}

	return nil
}

// OpenForRead opens a file for reading
func (fs *InMemFS) OpenForRead(fp string) (io.ReadCloser, error) {
	data, err := fs.ReadFile(fp)
	if err != nil {
		return nil, err
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// ReadFile reads the entire contents of a file
func (fs *InMemFS) ReadFile(fp string) ([]byte, error) {
	fs.rwLock.RLock()
	defer fs.rwLock.RUnlock()

	fp = fs.getAbsPath(fp)

	if exists, isDir := fs.exists(fp); !exists {
		return nil, os.ErrNotExist
	} else if isDir {
		return nil, ErrIsDir
	}

	return append([]byte{}, fs.objs[fp].(*memFile).data...), nil
}

type inMemFSWriteCloser struct {
	path string
	fs   *InMemFS
	buf  *bytes.Buffer
}

func (fsw *inMemFSWriteCloser) Write(p []byte) (int, error) {
	return fsw.buf.Write(p)
}

func (fsw *inMemFSWriteCloser) Close() error {
	return fsw.fs.WriteFile(fsw.path, fsw.buf.Bytes())
}

// OpenForWrite opens a file for writing.  The file will be created if it does not exist, and if it does exist
// it will be overwritten.
func (fs *InMemFS) OpenForWrite(fp string) (io.WriteCloser, error) {
	fs.rwLock.RLock()
	defer fs.rwLock.RUnlock()

	fp = fs.getAbsPath(fp)
	if err := fs.checkWritable(fp); err != nil {
		return nil, err
	}

	return &inMemFSWriteCloser{fp, fs, &bytes.Buffer{}}, nil
}

// WriteFile writes the entire data buffer to a given file.  The file will be created if it does not exist,
// and if it does exist it will be overwritten.
func (fs *InMemFS) WriteFile(fp string, data []byte) error {
	fs.rwLock.Lock()
	defer fs.rwLock.Unlock()

	return fs.writeFile(fs.getAbsPath(fp), data, false)
}

func (fs *InMemFS) checkWritable(fp string) error {
	if obj, ok := fs.objs[fp]; ok {
		if obj.isDir() {
			return ErrIsDir
		}
		if obj.(*memFile).readOnly {
			return &os.PathError{Op: "write", Path: fp, Err: os.ErrPermission}
		}
	}

	parent, ok := fs.objs[filepath.Dir(fp)]
	if !ok {
		return ErrDirNotExist
	} else if !parent.isDir() {
		return ErrIsFile
	}

	return nil
}

func (fs *InMemFS) writeFile(fp string, data []byte, makeDirs bool) error {
	if makeDirs {
		if _, err := fs.mkDirs(filepath.Dir(fp)); err != nil {
			return err
		}
	}

	if err := fs.checkWritable(fp); err != nil {
		return err
	}

	parentDir := fs.objs[filepath.Dir(fp)].(*memDir)
	newFile := &memFile{absPath: fp, data: append([]byte{}, data...), parentDir: parentDir}
	parentDir.objs[fp] = newFile
	fs.objs[fp] = newFile

	return nil
}

// MkDirs creates a folder and all the parent folders that are necessary to create it.
func (fs *InMemFS) MkDirs(path string) error {
	fs.rwLock.Lock()
	defer fs.rwLock.Unlock()

	_, err := fs.mkDirs(fs.getAbsPath(path))
	return err
}

func (fs *InMemFS) mkDirs(path string) (*memDir, error) {
	var missing []string
	cur := path
	for {
		if obj, ok := fs.objs[cur]; ok {
			if !obj.isDir() {
				return nil, ErrIsFile
			}
			break
		}
		missing = append(missing, cur)
		cur = filepath.Dir(cur)
	}

	parentDir := fs.objs[cur].(*memDir)
	for i := len(missing) - 1; i >= 0; i-- {
		dir := newEmptyDir(missing[i], parentDir)
		parentDir.objs[missing[i]] = dir
		fs.objs[missing[i]] = dir
		parentDir = dir
	}

	return parentDir, nil
}

// DeleteFile will delete a file at the given path
func (fs *InMemFS) DeleteFile(path string) error {
	fs.rwLock.Lock()
	defer fs.rwLock.Unlock()

	path = fs.getAbsPath(path)
	obj, ok := fs.objs[path]
	if !ok {
		return os.ErrNotExist
	} else if obj.isDir() {
		return ErrIsDir
	}

	delete(obj.parent().objs, path)
	delete(fs.objs, path)
	return nil
}

// Delete will delete an empty directory, or a file.  If trying delete a directory that is not empty you can set force to
// true in order to delete the dir and all of it's contents
func (fs *InMemFS) Delete(path string, force bool) error {
	fs.rwLock.Lock()
	defer fs.rwLock.Unlock()

	path = fs.getAbsPath(path)
	obj, ok := fs.objs[path]
	if !ok {
		return os.ErrNotExist
	}

	if dir, isDir := obj.(*memDir); isDir {
		if len(dir.objs) > 0 && !force {
			return &os.PathError{Op: "remove", Path: path, Err: os.ErrExist}
		}
		if dir.parentDir == nil {
			return &os.PathError{Op: "remove", Path: path, Err: os.ErrPermission}
		}
		for k := range fs.objs {
			if strings.HasPrefix(k, path+"/") {
				delete(fs.objs, k)
			}
		}
	}

	delete(obj.parent().objs, path)
	delete(fs.objs, path)
	return nil
}

// SetReadOnly marks a file read only. Writes to a read only InMemFS file fail
// with a permission error.
func (fs *InMemFS) SetReadOnly(fp string, readOnly bool) error {
	fs.rwLock.Lock()
	defer fs.rwLock.Unlock()

	obj, ok := fs.objs[fs.getAbsPath(fp)]
	if !ok {
		return os.ErrNotExist
	} else if obj.isDir() {
		return ErrIsDir
	}

	obj.(*memFile).readOnly = readOnly
	return nil
}

func (fs *InMemFS) IsReadOnly(fp string) (bool, error) {
	fs.rwLock.RLock()
	defer fs.rwLock.RUnlock()

	obj, ok := fs.objs[fs.getAbsPath(fp)]
	if !ok {
		return false, os.ErrNotExist
	} else if obj.isDir() {
		return false, ErrIsDir
	}

	return obj.(*memFile).readOnly, nil
}

// Abs converts a path to an absolute path.  If it's already an absolute path the input path will be returned unaltered
func (fs *InMemFS) Abs(path string) (string, error) {
	return fs.getAbsPath(path), nil
}
