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
	"errors"
	"io"
	"os"
	"path/filepath"
)

// LocalFS is the machines local filesystem
var LocalFS = &localFS{}

type localFS struct{}

var _ Filesys = LocalFS

// Exists will tell you if a file or directory with a given path already exists, and if it does is it a directory
func (fs *localFS) Exists(path string) (exists bool, isDir bool) {
	stat, err := os.Stat(path)

	if err != nil {
		return false, false
	}

	return true, stat.IsDir()
}

var errStopMarker = errors.New("stop")

// Iter iterates over the files and subdirectories within a given directory (Optionally recursively.
func (fs *localFS) Iter(path string, recursive bool, cb FSIterCB) error {
	if !recursive {
		entries, err := os.ReadDir(path)

		if err != nil {
			return err
		}

		for _, curr := range entries {
			var size int64
			if info, err := curr.Info(); err == nil {
				size = info.Size()
			}

			stop := cb(filepath.Join(path, curr.Name()), size, curr.IsDir())

			if stop {
				return nil
			}
		}

		return nil
	}

	return fs.iter(path, cb)
}

func (fs *localFS) iter(dir string, cb FSIterCB) error {
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if dir != path {
			stop := cb(path, info.Size(), info.IsDir())

			if stop {
				return errStopMarker
			}
		}
		return nil
	})

	if err == errStopMarker {
		return nil
	}

	return err
}

// OpenForRead opens a file for reading
func (fs *localFS) OpenForRead(fp string) (io.ReadCloser, error) {
	if exists, isDir := fs.Exists(fp); !exists {
		return nil, os.ErrNotExist
	} else if isDir {
		return nil, ErrIsDir
	}

	return os.Open(fp)
}

// ReadFile reads the entire contents of a file
func (fs *localFS) ReadFile(fp string) ([]byte, error) {
	return os.ReadFile(fp)
}

// OpenForWrite opens a file for writing.  The file will be created if it does not exist, and if it does exist
// it will be overwritten.
func (fs *localFS) OpenForWrite(fp string) (io.WriteCloser, error) {
	return os.OpenFile(fp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0666)
}

// WriteFile writes the entire data buffer to a given file.  The file will be created if it does not exist,
// and if it does exist it will be overwritten.
func (fs *localFS) WriteFile(fp string, data []byte) error {
	return os.WriteFile(fp, data, 0666)
}

// MkDirs creates a folder and all the parent folders that are necessary to create it.
func (fs *localFS) MkDirs(path string) error {
	_, err := os.Stat(path)

	if err != nil {
		return os.MkdirAll(path, os.ModePerm)
	}

	return nil
}

// DeleteFile will delete a file at the given path
func (fs *localFS) DeleteFile(path string) error {
	if exists, isDir := fs.Exists(path); exists {
		if isDir {
			return ErrIsDir
		}

		return os.Remove(path)
	}

	return os.ErrNotExist
}

// Delete will delete an empty directory, or a file.  If trying delete a directory that is not empty you can set force to
// true in order to delete the dir and all of it's contents
func (fs *localFS) Delete(path string, force bool) error {
	if !force {
		return os.Remove(path)
	} else {
		return os.RemoveAll(path)
	}
}

// SetReadOnly clears or restores the write permission bits of a file.
func (fs *localFS) SetReadOnly(fp string, readOnly bool) error {
	stat, err := os.Stat(fp)
	if err != nil {
		return err
	}
	if stat.IsDir() {
		return ErrIsDir
	}

	mode := stat.Mode().Perm()
	if readOnly {
		mode &^= 0222
	} else {
		mode |= 0200
	}
	return os.Chmod(fp, mode)
}

func (fs *localFS) IsReadOnly(fp string) (bool, error) {
	stat, err := os.Stat(fp)
	if err != nil {
		return false, err
	}
	return stat.Mode().Perm()&0200 == 0, nil
}

// converts a path to an absolute path.  If it's already an absolute path the input path will be returned unaltered
func (fs *localFS) Abs(path string) (string, error) {
	return filepath.Abs(path)
}
