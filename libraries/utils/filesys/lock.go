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
	"github.com/juju/fslock"
	"github.com/pkg/errors"
)

var errLockUnlock = errors.New("unlocking a lock that is not held")

// FilesysLock is an interface for locking and unlocking filesystems
type FilesysLock interface {
	TryLock() (bool, error)
	Unlock() error
}

// CreateFilesysLock creates a new FilesysLock
func CreateFilesysLock(fs Filesys, filename string) FilesysLock {
	switch fs := fs.(type) {
	case *InMemFS:
		return NewInMemFileLock(fs, filename)
	case *localFS:
		return NewLocalFileLock(fs, filename)
	default:
		panic("Unsupported file system")
	}
}

// InMemFileLock is a lock for the InMemFS. Locks on the same file of the same
// InMemFS exclude each other.
type InMemFileLock struct {
	fs   *InMemFS
	path string
	held bool
}

// NewInMemFileLock creates a new InMemFileLock
func NewInMemFileLock(fs *InMemFS, filename string) *InMemFileLock {
	return &InMemFileLock{fs: fs, path: fs.getAbsPath(filename)}
}

// TryLock attempts to lock the lock or fails if it is already locked
func (memLock *InMemFileLock) TryLock() (bool, error) {
	memLock.fs.rwLock.Lock()
	defer memLock.fs.rwLock.Unlock()

	if memLock.fs.locks[memLock.path] {
		return false, nil
	}
	memLock.fs.locks[memLock.path] = true
	memLock.held = true
	return true, nil
}

// Unlock unlocks the lock
func (memLock *InMemFileLock) Unlock() error {
	memLock.fs.rwLock.Lock()
	defer memLock.fs.rwLock.Unlock()

	if !memLock.held {
		return errLockUnlock
	}
	delete(memLock.fs.locks, memLock.path)
	memLock.held = false
	return nil
}

// LocalFileLock is the lock for the localFS
type LocalFileLock struct {
	lck *fslock.Lock
}

// NewLocalFileLock creates a new LocalFileLock
func NewLocalFileLock(fs Filesys, filename string) *LocalFileLock {
	lck := fslock.New(filename)

	return &LocalFileLock{lck: lck}
}

// TryLock attempts to lock the lock or fails if it is already locked
func (locLock *LocalFileLock) TryLock() (bool, error) {
	err := locLock.lck.TryLock()
	if err == fslock.ErrLocked {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "acquiring file lock")
	}
	return true, nil
}

// Unlock unlocks the lock
func (locLock *LocalFileLock) Unlock() error {
	err := locLock.lck.Unlock()
	if err != nil {
		return err
	}
	return nil
}
