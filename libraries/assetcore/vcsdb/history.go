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
	"context"

	"github.com/dolthub/assetvcs/libraries/assetcore/vcserr"
)

// FindCommitAncestors returns the ids of every commit reachable from |id|
// through any parent edge. |id| itself is not part of the result.
func FindCommitAncestors(ctx context.Context, cr CommitReader, id string) (map[string]struct{}, error) {
	ancestors := make(map[string]struct{})
	queue := []string{id}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cur := queue[0]
		queue = queue[1:]

		cm, err := cr.GetCommit(ctx, cur)
		if err != nil {
			return nil, err
		}

		for _, p := range cm.Parents {
			if p == id {
				return nil, vcserr.ErrInvalidHistory.New(id, "commit is its own ancestor")
			}
			if _, ok := ancestors[p]; ok {
				continue
			}
			ancestors[p] = struct{}{}
			queue = append(queue, p)
		}
	}

	return ancestors, nil
}

// BranchCommitHistory returns the trunk chain of |branch|: its head followed
// by each first parent until the root commit.
func BranchCommitHistory(ctx context.Context, cr CommitReader, branch Branch) ([]*Commit, error) {
	return CommitHistory(ctx, cr, branch.Head, 0)
}

// CommitHistory follows first parents from |start|, returning at most
// |depth| commits. A depth of zero walks to the root.
func CommitHistory(ctx context.Context, cr CommitReader, start string, depth int) ([]*Commit, error) {
	var history []*Commit
	seen := make(map[string]struct{})

	for id := start; id != ""; {
		if depth > 0 && len(history) >= depth {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, ok := seen[id]; ok {
			return nil, vcserr.ErrInvalidHistory.New(id, "first parent chain contains a cycle")
		}
		seen[id] = struct{}{}

		cm, err := cr.GetCommit(ctx, id)
		if err != nil {
			return nil, err
		}

		history = append(history, cm)
		id = cm.FirstParent()
	}

	return history, nil
}

// AncestorFinder picks the merge base of a destination trunk history and the
// ancestor set of a merge source.
type AncestorFinder func(destinationHistory []*Commit, sourceAncestors map[string]struct{}) (string, error)

var _ AncestorFinder = FindLatestCommonAncestor

// FindLatestCommonAncestor returns the first commit of |destinationHistory|
// that is contained in |sourceAncestors|. Only the destination's trunk chain is
// considered, so for histories with merges on the destination side the result
// is a common ancestor but not necessarily the lowest one.
func FindLatestCommonAncestor(destinationHistory []*Commit, sourceAncestors map[string]struct{}) (string, error) {
	for _, cm := range destinationHistory {
		if _, ok := sourceAncestors[cm.ID]; ok {
			return cm.ID, nil
		}
	}

	dest := ""
	if len(destinationHistory) > 0 {
		dest = destinationHistory[0].ID
	}
	return "", vcserr.ErrNoCommonAncestor.New(dest)
}

// ChangesSince collects, for every path changed in |history| before reaching
// |stopID|, the change that is most recent. |history| is ordered most recent
// first. The result is keyed by LockKey of the path.
func ChangesSince(history []*Commit, stopID string) map[string]HashedChange {
	changes := make(map[string]HashedChange)
	for _, cm := range history {
		if cm.ID == stopID {
			break
		}
		for _, ch := range cm.Changes {
			key := LockKey(ch.RelativePath)
			if _, ok := changes[key]; !ok {
				changes[key] = ch
			}
		}
	}
	return changes
}
