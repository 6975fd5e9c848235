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

package keymutex

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapped(t *testing.T) {
	ctx := context.Background()
	km := NewMapped()

	require.NoError(t, km.Lock(ctx, "a"))
	assert.False(t, km.TryLock("a"))
	assert.True(t, km.TryLock("b"))
	km.Unlock("b")

	timeout, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	assert.Error(t, km.Lock(timeout, "a"))

	km.Unlock("a")
	assert.True(t, km.TryLock("a"))
	km.Unlock("a")
}

func TestMappedSerializesKey(t *testing.T) {
	ctx := context.Background()
	km := NewMapped()

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, km.Lock(ctx, "k"))
			defer km.Unlock("k")
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}
