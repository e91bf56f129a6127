// Copyright 2020 Fugue, Inc.
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

// Package memo implements the rule registry described in §4.4: a
// persistent key/value layer that remembers the result of a pure
// computation (most importantly, the CommandQ -> Hash and
// WriteArtifactQ -> Artifact rules) plus an in-process guarantee that two
// concurrent callers asking for the same key collapse onto a single
// computation rather than racing.
package memo

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// PersistentStore is the external collaborator §6 describes: a key/value
// map surviving across process invocations. Query/result pairs are encoded
// as strings by the caller (typically JSON or a content hash) so a single
// narrow interface covers every rule this module registers.
type PersistentStore interface {
	Get(key string) (value string, found bool, err error)
	Set(key, value string) error
}

// MemStore is an in-memory PersistentStore, sufficient for single-process
// use and for tests. A durable on-disk implementation (e.g. a small
// embedded KV file under _pier/cache/) can be substituted by constructing
// Memo with a different PersistentStore.
type MemStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemStore returns an empty in-memory PersistentStore.
func NewMemStore() *MemStore {
	return &MemStore{data: map[string]string{}}
}

// Get implements PersistentStore.
func (m *MemStore) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

// Set implements PersistentStore.
func (m *MemStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// Memo memoizes string-valued rules keyed by an arbitrary string, with
// at-most-one-concurrent-computation per key within this process.
type Memo struct {
	store PersistentStore
	group singleflight.Group
}

// New returns a Memo backed by store. Pass a *MemStore for single-process
// use, or any other PersistentStore implementation for cross-process
// durability.
func New(store PersistentStore) *Memo {
	return &Memo{store: store}
}

// Ask returns the memoized value for key, computing and persisting it via
// compute on a miss. Concurrent Ask calls for the same key block on the
// first caller's compute rather than duplicating the work; a compute that
// returns an error commits nothing, so a later Ask retries it.
func (m *Memo) Ask(key string, compute func() (string, error)) (value string, err error) {
	if v, found, err := m.store.Get(key); err != nil {
		return "", fmt.Errorf("memo: lookup %q: %w", key, err)
	} else if found {
		return v, nil
	}

	v, err, _ := m.group.Do(key, func() (interface{}, error) {
		// Re-check after winning the race: another goroutine may have
		// persisted a result for this key between our failed lookup above
		// and acquiring the singleflight slot.
		if v2, found, err := m.store.Get(key); err != nil {
			return nil, err
		} else if found {
			return v2, nil
		}
		result, err := compute()
		if err != nil {
			return nil, err
		}
		if err := m.store.Set(key, result); err != nil {
			return nil, fmt.Errorf("memo: persisting %q: %w", key, err)
		}
		return result, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Forget removes the in-flight singleflight entry for key, if any, so a
// subsequent Ask starts fresh. It does not affect the PersistentStore.
func (m *Memo) Forget(key string) {
	m.group.Forget(key)
}
