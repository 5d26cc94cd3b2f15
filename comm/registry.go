// Copyright 2026 The go-pbstx Contributors.
// SPDX-License-Identifier: Apache-2.0
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

package comm

import (
	"errors"

	"github.com/miniecu/go-pbstx/internal/syncutil"
)

// MaxSessions bounds the number of concurrently attached sessions.
const MaxSessions = 2

// ErrRegistryFull reports that every session slot is occupied; the
// dispatch loop for the extra channel must not start.
var ErrRegistryFull = errors.New("session registry full")

// Registry is a fixed-capacity set of live sessions. Entries are
// non-owning: the registry never controls session lifetime, it only
// lets broadcast fan out one encoded buffer to every attached session.
// Slot mutation happens only on a session's own start/stop transitions.
type Registry struct {
	mu    syncutil.Mutex
	slots [MaxSessions]*Session
}

// Register claims the first free slot for s.
func (r *Registry) Register(s *Session) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, slot := range r.slots {
		if slot == nil {
			r.slots[i] = s
			return i, nil
		}
	}
	return 0, ErrRegistryFull
}

// Deregister clears s's slot. It is idempotent.
func (r *Registry) Deregister(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, slot := range r.slots {
		if slot == s {
			r.slots[i] = nil
		}
	}
}

// ForEachLive calls fn for every occupied slot. The slot table is
// snapshotted under the lock and fn runs outside it, so a send inside
// fn never extends the critical section.
func (r *Registry) ForEachLive(fn func(*Session)) {
	r.mu.Lock()
	snapshot := r.slots
	r.mu.Unlock()

	for _, s := range snapshot {
		if s != nil {
			fn(s)
		}
	}
}

// Live returns the number of occupied slots.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.slots {
		if s != nil {
			n++
		}
	}
	return n
}
