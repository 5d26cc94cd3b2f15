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

package ecusim

import (
	"time"

	"github.com/miniecu/go-pbstx/internal/syncutil"
)

// Clock implements comm.TimeBase. The monotonic system time counts
// milliseconds since construction; the epoch clock stays unknown until
// the first TimeReference synchronizes it.
type Clock struct {
	mu     syncutil.Mutex
	boot   time.Time
	offset int64
	known  bool
}

// NewClock starts the monotonic clock at zero.
func NewClock() *Clock {
	return &Clock{boot: time.Now()}
}

// IsKnown implements comm.TimeBase.
func (c *Clock) IsKnown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.known
}

// SystemTime implements comm.TimeBase.
func (c *Clock) SystemTime() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.systemTime()
}

// Timestamp implements comm.TimeBase.
func (c *Clock) Timestamp() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return uint64(int64(c.systemTime()) + c.offset)
}

// SetTimestamp implements comm.TimeBase. It records remote as the
// current epoch time and returns the change this applied to the local
// epoch clock, in milliseconds.
func (c *Clock) SetTimestamp(remote uint64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := int64(c.systemTime()) + c.offset
	c.offset = int64(remote) - int64(c.systemTime())
	c.known = true
	return int64(remote) - prev
}

func (c *Clock) systemTime() uint64 {
	return uint64(time.Since(c.boot) / time.Millisecond)
}
