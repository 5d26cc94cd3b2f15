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

package pbstx

import (
	"context"
	"sync"
	"time"

	"github.com/miniecu/go-pbstx/internal/syncutil"
)

// Channel is a physical byte-stream channel carrying PBStx frames.
// This can be implemented by a hardware UART, a USB CDC virtual serial
// port, or an in-memory mock for testing.
type Channel interface {
	// ReadByte reads a single byte, waiting at most timeout.
	// A quiet channel returns ErrTimeout; a disconnect returns ErrReset.
	ReadByte(ctx context.Context, timeout time.Duration) (byte, error)

	// Read fills buf exactly, waiting at most timeout for the whole
	// transfer. A partial fill is reported as ErrTimeout.
	Read(ctx context.Context, buf []byte, timeout time.Duration) error

	// Write writes data fully, bounded by timeout.
	Write(ctx context.Context, data []byte, timeout time.Duration) error

	// Connected reports whether the channel link is currently usable.
	// For USB CDC ports this tracks the link-layer state and drives
	// failover selection.
	Connected() bool

	// Close closes the channel.
	Close() error
}

// Link is the send/receive path bound to one logical channel. All frame
// writes through a Link are serialized by a single mutex, so one frame's
// header, payload and CRC bytes are never interleaved with another
// sender's bytes. The same critical section covers backend resolution,
// so a failover swap cannot happen mid-frame.
type Link struct {
	resolve        func() Channel
	alert          *Alert
	mu             syncutil.Mutex
	byteTimeout    time.Duration
	payloadTimeout time.Duration
	txSeq          uint8
}

// LinkOption configures a Link.
type LinkOption func(*Link)

// WithAlert attaches a component health alert toggled by the frame and
// envelope codecs on failure/success.
func WithAlert(alert *Alert) LinkOption {
	return func(l *Link) { l.alert = alert }
}

// WithTimeouts overrides the per-byte and per-payload receive timeouts.
func WithTimeouts(byteTimeout, payloadTimeout time.Duration) LinkOption {
	return func(l *Link) {
		l.byteTimeout = byteTimeout
		l.payloadTimeout = payloadTimeout
	}
}

func newLink(resolve func() Channel, opts []LinkOption) *Link {
	l := &Link{
		resolve:        resolve,
		byteTimeout:    DefaultByteTimeout,
		payloadTimeout: DefaultPayloadTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewLink creates a Link dedicated to a single physical channel. Use one
// dedicated Link per channel when multiple independent sessions run
// concurrently.
func NewLink(ch Channel, opts ...LinkOption) *Link {
	return newLink(func() Channel { return ch }, opts)
}

// NewFailoverLink creates a Link that resolves, on each frame, to the
// primary channel while it reports connected and to the fallback
// otherwise. Typical deployment prefers an active USB CDC port and falls
// back to the hardware UART.
func NewFailoverLink(primary, fallback Channel, opts ...LinkOption) *Link {
	return newLink(func() Channel {
		if primary.Connected() {
			return primary
		}
		return fallback
	}, opts)
}

// Resolve returns the currently selected backend channel. The selection
// is made under the same lock as frame writes.
func (l *Link) Resolve() Channel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.resolve()
}

func (l *Link) setAlert(level AlertLevel) {
	if l.alert != nil {
		l.alert.Set(level)
	}
}

// MockChannel provides an in-memory implementation of Channel for
// testing. Reads never block: an empty receive buffer reports an
// immediate timeout so tests run fast.
type MockChannel struct {
	readErr   error
	rx        []byte
	tx        []byte
	mu        sync.Mutex
	connected bool
}

// NewMockChannel creates a connected mock channel with no pending data.
func NewMockChannel() *MockChannel {
	return &MockChannel{connected: true}
}

// Feed appends data to the mock's receive buffer.
func (m *MockChannel) Feed(data []byte) {
	m.mu.Lock()
	m.rx = append(m.rx, data...)
	m.mu.Unlock()
}

// FailReads makes every following read return err (e.g. ErrReset).
func (m *MockChannel) FailReads(err error) {
	m.mu.Lock()
	m.readErr = err
	m.mu.Unlock()
}

// SetConnected sets the reported link state.
func (m *MockChannel) SetConnected(connected bool) {
	m.mu.Lock()
	m.connected = connected
	m.mu.Unlock()
}

// TxBytes returns a copy of everything written to the channel so far.
func (m *MockChannel) TxBytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, len(m.tx))
	copy(out, m.tx)
	return out
}

// ClearTx discards captured written bytes.
func (m *MockChannel) ClearTx() {
	m.mu.Lock()
	m.tx = nil
	m.mu.Unlock()
}

// ReadByte implements Channel.
func (m *MockChannel) ReadByte(ctx context.Context, _ time.Duration) (byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return 0, m.readErr
	}
	if !m.connected {
		return 0, NewResetError("ReadByte", "mock")
	}
	if len(m.rx) == 0 {
		return 0, NewTimeoutError("ReadByte", "mock")
	}
	b := m.rx[0]
	m.rx = m.rx[1:]
	return b, nil
}

// Read implements Channel.
func (m *MockChannel) Read(ctx context.Context, buf []byte, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return m.readErr
	}
	if !m.connected {
		return NewResetError("Read", "mock")
	}
	if len(m.rx) < len(buf) {
		// Partial data counts as a payload timeout.
		m.rx = nil
		return NewTimeoutError("Read", "mock")
	}
	copy(buf, m.rx[:len(buf)])
	m.rx = m.rx[len(buf):]
	return nil
}

// Write implements Channel.
func (m *MockChannel) Write(ctx context.Context, data []byte, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return NewResetError("Write", "mock")
	}
	m.tx = append(m.tx, data...)
	return nil
}

// Connected implements Channel.
func (m *MockChannel) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Close implements Channel.
func (m *MockChannel) Close() error {
	m.SetConnected(false)
	return nil
}

// Ensure MockChannel implements Channel
var _ Channel = (*MockChannel)(nil)
