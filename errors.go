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
	"errors"
	"fmt"
)

// Error categories. Every failure is local to one frame; none is fatal
// to the process and there is no automatic retry.
var (
	// Channel errors
	ErrTimeout = errors.New("channel timeout")
	ErrReset   = errors.New("channel reset")
	ErrClosed  = errors.New("channel is closed")

	// Frame errors
	ErrChecksumMismatch = errors.New("frame checksum mismatch")
	ErrPayloadTooLarge  = errors.New("payload exceeds frame limit")

	// Envelope errors
	ErrEncode = errors.New("envelope encode failed")
	ErrDecode = errors.New("envelope decode failed")
)

// ChannelError wraps channel-level errors with operation and port
// context.
type ChannelError struct {
	Err  error  // Underlying error
	Op   string // Operation that failed
	Port string // Port or device identifier
}

func (e *ChannelError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

// NewChannelError creates a channel error with consistent formatting.
func NewChannelError(op, port string, err error) *ChannelError {
	return &ChannelError{Op: op, Port: port, Err: err}
}

// NewTimeoutError creates a timeout error for channel operations.
func NewTimeoutError(op, port string) *ChannelError {
	return NewChannelError(op, port, ErrTimeout)
}

// NewResetError creates a reset/disconnect error for channel operations.
func NewResetError(op, port string) *ChannelError {
	return NewChannelError(op, port, ErrReset)
}

// IsTimeout returns true if the error is a channel timeout. A timeout on
// an idle channel is an expected condition, not a fault.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsReset returns true if the error indicates the underlying channel
// reported a reset or disconnect.
func IsReset(err error) bool {
	return errors.Is(err, ErrReset)
}
