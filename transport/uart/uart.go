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

// Package uart provides a pbstx.Channel backed by a serial port. It
// covers both the dedicated UART and USB CDC-ACM ports; for CDC ports
// the connected state drops when the host side disappears, which
// drives failover link selection.
package uart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"

	pbstx "github.com/miniecu/go-pbstx"
)

// Channel implements pbstx.Channel over a go.bug.st/serial port.
type Channel struct {
	port     serial.Port
	portName string

	// Separate read and write locks: a receive poll in progress must
	// not stall a frame send on the same port.
	readMu    sync.Mutex
	writeMu   sync.Mutex
	connected atomic.Bool
}

// Option configures a Channel.
type Option func(*serial.Mode)

// WithBaudRate overrides the default 115200 baud.
func WithBaudRate(baud int) Option {
	return func(m *serial.Mode) { m.BaudRate = baud }
}

// Open opens portName at 115200 8N1 unless options say otherwise.
func Open(portName string, opts ...Option) (*Channel, error) {
	mode := &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	for _, opt := range opts {
		opt(mode)
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}

	c := &Channel{port: port, portName: portName}
	c.connected.Store(true)
	return c, nil
}

// ReadByte implements pbstx.Channel.
func (c *Channel) ReadByte(ctx context.Context, timeout time.Duration) (byte, error) {
	var buf [1]byte
	if err := c.Read(ctx, buf[:], timeout); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// Read implements pbstx.Channel. The port's read timeout is used as the
// poll interval so a cancelled context is noticed between polls; the
// whole transfer is bounded by timeout.
func (c *Channel) Read(ctx context.Context, buf []byte, timeout time.Duration) error {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if err := c.port.SetReadTimeout(timeout); err != nil {
		return c.fail("read", err)
	}

	deadline := time.Now().Add(timeout)
	filled := 0
	for filled < len(buf) {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := c.port.Read(buf[filled:])
		if err != nil {
			return c.fail("read", err)
		}
		filled += n

		if filled < len(buf) && !time.Now().Before(deadline) {
			return pbstx.NewTimeoutError("read", c.portName)
		}
	}
	return nil
}

// Write implements pbstx.Channel.
func (c *Channel) Write(ctx context.Context, data []byte, _ time.Duration) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	written := 0
	for written < len(data) {
		n, err := c.port.Write(data[written:])
		if err != nil {
			return c.fail("write", err)
		}
		written += n
	}
	return nil
}

// Connected implements pbstx.Channel.
func (c *Channel) Connected() bool {
	return c.connected.Load()
}

// Close implements pbstx.Channel.
func (c *Channel) Close() error {
	c.connected.Store(false)
	if err := c.port.Close(); err != nil {
		return pbstx.NewChannelError("close", c.portName, err)
	}
	return nil
}

// fail translates a port error, marking the channel disconnected when
// the device itself went away.
func (c *Channel) fail(op string, err error) error {
	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case serial.PortClosed, serial.PortNotFound:
			c.connected.Store(false)
			return pbstx.NewResetError(op, c.portName)
		}
	}
	return pbstx.NewChannelError(op, c.portName, err)
}
