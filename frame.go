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

// Package pbstx implements the PBStx framed byte-stream protocol used
// between an engine-control unit and a ground-side host over a UART or
// USB virtual serial channel.
//
// One frame on the wire is:
//
//	[0xA5][SEQ:1][MSGID:1][LEN:1][PAYLOAD:LEN][CRC8:1]
//
// The CRC-8 covers SEQ through PAYLOAD. The sequence number increments
// per sender and wraps at 256; receivers treat it as advisory. The
// MSGID byte mirrors the envelope kind on send but dispatch on receive
// is driven by the payload's tag scan, so receivers treat MSGID as
// advisory too.
package pbstx

import (
	"context"
	"fmt"
	"time"
)

// Wire format constants.
const (
	// StartMarker opens every frame.
	StartMarker = 0xA5
	// MaxPayload is the largest payload one frame can carry.
	MaxPayload = 255
	// HeaderLen is start marker + sequence + message id + length.
	HeaderLen = 4
)

// Receive timeouts. Header bytes arrive back to back; payload transfer
// may be slower or bursty, so it gets a longer bound.
const (
	DefaultByteTimeout    = 10 * time.Millisecond
	DefaultPayloadTimeout = 50 * time.Millisecond
)

// Frame is one complete wire-level packet after the start marker and
// CRC have been stripped.
type Frame struct {
	Payload []byte
	Seq     byte
	MsgID   byte
}

// receive state machine states
type rxState uint8

const (
	rxWaitStart rxState = iota
	rxSeq
	rxMsgID
	rxLen
	rxPayload
	rxCRC
)

// ReceiveFrame reassembles one frame from the link's resolved channel.
// It blocks for at most one byte timeout while the channel is idle; an
// idle timeout is returned silently (no alert) since it only means no
// one is talking. A timeout or reset mid-payload and a CRC mismatch
// raise the link's alert. No partial-frame state survives an error: the
// next call always starts by hunting for the start marker.
//
// buf backs the returned Frame's payload and must hold MaxPayload bytes.
func (l *Link) ReceiveFrame(ctx context.Context, buf []byte) (Frame, error) {
	ch := l.Resolve()

	var frame Frame
	var crc uint8
	state := rxWaitStart

	for {
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}

		if state == rxPayload {
			// Payload is consumed in one bulk read under the longer
			// timeout. A stall here is a fault, unlike idle silence.
			if err := ch.Read(ctx, frame.Payload, l.payloadTimeout); err != nil {
				l.setAlert(AlertFailed)
				return Frame{}, fmt.Errorf("frame payload: %w", err)
			}
			crc = crcUpdate(crc, frame.Payload)
			state = rxCRC
			continue
		}

		b, err := ch.ReadByte(ctx, l.byteTimeout)
		if err != nil {
			if IsReset(err) {
				l.setAlert(AlertFailed)
			}
			return Frame{}, err
		}

		switch state {
		case rxWaitStart:
			if b == StartMarker {
				state = rxSeq
			}

		case rxSeq:
			frame.Seq = b
			crc = crcUpdate(crcInit(), []byte{b})
			state = rxMsgID

		case rxMsgID:
			frame.MsgID = b
			crc = crcUpdate(crc, []byte{b})
			state = rxLen

		case rxLen:
			length := int(b)
			crc = crcUpdate(crc, []byte{b})
			if length == 0 {
				frame.Payload = buf[:0]
				state = rxCRC
				break
			}
			if length > len(buf) {
				l.setAlert(AlertFailed)
				return Frame{}, fmt.Errorf("frame payload %d bytes: %w", length, ErrPayloadTooLarge)
			}
			frame.Payload = buf[:length]
			state = rxPayload

		case rxPayload:
			// handled before the byte read

		case rxCRC:
			if b != crc {
				l.setAlert(AlertFailed)
				return Frame{}, fmt.Errorf("crc %#02x, expected %#02x: %w", b, crc, ErrChecksumMismatch)
			}
			l.setAlert(AlertNormal)
			return frame, nil
		}
	}
}

// SendFrame writes one frame to the link's resolved channel. Backend
// resolution, the sequence increment and the header/payload/CRC writes
// all happen inside one critical section, released on every exit path.
func (l *Link) SendFrame(ctx context.Context, msgID byte, payload []byte) error {
	if len(payload) > MaxPayload {
		return fmt.Errorf("frame payload %d bytes: %w", len(payload), ErrPayloadTooLarge)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ch := l.resolve()
	header := [HeaderLen]byte{StartMarker, l.txSeq, msgID, byte(len(payload))}
	l.txSeq++

	crc := crcUpdate(crcInit(), header[1:])
	if err := ch.Write(ctx, header[:], l.byteTimeout); err != nil {
		return fmt.Errorf("frame header: %w", err)
	}

	if len(payload) > 0 {
		crc = crcUpdate(crc, payload)
		if err := ch.Write(ctx, payload, l.payloadTimeout); err != nil {
			return fmt.Errorf("frame payload: %w", err)
		}
	}

	if err := ch.Write(ctx, []byte{crc}, l.byteTimeout); err != nil {
		return fmt.Errorf("frame crc: %w", err)
	}
	return nil
}

// AppendFrame appends one encoded frame to dst and returns the extended
// slice. It is the host-side counterpart of SendFrame and is also used
// by tests to script inbound traffic.
func AppendFrame(dst []byte, seq, msgID byte, payload []byte) []byte {
	dst = append(dst, StartMarker, seq, msgID, byte(len(payload)))
	dst = append(dst, payload...)
	crc := crcUpdate(crcInit(), dst[len(dst)-3-len(payload):])
	return append(dst, crc)
}
