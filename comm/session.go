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
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	pbstx "github.com/miniecu/go-pbstx"
	"github.com/miniecu/go-pbstx/msg"
)

// Session is one active attachment of the dispatch loop to one link.
// It owns the link handle and a single reusable frame/message buffer;
// no session state is shared with other sessions except the registry.
type Session struct {
	hub  *Hub
	link *pbstx.Link
	slot int
	buf  [pbstx.MaxPayload]byte
}

// Run attaches a session to link and drives its dispatch loop until ctx
// is cancelled. Registration happens first; when the registry is full
// the loop does not start. Each iteration either emits a periodic
// Status envelope or receives and dispatches one inbound envelope.
// Receive timeouts on an idle channel simply advance the loop.
func (h *Hub) Run(ctx context.Context, link *pbstx.Link) error {
	s := &Session{hub: h, link: link}
	slot, err := h.reg.Register(s)
	if err != nil {
		return fmt.Errorf("attach session: %w", err)
	}
	s.slot = slot

	h.alert.Set(pbstx.AlertNormal)
	h.log.Info("pbstx session started", zap.Int("slot", slot))
	defer func() {
		h.reg.Deregister(s)
		h.log.Info("pbstx session terminated", zap.Int("slot", slot))
	}()

	var lastStatus time.Time
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if time.Since(lastStatus) >= h.cfg.statusPeriod() {
			if err := pbstx.EncodeSend(ctx, s.link, s.buf[:], h.buildStatus()); err != nil {
				h.log.Debug("status send failed", zap.Int("slot", slot), zap.Error(err))
			}
			lastStatus = time.Now()
		}

		frame, err := s.link.ReceiveFrame(ctx, s.buf[:])
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Dropped frame; the protocol self-heals on the next
			// successfully framed message.
			continue
		}

		s.dispatch(ctx, frame.Payload)
	}
}

// dispatch resolves the envelope kind carried in payload and routes the
// decoded message to its handler. Unrecognized kinds are silently
// dropped, as are memory dump requests while the feature is disabled.
// Decode failures raise the comm alert and drop the frame; no reply is
// sent.
func (s *Session) dispatch(ctx context.Context, payload []byte) {
	kind, rest, ok := msg.ScanKind(payload)
	if !ok {
		return
	}
	if kind == msg.KindMemoryDumpRequest && !s.hub.cfg.EnableMemdump {
		return
	}

	m, err := msg.Decode(kind, rest)
	if err != nil {
		s.hub.alert.Set(pbstx.AlertFailed)
		s.hub.log.Debug("envelope decode failed",
			zap.Stringer("kind", kind), zap.Error(err))
		return
	}

	switch m := m.(type) {
	case *msg.Command:
		s.handleCommand(ctx, m)
	case *msg.TimeReference:
		s.handleTimeReference(ctx, m)
	case *msg.ParamRequest:
		s.handleParamRequest(ctx, m)
	case *msg.ParamSet:
		s.handleParamSet(ctx, m)
	case *msg.LogRequest:
		s.handleLogRequest(m)
	case *msg.MemoryDumpRequest:
		s.handleMemoryDump(ctx, m)
	default:
		// Status, ParamValue, MemoryDumpPage and StatusText originate
		// on this side; inbound copies are echoes and are dropped.
	}
}

// send emits one envelope on this session's own link, reusing the
// session buffer.
func (s *Session) send(ctx context.Context, m msg.Message) {
	if err := pbstx.EncodeSend(ctx, s.link, s.buf[:], m); err != nil {
		s.hub.log.Debug("reply send failed",
			zap.Stringer("kind", m.Kind()), zap.Error(err))
	}
}
