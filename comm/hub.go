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

// Package comm runs PBStx sessions for an engine-control unit: each
// attached channel gets a dispatch loop that multiplexes periodic
// outbound status against inbound request handling. Message semantics
// are delegated to narrow collaborator interfaces (parameter store,
// command executor, time base, sensors, memory readback).
package comm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	pbstx "github.com/miniecu/go-pbstx"
	"github.com/miniecu/go-pbstx/msg"
)

// Hub is the process-scoped context shared by every session: identity
// and configuration, the bounded session registry, the comm health
// alert and the collaborators. Create one Hub per controller and run
// one session per attached link.
type Hub struct {
	alert *pbstx.Alert
	log   *zap.Logger
	co    Collaborators
	reg   Registry
	cfg   Config
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the hub's diagnostic logger.
func WithLogger(log *zap.Logger) Option {
	return func(h *Hub) { h.log = log }
}

// WithAlert sets the comm component health alert shared with the frame
// and envelope codecs.
func WithAlert(alert *pbstx.Alert) Option {
	return func(h *Hub) { h.alert = alert }
}

// NewHub creates a Hub with the given identity and collaborators.
func NewHub(cfg Config, co Collaborators, opts ...Option) *Hub {
	h := &Hub{
		cfg:   cfg,
		co:    co,
		alert: pbstx.NewAlert(nil),
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Alert returns the comm component health alert.
func (h *Hub) Alert() *pbstx.Alert {
	return h.alert
}

// Registry returns the live session registry.
func (h *Hub) Registry() *Registry {
	return &h.reg
}

// Broadcast encodes m exactly once and forwards the encoded bytes to
// every live session. Per-session send failures do not short-circuit
// the fan-out; the last failure is reported.
func (h *Hub) Broadcast(ctx context.Context, m msg.Message) error {
	payload, err := msg.AppendEnvelope(nil, m)
	if err != nil {
		h.alert.Set(pbstx.AlertFailed)
		return fmt.Errorf("%w: %w", pbstx.ErrEncode, err)
	}
	if len(payload) > pbstx.MaxPayload {
		h.alert.Set(pbstx.AlertFailed)
		return fmt.Errorf("%w: %s needs %d bytes", pbstx.ErrEncode, m.Kind(), len(payload))
	}

	var lastErr error
	h.reg.ForEachLive(func(s *Session) {
		if err := s.link.SendFrame(ctx, byte(m.Kind()), payload); err != nil {
			lastErr = err
		}
	})
	return lastErr
}

// maxStatusTextLen keeps a formatted diagnostic line within one frame
// after envelope overhead.
const maxStatusTextLen = 200

// StatusTextf formats and broadcasts a StatusText diagnostic line to
// every attached host. Overlong lines are truncated to fit one frame.
func (h *Hub) StatusTextf(ctx context.Context, sev msg.Severity, format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	if len(text) > maxStatusTextLen {
		text = text[:maxStatusTextLen]
	}
	_ = h.Broadcast(ctx, &msg.StatusText{
		EngineID: h.cfg.EngineID,
		Severity: sev,
		Text:     text,
	})
}
