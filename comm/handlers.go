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
	"errors"

	"go.uber.org/zap"

	"github.com/miniecu/go-pbstx/msg"
)

// memdumpPageSize is the payload chunk carried by one MemoryDumpPage.
const memdumpPageSize = 64

// handleCommand executes an inbound command addressed to this engine
// and replies with the same message carrying the execution result. A
// command that already carries a Response is our own reply echoed back
// and is dropped, as is any command for a different engine id.
func (s *Session) handleCommand(ctx context.Context, m *msg.Command) {
	if m.EngineID != s.hub.cfg.EngineID || m.Response != nil {
		return
	}

	result := s.hub.co.Commands.Execute(m.Operation)
	s.hub.log.Info("command executed",
		zap.Uint32("operation", uint32(m.Operation)),
		zap.Uint32("result", uint32(result)))

	m.Response = &result
	s.send(ctx, m)
}

// handleTimeReference adjusts the local time base from a remote
// timestamp and replies with the measured offset. Broadcast references
// (engine id 0) are accepted alongside directly addressed ones. A
// reference that already carries TimeDiff is an echoed reply.
func (s *Session) handleTimeReference(ctx context.Context, m *msg.TimeReference) {
	if m.EngineID != s.hub.cfg.EngineID && m.EngineID != msg.BroadcastEngineID {
		return
	}
	if m.TimeDiff != nil {
		return
	}

	diff := s.hub.co.Clock.SetTimestamp(m.TimestampMS)
	sys := s.hub.co.Clock.SystemTime()

	m.EngineID = s.hub.cfg.EngineID
	m.SystemTime = &sys
	m.TimeDiff = &diff
	s.send(ctx, m)
}

// handleParamRequest answers a parameter query. Three addressing modes
// are supported: by id, by index, or (with neither set) a full
// enumeration of the parameter table. Replies go out as broadcast
// ParamValue envelopes so every attached GCS observes the values.
func (s *Session) handleParamRequest(ctx context.Context, m *msg.ParamRequest) {
	if m.EngineID != s.hub.cfg.EngineID && m.EngineID != msg.BroadcastEngineID {
		return
	}

	store := s.hub.co.Params
	count := uint32(store.Count())

	switch {
	case m.ParamID != nil:
		value, index, err := store.Get(*m.ParamID)
		if err != nil {
			s.hub.log.Debug("param request failed",
				zap.String("param", *m.ParamID), zap.Error(err))
			return
		}
		s.hub.sendParamValue(ctx, *m.ParamID, value, uint32(index), count)

	case m.ParamIndex != nil:
		id, value, err := store.GetByIndex(int(*m.ParamIndex))
		if err != nil {
			s.hub.log.Debug("param request failed",
				zap.Uint32("index", *m.ParamIndex), zap.Error(err))
			return
		}
		s.hub.sendParamValue(ctx, id, value, *m.ParamIndex, count)

	default:
		for i := 0; i < int(count); i++ {
			id, value, err := store.GetByIndex(i)
			if err != nil {
				continue
			}
			s.hub.sendParamValue(ctx, id, value, uint32(i), count)
		}
	}
}

// handleParamSet stores a parameter value, then reads it back and
// broadcasts the stored value. A store that clamps the request reports
// ErrParamLimited; the clamped value is still broadcast so the sender
// learns what actually took effect.
func (s *Session) handleParamSet(ctx context.Context, m *msg.ParamSet) {
	if m.EngineID != s.hub.cfg.EngineID {
		return
	}

	store := s.hub.co.Params
	if err := store.Set(m.ParamID, m.Value); err != nil && !errors.Is(err, ErrParamLimited) {
		s.hub.log.Debug("param set failed",
			zap.String("param", m.ParamID), zap.Error(err))
		return
	}

	value, index, err := store.Get(m.ParamID)
	if err != nil {
		s.hub.log.Debug("param set readback failed",
			zap.String("param", m.ParamID), zap.Error(err))
		return
	}
	s.hub.sendParamValue(ctx, m.ParamID, value, uint32(index), uint32(store.Count()))
}

// sendParamValue broadcasts one ParamValue envelope.
func (h *Hub) sendParamValue(ctx context.Context, id string, value msg.ParamData, index, count uint32) {
	err := h.Broadcast(ctx, &msg.ParamValue{
		EngineID:   h.cfg.EngineID,
		ParamID:    id,
		ParamIndex: index,
		ParamCount: count,
		Value:      value,
	})
	if err != nil {
		h.log.Debug("param value send failed",
			zap.String("param", id), zap.Error(err))
	}
}

// handleLogRequest only acknowledges that the request decoded; log
// streaming is not wired up yet.
//
// TODO: stream stored log records once the flash log store lands.
func (s *Session) handleLogRequest(m *msg.LogRequest) {
	s.hub.log.Debug("log request ignored",
		zap.Uint32("engine", m.EngineID), zap.Uint32("stream", m.StreamID))
}

// handleMemoryDump streams a memory region back to the requester as a
// sequence of MemoryDumpPage envelopes, at most memdumpPageSize bytes
// each. Pages are unicast on the requesting session's link; errors are
// reported in-band through StatusText so the operator sees them.
func (s *Session) handleMemoryDump(ctx context.Context, m *msg.MemoryDumpRequest) {
	if m.EngineID != s.hub.cfg.EngineID {
		return
	}

	reader := s.hub.co.Memory
	if reader == nil {
		s.hub.StatusTextf(ctx, msg.SevError, "memdump: no memory reader")
		return
	}

	var page [memdumpPageSize]byte
	address := m.Address
	remaining := m.Size
	for remaining > 0 {
		chunk := page[:]
		if remaining < memdumpPageSize {
			chunk = page[:remaining]
		}

		n, err := reader.Read(m.Region, address, chunk)
		if err != nil {
			s.hub.StatusTextf(ctx, msg.SevError,
				"memdump: read 0x%08x failed: %v", address, err)
			return
		}
		if n <= 0 {
			s.hub.StatusTextf(ctx, msg.SevError,
				"memdump: read 0x%08x returned no data", address)
			return
		}

		s.send(ctx, &msg.MemoryDumpPage{
			EngineID: s.hub.cfg.EngineID,
			StreamID: m.StreamID,
			Address:  address,
			Page:     page[:n],
		})

		address += uint32(n)
		remaining -= uint32(n)
	}
}
