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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pbstx "github.com/miniecu/go-pbstx"
	"github.com/miniecu/go-pbstx/msg"
)

// attach registers a bare session on its own mock channel so broadcast
// tests can observe per-session traffic without running dispatch loops.
func attach(t *testing.T, h *Hub) *pbstx.MockChannel {
	t.Helper()
	mock := pbstx.NewMockChannel()
	s := &Session{hub: h, link: pbstx.NewLink(mock)}
	_, err := h.Registry().Register(s)
	require.NoError(t, err)
	return mock
}

func TestBroadcastReachesEverySession(t *testing.T) {
	t.Parallel()
	rig := newTestRig(Config{})
	first := attach(t, rig.hub)
	second := attach(t, rig.hub)

	err := rig.hub.Broadcast(context.Background(), &msg.StatusText{
		EngineID: 1,
		Severity: msg.SevInfo,
		Text:     "engine start",
	})
	require.NoError(t, err)

	firstWire := first.TxBytes()
	secondWire := second.TxBytes()
	require.NotEmpty(t, firstWire)

	// Identical payload bytes on both links proves a single encoding
	// was fanned out. Only the advisory sequence byte may differ.
	assert.Equal(t, firstWire[pbstx.HeaderLen:], secondWire[pbstx.HeaderLen:])

	msgs := decodeWire(t, firstWire)
	require.Len(t, msgs, 1)
	text, ok := msgs[0].(*msg.StatusText)
	require.True(t, ok)
	assert.Equal(t, "engine start", text.Text)
}

func TestBroadcastNoSessionsIsNoOp(t *testing.T) {
	t.Parallel()
	rig := newTestRig(Config{})
	err := rig.hub.Broadcast(context.Background(), &msg.LogRequest{EngineID: 1})
	require.NoError(t, err)
}

func TestBroadcastContinuesPastFailedSession(t *testing.T) {
	t.Parallel()
	rig := newTestRig(Config{})
	dead := attach(t, rig.hub)
	live := attach(t, rig.hub)
	dead.SetConnected(false)

	err := rig.hub.Broadcast(context.Background(), &msg.StatusText{EngineID: 1, Text: "hello"})
	require.Error(t, err, "the dead session's failure is reported")
	assert.NotEmpty(t, live.TxBytes(), "the live session still gets the message")
}

func TestBroadcastOversizeMessage(t *testing.T) {
	t.Parallel()
	rig := newTestRig(Config{})
	mock := attach(t, rig.hub)

	err := rig.hub.Broadcast(context.Background(), &msg.StatusText{
		EngineID: 1,
		Text:     strings.Repeat("y", pbstx.MaxPayload),
	})
	require.ErrorIs(t, err, pbstx.ErrEncode)
	assert.Empty(t, mock.TxBytes())
	assert.Equal(t, pbstx.AlertFailed, rig.hub.Alert().Level())
}

func TestStatusTextfTruncatesLongLines(t *testing.T) {
	t.Parallel()
	rig := newTestRig(Config{})
	mock := attach(t, rig.hub)

	rig.hub.StatusTextf(context.Background(), msg.SevWarn, "%s", strings.Repeat("z", 500))

	msgs := decodeWire(t, mock.TxBytes())
	require.Len(t, msgs, 1)
	text, ok := msgs[0].(*msg.StatusText)
	require.True(t, ok)
	assert.Len(t, text.Text, maxStatusTextLen)
	assert.Equal(t, msg.SevWarn, text.Severity)
}

func TestStatusTextfFormats(t *testing.T) {
	t.Parallel()
	rig := newTestRig(Config{})
	mock := attach(t, rig.hub)

	rig.hub.StatusTextf(context.Background(), msg.SevError, "read 0x%08x failed", uint32(0x0800_0040))

	msgs := decodeWire(t, mock.TxBytes())
	require.Len(t, msgs, 1)
	text, ok := msgs[0].(*msg.StatusText)
	require.True(t, ok)
	assert.Equal(t, "read 0x08000040 failed", text.Text)
}

func TestBuildStatusFlags(t *testing.T) {
	t.Parallel()
	rig := newTestRig(Config{})
	rig.sensors.running = true
	rig.sensors.starter = true
	rig.sensors.lowVolt = true
	rig.sensors.overheat = true
	rig.sensors.highRPM = true
	rig.sensors.lowFuel = true
	rig.clock.known = true
	rig.clock.remote = 1700000000456
	rig.hub.Alert().Set(pbstx.AlertFailed)

	st := rig.hub.buildStatus()
	for _, flag := range []msg.StatusFlag{
		msg.FlagTimeKnown, msg.FlagStarterEnabled, msg.FlagEngineRunning,
		msg.FlagError, msg.FlagUnderVoltage, msg.FlagOverheat,
		msg.FlagHighRPM, msg.FlagLowFuel,
	} {
		assert.NotZero(t, st.Flags&flag)
	}
	assert.Zero(t, st.Flags&msg.FlagIgnitionEnabled)
	require.NotNil(t, st.TimestampMS)
	assert.Equal(t, uint64(1700000000456), *st.TimestampMS)
}

func TestBuildStatusOptionalSections(t *testing.T) {
	t.Parallel()
	rig := newTestRig(Config{DebugADCRaw: true})
	st := rig.hub.buildStatus()
	assert.Nil(t, st.Fuel)
	assert.Nil(t, st.ADC)
	assert.Nil(t, st.TimestampMS)

	rig.sensors.hasFuel = true
	rig.sensors.hasADC = true
	st = rig.hub.buildStatus()
	require.NotNil(t, st.Fuel)
	assert.InDelta(t, 12, st.Fuel.FlowML, 0.001)
	require.NotNil(t, st.ADC)
}

func TestBuildStatusADCGatedByConfig(t *testing.T) {
	t.Parallel()
	rig := newTestRig(Config{})
	rig.sensors.hasADC = true
	st := rig.hub.buildStatus()
	assert.Nil(t, st.ADC, "raw ADC stays out of Status unless enabled")
}
