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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pbstx "github.com/miniecu/go-pbstx"
	"github.com/miniecu/go-pbstx/msg"
)

// --- collaborator fakes ---

type fakeParams struct {
	values   map[string]msg.ParamData
	clamped  map[string]msg.ParamData
	ids      []string
	setCalls []string
}

func newFakeParams() *fakeParams {
	return &fakeParams{
		ids: []string{"BATT_LOW", "RPM_LIMIT", "TEMP_LIMIT"},
		values: map[string]msg.ParamData{
			"BATT_LOW":   msg.FloatValue(6.5),
			"RPM_LIMIT":  msg.Int32Value(8000),
			"TEMP_LIMIT": msg.FloatValue(120),
		},
		clamped: map[string]msg.ParamData{},
	}
}

func (f *fakeParams) Get(id string) (msg.ParamData, int, error) {
	for i, known := range f.ids {
		if known == id {
			return f.values[id], i, nil
		}
	}
	return msg.ParamData{}, 0, fmt.Errorf("unknown param %q", id)
}

func (f *fakeParams) GetByIndex(index int) (string, msg.ParamData, error) {
	if index < 0 || index >= len(f.ids) {
		return "", msg.ParamData{}, fmt.Errorf("index %d out of range", index)
	}
	id := f.ids[index]
	return id, f.values[id], nil
}

func (f *fakeParams) Set(id string, value msg.ParamData) error {
	if _, ok := f.values[id]; !ok {
		return fmt.Errorf("unknown param %q", id)
	}
	f.setCalls = append(f.setCalls, id)
	if clamped, ok := f.clamped[id]; ok {
		f.values[id] = clamped
		return ErrParamLimited
	}
	f.values[id] = value
	return nil
}

func (f *fakeParams) Count() int { return len(f.ids) }

type fakeExecutor struct {
	ops    []msg.Operation
	result msg.CommandResult
}

func (f *fakeExecutor) Execute(op msg.Operation) msg.CommandResult {
	f.ops = append(f.ops, op)
	return f.result
}

type fakeClock struct {
	sys      uint64
	remote   uint64
	diff     int64
	known    bool
	setCalls int
}

func (f *fakeClock) IsKnown() bool      { return f.known }
func (f *fakeClock) SystemTime() uint64 { return f.sys }
func (f *fakeClock) Timestamp() uint64  { return f.remote }

func (f *fakeClock) SetTimestamp(remote uint64) int64 {
	f.remote = remote
	f.known = true
	f.setCalls++
	return f.diff
}

type fakeSensors struct {
	rpm      uint32
	running  bool
	ignition bool
	starter  bool
	lowVolt  bool
	overheat bool
	highRPM  bool
	lowFuel  bool
	hasFuel  bool
	hasADC   bool
}

func (f *fakeSensors) RPM() uint32           { return f.rpm }
func (f *fakeSensors) EngineRunning() bool   { return f.running }
func (f *fakeSensors) IgnitionEnabled() bool { return f.ignition }
func (f *fakeSensors) StarterEnabled() bool  { return f.starter }
func (f *fakeSensors) UnderVoltage() bool    { return f.lowVolt }
func (f *fakeSensors) Overheat() bool        { return f.overheat }
func (f *fakeSensors) HighRPM() bool         { return f.highRPM }
func (f *fakeSensors) LowFuel() bool         { return f.lowFuel }

func (f *fakeSensors) Battery() msg.Battery         { return msg.Battery{Voltage: 7.4} }
func (f *fakeSensors) Temperature() msg.Temperature { return msg.Temperature{Engine1: 85} }
func (f *fakeSensors) CPU() msg.CPUStatus           { return msg.CPUStatus{Load: 5} }

func (f *fakeSensors) Fuel() (msg.FuelFlow, bool) {
	return msg.FuelFlow{FlowML: 12, TotalUsedML: 150}, f.hasFuel
}

func (f *fakeSensors) ADCRaw() (msg.ADCRaw, bool) {
	return msg.ADCRaw{RawTemp: 1234}, f.hasADC
}

type fakeMemory struct {
	ram []byte
}

func (f *fakeMemory) Read(region msg.MemoryRegion, address uint32, buf []byte) (int, error) {
	if region != msg.RegionRAM {
		return 0, fmt.Errorf("unknown memory region %d", region)
	}
	if int(address) >= len(f.ram) {
		return 0, fmt.Errorf("address 0x%08x out of range", address)
	}
	return copy(buf, f.ram[address:]), nil
}

// --- harness ---

type testRig struct {
	hub     *Hub
	mock    *pbstx.MockChannel
	params  *fakeParams
	exec    *fakeExecutor
	clock   *fakeClock
	sensors *fakeSensors
	memory  *fakeMemory
}

func newTestRig(cfg Config) *testRig {
	r := &testRig{
		mock:    pbstx.NewMockChannel(),
		params:  newFakeParams(),
		exec:    &fakeExecutor{result: msg.ResultOK},
		clock:   &fakeClock{sys: 1000},
		sensors: &fakeSensors{},
		memory:  &fakeMemory{},
	}
	if cfg.EngineID == 0 {
		cfg.EngineID = 1
	}
	if cfg.StatusPeriod == 0 {
		// Keep periodic status out of the way unless a test wants it.
		cfg.StatusPeriod = time.Hour
	}
	r.hub = NewHub(cfg, Collaborators{
		Params:   r.params,
		Commands: r.exec,
		Clock:    r.clock,
		Sensors:  r.sensors,
		Memory:   r.memory,
	})
	return r
}

// feed frames one envelope into the rig's receive buffer.
func (r *testRig) feed(t *testing.T, m msg.Message) {
	t.Helper()
	payload, err := msg.AppendEnvelope(nil, m)
	require.NoError(t, err)
	r.mock.Feed(pbstx.AppendFrame(nil, 0, byte(m.Kind()), payload))
}

// run drives one session until the deadline passes, then decodes every
// frame the session wrote.
func (r *testRig) run(t *testing.T, d time.Duration) []msg.Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	err := r.hub.Run(ctx, pbstx.NewLink(r.mock))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	return decodeWire(t, r.mock.TxBytes())
}

func decodeWire(t *testing.T, wire []byte) []msg.Message {
	t.Helper()
	var out []msg.Message
	for len(wire) > 0 {
		require.GreaterOrEqual(t, len(wire), pbstx.HeaderLen+1)
		require.Equal(t, byte(pbstx.StartMarker), wire[0])
		length := int(wire[3])
		total := pbstx.HeaderLen + length + 1
		require.GreaterOrEqual(t, len(wire), total)

		payload := wire[pbstx.HeaderLen : pbstx.HeaderLen+length]
		kind, rest, ok := msg.ScanKind(payload)
		require.True(t, ok)
		m, err := msg.Decode(kind, rest)
		require.NoError(t, err)

		out = append(out, m)
		wire = wire[total:]
	}
	return out
}

// filter keeps only messages of type M.
func filter[M msg.Message](msgs []msg.Message) []M {
	var out []M
	for _, m := range msgs {
		if v, ok := m.(M); ok {
			out = append(out, v)
		}
	}
	return out
}

const testRunTime = 30 * time.Millisecond

// --- session loop ---

func TestRunFailsWhenRegistryFull(t *testing.T) {
	t.Parallel()
	rig := newTestRig(Config{})
	for i := 0; i < MaxSessions; i++ {
		_, err := rig.hub.Registry().Register(&Session{})
		require.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), testRunTime)
	defer cancel()
	err := rig.hub.Run(ctx, pbstx.NewLink(rig.mock))
	require.ErrorIs(t, err, ErrRegistryFull)
}

func TestRunDeregistersOnCancel(t *testing.T) {
	t.Parallel()
	rig := newTestRig(Config{})
	rig.run(t, testRunTime)
	assert.Equal(t, 0, rig.hub.Registry().Live())
}

func TestRunEmitsPeriodicStatus(t *testing.T) {
	t.Parallel()
	rig := newTestRig(Config{StatusPeriod: 5 * time.Millisecond})
	rig.sensors.running = true
	rig.sensors.ignition = true
	rig.sensors.rpm = 6500

	statuses := filter[*msg.Status](rig.run(t, testRunTime))
	require.GreaterOrEqual(t, len(statuses), 2)

	st := statuses[0]
	assert.Equal(t, uint32(1), st.EngineID)
	assert.Equal(t, uint32(6500), st.RPM)
	assert.True(t, st.Flags&msg.FlagEngineRunning != 0)
	assert.True(t, st.Flags&msg.FlagIgnitionEnabled != 0)
	assert.True(t, st.Flags&msg.FlagTimeKnown == 0)
	assert.Nil(t, st.TimestampMS)
}

func TestRunDropsUndecodableEnvelope(t *testing.T) {
	t.Parallel()
	rig := newTestRig(Config{})
	// A framed payload with no recognizable envelope field.
	rig.mock.Feed(pbstx.AppendFrame(nil, 0, 3, []byte{0x78, 0x01}))

	msgs := rig.run(t, testRunTime)
	assert.Empty(t, filter[*msg.Command](msgs))
	assert.Equal(t, pbstx.AlertNormal, rig.hub.Alert().Level())
}

// --- command handling ---

func TestCommandExecuteAndReply(t *testing.T) {
	t.Parallel()
	rig := newTestRig(Config{})
	rig.feed(t, &msg.Command{EngineID: 1, Operation: msg.OpIgnitionEnable})

	replies := filter[*msg.Command](rig.run(t, testRunTime))
	require.Len(t, replies, 1)
	require.NotNil(t, replies[0].Response)
	assert.Equal(t, msg.ResultOK, *replies[0].Response)
	assert.Equal(t, msg.OpIgnitionEnable, replies[0].Operation)
	assert.Equal(t, []msg.Operation{msg.OpIgnitionEnable}, rig.exec.ops)
}

func TestCommandEchoNotReExecuted(t *testing.T) {
	t.Parallel()
	rig := newTestRig(Config{})
	result := msg.ResultOK
	rig.feed(t, &msg.Command{EngineID: 1, Operation: msg.OpIgnitionEnable, Response: &result})

	replies := filter[*msg.Command](rig.run(t, testRunTime))
	assert.Empty(t, replies)
	assert.Empty(t, rig.exec.ops)
}

func TestCommandWrongEngineDropped(t *testing.T) {
	t.Parallel()
	rig := newTestRig(Config{})
	rig.feed(t, &msg.Command{EngineID: 2, Operation: msg.OpEmergencyStop})

	replies := filter[*msg.Command](rig.run(t, testRunTime))
	assert.Empty(t, replies)
	assert.Empty(t, rig.exec.ops)
}

func TestCommandRejectedResultPropagates(t *testing.T) {
	t.Parallel()
	rig := newTestRig(Config{})
	rig.exec.result = msg.ResultRejected
	rig.feed(t, &msg.Command{EngineID: 1, Operation: msg.OpStarterEnable})

	replies := filter[*msg.Command](rig.run(t, testRunTime))
	require.Len(t, replies, 1)
	require.NotNil(t, replies[0].Response)
	assert.Equal(t, msg.ResultRejected, *replies[0].Response)
}

// --- time reference ---

func TestTimeReferenceSyncAndReply(t *testing.T) {
	t.Parallel()
	rig := newTestRig(Config{})
	rig.clock.diff = -4200
	rig.feed(t, &msg.TimeReference{EngineID: 1, TimestampMS: 1700000000000})

	replies := filter[*msg.TimeReference](rig.run(t, testRunTime))
	require.Len(t, replies, 1)
	re := replies[0]
	assert.Equal(t, uint32(1), re.EngineID)
	require.NotNil(t, re.TimeDiff)
	assert.Equal(t, int64(-4200), *re.TimeDiff)
	require.NotNil(t, re.SystemTime)
	assert.Equal(t, 1, rig.clock.setCalls)
	assert.Equal(t, uint64(1700000000000), rig.clock.remote)
}

func TestTimeReferenceAcceptsBroadcast(t *testing.T) {
	t.Parallel()
	rig := newTestRig(Config{})
	rig.feed(t, &msg.TimeReference{EngineID: msg.BroadcastEngineID, TimestampMS: 55})

	replies := filter[*msg.TimeReference](rig.run(t, testRunTime))
	require.Len(t, replies, 1)
	assert.Equal(t, uint32(1), replies[0].EngineID)
}

func TestTimeReferenceEchoDropped(t *testing.T) {
	t.Parallel()
	rig := newTestRig(Config{})
	diff := int64(10)
	rig.feed(t, &msg.TimeReference{EngineID: 1, TimestampMS: 55, TimeDiff: &diff})

	replies := filter[*msg.TimeReference](rig.run(t, testRunTime))
	assert.Empty(t, replies)
	assert.Zero(t, rig.clock.setCalls)
}

// --- parameters ---

func TestParamRequestByID(t *testing.T) {
	t.Parallel()
	rig := newTestRig(Config{})
	id := "RPM_LIMIT"
	rig.feed(t, &msg.ParamRequest{EngineID: 1, ParamID: &id})

	values := filter[*msg.ParamValue](rig.run(t, testRunTime))
	require.Len(t, values, 1)
	v := values[0]
	assert.Equal(t, "RPM_LIMIT", v.ParamID)
	assert.Equal(t, uint32(1), v.ParamIndex)
	assert.Equal(t, uint32(3), v.ParamCount)
	require.NotNil(t, v.Value.Int32)
	assert.Equal(t, int32(8000), *v.Value.Int32)
}

func TestParamRequestByIndex(t *testing.T) {
	t.Parallel()
	rig := newTestRig(Config{})
	index := uint32(0)
	rig.feed(t, &msg.ParamRequest{EngineID: 1, ParamIndex: &index})

	values := filter[*msg.ParamValue](rig.run(t, testRunTime))
	require.Len(t, values, 1)
	assert.Equal(t, "BATT_LOW", values[0].ParamID)
}

func TestParamRequestEnumeratesAll(t *testing.T) {
	t.Parallel()
	rig := newTestRig(Config{})
	rig.feed(t, &msg.ParamRequest{EngineID: msg.BroadcastEngineID})

	values := filter[*msg.ParamValue](rig.run(t, testRunTime))
	require.Len(t, values, 3)
	for i, v := range values {
		assert.Equal(t, uint32(i), v.ParamIndex)
		assert.Equal(t, uint32(3), v.ParamCount)
	}
}

func TestParamRequestUnknownIDDropped(t *testing.T) {
	t.Parallel()
	rig := newTestRig(Config{})
	id := "NO_SUCH"
	rig.feed(t, &msg.ParamRequest{EngineID: 1, ParamID: &id})

	values := filter[*msg.ParamValue](rig.run(t, testRunTime))
	assert.Empty(t, values)
}

func TestParamSetAppliesAndReadsBack(t *testing.T) {
	t.Parallel()
	rig := newTestRig(Config{})
	rig.feed(t, &msg.ParamSet{EngineID: 1, ParamID: "TEMP_LIMIT", Value: msg.FloatValue(110)})

	values := filter[*msg.ParamValue](rig.run(t, testRunTime))
	require.Len(t, values, 1)
	require.NotNil(t, values[0].Value.Float)
	assert.InDelta(t, 110, *values[0].Value.Float, 0.001)
	assert.Equal(t, []string{"TEMP_LIMIT"}, rig.params.setCalls)
}

func TestParamSetClampedValueReportedBack(t *testing.T) {
	t.Parallel()
	rig := newTestRig(Config{})
	rig.params.clamped["RPM_LIMIT"] = msg.Int32Value(12000)
	rig.feed(t, &msg.ParamSet{EngineID: 1, ParamID: "RPM_LIMIT", Value: msg.Int32Value(99999)})

	values := filter[*msg.ParamValue](rig.run(t, testRunTime))
	require.Len(t, values, 1)
	require.NotNil(t, values[0].Value.Int32)
	assert.Equal(t, int32(12000), *values[0].Value.Int32, "the clamped value must be reported")
}

func TestParamSetUnknownIDDropped(t *testing.T) {
	t.Parallel()
	rig := newTestRig(Config{})
	rig.feed(t, &msg.ParamSet{EngineID: 1, ParamID: "NO_SUCH", Value: msg.BoolValue(true)})

	values := filter[*msg.ParamValue](rig.run(t, testRunTime))
	assert.Empty(t, values)
}

func TestParamSetWrongEngineDropped(t *testing.T) {
	t.Parallel()
	rig := newTestRig(Config{})
	rig.feed(t, &msg.ParamSet{EngineID: 9, ParamID: "TEMP_LIMIT", Value: msg.FloatValue(90)})

	values := filter[*msg.ParamValue](rig.run(t, testRunTime))
	assert.Empty(t, values)
	assert.Empty(t, rig.params.setCalls)
}

// --- memory dump ---

func TestMemoryDumpChunksPages(t *testing.T) {
	t.Parallel()
	rig := newTestRig(Config{EnableMemdump: true})
	rig.memory.ram = make([]byte, 1024)
	for i := range rig.memory.ram {
		rig.memory.ram[i] = byte(i)
	}
	rig.feed(t, &msg.MemoryDumpRequest{
		EngineID: 1,
		Region:   msg.RegionRAM,
		StreamID: 7,
		Address:  0x100,
		Size:     130,
	})

	pages := filter[*msg.MemoryDumpPage](rig.run(t, testRunTime))
	require.Len(t, pages, 3)

	assert.Equal(t, uint32(0x100), pages[0].Address)
	assert.Len(t, pages[0].Page, 64)
	assert.Equal(t, uint32(0x140), pages[1].Address)
	assert.Len(t, pages[1].Page, 64)
	assert.Equal(t, uint32(0x180), pages[2].Address)
	assert.Len(t, pages[2].Page, 2)

	for _, page := range pages {
		assert.Equal(t, uint32(7), page.StreamID)
		for i, b := range page.Page {
			assert.Equal(t, byte(int(page.Address)+i), b)
		}
	}
}

func TestMemoryDumpDisabledDropsRequest(t *testing.T) {
	t.Parallel()
	rig := newTestRig(Config{})
	rig.memory.ram = make([]byte, 256)
	rig.feed(t, &msg.MemoryDumpRequest{EngineID: 1, Region: msg.RegionRAM, Size: 64})

	msgs := rig.run(t, testRunTime)
	assert.Empty(t, filter[*msg.MemoryDumpPage](msgs))
	assert.Empty(t, filter[*msg.StatusText](msgs), "a disabled dump is dropped silently")
}

func TestMemoryDumpBadRegionReportsStatusText(t *testing.T) {
	t.Parallel()
	rig := newTestRig(Config{EnableMemdump: true})
	rig.memory.ram = make([]byte, 256)
	rig.feed(t, &msg.MemoryDumpRequest{EngineID: 1, Region: msg.MemoryRegion(9), Size: 64})

	msgs := rig.run(t, testRunTime)
	assert.Empty(t, filter[*msg.MemoryDumpPage](msgs))

	texts := filter[*msg.StatusText](msgs)
	require.Len(t, texts, 1)
	assert.Equal(t, msg.SevError, texts[0].Severity)
	assert.Contains(t, texts[0].Text, "memdump")
}

func TestMemoryDumpOutOfRangeAborts(t *testing.T) {
	t.Parallel()
	rig := newTestRig(Config{EnableMemdump: true})
	rig.memory.ram = make([]byte, 100)
	rig.feed(t, &msg.MemoryDumpRequest{EngineID: 1, Region: msg.RegionRAM, Address: 64, Size: 128})

	msgs := rig.run(t, testRunTime)
	pages := filter[*msg.MemoryDumpPage](msgs)
	require.Len(t, pages, 1, "the in-range part streams before the abort")
	assert.Len(t, pages[0].Page, 36)
	require.Len(t, filter[*msg.StatusText](msgs), 1)
}

// --- log request ---

func TestLogRequestAcceptedSilently(t *testing.T) {
	t.Parallel()
	rig := newTestRig(Config{})
	rig.feed(t, &msg.LogRequest{EngineID: 1, StreamID: 4})

	msgs := rig.run(t, testRunTime)
	assert.Empty(t, filter[*msg.StatusText](msgs))
	assert.Equal(t, pbstx.AlertNormal, rig.hub.Alert().Level())
}
