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
	"errors"
	"time"

	"github.com/miniecu/go-pbstx/msg"
)

// Config is the process-wide identity and behavior of the comm
// subsystem. It is set once at startup and read by every session;
// treat it as immutable while sessions run.
type Config struct {
	// EngineID distinguishes this controller. 0 is reserved for
	// broadcast and must not be assigned to a unit.
	EngineID uint32

	// StatusPeriod is the interval between periodic Status envelopes.
	StatusPeriod time.Duration

	// DebugADCRaw includes raw ADC readings in Status messages.
	DebugADCRaw bool

	// EnableMemdump allows MemoryDumpRequest handling. Disabled by
	// default; dump requests are silently dropped when off.
	EnableMemdump bool
}

// DefaultStatusPeriod is used when Config.StatusPeriod is zero.
const DefaultStatusPeriod = 250 * time.Millisecond

func (c Config) statusPeriod() time.Duration {
	if c.StatusPeriod <= 0 {
		return DefaultStatusPeriod
	}
	return c.StatusPeriod
}

// ErrParamLimited is returned by ParamStore.Set when the requested
// value was clamped to a configured limit. The write still took effect;
// callers treat it as success and read the value back to see the
// clamped result.
var ErrParamLimited = errors.New("param value clamped to limit")

// ParamStore is the parameter table collaborator.
type ParamStore interface {
	// Get returns the value and table index for id.
	Get(id string) (value msg.ParamData, index int, err error)
	// GetByIndex returns the id and value at index.
	GetByIndex(index int) (id string, value msg.ParamData, err error)
	// Set writes a value by id. ErrParamLimited reports a clamped but
	// applied write.
	Set(id string, value msg.ParamData) error
	// Count returns the number of known parameters.
	Count() int
}

// CommandExecutor runs control operations.
type CommandExecutor interface {
	Execute(op msg.Operation) msg.CommandResult
}

// TimeBase is the controller clock collaborator.
type TimeBase interface {
	// IsKnown reports whether the epoch clock has been synchronized.
	IsKnown() bool
	// SystemTime returns milliseconds since boot.
	SystemTime() uint64
	// Timestamp returns epoch milliseconds, valid only when IsKnown.
	Timestamp() uint64
	// SetTimestamp synchronizes the epoch clock from a remote
	// timestamp and returns the applied offset in milliseconds.
	SetTimestamp(remote uint64) int64
}

// Sensors is the telemetry readback collaborator feeding Status.
type Sensors interface {
	RPM() uint32
	EngineRunning() bool
	IgnitionEnabled() bool
	StarterEnabled() bool

	Battery() msg.Battery
	Temperature() msg.Temperature
	CPU() msg.CPUStatus
	// Fuel reports false when the flow sensor delivers no data.
	Fuel() (msg.FuelFlow, bool)
	// ADCRaw reports false when raw readback is unavailable.
	ADCRaw() (msg.ADCRaw, bool)

	// Limit checks feeding the Status flags word.
	UnderVoltage() bool
	Overheat() bool
	HighRPM() bool
	LowFuel() bool
}

// MemoryReader is the raw memory readback collaborator.
type MemoryReader interface {
	// Read fills buf from the given region starting at address and
	// returns the number of bytes read. A short or zero read aborts
	// the dump in progress.
	Read(region msg.MemoryRegion, address uint32, buf []byte) (int, error)
}

// Collaborators bundles the external interfaces a Hub consumes.
type Collaborators struct {
	Params   ParamStore
	Commands CommandExecutor
	Clock    TimeBase
	Sensors  Sensors
	Memory   MemoryReader
}
