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
	pbstx "github.com/miniecu/go-pbstx"
	"github.com/miniecu/go-pbstx/msg"
)

// buildStatus samples the collaborators and assembles the periodic
// Status envelope. Optional sections (fuel, raw ADC, wall-clock
// timestamp) appear only when the corresponding source has data.
func (h *Hub) buildStatus() *msg.Status {
	sensors := h.co.Sensors
	clock := h.co.Clock

	st := &msg.Status{
		EngineID:    h.cfg.EngineID,
		SystemTime:  clock.SystemTime(),
		RPM:         sensors.RPM(),
		Battery:     sensors.Battery(),
		Temperature: sensors.Temperature(),
		CPU:         sensors.CPU(),
	}

	var flags msg.StatusFlag
	if clock.IsKnown() {
		flags |= msg.FlagTimeKnown
		ts := clock.Timestamp()
		st.TimestampMS = &ts
	}
	if sensors.IgnitionEnabled() {
		flags |= msg.FlagIgnitionEnabled
	}
	if sensors.StarterEnabled() {
		flags |= msg.FlagStarterEnabled
	}
	if sensors.EngineRunning() {
		flags |= msg.FlagEngineRunning
	}
	if sensors.UnderVoltage() {
		flags |= msg.FlagUnderVoltage
	}
	if sensors.Overheat() {
		flags |= msg.FlagOverheat
	}
	if sensors.HighRPM() {
		flags |= msg.FlagHighRPM
	}
	if sensors.LowFuel() {
		flags |= msg.FlagLowFuel
	}
	if h.alert.Level() == pbstx.AlertFailed {
		flags |= msg.FlagError
	}
	st.Flags = flags

	if fuel, ok := sensors.Fuel(); ok {
		st.Fuel = &fuel
	}
	if h.cfg.DebugADCRaw {
		if adc, ok := sensors.ADCRaw(); ok {
			st.ADC = &adc
		}
	}

	return st
}
