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

package ecusim

import (
	"github.com/miniecu/go-pbstx/internal/syncutil"
	"github.com/miniecu/go-pbstx/msg"
)

// Engine is a simulated engine: it executes control operations and
// produces plausible telemetry for the Status stream. It implements
// both comm.CommandExecutor and comm.Sensors.
type Engine struct {
	mu syncutil.Mutex

	ignition bool
	starter  bool
	running  bool

	rpm     uint32
	battV   float32
	engTemp float32
	fuelML  float32
	flowML  float32
	usedML  float32
	tankML  float32

	lowVolt  bool
	overheat bool
	highRPM  bool
}

// NewEngine returns a stopped engine with a full tank.
func NewEngine() *Engine {
	return &Engine{
		battV:   7.4,
		engTemp: 22,
		fuelML:  1500,
		tankML:  1500,
	}
}

// Execute implements comm.CommandExecutor.
func (e *Engine) Execute(op msg.Operation) msg.CommandResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch op {
	case msg.OpEmergencyStop:
		e.ignition = false
		e.starter = false
		e.running = false
		e.rpm = 0
		return msg.ResultOK

	case msg.OpIgnitionEnable:
		e.ignition = true
		return msg.ResultOK

	case msg.OpIgnitionDisable:
		e.ignition = false
		e.running = false
		e.rpm = 0
		return msg.ResultOK

	case msg.OpStarterEnable:
		if !e.ignition {
			return msg.ResultRejected
		}
		e.starter = true
		e.running = true
		e.rpm = 2400
		return msg.ResultOK

	case msg.OpStarterDisable:
		e.starter = false
		return msg.ResultOK

	case msg.OpRefuel:
		e.fuelML = e.tankML
		e.usedML = 0
		return msg.ResultOK

	case msg.OpSaveConfig, msg.OpLoadConfig:
		// The simulator has no persistent store; acknowledge anyway so
		// GCS-side flows can be exercised.
		return msg.ResultOK

	default:
		return msg.ResultRejected
	}
}

// RPM implements comm.Sensors.
func (e *Engine) RPM() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rpm
}

// EngineRunning implements comm.Sensors.
func (e *Engine) EngineRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// IgnitionEnabled implements comm.Sensors.
func (e *Engine) IgnitionEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ignition
}

// StarterEnabled implements comm.Sensors.
func (e *Engine) StarterEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.starter
}

// Battery implements comm.Sensors.
func (e *Engine) Battery() msg.Battery {
	e.mu.Lock()
	defer e.mu.Unlock()
	remaining := float32(100 * (e.battV - 6.0) / (8.4 - 6.0))
	return msg.Battery{Voltage: e.battV, Remaining: &remaining}
}

// Temperature implements comm.Sensors.
func (e *Engine) Temperature() msg.Temperature {
	e.mu.Lock()
	defer e.mu.Unlock()
	return msg.Temperature{Engine1: e.engTemp}
}

// CPU implements comm.Sensors.
func (e *Engine) CPU() msg.CPUStatus {
	temp := float32(38)
	vbat := float32(3.1)
	return msg.CPUStatus{Load: 7, Temperature: &temp, RTCVbat: &vbat}
}

// Fuel implements comm.Sensors.
func (e *Engine) Fuel() (msg.FuelFlow, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	remaining := float32(0)
	if e.tankML > 0 {
		remaining = 100 * e.fuelML / e.tankML
	}
	return msg.FuelFlow{
		FlowML:      e.flowML,
		TotalUsedML: e.usedML,
		Remaining:   &remaining,
	}, true
}

// ADCRaw implements comm.Sensors.
func (e *Engine) ADCRaw() (msg.ADCRaw, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return msg.ADCRaw{
		FltTemp: e.engTemp,
		FltVbat: e.battV,
		FltFlow: e.flowML,
		FltVrtc: 3.1,
		RawTemp: uint32(e.engTemp * 16),
		RawVbat: uint32(e.battV * 100),
		RawFlow: uint32(e.flowML),
		RawVrtc: 310,
	}, true
}

// UnderVoltage implements comm.Sensors.
func (e *Engine) UnderVoltage() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lowVolt
}

// Overheat implements comm.Sensors.
func (e *Engine) Overheat() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.overheat
}

// HighRPM implements comm.Sensors.
func (e *Engine) HighRPM() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.highRPM
}

// LowFuel implements comm.Sensors.
func (e *Engine) LowFuel() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tankML > 0 && e.fuelML/e.tankML < 0.1
}

// SetFault forces the limit-check outputs; tests and demo scenarios use
// it to light the Status flag bits.
func (e *Engine) SetFault(lowVolt, overheat, highRPM bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lowVolt = lowVolt
	e.overheat = overheat
	e.highRPM = highRPM
}
