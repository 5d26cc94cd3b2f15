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

package msg

import "google.golang.org/protobuf/encoding/protowire"

// StatusFlag bits summarize the engine state in one word.
type StatusFlag uint32

const (
	FlagTimeKnown StatusFlag = 1 << iota
	FlagIgnitionEnabled
	FlagStarterEnabled
	FlagEngineRunning
	FlagError
	FlagUnderVoltage
	FlagOverheat
	FlagHighRPM
	FlagLowFuel
)

// Battery is the battery block of a Status message.
type Battery struct {
	// Remaining is the estimated charge in percent, when the gauge
	// can provide one.
	Remaining *float32
	Voltage   float32
}

func (b *Battery) appendTo(dst []byte) []byte {
	dst = appendFloat32(dst, 1, b.Voltage)
	if b.Remaining != nil {
		dst = appendFloat32(dst, 2, *b.Remaining)
	}
	return dst
}

func (b *Battery) unmarshal(data []byte) error {
	return walkFields(data, func(num protowire.Number, typ protowire.Type, fb []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.Fixed32Type:
			v, n, err := cFloat32(fb)
			b.Voltage = v
			return n, err
		case num == 2 && typ == protowire.Fixed32Type:
			v, n, err := cFloat32(fb)
			b.Remaining = &v
			return n, err
		default:
			return cSkip(num, typ, fb)
		}
	})
}

// Temperature is the temperature block of a Status message.
type Temperature struct {
	// Engine2 is the second engine sensor (e.g. oil loop), when fitted.
	Engine2 *float32
	Engine1 float32
}

func (t *Temperature) appendTo(dst []byte) []byte {
	dst = appendFloat32(dst, 1, t.Engine1)
	if t.Engine2 != nil {
		dst = appendFloat32(dst, 2, *t.Engine2)
	}
	return dst
}

func (t *Temperature) unmarshal(data []byte) error {
	return walkFields(data, func(num protowire.Number, typ protowire.Type, fb []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.Fixed32Type:
			v, n, err := cFloat32(fb)
			t.Engine1 = v
			return n, err
		case num == 2 && typ == protowire.Fixed32Type:
			v, n, err := cFloat32(fb)
			t.Engine2 = &v
			return n, err
		default:
			return cSkip(num, typ, fb)
		}
	})
}

// CPUStatus is the controller health block of a Status message.
type CPUStatus struct {
	Temperature *float32
	RTCVbat     *float32
	Load        uint32
}

func (c *CPUStatus) appendTo(dst []byte) []byte {
	dst = appendUint32(dst, 1, c.Load)
	if c.Temperature != nil {
		dst = appendFloat32(dst, 2, *c.Temperature)
	}
	if c.RTCVbat != nil {
		dst = appendFloat32(dst, 3, *c.RTCVbat)
	}
	return dst
}

func (c *CPUStatus) unmarshal(data []byte) error {
	return walkFields(data, func(num protowire.Number, typ protowire.Type, fb []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n, err := cUint32(fb)
			c.Load = v
			return n, err
		case num == 2 && typ == protowire.Fixed32Type:
			v, n, err := cFloat32(fb)
			c.Temperature = &v
			return n, err
		case num == 3 && typ == protowire.Fixed32Type:
			v, n, err := cFloat32(fb)
			c.RTCVbat = &v
			return n, err
		default:
			return cSkip(num, typ, fb)
		}
	})
}

// FuelFlow is the fuel block of a Status message, present only when the
// flow sensor delivers data.
type FuelFlow struct {
	Remaining   *float32
	FlowML      float32
	TotalUsedML float32
}

func (f *FuelFlow) appendTo(dst []byte) []byte {
	dst = appendFloat32(dst, 1, f.FlowML)
	dst = appendFloat32(dst, 2, f.TotalUsedML)
	if f.Remaining != nil {
		dst = appendFloat32(dst, 3, *f.Remaining)
	}
	return dst
}

func (f *FuelFlow) unmarshal(data []byte) error {
	return walkFields(data, func(num protowire.Number, typ protowire.Type, fb []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.Fixed32Type:
			v, n, err := cFloat32(fb)
			f.FlowML = v
			return n, err
		case num == 2 && typ == protowire.Fixed32Type:
			v, n, err := cFloat32(fb)
			f.TotalUsedML = v
			return n, err
		case num == 3 && typ == protowire.Fixed32Type:
			v, n, err := cFloat32(fb)
			f.Remaining = &v
			return n, err
		default:
			return cSkip(num, typ, fb)
		}
	})
}

// ADCRaw carries unscaled converter readings next to their filtered
// values. It is included in Status only when the raw-ADC debug flag is
// enabled.
type ADCRaw struct {
	FltTemp float32
	FltOilP float32
	FltFlow float32
	FltVbat float32
	FltVrtc float32
	RawTemp uint32
	RawOilP uint32
	RawFlow uint32
	RawVbat uint32
	RawVrtc uint32
}

func (a *ADCRaw) appendTo(dst []byte) []byte {
	dst = appendFloat32(dst, 1, a.FltTemp)
	dst = appendFloat32(dst, 2, a.FltOilP)
	dst = appendFloat32(dst, 3, a.FltFlow)
	dst = appendFloat32(dst, 4, a.FltVbat)
	dst = appendFloat32(dst, 5, a.FltVrtc)
	dst = appendUint32(dst, 6, a.RawTemp)
	dst = appendUint32(dst, 7, a.RawOilP)
	dst = appendUint32(dst, 8, a.RawFlow)
	dst = appendUint32(dst, 9, a.RawVbat)
	dst = appendUint32(dst, 10, a.RawVrtc)
	return dst
}

func (a *ADCRaw) unmarshal(data []byte) error {
	return walkFields(data, func(num protowire.Number, typ protowire.Type, fb []byte) (int, error) {
		if typ == protowire.Fixed32Type && num >= 1 && num <= 5 {
			v, n, err := cFloat32(fb)
			switch num {
			case 1:
				a.FltTemp = v
			case 2:
				a.FltOilP = v
			case 3:
				a.FltFlow = v
			case 4:
				a.FltVbat = v
			case 5:
				a.FltVrtc = v
			}
			return n, err
		}
		if typ == protowire.VarintType && num >= 6 && num <= 10 {
			v, n, err := cUint32(fb)
			switch num {
			case 6:
				a.RawTemp = v
			case 7:
				a.RawOilP = v
			case 8:
				a.RawFlow = v
			case 9:
				a.RawVbat = v
			case 10:
				a.RawVrtc = v
			}
			return n, err
		}
		return cSkip(num, typ, fb)
	})
}

// Status is the periodic telemetry message emitted by every session.
type Status struct {
	TimestampMS *uint64
	Fuel        *FuelFlow
	ADC         *ADCRaw
	Battery     Battery
	Temperature Temperature
	CPU         CPUStatus
	SystemTime  uint64
	EngineID    uint32
	Flags       StatusFlag
	RPM         uint32
}

// Kind implements Message.
func (*Status) Kind() Kind { return KindStatus }

func (s *Status) appendTo(dst []byte) []byte {
	dst = appendUint32(dst, 1, s.EngineID)
	dst = appendUint32(dst, 2, uint32(s.Flags))
	dst = appendUint64(dst, 3, s.SystemTime)
	if s.TimestampMS != nil {
		dst = appendUint64(dst, 4, *s.TimestampMS)
	}
	dst = appendUint32(dst, 5, s.RPM)
	dst = appendMessage(dst, 6, s.Battery.appendTo(nil))
	dst = appendMessage(dst, 7, s.Temperature.appendTo(nil))
	dst = appendMessage(dst, 8, s.CPU.appendTo(nil))
	if s.Fuel != nil {
		dst = appendMessage(dst, 9, s.Fuel.appendTo(nil))
	}
	if s.ADC != nil {
		dst = appendMessage(dst, 10, s.ADC.appendTo(nil))
	}
	return dst
}

func (s *Status) unmarshal(data []byte) error {
	return walkFields(data, func(num protowire.Number, typ protowire.Type, fb []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n, err := cUint32(fb)
			s.EngineID = v
			return n, err
		case num == 2 && typ == protowire.VarintType:
			v, n, err := cUint32(fb)
			s.Flags = StatusFlag(v)
			return n, err
		case num == 3 && typ == protowire.VarintType:
			v, n, err := cUint64(fb)
			s.SystemTime = v
			return n, err
		case num == 4 && typ == protowire.VarintType:
			v, n, err := cUint64(fb)
			s.TimestampMS = &v
			return n, err
		case num == 5 && typ == protowire.VarintType:
			v, n, err := cUint32(fb)
			s.RPM = v
			return n, err
		case num == 6 && typ == protowire.BytesType:
			return unmarshalNested(fb, s.Battery.unmarshal)
		case num == 7 && typ == protowire.BytesType:
			return unmarshalNested(fb, s.Temperature.unmarshal)
		case num == 8 && typ == protowire.BytesType:
			return unmarshalNested(fb, s.CPU.unmarshal)
		case num == 9 && typ == protowire.BytesType:
			s.Fuel = new(FuelFlow)
			return unmarshalNested(fb, s.Fuel.unmarshal)
		case num == 10 && typ == protowire.BytesType:
			s.ADC = new(ADCRaw)
			return unmarshalNested(fb, s.ADC.unmarshal)
		default:
			return cSkip(num, typ, fb)
		}
	})
}

// walkFields iterates tag/value pairs in data, delegating each field to
// fn, which returns the number of value bytes consumed.
func walkFields(data []byte, fn func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		n, err := fn(num, typ, data)
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// unmarshalNested decodes a length-delimited submessage via fn and
// reports the total bytes consumed from the enclosing buffer.
func unmarshalNested(data []byte, fn func([]byte) error) (int, error) {
	body, n := protowire.ConsumeBytes(data)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return n, fn(body)
}
