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

// ParamData is the typed value of one parameter. Exactly one of the
// pointer fields is set, mirroring the store's union value type.
type ParamData struct {
	Bool  *bool
	Int32 *int32
	Float *float32
	Str   *string
}

func (p *ParamData) appendTo(dst []byte) []byte {
	switch {
	case p.Bool != nil:
		dst = appendBool(dst, 1, *p.Bool)
	case p.Int32 != nil:
		dst = appendSint64(dst, 2, int64(*p.Int32))
	case p.Float != nil:
		dst = appendFloat32(dst, 3, *p.Float)
	case p.Str != nil:
		dst = appendString(dst, 4, *p.Str)
	}
	return dst
}

func (p *ParamData) unmarshal(data []byte) error {
	return walkFields(data, func(num protowire.Number, typ protowire.Type, fb []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n, err := cBool(fb)
			p.Bool = &v
			return n, err
		case num == 2 && typ == protowire.VarintType:
			v, n, err := cSint64(fb)
			i := int32(v)
			p.Int32 = &i
			return n, err
		case num == 3 && typ == protowire.Fixed32Type:
			v, n, err := cFloat32(fb)
			p.Float = &v
			return n, err
		case num == 4 && typ == protowire.BytesType:
			v, n, err := cString(fb)
			p.Str = &v
			return n, err
		default:
			return cSkip(num, typ, fb)
		}
	})
}

// BoolValue builds a ParamData holding v.
func BoolValue(v bool) ParamData { return ParamData{Bool: &v} }

// Int32Value builds a ParamData holding v.
func Int32Value(v int32) ParamData { return ParamData{Int32: &v} }

// FloatValue builds a ParamData holding v.
func FloatValue(v float32) ParamData { return ParamData{Float: &v} }

// StringValue builds a ParamData holding v.
func StringValue(v string) ParamData { return ParamData{Str: &v} }

// ParamRequest asks for parameter values. Addressing modes are mutually
// exclusive and checked in order: by identifier, by index, then neither
// set meaning "enumerate everything".
type ParamRequest struct {
	ParamID    *string
	ParamIndex *uint32
	EngineID   uint32
}

// Kind implements Message.
func (*ParamRequest) Kind() Kind { return KindParamRequest }

func (p *ParamRequest) appendTo(dst []byte) []byte {
	dst = appendUint32(dst, 1, p.EngineID)
	if p.ParamID != nil {
		dst = appendString(dst, 2, *p.ParamID)
	}
	if p.ParamIndex != nil {
		dst = appendUint32(dst, 3, *p.ParamIndex)
	}
	return dst
}

func (p *ParamRequest) unmarshal(data []byte) error {
	return walkFields(data, func(num protowire.Number, typ protowire.Type, fb []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n, err := cUint32(fb)
			p.EngineID = v
			return n, err
		case num == 2 && typ == protowire.BytesType:
			v, n, err := cString(fb)
			p.ParamID = &v
			return n, err
		case num == 3 && typ == protowire.VarintType:
			v, n, err := cUint32(fb)
			p.ParamIndex = &v
			return n, err
		default:
			return cSkip(num, typ, fb)
		}
	})
}

// ParamSet writes one parameter by identifier.
type ParamSet struct {
	ParamID  string
	Value    ParamData
	EngineID uint32
}

// Kind implements Message.
func (*ParamSet) Kind() Kind { return KindParamSet }

func (p *ParamSet) appendTo(dst []byte) []byte {
	dst = appendUint32(dst, 1, p.EngineID)
	dst = appendString(dst, 2, p.ParamID)
	dst = appendMessage(dst, 3, p.Value.appendTo(nil))
	return dst
}

func (p *ParamSet) unmarshal(data []byte) error {
	return walkFields(data, func(num protowire.Number, typ protowire.Type, fb []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n, err := cUint32(fb)
			p.EngineID = v
			return n, err
		case num == 2 && typ == protowire.BytesType:
			v, n, err := cString(fb)
			p.ParamID = v
			return n, err
		case num == 3 && typ == protowire.BytesType:
			return unmarshalNested(fb, p.Value.unmarshal)
		default:
			return cSkip(num, typ, fb)
		}
	})
}

// ParamValue reports one parameter back to the host. ParamCount lets
// the host size a full enumeration.
type ParamValue struct {
	ParamID    string
	Value      ParamData
	EngineID   uint32
	ParamIndex uint32
	ParamCount uint32
}

// Kind implements Message.
func (*ParamValue) Kind() Kind { return KindParamValue }

func (p *ParamValue) appendTo(dst []byte) []byte {
	dst = appendUint32(dst, 1, p.EngineID)
	dst = appendString(dst, 2, p.ParamID)
	dst = appendUint32(dst, 3, p.ParamIndex)
	dst = appendUint32(dst, 4, p.ParamCount)
	dst = appendMessage(dst, 5, p.Value.appendTo(nil))
	return dst
}

func (p *ParamValue) unmarshal(data []byte) error {
	return walkFields(data, func(num protowire.Number, typ protowire.Type, fb []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n, err := cUint32(fb)
			p.EngineID = v
			return n, err
		case num == 2 && typ == protowire.BytesType:
			v, n, err := cString(fb)
			p.ParamID = v
			return n, err
		case num == 3 && typ == protowire.VarintType:
			v, n, err := cUint32(fb)
			p.ParamIndex = v
			return n, err
		case num == 4 && typ == protowire.VarintType:
			v, n, err := cUint32(fb)
			p.ParamCount = v
			return n, err
		case num == 5 && typ == protowire.BytesType:
			return unmarshalNested(fb, p.Value.unmarshal)
		default:
			return cSkip(num, typ, fb)
		}
	})
}
