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

// MemoryRegion selects which address space a dump reads.
type MemoryRegion uint32

const (
	// RegionRAM reads internal RAM.
	RegionRAM MemoryRegion = iota
	// RegionFlash reads the external flash.
	RegionFlash
)

// MemoryDumpRequest asks for a raw byte range from a memory region. The
// controller answers with a series of MemoryDumpPage messages covering
// [Address, Address+Size).
type MemoryDumpRequest struct {
	EngineID uint32
	Region   MemoryRegion
	StreamID uint32
	Address  uint32
	Size     uint32
}

// Kind implements Message.
func (*MemoryDumpRequest) Kind() Kind { return KindMemoryDumpRequest }

func (m *MemoryDumpRequest) appendTo(dst []byte) []byte {
	dst = appendUint32(dst, 1, m.EngineID)
	dst = appendUint32(dst, 2, uint32(m.Region))
	dst = appendUint32(dst, 3, m.StreamID)
	dst = appendUint32(dst, 4, m.Address)
	dst = appendUint32(dst, 5, m.Size)
	return dst
}

func (m *MemoryDumpRequest) unmarshal(data []byte) error {
	return walkFields(data, func(num protowire.Number, typ protowire.Type, fb []byte) (int, error) {
		if typ != protowire.VarintType || num < 1 || num > 5 {
			return cSkip(num, typ, fb)
		}
		v, n, err := cUint32(fb)
		switch num {
		case 1:
			m.EngineID = v
		case 2:
			m.Region = MemoryRegion(v)
		case 3:
			m.StreamID = v
		case 4:
			m.Address = v
		case 5:
			m.Size = v
		}
		return n, err
	})
}

// MemoryDumpPage is one chunk of a dump, unicast to the requesting
// session.
type MemoryDumpPage struct {
	Page     []byte
	EngineID uint32
	StreamID uint32
	Address  uint32
}

// Kind implements Message.
func (*MemoryDumpPage) Kind() Kind { return KindMemoryDumpPage }

func (m *MemoryDumpPage) appendTo(dst []byte) []byte {
	dst = appendUint32(dst, 1, m.EngineID)
	dst = appendUint32(dst, 2, m.StreamID)
	dst = appendUint32(dst, 3, m.Address)
	dst = appendBytesField(dst, 4, m.Page)
	return dst
}

func (m *MemoryDumpPage) unmarshal(data []byte) error {
	return walkFields(data, func(num protowire.Number, typ protowire.Type, fb []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n, err := cUint32(fb)
			m.EngineID = v
			return n, err
		case num == 2 && typ == protowire.VarintType:
			v, n, err := cUint32(fb)
			m.StreamID = v
			return n, err
		case num == 3 && typ == protowire.VarintType:
			v, n, err := cUint32(fb)
			m.Address = v
			return n, err
		case num == 4 && typ == protowire.BytesType:
			v, n, err := cBytes(fb)
			m.Page = v
			return n, err
		default:
			return cSkip(num, typ, fb)
		}
	})
}

// LogRequest asks for stored log data. The core session loop decodes it
// to keep envelope scanning consistent; delivery itself is handled by
// an external logging subsystem.
type LogRequest struct {
	EngineID uint32
	StreamID uint32
}

// Kind implements Message.
func (*LogRequest) Kind() Kind { return KindLogRequest }

func (l *LogRequest) appendTo(dst []byte) []byte {
	dst = appendUint32(dst, 1, l.EngineID)
	dst = appendUint32(dst, 2, l.StreamID)
	return dst
}

func (l *LogRequest) unmarshal(data []byte) error {
	return walkFields(data, func(num protowire.Number, typ protowire.Type, fb []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n, err := cUint32(fb)
			l.EngineID = v
			return n, err
		case num == 2 && typ == protowire.VarintType:
			v, n, err := cUint32(fb)
			l.StreamID = v
			return n, err
		default:
			return cSkip(num, typ, fb)
		}
	})
}
