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
	"fmt"

	"github.com/miniecu/go-pbstx/msg"
)

// Memory implements comm.MemoryReader over two byte-slice snapshots
// standing in for internal RAM and the external flash.
type Memory struct {
	RAM   []byte
	Flash []byte
}

// NewMemory allocates pattern-filled RAM and flash regions of the given
// sizes. The pattern makes dump offsets recognizable in hex output.
func NewMemory(ramSize, flashSize int) *Memory {
	m := &Memory{
		RAM:   make([]byte, ramSize),
		Flash: make([]byte, flashSize),
	}
	for i := range m.RAM {
		m.RAM[i] = byte(i)
	}
	for i := range m.Flash {
		m.Flash[i] = byte(i ^ 0xFF)
	}
	return m
}

// Read implements comm.MemoryReader.
func (m *Memory) Read(region msg.MemoryRegion, address uint32, buf []byte) (int, error) {
	var src []byte
	switch region {
	case msg.RegionRAM:
		src = m.RAM
	case msg.RegionFlash:
		src = m.Flash
	default:
		return 0, fmt.Errorf("unknown memory region %d", region)
	}

	if int(address) >= len(src) {
		return 0, fmt.Errorf("address 0x%08x beyond region end 0x%08x", address, len(src))
	}
	return copy(buf, src[address:]), nil
}
