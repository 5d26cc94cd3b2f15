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

package pbstx

import "github.com/sigurn/crc8"

// Frames carry a CRC-8 (poly 0x07, init 0x00, no reflection) computed
// over sequence, message id, length and payload. The start marker is
// excluded. Both ends must use the same table.
var crcTable = crc8.MakeTable(crc8.CRC8)

func crcInit() uint8 {
	return crc8.Init(crcTable)
}

func crcUpdate(crc uint8, data []byte) uint8 {
	return crc8.Update(crc, data, crcTable)
}

// FrameChecksum computes the frame CRC over data (SEQ..PAYLOAD). It is
// exported for host-side implementations and test fixtures that need to
// build frames byte by byte.
func FrameChecksum(data []byte) byte {
	return crc8.Checksum(data, crcTable)
}
