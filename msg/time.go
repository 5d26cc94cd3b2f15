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

// TimeReference synchronizes the controller's epoch clock. The host
// sends its timestamp; the controller applies it and replies with the
// same message carrying its system time and the applied offset. A
// message that already has TimeDiff set is a reply, not a request.
type TimeReference struct {
	SystemTime  *uint64
	TimeDiff    *int64
	TimestampMS uint64
	EngineID    uint32
}

// Kind implements Message.
func (*TimeReference) Kind() Kind { return KindTimeReference }

func (t *TimeReference) appendTo(dst []byte) []byte {
	dst = appendUint32(dst, 1, t.EngineID)
	dst = appendUint64(dst, 2, t.TimestampMS)
	if t.SystemTime != nil {
		dst = appendUint64(dst, 3, *t.SystemTime)
	}
	if t.TimeDiff != nil {
		dst = appendSint64(dst, 4, *t.TimeDiff)
	}
	return dst
}

func (t *TimeReference) unmarshal(data []byte) error {
	return walkFields(data, func(num protowire.Number, typ protowire.Type, fb []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n, err := cUint32(fb)
			t.EngineID = v
			return n, err
		case num == 2 && typ == protowire.VarintType:
			v, n, err := cUint64(fb)
			t.TimestampMS = v
			return n, err
		case num == 3 && typ == protowire.VarintType:
			v, n, err := cUint64(fb)
			t.SystemTime = &v
			return n, err
		case num == 4 && typ == protowire.VarintType:
			v, n, err := cSint64(fb)
			t.TimeDiff = &v
			return n, err
		default:
			return cSkip(num, typ, fb)
		}
	})
}
