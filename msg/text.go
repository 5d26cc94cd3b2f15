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

// Severity levels for StatusText.
type Severity uint32

const (
	SevDebug Severity = iota
	SevInfo
	SevWarn
	SevError
)

// StatusText is a free-form diagnostic line broadcast to every attached
// host.
type StatusText struct {
	Text     string
	EngineID uint32
	Severity Severity
}

// Kind implements Message.
func (*StatusText) Kind() Kind { return KindStatusText }

func (s *StatusText) appendTo(dst []byte) []byte {
	dst = appendUint32(dst, 1, s.EngineID)
	dst = appendUint32(dst, 2, uint32(s.Severity))
	dst = appendString(dst, 3, s.Text)
	return dst
}

func (s *StatusText) unmarshal(data []byte) error {
	return walkFields(data, func(num protowire.Number, typ protowire.Type, fb []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n, err := cUint32(fb)
			s.EngineID = v
			return n, err
		case num == 2 && typ == protowire.VarintType:
			v, n, err := cUint32(fb)
			s.Severity = Severity(v)
			return n, err
		case num == 3 && typ == protowire.BytesType:
			v, n, err := cString(fb)
			s.Text = v
			return n, err
		default:
			return cSkip(num, typ, fb)
		}
	})
}
