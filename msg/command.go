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

// Operation selects what a Command asks the controller to do.
type Operation uint32

const (
	OpUnknown Operation = iota
	OpEmergencyStop
	OpIgnitionEnable
	OpIgnitionDisable
	OpStarterEnable
	OpStarterDisable
	OpSaveConfig
	OpLoadConfig
	OpRefuel
)

// CommandResult is the executor's verdict attached to the reply.
type CommandResult uint32

const (
	ResultOK CommandResult = iota
	ResultRejected
	ResultInProgress
)

// Command carries an operation request; the reply reuses the same
// message with Response filled in (request-as-response pattern).
type Command struct {
	// Response is nil on requests. A non-nil Response marks an echo of
	// a previous reply and must not be executed again.
	Response  *CommandResult
	EngineID  uint32
	Operation Operation
}

// Kind implements Message.
func (*Command) Kind() Kind { return KindCommand }

func (c *Command) appendTo(dst []byte) []byte {
	dst = appendUint32(dst, 1, c.EngineID)
	dst = appendUint32(dst, 2, uint32(c.Operation))
	if c.Response != nil {
		dst = appendUint32(dst, 3, uint32(*c.Response))
	}
	return dst
}

func (c *Command) unmarshal(data []byte) error {
	return walkFields(data, func(num protowire.Number, typ protowire.Type, fb []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n, err := cUint32(fb)
			c.EngineID = v
			return n, err
		case num == 2 && typ == protowire.VarintType:
			v, n, err := cUint32(fb)
			c.Operation = Operation(v)
			return n, err
		case num == 3 && typ == protowire.VarintType:
			v, n, err := cUint32(fb)
			r := CommandResult(v)
			c.Response = &r
			return n, err
		default:
			return cSkip(num, typ, fb)
		}
	})
}
