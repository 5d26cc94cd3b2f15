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

import (
	"context"
	"fmt"

	"github.com/miniecu/go-pbstx/msg"
)

// EncodeSend encodes m as an envelope into buf's backing storage and
// sends it as one frame over link. An unknown kind or an encoding that
// exceeds the frame payload limit raises the link's alert and reports
// ErrEncode; nothing is sent. At most one frame is produced per call.
func EncodeSend(ctx context.Context, link *Link, buf []byte, m msg.Message) error {
	payload, err := msg.AppendEnvelope(buf[:0], m)
	if err != nil {
		link.setAlert(AlertFailed)
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}
	if len(payload) > MaxPayload {
		link.setAlert(AlertFailed)
		return fmt.Errorf("%w: %s needs %d bytes", ErrEncode, m.Kind(), len(payload))
	}
	return link.SendFrame(ctx, byte(m.Kind()), payload)
}
