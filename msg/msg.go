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

// Package msg defines the envelope messages carried inside PBStx frame
// payloads and their wire codec.
//
// A frame payload holds exactly one tag/length-delimited submessage of
// the envelope union. The discriminant is never stored as an explicit
// byte: it is inferred from which length-delimited field tag appears in
// the payload. Unknown leading fields are tolerated and skipped, so the
// format stays forward compatible; the first recognized field wins.
package msg

import (
	"errors"

	"google.golang.org/protobuf/encoding/protowire"
)

// BroadcastEngineID addresses every controller on the channel. Requests
// carrying it are answered by all units that support broadcast for that
// message kind.
const BroadcastEngineID uint32 = 0

// Kind identifies one variant of the envelope union. The numeric value
// is the field number of the variant in the envelope message.
type Kind uint8

// Envelope union field numbers. The set is closed: dispatch is an
// exhaustive switch over these kinds.
const (
	KindStatus            Kind = 1
	KindTimeReference     Kind = 2
	KindCommand           Kind = 3
	KindParamRequest      Kind = 4
	KindParamSet          Kind = 5
	KindParamValue        Kind = 6
	KindLogRequest        Kind = 7
	KindMemoryDumpRequest Kind = 8
	KindMemoryDumpPage    Kind = 9
	KindStatusText        Kind = 10
)

func (k Kind) String() string {
	switch k {
	case KindStatus:
		return "Status"
	case KindTimeReference:
		return "TimeReference"
	case KindCommand:
		return "Command"
	case KindParamRequest:
		return "ParamRequest"
	case KindParamSet:
		return "ParamSet"
	case KindParamValue:
		return "ParamValue"
	case KindLogRequest:
		return "LogRequest"
	case KindMemoryDumpRequest:
		return "MemoryDumpRequest"
	case KindMemoryDumpPage:
		return "MemoryDumpPage"
	case KindStatusText:
		return "StatusText"
	default:
		return "Unknown"
	}
}

// Message is one envelope variant.
type Message interface {
	// Kind returns the variant discriminant.
	Kind() Kind

	appendTo(b []byte) []byte
	unmarshal(b []byte) error
}

var (
	// ErrUnknownKind reports an encode or decode attempt with a kind
	// absent from the envelope table. On the encode side this is a
	// programming-contract violation.
	ErrUnknownKind = errors.New("message kind not in envelope table")
	// ErrTruncated reports an envelope whose length-delimited content
	// is shorter than its length prefix claims.
	ErrTruncated = errors.New("truncated envelope")
)

// kindTable is the fixed ordered association from union field number to
// variant constructor, shared by encoder and decoder.
var kindTable = [...]struct {
	make func() Message
	kind Kind
}{
	{kind: KindStatus, make: func() Message { return new(Status) }},
	{kind: KindTimeReference, make: func() Message { return new(TimeReference) }},
	{kind: KindCommand, make: func() Message { return new(Command) }},
	{kind: KindParamRequest, make: func() Message { return new(ParamRequest) }},
	{kind: KindParamSet, make: func() Message { return new(ParamSet) }},
	{kind: KindParamValue, make: func() Message { return new(ParamValue) }},
	{kind: KindLogRequest, make: func() Message { return new(LogRequest) }},
	{kind: KindMemoryDumpRequest, make: func() Message { return new(MemoryDumpRequest) }},
	{kind: KindMemoryDumpPage, make: func() Message { return new(MemoryDumpPage) }},
	{kind: KindStatusText, make: func() Message { return new(StatusText) }},
}

func newMessage(kind Kind) Message {
	for _, e := range kindTable {
		if e.kind == kind {
			return e.make()
		}
	}
	return nil
}

func isKnownKind(num protowire.Number) bool {
	for _, e := range kindTable {
		if protowire.Number(e.kind) == num {
			return true
		}
	}
	return false
}

// AppendEnvelope encodes m as one tag/length-delimited envelope field
// appended to dst. The kind must be present in the envelope table.
// Exactly one field is produced per call.
func AppendEnvelope(dst []byte, m Message) ([]byte, error) {
	if !isKnownKind(protowire.Number(m.Kind())) {
		return nil, ErrUnknownKind
	}
	body := m.appendTo(nil)
	dst = appendMessage(dst, protowire.Number(m.Kind()), body)
	return dst, nil
}

// ScanKind reads tag/wire-type pairs from payload until it finds a
// length-delimited field whose tag is in the envelope table. It returns
// that kind and the payload positioned just after the matched tag, so
// the field's content is still unconsumed and Decode can read the full
// submessage. Non-matching fields, including known tags with the wrong
// wire type, are skipped. ok is false when the payload is exhausted or
// malformed with no match.
func ScanKind(payload []byte) (kind Kind, rest []byte, ok bool) {
	for len(payload) > 0 {
		num, typ, n := protowire.ConsumeTag(payload)
		if n < 0 {
			return 0, nil, false
		}
		if typ == protowire.BytesType && isKnownKind(num) {
			return Kind(num), payload[n:], true
		}
		payload = payload[n:]
		n, err := cSkip(num, typ, payload)
		if err != nil {
			return 0, nil, false
		}
		payload = payload[n:]
	}
	return 0, nil, false
}

// Decode consumes the length-delimited field content at the head of
// data (as positioned by ScanKind) and unmarshals it as kind.
func Decode(kind Kind, data []byte) (Message, error) {
	body, n := protowire.ConsumeBytes(data)
	if n < 0 {
		return nil, ErrTruncated
	}
	m := newMessage(kind)
	if m == nil {
		return nil, ErrUnknownKind
	}
	if err := m.unmarshal(body); err != nil {
		return nil, err
	}
	return m, nil
}
