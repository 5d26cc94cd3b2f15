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

import "sync/atomic"

// AlertLevel is a two-valued component health signal. The frame and
// envelope codecs toggle it on failure and recovery; an external
// indicator consumes it.
type AlertLevel uint8

const (
	// AlertNormal indicates the component is healthy.
	AlertNormal AlertLevel = iota
	// AlertFailed indicates the component saw a failure on its most
	// recent operation.
	AlertFailed
)

// Alert holds the health state for one component. It is not an error
// counter: each success or failure overwrites the previous level.
type Alert struct {
	onChange func(AlertLevel)
	failed   atomic.Bool
}

// NewAlert creates an alert. onChange, if non-nil, is invoked whenever
// the level transitions.
func NewAlert(onChange func(AlertLevel)) *Alert {
	return &Alert{onChange: onChange}
}

// Set updates the alert level, notifying on transitions only.
func (a *Alert) Set(level AlertLevel) {
	failed := level == AlertFailed
	if a.failed.Swap(failed) != failed && a.onChange != nil {
		a.onChange(level)
	}
}

// Level returns the current alert level.
func (a *Alert) Level() AlertLevel {
	if a.failed.Load() {
		return AlertFailed
	}
	return AlertNormal
}
