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

// Package ecusim provides in-memory implementations of the comm
// collaborator interfaces. The ecud daemon runs on them when no real
// engine hardware is attached, and the comm tests use them as fixtures.
package ecusim

import (
	"fmt"
	"sort"

	"github.com/miniecu/go-pbstx/comm"
	"github.com/miniecu/go-pbstx/internal/syncutil"
	"github.com/miniecu/go-pbstx/msg"
)

// Param is one entry of the simulated parameter table. Min/Max bound
// numeric values; writes outside the bounds are clamped.
type Param struct {
	Value msg.ParamData
	Min   float64
	Max   float64
}

// ParamTable is a comm.ParamStore over a fixed map of parameters.
// Lookup by index follows the sorted order of the ids, so enumeration
// is stable across calls.
type ParamTable struct {
	mu     syncutil.Mutex
	params map[string]*Param
	ids    []string
}

// NewParamTable builds a table from the given entries.
func NewParamTable(params map[string]*Param) *ParamTable {
	ids := make([]string, 0, len(params))
	for id := range params {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return &ParamTable{params: params, ids: ids}
}

// DefaultParams returns the parameter set the simulator boots with.
func DefaultParams() map[string]*Param {
	return map[string]*Param{
		"RPM_LIMIT":     {Value: msg.Int32Value(8000), Min: 1000, Max: 12000},
		"RPM_LOW":       {Value: msg.Int32Value(1200), Min: 500, Max: 4000},
		"TEMP_LIMIT":    {Value: msg.FloatValue(120), Min: 60, Max: 200},
		"BATT_LOW":      {Value: msg.FloatValue(6.5), Min: 5, Max: 9},
		"FUEL_LOW_ML":   {Value: msg.FloatValue(250), Min: 0, Max: 5000},
		"STARTER_AUTO":  {Value: msg.BoolValue(false)},
		"ENGINE_NAME":   {Value: msg.StringValue("miniecu sim")},
		"STATUS_PERIOD": {Value: msg.Int32Value(250), Min: 50, Max: 5000},
	}
}

// Get implements comm.ParamStore.
func (t *ParamTable) Get(id string) (msg.ParamData, int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.params[id]
	if !ok {
		return msg.ParamData{}, 0, fmt.Errorf("unknown param %q", id)
	}
	return p.Value, t.indexOf(id), nil
}

// GetByIndex implements comm.ParamStore.
func (t *ParamTable) GetByIndex(index int) (string, msg.ParamData, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if index < 0 || index >= len(t.ids) {
		return "", msg.ParamData{}, fmt.Errorf("param index %d out of range", index)
	}
	id := t.ids[index]
	return id, t.params[id].Value, nil
}

// Set implements comm.ParamStore. Numeric writes outside the entry's
// bounds are clamped and reported with comm.ErrParamLimited; type
// mismatches are rejected.
func (t *ParamTable) Set(id string, value msg.ParamData) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.params[id]
	if !ok {
		return fmt.Errorf("unknown param %q", id)
	}

	switch {
	case p.Value.Bool != nil && value.Bool != nil:
		p.Value = msg.BoolValue(*value.Bool)
		return nil

	case p.Value.Str != nil && value.Str != nil:
		p.Value = msg.StringValue(*value.Str)
		return nil

	case p.Value.Int32 != nil && value.Int32 != nil:
		v, limited := clamp(float64(*value.Int32), p.Min, p.Max)
		p.Value = msg.Int32Value(int32(v))
		if limited {
			return comm.ErrParamLimited
		}
		return nil

	case p.Value.Float != nil && value.Float != nil:
		v, limited := clamp(float64(*value.Float), p.Min, p.Max)
		p.Value = msg.FloatValue(float32(v))
		if limited {
			return comm.ErrParamLimited
		}
		return nil

	default:
		return fmt.Errorf("param %q: value type mismatch", id)
	}
}

// Count implements comm.ParamStore.
func (t *ParamTable) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ids)
}

func (t *ParamTable) indexOf(id string) int {
	for i, v := range t.ids {
		if v == id {
			return i
		}
	}
	return 0
}

func clamp(v, min, max float64) (float64, bool) {
	if min == 0 && max == 0 {
		return v, false
	}
	if v < min {
		return min, true
	}
	if v > max {
		return max, true
	}
	return v, false
}
