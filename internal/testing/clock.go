// Copyright 2026 The Zaparoo Project Contributors.
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

package testing

import (
	"time"

	"github.com/ZaparooProject/go-ecatnic/internal/syncutil"
)

// StepClock is a manual clock for polling loops. Sleep advances it by the
// requested duration, or by Step when that is larger, so a loop that yields
// between passes always reaches its deadline.
type StepClock struct {
	now    time.Time
	step   time.Duration
	sleeps int
	mu     syncutil.Mutex
}

// NewStepClock creates a clock at a fixed epoch advancing at least step per Sleep.
func NewStepClock(step time.Duration) *StepClock {
	if step <= 0 {
		step = time.Microsecond
	}
	return &StepClock{now: time.Unix(1_700_000_000, 0), step: step}
}

// Now returns the current simulated time
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep advances the clock instead of blocking
func (c *StepClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(max(d, c.step))
	c.sleeps++
}

// Advance moves the clock forward by d
func (c *StepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Sleeps returns how many times Sleep was called
func (c *StepClock) Sleeps() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sleeps
}
