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

package ecatnic

import (
	"runtime"
	"time"
)

// Clock is the monotonic time source the port polls against.
type Clock interface {
	// Now returns the current monotonic time
	Now() time.Time
	// Sleep blocks for d. A non-positive d yields the processor instead.
	Sleep(d time.Duration)
}

// SystemClock implements Clock with the runtime's monotonic clock
type SystemClock struct{}

// Now implements Clock
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Sleep implements Clock
func (SystemClock) Sleep(d time.Duration) {
	if d <= 0 {
		runtime.Gosched()
		return
	}
	time.Sleep(d)
}

// Timer is an absolute deadline on a Clock.
type Timer struct {
	clock Clock
	stop  time.Time
}

// StartTimer returns a deadline d from now.
func StartTimer(clock Clock, d time.Duration) Timer {
	return Timer{clock: clock, stop: clock.Now().Add(d)}
}

// Expired reports whether the deadline has been reached.
func (t Timer) Expired() bool {
	return !t.clock.Now().Before(t.stop)
}

// Remaining returns the time left until the deadline, never negative.
func (t Timer) Remaining() time.Duration {
	if d := t.stop.Sub(t.clock.Now()); d > 0 {
		return d
	}
	return 0
}

// Deadline returns the absolute stop time.
func (t Timer) Deadline() time.Time {
	return t.stop
}
