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

import "time"

// Frame round-trip timeouts. The per-attempt quota bounds a single
// transmit/wait cycle inside a longer confirm so that one lost frame cannot
// use up the caller's whole allowance.
const (
	// TimeoutRet is the default per-attempt receive quota.
	TimeoutRet = 2000 * time.Microsecond
	// TimeoutRet3 is a convenience allowance for three attempts.
	TimeoutRet3 = 3 * TimeoutRet
	// TimeoutSafe is a conservative overall timeout for non-cyclic frames.
	TimeoutSafe = 20000 * time.Microsecond
)

// Buffer pool limits.
const (
	// DefaultPoolSize is the number of frame slots per port.
	DefaultPoolSize = 16
	// MaxPoolSize is bounded by the one-byte correlation index.
	MaxPoolSize = 256
)

// Link open retry constants control how Connect opens links.
const (
	// DefaultConnectionRetries is the number of attempts to open a link.
	DefaultConnectionRetries = 3
	// ConnectionInitialBackoff is the initial delay between open attempts.
	ConnectionInitialBackoff = 50 * time.Millisecond
	// ConnectionMaxBackoff is the maximum delay between open attempts.
	ConnectionMaxBackoff = 500 * time.Millisecond
	// ConnectionBackoffMultiplier is the exponential backoff multiplier.
	ConnectionBackoffMultiplier = 2.0
	// ConnectionJitter is the random jitter factor (0.0-1.0).
	ConnectionJitter = 0.1
	// ConnectionRetryTimeout is the overall timeout for all open attempts.
	ConnectionRetryTimeout = 10 * time.Second
)
