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
	"context"
	"fmt"
	"time"
)

// SRConfirm sends slot idx and waits for its reply, retransmitting while
// time is left. Each attempt waits at most the port's retry quota, so a
// single lost frame does not consume the whole timeout. It returns the
// working counter of the first reply, or NoFrame once timeout has passed.
func (p *Port) SRConfirm(idx uint8, timeout time.Duration) WKC {
	return p.srConfirm(context.Background(), idx, timeout)
}

// SRConfirmContext is SRConfirm that also stops when ctx is done. A missing
// reply is reported as ErrNoFrame, carrying the frame trace when the port
// was created WithTrace.
func (p *Port) SRConfirmContext(ctx context.Context, idx uint8, timeout time.Duration) (int, error) {
	if p.trace != nil {
		p.trace.Clear()
	}

	wkc := p.srConfirm(ctx, idx, timeout)
	if wkc.Valid() {
		return int(wkc), nil
	}
	if err := ctx.Err(); err != nil {
		return int(NoFrame), fmt.Errorf("index %d: %w", idx, err)
	}

	err := fmt.Errorf("%w: index %d within %v", ErrNoFrame, idx, timeout)
	if p.trace != nil {
		p.trace.RecordTimeout(Primary, fmt.Sprintf("index %d", idx))
		return int(NoFrame), p.trace.WrapError(err)
	}
	return int(NoFrame), err
}

func (p *Port) srConfirm(ctx context.Context, idx uint8, timeout time.Duration) WKC {
	overall := StartTimer(p.clock, timeout)

	for {
		// transmit errors surface as a missing reply
		_, _ = p.OutFrameRed(idx)

		attempt := min(overall.Remaining(), p.config.RetryTimeout)
		wkc := p.wait(ctx, idx, StartTimer(p.clock, attempt))
		if wkc.Valid() {
			return wkc
		}
		if overall.Expired() || ctx.Err() != nil {
			return NoFrame
		}
	}
}
