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
	"time"

	"github.com/ZaparooProject/go-ecatnic/internal/frame"
)

// waiter polls for the reply to one index until it arrives on every active
// path or its timer expires. Each call to step is one polling pass, so the
// loop can be driven by a thread that sleeps or by a cooperative scheduler.
type waiter struct {
	ctx       context.Context
	p         *Port
	timer     Timer
	wkc       WKC
	wkc2      WKC
	idx       uint8
	redundant bool
}

func (p *Port) newWaiter(ctx context.Context, idx uint8, timer Timer) *waiter {
	w := &waiter{
		ctx:       ctx,
		p:         p,
		idx:       idx,
		timer:     timer,
		wkc:       NoFrame,
		wkc2:      NoFrame,
		redundant: p.redState != RedNone,
	}
	if !w.redundant {
		// nothing to wait for on the secondary path
		w.wkc2 = 0
	}
	if p.validIndex(idx) {
		p.route[idx] = RouteNone
	}
	return w
}

// step polls every path that has no result yet and reports whether the
// wait is over.
func (w *waiter) step() bool {
	if !w.wkc.Valid() {
		w.wkc = w.p.InFrame(w.idx, Primary)
	}
	if w.redundant && !w.wkc2.Valid() {
		w.wkc2 = w.p.InFrame(w.idx, Secondary)
	}
	if w.wkc.Valid() && w.wkc2.Valid() {
		return true
	}
	return w.timer.Expired() || w.ctx.Err() != nil
}

// result resolves the primary and secondary outcomes into one answer.
//
// The source tag stored with each reply tells how the ring routed it:
//   - primary path saw the secondary tag and the secondary path saw the
//     primary tag: the frames went all the way round, so the secondary
//     copy holds the processed data.
//   - the secondary path got its own tag back (and the primary path got
//     nothing or its own tag): the ring is open between the two ports and
//     some slaves were only reachable from the secondary side. The request
//     is resent on the secondary path to reach them.
//   - otherwise the primary result wins if valid, else the secondary one.
func (w *waiter) result() WKC {
	if !w.redundant {
		if w.wkc.Valid() {
			w.p.route[w.idx] = RouteDirect
		}
		return w.wkc
	}

	p := w.p
	prim, sec := p.paths[Primary], p.paths[Secondary]

	var primrx, secrx uint16
	if w.wkc.Valid() {
		primrx = prim.rxsa[w.idx]
	}
	if w.wkc2.Valid() {
		secrx = sec.rxsa[w.idx]
	}

	switch {
	case primrx == frame.TagSecondary && secrx == frame.TagPrimary:
		Debugf("%s: index %d looped through the ring, using secondary copy", p.config.Name, w.idx)
		p.adoptSecondary(w.idx)
		p.route[w.idx] = RouteLooped
		return w.wkc2

	case secrx == frame.TagSecondary && (primrx == 0 || primrx == frame.TagPrimary):
		if primrx == frame.TagPrimary {
			// carry what the primary side already processed
			p.mirrorRxToTx(w.idx)
		}
		Debugf("%s: ring open for index %d, resending on secondary path", p.config.Name, w.idx)
		if wkc := p.resendSecondary(w.ctx, w.idx); wkc.Valid() {
			p.adoptSecondary(w.idx)
			p.route[w.idx] = RouteResent
			return wkc
		}
		if w.wkc.Valid() {
			p.route[w.idx] = RouteDirect
		}
		return w.wkc

	case w.wkc.Valid():
		p.route[w.idx] = RouteDirect
		return w.wkc

	case w.wkc2.Valid():
		p.adoptSecondary(w.idx)
		p.route[w.idx] = RouteSecondary
		return w.wkc2
	}

	return w.wkc
}

// resendSecondary sends slot idx on the secondary path and polls only that
// path for the short retry quota.
func (p *Port) resendSecondary(ctx context.Context, idx uint8) WKC {
	timer := StartTimer(p.clock, p.config.RetryTimeout)
	if _, err := p.OutFrame(idx, Secondary); err != nil {
		Debugf("%s: secondary resend of index %d failed: %v", p.config.Name, idx, err)
		return NoFrame
	}

	for {
		wkc := p.InFrame(idx, Secondary)
		if wkc.Valid() || timer.Expired() || ctx.Err() != nil {
			return wkc
		}
		p.yield()
	}
}

// adoptSecondary copies the secondary reply of idx into the primary slot
func (p *Port) adoptSecondary(idx uint8) {
	prim, sec := p.paths[Primary], p.paths[Secondary]
	prim.store(idx, sec.received(idx), sec.rxsa[idx])
}

// mirrorRxToTx copies the primary reply of idx back into its transmit
// buffer, behind the Ethernet header
func (p *Port) mirrorRxToTx(idx uint8) {
	rx := p.paths[Primary].received(idx)
	limit := p.txlen[idx] - frame.EthHeaderSize
	if limit <= 0 {
		return
	}
	copy(p.txbuf[idx][frame.EthHeaderSize:frame.EthHeaderSize+limit], rx)
}

// yield pauses between polling passes that found nothing
func (p *Port) yield() {
	p.clock.Sleep(p.config.PollInterval)
}

// wait drives a waiter to completion
func (p *Port) wait(ctx context.Context, idx uint8, timer Timer) WKC {
	w := p.newWaiter(ctx, idx, timer)
	for !w.step() {
		p.yield()
	}
	if wkc := w.result(); wkc.Valid() {
		return wkc
	}
	return NoFrame
}

// WaitInFrame blocks until the reply for idx arrives or timeout passes and
// returns its working counter, or NoFrame. In redundant mode both paths are
// awaited and the routing of the replies decides the answer.
func (p *Port) WaitInFrame(idx uint8, timeout time.Duration) WKC {
	return p.wait(context.Background(), idx, StartTimer(p.clock, timeout))
}
