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
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-ecatnic/internal/frame"
)

// OutFrame sends the transmit buffer of slot idx on path. The slot is marked
// BufTx before the send so a reply racing the send still finds it in flight.
// If the link fails the slot reverts to BufEmpty, since a frame that never
// left cannot be correlated.
func (p *Port) OutFrame(idx uint8, path Path) (int, error) {
	pc := p.pathCtx(path)
	if pc == nil || pc.link == nil {
		return 0, fmt.Errorf("%w: %v", ErrPortNotSetup, path)
	}
	if !p.validIndex(idx) {
		return 0, fmt.Errorf("%w: index %d", ErrInvalidParameter, idx)
	}
	buf := p.txbuf[idx][:p.txlen[idx]]
	if len(buf) < frame.EthHeaderSize {
		return 0, fmt.Errorf("%w: slot %d has no frame", ErrInvalidFrame, idx)
	}

	pc.status[idx] = BufTx
	n, err := p.send(pc, path, buf)
	if err != nil {
		pc.status[idx] = BufEmpty
		return 0, err
	}
	return n, nil
}

// OutFrameRed sends slot idx on the primary path tagged as primary. With
// redundancy on, the secondary dummy frame carrying the same index is sent
// on the secondary path; it reveals how the ring is currently routed.
func (p *Port) OutFrameRed(idx uint8) (int, error) {
	if !p.validIndex(idx) {
		return 0, fmt.Errorf("%w: index %d", ErrInvalidParameter, idx)
	}
	frame.SetSourceTag(p.txbuf[idx], frame.TagPrimary)

	n, err := p.OutFrame(idx, Primary)
	if err != nil {
		Debugf("%s: primary transmit of index %d failed: %v", p.config.Name, idx, err)
	}

	if p.redState != RedNone {
		sec := p.paths[Secondary]
		frame.SetIndex(p.txbuf2, idx)
		sec.status[idx] = BufTx
		if _, serr := p.send(sec, Secondary, p.txbuf2[:p.txlen2]); serr != nil {
			sec.status[idx] = BufEmpty
			Debugf("%s: secondary transmit of index %d failed: %v", p.config.Name, idx, serr)
		}
	}

	return n, err
}

// send hands one frame to the path's link
func (p *Port) send(pc *pathCtx, path Path, buf []byte) (int, error) {
	if pc.link.IsClosed() {
		return 0, NewLinkClosedError("OutFrame", pc.name)
	}
	n, err := pc.link.Send(buf)
	if err != nil {
		if errors.Is(err, ErrLinkClosed) {
			return 0, NewLinkClosedError("OutFrame", pc.name)
		}
		return 0, NewLinkWriteError("OutFrame", pc.name, err)
	}
	if p.trace != nil {
		p.trace.RecordTX(path, buf, "")
	}
	return n, nil
}
