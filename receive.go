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

	"github.com/ZaparooProject/go-ecatnic/internal/frame"
)

// InFrame is the non-blocking receive for slot idx on path.
//
// A reply already filed for idx by an earlier poll is served from the pool
// without touching the link. Otherwise one frame is read. A frame for idx
// completes the slot and its working counter is returned. A frame for
// another index that is still in flight is filed under that index as
// BufRcvd and OtherFrame is returned; frames for slots that are not in
// flight, and non-EtherCAT traffic, are dropped. NoFrame means nothing was
// waiting on the link.
func (p *Port) InFrame(idx uint8, path Path) WKC {
	pc := p.pathCtx(path)
	if pc == nil || pc.link == nil || !p.validIndex(idx) {
		return NoFrame
	}

	if pc.status[idx] == BufRcvd {
		wkc, _ := frame.WKC(pc.received(idx))
		pc.status[idx] = BufComplete
		return WKC(wkc)
	}

	pkt := p.recvPkt(pc, path)
	if pkt == nil {
		return NoFrame
	}
	if frame.Validate(pkt) != nil {
		return OtherFrame
	}

	idxf := pkt[frame.OffsetIndex]
	ecat := pkt[frame.EthHeaderSize:]
	tag := frame.SourceTag(pkt)

	if idxf == idx {
		pc.store(idx, ecat, tag)
		wkc, _ := frame.WKC(pc.received(idx))
		pc.status[idx] = BufComplete
		return WKC(wkc)
	}

	if p.validIndex(idxf) && pc.status[idxf] == BufTx {
		pc.store(idxf, ecat, tag)
		pc.status[idxf] = BufRcvd
	}
	return OtherFrame
}

// recvPkt reads one frame from the path's link into its temp buffer. It
// returns nil when nothing was read.
func (p *Port) recvPkt(pc *pathCtx, path Path) []byte {
	n, err := pc.link.Recv(pc.temp)
	if err != nil {
		if !errors.Is(err, ErrLinkClosed) {
			Debugf("%s: receive failed: %v", pc.name, err)
		}
		return nil
	}
	if n <= 0 {
		return nil
	}
	pkt := pc.temp[:n]
	if p.trace != nil {
		p.trace.RecordRX(path, pkt, "")
	}
	return pkt
}
