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

import "fmt"

// BufStat is the lifecycle state of one frame slot on one path.
type BufStat int

const (
	// BufEmpty marks a free slot
	BufEmpty BufStat = iota
	// BufAlloc marks a slot reserved by a caller but not yet sent
	BufAlloc
	// BufTx marks a sent slot awaiting its reply
	BufTx
	// BufRcvd marks a reply filed for a later poll of its index
	BufRcvd
	// BufComplete marks a reply claimed by its request
	BufComplete
)

func (s BufStat) String() string {
	switch s {
	case BufEmpty:
		return "empty"
	case BufAlloc:
		return "alloc"
	case BufTx:
		return "tx"
	case BufRcvd:
		return "rcvd"
	case BufComplete:
		return "complete"
	default:
		return fmt.Sprintf("BufStat(%d)", int(s))
	}
}

// Path selects one of the two physical paths of a port.
type Path int

const (
	// Primary is the path frames are normally sent on
	Primary Path = iota
	// Secondary is the redundant path
	Secondary
)

func (p Path) String() string {
	switch p {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	default:
		return fmt.Sprintf("Path(%d)", int(p))
	}
}

// RedState is the redundancy mode of a port.
type RedState int

const (
	// RedNone is single path operation
	RedNone RedState = iota
	// RedDouble is primary plus secondary path operation
	RedDouble
)

func (r RedState) String() string {
	if r == RedDouble {
		return "double"
	}
	return "none"
}

// Route records how the reply adopted for an index travelled.
type Route int

const (
	// RouteNone means no reply was adopted
	RouteNone Route = iota
	// RouteDirect is a reply on the path it was sent on, or any reply
	// in single path mode
	RouteDirect
	// RouteLooped is a frame that went all the way round an intact ring
	RouteLooped
	// RouteResent is a request resent on the secondary path because the
	// ring was open
	RouteResent
	// RouteSecondary is a reply that only arrived on the secondary path
	RouteSecondary
)

func (r Route) String() string {
	switch r {
	case RouteNone:
		return "none"
	case RouteDirect:
		return "direct"
	case RouteLooped:
		return "looped"
	case RouteResent:
		return "resent"
	case RouteSecondary:
		return "secondary"
	default:
		return fmt.Sprintf("Route(%d)", int(r))
	}
}

// WKC is the result of a receive: a working counter when non-negative, or
// one of the NoFrame/OtherFrame sentinels.
type WKC int

const (
	// NoFrame means no frame for the requested index arrived
	NoFrame WKC = -1
	// OtherFrame means a frame arrived but it was not for the requested index
	OtherFrame WKC = -2
)

// Valid reports whether w is a working counter rather than a sentinel.
func (w WKC) Valid() bool {
	return w > NoFrame
}

func (w WKC) String() string {
	switch w {
	case NoFrame:
		return "no frame"
	case OtherFrame:
		return "other frame"
	default:
		return fmt.Sprintf("wkc %d", int(w))
	}
}

// pathCtx holds the receive side of one physical path. TX buffers live on
// the Port and are shared by both paths, so index i means the same request
// on either path.
type pathCtx struct {
	link   Link
	name   string
	rxbuf  [][]byte
	rxlen  []int
	status []BufStat
	rxsa   []uint16
	temp   []byte
}

func newPathCtx(size int, name string) *pathCtx {
	pc := &pathCtx{
		name:   name,
		rxbuf:  make([][]byte, size),
		rxlen:  make([]int, size),
		status: make([]BufStat, size),
		rxsa:   make([]uint16, size),
		temp:   make([]byte, bufferSize),
	}
	for i := range pc.rxbuf {
		pc.rxbuf[i] = make([]byte, bufferSize)
	}
	return pc
}

// clear resets every slot to BufEmpty
func (pc *pathCtx) clear() {
	for i := range pc.status {
		pc.status[i] = BufEmpty
		pc.rxlen[i] = 0
		pc.rxsa[i] = 0
	}
}

// usable reports whether the path has a link that can still carry frames
func (pc *pathCtx) usable() bool {
	return pc != nil && pc.link != nil && !pc.link.IsClosed()
}

// store copies the EtherCAT part of a received frame into slot idx
func (pc *pathCtx) store(idx uint8, ecat []byte, tag uint16) {
	pc.rxlen[idx] = copy(pc.rxbuf[idx], ecat)
	pc.rxsa[idx] = tag
}

// received returns the stored EtherCAT part of slot idx
func (pc *pathCtx) received(idx uint8) []byte {
	return pc.rxbuf[idx][:pc.rxlen[idx]]
}
