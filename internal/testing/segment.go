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
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-ecatnic/internal/syncutil"
)

// ErrEndpointClosed is returned by a closed or unplugged Endpoint.
var ErrEndpointClosed = errors.New("endpoint closed")

// Side names the master port an Endpoint is attached to.
type Side int

const (
	// SidePrimary is the master port wired to the first slave
	SidePrimary Side = iota
	// SideSecondary is the master port wired to the last slave
	SideSecondary
)

func (s Side) String() string {
	if s == SideSecondary {
		return "secondary"
	}
	return "primary"
}

// VirtualSegment simulates a line of slaves between the two master ports of
// a redundant EtherCAT ring. Frames are processed synchronously on Send.
//
// With the ring intact a frame sent on one port passes every slave and
// arrives on the other port. When a cable is cut, or the far port is not
// connected, the last slave before the gap closes its open port and the
// frame returns to the port it was sent from, having visited only the
// slaves on that side.
type VirtualSegment struct {
	endpoints [2]*Endpoint
	slaves    []*VirtualSlave
	cut       int
	mu        syncutil.Mutex
}

// NewVirtualSegment creates an intact segment of n slaves with station
// addresses 0x1001, 0x1002, and so on.
func NewVirtualSegment(n int) *VirtualSegment {
	s := &VirtualSegment{cut: -1}
	for i := range n {
		s.slaves = append(s.slaves, &VirtualSlave{Station: uint16(0x1001 + i)})
	}
	return s
}

// Primary returns the endpoint of the primary master port
func (s *VirtualSegment) Primary() *Endpoint {
	return s.endpoint(SidePrimary)
}

// Secondary returns the endpoint of the secondary master port. A segment
// whose secondary endpoint was never requested behaves as if the last
// slave's outgoing port were open.
func (s *VirtualSegment) Secondary() *Endpoint {
	return s.endpoint(SideSecondary)
}

func (s *VirtualSegment) endpoint(side Side) *Endpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.endpoints[side] == nil {
		s.endpoints[side] = &Endpoint{seg: s, side: side}
	}
	return s.endpoints[side]
}

// Cut breaks the cable after the first pos slaves counted from the primary
// port. Cut(0) unplugs the primary port, Cut(len) the secondary port.
func (s *VirtualSegment) Cut(pos int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pos < 0 || pos > len(s.slaves) {
		return fmt.Errorf("cut position %d outside 0-%d", pos, len(s.slaves))
	}
	s.cut = pos
	return nil
}

// Repair restores the ring
func (s *VirtualSegment) Repair() {
	s.mu.Lock()
	s.cut = -1
	s.mu.Unlock()
}

// Slave returns slave i (0 is next to the primary port)
func (s *VirtualSegment) Slave(i int) *VirtualSlave {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slaves[i]
}

// SlaveCount returns the number of slaves
func (s *VirtualSegment) SlaveCount() int {
	return len(s.slaves)
}

// connected reports whether side has an open endpoint; must hold mu
func (s *VirtualSegment) connected(side Side) bool {
	ep := s.endpoints[side]
	return ep != nil && !ep.closed
}

// gap returns where the ring is open, or -1 when it is closed; must hold mu
func (s *VirtualSegment) gap() int {
	if s.cut >= 0 {
		return s.cut
	}
	switch {
	case !s.connected(SidePrimary):
		return 0
	case !s.connected(SideSecondary):
		return len(s.slaves)
	}
	return -1
}

// route carries one frame from side through the slaves it can reach and
// queues it on the endpoint it ends up at; must hold mu
func (s *VirtualSegment) route(from Side, buf []byte) {
	n := len(s.slaves)
	gap := s.gap()

	var visit []*VirtualSlave
	dest := from
	switch {
	case gap < 0:
		visit = s.slaves
		if from == SidePrimary {
			dest = SideSecondary
		} else {
			dest = SidePrimary
			visit = reversed(s.slaves)
		}
	case from == SidePrimary:
		if gap == 0 {
			return
		}
		visit = s.slaves[:gap]
	default:
		if gap == n {
			return
		}
		visit = reversed(s.slaves[gap:])
	}

	for _, slave := range visit {
		slave.process(buf)
	}
	if ep := s.endpoints[dest]; ep != nil && !ep.closed {
		ep.inbox = append(ep.inbox, buf)
	}
}

func reversed(in []*VirtualSlave) []*VirtualSlave {
	out := make([]*VirtualSlave, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}

// Endpoint is one master port of a VirtualSegment. It has the method set of
// a raw-frame link: Send, a non-blocking Recv, IsClosed and Close.
type Endpoint struct {
	seg    *VirtualSegment
	inbox  [][]byte
	sent   int
	side   Side
	closed bool
}

// Send injects a frame into the segment
func (e *Endpoint) Send(buf []byte) (int, error) {
	e.seg.mu.Lock()
	defer e.seg.mu.Unlock()
	if e.closed {
		return 0, ErrEndpointClosed
	}
	e.sent++
	e.seg.route(e.side, append([]byte(nil), buf...))
	return len(buf), nil
}

// Recv pops the oldest frame that reached this port. It returns 0 and no
// error when nothing is waiting.
func (e *Endpoint) Recv(buf []byte) (int, error) {
	e.seg.mu.Lock()
	defer e.seg.mu.Unlock()
	if e.closed {
		return 0, ErrEndpointClosed
	}
	if len(e.inbox) == 0 {
		return 0, nil
	}
	next := e.inbox[0]
	e.inbox = e.inbox[1:]
	return copy(buf, next), nil
}

// IsClosed reports whether the port was closed or unplugged
func (e *Endpoint) IsClosed() bool {
	e.seg.mu.Lock()
	defer e.seg.mu.Unlock()
	return e.closed
}

// Close unplugs the port; frames still queued are lost
func (e *Endpoint) Close() error {
	e.seg.mu.Lock()
	defer e.seg.mu.Unlock()
	e.closed = true
	e.inbox = nil
	return nil
}

// Side returns the master port this endpoint represents
func (e *Endpoint) Side() Side {
	return e.side
}

// Sent returns how many frames were sent from this port
func (e *Endpoint) Sent() int {
	e.seg.mu.Lock()
	defer e.seg.mu.Unlock()
	return e.sent
}

// Pending returns how many frames are waiting to be received
func (e *Endpoint) Pending() int {
	e.seg.mu.Lock()
	defer e.seg.mu.Unlock()
	return len(e.inbox)
}
