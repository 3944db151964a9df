// go-ecatnic
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-ecatnic.
//
// go-ecatnic is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-ecatnic is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-ecatnic; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package ecatnic

import "github.com/ZaparooProject/go-ecatnic/internal/syncutil"

// Link defines the raw-frame endpoint for one physical path. It can be
// implemented by a raw socket, a serial bridge or an in-memory segment.
type Link interface {
	// Send transmits one complete Ethernet frame and returns the number of
	// bytes handed to the medium.
	Send(frame []byte) (int, error)

	// Recv copies one pending frame into buf without blocking. It returns
	// 0 and a nil error when no frame is waiting.
	Recv(buf []byte) (int, error)

	// IsClosed reports whether the endpoint is no longer usable
	IsClosed() bool

	// Close releases the endpoint
	Close() error

	// Type returns the link type
	Type() LinkType
}

// LinkType represents the kind of link behind a path
type LinkType string

const (
	// LinkRawSocket represents a Linux AF_PACKET socket.
	LinkRawSocket LinkType = "rawsock"
	// LinkSerial represents a length-prefixed serial tunnel to a bridge MCU.
	LinkSerial LinkType = "serial"
	// LinkMock represents a mock link for testing
	LinkMock LinkType = "mock"
)

// Responder produces the frames a MockLink should queue for reception after
// a frame has been sent.
type Responder func(sent []byte) [][]byte

// MockLink provides a scripted implementation of Link for testing
type MockLink struct {
	sendErr    error
	recvErr    error
	responder  Responder
	inbox      [][]byte
	sent       [][]byte
	closeCount int
	mu         syncutil.RWMutex
	closed     bool
}

// NewMockLink creates a new open mock link
func NewMockLink() *MockLink {
	return &MockLink{}
}

// Send implements Link
func (m *MockLink) Send(frame []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrLinkClosed
	}
	if m.sendErr != nil {
		return 0, m.sendErr
	}

	cp := append([]byte(nil), frame...)
	m.sent = append(m.sent, cp)
	if m.responder != nil {
		for _, reply := range m.responder(append([]byte(nil), frame...)) {
			m.inbox = append(m.inbox, reply)
		}
	}
	return len(frame), nil
}

// Recv implements Link
func (m *MockLink) Recv(buf []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrLinkClosed
	}
	if m.recvErr != nil {
		return 0, m.recvErr
	}
	if len(m.inbox) == 0 {
		return 0, nil
	}

	next := m.inbox[0]
	m.inbox = m.inbox[1:]
	if len(next) > len(buf) {
		// oversized frames are dropped like a NIC would
		return 0, nil
	}
	return copy(buf, next), nil
}

// IsClosed implements Link
func (m *MockLink) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// Close implements Link
func (m *MockLink) Close() error {
	m.mu.Lock()
	m.closed = true
	m.closeCount++
	m.mu.Unlock()
	return nil
}

// Type implements Link
func (*MockLink) Type() LinkType {
	return LinkMock
}

// Test helper methods

// Inject queues a frame for the next Recv calls
func (m *MockLink) Inject(frames ...[]byte) {
	m.mu.Lock()
	for _, f := range frames {
		m.inbox = append(m.inbox, append([]byte(nil), f...))
	}
	m.mu.Unlock()
}

// SetResponder installs a function that answers every sent frame
func (m *MockLink) SetResponder(r Responder) {
	m.mu.Lock()
	m.responder = r
	m.mu.Unlock()
}

// SetSendError makes every Send fail with err (nil clears it)
func (m *MockLink) SetSendError(err error) {
	m.mu.Lock()
	m.sendErr = err
	m.mu.Unlock()
}

// SetRecvError makes every Recv fail with err (nil clears it)
func (m *MockLink) SetRecvError(err error) {
	m.mu.Lock()
	m.recvErr = err
	m.mu.Unlock()
}

// Sent returns copies of all frames sent so far
func (m *MockLink) Sent() [][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([][]byte, len(m.sent))
	for i, f := range m.sent {
		out[i] = append([]byte(nil), f...)
	}
	return out
}

// SendCount returns how many frames were sent
func (m *MockLink) SendCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sent)
}

// Pending returns how many injected frames have not been received yet
func (m *MockLink) Pending() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.inbox)
}

// CloseCount returns how many times Close was called
func (m *MockLink) CloseCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closeCount
}

// Reset reopens the link and clears all queues and injected errors
func (m *MockLink) Reset() {
	m.mu.Lock()
	m.inbox = nil
	m.sent = nil
	m.sendErr = nil
	m.recvErr = nil
	m.closed = false
	m.mu.Unlock()
}

var _ Link = (*MockLink)(nil)
