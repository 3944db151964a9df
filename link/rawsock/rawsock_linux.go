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

//go:build linux

package rawsock

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/ZaparooProject/go-ecatnic"
	"github.com/ZaparooProject/go-ecatnic/internal/frame"
	"github.com/ZaparooProject/go-ecatnic/internal/syncutil"
)

// Link is a non-blocking AF_PACKET endpoint on one interface.
type Link struct {
	name    string
	fd      int
	ifindex int
	mu      syncutil.Mutex
	closed  bool
}

// New opens and binds a raw socket on the named interface.
func New(name string) (*Link, error) {
	if name == "" || len(name) >= unix.IFNAMSIZ {
		return nil, fmt.Errorf("%w: interface name %q", ecatnic.ErrInvalidParameter, name)
	}

	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("failed to look up interface %s: %w", name, err)
	}

	proto := int(htons(uint16(frame.EtherTypeECAT)))
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, proto)
	if err != nil {
		return nil, fmt.Errorf("failed to open raw socket on %s: %w", name, err)
	}

	if err := configure(fd, iface.Index, proto); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("failed to configure raw socket on %s: %w", name, err)
	}

	ecatnic.Debugf("rawsock: opened %s (ifindex %d)", name, iface.Index)
	return &Link{name: name, fd: fd, ifindex: iface.Index}, nil
}

// configure binds fd to the interface and ethertype and enables
// promiscuous reception.
func configure(fd, ifindex, proto int) error {
	// Frames we send must not come back through our own socket. Kernels
	// before 4.20 lack the option; the wait engine drops them as stale anyway.
	if err := unix.SetsockoptInt(fd, unix.SOL_PACKET, unix.PACKET_IGNORE_OUTGOING, 1); err != nil {
		ecatnic.Debugf("rawsock: PACKET_IGNORE_OUTGOING unavailable: %v", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_DONTROUTE, 1); err != nil {
		return fmt.Errorf("SO_DONTROUTE: %w", err)
	}

	mreq := &unix.PacketMreq{
		Ifindex: int32(ifindex), //nolint:gosec // kernel interface indexes fit int32
		Type:    unix.PACKET_MR_PROMISC,
	}
	if err := unix.SetsockoptPacketMreq(fd, unix.SOL_PACKET, unix.PACKET_ADD_MEMBERSHIP, mreq); err != nil {
		return fmt.Errorf("promiscuous membership: %w", err)
	}

	sa := &unix.SockaddrLinklayer{
		Protocol: uint16(proto), //nolint:gosec // htons result
		Ifindex:  ifindex,
	}
	if err := unix.Bind(fd, sa); err != nil {
		return fmt.Errorf("bind: %w", err)
	}
	return nil
}

// Send writes one complete Ethernet frame.
func (l *Link) Send(f []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return 0, ecatnic.NewLinkClosedError("send", l.name)
	}
	if len(f) > frame.MaxFrameSize {
		return 0, ecatnic.NewFrameTooLargeError("send", l.name)
	}

	n, err := unix.Write(l.fd, f)
	if err != nil {
		return 0, classify("send", l.name, err)
	}
	return n, nil
}

// Recv reads one pending frame without blocking.
func (l *Link) Recv(buf []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return 0, ecatnic.NewLinkClosedError("recv", l.name)
	}

	n, _, err := unix.Recvfrom(l.fd, buf, unix.MSG_DONTWAIT)
	if err != nil {
		if isNoData(err) {
			return 0, nil
		}
		return 0, classify("recv", l.name, err)
	}
	return n, nil
}

// IsClosed reports whether Close has been called.
func (l *Link) IsClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Close releases the socket. Further calls are no-ops.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	if err := unix.Close(l.fd); err != nil {
		return fmt.Errorf("failed to close raw socket on %s: %w", l.name, err)
	}
	return nil
}

// Type returns the link type
func (*Link) Type() ecatnic.LinkType {
	return ecatnic.LinkRawSocket
}

// Name returns the interface name
func (l *Link) Name() string {
	return l.name
}

// isNoData reports errors that only mean the receive queue is empty.
func isNoData(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINTR)
}

// classify wraps a socket error. A vanished interface is permanent; a full
// send queue or transient read failure may succeed on the next attempt.
func classify(op, name string, err error) *ecatnic.TransportError {
	switch {
	case errors.Is(err, unix.ENETDOWN), errors.Is(err, unix.ENXIO), errors.Is(err, unix.ENODEV):
		return ecatnic.NewTransportError(op, name, err, ecatnic.ErrorTypePermanent)
	case op == "send":
		return ecatnic.NewLinkWriteError(op, name, err)
	default:
		return ecatnic.NewTransportError(op, name, fmt.Errorf("%w: %w", ecatnic.ErrLinkRead, err),
			ecatnic.ErrorTypeTransient)
	}
}

// htons converts a host-order value to network order as the kernel expects
// for the protocol field.
func htons(v uint16) uint16 {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return binary.NativeEndian.Uint16(b[:])
}

var _ ecatnic.Link = (*Link)(nil)
