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

// Package uart implements ecatnic.Link over a serial tunnel to a bridge
// microcontroller that owns the Ethernet MAC (for example a W5500 in MACRAW
// mode). Each frame travels as a 2-byte big-endian length followed by the
// raw Ethernet frame, in both directions.
package uart

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"syscall"
	"time"

	"go.bug.st/serial"

	"github.com/ZaparooProject/go-ecatnic"
	"github.com/ZaparooProject/go-ecatnic/internal/frame"
	"github.com/ZaparooProject/go-ecatnic/internal/syncutil"
)

const (
	// DefaultBaudRate is used for real UART bridges. USB CDC bridges ignore it.
	DefaultBaudRate = 921600

	// readPollTimeout bounds how long Recv may sit in the driver when no
	// byte is pending.
	readPollTimeout = time.Millisecond

	lengthPrefixSize = 2
	minFrameLen      = frame.EthHeaderSize
)

// Link tunnels frames over a byte stream.
type Link struct {
	stream io.ReadWriter
	name   string
	rx     []byte
	chunk  []byte
	mu     syncutil.Mutex
	closed bool
}

// New opens the serial device at path.
func New(path string) (*Link, error) {
	port, err := serial.Open(path, &serial.Mode{
		BaudRate: DefaultBaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial bridge %s: %w", path, err)
	}

	if err := port.SetReadTimeout(readPollTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set serial read timeout: %w", err)
	}
	// Drop anything the bridge queued before we attached.
	_ = port.ResetInputBuffer()

	ecatnic.Debugf("uart: opened %s at %d baud", path, DefaultBaudRate)
	return NewStream(path, port), nil
}

// Open has the ecatnic.LinkFactory signature.
func Open(path string) (ecatnic.Link, error) {
	link, err := New(path)
	if err != nil {
		return nil, err
	}
	return link, nil
}

// NewStream runs the framing over an already open stream. A Read on stream
// that finds no data must return 0 and a nil error. If stream implements
// io.Closer, Close closes it.
func NewStream(name string, stream io.ReadWriter) *Link {
	return &Link{
		stream: stream,
		name:   name,
		rx:     make([]byte, 0, 2*frame.BufferSize),
		chunk:  make([]byte, frame.BufferSize),
	}
}

// Send writes the length prefix and the frame.
func (l *Link) Send(f []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return 0, ecatnic.NewLinkClosedError("send", l.name)
	}
	if len(f) > frame.MaxFrameSize {
		return 0, ecatnic.NewFrameTooLargeError("send", l.name)
	}

	out := make([]byte, lengthPrefixSize+len(f))
	binary.BigEndian.PutUint16(out, uint16(len(f))) //nolint:gosec // bounded by MaxFrameSize
	copy(out[lengthPrefixSize:], f)

	for written := 0; written < len(out); {
		n, err := l.stream.Write(out[written:])
		if err != nil {
			return 0, l.classify("send", err)
		}
		if n == 0 {
			return 0, ecatnic.NewLinkWriteError("send", l.name, io.ErrShortWrite)
		}
		written += n
	}
	return len(f), nil
}

// Recv returns one complete frame if the stream holds one. Partial frames
// stay buffered until the rest arrives.
func (l *Link) Recv(buf []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return 0, ecatnic.NewLinkClosedError("recv", l.name)
	}

	if n, ok := l.extract(buf); ok {
		return n, nil
	}

	n, err := l.stream.Read(l.chunk)
	if n > 0 {
		l.rx = append(l.rx, l.chunk[:n]...)
	}
	if err != nil && !errors.Is(err, syscall.EINTR) {
		return 0, l.classify("recv", err)
	}

	n, _ = l.extract(buf)
	return n, nil
}

// extract pops the first complete frame from the receive buffer. Length
// words outside the Ethernet range mean the stream lost sync; one byte is
// dropped and the scan continues.
func (l *Link) extract(buf []byte) (int, bool) {
	for len(l.rx) >= lengthPrefixSize {
		size := int(binary.BigEndian.Uint16(l.rx))
		if size < minFrameLen || size > frame.MaxFrameSize {
			ecatnic.Debugf("uart: %s resync, bad length %d", l.name, size)
			l.rx = l.rx[1:]
			continue
		}
		if len(l.rx) < lengthPrefixSize+size {
			return 0, false
		}

		n := copy(buf, l.rx[lengthPrefixSize:lengthPrefixSize+size])
		l.rx = l.rx[lengthPrefixSize+size:]
		if len(l.rx) == 0 {
			l.rx = l.rx[:0:cap(l.rx)]
		}
		return n, true
	}
	return 0, false
}

// IsClosed reports whether Close has been called.
func (l *Link) IsClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Close closes the underlying stream. Further calls are no-ops.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	l.rx = l.rx[:0]

	if closer, ok := l.stream.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("failed to close serial bridge %s: %w", l.name, err)
		}
	}
	return nil
}

// Type returns the link type
func (*Link) Type() ecatnic.LinkType {
	return ecatnic.LinkSerial
}

// Buffered returns the number of received bytes not yet delivered.
func (l *Link) Buffered() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rx)
}

// classify wraps a stream error. End of stream or a vanished adapter is
// permanent; anything else may clear up on the next attempt.
func (l *Link) classify(op string, err error) *ecatnic.TransportError {
	var portErr *serial.PortError
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrClosedPipe):
		return ecatnic.NewTransportError(op, l.name, fmt.Errorf("%w: %w", ecatnic.ErrLinkClosed, err),
			ecatnic.ErrorTypePermanent)
	case errors.As(err, &portErr) && portErr.Code() == serial.PortClosed:
		return ecatnic.NewTransportError(op, l.name, fmt.Errorf("%w: %w", ecatnic.ErrLinkClosed, err),
			ecatnic.ErrorTypePermanent)
	case ecatnic.IsFatal(err):
		return ecatnic.NewTransportError(op, l.name, err, ecatnic.ErrorTypePermanent)
	case op == "send":
		return ecatnic.NewLinkWriteError(op, l.name, err)
	default:
		return ecatnic.NewTransportError(op, l.name, fmt.Errorf("%w: %w", ecatnic.ErrLinkRead, err),
			ecatnic.ErrorTypeTransient)
	}
}

var _ ecatnic.Link = (*Link)(nil)
