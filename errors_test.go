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
	"io"
	"strings"
	"syscall"
	"testing"

	"github.com/ZaparooProject/go-ecatnic/internal/frame"
)

func TestIsRetryable(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "link timeout retryable", err: ErrLinkTimeout, want: true},
		{name: "link read retryable", err: ErrLinkRead, want: true},
		{name: "link write retryable", err: ErrLinkWrite, want: true},
		{name: "no frame retryable", err: ErrNoFrame, want: true},
		{name: "wrapped no frame retryable", err: fmt.Errorf("index 3: %w", ErrNoFrame), want: true},
		{name: "pool exhausted not retryable", err: ErrPoolExhausted, want: false},
		{name: "no redundant port not retryable", err: ErrNoRedundantPort, want: false},
		{name: "invalid parameter not retryable", err: ErrInvalidParameter, want: false},
		{name: "frame too large not retryable", err: ErrFrameTooLarge, want: false},
		{
			name: "string copy of retryable error",
			err:  errors.New("outer: " + ErrLinkTimeout.Error()),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := IsRetryable(tt.err)
			if got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "link closed is fatal", err: ErrLinkClosed, want: true},
		{name: "EOF is fatal", err: io.EOF, want: true},
		{name: "closed pipe is fatal", err: io.ErrClosedPipe, want: true},
		{name: "link timeout is not fatal", err: ErrLinkTimeout, want: false},
		{name: "no frame is not fatal", err: ErrNoFrame, want: false},
		{name: "random error is not fatal", err: errors.New("random error"), want: false},
		{
			name: "closed link transport error is not fatal",
			err:  NewLinkClosedError("OutFrame", "eth0"),
			want: false,
		},
		{
			name: "frame too large transport error is fatal",
			err:  NewFrameTooLargeError("SetTxFrame", "eth0"),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := IsFatal(tt.err)
			if got != tt.want {
				t.Errorf("IsFatal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsFatal_SyscallErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "EIO is fatal", err: syscall.EIO, want: true},
		{name: "ENXIO is fatal", err: syscall.ENXIO, want: true},
		{name: "ENODEV is fatal", err: syscall.ENODEV, want: true},
		{name: "ENETDOWN is fatal", err: syscall.ENETDOWN, want: true},
		{name: "wrapped EIO is fatal", err: fmt.Errorf("sendto: %w", syscall.EIO), want: true},
		{name: "EAGAIN is not fatal", err: syscall.EAGAIN, want: false},
		{name: "EINTR is not fatal", err: syscall.EINTR, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := IsFatal(tt.err)
			if got != tt.want {
				t.Errorf("IsFatal(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestNewLinkWriteError(t *testing.T) {
	t.Parallel()

	cause := syscall.ENOBUFS
	err := NewLinkWriteError("OutFrame", "eth0", cause)

	if !errors.Is(err, ErrLinkWrite) {
		t.Error("expected ErrLinkWrite in chain")
	}
	if !errors.Is(err, syscall.ENOBUFS) {
		t.Error("expected cause in chain")
	}
	if !IsRetryable(err) {
		t.Error("write errors should be retryable")
	}
	if got := err.Error(); !strings.HasPrefix(got, "OutFrame eth0: ") {
		t.Errorf("unexpected message %q", got)
	}
}

func TestTransportError_NoPort(t *testing.T) {
	t.Parallel()

	err := NewTransportError("Recv", "", ErrLinkRead, ErrorTypeTimeout)
	if err.Error() != "Recv: link read failed" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !err.Retryable {
		t.Error("timeout errors should be retryable")
	}
}

func TestTraceBuffer_Eviction(t *testing.T) {
	t.Parallel()

	tb := NewTraceBuffer("eth0", 2)
	tb.RecordTX(Primary, []byte{1}, "first")
	tb.RecordRX(Secondary, []byte{2}, "second")
	tb.RecordTimeout(Primary, "index 4")

	entries := tb.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Note != "second" || entries[0].Path != Secondary {
		t.Errorf("oldest entry should be evicted, got %+v", entries[0])
	}
	if entries[1].Note != "TIMEOUT: index 4" {
		t.Errorf("unexpected note %q", entries[1].Note)
	}

	tb.Clear()
	if len(tb.Entries()) != 0 {
		t.Error("Clear should drop all entries")
	}
}

func TestTraceBuffer_WrapError(t *testing.T) {
	t.Parallel()

	buf := make([]byte, frame.MinFrameSize)
	if _, err := frame.SetupDatagram(buf, frame.CmdBRD, 5, 0, 0, make([]byte, 2)); err != nil {
		t.Fatal(err)
	}

	tb := NewTraceBuffer("eth0", 8)
	tb.RecordTX(Primary, buf, "")

	if tb.WrapError(nil) != nil {
		t.Error("WrapError(nil) should be nil")
	}

	err := tb.WrapError(fmt.Errorf("%w: index 5", ErrNoFrame))
	if !errors.Is(err, ErrNoFrame) {
		t.Error("expected ErrNoFrame in chain")
	}
	if !HasTrace(err) {
		t.Fatal("expected trace")
	}

	te := GetTrace(err)
	if te.Port != "eth0" || len(te.Trace) != 1 {
		t.Fatalf("unexpected trace %+v", te)
	}
	formatted := te.FormatTrace()
	if !strings.Contains(formatted, "primary > ") {
		t.Errorf("formatted trace missing direction: %s", formatted)
	}
	if !strings.Contains(formatted, "(60 bytes total)") {
		t.Errorf("formatted trace should be truncated: %s", formatted)
	}
	if s := te.Trace[0].String(); !strings.Contains(s, "primary TX") {
		t.Errorf("entry string missing path and direction: %s", s)
	}
}

func TestGetTrace_Absent(t *testing.T) {
	t.Parallel()

	if HasTrace(ErrNoFrame) {
		t.Error("plain error should not carry a trace")
	}
	if GetTrace(ErrNoFrame) != nil {
		t.Error("expected nil trace")
	}
	empty := &TraceableError{Err: ErrNoFrame, Port: "eth0"}
	if empty.FormatTrace() != "[eth0] (no trace data)" {
		t.Errorf("unexpected %q", empty.FormatTrace())
	}
}

func TestFormatHexBytes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		want string
		data []byte
	}{
		{name: "empty", data: nil, want: "(empty)"},
		{name: "short", data: []byte{0x88, 0xA4, 0x01}, want: "88 A4 01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := formatHexBytes(tt.data); got != tt.want {
				t.Errorf("formatHexBytes() = %q, want %q", got, tt.want)
			}
		})
	}
}
