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
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/ZaparooProject/go-ecatnic/internal/frame"
)

// Error categories for link handling and retry logic
var (
	// Link errors - the path is currently unusable, potentially retryable
	ErrLinkClosed  = errors.New("link is closed")
	ErrLinkWrite   = errors.New("link write failed")
	ErrLinkRead    = errors.New("link read failed")
	ErrLinkTimeout = errors.New("link timeout")

	// Round-trip errors
	ErrNoFrame = errors.New("no frame received before deadline")

	// Port errors - not retryable
	ErrNoRedundantPort  = errors.New("secondary path not available on this port")
	ErrPortNotSetup     = errors.New("port path not set up")
	ErrPoolExhausted    = errors.New("no free frame index")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrFrameTooLarge    = errors.New("frame too large")
	ErrInvalidFrame     = errors.New("invalid frame")
)

// ErrorType represents the category of error for retry logic
type ErrorType int

const (
	// ErrorTypeTransient indicates a potentially retryable error
	ErrorTypeTransient ErrorType = iota
	// ErrorTypePermanent indicates a non-retryable error
	ErrorTypePermanent
	// ErrorTypeTimeout indicates a timeout error (special handling)
	ErrorTypeTimeout
)

// TransportError wraps link-level errors with additional context
type TransportError struct {
	Err       error     // Underlying error
	Op        string    // Operation that failed
	Port      string    // Link or interface identifier
	Type      ErrorType // Error category
	Retryable bool      // Whether the error is retryable
}

func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is potentially retryable
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}

	switch {
	case errors.Is(err, ErrLinkTimeout),
		errors.Is(err, ErrLinkRead),
		errors.Is(err, ErrLinkWrite),
		errors.Is(err, ErrNoFrame):
		return true
	default:
		return false
	}
}

// IsFatal returns true if the error indicates the link is gone and the path
// should not be driven any further. A closed path is not fatal to the port:
// the redundant path may still carry traffic.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Type == ErrorTypePermanent
	}

	if isDeviceGoneError(err) {
		return true
	}

	switch {
	case errors.Is(err, ErrLinkClosed),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrClosedPipe):
		return true
	default:
		return false
	}
}

// Windows error codes for adapter disconnection detection.
// These are defined here because they're not available on non-Windows platforms.
const (
	errGenFailure   syscall.Errno = 31  // ERROR_GEN_FAILURE
	errNoSuchDevice syscall.Errno = 433 // ERROR_NO_SUCH_DEVICE
)

// isDeviceGoneError checks for OS-level errors indicating the interface or
// serial adapter disappeared during I/O.
func isDeviceGoneError(err error) bool {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return false
	}

	//nolint:exhaustive // Only checking specific device-gone errors, not all errno values
	switch errno {
	case syscall.EIO, syscall.ENXIO, syscall.ENODEV, syscall.ENETDOWN:
		return true
	}

	if runtime.GOOS == "windows" {
		//nolint:exhaustive // Only checking specific device-gone errors, not all errno values
		switch errno {
		case errGenFailure, errNoSuchDevice:
			return true
		}
	}

	return false
}

// NewTransportError creates a standard transport error with consistent formatting
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType == ErrorTypeTransient || errType == ErrorTypeTimeout,
	}
}

// NewLinkWriteError wraps a failed send (transient)
func NewLinkWriteError(op, port string, cause error) *TransportError {
	return NewTransportError(op, port, fmt.Errorf("%w: %w", ErrLinkWrite, cause), ErrorTypeTransient)
}

// NewLinkClosedError reports a send on a closed path (transient: the path may come back)
func NewLinkClosedError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrLinkClosed, ErrorTypeTransient)
}

// NewFrameTooLargeError reports a frame that cannot fit a buffer (permanent)
func NewFrameTooLargeError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrFrameTooLarge, ErrorTypePermanent)
}

// =============================================================================
// Wire Trace Logging
// =============================================================================
// TraceableError embeds frame-level trace data in errors, allowing consumer
// applications to see what went over the wire when a round trip failed.

// TraceDirection indicates the direction of wire data
type TraceDirection string

const (
	// TraceTX indicates a frame handed to a link
	TraceTX TraceDirection = "TX"
	// TraceRX indicates a frame read from a link
	TraceRX TraceDirection = "RX"
)

// TraceEntry represents a single frame seen on a path
type TraceEntry struct {
	Timestamp time.Time
	Direction TraceDirection
	Note      string
	Data      []byte
	Path      Path
}

// String formats a trace entry for display
func (e TraceEntry) String() string {
	ts := e.Timestamp.Format("15:04:05.000000")
	if e.Note != "" {
		return fmt.Sprintf("[%s] %s %s: %s (%s)", ts, e.Path, e.Direction, frame.Summary(e.Data), e.Note)
	}
	return fmt.Sprintf("[%s] %s %s: %s", ts, e.Path, e.Direction, frame.Summary(e.Data))
}

// TraceableError wraps an error with frame trace data for debugging.
// Consumer applications can use errors.As() to extract trace information:
//
//	var te *ecatnic.TraceableError
//	if errors.As(err, &te) {
//	    log.Printf("Wire trace:\n%s", te.FormatTrace())
//	}
type TraceableError struct {
	Err   error
	Port  string
	Trace []TraceEntry
}

// Error implements the error interface
func (e *TraceableError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/As compatibility
func (e *TraceableError) Unwrap() error {
	return e.Err
}

// FormatTrace returns a human-readable formatted trace log
func (e *TraceableError) FormatTrace() string {
	if len(e.Trace) == 0 {
		return fmt.Sprintf("[%s] (no trace data)", e.Port)
	}

	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "[%s] Wire trace (%d entries):\n", e.Port, len(e.Trace))

	for _, entry := range e.Trace {
		direction := ">"
		if entry.Direction == TraceRX {
			direction = "<"
		}
		_, _ = fmt.Fprintf(&sb, "  %s %s %s", entry.Path, direction, formatHexBytes(entry.Data))
		if entry.Note != "" {
			_, _ = fmt.Fprintf(&sb, " (%s)", entry.Note)
		}
		_ = sb.WriteByte('\n')
	}

	return sb.String()
}

// formatHexBytes formats a byte slice as space-separated hex values
func formatHexBytes(data []byte) string {
	if len(data) == 0 {
		return "(empty)"
	}
	n := min(len(data), 32)
	parts := make([]string, n)
	for i := range n {
		parts[i] = fmt.Sprintf("%02X", data[i])
	}
	if len(data) > n {
		return strings.Join(parts, " ") + fmt.Sprintf(" ... (%d bytes total)", len(data))
	}
	return strings.Join(parts, " ")
}

// TraceBuffer collects the most recent frames seen by a port.
// It uses a fixed-size circular buffer to limit memory usage.
type TraceBuffer struct {
	port    string
	entries []TraceEntry
	maxSize int
}

// NewTraceBuffer creates a new trace buffer with the specified capacity
func NewTraceBuffer(port string, maxSize int) *TraceBuffer {
	if maxSize <= 0 {
		maxSize = 16
	}
	return &TraceBuffer{
		entries: make([]TraceEntry, 0, maxSize),
		maxSize: maxSize,
		port:    port,
	}
}

// RecordTX records a frame handed to a link
func (tb *TraceBuffer) RecordTX(path Path, data []byte, note string) {
	tb.record(TraceTX, path, data, note)
}

// RecordRX records a frame read from a link
func (tb *TraceBuffer) RecordRX(path Path, data []byte, note string) {
	tb.record(TraceRX, path, data, note)
}

// RecordTimeout records an expired wait
func (tb *TraceBuffer) RecordTimeout(path Path, note string) {
	tb.record(TraceRX, path, nil, "TIMEOUT: "+note)
}

// record adds an entry to the buffer, evicting oldest if full
func (tb *TraceBuffer) record(dir TraceDirection, path Path, data []byte, note string) {
	entry := TraceEntry{
		Direction: dir,
		Path:      path,
		Data:      append([]byte(nil), data...),
		Timestamp: time.Now(),
		Note:      note,
	}

	if len(tb.entries) >= tb.maxSize {
		copy(tb.entries, tb.entries[1:])
		tb.entries[len(tb.entries)-1] = entry
	} else {
		tb.entries = append(tb.entries, entry)
	}
}

// Entries returns a copy of the recorded entries, oldest first
func (tb *TraceBuffer) Entries() []TraceEntry {
	out := make([]TraceEntry, len(tb.entries))
	copy(out, tb.entries)
	return out
}

// WrapError wraps an error with the collected trace data.
// Returns nil if err is nil.
func (tb *TraceBuffer) WrapError(err error) error {
	if err == nil {
		return nil
	}
	return &TraceableError{
		Err:   err,
		Trace: tb.Entries(),
		Port:  tb.port,
	}
}

// Clear resets the trace buffer
func (tb *TraceBuffer) Clear() {
	tb.entries = tb.entries[:0]
}

// HasTrace checks if an error contains trace data
func HasTrace(err error) bool {
	var te *TraceableError
	return errors.As(err, &te)
}

// GetTrace extracts trace data from an error, returning nil if not present
func GetTrace(err error) *TraceableError {
	var te *TraceableError
	if errors.As(err, &te) {
		return te
	}
	return nil
}
