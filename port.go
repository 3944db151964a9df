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
	"time"

	"github.com/ZaparooProject/go-ecatnic/internal/frame"
)

const bufferSize = frame.BufferSize

// PortConfig contains configuration options for a Port
type PortConfig struct {
	// Clock is the time source for all deadlines
	Clock Clock
	// Name identifies the port in logs and traces
	Name string
	// PoolSize is the number of frame slots (and correlation indices)
	PoolSize int
	// RetryTimeout is the per-attempt receive quota used by SRConfirm and
	// by the redundant resend on the secondary path
	RetryTimeout time.Duration
	// PollInterval is how long to sleep between empty polling passes.
	// Zero yields the processor instead of sleeping.
	PollInterval time.Duration
	// TraceSize enables frame tracing with the given depth when positive
	TraceSize int
	// Redundant reserves the secondary path context
	Redundant bool
}

// DefaultPortConfig returns default port configuration
func DefaultPortConfig() *PortConfig {
	return &PortConfig{
		Clock:        SystemClock{},
		Name:         "ecat0",
		PoolSize:     DefaultPoolSize,
		RetryTimeout: TimeoutRet,
	}
}

// Option configures a Port
type Option func(*PortConfig) error

// WithPoolSize sets the number of frame slots (1-256)
func WithPoolSize(n int) Option {
	return func(c *PortConfig) error {
		if n < 1 || n > MaxPoolSize {
			return fmt.Errorf("%w: pool size %d out of range 1-%d", ErrInvalidParameter, n, MaxPoolSize)
		}
		c.PoolSize = n
		return nil
	}
}

// WithRedundancy reserves the secondary path so Setup(link, Secondary) can succeed
func WithRedundancy() Option {
	return func(c *PortConfig) error {
		c.Redundant = true
		return nil
	}
}

// WithClock sets the time source
func WithClock(clock Clock) Option {
	return func(c *PortConfig) error {
		if clock == nil {
			return fmt.Errorf("%w: nil clock", ErrInvalidParameter)
		}
		c.Clock = clock
		return nil
	}
}

// WithRetryTimeout sets the per-attempt receive quota
func WithRetryTimeout(d time.Duration) Option {
	return func(c *PortConfig) error {
		if d <= 0 {
			return fmt.Errorf("%w: retry timeout %v", ErrInvalidParameter, d)
		}
		c.RetryTimeout = d
		return nil
	}
}

// WithPollInterval sets the sleep between empty polling passes
func WithPollInterval(d time.Duration) Option {
	return func(c *PortConfig) error {
		if d < 0 {
			return fmt.Errorf("%w: poll interval %v", ErrInvalidParameter, d)
		}
		c.PollInterval = d
		return nil
	}
}

// WithTrace records the last n frames seen by the port and attaches them to
// SRConfirmContext errors
func WithTrace(n int) Option {
	return func(c *PortConfig) error {
		c.TraceSize = n
		return nil
	}
}

// WithName sets the port name used in logs and traces
func WithName(name string) Option {
	return func(c *PortConfig) error {
		c.Name = name
		return nil
	}
}

// Port owns the frame pool of one EtherCAT master: the transmit buffers, a
// receive context per path, the index cursor and the redundancy state.
//
// Thread Safety: Port is NOT thread-safe. Exactly one goroutine drives a
// port; the secondary path is only reached through the port's own methods.
// Slot ownership follows the slot status, which is the only synchronization
// between the transmitter, the receiver and the wait engine.
type Port struct {
	config   *PortConfig
	clock    Clock
	trace    *TraceBuffer
	paths    [2]*pathCtx
	txbuf    [][]byte
	txlen    []int
	route    []Route
	txbuf2   []byte
	txlen2   int
	redState RedState
	lastIdx  uint8
	closed   bool
}

// NewPort creates a port with its frame pool. Links are bound with Setup.
func NewPort(opts ...Option) (*Port, error) {
	config := DefaultPortConfig()
	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	p := &Port{
		config: config,
		clock:  config.Clock,
		txbuf:  make([][]byte, config.PoolSize),
		txlen:  make([]int, config.PoolSize),
		route:  make([]Route, config.PoolSize),
		txbuf2: make([]byte, bufferSize),
	}
	for i := range p.txbuf {
		p.txbuf[i] = make([]byte, bufferSize)
	}
	p.paths[Primary] = newPathCtx(config.PoolSize, config.Name)
	if config.Redundant {
		p.paths[Secondary] = newPathCtx(config.PoolSize, config.Name+"-red")
	}
	if config.TraceSize > 0 {
		p.trace = NewTraceBuffer(config.Name, config.TraceSize)
	}
	return p, nil
}

// Setup binds link to a path. Binding the primary path resets the index
// cursor, clears the slot table, leaves redundancy off and stamps the
// Ethernet header onto every transmit buffer. Binding the secondary path
// requires a port created WithRedundancy and switches the port to RedDouble.
// On error the link is not bound and stays with the caller.
func (p *Port) Setup(link Link, path Path) error {
	if link == nil {
		return fmt.Errorf("%w: nil link", ErrInvalidParameter)
	}

	switch path {
	case Primary:
		pc := p.paths[Primary]
		pc.link = link
		pc.clear()
		p.lastIdx = 0
		p.redState = RedNone
		for i := range p.txbuf {
			frame.SetupHeader(p.txbuf[i])
		}
		frame.SetupHeader(p.txbuf2)
		Debugf("%s: primary path bound to %s link", pc.name, link.Type())
	case Secondary:
		pc := p.paths[Secondary]
		if pc == nil {
			return ErrNoRedundantPort
		}
		if err := p.setupDummy(); err != nil {
			return err
		}
		pc.link = link
		pc.clear()
		p.redState = RedDouble
		Debugf("%s: secondary path bound to %s link, redundancy on", pc.name, link.Type())
	default:
		return fmt.Errorf("%w: path %v", ErrInvalidParameter, path)
	}

	p.closed = false
	return nil
}

// setupDummy builds the frame sent on the secondary path alongside every
// primary transmit: a two byte broadcast read tagged with the secondary
// source address. Its index is filled in per transmit.
func (p *Port) setupDummy() error {
	n, err := frame.SetupDatagram(p.txbuf2, frame.CmdBRD, 0, 0, 0, make([]byte, 2))
	if err != nil {
		return fmt.Errorf("failed to build redundancy frame: %w", err)
	}
	frame.SetSourceTag(p.txbuf2, frame.TagSecondary)
	p.txlen2 = n
	return nil
}

// Close releases both links. It is safe to call more than once.
func (p *Port) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	for _, pc := range p.paths {
		if pc == nil || pc.link == nil {
			continue
		}
		if err := pc.link.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close %s link: %w", pc.name, err))
		}
	}
	return errors.Join(errs...)
}

// Name returns the port name
func (p *Port) Name() string {
	return p.config.Name
}

// PoolSize returns the number of frame slots
func (p *Port) PoolSize() int {
	return len(p.txbuf)
}

// RedState returns the redundancy mode
func (p *Port) RedState() RedState {
	return p.redState
}

// Link returns the link bound to path, or nil
func (p *Port) Link(path Path) Link {
	pc := p.pathCtx(path)
	if pc == nil {
		return nil
	}
	return pc.link
}

// Trace returns the recorded frames, or nil when tracing is off
func (p *Port) Trace() []TraceEntry {
	if p.trace == nil {
		return nil
	}
	return p.trace.Entries()
}

// pathCtx returns the context for path, or nil when it does not exist
func (p *Port) pathCtx(path Path) *pathCtx {
	if path != Primary && path != Secondary {
		return nil
	}
	return p.paths[path]
}

func (p *Port) validIndex(idx uint8) bool {
	return int(idx) < len(p.txbuf)
}

// GetIndex allocates a frame index. The scan starts just after the last
// allocated index and wraps once around the pool looking for an empty slot.
// When every slot is busy the last scanned index is returned anyway; use
// TryGetIndex to have exhaustion reported.
func (p *Port) GetIndex() uint8 {
	idx, ok := p.scanIndex()
	if !ok {
		Debugf("%s: frame pool exhausted, reusing busy index %d", p.config.Name, idx)
	}
	p.allocate(idx)
	return idx
}

// TryGetIndex allocates a frame index like GetIndex but returns
// ErrPoolExhausted, leaving all state untouched, when no slot is free.
func (p *Port) TryGetIndex() (uint8, error) {
	idx, ok := p.scanIndex()
	if !ok {
		return 0, ErrPoolExhausted
	}
	p.allocate(idx)
	return idx, nil
}

// scanIndex finds the next empty slot after the cursor
func (p *Port) scanIndex() (uint8, bool) {
	n := len(p.txbuf)
	status := p.paths[Primary].status

	idx := (int(p.lastIdx) + 1) % n
	for range n {
		if status[idx] == BufEmpty {
			return uint8(idx), true
		}
		idx = (idx + 1) % n
	}
	return uint8(idx), false
}

func (p *Port) allocate(idx uint8) {
	p.paths[Primary].status[idx] = BufAlloc
	if p.redState != RedNone {
		p.paths[Secondary].status[idx] = BufAlloc
	}
	p.lastIdx = idx
}

// SetBufStat sets the status of slot idx, on both paths when redundant
func (p *Port) SetBufStat(idx uint8, stat BufStat) {
	if !p.validIndex(idx) {
		Debugf("%s: SetBufStat ignored for out of range index %d", p.config.Name, idx)
		return
	}
	p.paths[Primary].status[idx] = stat
	if p.redState != RedNone {
		p.paths[Secondary].status[idx] = stat
	}
}

// Release returns slot idx to the pool
func (p *Port) Release(idx uint8) {
	p.SetBufStat(idx, BufEmpty)
}

// BufStatus returns the status of slot idx on path
func (p *Port) BufStatus(path Path, idx uint8) BufStat {
	pc := p.pathCtx(path)
	if pc == nil || !p.validIndex(idx) {
		return BufEmpty
	}
	return pc.status[idx]
}

// SourceTag returns the source tag recorded with the last reply stored for
// slot idx on path
func (p *Port) SourceTag(path Path, idx uint8) uint16 {
	pc := p.pathCtx(path)
	if pc == nil || !p.validIndex(idx) {
		return 0
	}
	return pc.rxsa[idx]
}

// Route returns how the last reply waited for on slot idx reached the port.
// Unlike SourceTag it is not affected by adopting the secondary copy.
func (p *Port) Route(idx uint8) Route {
	if !p.validIndex(idx) {
		return RouteNone
	}
	return p.route[idx]
}

// SetTxFrame copies a complete Ethernet frame into the transmit buffer of
// slot idx. The correlation index inside the frame is the caller's concern.
func (p *Port) SetTxFrame(idx uint8, f []byte) error {
	if !p.validIndex(idx) {
		return fmt.Errorf("%w: index %d", ErrInvalidParameter, idx)
	}
	if len(f) > bufferSize {
		return NewFrameTooLargeError("SetTxFrame", p.config.Name)
	}
	if len(f) < frame.EthHeaderSize {
		return fmt.Errorf("%w: %d byte frame", ErrInvalidFrame, len(f))
	}
	p.txlen[idx] = copy(p.txbuf[idx], f)
	return nil
}

// SetDatagram builds a single-datagram frame in the transmit buffer of slot
// idx, carrying idx as its correlation index, and returns the frame length.
func (p *Port) SetDatagram(idx uint8, cmd byte, adp, ado uint16, data []byte) (int, error) {
	if !p.validIndex(idx) {
		return 0, fmt.Errorf("%w: index %d", ErrInvalidParameter, idx)
	}
	n, err := frame.SetupDatagram(p.txbuf[idx], cmd, idx, adp, ado, data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidFrame, err)
	}
	p.txlen[idx] = n
	return n, nil
}

// TxFrame returns a copy of the transmit frame of slot idx
func (p *Port) TxFrame(idx uint8) []byte {
	if !p.validIndex(idx) {
		return nil
	}
	return append([]byte(nil), p.txbuf[idx][:p.txlen[idx]]...)
}

// RxFrame returns a copy of the EtherCAT part of the reply stored for slot
// idx on path. The working counter is at the offset given by its length field.
func (p *Port) RxFrame(path Path, idx uint8) []byte {
	pc := p.pathCtx(path)
	if pc == nil || !p.validIndex(idx) {
		return nil
	}
	return append([]byte(nil), pc.received(idx)...)
}
