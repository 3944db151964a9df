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

package testing

import (
	"io"
	"math/rand/v2"
	"time"
)

// JitterConfig configures JitteryStream and JitteryLink.
type JitterConfig struct {
	// MaxLatency is the upper bound of a random delay before each stream read
	MaxLatency time.Duration
	// FragmentMinBytes is the smallest fragment a stream read returns
	FragmentMinBytes int
	// MaxHoldPolls is how many empty Recv calls a frame may be held back
	MaxHoldPolls int
	Seed         uint64
	// FragmentReads splits stream reads at random points
	FragmentReads bool
}

// DefaultJitterConfig returns a sensible default configuration for testing.
func DefaultJitterConfig() JitterConfig {
	return JitterConfig{
		FragmentReads:    true,
		FragmentMinBytes: 1,
		MaxHoldPolls:     3,
	}
}

func newRand(seed uint64) *rand.Rand {
	if seed != 0 {
		return rand.New(rand.NewPCG(seed, seed^0xDEADBEEF)) //nolint:gosec // Test code, not crypto
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // Test code, not crypto
}

// JitteryStream wraps an io.ReadWriter to simulate a USB serial bridge
// (FTDI, CH340) that delivers a byte stream in unpredictable fragments.
// Data read from the backend is buffered, so fragmentation never loses bytes.
type JitteryStream struct {
	backend io.ReadWriter
	rng     *rand.Rand
	readBuf []byte
	config  JitterConfig
}

// NewJitteryStream wraps backend with fragmentation and latency simulation.
func NewJitteryStream(backend io.ReadWriter, config JitterConfig) *JitteryStream {
	if config.FragmentMinBytes < 1 {
		config.FragmentMinBytes = 1
	}
	return &JitteryStream{
		backend: backend,
		config:  config,
		rng:     newRand(config.Seed),
		readBuf: make([]byte, 0, 2048),
	}
}

// Write passes writes through to the backend without modification.
func (j *JitteryStream) Write(data []byte) (int, error) {
	return j.backend.Write(data) //nolint:wrapcheck // Pass-through wrapper
}

// Read returns a random-sized prefix of the buffered data.
func (j *JitteryStream) Read(buf []byte) (int, error) {
	if j.config.MaxLatency > 0 {
		if delay := time.Duration(j.rng.Int64N(int64(j.config.MaxLatency) + 1)); delay > 0 {
			time.Sleep(delay)
		}
	}

	if len(j.readBuf) == 0 {
		tmp := make([]byte, 2048)
		n, err := j.backend.Read(tmp)
		if n > 0 {
			j.readBuf = append(j.readBuf, tmp[:n]...)
		}
		if len(j.readBuf) == 0 {
			return 0, err //nolint:wrapcheck // Pass-through wrapper
		}
	}

	toReturn := min(len(j.readBuf), len(buf))
	if j.config.FragmentReads && toReturn > j.config.FragmentMinBytes {
		toReturn = j.config.FragmentMinBytes + j.rng.IntN(toReturn-j.config.FragmentMinBytes+1)
	}

	copy(buf, j.readBuf[:toReturn])
	j.readBuf = j.readBuf[toReturn:]
	return toReturn, nil
}

// FrameEndpoint is the raw-frame method set shared by links and endpoints.
type FrameEndpoint interface {
	Send(buf []byte) (int, error)
	Recv(buf []byte) (int, error)
	IsClosed() bool
	Close() error
}

type heldFrame struct {
	data []byte
	hold int
}

// JitteryLink wraps a FrameEndpoint and delays each received frame by a
// random number of Recv polls. Frames with shorter holds overtake earlier
// ones, so replies come back out of order the way they can on a switched
// or bridged network.
type JitteryLink struct {
	backend FrameEndpoint
	rng     *rand.Rand
	held    []heldFrame
	config  JitterConfig
}

// NewJitteryLink wraps backend with reordering simulation.
func NewJitteryLink(backend FrameEndpoint, config JitterConfig) *JitteryLink {
	return &JitteryLink{
		backend: backend,
		config:  config,
		rng:     newRand(config.Seed),
	}
}

// Send passes frames through to the backend.
func (j *JitteryLink) Send(buf []byte) (int, error) {
	return j.backend.Send(buf) //nolint:wrapcheck // Pass-through wrapper
}

// Recv drains the backend into the hold queue and releases the first frame
// whose hold has run out.
func (j *JitteryLink) Recv(buf []byte) (int, error) {
	tmp := make([]byte, len(buf))
	for {
		n, err := j.backend.Recv(tmp)
		if err != nil {
			return 0, err //nolint:wrapcheck // Pass-through wrapper
		}
		if n == 0 {
			break
		}
		hold := 0
		if j.config.MaxHoldPolls > 0 {
			hold = j.rng.IntN(j.config.MaxHoldPolls + 1)
		}
		j.held = append(j.held, heldFrame{data: append([]byte(nil), tmp[:n]...), hold: hold})
	}

	for i := range j.held {
		if j.held[i].hold <= 0 {
			n := copy(buf, j.held[i].data)
			j.held = append(j.held[:i], j.held[i+1:]...)
			return n, nil
		}
	}
	for i := range j.held {
		j.held[i].hold--
	}
	return 0, nil
}

// IsClosed reports whether the backend is closed.
func (j *JitteryLink) IsClosed() bool {
	return j.backend.IsClosed()
}

// Close closes the backend and drops held frames.
func (j *JitteryLink) Close() error {
	j.held = nil
	return j.backend.Close() //nolint:wrapcheck // Pass-through wrapper
}

// Held returns how many frames are currently held back.
func (j *JitteryLink) Held() int {
	return len(j.held)
}
