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
	"bytes"
	"testing"

	"github.com/ZaparooProject/go-ecatnic/internal/frame"
)

func TestJitteryStream_NoDataLoss(t *testing.T) {
	t.Parallel()

	payload := make([]byte, 300)
	for i := range payload {
		payload[i] = byte(i)
	}

	var backend bytes.Buffer
	jittery := NewJitteryStream(&backend, JitterConfig{
		FragmentReads:    true,
		FragmentMinBytes: 1,
		Seed:             42,
	})

	if _, err := jittery.Write(payload); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got := make([]byte, 0, len(payload))
	buf := make([]byte, 64)
	reads := 0
	for len(got) < len(payload) && reads < 1000 {
		n, _ := jittery.Read(buf)
		got = append(got, buf[:n]...)
		reads++
	}

	if !bytes.Equal(got, payload) {
		t.Fatalf("stream corrupted after %d reads", reads)
	}
	t.Logf("Read %d bytes in %d read calls", len(got), reads)
}

func TestJitteryStream_NoFragmentation(t *testing.T) {
	t.Parallel()

	var backend bytes.Buffer
	jittery := NewJitteryStream(&backend, JitterConfig{Seed: 7})
	_, _ = jittery.Write([]byte{1, 2, 3, 4})

	buf := make([]byte, 16)
	n, err := jittery.Read(buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if n != 4 {
		t.Errorf("expected the whole buffer, got %d bytes", n)
	}
}

func TestJitteryLink_DeliversEveryFrame(t *testing.T) {
	t.Parallel()

	seg := NewVirtualSegment(2)
	link := NewJitteryLink(seg.Primary(), JitterConfig{MaxHoldPolls: 4, Seed: 99})

	const frames = 8
	for i := range frames {
		buf := BuildReply(uint8(i), frame.TagPrimary, 0, 2)
		if _, err := link.Send(buf); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}

	seen := make(map[uint8]bool)
	order := make([]uint8, 0, frames)
	buf := make([]byte, frame.BufferSize)
	for poll := 0; len(seen) < frames && poll < 200; poll++ {
		n, err := link.Recv(buf)
		if err != nil {
			t.Fatalf("Recv failed: %v", err)
		}
		if n == 0 {
			continue
		}
		idx, _ := frame.Index(buf[:n])
		seen[idx] = true
		order = append(order, idx)
	}

	if len(seen) != frames {
		t.Fatalf("expected %d frames, got %d", frames, len(seen))
	}
	if link.Held() != 0 {
		t.Errorf("expected no held frames, got %d", link.Held())
	}
	t.Logf("delivery order: %v", order)
}

func TestJitteryLink_Close(t *testing.T) {
	t.Parallel()

	seg := NewVirtualSegment(1)
	link := NewJitteryLink(seg.Primary(), DefaultJitterConfig())

	if err := link.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !link.IsClosed() {
		t.Error("expected closed link")
	}
	if _, err := link.Recv(make([]byte, 64)); err == nil {
		t.Error("expected error from closed link")
	}
}
