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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-ecatnic/internal/frame"
)

func TestOutFrame(t *testing.T) {
	t.Parallel()

	port, _ := newTestPort(t, WithPoolSize(4))
	link := NewMockLink()
	require.NoError(t, port.Setup(link, Primary))

	idx := port.GetIndex()
	n, err := port.SetDatagram(idx, frame.CmdBRD, 0, 0, make([]byte, 32))
	require.NoError(t, err)

	sent, err := port.OutFrame(idx, Primary)
	require.NoError(t, err)
	assert.Equal(t, n, sent)
	assert.Equal(t, BufTx, port.BufStatus(Primary, idx))
	require.Equal(t, 1, link.SendCount())
	assert.Equal(t, port.TxFrame(idx), link.Sent()[0])
}

func TestOutFrame_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		setup   func(*MockLink)
		wantErr error
		name    string
	}{
		{
			name:    "write failure",
			setup:   func(m *MockLink) { m.SetSendError(errors.New("no buffer space")) },
			wantErr: ErrLinkWrite,
		},
		{
			name:    "closed link",
			setup:   func(m *MockLink) { _ = m.Close() },
			wantErr: ErrLinkClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			port, _ := newTestPort(t, WithPoolSize(4))
			link := NewMockLink()
			require.NoError(t, port.Setup(link, Primary))
			idx := port.GetIndex()
			_, err := port.SetDatagram(idx, frame.CmdBRD, 0, 0, make([]byte, 2))
			require.NoError(t, err)
			tt.setup(link)

			_, err = port.OutFrame(idx, Primary)
			require.ErrorIs(t, err, tt.wantErr)

			var te *TransportError
			require.ErrorAs(t, err, &te)
			assert.True(t, te.Retryable)
			assert.Equal(t, BufEmpty, port.BufStatus(Primary, idx), "failed send must release the slot")
		})
	}
}

func TestOutFrame_InvalidUse(t *testing.T) {
	t.Parallel()

	port, _ := newTestPort(t, WithPoolSize(4))

	_, err := port.OutFrame(0, Primary)
	require.ErrorIs(t, err, ErrPortNotSetup)

	require.NoError(t, port.Setup(NewMockLink(), Primary))
	_, err = port.OutFrame(0, Secondary)
	require.ErrorIs(t, err, ErrPortNotSetup)
	_, err = port.OutFrame(4, Primary)
	require.ErrorIs(t, err, ErrInvalidParameter)
	_, err = port.OutFrame(0, Primary)
	require.ErrorIs(t, err, ErrInvalidFrame, "slot without a frame")
}

func TestOutFrameRed_SinglePath(t *testing.T) {
	t.Parallel()

	port, _ := newTestPort(t, WithPoolSize(4))
	link := NewMockLink()
	require.NoError(t, port.Setup(link, Primary))

	idx := port.GetIndex()
	_, err := port.SetDatagram(idx, frame.CmdBRD, 0, 0, make([]byte, 2))
	require.NoError(t, err)
	frame.SetSourceTag(port.txbuf[idx], 0xbeef)

	_, err = port.OutFrameRed(idx)
	require.NoError(t, err)

	require.Equal(t, 1, link.SendCount())
	assert.Equal(t, frame.TagPrimary, frame.SourceTag(link.Sent()[0]))
}

func TestOutFrameRed_Redundant(t *testing.T) {
	t.Parallel()

	port, _ := newTestPort(t, WithPoolSize(4), WithRedundancy())
	prim, sec := NewMockLink(), NewMockLink()
	require.NoError(t, port.Setup(prim, Primary))
	require.NoError(t, port.Setup(sec, Secondary))

	idx := port.GetIndex()
	_, err := port.SetDatagram(idx, frame.CmdLRW, 0, 0, make([]byte, 40))
	require.NoError(t, err)

	_, err = port.OutFrameRed(idx)
	require.NoError(t, err)

	require.Equal(t, 1, prim.SendCount())
	require.Equal(t, 1, sec.SendCount())
	dummy := sec.Sent()[0]
	assert.Equal(t, frame.TagSecondary, frame.SourceTag(dummy))
	assert.Equal(t, idx, dummy[frame.OffsetIndex])
	assert.Equal(t, frame.CmdBRD, dummy[frame.OffsetCommand])
	assert.Equal(t, BufTx, port.BufStatus(Primary, idx))
	assert.Equal(t, BufTx, port.BufStatus(Secondary, idx))
}

func TestOutFrameRed_SecondaryFailure(t *testing.T) {
	t.Parallel()

	port, _ := newTestPort(t, WithPoolSize(4), WithRedundancy())
	prim, sec := NewMockLink(), NewMockLink()
	require.NoError(t, port.Setup(prim, Primary))
	require.NoError(t, port.Setup(sec, Secondary))
	sec.SetSendError(errors.New("carrier lost"))

	idx := port.GetIndex()
	_, err := port.SetDatagram(idx, frame.CmdBRD, 0, 0, make([]byte, 2))
	require.NoError(t, err)

	_, err = port.OutFrameRed(idx)
	require.NoError(t, err, "secondary failure does not fail the primary send")
	assert.Equal(t, BufTx, port.BufStatus(Primary, idx))
	assert.Equal(t, BufEmpty, port.BufStatus(Secondary, idx))
}

func TestOutFrame_Trace(t *testing.T) {
	t.Parallel()

	port, _ := newTestPort(t, WithPoolSize(4), WithTrace(4))
	require.NoError(t, port.Setup(NewMockLink(), Primary))

	idx := port.GetIndex()
	_, err := port.SetDatagram(idx, frame.CmdBRD, 0, 0, make([]byte, 2))
	require.NoError(t, err)
	_, err = port.OutFrame(idx, Primary)
	require.NoError(t, err)

	trace := port.Trace()
	require.Len(t, trace, 1)
	assert.Equal(t, TraceTX, trace[0].Direction)
	assert.Equal(t, Primary, trace[0].Path)
}
