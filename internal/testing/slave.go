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
	"encoding/binary"

	"github.com/ZaparooProject/go-ecatnic/internal/frame"
)

// VirtualSlave is one simulated EtherCAT slave. It answers the addressing
// modes by incrementing the working counter of every datagram that selects
// it; the data area is left untouched.
type VirtualSlave struct {
	// Station is the configured (fixed) station address
	Station uint16
	// Processed counts the datagrams this slave answered
	Processed int
}

// process walks the datagram chain of a complete frame
func (s *VirtualSlave) process(buf []byte) {
	if len(buf) < frame.EthHeaderSize+frame.HeaderSize+frame.WKCSize {
		return
	}

	off := frame.EthHeaderSize + frame.ELengthSize
	for {
		hdr := buf[off:]
		if len(hdr) < frame.DatagramHeaderSize {
			return
		}
		dlen := binary.LittleEndian.Uint16(hdr[6:])
		n := int(dlen & frame.DLengthMask)
		wkcOff := off + frame.DatagramHeaderSize + n
		if wkcOff+frame.WKCSize > len(buf) {
			return
		}

		if s.addressed(hdr) {
			wkc := binary.LittleEndian.Uint16(buf[wkcOff:])
			binary.LittleEndian.PutUint16(buf[wkcOff:], wkc+1)
			s.Processed++
		}

		if dlen&frame.DLengthMore == 0 {
			return
		}
		off = wkcOff + frame.WKCSize
	}
}

// addressed reports whether the datagram selects this slave and updates
// the auto-increment address on the way through
func (s *VirtualSlave) addressed(hdr []byte) bool {
	adp := binary.LittleEndian.Uint16(hdr[2:])

	switch hdr[0] {
	case frame.CmdAPRD, frame.CmdAPWR, frame.CmdAPRW, frame.CmdARMW:
		binary.LittleEndian.PutUint16(hdr[2:], adp+1)
		return adp == 0
	case frame.CmdFPRD, frame.CmdFPWR, frame.CmdFPRW, frame.CmdFRMW:
		return adp == s.Station
	case frame.CmdBRD, frame.CmdBWR, frame.CmdBRW:
		binary.LittleEndian.PutUint16(hdr[2:], adp+1)
		return true
	case frame.CmdLRD, frame.CmdLWR, frame.CmdLRW:
		return true
	default:
		return false
	}
}

// BuildReply returns a complete single-datagram frame as it would come back
// from the segment: a BRD for idx with dataLen zero bytes, the given source
// tag and working counter.
func BuildReply(idx uint8, tag, wkc uint16, dataLen int) []byte {
	buf := make([]byte, frame.EthHeaderSize+frame.HeaderSize+dataLen+frame.WKCSize)
	n, err := frame.SetupDatagram(buf, frame.CmdBRD, idx, 0, 0, make([]byte, dataLen))
	if err != nil {
		panic(err)
	}
	frame.SetSourceTag(buf, tag)
	binary.LittleEndian.PutUint16(buf[n-frame.WKCSize:], wkc)
	return buf[:n]
}

// SetWKC overwrites the working counter of the first datagram of a complete frame.
func SetWKC(buf []byte, wkc uint16) {
	l := frame.ELength(buf[frame.EthHeaderSize:])
	binary.LittleEndian.PutUint16(buf[frame.EthHeaderSize+l:], wkc)
}
