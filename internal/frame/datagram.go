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

package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Frame errors
var (
	ErrFrameTooShort   = errors.New("frame too short")
	ErrNotEtherCAT     = errors.New("not an EtherCAT frame")
	ErrDatagramTooLong = errors.New("datagram does not fit in frame")
	ErrLengthMismatch  = errors.New("declared length exceeds frame")
)

// SetupDatagram writes the Ethernet header and a single datagram with a zero
// working counter into buf and returns the frame length. The length is not
// padded to MinFrameSize; the link or NIC is expected to pad.
func SetupDatagram(buf []byte, cmd byte, idx uint8, adp, ado uint16, data []byte) (int, error) {
	n := EthHeaderSize + HeaderSize + len(data) + WKCSize
	if len(data) > DLengthMask || n > len(buf) {
		return 0, fmt.Errorf("%w: %d data bytes, %d byte buffer", ErrDatagramTooLong, len(data), len(buf))
	}

	SetupHeader(buf)
	binary.LittleEndian.PutUint16(buf[OffsetELength:], uint16(ECatType+HeaderSize+len(data)))
	buf[OffsetCommand] = cmd
	buf[OffsetIndex] = idx
	binary.LittleEndian.PutUint16(buf[OffsetADP:], adp)
	binary.LittleEndian.PutUint16(buf[OffsetADO:], ado)
	binary.LittleEndian.PutUint16(buf[OffsetDLength:], uint16(len(data)))
	binary.LittleEndian.PutUint16(buf[OffsetIRQ:], 0)
	copy(buf[OffsetData:], data)
	binary.LittleEndian.PutUint16(buf[OffsetData+len(data):], 0)

	return n, nil
}

// Validate checks that buf is an EtherCAT frame whose declared length,
// including the trailing working counter, fits inside it.
func Validate(buf []byte) error {
	if len(buf) < EthHeaderSize+HeaderSize+WKCSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooShort, len(buf))
	}
	if !IsEtherCAT(buf) {
		return fmt.Errorf("%w: ethertype 0x%04x", ErrNotEtherCAT, uint16(EtherType(buf)))
	}
	if _, ok := WKC(buf[EthHeaderSize:]); !ok {
		return fmt.Errorf("%w: elength %d, %d bytes", ErrLengthMismatch, ELength(buf[EthHeaderSize:]), len(buf))
	}
	return nil
}
