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
	"fmt"

	"github.com/mdlayher/ethernet"
)

// SetupHeader stamps the fixed Ethernet header onto buf: broadcast
// destination, primary source address and the EtherCAT ethertype.
func SetupHeader(buf []byte) {
	if len(buf) < EthHeaderSize {
		return
	}
	copy(buf[0:6], ethernet.Broadcast)
	copy(buf[OffsetSource:OffsetSource+6], PrimaryMAC[:])
	binary.BigEndian.PutUint16(buf[OffsetEtherType:], uint16(EtherTypeECAT))
}

// EtherType returns the ethertype of a complete frame, or 0 if buf is too short.
func EtherType(buf []byte) ethernet.EtherType {
	if len(buf) < EthHeaderSize {
		return 0
	}
	return ethernet.EtherType(binary.BigEndian.Uint16(buf[OffsetEtherType:]))
}

// IsEtherCAT reports whether buf carries the EtherCAT ethertype.
func IsEtherCAT(buf []byte) bool {
	return EtherType(buf) == EtherTypeECAT
}

// SourceTag returns the path tag of a complete frame.
func SourceTag(buf []byte) uint16 {
	if len(buf) < EthHeaderSize {
		return 0
	}
	return binary.BigEndian.Uint16(buf[OffsetSourceTag:])
}

// SetSourceTag overwrites the path tag of a complete frame.
func SetSourceTag(buf []byte, tag uint16) {
	if len(buf) < EthHeaderSize {
		return
	}
	binary.BigEndian.PutUint16(buf[OffsetSourceTag:], tag)
}

// Index returns the correlation index of the first datagram of a complete frame.
func Index(buf []byte) (uint8, bool) {
	if len(buf) <= OffsetIndex {
		return 0, false
	}
	return buf[OffsetIndex], true
}

// SetIndex writes the correlation index of the first datagram of a complete frame.
func SetIndex(buf []byte, idx uint8) {
	if len(buf) <= OffsetIndex {
		return
	}
	buf[OffsetIndex] = idx
}

// ELength returns the masked EtherCAT length field. ecat starts at the
// EtherCAT header, i.e. after the Ethernet header.
func ELength(ecat []byte) int {
	if len(ecat) < ELengthSize {
		return 0
	}
	return int(binary.LittleEndian.Uint16(ecat) & ELengthMask)
}

// WKC decodes the working counter that trails the datagram. The counter sits
// at elength bytes into the EtherCAT part because elength counts the datagram
// header, its data and the counter itself, plus the two length bytes.
func WKC(ecat []byte) (uint16, bool) {
	l := ELength(ecat)
	if l < HeaderSize || l+WKCSize > len(ecat) {
		return 0, false
	}
	return binary.LittleEndian.Uint16(ecat[l:]), true
}

// Summary renders a one-line description of a complete frame for traces.
func Summary(buf []byte) string {
	var f ethernet.Frame
	if err := f.UnmarshalBinary(buf); err != nil {
		return fmt.Sprintf("invalid frame (%d bytes): %v", len(buf), err)
	}
	if f.EtherType != EtherTypeECAT {
		return fmt.Sprintf("%s -> %s type %s len %d", f.Source, f.Destination, f.EtherType, len(buf))
	}
	idx, _ := Index(buf)
	wkc, ok := WKC(buf[EthHeaderSize:])
	if !ok {
		return fmt.Sprintf("ecat idx %d tag 0x%04x truncated (%d bytes)", idx, SourceTag(buf), len(buf))
	}
	return fmt.Sprintf("ecat idx %d tag 0x%04x wkc %d len %d", idx, SourceTag(buf), wkc, len(buf))
}
