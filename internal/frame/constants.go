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

import "github.com/mdlayher/ethernet"

// EtherTypeECAT is the reserved ethertype carried by every EtherCAT frame.
const EtherTypeECAT ethernet.EtherType = 0x88a4

// Frame layout. Offsets are relative to the start of the Ethernet frame
// unless the name says otherwise.
const (
	EthHeaderSize      = 14 // destination + source + ethertype
	ELengthSize        = 2  // EtherCAT frame header (length + type)
	DatagramHeaderSize = 10 // cmd, idx, adp, ado, dlength, irq
	HeaderSize         = ELengthSize + DatagramHeaderSize
	WKCSize            = 2

	OffsetSource    = 6
	OffsetSourceTag = 8 // second word of the source address
	OffsetEtherType = 12
	OffsetELength   = EthHeaderSize
	OffsetCommand   = EthHeaderSize + 2
	OffsetIndex     = EthHeaderSize + 3
	OffsetADP       = EthHeaderSize + 4
	OffsetADO       = EthHeaderSize + 6
	OffsetDLength   = EthHeaderSize + 8
	OffsetIRQ       = EthHeaderSize + 10
	OffsetData      = EthHeaderSize + HeaderSize
)

// Frame size limits
const (
	MinFrameSize = 60   // minimum Ethernet frame without FCS
	MaxFrameSize = 1518 // maximum Ethernet frame with FCS
	BufferSize   = MaxFrameSize
)

// EtherCAT header fields
const (
	ECatType    = 0x1000 // protocol type 1 in the top nibble of elength
	ELengthMask = 0x0fff
	DLengthMask = 0x07ff
	DLengthMore = 0x8000 // another datagram follows
)

// Datagram commands
const (
	CmdNOP  byte = 0x00
	CmdAPRD byte = 0x01
	CmdAPWR byte = 0x02
	CmdAPRW byte = 0x03
	CmdFPRD byte = 0x04
	CmdFPWR byte = 0x05
	CmdFPRW byte = 0x06
	CmdBRD  byte = 0x07
	CmdBWR  byte = 0x08
	CmdBRW  byte = 0x09
	CmdLRD  byte = 0x0a
	CmdLWR  byte = 0x0b
	CmdLRW  byte = 0x0c
	CmdARMW byte = 0x0d
	CmdFRMW byte = 0x0e
)

// Source-path tags. The second word of the source MAC identifies which path
// a frame was sent on; slaves leave it untouched, so it survives the ring.
const (
	TagPrimary   uint16 = 0x0101
	TagSecondary uint16 = 0x0404
)

// Source addresses used for EtherCAT. They are not the NIC's own address.
var (
	PrimaryMAC   = [6]byte{0x01, 0x01, 0x01, 0x01, 0x01, 0x01}
	SecondaryMAC = [6]byte{0x04, 0x04, 0x04, 0x04, 0x04, 0x04}
)
