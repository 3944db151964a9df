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

// Package rawsock implements ecatnic.Link on a Linux AF_PACKET socket bound
// to the EtherCAT ethertype.
//
// Opening a raw socket requires CAP_NET_RAW. The interface is put into
// promiscuous mode through a packet membership, which the kernel drops
// again when the socket is closed.
package rawsock

import (
	"errors"

	"github.com/ZaparooProject/go-ecatnic"
)

// ErrUnsupported is returned on platforms without AF_PACKET
var ErrUnsupported = errors.New("raw sockets are not supported on this platform")

// Open creates a raw socket link on the named interface. It has the
// ecatnic.LinkFactory signature.
func Open(name string) (ecatnic.Link, error) {
	link, err := New(name)
	if err != nil {
		return nil, err
	}
	return link, nil
}
