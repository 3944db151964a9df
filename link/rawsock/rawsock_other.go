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

//go:build !linux

package rawsock

import (
	"fmt"

	"github.com/ZaparooProject/go-ecatnic"
)

// Link is unavailable on this platform.
type Link struct{}

// New always fails outside Linux.
func New(name string) (*Link, error) {
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, name)
}

// Send always fails.
func (*Link) Send([]byte) (int, error) { return 0, ErrUnsupported }

// Recv always fails.
func (*Link) Recv([]byte) (int, error) { return 0, ErrUnsupported }

// IsClosed always reports true.
func (*Link) IsClosed() bool { return true }

// Close is a no-op.
func (*Link) Close() error { return nil }

// Type returns the link type
func (*Link) Type() ecatnic.LinkType { return ecatnic.LinkRawSocket }

var _ ecatnic.Link = (*Link)(nil)
