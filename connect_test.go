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
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-ecatnic/detection"
)

// linkTable hands out mock links by path and counts open attempts
type linkTable struct {
	links    map[string]*MockLink
	failures map[string][]error
	opens    map[string]int
}

func newLinkTable(paths ...string) *linkTable {
	lt := &linkTable{
		links:    make(map[string]*MockLink),
		failures: make(map[string][]error),
		opens:    make(map[string]int),
	}
	for _, p := range paths {
		lt.links[p] = NewMockLink()
	}
	return lt
}

func (lt *linkTable) open(path string) (Link, error) {
	lt.opens[path]++
	if queued := lt.failures[path]; len(queued) > 0 {
		lt.failures[path] = queued[1:]
		return nil, queued[0]
	}
	link, ok := lt.links[path]
	if !ok {
		return nil, errors.New("no such interface")
	}
	return link, nil
}

func TestConnect_Primary(t *testing.T) {
	t.Parallel()

	links := newLinkTable("eth0")
	port, err := Connect(context.Background(), "eth0",
		WithLinkFactory(links.open),
		WithPortOptions(WithPoolSize(4), WithName("bench")))
	require.NoError(t, err)

	assert.Equal(t, 4, port.PoolSize())
	assert.Equal(t, "bench", port.Name())
	assert.Equal(t, RedNone, port.RedState())
	assert.Same(t, links.links["eth0"], port.Link(Primary))

	require.NoError(t, port.Close())
	assert.Equal(t, 1, links.links["eth0"].CloseCount())
}

func TestConnect_Secondary(t *testing.T) {
	t.Parallel()

	links := newLinkTable("eth0", "eth1")
	port, err := Connect(context.Background(), "eth0",
		WithLinkFactory(links.open), WithSecondary("eth1"))
	require.NoError(t, err)
	defer func() { _ = port.Close() }()

	assert.Equal(t, RedDouble, port.RedState())
	assert.Same(t, links.links["eth1"], port.Link(Secondary))
}

func TestConnect_RetriesTransientOpenFailure(t *testing.T) {
	t.Parallel()

	links := newLinkTable("eth0")
	links.failures["eth0"] = []error{NewTransportError("open", "eth0", ErrLinkTimeout, ErrorTypeTimeout)}

	port, err := Connect(context.Background(), "eth0",
		WithLinkFactory(links.open), WithConnectionRetries(2))
	require.NoError(t, err)
	defer func() { _ = port.Close() }()

	assert.Equal(t, 2, links.opens["eth0"])
}

func TestConnect_PermanentOpenFailure(t *testing.T) {
	t.Parallel()

	links := newLinkTable()
	_, err := Connect(context.Background(), "eth9", WithLinkFactory(links.open))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "eth9")
	assert.Equal(t, 1, links.opens["eth9"], "non-retryable errors are not retried")
}

func TestConnect_SecondaryFailureClosesPrimary(t *testing.T) {
	t.Parallel()

	links := newLinkTable("eth0")
	_, err := Connect(context.Background(), "eth0",
		WithLinkFactory(links.open), WithSecondary("eth1"))
	require.Error(t, err)
	assert.Equal(t, 1, links.links["eth0"].CloseCount())
}

func TestConnect_OptionErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts []ConnectOption
	}{
		{name: "empty secondary", opts: []ConnectOption{WithSecondary("")}},
		{name: "zero retries", opts: []ConnectOption{WithConnectionRetries(0)}},
		{name: "bad pool size", opts: []ConnectOption{WithPortOptions(WithPoolSize(0))}},
		{name: "no factory", opts: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts := tt.opts
			if tt.name != "no factory" {
				opts = append(opts, WithLinkFactory(newLinkTable("eth0").open))
			}
			_, err := Connect(context.Background(), "eth0", opts...)
			require.Error(t, err)
		})
	}
}

func TestConnect_AutoDetection(t *testing.T) {
	t.Parallel()

	link := NewMockLink()
	var opened detection.AdapterInfo
	var mode detection.Mode

	port, err := Connect(context.Background(), "",
		WithAdapterDetector(func(_ context.Context, opts *detection.Options) ([]detection.AdapterInfo, error) {
			mode = opts.Mode
			return []detection.AdapterInfo{
				{Link: detection.LinkRawSocket, Path: "enp3s0", Confidence: detection.High},
				{Link: detection.LinkRawSocket, Path: "veth0", Confidence: detection.Low},
			}, nil
		}),
		WithAdapterLinkFactory(func(adapter detection.AdapterInfo) (Link, error) {
			opened = adapter
			return link, nil
		}))
	require.NoError(t, err)
	defer func() { _ = port.Close() }()

	assert.Equal(t, detection.Safe, mode)
	assert.Equal(t, "enp3s0", opened.Path)
	assert.Same(t, link, port.Link(Primary))
}

func TestConnect_AutoDetectionFailures(t *testing.T) {
	t.Parallel()

	none := func(context.Context, *detection.Options) ([]detection.AdapterInfo, error) {
		return nil, nil
	}
	_, err := Connect(context.Background(), "", WithAdapterDetector(none))
	require.ErrorIs(t, err, detection.ErrNoAdaptersFound)

	failing := func(context.Context, *detection.Options) ([]detection.AdapterInfo, error) {
		return nil, detection.ErrDetectionTimeout
	}
	_, err = Connect(context.Background(), "", WithAutoDetection(), WithAdapterDetector(failing))
	require.ErrorIs(t, err, detection.ErrDetectionTimeout)

	one := func(context.Context, *detection.Options) ([]detection.AdapterInfo, error) {
		return []detection.AdapterInfo{{Path: "eth0"}}, nil
	}
	_, err = Connect(context.Background(), "", WithAdapterDetector(one))
	require.Error(t, err, "adapter link factory is required")
}

func TestOpenLink_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	links := newLinkTable("eth0")
	_, err := OpenLink(ctx, "eth0", links.open, 3)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, links.opens["eth0"])
}
