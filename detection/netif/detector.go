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

// Package netif detects Ethernet interfaces usable as raw-socket EtherCAT ports.
package netif

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ZaparooProject/go-ecatnic/detection"
)

// sysClassNet is where Linux exposes per-interface state.
const sysClassNet = "/sys/class/net"

// Package-level hooks so tests can replace the host view.
var (
	listInterfaces = net.Interfaces
	sysfsRoot      = sysClassNet
)

// detector implements the Detector interface for network interfaces.
type detector struct{}

// New creates a new network interface detector
func New() detection.Detector {
	return &detector{}
}

func init() {
	detection.RegisterDetector(New())
}

// Link returns the link type
func (*detector) Link() string {
	return detection.LinkRawSocket
}

// Detect lists Ethernet interfaces, most promising first
func (d *detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.AdapterInfo, error) {
	ifaces, err := listInterfaces()
	if err != nil {
		return nil, err
	}

	var adapters []detection.AdapterInfo
	for i := range ifaces {
		if ctx.Err() != nil {
			return adapters, ctx.Err()
		}
		if !isEthernet(&ifaces[i]) || detection.IsPathIgnored(ifaces[i].Name, opts.IgnorePaths) {
			continue
		}
		if adapter, ok := d.processInterface(&ifaces[i], opts.Mode); ok {
			adapters = append(adapters, adapter)
		}
	}

	if len(adapters) == 0 {
		return nil, detection.ErrNoAdaptersFound
	}

	slices.SortStableFunc(adapters, func(a, b detection.AdapterInfo) int {
		if a.Confidence != b.Confidence {
			return int(b.Confidence) - int(a.Confidence)
		}
		return strings.Compare(a.Path, b.Path)
	})
	return adapters, nil
}

// processInterface rates one interface for the given mode
func (*detector) processInterface(iface *net.Interface, mode detection.Mode) (detection.AdapterInfo, bool) {
	adapter := detection.AdapterInfo{
		Link:       detection.LinkRawSocket,
		Path:       iface.Name,
		Name:       iface.Name,
		Confidence: detection.Low,
		Metadata: map[string]string{
			"mac": iface.HardwareAddr.String(),
		},
	}

	if mode == detection.Passive {
		if iface.Flags&net.FlagUp != 0 {
			adapter.Confidence = detection.Medium
		}
		return adapter, true
	}

	state := readLinkState(iface.Name)
	if state.operstate != "" {
		adapter.Metadata["operstate"] = state.operstate
	}
	if state.driver != "" {
		adapter.Metadata["driver"] = state.driver
		adapter.Name = iface.Name + " (" + state.driver + ")"
	}

	switch {
	case state.physical && state.carrier:
		adapter.Confidence = detection.High
	case state.physical:
		adapter.Confidence = detection.Medium
	}

	if mode == detection.Full && !state.carrier {
		return detection.AdapterInfo{}, false
	}
	return adapter, true
}

// isEthernet reports whether iface carries 48-bit addresses and is not loopback
func isEthernet(iface *net.Interface) bool {
	return iface.Flags&net.FlagLoopback == 0 && len(iface.HardwareAddr) == 6
}

type linkState struct {
	operstate string
	driver    string
	carrier   bool
	physical  bool
}

// readLinkState collects what sysfs knows about an interface. Missing files
// leave the corresponding fields zero.
func readLinkState(name string) linkState {
	dir := filepath.Join(sysfsRoot, name)
	state := linkState{
		operstate: readAttr(filepath.Join(dir, "operstate")),
		carrier:   readAttr(filepath.Join(dir, "carrier")) == "1",
	}

	if _, err := os.Stat(filepath.Join(dir, "device")); err == nil {
		state.physical = true
	}
	if target, err := os.Readlink(filepath.Join(dir, "device", "driver")); err == nil {
		state.driver = filepath.Base(target)
	}
	return state
}

func readAttr(path string) string {
	data, err := os.ReadFile(path) //nolint:gosec // sysfs attribute path built from interface name
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
