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

// Package uart detects USB serial bridges that tunnel EtherCAT frames.
package uart

import (
	"context"
	"strings"

	"github.com/ZaparooProject/go-ecatnic/detection"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// probeBaudRate matches the default of the serial link.
const probeBaudRate = 115200

// Package-level hooks so tests can replace the host view.
var (
	listPorts = enumerator.GetDetailedPortsList
	probePort = openAndClose
)

// knownBridges lists VID:PIDs of boards shipped with EtherCAT bridge firmware.
var knownBridges = []string{
	"0483:5740", // STM32 virtual COM port
	"2E8A:000A", // RP2040 CDC
	"303A:1001", // ESP32-S3 USB JTAG/serial
	"0403:6014", // FTDI FT232H
}

// bridgeKeywords match product strings of bridge firmware.
var bridgeKeywords = []string{"ethercat", "ecat", "w5500", "macraw"}

// detector implements the Detector interface for serial bridges.
type detector struct{}

// New creates a new serial bridge detector
func New() detection.Detector {
	return &detector{}
}

func init() {
	detection.RegisterDetector(New())
}

// Link returns the link type
func (*detector) Link() string {
	return detection.LinkSerial
}

// Detect enumerates serial ports and keeps the ones that look like bridges
func (d *detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.AdapterInfo, error) {
	ports, err := listPorts()
	if err != nil {
		return nil, err
	}

	var adapters []detection.AdapterInfo
	for _, port := range ports {
		if ctx.Err() != nil {
			return adapters, ctx.Err()
		}
		if adapter, ok := d.processPort(port, opts); ok {
			adapters = append(adapters, adapter)
		}
	}

	if len(adapters) == 0 {
		return nil, detection.ErrNoAdaptersFound
	}
	return adapters, nil
}

// processPort filters and rates one enumerated port
func (*detector) processPort(port *enumerator.PortDetails, opts *detection.Options) (detection.AdapterInfo, bool) {
	if port == nil || !port.IsUSB {
		return detection.AdapterInfo{}, false
	}

	vidpid := detection.ParseVIDPID(port.VID + ":" + port.PID)
	if detection.IsBlocked(vidpid, opts.Blocklist) || detection.IsPathIgnored(port.Name, opts.IgnorePaths) {
		return detection.AdapterInfo{}, false
	}

	likely := isLikelyBridge(vidpid, port.Product)
	if opts.Mode == detection.Passive && !likely {
		return detection.AdapterInfo{}, false
	}

	adapter := detection.AdapterInfo{
		Link:       detection.LinkSerial,
		Path:       port.Name,
		Name:       port.Name,
		Confidence: detection.Low,
		Metadata:   map[string]string{},
	}
	if vidpid != "" {
		adapter.Metadata["vidpid"] = vidpid
	}
	if port.Product != "" {
		adapter.Metadata["product"] = port.Product
		adapter.Name = port.Product
	}
	if port.SerialNumber != "" {
		adapter.Metadata["serial"] = port.SerialNumber
	}
	if likely {
		adapter.Confidence = detection.Medium
	}

	if opts.Mode == detection.Passive {
		return adapter, true
	}

	// A single open attempt; a busy or absent port is skipped, not retried.
	if !probePort(port.Name) {
		return detection.AdapterInfo{}, false
	}
	if likely {
		adapter.Confidence = detection.High
	} else if opts.Mode == detection.Safe {
		return detection.AdapterInfo{}, false
	}
	return adapter, true
}

func isLikelyBridge(vidpid, product string) bool {
	for _, known := range knownBridges {
		if vidpid == known {
			return true
		}
	}
	lower := strings.ToLower(product)
	for _, keyword := range bridgeKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

func openAndClose(path string) bool {
	port, err := serial.Open(path, &serial.Mode{BaudRate: probeBaudRate})
	if err != nil {
		return false
	}
	_ = port.Close()
	return true
}
