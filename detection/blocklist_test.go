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

package detection

import (
	"testing"
)

func TestIsPathIgnored(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		adapterPath string
		ignorePaths []string
		expected    bool
	}{
		{name: "empty ignore list", adapterPath: "eth0", ignorePaths: nil, expected: false},
		{name: "empty adapter path", adapterPath: "", ignorePaths: []string{"eth0"}, expected: false},
		{name: "interface name", adapterPath: "enp3s0", ignorePaths: []string{"enp3s0"}, expected: true},
		{name: "serial path", adapterPath: "/dev/ttyACM0", ignorePaths: []string{"/dev/ttyACM0"}, expected: true},
		{name: "case folded", adapterPath: "/dev/ttyACM0", ignorePaths: []string{"/DEV/TTYACM0"}, expected: true},
		{name: "windows port", adapterPath: "com3", ignorePaths: []string{"COM3"}, expected: true},
		{name: "relative components", adapterPath: "/dev/../dev/ttyUSB0", ignorePaths: []string{"/dev/ttyUSB0"}, expected: true},
		{name: "blank entries skipped", adapterPath: "eth1", ignorePaths: []string{"", "eth1"}, expected: true},
		{name: "no match", adapterPath: "eth1", ignorePaths: []string{"eth0", "docker0"}, expected: false},
		{name: "prefix is not a match", adapterPath: "eth10", ignorePaths: []string{"eth1"}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsPathIgnored(tt.adapterPath, tt.ignorePaths); got != tt.expected {
				t.Errorf("IsPathIgnored(%q, %v) = %v, want %v",
					tt.adapterPath, tt.ignorePaths, got, tt.expected)
			}
		})
	}
}

func TestIsBlocked(t *testing.T) {
	t.Parallel()

	blocklist := []string{"0403:6001", " 1a86:7523 "}
	tests := []struct {
		vidpid   string
		expected bool
	}{
		{"0403:6001", true},
		{"1A86:7523", true},
		{"2E8A:000A", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsBlocked(tt.vidpid, blocklist); got != tt.expected {
			t.Errorf("IsBlocked(%q) = %v, want %v", tt.vidpid, got, tt.expected)
		}
	}
}

func TestParseVIDPID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		descriptor string
		expected   string
	}{
		{"0403:6001", "0403:6001"},
		{"2e8a:a", "2E8A:000A"},
		{"VID:0483 PID:5740", "0483:5740"},
		{"vendor=10c4 product=ea60", "10C4:EA60"},
		{"usb-serial", ""},
		{"zz:yy", ""},
	}

	for _, tt := range tests {
		if got := ParseVIDPID(tt.descriptor); got != tt.expected {
			t.Errorf("ParseVIDPID(%q) = %q, want %q", tt.descriptor, got, tt.expected)
		}
	}
}

func TestOptionsWithIgnorePaths(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	if opts.IgnorePaths != nil {
		t.Errorf("DefaultOptions().IgnorePaths should be nil, got %v", opts.IgnorePaths)
	}

	adapters := []AdapterInfo{
		{Link: LinkRawSocket, Path: "eth0"},
		{Link: LinkRawSocket, Path: "docker0"},
		{Link: LinkSerial, Path: "/dev/ttyUSB0", Metadata: map[string]string{"vidpid": "1D6B:0002"}},
	}
	opts.IgnorePaths = []string{"docker0"}

	filtered := FilterAdapters(adapters, &opts)
	if len(filtered) != 1 || filtered[0].Path != "eth0" {
		t.Errorf("FilterAdapters() = %v, want only eth0", filtered)
	}
}
