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
	"path/filepath"
	"strings"
)

// DefaultBlocklist returns USB VID:PID pairs that are never offered as
// EtherCAT bridges.
func DefaultBlocklist() []string {
	return []string{
		"1D6B:0002", // Linux root hub exposed by some gadget drivers
	}
}

// IsBlocked reports whether vidpid appears in blocklist, ignoring case and
// surrounding whitespace.
func IsBlocked(vidpid string, blocklist []string) bool {
	vidpid = strings.ToUpper(strings.TrimSpace(vidpid))
	if vidpid == "" {
		return false
	}
	for _, blocked := range blocklist {
		if vidpid == strings.ToUpper(strings.TrimSpace(blocked)) {
			return true
		}
	}
	return false
}

// ParseVIDPID normalizes a USB identifier to "VVVV:PPPP".
// Accepted forms: "1234:5678", "VID:1234 PID:5678", "vendor=1234 product=5678"
// and separate vid/pid strings joined by a space. Returns "" when no pair is found.
func ParseVIDPID(descriptor string) string {
	descriptor = strings.ToUpper(strings.TrimSpace(descriptor))

	vid := valueAfter(descriptor, "VID:", "VID=", "VENDOR=")
	pid := valueAfter(descriptor, "PID:", "PID=", "PRODUCT=")
	if vid != "" && pid != "" {
		return padHex(vid) + ":" + padHex(pid)
	}

	parts := strings.Split(descriptor, ":")
	if len(parts) == 2 && isHex(parts[0]) && isHex(parts[1]) {
		return padHex(parts[0]) + ":" + padHex(parts[1])
	}
	return ""
}

// valueAfter returns the hex run following the first key found in s.
func valueAfter(s string, keys ...string) string {
	for _, key := range keys {
		if idx := strings.Index(s, key); idx >= 0 {
			return extractHex(s[idx+len(key):])
		}
	}
	return ""
}

// extractHex returns the leading run of hex digits in s.
func extractHex(s string) string {
	end := 0
	for end < len(s) && isHexDigit(rune(s[end])) {
		end++
	}
	return s[:end]
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'A' && r <= 'F') || (r >= 'a' && r <= 'f')
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isHexDigit(r) {
			return false
		}
	}
	return true
}

func padHex(s string) string {
	if len(s) >= 4 {
		return s
	}
	return strings.Repeat("0", 4-len(s)) + s
}

// IsPathIgnored reports whether an adapter path or interface name is listed in
// ignorePaths. Paths are cleaned and compared case-insensitively; bare
// interface names compare the same way.
func IsPathIgnored(adapterPath string, ignorePaths []string) bool {
	if adapterPath == "" {
		return false
	}

	want := normalizedPath(adapterPath)
	for _, ignore := range ignorePaths {
		if ignore == "" {
			continue
		}
		if ignore == adapterPath || normalizedPath(ignore) == want {
			return true
		}
	}
	return false
}

// normalizedPath cleans path and folds case for comparison.
func normalizedPath(path string) string {
	return strings.ToLower(filepath.Clean(path))
}
