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
	"context"
	"errors"
	"fmt"
	"time"
)

// Mode represents the level of invasiveness for adapter detection
type Mode int

const (
	// Passive mode only lists adapters without opening them
	Passive Mode = iota
	// Safe mode checks link state and that the adapter can be opened
	Safe
	// Full mode additionally requires a carrier or an answering bridge
	Full
)

// Confidence represents how likely an adapter is to carry EtherCAT
type Confidence int

const (
	// Low confidence - virtual interface or unknown serial device
	Low Confidence = iota
	// Medium confidence - physical NIC or known USB bridge
	Medium
	// High confidence - physical NIC with carrier or bridge that opened
	High
)

func (c Confidence) String() string {
	switch c {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return "unknown"
	}
}

// Link types reported in AdapterInfo.Link
const (
	LinkRawSocket = "rawsock"
	LinkSerial    = "serial"
)

// AdapterInfo represents a detected network adapter or serial bridge
type AdapterInfo struct {
	// Additional metadata (e.g., MAC address, VID:PID, operstate)
	Metadata map[string]string
	// Link type: "rawsock" or "serial"
	Link string
	// Interface name or serial device path (e.g., "eth0", "/dev/ttyACM0")
	Path string
	// Human-readable description
	Name string
	// Detection confidence level
	Confidence Confidence
}

// String returns a human-readable representation of the adapter
func (a AdapterInfo) String() string {
	return fmt.Sprintf("%s adapter at %s (confidence: %s)", a.Link, a.Path, a.Confidence)
}

// Options configures the detection behavior
type Options struct {
	// USB VID:PID pairs to skip (e.g., ["1234:5678", "ABCD:EF01"])
	Blocklist []string
	// Interface names or device paths to ignore (e.g., ["docker0", "/dev/ttyS0"])
	IgnorePaths []string
	// Which link types to check (empty = all)
	Links []string
	// Cache TTL duration
	CacheTTL time.Duration
	// Maximum time to wait for detection
	Timeout time.Duration
	// Detection invasiveness level
	Mode Mode
	// Enable result caching
	EnableCache bool
}

// DefaultOptions returns sensible default detection options
func DefaultOptions() Options {
	return Options{
		Mode:        Safe,
		Timeout:     5 * time.Second,
		Blocklist:   DefaultBlocklist(),
		EnableCache: true,
		CacheTTL:    30 * time.Second,
	}
}

// Detector interface for link-specific adapter detection
type Detector interface {
	// Detect searches for adapters using the given options
	Detect(ctx context.Context, opts *Options) ([]AdapterInfo, error)
	// Link returns the link type this detector handles
	Link() string
}

// Errors
var (
	// ErrNoAdaptersFound indicates no usable adapters were detected
	ErrNoAdaptersFound = errors.New("no adapters found")
	// ErrDetectionTimeout indicates detection timed out
	ErrDetectionTimeout = errors.New("detection timeout")
	// ErrUnsupportedPlatform indicates the platform doesn't support this detection method
	ErrUnsupportedPlatform = errors.New("platform not supported")
)

// registry holds all registered detectors
var registry []Detector

// RegisterDetector adds a detector to the registry
func RegisterDetector(d Detector) {
	registry = append(registry, d)
}

// getDetectors returns detectors filtered by link types
func getDetectors(links []string) []Detector {
	if len(links) == 0 {
		return registry
	}

	var filtered []Detector
	for _, d := range registry {
		for _, l := range links {
			if d.Link() == l {
				filtered = append(filtered, d)
				break
			}
		}
	}
	return filtered
}

type detectionResult struct {
	err      error
	adapters []AdapterInfo
}

// DetectAll runs every registered detector in parallel and returns the
// adapters found, most likely first within each detector
func DetectAll(ctx context.Context, opts *Options) ([]AdapterInfo, error) {
	detectors := getDetectors(opts.Links)
	if len(detectors) == 0 {
		return nil, errors.New("no detectors available for specified link types")
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	results := make(chan detectionResult, len(detectors))
	for _, detector := range detectors {
		go func(d Detector) {
			results <- runSingleDetector(ctx, d, opts)
		}(detector)
	}
	return collectDetectionResults(ctx, results, len(detectors))
}

// runSingleDetector performs detection for a single detector
func runSingleDetector(ctx context.Context, detector Detector, opts *Options) detectionResult {
	if opts.EnableCache {
		if cached, found := getCached(detector.Link(), opts.Mode, opts.CacheTTL); found {
			// cached results bypass Detect, so filter them again
			return detectionResult{adapters: FilterAdapters(cached, opts)}
		}
	}

	adapters, err := detector.Detect(ctx, opts)
	if err != nil && !errors.Is(err, ErrNoAdaptersFound) {
		return detectionResult{err: err}
	}

	if opts.EnableCache {
		if len(adapters) > 0 {
			setCached(detector.Link(), opts.Mode, adapters)
		} else {
			// an unplugged adapter must not linger until the TTL expires
			clearCacheForLink(detector.Link())
		}
	}

	return detectionResult{adapters: adapters}
}

// collectDetectionResults gathers results from all detector goroutines
func collectDetectionResults(
	ctx context.Context,
	results chan detectionResult,
	numDetectors int,
) ([]AdapterInfo, error) {
	var all []AdapterInfo
	var errs []error

	for range numDetectors {
		select {
		case res := <-results:
			if res.err != nil {
				errs = append(errs, res.err)
			} else {
				all = append(all, res.adapters...)
			}
		case <-ctx.Done():
			return nil, ErrDetectionTimeout
		}
	}

	// Return adapters even if some detectors failed
	if len(all) > 0 {
		return all, nil
	}
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return nil, ErrNoAdaptersFound
}

// FilterAdapters applies IgnorePaths and Blocklist filtering to an adapter list.
func FilterAdapters(adapters []AdapterInfo, opts *Options) []AdapterInfo {
	if len(opts.IgnorePaths) == 0 && len(opts.Blocklist) == 0 {
		return adapters
	}

	var filtered []AdapterInfo
	for _, adapter := range adapters {
		if IsPathIgnored(adapter.Path, opts.IgnorePaths) {
			continue
		}
		if vidpid, ok := adapter.Metadata["vidpid"]; ok && IsBlocked(vidpid, opts.Blocklist) {
			continue
		}
		filtered = append(filtered, adapter)
	}
	return filtered
}

// ClearDetectionCache removes all cached detection results
func ClearDetectionCache() {
	clearCache()
}
