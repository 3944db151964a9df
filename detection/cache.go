// go-ecatnic
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-ecatnic.
//
// go-ecatnic is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-ecatnic is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-ecatnic; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package detection

import (
	"time"

	"github.com/ZaparooProject/go-ecatnic/internal/syncutil"
)

// scan is the outcome of one detector run kept for reuse. The mode is
// remembered because a Passive listing has not checked link state or
// opened anything, so it must not answer a Safe or Full request.
type scan struct {
	at       time.Time
	adapters []AdapterInfo
	mode     Mode
}

// scanCache holds the last scan per link type
type scanCache struct {
	scans map[string]scan
	mu    syncutil.RWMutex
}

var cache = &scanCache{scans: make(map[string]scan)}

// getCached returns a copy of the adapters last found for link when the scan
// is younger than ttl and was at least as thorough as mode.
func getCached(link string, mode Mode, ttl time.Duration) ([]AdapterInfo, bool) {
	cache.mu.RLock()
	defer cache.mu.RUnlock()

	s, ok := cache.scans[link]
	if !ok || s.mode < mode || time.Since(s.at) > ttl {
		return nil, false
	}
	return append([]AdapterInfo(nil), s.adapters...), true
}

func setCached(link string, mode Mode, adapters []AdapterInfo) {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	cache.scans[link] = scan{
		at:       time.Now(),
		adapters: append([]AdapterInfo(nil), adapters...),
		mode:     mode,
	}
}

func clearCache() {
	cache.mu.Lock()
	cache.scans = make(map[string]scan)
	cache.mu.Unlock()
}

// clearCacheForLink forgets the last scan of one link type
func clearCacheForLink(link string) {
	cache.mu.Lock()
	delete(cache.scans, link)
	cache.mu.Unlock()
}
