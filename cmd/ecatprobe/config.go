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

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// fileConfig is the on-disk form of the probe settings. Keys left out of the
// file keep their flag or default value.
type fileConfig struct {
	Primary     string   `toml:"primary"`
	Secondary   string   `toml:"secondary"`
	Timeout     string   `toml:"timeout"`
	Interval    string   `toml:"interval"`
	Report      string   `toml:"report"`
	IgnorePaths []string `toml:"ignore_paths"`
	Count       int      `toml:"count"`
	PoolSize    int      `toml:"pool_size"`
	Debug       bool     `toml:"debug"`
	SessionLog  bool     `toml:"session_log"`
}

// loadConfigFile overlays the keys defined in the TOML file at path on cfg.
func loadConfigFile(path string, cfg *config) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load probe config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load probe config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("primary") {
		cfg.primary = strings.TrimSpace(raw.Primary)
	}
	if meta.IsDefined("secondary") {
		cfg.secondary = strings.TrimSpace(raw.Secondary)
	}
	if meta.IsDefined("timeout") {
		if cfg.timeout, err = parseDuration("timeout", raw.Timeout); err != nil {
			return err
		}
	}
	if meta.IsDefined("interval") {
		if cfg.interval, err = parseDuration("interval", raw.Interval); err != nil {
			return err
		}
	}
	if meta.IsDefined("report") {
		cfg.report = strings.TrimSpace(raw.Report)
	}
	if meta.IsDefined("ignore_paths") {
		cfg.ignorePaths = raw.IgnorePaths
	}
	if meta.IsDefined("count") {
		cfg.count = raw.Count
	}
	if meta.IsDefined("pool_size") {
		cfg.poolSize = raw.PoolSize
	}
	if meta.IsDefined("debug") {
		cfg.debug = raw.Debug
	}
	if meta.IsDefined("session_log") {
		cfg.sessionLog = raw.SessionLog
	}

	return cfg.validate()
}

func parseDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("load probe config: %s: %w", key, err)
	}
	return d, nil
}
