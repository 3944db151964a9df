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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const sessionTimeFormat = "15:04:05.000"

var (
	sessionLogFile   *os.File
	sessionLogPath   string
	sessionLogWriter io.Writer
	// ports described in the log, reported again on close
	sessionPorts []*Port
)

// InitSessionLog creates ecatnic_<date>_<time>.log in dir (the current
// directory when empty), writes the host and timing header and returns the
// file path. Debug output goes to the file until CloseSessionLog.
func InitSessionLog(dir string) (string, error) {
	name := filepath.Join(dir, fmt.Sprintf("ecatnic_%s.log", time.Now().Format("20060102_150405")))

	f, err := os.Create(name) //nolint:gosec // name is built from dir and a timestamp
	if err != nil {
		return "", fmt.Errorf("failed to create session log: %w", err)
	}

	sessionLogFile = f
	sessionLogPath = name
	sessionLogWriter = f
	sessionPorts = nil

	writeSessionHeader(f)
	return name, nil
}

// LogPort records how p is set up: pool size, redundancy state, timing and
// the link bound to each path. Ports logged here get their final slot and
// redundancy state written when the session closes. It is a no-op without
// an open session log.
func LogPort(p *Port) {
	if sessionLogWriter == nil || p == nil {
		return
	}
	sessionPorts = append(sessionPorts, p)

	w := sessionLogWriter
	ts := time.Now().Format(sessionTimeFormat)
	_, _ = fmt.Fprintf(w, "%s port %s: %d slots, redundancy %s, retry %v, poll %v\n",
		ts, p.Name(), p.PoolSize(), p.RedState(), p.config.RetryTimeout, p.config.PollInterval)
	for _, path := range []Path{Primary, Secondary} {
		if link := p.Link(path); link != nil {
			_, _ = fmt.Fprintf(w, "%s   %s path: %s link\n", ts, path, link.Type())
		}
	}
}

// CloseSessionLog writes the closing port summary and closes the file.
func CloseSessionLog() error {
	if sessionLogFile == nil {
		return nil
	}

	ts := time.Now().Format(sessionTimeFormat)
	for _, p := range sessionPorts {
		busy := 0
		for i := range p.PoolSize() {
			if p.BufStatus(Primary, uint8(i)) != BufEmpty {
				busy++
			}
		}
		_, _ = fmt.Fprintf(sessionLogWriter, "%s port %s closing: redundancy %s, %d/%d slots busy\n",
			ts, p.Name(), p.RedState(), busy, p.PoolSize())
	}
	_, _ = fmt.Fprintf(sessionLogWriter, "\n%s === Session ended ===\n", ts)

	err := sessionLogFile.Close()
	sessionLogFile = nil
	sessionLogPath = ""
	sessionLogWriter = nil
	sessionPorts = nil
	if err != nil {
		return fmt.Errorf("failed to close session log: %w", err)
	}
	return nil
}

// GetSessionLogPath returns the path of the open session log, or "".
func GetSessionLogPath() string {
	return sessionLogPath
}

func writeSessionHeader(w io.Writer) {
	_, _ = fmt.Fprint(w, "=== EtherCAT NIC Session Log ===\n")
	_, _ = fmt.Fprintf(w, "Started: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(w, "PID: %d\n", os.Getpid())
	_, _ = fmt.Fprintf(w, "Host: %s/%s, %s\n", runtime.GOOS, runtime.GOARCH, runtime.Version())
	_, _ = fmt.Fprintf(w, "Command Line: %s\n", strings.Join(os.Args, " "))
	_, _ = fmt.Fprintf(w, "Timeouts: retry %v, safe %v\n", TimeoutRet, TimeoutSafe)
	_, _ = fmt.Fprint(w, "================================\n\n")
}
