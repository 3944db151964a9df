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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/ZaparooProject/go-ecatnic"
	"github.com/ZaparooProject/go-ecatnic/internal/frame"
)

// probeDataLen is the BRD payload; slaves answer with their type register.
const probeDataLen = 2

// probeStats accumulates the outcome of every probe in a run.
type probeStats struct {
	Started    time.Time     `json:"started"`
	Finished   time.Time     `json:"finished"`
	WKCCounts  map[int]int   `json:"wkc_counts"`
	Failures   []probeFailed `json:"failures,omitempty"`
	Sent       int           `json:"sent"`
	Answered   int           `json:"answered"`
	RingIntact int           `json:"ring_intact"`
	LastWKC    int           `json:"last_wkc"`
	WKCChanges int           `json:"wkc_changes"`
	Redundant  bool          `json:"redundant"`

	rtts []time.Duration
}

// probeFailed records a probe without reply and the frames seen for it.
type probeFailed struct {
	Time  time.Time `json:"time"`
	Error string    `json:"error"`
	Trace []string  `json:"trace,omitempty"`
	Seq   int       `json:"seq"`
}

// maxRecordedFailures bounds the report size on a dead link.
const maxRecordedFailures = 32

func newProbeStats(redundant bool) *probeStats {
	return &probeStats{
		Started:   time.Now(),
		WKCCounts: make(map[int]int),
		LastWKC:   -1,
		Redundant: redundant,
	}
}

func (s *probeStats) record(wkc int, rtt time.Duration, ringIntact bool) {
	s.Sent++
	s.Answered++
	s.WKCCounts[wkc]++
	s.rtts = append(s.rtts, rtt)
	if ringIntact {
		s.RingIntact++
	}
	if s.LastWKC >= 0 && wkc != s.LastWKC {
		s.WKCChanges++
	}
	s.LastWKC = wkc
}

func (s *probeStats) recordFailure(seq int, err error) {
	s.Sent++
	if len(s.Failures) >= maxRecordedFailures {
		return
	}
	failed := probeFailed{Seq: seq, Time: time.Now(), Error: err.Error()}
	if te := ecatnic.GetTrace(err); te != nil {
		for _, entry := range te.Trace {
			failed.Trace = append(failed.Trace, entry.String())
		}
	}
	s.Failures = append(s.Failures, failed)
}

func (s *probeStats) lost() int {
	return s.Sent - s.Answered
}

// percentile returns the q-quantile of the recorded round trips.
func (s *probeStats) percentile(q float64) time.Duration {
	if len(s.rtts) == 0 {
		return 0
	}
	sorted := slices.Clone(s.rtts)
	slices.Sort(sorted)
	i := int(q * float64(len(sorted)-1))
	return sorted[i]
}

func (s *probeStats) mean() time.Duration {
	if len(s.rtts) == 0 {
		return 0
	}
	var sum time.Duration
	for _, rtt := range s.rtts {
		sum += rtt
	}
	return sum / time.Duration(len(s.rtts))
}

func (s *probeStats) print(out io.Writer) {
	_, _ = fmt.Fprintf(out, "\n%d probes, %d answered, %d lost\n", s.Sent, s.Answered, s.lost())
	if s.Answered == 0 {
		return
	}

	wkcs := make([]int, 0, len(s.WKCCounts))
	for wkc := range s.WKCCounts {
		wkcs = append(wkcs, wkc)
	}
	slices.Sort(wkcs)
	for _, wkc := range wkcs {
		_, _ = fmt.Fprintf(out, "  WKC %d: %d\n", wkc, s.WKCCounts[wkc])
	}
	if s.WKCChanges > 0 {
		_, _ = fmt.Fprintf(out, "  slave count changed %d times\n", s.WKCChanges)
	}
	if s.Redundant {
		_, _ = fmt.Fprintf(out, "  ring intact on %d/%d replies\n", s.RingIntact, s.Answered)
	}
	_, _ = fmt.Fprintf(out, "  rtt min %v  mean %v  p99 %v  max %v\n",
		s.percentile(0), s.mean(), s.percentile(0.99), s.percentile(1))
}

// report is the JSON form written with -report.
type report struct {
	*probeStats
	RTTMin  string `json:"rtt_min"`
	RTTMean string `json:"rtt_mean"`
	RTTP99  string `json:"rtt_p99"`
	RTTMax  string `json:"rtt_max"`
	Lost    int    `json:"lost"`
}

func (s *probeStats) writeReport(path string) error {
	s.Finished = time.Now()
	data, err := json.MarshalIndent(report{
		probeStats: s,
		RTTMin:     s.percentile(0).String(),
		RTTMean:    s.mean().String(),
		RTTP99:     s.percentile(0.99).String(),
		RTTMax:     s.percentile(1).String(),
		Lost:       s.lost(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// probeOnce broadcasts one BRD and waits for it to come back.
func probeOnce(
	ctx context.Context,
	port *ecatnic.Port,
	timeout time.Duration,
) (wkc int, rtt time.Duration, ringIntact bool, err error) {
	idx, err := port.TryGetIndex()
	if err != nil {
		return 0, 0, false, err
	}
	defer port.Release(idx)

	if _, err := port.SetDatagram(idx, frame.CmdBRD, 0, 0, make([]byte, probeDataLen)); err != nil {
		return 0, 0, false, fmt.Errorf("failed to build probe: %w", err)
	}

	start := time.Now()
	wkc, err = port.SRConfirmContext(ctx, idx, timeout)
	rtt = time.Since(start)
	if err != nil {
		return 0, rtt, false, err
	}

	ringIntact = port.RedState() == ecatnic.RedDouble && port.Route(idx) == ecatnic.RouteLooped
	return wkc, rtt, ringIntact, nil
}

// probeLoop sends cfg.count probes, or probes until ctx ends when count is 0.
func probeLoop(ctx context.Context, port *ecatnic.Port, cfg *config, stats *probeStats, out io.Writer) error {
	for seq := 0; cfg.count == 0 || seq < cfg.count; seq++ {
		if seq > 0 && cfg.interval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(cfg.interval):
			}
		}

		wkc, rtt, ringIntact, err := probeOnce(ctx, port, cfg.timeout)
		switch {
		case errors.Is(err, context.Canceled):
			return err
		case errors.Is(err, ecatnic.ErrNoFrame):
			stats.recordFailure(seq, err)
			_, _ = fmt.Fprintf(out, "probe %d: no reply within %v\n", seq, cfg.timeout)
			if cfg.debug {
				if te := ecatnic.GetTrace(err); te != nil {
					_, _ = fmt.Fprint(out, te.FormatTrace())
				}
			}
		case err != nil:
			return fmt.Errorf("probe %d: %w", seq, err)
		default:
			stats.record(wkc, rtt, ringIntact)
			_, _ = fmt.Fprintf(out, "probe %d: %d slaves, rtt %v\n", seq, wkc, rtt)
		}
	}
	return nil
}
