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

// Command ecatprobe opens an EtherCAT port, broadcasts BRD datagrams and
// reports how many slaves answered and how long the round trip took.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ZaparooProject/go-ecatnic"
	"github.com/ZaparooProject/go-ecatnic/detection"
	_ "github.com/ZaparooProject/go-ecatnic/detection/netif"
	_ "github.com/ZaparooProject/go-ecatnic/detection/uart"
	"github.com/ZaparooProject/go-ecatnic/link/rawsock"
	"github.com/ZaparooProject/go-ecatnic/link/uart"
)

type config struct {
	primary     string
	secondary   string
	report      string
	ignorePaths []string
	timeout     time.Duration
	interval    time.Duration
	count       int
	poolSize    int
	list        bool
	debug       bool
	sessionLog  bool
}

// Package-level flag variables
var (
	flagConfig     string
	flagPrimary    string
	flagSecondary  string
	flagReport     string
	flagTimeout    time.Duration
	flagInterval   time.Duration
	flagCount      int
	flagPoolSize   int
	flagList       bool
	flagDebug      bool
	flagSessionLog bool
)

func init() {
	flag.StringVar(&flagConfig, "config", "", "TOML file with probe settings (overrides flags)")
	flag.StringVar(&flagPrimary, "primary", "", "Interface or serial bridge for the primary path (auto-detect if empty)")
	flag.StringVar(&flagSecondary, "secondary", "", "Interface or serial bridge for the redundant path")
	flag.StringVar(&flagReport, "report", "", "Write a JSON summary to this file")
	flag.DurationVar(&flagTimeout, "timeout", ecatnic.TimeoutSafe, "Overall timeout per probe")
	flag.DurationVar(&flagInterval, "interval", 100*time.Millisecond, "Delay between probes")
	flag.IntVar(&flagCount, "count", 1, "Number of probes to send (0 = until interrupted)")
	flag.IntVar(&flagPoolSize, "pool-size", ecatnic.DefaultPoolSize, "Frame slots per port")
	flag.BoolVar(&flagList, "list", false, "List detected adapters and exit")
	flag.BoolVar(&flagDebug, "debug", false, "Enable debug output")
	flag.BoolVar(&flagSessionLog, "session-log", false, "Write debug output to a session log in the working directory")
}

func parseConfig() (*config, error) {
	cfg := &config{
		primary:    flagPrimary,
		secondary:  flagSecondary,
		report:     flagReport,
		timeout:    flagTimeout,
		interval:   flagInterval,
		count:      flagCount,
		poolSize:   flagPoolSize,
		list:       flagList,
		debug:      flagDebug,
		sessionLog: flagSessionLog,
	}

	if flagConfig != "" {
		if err := loadConfigFile(flagConfig, cfg); err != nil {
			return nil, err
		}
	} else if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.debug {
		ecatnic.SetDebugEnabled(true)
	}
	return cfg, nil
}

func (c *config) validate() error {
	switch {
	case c.timeout <= 0:
		return fmt.Errorf("timeout must be positive, got %v", c.timeout)
	case c.interval < 0:
		return fmt.Errorf("interval must not be negative, got %v", c.interval)
	case c.count < 0:
		return fmt.Errorf("count must not be negative, got %d", c.count)
	case c.poolSize < 1 || c.poolSize > ecatnic.MaxPoolSize:
		return fmt.Errorf("pool size must be in 1..%d, got %d", ecatnic.MaxPoolSize, c.poolSize)
	case c.secondary != "" && c.secondary == c.primary:
		return errors.New("primary and secondary must differ")
	}
	return nil
}

// isSerialPath tells serial bridges from network interface names.
func isSerialPath(path string) bool {
	return strings.HasPrefix(path, "/dev/") || strings.HasPrefix(strings.ToUpper(path), "COM")
}

// openLink opens a path with the link matching its form.
func openLink(path string) (ecatnic.Link, error) {
	if path == "" {
		return nil, errors.New("empty link path")
	}
	if isSerialPath(path) {
		link, err := uart.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open serial bridge %s: %w", path, err)
		}
		return link, nil
	}
	link, err := rawsock.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open raw socket %s: %w", path, err)
	}
	return link, nil
}

// openAdapterLink opens a detected adapter.
func openAdapterLink(adapter detection.AdapterInfo) (ecatnic.Link, error) {
	switch adapter.Link {
	case detection.LinkRawSocket:
		return rawsock.Open(adapter.Path)
	case detection.LinkSerial:
		return uart.Open(adapter.Path)
	default:
		return nil, fmt.Errorf("unsupported link type: %s", adapter.Link)
	}
}

func listAdapters(ctx context.Context, out io.Writer, cfg *config) error {
	opts := detection.DefaultOptions()
	opts.Mode = detection.Passive
	opts.EnableCache = false
	opts.IgnorePaths = cfg.ignorePaths

	adapters, err := detection.DetectAll(ctx, &opts)
	if err != nil {
		return fmt.Errorf("failed to detect adapters: %w", err)
	}
	for _, adapter := range adapters {
		_, _ = fmt.Fprintf(out, "%-8s %-20s %-8s %s\n",
			adapter.Link, adapter.Path, adapter.Confidence, adapter.Name)
	}
	return nil
}

func portName(cfg *config) string {
	if cfg.primary == "" {
		return "auto"
	}
	return cfg.primary
}

func connectPort(ctx context.Context, cfg *config) (*ecatnic.Port, error) {
	connectOpts := []ecatnic.ConnectOption{
		ecatnic.WithLinkFactory(openLink),
		ecatnic.WithAdapterLinkFactory(openAdapterLink),
		ecatnic.WithPortOptions(
			ecatnic.WithPoolSize(cfg.poolSize),
			ecatnic.WithTrace(16),
			ecatnic.WithName(portName(cfg)),
		),
	}
	if cfg.primary == "" {
		connectOpts = append(connectOpts, ecatnic.WithAutoDetection())
		if cfg.debug {
			_, _ = fmt.Println("Auto-detecting EtherCAT adapters...")
		}
	}
	if cfg.secondary != "" {
		connectOpts = append(connectOpts, ecatnic.WithSecondary(cfg.secondary))
	}

	port, err := ecatnic.Connect(ctx, cfg.primary, connectOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return port, nil
}

func run(ctx context.Context, cfg *config) error {
	if cfg.list {
		return listAdapters(ctx, os.Stdout, cfg)
	}

	port, err := connectPort(ctx, cfg)
	if err != nil {
		return err
	}
	ecatnic.LogPort(port)
	defer func() {
		if err := port.Close(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to close port: %v\n", err)
		}
	}()

	stats := newProbeStats(port.RedState() == ecatnic.RedDouble)
	runErr := probeLoop(ctx, port, cfg, stats, os.Stdout)
	stats.print(os.Stdout)

	if cfg.report != "" {
		if err := stats.writeReport(cfg.report); err != nil {
			return err
		}
		_, _ = fmt.Printf("Report written to %s\n", cfg.report)
	}
	return runErr
}

func main() {
	flag.Parse()
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	cfg, err := parseConfig()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	if cfg.sessionLog {
		path, err := ecatnic.InitSessionLog(".")
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		_, _ = fmt.Printf("Session log: %s\n", path)
		defer func() { _ = ecatnic.CloseSessionLog() }()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		_, _ = fmt.Print("\nShutting down gracefully...\n")
		cancel()
	}()

	if err := run(ctx, cfg); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
