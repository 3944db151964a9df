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
	"context"
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-ecatnic/detection"
)

// LinkFactory opens the link for a path: a network interface name or a
// serial device, depending on the factory
type LinkFactory func(path string) (Link, error)

// AdapterLinkFactory opens the link for a detected adapter
type AdapterLinkFactory func(adapter detection.AdapterInfo) (Link, error)

// ConnectOption represents a functional option for Connect
type ConnectOption func(*connectConfig) error

// connectConfig holds configuration options for port connection
type connectConfig struct {
	linkFactory       LinkFactory
	adapterFactory    AdapterLinkFactory
	detector          func(context.Context, *detection.Options) ([]detection.AdapterInfo, error)
	secondary         string
	portOptions       []Option
	connectionRetries int
	autoDetect        bool
}

// WithAutoDetection picks the first detected adapter instead of a path
func WithAutoDetection() ConnectOption {
	return func(c *connectConfig) error {
		c.autoDetect = true
		return nil
	}
}

// WithPortOptions adds port-level options
func WithPortOptions(opts ...Option) ConnectOption {
	return func(c *connectConfig) error {
		c.portOptions = append(c.portOptions, opts...)
		return nil
	}
}

// WithLinkFactory sets the link factory used for explicit paths
func WithLinkFactory(factory LinkFactory) ConnectOption {
	return func(c *connectConfig) error {
		c.linkFactory = factory
		return nil
	}
}

// WithAdapterLinkFactory sets the link factory used for detected adapters
func WithAdapterLinkFactory(factory AdapterLinkFactory) ConnectOption {
	return func(c *connectConfig) error {
		c.adapterFactory = factory
		return nil
	}
}

// WithAdapterDetector replaces detection.DetectAll for auto-detection
func WithAdapterDetector(
	detector func(context.Context, *detection.Options) ([]detection.AdapterInfo, error),
) ConnectOption {
	return func(c *connectConfig) error {
		c.detector = detector
		return nil
	}
}

// WithSecondary opens a second link on path and runs the port redundant
func WithSecondary(path string) ConnectOption {
	return func(c *connectConfig) error {
		if path == "" {
			return fmt.Errorf("%w: empty secondary path", ErrInvalidParameter)
		}
		c.secondary = path
		return nil
	}
}

// WithConnectionRetries sets the number of attempts to open each link
func WithConnectionRetries(maxAttempts int) ConnectOption {
	return func(c *connectConfig) error {
		if maxAttempts < 1 {
			return fmt.Errorf("connection retries must be at least 1, got %d", maxAttempts)
		}
		c.connectionRetries = maxAttempts
		return nil
	}
}

func applyConnectOptions(opts []ConnectOption) (*connectConfig, error) {
	config := &connectConfig{
		connectionRetries: DefaultConnectionRetries,
	}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, fmt.Errorf("failed to apply connect option: %w", err)
		}
	}

	return config, nil
}

// OpenLink opens a link through factory, retrying transient failures with
// the default connection backoff
func OpenLink(ctx context.Context, path string, factory LinkFactory, retries int) (Link, error) {
	if factory == nil {
		return nil, errors.New("link factory not provided")
	}

	retryConfig := DefaultRetryConfig()
	retryConfig.MaxAttempts = retries

	var link Link
	err := RetryWithConfig(ctx, retryConfig, func() error {
		var err error
		link, err = factory(path)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open link %s after %d attempts: %w", path, retries, err)
	}
	return link, nil
}

// Connect opens the primary link on path, plus the secondary link when
// WithSecondary is given, creates the port and binds both paths.
//
// Example usage:
//
//	port, err := ecatnic.Connect(ctx, "eth0",
//	    ecatnic.WithLinkFactory(rawsock.Open),
//	    ecatnic.WithSecondary("eth1"))
//
//	// Auto-detect the adapter
//	port, err := ecatnic.Connect(ctx, "", ecatnic.WithAutoDetection(),
//	    ecatnic.WithAdapterLinkFactory(openAdapter))
func Connect(ctx context.Context, path string, opts ...ConnectOption) (*Port, error) {
	config, err := applyConnectOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to apply connect options: %w", err)
	}

	portOpts := config.portOptions
	if config.secondary != "" {
		portOpts = append(portOpts, WithRedundancy())
	}
	port, err := NewPort(portOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create port: %w", err)
	}

	primary, err := createPrimaryLink(ctx, path, config)
	if err != nil {
		return nil, err
	}
	if err := port.Setup(primary, Primary); err != nil {
		_ = primary.Close()
		return nil, fmt.Errorf("failed to set up primary path: %w", err)
	}

	if config.secondary != "" {
		secondary, err := OpenLink(ctx, config.secondary, config.linkFactory, config.connectionRetries)
		if err != nil {
			_ = port.Close()
			return nil, err
		}
		if err := port.Setup(secondary, Secondary); err != nil {
			_ = secondary.Close()
			_ = port.Close()
			return nil, fmt.Errorf("failed to set up secondary path: %w", err)
		}
	}

	return port, nil
}

func createPrimaryLink(ctx context.Context, path string, config *connectConfig) (Link, error) {
	if config.autoDetect || path == "" {
		return createAutoDetectedLink(ctx, config)
	}
	return OpenLink(ctx, path, config.linkFactory, config.connectionRetries)
}

// createAutoDetectedLink opens the first detected adapter. Detection probes
// are a single attempt; there is no retry here.
func createAutoDetectedLink(ctx context.Context, config *connectConfig) (Link, error) {
	opts := detection.DefaultOptions()
	opts.Mode = detection.Safe

	detect := config.detector
	if detect == nil {
		detect = detection.DetectAll
	}

	adapters, err := detect(ctx, &opts)
	if err != nil {
		return nil, fmt.Errorf("failed to detect adapters: %w", err)
	}
	if len(adapters) == 0 {
		return nil, detection.ErrNoAdaptersFound
	}
	if config.adapterFactory == nil {
		return nil, errors.New("adapter link factory not provided")
	}

	Debugf("auto-detected %s", adapters[0])
	link, err := config.adapterFactory(adapters[0])
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", adapters[0].Path, err)
	}
	return link, nil
}
