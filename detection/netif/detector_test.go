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

//nolint:paralleltest // Tests replace package-level host hooks
package netif

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/ZaparooProject/go-ecatnic/detection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIface struct {
	operstate string
	driver    string
	carrier   bool
	physical  bool
}

// fakeHost points the detector at a temporary sysfs tree.
func fakeHost(t *testing.T, ifaces []net.Interface, state map[string]fakeIface) {
	t.Helper()

	root := t.TempDir()
	for name, st := range state {
		dir := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(dir, 0o750))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "operstate"), []byte(st.operstate+"\n"), 0o600))
		carrier := "0\n"
		if st.carrier {
			carrier = "1\n"
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, "carrier"), []byte(carrier), 0o600))
		if st.physical {
			require.NoError(t, os.MkdirAll(filepath.Join(dir, "device"), 0o750))
			if st.driver != "" {
				target := filepath.Join("..", "..", "bus", "pci", "drivers", st.driver)
				require.NoError(t, os.Symlink(target, filepath.Join(dir, "device", "driver")))
			}
		}
	}

	origList, origRoot := listInterfaces, sysfsRoot
	listInterfaces = func() ([]net.Interface, error) { return ifaces, nil }
	sysfsRoot = root
	t.Cleanup(func() {
		listInterfaces, sysfsRoot = origList, origRoot
	})
}

func mac(last byte) net.HardwareAddr {
	return net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, last}
}

func testInterfaces() []net.Interface {
	return []net.Interface{
		{Name: "lo", Flags: net.FlagUp | net.FlagLoopback},
		{Name: "veth0", HardwareAddr: mac(3), Flags: net.FlagUp},
		{Name: "eth1", HardwareAddr: mac(2)},
		{Name: "eth0", HardwareAddr: mac(1), Flags: net.FlagUp},
		{Name: "tun0", Flags: net.FlagUp | net.FlagPointToPoint},
	}
}

func testState() map[string]fakeIface {
	return map[string]fakeIface{
		"eth0":  {operstate: "up", carrier: true, physical: true, driver: "e1000e"},
		"eth1":  {operstate: "down", physical: true, driver: "igb"},
		"veth0": {operstate: "up", carrier: true},
	}
}

func TestDetect_SafeModeRanksPhysicalWithCarrier(t *testing.T) {
	fakeHost(t, testInterfaces(), testState())

	opts := detection.DefaultOptions()
	adapters, err := New().Detect(context.Background(), &opts)
	require.NoError(t, err)
	require.Len(t, adapters, 3)

	assert.Equal(t, "eth0", adapters[0].Path)
	assert.Equal(t, detection.High, adapters[0].Confidence)
	assert.Equal(t, "e1000e", adapters[0].Metadata["driver"])
	assert.Equal(t, "eth0 (e1000e)", adapters[0].Name)
	assert.Equal(t, "02:00:00:00:00:01", adapters[0].Metadata["mac"])

	assert.Equal(t, "eth1", adapters[1].Path)
	assert.Equal(t, detection.Medium, adapters[1].Confidence)
	assert.Equal(t, "down", adapters[1].Metadata["operstate"])

	assert.Equal(t, "veth0", adapters[2].Path)
	assert.Equal(t, detection.Low, adapters[2].Confidence)
	assert.Equal(t, detection.LinkRawSocket, adapters[2].Link)
}

func TestDetect_PassiveModeUsesFlagsOnly(t *testing.T) {
	fakeHost(t, testInterfaces(), nil)

	opts := detection.Options{Mode: detection.Passive}
	adapters, err := New().Detect(context.Background(), &opts)
	require.NoError(t, err)
	require.Len(t, adapters, 3)

	assert.Equal(t, detection.Medium, adapters[0].Confidence)
	assert.Equal(t, detection.Low, adapters[2].Confidence)
	assert.Equal(t, "eth1", adapters[2].Path, "down interface ranks last")
	assert.NotContains(t, adapters[0].Metadata, "operstate")
}

func TestDetect_FullModeRequiresCarrier(t *testing.T) {
	fakeHost(t, testInterfaces(), testState())

	opts := detection.Options{Mode: detection.Full}
	adapters, err := New().Detect(context.Background(), &opts)
	require.NoError(t, err)
	require.Len(t, adapters, 2)
	assert.Equal(t, "eth0", adapters[0].Path)
	assert.Equal(t, "veth0", adapters[1].Path)
}

func TestDetect_IgnorePaths(t *testing.T) {
	fakeHost(t, testInterfaces(), testState())

	opts := detection.Options{Mode: detection.Safe, IgnorePaths: []string{"veth0", "eth1"}}
	adapters, err := New().Detect(context.Background(), &opts)
	require.NoError(t, err)
	require.Len(t, adapters, 1)
	assert.Equal(t, "eth0", adapters[0].Path)
}

func TestDetect_NoEthernet(t *testing.T) {
	fakeHost(t, []net.Interface{{Name: "lo", Flags: net.FlagLoopback}}, nil)

	opts := detection.DefaultOptions()
	_, err := New().Detect(context.Background(), &opts)
	require.ErrorIs(t, err, detection.ErrNoAdaptersFound)
}

func TestDetect_Cancelled(t *testing.T) {
	fakeHost(t, testInterfaces(), testState())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := detection.DefaultOptions()
	_, err := New().Detect(ctx, &opts)
	require.ErrorIs(t, err, context.Canceled)
}

func TestLink(t *testing.T) {
	assert.Equal(t, detection.LinkRawSocket, New().Link())
}
