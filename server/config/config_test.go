// config_test.go - Storage node configuration tests.
// Copyright (C) 2017  Yawning Angel
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadRejectsLoopbackBind(t *testing.T) {
	_, err := Load([]byte(`
[server]
ip = "127.0.0.1"
data_dir = "/var/lib/storage-server"
`))
	require.Error(t, err)
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load([]byte(`
[server]
ip = "203.0.113.5"
data_dir = "/var/lib/storage-server"
`))
	require.NoError(t, err)
	require.EqualValues(t, defaultPort, cfg.Server.Port)
	require.EqualValues(t, defaultBusPort, cfg.Server.BusPort)
	require.Equal(t, "NOTICE", cfg.Logging.Level)
	require.Equal(t, "/var/lib/storage-server/key_legacy", cfg.Keys.Legacy)
}

func TestLoadRejectsMissingServerBlock(t *testing.T) {
	_, err := Load([]byte(``))
	require.Error(t, err)
}

func TestLoadRejectsSamePortAndBusPort(t *testing.T) {
	_, err := Load([]byte(`
[server]
ip = "203.0.113.5"
data_dir = "/var/lib/storage-server"
port = 22021
bus_port = 22021
`))
	require.Error(t, err)
}

func TestLoadRejectsRelativeDataDir(t *testing.T) {
	_, err := Load([]byte(`
[server]
ip = "203.0.113.5"
data_dir = "relative/path"
`))
	require.Error(t, err)
}

func TestLoadBindsFullDocumentedSurface(t *testing.T) {
	cfg, err := Load([]byte(`
stats_access_keys = ["ab12", "cd34"]

[server]
ip = "203.0.113.5"
port = 22021
bus_port = 22022
data_dir = "/var/lib/storage-server"
testnet = true
beldexd_rpc = "tcp://127.0.0.1:22023"
force_start = true

[logging]
log_level = "DEBUG"
`))
	require.NoError(t, err)
	require.Equal(t, "203.0.113.5", cfg.Server.IP)
	require.EqualValues(t, 22021, cfg.Server.Port)
	require.EqualValues(t, 22022, cfg.Server.BusPort)
	require.Equal(t, "/var/lib/storage-server", cfg.Server.DataDir)
	require.True(t, cfg.Server.Testnet)
	require.Equal(t, "tcp://127.0.0.1:22023", cfg.Server.BeldexdRPC)
	require.True(t, cfg.Server.ForceStart)
	require.Equal(t, "DEBUG", cfg.Logging.Level)
	require.Equal(t, []string{"ab12", "cd34"}, cfg.StatsAccessKeys)
}
