// user_test.go - UserPubKey parsing tests.
// Copyright (C) 2024  The Beldex Project.
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

package keys

import (
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func randomHex(t *testing.T, n int) string {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return hex.EncodeToString(b)
}

func TestLoadUserPubKeyMainnetPrefixed(t *testing.T) {
	body := randomHex(t, 32)
	input := "00" + body

	u := LoadUserPubKey(input, false)
	require.True(t, u.IsValid())
	require.Equal(t, NetIDMainnet, u.NetID)
	require.Equal(t, body, hex.EncodeToString(u.Key[:]))
}

func TestLoadUserPubKeyRawBytes(t *testing.T) {
	raw := make([]byte, 33)
	raw[0] = 0x05
	_, err := rand.Read(raw[1:])
	require.NoError(t, err)

	u := LoadUserPubKey(string(raw), false)
	require.True(t, u.IsValid())
	require.Equal(t, NetID(0x05), u.NetID)
}

func TestLoadUserPubKeyTestnetImpliedNetID(t *testing.T) {
	body := randomHex(t, 32)

	u := LoadUserPubKey(body, true)
	require.True(t, u.IsValid())
	require.Equal(t, NetIDTestnet, u.NetID)

	// The same bare-key input is rejected outside testnet mode.
	u2 := LoadUserPubKey(body, false)
	require.False(t, u2.IsValid())
}

func TestLoadUserPubKeyTestnetImpliedRawBytes(t *testing.T) {
	raw := make([]byte, 32)
	_, err := rand.Read(raw)
	require.NoError(t, err)

	u := LoadUserPubKey(string(raw), true)
	require.True(t, u.IsValid())
	require.Equal(t, NetIDTestnet, u.NetID)
}

func TestLoadUserPubKeyInvalid(t *testing.T) {
	require.False(t, LoadUserPubKey("", false).IsValid())
	require.False(t, LoadUserPubKey("zz", false).IsValid())
	require.False(t, LoadUserPubKey(randomHex(t, 32), false).IsValid())
}

func TestUserPubKeyHexRoundTrip(t *testing.T) {
	// A mainnet key's prefix is dropped only when rendered by non-mainnet
	// software.
	body := randomHex(t, 32)
	mainnetKey := LoadUserPubKey("00"+body, false)
	require.Equal(t, "00"+body, mainnetKey.Hex(true))
	require.Equal(t, body, mainnetKey.Hex(false))

	// A non-mainnet-netid key always keeps its prefix, regardless of
	// which software renders it.
	testnetKey := LoadUserPubKey("05"+body, false)
	require.Equal(t, "05"+body, testnetKey.Hex(true))
	require.Equal(t, "05"+body, testnetKey.Hex(false))
}
