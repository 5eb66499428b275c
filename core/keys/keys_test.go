// keys_test.go - KeyCodec round-trip and derivation tests.
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
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLegacyPubKeyRoundTrip(t *testing.T) {
	sk, err := GenerateLegacySecKey(rand.Reader)
	require.NoError(t, err)
	pk := sk.Public()
	require.False(t, pk.IsZero())

	cases := []string{
		string(pk.Bytes()),
		pk.Hex(),
		base64.RawStdEncoding.EncodeToString(pk.Bytes()),
		base64.StdEncoding.EncodeToString(pk.Bytes()),
		pk.Base32z(),
	}
	for _, c := range cases {
		got := ParseLegacyPubKey(c)
		require.Equal(t, pk, got, "input %q", c)
	}
}

func TestEd25519PubKeyRoundTrip(t *testing.T) {
	sk, err := GenerateEd25519SecKey(rand.Reader)
	require.NoError(t, err)
	pk := sk.Public()

	got := ParseEd25519PubKey(pk.Hex())
	require.Equal(t, pk, got)

	// Matches the standard library's own derivation, since the expanded
	// secret key layout is identical to ed25519.PrivateKey.
	std := sk.StdPrivateKey()
	stdPub := std.Public().(ed25519.PublicKey)
	require.Equal(t, pk.Bytes(), []byte(stdPub))
}

func TestX25519PubKeyRoundTrip(t *testing.T) {
	sk, err := GenerateX25519SecKey(rand.Reader)
	require.NoError(t, err)
	pk := sk.Public()

	got := ParseX25519PubKey(pk.Hex())
	require.Equal(t, pk, got)
}

func TestParseInvalidKeyReturnsZero(t *testing.T) {
	require.True(t, ParseLegacyPubKey("not a key").IsZero())
	require.True(t, ParseEd25519PubKey("").IsZero())
	require.True(t, ParseX25519PubKey(hex.EncodeToString([]byte("short"))).IsZero())
}

func TestLoadSecKeyHexRejectsWrongLength(t *testing.T) {
	_, err := LoadLegacySecKeyHex("abcd")
	require.Error(t, err)

	_, err = LoadEd25519SecKeyHex(hex.EncodeToString(make([]byte, 32)))
	require.Error(t, err)
}

func TestToNodeAddress(t *testing.T) {
	sk, err := GenerateEd25519SecKey(rand.Reader)
	require.NoError(t, err)
	pk := sk.Public()

	addr := pk.ToNodeAddress()
	require.True(t, len(addr) > len(".mnode"))
	require.Equal(t, ".mnode", addr[len(addr)-len(".mnode"):])
}

func TestLegacyDerivationIsDeterministic(t *testing.T) {
	var sk LegacySecKey
	for i := range sk {
		sk[i] = byte(i)
	}
	pk1 := sk.Public()
	pk2 := sk.Public()
	require.Equal(t, pk1, pk2)
}
