// bencode_test.go - Bencode codec and onion_req_v2 command tests.
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

package bus

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/beldex-network/storage-server/core/crypto/channel"
	"github.com/beldex-network/storage-server/core/keys"
)

func TestEncodeDictSortsKeys(t *testing.T) {
	buf, err := EncodeDict(Dict{"nh": int64(3), "d": []byte("hi"), "et": "aes-gcm", "ek": []byte("k")})
	require.NoError(t, err)
	require.Equal(t, "d1:d2:hi2:ek1:k2:et7:aes-gcm2:nhi3ee", string(buf))
}

func TestDecodeDictRoundTrip(t *testing.T) {
	orig := Dict{"a": "hello", "b": int64(42)}
	buf, err := EncodeDict(orig)
	require.NoError(t, err)

	got, err := DecodeDict(buf)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got["a"])
	require.Equal(t, int64(42), got["b"])
}

func TestDecodeDictTruncated(t *testing.T) {
	_, err := DecodeDict([]byte("d1:a"))
	require.ErrorIs(t, err, ErrTruncated)
}

func TestOnionReqV2RoundTrip(t *testing.T) {
	xSec, err := keys.GenerateX25519SecKey(rand.Reader)
	require.NoError(t, err)

	cmd := OnionReqV2{
		Blob:         []byte("ciphertext-goes-here"),
		EphemeralKey: xSec.Public(),
		EncType:      channel.AlgoXChaCha20Poly1305,
		HopCount:     4,
	}

	wire, err := cmd.Encode()
	require.NoError(t, err)

	got, err := DecodeOnionReqV2(wire)
	require.NoError(t, err)
	require.Equal(t, cmd.Blob, got.Blob)
	require.Equal(t, cmd.EphemeralKey, got.EphemeralKey)
	require.Equal(t, cmd.EncType, got.EncType)
	require.Equal(t, cmd.HopCount, got.HopCount)
}

func TestReplyRoundTrip(t *testing.T) {
	ok := Reply{OK: true, Body: []byte("response body")}
	require.Equal(t, ok, DecodeReply(EncodeReply(ok)))

	fail := Reply{OK: false, Code: "400", Message: "bad request"}
	require.Equal(t, fail, DecodeReply(EncodeReply(fail)))
}
