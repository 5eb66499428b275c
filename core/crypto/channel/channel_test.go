// channel_test.go - ChannelCrypto round-trip and tamper-detection tests.
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

package channel

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/beldex-network/storage-server/core/keys"
)

func genKeypair(t *testing.T) (keys.X25519SecKey, keys.X25519PubKey) {
	t.Helper()
	sk, err := keys.GenerateX25519SecKey(rand.Reader)
	require.NoError(t, err)
	return sk, sk.Public()
}

func TestRoundTripAllAlgorithms(t *testing.T) {
	aliceSec, alicePub := genKeypair(t)
	bobSec, bobPub := genKeypair(t)

	plaintext := []byte("the quick brown fox jumps over the lazy mnode")

	for _, algo := range []Algorithm{AlgoXChaCha20Poly1305, AlgoAESGCM, AlgoAESCBC} {
		ct, err := Encrypt(algo, plaintext, aliceSec, bobPub)
		require.NoError(t, err, "algo %s", algo)

		pt, err := Decrypt(algo, ct, bobSec, alicePub)
		require.NoError(t, err, "algo %s", algo)
		require.Equal(t, plaintext, pt, "algo %s", algo)
	}
}

func TestTamperedCiphertextFailsAEAD(t *testing.T) {
	aliceSec, _ := genKeypair(t)
	bobSec, bobPub := genKeypair(t)
	alicePub := aliceSec.Public()

	for _, algo := range []Algorithm{AlgoXChaCha20Poly1305, AlgoAESGCM} {
		ct, err := Encrypt(algo, []byte("hello world"), aliceSec, bobPub)
		require.NoError(t, err)

		ct[len(ct)-1] ^= 0xFF
		_, err = Decrypt(algo, ct, bobSec, alicePub)
		require.ErrorIs(t, err, ErrAuthFailed, "algo %s", algo)
	}
}

func TestTamperedCBCCiphertextFailsPadding(t *testing.T) {
	aliceSec, _ := genKeypair(t)
	bobSec, bobPub := genKeypair(t)
	alicePub := aliceSec.Public()

	// Not every single-byte flip is guaranteed to break PKCS#7 padding,
	// so flip a run of bytes in the final block to make the check robust.
	ct, err := Encrypt(AlgoAESCBC, []byte("this plaintext is two AES blocks"), aliceSec, bobPub)
	require.NoError(t, err)

	for i := len(ct) - 16; i < len(ct); i++ {
		ct[i] ^= 0xFF
	}

	_, err = Decrypt(AlgoAESCBC, ct, bobSec, alicePub)
	require.ErrorIs(t, err, ErrBadPadding)
}

func TestWrongPeerFailsToDecrypt(t *testing.T) {
	aliceSec, alicePub := genKeypair(t)
	_, bobPub := genKeypair(t)
	eveSec, _ := genKeypair(t)
	_ = alicePub

	ct, err := Encrypt(AlgoXChaCha20Poly1305, []byte("secret"), aliceSec, bobPub)
	require.NoError(t, err)

	_, err = Decrypt(AlgoXChaCha20Poly1305, ct, eveSec, alicePub)
	require.Error(t, err)
}

func TestUnknownAlgorithm(t *testing.T) {
	sec, pub := genKeypair(t)
	_, err := Encrypt(Algorithm("unknown"), []byte("x"), sec, pub)
	require.ErrorIs(t, err, ErrUnknownAlgorithm)
}

func TestShortCiphertextRejected(t *testing.T) {
	sec, pub := genKeypair(t)
	_, err := Decrypt(AlgoAESGCM, []byte("short"), sec, pub)
	require.ErrorIs(t, err, ErrShortCiphertext)
}
