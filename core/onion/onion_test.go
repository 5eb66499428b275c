// onion_test.go - Envelope, control classification, and end-to-end
// multi-hop onion round-trip tests.
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

package onion

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/beldex-network/storage-server/core/crypto/channel"
	"github.com/beldex-network/storage-server/core/keys"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	blob := []byte("opaque ciphertext")
	tail := []byte(`{"headers":[]}`)

	wire := EncodeEnvelope(blob, tail)
	env, err := DecodeEnvelope(wire)
	require.NoError(t, err)
	require.Equal(t, blob, env.Blob)
	require.Equal(t, tail, env.Tail)
}

func TestDecodeEnvelopeRejectsTruncated(t *testing.T) {
	_, err := DecodeEnvelope([]byte{1, 2})
	require.Error(t, err)

	_, err = DecodeEnvelope([]byte{100, 0, 0, 0})
	require.Error(t, err)
}

func TestClassifyControl(t *testing.T) {
	cases := []struct {
		json string
		want ControlKind
	}{
		{`{"headers":[]}`, TerminalControl},
		{`{"destination":"abc","ephemeral_key":"def"}`, ForwardControl},
		{`{"host":"example.com","target":"/beldex/lsrpc"}`, ProxyControl},
		{`{"ephemeral_key":"def"}`, EntryControl},
	}
	for _, c := range cases {
		got, err := ClassifyControl([]byte(c.json))
		require.NoError(t, err, c.json)
		require.Equal(t, c.want, got, c.json)
	}
}

func TestClassifyControlAmbiguous(t *testing.T) {
	_, err := ClassifyControl([]byte(`{"headers":[],"host":"x"}`))
	require.Error(t, err)

	_, err = ClassifyControl([]byte(`{}`))
	require.Error(t, err)
}

func TestParseProxyTailRejectsUnrecognizedTarget(t *testing.T) {
	_, err := ParseProxyTail([]byte(`{"host":"example.com","target":"/beldex/lsrpc"}`))
	require.NoError(t, err)

	_, err = ParseProxyTail([]byte(`{"host":"example.com","target":"/etc/passwd"}`))
	require.Error(t, err)
	onionErr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, BadControl, onionErr.Reason)

	_, err = ParseProxyTail([]byte(`{"host":"example.com","target":"/beldex/other"}`))
	require.Error(t, err)
}

func TestThreeHopRoundTrip(t *testing.T) {
	type nodeKeys struct {
		hop Hop
		sec keys.X25519SecKey
	}
	newNode := func() nodeKeys {
		edSec, err := keys.GenerateEd25519SecKey(rand.Reader)
		require.NoError(t, err)
		xSec, err := keys.GenerateX25519SecKey(rand.Reader)
		require.NoError(t, err)
		return nodeKeys{hop: Hop{Ed25519: edSec.Public(), X25519: xSec.Public()}, sec: xSec}
	}

	entry, mid, final := newNode(), newNode(), newNode()
	hops := []Hop{entry.hop, mid.hop, final.hop}

	payload := []byte(`{"method":"get_mnodes_for_pubkey","params":{}}`)
	control := []byte(`{"headers":[]}`)

	algoAt := func(i int) channel.Algorithm {
		return []channel.Algorithm{channel.AlgoXChaCha20Poly1305, channel.AlgoAESGCM, channel.AlgoAESCBC}[i]
	}

	built, err := BuildRequest(hops, algoAt, payload, control, rand.Reader)
	require.NoError(t, err)

	// Entry hop: decode the outer envelope directly (no decryption).
	blob, entryTail, err := UnwrapEntry(built.Wire)
	require.NoError(t, err)
	require.Equal(t, string(channel.AlgoXChaCha20Poly1305), entryTail.EncType)

	entryEph := keys.ParseX25519PubKey(entryTail.EphemeralKey)
	unwrapped, err := Unwrap(blob, channel.Algorithm(entryTail.EncType), entry.sec, entryEph, 0)
	require.NoError(t, err)
	require.Equal(t, ForwardControl, unwrapped.Kind)
	require.Equal(t, mid.hop.Ed25519.Hex(), unwrapped.Forward.Destination)

	// Mid hop: forwarded via the message bus with ek/et from the forward tail.
	midEph := keys.ParseX25519PubKey(unwrapped.Forward.EphemeralKey)
	unwrapped2, err := Unwrap(unwrapped.Blob, channel.Algorithm(unwrapped.Forward.EncType), mid.sec, midEph, 1)
	require.NoError(t, err)
	require.Equal(t, ForwardControl, unwrapped2.Kind)
	require.Equal(t, final.hop.Ed25519.Hex(), unwrapped2.Forward.Destination)

	// Final hop: terminal, this is the plaintext payload.
	finalEph := keys.ParseX25519PubKey(unwrapped2.Forward.EphemeralKey)
	unwrapped3, err := Unwrap(unwrapped2.Blob, channel.Algorithm(unwrapped2.Forward.EncType), final.sec, finalEph, 2)
	require.NoError(t, err)
	require.Equal(t, TerminalControl, unwrapped3.Kind)
	require.Equal(t, payload, unwrapped3.Blob)

	// Response path: final hop encrypts, no further onion wrapping is applied
	// as the reply travels back up.
	response := []byte(`{"status":200}`)
	sealed, err := EncryptReply(channel.Algorithm(unwrapped2.Forward.EncType), response, final.sec, finalEph)
	require.NoError(t, err)

	got := DecryptResponse(built, sealed)
	require.Equal(t, response, got)
}

func TestHopLimitEnforced(t *testing.T) {
	xSec, err := keys.GenerateX25519SecKey(rand.Reader)
	require.NoError(t, err)

	// A hop count equal to the limit is still served...
	_, err = Unwrap([]byte("irrelevant"), channel.AlgoAESGCM, xSec, xSec.Public(), MaxHops)
	require.Error(t, err)
	require.NotEqual(t, HopLimit, err.(*Error).Reason)

	// ...only exceeding it is refused.
	_, err = Unwrap([]byte("irrelevant"), channel.AlgoAESGCM, xSec, xSec.Public(), MaxHops+1)
	require.Error(t, err)
	onionErr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, HopLimit, onionErr.Reason)
}
