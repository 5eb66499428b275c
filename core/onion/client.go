// client.go - Originator-side onion request construction: building the
// wire blob tail-to-head, and decoding the response that eventually comes
// back through it.
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
	"encoding/base64"
	"encoding/json"
	"io"

	"github.com/beldex-network/storage-server/core/crypto/channel"
	"github.com/beldex-network/storage-server/core/keys"
)

// Hop identifies one node in an onion path by both of the keys the
// codec needs: the Ed25519 identity used to name it as a forwarding
// destination, and the X25519 key used to encrypt its layer.
type Hop struct {
	Ed25519 keys.Ed25519PubKey
	X25519  keys.X25519PubKey
}

// BuiltRequest is the result of constructing an onion request: the wire
// bytes ready to POST to the entry hop, and the key material needed to
// later decrypt that hop chain's response.
type BuiltRequest struct {
	Wire         []byte
	FinalSecret  keys.X25519SecKey
	FinalPeerPub keys.X25519PubKey
	FinalAlgo    channel.Algorithm
}

// BuildRequest constructs a layered onion request addressed to
// hops[len(hops)-1], routed through hops[:len(hops)-1] in order, with
// hops[0] the entry node the wire bytes are actually sent to.
// algoAt(i) selects the ciphersuite used to encrypt the layer aimed at
// hops[i]; payload and control are the plaintext body and control tail
// delivered to the final hop.
func BuildRequest(hops []Hop, algoAt func(i int) channel.Algorithm, payload, control []byte, rng io.Reader) (BuiltRequest, error) {
	if len(hops) == 0 {
		return BuiltRequest{}, newError(Malformed, "onion path must have at least one hop")
	}

	last := len(hops) - 1
	eSec, ePub, err := channel.GenerateEphemeralKey(rng)
	if err != nil {
		return BuiltRequest{}, err
	}

	algo := algoAt(last)
	data := EncodeEnvelope(payload, control)
	blob, err := channel.Encrypt(algo, data, eSec, hops[last].X25519)
	if err != nil {
		return BuiltRequest{}, err
	}

	result := BuiltRequest{
		FinalSecret:  eSec,
		FinalPeerPub: hops[last].X25519,
		FinalAlgo:    algo,
	}

	lastEph := ePub
	lastAlgo := algo

	for i := last - 1; i >= 0; i-- {
		routing := ForwardTail{
			Destination:  hops[i+1].Ed25519.Hex(),
			EphemeralKey: lastEph.Hex(),
			EncType:      string(lastAlgo),
		}
		routingJSON, err := json.Marshal(routing)
		if err != nil {
			return BuiltRequest{}, err
		}
		blob = EncodeEnvelope(blob, routingJSON)

		hopSec, hopPub, err := channel.GenerateEphemeralKey(rng)
		if err != nil {
			return BuiltRequest{}, err
		}
		hopAlgo := algoAt(i)

		blob, err = channel.Encrypt(hopAlgo, blob, hopSec, hops[i].X25519)
		if err != nil {
			return BuiltRequest{}, err
		}

		lastEph = hopPub
		lastAlgo = hopAlgo
	}

	entry := EntryTail{
		EphemeralKey: lastEph.Hex(),
		EncType:      string(lastAlgo),
	}
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return BuiltRequest{}, err
	}
	result.Wire = EncodeEnvelope(blob, entryJSON)
	return result, nil
}

// DecryptResponse recovers the plaintext response body for a request
// built by BuildRequest. The wire format gives the client no explicit
// signal for whether the body came back encrypted or in the clear, so,
// matching the reference client, decryption is attempted first, then
// base64 decoding followed by decryption. If neither decrypts, the
// base64-decoded bytes are returned when the body is valid base64, and
// the raw body unmodified otherwise.
func DecryptResponse(req BuiltRequest, body []byte) []byte {
	if pt, err := channel.Decrypt(req.FinalAlgo, body, req.FinalSecret, req.FinalPeerPub); err == nil {
		return pt
	}
	if decoded, err := base64.StdEncoding.DecodeString(string(body)); err == nil {
		if pt, err := channel.Decrypt(req.FinalAlgo, decoded, req.FinalSecret, req.FinalPeerPub); err == nil {
			return pt
		}
		return decoded
	}
	return body
}
