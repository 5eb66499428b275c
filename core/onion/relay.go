// relay.go - One-hop unwrapping: decrypt a single onion layer, classify
// its control tail, and hand back what the caller needs to either answer
// locally or forward further.
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
	"github.com/beldex-network/storage-server/core/crypto/channel"
	"github.com/beldex-network/storage-server/core/keys"
)

// MaxHops is the largest hop count a relay will still forward before
// refusing with HopLimit, matching the reference implementation's 15-hop
// ceiling: hopCount reaching 15 is still served, and only the 16th
// attempted hop is rejected.
const MaxHops = 15

// Unwrapped is the result of decrypting and classifying a single onion
// layer.
type Unwrapped struct {
	Kind     ControlKind
	Blob     []byte
	Forward  ForwardTail
	Terminal TerminalTail
	Proxy    ProxyTail
}

// Unwrap decrypts a single onion layer received from the message bus (or
// directly over HTTPS, for the entry hop) and classifies its control
// tail. mySec is this node's own long-term X25519 secret; ephemeralPub is
// the sender-supplied key (the bus command's "ek" field, or the entry
// tail's ephemeral_key) to derive the shared secret against. hopCount is
// the number of hops already traversed before this one, as carried in
// the bus command's "nh" field (zero at the entry hop).
func Unwrap(cipherBlob []byte, algo channel.Algorithm, mySec keys.X25519SecKey, ephemeralPub keys.X25519PubKey, hopCount int) (Unwrapped, error) {
	if hopCount > MaxHops {
		return Unwrapped{}, newError(HopLimit, "hop count %d exceeds the %d-hop limit", hopCount, MaxHops)
	}

	plaintext, err := channel.Decrypt(algo, cipherBlob, mySec, ephemeralPub)
	if err != nil {
		return Unwrapped{}, newError(Decrypt, "%s", err)
	}

	env, err := DecodeEnvelope(plaintext)
	if err != nil {
		return Unwrapped{}, err
	}

	kind, err := ClassifyControl(env.Tail)
	if err != nil {
		return Unwrapped{}, err
	}

	result := Unwrapped{Kind: kind, Blob: env.Blob}
	switch kind {
	case ForwardControl:
		result.Forward, err = ParseForwardTail(env.Tail)
	case TerminalControl:
		result.Terminal, err = ParseTerminalTail(env.Tail)
	case ProxyControl:
		result.Proxy, err = ParseProxyTail(env.Tail)
	default:
		err = newError(BadControl, "unexpected control kind %d for a relayed layer", kind)
	}
	if err != nil {
		return Unwrapped{}, err
	}
	return result, nil
}

// UnwrapEntry decodes the outermost envelope posted directly to the entry
// node's HTTPS endpoint. Unlike Unwrap, there is no decryption step here:
// the envelope itself arrives in the clear, and its tail only says how to
// decrypt the blob it carries.
func UnwrapEntry(wire []byte) ([]byte, EntryTail, error) {
	env, err := DecodeEnvelope(wire)
	if err != nil {
		return nil, EntryTail{}, err
	}
	kind, err := ClassifyControl(env.Tail)
	if err != nil {
		return nil, EntryTail{}, err
	}
	if kind != EntryControl {
		return nil, EntryTail{}, newError(BadControl, "outermost control tail is not an entry tail")
	}
	tail, err := ParseEntryTail(env.Tail)
	if err != nil {
		return nil, EntryTail{}, err
	}
	return env.Blob, tail, nil
}

// EncryptReply seals a response for the peer that sent this layer, using
// the same (mySec, ephemeralPub) pair the corresponding Unwrap call used
// to open it — the shared secret is identical in both directions.
func EncryptReply(algo channel.Algorithm, plaintext []byte, mySec keys.X25519SecKey, ephemeralPub keys.X25519PubKey) ([]byte, error) {
	return channel.Encrypt(algo, plaintext, mySec, ephemeralPub)
}
