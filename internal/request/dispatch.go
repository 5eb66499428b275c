// dispatch.go - Decoding one onion layer and routing it to whichever of
// the three things a hop can do with it: answer locally, make an
// outbound proxy request, or relay the still-wrapped blob to the next
// hop over the message bus.
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

package request

import (
	"context"

	"github.com/beldex-network/storage-server/bus"
	"github.com/beldex-network/storage-server/core/crypto/channel"
	"github.com/beldex-network/storage-server/core/keys"
	"github.com/beldex-network/storage-server/core/onion"
)

// HandleEntryRequest processes a request posted directly to this node's
// HTTPS onion-request endpoint: wire is the raw request body. remoteAddr
// is the dialing client's address, used for client-table rate limiting.
// It returns the response body to write back to the client (already
// encrypted for it) and the HTTP status to send, or an error if the
// request could not be processed at all.
func (r *RequestEntry) HandleEntryRequest(ctx context.Context, wire []byte, remoteAddr string) ([]byte, int, error) {
	if r.isDraining() {
		return nil, onion.Shutdown.HTTPStatus(), ErrShuttingDown
	}

	if r.limiter != nil {
		if ipv4, ok := clientIPv4(remoteAddr); ok {
			if r.limiter.ShouldRateLimitClient(ipv4, monotonicNow()) {
				return nil, 429, errRateLimited
			}
		}
	}

	blob, tail, err := onion.UnwrapEntry(wire)
	if err != nil {
		return nil, onionErrStatus(err), err
	}

	ephemeralPub := keys.ParseX25519PubKey(tail.EphemeralKey)
	algo := channel.Algorithm(tail.EncType)

	r.incRequests()
	body, err := r.dispatchLayer(ctx, blob, algo, ephemeralPub, 0)
	if err != nil {
		return nil, onionErrStatus(err), err
	}
	return body, 200, nil
}

// HandleRelay processes an mn.onion_req_v2 command received from a peer
// node over the message bus. peer identifies the sending node for
// peer-table rate limiting.
func (r *RequestEntry) HandleRelay(ctx context.Context, peer keys.LegacyPubKey, cmd bus.OnionReqV2) bus.Reply {
	if r.isDraining() {
		return bus.Reply{OK: false, Code: "503", Message: ErrShuttingDown.Error()}
	}

	if r.limiter != nil && r.limiter.ShouldRateLimit(peer, monotonicNow()) {
		return bus.Reply{OK: false, Code: "429", Message: "rate limited"}
	}

	r.incRequests()
	body, err := r.dispatchLayer(ctx, cmd.Blob, cmd.EncType, cmd.EphemeralKey, cmd.HopCount)
	if err != nil {
		return bus.Reply{OK: false, Code: onionErrCode(err), Message: err.Error()}
	}
	return bus.Reply{OK: true, Body: body}
}

// dispatchLayer decrypts one onion layer and acts on its control tail.
// A terminal or proxy response is encrypted with the same
// ephemeralPub/algo pair the layer arrived under (the shared secret is
// symmetric); a forwarded request's reply, already encrypted by the
// final hop, is returned unchanged.
func (r *RequestEntry) dispatchLayer(ctx context.Context, cipherBlob []byte, algo channel.Algorithm, ephemeralPub keys.X25519PubKey, hopCount int) ([]byte, error) {
	unwrapped, err := onion.Unwrap(cipherBlob, algo, r.x25519Sec, ephemeralPub, hopCount)
	if err != nil {
		return nil, err
	}

	var plaintext []byte
	switch unwrapped.Kind {
	case onion.TerminalControl:
		plaintext, err = r.local(unwrapped.Blob)
	case onion.ProxyControl:
		plaintext, err = r.proxy(unwrapped.Proxy, unwrapped.Blob)
	case onion.ForwardControl:
		return r.relayForward(ctx, unwrapped.Forward, unwrapped.Blob, hopCount)
	default:
		err = errUnhandledControlKind
	}
	if err != nil {
		return nil, err
	}

	return onion.EncryptReply(algo, plaintext, r.x25519Sec, ephemeralPub)
}

// relayForward sends the still-encrypted blob on to the named
// destination over the message bus and returns its reply body as
// received: the final hop has already encrypted it for the originator.
func (r *RequestEntry) relayForward(ctx context.Context, tail onion.ForwardTail, blob []byte, hopCount int) ([]byte, error) {
	dest := keys.ParseEd25519PubKey(tail.Destination)
	if dest.IsZero() {
		return nil, errBadDestination
	}
	if _, err := r.directory.Lookup(dest); err != nil {
		return nil, err
	}

	cmd := bus.OnionReqV2{
		Blob:         blob,
		EphemeralKey: keys.ParseX25519PubKey(tail.EphemeralKey),
		EncType:      channel.Algorithm(tail.EncType),
		HopCount:     hopCount + 1,
	}

	reply, err := r.transport.SendOnionRequest(ctx, dest, cmd)
	if err != nil {
		return nil, err
	}
	if !reply.OK {
		return nil, &relayError{code: reply.Code, message: reply.Message}
	}
	return reply.Body, nil
}
