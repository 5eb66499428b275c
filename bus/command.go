// command.go - The mn.onion_req_v2 message-bus command exchanged between
// peer master nodes while relaying an onion layer.
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
	"fmt"

	"github.com/beldex-network/storage-server/core/crypto/channel"
	"github.com/beldex-network/storage-server/core/keys"
)

// OnionReqV2 is the bencoded dictionary sent to mn.onion_req_v2: the
// still-encrypted blob for the next hop, the ephemeral key and algorithm
// it should decrypt with, and the hop count so far.
type OnionReqV2 struct {
	Blob         []byte
	EphemeralKey keys.X25519PubKey
	EncType      channel.Algorithm
	HopCount     int
}

// Encode serializes the command to its wire dictionary: {d, ek, et, nh}.
func (c OnionReqV2) Encode() ([]byte, error) {
	return EncodeDict(Dict{
		"d":  c.Blob,
		"ek": c.EphemeralKey.Bytes(),
		"et": string(c.EncType),
		"nh": int64(c.HopCount),
	})
}

// DecodeOnionReqV2 parses a wire dictionary back into an OnionReqV2.
func DecodeOnionReqV2(buf []byte) (OnionReqV2, error) {
	d, err := DecodeDict(buf)
	if err != nil {
		return OnionReqV2{}, err
	}

	blob, ok := d["d"].([]byte)
	if !ok {
		return OnionReqV2{}, fmt.Errorf("bus: onion_req_v2 missing \"d\" blob")
	}
	ekRaw, ok := d["ek"].([]byte)
	if !ok {
		return OnionReqV2{}, fmt.Errorf("bus: onion_req_v2 missing \"ek\" ephemeral key")
	}
	etRaw, ok := d["et"].([]byte)
	if !ok {
		return OnionReqV2{}, fmt.Errorf("bus: onion_req_v2 missing \"et\" enc_type")
	}
	nh, ok := d["nh"].(int64)
	if !ok {
		return OnionReqV2{}, fmt.Errorf("bus: onion_req_v2 missing \"nh\" hop count")
	}

	var ek keys.X25519PubKey
	if len(ekRaw) != keys.X25519KeySize {
		return OnionReqV2{}, fmt.Errorf("bus: onion_req_v2 ephemeral key is %d bytes, want %d", len(ekRaw), keys.X25519KeySize)
	}
	copy(ek[:], ekRaw)

	return OnionReqV2{
		Blob:         blob,
		EphemeralKey: ek,
		EncType:      channel.Algorithm(etRaw),
		HopCount:     int(nh),
	}, nil
}

// Reply is the response shape returned over the bus for an onion_req_v2
// call: a single-element success reply carrying the body, or a two
// element error reply carrying a status code and message.
type Reply struct {
	OK      bool
	Code    string
	Body    []byte
	Message string
}

// EncodeReply renders a Reply in the bus's multi-part response
// convention.
func EncodeReply(r Reply) [][]byte {
	if r.OK {
		return [][]byte{r.Body}
	}
	return [][]byte{[]byte(r.Code), []byte(r.Message)}
}

// DecodeReply parses the bus's multi-part response convention back into
// a Reply.
func DecodeReply(parts [][]byte) Reply {
	if len(parts) == 1 {
		return Reply{OK: true, Body: parts[0]}
	}
	if len(parts) >= 2 {
		return Reply{OK: false, Code: string(parts[0]), Message: string(parts[1])}
	}
	return Reply{OK: false, Code: "empty", Message: "empty reply"}
}
