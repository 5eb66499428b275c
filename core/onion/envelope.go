// envelope.go - The size-prefixed onion layer framing shared by every hop:
// a little-endian uint32 length, that many bytes of opaque blob, followed
// by a trailing JSON control document that runs to the end of the buffer.
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

// Package onion implements the onion-request wire codec: the layered
// size-prefixed envelope format, the four control-tail shapes exchanged
// between hops and clients, and the client-side construction and
// relay-side unwrapping logic built on top of it.
package onion

import "encoding/binary"

// Envelope is a single decoded onion layer: the raw blob passed down to
// the next stage (either an encrypted inner layer, or the terminal
// request body) and the JSON control tail describing what to do with it.
type Envelope struct {
	Blob []byte
	Tail []byte
}

// maxEnvelopeSize bounds the blob-length prefix so that a corrupt or
// hostile size field can't be used to justify allocating gigabytes before
// the real length is known to be available.
const maxEnvelopeSize = 32 << 20

// DecodeEnvelope splits buf into its blob and trailing control JSON.
func DecodeEnvelope(buf []byte) (Envelope, error) {
	if len(buf) < 4 {
		return Envelope{}, newError(Malformed, "envelope shorter than the size prefix (%d bytes)", len(buf))
	}
	size := binary.LittleEndian.Uint32(buf[:4])
	if size > maxEnvelopeSize {
		return Envelope{}, newError(Malformed, "declared blob size %d exceeds limit %d", size, maxEnvelopeSize)
	}
	rest := buf[4:]
	if uint64(size) > uint64(len(rest)) {
		return Envelope{}, newError(Malformed, "declared blob size %d exceeds remaining %d bytes", size, len(rest))
	}
	return Envelope{
		Blob: rest[:size],
		Tail: rest[size:],
	}, nil
}

// EncodeEnvelope joins a blob and a control tail into wire form.
func EncodeEnvelope(blob, tail []byte) []byte {
	out := make([]byte, 4+len(blob)+len(tail))
	binary.LittleEndian.PutUint32(out[:4], uint32(len(blob)))
	copy(out[4:], blob)
	copy(out[4+len(blob):], tail)
	return out
}
