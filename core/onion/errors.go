// errors.go - OnionCodec error taxonomy, with the HTTP status mapping
// that the front-end handler applies when a request cannot be processed.
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
	"fmt"
	"net/http"
)

// Reason classifies why an onion layer could not be unwrapped or
// dispatched further.
type Reason int

const (
	// Malformed marks an envelope that failed basic framing or JSON
	// parsing: a truncated size prefix, a size prefix longer than the
	// remaining buffer, or invalid JSON in the tail.
	Malformed Reason = iota
	// Decrypt marks a control tail that parsed but whose ciphertext
	// failed to authenticate or depad under the requested algorithm.
	Decrypt
	// HopLimit marks a request that would exceed the maximum onion
	// routing depth.
	HopLimit
	// UnknownPeer marks a forward control tail naming a destination not
	// present in the local swarm directory.
	UnknownPeer
	// BadControl marks a control tail whose JSON keys don't
	// unambiguously match exactly one of the four recognized shapes.
	BadControl
	// Shutdown marks a request that arrived after the node began
	// draining and stopped accepting new onion work.
	Shutdown
)

func (r Reason) String() string {
	switch r {
	case Malformed:
		return "malformed"
	case Decrypt:
		return "decrypt"
	case HopLimit:
		return "hop_limit"
	case UnknownPeer:
		return "unknown_peer"
	case BadControl:
		return "bad_control"
	case Shutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Error is returned by every OnionCodec operation that can fail.
type Error struct {
	Reason  Reason
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("onion: %s: %s", e.Reason, e.Message)
}

func newError(reason Reason, format string, args ...interface{}) *Error {
	return &Error{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// HTTPStatus maps a Reason to the status code the HTTPS front end returns
// to the entry client for it.
func (r Reason) HTTPStatus() int {
	switch r {
	case Malformed, BadControl:
		return http.StatusBadRequest
	case Decrypt:
		return http.StatusBadRequest
	case HopLimit:
		return http.StatusLoopDetected
	case UnknownPeer:
		return http.StatusBadGateway
	case Shutdown:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
