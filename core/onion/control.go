// control.go - The four onion control-tail shapes and their structural
// disambiguation.
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
	"encoding/json"
	"strings"

	"github.com/beldex-network/storage-server/core/crypto/channel"
)

// proxyTargetPrefix and proxyTargetSuffix bound the paths a proxy control
// tail may direct a request at: beldexd's own RPC surface, nothing else.
const (
	proxyTargetPrefix = "/beldex/"
	proxyTargetSuffix = "/lsrpc"
)

// ControlKind identifies which of the four control-tail shapes a decoded
// JSON document matches.
type ControlKind int

const (
	// EntryControl is the shape carried by the outermost envelope posted
	// to the entry node: it names only how the entry node should decrypt
	// the blob, nothing about what to do with the result.
	EntryControl ControlKind = iota
	// ForwardControl asks the current hop to decrypt the blob and relay
	// it, still onion-wrapped, to Destination.
	ForwardControl
	// TerminalControl marks the blob as the final plaintext request body
	// for this node to answer locally.
	TerminalControl
	// ProxyControl asks the current node to make a plain HTTP(S) request
	// on the client's behalf and return the response body unwrapped.
	ProxyControl
)

// EntryTail is the control document accompanying the outermost onion
// layer: it tells the entry hop which ephemeral key and algorithm to
// derive its decryption key from. It carries no destination, because the
// entry hop always decrypts for itself.
type EntryTail struct {
	EphemeralKey string `json:"ephemeral_key"`
	EncType      string `json:"enc_type,omitempty"`
}

// ForwardTail asks a relay hop to unwrap and pass the still-encrypted
// blob to another node.
type ForwardTail struct {
	Destination  string `json:"destination"`
	EphemeralKey string `json:"ephemeral_key"`
	EncType      string `json:"enc_type,omitempty"`
}

// TerminalTail marks the accompanying blob as the plaintext request this
// node should answer directly. Headers is present but unused by the
// storage node's own request handling; it exists for wire compatibility
// with clients that always emit an (empty) headers array.
type TerminalTail struct {
	Headers json.RawMessage `json:"headers"`
}

// ProxyTail asks the receiving node to relay the blob as an HTTP(S)
// request body to an external host on the client's behalf.
type ProxyTail struct {
	Host     string `json:"host"`
	Target   string `json:"target"`
	Port     int    `json:"port,omitempty"`
	Protocol string `json:"protocol,omitempty"`
}

// defaultForwardEncType is applied to a ForwardTail whose enc_type field
// was omitted, matching the client's own historical default.
const defaultForwardEncType = string(channel.AlgoAESGCM)

// ClassifyControl inspects the top-level keys of a control JSON document
// and returns exactly which of the four shapes it matches. A document
// naming keys from more than one shape, or from none of them, is
// BadControl: onion routing was designed so a hop never has to guess
// intent from ambiguous input.
func ClassifyControl(tail []byte) (ControlKind, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(tail, &probe); err != nil {
		return 0, newError(Malformed, "control tail is not a JSON object: %s", err)
	}

	_, hasHeaders := probe["headers"]
	_, hasDestination := probe["destination"]
	_, hasHost := probe["host"]
	_, hasEphemeral := probe["ephemeral_key"]

	matches := 0
	var kind ControlKind
	if hasHeaders {
		matches++
		kind = TerminalControl
	}
	if hasDestination {
		matches++
		kind = ForwardControl
	}
	if hasHost {
		matches++
		kind = ProxyControl
	}
	if hasEphemeral && !hasDestination {
		matches++
		kind = EntryControl
	}

	if matches != 1 {
		return 0, newError(BadControl, "control tail matches %d of the recognized shapes, want exactly 1", matches)
	}
	return kind, nil
}

// ParseEntryTail unmarshals tail as an EntryTail, defaulting a missing
// enc_type to xchacha20-poly1305.
func ParseEntryTail(tail []byte) (EntryTail, error) {
	var t EntryTail
	if err := json.Unmarshal(tail, &t); err != nil {
		return EntryTail{}, newError(Malformed, "invalid entry control: %s", err)
	}
	if t.EncType == "" {
		t.EncType = string(channel.AlgoXChaCha20Poly1305)
	}
	return t, nil
}

// ParseForwardTail unmarshals tail as a ForwardTail, defaulting a missing
// enc_type to aes-gcm to match the historical client default.
func ParseForwardTail(tail []byte) (ForwardTail, error) {
	var t ForwardTail
	if err := json.Unmarshal(tail, &t); err != nil {
		return ForwardTail{}, newError(Malformed, "invalid forward control: %s", err)
	}
	if t.EncType == "" {
		t.EncType = defaultForwardEncType
	}
	return t, nil
}

// ParseTerminalTail unmarshals tail as a TerminalTail.
func ParseTerminalTail(tail []byte) (TerminalTail, error) {
	var t TerminalTail
	if err := json.Unmarshal(tail, &t); err != nil {
		return TerminalTail{}, newError(Malformed, "invalid terminal control: %s", err)
	}
	return t, nil
}

// ParseProxyTail unmarshals tail as a ProxyTail. Target is restricted to
// beldexd's own RPC surface: it must start with /beldex/ and end with
// /lsrpc, so a proxy control tail can never direct a node at an arbitrary
// path.
func ParseProxyTail(tail []byte) (ProxyTail, error) {
	var t ProxyTail
	if err := json.Unmarshal(tail, &t); err != nil {
		return ProxyTail{}, newError(Malformed, "invalid proxy control: %s", err)
	}
	if t.Target == "" || t.Host == "" {
		return ProxyTail{}, newError(BadControl, "proxy control missing host or target")
	}
	if !strings.HasPrefix(t.Target, proxyTargetPrefix) || !strings.HasSuffix(t.Target, proxyTargetSuffix) {
		return ProxyTail{}, newError(BadControl, "proxy target %q is not a recognized beldexd RPC path", t.Target)
	}
	return t, nil
}
