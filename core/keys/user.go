// user.go - The 33-byte user public key used to address message
// recipients: one leading network-id byte plus a 32-byte curve key.
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

package keys

import "encoding/hex"

// NetID identifies which address family a UserPubKey belongs to.
type NetID byte

const (
	// NetIDMainnet is the network id used by ordinary mainnet session
	// addresses.
	NetIDMainnet NetID = 0x00
	// NetIDTestnet is the network id implied when a caller hands the
	// permissive testnet-only parser a bare 32/64-char key with no
	// explicit netid prefix.
	NetIDTestnet NetID = 0x05
	// NetIDInvalid marks a UserPubKey that failed to parse.
	NetIDInvalid NetID = 0xFF
)

// UserPubKey identifies a message recipient: a one-byte network id
// followed by a 32-byte curve point.
type UserPubKey struct {
	NetID NetID
	Key   [32]byte
}

// IsValid reports whether the key parsed successfully.
func (u UserPubKey) IsValid() bool { return u.NetID != NetIDInvalid }

// Hex renders the key with its netid prefix, except when the key's own
// netid is NetIDMainnet and mainnet is false: that combination is the one
// case the prefix is dropped, leaving the bare 64-char key, matching the
// testnet-only shorthand accepted by LoadUserPubKey.
func (u UserPubKey) Hex(mainnet bool) string {
	if !u.IsValid() {
		return ""
	}
	if u.NetID == NetIDMainnet && !mainnet {
		return hex.EncodeToString(u.Key[:])
	}
	buf := make([]byte, 33)
	buf[0] = byte(u.NetID)
	copy(buf[1:], u.Key[:])
	return hex.EncodeToString(buf)
}

// LoadUserPubKey accepts a user public key in one of four shapes:
//
//   - 66 hex chars: one netid byte followed by the 32-byte key.
//   - 33 raw bytes: same, undecoded.
//   - 64 hex chars, testnet only: the bare key, netid implied as
//     NetIDTestnet.
//   - 32 raw bytes, testnet only: same, undecoded.
//
// Anything else returns a UserPubKey with NetID set to NetIDInvalid.
func LoadUserPubKey(input string, testnet bool) UserPubKey {
	switch {
	case len(input) == 66 && isHex(input):
		b, err := hex.DecodeString(input)
		if err != nil {
			break
		}
		return UserPubKey{NetID: NetID(b[0]), Key: [32]byte(b[1:33])}

	case len(input) == 33:
		b := []byte(input)
		return UserPubKey{NetID: NetID(b[0]), Key: [32]byte(b[1:33])}

	case testnet && len(input) == 64 && isHex(input):
		b, err := hex.DecodeString(input)
		if err != nil {
			break
		}
		return UserPubKey{NetID: NetIDTestnet, Key: [32]byte(b)}

	case testnet && len(input) == 32:
		return UserPubKey{NetID: NetIDTestnet, Key: [32]byte([]byte(input))}
	}

	log.Warningf("invalid user public key: unrecognized shape (len %d, testnet %v)", len(input), testnet)
	return UserPubKey{NetID: NetIDInvalid}
}
