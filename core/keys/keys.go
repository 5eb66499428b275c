// keys.go - Typed key material for the storage node's three keypairs.
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

// Package keys implements the storage node's typed key material: the
// legacy signing key, the Ed25519 identity key, and the X25519
// key-exchange key, each a distinct 32-byte (or 64-byte, for the expanded
// Ed25519 secret) type with no implicit conversion between them, plus the
// multi-encoding parser and user-pubkey handling that sits on top.
package keys

import (
	"crypto/ed25519"
	"encoding/hex"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/curve25519"
	"gopkg.in/op/go-logging.v1"

	"github.com/beldex-network/storage-server/core/utils"
)

var log = logging.MustGetLogger("keys")

const (
	// LegacyKeySize is the size in bytes of a legacy public or secret key.
	LegacyKeySize = 32
	// X25519KeySize is the size in bytes of an X25519 public or secret key.
	X25519KeySize = 32
	// Ed25519PubKeySize is the size in bytes of an Ed25519 public key.
	Ed25519PubKeySize = 32
	// Ed25519SecKeySize is the size in bytes of the expanded Ed25519
	// secret key (seed || public half), matching the reference API.
	Ed25519SecKeySize = 64
)

// LegacyPubKey is the historical Ed25519-curve identity public key,
// derived via unclamped scalar multiplication.
type LegacyPubKey [LegacyKeySize]byte

// LegacySecKey is the historical Ed25519-curve identity secret scalar.
type LegacySecKey [LegacyKeySize]byte

// Ed25519PubKey is a standard Ed25519 signing public key.
type Ed25519PubKey [Ed25519PubKeySize]byte

// Ed25519SecKey is a standard Ed25519 secret key in its 64-byte expanded
// form: 32-byte seed followed by the 32-byte public key.
type Ed25519SecKey [Ed25519SecKeySize]byte

// X25519PubKey is a Curve25519 key-agreement public key.
type X25519PubKey [X25519KeySize]byte

// X25519SecKey is a Curve25519 key-agreement secret key.
type X25519SecKey [X25519KeySize]byte

// Bytes returns the raw key bytes.
func (k LegacyPubKey) Bytes() []byte { return k[:] }
func (k LegacySecKey) Bytes() []byte { return k[:] }
func (k Ed25519PubKey) Bytes() []byte { return k[:] }
func (k Ed25519SecKey) Bytes() []byte { return k[:] }
func (k X25519PubKey) Bytes() []byte { return k[:] }
func (k X25519SecKey) Bytes() []byte { return k[:] }

// Hex returns the lowercase hex encoding of the key.
func (k LegacyPubKey) Hex() string  { return hex.EncodeToString(k[:]) }
func (k Ed25519PubKey) Hex() string { return hex.EncodeToString(k[:]) }
func (k X25519PubKey) Hex() string  { return hex.EncodeToString(k[:]) }

// Base32z returns the z-base-32 encoding of the key, as used in .mnode
// addresses.
func (k LegacyPubKey) Base32z() string  { return encodeBase32z(k[:]) }
func (k Ed25519PubKey) Base32z() string { return encodeBase32z(k[:]) }

// IsZero reports whether the key is the all-zero value, i.e. it failed to
// parse under the permissive parser.
func (k LegacyPubKey) IsZero() bool  { return k == LegacyPubKey{} }
func (k Ed25519PubKey) IsZero() bool { return k == Ed25519PubKey{} }
func (k X25519PubKey) IsZero() bool  { return k == X25519PubKey{} }

// IsZero reports whether the secret key is the all-zero value, the
// state of an unconfigured key slot before it's loaded or generated.
func (k X25519SecKey) IsZero() bool { return k == X25519SecKey{} }

// Zero scrubs the secret key from memory.
func (k *LegacySecKey) Zero()  { utils.ExplicitBzero(k[:]) }
func (k *Ed25519SecKey) Zero() { utils.ExplicitBzero(k[:]) }
func (k *X25519SecKey) Zero()  { utils.ExplicitBzero(k[:]) }

// Public derives the LegacyPubKey for this secret via Ed25519 base-point
// scalar multiplication with no scalar clamping, matching
// crypto_scalarmult_ed25519_base_noclamp.  The 32-byte scalar is placed in
// the low half of a 64-byte buffer with a zero high half and fed to
// edwards25519.Scalar.SetUniformBytes, which performs a wide reduction mod
// L without ever touching the clamping bits that ordinary Ed25519 key
// generation forces.
func (s LegacySecKey) Public() LegacyPubKey {
	var wide [64]byte
	copy(wide[:32], s[:])

	sc, err := edwards25519.NewScalar().SetUniformBytes(wide[:])
	if err != nil {
		// SetUniformBytes only fails when its input isn't exactly 64
		// bytes, which wide always is.
		panic("keys: SetUniformBytes: " + err.Error())
	}
	pt := new(edwards25519.Point).ScalarBaseMult(sc)

	var out LegacyPubKey
	copy(out[:], pt.Bytes())
	return out
}

// Public derives the Ed25519PubKey stored in the second half of the
// expanded secret key, matching crypto_sign_ed25519_sk_to_pk.  This layout
// is identical to the standard library's ed25519.PrivateKey encoding.
func (s Ed25519SecKey) Public() Ed25519PubKey {
	var out Ed25519PubKey
	copy(out[:], s[32:])
	return out
}

// StdPrivateKey returns the equivalent stdlib crypto/ed25519.PrivateKey,
// for use with crypto/ed25519's Sign and Verify.
func (s Ed25519SecKey) StdPrivateKey() ed25519.PrivateKey {
	out := make(ed25519.PrivateKey, ed25519.PrivateKeySize)
	copy(out, s[:])
	return out
}

// Public derives the X25519PubKey via Curve25519 base-point scalar
// multiplication.
func (s X25519SecKey) Public() X25519PubKey {
	var out X25519PubKey
	curve25519.ScalarBaseMult((*[32]byte)(&out), (*[32]byte)(&s))
	return out
}

// ToNodeAddress renders the Ed25519 identity key as the network's
// human-readable node address: the z-base-32 encoding of the 32 key
// bytes followed by the ".mnode" suffix.
func (k Ed25519PubKey) ToNodeAddress() string {
	return k.Base32z() + ".mnode"
}

// ParseLegacyPubKey accepts one of: 32 raw bytes, 64 hex chars, 43/44-char
// base64, or 52-char base32z.  An input matching none of those returns the
// zero key and logs a warning; it does not error, because callers
// (following the network's onion-request probing behavior) sometimes hand
// this parser candidate strings from more than one source format.
func ParseLegacyPubKey(input string) LegacyPubKey {
	b, ok := decodeFingerprint(input, LegacyKeySize)
	if !ok {
		log.Warningf("invalid legacy public key: not valid bytes, hex, b64, or b32z (len %d)", len(input))
		return LegacyPubKey{}
	}
	var out LegacyPubKey
	copy(out[:], b)
	return out
}

// ParseEd25519PubKey is the Ed25519 analogue of ParseLegacyPubKey.
func ParseEd25519PubKey(input string) Ed25519PubKey {
	b, ok := decodeFingerprint(input, Ed25519PubKeySize)
	if !ok {
		log.Warningf("invalid ed25519 public key: not valid bytes, hex, b64, or b32z (len %d)", len(input))
		return Ed25519PubKey{}
	}
	var out Ed25519PubKey
	copy(out[:], b)
	return out
}

// ParseX25519PubKey is the X25519 analogue of ParseLegacyPubKey.
func ParseX25519PubKey(input string) X25519PubKey {
	b, ok := decodeFingerprint(input, X25519KeySize)
	if !ok {
		log.Warningf("invalid x25519 public key: not valid bytes, hex, b64, or b32z (len %d)", len(input))
		return X25519PubKey{}
	}
	var out X25519PubKey
	copy(out[:], b)
	return out
}

// LoadLegacySecKeyHex parses exactly a 64-char hex string into a
// LegacySecKey, returning a *ParseError on any mismatch.  Unlike the
// permissive public-key parsers, the explicit single-encoding secret-key
// loaders never silently substitute a zero value.
func LoadLegacySecKeyHex(input string) (LegacySecKey, error) {
	b, err := loadHexExact(input, LegacyKeySize)
	if err != nil {
		return LegacySecKey{}, err
	}
	var out LegacySecKey
	copy(out[:], b)
	return out, nil
}

// LoadX25519SecKeyHex parses exactly a 64-char hex string into an
// X25519SecKey.
func LoadX25519SecKeyHex(input string) (X25519SecKey, error) {
	b, err := loadHexExact(input, X25519KeySize)
	if err != nil {
		return X25519SecKey{}, err
	}
	var out X25519SecKey
	copy(out[:], b)
	return out, nil
}

// LoadEd25519SecKeyHex parses exactly a 128-char hex string (the expanded
// 64-byte secret) into an Ed25519SecKey.
func LoadEd25519SecKeyHex(input string) (Ed25519SecKey, error) {
	b, err := loadHexExact(input, Ed25519SecKeySize)
	if err != nil {
		return Ed25519SecKey{}, err
	}
	var out Ed25519SecKey
	copy(out[:], b)
	return out, nil
}

func loadHexExact(input string, n int) ([]byte, error) {
	if !isHex(input) {
		return nil, errParse("hex key data is invalid: data is not hex")
	}
	if len(input) != 2*n {
		return nil, errParse("hex key data is invalid: expected %d hex digits, received %d", 2*n, len(input))
	}
	b, err := hex.DecodeString(input)
	if err != nil {
		return nil, errParse("hex key data is invalid: %s", err)
	}
	return b, nil
}
