// generate.go - Fresh keypair generation for node bring-up.
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

import (
	"crypto/ed25519"
	"io"

	corand "github.com/beldex-network/storage-server/core/crypto/rand"
)

// GenerateLegacySecKey draws a fresh, uniformly random legacy secret
// scalar from rng. Unlike ordinary Ed25519 key generation, no clamping is
// applied; the caller derives the matching LegacyPubKey with Public.
func GenerateLegacySecKey(rng io.Reader) (LegacySecKey, error) {
	var s LegacySecKey
	if _, err := io.ReadFull(rng, s[:]); err != nil {
		return LegacySecKey{}, err
	}
	return s, nil
}

// GenerateEd25519SecKey draws a fresh Ed25519 signing keypair and returns
// it in expanded 64-byte form.
func GenerateEd25519SecKey(rng io.Reader) (Ed25519SecKey, error) {
	_, priv, err := ed25519.GenerateKey(rng)
	if err != nil {
		return Ed25519SecKey{}, err
	}
	var out Ed25519SecKey
	copy(out[:], priv)
	return out, nil
}

// GenerateX25519SecKey draws a fresh X25519 secret key.
func GenerateX25519SecKey(rng io.Reader) (X25519SecKey, error) {
	var s X25519SecKey
	if _, err := io.ReadFull(rng, s[:]); err != nil {
		return X25519SecKey{}, err
	}
	// Curve25519 scalars are clamped internally by ScalarBaseMult/ScalarMult,
	// so no clamping is performed here.
	return s, nil
}

// DefaultKeys generates a full triple of node keys using the storage
// node's default CSPRNG.
func DefaultKeys() (LegacySecKey, Ed25519SecKey, X25519SecKey, error) {
	legacy, err := GenerateLegacySecKey(corand.Reader)
	if err != nil {
		return LegacySecKey{}, Ed25519SecKey{}, X25519SecKey{}, err
	}
	ed, err := GenerateEd25519SecKey(corand.Reader)
	if err != nil {
		return LegacySecKey{}, Ed25519SecKey{}, X25519SecKey{}, err
	}
	x, err := GenerateX25519SecKey(corand.Reader)
	if err != nil {
		return LegacySecKey{}, Ed25519SecKey{}, X25519SecKey{}, err
	}
	return legacy, ed, x, nil
}
