// channel.go - Channel encryption: shared-secret derivation and dispatch
// across the three onion-hop ciphersuites.
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

// Package channel implements the per-hop symmetric encryption used to wrap
// and unwrap onion request layers, keyed by an X25519 ECDH shared secret
// between the sender's ephemeral (or long-term) key and the hop's
// long-term X25519 public key.  Three interchangeable ciphersuites are
// supported so that older and newer clients can negotiate independently
// per hop.
package channel

import (
	"crypto/sha256"
	"crypto/sha512"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"

	"github.com/beldex-network/storage-server/core/keys"
)

// Algorithm selects the AEAD/cipher construction used to seal a single
// onion hop.
type Algorithm string

const (
	// AlgoXChaCha20Poly1305 is the preferred, newest ciphersuite.
	AlgoXChaCha20Poly1305 Algorithm = "xchacha20-poly1305"
	// AlgoAESGCM is a fallback authenticated ciphersuite for clients that
	// predate XChaCha20-Poly1305 support.
	AlgoAESGCM Algorithm = "aes-gcm"
	// AlgoAESCBC is the oldest ciphersuite, unauthenticated at the
	// symmetric layer (padding validity is the only integrity signal
	// after decryption).
	AlgoAESCBC Algorithm = "aes-cbc"
)

// hkdfInfoXChaCha (the HKDF context string) and hkdfSaltAESGCM and
// hkdfSaltAESCBC (the SHA-256 salts) are fixed per algorithm so that the
// same raw ECDH point derives independent keys under each algorithm even
// if a peer reused an ephemeral key across ciphersuites.
var (
	hkdfInfoXChaCha = []byte("beldex-storage-xchacha20-poly1305")
	hkdfSaltAESGCM  = []byte("beldex-storage-aes-gcm")
	hkdfSaltAESCBC  = []byte("loki")
)

// sharedSecret computes the raw X25519 ECDH point between mySec and
// peerPub.
func sharedSecret(mySec keys.X25519SecKey, peerPub keys.X25519PubKey) ([]byte, error) {
	secret, err := curve25519.X25519(mySec[:], peerPub[:])
	if err != nil {
		return nil, ErrInvalidKey
	}
	return secret, nil
}

// deriveXChaChaKey stretches the ECDH point through HKDF-SHA512 into a
// 32-byte XChaCha20-Poly1305 key.
func deriveXChaChaKey(secret []byte) ([]byte, error) {
	out := make([]byte, 32)
	r := hkdf.New(sha512.New, secret, nil, hkdfInfoXChaCha)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

// deriveAESKey hashes the ECDH point with a fixed salt to produce a
// 32-byte AES key, following the network's original construction:
// SHA256(salt || secret).
func deriveAESKey(secret, salt []byte) []byte {
	h := sha256.New()
	h.Write(salt)
	h.Write(secret)
	return h.Sum(nil)
}

// Encrypt seals plaintext for the hop identified by peerPub, using mySec
// as the local X25519 secret (an ephemeral key for the entry hop,
// or the node's own long-term key when relaying).  It returns the
// algorithm's wire ciphertext, self-contained with whatever nonce/IV the
// algorithm needs.
func Encrypt(algo Algorithm, plaintext []byte, mySec keys.X25519SecKey, peerPub keys.X25519PubKey) ([]byte, error) {
	secret, err := sharedSecret(mySec, peerPub)
	if err != nil {
		return nil, err
	}

	switch algo {
	case AlgoXChaCha20Poly1305:
		key, err := deriveXChaChaKey(secret)
		if err != nil {
			return nil, err
		}
		return sealXChaCha20Poly1305(key, plaintext)

	case AlgoAESGCM:
		key := deriveAESKey(secret, hkdfSaltAESGCM)
		return sealAESGCM(key, plaintext)

	case AlgoAESCBC:
		key := deriveAESKey(secret, hkdfSaltAESCBC)
		return sealAESCBC(key, plaintext)

	default:
		return nil, ErrUnknownAlgorithm
	}
}

// Decrypt opens a ciphertext produced by Encrypt for the same (mySec,
// peerPub) pair, from the receiving hop's perspective: mySec is the
// hop's own X25519 secret and peerPub is the sender's ephemeral or
// long-term public key.
func Decrypt(algo Algorithm, ciphertext []byte, mySec keys.X25519SecKey, peerPub keys.X25519PubKey) ([]byte, error) {
	secret, err := sharedSecret(mySec, peerPub)
	if err != nil {
		return nil, err
	}

	switch algo {
	case AlgoXChaCha20Poly1305:
		key, err := deriveXChaChaKey(secret)
		if err != nil {
			return nil, err
		}
		return openXChaCha20Poly1305(key, ciphertext)

	case AlgoAESGCM:
		key := deriveAESKey(secret, hkdfSaltAESGCM)
		return openAESGCM(key, ciphertext)

	case AlgoAESCBC:
		key := deriveAESKey(secret, hkdfSaltAESCBC)
		return openAESCBC(key, ciphertext)

	default:
		return nil, ErrUnknownAlgorithm
	}
}

// GenerateEphemeralKey draws a fresh X25519 keypair for use as the
// originator's per-request key when constructing an onion request.
func GenerateEphemeralKey(rng io.Reader) (keys.X25519SecKey, keys.X25519PubKey, error) {
	sec, err := keys.GenerateX25519SecKey(rng)
	if err != nil {
		return keys.X25519SecKey{}, keys.X25519PubKey{}, err
	}
	return sec, sec.Public(), nil
}
