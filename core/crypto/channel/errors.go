// errors.go - ChannelCrypto error taxonomy.
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

package channel

import "errors"

var (
	// ErrAuthFailed is returned when AEAD tag verification fails. AES-CBC
	// carries no authentication tag, so a corrupted CBC ciphertext is only
	// caught by the padding check and reported as ErrBadPadding.
	ErrAuthFailed = errors.New("channel: authentication failed")

	// ErrBadPadding is returned by the AES-CBC path when the decrypted
	// padding bytes are not a valid PKCS#7 block.
	ErrBadPadding = errors.New("channel: invalid PKCS#7 padding")

	// ErrInvalidKey is returned when a supplied key or nonce is the wrong
	// size for the selected algorithm.
	ErrInvalidKey = errors.New("channel: invalid key material")

	// ErrShortCiphertext is returned when the ciphertext is too short to
	// contain the algorithm's leading nonce (AEADs) or its IV plus at
	// least one block (AES-CBC).
	ErrShortCiphertext = errors.New("channel: ciphertext too short")

	// ErrUnknownAlgorithm is returned for an Algorithm value outside the
	// three recognized ciphersuites.
	ErrUnknownAlgorithm = errors.New("channel: unknown algorithm")
)
