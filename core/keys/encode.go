// encode.go - Multi-encoding key parser.
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
	"encoding/base64"
	"encoding/hex"
)

// decodeFingerprint accepts one of: n raw bytes, 2n hex chars, unpadded or
// padded base64, or base32z, chosen by length-and-alphabet fingerprint in
// that exact order.  It returns the decoded n-byte value and true on a
// recognized encoding, or nil/false otherwise.
func decodeFingerprint(input string, n int) ([]byte, bool) {
	switch {
	case len(input) == n:
		return []byte(input), true

	case len(input) == 2*n && isHex(input):
		b, err := hex.DecodeString(input)
		if err != nil {
			return nil, false
		}
		return b, true

	case len(input) == base64.RawStdEncoding.EncodedLen(n) && isBase64(input):
		b, err := base64.RawStdEncoding.DecodeString(input)
		if err != nil {
			return nil, false
		}
		return b, true

	case len(input) == base64.StdEncoding.EncodedLen(n) && len(input) > 0 && input[len(input)-1] == '=' && isBase64(input):
		b, err := base64.StdEncoding.DecodeString(input)
		if err != nil {
			return nil, false
		}
		return b, true

	case len(input) == base32zEncodedLen(n) && isBase32z(input):
		b, err := decodeBase32z(input)
		if err != nil {
			return nil, false
		}
		return b, true

	default:
		return nil, false
	}
}

func isHex(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

const base64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

func isBase64(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i, c := range s {
		if c == '=' && i == len(s)-1 {
			continue
		}
		if !containsRune(base64Alphabet, c) {
			return false
		}
	}
	return true
}

func containsRune(alphabet string, c rune) bool {
	for _, a := range alphabet {
		if a == c {
			return true
		}
	}
	return false
}
