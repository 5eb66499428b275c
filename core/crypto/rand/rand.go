// rand.go - Cryptographically secure entropy source.
// Copyright (C) 2016  Yawning Angel.
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

// Package rand provides the entropy source used to generate ephemeral
// onion-hop keypairs, AEAD nonces, and CBC IVs.
package rand

import cryptorand "crypto/rand"

// Reader is the entropy source used throughout the storage node for key
// and nonce generation.  It is a thin alias over crypto/rand.Reader so
// that call sites depend on this package rather than the stdlib directly,
// keeping every consumer swappable from one place.
var Reader = cryptorand.Reader
