// transport.go - The abstraction the relay path uses to hand an
// onion_req_v2 command to the message bus without depending on any
// particular bus client implementation.
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

package bus

import (
	"context"

	"github.com/beldex-network/storage-server/core/keys"
)

// Transport sends a bencoded mn.onion_req_v2 command to a peer node and
// returns its reply. Implementations own connection lifetime, retry, and
// any peer address resolution; RequestEntry only needs this one call.
type Transport interface {
	// SendOnionRequest delivers req to the peer identified by its
	// Ed25519 node identity and returns the peer's Reply, or an error if
	// the peer could not be reached at all (a reachable peer's own
	// request-level failure comes back as a non-OK Reply, not an error).
	SendOnionRequest(ctx context.Context, dest keys.Ed25519PubKey, req OnionReqV2) (Reply, error)
}
