// limiter.go - The Limiter type: two independent token-bucket tables, one
// for peer master nodes and one for HTTP clients.
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

package ratelimit

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/beldex-network/storage-server/core/keys"
)

const (
	// BucketSize is the number of requests a fresh identifier may burst
	// before being rate limited.
	BucketSize = 600
	// TokenRate is the steady-state number of requests per second an
	// identifier's bucket refills at.
	TokenRate = 300

	// ClientBucketSize is the burst allowance for a client IP, smaller
	// than the peer allowance since client traffic is far higher volume
	// and less trusted.
	ClientBucketSize = 30
	// ClientTokenRate is the steady-state refill rate for a client IP.
	ClientTokenRate = 3

	// MaxClients bounds the client table; once full, admitting a new
	// client IP evicts the least recently used entry, giving it a fresh
	// full bucket.
	MaxClients = 10000
)

// Limiter is the storage node's request admission filter. Zero value is
// not usable; construct with New.
type Limiter struct {
	peerMu sync.Mutex
	peers  map[keys.LegacyPubKey]*tokenBucket

	clientMu sync.Mutex
	clients  *lru.Cache[uint32, *tokenBucket]
}

// New constructs a Limiter with an empty peer table and a client table
// bounded to MaxClients entries.
func New() *Limiter {
	clients, err := lru.New[uint32, *tokenBucket](MaxClients)
	if err != nil {
		// Only returns an error for a non-positive size, which MaxClients
		// never is.
		panic("ratelimit: lru.New: " + err.Error())
	}
	return &Limiter{
		peers:   make(map[keys.LegacyPubKey]*tokenBucket),
		clients: clients,
	}
}

// ShouldRateLimit reports whether a request from the given peer node
// should be rejected, consuming a token from its bucket if not. The peer
// table is unbounded: master node identities are a small, roughly fixed
// set known from swarm membership, not attacker-controlled churn.
func (l *Limiter) ShouldRateLimit(peer keys.LegacyPubKey, now time.Duration) bool {
	l.peerMu.Lock()
	defer l.peerMu.Unlock()

	b, ok := l.peers[peer]
	if !ok {
		nb := newTokenBucket(BucketSize, now)
		b = &nb
		l.peers[peer] = b
	}
	return b.take(TokenRate, BucketSize, now)
}

// ShouldRateLimitClient reports whether a request from the given client
// IPv4 address should be rejected, consuming a token from its bucket if
// not. The client table is bounded by MaxClients and evicts the least
// recently used identifier to make room for a new one.
func (l *Limiter) ShouldRateLimitClient(ipv4 uint32, now time.Duration) bool {
	l.clientMu.Lock()
	defer l.clientMu.Unlock()

	b, ok := l.clients.Get(ipv4)
	if !ok {
		nb := newTokenBucket(ClientBucketSize, now)
		b = &nb
		l.clients.Add(ipv4, b)
	}
	return b.take(ClientTokenRate, ClientBucketSize, now)
}

// PeerCount returns the number of distinct peers currently tracked, for
// status reporting.
func (l *Limiter) PeerCount() int {
	l.peerMu.Lock()
	defer l.peerMu.Unlock()
	return len(l.peers)
}

// ClientCount returns the number of distinct client IPs currently
// tracked, for status reporting.
func (l *Limiter) ClientCount() int {
	return l.clients.Len()
}
