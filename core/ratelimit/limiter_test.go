// limiter_test.go - Token bucket exhaustion, refill, and eviction tests.
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
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/beldex-network/storage-server/core/keys"
)

func hexPeer(t *testing.T, hex string) keys.LegacyPubKey {
	t.Helper()
	pk := keys.ParseLegacyPubKey(hex)
	require.False(t, pk.IsZero())
	return pk
}

func TestPeerBucketEmptiesThenRefills(t *testing.T) {
	l := New()
	peer := hexPeer(t, "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")
	now := time.Duration(0)

	for i := 0; i < BucketSize; i++ {
		require.False(t, l.ShouldRateLimit(peer, now), "request %d", i)
	}
	require.True(t, l.ShouldRateLimit(peer, now))

	// Wait just long enough for exactly one more token (rounded up to
	// the next nanosecond, since 1s/TokenRate is not a whole number of
	// nanoseconds).
	delta := (time.Second + TokenRate - 1) / TokenRate
	require.False(t, l.ShouldRateLimit(peer, now+delta))
}

func TestPeerSteadyFillup(t *testing.T) {
	l := New()
	peer := hexPeer(t, "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")
	now := time.Duration(0)

	for i := 0; i < BucketSize*10; i++ {
		delta := time.Duration(i) * time.Second / TokenRate
		require.False(t, l.ShouldRateLimit(peer, now+delta), "request %d", i)
	}
}

func TestPeerIdentifiersAreIndependent(t *testing.T) {
	l := New()
	peer1 := hexPeer(t, "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")
	peer2 := hexPeer(t, "5123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")
	now := time.Duration(0)

	for i := 0; i < BucketSize; i++ {
		require.False(t, l.ShouldRateLimit(peer1, now))
	}
	require.True(t, l.ShouldRateLimit(peer1, now))
	require.False(t, l.ShouldRateLimit(peer2, now))
}

func TestClientBucketEmptiesThenRefills(t *testing.T) {
	l := New()
	var ip uint32 = (10 << 24) + (1 << 16) + (1 << 8) + 13
	now := time.Duration(0)

	for i := 0; i < ClientBucketSize; i++ {
		require.False(t, l.ShouldRateLimitClient(ip, now), "request %d", i)
	}
	require.True(t, l.ShouldRateLimitClient(ip, now))

	delta := (time.Second + ClientTokenRate - 1) / ClientTokenRate
	require.False(t, l.ShouldRateLimitClient(ip, now+delta))
}

func TestClientIdentifiersAreIndependent(t *testing.T) {
	l := New()
	var ip1 uint32 = (10 << 24) + (1 << 16) + (1 << 8) + 13
	var ip2 uint32 = (10 << 24) + (1 << 16) + (1 << 8) + 10
	now := time.Duration(0)

	for i := 0; i < ClientBucketSize; i++ {
		require.False(t, l.ShouldRateLimitClient(ip1, now))
	}
	require.True(t, l.ShouldRateLimitClient(ip1, now))
	require.False(t, l.ShouldRateLimitClient(ip2, now))
}

func TestClientTableEvictsLeastRecentlyUsed(t *testing.T) {
	l := New()
	now := time.Duration(0)

	var base uint32 = 10 << 24
	for i := 0; i < MaxClients; i++ {
		l.ShouldRateLimitClient(base+uint32(i), now)
	}
	require.Equal(t, MaxClients, l.ClientCount())

	// One more distinct client evicts the oldest (base+0) and still gets
	// a fresh bucket rather than being rejected outright.
	require.False(t, l.ShouldRateLimitClient(base+MaxClients, now))
	require.Equal(t, MaxClients, l.ClientCount())

	// The evicted client is treated as new again.
	for i := 0; i < ClientBucketSize; i++ {
		require.False(t, l.ShouldRateLimitClient(base, now), "request %d", i)
	}
}
