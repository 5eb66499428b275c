// directory_test.go - Swarm table lookup tests.
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

package swarm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/beldex-network/storage-server/core/keys"
)

func TestTableLookupRoundTrip(t *testing.T) {
	tbl := NewTable()

	var ed keys.Ed25519PubKey
	ed[0] = 0x42
	var legacy keys.LegacyPubKey
	legacy[0] = 0x99

	rec := NodeRecord{
		IP:            "203.0.113.7",
		HTTPSPort:     22021,
		BusPort:       22022,
		Ed25519PubKey: ed,
		LegacyPubKey:  legacy,
	}
	tbl.ReplaceAll([]NodeRecord{rec})

	require.Equal(t, 1, tbl.Size())

	got, err := tbl.Lookup(ed)
	require.NoError(t, err)
	require.Equal(t, "203.0.113.7:22021", got.Address())
	require.Equal(t, "203.0.113.7:22022", got.BusAddress())

	got, err = tbl.LookupLegacy(legacy)
	require.NoError(t, err)
	require.Equal(t, rec, got)
}

func TestTableLookupUnknownPeer(t *testing.T) {
	tbl := NewTable()
	_, err := tbl.Lookup(keys.Ed25519PubKey{})
	require.ErrorIs(t, err, ErrUnknownPeer)
}

func TestTableReplaceAllDropsStaleNodes(t *testing.T) {
	tbl := NewTable()

	var a, b keys.Ed25519PubKey
	a[0] = 1
	b[0] = 2

	tbl.ReplaceAll([]NodeRecord{{Ed25519PubKey: a}, {Ed25519PubKey: b}})
	require.Equal(t, 2, tbl.Size())

	tbl.ReplaceAll([]NodeRecord{{Ed25519PubKey: a}})
	require.Equal(t, 1, tbl.Size())

	_, err := tbl.Lookup(b)
	require.ErrorIs(t, err, ErrUnknownPeer)
}
