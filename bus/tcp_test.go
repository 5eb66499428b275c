// tcp_test.go - End-to-end TCPTransport/Server round trip over a real
// loopback socket.
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
	"crypto/rand"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/beldex-network/storage-server/core/crypto/channel"
	"github.com/beldex-network/storage-server/core/keys"
	"github.com/beldex-network/storage-server/swarm"
)

type staticDirectory struct {
	rec swarm.NodeRecord
}

func (d staticDirectory) Lookup(id keys.Ed25519PubKey) (swarm.NodeRecord, error) {
	return d.rec, nil
}

func (d staticDirectory) LookupLegacy(id keys.LegacyPubKey) (swarm.NodeRecord, error) {
	return d.rec, nil
}

func TestTCPTransportRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	serverEdSec, err := keys.GenerateEd25519SecKey(rand.Reader)
	require.NoError(t, err)
	serverCert, err := NewIdentityCertificate(serverEdSec)
	require.NoError(t, err)

	clientEdSec, err := keys.GenerateEd25519SecKey(rand.Reader)
	require.NoError(t, err)
	clientCert, err := NewIdentityCertificate(clientEdSec)
	require.NoError(t, err)

	var gotPeer keys.LegacyPubKey
	clientLegacy := keys.LegacyPubKey{0x7a}
	serverDir := staticDirectory{rec: swarm.NodeRecord{IP: "127.0.0.1", BusPort: mustPort(t, ln), LegacyPubKey: clientLegacy}}

	srv := NewServer(func(ctx context.Context, peer keys.LegacyPubKey, cmd OnionReqV2) Reply {
		gotPeer = peer
		return Reply{OK: true, Body: append([]byte("got:"), cmd.Blob...)}
	}, serverCert, serverDir)
	go srv.ServeListener(ln) //nolint:errcheck

	defer srv.Close()

	clientDir := staticDirectory{rec: swarm.NodeRecord{IP: "127.0.0.1", BusPort: mustPort(t, ln), Ed25519PubKey: serverEdSec.Public()}}
	transport := NewTCPTransport(clientDir, clientCert)
	defer transport.Close()

	xSec, err := keys.GenerateX25519SecKey(rand.Reader)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reply, err := transport.SendOnionRequest(ctx, serverEdSec.Public(), OnionReqV2{
		Blob:         []byte("payload"),
		EphemeralKey: xSec.Public(),
		EncType:      channel.AlgoXChaCha20Poly1305,
		HopCount:     1,
	})
	require.NoError(t, err)
	require.True(t, reply.OK)
	require.Equal(t, "got:payload", string(reply.Body))
	require.Equal(t, clientLegacy, gotPeer)
}

func mustPort(t *testing.T, ln net.Listener) uint16 {
	t.Helper()
	_, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return uint16(port)
}
