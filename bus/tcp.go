// tcp.go - A length-prefixed TCP Transport for mn.onion_req_v2: each
// message is a bencoded value preceded by a 4-byte little-endian byte
// count, following the same size-prefix convention core/onion uses for
// its own envelope framing.
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
	"crypto/tls"
	"crypto/x509"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/beldex-network/storage-server/core/keys"
	"github.com/beldex-network/storage-server/swarm"
)

// maxFrameSize bounds a single bus message, matching the onion codec's
// own envelope size ceiling since a relay command's blob is itself a
// full onion layer.
const maxFrameSize = 32 << 20

const dialTimeout = 10 * time.Second

// TCPTransport dials peer nodes by consulting a swarm.Directory for
// their bus address, reusing connections across calls to the same
// peer. Every dial presents cert (this node's own identity certificate)
// and verifies the accepting peer's certificate is bound to the Ed25519
// identity being dialed, so a compromised address cannot silently
// impersonate a different swarm member.
type TCPTransport struct {
	directory swarm.Directory
	cert      tls.Certificate

	mu    sync.Mutex
	conns map[string]net.Conn
}

// NewTCPTransport constructs a Transport that resolves destinations
// through directory and authenticates itself to peers as cert.
func NewTCPTransport(directory swarm.Directory, cert tls.Certificate) *TCPTransport {
	return &TCPTransport{
		directory: directory,
		cert:      cert,
		conns:     make(map[string]net.Conn),
	}
}

// SendOnionRequest implements Transport.
func (t *TCPTransport) SendOnionRequest(ctx context.Context, dest keys.Ed25519PubKey, req OnionReqV2) (Reply, error) {
	rec, err := t.directory.Lookup(dest)
	if err != nil {
		return Reply{}, err
	}

	conn, err := t.conn(ctx, rec.BusAddress(), dest)
	if err != nil {
		return Reply{}, err
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	body, err := req.Encode()
	if err != nil {
		t.drop(rec.BusAddress())
		return Reply{}, err
	}
	if err := writeFrame(conn, body); err != nil {
		t.drop(rec.BusAddress())
		return Reply{}, err
	}

	respFrame, err := readFrame(conn)
	if err != nil {
		t.drop(rec.BusAddress())
		return Reply{}, err
	}

	parts, err := DecodeList(respFrame)
	if err != nil {
		return Reply{}, err
	}
	return DecodeReply(parts), nil
}

// Close closes every connection this transport has opened.
func (t *TCPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for addr, c := range t.conns {
		c.Close()
		delete(t.conns, addr)
	}
	return nil
}

func (t *TCPTransport) conn(ctx context.Context, addr string, dest keys.Ed25519PubKey) (net.Conn, error) {
	t.mu.Lock()
	if c, ok := t.conns[addr]; ok {
		t.mu.Unlock()
		return c, nil
	}
	t.mu.Unlock()

	d := tls.Dialer{
		NetDialer: &net.Dialer{Timeout: dialTimeout},
		Config: &tls.Config{
			Certificates:       []tls.Certificate{t.cert},
			InsecureSkipVerify: true,
			VerifyPeerCertificate: func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
				identity, err := verifyIdentityCert(rawCerts)
				if err != nil {
					return err
				}
				if identity != dest {
					return errors.New("bus: peer at " + addr + " presented an identity other than the one dialed")
				}
				return nil
			},
		},
	}
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.conns[addr] = c
	t.mu.Unlock()
	return c, nil
}

func (t *TCPTransport) drop(addr string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.conns[addr]; ok {
		c.Close()
		delete(t.conns, addr)
	}
}

func writeFrame(w io.Writer, body []byte) error {
	if len(body) > maxFrameSize {
		return fmt.Errorf("bus: outgoing frame of %d bytes exceeds limit %d", len(body), maxFrameSize)
	}
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(body)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

func readFrame(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	size := binary.LittleEndian.Uint32(hdr[:])
	if size > maxFrameSize {
		return nil, fmt.Errorf("bus: incoming frame of %d bytes exceeds limit %d", size, maxFrameSize)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
