// server.go - The message-bus listener: accepts length-prefixed
// mn.onion_req_v2 frames from peer nodes and hands each to a Handler.
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
	"errors"
	"fmt"
	"net"

	"gopkg.in/op/go-logging.v1"

	"github.com/beldex-network/storage-server/core/keys"
	"github.com/beldex-network/storage-server/swarm"
)

var log = logging.MustGetLogger("bus")

// Handler processes one relayed onion_req_v2 command from peer and
// returns the Reply to send back. peer is the LegacyPubKey the message
// bus's mutual-TLS handshake authenticated the connection as; it is the
// zero key only for a Server built without a directory.
type Handler func(ctx context.Context, peer keys.LegacyPubKey, cmd OnionReqV2) Reply

// Server accepts connections on the message-bus port and dispatches
// each decoded command to a Handler.
type Server struct {
	handler   Handler
	cert      tls.Certificate
	directory swarm.Directory
	listener  net.Listener
}

// NewServer constructs a bus Server bound to addr. cert is this node's
// own identity certificate (see NewIdentityCertificate); directory
// resolves a peer's presented identity to the LegacyPubKey passed to
// handler. It does not start accepting connections until Serve is
// called.
func NewServer(handler Handler, cert tls.Certificate, directory swarm.Directory) *Server {
	return &Server{handler: handler, cert: cert, directory: directory}
}

// Serve binds addr and accepts connections until Close is called,
// blocking the calling goroutine.
func (s *Server) Serve(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.Noticef("Message bus listening on %s", addr)
	return s.ServeListener(ln)
}

// ServeListener accepts connections on an already-bound listener until
// Close is called, blocking the calling goroutine. Exposed separately
// from Serve so a caller (or a test) can bind an ephemeral port and
// learn its address before accepting begins.
func (s *Server) ServeListener(ln net.Listener) error {
	s.listener = ln
	tlsLn := tls.NewListener(ln, s.tlsConfig())
	for {
		conn, err := tlsLn.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Warningf("bus: accept error: %v", err)
			continue
		}
		go s.serveConn(conn)
	}
}

// tlsConfig demands and verifies a peer identity certificate on every
// inbound connection. Chain verification is skipped in favor of
// verifyIdentityCert's own trust anchor: the peer's Ed25519 signature
// over its own certificate's public key.
func (s *Server) tlsConfig() *tls.Config {
	return &tls.Config{
		Certificates:          []tls.Certificate{s.cert},
		ClientAuth:            tls.RequireAnyClientCert,
		InsecureSkipVerify:    true,
		VerifyPeerCertificate: func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
			_, err := verifyIdentityCert(rawCerts)
			return err
		},
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()

	peer, err := s.authenticate(conn)
	if err != nil {
		log.Warningf("bus: rejecting %s: %v", conn.RemoteAddr(), err)
		return
	}

	for {
		frame, err := readFrame(conn)
		if err != nil {
			return
		}

		cmd, err := DecodeOnionReqV2(frame)
		if err != nil {
			log.Debugf("bus: malformed onion_req_v2 from %s: %v", conn.RemoteAddr(), err)
			return
		}

		reply := s.handler(context.Background(), peer, cmd)

		respBody, err := EncodeList(EncodeReply(reply))
		if err != nil {
			log.Errorf("bus: failed to encode reply: %v", err)
			return
		}
		if err := writeFrame(conn, respBody); err != nil {
			return
		}
	}
}

// authenticate completes the TLS handshake (VerifyPeerCertificate has
// already rejected an unbound certificate by this point) and resolves
// the now-trusted Ed25519 identity to the LegacyPubKey ShouldRateLimit
// keys its per-peer bucket on. A Server with no directory skips this
// lookup and always reports the zero peer.
func (s *Server) authenticate(conn net.Conn) (keys.LegacyPubKey, error) {
	if s.directory == nil {
		return keys.LegacyPubKey{}, nil
	}
	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		return keys.LegacyPubKey{}, errors.New("bus: connection is not TLS-protected")
	}
	if err := tlsConn.Handshake(); err != nil {
		return keys.LegacyPubKey{}, fmt.Errorf("TLS handshake failed: %w", err)
	}
	peerCerts := tlsConn.ConnectionState().PeerCertificates
	if len(peerCerts) == 0 {
		return keys.LegacyPubKey{}, errors.New("bus: no peer certificate after handshake")
	}
	identity, err := verifyIdentityCert([][]byte{peerCerts[0].Raw})
	if err != nil {
		return keys.LegacyPubKey{}, err
	}
	rec, err := s.directory.Lookup(identity)
	if err != nil {
		return keys.LegacyPubKey{}, fmt.Errorf("bus: peer identity %s is not a known swarm member: %w", identity.Hex(), err)
	}
	return rec.LegacyPubKey, nil
}
