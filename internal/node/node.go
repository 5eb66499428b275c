// node.go - Node: the storage node's top level runtime, wiring key
// material, swarm membership, the message bus, and the HTTPS front end
// together into a single process with a well-defined startup and
// shutdown order.
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

// Package node assembles the storage node's runtime: it turns a loaded
// Config into a running RequestEntry dispatcher, message-bus listener,
// and HTTPS front end, and tears them down in the order that matters.
package node

import (
	"encoding/hex"
	"fmt"
	"sync"

	"gopkg.in/op/go-logging.v1"

	"github.com/beldex-network/storage-server/bus"
	corand "github.com/beldex-network/storage-server/core/crypto/rand"
	"github.com/beldex-network/storage-server/core/keys"
	"github.com/beldex-network/storage-server/server/config"
	"github.com/beldex-network/storage-server/server/httpapi"
	"github.com/beldex-network/storage-server/internal/request"
	"github.com/beldex-network/storage-server/swarm"
)

var log = logging.MustGetLogger("node")

// Node is a running storage node instance.
type Node struct {
	cfg *config.Config

	legacySec  keys.LegacySecKey
	ed25519Sec keys.Ed25519SecKey
	x25519Sec  keys.X25519SecKey

	directory *swarm.Table
	transport *bus.TCPTransport
	busServer *bus.Server
	entry     *request.RequestEntry
	https     *httpapi.Server

	haltOnce sync.Once
	haltedCh chan interface{}
}

// New brings a storage node fully online: it loads or generates the
// node's three long-term keys, creates the message-bus transport, starts
// the request dispatcher, opens the message-bus listener, and finally
// binds the public HTTPS listener.
// Past the point keys are loaded, any failure triggers a call to
// Shutdown to clean up whatever came up before the failure.
func New(cfg *config.Config) (*Node, error) {
	n := &Node{
		cfg:       cfg,
		directory: swarm.NewTable(),
		haltedCh:  make(chan interface{}),
	}

	if err := n.loadOrGenerateKeys(); err != nil {
		return nil, fmt.Errorf("node: failed to initialize keys: %w", err)
	}
	log.Noticef("Node identity: %s", n.ed25519Sec.Public().ToNodeAddress())

	isOk := false
	defer func() {
		if !isOk {
			n.Shutdown()
		}
	}()

	busCert, err := bus.NewIdentityCertificate(n.ed25519Sec)
	if err != nil {
		return nil, fmt.Errorf("node: failed to generate message-bus identity certificate: %w", err)
	}
	n.transport = bus.NewTCPTransport(n.directory, busCert)

	entry, err := request.New(request.Params{
		Config:    cfg,
		X25519Sec: n.x25519Sec,
		Ed25519:   n.ed25519Sec.Public(),
		Legacy:    n.legacySec.Public(),
		Directory: n.directory,
		Transport: n.transport,
		Proxy:     request.NewHTTPProxyHandler(),
	})
	if err != nil {
		return nil, fmt.Errorf("node: failed to start request dispatcher: %w", err)
	}
	n.entry = entry

	n.busServer = bus.NewServer(n.entry.HandleRelay, busCert, n.directory)
	go func() {
		busAddr := fmt.Sprintf("%s:%d", cfg.Server.IP, cfg.Server.BusPort)
		if err := n.busServer.Serve(busAddr); err != nil {
			log.Errorf("node: message bus listener stopped: %v", err)
		}
	}()

	cert, err := httpapi.LoadOrGenerateCert(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.Server.IP)
	if err != nil {
		return nil, fmt.Errorf("node: failed to load or generate TLS certificate: %w", err)
	}
	httpsAddr := fmt.Sprintf("%s:%d", cfg.Server.IP, cfg.Server.Port)
	n.https = httpapi.New(httpsAddr, cert, n.entry, n.entry, cfg.StatsAccessKeys)
	n.entry.SetListener(n.https)

	go func() {
		if err := n.https.Serve(); err != nil {
			log.Debugf("node: HTTPS front end stopped: %v", err)
		}
	}()

	isOk = true
	return n, nil
}

// Shutdown drains the node in dependency order: RequestEntry.Halt stops
// the HTTPS front end accepting new client requests, closes the bus
// transport and stops the dispatcher's background timers; then the
// message-bus listener stops accepting new peer connections.
func (n *Node) Shutdown() {
	n.haltOnce.Do(func() {
		log.Notice("Starting graceful shutdown.")

		if n.entry != nil {
			n.entry.Halt()
		}
		if n.busServer != nil {
			n.busServer.Close()
		}
		n.legacySec.Zero()
		n.ed25519Sec.Zero()
		n.x25519Sec.Zero()

		log.Notice("Shutdown complete.")
		close(n.haltedCh)
	})
}

// Wait blocks until the node has been shut down.
func (n *Node) Wait() {
	<-n.haltedCh
}

func (n *Node) loadOrGenerateKeys() error {
	var err error
	n.legacySec, err = loadOrGenerateLegacy(n.cfg.Keys.Legacy)
	if err != nil {
		return err
	}
	n.ed25519Sec, err = loadOrGenerateEd25519(n.cfg.Keys.Ed25519)
	if err != nil {
		return err
	}
	n.x25519Sec, err = loadOrGenerateX25519(n.cfg.Keys.X25519)
	return err
}

func loadOrGenerateLegacy(path string) (keys.LegacySecKey, error) {
	if hexStr, ok := readKeyFile(path); ok {
		return keys.LoadLegacySecKeyHex(hexStr)
	}
	sk, err := keys.GenerateLegacySecKey(corand.Reader)
	if err != nil {
		return keys.LegacySecKey{}, err
	}
	return sk, writeKeyFile(path, hex.EncodeToString(sk.Bytes()))
}

func loadOrGenerateEd25519(path string) (keys.Ed25519SecKey, error) {
	if hexStr, ok := readKeyFile(path); ok {
		return keys.LoadEd25519SecKeyHex(hexStr)
	}
	sk, err := keys.GenerateEd25519SecKey(corand.Reader)
	if err != nil {
		return keys.Ed25519SecKey{}, err
	}
	return sk, writeKeyFile(path, hex.EncodeToString(sk.Bytes()))
}

func loadOrGenerateX25519(path string) (keys.X25519SecKey, error) {
	if hexStr, ok := readKeyFile(path); ok {
		return keys.LoadX25519SecKeyHex(hexStr)
	}
	sk, err := keys.GenerateX25519SecKey(corand.Reader)
	if err != nil {
		return keys.X25519SecKey{}, err
	}
	return sk, writeKeyFile(path, hex.EncodeToString(sk.Bytes()))
}
