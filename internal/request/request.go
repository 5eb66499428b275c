// request.go - RequestEntry: the storage node's onion-request dispatcher.
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

// Package request wires together the node's key material, swarm
// directory, rate limiter, and message-bus transport into a single
// RequestEntry runtime that dispatches decoded onion layers to a local
// handler, an outbound HTTP proxy, or the next hop's message bus.
package request

import (
	"errors"
	"net"
	"sync"
	"time"

	"gopkg.in/op/go-logging.v1"

	"github.com/beldex-network/storage-server/bus"
	"github.com/beldex-network/storage-server/core/keys"
	"github.com/beldex-network/storage-server/core/onion"
	"github.com/beldex-network/storage-server/core/ratelimit"
	"github.com/beldex-network/storage-server/server/config"
	"github.com/beldex-network/storage-server/swarm"
)

var log = logging.MustGetLogger("request")

// ErrShuttingDown is returned by HandleEntryRequest once the node has begun
// draining and is refusing new onion work.
var ErrShuttingDown = errors.New("request: node is shutting down")

// LocalHandler answers a terminal control tail's request body directly
// against the node's own storage state. It is supplied by the caller
// that owns storage (message retrieval, submission, swarm RPCs, ...)
// rather than implemented in this package, so that request stays
// storage-agnostic.
type LocalHandler func(body []byte) ([]byte, error)

// ProxyHandler makes the outbound HTTP(S) request a ProxyTail
// describes and returns the response body.
type ProxyHandler func(tail onion.ProxyTail, body []byte) ([]byte, error)

// Listener is the subset of net.Listener the HTTPS front end needs;
// RequestEntry only holds onto it long enough to close it during an
// ordered shutdown.
type Listener interface {
	Close() error
}

// RequestEntry is the storage node's dispatcher: the glue between the
// decoded onion layer and whichever of local handling, outbound
// proxying, or next-hop relaying it names.
//
// Its background timers (watchdog, statusLoop) are tracked directly
// against stopCh/wg rather than through a standalone worker-group type:
// RequestEntry is their only caller, and Halt's ordering — listener,
// then transport, then timers — is specific to how this dispatcher
// drains, not something a generic primitive should hide.
type RequestEntry struct {
	cfg *config.Config

	x25519Sec keys.X25519SecKey
	ed25519   keys.Ed25519PubKey
	legacy    keys.LegacyPubKey

	directory swarm.Directory
	transport bus.Transport
	limiter   *ratelimit.Limiter

	local LocalHandler
	proxy ProxyHandler

	mu       sync.Mutex
	listener Listener
	draining bool

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup

	statsMu       sync.Mutex
	requestsTotal uint64
}

// Params bundles the constructor arguments for New. Config, X25519Sec,
// Directory and Transport are required; Ed25519 and Legacy are stored
// as given without being checked; Local and Proxy default to handlers
// that refuse the corresponding control kind.
type Params struct {
	Config    *config.Config
	X25519Sec keys.X25519SecKey
	Ed25519   keys.Ed25519PubKey
	Legacy    keys.LegacyPubKey
	Directory swarm.Directory
	Transport bus.Transport
	Local     LocalHandler
	Proxy     ProxyHandler
}

// New constructs a RequestEntry and starts its background watchdog and
// status timers. It does not open the HTTPS listener itself; call
// SetListener once the front end has bound its socket so Halt can close
// it in the correct order.
func New(p Params) (*RequestEntry, error) {
	if p.Config == nil {
		return nil, errors.New("request: no config supplied")
	}
	if p.Directory == nil {
		return nil, errors.New("request: no swarm directory supplied")
	}
	if p.Transport == nil {
		return nil, errors.New("request: no message-bus transport supplied")
	}
	if p.X25519Sec.IsZero() {
		return nil, errors.New("request: no X25519 identity key supplied")
	}

	r := &RequestEntry{
		cfg:       p.Config,
		x25519Sec: p.X25519Sec,
		ed25519:   p.Ed25519,
		legacy:    p.Legacy,
		directory: p.Directory,
		transport: p.Transport,
		local:     p.Local,
		proxy:     p.Proxy,
		stopCh:    make(chan struct{}),
	}
	if !p.Config.Debug.DisableRateLimit {
		r.limiter = ratelimit.New()
	}
	if r.local == nil {
		r.local = func([]byte) ([]byte, error) {
			return nil, errors.New("request: no local handler configured")
		}
	}
	if r.proxy == nil {
		r.proxy = func(onion.ProxyTail, []byte) ([]byte, error) {
			return nil, errors.New("request: no proxy handler configured")
		}
	}

	r.spawn(r.watchdog)
	r.spawn(r.statusLoop)

	return r, nil
}

// spawn starts fn in its own goroutine and tracks it against wg so Halt
// can wait for it to notice stopCh and return before Halt itself
// returns.
func (r *RequestEntry) spawn(fn func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fn()
	}()
}

// SetListener records the HTTPS front-end's listener so an ordered
// shutdown closes it first, before tearing down the swarm and bus
// subsystems underneath it.
func (r *RequestEntry) SetListener(l Listener) {
	r.mu.Lock()
	r.listener = l
	r.mu.Unlock()
}

// Halt drains the node in the order that matters: stop accepting new
// HTTPS connections first, then close the message-bus transport (if it
// has a Close method), and only then tear down the background timers.
// The public listener always closes before the subsystems it depends
// on, so that no new work can be admitted while the rest of the node is
// mid-teardown.
func (r *RequestEntry) Halt() {
	r.mu.Lock()
	r.draining = true
	l := r.listener
	r.listener = nil
	r.mu.Unlock()

	if l != nil {
		if err := l.Close(); err != nil {
			log.Warningf("Error closing HTTPS listener: %v", err)
		}
	}

	if closer, ok := r.transport.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.Warningf("Error closing message-bus transport: %v", err)
		}
	}

	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
	log.Notice("RequestEntry shutdown complete.")
}

func (r *RequestEntry) isDraining() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.draining
}

func (r *RequestEntry) incRequests() {
	r.statsMu.Lock()
	r.requestsTotal++
	r.statsMu.Unlock()
}

// RequestsServed returns the number of onion requests this node has
// dispatched since startup, for the status log and stats endpoint.
func (r *RequestEntry) RequestsServed() uint64 {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	return r.requestsTotal
}

// watchdog logs a heartbeat every 10 seconds so an operator tailing the
// log can tell the dispatcher's worker loop is still alive, separate
// from whether it is doing anything useful.
func (r *RequestEntry) watchdog() {
	const interval = 10 * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			log.Debugf("watchdog: alive, %d requests served, draining=%v", r.RequestsServed(), r.isDraining())
		}
	}
}

// statusLoop logs a summary line once an hour: total requests served and
// the current rate-limiter peer and client table sizes, giving an operator a
// coarse activity signal without needing a metrics backend.
func (r *RequestEntry) statusLoop() {
	const interval = time.Hour
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			peers, clients := 0, 0
			if r.limiter != nil {
				peers, clients = r.limiter.PeerCount(), r.limiter.ClientCount()
			}
			log.Noticef("status: %d requests served, %d rate-limited peers, %d rate-limited clients",
				r.RequestsServed(), peers, clients)
		}
	}
}

// clientIPv4 extracts the big-endian uint32 form of a client's IPv4
// address for the client rate-limit table; non-IPv4 remotes (including
// IPv6) are not tracked individually and always pass.
func clientIPv4(remoteAddr string) (uint32, bool) {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return 0, false
	}
	v4 := ip.To4()
	if v4 == nil {
		return 0, false
	}
	return uint32(v4[0])<<24 | uint32(v4[1])<<16 | uint32(v4[2])<<8 | uint32(v4[3]), true
}
