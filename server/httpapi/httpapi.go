// httpapi.go - The HTTPS front end: POST /onion_req/v2, the only
// endpoint an outside client ever talks to directly.
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

// Package httpapi is the storage node's public-facing listener: it
// terminates TLS, accepts the raw onion envelope bytes POSTed to
// /onion_req/v2, hands them to a Dispatcher, and writes back whatever
// ciphertext (or error status) comes out. No third-party HTTP library
// exists anywhere in the retrieved example pack for this concern, so
// this is built directly on net/http, the same way the JSON stats
// endpoint below is.
package httpapi

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"gopkg.in/op/go-logging.v1"
)

var log = logging.MustGetLogger("httpapi")

const (
	// maxRequestBody bounds the size of a POSTed onion envelope, well
	// above any legitimate multi-hop request but far short of letting an
	// unauthenticated caller force large allocations.
	maxRequestBody = 32 << 20

	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Dispatcher is the subset of internal/request.RequestEntry the
// HTTP front end needs: decode and route a single onion request.
type Dispatcher interface {
	HandleEntryRequest(ctx context.Context, wire []byte, remoteAddr string) ([]byte, int, error)
}

// StatsProvider answers the local /get_stats/v1 endpoint, gated by a
// configured access key.
type StatsProvider interface {
	RequestsServed() uint64
}

// Server is the storage node's public HTTPS listener.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
}

// New builds the mux and TLS-wrapped http.Server for addr, but does
// not start listening; call Serve to do that once the caller has
// registered the result with request.RequestEntry.SetListener.
func New(addr string, cert tls.Certificate, dispatcher Dispatcher, stats StatsProvider, accessKeys []string) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/onion_req/v2", onionHandler(dispatcher))
	mux.HandleFunc("/get_stats/v1", statsHandler(stats, accessKeys))

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: readHeaderTimeout,
			TLSConfig: &tls.Config{
				MinVersion:   tls.VersionTLS12,
				Certificates: []tls.Certificate{cert},
			},
		},
	}
}

// Serve binds addr and blocks serving TLS connections until the
// server is shut down. It returns http.ErrServerClosed on a clean
// Shutdown, never nil.
func (s *Server) Serve() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	tlsLn := tls.NewListener(ln, s.httpServer.TLSConfig)
	s.listener = tlsLn

	log.Noticef("HTTPS front end listening on %s", s.httpServer.Addr)
	err = s.httpServer.Serve(tlsLn)
	if errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Errorf("HTTPS front end stopped: %v", err)
	return err
}

// Close implements request.Listener: it closes the underlying socket
// and gives in-flight handlers a bounded window to finish.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func onionHandler(d Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(io.LimitReader(req.Body, maxRequestBody+1))
		if err != nil {
			http.Error(w, "error reading request body", http.StatusBadRequest)
			return
		}
		if len(body) > maxRequestBody {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}

		resp, status, err := d.HandleEntryRequest(req.Context(), body, req.RemoteAddr)
		if err != nil {
			log.Debugf("onion_req/v2 from %s failed: %v", req.RemoteAddr, err)
			http.Error(w, err.Error(), status)
			return
		}

		w.Header().Set("Content-Type", "application/octet-stream")
		w.WriteHeader(status)
		_, _ = w.Write(resp)
	}
}

func statsHandler(stats StatsProvider, accessKeys []string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if !authorized(req, accessKeys) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if stats == nil {
			http.Error(w, "stats unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"requests_served":` + strconv.FormatUint(stats.RequestsServed(), 10) + `}`))
	}
}

func authorized(req *http.Request, accessKeys []string) bool {
	key := req.Header.Get("X-Beldex-Storage-Access-Key")
	for _, k := range accessKeys {
		if key == k {
			return true
		}
	}
	return false
}

