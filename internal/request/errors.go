// errors.go - Dispatch-level error values and the translations between
// them, an OnionCodec reason, and the codes sent over HTTP or the
// message bus.
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

package request

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/beldex-network/storage-server/core/onion"
	"github.com/beldex-network/storage-server/swarm"
)

var (
	errRateLimited          = errors.New("request: rate limited")
	errUnhandledControlKind = errors.New("request: control kind is not valid at a relay hop")
	errBadDestination       = errors.New("request: forward tail names an invalid or unparseable destination")
)

// relayError wraps the code/message a downstream hop's failed reply
// carried, so the caller can still distinguish it from a local error.
type relayError struct {
	code    string
	message string
}

func (e *relayError) Error() string {
	return fmt.Sprintf("request: downstream hop returned %s: %s", e.code, e.message)
}

// onionErrStatus maps an error from the dispatch path to the HTTP
// status the entry endpoint should answer with.
func onionErrStatus(err error) int {
	var oerr *onion.Error
	if errors.As(err, &oerr) {
		return oerr.Reason.HTTPStatus()
	}
	if errors.Is(err, swarm.ErrUnknownPeer) {
		return http.StatusBadGateway
	}
	if errors.Is(err, errRateLimited) {
		return http.StatusTooManyRequests
	}
	var relayErr *relayError
	if errors.As(err, &relayErr) {
		if code, cerr := strconv.Atoi(relayErr.code); cerr == nil {
			return code
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// onionErrCode maps an error from the dispatch path to the short code
// carried in a failed bus.Reply.
func onionErrCode(err error) string {
	return strconv.Itoa(onionErrStatus(err))
}

// processStart anchors the monotonic clock the rate limiter's token
// buckets are keyed against; only elapsed time between calls matters,
// not the absolute value.
var processStart = time.Now()

// monotonicNow returns time elapsed since process start, the clock the
// rate limiter's token buckets are keyed against.
func monotonicNow() time.Duration {
	return time.Since(processStart)
}
