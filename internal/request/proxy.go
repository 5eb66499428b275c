// proxy.go - The default outbound HTTP(S) proxy handler for proxy
// control tails.
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
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/beldex-network/storage-server/core/onion"
)

const proxyTimeout = 30 * time.Second

// NewHTTPProxyHandler returns a ProxyHandler that POSTs the layer's inner
// blob to the destination the ProxyTail names and returns the response
// body, the way the terminal node forwards a client-facing storage.* RPC
// to the beldexd HTTP API it fronts.
func NewHTTPProxyHandler() ProxyHandler {
	client := &http.Client{Timeout: proxyTimeout}
	return func(tail onion.ProxyTail, body []byte) ([]byte, error) {
		scheme := tail.Protocol
		if scheme == "" {
			scheme = "https"
		}
		host := tail.Host
		if tail.Port != 0 {
			host = fmt.Sprintf("%s:%d", tail.Host, tail.Port)
		}
		url := fmt.Sprintf("%s://%s%s", scheme, host, tail.Target)

		ctx, cancel := context.WithTimeout(context.Background(), proxyTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("request: building proxy request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request: proxy request to %s failed: %w", host, err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("request: reading proxy response: %w", err)
		}
		return respBody, nil
	}
}
