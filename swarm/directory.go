// directory.go - Swarm membership: the set of peer nodes this storage
// node needs key material for in order to relay or verify onion
// requests directed at them.
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

// Package swarm tracks the storage node's view of the network: the
// other master nodes it can relay onion requests to or receive them
// from. The package holds whatever membership its caller supplies; it
// does not fetch membership from beldexd itself.
package swarm

import (
	"errors"
	"fmt"
	"sync"

	"github.com/beldex-network/storage-server/core/keys"
)

// ErrUnknownPeer indicates the swarm has no record of a node with the
// requested identity. An empty, never-populated table reports the same
// error.
var ErrUnknownPeer = errors.New("swarm: unknown peer")

// NodeRecord describes one master node's network address and long
// term key material, as published on the beldexd master node list.
type NodeRecord struct {
	IP        string
	HTTPSPort uint16
	BusPort   uint16

	LegacyPubKey  keys.LegacyPubKey
	Ed25519PubKey keys.Ed25519PubKey
	X25519PubKey  keys.X25519PubKey
}

// Address returns the host:port a caller would dial to reach this
// node's HTTPS onion-request listener.
func (n NodeRecord) Address() string {
	return fmt.Sprintf("%s:%d", n.IP, n.HTTPSPort)
}

// BusAddress returns the host:port of this node's message-bus
// listener.
func (n NodeRecord) BusAddress() string {
	return fmt.Sprintf("%s:%d", n.IP, n.BusPort)
}

// Directory answers the two lookups the onion relay path needs: given
// a node's public identity, its address and its keys for encrypting
// or verifying the next hop.
type Directory interface {
	// Lookup returns the full record for the node identified by its
	// Ed25519 node identity, or ErrUnknownPeer if the swarm has no
	// such node.
	Lookup(id keys.Ed25519PubKey) (NodeRecord, error)

	// LookupLegacy is the same lookup keyed by the legacy pubkey used
	// on the message bus and in swarm gossip predating the Ed25519
	// node identity.
	LookupLegacy(id keys.LegacyPubKey) (NodeRecord, error)
}

// Table is an in-memory Directory whose contents are replaced wholesale
// by ReplaceAll; nothing in this package calls ReplaceAll on a schedule.
// It is safe for concurrent use.
type Table struct {
	mu       sync.RWMutex
	byEd     map[keys.Ed25519PubKey]NodeRecord
	byLegacy map[keys.LegacyPubKey]NodeRecord
}

// NewTable returns an empty Table. Callers populate it with
// ReplaceAll after each swarm refresh.
func NewTable() *Table {
	return &Table{
		byEd:     make(map[keys.Ed25519PubKey]NodeRecord),
		byLegacy: make(map[keys.LegacyPubKey]NodeRecord),
	}
}

// ReplaceAll atomically swaps the table's contents for records,
// discarding any node absent from the new list. This is how the
// periodic beldexd master node list refresh is applied: the whole
// swarm view is replaced, not merged, so decommissioned nodes drop out
// immediately rather than lingering until some separate expiry pass.
func (t *Table) ReplaceAll(records []NodeRecord) {
	byEd := make(map[keys.Ed25519PubKey]NodeRecord, len(records))
	byLegacy := make(map[keys.LegacyPubKey]NodeRecord, len(records))
	for _, r := range records {
		byEd[r.Ed25519PubKey] = r
		byLegacy[r.LegacyPubKey] = r
	}

	t.mu.Lock()
	t.byEd = byEd
	t.byLegacy = byLegacy
	t.mu.Unlock()
}

// Lookup implements Directory.
func (t *Table) Lookup(id keys.Ed25519PubKey) (NodeRecord, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	r, ok := t.byEd[id]
	if !ok {
		return NodeRecord{}, ErrUnknownPeer
	}
	return r, nil
}

// LookupLegacy implements Directory.
func (t *Table) LookupLegacy(id keys.LegacyPubKey) (NodeRecord, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	r, ok := t.byLegacy[id]
	if !ok {
		return NodeRecord{}, ErrUnknownPeer
	}
	return r, nil
}

// Size returns the number of nodes currently in the table.
func (t *Table) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byEd)
}
