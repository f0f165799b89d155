// Copyright 2026 The ocppnode Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package node

import (
	"context"
	"sort"
	"sync"

	"github.com/gridlink/ocppnode/pkg/ocpp/envelope"
)

// Conn is a connection to a neighbouring node. Send must be safe for
// concurrent use; messages sent over one connection keep their order.
type Conn interface {
	PeerID() envelope.NodeID
	Send(ctx context.Context, kind envelope.Kind, msg []byte) error
	Close() error
}

// Connections is the registry of the connected neighbours. It is safe for
// concurrent use.
type Connections struct {
	mtx    sync.RWMutex
	conns  map[envelope.NodeID]Conn
	uplink envelope.NodeID
}

// NewConnections creates an empty registry.
func NewConnections() *Connections {
	return &Connections{conns: make(map[envelope.NodeID]Conn)}
}

// Add registers conn and returns the connection it replaced, if any. The
// caller is responsible for closing the replaced connection.
func (c *Connections) Add(conn Conn) Conn {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	old := c.conns[conn.PeerID()]
	c.conns[conn.PeerID()] = conn
	return old
}

// Remove unregisters conn. A newer connection of the same peer is left in
// place. Remove returns whether conn was registered.
func (c *Connections) Remove(conn Conn) bool {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if cur, ok := c.conns[conn.PeerID()]; !ok || cur != conn {
		return false
	}
	delete(c.conns, conn.PeerID())
	return true
}

// Get returns the connection to id.
func (c *Connections) Get(id envelope.NodeID) (Conn, bool) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	conn, ok := c.conns[id]
	return conn, ok
}

// SetUplink sets the peer that receives requests without a more specific
// route, typically the CSMS or the next networking node towards it.
func (c *Connections) SetUplink(id envelope.NodeID) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.uplink = id
}

// Uplink returns the uplink connection if the uplink is connected.
func (c *Connections) Uplink() (Conn, bool) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	if c.uplink == "" {
		return nil, false
	}
	conn, ok := c.conns[c.uplink]
	return conn, ok
}

// Peers returns the ids of all connected peers, sorted.
func (c *Connections) Peers() []envelope.NodeID {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	peers := make([]envelope.NodeID, 0, len(c.conns))
	for id := range c.conns {
		peers = append(peers, id)
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i] < peers[j] })
	return peers
}

// CloseAll closes and removes all connections.
func (c *Connections) CloseAll() {
	c.mtx.Lock()
	conns := c.conns
	c.conns = make(map[envelope.NodeID]Conn)
	c.mtx.Unlock()
	for _, conn := range conns {
		conn.Close()
	}
}
