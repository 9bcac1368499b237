// Package loopback provides an in-process implementation of the overlay
// contract (EndpointSender + PeerDirectory) over buffered Go channels. It
// lets the core in pkg/xfer be exercised end-to-end without a real network,
// with optional fault injection for timeout, retransmit, and out-of-order
// scenarios.
package loopback

import (
	"sync"
	"time"

	"github.com/jabolina/go-xfer/pkg/xfer/core"
	"github.com/jabolina/go-xfer/pkg/xfer/types"
)

// Fault lets a test perturb delivery of a single packet: Drop suppresses
// it entirely, Delay holds it before enqueuing.
type Fault struct {
	Drop  bool
	Delay time.Duration
}

// FaultFunc decides, for one packet between two named peers, whether and
// when it should be delivered.
type FaultFunc func(from, to types.PeerID, packet core.Packet) Fault

// Community is a closed set of named peers that can reach each other
// unconditionally (every registered peer is reachable to every other) and
// exchange packets over buffered channels. It implements both
// core.PeerDirectory and, per-peer, core.EndpointSender.
type Community struct {
	mutex sync.Mutex
	peers map[types.PeerID]chan core.Envelope
	fault FaultFunc
}

// NewCommunity returns an empty Community. A nil FaultFunc delivers every
// packet immediately.
func NewCommunity(fault FaultFunc) *Community {
	return &Community{
		peers: make(map[types.PeerID]chan core.Envelope),
		fault: fault,
	}
}

// Register adds a peer to the community and returns the inbound channel an
// Overlay for that peer should be constructed with, plus an EndpointSender
// bound to that peer's identity as the implicit sender.
func (c *Community) Register(id types.PeerID) (<-chan core.Envelope, core.EndpointSender) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	inbox := make(chan core.Envelope, 256)
	c.peers[id] = inbox
	return inbox, &communityEndpoint{community: c, self: id}
}

// Unregister removes a peer, making it unreachable and closing its inbox.
func (c *Community) Unregister(id types.PeerID) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if inbox, ok := c.peers[id]; ok {
		delete(c.peers, id)
		close(inbox)
	}
}

// GetPeers implements core.PeerDirectory.
func (c *Community) GetPeers() []types.PeerInfo {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	peers := make([]types.PeerInfo, 0, len(c.peers))
	for id := range c.peers {
		peers = append(peers, types.PeerInfo{ID: id, Address: types.PeerAddress(id)})
	}
	return peers
}

// IsReachable implements core.PeerDirectory.
func (c *Community) IsReachable(peer types.PeerID) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	_, ok := c.peers[peer]
	return ok
}

func (c *Community) deliver(from, to types.PeerID, packet core.Packet) error {
	fault := Fault{}
	if c.fault != nil {
		fault = c.fault(from, to, packet)
	}
	if fault.Drop {
		return nil
	}

	c.mutex.Lock()
	inbox, ok := c.peers[to]
	c.mutex.Unlock()
	if !ok {
		return nil
	}

	envelope := core.Envelope{Peer: from, Packet: packet}
	if fault.Delay <= 0 {
		select {
		case inbox <- envelope:
		default:
		}
		return nil
	}

	go func() {
		time.Sleep(fault.Delay)
		c.mutex.Lock()
		inbox, ok := c.peers[to]
		c.mutex.Unlock()
		if !ok {
			return
		}
		select {
		case inbox <- envelope:
		case <-time.After(time.Second):
		}
	}()
	return nil
}

// communityEndpoint adapts Community.deliver into a core.EndpointSender
// bound to a single peer's identity.
type communityEndpoint struct {
	community *Community
	self      types.PeerID
}

func (e *communityEndpoint) Send(peer types.PeerID, packet core.Packet) error {
	return e.community.deliver(e.self, peer, packet)
}

// InjectAs delivers packet to "to" claiming it came from "from", bypassing
// whatever EndpointSender a real peer holds. Scenario tests use this to
// model a duplicate or replayed write-request arriving out of band, since a
// well-behaved Overlay's own scheduler never issues two concurrent sends to
// the same peer itself.
func (c *Community) InjectAs(from, to types.PeerID, packet core.Packet) error {
	return c.deliver(from, to, packet)
}
