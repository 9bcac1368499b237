package core

import "github.com/jabolina/go-xfer/pkg/xfer/types"

// EndpointSender is the overlay's fire-and-forget datagram primitive.
// Emission is assumed best-effort and non-blocking or cheaply blocking;
// this core performs no flow control toward it and does not retry a failed
// Send beyond what the protocol's own acknowledgement/retransmit loop
// already does.
type EndpointSender interface {
	Send(peer types.PeerID, packet Packet) error
}

// PeerDirectory is the overlay's reachability and membership oracle.
type PeerDirectory interface {
	// GetPeers returns the peers currently reachable.
	GetPeers() []types.PeerInfo

	// IsReachable reports whether peer appears in the current GetPeers
	// result. Implementations may use a cheaper membership check than
	// materializing the full slice.
	IsReachable(peer types.PeerID) bool
}
