package core

import "github.com/jabolina/go-xfer/pkg/xfer/types"

// Packet is the common envelope every wire payload satisfies, recognized by
// a type switch in Scheduler.Dispatch rather than an interface method set:
// wire serialization of the four payload types is left to a Codec, this
// core only needs to recognize which of the four it got.
type Packet interface {
	isPacket()
}

// WriteRequest opens a new incoming transfer.
type WriteRequest struct {
	DataSize   int64
	BlockCount int
	Nonce      uint64
	ID         string
	Info       []byte
}

// Acknowledgement advances (or reopens) the sender's transmit window.
type Acknowledgement struct {
	Number     int
	WindowSize int
	Nonce      uint64
}

// Data carries one block of a blob in flight.
type Data struct {
	BlockNumber int
	Nonce       uint64
	Data        []byte
}

// Error reports a flow failure detected by the remote peer.
type Error struct {
	Message string
	Info    string
}

func (WriteRequest) isPacket()    {}
func (Acknowledgement) isPacket() {}
func (Data) isPacket()            {}
func (Error) isPacket()           {}

// Envelope pairs a decoded Packet with the peer it arrived from, the unit
// the dispatcher's inbound channel carries.
type Envelope struct {
	Peer   types.PeerID
	Packet Packet
}
