package types

import (
	"time"
)

// Direction tags which side of a flow a Transfer represents.
type Direction int

const (
	// Outgoing is a transfer where the local peer is the sender.
	Outgoing Direction = iota
	// Incoming is a transfer where the local peer is the receiver.
	Incoming
)

func (d Direction) String() string {
	switch d {
	case Outgoing:
		return "outgoing"
	case Incoming:
		return "incoming"
	default:
		return "unknown"
	}
}

// PeerID is the opaque identity of a remote peer, as handed back by the
// overlay's peer directory. The core never interprets its contents.
type PeerID string

// Transfer holds the mutable state for a single in-flight flow. Only one
// Transfer may exist for a given (PeerID, Direction) pair at a time; this
// invariant is enforced by the scheduler, not by this type.
type Transfer struct {
	Direction Direction
	Peer      PeerID
	ID        string
	Info      []byte
	Nonce     uint64

	// State tracks this flow's progress through its side of the protocol,
	// advanced by the scheduler's message handlers as packets arrive or are
	// sent; see TransferState for the full sequence.
	State TransferState

	BlockSize  int
	BlockCount int

	// BlockNumber is the highest block index confirmed: on the outgoing
	// side, the last acknowledged block; on the incoming side, the last
	// block received. It starts at -1, meaning no blocks acknowledged or
	// received yet.
	BlockNumber int

	// AcknowledgementNumber is the next block index the receive side
	// expects, i.e. the value last sent in an acknowledgement packet.
	AcknowledgementNumber int

	WindowSize int
	DataSize   int64

	// Data is the source blob on the outgoing side, and the accumulating
	// buffer on the incoming side.
	Data []byte

	Attempt  int
	Updated  time.Time
	Released bool

	// progressFloor is the last reported floor(100 * BlockNumber / BlockCount)
	// value, used to detect when the whole-percent floor increases.
	progressFloor int
}

// IsProgressMarker reports whether the current BlockNumber crosses a new
// progress marker since the last call, using integer truncation to avoid
// floating point jitter across repeated calls. Block 0 always reports true,
// matching the INITIALIZING marker the receive path always fires.
func (t *Transfer) IsProgressMarker() bool {
	if t.BlockCount <= 0 {
		return false
	}
	if t.BlockNumber == 0 {
		t.progressFloor = 0
		return true
	}
	current := (100 * t.BlockNumber) / t.BlockCount
	if current > t.progressFloor {
		t.progressFloor = current
		return true
	}
	return false
}

// GetProgressMarker returns the current progress as a percentage in [0, 100].
func (t *Transfer) GetProgressMarker() float64 {
	if t.BlockCount <= 0 {
		return 0
	}
	pct := 100 * float64(t.BlockNumber+1) / float64(t.BlockCount)
	if pct > 100 {
		pct = 100
	}
	return pct
}

// Release marks the transfer terminal and drops its buffer. Idempotent.
func (t *Transfer) Release() {
	if t.Released {
		return
	}
	t.Data = nil
	t.Released = true
}

// ScheduledTransfer is a queued send request awaiting its turn because the
// peer was unreachable or already busy at the time send_binary was called.
type ScheduledTransfer struct {
	Peer           PeerID
	Info           []byte
	Data           []byte
	Nonce          uint64
	ID             string
	BlockCountHint int
}
