package types

import (
	"errors"
	"fmt"
)

// TransferErrorKind tags the taxonomy of non-recoverable flow errors.
type TransferErrorKind int

const (
	SizeError TransferErrorKind = iota
	ValueError
	PeerBusyError
	TimeoutError
	RemoteError
)

func (k TransferErrorKind) String() string {
	switch k {
	case SizeError:
		return "size-error"
	case ValueError:
		return "value-error"
	case PeerBusyError:
		return "peer-busy"
	case TimeoutError:
		return "timeout"
	case RemoteError:
		return "remote-error"
	default:
		return "unknown"
	}
}

var (
	// ErrUnsupportedProtocol is returned when a packet arrives carrying a
	// wire payload this core cannot make sense of.
	ErrUnsupportedProtocol = errors.New("xfer: unsupported protocol payload")
)

// TransferException is the error value delivered through on_error. It
// carries enough context for the embedder to correlate the failure with a
// specific flow without needing to inspect the (by then released) Transfer.
type TransferException struct {
	Kind  TransferErrorKind
	Peer  PeerID
	ID    string
	Nonce uint64
	err   error
}

func (e *TransferException) Error() string {
	return fmt.Sprintf("xfer: %s: peer=%s id=%s nonce=%d: %v", e.Kind, e.Peer, e.ID, e.Nonce, e.err)
}

func (e *TransferException) Unwrap() error {
	return e.err
}

func newException(kind TransferErrorKind, peer PeerID, id string, nonce uint64, cause error) *TransferException {
	return &TransferException{Kind: kind, Peer: peer, ID: id, Nonce: nonce, err: cause}
}

// NewSizeError reports that a blob exceeds the configured binary size limit.
func NewSizeError(peer PeerID, id string, nonce uint64, size, limit int64) *TransferException {
	return newException(SizeError, peer, id, nonce, fmt.Errorf("data size %d exceeds limit %d", size, limit))
}

// NewValueError reports that a write-request advertised a non-positive size.
func NewValueError(peer PeerID, id string, nonce uint64, size int64) *TransferException {
	return newException(ValueError, peer, id, nonce, fmt.Errorf("advertised data size %d is not positive", size))
}

// NewPeerBusyError reports that an incoming write-request arrived while the
// peer already had an unrelated active transfer.
func NewPeerBusyError(peer PeerID, id string, nonce uint64) *TransferException {
	return newException(PeerBusyError, peer, id, nonce, errors.New("peer already has an active transfer"))
}

// NewTimeoutError reports that a flow made no progress within the
// configured timeout interval.
func NewTimeoutError(peer PeerID, id string, nonce uint64) *TransferException {
	return newException(TimeoutError, peer, id, nonce, errors.New("no progress within timeout interval"))
}

// NewRemoteError wraps an error message a peer sent for this flow.
func NewRemoteError(peer PeerID, id string, nonce uint64, message string) *TransferException {
	return newException(RemoteError, peer, id, nonce, errors.New(message))
}
