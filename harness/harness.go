// Package harness builds small in-process overlays for tests. Nothing here
// is a _test.go file itself; it is imported by the _test.go files under
// fuzzy/.
package harness

import (
	"time"

	"github.com/google/uuid"
	"github.com/jabolina/go-xfer/loopback"
	"github.com/jabolina/go-xfer/pkg/xfer"
	"github.com/jabolina/go-xfer/pkg/xfer/types"
)

// Pair is two Overlays sharing a loopback.Community, the minimal topology
// every one of this protocol's scenarios needs.
type Pair struct {
	Community *loopback.Community
	A, B      *Overlay
}

// Overlay bundles one peer's identity and facade for assertions in tests.
type Overlay struct {
	ID      types.PeerID
	Overlay *xfer.Overlay
}

// NewPair builds two peers named "a" and "b" wired through a
// fresh loopback.Community, applies opts to both, and starts both
// dispatchers. Callers must call Pair.Stop when done.
func NewPair(fault loopback.FaultFunc, opts ...types.Option) *Pair {
	community := loopback.NewCommunity(fault)
	a := buildOverlay(community, types.PeerID("a"), opts...)
	b := buildOverlay(community, types.PeerID("b"), opts...)
	a.Overlay.Start()
	b.Overlay.Start()
	return &Pair{Community: community, A: a, B: b}
}

func buildOverlay(community *loopback.Community, id types.PeerID, opts ...types.Option) *Overlay {
	inbox, endpoint := community.Register(id)
	return &Overlay{
		ID:      id,
		Overlay: xfer.NewOverlay(id, community, endpoint, inbox, opts...),
	}
}

// Stop shuts both overlays down.
func (p *Pair) Stop() {
	p.A.Overlay.Stop()
	p.B.Overlay.Stop()
}

// NewID returns a fresh unique identifier suitable for a transfer id in
// tests that need more than a handful of fixed labels.
func NewID() string {
	return uuid.NewString()
}

// WaitOrTimeout polls until signal fires or d elapses, returning whether it
// fired in time.
func WaitOrTimeout(signal <-chan struct{}, d time.Duration) bool {
	select {
	case <-signal:
		return true
	case <-time.After(d):
		return false
	}
}
