// Package xfer implements the reliable bulk-binary transfer core: a
// windowed, block-oriented send/receive protocol between two peers of an
// unreliable datagram overlay, the per-peer scheduling queue that
// serializes concurrent transfer attempts, and the timer subsystem driving
// retransmission and timeout-based termination.
package xfer

import (
	"context"
	"sync"
	"time"

	"github.com/jabolina/go-xfer/pkg/xfer/core"
	"github.com/jabolina/go-xfer/pkg/xfer/definition"
	"github.com/jabolina/go-xfer/pkg/xfer/types"
)

// pollInterval is the cadence at which the timer heap is polled.
const pollInterval = time.Second

// Overlay is the top-level facade a caller constructs: a single long-lived
// instance owning the scheduler, the timer heap, and one dispatcher
// goroutine that serializes every inbound packet, public API call, and
// periodic tick onto a single cooperative select loop rather than guarding
// shared state with locks.
type Overlay struct {
	id        types.PeerID
	scheduler *core.Scheduler
	inbound   <-chan core.Envelope

	commands chan func()

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewOverlay constructs an Overlay for local identity id, wired to the
// given peer directory and endpoint sender (non-owning collaborators whose
// lifetime must exceed the Overlay's) and fed inbound packets from the
// given channel. Default tunables apply for any Option not supplied.
func NewOverlay(id types.PeerID, directory core.PeerDirectory, endpoint core.EndpointSender, inbound <-chan core.Envelope, opts ...types.Option) *Overlay {
	config := types.DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Logger == nil {
		config.Logger = definition.NewDefaultLogger()
	}
	if config.Metrics == nil {
		config.Metrics = definition.NewDefaultMetrics()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Overlay{
		id:        id,
		scheduler: core.NewScheduler(id, config, endpoint, directory),
		inbound:   inbound,
		commands:  make(chan func()),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// OnReceiveProgress registers the callback fired as an incoming transfer
// advances.
func (o *Overlay) OnReceiveProgress(f func(peer types.PeerID, info []byte, progress types.TransferProgress)) {
	o.run(func() { o.scheduler.SetCallbacks(f, nil, nil, nil) })
}

// OnReceiveComplete registers the callback fired when an incoming transfer
// finishes.
func (o *Overlay) OnReceiveComplete(f func(peer types.PeerID, info []byte, id string, data []byte)) {
	o.run(func() { o.scheduler.SetCallbacks(nil, f, nil, nil) })
}

// OnSendComplete registers the callback fired when an outgoing transfer
// finishes.
func (o *Overlay) OnSendComplete(f func(peer types.PeerID, info []byte, data []byte, nonce uint64)) {
	o.run(func() { o.scheduler.SetCallbacks(nil, nil, f, nil) })
}

// OnError registers the callback fired when a transfer fails.
func (o *Overlay) OnError(f func(peer types.PeerID, exc *types.TransferException)) {
	o.run(func() { o.scheduler.SetCallbacks(nil, nil, nil, f) })
}

// SendBinary starts sending a binary blob to peer, identified by id.
func (o *Overlay) SendBinary(peer types.PeerID, info []byte, id string, data []byte) {
	o.run(func() { o.scheduler.SendBinary(peer, info, id, data, nil) })
}

// SendBinaryWithNonce is SendBinary with an explicit nonce, for callers
// that need to correlate a concurrent attempt of the same id themselves
// (e.g. test harnesses asserting idempotence).
func (o *Overlay) SendBinaryWithNonce(peer types.PeerID, info []byte, id string, data []byte, nonce uint64) {
	o.run(func() { o.scheduler.SendBinary(peer, info, id, data, &nonce) })
}

// run submits f to the dispatcher goroutine and blocks until it has been
// applied, giving external callers (any goroutine) a serialization point
// onto the single logical dispatcher without exposing scheduler locking.
func (o *Overlay) run(f func()) {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		f()
	}
	select {
	case o.commands <- wrapped:
		<-done
	case <-o.ctx.Done():
	}
}

// Start arms the periodic scheduler tick and launches the dispatcher
// goroutine. Calling Start more than once is a no-op.
func (o *Overlay) Start() {
	o.startOnce.Do(func() {
		now := time.Now()
		o.scheduler.ArmPeriodicTick(now)
		go o.dispatch()
	})
}

// dispatch is the single select loop serializing every inbound packet,
// command, and timer poll onto one goroutine.
func (o *Overlay) dispatch() {
	defer close(o.done)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-o.ctx.Done():
			return
		case env, ok := <-o.inbound:
			if !ok {
				return
			}
			o.scheduler.Dispatch(env.Peer, env.Packet)
		case cmd := <-o.commands:
			cmd()
		case now := <-ticker.C:
			o.scheduler.Timers().Poll(now)
		}
	}
}

// Stop cancels the dispatcher. In-flight transfers are abandoned in
// memory; there is no explicit draining contract.
func (o *Overlay) Stop() {
	o.stopOnce.Do(func() {
		o.cancel()
	})
	<-o.done
}
