package core

import (
	"time"

	"github.com/jabolina/go-xfer/pkg/xfer/definition"
	"github.com/jabolina/go-xfer/pkg/xfer/helper"
	"github.com/jabolina/go-xfer/pkg/xfer/types"
	"github.com/sirupsen/logrus"
)

// Scheduler is the exclusive owner of every per-peer transfer map and the
// timer heap. A single Scheduler instance serves every peer of one local
// node, constructed explicitly and held by an Overlay rather than living
// as a process-wide singleton.
type Scheduler struct {
	self   types.PeerID
	config types.Config

	logger  types.Logger
	metrics types.Metrics

	endpoint  EndpointSender
	directory PeerDirectory

	outgoing  map[types.PeerID]*types.Transfer
	incoming  map[types.PeerID]*types.Transfer
	scheduled map[types.PeerID][]types.ScheduledTransfer

	finishedOutgoing map[types.PeerID]map[string]bool
	finishedIncoming map[types.PeerID]map[string]bool

	timers *Timers

	onReceiveProgress func(peer types.PeerID, info []byte, progress types.TransferProgress)
	onReceiveComplete func(peer types.PeerID, info []byte, id string, data []byte)
	onSendComplete    func(peer types.PeerID, info []byte, data []byte, nonce uint64)
	onError           func(peer types.PeerID, exc *types.TransferException)
}

// NewScheduler builds an idle Scheduler. Start must be called (indirectly,
// via Overlay.Start) to arm the periodic scheduler tick.
func NewScheduler(self types.PeerID, config types.Config, endpoint EndpointSender, directory PeerDirectory) *Scheduler {
	s := &Scheduler{
		self:             self,
		config:           config,
		logger:           config.Logger,
		metrics:          config.Metrics,
		endpoint:         endpoint,
		directory:        directory,
		outgoing:         make(map[types.PeerID]*types.Transfer),
		incoming:         make(map[types.PeerID]*types.Transfer),
		scheduled:        make(map[types.PeerID][]types.ScheduledTransfer),
		finishedOutgoing: make(map[types.PeerID]map[string]bool),
		finishedIncoming: make(map[types.PeerID]map[string]bool),
		timers:           NewTimers(),
		onReceiveProgress: func(types.PeerID, []byte, types.TransferProgress) {},
		onReceiveComplete: func(types.PeerID, []byte, string, []byte) {},
		onSendComplete:    func(types.PeerID, []byte, []byte, uint64) {},
		onError:           func(types.PeerID, *types.TransferException) {},
	}
	return s
}

// SetCallbacks installs the four observer callbacks. Nil entries leave the
// current (or default no-op) callback in place.
func (s *Scheduler) SetCallbacks(
	onReceiveProgress func(peer types.PeerID, info []byte, progress types.TransferProgress),
	onReceiveComplete func(peer types.PeerID, info []byte, id string, data []byte),
	onSendComplete func(peer types.PeerID, info []byte, data []byte, nonce uint64),
	onError func(peer types.PeerID, exc *types.TransferException),
) {
	if onReceiveProgress != nil {
		s.onReceiveProgress = onReceiveProgress
	}
	if onReceiveComplete != nil {
		s.onReceiveComplete = onReceiveComplete
	}
	if onSendComplete != nil {
		s.onSendComplete = onSendComplete
	}
	if onError != nil {
		s.onError = onError
	}
}

// Timers exposes the timer subsystem so Overlay's dispatcher can drive the
// ~1Hz poll loop and arm the initial periodic tick.
func (s *Scheduler) Timers() *Timers {
	return s.timers
}

// ArmPeriodicTick schedules the first scheduler-pump tick. Subsequent ticks
// re-arm themselves every ScheduledSendInterval.
func (s *Scheduler) ArmPeriodicTick(now time.Time) {
	s.timers.After(now, s.config.ScheduledSendInterval, s.periodicTick)
}

func (s *Scheduler) periodicTick(now time.Time) {
	s.sendScheduled(now)
	s.timers.After(now, s.config.ScheduledSendInterval, s.periodicTick)
}

// SendBinary is the public entry point for starting a new outgoing transfer.
// It is expected to run on the dispatcher goroutine (Overlay serializes
// calls onto it), so no locking is needed here.
func (s *Scheduler) SendBinary(peer types.PeerID, info []byte, id string, data []byte, nonce *uint64) {
	if len(info) == 0 || id == "" || len(data) == 0 || peer == s.self {
		return
	}
	if s.isScheduled(peer, id) || s.isActiveOutgoing(peer, id) || s.isFinishedOutgoing(peer, id) {
		return
	}

	n := helper.GenerateNonce()
	if nonce != nil {
		n = *nonce
	}

	st := types.ScheduledTransfer{
		Peer:           peer,
		Info:           info,
		Data:           data,
		Nonce:          n,
		ID:             id,
		BlockCountHint: blockCount(int64(len(data)), s.config.BlockSize),
	}

	if !s.admissible(peer) {
		s.enqueue(st)
		return
	}

	s.startOutgoingTransfer(time.Now(), st)
}

// admissible reports whether peer can receive a new outgoing transfer right
// now: reachable, and with no active flow of either direction already.
func (s *Scheduler) admissible(peer types.PeerID) bool {
	if _, busy := s.outgoing[peer]; busy {
		return false
	}
	if _, busy := s.incoming[peer]; busy {
		return false
	}
	return s.directory.IsReachable(peer)
}

func (s *Scheduler) enqueue(st types.ScheduledTransfer) {
	s.scheduled[st.Peer] = append(s.scheduled[st.Peer], st)
	if s.metrics != nil {
		s.metrics.ObserveQueueDepth(st.Peer, len(s.scheduled[st.Peer]))
	}
	s.onReceiveProgress(st.Peer, st.Info, types.TransferProgress{ID: st.ID, State: types.Scheduled, Progress: 0})
}

func (s *Scheduler) isScheduled(peer types.PeerID, id string) bool {
	for _, st := range s.scheduled[peer] {
		if st.ID == id {
			return true
		}
	}
	return false
}

func (s *Scheduler) isActiveOutgoing(peer types.PeerID, id string) bool {
	t, ok := s.outgoing[peer]
	return ok && t.ID == id
}

func (s *Scheduler) isFinishedOutgoing(peer types.PeerID, id string) bool {
	set, ok := s.finishedOutgoing[peer]
	return ok && set[id]
}

func (s *Scheduler) isFinishedIncoming(peer types.PeerID, id string) bool {
	set, ok := s.finishedIncoming[peer]
	return ok && set[id]
}

func (s *Scheduler) markFinishedOutgoing(peer types.PeerID, id string) {
	if s.finishedOutgoing[peer] == nil {
		s.finishedOutgoing[peer] = make(map[string]bool)
	}
	s.finishedOutgoing[peer][id] = true
}

func (s *Scheduler) markFinishedIncoming(peer types.PeerID, id string) {
	if s.finishedIncoming[peer] == nil {
		s.finishedIncoming[peer] = make(map[string]bool)
	}
	s.finishedIncoming[peer][id] = true
}

// sendScheduled pumps the per-peer queues: every peer with a non-empty
// queue and no active transfer of either direction gets its head-of-line
// item popped and started, provided the peer is currently reachable.
func (s *Scheduler) sendScheduled(now time.Time) {
	for peer, queue := range s.scheduled {
		if len(queue) == 0 {
			continue
		}
		if _, busy := s.outgoing[peer]; busy {
			continue
		}
		if _, busy := s.incoming[peer]; busy {
			continue
		}
		if !s.directory.IsReachable(peer) {
			continue
		}
		head := queue[0]
		s.scheduled[peer] = queue[1:]
		s.startOutgoingTransfer(now, head)
	}
}

// terminate releases the transfer, drops it from whichever active map it
// lives in, and stops tracking it. Once released no further mutation or
// timer action may touch it; every timer action that fires after this
// point short-circuits on Transfer.Released.
func (s *Scheduler) terminate(direction types.Direction, peer types.PeerID) {
	switch direction {
	case types.Outgoing:
		if t, ok := s.outgoing[peer]; ok {
			t.Release()
			delete(s.outgoing, peer)
		}
	case types.Incoming:
		if t, ok := s.incoming[peer]; ok {
			t.Release()
			delete(s.incoming, peer)
		}
	}
}

// Dispatch routes one decoded inbound packet to its handler, the
// single entry point the dispatcher goroutine feeds from the overlay's
// inbound channel.
func (s *Scheduler) Dispatch(peer types.PeerID, packet Packet) {
	switch p := packet.(type) {
	case WriteRequest:
		s.onWriteRequest(time.Now(), peer, p)
	case Acknowledgement:
		s.onAcknowledgement(time.Now(), peer, p)
	case Data:
		s.onData(time.Now(), peer, p)
	case Error:
		s.onErrorPacket(time.Now(), peer, p)
	default:
		if s.logger != nil {
			definition.WithFields(s.logger, logrus.Fields{"peer": peer}).
				Warnf("xfer: dropping packet of unknown type %T", packet)
		}
	}
}

func blockCount(dataSize int64, blockSize int) int {
	if blockSize <= 0 {
		blockSize = 1
	}
	count := dataSize / int64(blockSize)
	if dataSize%int64(blockSize) != 0 {
		count++
	}
	if count < 1 {
		count = 1
	}
	return int(count)
}

func blockSlice(data []byte, blockNumber, blockSize int, dataSize int64) []byte {
	start := int64(blockNumber) * int64(blockSize)
	end := start + int64(blockSize)
	if end > dataSize {
		end = dataSize
	}
	if start >= int64(len(data)) || start >= end {
		return nil
	}
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	return data[start:end]
}
