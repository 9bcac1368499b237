package core

import (
	"time"

	"github.com/jabolina/go-xfer/pkg/xfer/types"
)

// startOutgoingTransfer begins sending a scheduled transfer. It is also the
// re-entry point sendScheduled uses once a queued item's turn comes up, so
// admission is re-verified here rather than trusted from the caller.
func (s *Scheduler) startOutgoingTransfer(now time.Time, req types.ScheduledTransfer) {
	if !s.admissible(req.Peer) {
		s.enqueue(req)
		return
	}

	size := int64(len(req.Data))
	if size > s.config.BinarySizeLimit {
		exc := types.NewSizeError(req.Peer, req.ID, req.Nonce, size, s.config.BinarySizeLimit)
		if s.metrics != nil {
			s.metrics.IncTransfersFailed(types.Outgoing, types.SizeError)
		}
		s.onError(req.Peer, exc)
		return
	}

	blocks := blockCount(size, s.config.BlockSize)
	t := &types.Transfer{
		Direction:   types.Outgoing,
		Peer:        req.Peer,
		ID:          req.ID,
		Info:        req.Info,
		Nonce:       req.Nonce,
		State:       types.WriteRequestSent,
		BlockSize:   s.config.BlockSize,
		BlockCount:  blocks,
		BlockNumber: -1,
		WindowSize:  s.config.WindowSizeInBlocks,
		DataSize:    size,
		Data:        req.Data,
		Updated:     now,
	}
	s.outgoing[req.Peer] = t

	if s.metrics != nil {
		s.metrics.IncTransfersStarted(types.Outgoing)
	}

	s.scheduleTerminateTimeout(now, types.Outgoing, req.Peer, req.ID, req.Nonce)

	_ = s.endpoint.Send(req.Peer, WriteRequest{
		DataSize:   size,
		BlockCount: blocks,
		Nonce:      req.Nonce,
		ID:         req.ID,
		Info:       req.Info,
	})
}

// onAcknowledgement advances (or closes out) an outgoing transfer's window
// in response to an acknowledgement packet.
func (s *Scheduler) onAcknowledgement(now time.Time, peer types.PeerID, payload Acknowledgement) {
	t, ok := s.outgoing[peer]
	if !ok || t.Released {
		return
	}
	if payload.Number < t.BlockNumber || payload.Nonce != t.Nonce {
		return
	}

	t.BlockNumber = payload.Number

	if t.BlockNumber > t.BlockCount-1 {
		t.State = types.FinalBlock
		s.finishOutgoingTransfer(now, peer, t)
		return
	}

	t.WindowSize = types.ClampWindow(payload.WindowSize, blockCount(s.config.BinarySizeLimit, t.BlockSize))
	t.Updated = now
	t.State = types.WindowTransmitted

	end := t.BlockNumber + t.WindowSize
	if end > t.BlockCount {
		end = t.BlockCount
	}
	for block := t.BlockNumber; block < end; block++ {
		chunk := blockSlice(t.Data, block, t.BlockSize, t.DataSize)
		_ = s.endpoint.Send(peer, Data{BlockNumber: block, Nonce: t.Nonce, Data: chunk})
	}
}

// finishOutgoingTransfer marks an outgoing transfer complete, reports it to
// the caller, and gives the per-peer queue a chance to start its next item.
func (s *Scheduler) finishOutgoingTransfer(now time.Time, peer types.PeerID, t *types.Transfer) {
	t.State = types.Finished
	s.markFinishedOutgoing(peer, t.ID)
	info, data, nonce := t.Info, t.Data, t.Nonce
	s.terminate(types.Outgoing, peer)

	if s.metrics != nil {
		s.metrics.IncTransfersCompleted(types.Outgoing)
		s.metrics.ObserveBytesTransferred(types.Outgoing, len(data))
	}

	s.onSendComplete(peer, info, data, nonce)
	s.sendScheduled(now)
}

// onErrorPacket handles a remote peer reporting a failure for a flow the
// local node is sending.
func (s *Scheduler) onErrorPacket(now time.Time, peer types.PeerID, payload Error) {
	t, ok := s.outgoing[peer]
	if !ok {
		return
	}
	exc := types.NewRemoteError(peer, t.ID, t.Nonce, payload.Message)
	t.State = types.Terminated
	s.terminate(types.Outgoing, peer)
	if s.metrics != nil {
		s.metrics.IncTransfersFailed(types.Outgoing, types.RemoteError)
	}
	s.onError(peer, exc)
	s.sendScheduled(now)
}

// scheduleTerminateTimeout arms the per-flow inactivity timeout. It is
// shared by both directions: the closure re-reads the live Transfer out of
// the appropriate map each tick rather than closing over the struct
// pointer's fields directly, since BlockNumber/Updated mutate in place.
func (s *Scheduler) scheduleTerminateTimeout(now time.Time, direction types.Direction, peer types.PeerID, id string, nonce uint64) {
	if !s.config.TerminateByTimeoutEnabled {
		return
	}
	var tick func(now time.Time)
	tick = func(now time.Time) {
		t := s.activeTransfer(direction, peer)
		if t == nil || t.Released || t.ID != id {
			return
		}
		remaining := s.config.TimeoutInterval - now.Sub(t.Updated)
		if remaining > 0 {
			s.timers.Schedule(now.Add(remaining), tick)
			return
		}
		t.State = types.Terminated
		s.terminate(direction, peer)
		if s.metrics != nil {
			s.metrics.IncTransfersFailed(direction, types.TimeoutError)
		}
		s.onError(peer, types.NewTimeoutError(peer, id, nonce))
		if direction == types.Outgoing {
			s.sendScheduled(now)
		}
	}
	s.timers.After(now, s.config.TimeoutInterval, tick)
}

func (s *Scheduler) activeTransfer(direction types.Direction, peer types.PeerID) *types.Transfer {
	switch direction {
	case types.Outgoing:
		return s.outgoing[peer]
	case types.Incoming:
		return s.incoming[peer]
	default:
		return nil
	}
}
