package core

import (
	"time"

	"github.com/jabolina/go-xfer/pkg/xfer/types"
)

// onWriteRequest admits (or rejects) a new incoming transfer.
func (s *Scheduler) onWriteRequest(now time.Time, peer types.PeerID, payload WriteRequest) {
	if _, exists := s.incoming[peer]; exists && s.incoming[peer].ID == payload.ID {
		return
	}
	if s.isFinishedIncoming(peer, payload.ID) {
		return
	}

	t := &types.Transfer{
		Direction:   types.Incoming,
		Peer:        peer,
		ID:          payload.ID,
		Info:        payload.Info,
		Nonce:       payload.Nonce,
		State:       types.WriteRequestReceived,
		BlockSize:   s.config.BlockSize,
		BlockCount:  payload.BlockCount,
		BlockNumber: -1,
		Updated:     now,
	}

	if payload.DataSize <= 0 {
		exc := types.NewValueError(peer, payload.ID, payload.Nonce, payload.DataSize)
		_ = s.endpoint.Send(peer, Error{Message: exc.Error(), Info: string(payload.Info)})
		if s.metrics != nil {
			s.metrics.IncTransfersFailed(types.Incoming, types.ValueError)
		}
		s.onError(peer, exc)
		return
	}

	if payload.DataSize > s.config.BinarySizeLimit {
		exc := types.NewSizeError(peer, payload.ID, payload.Nonce, payload.DataSize, s.config.BinarySizeLimit)
		_ = s.endpoint.Send(peer, Error{Message: exc.Error(), Info: string(payload.Info)})
		if s.metrics != nil {
			s.metrics.IncTransfersFailed(types.Incoming, types.SizeError)
		}
		s.onError(peer, exc)
		return
	}

	if s.hasAnyActive(peer) {
		exc := types.NewPeerBusyError(peer, payload.ID, payload.Nonce)
		_ = s.endpoint.Send(peer, Error{Message: exc.Error(), Info: string(payload.Info)})
		if s.metrics != nil {
			s.metrics.IncTransfersFailed(types.Incoming, types.PeerBusyError)
		}
		s.onError(peer, exc)
		return
	}

	t.DataSize = payload.DataSize
	t.WindowSize = s.config.WindowSizeInBlocks
	t.Attempt = 0
	s.incoming[peer] = t

	if s.metrics != nil {
		s.metrics.IncTransfersStarted(types.Incoming)
	}

	s.sendAcknowledgement(peer, t)
	t.State = types.AckSent
	s.scheduleTerminateTimeout(now, types.Incoming, peer, t.ID, t.Nonce)
	s.scheduleAckRetransmit(now, peer, t.ID, t.Nonce)
}

// hasAnyActive reports whether peer already has an active transfer of
// either direction, the peer-busy admission check of on_write_request.
func (s *Scheduler) hasAnyActive(peer types.PeerID) bool {
	if _, ok := s.incoming[peer]; ok {
		return true
	}
	if _, ok := s.outgoing[peer]; ok {
		return true
	}
	return false
}

// onData applies one in-order data block to an incoming transfer.
func (s *Scheduler) onData(now time.Time, peer types.PeerID, payload Data) {
	t, ok := s.incoming[peer]
	if !ok || t.Released {
		return
	}
	if payload.BlockNumber != t.BlockNumber+1 {
		return
	}
	if payload.Nonce != t.Nonce {
		return
	}

	t.BlockNumber = payload.BlockNumber

	if t.BlockNumber == 0 {
		s.onReceiveProgress(peer, t.Info, types.TransferProgress{ID: t.ID, State: types.Initializing, Progress: 0})
	} else if t.IsProgressMarker() {
		s.onReceiveProgress(peer, t.Info, types.TransferProgress{ID: t.ID, State: types.Downloading, Progress: t.GetProgressMarker()})
	}

	t.Data = append(t.Data, payload.Data...)
	if int64(len(t.Data)) > s.config.BinarySizeLimit {
		exc := types.NewSizeError(peer, t.ID, t.Nonce, int64(len(t.Data)), s.config.BinarySizeLimit)
		_ = s.endpoint.Send(peer, Error{Message: exc.Error(), Info: string(t.Info)})
		if s.metrics != nil {
			s.metrics.IncTransfersFailed(types.Incoming, types.SizeError)
		}
		t.State = types.Terminated
		s.terminate(types.Incoming, peer)
		s.onError(peer, exc)
		return
	}

	t.Attempt = 0
	t.Updated = now

	if t.BlockNumber == t.BlockCount-1 {
		t.State = types.FinalBlock
		s.sendAcknowledgement(peer, t)
		s.finishIncomingTransfer(peer, t)
		return
	}

	if t.AcknowledgementNumber+t.WindowSize <= t.BlockNumber+1 {
		t.State = types.WindowTransmitted
		s.sendAcknowledgement(peer, t)
	}
}

// finishIncomingTransfer marks an incoming transfer complete and delivers
// the assembled blob to the caller.
func (s *Scheduler) finishIncomingTransfer(peer types.PeerID, t *types.Transfer) {
	t.State = types.Finished
	s.markFinishedIncoming(peer, t.ID)
	info, id, data := t.Info, t.ID, t.Data
	s.terminate(types.Incoming, peer)

	if s.metrics != nil {
		s.metrics.IncTransfersCompleted(types.Incoming)
		s.metrics.ObserveBytesTransferred(types.Incoming, len(data))
	}

	s.onReceiveProgress(peer, info, types.TransferProgress{ID: id, State: types.FinishedProgress, Progress: 100})
	s.onReceiveComplete(peer, info, id, data)
}

// sendAcknowledgement advances the receive window and reports it back to
// the sender.
func (s *Scheduler) sendAcknowledgement(peer types.PeerID, t *types.Transfer) {
	t.AcknowledgementNumber = t.BlockNumber + 1
	_ = s.endpoint.Send(peer, Acknowledgement{
		Number:     t.AcknowledgementNumber,
		WindowSize: t.WindowSize,
		Nonce:      t.Nonce,
	})
}

// scheduleAckRetransmit arms the receive-side acknowledgement-retransmit
// loop.
func (s *Scheduler) scheduleAckRetransmit(now time.Time, peer types.PeerID, id string, nonce uint64) {
	var tick func(now time.Time)
	tick = func(now time.Time) {
		t := s.incoming[peer]
		if t == nil || t.Released || t.ID != id {
			return
		}
		if t.Attempt >= s.config.RetransmitAttemptCount-1 {
			return
		}
		if now.Sub(t.Updated) >= s.config.RetransmitInterval {
			t.Attempt++
			s.sendAcknowledgement(peer, t)
		}
		s.timers.After(now, s.config.RetransmitInterval, tick)
	}
	s.timers.After(now, s.config.RetransmitInterval, tick)
}
