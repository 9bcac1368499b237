package core

import (
	"testing"
	"time"

	"github.com/jabolina/go-xfer/pkg/xfer/types"
)

type sentPacket struct {
	peer   types.PeerID
	packet Packet
}

type fakeEndpoint struct {
	sent []sentPacket
}

func (f *fakeEndpoint) Send(peer types.PeerID, packet Packet) error {
	f.sent = append(f.sent, sentPacket{peer: peer, packet: packet})
	return nil
}

type fakeDirectory struct {
	reachable map[types.PeerID]bool
}

func newFakeDirectory(peers ...types.PeerID) *fakeDirectory {
	d := &fakeDirectory{reachable: make(map[types.PeerID]bool)}
	for _, p := range peers {
		d.reachable[p] = true
	}
	return d
}

func (d *fakeDirectory) GetPeers() []types.PeerInfo {
	var peers []types.PeerInfo
	for id := range d.reachable {
		peers = append(peers, types.PeerInfo{ID: id})
	}
	return peers
}

func (d *fakeDirectory) IsReachable(peer types.PeerID) bool {
	return d.reachable[peer]
}

func newTestScheduler(self types.PeerID, endpoint *fakeEndpoint, directory *fakeDirectory) *Scheduler {
	cfg := types.DefaultConfig()
	cfg.BlockSize = 10
	return NewScheduler(self, cfg, endpoint, directory)
}

func TestBlockCount(t *testing.T) {
	cases := []struct {
		size, blockSize int64
		want            int
	}{
		{15, 10, 2},
		{10, 10, 1},
		{1, 10, 1},
		{1 << 30, 1000, 1073742},
	}
	for _, c := range cases {
		if got := blockCount(c.size, int(c.blockSize)); got != c.want {
			t.Errorf("blockCount(%d, %d) = %d, want %d", c.size, c.blockSize, got, c.want)
		}
	}
}

func TestBlockSlice_LastBlockIsShort(t *testing.T) {
	data := []byte("ABCDEFGHIJKLMNO")
	if got := string(blockSlice(data, 0, 10, 15)); got != "ABCDEFGHIJ" {
		t.Errorf("block 0 = %q", got)
	}
	if got := string(blockSlice(data, 1, 10, 15)); got != "KLMNO" {
		t.Errorf("block 1 = %q", got)
	}
}

func TestSendBinary_RejectsEmptyArguments(t *testing.T) {
	endpoint := &fakeEndpoint{}
	directory := newFakeDirectory("peer")
	s := newTestScheduler("self", endpoint, directory)

	s.SendBinary("peer", nil, "id", []byte("data"), nil)
	s.SendBinary("peer", []byte("info"), "", []byte("data"), nil)
	s.SendBinary("peer", []byte("info"), "id", nil, nil)
	s.SendBinary("self", []byte("info"), "id", []byte("data"), nil)

	if len(endpoint.sent) != 0 {
		t.Fatalf("expected no packets emitted for rejected send_binary calls, got %v", endpoint.sent)
	}
}

func TestSendBinary_UnreachablePeerIsScheduled(t *testing.T) {
	endpoint := &fakeEndpoint{}
	directory := newFakeDirectory() // nobody reachable
	s := newTestScheduler("self", endpoint, directory)

	var progress []types.TransferProgress
	s.SetCallbacks(func(peer types.PeerID, info []byte, p types.TransferProgress) {
		progress = append(progress, p)
	}, nil, nil, nil)

	s.SendBinary("peer", []byte("info"), "id", []byte("data"), nil)

	if len(endpoint.sent) != 0 {
		t.Fatalf("expected no write-request for an unreachable peer, got %v", endpoint.sent)
	}
	if len(progress) != 1 || progress[0].State != types.Scheduled || progress[0].Progress != 0 {
		t.Fatalf("expected a single SCHEDULED progress event, got %v", progress)
	}
	if len(s.scheduled["peer"]) != 1 {
		t.Fatalf("expected the request to be queued")
	}
}

func TestSendBinary_OutgoingTransferAdvancesState(t *testing.T) {
	endpoint := &fakeEndpoint{}
	directory := newFakeDirectory("peer")
	s := newTestScheduler("self", endpoint, directory)

	s.SendBinary("peer", []byte("info"), "id", []byte("0123456789"), nil)

	tr, ok := s.outgoing["peer"]
	if !ok {
		t.Fatalf("expected an outgoing transfer to be installed")
	}
	if tr.State != types.WriteRequestSent {
		t.Fatalf("expected a freshly started outgoing transfer to be WriteRequestSent, got %v", tr.State)
	}

	s.onAcknowledgement(time.Now(), "peer", Acknowledgement{Number: 0, WindowSize: 4, Nonce: tr.Nonce})
	if tr.State != types.WindowTransmitted {
		t.Fatalf("expected an in-progress acknowledgement to move state to WindowTransmitted, got %v", tr.State)
	}

	s.onAcknowledgement(time.Now(), "peer", Acknowledgement{Number: 1, WindowSize: 4, Nonce: tr.Nonce})
	if tr.State != types.Finished {
		t.Fatalf("expected the final acknowledgement to move state to Finished, got %v", tr.State)
	}
	if _, ok := s.outgoing["peer"]; ok {
		t.Fatalf("expected the outgoing transfer to be removed once finished")
	}
}

func TestSendBinary_DuplicateIDWhileActiveIsNoOp(t *testing.T) {
	endpoint := &fakeEndpoint{}
	directory := newFakeDirectory("peer")
	s := newTestScheduler("self", endpoint, directory)

	s.SendBinary("peer", []byte("info"), "id", []byte("0123456789"), nil)
	firstCount := len(endpoint.sent)

	s.SendBinary("peer", []byte("info"), "id", []byte("0123456789"), nil)

	if len(endpoint.sent) != firstCount {
		t.Fatalf("expected duplicate send_binary for an active id to emit nothing new, before=%d after=%d", firstCount, len(endpoint.sent))
	}
}

func TestSendBinary_OversizedFiresSizeErrorNoWriteRequest(t *testing.T) {
	endpoint := &fakeEndpoint{}
	directory := newFakeDirectory("peer")
	s := newTestScheduler("self", endpoint, directory)
	s.config.BinarySizeLimit = 5

	var errs []*types.TransferException
	s.SetCallbacks(nil, nil, nil, func(peer types.PeerID, exc *types.TransferException) {
		errs = append(errs, exc)
	})

	s.SendBinary("peer", []byte("info"), "id", []byte("012345"), nil)

	if len(endpoint.sent) != 0 {
		t.Fatalf("expected no write-request to be emitted for an oversized blob")
	}
	if len(errs) != 1 || errs[0].Kind != types.SizeError {
		t.Fatalf("expected a single SizeError callback, got %v", errs)
	}
	if _, ok := s.outgoing["peer"]; ok {
		t.Fatalf("no transfer state should persist after a pre-transmit size error")
	}
}

func TestOnWriteRequest_PeerBusyRejectsSecondFlow(t *testing.T) {
	endpoint := &fakeEndpoint{}
	directory := newFakeDirectory("peer")
	s := newTestScheduler("self", endpoint, directory)

	s.onWriteRequest(time.Now(), "peer", WriteRequest{DataSize: 10, BlockCount: 1, Nonce: 1, ID: "first", Info: []byte("a")})
	if _, ok := s.incoming["peer"]; !ok {
		t.Fatalf("expected first write-request to install a transfer")
	}
	if got := s.incoming["peer"].State; got != types.AckSent {
		t.Fatalf("expected the admitted transfer to be in AckSent after its first acknowledgement, got %v", got)
	}

	var errs []*types.TransferException
	s.SetCallbacks(nil, nil, nil, func(peer types.PeerID, exc *types.TransferException) {
		errs = append(errs, exc)
	})

	s.onWriteRequest(time.Now(), "peer", WriteRequest{DataSize: 10, BlockCount: 1, Nonce: 2, ID: "second", Info: []byte("a")})

	if s.incoming["peer"].ID != "first" {
		t.Fatalf("first transfer must be unaffected by the rejected second one")
	}
	if len(errs) != 1 || errs[0].Kind != types.PeerBusyError {
		t.Fatalf("expected a single PeerBusyError callback, got %v", errs)
	}
	foundErrorPacket := false
	for _, sent := range endpoint.sent {
		if _, ok := sent.packet.(Error); ok {
			foundErrorPacket = true
		}
	}
	if !foundErrorPacket {
		t.Fatalf("expected an error packet to be sent back to the peer")
	}
}
