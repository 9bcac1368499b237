package definition

import (
	"github.com/jabolina/go-xfer/pkg/xfer/types"
	plog "github.com/prometheus/common/log"
)

// NewDefaultMetrics returns a Metrics implementation that reports every
// counter as a log line through prometheus/common/log; see DESIGN.md for
// why a real collector-backed metrics library isn't wired in here.
func NewDefaultMetrics() types.Metrics {
	return &logMetrics{}
}

type logMetrics struct{}

func (logMetrics) IncTransfersStarted(direction types.Direction) {
	plog.Infof("metric transfers_started{direction=%q} +1", direction)
}

func (logMetrics) IncTransfersCompleted(direction types.Direction) {
	plog.Infof("metric transfers_completed{direction=%q} +1", direction)
}

func (logMetrics) IncTransfersFailed(direction types.Direction, kind types.TransferErrorKind) {
	plog.Warnf("metric transfers_failed{direction=%q,kind=%q} +1", direction, kind)
}

func (logMetrics) ObserveBytesTransferred(direction types.Direction, bytes int) {
	plog.Infof("metric bytes_transferred{direction=%q} %d", direction, bytes)
}

func (logMetrics) ObserveQueueDepth(peer types.PeerID, depth int) {
	plog.Debugf("metric queue_depth{peer=%q} %d", peer, depth)
}
