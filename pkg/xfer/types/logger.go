package types

// Logger is the leveled logging abstraction used throughout the scheduler
// and timer subsystem. Its shape mirrors the field-free leveled methods an
// embedder already has wired to their own structured logger.
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

// Metrics is the instrumentation surface the scheduler reports against.
// When the embedder does not provide one, NewOverlay installs
// definition.NewDefaultMetrics, which logs every event.
type Metrics interface {
	IncTransfersStarted(direction Direction)
	IncTransfersCompleted(direction Direction)
	IncTransfersFailed(direction Direction, kind TransferErrorKind)
	ObserveBytesTransferred(direction Direction, bytes int)
	ObserveQueueDepth(peer PeerID, depth int)
}
