package types

import "time"

// MinWindow is the floor applied to WindowSize after clamping.
const MinWindow = 1

// MaxNonce is the inclusive upper bound drawn from when a caller of
// SendBinary does not supply its own nonce: the full 64-bit wire field,
// see DESIGN.md.
const MaxNonce = ^uint64(0)

// Config holds every constructor-time tunable governing block size,
// windowing, retransmission, and the limits a flow runs under.
type Config struct {
	BlockSize                 int
	WindowSizeInBlocks        int
	RetransmitInterval        time.Duration
	RetransmitAttemptCount    int
	ScheduledSendInterval     time.Duration
	TimeoutInterval           time.Duration
	BinarySizeLimit           int64
	TerminateByTimeoutEnabled bool

	Logger  Logger
	Metrics Metrics
}

// DefaultConfig returns the baseline tunables a caller can override with
// Options. Logger and Metrics are left nil; NewOverlay installs the package
// defaults when they are unset.
func DefaultConfig() Config {
	return Config{
		BlockSize:                 1000,
		WindowSizeInBlocks:        64,
		RetransmitInterval:        3 * time.Second,
		RetransmitAttemptCount:    3,
		ScheduledSendInterval:     5 * time.Second,
		TimeoutInterval:           20 * time.Second,
		BinarySizeLimit:           1 << 30,
		TerminateByTimeoutEnabled: true,
	}
}

// Option mutates a Config at construction time.
type Option func(*Config)

func WithBlockSize(size int) Option {
	return func(c *Config) { c.BlockSize = size }
}

func WithWindowSize(blocks int) Option {
	return func(c *Config) { c.WindowSizeInBlocks = blocks }
}

func WithRetransmitInterval(d time.Duration) Option {
	return func(c *Config) { c.RetransmitInterval = d }
}

func WithRetransmitAttemptCount(n int) Option {
	return func(c *Config) { c.RetransmitAttemptCount = n }
}

func WithScheduledSendInterval(d time.Duration) Option {
	return func(c *Config) { c.ScheduledSendInterval = d }
}

func WithTimeoutInterval(d time.Duration) Option {
	return func(c *Config) { c.TimeoutInterval = d }
}

func WithBinarySizeLimit(limit int64) Option {
	return func(c *Config) { c.BinarySizeLimit = limit }
}

func WithTerminateByTimeoutEnabled(enabled bool) Option {
	return func(c *Config) { c.TerminateByTimeoutEnabled = enabled }
}

func WithLogger(logger Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

func WithMetrics(metrics Metrics) Option {
	return func(c *Config) { c.Metrics = metrics }
}

// ClampWindow clamps a window size into [MinWindow, limitInBlocks].
func ClampWindow(window, limitInBlocks int) int {
	if window < MinWindow {
		return MinWindow
	}
	if window > limitInBlocks {
		return limitInBlocks
	}
	return window
}
