package definition

import (
	"github.com/jabolina/go-xfer/pkg/xfer/types"
	"github.com/sirupsen/logrus"
)

// NewDefaultLogger returns the logrus-backed Logger used when an embedder
// does not supply their own. It keeps logrus.New's default TextFormatter,
// which colors its output on a terminal and writes plain key=value lines
// otherwise.
func NewDefaultLogger() types.Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	return &defaultLogger{entry: logrus.NewEntry(l)}
}

// defaultLogger adapts a logrus.Entry to the types.Logger interface,
// letting a caller attach structured fields with WithFields before handing
// the result to a Config via WithLogger.
type defaultLogger struct {
	entry *logrus.Entry
}

// WithFields returns a logger carrying the given structured fields on every
// subsequent call, the way the scheduler tags log lines with the peer.
func WithFields(base types.Logger, fields logrus.Fields) types.Logger {
	d, ok := base.(*defaultLogger)
	if !ok {
		return base
	}
	return &defaultLogger{entry: d.entry.WithFields(fields)}
}

func (d *defaultLogger) Debugf(format string, v ...interface{}) {
	d.entry.Debugf(format, v...)
}

func (d *defaultLogger) Infof(format string, v ...interface{}) {
	d.entry.Infof(format, v...)
}

func (d *defaultLogger) Warnf(format string, v ...interface{}) {
	d.entry.Warnf(format, v...)
}

func (d *defaultLogger) Errorf(format string, v ...interface{}) {
	d.entry.Errorf(format, v...)
}
