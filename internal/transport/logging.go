package transport

import (
	"sync/atomic"

	applog "forma/internal/log"
	"forma/internal/visual"
)

var logger = applog.Named("Transport")

// LoggingTransport writes a one-line summary of everything it is given to the log
// at debug level. It never fails, which makes it the fallback when no network
// transport is enabled.
type LoggingTransport struct {
	sent atomic.Uint64
}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	logger.Infof("Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs a summary of data.
func (lt *LoggingTransport) Send(data any) error {
	n := lt.sent.Add(1)
	switch v := data.(type) {
	case *visual.Scene:
		dominant := "none"
		if v.Dominant != nil {
			dominant = v.Dominant.Key.String()
		}
		logger.Debugf("scene %d visible=%t dominant=%s style=%s", v.Seq, v.Visible, dominant, v.Path.Style)
	case map[string]any:
		logger.Debugf("message %d type=%v", n, v["type"])
	default:
		logger.Debugf("message %d (%T)", n, data)
	}
	return nil
}

// Draw implements visual.Surface.
func (lt *LoggingTransport) Draw(scene *visual.Scene) error {
	return lt.Send(scene)
}

// Sent reports how many messages have been logged.
func (lt *LoggingTransport) Sent() uint64 { return lt.sent.Load() }

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	logger.Infof("LoggingTransport closed after %d messages", lt.sent.Load())
	return nil
}

// Ensure LoggingTransport satisfies the interfaces at compile time.
var (
	_ Transport      = (*LoggingTransport)(nil)
	_ visual.Surface = (*LoggingTransport)(nil)
)
