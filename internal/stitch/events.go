package stitch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// EventSink receives progress and log events while a job runs.
// OnProgress percentages are job-scoped, 0-100 and never regress within a
// single run; the engine enforces monotonicity before calling the sink.
type EventSink interface {
	// OnProgress is called with the cumulative job percentage after each
	// image load, each rescale, and after compositing and writing.
	OnProgress(percent int)

	// OnLog is called with a human-readable line for informational and
	// per-item error events.
	OnLog(message string)

	// OnDone is called exactly once with the terminal result.
	OnDone(result Result)
}

// NoOpSink implements EventSink but does nothing. Useful as a default when
// no event reporting is needed.
type NoOpSink struct{}

func (NoOpSink) OnProgress(percent int) {}
func (NoOpSink) OnLog(message string)   {}
func (NoOpSink) OnDone(result Result)   {}

// LogSink forwards events to a structured logger.
type LogSink struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogSink creates a sink that logs events with slog.
func NewLogSink(logger *slog.Logger, level slog.Level) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger, level: level}
}

func (l *LogSink) OnProgress(percent int) {
	l.logger.Log(context.Background(), l.level, "stitch progress", "percent", percent)
}

func (l *LogSink) OnLog(message string) {
	l.logger.Log(context.Background(), l.level, message)
}

func (l *LogSink) OnDone(result Result) {
	l.logger.Log(context.Background(), l.level, "stitch finished",
		"status", result.Status.String(),
		"artifacts", len(result.Artifacts),
		"skipped_groups", result.SkippedGroups,
		"failed_images", result.FailedImages,
		"duration", result.Duration,
	)
}

// ConsoleSink writes a single-line progress indicator and log lines to a
// writer, suitable for interactive terminals.
type ConsoleSink struct {
	writer  io.Writer
	prefix  string
	mutex   sync.Mutex
	started bool
}

// NewConsoleSink creates a console event sink.
func NewConsoleSink(writer io.Writer, prefix string) *ConsoleSink {
	if writer == nil {
		writer = os.Stderr
	}
	return &ConsoleSink{writer: writer, prefix: prefix}
}

func (c *ConsoleSink) OnProgress(percent int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.started = true
	_, _ = fmt.Fprintf(c.writer, "\r%s%3d%%", c.prefix, percent)
}

func (c *ConsoleSink) OnLog(message string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.started {
		_, _ = fmt.Fprintln(c.writer)
		c.started = false
	}
	_, _ = fmt.Fprintln(c.writer, message)
}

func (c *ConsoleSink) OnDone(result Result) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.started {
		_, _ = fmt.Fprintln(c.writer)
		c.started = false
	}
	_, _ = fmt.Fprintf(c.writer, "%s%s: %s\n", c.prefix, result.Status, result.Message)
}

// MultiSink fans events out to several sinks.
type MultiSink struct {
	sinks []EventSink
}

// NewMultiSink creates a sink that reports to all given sinks in order.
func NewMultiSink(sinks ...EventSink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Add appends another sink.
func (m *MultiSink) Add(sink EventSink) {
	m.sinks = append(m.sinks, sink)
}

func (m *MultiSink) OnProgress(percent int) {
	for _, s := range m.sinks {
		s.OnProgress(percent)
	}
}

func (m *MultiSink) OnLog(message string) {
	for _, s := range m.sinks {
		s.OnLog(message)
	}
}

func (m *MultiSink) OnDone(result Result) {
	for _, s := range m.sinks {
		s.OnDone(result)
	}
}

// Event is a typed job event delivered through a ChannelSink.
type Event interface{ isEvent() }

// ProgressEvent carries the cumulative job percentage.
type ProgressEvent struct {
	Percent int
}

// LogEvent carries one human-readable log line.
type LogEvent struct {
	Message string
}

// DoneEvent carries the terminal result and is always the last event.
type DoneEvent struct {
	Result Result
}

func (ProgressEvent) isEvent() {}
func (LogEvent) isEvent()      {}
func (DoneEvent) isEvent()     {}

// ChannelSink delivers events as a typed stream. The channel is closed
// after the DoneEvent; the consumer must drain it while the job runs.
type ChannelSink struct {
	ch chan Event
}

// NewChannelSink creates a channel-backed sink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{ch: make(chan Event, buffer)}
}

// Events returns the stream consumed by the caller.
func (s *ChannelSink) Events() <-chan Event {
	return s.ch
}

func (s *ChannelSink) OnProgress(percent int) {
	s.ch <- ProgressEvent{Percent: percent}
}

func (s *ChannelSink) OnLog(message string) {
	s.ch <- LogEvent{Message: message}
}

func (s *ChannelSink) OnDone(result Result) {
	s.ch <- DoneEvent{Result: result}
	close(s.ch)
}
