package compiler

import (
	"bytes"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// IOWriters receives the output streams of a toolchain run.
type IOWriters struct {
	Out io.Writer
	Err io.Writer
}

type WriterType string

const (
	StdoutWriter WriterType = "stdout"
	StderrWriter WriterType = "stderr"
)

type writer struct {
	writerType WriterType
	writers    []*IOWriters
}

// Write writes p to the Out or Err stream of every target, depending on writerType.
//
// It returns the number of bytes successfully written and an error if any writer failed or
// performed a partial write. If at least one writer short-writes, io.ErrShortWrite is returned.
func (w *writer) Write(p []byte) (int, error) {
	var (
		minWritten = len(p)
		wrote      bool
		anyShort   bool
		firstErr   error
	)

	if len(w.writers) == 0 {
		return len(p), nil
	}

	for _, wtr := range w.writers {
		var target io.Writer
		switch w.writerType {
		case StdoutWriter:
			target = wtr.Out
		case StderrWriter:
			target = wtr.Err
		default:
			continue
		}
		if target == nil {
			continue
		}

		nn, err := target.Write(p)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if nn > 0 {
			wrote = true
			if nn < len(p) {
				anyShort = true
			}
			if nn < minWritten {
				minWritten = nn
			}
		}
	}

	if !wrote && firstErr != nil {
		return 0, firstErr
	}
	if anyShort {
		return minWritten, io.ErrShortWrite
	}
	if wrote {
		return len(p), firstErr
	}
	return 0, nil
}

// NewWriter constructs an io.Writer that delegates to the Out or Err streams of each IOWriters.
func NewWriter(writerType WriterType, writers ...*IOWriters) io.Writer {
	return &writer{
		writerType: writerType,
		writers:    writers,
	}
}

// captureBuffer accumulates the interleaved output of both streams. Once limit bytes have
// been kept, further output is counted but dropped.
type captureBuffer struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	limit   int
	dropped int
}

func newCaptureBuffer(limit int) *captureBuffer {
	return &captureBuffer{limit: limit}
}

func (c *captureBuffer) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	room := c.limit - c.buf.Len()
	if room <= 0 {
		c.dropped += len(p)
		return len(p), nil
	}
	if len(p) > room {
		c.buf.Write(p[:room])
		c.dropped += len(p) - room
		return len(p), nil
	}
	return c.buf.Write(p)
}

func (c *captureBuffer) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

func (c *captureBuffer) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// logWriter forwards each chunk of toolchain output as a debug log entry.
type logWriter struct {
	logger zerolog.Logger
	stream WriterType
}

func (l *logWriter) Write(p []byte) (int, error) {
	if msg := string(bytes.TrimRight(p, "\r\n")); msg != "" {
		l.logger.Debug().Str("stream", string(l.stream)).Msg(msg)
	}
	return len(p), nil
}
