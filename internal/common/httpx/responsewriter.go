package httpx

import (
	"io"
	"net/http"
	"sync"
)

// ResponseWriter wraps http.ResponseWriter to record the status and body size. After
// Abandon, writes from a handler that is still running are dropped so that a timeout
// response cannot be interleaved with a late handler response.
type ResponseWriter struct {
	http.ResponseWriter

	mu        sync.Mutex
	written   bool
	abandoned bool
	status    int
	bytes     int64
}

// NewResponseWriter creates a new ResponseWriter wrapping the provided http.ResponseWriter.
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{ResponseWriter: w}
}

// WriteHeader implements http.ResponseWriter.WriteHeader. Only the first call has effect.
func (rw *ResponseWriter) WriteHeader(code int) {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	rw.writeHeaderLocked(code)
}

func (rw *ResponseWriter) writeHeaderLocked(code int) {
	if rw.written || rw.abandoned {
		return
	}
	rw.status = code
	rw.written = true
	rw.ResponseWriter.WriteHeader(code)
}

// Write implements http.ResponseWriter.Write, sending a 200 header first if needed.
func (rw *ResponseWriter) Write(b []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.abandoned {
		return 0, http.ErrHandlerTimeout
	}
	rw.writeHeaderLocked(http.StatusOK)
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += int64(n)
	return n, err
}

// ReadFrom lets io.Copy into the writer go through Write so that the byte count and the
// abandon fence hold for attachments too.
func (rw *ResponseWriter) ReadFrom(r io.Reader) (int64, error) {
	return io.Copy(struct{ io.Writer }{rw}, r)
}

// Abandon stops forwarding handler output and reports whether a response had already
// started. The caller owns the underlying writer afterwards.
func (rw *ResponseWriter) Abandon() (started bool) {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	rw.abandoned = true
	return rw.written
}

// Written reports whether headers or body were written.
func (rw *ResponseWriter) Written() bool {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.written
}

// Status returns the status code. Returns http.StatusOK (200) if not set.
func (rw *ResponseWriter) Status() int {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.status == 0 {
		return http.StatusOK
	}
	return rw.status
}

// BytesWritten returns the number of body bytes forwarded.
func (rw *ResponseWriter) BytesWritten() int64 {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.bytes
}

// Flush implements http.Flusher if the underlying writer supports it.
func (rw *ResponseWriter) Flush() {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.abandoned {
		return
	}
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the wrapped writer for http.ResponseController.
func (rw *ResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
