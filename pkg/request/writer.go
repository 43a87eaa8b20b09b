package request

import (
	"errors"
	"net/http"
)

var (
	// ErrInternalServer is returned to the client when a handler fails unexpectedly.
	ErrInternalServer = errors.New("internal server error")

	// ErrBadRequest is returned to the client when the request is malformed.
	ErrBadRequest = errors.New("bad request")
)

// ClientWriter is a http.ResponseWriter that remembers the status code written.
type ClientWriter struct {
	http.ResponseWriter

	statusCode int
	written    bool
}

// NewClientWriter wraps w. The status code is 200 until a header is written.
func NewClientWriter(w http.ResponseWriter) *ClientWriter {
	return &ClientWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (c *ClientWriter) WriteHeader(code int) {
	if c.written {
		return
	}
	c.statusCode = code
	c.written = true
	c.ResponseWriter.WriteHeader(code)
}

func (c *ClientWriter) Write(b []byte) (int, error) {
	c.written = true
	return c.ResponseWriter.Write(b)
}

// StatusCode returns the status code sent to the client.
func (c *ClientWriter) StatusCode() int {
	return c.statusCode
}
