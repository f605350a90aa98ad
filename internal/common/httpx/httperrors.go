package httpx

import (
	"fmt"
	"net/http"
)

// Error represents an HTTP error response with status code, description and the
// failure kind of the originating application error.
type Error struct {
	Description string `json:"description"`
	StatusCode  int    `json:"http_status_code"`
	Kind        string `json:"kind,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// ErrorRsp is the JSON envelope sent for every failed request.
type ErrorRsp struct {
	Result int    `json:"result"`
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Failure represents the error result code in error responses.
const Failure int = 0

// Send writes the error response to w. A nil writer is ignored.
func (e *Error) Send(w http.ResponseWriter) {
	if w == nil {
		return
	}
	rspJson, err := json.Marshal(&ErrorRsp{
		Result: Failure,
		Error:  e.Description,
		Kind:   e.Kind,
		Detail: e.Detail,
	})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Unable to parse error"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	w.Write(rspJson)
}

func (e *Error) Error() string {
	return e.Description
}

// ErrApplicationError returns an error for application-level failures.
func ErrApplicationError(err ...string) *Error {
	s := "unable to process request"
	if len(err) > 0 {
		s = err[0]
	}
	return &Error{
		Description: s,
		StatusCode:  http.StatusInternalServerError,
	}
}

// ErrInvalidRequest returns an error for malformed request data.
func ErrInvalidRequest(str ...string) *Error {
	s := "invalid request data or empty request values"
	if len(str) > 0 {
		s = str[0]
	}
	return &Error{
		Description: s,
		StatusCode:  http.StatusBadRequest,
	}
}

// ErrRequestTimeout returns an error for request timeout.
func ErrRequestTimeout() *Error {
	return &Error{
		Description: "request timed out",
		StatusCode:  http.StatusRequestTimeout,
	}
}

// ErrRequestTooLarge returns an error when request body exceeds size limit.
func ErrRequestTooLarge(limit int64) *Error {
	return &Error{
		Description: fmt.Sprintf("request body too large (limit: %d bytes)", limit),
		StatusCode:  http.StatusRequestEntityTooLarge,
	}
}
