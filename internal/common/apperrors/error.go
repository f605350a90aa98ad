// Package apperrors provides the error values used across specstudio. An Error can be
// derived from another Error, wraps any number of causes, and carries the HTTP status
// code and the failure kind that the transport layer reports to callers.
package apperrors

// Kind is the machine-readable failure class reported to clients alongside the message,
// e.g. "InvalidUpload" or "SpecNotLoaded".
type Kind string

// Error extends the standard error interface with derivation, wrapping, status code and
// failure kind. All methods that return Error leave the receiver untouched.
type Error interface {
	error
	Unwrap() error // support for errors.Is / errors.As

	New(msg string) Error                  // derives a new error with a fresh message
	Msg(msg string) Error                  // derives a new error with a message, wrapping the receiver
	MsgErr(msg string, err ...error) Error // like Msg, also wrapping the given causes
	Err(err ...error) Error                // keeps the message and wraps the given causes
	SetExpandError(bool) Error             // whether ErrorAll includes wrapped errors
	SetStatusCode(int) Error               // HTTP status code reported for the error
	StatusCode() int
	SetKind(Kind) Error // failure kind reported for the error
	Kind() Kind
	SetDetail(string) Error // diagnostic output attached to this error only
	Detail() string
	Prefix(string) Error
	Suffix(string) Error
	ErrorAll() string   // message including wrapped errors when expansion is enabled
	UnwrapAll() []error // wrapped errors in the order they were added
}
