// Package httpx provides request handler wrapping and response helpers shared by the
// specstudio HTTP surface. Handlers return a Response or an error; the wrapper renders
// JSON bodies, plain text, file attachments and the standard error envelope.
package httpx

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/tansive/specstudio/internal/common/apperrors"
)

// Attachment is a file sent with a Content-Disposition: attachment header.
// The wrapper closes Body after the transfer.
type Attachment struct {
	Filename string
	Body     io.ReadCloser
	Size     int64 // optional, sets Content-Length when positive
}

// Response represents an HTTP response produced by a RequestHandler.
type Response struct {
	StatusCode  int
	Location    string
	Response    any
	ContentType string
	Attachment  *Attachment
	Cookies     []*http.Cookie
}

// RequestHandler defines a function type for handling HTTP requests.
type RequestHandler func(r *http.Request) (*Response, error)

// WrapHttpRsp adapts a RequestHandler to an http.HandlerFunc with standardized
// error handling and content type management.
func WrapHttpRsp(handler RequestHandler) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rsp, err := handler(r)
		if rsp != nil {
			for _, c := range rsp.Cookies {
				http.SetCookie(w, c)
			}
		}
		if err != nil {
			SendError(w, err)
			return
		}
		if rsp == nil {
			ErrApplicationError().Send(w)
			return
		}
		if rsp.StatusCode == 0 {
			rsp.StatusCode = http.StatusOK
		}
		if rsp.Attachment != nil {
			sendAttachment(w, r, rsp)
			return
		}

		if rsp.ContentType == "" {
			rsp.ContentType = "application/json"
		}
		var location []string
		if rsp.Location != "" {
			location = append(location, rsp.Location)
		}
		switch rsp.ContentType {
		case "application/json":
			SendJsonRsp(r.Context(), w, rsp.StatusCode, rsp.Response, location...)
		case "text/plain":
			s, _ := rsp.Response.(string)
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(rsp.StatusCode)
			w.Write([]byte(s))
		default:
			ErrApplicationError("unsupported response type").Send(w)
		}
	})
}

func sendAttachment(w http.ResponseWriter, r *http.Request, rsp *Response) {
	a := rsp.Attachment
	defer a.Body.Close()

	contentType := rsp.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename}))
	if a.Size > 0 {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", a.Size))
	}
	w.WriteHeader(rsp.StatusCode)
	if _, err := io.Copy(w, a.Body); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("filename", a.Filename).Msg("unable to send attachment")
	}
}

// SendError writes err as the standard error envelope. Application errors keep their
// status code and failure kind; anything else becomes a 500.
func SendError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	var httperror *Error
	if errors.As(err, &httperror) {
		httperror.Send(w)
		return
	}
	var appErr apperrors.Error
	if errors.As(err, &appErr) {
		statusCode := appErr.StatusCode()
		if statusCode == 0 {
			statusCode = http.StatusInternalServerError
		}
		(&Error{
			StatusCode:  statusCode,
			Description: appErr.ErrorAll(),
			Kind:        string(appErr.Kind()),
			Detail:      appErr.Detail(),
		}).Send(w)
		return
	}
	ErrApplicationError(err.Error()).Send(w)
}
