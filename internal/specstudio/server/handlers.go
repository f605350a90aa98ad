package server

import (
	"errors"
	"mime"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/tansive/specstudio/internal/common/apperrors"
	"github.com/tansive/specstudio/internal/common/httpx"
	"github.com/tansive/specstudio/internal/specstudio/artifacts"
	"github.com/tansive/specstudio/internal/specstudio/pipeline"
)

const maxMultipartMemory = 8 << 20

// caller returns the pipeline caller for r together with the identity r presented.
func (s *StudioServer) caller(r *http.Request) (*pipeline.Caller, string) {
	id := s.cookies.Identity(r)
	return &pipeline.Caller{SessionID: id}, id
}

// withSession adds the session cookie to rsp when the operation issued a new identity.
// rsp may be nil; a response carrying only the cookie is returned for failed operations.
func (s *StudioServer) withSession(r *http.Request, c *pipeline.Caller, presented string, rsp *httpx.Response) *httpx.Response {
	if c.SessionID == "" || c.SessionID == presented {
		return rsp
	}
	ck, err := s.cookies.Cookie(c.SessionID)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("unable to sign session cookie")
		return rsp
	}
	if rsp == nil {
		rsp = &httpx.Response{}
	}
	rsp.Cookies = append(rsp.Cookies, ck)
	return rsp
}

// result builds the response of a session operation, keeping the cookie on failure.
func (s *StudioServer) result(r *http.Request, c *pipeline.Caller, presented string, body any, err apperrors.Error) (*httpx.Response, error) {
	if err != nil {
		return s.withSession(r, c, presented, nil), err
	}
	return s.withSession(r, c, presented, &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   body,
	}), nil
}

func attachment(d *pipeline.Download) *httpx.Response {
	return &httpx.Response{
		StatusCode:  http.StatusOK,
		ContentType: d.ContentType,
		Attachment: &httpx.Attachment{
			Filename: d.Name,
			Body:     d.Body,
			Size:     d.Size,
		},
	}
}

// requestValues returns query and body fields. Multipart bodies are accepted as well as
// url-encoded ones.
func requestValues(r *http.Request) (url.Values, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var err error
	if ct == "multipart/form-data" {
		err = r.ParseMultipartForm(maxMultipartMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return nil, requestError(err)
	}
	return r.Form, nil
}

// requestUpload returns the multipart "file" field of r, or nil when none was sent.
func requestUpload(r *http.Request) (*pipeline.Upload, func(), error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, func() {}, requestError(err)
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		return nil, func() {}, nil
	}
	return &pipeline.Upload{Filename: hdr.Filename, Body: file}, func() { file.Close() }, nil
}

func requestError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return httpx.ErrRequestTooLarge(tooLarge.Limit)
	}
	return httpx.ErrInvalidRequest(err.Error())
}

func (s *StudioServer) uploadRegions(r *http.Request) (*httpx.Response, error) {
	up, done, err := requestUpload(r)
	if err != nil {
		return nil, err
	}
	defer done()
	c, presented := s.caller(r)
	rsp, aerr := s.facade.UploadRegions(r.Context(), c, up)
	return s.result(r, c, presented, rsp, aerr)
}

func (s *StudioServer) importSpec(r *http.Request) (*httpx.Response, error) {
	up, done, err := requestUpload(r)
	if err != nil {
		return nil, err
	}
	defer done()
	c, presented := s.caller(r)
	rsp, aerr := s.facade.ImportSpec(r.Context(), c, up)
	return s.result(r, c, presented, rsp, aerr)
}

func (s *StudioServer) buildSpec(r *http.Request) (*httpx.Response, error) {
	values, err := requestValues(r)
	if err != nil {
		return nil, err
	}
	c, presented := s.caller(r)
	rsp, aerr := s.facade.BuildSpec(r.Context(), c, values)
	return s.result(r, c, presented, rsp, aerr)
}

func (s *StudioServer) saveSpec(r *http.Request) (*httpx.Response, error) {
	values, err := requestValues(r)
	if err != nil {
		return nil, err
	}
	c, presented := s.caller(r)
	d, aerr := s.facade.SaveSpec(r.Context(), c, values)
	if aerr != nil {
		return s.withSession(r, c, presented, nil), aerr
	}
	return s.withSession(r, c, presented, attachment(d)), nil
}

func (s *StudioServer) compileSpec(r *http.Request) (*httpx.Response, error) {
	c, presented := s.caller(r)
	rsp, aerr := s.facade.Compile(r.Context(), c)
	return s.result(r, c, presented, rsp, aerr)
}

func (s *StudioServer) analyzeSpec(r *http.Request) (*httpx.Response, error) {
	c, presented := s.caller(r)
	rsp, aerr := s.facade.Analyze(r.Context(), c)
	return s.result(r, c, presented, rsp, aerr)
}

func (s *StudioServer) download(kind artifacts.Kind) httpx.RequestHandler {
	return func(r *http.Request) (*httpx.Response, error) {
		c, _ := s.caller(r)
		d, err := s.facade.Download(r.Context(), c, kind)
		if err != nil {
			return nil, err
		}
		return attachment(d), nil
	}
}
