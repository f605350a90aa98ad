// Package server exposes the spec build pipeline over HTTP. Routes keep the specEditor
// paths used by the browser editor; session identity travels in a signed cookie.
package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/tansive/specstudio/internal/common/httpx"
	"github.com/tansive/specstudio/internal/common/logtrace"
	"github.com/tansive/specstudio/internal/common/middleware"
	"github.com/tansive/specstudio/internal/specstudio/artifacts"
	"github.com/tansive/specstudio/internal/specstudio/config"
	"github.com/tansive/specstudio/internal/specstudio/pipeline"
)

// StudioServer provides the HTTP server for the spec editor backend.
type StudioServer struct {
	Router  *chi.Mux
	cfg     *config.ConfigParam
	facade  *pipeline.Facade
	cookies *sessionCookies
}

// CreateNewServer creates a server that serves f with the settings in cfg.
func CreateNewServer(cfg *config.ConfigParam, f *pipeline.Facade) (*StudioServer, error) {
	cookies, err := newSessionCookies(cfg.Session.CookieName, cfg.Session.Secret)
	if err != nil {
		return nil, fmt.Errorf("unable to initialise session cookies: %w", err)
	}
	return &StudioServer{
		Router:  chi.NewRouter(),
		cfg:     cfg,
		facade:  f,
		cookies: cookies,
	}, nil
}

// MountHandlers sets up all HTTP routes and middleware for the server.
func (s *StudioServer) MountHandlers() {
	s.Router.Use(middleware.RequestLogger)
	s.Router.Use(middleware.PanicHandler)
	if s.cfg.HandleCORS {
		s.Router.Use(s.HandleCORS)
	}
	s.Router.Use(middleware.LimitRequestBody(s.cfg.MaxRequestBodySize))
	s.mountResourceHandlers(s.Router)
	if logtrace.IsTraceEnabled() {
		fmt.Println("Routes in specstudio router")
		walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
			fmt.Printf("%s %s\n", method, route)
			return nil
		}
		if err := chi.Walk(s.Router, walkFunc); err != nil {
			log.Error().Err(err).Msg("Error walking router")
		}
	}
}

func (s *StudioServer) mountResourceHandlers(r chi.Router) {
	r.Route("/specEditor", func(r chi.Router) {
		// compile and analyze are bounded by the compiler timeout instead
		r.Get("/compileSpec", httpx.WrapHttpRsp(s.compileSpec))
		r.Get("/analyzeSpec", httpx.WrapHttpRsp(s.analyzeSpec))

		r.Group(func(r chi.Router) {
			r.Use(middleware.SetTimeout(s.cfg.GetRequestTimeoutOrDefault()))

			r.Post("/uploadRegions", httpx.WrapHttpRsp(s.uploadRegions))
			r.Post("/importSpec", httpx.WrapHttpRsp(s.importSpec))
			r.Get("/buildSpec", httpx.WrapHttpRsp(s.buildSpec))
			r.Post("/buildSpec", httpx.WrapHttpRsp(s.buildSpec))
			r.Get("/saveSpec", httpx.WrapHttpRsp(s.saveSpec))
			r.Post("/saveSpec", httpx.WrapHttpRsp(s.saveSpec))
			r.Get("/saveRegions", httpx.WrapHttpRsp(s.download(artifacts.KindRegion)))
			r.Post("/saveRegions", httpx.WrapHttpRsp(s.download(artifacts.KindRegion)))
			r.Get("/saveAut", httpx.WrapHttpRsp(s.download(artifacts.KindAut)))
			r.Get("/saveLTL", httpx.WrapHttpRsp(s.download(artifacts.KindLTL)))
			r.Get("/saveSMV", httpx.WrapHttpRsp(s.download(artifacts.KindSMV)))
			r.Get("/saveDecomposed", httpx.WrapHttpRsp(s.download(artifacts.KindDecomposed)))
			r.Get("/saveZip", httpx.WrapHttpRsp(s.download(artifacts.KindBundle)))
			r.Post("/saveZip", httpx.WrapHttpRsp(s.download(artifacts.KindBundle)))
			r.Get("/saveLog", httpx.WrapHttpRsp(s.download(artifacts.KindCompileLog)))
		})
	})
	r.Get("/version", s.getVersion)
	r.Get("/ready", s.getReadiness)
}

// GetVersionRsp represents the response for version information.
type GetVersionRsp struct {
	ServerVersion string `json:"serverVersion"`
	ApiVersion    string `json:"apiVersion"`
	Compatible    *bool  `json:"compatible,omitempty"` // set when the client sent its version
}

func (s *StudioServer) getVersion(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().Msg("GetVersion")
	rsp := &GetVersionRsp{
		ServerVersion: "Specstudio Server: " + Version,
		ApiVersion:    ApiVersion,
	}
	if client := r.URL.Query().Get("client"); client != "" {
		ok := IsVersionCompatible(client)
		rsp.Compatible = &ok
	}
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, rsp)
}

func (s *StudioServer) getReadiness(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().Msg("Readiness check")
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// HandleCORS provides CORS middleware for cross-origin requests.
func (s *StudioServer) HandleCORS(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Length", "Accept-Encoding"},
		ExposedHeaders:   []string{"Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	})(next)
}
