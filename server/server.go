// Package server exposes the keyhandler Service over HTTP
package server

import (
	"context"
	"mime"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/keyhandler/keyhandler"
	"github.com/effective-security/xlog"
	"github.com/gorilla/mux"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/keyhandler", "server")

// Form fields
const (
	FieldPublicKey = "public_key"
	FieldPassword  = "password"
)

// Routes
const (
	RouteGetFingerprint = "/get_fingerprint"
	RouteHealth         = "/health"
)

const invalidRequest = "error: invalid request"

// multipart forms are held in memory up to the request size limit
const maxMemory = 1 << 20

// FingerprintService handles fingerprint requests
type FingerprintService interface {
	GetFingerprint(ctx context.Context, req keyhandler.Request) *keyhandler.Response
}

// Config for the Server
type Config struct {
	ListenAddr      string
	RequestTimeout  time.Duration
	MaxRequestBytes int64
}

// Server is the HTTP front end
type Server struct {
	cfg     Config
	service FingerprintService
	router  *mux.Router
	httpSrv *http.Server
}

// New returns a Server
func New(cfg Config, service FingerprintService) *Server {
	s := &Server{
		cfg:     cfg,
		service: service,
	}

	r := mux.NewRouter()
	r.HandleFunc(RouteGetFingerprint, s.getFingerprintHandler).Methods(http.MethodPost)
	r.HandleFunc(RouteHealth, healthHandler).Methods(http.MethodGet)
	s.router = r

	s.httpSrv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe accepts connections until Shutdown is called
func (s *Server) ListenAndServe() error {
	logger.KV(xlog.NOTICE, "status", "listening", "addr", s.cfg.ListenAddr)

	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return errors.WithStack(err)
}

// Shutdown stops the listener and waits for active requests
func (s *Server) Shutdown(ctx context.Context) error {
	logger.KV(xlog.NOTICE, "status", "shutdown", "addr", s.cfg.ListenAddr)
	return errors.WithStack(s.httpSrv.Shutdown(ctx))
}

func (s *Server) getFingerprintHandler(w http.ResponseWriter, r *http.Request) {
	if s.cfg.MaxRequestBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxRequestBytes)
	}

	req, err := parseRequest(r)
	if err != nil {
		logger.KV(xlog.NOTICE, "reason", "invalid_request", "remote", r.RemoteAddr, "err", err.Error())
		writeText(w, http.StatusBadRequest, invalidRequest)
		return
	}

	ctx := r.Context()
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	res := s.service.GetFingerprint(ctx, req)
	writeText(w, http.StatusOK, res.String())
}

// parseRequest reads the form fields, a field absent from the form
// stays nil in the Request
func parseRequest(r *http.Request) (keyhandler.Request, error) {
	var req keyhandler.Request

	if err := r.ParseForm(); err != nil {
		return req, errors.WithMessage(err, "unable to parse form")
	}

	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			return req, errors.WithMessage(err, "unable to parse multipart form")
		}
	}

	if v, ok := r.PostForm[FieldPublicKey]; ok && len(v) > 0 {
		req.PublicKey = &v[0]
	}
	if v, ok := r.PostForm[FieldPassword]; ok && len(v) > 0 {
		req.Password = &v[0]
	}
	return req, nil
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "ok")
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
