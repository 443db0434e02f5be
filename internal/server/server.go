// Package server provides the HTTP API of smpqueryd.
//
// # SMP Query API
//
//   - GET {base}/smpquery/{registryID}/{participantID}             - List document types
//   - GET {base}/smpquery/{registryID}/{participantID}/{docTypeID} - Get service metadata
//   - GET {base}/businesscard/{registryID}/{participantID}         - Get the business card
//   - GET {base}/ppidexistence/{registryID}/{participantID}        - Check DNS registration
//
// registryID is a catalog ID or "auto-detect". Identifiers are given in
// URI form (scheme::value) and must be percent-encoded where needed.
//
// The document type listing accepts businessCard=true to embed the business
// card. Both query endpoints accept xmlSchemaValidation=false and
// verifySignature=false to relax the checks on SMP responses.
//
// # Health & Metrics
//
//   - GET /health  - Liveness probe
//   - GET /metrics - Prometheus metrics (if enabled)
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sirosfoundation/go-smp/internal/config"
	"github.com/sirosfoundation/go-smp/pkg/businesscard"
	"github.com/sirosfoundation/go-smp/pkg/identifier"
	"github.com/sirosfoundation/go-smp/pkg/smpquery"
)

// Server is the SMP query HTTP server
type Server struct {
	config     *config.Config
	logger     *slog.Logger
	httpSrv    *http.Server
	builder    *smpquery.Builder
	dispatcher *smpquery.Dispatcher
	metrics    *smpquery.Metrics
	httpStats  *httpMetrics
	limiter    *RateLimiter
	handler    http.Handler
	stop       context.CancelFunc
}

// New creates a server answering queries with endpoints found by resolver
func New(cfg *config.Config, resolver smpquery.EndpointResolver, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, fmt.Errorf("building registry catalog: %w", err)
	}
	trust, err := cfg.SignatureTrust()
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		config:    cfg,
		logger:    logger,
		metrics:   smpquery.NewMetrics(reg),
		httpStats: newHTTPMetrics(reg),
	}
	s.builder = smpquery.NewBuilder(catalog, resolver, smpquery.BuilderConfig{
		Logger:        logger,
		Metrics:       s.metrics,
		ParallelProbe: cfg.Query.ParallelProbe,
	})
	s.dispatcher = smpquery.NewDispatcher(smpquery.DispatcherConfig{
		UserAgent:      cfg.HTTP.UserAgent,
		ModifySettings: cfg.ModifySettings,
		SignatureTrust: trust,
		Logger:         logger,
		Metrics:        s.metrics,
	})

	if rl := cfg.Server.RateLimit; rl.RequestsPerSecond > 0 {
		s.limiter = NewRateLimiter(rl.RequestsPerSecond, rl.Burst, logger)
		logger.Info("rate limiting enabled", "rps", rl.RequestsPerSecond, "burst", rl.Burst)
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux, reg)
	s.handler = mux

	s.httpSrv = &http.Server{
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Handler returns the HTTP handler with all routes
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening on the specified address
func (s *Server) Start(addr string) error {
	s.httpSrv.Addr = addr
	s.logger.Info("starting server", "addr", addr, "tls", s.config.Server.TLS.Enabled)
	if s.limiter != nil {
		ctx, cancel := context.WithCancel(context.Background())
		s.stop = cancel
		go s.cleanupLimiter(ctx)
	}
	if s.config.Server.TLS.Enabled {
		return s.httpSrv.ListenAndServeTLS(
			s.config.Server.TLS.CertFile,
			s.config.Server.TLS.KeyFile,
		)
	}
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.stop != nil {
		s.stop()
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) cleanupLimiter(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.limiter.Cleanup(now.Add(-10 * time.Minute))
		}
	}
}

func (s *Server) registerRoutes(mux *http.ServeMux, reg *prometheus.Registry) {
	mux.HandleFunc("GET /health", s.handleHealth)

	if s.config.Metrics.Metrics.Enabled {
		mux.Handle("GET "+s.config.Metrics.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	base := strings.TrimRight(s.config.Server.BasePath, "/")
	s.route(mux, base+"/smpquery/{registryID}/{participantID}", "smpquery_doctypes", s.handleDocTypes)
	s.route(mux, base+"/smpquery/{registryID}/{participantID}/{docTypeID}", "smpquery_metadata", s.handleServiceMetadata)
	s.route(mux, base+"/businesscard/{registryID}/{participantID}", "businesscard", s.handleBusinessCard)
	s.route(mux, base+"/ppidexistence/{registryID}/{participantID}", "ppidexistence", s.handleExistence)
}

func (s *Server) route(mux *http.ServeMux, pattern, name string, h http.HandlerFunc) {
	var handler http.Handler = h
	if s.limiter != nil {
		handler = s.limiter.Handler(handler)
	}
	mux.Handle("GET "+pattern, s.httpStats.instrument(name, handler))
}

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// request carries the state of one API call
type request struct {
	start      time.Time
	exceptions []error
	hooks      smpquery.Hooks
}

func (s *Server) newRequest() *request {
	req := &request{start: time.Now()}
	req.hooks = smpquery.Hooks{
		OnException: func(err error) { req.exceptions = append(req.exceptions, err) },
		Feedback:    smpquery.LogFeedback(s.logger),
	}
	return req
}

// firstException returns the first failure reported during the request
func (req *request) firstException() error {
	if len(req.exceptions) == 0 {
		return nil
	}
	return req.exceptions[0]
}

func (s *Server) build(w http.ResponseWriter, r *http.Request) (*smpquery.QueryContext, bool) {
	scheme, value := identifier.SplitURI(r.PathValue("participantID"))
	qc, err := s.builder.Build(r.Context(), r.PathValue("registryID"), scheme, value)
	if err != nil {
		s.queryError(w, r, err)
		return nil, false
	}
	return qc, true
}

func (s *Server) handleDocTypes(w http.ResponseWriter, r *http.Request) {
	opts, err := s.queryOptions(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	withCard, err := boolParam(r, "businessCard", s.config.Query.BusinessCard)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	qc, ok := s.build(w, r)
	if !ok {
		return
	}
	req := s.newRequest()
	listing := s.dispatcher.WithHooks(req.hooks).ListDocumentTypes(r.Context(), qc, opts)
	if listing == nil {
		s.emptyResult(w, r, req, "no document types found")
		return
	}

	data, err := json.Marshal(listing)
	if err != nil {
		s.queryError(w, r, err)
		return
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(data, &body); err != nil {
		s.queryError(w, r, err)
		return
	}
	if withCard {
		if card := s.fetcher(req).Fetch(r.Context(), qc); card != nil {
			if body["businessCard"], err = json.Marshal(card); err != nil {
				s.queryError(w, r, err)
				return
			}
		}
	}

	s.logger.Info("document types listed", "queryID", qc.ID(), "registry", qc.Registry().ID,
		"count", listing.Len(), "duration", time.Since(req.start))
	s.cacheable(w)
	jsonResponse(w, body, http.StatusOK)
}

func (s *Server) handleServiceMetadata(w http.ResponseWriter, r *http.Request) {
	opts, err := s.queryOptions(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	qc, ok := s.build(w, r)
	if !ok {
		return
	}
	docType, err := qc.Registry().Family.ParseDocumentType(r.PathValue("docTypeID"))
	if err != nil {
		s.queryError(w, r, fmt.Errorf("%w: %w", smpquery.ErrInvalidIdentifier, err))
		return
	}

	req := s.newRequest()
	result := s.dispatcher.WithHooks(req.hooks).GetServiceMetadata(r.Context(), qc, docType, opts)
	if result == nil {
		s.emptyResult(w, r, req, "no service metadata found")
		return
	}

	s.logger.Info("service metadata retrieved", "queryID", qc.ID(), "registry", qc.Registry().ID,
		"endpoints", len(result.Endpoints), "duration", time.Since(req.start))
	s.cacheable(w)
	jsonResponse(w, result, http.StatusOK)
}

func (s *Server) handleBusinessCard(w http.ResponseWriter, r *http.Request) {
	qc, ok := s.build(w, r)
	if !ok {
		return
	}
	req := s.newRequest()
	card := s.fetcher(req).Fetch(r.Context(), qc)
	if card == nil {
		s.emptyResult(w, r, req, "no business card found")
		return
	}
	s.cacheable(w)
	jsonResponse(w, card, http.StatusOK)
}

// existence is the answer of the registration check
type existence struct {
	ParticipantID       string    `json:"participantID"`
	Registry            string    `json:"sml"`
	SMPHostURI          string    `json:"smpHostURI,omitempty"`
	Exists              bool      `json:"exists"`
	QueryDateTime       time.Time `json:"queryDateTime"`
	QueryDurationMillis int64     `json:"queryDurationMillis"`
}

func (s *Server) handleExistence(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	registryID := r.PathValue("registryID")
	scheme, value := identifier.SplitURI(r.PathValue("participantID"))
	if scheme == "" {
		scheme = identifier.PeppolParticipantScheme
	}

	out := existence{
		ParticipantID: scheme + identifier.Separator + value,
		Registry:      registryID,
		QueryDateTime: start.UTC(),
	}
	qc, err := s.builder.Build(r.Context(), registryID, scheme, value)
	switch {
	case err == nil:
		out.Exists = true
		out.ParticipantID = qc.Participant().URIEncoded()
		out.SMPHostURI = qc.Endpoint()
	case smpquery.Classify(err) != smpquery.KindNotRegistered:
		s.queryError(w, r, err)
		return
	}
	out.QueryDurationMillis = time.Since(start).Milliseconds()

	if !out.Exists {
		s.logger.Warn("participant not registered in DNS", "participant", out.ParticipantID, "registry", registryID)
		jsonResponse(w, out, http.StatusNotFound)
		return
	}
	s.logger.Info("participant registered in DNS", "participant", out.ParticipantID, "registry", qc.Registry().ID,
		"duration", time.Since(start))
	jsonResponse(w, out, http.StatusOK)
}

func (s *Server) fetcher(req *request) *businesscard.Fetcher {
	return businesscard.NewFetcher(businesscard.FetcherConfig{
		UserAgent:      s.config.HTTP.UserAgent,
		ModifySettings: s.config.ModifySettings,
		Hooks:          req.hooks,
		Logger:         s.logger,
		Metrics:        s.metrics,
	})
}

// emptyResult answers a query that returned nothing: the first reported
// failure decides the status, otherwise the resource does not exist.
func (s *Server) emptyResult(w http.ResponseWriter, r *http.Request, req *request, notFound string) {
	if err := req.firstException(); err != nil {
		s.queryError(w, r, err)
		return
	}
	jsonError(w, notFound, http.StatusNotFound)
}

func (s *Server) queryError(w http.ResponseWriter, r *http.Request, err error) {
	kind := smpquery.Classify(err)
	status := statusOf(kind)
	if status >= http.StatusInternalServerError {
		s.logger.Error("query failed", "path", r.URL.Path, "kind", kind.String(), "error", err)
	} else {
		s.logger.Debug("query rejected", "path", r.URL.Path, "kind", kind.String(), "error", err)
	}
	jsonError(w, smpquery.Describe(err, s.config.Debug), status)
}

func statusOf(kind smpquery.Kind) int {
	switch kind {
	case smpquery.KindInvalidIdentifier, smpquery.KindUnknownRegistry:
		return http.StatusBadRequest
	case smpquery.KindNotRegistered:
		return http.StatusNotFound
	case smpquery.KindTransportFailure, smpquery.KindProtocolViolation, smpquery.KindUnparsableDocument:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) cacheable(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(s.config.Server.CacheMaxAge.Seconds())))
}

// queryOptions reads the check switches of a request. The configured
// checks are the defaults.
func (s *Server) queryOptions(r *http.Request) (smpquery.QueryOptions, error) {
	validate, err := boolParam(r, "xmlSchemaValidation", *s.config.Query.XMLSchemaValidation)
	if err != nil {
		return smpquery.QueryOptions{}, err
	}
	verify, err := boolParam(r, "verifySignature", *s.config.Query.VerifySignature)
	if err != nil {
		return smpquery.QueryOptions{}, err
	}
	return smpquery.QueryOptions{ValidateSchema: validate, VerifySignature: verify}, nil
}

func boolParam(r *http.Request, name string, def bool) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.New("query parameter " + name + " must be true or false")
	}
	return b, nil
}

// Helper functions

func jsonResponse(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Cache-Control", "no-store")
	jsonResponse(w, map[string]string{"error": message}, status)
}
