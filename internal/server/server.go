// Package server exposes the generation service over HTTP.
//
// Routes:
//
//	POST /api/generate   validate a request and hand it to the dispatcher (202)
//	GET  /files/:id.pdf  generated artifacts, served from the storage directory
//	GET  /health         liveness probe, "OK" as text/plain
//	GET  /metrics        Prometheus metrics
package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	certgen "github.com/alnah/go-certgen"
	"github.com/alnah/go-certgen/internal/logging"
	"github.com/alnah/go-certgen/internal/metrics"
	"github.com/alnah/go-certgen/internal/storage"
)

// MaxBodyBytes caps the JSON body of a generation request.
// Inline QR payloads are the largest expected field.
const MaxBodyBytes = 4 << 20

// Request outcomes reported to metrics.
const (
	outcomeAccepted    = "accepted"
	outcomeInvalid     = "invalid"
	outcomeLimited     = "rate_limited"
	outcomeUnavailable = "unavailable"
	outcomeError       = "error"
)

// Submitter accepts validated requests for background processing.
// Implemented by certgen.Dispatcher.
type Submitter interface {
	Submit(req *certgen.Request) error
}

// Server holds the HTTP routes of the service.
type Server struct {
	engine    *gin.Engine
	submitter Submitter
	limiter   *rate.Limiter
	filesDir  string
	logger    *zap.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the access and error logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = logging.OrNop(l) }
}

// WithRateLimit limits POST /api/generate to rps requests per second with
// the given burst. A non-positive rps disables the limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithFilesDir serves generated artifacts from dir under /files.
func WithFilesDir(dir string) Option {
	return func(s *Server) { s.filesDir = dir }
}

// New creates a Server handing accepted requests to submitter.
// Callers set the gin mode before calling New.
func New(submitter Submitter, opts ...Option) *Server {
	s := &Server{
		submitter: submitter,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := gin.New()
	r.Use(requestID(), accessLog(s.logger), recovery(s.logger))

	api := r.Group("/api")
	{
		api.POST("/generate", s.rateLimit(), s.generate)
	}
	if s.filesDir != "" {
		r.Static(storage.FilesRoute, s.filesDir)
	}
	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.engine = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// generate validates the request, submits it and answers 202.
// The outcome of the job is only ever reported through the callback.
func (s *Server) generate(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)

	var req certgen.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		s.reject(c, http.StatusBadRequest, outcomeInvalid, "invalid JSON body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.reject(c, http.StatusBadRequest, outcomeInvalid, err.Error())
		return
	}

	if err := s.submitter.Submit(&req); err != nil {
		if errors.Is(err, certgen.ErrShuttingDown) {
			s.reject(c, http.StatusServiceUnavailable, outcomeUnavailable, err.Error())
			return
		}
		s.logger.Error("submit failed",
			zap.String("request_id", RequestIDFrom(c)),
			zap.String("certificate_id", req.CertificateID),
			zap.Error(err))
		s.reject(c, http.StatusInternalServerError, outcomeError, "could not start generation")
		return
	}

	s.logger.Info("generation accepted",
		zap.String("request_id", RequestIDFrom(c)),
		zap.String("certificate_id", req.CertificateID),
		zap.String("document_type", req.DocumentType().String()))
	metrics.RequestsTotal.WithLabelValues(outcomeAccepted).Inc()

	c.JSON(http.StatusAccepted, gin.H{
		"message":       "Document generation started",
		"certificateId": req.CertificateID,
	})
}

func (s *Server) health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// rateLimit answers 429 once the token bucket is empty.
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter != nil && !s.limiter.Allow() {
			s.reject(c, http.StatusTooManyRequests, outcomeLimited, "rate limit exceeded")
			return
		}
		c.Next()
	}
}

func (s *Server) reject(c *gin.Context, status int, outcome, message string) {
	metrics.RequestsTotal.WithLabelValues(outcome).Inc()
	c.AbortWithStatusJSON(status, gin.H{"message": message})
}
