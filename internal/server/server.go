package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yieldland/production-core/internal/database"
	"github.com/yieldland/production-core/internal/handler"
	"github.com/yieldland/production-core/internal/ledger"
	"github.com/yieldland/production-core/internal/logger"
	"github.com/yieldland/production-core/internal/metrics"
	"github.com/yieldland/production-core/internal/mining"
	"github.com/yieldland/production-core/internal/synthesis"
	"github.com/yieldland/production-core/internal/tool"
)

// Info identifies the running build on the version endpoint.
type Info struct {
	Service     string
	Version     string
	Environment string
}

type Server struct {
	httpServer *http.Server
	dbPool     database.Pool
}

// NewServer creates a new Server instance
func NewServer(port int, apiKey string, info Info, dbPool database.Pool, ledgerSvc ledger.Service, tools tool.Registry, synthEngine synthesis.Engine, manager mining.Manager) *Server {
	r := chi.NewRouter()

	// Middleware stack, outermost first
	r.Use(SecurityHeadersMiddleware())
	r.Use(AuthMiddleware(apiKey))
	r.Use(RateLimitMiddleware(newRateLimiter()))
	r.Use(RequestSizeLimitMiddleware(maxRequestBodyBytes))
	r.Use(metrics.Middleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.HandleHealthz())
	r.Get("/readyz", handler.HandleReadyz(dbPool))
	r.Get("/version", handler.HandleVersion(info.Service, info.Version, info.Environment))
	r.Handle("/metrics", promhttp.Handler())

	ledgerHandler := handler.NewLedgerHandler(ledgerSvc)
	toolHandler := handler.NewToolHandler(tools)
	synthHandler := handler.NewSynthesisHandler(synthEngine)
	miningHandler := handler.NewMiningHandler(manager)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/ledger", func(r chi.Router) {
			r.Get("/balance", ledgerHandler.HandleGetBalance)
			r.Get("/balances", ledgerHandler.HandleGetBalances)
		})

		r.Route("/tools", func(r chi.Router) {
			r.Get("/", toolHandler.HandleListTools)
			r.Get("/get", toolHandler.HandleGetTool)
		})

		r.Route("/synthesis", func(r chi.Router) {
			r.Post("/tool", synthHandler.HandleSynthesizeTool)
			r.Post("/brick", synthHandler.HandleSynthesizeBrick)
			r.Get("/recipes", synthHandler.HandleGetRecipes)
		})

		r.Route("/mining", func(r chi.Router) {
			r.Route("/start", func(r chi.Router) {
				r.Post("/self", miningHandler.HandleStartSelf)
				r.Post("/hired-with-tool", miningHandler.HandleStartHiredWithTool)
				r.Post("/hired-without-tool", miningHandler.HandleStartHiredWithoutTool)
			})
			r.Route("/tool", func(r chi.Router) {
				r.Post("/add", miningHandler.HandleAddTool)
				r.Post("/remove", miningHandler.HandleRemoveTool)
			})
			r.Post("/pause", miningHandler.HandlePause)
			r.Post("/resume", miningHandler.HandleResume)
			r.Post("/collect", miningHandler.HandleCollect)
			r.Post("/stop", miningHandler.HandleStop)
			r.Post("/deposit", miningHandler.HandleDepositTools)
			r.Get("/session", miningHandler.HandleGetSession)
			r.Get("/sessions", miningHandler.HandleListSessions)
		})
	})

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		dbPool: dbPool,
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if !rw.written {
		rw.statusCode = statusCode
		rw.written = true
		rw.ResponseWriter.WriteHeader(statusCode)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Health and metrics probes are too chatty to log.
		if strings.HasPrefix(r.URL.Path, "/healthz") ||
			strings.HasPrefix(r.URL.Path, "/readyz") ||
			strings.HasPrefix(r.URL.Path, "/metrics") {
			next.ServeHTTP(w, r)
			return
		}

		requestID := logger.GenerateRequestID()
		ctx := logger.WithRequestID(r.Context(), requestID)
		r = r.WithContext(ctx)

		log := logger.FromContext(ctx)
		log.Info("Request started",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"content_length", r.ContentLength)

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		log.Info("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds())
	})
}

// Start starts the server
func (s *Server) Start() error {
	slog.Default().Info("Server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Stop stops the server gracefully
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
