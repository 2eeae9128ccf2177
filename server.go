package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"nutrition-target-api/auth"
	"nutrition-target-api/planclient"
	"nutrition-target-api/session"
)

const (
	// maxLoggedBody caps how much of a request body is written to debug logs.
	maxLoggedBody = 2048
	maxBodyBytes  = 1 << 20
	maxBatchItems = 500
)

// PlanBackend is satisfied by *planclient.Client.
type PlanBackend interface {
	GeneratePlan(ctx context.Context, req planclient.PlanRequest) (*planclient.PlanResponse, error)
	SwapMeal(ctx context.Context, req planclient.SwapRequest) (*planclient.SwapResponse, error)
}

type Server struct {
	logger         *zap.Logger
	store          session.Store
	verifier       *auth.Verifier
	plans          PlanBackend
	allowedOrigins []string
	batchWorkers   int
}

type ServerOptions struct {
	Logger         *zap.Logger
	Store          session.Store
	Verifier       *auth.Verifier
	Plans          PlanBackend
	AllowedOrigins []string
	BatchWorkers   int
}

func NewServer(opts ServerOptions) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.BatchWorkers <= 0 {
		opts.BatchWorkers = 1
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{
		logger:         opts.Logger,
		store:          opts.Store,
		verifier:       opts.Verifier,
		plans:          opts.Plans,
		allowedOrigins: opts.AllowedOrigins,
		batchWorkers:   opts.BatchWorkers,
	}
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.health).Methods("GET")

	api := r.PathPrefix("/api/nutrition").Subrouter()
	api.HandleFunc("/target", s.computeTarget).Methods("POST")
	api.HandleFunc("/macros", s.computeMacros).Methods("POST")
	api.HandleFunc("/profiles", s.listProfiles).Methods("GET")
	api.HandleFunc("/targets/batch", s.computeBatch).Methods("POST")

	r.Handle("/api/session", s.verifier.Middleware(http.HandlerFunc(s.clearSession))).Methods("DELETE")
	sess := r.PathPrefix("/api/session").Subrouter()
	sess.Use(s.verifier.Middleware)
	sess.HandleFunc("/metrics", s.getMetrics).Methods("GET")
	sess.HandleFunc("/metrics", s.putMetrics).Methods("PUT")
	sess.HandleFunc("/target", s.getTarget).Methods("GET")
	sess.HandleFunc("/plan", s.generatePlan).Methods("POST")
	sess.HandleFunc("/plan", s.getPlan).Methods("GET")
	sess.HandleFunc("/plan/swap", s.swapMeal).Methods("POST")

	c := cors.New(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"X-Request-ID"},
	})

	return c.Handler(s.loggingMiddleware(r))
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		log := s.logger.With(zap.String("request_id", requestID))

		if ce := log.Check(zap.DebugLevel, "request"); ce != nil && r.Body != nil {
			body, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
			if len(body) > maxLoggedBody {
				body = body[:maxLoggedBody]
			}
			ce.Write(zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.ByteString("body", body))
		}

		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		log.Info("request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapper.statusCode),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
