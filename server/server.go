// Package server exposes the pool engine over HTTP: player operations, admin
// operations guarded by a shared secret, read-only views, and Prometheus
// metrics.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/nolossgames/savings-pool-server/config"
	"github.com/nolossgames/savings-pool-server/ledger"
	"github.com/nolossgames/savings-pool-server/pool"
)

type Server struct {
	cfg     *config.Config
	pool    *pool.Pool
	journal *ledger.Journal
	log     zerolog.Logger
	metrics http.Handler
}

// New assembles the HTTP layer around an already-constructed pool and
// attaches the Prometheus sink to it.
func New(cfg *config.Config, p *pool.Pool, journal *ledger.Journal, log zerolog.Logger) *Server {
	reg := prometheus.NewRegistry()
	p.AddSink(NewMetrics(reg))
	return &Server{
		cfg:     cfg,
		pool:    p,
		journal: journal,
		log:     log.With().Str("component", "server").Logger(),
		metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics)

	r.Route("/pool", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/players/{address}", s.handlePlayer)
		r.Post("/join", s.handleJoin)
		r.Post("/deposit", s.handleDeposit)
		r.Post("/early-withdraw", s.handleEarlyWithdraw)
		r.Post("/withdraw", s.handleWithdraw)
		r.Post("/redeem", s.handleRedeem)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Post("/initialize", s.handleInitialize)
		r.Post("/emergency", s.handleEmergency)
		r.Post("/fee-withdraw", s.handleFeeWithdraw)
	})

	return r
}

func (s *Server) Run() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.log.Info().Str("addr", addr).Msg("listening")
	return http.ListenAndServe(addr, s.Router())
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Admin-Secret")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdmin gates the admin routes behind the shared secret. The engine
// still checks the caller address itself; this keeps the secret off the
// per-handler path.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AdminSecret == "" || r.Header.Get("X-Admin-Secret") != s.cfg.AdminSecret {
			writeError(w, http.StatusUnauthorized, "admin secret required", "UNAUTHORIZED")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
