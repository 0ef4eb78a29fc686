package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tavolo/tavolo/internal/agent"
	"github.com/tavolo/tavolo/internal/api/middleware"
	"github.com/tavolo/tavolo/internal/booking"
	"github.com/tavolo/tavolo/internal/calls"
	"github.com/tavolo/tavolo/internal/config"
	"github.com/tavolo/tavolo/internal/database"
	"github.com/tavolo/tavolo/internal/quality"
)

// Server holds HTTP handler dependencies and the chi router.
type Server struct {
	router *chi.Mux
	cfg    *config.Config
	db     *database.DB

	reservations database.ReservationRepository
	tables       database.DiningTableRepository
	callMetrics  database.CallMetricsRepository
	callQuality  database.CallQualityRepository
	turns        database.ConversationTurnRepository
	sounds       database.SoundRepository
	sysConfig    database.SystemConfigRepository

	booking  *booking.Service
	agent    *agent.Agent
	calls    *calls.Store
	analyzer *quality.Analyzer

	apiLimiter     *middleware.IPRateLimiter
	webhookLimiter *middleware.IPRateLimiter
	registry       *prometheus.Registry
	startTime      time.Time
}

// Deps bundles the non-repository dependencies the server needs.
type Deps struct {
	Booking   *booking.Service
	Agent     *agent.Agent
	Calls     *calls.Store
	Analyzer  *quality.Analyzer
	SysConfig database.SystemConfigRepository
	Collector prometheus.Collector // optional, nil disables /metrics collection
}

// NewServer creates the HTTP handler with all routes mounted.
func NewServer(db *database.DB, cfg *config.Config, deps Deps) *Server {
	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		db:     db,

		reservations: database.NewReservationRepository(db),
		tables:       database.NewDiningTableRepository(db),
		callMetrics:  database.NewCallMetricsRepository(db),
		callQuality:  database.NewCallQualityRepository(db),
		turns:        database.NewConversationTurnRepository(db),
		sounds:       database.NewSoundRepository(db),
		sysConfig:    deps.SysConfig,

		booking:  deps.Booking,
		agent:    deps.Agent,
		calls:    deps.Calls,
		analyzer: deps.Analyzer,

		apiLimiter:     middleware.NewIPRateLimiter(middleware.DefaultRateLimitConfig()),
		webhookLimiter: middleware.NewIPRateLimiter(middleware.WebhookRateLimitConfig()),
		registry:       prometheus.NewRegistry(),
		startTime:      time.Now(),
	}

	if deps.Collector != nil {
		s.registry.MustRegister(deps.Collector)
	}

	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close stops the rate limiter cleanup goroutines.
func (s *Server) Close() {
	s.apiLimiter.Stop()
	s.webhookLimiter.Stop()
}

// routes configures all middleware and mounts all route groups.
func (s *Server) routes() {
	r := s.router

	// Global middleware stack.
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.StructuredLogger)
	r.Use(middleware.Recoverer)

	// Twilio webhook routes. These return TwiML, not JSON, and carry an
	// X-Twilio-Signature instead of an API credential.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(s.webhookLimiter))
		r.Use(middleware.TwilioValidator(s.cfg.TwilioAuthToken, s.cfg.BaseURL, s.cfg.ValidateWebhooks))

		r.Post("/voice", s.handleVoice)
		r.Post("/process-speech", s.handleProcessSpeech)
		r.Post("/call-status", s.handleCallStatus)
	})

	// Audio files Twilio fetches for <Play> verbs.
	r.Get("/static/sounds/{filename}", s.handleServeSound)
	r.Get("/static/sounds/{scope}/{filename}", s.handleServeScopedSound)

	// Prometheus scrape endpoint.
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	// API routes under /api/v1.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(s.apiLimiter))

		r.Get("/health", s.handleHealth)
		r.Get("/stats", s.handleStats)

		r.Route("/reservations", func(r chi.Router) {
			r.Get("/", s.handleListReservations)
			r.Post("/", s.handleCreateReservation)
			r.Get("/availability", s.handleCheckAvailability)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetReservation)
				r.Post("/cancel", s.handleCancelReservation)
			})
		})

		r.Get("/tables", s.handleListTables)

		r.Route("/calls", func(r chi.Router) {
			r.Get("/", s.handleListCalls)
			r.Route("/{callSID}", func(r chi.Router) {
				r.Get("/", s.handleGetCall)
				r.Get("/transcript", s.handleGetTranscript)
				r.Post("/analyze", s.handleAnalyzeCall)
			})
		})

		r.Route("/sounds", func(r chi.Router) {
			r.Get("/", s.handleListSounds)
			r.Post("/", s.handleUploadSound)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSound)
				r.Get("/audio", s.handleSoundAudio)
				r.Delete("/", s.handleDeleteSound)
			})
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", s.handleGetSettings)
			r.Put("/", s.handleUpdateSettings)
		})
	})
}
