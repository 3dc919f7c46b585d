// Package api is the JSON HTTP surface of the booking service.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"localhire/internal/config"
	"localhire/internal/models"
	"localhire/internal/service"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type Services struct {
	Appointments *service.AppointmentService
	Contractors  *service.ContractorService
	Ratings      *service.RatingService
	Signup       *service.SignupService
	// Health reports backing store liveness. Optional.
	Health func(ctx context.Context) error
	// UploadsDir is served under /uploads/ when media is stored on disk.
	UploadsDir string
}

type Server struct {
	cfg    config.APIConfig
	svc    Services
	auth   *Authenticator
	server *http.Server
	logger *zerolog.Logger
}

func NewServer(cfg config.APIConfig, svc Services, logger *zerolog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		svc:    svc,
		auth:   NewAuthenticator(cfg.Auth),
		logger: logger,
	}

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type", requestIDHeader}),
	)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{logger: logger}),
		handlers.PrintRecoveryStack(true),
	)

	var handler http.Handler = s.routes()
	handler = newCallerLimiter(cfg.RateLimit).Wrap(handler)
	handler = cors(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = recovery(handler)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return s
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(metricsMiddleware)
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.svc.UploadsDir != "" {
		router.PathPrefix("/uploads/").Handler(
			http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.svc.UploadsDir)))).Methods(http.MethodGet)
	}

	api := router.PathPrefix("/api/v1").Subrouter()
	anyRole := s.auth.Require()
	client := s.auth.Require(models.RoleClient)
	contractor := s.auth.Require(models.RoleContractor)
	admin := s.auth.Require(models.RoleAdmin)

	api.HandleFunc("/contractors", s.handleListContractors).Methods(http.MethodGet)
	api.HandleFunc("/contractors/{id}", s.handleGetContractor).Methods(http.MethodGet)
	api.HandleFunc("/contractors/{id}/slots", s.handleSlots).Methods(http.MethodGet)
	api.HandleFunc("/contractor-signup", s.handleSignup).Methods(http.MethodPost)

	api.HandleFunc("/appointments", client(s.handleBook)).Methods(http.MethodPost)
	api.HandleFunc("/appointments/status", anyRole(s.handleStatus)).Methods(http.MethodGet)
	api.HandleFunc("/appointments/{id}/cancel",
		s.auth.Require(models.RoleClient, models.RoleContractor, models.RoleAdmin)(s.handleCancel)).Methods(http.MethodPost)
	api.HandleFunc("/appointments/{id}/proof", contractor(s.handleSubmitProof)).Methods(http.MethodPost)
	api.HandleFunc("/appointments/{id}/approval", admin(s.handleApproval)).Methods(http.MethodPost)
	api.HandleFunc("/appointments/{id}/mark-rated", client(s.handleMarkRated)).Methods(http.MethodPost)
	api.HandleFunc("/appointments/{id}/rating", client(s.handleSubmitRating)).Methods(http.MethodPost)

	api.HandleFunc("/ratings/{contractorId}", s.handleGetRating).Methods(http.MethodGet)
	api.HandleFunc("/ratings/{contractorId}", admin(s.handleSetRating)).Methods(http.MethodPut)

	api.HandleFunc("/user/appointments", client(s.handleClientAppointments)).Methods(http.MethodGet)
	api.HandleFunc("/contractor/appointments", contractor(s.handleContractorAppointments)).Methods(http.MethodGet)
	api.HandleFunc("/contractor/dashboard", contractor(s.handleContractorDashboard)).Methods(http.MethodGet)

	api.HandleFunc("/admin/appointments", admin(s.handleAdminAppointments)).Methods(http.MethodGet)
	api.HandleFunc("/admin/appointments/export", admin(s.handleExport)).Methods(http.MethodGet)
	api.HandleFunc("/admin/pending-approvals", admin(s.handlePendingApprovals)).Methods(http.MethodGet)
	api.HandleFunc("/admin/dashboard", admin(s.handleAdminDashboard)).Methods(http.MethodGet)
	api.HandleFunc("/admin/contractors", admin(s.handleAddContractor)).Methods(http.MethodPost)
	api.HandleFunc("/admin/contractors/{id}/availability", admin(s.handleToggleAvailability)).Methods(http.MethodPost)

	jsonFallbacks(router)
	jsonFallbacks(api)
	return router
}

// jsonFallbacks sets JSON 404/405 handlers. Subrouters need their own: a
// method mismatch inside one is reported to the parent as a plain miss.
func jsonFallbacks(r *mux.Router) {
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeFail(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeFail(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.svc.Health != nil {
		if err := s.svc.Health(r.Context()); err != nil {
			s.logger.Error().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, envelope{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, envelope{"status": "ok"})
}
