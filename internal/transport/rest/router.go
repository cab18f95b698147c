package rest

import (
	"net/http"

	"plantdoc/internal/auth"
	"plantdoc/internal/model"
	"plantdoc/internal/service"
	"plantdoc/internal/transport/rest/handler"
	"plantdoc/internal/transport/rest/middleware"
	"plantdoc/internal/transport/ws"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Container holds all dependencies for the router
type Container struct {
	Auth              *auth.Authenticator
	AssessmentService *service.AssessmentService
	ReportService     *service.ReportService
	WSHub             *ws.Hub
	Logger            *zap.Logger
	CORSOrigins       string
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler()
	assessmentHandler := handler.NewAssessmentHandler(c.AssessmentService)
	reportHandler := handler.NewReportHandler(c.ReportService)
	wsHandler := ws.NewHandler(c.WSHub, c.Auth, c.AssessmentService, logger)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.Auth)

	// CORS middleware (apply first)
	r.Use(corsMiddleware(c.CORSOrigins))
	r.Use(middleware.RequestLogger(logger))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// WebSocket route (token in query param)
	v1.HandleFunc("/ws/assessment", wsHandler.AssessmentWS).Methods("GET")

	authed := v1.NewRoute().Subrouter()
	authed.Use(authMW.Authenticate)

	anyRole := authed.NewRoute().Subrouter()
	anyRole.Use(authMW.Require())
	anyRole.HandleFunc("/auth/me", authHandler.Me).Methods("GET", "OPTIONS")

	// Assessment routes (plant owners; admins may run them too)
	assess := authed.PathPrefix("/assessment").Subrouter()
	assess.Use(authMW.Require(model.RoleUser, model.RoleAdmin))

	assess.HandleFunc("", assessmentHandler.Get).Methods("GET", "OPTIONS")
	assess.HandleFunc("/plants", assessmentHandler.Plants).Methods("GET", "OPTIONS")
	assess.HandleFunc("/plants/{id:[0-9]+}/select", assessmentHandler.SelectPlant).Methods("POST", "OPTIONS")
	assess.HandleFunc("/answer", assessmentHandler.Answer).Methods("POST", "OPTIONS")
	assess.HandleFunc("/continue", assessmentHandler.Continue).Methods("POST", "OPTIONS")
	assess.HandleFunc("/edit/{index:[0-9]+}", assessmentHandler.Edit).Methods("POST", "OPTIONS")
	assess.HandleFunc("/submit", assessmentHandler.Submit).Methods("POST", "OPTIONS")
	assess.HandleFunc("/back", assessmentHandler.Back).Methods("POST", "OPTIONS")
	assess.HandleFunc("/discard/confirm", assessmentHandler.ConfirmDiscard).Methods("POST", "OPTIONS")
	assess.HandleFunc("/discard/cancel", assessmentHandler.CancelDiscard).Methods("POST", "OPTIONS")
	assess.HandleFunc("/restart", assessmentHandler.Restart).Methods("POST", "OPTIONS")
	assess.HandleFunc("/export", assessmentHandler.Export).Methods("POST", "OPTIONS")

	// Report archive and export log
	reports := authed.NewRoute().Subrouter()
	reports.Use(authMW.Require(model.RoleUser, model.RoleAdmin))

	reports.HandleFunc("/reports", reportHandler.List).Methods("GET", "OPTIONS")
	reports.HandleFunc("/reports/{id:[0-9]+}", reportHandler.Delete).Methods("DELETE", "OPTIONS")
	reports.HandleFunc("/exports", reportHandler.Exports).Methods("GET", "OPTIONS")

	return r
}

func corsMiddleware(allowedOrigins string) mux.MiddlewareFunc {
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
