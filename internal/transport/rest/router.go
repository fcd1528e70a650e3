package rest

import (
	_ "cfstudy/docs"
	"cfstudy/internal/service"
	"cfstudy/internal/transport/rest/handler"
	"cfstudy/internal/transport/rest/middleware"
	"cfstudy/internal/transport/ws"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggo/swag"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService           *service.AuthService
	RatingService         *service.RatingService
	CounterfactualService *service.CounterfactualService
	ConditionService      *service.ConditionService
	WSHub                 *ws.Hub
	CORSAllowedOrigins    string
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService, c.ConditionService)
	conditionHandler := handler.NewConditionHandler(c.ConditionService)
	cfHandler := handler.NewCounterfactualHandler(c.RatingService, c.CounterfactualService)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(middleware.CORS(c.CORSAllowedOrigins))
	r.Use(middleware.RequestLogger)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/swagger/doc.json", serveAPIDoc).Methods("GET")

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/token", authHandler.Token).Methods("POST", "OPTIONS")

	// WebSocket (public with token in query param)
	v1.HandleFunc("/ws", wsHandler.ParticipantWS).Methods("GET")

	// Participant routes
	participant := v1.NewRoute().Subrouter()
	participant.Use(authMW.RequireParticipant)

	participant.HandleFunc("/me/condition", conditionHandler.Get).Methods("GET", "OPTIONS")
	participant.HandleFunc("/generation/health", cfHandler.Health).Methods("GET", "OPTIONS")

	const cf = "/sessions/{sessionId}/recordings/{recordingId}/counterfactuals"
	participant.HandleFunc(cf, cfHandler.Get).Methods("GET", "OPTIONS")
	participant.HandleFunc(cf+"/generate", cfHandler.Generate).Methods("POST", "OPTIONS")
	participant.HandleFunc(cf+"/ratings/{index}", cfHandler.SetRating).Methods("PUT", "OPTIONS")
	participant.HandleFunc(cf+"/repair", cfHandler.Repair).Methods("POST", "OPTIONS")
	participant.HandleFunc(cf+"/selection", cfHandler.Select).Methods("PUT", "OPTIONS")
	participant.HandleFunc(cf+"/selection", cfHandler.Deselect).Methods("DELETE", "OPTIONS")

	return r
}

func serveAPIDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		http.Error(w, `{"error":"api doc unavailable","code":"INTERNAL"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(doc))
}
