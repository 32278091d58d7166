package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/rishi-o2/weather-app/internal/observability"
	"github.com/rishi-o2/weather-app/internal/realtime"
	"github.com/rishi-o2/weather-app/internal/view"
)

// StateResponse is the /api/state payload.
type StateResponse struct {
	view.State
	Series []view.Point `json:"series"`
}

type Server struct {
	ctrl *view.Controller
	hub  *realtime.Hub
}

// NewServer serves ctrl's state. hub may be nil, which disables /ws/state.
func NewServer(ctrl *view.Controller, hub *realtime.Hub) *Server {
	return &Server{ctrl: ctrl, hub: hub}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/state", s.handleState)
}

// NewRouter wires the read-only status API: health, Prometheus metrics, the
// view state snapshot and its websocket stream.
func NewRouter(srv *Server, tracer oteltrace.Tracer, metrics http.Handler, origins []string) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	if tracer != nil {
		r.Use(observability.MetricsAndTracingMiddleware(tracer))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if metrics != nil {
		r.Handle("/metrics", metrics)
	}
	if srv.hub != nil {
		r.Get("/ws/state", srv.hub.ServeHTTP)
	}
	r.Route("/api", srv.RegisterRoutes)
	return r
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StateResponse{
		State:  s.ctrl.State(),
		Series: s.ctrl.ChartSeries(),
	})
}
