package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/mcdev12/nightskip/go/internal/sleep"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

// StatusProvider reports the coordinator's current state.
type StatusProvider interface {
	Status() sleep.Status
}

// HistoryLister returns recently completed skips, newest first.
type HistoryLister interface {
	Recent(ctx context.Context, limit int) ([]sleep.SkipResult, error)
}

// Handler serves the websocket endpoint, the JSON API and the coordinator
// Connect service.
type Handler struct {
	cm     *ConnectionManager
	svc    *Service
	checks []HealthCheck
}

func NewHandler(cm *ConnectionManager, status StatusProvider) *Handler {
	return &Handler{cm: cm, svc: NewService(status)}
}

// WithHistory enables GET /api/skips and ListSkips.
func (h *Handler) WithHistory(history HistoryLister) *Handler {
	h.svc.history = history
	return h
}

// WithWorlds enables GET /api/worlds and ListWorlds.
func (h *Handler) WithWorlds(worlds WorldLister) *Handler {
	h.svc.worlds = worlds
	return h
}

// WithHealthChecks adds dependency probes to /health.
func (h *Handler) WithHealthChecks(checks ...HealthCheck) *Handler {
	h.checks = append(h.checks, checks...)
	return h
}

// RegisterRoutes registers the gateway routes with mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.handleConnect)
	mux.HandleFunc("GET /api/status", h.handleStatus)
	mux.HandleFunc("GET /api/connections", h.handleConnections)
	if h.svc.history != nil {
		mux.HandleFunc("GET /api/skips", h.handleSkips)
	}
	if h.svc.worlds != nil {
		mux.HandleFunc("GET /api/worlds", h.handleWorlds)
	}
	mux.HandleFunc("GET /health", h.handleHealth)

	path, handler := NewCoordinatorServiceHandler(h.svc)
	mux.Handle(path, handler)
}

// HTTPHandler returns every route wrapped in CORS.
func (h *Handler) HTTPHandler() http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodHead, http.MethodGet, http.MethodPost},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(mux)
}

func (h *Handler) handleConnect(w http.ResponseWriter, r *http.Request) {
	playerID := uuid.Nil
	if raw := r.URL.Query().Get("player"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, "invalid player format", http.StatusBadRequest)
			return
		}
		playerID = id
	}

	// The upgrader has already written an error response on failure.
	if err := h.cm.UpgradeConnection(w, r, playerID); err != nil {
		log.Error().Err(err).Str("player_id", playerID.String()).Msg("failed to upgrade websocket connection")
	}
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.status.Status())
}

func (h *Handler) handleConnections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.cm.Stats())
}

func (h *Handler) handleSkips(w http.ResponseWriter, r *http.Request) {
	var n int
	if raw := r.URL.Query().Get("limit"); raw != "" {
		var err error
		if n, err = strconv.Atoi(raw); err != nil || n < 1 {
			http.Error(w, errInvalidLimit.Error(), http.StatusBadRequest)
			return
		}
	}
	limit, _ := skipLimit(n)

	skips, err := h.svc.recentSkips(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list night skips")
		http.Error(w, "failed to list night skips", http.StatusInternalServerError)
		return
	}
	writeJSON(w, skips)
}

func (h *Handler) handleWorlds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.worlds.States())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
