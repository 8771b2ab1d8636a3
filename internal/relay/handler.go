package relay

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const defaultSendBuffer = 64

type HandlerOptions struct {
	// AllowedOrigin is the only Origin accepted when Production is set.
	AllowedOrigin string
	Production    bool
	SendBuffer    int
}

// Handler upgrades HTTP requests to relay connections and serves the
// relay's plain HTTP endpoints.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	buffer   int
	log      *slog.Logger
}

func NewHandler(hub *Hub, opts HandlerOptions, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originPolicy(opts),
		},
		buffer: opts.SendBuffer,
		log:    log.With("component", "relay_handler"),
	}
}

// originPolicy accepts any origin outside production. In production the
// Origin header must match AllowedOrigin; requests without one come from
// non-browser clients and are accepted.
func originPolicy(opts HandlerOptions) func(*http.Request) bool {
	if !opts.Production {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || origin == opts.AllowedOrigin
	}
}

func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.log.Warn("websocket upgrade failed", "error", err, "origin", r.Header.Get("Origin"))
		return
	}

	c := newClient(uuid.NewString(), conn, h.hub, h.buffer, h.log)
	c.start()
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.hub.Stats(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Routes mounts the relay endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws", h.ServeWS)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /stats", h.Stats)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// NewServer wraps mux with the timeouts the relay process uses. Websocket
// connections are hijacked, so the write timeout does not apply to them.
func NewServer(addr string, mux http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
