package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"

	"github.com/dvloznov/lifeledger/internal/api/middleware"
	"github.com/dvloznov/lifeledger/internal/auth"
	"github.com/dvloznov/lifeledger/internal/logger"
	"github.com/gorilla/websocket"
)

// Source starts a subscription for userID, calling emit with every snapshot.
type Source func(ctx context.Context, userID string, emit func(any)) (func(), error)

// Typed adapts a service Subscribe method to a Source.
func Typed[T any](subscribe func(ctx context.Context, userID string, fn func([]T)) (func(), error)) Source {
	return func(ctx context.Context, userID string, emit func(any)) (func(), error) {
		return subscribe(ctx, userID, func(items []T) {
			if items == nil {
				items = []T{}
			}
			emit(items)
		})
	}
}

// Snapshot is the message sent to clients.
type Snapshot struct {
	Collection string `json:"collection"`
	Items      any    `json:"items"`
}

// Handler upgrades /subscribe/{collection} requests and streams snapshots.
// The user is taken from the request context (set by middleware.Auth).
type Handler struct {
	hub      *Hub
	sources  map[string]Source
	upgrader websocket.Upgrader
}

// NewHandler creates a Handler serving the given collections.
func NewHandler(hub *Hub, sources map[string]Source) *Handler {
	return &Handler{
		hub:     hub,
		sources: sources,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Collections lists the subscribable collection names.
func (h *Handler) Collections() []string {
	names := make([]string, 0, len(h.sources))
	for name := range h.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	collection := r.PathValue("collection")
	source, ok := h.sources[collection]
	if !ok {
		middleware.WriteError(w, http.StatusNotFound, "unknown collection")
		return
	}
	userID := auth.UserID(r.Context())
	if userID == "" {
		middleware.WriteError(w, http.StatusUnauthorized, "missing token")
		return
	}

	log := logger.FromContext(r.Context()).With().Str("collection", collection).Logger()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	c := newClient(conn)
	if !h.hub.register(c) {
		c.close(websocket.CloseGoingAway)
		return
	}
	defer h.hub.unregister(c)

	ctx, cancel := context.WithCancel(logger.WithContext(context.WithoutCancel(r.Context()), log))
	defer cancel()

	stop, err := source(ctx, userID, func(items any) {
		msg, err := json.Marshal(Snapshot{Collection: collection, Items: items})
		if err != nil {
			log.Error().Err(err).Msg("Failed to encode snapshot")
			return
		}
		c.push(msg)
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to subscribe")
		return
	}
	defer stop()

	log.Info().Int("clients", h.hub.Len()).Msg("WebSocket client connected")

	go c.writePump()
	c.readPump()

	log.Info().Msg("WebSocket client disconnected")
}
