package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/wcastello/hordegrounds/relay"
	ws "github.com/wcastello/hordegrounds/transport/websocket"
)

// Server routes HTTP traffic: the /ws relay endpoint, read-only ops
// endpoints over the room registry, and the static game client.
type Server struct {
	registry  *relay.Registry
	wsHandler *ws.Handler
	router    *mux.Router
	logger    *zap.Logger
	startedAt time.Time
}

// NewServer creates the HTTP server surface. staticDir is the directory the
// game client bundle is served from; the relay itself has no opinion about
// its contents.
func NewServer(registry *relay.Registry, wsHandler *ws.Handler, staticDir string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		registry:  registry,
		wsHandler: wsHandler,
		router:    mux.NewRouter(),
		logger:    logger,
		startedAt: time.Now(),
	}
	s.setupRoutes(staticDir)
	return s
}

// setupRoutes configures all routes.
func (s *Server) setupRoutes(staticDir string) {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/rooms", s.handleListRooms).Methods("GET")
	api.HandleFunc("/rooms/{code}", s.handleGetRoom).Methods("GET")
	api.HandleFunc("/status", s.handleStatus).Methods("GET")

	// WebSocket relay endpoint
	s.router.Handle("/ws", s.wsHandler)

	// Game client bundle
	s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir)))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms := s.registry.ListRooms()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(rooms),
		"rooms": rooms,
	})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	info, err := s.registry.Describe(code)
	if errors.Is(err, relay.ErrRoomNotFound) {
		respondError(w, http.StatusNotFound, "Room not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"uptime":   time.Since(s.startedAt).Round(time.Second).String(),
		"rooms":    s.registry.Count(),
		"sessions": s.registry.SessionCount(),
	})
}
