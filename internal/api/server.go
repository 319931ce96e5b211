// Package api provides the HTTP API for playing a game session.
// GET endpoints observe the session; POST endpoints act as the player.
// Snapshot and hibernation controls require the admin bearer token.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/geocoin/internal/game"
	"github.com/talgya/geocoin/internal/metrics"
	"github.com/talgya/geocoin/internal/world"
)

// Server serves one game session over HTTP.
type Server struct {
	Session     *game.Session
	Metrics     *metrics.Metrics // Optional; /metrics is not served when nil
	Addr        string
	AdminKey    string   // Bearer token for admin endpoints. Empty = admin disabled.
	CORSOrigins []string // Extra allowed origins besides localhost dev servers
	ResetLimit  int      // Resets allowed per client per hour

	// The session is single-threaded; every handler holds mu while using it.
	mu     sync.Mutex
	closed bool // Set by Close; no session calls follow the final save

	streamMu      sync.Mutex
	streams       map[*websocket.Conn]struct{}
	streamConns   int
	streamsClosed bool
	streamWG      sync.WaitGroup
}

// Handler builds the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	limit := s.ResetLimit
	if limit <= 0 {
		limit = 10
	}
	resetLimiter := NewRateLimiter(limit, time.Hour)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/caches", s.handleCaches)
	mux.HandleFunc("GET /api/v1/cache/{i}/{j}", s.handleCacheDetail)
	mux.HandleFunc("POST /api/v1/cache/{i}/{j}/collect", s.handleCollect)
	mux.HandleFunc("POST /api/v1/cache/{i}/{j}/deposit", s.handleDeposit)
	mux.HandleFunc("GET /api/v1/inventory", s.handleInventory)
	mux.HandleFunc("GET /api/v1/trail", s.handleTrail)
	mux.HandleFunc("POST /api/v1/move", s.handleMove)
	mux.HandleFunc("POST /api/v1/position", s.handlePosition)
	mux.HandleFunc("POST /api/v1/reset", RateLimitMiddleware(resetLimiter, s.handleReset))

	mux.HandleFunc("GET /api/v1/stream", s.handleStream)

	mux.HandleFunc("POST /api/v1/snapshot", s.adminOnly(s.handleSnapshot))
	mux.HandleFunc("POST /api/v1/hibernate", s.adminOnly(s.handleHibernate))
	mux.HandleFunc("POST /api/v1/dehibernate", s.adminOnly(s.handleDehibernate))

	if s.Metrics != nil {
		mux.Handle("GET /metrics", s.Metrics.Handler())
	}

	return corsMiddleware(s.CORSOrigins, mux)
}

// ListenAndServe listens on Addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
// It returns only after in-flight requests and stream connections have
// finished, so the caller can follow up with Close.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Shutdown does not track hijacked connections.
	srv.RegisterOnShutdown(s.closeStreams)

	shutdown := make(chan struct{})
	go func() {
		defer close(shutdown)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP shutdown error", "error", err)
		}
	}()

	slog.Info("HTTP API starting", "addr", ln.Addr().String(), "admin_auth", s.AdminKey != "", "session", s.Session.ID())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	<-shutdown
	s.closeStreams()
	s.streamWG.Wait()
	return nil
}

// Close saves the session one last time. Session calls arriving afterwards
// are refused.
func (s *Server) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.Session.Save(ctx)
}

// lockOpen takes mu for a session call, or answers 503 after Close.
func (s *Server) lockOpen(w http.ResponseWriter) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return false
	}
	return true
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Localhost dev servers are always allowed.
func corsMiddleware(origins []string, next http.Handler) http.Handler {
	allowed := allowedOrigins(origins)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func allowedOrigins(extra []string) map[string]bool {
	allowed := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	for _, origin := range extra {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			allowed[origin] = true
		}
	}
	return allowed
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no admin key set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

type cacheView struct {
	I         int          `json:"i"`
	J         int          `json:"j"`
	Center    world.LatLng `json:"center"`
	Populated bool         `json:"populated"`
	Coins     int          `json:"coins"`
}

func (s *Server) viewCache(c *world.Cache) cacheView {
	return cacheView{
		I:         c.Coord.I,
		J:         c.Coord.J,
		Center:    s.Session.Projection().CellCenter(c.Coord),
		Populated: c.Populated(),
		Coins:     c.Len(),
	}
}

func (s *Server) visibleCaches() []cacheView {
	visible := s.Session.VisibleCaches()
	out := make([]cacheView, len(visible))
	for i, c := range visible {
		out[i] = s.viewCache(c)
	}
	return out
}

func coinStrings(coins []world.Coin) []string {
	out := make([]string, len(coins))
	for i, c := range coins {
		out[i] = c.String()
	}
	return out
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hibernated, err := s.Session.HibernatedCount(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"session":    s.Session.ID().String(),
		"position":   s.Session.Position(),
		"cell":       s.Session.Projection().ToGrid(s.Session.Position()),
		"inventory":  len(s.Session.Inventory()),
		"resident":   s.Session.Resident(),
		"coins":      s.Session.ResidentCoins(),
		"visible":    len(s.Session.VisibleCaches()),
		"hibernated": hibernated,
	})
}

func (s *Server) handleCaches(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, s.visibleCaches())
}

// handleCacheDetail returns the popup contents of a cache, minting it on
// first access.
func (s *Server) handleCacheDetail(w http.ResponseWriter, r *http.Request) {
	coord, err := pathCoord(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if !s.lockOpen(w) {
		return
	}
	defer s.mu.Unlock()

	c, err := s.Session.Open(coord)
	if err != nil {
		writeError(w, err)
		return
	}
	sw, ne := s.Session.Projection().CellBounds(coord)
	writeJSON(w, map[string]any{
		"cache":   s.viewCache(c),
		"bounds":  []world.LatLng{sw, ne},
		"visible": s.Session.Viewport().IsVisible(c, s.Session.Position()),
		"stack":   coinStrings(c.Coins()),
	})
}

func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	s.transfer(w, r, s.Session.Collect)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	s.transfer(w, r, s.Session.Deposit)
}

func (s *Server) transfer(w http.ResponseWriter, r *http.Request, op func(context.Context, world.GridCoord) (bool, error)) {
	coord, err := pathCoord(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if !s.lockOpen(w) {
		return
	}
	defer s.mu.Unlock()

	moved, err := op(r.Context(), coord)
	if err != nil {
		writeError(w, err)
		return
	}
	c, err := s.Session.Open(coord)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"moved":     moved,
		"cache":     s.viewCache(c),
		"stack":     coinStrings(c.Coins()),
		"inventory": coinStrings(s.Session.Inventory()),
	})
}

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coins := s.Session.Inventory()
	writeJSON(w, map[string]any{
		"count": len(coins),
		"coins": coins,
		"text":  s.Session.InventoryText(),
	})
}

func (s *Server) handleTrail(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, s.Session.Trail())
}

type moveRequest struct {
	Direction string `json:"direction"`
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	dir, err := world.ParseDirection(req.Direction)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if !s.lockOpen(w) {
		return
	}
	defer s.mu.Unlock()

	if err := s.Session.Move(r.Context(), dir); err != nil {
		writeError(w, err)
		return
	}
	s.writeView(w)
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	var pos world.LatLng
	if err := json.NewDecoder(r.Body).Decode(&pos); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	if !s.lockOpen(w) {
		return
	}
	defer s.mu.Unlock()

	if err := s.Session.MoveTo(r.Context(), pos); err != nil {
		writeError(w, err)
		return
	}
	s.writeView(w)
}

// writeView reports the player position and visible caches. Callers hold mu.
func (s *Server) writeView(w http.ResponseWriter) {
	writeJSON(w, map[string]any{
		"position": s.Session.Position(),
		"caches":   s.visibleCaches(),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Confirm string `json:"confirm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	if !s.lockOpen(w) {
		return
	}
	defer s.mu.Unlock()

	done, err := s.Session.Reset(r.Context(), game.Answer(req.Confirm))
	if err != nil {
		writeError(w, err)
		return
	}
	if !done {
		writeJSONStatus(w, http.StatusConflict, map[string]any{"reset": false, "prompt": game.ResetPrompt})
		return
	}
	if err := s.Session.Generate(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	slog.Info("game reset via API", "remote", r.RemoteAddr)
	writeJSON(w, map[string]any{"reset": true, "position": s.Session.Position()})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if !s.lockOpen(w) {
		return
	}
	defer s.mu.Unlock()

	if err := s.Session.Save(r.Context()); err != nil {
		slog.Error("snapshot save failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"resident": s.Session.Resident(),
		"message":  "snapshot saved",
	})
}

func (s *Server) handleHibernate(w http.ResponseWriter, r *http.Request) {
	if !s.lockOpen(w) {
		return
	}
	defer s.mu.Unlock()

	n, err := s.Session.Hibernate(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"evicted": n, "resident": s.Session.Resident()})
}

func (s *Server) handleDehibernate(w http.ResponseWriter, r *http.Request) {
	if !s.lockOpen(w) {
		return
	}
	defer s.mu.Unlock()

	n, err := s.Session.Dehibernate(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"rehydrated": n, "resident": s.Session.Resident()})
}

func pathCoord(r *http.Request) (world.GridCoord, error) {
	i, err := strconv.Atoi(r.PathValue("i"))
	if err != nil {
		return world.GridCoord{}, fmt.Errorf("invalid i %q", r.PathValue("i"))
	}
	j, err := strconv.Atoi(r.PathValue("j"))
	if err != nil {
		return world.GridCoord{}, fmt.Errorf("invalid j %q", r.PathValue("j"))
	}
	return world.GridCoord{I: i, J: j}, nil
}

// writeError maps session errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrNoCache):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, game.ErrOutOfView):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, game.ErrInvalidPosition):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		slog.Error("request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
