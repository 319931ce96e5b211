package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/geocoin/internal/game"
	"github.com/talgya/geocoin/internal/world"
)

const (
	maxStreamConns = 4
	streamIdle     = 2 * time.Minute
	writeWait      = 10 * time.Second
)

// streamUpdate is one client message: either an absolute position, as a
// device geolocation watch produces, or a directional step.
type streamUpdate struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Direction string   `json:"direction,omitempty"`
}

type streamView struct {
	Position world.LatLng `json:"position"`
	Caches   []cacheView  `json:"caches"`
	Error    string       `json:"error,omitempty"`
}

func (s *Server) upgrader() websocket.Upgrader {
	allowed := allowedOrigins(s.CORSOrigins)
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed[origin]
		},
	}
}

func (s *Server) acquireStream() bool {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	if s.streamsClosed || s.streamConns >= maxStreamConns {
		return false
	}
	s.streamConns++
	s.streamWG.Add(1)
	return true
}

func (s *Server) releaseStream() {
	s.streamMu.Lock()
	s.streamConns--
	s.streamMu.Unlock()
	s.streamWG.Done()
}

// trackStream registers a live connection for closeStreams. Returns false
// when the server is already shutting down.
func (s *Server) trackStream(conn *websocket.Conn) bool {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	if s.streamsClosed {
		return false
	}
	if s.streams == nil {
		s.streams = make(map[*websocket.Conn]struct{})
	}
	s.streams[conn] = struct{}{}
	return true
}

func (s *Server) untrackStream(conn *websocket.Conn) {
	s.streamMu.Lock()
	delete(s.streams, conn)
	s.streamMu.Unlock()
}

// closeStreams closes every live stream and refuses new ones.
func (s *Server) closeStreams() {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	s.streamsClosed = true
	for conn := range s.streams {
		conn.Close()
	}
	clear(s.streams)
}

// handleStream upgrades to a WebSocket. The server sends the current view,
// then answers every position update with the refreshed view.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if !s.acquireStream() {
		http.Error(w, "too many stream connections", http.StatusServiceUnavailable)
		return
	}
	defer s.releaseStream()

	up := s.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("stream upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()
	if !s.trackStream(conn) {
		return
	}
	defer s.untrackStream(conn)

	slog.Info("stream client connected", "remote", r.RemoteAddr)

	if err := s.sendView(conn, ""); err != nil {
		return
	}

	for {
		conn.SetReadDeadline(time.Now().Add(streamIdle))
		var update streamUpdate
		if err := conn.ReadJSON(&update); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("stream read failed", "remote", r.RemoteAddr, "error", err)
			}
			slog.Info("stream client disconnected", "remote", r.RemoteAddr)
			return
		}

		msg := s.applyUpdate(r, update)
		if err := s.sendView(conn, msg); err != nil {
			return
		}
	}
}

// applyUpdate moves the player. Returns an error message for the client, or
// "" on success.
func (s *Server) applyUpdate(r *http.Request, update streamUpdate) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "server shutting down"
	}

	switch {
	case update.Direction != "":
		dir, err := world.ParseDirection(update.Direction)
		if err != nil {
			return err.Error()
		}
		if err := s.Session.Move(r.Context(), dir); err != nil {
			slog.Error("stream move failed", "error", err)
			return "move failed"
		}
	case update.Latitude != nil && update.Longitude != nil:
		pos := world.LatLng{Lat: *update.Latitude, Lng: *update.Longitude}
		if err := s.Session.MoveTo(r.Context(), pos); err != nil {
			if errors.Is(err, game.ErrInvalidPosition) {
				return err.Error()
			}
			slog.Error("stream position update failed", "error", err)
			return "position update failed"
		}
	default:
		return "expected a direction or a latitude and longitude"
	}
	return ""
}

func (s *Server) sendView(conn *websocket.Conn, msg string) error {
	s.mu.Lock()
	view := streamView{
		Position: s.Session.Position(),
		Caches:   s.visibleCaches(),
		Error:    msg,
	}
	s.mu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(view)
}
