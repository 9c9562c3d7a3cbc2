// Package server receives captures from the browser extension and pushes
// change events to running interfaces.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"nhooyr.io/websocket"

	"github.com/nikbrunner/marks/internal/actions"
	"github.com/nikbrunner/marks/internal/assets"
	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/notify"
)

// maxBody caps a capture request; screenshots arrive base64 encoded.
const maxBody = 32 << 20

// Capturer stores a captured page.
type Capturer interface {
	Capture(ctx context.Context, in actions.CaptureInput) (actions.CaptureResult, error)
}

// CaptureRequest is the body the extension posts.
type CaptureRequest struct {
	PageURL     string `json:"pageUrl"`
	Title       string `json:"title"`
	ImageURL    string `json:"imageUrl"`
	IsIncognito bool   `json:"isIncognito"`
}

// CaptureResponse reports the stored bookmark.
type CaptureResponse struct {
	ID          string `json:"id"`
	IsDuplicate bool   `json:"isDuplicate"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server handles capture requests and websocket subscribers.
type Server struct {
	capturer Capturer
	logger   *log.Logger

	// captureMu serializes façade calls.
	captureMu sync.Mutex

	mu      sync.Mutex
	clients map[chan []byte]struct{}
}

// New creates a Server.
func New(capturer Capturer, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Server{
		capturer: capturer,
		logger:   logger,
		clients:  make(map[chan []byte]struct{}),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/bookmark", s.handleCapture)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWS)
	return mux
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	s.logger.Info("server.start", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Clients returns the number of connected subscribers.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Broadcast sends ev to every subscriber. Subscribers that fall behind miss
// the event.
func (s *Server) Broadcast(ev notify.Event) {
	data, err := ev.Encode()
	if err != nil {
		s.logger.Error("ws.encode", "err", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.clients {
		select {
		case ch <- data:
		default:
			s.logger.Warn("ws.dropped", "type", ev.Type)
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	var req CaptureRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json: " + err.Error()})
		return
	}
	image, err := assets.DecodeDataURL(req.ImageURL)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.captureMu.Lock()
	res, err := s.capturer.Capture(r.Context(), actions.CaptureInput{
		PageURL:     req.PageURL,
		Title:       req.Title,
		Image:       image,
		IsIncognito: req.IsIncognito,
	})
	s.captureMu.Unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}

	status := http.StatusCreated
	if res.IsDuplicate {
		status = http.StatusOK
	}
	s.logger.Info("capture", "id", res.Bookmark.ID, "duplicate", res.IsDuplicate, "remote", r.RemoteAddr)
	s.Broadcast(notify.Event{Type: notify.TypeBookmarksChanged, IDs: []string{res.Bookmark.ID}})
	writeJSON(w, status, CaptureResponse{ID: res.Bookmark.ID, IsDuplicate: res.IsDuplicate})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.logger.Error("ws.accept", "err", err)
		return
	}
	defer conn.CloseNow()

	ch := make(chan []byte, 16)
	s.mu.Lock()
	s.clients[ch] = struct{}{}
	s.mu.Unlock()
	s.logger.Info("ws.connected", "remote", r.RemoteAddr)

	defer func() {
		s.mu.Lock()
		delete(s.clients, ch)
		s.mu.Unlock()
		s.logger.Info("ws.disconnected", "remote", r.RemoteAddr)
	}()

	// Subscribers never send; CloseRead notices when they go away.
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-ch:
			wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				s.logger.Warn("ws.write", "err", err)
				return
			}
		}
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrIncognito):
		status = http.StatusForbidden
	case errors.Is(err, model.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrIntegrity):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("capture.failed", "err", err)
	} else {
		s.logger.Warn("capture.rejected", "status", status, "err", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
