package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ingex/studiolink/internal/settings"
	"github.com/ingex/studiolink/internal/store"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// This prevents goroutine leaks when clients are slow or disconnected.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second

	// maxSettingsBody bounds POST /api/settings.
	maxSettingsBody = 64 << 10
)

// Commander accepts relayed commands.
//
// Command reports whether the command was sent; false means the channel's
// gate was closed and the command was dropped. An error means the request
// was rejected before reaching the gate.
type Commander interface {
	Command(ctx context.Context, channel, command string, params url.Values) (bool, error)
}

// Server relays the console's last known state and commands over HTTP.
//
// Routes:
//   - GET /api/status: all snapshots as JSON
//   - GET /api/sse: Server-Sent Events stream of changed snapshots
//   - POST /api/command/{channel}/{command}: relay a command, 202 {"sent":bool}
//   - GET /api/settings, POST /api/settings: IngexSettings cookie round trip
//
// The server shuts down gracefully when the context passed to Start is
// cancelled.
type Server struct {
	store      store.Store
	commander  Commander
	port       int
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a new HTTP [Server]. commander may be nil, in which case
// the command route answers 503.
//
// The server is not started until [Server.Start] is called.
func NewServer(st store.Store, commander Commander, port int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:     st,
		commander: commander,
		port:      port,
		logger:    logger,
	}
}

// Handler returns the router serving every route.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/sse", s.handleSSE)
		r.Post("/command/{channel}/{command}", s.handleCommand)
		r.Get("/settings", s.handleGetSettings)
		r.Post("/settings", s.handlePostSettings)
	})
	return r
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts derive from ctx so SSE handlers end on shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	s.logger.Info("relay server listening", "addr", ln.Addr().String())

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// handleStatus returns all current snapshots as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	s.writeJSON(w, http.StatusOK, s.store.GetAll())
}

// handleCommand relays a command to the console. Query parameters and a
// form-encoded body are both passed through as command parameters.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if s.commander == nil {
		s.writeError(w, http.StatusServiceUnavailable, "commands are not available")
		return
	}
	if err := r.ParseForm(); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	channel := chi.URLParam(r, "channel")
	command := chi.URLParam(r, "command")

	sent, err := s.commander.Command(r.Context(), channel, command, r.Form)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Debug("command relayed",
		"channel", channel,
		"command", command,
		"sent", sent,
		"request_id", middleware.GetReqID(r.Context()),
	)
	s.writeJSON(w, http.StatusAccepted, map[string]bool{"sent": sent})
}

// handleGetSettings returns the decoded settings cookie.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, settings.FromRequest(r))
}

// handlePostSettings merges a JSON object of string values into the
// settings cookie and returns the merged set.
func (s *Server) handlePostSettings(w http.ResponseWriter, r *http.Request) {
	var update settings.Values
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSettingsBody))
	if err := dec.Decode(&update); err != nil || update == nil {
		s.writeError(w, http.StatusBadRequest, "body must be a JSON object of string values")
		return
	}

	merged := settings.FromRequest(r).Merge(update)
	http.SetCookie(w, settings.Cookie(merged))
	s.writeJSON(w, http.StatusOK, merged)
}

// handleSSE streams changed snapshots via Server-Sent Events.
//
// The handler uses write deadlines to prevent goroutine leaks when clients are
// slow or disconnected. Without deadlines, a blocked write would prevent
// the handler from detecting context cancellation or channel closure.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// some ResponseWriter implementations cannot set deadlines
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	// initial state, also protected by the write deadline
	for _, snap := range s.store.GetAll() {
		data, err := json.Marshal(snap)
		if err != nil {
			continue
		}
		if err := writeAndFlush(data); err != nil {
			return
		}
	}

	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(snap)
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// fires on client disconnect and on server shutdown (BaseContext)
			return
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, map[string]string{"error": msg})
}
