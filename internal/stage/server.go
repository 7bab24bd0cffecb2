// Package stage serves the rendered avatar over HTTP: single frames, pose
// snapshots, a websocket frame stream for viewers and signal injection
// endpoints.
package stage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/normanking/novaavatar/internal/animator"
	"github.com/normanking/novaavatar/internal/bus"
	"github.com/normanking/novaavatar/internal/feed"
	"github.com/normanking/novaavatar/internal/logging"
	"github.com/normanking/novaavatar/internal/render"
	"github.com/normanking/novaavatar/internal/rig"
	"github.com/normanking/novaavatar/internal/signals"
)

const maxBodySize = 1 << 20

// Source provides the frames the stage serves. *animator.Loop implements it.
type Source interface {
	Latest() *animator.Frame
	Stats() animator.Stats
}

type Config struct {
	Addr        string
	ViewerFPS   float64
	SignalRate  float64 // signal posts per second across all callers
	SignalBurst int
}

type Server struct {
	cfg      Config
	src      Source
	dispatch *feed.Dispatcher
	logs     *logging.Logger
	bus      *bus.EventBus
	log      zerolog.Logger

	signals  *rate.Limiter
	upgrader websocket.Upgrader

	mu         sync.Mutex
	viewers    map[string]context.CancelFunc
	closed     bool
	wg         sync.WaitGroup
	httpServer *http.Server
}

// New builds a server. dispatch, logs and eb may be nil; the endpoints that
// need them then answer 503.
func New(cfg Config, src Source, dispatch *feed.Dispatcher, logs *logging.Logger, eb *bus.EventBus, log zerolog.Logger) *Server {
	if cfg.ViewerFPS <= 0 {
		cfg.ViewerFPS = 30
	}
	if cfg.SignalRate <= 0 {
		cfg.SignalRate = 50
	}
	if cfg.SignalBurst <= 0 {
		cfg.SignalBurst = 1
	}
	return &Server{
		cfg:      cfg,
		src:      src,
		dispatch: dispatch,
		logs:     logs,
		bus:      eb,
		log:      log,
		signals:  rate.NewLimiter(rate.Limit(cfg.SignalRate), cfg.SignalBurst),
		viewers:  make(map[string]context.CancelFunc),
	}
}

// Handler returns the routed handler without starting a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /frame.svg", s.handleFrame)
	mux.HandleFunc("GET /pose", s.handlePose)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /logs", s.handleLogs)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("POST /signal/{kind}", s.handleSignal)
	return mux
}

// Start serves on cfg.Addr until ctx is done, then shuts down and closes
// every viewer stream.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("stage listening")

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.closeViewers()
		s.wg.Wait()
		return err
	case <-ctx.Done():
		// Viewers are hijacked connections Shutdown does not track. Closing
		// them first means no stream can join the WaitGroup during Wait.
		s.closeViewers()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.wg.Wait()
		<-errCh
		return err
	}
}

// Viewers returns the number of open frame streams.
func (s *Server) Viewers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.viewers)
}

func (s *Server) closeViewers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for _, cancel := range s.viewers {
		cancel()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":  "ok",
		"viewers": s.Viewers(),
		"frames":  s.src.Stats().Frames,
	}
	if f := s.src.Latest(); f != nil {
		resp["state"] = f.Signals.State.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	f := s.src.Latest()
	if f == nil {
		http.Error(w, "no frame rendered yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Frame-Seq", strconv.FormatUint(f.Seq, 10))
	_, _ = w.Write(f.Render.SVG)
}

// PoseResponse is the body of GET /pose.
type PoseResponse struct {
	Seq      uint64                   `json:"seq"`
	At       time.Time                `json:"at"`
	State    signals.InteractionState `json:"state"`
	Loudness float64                  `json:"loudness"`
	Nova     *signals.NovaSignal      `json:"nova,omitempty"`
	Pose     rig.Pose                 `json:"pose"`
	Skeleton render.Skeleton          `json:"skeleton"`
}

func (s *Server) handlePose(w http.ResponseWriter, r *http.Request) {
	f := s.src.Latest()
	if f == nil {
		http.Error(w, "no frame rendered yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, PoseResponse{
		Seq:      f.Seq,
		At:       f.At,
		State:    f.Signals.State,
		Loudness: f.Signals.Loudness,
		Nova:     f.Signals.Nova,
		Pose:     f.Pose,
		Skeleton: f.Render.Skeleton,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.src.Stats())
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if s.logs == nil {
		http.Error(w, "log history unavailable", http.StatusServiceUnavailable)
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, s.logs.History(limit))
}

// handleSignal injects one feed message. The path names the message type and
// the body carries its fields.
func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	if s.dispatch == nil {
		http.Error(w, "signal injection disabled", http.StatusServiceUnavailable)
		return
	}
	if !s.signals.Allow() {
		w.Header().Set("Retry-After", "1")
		http.Error(w, "too many signals", http.StatusTooManyRequests)
		return
	}

	var msg feed.Message
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}
	msg.Type = r.PathValue("kind")
	if msg.Type == "state" {
		msg.Type = feed.TypeStatus
	}

	if err := s.dispatch.Apply(msg); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, feed.ErrUnknownMessage) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	s.log.Debug().Str("kind", msg.Type).Str("remote", r.RemoteAddr).Msg("signal injected")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		conn.Close()
		return
	}
	s.viewers[id] = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	s.publish(bus.EventTypeViewerJoined, map[string]any{"viewer_id": id, "remote": r.RemoteAddr})
	s.log.Info().Str("viewer_id", id).Msg("viewer joined")

	go func() {
		defer s.wg.Done()
		s.stream(ctx, cancel, conn)

		s.mu.Lock()
		delete(s.viewers, id)
		s.mu.Unlock()
		s.publish(bus.EventTypeViewerLeft, map[string]any{"viewer_id": id})
		s.log.Info().Str("viewer_id", id).Msg("viewer left")
	}()
}

// stream pushes each new frame to one viewer, at most ViewerFPS times a
// second, until the viewer disconnects or ctx ends.
func (s *Server) stream(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn) {
	defer cancel()

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	lim := rate.NewLimiter(rate.Limit(s.cfg.ViewerFPS), 1)
	var last uint64
	for {
		if err := lim.Wait(ctx); err != nil {
			break
		}
		f := s.src.Latest()
		if f == nil || f.Seq == last {
			continue
		}
		last = f.Seq
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, f.Render.SVG); err != nil {
			break
		}
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	conn.Close()
	<-readDone
}

func (s *Server) publish(t bus.EventType, data map[string]any) {
	if s.bus != nil {
		s.bus.Publish(bus.Event{Type: t, Data: data})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
