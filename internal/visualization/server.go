package visualization

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nvandessel/mycelium/internal/constants"
	"github.com/nvandessel/mycelium/internal/growth"
	"github.com/nvandessel/mycelium/internal/logging"
	"github.com/nvandessel/mycelium/internal/params"
	"github.com/nvandessel/mycelium/internal/ratelimit"
	"github.com/nvandessel/mycelium/internal/render"
	"github.com/nvandessel/mycelium/internal/store"
)

// Options configures the simulation a Server runs.
type Options struct {
	// Addr is the listen address. Empty means "localhost:0" (OS-assigned port).
	Addr string

	Width          int
	Height         int
	TicksPerSecond int

	Agents int
	Policy growth.Policy
	Params []params.Entry
	Seed   uint64
	Label  string
}

// Deps are the collaborators of a Server. All of them may be nil.
type Deps struct {
	Store    store.RunStore
	Logger   *slog.Logger
	Events   *logging.EventLogger
	Limiters ratelimit.ToolLimiters
	Clock    func() time.Time
}

// CommandRequest is the body of POST /api/params.
type CommandRequest struct {
	Command  string   `json:"command,omitempty"`
	Commands []string `json:"commands,omitempty"`
}

// ParamsResponse is the body returned by /api/params.
type ParamsResponse struct {
	Params   []params.Entry `json:"params"`
	Selected string         `json:"selected"`
	Seed     uint64         `json:"seed"`
	Tick     uint64         `json:"tick"`
}

// Server runs its own simulation and serves it over HTTP: the live page, the
// latest frame as JSON or an image, parameter commands and a websocket
// frame stream.
type Server struct {
	opts     Options
	limiters ratelimit.ToolLimiters
	store    store.RunStore
	logger   *slog.Logger
	events   *logging.EventLogger
	clock    func() time.Time
	upgrader websocket.Upgrader

	// simMu guards the simulation state below.
	simMu   sync.Mutex
	sim     *growth.Simulation
	bounds  growth.Bounds
	frame   growth.Frame
	pending []growth.Command
	start   time.Time
	runID   int64

	httpServer *http.Server
	listener   net.Listener
	mu         sync.Mutex
	addr       string
}

// NewServer creates a server with a freshly seeded simulation.
func NewServer(opts Options, deps Deps) *Server {
	if opts.Width <= 0 {
		opts.Width = constants.DefaultWindowSize
	}
	if opts.Height <= 0 {
		opts.Height = constants.DefaultWindowSize
	}
	if opts.TicksPerSecond <= 0 {
		opts.TicksPerSecond = constants.DefaultTicksPerSecond
	}
	opts.TicksPerSecond = min(opts.TicksPerSecond, constants.MaxTicksPerSecond)
	if opts.Params == nil {
		opts.Params = growth.DefaultParams()
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Limiters == nil {
		deps.Limiters = ratelimit.NewToolLimiters()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	seed := opts.Seed
	if seed == 0 {
		seed = growth.RandomSeed()
	}
	bounds := render.CentredBounds(opts.Width, opts.Height)

	s := &Server{
		opts:     opts,
		limiters: deps.Limiters,
		store:    deps.Store,
		logger:   deps.Logger,
		events:   deps.Events,
		clock:    deps.Clock,
		bounds:   bounds,
		start:    deps.Clock(),
	}
	s.sim = growth.New(growth.Options{
		Agents: opts.Agents,
		Policy: opts.Policy,
		Params: opts.Params,
	}, seed, bounds)
	s.frame = s.sim.Snapshot(0)
	s.startRun()
	s.events.Reseed(seed, opts.Agents)
	return s
}

// Addr returns the address the server is listening on (e.g., "localhost:PORT").
// Returns empty string if the server hasn't started yet.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Frame returns the most recent frame.
func (s *Server) Frame() growth.Frame {
	s.simMu.Lock()
	defer s.simMu.Unlock()
	return s.frame
}

// RunID returns the run record of the current seed, or 0 without a store.
func (s *Server) RunID() int64 {
	s.simMu.Lock()
	defer s.simMu.Unlock()
	return s.runID
}

// Enqueue schedules commands for the next tick.
func (s *Server) Enqueue(cmds ...growth.Command) {
	s.simMu.Lock()
	defer s.simMu.Unlock()
	s.pending = append(s.pending, cmds...)
}

// Step advances the simulation by one tick, applying queued commands, and
// returns the new frame.
func (s *Server) Step() growth.Frame {
	s.simMu.Lock()
	defer s.simMu.Unlock()

	cmds := s.pending
	s.pending = nil
	ticks, retired := s.sim.TickCount(), s.sim.TotalRetired()
	s.frame = s.sim.Tick(growth.TickInput{
		Bounds:   s.bounds,
		Elapsed:  s.clock().Sub(s.start),
		Commands: cmds,
	})

	if s.frame.Reseeded {
		s.finishRun(ticks, retired)
		s.startRun()
		s.events.Reseed(s.frame.Seed, s.frame.Agents)
		s.logger.Info("reseeded", "seed", s.frame.Seed)
	} else {
		s.events.Replace(s.frame.Tick, s.frame.Retired, s.frame.Spawned)
	}
	return s.frame
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("GET /api/frame", s.handleFrame)
	mux.HandleFunc("GET /api/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /api/params", s.handleParams)
	mux.HandleFunc("POST /api/params", s.handleCommand)
	mux.HandleFunc("GET /api/stream", s.handleStream)
	return mux
}

// ListenAndServe starts the HTTP server and the tick loop, and blocks until
// the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := s.opts.Addr
	if addr == "" {
		addr = "localhost:0"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	s.mu.Lock()
	s.listener = ln
	s.addr = ln.Addr().String()
	s.httpServer = &http.Server{Handler: s.Handler()}
	s.mu.Unlock()

	s.logger.Info("snapshot server listening", "addr", s.addr)

	go s.tickLoop(ctx)

	// Graceful shutdown when context is cancelled.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	err = s.httpServer.Serve(ln)
	s.Close()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close finishes the current run record.
func (s *Server) Close() {
	s.simMu.Lock()
	defer s.simMu.Unlock()
	s.finishRun(s.sim.TickCount(), s.sim.TotalRetired())
}

func (s *Server) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second / time.Duration(s.opts.TicksPerSecond))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Step()
		}
	}
}

func (s *Server) transform() render.Transform {
	return render.NewTransform(s.bounds, s.opts.Width, s.opts.Height)
}

// handleIndex serves the live page with the API base URL configured.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	host := r.Host
	if host == "" {
		host = s.Addr()
	}
	html, err := RenderHTML(PageData{
		Frame:      s.Frame(),
		Bounds:     s.bounds,
		Width:      s.opts.Width,
		Height:     s.opts.Height,
		APIBaseURL: "http://" + host,
		StreamURL:  "ws://" + host + "/api/stream",
	})
	if err != nil {
		http.Error(w, "render error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", FormatHTML.ContentType())
	w.Write(html)
}

// handleFrame returns the latest frame as JSON.
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Frame())
}

// handleSnapshot renders the latest frame; ?format=svg|png (default svg).
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	format := FormatSVG
	if q := r.URL.Query().Get("format"); q != "" {
		f, err := ParseFormat(q)
		if err != nil || f == FormatHTML {
			http.Error(w, "unsupported format: "+q, http.StatusBadRequest)
			return
		}
		format = f
	}

	w.Header().Set("Content-Type", format.ContentType())
	if err := Render(w, s.Frame(), s.transform(), format); err != nil {
		s.logger.Error("snapshot render failed", "format", format, "error", err)
	}
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.paramsResponse())
}

// handleCommand queues simulation commands. Reseeds have their own, tighter
// budget.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	names := req.Commands
	if req.Command != "" {
		names = append([]string{req.Command}, names...)
	}
	if len(names) == 0 {
		http.Error(w, "no commands given", http.StatusBadRequest)
		return
	}

	cmds, err := s.admit(names)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errRateLimited) {
			status = http.StatusTooManyRequests
		}
		http.Error(w, err.Error(), status)
		return
	}

	s.Enqueue(cmds...)
	writeJSON(w, http.StatusAccepted, s.paramsResponse())
}

var errRateLimited = errors.New("rate limited")

// admit parses command names and charges them against the rate limiters.
func (s *Server) admit(names []string) ([]growth.Command, error) {
	cmds := make([]growth.Command, 0, len(names))
	for _, name := range names {
		cmd, ok := growth.ParseCommand(name)
		if !ok {
			return nil, fmt.Errorf("unknown command %q", name)
		}
		cmds = append(cmds, cmd)
	}
	for _, cmd := range cmds {
		tool := "api_params"
		if cmd == growth.CommandReseed {
			tool = "api_reseed"
		}
		if err := ratelimit.CheckLimit(s.limiters, tool); err != nil {
			return nil, fmt.Errorf("%w: %v", errRateLimited, err)
		}
	}
	return cmds, nil
}

func (s *Server) paramsResponse() ParamsResponse {
	f := s.Frame()
	return ParamsResponse{Params: f.Params, Selected: f.Selected, Seed: f.Seed, Tick: f.Tick}
}

// handleStream upgrades to a websocket and pushes the latest frame every
// constants.StreamInterval when it changed. Text messages from the client
// are treated as command names.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			cmds, err := s.admit([]string{string(msg)})
			if err != nil {
				s.logger.Debug("stream command rejected", "command", string(msg), "error", err)
				continue
			}
			s.Enqueue(cmds...)
		}
	}()

	ticker := time.NewTicker(constants.StreamInterval)
	defer ticker.Stop()

	var lastTick, lastSeed uint64
	first := true
	for {
		select {
		case <-r.Context().Done():
			return
		case <-done:
			return
		case <-ticker.C:
			f := s.Frame()
			if !first && f.Tick == lastTick && f.Seed == lastSeed {
				continue
			}
			first = false
			lastTick, lastSeed = f.Tick, f.Seed
			conn.SetWriteDeadline(time.Now().Add(time.Second))
			if err := conn.WriteJSON(f); err != nil {
				return
			}
		}
	}
}

func (s *Server) startRun() {
	if s.store == nil {
		return
	}
	id, err := s.store.StartRun(context.Background(), store.Run{
		Seed:   s.sim.Seed(),
		Agents: s.opts.Agents,
		Policy: string(s.sim.Population().Policy()),
		Mode:   store.ModeServe,
		Label:  s.opts.Label,
		Params: s.sim.Params().Entries(),
	})
	if err != nil {
		s.logger.Warn("recording run failed", "error", err)
		s.runID = 0
		return
	}
	s.runID = id
}

func (s *Server) finishRun(ticks uint64, retired int) {
	if s.store == nil || s.runID == 0 {
		return
	}
	if err := s.store.FinishRun(context.Background(), s.runID, ticks, retired); err != nil {
		s.logger.Warn("finishing run failed", "run", s.runID, "error", err)
	}
	s.runID = 0
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
