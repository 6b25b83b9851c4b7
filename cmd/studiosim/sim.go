package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const framesPerSecond = 25

// material is one asset-management record.
type material struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Clip  string `json:"clip"`
}

type cacheItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// studio is an in-memory Ingex backend. Every handler holds mu for the
// whole request.
type studio struct {
	logger  *slog.Logger
	version string
	now     func() time.Time

	mu sync.Mutex

	// vtr transport; position advances in real time while playing
	vtrState    string
	vtrPosition int64
	vtrSince    time.Time

	recording bool
	recStart  time.Time

	replayState  string
	replayOffset int64

	cacheFree  int64
	cacheItems []cacheItem

	materials map[int]material
}

func newStudio(version string, logger *slog.Logger) *studio {
	now := time.Now()
	return &studio{
		logger:      logger,
		version:     version,
		now:         time.Now,
		vtrState:    "STOP",
		vtrSince:    now,
		replayState: "PAUSE",
		recStart:    now,
		cacheFree:   1_500_000_000,
		cacheItems: []cacheItem{
			{ID: "12", Name: "interview_a.mxf", Size: 734_003_200},
			{ID: "15", Name: "interview_b.mxf", Size: 512_000_000},
			{ID: "21", Name: "gv_harbour.mxf", Size: 98_304_000},
		},
		materials: map[int]material{
			1: {ID: 1, Title: "Evening News", Clip: "news_1800"},
			2: {ID: 2, Title: "Weather", Clip: "wx_1855"},
		},
	}
}

// routes returns the router serving every status and command endpoint.
func (s *studio) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, s.logRequests)

	r.Get("/recorder/status.json", s.handleRecorderStatus)
	r.Get("/vtr/status.json", s.handleVTRStatus)
	r.Get("/tape/status.json", s.handleTapeStatus)

	r.Get("/vtr/control/{command}", s.handleVTRControl)
	r.Get("/confreplay/{command}", s.handleReplay)
	r.Post("/tape/cache/deleteitems", s.handleDeleteItems)
	r.Post("/assets/{operation}", s.handleAsset)
	return r
}

func (s *studio) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"uri", r.URL.RequestURI(),
			"status", ww.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// position returns the current VTR position. Callers hold mu.
func (s *studio) position() int64 {
	p := s.vtrPosition
	elapsed := s.now().Sub(s.vtrSince)
	frames := int64(elapsed / (time.Second / framesPerSecond))
	switch s.vtrState {
	case "PLAY":
		p += frames
	case "FF":
		p += 10 * frames
	case "REW":
		p -= 10 * frames
	}
	if p < 0 {
		p = 0
	}
	return p
}

// setVTRState freezes the running position before switching. Callers hold mu.
func (s *studio) setVTRState(state string) {
	s.vtrPosition = s.position()
	s.vtrSince = s.now()
	s.vtrState = state
}

func timecodeOf(frames int64) map[string]any {
	return map[string]any{
		"hour":      (frames / (3600 * framesPerSecond)) % 24,
		"min":       (frames / (60 * framesPerSecond)) % 60,
		"sec":       (frames / framesPerSecond) % 60,
		"frame":     frames % framesPerSecond,
		"dropFrame": false,
	}
}

func (s *studio) handleRecorderStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var duration int64
	if s.recording {
		duration = int64(s.now().Sub(s.recStart) / (time.Second / framesPerSecond))
	}
	doc := map[string]any{
		"version":   s.version,
		"recording": s.recording,
		"duration":  duration,
		"timecode":  timecodeOf(s.position()),
		"cache":     map[string]any{"free": s.cacheFree},
	}
	if _, ok := r.URL.Query()["sources"]; ok {
		doc["sources"] = []map[string]any{
			{"name": "cam1", "signal": true},
			{"name": "cam2", "signal": true},
			{"name": "vtr", "signal": s.vtrState == "PLAY"},
		}
	}
	writeJSON(w, doc)
}

func (s *studio) handleVTRStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos := s.position()
	writeJSON(w, map[string]any{
		"version":  s.version,
		"state":    s.vtrState,
		"position": pos,
		"timecode": timecodeOf(pos),
		"remote":   true,
	})
}

func (s *studio) handleTapeStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := map[string]any{
		"version": s.version,
		"state":   "idle",
	}
	if r.URL.Query().Get("cache") == "true" {
		items := make([]cacheItem, len(s.cacheItems))
		copy(items, s.cacheItems)
		doc["cache"] = map[string]any{
			"free":  s.cacheFree,
			"count": len(items),
			"items": items,
		}
	}
	writeJSON(w, doc)
}

var vtrCommands = map[string]string{
	"play":        "PLAY",
	"stop":        "STOP",
	"pause":       "PAUSE",
	"fastforward": "FF",
	"rewind":      "REW",
}

func (s *studio) handleVTRControl(w http.ResponseWriter, r *http.Request) {
	command := chi.URLParam(r, "command")

	s.mu.Lock()
	defer s.mu.Unlock()

	switch command {
	case "eject":
		s.setVTRState("STOP")
		s.vtrPosition = 0
	case "record":
		s.recording = !s.recording
		s.recStart = s.now()
	default:
		state, ok := vtrCommands[command]
		if !ok {
			http.Error(w, "unknown vtr command", http.StatusNotFound)
			return
		}
		s.setVTRState(state)
	}
	s.logger.Info("vtr command", "command", command, "state", s.vtrState)
	w.WriteHeader(http.StatusOK)
}

func (s *studio) handleReplay(w http.ResponseWriter, r *http.Request) {
	command := chi.URLParam(r, "command")
	q := r.URL.Query()

	s.mu.Lock()
	defer s.mu.Unlock()

	switch command {
	case "play":
		s.replayState = "PLAY"
	case "pause":
		s.replayState = "PAUSE"
	case "seek":
		offset, err := strconv.ParseInt(q.Get("offset"), 10, 64)
		if err != nil {
			http.Error(w, "offset must be an integer", http.StatusBadRequest)
			return
		}
		switch q.Get("whence") {
		case "", "cur":
			s.replayOffset += offset
		case "set":
			s.replayOffset = offset
		default:
			http.Error(w, "whence must be cur or set", http.StatusBadRequest)
			return
		}
		if s.replayOffset < 0 {
			s.replayOffset = 0
		}
	default:
		http.Error(w, "unknown replay command", http.StatusNotFound)
		return
	}
	s.logger.Info("replay command", "command", command, "state", s.replayState, "offset", s.replayOffset)
	w.WriteHeader(http.StatusOK)
}

func (s *studio) handleDeleteItems(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	items := r.PostForm.Get("items")
	if items == "" {
		http.Error(w, "items is required", http.StatusBadRequest)
		return
	}

	doomed := make(map[string]bool)
	for _, id := range strings.Split(items, ",") {
		doomed[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.cacheItems[:0]
	for _, it := range s.cacheItems {
		if doomed[it.ID] {
			s.cacheFree += it.Size
			continue
		}
		kept = append(kept, it)
	}
	s.cacheItems = kept
	s.logger.Info("cache items deleted", "items", items, "remaining", len(kept))
	w.WriteHeader(http.StatusOK)
}

// handleAsset answers with the ok~/err~ envelope. Application failures are
// still HTTP 200.
func (s *studio) handleAsset(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	operation := chi.URLParam(r, "operation")

	var in struct {
		ID    int    `json:"id"`
		Title string `json:"title"`
		Clip  string `json:"clip"`
	}
	if raw := r.PostForm.Get("jsonIn"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &in); err != nil {
			writeEnvelope(w, "err", "Invalid jsonIn: "+err.Error())
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch operation {
	case "list":
		ids := make([]int, 0, len(s.materials))
		for id := range s.materials {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		list := make([]material, 0, len(ids))
		for _, id := range ids {
			list = append(list, s.materials[id])
		}
		writeEnvelopeJSON(w, list)

	case "getmaterial":
		m, ok := s.materials[in.ID]
		if !ok {
			writeEnvelope(w, "err", fmt.Sprintf("No material with id %d", in.ID))
			return
		}
		writeEnvelopeJSON(w, m)

	case "savematerial":
		if in.Title == "" {
			writeEnvelope(w, "err", "Title is required")
			return
		}
		if in.ID == 0 {
			for id := range s.materials {
				if id > in.ID {
					in.ID = id
				}
			}
			in.ID++
		}
		m := material{ID: in.ID, Title: in.Title, Clip: in.Clip}
		s.materials[m.ID] = m
		writeEnvelopeJSON(w, m)

	case "deletematerial":
		if _, ok := s.materials[in.ID]; !ok {
			writeEnvelope(w, "err", fmt.Sprintf("No material with id %d", in.ID))
			return
		}
		delete(s.materials, in.ID)
		writeEnvelope(w, "ok", "")

	default:
		writeEnvelope(w, "err", "Unknown operation "+operation)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeEnvelope(w http.ResponseWriter, kind, payload string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprintf(w, "%s~%s", kind, payload)
}

func writeEnvelopeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		writeEnvelope(w, "err", err.Error())
		return
	}
	writeEnvelope(w, "ok", string(data))
}
