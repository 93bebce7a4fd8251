// Package api serves the latest sensor frame and direction events over HTTP.
package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/tofmotion/internal/config"
	"github.com/banshee-data/tofmotion/internal/httputil"
	"github.com/banshee-data/tofmotion/internal/publish"
	"github.com/banshee-data/tofmotion/internal/tof"
	"github.com/banshee-data/tofmotion/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	state  *State
	tuning *config.TuningConfig
}

func NewServer(state *State, tuning *config.TuningConfig) *Server {
	if tuning == nil {
		tuning = config.DefaultTuningConfig()
	}
	return &Server{
		state:  state,
		tuning: tuning,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/frame/latest", s.showLatestFrame)
	mux.HandleFunc("/api/direction", s.showDirection)
	mux.HandleFunc("/api/events", s.streamEvents)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/api/version", s.showVersion)
	return mux
}

type frameResponse struct {
	Distances   [tof.GridSize][tof.GridSize]float64 `json:"distances"`
	Confidences [tof.GridSize][tof.GridSize]float64 `json:"confidences"`
	FrameCount  uint64                              `json:"frame_count"`
}

func (s *Server) showLatestFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	f, count, ok := s.state.LatestFrame()
	if !ok {
		httputil.NotFound(w, "no frame received yet")
		return
	}
	httputil.WriteJSONOK(w, frameResponse{
		Distances:   f.Distances(),
		Confidences: f.Confidences(),
		FrameCount:  count,
	})
}

type directionResponse struct {
	Emitted  bool                    `json:"emitted"`
	Event    *publish.DirectionEvent `json:"event,omitempty"`
	Symbol   string                  `json:"symbol,omitempty"`
	Dominant *tof.Direction          `json:"dominant,omitempty"`
}

func (s *Server) showDirection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	var resp directionResponse
	if ev, ok := s.state.LastEvent(); ok {
		resp.Emitted = true
		resp.Event = &ev
		resp.Symbol = string(ev.Direction.Symbol())
	}
	if d, ok := s.state.Dominant(); ok {
		resp.Dominant = &d
	}
	httputil.WriteJSONOK(w, resp)
}

func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	events, cancel := s.state.Subscribe()
	defer cancel()

	flusher, ok := httputil.StartEventStream(w)
	if !ok {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := httputil.WriteEvent(w, flusher, "direction", ev); err != nil {
				log.Printf("failed to write direction event: %v", err)
				return
			}
		}
	}
}

type configResponse struct {
	ConfidenceGate    float64 `json:"confidence_gate"`
	DisplayWindow     int     `json:"display_window"`
	JudgeWindow       int     `json:"judge_window"`
	TrendFrames       int     `json:"trend_frames"`
	MinCentroids      int     `json:"min_centroids"`
	MovementThreshold float64 `json:"movement_threshold"`
	MinConsecutive    int     `json:"min_consecutive"`
	HistorySize       int     `json:"history_size"`
	TickInterval      string  `json:"tick_interval"`
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	c := s.tuning
	httputil.WriteJSONOK(w, configResponse{
		ConfidenceGate:    c.GetConfidenceGate(),
		DisplayWindow:     c.GetDisplayWindow(),
		JudgeWindow:       c.GetJudgeWindow(),
		TrendFrames:       c.GetTrendFrames(),
		MinCentroids:      c.GetMinCentroids(),
		MovementThreshold: c.GetMovementThreshold(),
		MinConsecutive:    c.GetMinConsecutive(),
		HistorySize:       c.GetHistorySize(),
		TickInterval:      c.GetTickInterval().String(),
	})
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{
		"version":    version.Version,
		"git_sha":    version.GitSHA,
		"build_time": version.BuildTime,
	})
}
