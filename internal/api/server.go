// Package api exposes stored analysis runs over HTTP: configurations,
// window summaries, profiles, Pareto frontiers, decisions and diagnostics,
// plus a parameter-selection endpoint and an interactive profile chart.
package api

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/stream.report/internal/analysis"
	"github.com/banshee-data/stream.report/internal/measure"
	"github.com/banshee-data/stream.report/internal/monitoring"
	"github.com/banshee-data/stream.report/internal/units"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	store *measure.Store
	units string
}

// NewServer wraps a measurement store. bandwidthUnits selects the unit for
// bandwidth values in responses (bps, kbps or mbps).
func NewServer(store *measure.Store, bandwidthUnits string) *Server {
	return &Server{
		store: store,
		units: bandwidthUnits,
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
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/configs", s.listConfigs)
	mux.HandleFunc("/api/summaries", s.listSummaries)
	mux.HandleFunc("/api/profile", s.showProfile)
	mux.HandleFunc("/api/pareto", s.showPareto)
	mux.HandleFunc("/api/params", s.selectParams)
	mux.HandleFunc("/api/decisions", s.listDecisions)
	mux.HandleFunc("/api/diagnostics", s.listDiagnostics)
	mux.HandleFunc("/debug/profile_chart", s.handleProfileChart)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// runID resolves the run parameter, defaulting to the latest stored run.
// An empty return with no error means no runs exist yet.
func (s *Server) runID(r *http.Request) (string, error) {
	if id := r.URL.Query().Get("run"); id != "" {
		return id, nil
	}
	return s.store.LatestRunID()
}

func (s *Server) convertBandwidth(bps float64) float64 {
	return units.ConvertBandwidth(bps, s.units)
}

func (s *Server) listConfigs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	configs, err := s.store.Configs()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve configs: %v", err))
		return
	}

	labels := make([]string, len(configs))
	for i, c := range configs {
		labels[i] = c.Label()
	}
	if err := json.NewEncoder(w).Encode(labels); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write configs")
		return
	}
}

// summaryAPI controls the JSON shape of a window summary. Accuracy is null
// when the window held no scored frames, and mean_proc_time is null when no
// frame carried a processing time.
type summaryAPI struct {
	Interval     int      `json:"interval"`
	Bandwidth    float64  `json:"bandwidth"`
	Accuracy     *float64 `json:"accuracy"`
	MeanProcTime *float64 `json:"mean_proc_time"`
	Partial      bool     `json:"partial"`
}

func (s *Server) summaryToAPI(ws analysis.WindowSummary) summaryAPI {
	out := summaryAPI{
		Interval:  ws.Interval,
		Bandwidth: s.convertBandwidth(ws.BandwidthBPS),
		Partial:   ws.Partial,
	}
	if ws.F1Defined {
		f1 := ws.F1
		out.Accuracy = &f1
	}
	if !math.IsNaN(ws.MeanProcTime) {
		pt := ws.MeanProcTime
		out.MeanProcTime = &pt
	}
	return out
}

func (s *Server) listSummaries(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	cfg, err := analysis.ParseConfigLabel(r.URL.Query().Get("config"))
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid 'config' parameter: %v", err))
		return
	}

	id, err := s.runID(r)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to resolve run: %v", err))
		return
	}

	series, err := s.store.Summaries(id, cfg)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve summaries: %v", err))
		return
	}

	out := make([]summaryAPI, len(series))
	for i, ws := range series {
		out[i] = s.summaryToAPI(ws)
	}
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write summaries")
		return
	}
}

type profilePointAPI struct {
	Config    string  `json:"config"`
	Bandwidth float64 `json:"bandwidth"`
	Accuracy  float64 `json:"accuracy"`
}

func (s *Server) profileToAPI(points []analysis.ProfilePoint) []profilePointAPI {
	out := make([]profilePointAPI, len(points))
	for i, p := range points {
		out[i] = profilePointAPI{
			Config:    p.Config.Label(),
			Bandwidth: s.convertBandwidth(p.BandwidthBPS),
			Accuracy:  p.Accuracy,
		}
	}
	return out
}

func (s *Server) serveProfile(w http.ResponseWriter, r *http.Request, frontierOnly bool) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	id, err := s.runID(r)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to resolve run: %v", err))
		return
	}

	points, err := s.store.ProfilePoints(id, frontierOnly)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve profile: %v", err))
		return
	}

	if err := json.NewEncoder(w).Encode(s.profileToAPI(points)); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write profile")
		return
	}
}

func (s *Server) showProfile(w http.ResponseWriter, r *http.Request) {
	s.serveProfile(w, r, false)
}

func (s *Server) showPareto(w http.ResponseWriter, r *http.Request) {
	s.serveProfile(w, r, true)
}

// selectParams picks an operating point from the stored frontier. Exactly one
// of 'bandwidth' (bits per second budget) or 'accuracy' (minimum score) must
// be given.
func (s *Server) selectParams(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	bwParam := r.URL.Query().Get("bandwidth")
	accParam := r.URL.Query().Get("accuracy")
	if (bwParam == "") == (accParam == "") {
		s.writeJSONError(w, http.StatusBadRequest, "Provide exactly one of 'bandwidth' or 'accuracy'")
		return
	}

	id, err := s.runID(r)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to resolve run: %v", err))
		return
	}

	points, err := s.store.ProfilePoints(id, true)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve frontier: %v", err))
		return
	}
	frontier := analysis.Frontier(points)

	var point analysis.ProfilePoint
	var ok bool
	if bwParam != "" {
		target, err := strconv.ParseFloat(bwParam, 64)
		if err != nil || target <= 0 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'bandwidth' parameter")
			return
		}
		point, ok = frontier.FindByBandwidth(target)
	} else {
		target, err := strconv.ParseFloat(accParam, 64)
		if err != nil || target < 0 || target > 1 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'accuracy' parameter")
			return
		}
		point, ok = frontier.FindByAccuracy(target)
	}
	if !ok {
		s.writeJSONError(w, http.StatusNotFound, "No frontier point satisfies the target")
		return
	}

	out := profilePointAPI{
		Config:    point.Config.Label(),
		Bandwidth: s.convertBandwidth(point.BandwidthBPS),
		Accuracy:  point.Accuracy,
	}
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write selection")
		return
	}
}

type decisionAPI struct {
	Interval    int     `json:"interval"`
	Config      string  `json:"config"`
	Metric      string  `json:"metric"`
	MetricValue float64 `json:"metric_value"`
}

func (s *Server) listDecisions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	id, err := s.runID(r)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to resolve run: %v", err))
		return
	}

	decisions, err := s.store.Decisions(id)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve decisions: %v", err))
		return
	}

	out := make([]decisionAPI, len(decisions))
	for i, d := range decisions {
		out[i] = decisionAPI{
			Interval:    d.Interval,
			Config:      d.Config.Label(),
			Metric:      d.Metric,
			MetricValue: d.MetricValue,
		}
	}
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write decisions")
		return
	}
}

type diagnosticAPI struct {
	Config string `json:"config"`
	Reason string `json:"reason"`
}

func (s *Server) listDiagnostics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	id, err := s.runID(r)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to resolve run: %v", err))
		return
	}

	diags, err := s.store.Diagnostics(id)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve diagnostics: %v", err))
		return
	}

	out := make([]diagnosticAPI, len(diags))
	for i, d := range diags {
		out[i] = diagnosticAPI{Config: d.Config.Label(), Reason: d.Reason}
	}
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write diagnostics")
		return
	}
}
