package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// handleProfileChart renders an interactive scatter (HTML) of a run's profile
// using go-echarts: bandwidth on X, accuracy on Y, with the Pareto frontier
// drawn as a second series.
func (s *Server) handleProfileChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, err := s.runID(r)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to resolve run: %v", err), http.StatusInternalServerError)
		return
	}
	if id == "" {
		http.Error(w, "No runs stored yet", http.StatusNotFound)
		return
	}

	profile, err := s.store.ProfilePoints(id, false)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to retrieve profile: %v", err), http.StatusInternalServerError)
		return
	}
	frontier, err := s.store.ProfilePoints(id, true)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to retrieve frontier: %v", err), http.StatusInternalServerError)
		return
	}

	profileData := make([]opts.ScatterData, 0, len(profile))
	for _, p := range profile {
		profileData = append(profileData, opts.ScatterData{
			Name:  p.Config.Label(),
			Value: []interface{}{s.convertBandwidth(p.BandwidthBPS), p.Accuracy},
		})
	}
	frontierData := make([]opts.ScatterData, 0, len(frontier))
	for _, p := range frontier {
		frontierData = append(frontierData, opts.ScatterData{
			Name:  p.Config.Label(),
			Value: []interface{}{s.convertBandwidth(p.BandwidthBPS), p.Accuracy},
		})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Bandwidth/Accuracy Profile", Theme: "dark", Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Bandwidth/Accuracy Profile", Subtitle: fmt.Sprintf("run=%s points=%d frontier=%d", id, len(profile), len(frontier))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: fmt.Sprintf("Bandwidth (%s)", s.units), NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1, Name: "Accuracy", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("profile", profileData, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
	scatter.AddSeries("frontier", frontierData, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 14}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		http.Error(w, fmt.Sprintf("Failed to render chart: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
