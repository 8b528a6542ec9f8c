package measure

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/stream.report/internal/analysis"
	"github.com/banshee-data/stream.report/internal/monitoring"
	"github.com/banshee-data/stream.report/internal/security"
)

// Detection CSV rows carry eight columns:
//
//	frame_num,process_time,label,probability,x,y,w,h
//
// Size CSV rows carry two:
//
//	frame_num,size_bytes
const (
	detectionFields = 8
	sizeFields      = 2
)

// ReadDetections parses a detection CSV stream. Malformed rows are logged
// and skipped; the errors describing them are returned alongside the records
// that parsed.
func ReadDetections(r io.Reader) ([]analysis.DetectionRecord, []error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var recs []analysis.DetectionRecord
	var dropped []error
	line := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			dropped = append(dropped, logMalformed(line, err.Error()))
			continue
		}
		if line == 1 && looksLikeHeader(row) {
			continue
		}
		d, err := parseDetectionRow(row)
		if err != nil {
			dropped = append(dropped, logMalformed(line, err.Error()))
			continue
		}
		recs = append(recs, d)
	}
	return recs, dropped
}

// ReadSizes parses a per-frame size CSV stream with the same skip-and-log
// treatment of malformed rows as ReadDetections.
func ReadSizes(r io.Reader) ([]analysis.SizeRecord, []error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var recs []analysis.SizeRecord
	var dropped []error
	line := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			dropped = append(dropped, logMalformed(line, err.Error()))
			continue
		}
		if line == 1 && looksLikeHeader(row) {
			continue
		}
		if len(row) != sizeFields {
			dropped = append(dropped, logMalformed(line, fmt.Sprintf("want %d fields, got %d", sizeFields, len(row))))
			continue
		}
		frame, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil {
			dropped = append(dropped, logMalformed(line, "bad frame_num: "+err.Error()))
			continue
		}
		size, err := strconv.ParseInt(strings.TrimSpace(row[1]), 10, 64)
		if err != nil || size < 0 {
			dropped = append(dropped, logMalformed(line, "bad size_bytes"))
			continue
		}
		recs = append(recs, analysis.SizeRecord{FrameNum: frame, SizeBytes: size})
	}
	return recs, dropped
}

func parseDetectionRow(row []string) (analysis.DetectionRecord, error) {
	var d analysis.DetectionRecord
	if len(row) != detectionFields {
		return d, fmt.Errorf("want %d fields, got %d", detectionFields, len(row))
	}
	frame, err := strconv.Atoi(strings.TrimSpace(row[0]))
	if err != nil {
		return d, fmt.Errorf("bad frame_num: %w", err)
	}
	d.FrameNum = frame
	if d.ProcTime, err = strconv.ParseFloat(strings.TrimSpace(row[1]), 64); err != nil {
		return d, fmt.Errorf("bad process_time: %w", err)
	}
	d.Label = strings.TrimSpace(row[2])
	if d.Probability, err = strconv.ParseFloat(strings.TrimSpace(row[3]), 64); err != nil {
		return d, fmt.Errorf("bad probability: %w", err)
	}
	coords := []*float64{&d.X, &d.Y, &d.W, &d.H}
	for i, dst := range coords {
		if *dst, err = strconv.ParseFloat(strings.TrimSpace(row[4+i]), 64); err != nil {
			return d, fmt.Errorf("bad coordinate %d: %w", i, err)
		}
	}
	if err := analysis.ValidateDetection(d); err != nil {
		return d, err
	}
	return d, nil
}

func looksLikeHeader(row []string) bool {
	if len(row) == 0 {
		return false
	}
	_, err := strconv.ParseInt(strings.TrimSpace(row[0]), 10, 64)
	return err != nil
}

func logMalformed(line int, detail string) error {
	err := fmt.Errorf("csv line %d: %s", line, detail)
	monitoring.Logf("skipping malformed record: %v", err)
	return err
}

// LoadDirectory reads a measurement directory into a RunInput. Each
// configuration contributes two files named after its label:
//
//	<WIDTH>x<SKIP>x<QUANT>.csv       detection records
//	<WIDTH>x<SKIP>x<QUANT>.size.csv  per-frame sizes
//
// The ground truth configuration is inferred from the labels present.
func LoadDirectory(dir string) (analysis.RunInput, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return analysis.RunInput{}, err
	}

	in := analysis.RunInput{
		Detections: make(map[analysis.Config][]analysis.DetectionRecord),
		Sizes:      make(map[analysis.Config][]analysis.SizeRecord),
	}
	var configs []analysis.Config
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".csv")
		isSize := strings.HasSuffix(name, ".size")
		name = strings.TrimSuffix(name, ".size")
		cfg, err := analysis.ParseConfigLabel(name)
		if err != nil {
			monitoring.Logf("ignoring %s: %v", e.Name(), err)
			continue
		}

		path := filepath.Join(dir, e.Name())
		if err := security.ValidatePathWithinDirectory(path, dir); err != nil {
			monitoring.Logf("ignoring %s: %v", e.Name(), err)
			continue
		}
		f, err := os.Open(path)
		if err != nil {
			return analysis.RunInput{}, err
		}
		if isSize {
			recs, _ := ReadSizes(f)
			in.Sizes[cfg] = recs
		} else {
			recs, _ := ReadDetections(f)
			in.Detections[cfg] = recs
		}
		f.Close()
		configs = append(configs, cfg)
	}

	gt, err := analysis.FindGroundTruth(configs)
	if err != nil {
		return analysis.RunInput{}, err
	}
	in.GroundTruth = gt
	return in, nil
}

// WriteSummaries emits one row per window:
//
//	interval,bandwidth_bps,accuracy,mean_proc_time,partial
//
// Accuracy is left blank for windows with no defined score.
func WriteSummaries(w io.Writer, series []analysis.WindowSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"interval", "bandwidth_bps", "accuracy", "mean_proc_time", "partial"}); err != nil {
		return err
	}
	for _, ws := range series {
		acc := ""
		if ws.F1Defined {
			acc = formatFloat(ws.F1)
		}
		row := []string{
			strconv.Itoa(ws.Interval),
			formatFloat(ws.BandwidthBPS),
			acc,
			formatFloat(ws.MeanProcTime),
			strconv.FormatBool(ws.Partial),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteProfile emits one row per configuration:
//
//	bandwidth_bps,width,skip,quant,accuracy
func WriteProfile(w io.Writer, points []analysis.ProfilePoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"bandwidth_bps", "width", "skip", "quant", "accuracy"}); err != nil {
		return err
	}
	for _, p := range points {
		row := []string{
			formatFloat(p.BandwidthBPS),
			strconv.Itoa(p.Config.Width),
			strconv.Itoa(p.Config.Skip),
			strconv.Itoa(p.Config.Quant),
			formatFloat(p.Accuracy),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTrace emits one row per interval:
//
//	interval,config,bandwidth_bps,accuracy
//
// Missing metrics are written as NaN.
func WriteTrace(w io.Writer, trace []analysis.TraceEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"interval", "config", "bandwidth_bps", "accuracy"}); err != nil {
		return err
	}
	for _, e := range trace {
		row := []string{
			strconv.Itoa(e.Interval),
			e.Config.Label(),
			formatFloat(e.BandwidthBPS),
			formatFloat(e.Accuracy),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
