// Package measure provides typed access to raw per-frame measurement records
// and persistence for analysis outputs. It is a thin I/O layer: all scoring
// and aggregation lives in internal/analysis.
package measure

import (
	"database/sql"
	"fmt"
	"math"
	"sort"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/stream.report/internal/analysis"
)

// Store is a sqlite-backed measurement store.
type Store struct {
	*sql.DB
}

// NewStore opens (creating if necessary) the sqlite database at path. The
// schema is managed by golang-migrate; call MigrateUp before first use.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer; serialise access through one
	// connection instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	return &Store{db}, nil
}

// InsertDetections appends detection records for one configuration.
func (s *Store) InsertDetections(cfg analysis.Config, recs []analysis.DetectionRecord) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO detections (config, frame_num, process_time, label, probability, x, y, w, h)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range recs {
		if _, err := stmt.Exec(cfg.Label(), d.FrameNum, d.ProcTime, d.Label, d.Probability, d.X, d.Y, d.W, d.H); err != nil {
			return fmt.Errorf("insert detection frame %d: %w", d.FrameNum, err)
		}
	}
	return tx.Commit()
}

// InsertSizes appends per-frame size records for one configuration.
func (s *Store) InsertSizes(cfg analysis.Config, recs []analysis.SizeRecord) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO frame_sizes (config, frame_num, size_bytes)
		VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range recs {
		if _, err := stmt.Exec(cfg.Label(), r.FrameNum, r.SizeBytes); err != nil {
			return fmt.Errorf("insert size frame %d: %w", r.FrameNum, err)
		}
	}
	return tx.Commit()
}

// Configs returns every configuration present in either measurement table,
// in tuple order.
func (s *Store) Configs() ([]analysis.Config, error) {
	rows, err := s.Query(`
		SELECT config FROM detections
		UNION
		SELECT config FROM frame_sizes
		ORDER BY config`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []analysis.Config
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, err
		}
		cfg, err := analysis.ParseConfigLabel(label)
		if err != nil {
			return nil, fmt.Errorf("stored config: %w", err)
		}
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortConfigs(configs)
	return configs, nil
}

// Detections returns one configuration's detection stream in frame order.
func (s *Store) Detections(cfg analysis.Config) ([]analysis.DetectionRecord, error) {
	rows, err := s.Query(`
		SELECT frame_num, process_time, label, probability, x, y, w, h
		FROM detections WHERE config = ? ORDER BY frame_num, rowid`, cfg.Label())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []analysis.DetectionRecord
	for rows.Next() {
		var d analysis.DetectionRecord
		if err := rows.Scan(&d.FrameNum, &d.ProcTime, &d.Label, &d.Probability, &d.X, &d.Y, &d.W, &d.H); err != nil {
			return nil, err
		}
		recs = append(recs, d)
	}
	return recs, rows.Err()
}

// Sizes returns one configuration's size stream in frame order.
func (s *Store) Sizes(cfg analysis.Config) ([]analysis.SizeRecord, error) {
	rows, err := s.Query(`
		SELECT frame_num, size_bytes
		FROM frame_sizes WHERE config = ? ORDER BY frame_num`, cfg.Label())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []analysis.SizeRecord
	for rows.Next() {
		var r analysis.SizeRecord
		if err := rows.Scan(&r.FrameNum, &r.SizeBytes); err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// LoadRunInput materialises every configuration's streams and designates the
// ground truth by naming convention.
func (s *Store) LoadRunInput() (analysis.RunInput, error) {
	configs, err := s.Configs()
	if err != nil {
		return analysis.RunInput{}, err
	}
	gt, err := analysis.FindGroundTruth(configs)
	if err != nil {
		return analysis.RunInput{}, err
	}

	in := analysis.RunInput{
		GroundTruth: gt,
		Detections:  make(map[analysis.Config][]analysis.DetectionRecord, len(configs)),
		Sizes:       make(map[analysis.Config][]analysis.SizeRecord, len(configs)),
	}
	for _, cfg := range configs {
		dets, err := s.Detections(cfg)
		if err != nil {
			return analysis.RunInput{}, err
		}
		if len(dets) > 0 {
			in.Detections[cfg] = dets
		}
		sizes, err := s.Sizes(cfg)
		if err != nil {
			return analysis.RunInput{}, err
		}
		if len(sizes) > 0 {
			in.Sizes[cfg] = sizes
		}
	}
	return in, nil
}

// SaveRun persists a run's summaries, profile, frontier membership and
// diagnostics.
func (s *Store) SaveRun(res *analysis.RunResult) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO runs (run_id, ground_truth) VALUES (?, ?)`,
		res.RunID, res.GroundTruth.Label()); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	wsStmt, err := tx.Prepare(`
		INSERT INTO window_summaries (run_id, config, interval, bandwidth_bps, f1, f1_defined, mean_proc_time, partial)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer wsStmt.Close()
	for cfg, series := range res.Summaries {
		for _, ws := range series {
			if _, err := wsStmt.Exec(res.RunID, cfg.Label(), ws.Interval, ws.BandwidthBPS,
				ws.F1, boolInt(ws.F1Defined), nanToNull(ws.MeanProcTime), boolInt(ws.Partial)); err != nil {
				return fmt.Errorf("insert summary %s/%d: %w", cfg, ws.Interval, err)
			}
		}
	}

	onFrontier := make(map[analysis.Config]bool, len(res.Frontier))
	for _, p := range res.Frontier {
		onFrontier[p.Config] = true
	}
	ppStmt, err := tx.Prepare(`
		INSERT INTO profile_points (run_id, config, bandwidth_bps, accuracy, on_frontier)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer ppStmt.Close()
	for _, p := range res.Profile {
		if _, err := ppStmt.Exec(res.RunID, p.Config.Label(), p.BandwidthBPS, p.Accuracy,
			boolInt(onFrontier[p.Config])); err != nil {
			return fmt.Errorf("insert profile point %s: %w", p.Config, err)
		}
	}

	for _, d := range res.Diagnostics {
		if _, err := tx.Exec(`INSERT INTO run_diagnostics (run_id, config, reason) VALUES (?, ?, ?)`,
			res.RunID, d.Config.Label(), d.Reason); err != nil {
			return fmt.Errorf("insert diagnostic: %w", err)
		}
	}

	return tx.Commit()
}

// SaveDecisions persists the decision sequence for a run.
func (s *Store) SaveDecisions(runID string, decisions []analysis.Decision) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, d := range decisions {
		if _, err := tx.Exec(`
			INSERT INTO decisions (run_id, interval, config, metric, metric_value)
			VALUES (?, ?, ?, ?, ?)`,
			runID, d.Interval, d.Config.Label(), d.Metric, d.MetricValue); err != nil {
			return fmt.Errorf("insert decision at interval %d: %w", d.Interval, err)
		}
	}
	return tx.Commit()
}

// LatestRunID returns the most recently saved run, or "" when none exists.
func (s *Store) LatestRunID() (string, error) {
	var id string
	err := s.QueryRow(`SELECT run_id FROM runs ORDER BY created_at DESC, rowid DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return id, err
}

// Summaries returns one configuration's stored summary series for a run, in
// interval order.
func (s *Store) Summaries(runID string, cfg analysis.Config) ([]analysis.WindowSummary, error) {
	rows, err := s.Query(`
		SELECT interval, bandwidth_bps, f1, f1_defined, mean_proc_time, partial
		FROM window_summaries WHERE run_id = ? AND config = ? ORDER BY interval`,
		runID, cfg.Label())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var series []analysis.WindowSummary
	for rows.Next() {
		var ws analysis.WindowSummary
		var defined, partial int
		var procTime sql.NullFloat64
		if err := rows.Scan(&ws.Interval, &ws.BandwidthBPS, &ws.F1, &defined, &procTime, &partial); err != nil {
			return nil, err
		}
		ws.F1Defined = defined != 0
		ws.Partial = partial != 0
		ws.MeanProcTime = nullToNaN(procTime)
		series = append(series, ws)
	}
	return series, rows.Err()
}

// ProfilePoints returns a run's stored profile, optionally restricted to the
// frontier, ordered by ascending bandwidth.
func (s *Store) ProfilePoints(runID string, frontierOnly bool) ([]analysis.ProfilePoint, error) {
	q := `SELECT config, bandwidth_bps, accuracy FROM profile_points WHERE run_id = ?`
	if frontierOnly {
		q += ` AND on_frontier = 1`
	}
	q += ` ORDER BY bandwidth_bps, accuracy DESC, config`

	rows, err := s.Query(q, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []analysis.ProfilePoint
	for rows.Next() {
		var label string
		var p analysis.ProfilePoint
		if err := rows.Scan(&label, &p.BandwidthBPS, &p.Accuracy); err != nil {
			return nil, err
		}
		if p.Config, err = analysis.ParseConfigLabel(label); err != nil {
			return nil, fmt.Errorf("stored profile point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Decisions returns a run's stored decision sequence in interval order.
func (s *Store) Decisions(runID string) ([]analysis.Decision, error) {
	rows, err := s.Query(`
		SELECT interval, config, metric, metric_value
		FROM decisions WHERE run_id = ? ORDER BY interval`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decisions []analysis.Decision
	for rows.Next() {
		var label string
		var d analysis.Decision
		if err := rows.Scan(&d.Interval, &label, &d.Metric, &d.MetricValue); err != nil {
			return nil, err
		}
		if d.Config, err = analysis.ParseConfigLabel(label); err != nil {
			return nil, fmt.Errorf("stored decision: %w", err)
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}

// Diagnostics returns a run's dropped-data report.
func (s *Store) Diagnostics(runID string) ([]analysis.Diagnostic, error) {
	rows, err := s.Query(`
		SELECT config, reason FROM run_diagnostics WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var diags []analysis.Diagnostic
	for rows.Next() {
		var label, reason string
		if err := rows.Scan(&label, &reason); err != nil {
			return nil, err
		}
		cfg, err := analysis.ParseConfigLabel(label)
		if err != nil {
			return nil, fmt.Errorf("stored diagnostic: %w", err)
		}
		diags = append(diags, analysis.Diagnostic{Config: cfg, Reason: reason})
	}
	return diags, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// sqlite has no NaN literal; missing means are stored as NULL.
func nanToNull(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func nullToNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func sortConfigs(configs []analysis.Config) {
	sort.Slice(configs, func(i, j int) bool { return configs[i].Less(configs[j]) })
}
