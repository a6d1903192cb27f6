package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/simusolve/internal/solver"
)

// ErrRunNotFound is returned when a run directory has no metadata.
var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Source    string             `json:"source"`
	N         int                `json:"n"`
	Timestamp time.Time          `json:"timestamp"`
	Backend   string             `json:"backend"`
	Device    string             `json:"device"`
	Workers   int                `json:"workers"`
	Scrub     bool               `json:"scrub"`
	Strict    bool               `json:"strict"`
	Elapsed   time.Duration      `json:"elapsed_ns"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Run is everything persisted for one solve.
type Run struct {
	Meta     RunMetadata
	Solution []float64
	Trace    []solver.RoundEvent
}

// Export is the JSON document written by ExportJSON.
type Export struct {
	Meta     RunMetadata         `json:"meta"`
	Solution []Value             `json:"solution"`
	Trace    []solver.RoundEvent `json:"trace"`
}

// Value is a float that survives JSON when it is NaN or infinite; those are
// written as the strings "NaN", "+Inf" and "-Inf".
type Value float64

func (v Value) MarshalJSON() ([]byte, error) {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return json.Marshal(strconv.FormatFloat(f, 'g', -1, 64))
	}
	return json.Marshal(f)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*v = Value(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Value(f)
	return nil
}

// Save writes run under a new ID derived from its source and the current
// time and returns that ID.
func (s *Store) Save(run *Run) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", sanitize(run.Meta.Source), now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := run.Meta
	meta.ID = runID
	meta.Timestamp = now
	meta.N = len(run.Solution)
	meta.Metrics = finite(meta.Metrics)

	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if err := writeSolution(filepath.Join(runDir, "solution.csv"), run.Solution); err != nil {
		return "", err
	}
	if err := writeTrace(filepath.Join(runDir, "trace.csv"), run.Trace); err != nil {
		return "", err
	}
	return runID, nil
}

// createFile runs write on a new file at path and reports the first of the
// write, sync and close errors.
func createFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		return errors.Join(err, f.Close())
	}
	if err := f.Sync(); err != nil {
		return errors.Join(err, f.Close())
	}
	return f.Close()
}

func writeJSON(path string, v any) error {
	return createFile(path, func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

func writeCSV(path string, header []string, rows [][]string) error {
	return createFile(path, func(f *os.File) error {
		w := csv.NewWriter(f)
		if err := w.Write(header); err != nil {
			return err
		}
		return w.WriteAll(rows)
	})
}

func writeSolution(path string, x []float64) error {
	rows := make([][]string, len(x))
	for i, v := range x {
		rows[i] = []string{strconv.Itoa(i), strconv.FormatFloat(v, 'g', -1, 64)}
	}
	return writeCSV(path, []string{"index", "value"}, rows)
}

var traceHeader = []string{
	"round", "forked",
	"blocks_before", "rows_before", "cols_before", "boundary_before",
	"blocks_after", "rows_after", "cols_after", "boundary_after",
}

func writeTrace(path string, events []solver.RoundEvent) error {
	rows := make([][]string, len(events))
	for i, ev := range events {
		rows[i] = []string{
			strconv.Itoa(ev.Round), strconv.FormatBool(ev.Forked),
			strconv.Itoa(ev.Before.BlockCount), strconv.Itoa(ev.Before.RowCount),
			strconv.Itoa(ev.Before.ColCount), strconv.Itoa(ev.Before.BoundaryRowCount),
			strconv.Itoa(ev.After.BlockCount), strconv.Itoa(ev.After.RowCount),
			strconv.Itoa(ev.After.ColCount), strconv.Itoa(ev.After.BoundaryRowCount),
		}
	}
	return writeCSV(path, traceHeader, rows)
}

// List returns stored runs, newest first. Directories without readable
// metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, nil
	}
	return records[1:], nil
}

func (s *Store) LoadSolution(runID string) ([]float64, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, "solution.csv"))
	if err != nil {
		return nil, err
	}
	x := make([]float64, 0, len(records))
	for _, record := range records {
		if len(record) < 2 {
			continue
		}
		v, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, fmt.Errorf("storage: solution %s: %w", runID, err)
		}
		x = append(x, v)
	}
	return x, nil
}

func (s *Store) LoadTrace(runID string) ([]solver.RoundEvent, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, "trace.csv"))
	if err != nil {
		return nil, err
	}

	events := make([]solver.RoundEvent, 0, len(records))
	for _, record := range records {
		if len(record) != len(traceHeader) {
			continue
		}
		ints := make([]int, len(record))
		for i, field := range record {
			if i == 1 {
				continue
			}
			v, err := strconv.Atoi(field)
			if err != nil {
				return nil, fmt.Errorf("storage: trace %s: %w", runID, err)
			}
			ints[i] = v
		}
		forked, err := strconv.ParseBool(record[1])
		if err != nil {
			return nil, fmt.Errorf("storage: trace %s: %w", runID, err)
		}
		events = append(events, solver.RoundEvent{
			Round:  ints[0],
			Forked: forked,
			Before: solver.Layout{BlockCount: ints[2], RowCount: ints[3], ColCount: ints[4], BoundaryRowCount: ints[5]},
			After:  solver.Layout{BlockCount: ints[6], RowCount: ints[7], ColCount: ints[8], BoundaryRowCount: ints[9]},
		})
	}
	return events, nil
}

// LoadRun reads back everything Save wrote.
func (s *Store) LoadRun(runID string) (*Run, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	x, err := s.LoadSolution(runID)
	if err != nil {
		return nil, err
	}
	trace, err := s.LoadTrace(runID)
	if err != nil {
		return nil, err
	}
	return &Run{Meta: *meta, Solution: x, Trace: trace}, nil
}

// ExportJSON writes a stored run as one JSON document.
func (s *Store) ExportJSON(runID string, w io.Writer) error {
	run, err := s.LoadRun(runID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	values := make([]Value, len(run.Solution))
	for i, v := range run.Solution {
		values[i] = Value(v)
	}
	return enc.Encode(Export{Meta: run.Meta, Solution: values, Trace: run.Trace})
}

// finite drops metrics JSON cannot carry.
func finite(metrics map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(metrics))
	for k, v := range metrics {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[k] = v
		}
	}
	return out
}

func sanitize(name string) string {
	if name == "" {
		return "run"
	}
	out := []rune(filepath.Base(name))
	for i, r := range out {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
		default:
			out[i] = '_'
		}
	}
	return string(out)
}
