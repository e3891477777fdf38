// Package storage persists discovery runs: metadata and the discovered
// model as JSON, trajectories and loss traces as CSV. The core pipeline
// never writes to disk itself; callers hand results here.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/san-kum/dynid/internal/discover"
	"github.com/san-kum/dynid/internal/dynamo"
	"github.com/san-kum/dynid/internal/metrics"
)

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
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Seed           int64     `json:"seed"`
	NoiseMagnitude float64   `json:"noise_magnitude"`
	Iterations     int       `json:"iterations"`
	InitialLoss    float64   `json:"initial_loss"`
	FinalLoss      float64   `json:"final_loss"`
	Lambda         float64   `json:"lambda"`
	ActiveTerms    int       `json:"active_terms"`
	Equations      []string  `json:"equations"`
}

type modelFile struct {
	Lambda float64           `json:"lambda"`
	RSS    float64           `json:"rss"`
	Terms  [][]modelTermFile `json:"terms"`
}

type modelTermFile struct {
	Index int     `json:"index"`
	Name  string  `json:"name"`
	Coef  float64 `json:"coef"`
}

// Save writes one run directory and returns its ID.
func (s *Store) Save(res *discover.Result, seed int64, noiseMagnitude float64, known dynamo.Params) (string, error) {
	runID := fmt.Sprintf("run_%d", time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	summary := metrics.Summarize(res.Trace)
	meta := RunMetadata{
		ID:             runID,
		Timestamp:      time.Now(),
		Seed:           seed,
		NoiseMagnitude: noiseMagnitude,
		Iterations:     summary.Iterations,
		InitialLoss:    summary.Initial,
		FinalLoss:      summary.Final,
	}
	if res.Model != nil {
		meta.Equations = discover.Equations(res.Model, known)
		meta.Lambda = res.Model.Lambda
		meta.ActiveTerms = res.Model.Fit.Active
	}

	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}

	if res.Model != nil {
		mf := modelFile{Lambda: res.Model.Lambda, RSS: res.Model.RSS}
		for _, dim := range res.Model.Terms {
			var row []modelTermFile
			for _, t := range dim {
				row = append(row, modelTermFile{Index: t.Index, Name: t.Name, Coef: t.Coef})
			}
			mf.Terms = append(mf.Terms, row)
		}
		if err := writeJSON(filepath.Join(runDir, "model.json"), mf); err != nil {
			return "", err
		}
	}

	if len(res.Trace) > 0 {
		if err := writeTraceCSV(filepath.Join(runDir, "trace.csv"), res.Trace); err != nil {
			return "", err
		}
	}

	for name, traj := range map[string]*dynamo.Trajectory{
		"reference.csv":  res.Reference,
		"observed.csv":   res.Observed,
		"fitted.csv":     res.Fitted,
		"validation.csv": res.Validation,
	} {
		if traj == nil {
			continue
		}
		if err := writeTrajectoryCSV(filepath.Join(runDir, name), traj); err != nil {
			return "", err
		}
	}

	return runID, nil
}

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
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadTrace reads a run's loss trace back from disk.
func (s *Store) LoadTrace(runID string) ([]float64, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "trace.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}

	trace := make([]float64, 0, len(records))
	for i, rec := range records {
		if i == 0 || len(rec) < 2 {
			continue // header
		}
		v, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			continue
		}
		trace = append(trace, v)
	}
	return trace, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTraceCSV(path string, trace []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"iteration", "loss"}); err != nil {
		return err
	}
	for i, v := range trace {
		if err := w.Write([]string{strconv.Itoa(i), strconv.FormatFloat(v, 'g', -1, 64)}); err != nil {
			return err
		}
	}
	return nil
}

func writeTrajectoryCSV(path string, traj *dynamo.Trajectory) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"time"}
	for i := 0; i < traj.Dim(); i++ {
		header = append(header, fmt.Sprintf("x%d", i+1))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i := range traj.States {
		row := []string{strconv.FormatFloat(traj.Times[i], 'f', 6, 64)}
		for _, v := range traj.States[i] {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}
