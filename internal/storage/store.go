package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/circuitsim/internal/runner"
)

var (
	ErrNotFound  = errors.New("storage: run not found")
	ErrAmbiguous = errors.New("storage: run id prefix is ambiguous")
)

const (
	metadataFile = "metadata.json"
	outcomesFile = "outcomes.csv"
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

// RunMetadata describes one CLI invocation. Counts that do not apply to the
// stage are left zero.
type RunMetadata struct {
	ID        string    `json:"id"`
	Stage     string    `json:"stage"`
	Timestamp time.Time `json:"timestamp"`
	Config    string    `json:"config,omitempty"`
	Datasets  []string  `json:"datasets"`
	Elapsed   float64   `json:"elapsed_seconds"`

	Generated int `json:"generated"`
	Existing  int `json:"existing"`

	Simulated int `json:"simulated"`
	Completed int `json:"completed"`
	TimedOut  int `json:"timed_out"`
	Failed    int `json:"failed"`
	Canceled  int `json:"canceled"`

	Panels   int `json:"panels"`
	Tables   int `json:"tables"`
	Failures int `json:"decode_failures"`
}

// SetReport copies the simulation counts of r into m.
func (m *RunMetadata) SetReport(r runner.Report) {
	m.Simulated = len(r.Outcomes)
	m.Completed = r.Completed
	m.TimedOut = r.TimedOut
	m.Failed = r.Failed
	m.Canceled = r.Canceled
}

// OutcomeRecord is one row of outcomes.csv.
type OutcomeRecord struct {
	Netlist  string
	Status   string
	Duration time.Duration
	Killed   bool
	Error    string
}

func Records(outcomes []runner.Outcome) []OutcomeRecord {
	recs := make([]OutcomeRecord, len(outcomes))
	for i, o := range outcomes {
		recs[i] = OutcomeRecord{
			Netlist:  o.Job.Netlist,
			Status:   o.Status.String(),
			Duration: o.Duration,
			Killed:   o.Killed,
		}
		if o.Err != nil {
			recs[i].Error = o.Err.Error()
		}
	}
	return recs
}

var outcomeHeader = []string{"netlist", "status", "duration_seconds", "killed", "error"}

// Save assigns meta a new ID and timestamp and writes it with its outcomes.
func (s *Store) Save(meta RunMetadata, outcomes []OutcomeRecord) (string, error) {
	meta.ID = uuid.NewString()
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, outcomesFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write(outcomeHeader); err != nil {
		return "", err
	}
	for _, o := range outcomes {
		row := []string{
			o.Netlist,
			o.Status,
			strconv.FormatFloat(o.Duration.Seconds(), 'f', 3, 64),
			strconv.FormatBool(o.Killed),
			o.Error,
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return meta.ID, nil
}

// List returns every stored run, oldest first. Unreadable entries are
// skipped.
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
		meta, err := s.readMetadata(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

// Resolve expands a unique prefix of a run ID to the full ID.
func (s *Store) Resolve(prefix string) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("%w: empty id", ErrNotFound)
	}
	if _, err := uuid.Parse(prefix); err == nil {
		return prefix, nil
	}
	entries, err := os.ReadDir(s.baseDir)
	if err != nil && !os.IsNotExist(err) {
		return "", err
	}
	var match string
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("%w: %q", ErrAmbiguous, prefix)
		}
		match = e.Name()
	}
	if match == "" {
		return "", fmt.Errorf("%w: %q", ErrNotFound, prefix)
	}
	return match, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	id, err := s.Resolve(runID)
	if err != nil {
		return nil, err
	}
	return s.readMetadata(id)
}

func (s *Store) readMetadata(id string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, id, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadOutcomes(runID string) ([]OutcomeRecord, error) {
	id, err := s.Resolve(runID)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(filepath.Join(s.baseDir, id, outcomesFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(outcomeHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []OutcomeRecord{}, nil
	}

	outcomes := make([]OutcomeRecord, 0, len(records)-1)
	for _, rec := range records[1:] {
		secs, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("storage: bad duration %q: %w", rec[2], err)
		}
		killed, _ := strconv.ParseBool(rec[3])
		outcomes = append(outcomes, OutcomeRecord{
			Netlist:  rec[0],
			Status:   rec[1],
			Duration: time.Duration(secs * float64(time.Second)),
			Killed:   killed,
			Error:    rec[4],
		})
	}
	return outcomes, nil
}
