// Package store persists completed runs to disk: a JSON metadata file
// alongside the run's binary telemetry log, one directory per run keyed
// by a UUID. Adapted from
// _examples/san-kum-dynsim/internal/storage/store.go's CSV-based layout,
// swapping the CSV state dump for the telemetry package's binary log and
// filesystem-timestamp run IDs for real UUIDs.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/rigidkernel/simkernel/internal/config"
	"github.com/rigidkernel/simkernel/internal/dynamo"
	"github.com/rigidkernel/simkernel/internal/telemetry"
)

// Store manages a directory of completed run archives.
type Store struct {
	baseDir string
}

// New returns a Store rooted at baseDir.
func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Init creates the base directory if it does not already exist.
func (s *Store) Init() error {
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return dynamo.WrapError(dynamo.ErrorKindBadInput, err, "cannot create store directory %q", s.baseDir)
	}
	return nil
}

// RunMetadata records everything about a run needed to reproduce or
// inspect it later, without re-parsing the telemetry log.
type RunMetadata struct {
	ID          string         `json:"id"`
	Model       string         `json:"model"`
	Timestamp   time.Time      `json:"timestamp"`
	Config      *config.Config `json:"config"`
	StepsTaken  int            `json:"steps_taken"`
	Rejections  int            `json:"rejections"`
	FinalTime   float64        `json:"final_time"`
	ErrorCount  int            `json:"error_count"`
}

// Save writes a run's metadata and telemetry log to a new directory named
// by a freshly generated UUID, and returns that run ID.
func (s *Store) Save(cfg *config.Config, rec *telemetry.Recorder, result *dynamo.Result) (string, error) {
	runID := uuid.NewString()
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", dynamo.WrapError(dynamo.ErrorKindBadInput, err, "cannot create run directory")
	}

	meta := RunMetadata{
		ID:         runID,
		Model:      cfg.Model,
		Timestamp:  time.Now(),
		Config:     cfg,
		StepsTaken: result.StepsTaken,
		Rejections: result.Rejections,
		ErrorCount: len(result.Errors),
	}
	if n := len(result.Times); n > 0 {
		meta.FinalTime = result.Times[n-1]
	}

	metaPath := filepath.Join(runDir, "metadata.json")
	metaFile, err := os.Create(metaPath)
	if err != nil {
		return "", dynamo.WrapError(dynamo.ErrorKindBadInput, err, "cannot create metadata file")
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", dynamo.WrapError(dynamo.ErrorKindGeneric, err, "cannot encode metadata")
	}

	logPath := filepath.Join(runDir, "telemetry.bin")
	if err := rec.WriteLog(logPath); err != nil {
		return "", err
	}

	return runID, nil
}

// Load reads a run's metadata.
func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, dynamo.WrapError(dynamo.ErrorKindBadInput, err, "cannot read run %q", runID)
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, dynamo.WrapError(dynamo.ErrorKindGeneric, err, "cannot parse metadata for run %q", runID)
	}
	return &meta, nil
}

// LoadLog parses a run's binary telemetry log.
func (s *Store) LoadLog(runID string) (*telemetry.LogData, error) {
	logPath := filepath.Join(s.baseDir, runID, "telemetry.bin")
	return telemetry.ReadLog(logPath)
}

// List returns every run ID present under the base directory, most
// recent metadata timestamp last is NOT guaranteed; callers that need
// chronological order should sort by RunMetadata.Timestamp after Load.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, dynamo.WrapError(dynamo.ErrorKindBadInput, err, "cannot list store directory")
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}
