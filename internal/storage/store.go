package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/san-kum/thermotune/internal/autotune"
	"github.com/san-kum/thermotune/internal/plant"
)

const (
	metadataFile   = "metadata.json"
	validationFile = "validation.csv"
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
	ID         string             `json:"id"`
	Source     string             `json:"source"`
	Timestamp  time.Time          `json:"timestamp"`
	Samples    int                `json:"samples"`
	Iterations int                `json:"iterations"`
	SeedSource string             `json:"seed_source"`
	Params     plant.Params       `json:"params"`
	StdErrors  plant.Params       `json:"std_errors"`
	Gains      autotune.Gains     `json:"gains"`
	Metrics    map[string]float64 `json:"metrics"`
	Settings   autotune.Config    `json:"settings"`
}

// Save writes a fitted run under a fresh directory named after source.
func (s *Store) Save(source string, res *autotune.Result, settings autotune.Config) (string, error) {
	now := time.Now()
	runID, runDir, err := s.mkRunDir(runName(source), now)
	if err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Source:     source,
		Timestamp:  now,
		Samples:    res.Samples,
		Iterations: res.Iterations,
		SeedSource: res.SeedSource,
		Params:     res.Params,
		StdErrors:  res.StdErrors,
		Gains:      res.Gains,
		Metrics: map[string]float64{
			"cost":      res.Cost,
			"rmse":      res.RMSE,
			"max_error": res.MaxError,
			"r_squared": res.RSquared,
			"condition": res.Condition,
			"rank":      float64(res.Rank),
		},
		Settings: settings,
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

	csvFile, err := os.Create(filepath.Join(runDir, validationFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteValidation(csvFile, res.Trace); err != nil {
		return "", err
	}
	return runID, nil
}

func (s *Store) mkRunDir(name string, now time.Time) (string, string, error) {
	base := fmt.Sprintf("%s_%d", name, now.Unix())
	for i := 0; ; i++ {
		runID := base
		if i > 0 {
			runID = fmt.Sprintf("%s-%d", base, i)
		}
		runDir := filepath.Join(s.baseDir, runID)
		err := os.Mkdir(runDir, 0755)
		if err == nil {
			return runID, runDir, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", "", err
		}
	}
}

func runName(source string) string {
	name := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" || name == "_" {
		return "run"
	}
	return name
}

// List returns every readable run, oldest first.
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

	sort.Slice(runs, func(i, j int) bool {
		if runs[i].Timestamp.Equal(runs[j].Timestamp) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadValidation(runID string) (autotune.Trace, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, validationFile))
	if err != nil {
		return autotune.Trace{}, fmt.Errorf("run %s: %w", runID, err)
	}
	defer file.Close()

	return ReadValidation(file)
}
