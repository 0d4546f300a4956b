// Package storage persists ramp run traces for later analysis.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ClassTech/SmoothedMotor/internal/motor"
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
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	StepSize     float64   `json:"step_size"`
	TickInterval string    `json:"tick_interval"`
	Commands     int       `json:"commands"`
}

// Save writes the command trace of a run as metadata.json plus trace.csv
// under a fresh run directory, and returns the run ID.
func (s *Store) Save(name string, stepSize float64, tickInterval time.Duration, history []motor.Command) (string, error) {
	runID := fmt.Sprintf("%s_%d", name, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:           runID,
		Timestamp:    time.Now(),
		StepSize:     stepSize,
		TickInterval: tickInterval.String(),
		Commands:     len(history),
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "trace.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	if err := w.Write([]string{"index", "kind", "duty", "speed"}); err != nil {
		return "", err
	}
	for i, c := range history {
		row := []string{
			strconv.Itoa(i),
			c.Kind.String(),
			strconv.FormatFloat(c.Duty, 'f', 6, 64),
			strconv.FormatFloat(c.Speed(), 'f', 6, 64),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	return runID, nil
}
