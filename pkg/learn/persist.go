package learn

import (
	"encoding/json"
	"os"
	"path/filepath"
)

func defaultPendingPath(genomeDir string) string {
	return filepath.Join(genomeDir, "metrics", "pending-evaluations.json")
}

func loadPending(path string) ([]PendingEvaluation, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []PendingEvaluation
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func savePending(path string, pending []PendingEvaluation) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if pending == nil {
		pending = []PendingEvaluation{}
	}
	data, err := json.MarshalIndent(pending, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
