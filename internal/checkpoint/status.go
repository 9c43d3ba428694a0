package checkpoint

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"compilatio/internal/fileutil"
)

// Status is a read-only snapshot of one source's progress file.
type Status struct {
	Source          string
	RunID           string
	Phase           Phase
	TotalDiscovered int
	Completed       int
	Failed          int
	LastUpdated     time.Time
}

// ReadStatus reads a source's progress file without taking the run lock, so
// status displays work while an import runs. A missing file returns nil.
func ReadStatus(dir, sourceName string) (*Status, error) {
	var state progressState
	err := fileutil.ReadJSON(filepath.Join(dir, sourceName+".json"), &state)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	status := &Status{
		Source:          state.Source,
		RunID:           state.RunID,
		Phase:           state.Phase,
		TotalDiscovered: state.TotalDiscovered,
		Completed:       len(state.Completed),
		Failed:          len(state.Failed),
	}
	if state.Source == "" {
		status.Source = sourceName
	}
	if ts, err := time.Parse(time.RFC3339, state.LastUpdated); err == nil {
		status.LastUpdated = ts
	}
	return status, nil
}

// Sources lists every source with a progress file under dir, sorted.
func Sources(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		name = strings.TrimSuffix(name, ".json")
		if strings.HasSuffix(name, ".discovered") {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}
