package job

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// JobsDir is where the CLI looks for job files by default
var JobsDir = filepath.Join("input", "jobs")

// FindLatestJob finds the most recent job file in dir
func FindLatestJob(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read jobs directory: %w", err)
	}

	type candidate struct {
		path string
		mod  int64
	}
	var jobs []candidate
	for _, entry := range entries {
		name := strings.ToLower(entry.Name())
		if entry.IsDir() || !(strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		jobs = append(jobs, candidate{filepath.Join(dir, entry.Name()), info.ModTime().UnixNano()})
	}

	if len(jobs) == 0 {
		return "", fmt.Errorf("no job files found in %s", dir)
	}

	// Newest first
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].mod > jobs[j].mod
	})

	return jobs[0].path, nil
}
