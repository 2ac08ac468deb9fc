package job

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/panel2video/internal/config"
)

// WriteJob writes a job to a YAML file
func WriteJob(j *Job, path string) error {
	data, err := yaml.Marshal(j)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ReadJob reads a job from a YAML file. Config keys missing from the file keep
// their defaults.
func ReadJob(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := config.Default()
	j := Job{Config: &cfg}
	if err := yaml.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse job %s: %w", path, err)
	}
	if j.Config == nil {
		j.Config = &cfg
	}

	return &j, nil
}
