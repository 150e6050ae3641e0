package utils

import "github.com/tanq16/rangedl/internal/config"

// Job is one download handed to the scheduler.
type Job struct {
	ID         string
	URL        string
	OutputPath string
	Config     config.Config
}

type DownloadEntry struct {
	OutputPath string `yaml:"op"`
	URL        string `yaml:"link"`
}
