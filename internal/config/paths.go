package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths contains all the application paths.
// This is the single source of truth for file paths in the application;
// everything resolves relative to the working directory so the server,
// the report CLI, and tests all agree on the layout.
type Paths struct {
	BaseDir    string
	DataDir    string
	ExportsDir string
	LogsDir    string

	// Dataset source file (CSV or XLSX)
	DatasetFile string
}

// GetPaths resolves the application paths for the given dataset file.
// Relative dataset paths are anchored at the working directory.
//
// Directory structure:
//
//	./
//	├── data/          (sales dataset)
//	├── exports/       (generated CSV / XLSX downloads)
//	└── logs/          (application logs)
func GetPaths(datasetFile string) (*Paths, error) {
	base, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}

	if !filepath.IsAbs(datasetFile) {
		datasetFile = filepath.Join(base, datasetFile)
	}

	return &Paths{
		BaseDir:     base,
		DataDir:     filepath.Join(base, "data"),
		ExportsDir:  filepath.Join(base, "exports"),
		LogsDir:     filepath.Join(base, "logs"),
		DatasetFile: datasetFile,
	}, nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.ExportsDir,
		p.LogsDir,
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// GetExportPath returns a path inside the exports directory
func (p *Paths) GetExportPath(filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}
	return filepath.Join(p.ExportsDir, filename)
}

// FileExists reports whether the given path exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
