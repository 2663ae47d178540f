// Package manifest writes manifest.yaml, the per-run summary that sits next
// to the generated dictionaries.
package manifest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/csg33k/cps-dct/internal/domain"
)

const FileName = "manifest.yaml"

type Manifest struct {
	Version     string    `yaml:"version"`
	GeneratedAt time.Time `yaml:"generated_at"`
	WorkDir     string    `yaml:"work_dir,omitempty"`
	IndexURL    string    `yaml:"index_url,omitempty"`
	Years       []Year    `yaml:"years"`
}

type Year struct {
	Year       string      `yaml:"year"`
	Source     string      `yaml:"source"`
	Output     string      `yaml:"output,omitempty"`
	Fields     int         `yaml:"fields"`
	Duplicates []Duplicate `yaml:"duplicates,omitempty"`
	Error      string      `yaml:"error,omitempty"`
}

type Duplicate struct {
	Field    string `yaml:"field"`
	Previous string `yaml:"previous"`
	Current  string `yaml:"current"`
}

// FromRun summarises a finished run, keeping its year order.
func FromRun(run *domain.Run) Manifest {
	m := Manifest{
		Version:     "1",
		GeneratedAt: time.Now().UTC().Truncate(time.Second),
		WorkDir:     run.WorkDir,
		IndexURL:    run.IndexURL,
		Years:       make([]Year, 0, len(run.Results)),
	}
	if run.FinishedAt != nil {
		m.GeneratedAt = run.FinishedAt.UTC().Truncate(time.Second)
	}
	for _, r := range run.Results {
		y := Year{Year: r.Year, Source: r.Source, Output: r.Output}
		if r.Dictionary != nil {
			y.Fields = len(r.Dictionary.Entries)
		}
		if r.Err != nil {
			y.Error = r.Err.Error()
		}
		for _, d := range r.Duplicates {
			y.Duplicates = append(y.Duplicates, Duplicate{
				Field:    d.Field,
				Previous: span(d.Previous),
				Current:  span(d.Current),
			})
		}
		m.Years = append(m.Years, y)
	}
	return m
}

func span(f domain.FieldSpec) string { return fmt.Sprintf("%d-%d", f.Start, f.End) }

// Encode writes m as YAML.
func Encode(w io.Writer, m Manifest) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return err
	}
	return enc.Close()
}

// Write replaces dir/manifest.yaml atomically and returns its path.
func Write(dir string, m Manifest) (string, error) {
	dst := filepath.Join(dir, FileName)
	tmp, err := os.CreateTemp(dir, ".manifest-*")
	if err != nil {
		return "", err
	}
	if err := Encode(tmp, m); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("encode manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return dst, nil
}

// Read loads a manifest written by Write.
func Read(path string) (Manifest, error) {
	var m Manifest
	b, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := yaml.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("parse %s: %w", path, err)
	}
	return m, nil
}
