package manifest_test

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csg33k/cps-dct/internal/adapters/manifest"
	"github.com/csg33k/cps-dct/internal/domain"
)

func sampleRun() *domain.Run {
	done := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Run{
		WorkDir:    "cpsbm",
		FinishedAt: &done,
		Results: []domain.YearResult{
			{
				Year: "15", Source: "January_2015_Record_Layout.txt", Output: "cps2015.dct",
				Dictionary: &domain.Dictionary{Entries: make([]domain.DictionaryEntry, 3)},
				Duplicates: []domain.DuplicateFieldDefinition{{
					Field:    "PEAGE",
					Previous: domain.FieldSpec{Start: 10, End: 11},
					Current:  domain.FieldSpec{Start: 122, End: 123},
				}},
			},
			{Year: "12", Source: "jan12dd.txt", Err: errors.New("year 12: field PEAGE: no numeric tokens")},
		},
	}
}

func TestFromRun(t *testing.T) {
	m := manifest.FromRun(sampleRun())

	assert.Equal(t, "1", m.Version)
	assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), m.GeneratedAt)
	require.Len(t, m.Years, 2)

	assert.Equal(t, manifest.Year{
		Year: "15", Source: "January_2015_Record_Layout.txt", Output: "cps2015.dct", Fields: 3,
		Duplicates: []manifest.Duplicate{{Field: "PEAGE", Previous: "10-11", Current: "122-123"}},
	}, m.Years[0])
	assert.Equal(t, 0, m.Years[1].Fields)
	assert.Contains(t, m.Years[1].Error, "no numeric tokens")
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, manifest.Encode(&buf, manifest.FromRun(sampleRun())))

	out := buf.String()
	assert.Contains(t, out, "work_dir: cpsbm\n")
	assert.Contains(t, out, "  - year: \"15\"\n")
	assert.Contains(t, out, "output: cps2015.dct\n")
	assert.NotContains(t, out, "index_url")
}

func TestWriteRead(t *testing.T) {
	dir := t.TempDir()
	want := manifest.FromRun(sampleRun())

	path, err := manifest.Write(dir, want)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, manifest.FileName), path)

	got, err := manifest.Read(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
