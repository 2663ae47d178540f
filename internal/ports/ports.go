package ports

import (
	"context"
	"io"

	"github.com/csg33k/cps-dct/internal/domain"
)

// Fetcher retrieves a remote resource. No retries: a failure is returned as-is.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Downloader saves remote files into a local directory, skipping files
// already present there.
type Downloader interface {
	Fetcher
	Download(ctx context.Context, urls []string, dir string) ([]string, error)
}

// LayoutParser turns one layout document into a filtered YearLayout.
type LayoutParser interface {
	Parse(ctx context.Context, year, source string, r io.Reader) (*domain.YearLayout, error)
}

// DictionaryGenerator defines the infix dictionary output port.
type DictionaryGenerator interface {
	// Build orders the layout's fields and resolves their types.
	Build(layout *domain.YearLayout) domain.Dictionary

	// Render writes a dictionary in infix syntax.
	Render(w io.Writer, d domain.Dictionary) error

	// FileName is the deterministic output name for a year token.
	FileName(year string) string
}

// Materializer unpacks downloaded archives into a directory.
type Materializer interface {
	Extract(ctx context.Context, archive, dir string) ([]string, error)
	Cleanup(archives []string) error
}

// CatalogRepository defines persistence of runs and per-year results.
type CatalogRepository interface {
	CreateRun(ctx context.Context, r *domain.Run) error
	FinishRun(ctx context.Context, r *domain.Run) error
	SaveResult(ctx context.Context, runID int64, y *domain.YearResult) error

	ListRuns(ctx context.Context) ([]domain.Run, error)
	ListYears(ctx context.Context) ([]domain.YearSummary, error)
	GetDictionary(ctx context.Context, year string) (*domain.Dictionary, error)
}

// Rebuilder regenerates dictionaries from the layout documents already on disk.
type Rebuilder interface {
	Rebuild(ctx context.Context) (*domain.Run, error)
}
