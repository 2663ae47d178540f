// Package pipeline drives a full run: download the index page and the files
// it links to, unpack the data archives, then turn every linked layout
// document into an infix dictionary.
//
// Years are independent. A layout document that fails to parse is recorded
// against its year and the remaining years still run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/csg33k/cps-dct/internal/adapters/archive"
	"github.com/csg33k/cps-dct/internal/adapters/census"
	"github.com/csg33k/cps-dct/internal/adapters/cps"
	"github.com/csg33k/cps-dct/internal/adapters/infix"
	"github.com/csg33k/cps-dct/internal/adapters/manifest"
	"github.com/csg33k/cps-dct/internal/adapters/pdf"
	"github.com/csg33k/cps-dct/internal/adapters/xlsx"
	"github.com/csg33k/cps-dct/internal/config"
	"github.com/csg33k/cps-dct/internal/domain"
	"github.com/csg33k/cps-dct/internal/ports"
)

// CodebookFile is the workbook written when Options.XLSX is set.
const CodebookFile = "codebook.xlsx"

type Options struct {
	WorkDir      string
	OutDir       string // defaults to WorkDir
	IndexURL     string
	Workers      int
	PDF          bool
	XLSX         bool
	KeepArchives bool
}

// Document is a layout file together with the year token it maps to.
type Document struct {
	Year string
	Path string
}

type Pipeline struct {
	opts      Options
	layout    *config.Layout
	fetcher   ports.Downloader
	extractor ports.Materializer
	parser    ports.LayoutParser
	generator ports.DictionaryGenerator
	catalog   ports.CatalogRepository
	log       *slog.Logger
}

// New wires the default adapters for layout. A nil layout uses the built-in
// configuration; a nil logger uses slog.Default().
func New(opts Options, layout *config.Layout, log *slog.Logger) *Pipeline {
	if layout == nil {
		layout = config.DefaultLayout()
	}
	if log == nil {
		log = slog.Default()
	}
	if opts.OutDir == "" {
		opts.OutDir = opts.WorkDir
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.IndexURL == "" {
		opts.IndexURL = layout.IndexURL
	}
	return &Pipeline{
		opts:      opts,
		layout:    layout,
		fetcher:   census.NewClient(log),
		extractor: archive.New(log),
		parser:    cps.NewParser(layout.KeepSet(), log),
		generator: infix.NewWithHints(layout.TypeHints()),
		log:       log,
	}
}

// WithCatalog records every run and year result in repo.
func (p *Pipeline) WithCatalog(repo ports.CatalogRepository) *Pipeline {
	p.catalog = repo
	return p
}

// WithFetcher replaces the HTTP client.
func (p *Pipeline) WithFetcher(f ports.Downloader) *Pipeline {
	p.fetcher = f
	return p
}

// ---------------------------------------------------------------------------
// Fetch / Materialize
// ---------------------------------------------------------------------------

// Fetch reads the index page and downloads every linked data archive and
// layout document into the work directory. Files already there are reused.
func (p *Pipeline) Fetch(ctx context.Context) (archives, layouts []string, err error) {
	if p.opts.IndexURL == "" {
		return nil, nil, errors.New("no index url configured")
	}
	page, err := p.fetcher.Fetch(ctx, p.opts.IndexURL)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch index: %w", err)
	}
	links, err := census.ExtractLinks(page, p.opts.IndexURL, p.layout.DataPattern, p.layout.LayoutPattern)
	if err != nil {
		return nil, nil, err
	}
	p.log.Info("index read", "data", len(links.Data), "layouts", len(links.Layouts))

	if archives, err = p.fetcher.Download(ctx, links.Data, p.opts.WorkDir); err != nil {
		return nil, nil, err
	}
	if layouts, err = p.fetcher.Download(ctx, links.Layouts, p.opts.WorkDir); err != nil {
		return nil, nil, err
	}
	return archives, layouts, nil
}

// Materialize unpacks archives into the work directory and, unless
// KeepArchives is set, removes them afterwards.
func (p *Pipeline) Materialize(ctx context.Context, archives []string) error {
	for _, a := range archives {
		if _, err := p.extractor.Extract(ctx, a, p.opts.WorkDir); err != nil {
			return err
		}
	}
	if p.opts.KeepArchives {
		return nil
	}
	return p.extractor.Cleanup(archives)
}

// ---------------------------------------------------------------------------
// Discover
// ---------------------------------------------------------------------------

// Discover lists the layout documents in the work directory in name order
// and assigns each a year token. Only .txt files whose base name matches the
// layout's LayoutFile pattern are considered.
func (p *Pipeline) Discover() ([]Document, error) {
	entries, err := os.ReadDir(p.opts.WorkDir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || !strings.EqualFold(filepath.Ext(name), ".txt") {
			continue
		}
		if p.layout.LayoutFile != nil && !p.layout.LayoutFile.MatchString(name) {
			p.log.Debug("ignoring file that is not a layout document", "file", name)
			continue
		}
		paths = append(paths, filepath.Join(p.opts.WorkDir, name))
	}
	sort.Strings(paths)
	return p.Documents(paths), nil
}

// Documents assigns year tokens to layout paths, keeping their order. Paths
// without exactly one token are skipped. When two paths map to the same
// year, the later one replaces the earlier in place.
func (p *Pipeline) Documents(paths []string) []Document {
	var docs []Document
	byYear := make(map[string]int)
	for _, path := range paths {
		name := filepath.Base(path)
		year, ok := p.layout.YearRule.Token(name)
		if !ok {
			p.log.Warn("skipping file without a single year token", "file", name)
			continue
		}
		if i, dup := byYear[year]; dup {
			p.log.Warn("year already has a layout; replacing it",
				"year", year, "previous", filepath.Base(docs[i].Path), "current", name)
			docs[i].Path = path
			continue
		}
		byYear[year] = len(docs)
		docs = append(docs, Document{Year: year, Path: path})
	}
	return docs
}

// ---------------------------------------------------------------------------
// Build
// ---------------------------------------------------------------------------

// Build generates one dictionary per document. The returned run always
// holds a result for every document, in input order. The error joins the
// failures of individual years; it is nil only when every year succeeded.
func (p *Pipeline) Build(ctx context.Context, docs []Document) (*domain.Run, error) {
	run := &domain.Run{
		StartedAt: time.Now().UTC(),
		WorkDir:   p.opts.WorkDir,
		IndexURL:  p.opts.IndexURL,
	}
	if p.catalog != nil {
		if err := p.catalog.CreateRun(ctx, run); err != nil {
			return run, fmt.Errorf("record run: %w", err)
		}
	}
	if err := os.MkdirAll(p.opts.OutDir, 0o755); err != nil {
		return run, err
	}

	results := make([]domain.YearResult, len(docs))
	var g errgroup.Group
	g.SetLimit(p.opts.Workers)
	for i, doc := range docs {
		results[i] = domain.YearResult{Year: doc.Year, Source: filepath.Base(doc.Path)}
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		g.Go(func() error {
			p.buildYear(ctx, doc, &results[i])
			return nil
		})
	}
	_ = g.Wait()
	run.Results = results

	var errs []error
	for i := range results {
		r := &results[i]
		if r.Err != nil {
			p.log.Error("year failed", "year", r.Year, "source", r.Source, "err", r.Err)
			errs = append(errs, fmt.Errorf("year %s (%s): %w", r.Year, r.Source, r.Err))
		}
	}

	errs = append(errs, p.writeSummaries(ctx, run)...)
	return run, errors.Join(errs...)
}

func (p *Pipeline) buildYear(ctx context.Context, doc Document, res *domain.YearResult) {
	f, err := os.Open(doc.Path)
	if err != nil {
		res.Err = err
		return
	}
	defer f.Close()

	layout, err := p.parser.Parse(ctx, doc.Year, res.Source, f)
	if err != nil {
		res.Err = err
		return
	}
	res.Duplicates = layout.Duplicates()

	dict := p.generator.Build(layout)
	out := filepath.Join(p.opts.OutDir, p.generator.FileName(doc.Year))
	if err := writeFile(out, func(w *os.File) error { return p.generator.Render(w, dict) }); err != nil {
		res.Err = fmt.Errorf("write %s: %w", out, err)
		return
	}
	res.Output = filepath.Base(out)
	res.Dictionary = &dict

	if p.opts.PDF {
		name := strings.TrimSuffix(res.Output, filepath.Ext(res.Output)) + ".pdf"
		if err := writeFile(filepath.Join(p.opts.OutDir, name), func(w *os.File) error {
			return pdf.GeneratePDF(dict, w)
		}); err != nil {
			res.Err = fmt.Errorf("write codebook %s: %w", name, err)
			return
		}
	}
	if len(dict.Entries) == 0 {
		p.log.Warn("layout has no kept fields; dictionary is empty", "year", doc.Year, "source", res.Source)
	}
	p.log.Info("dictionary written", "year", doc.Year, "file", res.Output, "fields", len(dict.Entries))
}

// writeSummaries stores the run-level outputs. Failures here do not undo
// the dictionaries already written.
func (p *Pipeline) writeSummaries(ctx context.Context, run *domain.Run) []error {
	var errs []error

	if p.opts.XLSX {
		var dicts []domain.Dictionary
		for _, r := range run.Results {
			if r.OK() {
				dicts = append(dicts, *r.Dictionary)
			}
		}
		out := filepath.Join(p.opts.OutDir, CodebookFile)
		if err := writeFile(out, func(w *os.File) error { return xlsx.WriteCodebook(dicts, w) }); err != nil {
			errs = append(errs, fmt.Errorf("write %s: %w", CodebookFile, err))
		}
	}

	if p.catalog != nil {
		for i := range run.Results {
			if err := p.catalog.SaveResult(ctx, run.ID, &run.Results[i]); err != nil {
				errs = append(errs, fmt.Errorf("record year %s: %w", run.Results[i].Year, err))
			}
		}
		if err := p.catalog.FinishRun(ctx, run); err != nil {
			errs = append(errs, fmt.Errorf("record run: %w", err))
		}
	} else {
		now := time.Now().UTC()
		run.FinishedAt = &now
	}

	if _, err := manifest.Write(p.opts.OutDir, manifest.FromRun(run)); err != nil {
		errs = append(errs, fmt.Errorf("write %s: %w", manifest.FileName, err))
	}
	return errs
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

// Run performs Fetch and Materialize, then builds the layout documents the
// index linked to, in index order. Other files in the work directory are
// not read.
func (p *Pipeline) Run(ctx context.Context) (*domain.Run, error) {
	archives, layouts, err := p.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.Materialize(ctx, archives); err != nil {
		return nil, err
	}
	return p.Build(ctx, p.Documents(layouts))
}

// Rebuild runs Discover and Build without touching the network.
func (p *Pipeline) Rebuild(ctx context.Context) (*domain.Run, error) {
	docs, err := p.Discover()
	if err != nil {
		return nil, err
	}
	return p.Build(ctx, docs)
}

// writeFile creates path through a temp file in the same directory so a
// reader never sees a partial file.
func writeFile(path string, fill func(*os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := fill(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
