package infix

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/csg33k/cps-dct/internal/domain"
)

const (
	openLine  = "infix dictionary {"
	closeLine = "}"
	indent    = "    "
)

type Generator struct {
	hints domain.TypeHints
}

// New returns a generator that marks the given fields as strings.
func New(stringFields ...string) *Generator {
	return &Generator{hints: domain.NewTypeHints(stringFields...)}
}

// NewWithHints wraps an already built TypeHints.
func NewWithHints(h domain.TypeHints) *Generator {
	return &Generator{hints: h}
}

// FileName is cps20<year>.dct, e.g. cps2015.dct.
func (g *Generator) FileName(year string) string {
	return "cps20" + year + ".dct"
}

// Generate writes the infix dictionary for one year's layout.
func (g *Generator) Generate(ctx context.Context, layout *domain.YearLayout, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return g.Render(w, g.Build(layout))
}

// ---------------------------------------------------------------------------
// Build
// ---------------------------------------------------------------------------

// Build orders the layout by start position. The sort is stable, so equal
// starts keep the layout's insertion order.
func (g *Generator) Build(layout *domain.YearLayout) domain.Dictionary {
	fields := layout.Fields()
	entries := make([]domain.DictionaryEntry, len(fields))
	for i, f := range fields {
		entries[i] = domain.DictionaryEntry{
			Name:           f.Name,
			Start:          f.Start,
			End:            f.End,
			DeclaredLength: f.DeclaredLength,
			Type:           g.hints.For(f.Name),
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Start < entries[j].Start })
	return domain.Dictionary{Year: layout.Year(), Source: layout.Source(), Entries: entries}
}

// ---------------------------------------------------------------------------
// Render
// ---------------------------------------------------------------------------

// Render writes d as one self-contained infix block:
//
//	infix dictionary {
//	    str HRHHID 1-15
//	    PEAGE 122-123
//	}
//
// Entries are written in the order given; Build has already sorted them.
func (g *Generator) Render(w io.Writer, d domain.Dictionary) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, openLine)
	for _, e := range d.Entries {
		fmt.Fprintln(bw, Line(e))
	}
	fmt.Fprintln(bw, closeLine)
	return bw.Flush()
}

// Line formats one dictionary entry, including its indent.
func Line(e domain.DictionaryEntry) string {
	if e.Type == domain.String {
		return fmt.Sprintf("%sstr %s %d-%d", indent, e.Name, e.Start, e.End)
	}
	return fmt.Sprintf("%s%s %d-%d", indent, e.Name, e.Start, e.End)
}
