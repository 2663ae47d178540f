// Package cps parses CPS record layout documents into per-year field tables.
//
// A layout line is kept when its first token is an allowed field name and the
// rest of the line carries numbers. The first number is the declared length;
// the last two are the start and end byte positions. Anything between them
// (column numbers, question codes, years in a description) is ignored, which
// is what lets one parser read both the legacy and the current documents.
package cps

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/csg33k/cps-dct/internal/domain"
)

const maxLineBytes = 1 << 20

type Parser struct {
	keep domain.KeepSet
	log  *slog.Logger
}

// NewParser returns a parser that keeps only the fields in keep.
// A nil logger falls back to slog.Default().
func NewParser(keep domain.KeepSet, log *slog.Logger) *Parser {
	if log == nil {
		log = slog.Default()
	}
	return &Parser{keep: keep, log: log}
}

// Parse reads one layout document. year and source only label errors and
// the resulting layout.
func (p *Parser) Parse(ctx context.Context, year, source string, r io.Reader) (*domain.YearLayout, error) {
	var (
		fields []domain.FieldSpec
		index  = make(map[string]int)
		dups   []domain.DuplicateFieldDefinition
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for n := 0; sc.Scan(); n++ {
		if n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		line := strings.TrimRight(sc.Text(), "\r")

		f, ok, err := p.parseLine(year, line)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		i, seen := index[f.Name]
		if !seen {
			index[f.Name] = len(fields)
			fields = append(fields, f)
			continue
		}
		prev := fields[i]
		if prev != f {
			d := domain.DuplicateFieldDefinition{Year: year, Field: f.Name, Previous: prev, Current: f}
			dups = append(dups, d)
			p.log.Warn("field redefined; keeping last definition",
				"year", year, "source", source, "field", f.Name,
				"previous", fmt.Sprintf("%d-%d", prev.Start, prev.End),
				"current", fmt.Sprintf("%d-%d", f.Start, f.End))
		} else {
			p.log.Debug("field repeated with identical definition", "year", year, "field", f.Name)
		}
		fields[i] = f
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read layout %s (year %s): %w", source, year, err)
	}

	p.log.Debug("layout parsed", "year", year, "source", source, "fields", len(fields))
	return domain.NewYearLayout(year, source, fields, dups), nil
}

// parseLine returns ok=false for lines that are not field definitions.
func (p *Parser) parseLine(year, line string) (domain.FieldSpec, bool, error) {
	name, rest, ok := splitLead(line)
	if !ok || !p.keep.Contains(name) {
		return domain.FieldSpec{}, false, nil
	}
	// Prose mentioning a field name carries no numbers.
	if !hasDigit(rest) {
		return domain.FieldSpec{}, false, nil
	}

	nums := NumericTokens(rest)
	malformed := func(reason string) error {
		return &domain.MalformedLayoutLineError{Year: year, Field: name, Line: line, Reason: reason}
	}
	switch len(nums) {
	case 0:
		return domain.FieldSpec{}, false, malformed("no numeric tokens")
	case 1:
		return domain.FieldSpec{}, false, malformed("missing start or end position")
	}

	f := domain.FieldSpec{
		Name:           name,
		DeclaredLength: nums[0],
		Start:          nums[len(nums)-2],
		End:            nums[len(nums)-1],
	}
	if f.Start < 1 || f.End < f.Start {
		return domain.FieldSpec{}, false, malformed(fmt.Sprintf("invalid range %d-%d", f.Start, f.End))
	}
	return f, true, nil
}
