package domain

import (
	"strings"
	"time"
)

// FieldSpec is one field definition pulled from a layout document.
// Start and End are 1-based inclusive byte offsets into a fixed-width record.
// DeclaredLength is informational only; slicing always uses Start/End.
type FieldSpec struct {
	Name           string
	DeclaredLength int
	Start          int
	End            int
}

// Width returns the byte width implied by the offsets.
func (f FieldSpec) Width() int { return f.End - f.Start + 1 }

// YearLayout is the filtered set of fields parsed from one layout document.
// It is immutable once built: accessors hand out copies.
type YearLayout struct {
	year       string
	source     string
	fields     []FieldSpec
	index      map[string]int
	duplicates []DuplicateFieldDefinition
}

// NewYearLayout builds a layout from fields in first-insertion order.
// Names must already be unique; the parser resolves repeats before calling this.
func NewYearLayout(year, source string, fields []FieldSpec, dups []DuplicateFieldDefinition) *YearLayout {
	l := &YearLayout{
		year:       year,
		source:     source,
		fields:     append([]FieldSpec(nil), fields...),
		index:      make(map[string]int, len(fields)),
		duplicates: append([]DuplicateFieldDefinition(nil), dups...),
	}
	for i, f := range l.fields {
		l.index[f.Name] = i
	}
	return l
}

func (l *YearLayout) Year() string   { return l.year }
func (l *YearLayout) Source() string { return l.source }
func (l *YearLayout) Len() int       { return len(l.fields) }

// Field looks up a field by name.
func (l *YearLayout) Field(name string) (FieldSpec, bool) {
	i, ok := l.index[name]
	if !ok {
		return FieldSpec{}, false
	}
	return l.fields[i], true
}

// Fields returns a copy of the fields in first-insertion order.
func (l *YearLayout) Fields() []FieldSpec {
	return append([]FieldSpec(nil), l.fields...)
}

// Duplicates returns the conflicting redefinitions seen while parsing.
func (l *YearLayout) Duplicates() []DuplicateFieldDefinition {
	return append([]DuplicateFieldDefinition(nil), l.duplicates...)
}

// KeepSet is the allow-list of field names retained from a layout.
type KeepSet map[string]struct{}

// NewKeepSet trims every name; blank names are dropped.
func NewKeepSet(names ...string) KeepSet {
	ks := make(KeepSet, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		ks[n] = struct{}{}
	}
	return ks
}

func (k KeepSet) Contains(name string) bool {
	_, ok := k[name]
	return ok
}

// TypeHint classifies a field for dictionary emission.
type TypeHint int

const (
	Numeric TypeHint = iota // implicit in infix syntax
	String                  // emitted with the str qualifier
)

func (t TypeHint) String() string {
	if t == String {
		return "str"
	}
	return "numeric"
}

// TypeHints maps field names to a TypeHint. Anything not listed is Numeric.
type TypeHints struct {
	strs map[string]struct{}
}

func NewTypeHints(stringFields ...string) TypeHints {
	return TypeHints{strs: NewKeepSet(stringFields...)}
}

func (h TypeHints) For(name string) TypeHint {
	if _, ok := h.strs[name]; ok {
		return String
	}
	return Numeric
}

// DictionaryEntry is one rendered line of an infix dictionary.
type DictionaryEntry struct {
	Name           string
	Start          int
	End            int
	DeclaredLength int
	Type           TypeHint
}

func (e DictionaryEntry) Width() int { return e.End - e.Start + 1 }

// Dictionary is the ordered field table for one survey year.
type Dictionary struct {
	Year    string
	Source  string
	Entries []DictionaryEntry
}

// YearResult is the outcome of processing one layout document.
type YearResult struct {
	Year       string
	Source     string
	Output     string
	Dictionary *Dictionary
	Duplicates []DuplicateFieldDefinition
	Err        error
}

// OK reports whether the year produced a dictionary.
func (r YearResult) OK() bool { return r.Err == nil && r.Dictionary != nil }

// Run records one pipeline invocation.
type Run struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt *time.Time
	WorkDir    string
	IndexURL   string
	Results    []YearResult
}

// Failed counts the years that did not produce a dictionary.
func (r *Run) Failed() int {
	n := 0
	for _, y := range r.Results {
		if !y.OK() {
			n++
		}
	}
	return n
}

// YearSummary is the catalog view of the latest result for a year.
type YearSummary struct {
	Year       string
	Source     string
	Output     string
	Status     string // "ok" or "failed"
	Error      string
	FieldCount int
	RunID      int64
	CreatedAt  time.Time
}
