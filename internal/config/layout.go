package config

import (
	"fmt"
	"maps"
	"os"
	"regexp"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	"github.com/csg33k/cps-dct/internal/adapters/cps/spec"
	"github.com/csg33k/cps-dct/internal/domain"
)

// Layout is the field and link configuration for a run. It is read once and
// not modified afterwards.
type Layout struct {
	Keep          []string
	StringFields  []string
	YearRule      spec.YearRule
	IndexURL      string
	DataPattern   *regexp.Regexp
	LayoutPattern *regexp.Regexp
	LayoutFile    *regexp.Regexp // base names accepted when scanning the work directory
}

func (l *Layout) KeepSet() domain.KeepSet      { return domain.NewKeepSet(l.Keep...) }
func (l *Layout) TypeHints() domain.TypeHints { return domain.NewTypeHints(l.StringFields...) }

// DefaultLayout is the built-in configuration.
func DefaultLayout() *Layout {
	return &Layout{
		Keep:          append([]string(nil), spec.KeepVars...),
		StringFields:  append([]string(nil), spec.StringVars...),
		YearRule:      spec.DefaultYearRule(),
		IndexURL:      spec.IndexURL,
		DataPattern:   regexp.MustCompile(spec.DataPattern),
		LayoutPattern: regexp.MustCompile(spec.LayoutPattern),
		LayoutFile:    regexp.MustCompile(spec.LayoutFilePattern),
	}
}

// hclLayoutFile is the top-level structure of a layout file for decoding.
// Every attribute and block is optional.
type hclLayoutFile struct {
	Keep         []string      `hcl:"keep,optional"`
	StringFields []string      `hcl:"string_fields,optional"`
	YearToken    *hclYearToken `hcl:"year_token,block"`
	Links        *hclLinks     `hcl:"links,block"`
}

type hclYearToken struct {
	Pattern string            `hcl:"pattern,optional"`
	Remap   map[string]string `hcl:"remap,optional"`
}

type hclLinks struct {
	Index      string `hcl:"index,optional"`
	Data       string `hcl:"data,optional"`
	Layout     string `hcl:"layout,optional"`
	LayoutFile string `hcl:"layout_file,optional"`
}

// LoadLayout reads an HCL layout file. An empty path yields DefaultLayout.
func LoadLayout(path string) (*Layout, error) {
	if path == "" {
		return DefaultLayout(), nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout config %s: %w", path, err)
	}
	return ParseLayout(src, path)
}

// ParseLayout decodes HCL source. The file can refer to the built-in lists
// as defaults.keep and defaults.string_fields and combine them with concat
// and distinct, e.g. keep = concat(defaults.keep, ["PEAFEVER"]).
func ParseLayout(src []byte, filename string) (*Layout, error) {
	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse layout config %s: %w", filename, diags)
	}

	var parsed hclLayoutFile
	if diags := gohcl.DecodeBody(f.Body, evalContext(), &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode layout config %s: %w", filename, diags)
	}

	l := DefaultLayout()
	if parsed.Keep != nil {
		l.Keep = parsed.Keep
	}
	if parsed.StringFields != nil {
		l.StringFields = parsed.StringFields
	}
	if yt := parsed.YearToken; yt != nil {
		if yt.Pattern != "" {
			re, err := regexp.Compile(yt.Pattern)
			if err != nil {
				return nil, fmt.Errorf("%s: year_token.pattern: %w", filename, err)
			}
			l.YearRule.Pattern = re
		}
		if yt.Remap != nil {
			l.YearRule.Remap = maps.Clone(yt.Remap)
		}
	}
	if lk := parsed.Links; lk != nil {
		if lk.Index != "" {
			l.IndexURL = lk.Index
		}
		var err error
		if l.DataPattern, err = compileOr(lk.Data, l.DataPattern); err != nil {
			return nil, fmt.Errorf("%s: links.data: %w", filename, err)
		}
		if l.LayoutPattern, err = compileOr(lk.Layout, l.LayoutPattern); err != nil {
			return nil, fmt.Errorf("%s: links.layout: %w", filename, err)
		}
		if l.LayoutFile, err = compileOr(lk.LayoutFile, l.LayoutFile); err != nil {
			return nil, fmt.Errorf("%s: links.layout_file: %w", filename, err)
		}
	}
	return l, nil
}

func compileOr(expr string, fallback *regexp.Regexp) (*regexp.Regexp, error) {
	if expr == "" {
		return fallback, nil
	}
	return regexp.Compile(expr)
}

func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"defaults": cty.ObjectVal(map[string]cty.Value{
				"keep":          stringList(spec.KeepVars),
				"string_fields": stringList(spec.StringVars),
			}),
		},
		Functions: map[string]function.Function{
			"concat":   stdlib.ConcatFunc,
			"distinct": stdlib.DistinctFunc,
		},
	}
}

func stringList(ss []string) cty.Value {
	if len(ss) == 0 {
		return cty.ListValEmpty(cty.String)
	}
	vals := make([]cty.Value, len(ss))
	for i, s := range ss {
		vals[i] = cty.StringVal(s)
	}
	return cty.ListVal(vals)
}
