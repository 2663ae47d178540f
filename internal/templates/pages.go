// Package templates renders the web UI. Pages are html/template files
// embedded from html/ and exposed as templ components so handlers render
// pages and htmx fragments the same way.
package templates

import (
	"embed"
	"html/template"

	"github.com/a-h/templ"

	"github.com/csg33k/cps-dct/internal/domain"
)

//go:embed html/*.html
var files embed.FS

// base holds the page chrome and the fragments shared by every page. Each
// page clones it and adds its own "content" block.
var base = template.Must(template.New("").Funcs(funcs).ParseFS(files, "html/layout.html", "html/partials.html"))

var (
	indexPage = page("html/index.html")
	yearPage  = page("html/year.html")
)

func page(file string) *template.Template {
	return template.Must(template.Must(base.Clone()).ParseFS(files, file)).Lookup("page")
}

type pageData struct {
	Title      string
	Years      []domain.YearSummary
	Runs       []domain.Run
	Dictionary *domain.Dictionary
}

// ── Index ─────────────────────────────────────────────────────────────────────

// Index lists the cataloged years and past runs.
func Index(years []domain.YearSummary, runs []domain.Run) templ.Component {
	return templ.FromGoHTML(indexPage, pageData{Title: "CPS Infix Dictionaries", Years: years, Runs: runs})
}

// YearTable is the per-year status table.
func YearTable(years []domain.YearSummary) templ.Component {
	return templ.FromGoHTML(base.Lookup("year-table"), years)
}

// ── Year ──────────────────────────────────────────────────────────────────────

// Year shows one year's dictionary.
func Year(d *domain.Dictionary) templ.Component {
	return templ.FromGoHTML(yearPage, pageData{Title: "CPS " + fullYear(d.Year), Dictionary: d})
}

// ── Runs ──────────────────────────────────────────────────────────────────────

// RunResult is the fragment returned after a build is triggered.
func RunResult(run *domain.Run) templ.Component {
	return templ.FromGoHTML(base.Lookup("run-result"), run)
}
