package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/a-h/templ"

	"github.com/csg33k/cps-dct/internal/adapters/pdf"
	"github.com/csg33k/cps-dct/internal/adapters/xlsx"
	"github.com/csg33k/cps-dct/internal/domain"
	"github.com/csg33k/cps-dct/internal/ports"
	"github.com/csg33k/cps-dct/internal/templates"
)

var yearToken = regexp.MustCompile(`^[0-9]{2}$`)

type Handler struct {
	repo    ports.CatalogRepository
	gen     ports.DictionaryGenerator
	builder ports.Rebuilder
	log     *slog.Logger
}

// New returns the web handler. builder may be nil, in which case POST /runs
// answers 503.
func New(repo ports.CatalogRepository, gen ports.DictionaryGenerator, builder ports.Rebuilder, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{repo: repo, gen: gen, builder: builder, log: log}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.index)
	mux.HandleFunc("GET /years/{year}", h.viewYear)
	mux.HandleFunc("GET /years/{year}/dct", h.downloadDictionary)
	mux.HandleFunc("GET /years/{year}/pdf", h.downloadPDF)
	mux.HandleFunc("GET /codebook.xlsx", h.downloadWorkbook)
	mux.HandleFunc("POST /runs", h.createRun)
	return mux
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	years, err := h.repo.ListYears(r.Context())
	if err != nil {
		h.serverError(w, err)
		return
	}
	runs, err := h.repo.ListRuns(r.Context())
	if err != nil {
		h.serverError(w, err)
		return
	}
	render(w, r, templates.Index(years, runs))
}

func (h *Handler) viewYear(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dictionary(w, r)
	if !ok {
		return
	}
	render(w, r, templates.Year(d))
}

func (h *Handler) downloadDictionary(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dictionary(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.gen.Render(&buf, *d); err != nil {
		h.serverError(w, err)
		return
	}
	attach(w, "text/plain; charset=utf-8", h.gen.FileName(d.Year), buf.Bytes())
}

func (h *Handler) downloadPDF(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dictionary(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := pdf.GeneratePDF(*d, &buf); err != nil {
		h.serverError(w, err)
		return
	}
	attach(w, "application/pdf", fmt.Sprintf("cps20%s.pdf", d.Year), buf.Bytes())
}

func (h *Handler) downloadWorkbook(w http.ResponseWriter, r *http.Request) {
	years, err := h.repo.ListYears(r.Context())
	if err != nil {
		h.serverError(w, err)
		return
	}
	var dicts []domain.Dictionary
	for _, y := range years {
		if y.Status != "ok" {
			continue
		}
		d, err := h.repo.GetDictionary(r.Context(), y.Year)
		if err != nil {
			h.serverError(w, err)
			return
		}
		dicts = append(dicts, *d)
	}
	var buf bytes.Buffer
	if err := xlsx.WriteCodebook(dicts, &buf); err != nil {
		h.serverError(w, err)
		return
	}
	attach(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "codebook.xlsx", buf.Bytes())
}

// createRun rebuilds every dictionary from the work directory and renders a
// summary fragment. Failed years are reported in the fragment, not as an
// HTTP error.
func (h *Handler) createRun(w http.ResponseWriter, r *http.Request) {
	if h.builder == nil {
		http.Error(w, "builds are not enabled", http.StatusServiceUnavailable)
		return
	}
	run, err := h.builder.Rebuild(r.Context())
	if run == nil {
		h.serverError(w, err)
		return
	}
	if err != nil {
		h.log.Warn("run finished with errors", "run", run.ID, "failed", run.Failed())
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusCreated)
	if err := templates.RunResult(run).Render(r.Context(), w); err != nil {
		h.log.Error("render run result", "err", err)
	}
}

// dictionary loads the year named in the path, answering 400 or 404 itself.
func (h *Handler) dictionary(w http.ResponseWriter, r *http.Request) (*domain.Dictionary, bool) {
	year := r.PathValue("year")
	if !yearToken.MatchString(year) {
		http.Error(w, "invalid year", http.StatusBadRequest)
		return nil, false
	}
	d, err := h.repo.GetDictionary(r.Context(), year)
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, "no dictionary for year "+year, http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		h.serverError(w, err)
		return nil, false
	}
	return d, true
}

func (h *Handler) serverError(w http.ResponseWriter, err error) {
	h.log.Error("request failed", "err", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// render writes a templ component to the response.
func render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), 500)
	}
}

func attach(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Write(body)
}
