package handlers_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/csg33k/cps-dct/internal/adapters/infix"
	"github.com/csg33k/cps-dct/internal/domain"
	"github.com/csg33k/cps-dct/internal/handlers"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeRepo struct {
	years []domain.YearSummary
	dicts map[string]*domain.Dictionary
	err   error
}

func (f *fakeRepo) CreateRun(context.Context, *domain.Run) error { return nil }
func (f *fakeRepo) FinishRun(context.Context, *domain.Run) error { return nil }
func (f *fakeRepo) SaveResult(context.Context, int64, *domain.YearResult) error { return nil }
func (f *fakeRepo) ListRuns(context.Context) ([]domain.Run, error) { return []domain.Run{{ID: 7, WorkDir: "cpsbm"}}, nil }
func (f *fakeRepo) ListYears(context.Context) ([]domain.YearSummary, error) { return f.years, f.err }
func (f *fakeRepo) GetDictionary(_ context.Context, year string) (*domain.Dictionary, error) {
	if f.err != nil {
		return nil, f.err
	}
	d, ok := f.dicts[year]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return d, nil
}

type fakeBuilder struct {
	run *domain.Run
	err error
}

func (f *fakeBuilder) Rebuild(context.Context) (*domain.Run, error) { return f.run, f.err }

func newRepo() *fakeRepo {
	return &fakeRepo{
		years: []domain.YearSummary{
			{Year: "12", Source: "jan12dd.txt", Status: "failed", Error: "malformed"},
			{Year: "15", Source: "January_2015_Record_Layout.txt", Status: "ok", FieldCount: 2},
		},
		dicts: map[string]*domain.Dictionary{
			"15": {Year: "15", Source: "January_2015_Record_Layout.txt", Entries: []domain.DictionaryEntry{
				{Name: "HRHHID", Start: 1, End: 15, DeclaredLength: 15, Type: domain.String},
				{Name: "PEAGE", Start: 122, End: 123, DeclaredLength: 2},
			}},
		},
	}
}

func serve(t *testing.T, h *handlers.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func TestIndex(t *testing.T) {
	h := handlers.New(newRepo(), infix.New(), nil, quiet())
	rec := serve(t, h, http.MethodGet, "/")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `href="/years/15"`)
	assert.Contains(t, body, "2012")
	assert.Contains(t, body, `class="status-failed"`)
	assert.Contains(t, body, `href="/years/15/dct"`)
	assert.NotContains(t, body, `href="/years/12/dct"`)
}

func TestYearRoutes(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		wantCode int
		wantType string
		wantBody string
	}{
		{"detail", "/years/15", http.StatusOK, "text/html", "HRHHID"},
		{"dct", "/years/15/dct", http.StatusOK, "text/plain",
			"infix dictionary {\n    str HRHHID 1-15\n    PEAGE 122-123\n}\n"},
		{"pdf", "/years/15/pdf", http.StatusOK, "application/pdf", "%PDF-"},
		{"unknown year", "/years/99", http.StatusNotFound, "", ""},
		{"bad token", "/years/2015", http.StatusBadRequest, "", ""},
		{"bad token dct", "/years/ab/dct", http.StatusBadRequest, "", ""},
	}
	h := handlers.New(newRepo(), infix.New(), nil, quiet())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, h, http.MethodGet, tt.path)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantType != "" {
				assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), tt.wantType))
			}
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestDownloadDictionary_Attachment(t *testing.T) {
	h := handlers.New(newRepo(), infix.New(), nil, quiet())
	rec := serve(t, h, http.MethodGet, "/years/15/dct")
	assert.Equal(t, `attachment; filename="cps2015.dct"`, rec.Header().Get("Content-Disposition"))
}

func TestDownloadWorkbook(t *testing.T) {
	h := handlers.New(newRepo(), infix.New(), nil, quiet())
	rec := serve(t, h, http.MethodGet, "/codebook.xlsx")
	require.Equal(t, http.StatusOK, rec.Code)

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Summary", "2015"}, f.GetSheetList())
}

func TestRepoError(t *testing.T) {
	repo := newRepo()
	repo.err = errors.New("database is locked")
	h := handlers.New(repo, infix.New(), nil, quiet())

	for _, path := range []string{"/", "/years/15", "/codebook.xlsx"} {
		rec := serve(t, h, http.MethodGet, path)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, path)
	}
}

func TestCreateRun(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		h := handlers.New(newRepo(), infix.New(), nil, quiet())
		rec := serve(t, h, http.MethodPost, "/runs")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("partial failure", func(t *testing.T) {
		run := &domain.Run{ID: 3, Results: []domain.YearResult{
			{Year: "15", Dictionary: &domain.Dictionary{}},
			{Year: "12", Source: "jan12dd.txt", Err: errors.New("missing start or end position")},
		}}
		b := &fakeBuilder{run: run, err: errors.New("1 year failed")}
		h := handlers.New(newRepo(), infix.New(), b, quiet())

		rec := serve(t, h, http.MethodPost, "/runs")
		require.Equal(t, http.StatusCreated, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "Run 3")
		assert.Contains(t, body, "1 failed")
		assert.Contains(t, body, "missing start or end position")
	})

	t.Run("no run", func(t *testing.T) {
		b := &fakeBuilder{err: errors.New("work directory missing")}
		h := handlers.New(newRepo(), infix.New(), b, quiet())
		rec := serve(t, h, http.MethodPost, "/runs")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
