package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/csg33k/cps-dct/internal/domain"
)

const (
	statusOK     = "ok"
	statusFailed = "failed"
)

type Repository struct {
	db *sql.DB
}

// New opens the SQLite database. Schema migrations are managed by dbmate;
// run `dbmate up` (or call Migrate) before use.
func New(dsn string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error { return r.db.Close() }

// ── Runs ──────────────────────────────────────────────────────────────────────

func (r *Repository) CreateRun(ctx context.Context, run *domain.Run) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO runs (work_dir, index_url, started_at) VALUES (?,?,?)`,
		run.WorkDir, run.IndexURL, run.StartedAt,
	)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	run.ID = id
	return nil
}

func (r *Repository) FinishRun(ctx context.Context, run *domain.Run) error {
	now := time.Now().UTC()
	run.FinishedAt = &now
	_, err := r.db.ExecContext(ctx, `UPDATE runs SET finished_at=? WHERE id=?`, now, run.ID)
	return err
}

func (r *Repository) ListRuns(ctx context.Context) ([]domain.Run, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, work_dir, index_url, started_at, finished_at
		FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []domain.Run
	for rows.Next() {
		var run domain.Run
		var finished sql.NullTime
		if err := rows.Scan(&run.ID, &run.WorkDir, &run.IndexURL, &run.StartedAt, &finished); err != nil {
			return nil, err
		}
		if finished.Valid {
			run.FinishedAt = &finished.Time
		}
		list = append(list, run)
	}
	return list, rows.Err()
}

// ── Year results ──────────────────────────────────────────────────────────────

// SaveResult stores one year's outcome and, when it succeeded, its entries.
func (r *Repository) SaveResult(ctx context.Context, runID int64, y *domain.YearResult) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	status, errText, count := statusOK, "", 0
	if y.Err != nil {
		status, errText = statusFailed, y.Err.Error()
	}
	if y.Dictionary != nil {
		count = len(y.Dictionary.Entries)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO year_results (run_id, year, source, output, status, error, field_count, created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		runID, y.Year, y.Source, y.Output, status, errText, count, time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	resultID, _ := res.LastInsertId()

	if y.Dictionary != nil {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO dictionary_entries
				(result_id, position, name, start_offset, end_offset, declared_length, is_string)
			VALUES (?,?,?,?,?,?,?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, e := range y.Dictionary.Entries {
			if _, err := stmt.ExecContext(ctx,
				resultID, i, e.Name, e.Start, e.End, e.DeclaredLength, boolToInt(e.Type == domain.String),
			); err != nil {
				return err
			}
		}
	}

	for _, d := range y.Duplicates {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO duplicate_fields (result_id, field, prev_start, prev_end, cur_start, cur_end)
			VALUES (?,?,?,?,?,?)`,
			resultID, d.Field, d.Previous.Start, d.Previous.End, d.Current.Start, d.Current.End,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListYears returns the latest result for every year, ascending by year.
func (r *Repository) ListYears(ctx context.Context) ([]domain.YearSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT yr.year, yr.source, yr.output, yr.status, yr.error,
		       yr.field_count, yr.run_id, yr.created_at
		FROM year_results yr
		JOIN (SELECT year, MAX(id) AS id FROM year_results GROUP BY year) latest
		  ON latest.id = yr.id
		ORDER BY yr.year`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []domain.YearSummary
	for rows.Next() {
		var s domain.YearSummary
		if err := rows.Scan(
			&s.Year, &s.Source, &s.Output, &s.Status, &s.Error,
			&s.FieldCount, &s.RunID, &s.CreatedAt,
		); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// GetDictionary returns the most recent successful dictionary for year.
func (r *Repository) GetDictionary(ctx context.Context, year string) (*domain.Dictionary, error) {
	var resultID int64
	d := &domain.Dictionary{Year: year}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, source FROM year_results
		WHERE year=? AND status=?
		ORDER BY id DESC LIMIT 1`, year, statusOK).Scan(&resultID, &d.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT name, start_offset, end_offset, declared_length, is_string
		FROM dictionary_entries WHERE result_id=? ORDER BY position`, resultID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var e domain.DictionaryEntry
		var isString int
		if err := rows.Scan(&e.Name, &e.Start, &e.End, &e.DeclaredLength, &isString); err != nil {
			return nil, err
		}
		if isString == 1 {
			e.Type = domain.String
		}
		d.Entries = append(d.Entries, e)
	}
	return d, rows.Err()
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
