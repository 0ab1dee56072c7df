// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang/snappy"

	"github.com/verte-zerg/spcplot/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrNotFound is returned when a dataset name is unknown.
var ErrNotFound = errors.New("dataset not found")

// timeLayout is fixed width so text order is chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store wraps SQLite access for datasets and report history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		return nil, errors.Join(err, db.Close())
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS datasets (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			created_at TEXT NOT NULL,
			source TEXT NOT NULL,
			lower REAL,
			upper REAL,
			n INTEGER NOT NULL,
			sample BLOB NOT NULL,
			categories TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS reports (
			id INTEGER PRIMARY KEY,
			dataset_id INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			limit_case TEXT NOT NULL,
			n INTEGER NOT NULL,
			mean REAL NOT NULL,
			std_dev REAL NOT NULL,
			lower REAL,
			upper REAL
		);`,
		`CREATE TABLE IF NOT EXISTS report_indices (
			report_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			value REAL,
			PRIMARY KEY (report_id, name)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_reports_dataset ON reports(dataset_id, created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveDataset inserts a dataset or replaces the one with the same name.
func (s *Store) SaveDataset(ctx context.Context, ds model.Dataset) (int64, error) {
	if strings.TrimSpace(ds.Name) == "" {
		return 0, errors.New("dataset name is required")
	}
	createdAt := ds.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	var categories sql.NullString
	if ds.Categories != nil {
		if len(ds.Categories) != len(ds.Values) {
			return 0, fmt.Errorf("dataset %q has %d values but %d categories", ds.Name, len(ds.Values), len(ds.Categories))
		}
		categories = sql.NullString{String: strings.Join(ds.Categories, "\n"), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO datasets (name, created_at, source, lower, upper, n, sample, categories)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
			created_at = excluded.created_at,
			source = excluded.source,
			lower = excluded.lower,
			upper = excluded.upper,
			n = excluded.n,
			sample = excluded.sample,
			categories = excluded.categories`,
		ds.Name,
		formatTime(createdAt),
		ds.Source,
		nullFloat(ds.Lower),
		nullFloat(ds.Upper),
		len(ds.Values),
		EncodeValues(ds.Values),
		categories,
	)
	if err != nil {
		return 0, err
	}
	var id int64
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM datasets WHERE name = ?`, ds.Name).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// GetDataset loads a dataset with its values.
func (s *Store) GetDataset(ctx context.Context, name string) (model.Dataset, error) {
	var (
		ds         model.Dataset
		createdAt  string
		lower      sql.NullFloat64
		upper      sql.NullFloat64
		blob       []byte
		categories sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, source, lower, upper, sample, categories
		 FROM datasets WHERE name = ?`, name,
	).Scan(&ds.ID, &ds.Name, &createdAt, &ds.Source, &lower, &upper, &blob, &categories)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Dataset{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return model.Dataset{}, err
	}
	if ds.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.Dataset{}, err
	}
	ds.Lower = floatPtr(lower)
	ds.Upper = floatPtr(upper)
	if ds.Values, err = DecodeValues(blob); err != nil {
		return model.Dataset{}, fmt.Errorf("failed to decode dataset %s: %w", name, err)
	}
	if categories.Valid {
		ds.Categories = strings.Split(categories.String, "\n")
	}
	return ds, nil
}

// ListDatasets returns every dataset ordered by name.
func (s *Store) ListDatasets(ctx context.Context) ([]model.DatasetInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at, source, n, lower, upper FROM datasets ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.DatasetInfo
	for rows.Next() {
		var info model.DatasetInfo
		var createdAt string
		var lower, upper sql.NullFloat64
		if err := rows.Scan(&info.ID, &info.Name, &createdAt, &info.Source, &info.Count, &lower, &upper); err != nil {
			return nil, err
		}
		parsed, err := parseTime(createdAt)
		if err != nil {
			return nil, err
		}
		info.CreatedAt = parsed
		info.Lower = floatPtr(lower)
		info.Upper = floatPtr(upper)
		result = append(result, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteDataset removes a dataset and its report history.
func (s *Store) DeleteDataset(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	// No-op once committed.
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM datasets WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return err
	}
	stmts := []string{
		`DELETE FROM report_indices WHERE report_id IN (SELECT id FROM reports WHERE dataset_id = ?)`,
		`DELETE FROM reports WHERE dataset_id = ?`,
		`DELETE FROM datasets WHERE id = ?`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// InsertReport stores an analysis run and its indices.
func (s *Store) InsertReport(ctx context.Context, rec model.ReportRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	// No-op once committed.
	defer tx.Rollback()

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO reports (dataset_id, created_at, limit_case, n, mean, std_dev, lower, upper)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.DatasetID,
		formatTime(createdAt),
		rec.Case,
		rec.Count,
		rec.Mean,
		rec.StdDev,
		nullFloat(rec.Lower),
		nullFloat(rec.Upper),
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(rec.IndexValues) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO report_indices (report_id, name, value) VALUES (?, ?, ?)`)
		if err != nil {
			return 0, err
		}
		defer stmt.Close()
		for _, iv := range rec.IndexValues {
			if _, err := stmt.ExecContext(ctx, id, iv.Name, nullFloat(iv.Value)); err != nil {
				return 0, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ListReports returns the most recent reports for a dataset, newest first.
// A non-positive limit returns all of them.
func (s *Store) ListReports(ctx context.Context, datasetID int64, limit int) ([]model.ReportRecord, error) {
	query := `SELECT id, dataset_id, created_at, limit_case, n, mean, std_dev, lower, upper
		FROM reports
		WHERE dataset_id = ?
		ORDER BY created_at DESC, id DESC`
	args := []any{datasetID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []model.ReportRecord
	byID := map[int64]int{}
	for rows.Next() {
		var rec model.ReportRecord
		var createdAt string
		var lower, upper sql.NullFloat64
		if err := rows.Scan(&rec.ID, &rec.DatasetID, &createdAt, &rec.Case, &rec.Count, &rec.Mean, &rec.StdDev, &lower, &upper); err != nil {
			return nil, err
		}
		parsed, err := parseTime(createdAt)
		if err != nil {
			return nil, err
		}
		rec.CreatedAt = parsed
		rec.Lower = floatPtr(lower)
		rec.Upper = floatPtr(upper)
		byID[rec.ID] = len(reports)
		reports = append(reports, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, nil
	}
	if err := s.attachIndices(ctx, reports, byID); err != nil {
		return nil, err
	}
	return reports, nil
}

func (s *Store) attachIndices(ctx context.Context, reports []model.ReportRecord, byID map[int64]int) error {
	placeholders := make([]string, len(reports))
	args := make([]any, len(reports))
	for i, rec := range reports {
		placeholders[i] = "?"
		args[i] = rec.ID
	}
	query := fmt.Sprintf(`SELECT report_id, name, value
		FROM report_indices
		WHERE report_id IN (%s)
		ORDER BY rowid ASC`, strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var reportID int64
		var name string
		var value sql.NullFloat64
		if err := rows.Scan(&reportID, &name, &value); err != nil {
			return err
		}
		idx := byID[reportID]
		reports[idx].IndexValues = append(reports[idx].IndexValues, model.IndexValue{Name: name, Value: floatPtr(value)})
	}
	return rows.Err()
}

// EncodeValues packs values as little-endian float64 and compresses them.
func EncodeValues(values []float64) []byte {
	raw := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(raw[i*8:], math.Float64bits(v))
	}
	return snappy.Encode(nil, raw)
}

// DecodeValues reverses EncodeValues.
func DecodeValues(blob []byte) ([]float64, error) {
	raw, err := snappy.Decode(nil, blob)
	if err != nil {
		return nil, err
	}
	if len(raw)%8 != 0 {
		return nil, fmt.Errorf("sample blob length %d is not a multiple of 8", len(raw))
	}
	values := make([]float64, len(raw)/8)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
	}
	return values, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime also accepts the variable-width RFC 3339 form.
func parseTime(text string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, text)
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
