package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/spcplot/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "nested", "spcplot.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	})
	return st
}

func ptr(v float64) *float64 {
	return &v
}

func TestSaveAndGetDataset(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	id, err := st.SaveDataset(ctx, model.Dataset{
		Name:       "diameter",
		CreatedAt:  created,
		Source:     "diameter.csv",
		Lower:      ptr(0.5),
		Values:     []float64{0.541, 0.552, 0.539},
		Categories: []string{"A", "B", "A"},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	ds, err := st.GetDataset(ctx, "diameter")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ds.ID != id || ds.Source != "diameter.csv" || !ds.CreatedAt.Equal(created) {
		t.Fatalf("unexpected dataset header: %+v", ds)
	}
	if ds.Lower == nil || *ds.Lower != 0.5 || ds.Upper != nil {
		t.Fatalf("unexpected limits: lower=%v upper=%v", ds.Lower, ds.Upper)
	}
	if len(ds.Values) != 3 || ds.Values[1] != 0.552 {
		t.Fatalf("unexpected values: %v", ds.Values)
	}
	if len(ds.Categories) != 3 || ds.Categories[2] != "A" {
		t.Fatalf("unexpected categories: %v", ds.Categories)
	}
}

func TestSaveDatasetUpsertsByName(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	first, err := st.SaveDataset(ctx, model.Dataset{Name: "d", Values: []float64{1, 2}})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	second, err := st.SaveDataset(ctx, model.Dataset{Name: "d", Upper: ptr(9), Values: []float64{3, 4, 5}})
	if err != nil {
		t.Fatalf("save again: %v", err)
	}
	if first != second {
		t.Fatalf("expected upsert to keep id %d, got %d", first, second)
	}

	infos, err := st.ListDatasets(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 1 || infos[0].Count != 3 || infos[0].Upper == nil || *infos[0].Upper != 9 {
		t.Fatalf("unexpected list: %+v", infos)
	}
}

func TestSaveDatasetRejectsMismatchedCategories(t *testing.T) {
	st := openTestStore(t)
	_, err := st.SaveDataset(context.Background(), model.Dataset{Name: "d", Values: []float64{1, 2}, Categories: []string{"a"}})
	if err == nil {
		t.Fatalf("expected error for mismatched categories")
	}
}

func TestReportsAndDelete(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	id, err := st.SaveDataset(ctx, model.Dataset{Name: "d", Values: []float64{1, 2, 3}})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	for i := 0; i < 2; i++ {
		_, err := st.InsertReport(ctx, model.ReportRecord{
			DatasetID: id,
			CreatedAt: time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC),
			Case:      "two bound",
			Count:     3,
			Mean:      2,
			StdDev:    1,
			Lower:     ptr(0),
			Upper:     ptr(4),
			IndexValues: []model.IndexValue{
				{Name: "Cp", Value: ptr(0.67)},
				{Name: "Cpk", Value: nil},
			},
		})
		if err != nil {
			t.Fatalf("insert report: %v", err)
		}
	}

	reports, err := st.ListReports(ctx, id, 1)
	if err != nil {
		t.Fatalf("list reports: %v", err)
	}
	if len(reports) != 1 || reports[0].CreatedAt.Day() != 2 {
		t.Fatalf("expected newest report only, got %+v", reports)
	}
	if len(reports[0].IndexValues) != 2 || reports[0].IndexValues[1].Value != nil {
		t.Fatalf("unexpected indices: %+v", reports[0].IndexValues)
	}

	if err := st.DeleteDataset(ctx, "d"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	reports, err = st.ListReports(ctx, id, 0)
	if err != nil || len(reports) != 0 {
		t.Fatalf("expected history to be removed, got %+v, %v", reports, err)
	}
	if _, err := st.GetDataset(ctx, "d"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := st.DeleteDataset(ctx, "d"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestListReportsOrdersWithinOneSecond(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	id, err := st.SaveDataset(ctx, model.Dataset{Name: "d", Values: []float64{1, 2, 3}})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	base := time.Date(2024, 5, 1, 12, 0, 1, 0, time.UTC)
	insert := func(at time.Time) int64 {
		t.Helper()
		reportID, err := st.InsertReport(ctx, model.ReportRecord{DatasetID: id, CreatedAt: at, Case: "no bound", Count: 3, Mean: 2, StdDev: 1})
		if err != nil {
			t.Fatalf("insert report: %v", err)
		}
		return reportID
	}
	newer := insert(base.Add(500 * time.Millisecond))
	older := insert(base)

	reports, err := st.ListReports(ctx, id, 1)
	if err != nil {
		t.Fatalf("list reports: %v", err)
	}
	if len(reports) != 1 || reports[0].ID != newer {
		t.Fatalf("expected report %d (newest), got %+v (older is %d)", newer, reports, older)
	}
	if !reports[0].CreatedAt.Equal(base.Add(500 * time.Millisecond)) {
		t.Fatalf("unexpected timestamp %v", reports[0].CreatedAt)
	}
}

func TestEncodeDecodeValues(t *testing.T) {
	values := []float64{0, -1.5, 3.25e-9, 1e300}
	got, err := DecodeValues(EncodeValues(values))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for i := range values {
		if got[i] != values[i] {
			t.Fatalf("value %d: expected %v, got %v", i, values[i], got[i])
		}
	}
	if _, err := DecodeValues([]byte("not snappy")); err == nil {
		t.Fatalf("expected decode error")
	}
}
