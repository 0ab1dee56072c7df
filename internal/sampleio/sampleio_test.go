package sampleio

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func assertValues(t *testing.T, got, want []float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d values, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("value %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestLoadPlain(t *testing.T) {
	input := "# diameters\n0.541\n\n0.552 0.539\n  0.561  \n"
	sample, err := Load(strings.NewReader(input), "mem", Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	assertValues(t, sample.Values, []float64{0.541, 0.552, 0.539, 0.561})
	if sample.Source != "mem" || sample.Categories != nil {
		t.Fatalf("unexpected sample metadata: %+v", sample)
	}
}

func TestLoadPlainSkipsHeader(t *testing.T) {
	sample, err := Load(strings.NewReader("diameter\n1\n2\n"), "mem", Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	assertValues(t, sample.Values, []float64{1, 2})
}

func TestLoadPlainReportsLine(t *testing.T) {
	_, err := Load(strings.NewReader("1\n2\nabc\n"), "mem", Options{})
	var lineErr *LineError
	if !errors.As(err, &lineErr) {
		t.Fatalf("expected LineError, got %v", err)
	}
	if lineErr.Line != 3 || lineErr.Text != "abc" {
		t.Fatalf("unexpected line error: %+v", lineErr)
	}
}

func TestLoadCSVColumns(t *testing.T) {
	input := "part,shift,diameter\n1,day,0.541\n2,night,0.552\n3,day,\n4,night,0.539\n"
	sample, err := Load(strings.NewReader(input), "mem", Options{Column: "Diameter", CategoryColumn: "shift"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	assertValues(t, sample.Values, []float64{0.541, 0.552, 0.539})
	want := []string{"day", "night", "night"}
	for i := range want {
		if sample.Categories[i] != want[i] {
			t.Fatalf("expected categories %v, got %v", want, sample.Categories)
		}
	}
}

func TestLoadCSVDetectsDelimiter(t *testing.T) {
	sample, err := Load(strings.NewReader("value;group\n1.5;a\n2.5;b\n"), "mem", Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	assertValues(t, sample.Values, []float64{1.5, 2.5})
}

func TestLoadCSVWithoutHeader(t *testing.T) {
	sample, err := Load(strings.NewReader("0.54,A\n0.55,B\n0.56,A\n"), "mem", Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	assertValues(t, sample.Values, []float64{0.54, 0.55, 0.56})

	sample, err = Load(strings.NewReader("0.54,0.55,0.56\n"), "mem", Options{})
	if err != nil {
		t.Fatalf("load value list: %v", err)
	}
	assertValues(t, sample.Values, []float64{0.54, 0.55, 0.56})

	_, err = Load(strings.NewReader("0.54,A\n0.55,B\nbad,A\n"), "mem", Options{})
	var lineErr *LineError
	if !errors.As(err, &lineErr) || lineErr.Line != 3 {
		t.Fatalf("expected line 3 error, got %v", err)
	}
}

func TestLoadCSVErrors(t *testing.T) {
	_, err := Load(strings.NewReader("a,b\n1,2\n"), "mem", Options{Column: "c"})
	if err == nil || !strings.Contains(err.Error(), `column "c" not found`) {
		t.Fatalf("expected missing column error, got %v", err)
	}

	_, err = Load(strings.NewReader("a,b\n1,2\nx,3\n"), "mem", Options{Column: "a"})
	var lineErr *LineError
	if !errors.As(err, &lineErr) || lineErr.Line != 3 {
		t.Fatalf("expected line 3 error, got %v", err)
	}

	_, err = Load(strings.NewReader("# nothing\n\n"), "mem", Options{})
	if !errors.Is(err, ErrEmptySample) {
		t.Fatalf("expected ErrEmptySample, got %v", err)
	}
}

func TestLoadFileGzip(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte("1\n2\n3\n")); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	path := writeFile(t, "sample.txt.gz", buf.Bytes())

	sample, err := LoadFile(path, Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	assertValues(t, sample.Values, []float64{1, 2, 3})
	if sample.Source != path {
		t.Fatalf("expected source %q, got %q", path, sample.Source)
	}
}

func TestFetchCachesDownloads(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/data/diameter.csv" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("diameter\n0.5\n0.6\n"))
	}))
	defer server.Close()

	cacheDir := t.TempDir()
	ctx := context.Background()
	url := server.URL + "/data/diameter.csv"

	sample, file, err := FetchSample(ctx, url, cacheDir, Options{})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if file.Cached || filepath.Ext(file.Path) != ".csv" {
		t.Fatalf("unexpected first fetch: %+v", file)
	}
	assertValues(t, sample.Values, []float64{0.5, 0.6})
	if sample.Source != url {
		t.Fatalf("expected source to be the url, got %q", sample.Source)
	}

	again, err := Fetch(ctx, url, cacheDir)
	if err != nil {
		t.Fatalf("fetch again: %v", err)
	}
	if !again.Cached || again.Path != file.Path {
		t.Fatalf("expected cached copy, got %+v", again)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected one request, got %d", hits.Load())
	}

	if _, err := Fetch(ctx, server.URL+"/missing.csv", cacheDir); err == nil {
		t.Fatalf("expected error for 404")
	}
	if _, err := Fetch(ctx, "ftp://example.com/x", cacheDir); err == nil {
		t.Fatalf("expected error for unsupported scheme")
	}
}
