package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verte-zerg/spcplot/internal/capability"
)

const boreSample = "diameter,shift\n0.541,day\n0.552,night\n0.539,day\n0.561,night\n0.548,day\n0.544,night\n0.557,day\n0.536,night\n0.550,day\n0.546,night\n"

// runCLI executes the root command in an isolated XDG environment.
func runCLI(t *testing.T, env string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(env, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(env, "data"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(env, "cache"))

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--no-color"}, args...))
	err := root.Execute()
	return out.String(), err
}

func writeSampleFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	return path
}

func TestHistTextReport(t *testing.T) {
	env := t.TempDir()
	path := writeSampleFile(t, env, "bore.csv", boreSample)

	out, err := runCLI(t, env, "hist", path, "--column", "diameter", "--lsl", "0.5", "--usl", "0.6")
	if err != nil {
		t.Fatalf("hist: %v\n%s", err, out)
	}
	for _, want := range []string{capability.ProcessDataTitle, capability.WithinCapabilityTitle, "Cpk", "Verdict: Cpk ="} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestHistWritesPNGAndHTML(t *testing.T) {
	env := t.TempDir()
	path := writeSampleFile(t, env, "bore.csv", boreSample)

	pngPath := filepath.Join(env, "out", "bore.png")
	if out, err := runCLI(t, env, "hist", path, "--lsl", "0.5", "-f", "png", "-o", pngPath); err != nil {
		t.Fatalf("hist png: %v\n%s", err, out)
	}
	data, err := os.ReadFile(pngPath)
	if err != nil {
		t.Fatalf("read png: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Fatalf("expected PNG signature")
	}

	htmlPath := filepath.Join(env, "bore.html")
	if out, err := runCLI(t, env, "hist", path, "--usl", "0.6", "-f", "html", "-o", htmlPath); err != nil {
		t.Fatalf("hist html: %v\n%s", err, out)
	}
	data, err = os.ReadFile(htmlPath)
	if err != nil {
		t.Fatalf("read html: %v", err)
	}
	if !strings.Contains(string(data), "echarts") {
		t.Fatalf("expected an echarts page")
	}
}

func TestHistUndefinedIndices(t *testing.T) {
	env := t.TempDir()
	path := writeSampleFile(t, env, "flat.txt", "10\n10\n10\n10\n10\n")

	out, err := runCLI(t, env, "hist", path, "--lsl", "5", "--usl", "15")
	if !errors.Is(err, capability.ErrUndefinedIndex) {
		t.Fatalf("expected undefined index error, got %v", err)
	}
	if !strings.Contains(out, capability.UndefinedMarker) {
		t.Fatalf("expected the partial report to be printed:\n%s", out)
	}

	if out, err := runCLI(t, env, "hist", path, "--lsl", "5", "--usl", "15", "--allow-undefined"); err != nil {
		t.Fatalf("expected success with --allow-undefined: %v\n%s", err, out)
	}
}

func TestHistRejectsBadInput(t *testing.T) {
	env := t.TempDir()
	path := writeSampleFile(t, env, "bore.csv", boreSample)

	if _, err := runCLI(t, env, "hist", path, "--lsl", "0.6", "--usl", "0.5"); !errors.Is(err, capability.ErrInvalidLimits) {
		t.Fatalf("expected invalid limits, got %v", err)
	}
	single := writeSampleFile(t, env, "one.txt", "1.5\n")
	if _, err := runCLI(t, env, "hist", single); !errors.Is(err, capability.ErrInsufficientData) {
		t.Fatalf("expected insufficient data, got %v", err)
	}
	if _, err := runCLI(t, env, "hist"); err == nil || !strings.Contains(err.Error(), "exactly one sample source") {
		t.Fatalf("expected missing source error, got %v", err)
	}
	if _, err := runCLI(t, env, "hist", path, "-f", "svg"); err == nil {
		t.Fatalf("expected unknown format error")
	}
}

func TestConfigFileAndFlags(t *testing.T) {
	env := t.TempDir()
	cfgPath := filepath.Join(env, "spcplot.toml")
	if err := os.WriteFile(cfgPath, []byte("[histogram]\nbins = 7\n[report]\nlong-term = false\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	path := writeSampleFile(t, env, "bore.csv", boreSample)

	out, err := runCLI(t, env, "--config", cfgPath, "hist", path, "--lsl", "0.5", "--usl", "0.6")
	if err != nil {
		t.Fatalf("hist: %v\n%s", err, out)
	}
	if reportBins != 7 || reportLongTerm {
		t.Fatalf("expected config values, got bins=%d long-term=%v", reportBins, reportLongTerm)
	}
	if strings.Contains(out, capability.OverallCapabilityTitle) {
		t.Fatalf("long-term section should be disabled:\n%s", out)
	}

	if _, err := runCLI(t, env, "--config", cfgPath, "hist", path, "--bins", "5"); err != nil {
		t.Fatalf("hist: %v", err)
	}
	if reportBins != 5 {
		t.Fatalf("expected flag to win, got %d", reportBins)
	}

	out, err = runCLI(t, env, "--config", cfgPath, "config", "--print")
	if err != nil {
		t.Fatalf("config --print: %v", err)
	}
	if !strings.Contains(out, "bins = 7") {
		t.Fatalf("expected encoded config:\n%s", out)
	}
}

func TestSamplesLifecycle(t *testing.T) {
	env := t.TempDir()
	path := writeSampleFile(t, env, "bore.csv", boreSample)
	db := filepath.Join(env, "test.db")

	out, err := runCLI(t, env, "--db", db, "samples", "import", "bore", path, "--column", "diameter", "--category", "shift", "--lsl", "0.5", "--usl", "0.6")
	if err != nil {
		t.Fatalf("import: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Stored bore (10 values)") {
		t.Fatalf("unexpected import output: %s", out)
	}

	out, err = runCLI(t, env, "--db", db, "samples", "list")
	if err != nil || !strings.Contains(out, "bore") || !strings.Contains(out, "0.5") {
		t.Fatalf("list: %v\n%s", err, out)
	}

	out, err = runCLI(t, env, "--db", db, "samples", "show", "bore")
	if err != nil || !strings.Contains(out, "Groups") || !strings.Contains(out, capability.LabelMean) {
		t.Fatalf("show: %v\n%s", err, out)
	}

	if out, err := runCLI(t, env, "--db", db, "hist", "--dataset", "bore"); err != nil {
		t.Fatalf("hist dataset: %v\n%s", err, out)
	}
	if out, err := runCLI(t, env, "--db", db, "box", "--dataset", "bore"); err != nil || !strings.Contains(out, "night") {
		t.Fatalf("box dataset: %v\n%s", err, out)
	}

	out, err = runCLI(t, env, "--db", db, "samples", "history", "bore")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "two bound") || !strings.Contains(out, "Cpk") {
		t.Fatalf("expected a recorded report:\n%s", out)
	}

	if _, err := runCLI(t, env, "--db", db, "samples", "rm", "bore"); err != nil {
		t.Fatalf("rm: %v", err)
	}
	if _, err := runCLI(t, env, "--db", db, "hist", "--dataset", "bore"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected missing dataset, got %v", err)
	}
}

func TestBoxWritesPNG(t *testing.T) {
	env := t.TempDir()
	path := writeSampleFile(t, env, "bore.csv", boreSample)

	pngPath := filepath.Join(env, "box.png")
	out, err := runCLI(t, env, "box", path, "--column", "diameter", "--category", "shift", "--lsl", "0.5", "--usl", "0.6",
		"-f", "png", "--swarm", "--hollow", "--box-width", "0.4", "-o", pngPath)
	if err != nil {
		t.Fatalf("box png: %v\n%s", err, out)
	}
	data, err := os.ReadFile(pngPath)
	if err != nil {
		t.Fatalf("read png: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Fatalf("expected PNG signature")
	}

	if _, err := runCLI(t, env, "box", path, "--box-width", "1.5"); err == nil || !strings.Contains(err.Error(), "--box-width") {
		t.Fatalf("expected box width error, got %v", err)
	}
	if _, err := runCLI(t, env, "box", path, "-f", "html"); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

func TestHistHasNoSigmaFlag(t *testing.T) {
	if newHistCmd().Flags().Lookup("sigma") != nil {
		t.Fatalf("hist should not expose --sigma")
	}
	if newControlCmd().Flags().Lookup("sigma") == nil {
		t.Fatalf("control should expose --sigma")
	}
}

func TestControlChart(t *testing.T) {
	env := t.TempDir()
	path := writeSampleFile(t, env, "drift.txt", "10\n12\n11\n13\n12\n11\n12\n11\n12\n13\n11\n40\n12\n")

	out, err := runCLI(t, env, "control", path, "--usl", "20")
	if err != nil {
		t.Fatalf("control: %v\n%s", err, out)
	}
	if !strings.Contains(out, "above UCL") || !strings.Contains(out, "#12") {
		t.Fatalf("expected the outlier to be listed:\n%s", out)
	}
}

func TestGenIsReproducible(t *testing.T) {
	env := t.TempDir()
	first, err := runCLI(t, env, "gen", "--count", "5")
	if err != nil {
		t.Fatalf("gen: %v", err)
	}
	second, err := runCLI(t, env, "gen", "--count", "5")
	if err != nil {
		t.Fatalf("gen: %v", err)
	}
	if first != second || len(strings.Fields(first)) != 5 {
		t.Fatalf("expected 5 identical values, got %q and %q", first, second)
	}

	out, err := runCLI(t, env, "gen", "--count", "2", "--groups", "A,B", "--shift", "1")
	if err != nil {
		t.Fatalf("gen groups: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 5 || lines[0] != "value,group" || !strings.HasSuffix(lines[4], ",B") {
		t.Fatalf("unexpected grouped output:\n%s", out)
	}
}

func TestApplyConfigHelpers(t *testing.T) {
	cmd := newHistCmd()
	if err := cmd.Flags().Set("bins", "12"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	bins := 12
	fileBins := 3
	applyIntConfig(cmd, "bins", &bins, &fileBins)
	if bins != 12 {
		t.Fatalf("flag should win, got %d", bins)
	}
	title := "x"
	fileTitle := "from file"
	applyStringConfig(cmd, "title", &title, &fileTitle)
	if title != "from file" {
		t.Fatalf("config should fill unset flag, got %q", title)
	}
	applyStringConfig(cmd, "title", &title, nil)
	if title != "from file" {
		t.Fatalf("nil config value should keep target")
	}
}
