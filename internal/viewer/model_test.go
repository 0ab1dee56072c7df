package viewer

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/spcplot/internal/capability"
)

func sampleConfig() Config {
	return Config{
		Title:      "bore",
		Sample:     []float64{0.54, 0.55, 0.53, 0.56, 0.55, 0.54, 0.57, 0.53, 0.55, 0.54},
		Categories: []string{"a", "b", "a", "b", "a", "b", "a", "b", "a", "b"},
		Limits:     capability.SpecLimits{Lower: capability.Limit(0.5), Upper: capability.Limit(0.6)},
		LongTerm:   true,
	}
}

func sized(m *Model) *Model {
	m.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewModelAnalyzes(t *testing.T) {
	m := sized(NewModel(sampleConfig()))
	report, ok := m.Report()
	if !ok {
		t.Fatalf("expected an analysis, got error %q", m.errMsg)
	}
	if report.Case != capability.TwoBound {
		t.Fatalf("expected two bound case, got %v", report.Case)
	}
	view := m.View()
	if !containsAll(view, []string{"Histogram", "Control Chart", capability.ProcessDataTitle, "lsl=0.5"}) {
		t.Fatalf("view missing expected content:\n%s", view)
	}
}

func TestTabsCycle(t *testing.T) {
	m := sized(NewModel(sampleConfig()))
	m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	if m.activeTab != tabCapability {
		t.Fatalf("expected wrap to capability tab, got %d", m.activeTab)
	}
	view := m.View()
	if !containsAll(view, []string{"Cpk", "Verdict", "Headline"}) {
		t.Fatalf("capability tab missing content:\n%s", view)
	}
	m.Update(runes("l"))
	if m.activeTab != tabHistogram {
		t.Fatalf("expected wrap to histogram tab, got %d", m.activeTab)
	}
}

func TestFormAppliesLimits(t *testing.T) {
	m := sized(NewModel(sampleConfig()))
	m.Update(runes("/"))
	if !m.formMode {
		t.Fatalf("expected form mode")
	}
	m.formInputs[fieldLSL].SetValue("")
	m.formInputs[fieldUSL].SetValue("0.58")
	m.formInputs[fieldBins].SetValue("6")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if m.formMode {
		t.Fatalf("expected form to close, error %q", m.formError)
	}
	limits := m.Limits()
	if limits.Lower != nil || limits.Upper == nil || *limits.Upper != 0.58 {
		t.Fatalf("unexpected limits: %+v", limits)
	}
	report, ok := m.Report()
	if !ok || report.Case != capability.UpperOnly {
		t.Fatalf("expected upper only report, got %v (%v)", report.Case, ok)
	}
	if m.cfg.Bins != 6 {
		t.Fatalf("expected 6 bins, got %d", m.cfg.Bins)
	}
}

func TestFormRejectsBadInput(t *testing.T) {
	m := sized(NewModel(sampleConfig()))
	m.Update(runes("/"))
	m.formInputs[fieldLSL].SetValue("abc")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !m.formMode || !strings.Contains(m.formError, "invalid LSL") {
		t.Fatalf("expected form error, got mode=%v err=%q", m.formMode, m.formError)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.formMode {
		t.Fatalf("expected esc to close the form")
	}
}

func TestInvalidLimitsShowInFooter(t *testing.T) {
	m := sized(NewModel(sampleConfig()))
	m.Update(runes("/"))
	m.formInputs[fieldLSL].SetValue("0.7")
	m.formInputs[fieldUSL].SetValue("0.6")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if _, ok := m.Report(); ok {
		t.Fatalf("expected no analysis for inverted limits")
	}
	if m.errMsg == "" {
		t.Fatalf("expected error message")
	}
	view := m.View()
	if !strings.Contains(view, "No analysis available.") {
		t.Fatalf("expected placeholder body:\n%s", view)
	}
}

func TestUndefinedIndicesKeepReport(t *testing.T) {
	cfg := sampleConfig()
	cfg.Sample = []float64{10, 10, 10, 10, 10}
	cfg.Categories = nil
	cfg.Limits = capability.SpecLimits{Lower: capability.Limit(5), Upper: capability.Limit(15)}
	m := sized(NewModel(cfg))
	if _, ok := m.Report(); !ok {
		t.Fatalf("expected report despite undefined indices")
	}
	if !strings.Contains(m.errMsg, "undefined") {
		t.Fatalf("expected undefined index warning, got %q", m.errMsg)
	}
}

func TestBinsAndLongTermKeys(t *testing.T) {
	m := sized(NewModel(sampleConfig()))
	m.Update(runes("="))
	if m.cfg.Bins != 15 {
		t.Fatalf("expected 15 bins, got %d", m.cfg.Bins)
	}
	m.Update(runes("-"))
	m.Update(runes("-"))
	if m.cfg.Bins != 5 {
		t.Fatalf("expected 5 bins, got %d", m.cfg.Bins)
	}
	m.Update(runes("t"))
	report, _ := m.Report()
	if m.cfg.LongTerm || strings.Contains(report.Capability.String(), capability.OverallCapabilityTitle) {
		t.Fatalf("expected long-term section to be toggled off")
	}
}

func TestTruncateLine(t *testing.T) {
	if got := truncateLine("abcdefgh", 6); got != "abc..." {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := truncateLine("abc", 6); got != "abc" {
		t.Fatalf("unexpected truncation %q", got)
	}
	if nextBins(7) != 10 || prevBins(7) != 5 || prevBins(5) != 1 {
		t.Fatalf("unexpected bin steps")
	}
}

func containsAll(haystack string, needles []string) bool {
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}
