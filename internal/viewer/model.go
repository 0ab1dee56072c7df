// Package viewer provides the Bubble Tea capability viewer.
package viewer

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/spcplot/internal/capability"
	"github.com/verte-zerg/spcplot/internal/render"
	"github.com/verte-zerg/spcplot/internal/stats"
)

const (
	tabHistogram = iota
	tabControl
	tabBox
	tabCapability
)

const (
	fieldLSL = iota
	fieldUSL
	fieldBins
)

const (
	plotHeight = 10
	// Room taken by the center, count and limit mark columns beside the bars.
	histogramChrome = 36
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	ratingStyles    = map[capability.Rating]lipgloss.Style{
		capability.Capable:    lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")),
		capability.Marginal:   lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")),
		capability.NotCapable: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")),
		capability.Unknown:    lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C")),
	}
)

// Config is the sample and settings the viewer starts with.
type Config struct {
	Title      string
	Sample     []float64
	Categories []string
	Limits     capability.SpecLimits
	Bins       int
	// Sigma is the control limit multiplier.
	Sigma    float64
	LongTerm bool
}

// Model implements the Bubble Tea capability viewer.
type Model struct {
	cfg Config

	report   capability.Report
	analyzed bool
	errMsg   string

	tabs      []string
	activeTab int
	viewports []viewport.Model
	capTable  table.Model

	width  int
	height int

	formMode   bool
	formInputs []textinput.Model
	formIndex  int
	formError  string
}

// NewModel constructs a viewer model and runs the first analysis.
func NewModel(cfg Config) *Model {
	if cfg.Bins <= 0 {
		cfg.Bins = stats.DefaultBins
	}
	if cfg.Sigma <= 0 {
		cfg.Sigma = stats.DefaultSigmaMultiplier
	}
	m := &Model{
		cfg:  cfg,
		tabs: []string{"Histogram", "Control Chart", "Box Plot", "Capability"},
	}
	m.initInputs()
	m.initViewports()
	m.capTable = buildCapabilityTable(capability.Indices{})
	m.refreshReport()
	return m
}

// Report returns the most recent successful analysis.
func (m *Model) Report() (capability.Report, bool) {
	return m.report, m.analyzed
}

// Limits returns the limits currently applied.
func (m *Model) Limits() capability.SpecLimits {
	return m.cfg.Limits
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.formMode {
			return m.updateForm(msg)
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "=":
			m.cfg.Bins = nextBins(m.cfg.Bins)
			m.renderTabContents()
			return m, nil
		case "-":
			m.cfg.Bins = prevBins(m.cfg.Bins)
			m.renderTabContents()
			return m, nil
		case "t":
			m.cfg.LongTerm = !m.cfg.LongTerm
			m.refreshReport()
			return m, nil
		case "/":
			return m.startForm()
		case "g", "home":
			if m.activeTab != tabCapability {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab != tabCapability {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if m.activeTab == tabCapability {
				var cmd tea.Cmd
				m.capTable, cmd = m.capTable.Update(msg)
				return m, cmd
			}
			vp := m.viewports[m.activeTab]
			var cmd tea.Cmd
			vp, cmd = vp.Update(msg)
			m.viewports[m.activeTab] = vp
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) initViewports() {
	// The capability tab is drawn from the table, not a viewport.
	m.viewports = make([]viewport.Model, tabCapability)
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) initInputs() {
	m.formInputs = []textinput.Model{
		newFormInput("LSL: "),
		newFormInput("USL: "),
		newFormInput("Bins: "),
	}
	m.formInputs[fieldLSL].Placeholder = "none"
	m.formInputs[fieldUSL].Placeholder = "none"
	m.setInputsFromConfig()
}

func newFormInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) setInputsFromConfig() {
	m.formInputs[fieldLSL].SetValue(formatLimit(m.cfg.Limits.Lower))
	m.formInputs[fieldUSL].SetValue(formatLimit(m.cfg.Limits.Upper))
	m.formInputs[fieldBins].SetValue(strconv.Itoa(m.cfg.Bins))
}

func formatLimit(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.formMode && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, vpHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = vpHeight
	}
	m.capTable.SetWidth(m.width)
	for i := range m.formInputs {
		promptWidth := lipgloss.Width(m.formInputs[i].Prompt)
		m.formInputs[i].Width = maxInt(10, m.width-promptWidth-2)
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	if m.activeTab == tabCapability {
		m.capTable.Focus()
	} else {
		m.capTable.Blur()
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	settings := padLines(m.renderSettingsSummary(), m.width)
	return tabs + "\n" + settings
}

func (m *Model) renderSettingsSummary() string {
	lsl := formatLimit(m.cfg.Limits.Lower)
	if lsl == "" {
		lsl = "none"
	}
	usl := formatLimit(m.cfg.Limits.Upper)
	if usl == "" {
		usl = "none"
	}
	summary := fmt.Sprintf("Settings: lsl=%s  usl=%s  bins=%d  sigma=%g  long-term=%t  n=%d",
		lsl, usl, m.cfg.Bins, m.cfg.Sigma, m.cfg.LongTerm, len(m.cfg.Sample))
	if m.cfg.Title != "" {
		summary = m.cfg.Title + "  " + summary
	}
	return headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderHelp() string {
	return headerStyle.Render("Nav: left/right  Scroll: up/down/pgup/pgdn  Bins: -/=  Long-term: t  Limits: /  Quit: q")
}

func (m *Model) renderFormHelp() string {
	return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel  quit: ctrl+c")
}

func (m *Model) renderFooter() string {
	if m.formMode {
		return m.renderFormHelp()
	}
	if m.errMsg != "" {
		return m.renderHelp() + "\n" + errorStyle.Render(truncateLine(m.errMsg, m.width))
	}
	return m.renderHelp()
}

func (m *Model) renderForm() string {
	lines := []string{"Limits (enter to apply, esc to cancel, empty for none)"}
	for _, input := range m.formInputs {
		lines = append(lines, input.View())
	}
	if m.formError != "" {
		lines = append(lines, errorStyle.Render(m.formError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBody(height int) string {
	if m.formMode {
		return fitLines(m.renderForm(), m.width, height)
	}
	if !m.analyzed {
		return fitLines("No analysis available.", m.width, height)
	}
	if m.activeTab == tabCapability {
		cards := renderSummaryCards(m.report, m.width)
		view := tableMutedStyle.Render(m.capTable.View())
		return fitLines(cards+"\n"+view, m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

// refreshReport reruns the analysis. Undefined indices still leave a report
// to show; any other failure keeps the previous one hidden behind the error.
func (m *Model) refreshReport() {
	report, err := capability.Analyze(m.cfg.Sample, m.cfg.Limits, capability.FormatOptions{LongTerm: m.cfg.LongTerm})
	if err != nil && !errors.Is(err, capability.ErrUndefinedIndex) {
		m.errMsg = flattenError(err)
		m.analyzed = false
		for i := range m.viewports {
			m.viewports[i].SetContent("Analysis failed.")
		}
		return
	}
	m.errMsg = ""
	if err != nil {
		m.errMsg = flattenError(err)
	}
	m.report = report
	m.analyzed = true
	m.capTable.SetRows(capabilityRows(report.Indices))
	m.capTable.SetHeight(maxInt(1, report.Indices.Len()+1))
	m.renderTabContents()
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 || !m.analyzed {
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabHistogram].SetContent(renderHistogram(m.cfg, m.report, width))
	m.viewports[tabControl].SetContent(renderControlChart(m.cfg, m.report, width))
	m.viewports[tabBox].SetContent(renderBoxPlot(m.cfg, m.report, width))
}

func renderHistogram(cfg Config, report capability.Report, width int) string {
	panels := blockWidth(report.ProcessData.Strings()) + blockWidth(report.Capability.Strings())
	opts := render.DefaultOptions()
	opts.Bins = cfg.Bins
	opts.Width = maxInt(10, width-panels-histogramChrome)
	var buf bytes.Buffer
	if err := render.WriteHistogramText(&buf, cfg.Sample, report, opts); err != nil {
		return fmt.Sprintf("Failed to render histogram: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func renderControlChart(cfg Config, report capability.Report, width int) string {
	chart, err := stats.Individuals(cfg.Sample, cfg.Sigma)
	if err != nil {
		return fmt.Sprintf("Failed to build control chart: %v", err)
	}
	opts := render.DefaultOptions()
	opts.Width = maxInt(10, stats.PlotWidthFor(width)/2)
	opts.Height = plotHeight
	opts.Color = true
	var buf bytes.Buffer
	if err := render.WriteControlChartText(&buf, chart, render.LimitLines(report.Classification), opts); err != nil {
		return fmt.Sprintf("Failed to render control chart: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func renderBoxPlot(cfg Config, report capability.Report, width int) string {
	groups, err := stats.GroupByCategory(cfg.Sample, cfg.Categories)
	if err != nil {
		return fmt.Sprintf("Failed to group sample: %v", err)
	}
	boxes, err := stats.Boxes(groups)
	if err != nil {
		return fmt.Sprintf("Failed to summarize groups: %v", err)
	}
	opts := render.DefaultOptions()
	// Group, five numbers and table borders take roughly 80 cells.
	opts.Width = maxInt(10, width-80)
	var buf bytes.Buffer
	if err := render.WriteBoxPlotText(&buf, boxes, render.LimitLines(report.Classification), opts); err != nil {
		return fmt.Sprintf("Failed to render box plot: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func renderSummaryCards(report capability.Report, width int) string {
	headline := capability.UndefinedMarker
	rating := capability.Unknown
	if v, ok := report.Indices.Headline(); ok {
		headline = fmt.Sprintf("%s %s", v.Name, v.String())
		rating = capability.Rate(v)
	}
	cards := []string{
		metricCard("Case", report.Case.String()),
		metricCard("Sample N", strconv.Itoa(report.Stats.Count)),
		metricCard("Mean", strconv.FormatFloat(report.Stats.Mean, 'f', 4, 64)),
		metricCard("Std Dev", strconv.FormatFloat(report.Stats.StdDevSample, 'f', 4, 64)),
		metricCard("Headline", headline),
		metricCard("Verdict", ratingStyles[rating].Render(rating.String())),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
	row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4], cards[5])
	return lipgloss.JoinVertical(lipgloss.Left, row1, row2)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func capabilityColumns() []table.Column {
	return []table.Column{
		{Title: "Index", Width: 6},
		{Title: "Value", Width: 8},
		{Title: "Rating", Width: 12},
	}
}

func capabilityRows(ix capability.Indices) []table.Row {
	values := ix.Values()
	rows := make([]table.Row, 0, len(values))
	for _, v := range values {
		rows = append(rows, table.Row{string(v.Name), v.String(), capability.Rate(v).String()})
	}
	return rows
}

func buildCapabilityTable(ix capability.Indices) table.Model {
	t := table.New(
		table.WithColumns(capabilityColumns()),
		table.WithRows(capabilityRows(ix)),
		table.WithHeight(maxInt(1, ix.Len()+1)),
	)
	t.SetStyles(capabilityTableStyles())
	return t
}

func capabilityTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) startForm() (tea.Model, tea.Cmd) {
	m.formMode = true
	m.formError = ""
	m.setInputsFromConfig()
	return m, m.setFormIndex(fieldLSL)
}

func (m *Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.formMode = false
		m.formError = ""
		return m, nil
	case tea.KeyEnter:
		if err := m.applyForm(); err != nil {
			m.formError = err.Error()
			return m, nil
		}
		m.formMode = false
		m.formError = ""
		m.refreshReport()
		m.updateLayout()
		return m, nil
	case tea.KeyTab:
		return m, m.setFormIndex(m.formIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFormIndex(m.formIndex - 1)
	}
	var cmd tea.Cmd
	m.formInputs[m.formIndex], cmd = m.formInputs[m.formIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFormIndex(idx int) tea.Cmd {
	count := len(m.formInputs)
	if count == 0 {
		return nil
	}
	if idx < 0 {
		idx = count - 1
	}
	if idx >= count {
		idx = 0
	}
	m.formIndex = idx
	var cmd tea.Cmd
	for i := range m.formInputs {
		if i == m.formIndex {
			cmd = m.formInputs[i].Focus()
		} else {
			m.formInputs[i].Blur()
		}
	}
	return cmd
}

// applyForm parses the inputs. Only malformed numbers are rejected here;
// limits that fail classification surface as an analysis error.
func (m *Model) applyForm() error {
	lower, err := parseLimit(m.formInputs[fieldLSL].Value())
	if err != nil {
		return fmt.Errorf("invalid LSL (use a number or leave empty)")
	}
	upper, err := parseLimit(m.formInputs[fieldUSL].Value())
	if err != nil {
		return fmt.Errorf("invalid USL (use a number or leave empty)")
	}
	bins := stats.DefaultBins
	if input := strings.TrimSpace(m.formInputs[fieldBins].Value()); input != "" {
		parsed, err := strconv.Atoi(input)
		if err != nil || parsed < 1 {
			return fmt.Errorf("invalid bins (use integer >= 1)")
		}
		bins = parsed
	}
	m.cfg.Limits = capability.SpecLimits{Lower: lower, Upper: upper}
	m.cfg.Bins = bins
	return nil
}

// flattenError keeps joined errors on the single footer line.
func flattenError(err error) string {
	return strings.ReplaceAll(err.Error(), "\n", "; ")
}

func parseLimit(input string) (*float64, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(input, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func nextBins(n int) int {
	if n < 5 {
		return 5
	}
	if n%5 == 0 {
		return n + 5
	}
	return ((n / 5) + 1) * 5
}

func prevBins(n int) int {
	if n <= 5 {
		return 1
	}
	if n%5 == 0 {
		return n - 5
	}
	return (n / 5) * 5
}
