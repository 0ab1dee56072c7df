package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/spcplot/internal/capability"
	"github.com/verte-zerg/spcplot/internal/config"
	"github.com/verte-zerg/spcplot/internal/model"
	"github.com/verte-zerg/spcplot/internal/render"
	"github.com/verte-zerg/spcplot/internal/sampleio"
	"github.com/verte-zerg/spcplot/internal/stats"
	"github.com/verte-zerg/spcplot/internal/store"
	"github.com/verte-zerg/spcplot/internal/viewer"
)

var (
	reportTitle          string
	reportLongTerm       bool
	reportBins           int
	reportSigma          float64
	reportWidth          int
	reportHeight         int
	reportPNGWidth       int
	reportPNGHeight      int
	reportFormat         string
	reportOut            string
	reportAllowUndefined bool
	reportYMin           float64
	reportYMax           float64
	reportBoxWidth       float64
	reportHollow         bool
	reportSwarm          bool

	sourceURL      string
	sourceDataset  string
	sourceColumn   string
	sourceCategory string
	sourceLSL      float64
	sourceUSL      float64
)

// input is a loaded sample with the limits that apply to it.
type input struct {
	sample    sampleio.Sample
	limits    capability.SpecLimits
	datasetID int64
}

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&sourceURL, "url", "", "fetch the sample from an http(s) URL")
	cmd.Flags().StringVar(&sourceDataset, "dataset", "", "use a stored dataset")
	cmd.Flags().StringVar(&sourceColumn, "column", "", "CSV column holding the measurements")
	cmd.Flags().StringVar(&sourceCategory, "category", "", "CSV column holding group labels")
	cmd.Flags().Float64Var(&sourceLSL, "lsl", 0, "lower specification limit")
	cmd.Flags().Float64Var(&sourceUSL, "usl", 0, "upper specification limit")
}

func addChartFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&reportTitle, "title", "", "report title")
	cmd.Flags().IntVar(&reportWidth, "width", defaultWidth, "text plot width in cells")
	cmd.Flags().IntVar(&reportHeight, "height", defaultHeight, "text plot height in rows")
	cmd.Flags().IntVar(&reportPNGWidth, "png-width", defaultPNGW, "PNG width in pixels")
	cmd.Flags().IntVar(&reportPNGHeight, "png-height", defaultPNGH, "PNG height in pixels")
	cmd.Flags().StringVarP(&reportOut, "out", "o", "", "output file (default: stdout)")
}

func newHistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hist [file]",
		Short: "Capability histogram with process data and indices",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHistCmd,
	}
	addSourceFlags(cmd)
	addChartFlags(cmd)
	cmd.Flags().StringVarP(&reportFormat, "format", "f", render.FormatText, "output format: text, png or html")
	cmd.Flags().IntVar(&reportBins, "bins", defaultBins, "histogram bin count")
	cmd.Flags().BoolVar(&reportLongTerm, "long-term", defaultLongTerm, "include overall (Pp/Ppk) capability")
	cmd.Flags().BoolVar(&reportAllowUndefined, "allow-undefined", false, "exit zero when an index is undefined")
	return cmd
}

func runHistCmd(cmd *cobra.Command, args []string) error {
	cfg, err := resolveReportConfig(cmd)
	if err != nil {
		return err
	}
	format, err := render.ParseFormat(reportFormat)
	if err != nil {
		return err
	}
	ctx := cmdContext(cmd)
	in, err := loadInput(ctx, cmd, args)
	if err != nil {
		return err
	}

	report, err := capability.Analyze(in.sample.Values, in.limits, capability.FormatOptions{LongTerm: cfg.LongTerm})
	var undefinedErr error
	if err != nil {
		if !errors.Is(err, capability.ErrUndefinedIndex) {
			return fmt.Errorf("failed to analyze %s: %w", in.sample.Source, err)
		}
		undefinedErr = err
	}
	logger.Debug("analyzed sample", "source", in.sample.Source, "n", report.Stats.Count, "case", report.Case.String())

	opts := renderOptions(cfg)
	err = writeOutput(cmd, reportOut, func(w io.Writer) error {
		return render.WriteHistogram(w, format, in.sample.Values, report, opts)
	})
	if err != nil {
		return fmt.Errorf("failed to render histogram: %w", err)
	}

	if in.datasetID != 0 {
		if err := recordReport(ctx, in.datasetID, report); err != nil {
			return fmt.Errorf("failed to record report: %w", err)
		}
	}

	verdictOut := cmd.ErrOrStderr()
	if format == render.FormatText && (reportOut == "" || reportOut == "-") {
		verdictOut = cmd.OutOrStdout()
	}
	if err := printVerdict(verdictOut, report, cfg.LongTerm); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if undefinedErr != nil {
		logger.Warn("capability indices undefined", "source", in.sample.Source, "reason", undefinedErr.Error())
		if !reportAllowUndefined {
			return fmt.Errorf("report has undefined indices (use --allow-undefined to accept): %w", undefinedErr)
		}
	}
	return nil
}

func newControlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "control [file]",
		Short: "Individuals control chart",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runControlCmd,
	}
	addSourceFlags(cmd)
	addChartFlags(cmd)
	cmd.Flags().StringVarP(&reportFormat, "format", "f", render.FormatText, "output format: text or png")
	cmd.Flags().Float64Var(&reportSigma, "sigma", defaultSigma, "control limit multiplier")
	return cmd
}

func runControlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := resolveReportConfig(cmd)
	if err != nil {
		return err
	}
	format, err := render.ParseFormat(reportFormat)
	if err != nil {
		return err
	}
	in, err := loadInput(cmdContext(cmd), cmd, args)
	if err != nil {
		return err
	}
	classification, err := capability.Classify(in.limits)
	if err != nil {
		return err
	}
	chart, err := stats.Individuals(in.sample.Values, cfg.Sigma)
	if err != nil {
		return fmt.Errorf("failed to build control chart for %s: %w", in.sample.Source, err)
	}
	if len(chart.Violations) > 0 {
		logger.Warn("points outside control limits", "source", in.sample.Source, "count", len(chart.Violations))
	}

	opts := renderOptions(cfg)
	limits := render.LimitLines(classification)
	return writeOutput(cmd, reportOut, func(w io.Writer) error {
		return render.WriteControlChart(w, format, chart, limits, opts)
	})
}

func newBoxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "box [file]",
		Short: "Box plot per category",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runBoxCmd,
	}
	addSourceFlags(cmd)
	addChartFlags(cmd)
	cmd.Flags().StringVarP(&reportFormat, "format", "f", render.FormatText, "output format: text or png")
	cmd.Flags().Float64Var(&reportYMin, "ymin", 0, "clamp the box scale from below")
	cmd.Flags().Float64Var(&reportYMax, "ymax", 0, "clamp the box scale from above")
	cmd.Flags().Float64Var(&reportBoxWidth, "box-width", render.DefaultBoxWidth, "PNG box width as a fraction of the group spacing")
	cmd.Flags().BoolVar(&reportHollow, "hollow", false, "draw PNG boxes without fill")
	cmd.Flags().BoolVar(&reportSwarm, "swarm", false, "overlay every observation on the PNG boxes")
	return cmd
}

func runBoxCmd(cmd *cobra.Command, args []string) error {
	cfg, err := resolveReportConfig(cmd)
	if err != nil {
		return err
	}
	format, err := render.ParseFormat(reportFormat)
	if err != nil {
		return err
	}
	if reportBoxWidth <= 0 || reportBoxWidth > 1 {
		return fmt.Errorf("--box-width must be in (0, 1]")
	}
	in, err := loadInput(cmdContext(cmd), cmd, args)
	if err != nil {
		return err
	}
	classification, err := capability.Classify(in.limits)
	if err != nil {
		return err
	}
	groups, err := stats.GroupByCategory(in.sample.Values, in.sample.Categories)
	if err != nil {
		return err
	}

	opts := renderOptions(cfg)
	opts.BoxWidth = reportBoxWidth
	opts.BoxHollow = reportHollow
	opts.Swarm = reportSwarm
	if cmd.Flags().Changed("ymin") {
		v := reportYMin
		opts.YMin = &v
	}
	if cmd.Flags().Changed("ymax") {
		v := reportYMax
		opts.YMax = &v
	}
	if opts.YMin != nil && opts.YMax != nil && *opts.YMin >= *opts.YMax {
		return fmt.Errorf("--ymin must be below --ymax")
	}
	limits := render.LimitLines(classification)
	err = writeOutput(cmd, reportOut, func(w io.Writer) error {
		return render.WriteBoxPlot(w, format, groups, limits, opts)
	})
	if err != nil {
		return fmt.Errorf("failed to render box plot: %w", err)
	}
	return nil
}

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view [file]",
		Short: "Interactive capability viewer",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runViewCmd,
	}
	addSourceFlags(cmd)
	cmd.Flags().StringVar(&reportTitle, "title", "", "report title")
	cmd.Flags().IntVar(&reportBins, "bins", defaultBins, "histogram bin count")
	cmd.Flags().Float64Var(&reportSigma, "sigma", defaultSigma, "control limit multiplier")
	cmd.Flags().BoolVar(&reportLongTerm, "long-term", defaultLongTerm, "include overall (Pp/Ppk) capability")
	return cmd
}

func runViewCmd(cmd *cobra.Command, args []string) error {
	cfg, err := resolveReportConfig(cmd)
	if err != nil {
		return err
	}
	in, err := loadInput(cmdContext(cmd), cmd, args)
	if err != nil {
		return err
	}
	m := viewer.NewModel(viewer.Config{
		Title:      cfg.Title,
		Sample:     in.sample.Values,
		Categories: in.sample.Categories,
		Limits:     in.limits,
		Bins:       cfg.Bins,
		Sigma:      cfg.Sigma,
		LongTerm:   cfg.LongTerm,
	})
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run viewer: %w", err)
	}
	return nil
}

// loadInput resolves exactly one sample source: a file argument ("-" for
// stdin), --url or --dataset. --lsl and --usl override stored limits.
func loadInput(ctx context.Context, cmd *cobra.Command, args []string) (input, error) {
	sources := 0
	for _, set := range []bool{len(args) > 0, sourceURL != "", sourceDataset != ""} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return input{}, fmt.Errorf("exactly one sample source is required: FILE, --url or --dataset")
	}

	opts := sampleio.Options{Column: sourceColumn, CategoryColumn: sourceCategory}
	var in input
	switch {
	case sourceDataset != "":
		ds, err := loadDataset(ctx, sourceDataset)
		if err != nil {
			return input{}, err
		}
		in.sample = sampleio.Sample{Source: ds.Source, Values: ds.Values, Categories: ds.Categories}
		in.limits = capability.SpecLimits{Lower: ds.Lower, Upper: ds.Upper}
		in.datasetID = ds.ID
	case sourceURL != "":
		sample, file, err := sampleio.FetchSample(ctx, sourceURL, config.DefaultCacheDir(), opts)
		if err != nil {
			return input{}, fmt.Errorf("failed to fetch sample: %w", err)
		}
		logger.Debug("fetched sample", "url", file.URL, "path", file.Path, "cached", file.Cached)
		in.sample = sample
	case args[0] == "-":
		sample, err := sampleio.Load(cmd.InOrStdin(), "stdin", opts)
		if err != nil {
			return input{}, fmt.Errorf("failed to read sample: %w", err)
		}
		in.sample = sample
	default:
		sample, err := sampleio.LoadFile(args[0], opts)
		if err != nil {
			return input{}, fmt.Errorf("failed to load sample: %w", err)
		}
		in.sample = sample
	}

	if cmd.Flags().Changed("lsl") {
		v := sourceLSL
		in.limits.Lower = &v
	}
	if cmd.Flags().Changed("usl") {
		v := sourceUSL
		in.limits.Upper = &v
	}
	logger.Debug("loaded sample", "source", in.sample.Source, "n", len(in.sample.Values))
	return in, nil
}

func openStore() (*store.Store, error) {
	st, err := store.Open(dbPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if cerr := st.Close(); cerr != nil {
		logger.Error(cerr, "failed to close db")
	}
}

func loadDataset(ctx context.Context, name string) (model.Dataset, error) {
	st, err := openStore()
	if err != nil {
		return model.Dataset{}, err
	}
	defer closeStore(st)
	ds, err := st.GetDataset(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return model.Dataset{}, fmt.Errorf("dataset %q not found (see: spcplot samples list)", name)
	}
	if err != nil {
		return model.Dataset{}, fmt.Errorf("failed to load dataset: %w", err)
	}
	return ds, nil
}

func recordReport(ctx context.Context, datasetID int64, report capability.Report) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)
	limits := report.Classification.Limits()
	rec := model.ReportRecord{
		DatasetID: datasetID,
		Case:      report.Case.String(),
		Count:     report.Stats.Count,
		Mean:      report.Stats.Mean,
		StdDev:    report.Stats.StdDevSample,
		Lower:     limits.Lower,
		Upper:     limits.Upper,
	}
	for _, v := range report.Indices.Values() {
		iv := model.IndexValue{Name: string(v.Name)}
		if v.Defined {
			f := v.Float
			iv.Value = &f
		}
		rec.IndexValues = append(rec.IndexValues, iv)
	}
	id, err := st.InsertReport(ctx, rec)
	if err != nil {
		return err
	}
	logger.Debug("recorded report", "dataset_id", datasetID, "report_id", id)
	return nil
}

// printVerdict writes the headline index and its rating in color.
func printVerdict(w io.Writer, report capability.Report, longTerm bool) error {
	v, ok := report.Indices.Headline()
	if !ok {
		_, err := fmt.Fprintln(w, "Verdict: no specification limits, capability not assessed")
		return err
	}
	rating := capability.Rate(v)
	if _, err := ratingColor(rating).Fprintf(w, "Verdict: %s = %s (%s)", v.Name, v, rating); err != nil {
		return err
	}
	if overall, ok := report.Indices.OverallHeadline(); ok && longTerm {
		if _, err := ratingColor(capability.Rate(overall)).Fprintf(w, "  %s = %s (%s)", overall.Name, overall, capability.Rate(overall)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

func ratingColor(r capability.Rating) *color.Color {
	switch r {
	case capability.Capable:
		return color.New(color.FgGreen)
	case capability.Marginal:
		return color.New(color.FgYellow)
	case capability.NotCapable:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgCyan)
	}
}
