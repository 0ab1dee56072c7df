package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/spcplot/internal/capability"
	"github.com/verte-zerg/spcplot/internal/generator"
	"github.com/verte-zerg/spcplot/internal/model"
	"github.com/verte-zerg/spcplot/internal/stats"
)

const (
	defaultHistoryLimit = 20
	sparklineWidth      = 60
)

var (
	historyLimit int

	genMean   float64
	genSD     float64
	genCount  int
	genSeed   int64
	genGroups string
	genShift  float64
	genSave   string
)

func newSamplesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "samples",
		Short: "Manage stored datasets",
	}

	importCmd := &cobra.Command{
		Use:   "import NAME [file]",
		Short: "Store a sample under a name",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runSamplesImportCmd,
	}
	addSourceFlags(importCmd)

	historyCmd := &cobra.Command{
		Use:   "history NAME",
		Short: "Show recorded reports for a dataset",
		Args:  cobra.ExactArgs(1),
		RunE:  runSamplesHistoryCmd,
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", defaultHistoryLimit, "number of reports to show (0 for all)")

	cmd.AddCommand(
		importCmd,
		&cobra.Command{
			Use:   "list",
			Short: "List stored datasets",
			Args:  cobra.NoArgs,
			RunE:  runSamplesListCmd,
		},
		&cobra.Command{
			Use:   "show NAME",
			Short: "Summarize a stored dataset",
			Args:  cobra.ExactArgs(1),
			RunE:  runSamplesShowCmd,
		},
		&cobra.Command{
			Use:   "rm NAME",
			Short: "Delete a stored dataset and its history",
			Args:  cobra.ExactArgs(1),
			RunE:  runSamplesRmCmd,
		},
		historyCmd,
	)
	return cmd
}

func runSamplesImportCmd(cmd *cobra.Command, args []string) error {
	name := strings.TrimSpace(args[0])
	if sourceDataset != "" {
		return fmt.Errorf("--dataset cannot be imported; use a file or --url")
	}
	in, err := loadInput(cmdContext(cmd), cmd, args[1:])
	if err != nil {
		return err
	}
	// Invalid limits are rejected now rather than on every later report.
	if _, err := capability.Classify(in.limits); err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)
	id, err := st.SaveDataset(cmdContext(cmd), model.Dataset{
		Name:       name,
		Source:     in.sample.Source,
		Lower:      in.limits.Lower,
		Upper:      in.limits.Upper,
		Values:     in.sample.Values,
		Categories: in.sample.Categories,
	})
	if err != nil {
		return fmt.Errorf("failed to save dataset: %w", err)
	}
	logger.Debug("saved dataset", "name", name, "id", id)
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Stored %s (%d values)\n", name, len(in.sample.Values))
	return err
}

func runSamplesListCmd(cmd *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)
	infos, err := st.ListDatasets(cmdContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to list datasets: %w", err)
	}
	if len(infos) == 0 {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "No datasets stored. Import with: spcplot samples import NAME FILE")
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), datasetTable(infos, time.Now()))
	return err
}

func datasetTable(infos []model.DatasetInfo, now time.Time) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Name", "N", "LSL", "USL", "Source", "Stored"})
	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	for _, info := range infos {
		tbl.AppendRow(table.Row{
			info.Name,
			info.Count,
			formatLimit(info.Lower),
			formatLimit(info.Upper),
			info.Source,
			humanize.RelTime(info.CreatedAt, now, "ago", "from now"),
		})
	}
	return tbl.Render()
}

func runSamplesShowCmd(cmd *cobra.Command, args []string) error {
	ds, err := loadDataset(cmdContext(cmd), args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	summary, err := stats.Summarize(ds.Values)
	if err != nil {
		return fmt.Errorf("failed to summarize %s: %w", ds.Name, err)
	}
	rows := [][]string{
		{"Name", ds.Name},
		{"Source", ds.Source},
		{"Stored", humanize.Time(ds.CreatedAt)},
		{capability.LabelLSL, formatLimit(ds.Lower)},
		{capability.LabelUSL, formatLimit(ds.Upper)},
		{capability.LabelCount, strconv.Itoa(summary.Count)},
		{capability.LabelMean, strconv.FormatFloat(summary.Mean, 'f', 4, 64)},
		{capability.LabelStdDev, strconv.FormatFloat(summary.StdDevSample, 'f', 4, 64)},
		{"Min", strconv.FormatFloat(summary.Min, 'f', 4, 64)},
		{"Max", strconv.FormatFloat(summary.Max, 'f', 4, 64)},
	}
	if ds.Categories != nil {
		groups, err := stats.GroupByCategory(ds.Values, ds.Categories)
		if err != nil {
			return err
		}
		rows = append(rows, []string{"Groups", strconv.Itoa(len(groups))})
	}
	for _, line := range stats.FormatTable(nil, rows, nil) {
		if _, err := fmt.Fprintln(out, strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(out, stats.Sparkline(stats.Downsample(ds.Values, sparklineWidth)))
	return err
}

func runSamplesRmCmd(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)
	if err := st.DeleteDataset(cmdContext(cmd), args[0]); err != nil {
		return fmt.Errorf("failed to delete dataset %q: %w", args[0], err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
	return err
}

func runSamplesHistoryCmd(cmd *cobra.Command, args []string) error {
	ds, err := loadDataset(cmdContext(cmd), args[0])
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)
	records, err := st.ListReports(cmdContext(cmd), ds.ID, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list reports: %w", err)
	}
	if len(records) == 0 {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "No reports recorded for %s. Run: spcplot hist --dataset %s\n", ds.Name, ds.Name)
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), historyTable(records, time.Now()))
	return err
}

func historyTable(records []model.ReportRecord, now time.Time) string {
	names := []string{}
	seen := map[string]bool{}
	for _, rec := range records {
		for _, iv := range rec.IndexValues {
			if !seen[iv.Name] {
				seen[iv.Name] = true
				names = append(names, iv.Name)
			}
		}
	}

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	header := table.Row{"When", "Case", "N", "Mean", "Std Dev"}
	for _, name := range names {
		header = append(header, name)
	}
	tbl.AppendHeader(header)
	for _, rec := range records {
		row := table.Row{
			humanize.RelTime(rec.CreatedAt, now, "ago", "from now"),
			rec.Case,
			rec.Count,
			strconv.FormatFloat(rec.Mean, 'f', 4, 64),
			strconv.FormatFloat(rec.StdDev, 'f', 4, 64),
		}
		values := make(map[string]*float64, len(rec.IndexValues))
		for _, iv := range rec.IndexValues {
			values[iv.Name] = iv.Value
		}
		for _, name := range names {
			v, ok := values[name]
			switch {
			case !ok:
				row = append(row, "")
			case v == nil:
				row = append(row, capability.UndefinedMarker)
			default:
				row = append(row, strconv.FormatFloat(*v, 'f', 2, 64))
			}
		}
		tbl.AppendRow(row)
	}
	return tbl.Render()
}

func newGenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate a synthetic normal sample",
		Args:  cobra.NoArgs,
		RunE:  runGenCmd,
	}
	cmd.Flags().Float64Var(&genMean, "mean", generator.DefaultMean, "sample mean")
	cmd.Flags().Float64Var(&genSD, "sd", generator.DefaultSD, "sample standard deviation")
	cmd.Flags().IntVar(&genCount, "count", generator.DefaultCount, "number of values (per group with --shift)")
	cmd.Flags().Int64Var(&genSeed, "seed", generator.DefaultSeed, "random seed (0 for time based)")
	cmd.Flags().StringVar(&genGroups, "groups", "", "comma separated group labels")
	cmd.Flags().Float64Var(&genShift, "shift", 0, "mean shift between consecutive groups")
	cmd.Flags().StringVar(&genSave, "save", "", "store the sample as a dataset instead of printing it")
	cmd.Flags().Float64Var(&sourceLSL, "lsl", 0, "lower specification limit stored with --save")
	cmd.Flags().Float64Var(&sourceUSL, "usl", 0, "upper specification limit stored with --save")
	cmd.Flags().StringVarP(&reportOut, "out", "o", "", "output file (default: stdout)")
	return cmd
}

func runGenCmd(cmd *cobra.Command, _ []string) error {
	gen := generator.NewSeeded(genSeed)
	if genSeed == 0 {
		gen = generator.New()
	}
	groups := splitGroups(genGroups)

	var values []float64
	var categories []string
	var err error
	if genShift != 0 && len(groups) > 0 {
		values, categories, err = gen.Shifted(groups, genMean, genSD, genShift, genCount)
	} else {
		values, err = gen.Normal(genMean, genSD, genCount)
		categories = generator.Categories(groups, len(values))
	}
	if err != nil {
		return err
	}

	if genSave != "" {
		var limits capability.SpecLimits
		if cmd.Flags().Changed("lsl") {
			limits.Lower = capability.Limit(sourceLSL)
		}
		if cmd.Flags().Changed("usl") {
			limits.Upper = capability.Limit(sourceUSL)
		}
		if _, err := capability.Classify(limits); err != nil {
			return err
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore(st)
		_, err = st.SaveDataset(cmdContext(cmd), model.Dataset{
			Name:       genSave,
			Source:     fmt.Sprintf("gen seed=%d mean=%g sd=%g", genSeed, genMean, genSD),
			Lower:      limits.Lower,
			Upper:      limits.Upper,
			Values:     values,
			Categories: categories,
		})
		if err != nil {
			return fmt.Errorf("failed to save dataset: %w", err)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Stored %s (%d values)\n", genSave, len(values))
		return err
	}

	return writeOutput(cmd, reportOut, func(w io.Writer) error {
		return writeSample(w, values, categories)
	})
}

func splitGroups(input string) []string {
	var out []string
	for _, part := range strings.Split(input, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// writeSample prints one value per line, or CSV with a group column.
func writeSample(w io.Writer, values []float64, categories []string) error {
	writer := bufio.NewWriter(w)
	if categories != nil {
		if _, err := fmt.Fprintln(writer, "value,group"); err != nil {
			return err
		}
	}
	for i, v := range values {
		line := strconv.FormatFloat(v, 'f', 6, 64)
		if categories != nil {
			line += "," + categories[i]
		}
		if _, err := fmt.Fprintln(writer, line); err != nil {
			return fmt.Errorf("failed to write sample: %w", err)
		}
	}
	return writer.Flush()
}

func formatLimit(v *float64) string {
	if v == nil {
		return capability.AbsentLimit
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if c := cmd.Context(); c != nil {
		return c
	}
	return context.Background()
}
