// Package main provides the CLI entrypoint for spcplot.
package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/spcplot/internal/config"
	"github.com/verte-zerg/spcplot/internal/logging"
	"github.com/verte-zerg/spcplot/internal/model"
	"github.com/verte-zerg/spcplot/internal/render"
	"github.com/verte-zerg/spcplot/internal/stats"
)

const (
	defaultLongTerm = true
	defaultBins     = stats.DefaultBins
	defaultSigma    = stats.DefaultSigmaMultiplier
	defaultWidth    = render.DefaultTextWidth
	defaultHeight   = render.DefaultTextHeight
	defaultPNGW     = render.DefaultPNGWidth
	defaultPNGH     = render.DefaultPNGHeight
)

var (
	globalVerbose bool
	globalNoColor bool
	globalDBPath  string
	globalConfig  string

	configPrint bool

	logger = logging.Nop()
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "spcplot",
		Short:         "Process capability reports for measurement samples",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			logger = logging.New(globalVerbose)
			if globalNoColor {
				color.NoColor = true
			}
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&globalVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&globalNoColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&globalDBPath, "db", "", "dataset database path (default: XDG data dir)")
	rootCmd.PersistentFlags().StringVar(&globalConfig, "config", "", "config file path (default: XDG config dir)")

	rootCmd.AddCommand(newHistCmd())
	rootCmd.AddCommand(newControlCmd())
	rootCmd.AddCommand(newBoxCmd())
	rootCmd.AddCommand(newViewCmd())
	rootCmd.AddCommand(newGenCmd())
	rootCmd.AddCommand(newSamplesCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func dbPath() string {
	if globalDBPath != "" {
		return globalDBPath
	}
	return config.DefaultDBPath()
}

func configPath() string {
	if globalConfig != "" {
		return globalConfig
	}
	return config.DefaultConfigPath()
}

// resolveReportConfig merges the config file into the report flags. Flags
// set on the command line always win.
func resolveReportConfig(cmd *cobra.Command) (model.ReportConfig, error) {
	fileCfg, err := config.LoadConfig(configPath())
	if err != nil {
		return model.ReportConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "title", &reportTitle, fileCfg.Report.Title)
	applyBoolConfig(cmd, "long-term", &reportLongTerm, fileCfg.Report.LongTerm)
	applyIntConfig(cmd, "bins", &reportBins, fileCfg.Histogram.Bins)
	applyFloatConfig(cmd, "sigma", &reportSigma, fileCfg.Control.Sigma)
	applyIntConfig(cmd, "width", &reportWidth, fileCfg.Chart.Width)
	applyIntConfig(cmd, "height", &reportHeight, fileCfg.Chart.Height)
	applyIntConfig(cmd, "png-width", &reportPNGWidth, fileCfg.Chart.PNGWidth)
	applyIntConfig(cmd, "png-height", &reportPNGHeight, fileCfg.Chart.PNGHeight)

	cfg := model.ReportConfig{
		Title:     reportTitle,
		LongTerm:  reportLongTerm,
		Bins:      reportBins,
		Sigma:     reportSigma,
		Width:     reportWidth,
		Height:    reportHeight,
		PNGWidth:  reportPNGWidth,
		PNGHeight: reportPNGHeight,
	}
	if err := validateConfig(cfg); err != nil {
		return model.ReportConfig{}, err
	}
	return cfg, nil
}

func validateConfig(cfg model.ReportConfig) error {
	if cfg.Bins <= 0 {
		return fmt.Errorf("--bins must be > 0")
	}
	if cfg.Sigma <= 0 {
		return fmt.Errorf("--sigma must be > 0")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("--width and --height must be > 0")
	}
	if cfg.PNGWidth <= 0 || cfg.PNGHeight <= 0 {
		return fmt.Errorf("--png-width and --png-height must be > 0")
	}
	return nil
}

func renderOptions(cfg model.ReportConfig) render.Options {
	opts := render.DefaultOptions()
	opts.Title = cfg.Title
	opts.Bins = cfg.Bins
	opts.Width = cfg.Width
	opts.Height = cfg.Height
	opts.PNGWidth = cfg.PNGWidth
	opts.PNGHeight = cfg.PNGHeight
	opts.Color = !color.NoColor
	return opts
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
	cmd.Flags().BoolVar(&configPrint, "print", false, "print the effective config file values instead of opening an editor")
	return cmd
}

func runConfigCmd(cmd *cobra.Command, _ []string) error {
	path := configPath()
	if configPrint {
		fileCfg, err := config.LoadConfig(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return config.Encode(cmd.OutOrStdout(), fileCfg)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		logger.Info("created config", "path", path)
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	editCmd := exec.Command(parts[0], append(parts[1:], path)...)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	if err := editCmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# spcplot configuration
# Uncomment a value to enable it. CLI flags override config values.

[report]
# title = "Bore diameter"  # Title printed above every report
# long-term = %t           # Include the overall (Pp/Ppk) section

[histogram]
# bins = %d                # Histogram bin count

[chart]
# width = %d               # Text plot width in cells
# height = %d              # Text plot height in rows
# png-width = %d         # PNG width in pixels
# png-height = %d         # PNG height in pixels

[control]
# sigma = %.1f             # Control limit multiplier
`,
		defaultLongTerm,
		defaultBins,
		defaultWidth,
		defaultHeight,
		defaultPNGW,
		defaultPNGH,
		defaultSigma,
	)
}

// writeOutput streams the rendering to stdout, or atomically replaces path.
func writeOutput(cmd *cobra.Command, path string, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(cmd.OutOrStdout())
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".spcplot-*")
	if err != nil {
		return fmt.Errorf("failed to create temp output: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if err := write(tmpFile); err != nil {
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close output: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	logger.Info("wrote report", "path", path)
	return nil
}
