// joltsplot: JOLTS openings, hires and separations from FRED, drawn as a
// stacked area of separations under lines of hires and openings.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/seenimoa/joltsplot/internal/config"
	"github.com/seenimoa/joltsplot/internal/infra"
	"github.com/seenimoa/joltsplot/internal/pipeline"
	"github.com/seenimoa/joltsplot/internal/provider"
	"github.com/seenimoa/joltsplot/internal/providers"
	"github.com/seenimoa/joltsplot/internal/report"
	"github.com/seenimoa/joltsplot/pkg/logger"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "joltsplot",
	Short: "Plot JOLTS openings, hires, quits and layoffs from FRED",
	Long: `joltsplot downloads the JOLTS series JTSJOL, JTSQUL, JTSHIL and JTSLDL
from FRED, relabels them openings, quits, hires and layoffs, and draws
quits and layoffs as a stacked area with hires and openings as lines on
the same axes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := applyFlags(cmd, cfg); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		l, err := logger.Setup(cfg.Logging)
		if err != nil {
			return err
		}
		cmd.SetContext(logger.WithContext(cmd.Context(), l))
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateChart(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		opts, err := loadOptions()
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		opts.Output = &buf

		res, err := pipeline.Run(cmd.Context(), opts)
		if err != nil {
			return err
		}
		if err := writeFile(cfg.Chart.Output, buf.Bytes()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d rows, %s to %s)\n",
			cfg.Chart.Output, res.Table.Len(), firstDate(res), lastDate(res))
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file path (default: ./config/config.yaml)")
	pf.String("log-level", "", "log level override (debug, info, warn, error)")
	pf.String("source", "", "data source (fred, fred-api)")
	pf.String("start", "", "first observation date, YYYY-MM-DD")
	pf.String("end", "", "last observation date, YYYY-MM-DD (default: latest)")

	f := rootCmd.Flags()
	f.StringP("output", "o", "", "output image path (default: jolts.svg)")
	f.String("format", "", "image format: svg or png (default: from output extension)")
	f.String("title", "", "chart title")
	f.Int("width", 0, "image width in pixels")
	f.Int("height", 0, "image height in pixels")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(tableCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(sourcesCmd)
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	strs := map[string]*string{
		"log-level": &cfg.Logging.Level,
		"source":    &cfg.Fetch.Source,
		"start":     &cfg.Fetch.Start,
		"end":       &cfg.Fetch.End,
		"output":    &cfg.Chart.Output,
		"format":    &cfg.Chart.Format,
		"title":     &cfg.Chart.Title,
	}
	for name, dst := range strs {
		if flags.Lookup(name) == nil || !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}
	ints := map[string]*int{
		"width":  &cfg.Chart.Width,
		"height": &cfg.Chart.Height,
	}
	for name, dst := range ints {
		if flags.Lookup(name) == nil || !flags.Changed(name) {
			continue
		}
		v, err := flags.GetInt(name)
		if err != nil {
			return err
		}
		*dst = v
	}
	return nil
}

// newRegistry registers the FRED sources behind one rate-limited client.
func newRegistry(cfg *config.Config) (*provider.Registry, error) {
	reg := provider.NewRegistry()
	client := infra.NewClient(cfg.Timeout(), infra.PerMinute(cfg.FRED.RateLimit))
	if err := providers.RegisterAllTo(reg, client); err != nil {
		return nil, fmt.Errorf("register sources: %w", err)
	}
	return reg, nil
}

// loadOptions builds pipeline options for the loaded configuration.
func loadOptions() (pipeline.Options, error) {
	reg, err := newRegistry(cfg)
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.FromConfig(cfg, reg)
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func firstDate(res *pipeline.Result) string {
	idx := res.Table.Index()
	if len(idx) == 0 {
		return "-"
	}
	return idx[0].Format("2006-01")
}

func lastDate(res *pipeline.Result) string {
	idx := res.Table.Index()
	if len(idx) == 0 {
		return "-"
	}
	return idx[len(idx)-1].Format("2006-01")
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("joltsplot %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Table Command ---

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Print the relabeled series as a table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tail, _ := cmd.Flags().GetInt("tail")
		opts, err := loadOptions()
		if err != nil {
			return err
		}
		res, err := pipeline.Load(cmd.Context(), opts)
		if err != nil {
			return err
		}
		report.WriteTable(cmd.OutOrStdout(), res.Table, tail)
		return nil
	},
}

func init() {
	tableCmd.Flags().Int("tail", 12, "print only the last N rows (0 for all)")
}

// --- Export Command ---

var exportCmd = &cobra.Command{
	Use:   "export <file.csv|file.xlsx>",
	Short: "Write the relabeled series to a CSV or XLSX file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		sheet, _ := cmd.Flags().GetString("sheet")

		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".csv" && ext != ".xlsx" {
			return fmt.Errorf("export: unsupported file type %q (want .csv or .xlsx)", ext)
		}

		opts, err := loadOptions()
		if err != nil {
			return err
		}
		res, err := pipeline.Load(cmd.Context(), opts)
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if ext == ".csv" {
			err = report.WriteCSV(&buf, res.Table)
		} else {
			err = report.WriteWorkbook(&buf, res.Table, sheet)
		}
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		if err := writeFile(path, buf.Bytes()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d rows)\n", path, res.Table.Len())
		return nil
	},
}

func init() {
	exportCmd.Flags().String("sheet", "jolts", "worksheet name for .xlsx output")
}

// --- Describe Command ---

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Show the title, units and frequency of each series",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := loadOptions()
		if err != nil {
			return err
		}
		infos, err := pipeline.Describe(cmd.Context(), opts)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Series", "Label", "Title", "Units", "Frequency"})
		for _, info := range infos {
			label, _ := opts.Labels.Label(info.ID)
			t.AppendRow(table.Row{info.ID, label, info.Title, info.Units, info.Frequency})
		}
		t.Render()
		return nil
	},
}

// --- Sources Command ---

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List data sources and API key status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		reg, err := newRegistry(cfg)
		if err != nil {
			return err
		}

		fmt.Fprintln(w, "Data sources:")
		for _, info := range reg.List() {
			marker := " "
			if info.Name == cfg.Fetch.Source {
				marker = "*"
			}
			fmt.Fprintf(w, "  %s %-10s %s\n", marker, info.Name, info.Description)
			for _, c := range info.Credentials {
				req := "optional"
				if c.Required {
					req = "required"
				}
				fmt.Fprintf(w, "      %s (%s, env %s)\n", c.Name, req, c.EnvVar)
			}
		}
		fmt.Fprintln(w)

		fmt.Fprintln(w, "API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "not set"
			if k.IsSet {
				status = fmt.Sprintf("set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Fprintf(w, "  %-25s %s\n", k.Name+":", status)
		}
		return nil
	},
}
