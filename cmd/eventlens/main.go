package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tinytelemetry/eventlens/internal/aggregate"
	"github.com/tinytelemetry/eventlens/internal/describe"
	"github.com/tinytelemetry/eventlens/internal/export"
	"github.com/tinytelemetry/eventlens/internal/extract"
	"github.com/tinytelemetry/eventlens/internal/model"
	"github.com/tinytelemetry/eventlens/internal/timestamp"
	"github.com/tinytelemetry/eventlens/internal/tui"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cli carries the persistent flag values shared by every subcommand.
type cli struct {
	configPath string
}

// filterFlags are the record filters accepted by summary, export and records.
type filterFlags struct {
	levels []string
	ids    []string
	match  string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.levels, "level", nil, "only records with these level names (repeatable, comma separated)")
	cmd.Flags().StringSliceVar(&f.ids, "id", nil, "only records with these event IDs (repeatable, comma separated)")
	cmd.Flags().StringVar(&f.match, "match", "", "only records with a field matching this regex")
}

func (f *filterFlags) filter() (aggregate.Filter, error) {
	return aggregate.NewFilter(f.levels, f.ids, f.match)
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "eventlens",
		Short:         "Explore antivirus scan and Windows event-log exports",
		Long:          "eventlens loads an ESET scan XML/CSV or a Windows event-log CSV/JSON export and summarizes it in a terminal dashboard, over HTTP, or as plain text. Pass - as the file to read stdin.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "config file (default is $HOME/.config/eventlens/config.yml)")
	pf.String("format", "", "input format: xml, csv or json (default: from the file extension)")
	pf.String("schema", "", "record schema: scan or event (default: from the header)")
	pf.String("time-layout", "", "extra Go time layout tried before the built-in ones")
	pf.String("timezone", "", "IANA zone for timestamps without an offset (default: local)")

	root.AddCommand(
		c.viewCmd(),
		c.serveCmd(),
		c.summaryCmd(),
		c.exportCmd(),
		c.recordsCmd(),
		versionCmd(),
	)
	return root
}

// session is everything a subcommand needs after loading its input file.
type session struct {
	cfg     appConfig
	parser  *timestamp.Parser
	dataset *model.Dataset
}

func (c *cli) load(cmd *cobra.Command, path string) (*session, error) {
	cfg, err := loadConfig(cmd, c.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	parser, err := cfg.parser()
	if err != nil {
		return nil, err
	}
	format, _ := extract.ParseFormat(cfg.Format)

	opts := extract.Options{Format: format, Schema: cfg.Schema}
	var ds *model.Dataset
	if path == "-" {
		ds, err = loadStdin(cmd.InOrStdin(), opts)
	} else {
		ds, err = extract.Load(path, opts)
	}
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, parser: parser, dataset: ds}, nil
}

// loadStdin reads a whole document piped on stdin. The format cannot be
// detected without a file name, so it must be given.
func loadStdin(r io.Reader, opts extract.Options) (*model.Dataset, error) {
	if opts.Format == "" {
		return nil, fmt.Errorf("%w: --format is required when reading stdin", extract.ErrUnknownFormat)
	}
	ds, err := extract.LoadReader(r, "stdin", opts)
	if err != nil {
		return nil, err
	}
	log.Printf("extract: loaded %d records from stdin (format=%s schema=%s skipped=%d)",
		len(ds.Records), ds.Format, ds.Schema.Name, ds.Skipped)
	return ds, nil
}

func (s *session) options() aggregate.Options {
	return aggregate.Options{TopN: s.cfg.TopN, Parser: s.parser}
}

func (s *session) describer() *describe.Cache {
	source := describe.NewSource(s.cfg.DescribeURL, s.cfg.DescribeFile, s.cfg.DescribeTimeout)
	return describe.NewCache(source, s.cfg.DescribeTimeout)
}

// --- View ---

func (c *cli) viewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view <file>",
		Short: "Open the terminal dashboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cleanupLogger := configureRuntimeLogger(true)
			defer cleanupLogger()

			s, err := c.load(cmd, args[0])
			if err != nil {
				return err
			}
			err = tui.Run(s.dataset, tui.Options{
				TopN:      s.cfg.TopN,
				Parser:    s.parser,
				Describer: s.describer(),
				ExportDir: s.cfg.ExportDir,
			})
			if err != nil {
				if strings.Contains(err.Error(), "TTY") || strings.Contains(err.Error(), "/dev/tty") {
					return fmt.Errorf("dashboard requires a real terminal")
				}
				return fmt.Errorf("error running dashboard: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().Int("top-n", 0, "number of top categories (default: 5 for scans, 10 for events)")
	return cmd
}

// --- Summary ---

func (c *cli) summaryCmd() *cobra.Command {
	var ff filterFlags
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "summary <file>",
		Short: "Print totals, top values and level distribution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.load(cmd, args[0])
			if err != nil {
				return err
			}
			f, err := ff.filter()
			if err != nil {
				return err
			}
			view := aggregate.Build(s.dataset, f, s.options())

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(summaryDocument{
					Source:  s.dataset.Source,
					Format:  s.dataset.Format,
					Schema:  s.dataset.Schema.Name,
					Skipped: s.dataset.Skipped,
					View:    view,
				})
			}
			_, err = fmt.Fprintln(out, renderSummary(s.dataset, view))
			return err
		},
	}
	ff.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of text")
	cmd.Flags().Int("top-n", 0, "number of top categories (default: 5 for scans, 10 for events)")
	return cmd
}

type summaryDocument struct {
	Source  string         `json:"source"`
	Format  model.Format   `json:"format"`
	Schema  string         `json:"schema"`
	Skipped int            `json:"skipped"`
	View    aggregate.View `json:"view"`
}

// --- Export ---

func (c *cli) exportCmd() *cobra.Command {
	var ff filterFlags
	var output string
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write the filtered records as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.load(cmd, args[0])
			if err != nil {
				return err
			}
			f, err := ff.filter()
			if err != nil {
				return err
			}
			records := f.Apply(s.dataset.Records, s.dataset.Schema)

			if output == "-" {
				return export.WriteCSV(cmd.OutOrStdout(), s.dataset.Header, records)
			}
			if output == "" {
				output = filepath.Join(s.cfg.ExportDir, model.DefaultExportName)
			}
			if err := export.WriteFile(output, s.dataset.Header, records); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d records to %s\n", len(records), output)
			return nil
		},
	}
	ff.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path, - for stdout, .gz to compress (default: <export-dir>/"+model.DefaultExportName+")")
	return cmd
}

// --- Records ---

func (c *cli) recordsCmd() *cobra.Command {
	var ff filterFlags
	var limit int
	cmd := &cobra.Command{
		Use:   "records <file>",
		Short: "Dump records as tab-separated text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.load(cmd, args[0])
			if err != nil {
				return err
			}
			f, err := ff.filter()
			if err != nil {
				return err
			}
			records := f.Apply(s.dataset.Records, s.dataset.Schema)
			if limit > 0 && len(records) > limit {
				records = records[:limit]
			}
			return writeRecords(cmd.OutOrStdout(), s.dataset.Header, records)
		},
	}
	ff.register(cmd)
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum records to print (0 = all)")
	return cmd
}

// flattenCell keeps one record per output line.
var flattenCell = strings.NewReplacer("\r\n", " ", "\n", " ", "\t", " ")

func writeRecords(w io.Writer, header []string, records []model.LogRecord) error {
	if _, err := fmt.Fprintln(w, strings.Join(header, "\t")); err != nil {
		return err
	}
	cells := make([]string, len(header))
	for _, rec := range records {
		for i, name := range header {
			cells[i] = flattenCell.Replace(rec.Get(name))
		}
		if _, err := fmt.Fprintln(w, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}
	return nil
}

// --- Version ---

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "eventlens - Log Export Explorer\n")
			fmt.Fprintf(out, "  Version:    %s\n", version)
			fmt.Fprintf(out, "  Commit:     %s\n", commit)
			fmt.Fprintf(out, "  Built:      %s\n", buildTime)
			fmt.Fprintf(out, "  Go version: %s\n", goVersion)
		},
	}
}
