package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/tinytelemetry/eventlens/internal/duckdb"
	"github.com/tinytelemetry/eventlens/internal/httpserver"
	"golang.org/x/sync/errgroup"
)

func (c *cli) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve <file>",
		Short: "Serve the dataset over the HTTP API until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.load(cmd, args[0])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, s, cmd.OutOrStdout())
		},
	}
	cmd.Flags().String("api-addr", defaultAPIAddr, "HTTP listen address")
	cmd.Flags().Int("top-n", 0, "number of top categories (default: 5 for scans, 10 for events)")
	return cmd
}

// runServer loads the dataset into DuckDB, serves the API and blocks until
// ctx is cancelled.
func runServer(ctx context.Context, s *session, out io.Writer) error {
	cleanupLogger := configureRuntimeLogger(false)
	defer cleanupLogger()

	store, err := duckdb.NewStore(s.cfg.QueryTimeout)
	if err != nil {
		return fmt.Errorf("failed to initialize DuckDB: %w", err)
	}
	defer store.Close()

	if err := store.LoadDataset(s.dataset, s.parser); err != nil {
		return fmt.Errorf("failed to load dataset into DuckDB: %w", err)
	}

	describer := s.describer()
	apiServer := httpserver.NewServer(httpserver.Config{
		Addr:         s.cfg.APIAddr,
		TopN:         s.cfg.TopN,
		Parser:       s.parser,
		User:         s.cfg.APIUser,
		PasswordHash: s.cfg.APIPasswordHash,
	}, s.dataset, store, describer)
	if err := apiServer.Start(); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}

	fmt.Fprintln(out, startupBanner(s, apiServer.Addr()))

	g, gctx := errgroup.WithContext(ctx)

	// Warm the description cache so the first lookup does not pay for the fetch.
	g.Go(func() error {
		if err := describer.Err(gctx); err != nil {
			log.Printf("server: descriptions disabled: %v", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Printf("server: shutting down")
		return apiServer.Stop()
	})

	return g.Wait()
}

func configureRuntimeLogger(toFile bool) func() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.SetOutput(os.Stderr)
	if !toFile {
		return func() {}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return func() {}
	}

	logDir := filepath.Join(home, ".local", "state", "eventlens")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return func() {}
	}

	logPath := filepath.Join(logDir, "eventlens.log")
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return func() {}
	}

	log.SetOutput(f)
	return func() {
		log.SetOutput(os.Stderr)
		_ = f.Close()
	}
}

func startupBanner(s *session, addr string) string {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")
	ds := s.dataset

	var lines []string
	lines = append(lines, "")
	lines = append(lines, "    "+cyan.Bold(true).Render("eventlens")+" "+dim.Render("v"+version))
	lines = append(lines, "")

	separator := dim.Render("    ─────────────────────────────────")
	lines = append(lines, separator, "")

	lines = append(lines, bold.Render("    Dataset"), "")
	lines = append(lines, fmt.Sprintf("    %s  Source         %s", check, dim.Render(shortenPath(ds.Source))))
	lines = append(lines, fmt.Sprintf("    %s  Schema         %s", check, dim.Render(fmt.Sprintf("%s (%s)", ds.Schema.Name, ds.Format))))
	lines = append(lines, fmt.Sprintf("    %s  Records        %s", check, dim.Render(fmt.Sprintf("%d", len(ds.Records)))))
	if ds.Skipped > 0 {
		lines = append(lines, fmt.Sprintf("    %s  Skipped rows   %s", dot, yellow.Render(fmt.Sprintf("%d", ds.Skipped))))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Gateway"), "")
	lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", check, cyan.Render("http://"+addr+"/api")))
	if s.cfg.APIUser != "" {
		lines = append(lines, fmt.Sprintf("    %s  Basic auth     %s", check, dim.Render(s.cfg.APIUser)))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Basic auth     %s", dot, dim.Render("disabled")))
	}
	switch {
	case s.cfg.DescribeFile != "":
		lines = append(lines, fmt.Sprintf("    %s  Descriptions   %s", check, dim.Render(shortenPath(s.cfg.DescribeFile))))
	case s.cfg.DescribeURL != "":
		lines = append(lines, fmt.Sprintf("    %s  Descriptions   %s", check, dim.Render(s.cfg.DescribeURL)))
	default:
		lines = append(lines, fmt.Sprintf("    %s  Descriptions   %s", dot, dim.Render("disabled")))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Config"), "")
	if s.cfg.ConfigPath != "" {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", check, dim.Render(shortenPath(s.cfg.ConfigPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", dot, dim.Render("default (no file)")))
	}

	lines = append(lines, "", separator, "")
	lines = append(lines, "    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"), "")

	return strings.Join(lines, "\n")
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
