// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/poiesic/catalogsearch"
	"github.com/poiesic/catalogsearch/catalog"
	"github.com/poiesic/catalogsearch/config"
	"github.com/poiesic/catalogsearch/core"
	"github.com/poiesic/catalogsearch/search"
	"github.com/poiesic/catalogsearch/shell"
	"github.com/urfave/cli/v2"
)

const configKey = "config"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	catalogFlag := &cli.StringFlag{
		Name:    "catalog",
		Aliases: []string{"c"},
		Usage:   "Path to the product catalog CSV (overrides ingest.catalog)",
	}

	return &cli.App{
		Name:  "catalogsearch",
		Usage: "Natural-language search over a product catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to the YAML configuration file",
				Value: "catalogsearch.yaml",
			},
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "Environment files to load before reading configuration",
				Value: cli.NewStringSlice(".env"),
			},
		},
		Before: before,
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "Normalize, embed and index every product in the catalog",
				Action: ingestCommand,
				Flags: []cli.Flag{
					catalogFlag,
					&cli.BoolFlag{
						Name:  "no-progress",
						Usage: "Disable the progress bar",
					},
				},
			},
			{
				Name:   "search",
				Usage:  "Search an already populated index interactively",
				Action: searchCommand,
				Flags: []cli.Flag{
					catalogFlag,
					&cli.StringFlag{
						Name:    "query",
						Aliases: []string{"q"},
						Usage:   "Run a single query and exit",
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Number of results per query (overrides search.top_k)",
					},
				},
			},
			{
				Name:   "shell",
				Usage:  "Ingest the catalog, then start the interactive prompt",
				Action: shellCommand,
				Flags: []cli.Flag{
					catalogFlag,
					&cli.BoolFlag{
						Name:  "no-progress",
						Usage: "Disable the progress bar",
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Report how many vectors the index holds against the catalog size",
				Action: statsCommand,
				Flags:  []cli.Flag{catalogFlag},
			},
			{
				Name:   "init-config",
				Usage:  "Write the default configuration file",
				Action: initConfigCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
			},
		},
	}
}

// before loads environment files and configuration, then configures
// logging. An explicit --log-level wins over log.level.
func before(c *cli.Context) error {
	if err := config.LoadEnv(c.StringSlice("env-file")...); err != nil {
		return err
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return err
	}

	if !c.IsSet("log-level") && cfg.Log.Level != "" {
		if err := c.Set("log-level", cfg.Log.Level); err != nil {
			return err
		}
	}
	if err := setupLogger(c); err != nil {
		return err
	}

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]any{}
	}
	c.App.Metadata[configKey] = cfg
	return nil
}

func loadedConfig(c *cli.Context) (*config.Config, error) {
	cfg, ok := c.App.Metadata[configKey].(*config.Config)
	if !ok {
		return nil, errors.New("configuration not loaded")
	}
	if path := c.String("catalog"); path != "" {
		cfg.Ingest.Catalog = path
	}
	return cfg, nil
}

func openEngine(c *cli.Context, cfg *config.Config, opts ...catalogsearch.EngineOption) (*catalogsearch.Engine, error) {
	engine, err := catalogsearch.NewEngine(c.Context, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to start search service: %w", err)
	}
	return engine, nil
}

func readCatalog(path string) ([]core.ProductRecord, error) {
	records, rowErrs, err := catalog.ReadCSVFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	for _, rowErr := range rowErrs {
		slog.Warn("skipping malformed catalog row", "line", rowErr.Line, "err", rowErr.Err)
	}
	return records, nil
}

func ingest(c *cli.Context, cfg *config.Config) (*catalogsearch.Engine, error) {
	records, err := readCatalog(cfg.Ingest.Catalog)
	if err != nil {
		return nil, err
	}

	var opts []catalogsearch.EngineOption
	if !c.Bool("no-progress") {
		opts = append(opts, catalogsearch.WithSearchOptions(
			search.WithIngestMonitor(newProgressMonitor(c.App.ErrWriter)),
		))
	}

	engine, err := openEngine(c, cfg, opts...)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(c.App.ErrWriter, "Catalog: %s\n", cfg.Ingest.Catalog)
	fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n", engine.Model())
	fmt.Fprintf(c.App.ErrWriter, "Index: %s (%s)\n", cfg.Index.Name, cfg.Index.Provider)
	fmt.Fprintln(c.App.ErrWriter)

	report, err := engine.Service().IngestCatalog(c.Context, records)
	if err != nil {
		engine.Close()
		return nil, fmt.Errorf("ingestion failed: %w", err)
	}
	fmt.Fprintln(c.App.Writer, report)
	for _, failure := range report.Failures {
		slog.Warn("product not indexed", "id", failure.ProductID, "err", failure.Err)
	}
	return engine, nil
}

func ingestCommand(c *cli.Context) error {
	cfg, err := loadedConfig(c)
	if err != nil {
		return err
	}
	engine, err := ingest(c, cfg)
	if err != nil {
		return err
	}
	return engine.Close()
}

func shellCommand(c *cli.Context) error {
	cfg, err := loadedConfig(c)
	if err != nil {
		return err
	}
	engine, err := ingest(c, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	return runShell(c, engine.Service(), cfg.Search.TopK)
}

func searchCommand(c *cli.Context) error {
	cfg, err := loadedConfig(c)
	if err != nil {
		return err
	}
	if k := c.Int("top-k"); k > 0 {
		cfg.Search.TopK = k
	}

	records, err := readCatalog(cfg.Ingest.Catalog)
	if err != nil {
		return err
	}

	engine, err := openEngine(c, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	report, err := engine.Service().LoadCatalog(records)
	if err != nil {
		return err
	}
	slog.Info("catalog loaded", "products", report.Loaded, "skipped", report.Skipped, "duplicates", report.Duplicates)

	if query := strings.TrimSpace(c.String("query")); query != "" {
		return printResults(c, engine.Service(), query, cfg.Search.TopK)
	}
	return runShell(c, engine.Service(), cfg.Search.TopK)
}

func printResults(c *cli.Context, svc *search.Service, query string, topK int) error {
	results, err := svc.Search(c.Context, query, topK)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(c.App.Writer, "No products found.")
		return nil
	}
	for i, r := range results {
		fmt.Fprintf(c.App.Writer, "%d. %s\t%s\t%.3f\n", i+1, r.ProductID, r.ProductName, r.Score)
	}
	return nil
}

func runShell(c *cli.Context, svc *search.Service, topK int) error {
	err := shell.New(svc, c.App.Reader, c.App.Writer, shell.WithTopK(topK)).Run(c.Context)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func statsCommand(c *cli.Context) error {
	cfg, err := loadedConfig(c)
	if err != nil {
		return err
	}
	records, err := readCatalog(cfg.Ingest.Catalog)
	if err != nil {
		return err
	}

	engine, err := openEngine(c, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	if _, err := engine.Service().LoadCatalog(records); err != nil {
		return err
	}
	stats, err := engine.Service().Stats(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "index: %s (%s)\n", cfg.Index.Name, cfg.Index.Provider)
	fmt.Fprintf(c.App.Writer, "vectors: %d\n", stats.Indexed)
	fmt.Fprintf(c.App.Writer, "catalog: %d\n", stats.Catalog)
	if missing := stats.Catalog - stats.Indexed; missing > 0 {
		fmt.Fprintf(c.App.Writer, "not indexed: at least %d\n", missing)
	}
	return nil
}

func initConfigCommand(c *cli.Context) error {
	path := c.String("config")
	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	}
	if err := config.Save(path, config.Default()); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "wrote %s\n", path)
	return nil
}

func setupLogger(c *cli.Context) error {
	level, err := parseLevel(c.String("log-level"))
	if err != nil {
		return err
	}

	var out io.Writer = os.Stderr
	if c.App.ErrWriter != nil {
		out = c.App.ErrWriter
	}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", s)
	}
}
