// Package main is the hybridrank CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	hrcli "github.com/hyperjump/hybridrank/internal/cli"
	"github.com/hyperjump/hybridrank/internal/config"
	"github.com/hyperjump/hybridrank/internal/models"
	"github.com/hyperjump/hybridrank/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "config.yaml"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "hybridrank",
		Usage:   "Hybrid lexical and semantic retrieval with match scoring",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path",
				Value:   defaultConfigPath,
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "metrics-file",
				Usage: "Write Prometheus metrics to this file on exit",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "index",
				Usage:  "Index documents from a YAML or JSON corpus file",
				Action: indexCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "corpus",
						Usage:    "Path to the corpus file",
						Required: true,
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Run a hybrid search",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum results (default from config)"},
					&cli.Float64Flag{Name: "alpha", Usage: "Lexical fusion weight in [0, 1]"},
					&cli.Float64Flag{Name: "k", Usage: "RRF smoothing constant"},
					&cli.StringSliceFlag{Name: "expand", Usage: "Extra lexical expansion term (repeatable)"},
					&cli.StringSliceFlag{Name: "filter", Usage: "Metadata filter key=value (repeatable)"},
					&cli.DurationFlag{Name: "timeout", Usage: "Per-source timeout (default from config)"},
					&cli.StringFlag{Name: "format", Usage: "Output format: text or json", Value: "text"},
					&cli.BoolFlag{Name: "json", Usage: "Shorthand for --format json"},
				},
			},
			{
				Name:   "match",
				Usage:  "Score a profile against one or more targets",
				Action: matchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "profile", Usage: "Path to the profile file", Required: true},
					&cli.StringFlag{Name: "target", Usage: "Path to a target or list of targets", Required: true},
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum results", Value: 10},
					&cli.Float64Flag{Name: "min-score", Usage: "Drop results scoring below this"},
					&cli.StringFlag{Name: "format", Usage: "Output format: text or json", Value: "text"},
				},
			},
			{
				Name:   "delete",
				Usage:  "Delete a document by ID",
				Action: deleteCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "Document ID", Required: true},
				},
			},
		},
	}
}

// loadConfig loads the config at path. A missing default config falls back
// to built-in defaults rooted at the current directory.
func loadConfig(path string) (*config.Config, error) {
	if path == defaultConfigPath {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			cwd, err := os.Getwd()
			if err != nil {
				return nil, err
			}
			return config.Default(cwd), nil
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		path = abs
	}
	return config.Load(path)
}

// withComponents loads config, builds the logger and components, and runs fn
// with a context canceled on SIGINT or SIGTERM.
func withComponents(c *cli.Context, fn func(ctx context.Context, comps *components) error) error {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	level := cfg.Logging.Level
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	logger, err := utils.NewLogger(cfg.Debug || c.Bool("debug"), level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	comps, err := initializeComponents(ctx, cfg, logger, c.String("metrics-file"))
	if err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}
	defer func() {
		if cerr := comps.Close(); cerr != nil {
			logger.Warn("close failed", zap.Error(cerr))
		}
	}()
	return fn(ctx, comps)
}

func indexCommand(c *cli.Context) error {
	docs, err := hrcli.LoadCorpus(c.String("corpus"))
	if err != nil {
		return err
	}
	return withComponents(c, func(ctx context.Context, comps *components) error {
		start := time.Now()
		n, err := comps.indexer.IndexBatch(ctx, docs)
		comps.logger.Info("indexing finished",
			zap.Int("indexed", n),
			zap.Int("total", len(docs)),
			zap.Duration("elapsed", time.Since(start)),
		)
		fmt.Fprintf(c.App.Writer, "Indexed %d of %d documents\n", n, len(docs))
		return err
	})
}

func searchCommand(c *cli.Context) error {
	formatName := c.String("format")
	if c.Bool("json") {
		formatName = string(hrcli.OutputJSON)
	}
	format, err := hrcli.ParseOutputFormat(formatName)
	if err != nil {
		return err
	}
	filters, err := parseFilters(c.StringSlice("filter"))
	if err != nil {
		return err
	}
	text := strings.Join(c.Args().Slice(), " ")

	return withComponents(c, func(ctx context.Context, comps *components) error {
		q := &models.SearchQuery{
			Query:      text,
			Limit:      comps.cfg.Search.DefaultLimit,
			Expansions: c.StringSlice("expand"),
			Filters:    filters,
			Timeout:    c.Duration("timeout"),
		}
		if c.IsSet("limit") {
			q.Limit = c.Int("limit")
		}
		if c.IsSet("alpha") {
			alpha := c.Float64("alpha")
			q.Alpha = &alpha
		}
		if c.IsSet("k") {
			k := c.Float64("k")
			q.K = &k
		}
		resp, err := comps.engine.Search(ctx, q)
		if err != nil {
			return err
		}
		return hrcli.WriteSearchResults(c.App.Writer, resp, format)
	})
}

func matchCommand(c *cli.Context) error {
	format, err := hrcli.ParseOutputFormat(c.String("format"))
	if err != nil {
		return err
	}
	profile, err := hrcli.LoadProfile(c.String("profile"))
	if err != nil {
		return err
	}
	targets, err := hrcli.LoadTargets(c.String("target"))
	if err != nil {
		return err
	}

	return withComponents(c, func(ctx context.Context, comps *components) error {
		if len(profile.Embedding) == 0 && profile.Text != "" {
			emb, err := comps.embedder.Embed(ctx, profile.Text)
			if err != nil {
				return fmt.Errorf("failed to embed profile: %w", err)
			}
			profile.Embedding = emb
		}
		matchTargets := make([]*models.MatchTarget, 0, len(targets))
		for _, t := range targets {
			if len(t.Embedding) == 0 && t.Text != "" {
				emb, err := comps.embedder.Embed(ctx, t.Text)
				if err != nil {
					return fmt.Errorf("failed to embed target %s: %w", t.ID, err)
				}
				t.Embedding = emb
			}
			matchTargets = append(matchTargets, &t.MatchTarget)
		}
		results, err := comps.scorer.RankTargets(&profile.MatchProfile, matchTargets, c.Int("limit"), c.Float64("min-score"))
		if err != nil {
			return err
		}
		return hrcli.WriteMatchResults(c.App.Writer, results, format)
	})
}

func deleteCommand(c *cli.Context) error {
	id := c.String("id")
	return withComponents(c, func(ctx context.Context, comps *components) error {
		if err := comps.indexer.DeleteDocument(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "Deleted %s\n", id)
		return nil
	})
}

// parseFilters turns key=value pairs into metadata filters.
func parseFilters(pairs []string) (map[string]interface{}, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	filters := make(map[string]interface{}, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid filter %q: want key=value", p)
		}
		filters[strings.TrimSpace(key)] = value
	}
	return filters, nil
}
