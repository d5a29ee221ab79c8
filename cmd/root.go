package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/okian/fairway/internal/adapters/repository"
	service "github.com/okian/fairway/internal/app"
	"github.com/okian/fairway/internal/config"
	"github.com/okian/fairway/internal/domain/templates"
	"github.com/okian/fairway/pkg/logger"
	"github.com/spf13/cobra"
)

// cli carries what every command shares after flags are parsed.
type cli struct {
	configPath string
	logLevel   string
	dbPath     string
	logOut     io.Writer

	cfg *config.Config
	log logger.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{logOut: os.Stderr}
	root := &cobra.Command{
		Use:           "fairway",
		Short:         "Course-aware golf ranking engine",
		Long:          "Rank tournament fields from round and approach statistics, validate rankings against finishes and search for better weights.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init(cmd.Context())
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "YAML config file (default $"+config.EnvConfigFile+")")
	pf.StringVar(&c.logLevel, "log-level", "", "override log_level")
	pf.StringVar(&c.dbPath, "db", "", "override db_path; \":memory:\" keeps runs in memory")

	root.AddCommand(
		newServeCmd(c),
		newRankCmd(c),
		newValidateCmd(c),
		newOptimizeCmd(c),
		newTemplatesCmd(c),
	)
	return root
}

// init loads configuration (defaults -> optional file -> env -> flags) and
// the global logger.
func (c *cli) init(ctx context.Context) error {
	var opts []config.LoadOption
	if c.configPath != "" {
		opts = append(opts, config.FromFile(c.configPath))
	}
	cfg, err := config.Load(ctx, opts...)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	if c.dbPath != "" {
		cfg.DBPath = c.dbPath
	}

	logOpts := []logger.Option{logger.WithWriter(c.logOut)}
	if cfg.LogFormat == "json" {
		logOpts = append(logOpts, logger.WithJSON())
	}
	if err := logger.Init(logOpts...); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	c.log = logger.Get()
	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		c.log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	c.cfg = cfg
	return nil
}

func (c *cli) loadTemplates(ctx context.Context) (*templates.Store, error) {
	return templates.Load(ctx, templates.WithFiles(c.cfg.TemplatePaths...), templates.WithLogger(c.log))
}

// openService starts a service over the configured store and templates.
// The returned func stops it and closes the store.
func (c *cli) openService(ctx context.Context, extra ...service.Option) (*service.Service, func(), error) {
	ts, err := c.loadTemplates(ctx)
	if err != nil {
		return nil, nil, err
	}
	store, err := repository.Open(ctx, c.cfg.DBPath, repository.WithLogger(c.log))
	if err != nil {
		return nil, nil, err
	}

	opts := []service.Option{
		service.WithLogger(c.log),
		service.WithStore(store),
		service.WithTemplates(ts),
		service.WithScoringSettings(c.cfg.Scoring.Settings()),
		service.WithValidationTopN(c.cfg.Validation.TopN...),
		service.WithOptimizerOptions(c.cfg.Optimizer.Options()...),
		service.WithSeeds(c.cfg.Optimizer.Seeds),
		service.WithWorkerCount(c.cfg.Optimizer.Workers),
		service.WithQueueSize(c.cfg.Optimizer.QueueSize),
		service.WithDedupeSize(c.cfg.DedupeSize),
		service.WithMaxLimit(c.cfg.MaxLeaderboardLimit),
	}
	svc := service.New(append(opts, extra...)...)
	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return svc, func() {
		svc.Stop()
		if err := store.Close(); err != nil {
			c.log.Warn(context.Background(), "closing store", logger.Error(err))
		}
	}, nil
}
