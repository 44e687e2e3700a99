package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/oxhq/quarkmig/core"
	"github.com/oxhq/quarkmig/db"
	"github.com/oxhq/quarkmig/internal/config"
	"github.com/oxhq/quarkmig/internal/lang/java"
	"github.com/oxhq/quarkmig/internal/model"
	"github.com/oxhq/quarkmig/internal/recipe"
	"github.com/oxhq/quarkmig/internal/rules"
)

func (a *app) runCmd() *cobra.Command {
	var (
		dryRun        bool
		showDiff      bool
		ruleNames     []string
		workers       int
		maxIterations int
	)
	cmd := &cobra.Command{
		Use:   "run [root]",
		Short: "Migrate the project under root (default .)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(a.configPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("dry-run") {
				cfg.DryRun = dryRun
			}
			if flags.Changed("rules") {
				cfg.Rules = ruleNames
			}
			if flags.Changed("workers") {
				cfg.Workers = workers
			}
			if flags.Changed("max-iterations") {
				cfg.MaxIterations = maxIterations
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			return a.migrate(cmd.Context(), cfg, root, showDiff)
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&dryRun, "dry-run", "d", false, "report the changes without writing files")
	f.BoolVarP(&showDiff, "diff", "D", false, "print a unified diff of every changed file")
	f.StringSliceVarP(&ruleNames, "rules", "r", nil, "rules to run, comma separated (default all)")
	f.IntVarP(&workers, "workers", "w", 0, "files handled concurrently, 0 means one per CPU")
	f.IntVar(&maxIterations, "max-iterations", config.DefaultMaxIterations, "passes a repeating rule may take to settle")
	return cmd
}

func (a *app) migrate(ctx context.Context, cfg *config.Config, root string, showDiff bool) error {
	log := cfg.Log.NewLogger(a.errOut)

	cat := rules.Default()
	jp := java.NewParser(cat.NewClasspath(), java.WithFragmentCache(cfg.TemplateCacheSize))
	registry, err := rules.Builtin(cat, jp)
	if err != nil {
		return err
	}
	selected, err := registry.Select(cfg.Rules)
	if err != nil {
		return err
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return model.Wrap(model.ECIO, "cannot resolve project root", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return model.Wrap(model.ECIO, "cannot open project root", err)
	}
	if !info.IsDir() {
		return model.Wrap(model.ECIO, "project root is not a directory", fmt.Errorf("%s", abs))
	}

	write := core.DefaultAtomicConfig()
	write.UseFsync = cfg.Fsync
	write.BackupOriginal = cfg.Backup
	runner := recipe.NewRunner(jp, selected, recipe.RunOptions{
		Scope: core.FileScope{
			Path:           abs,
			Include:        cfg.Include,
			Exclude:        cfg.Exclude,
			MaxFiles:       cfg.MaxFiles,
			FollowSymlinks: cfg.FollowSymlinks,
		},
		Apply: recipe.Options{
			Workers:       cfg.Workers,
			MaxIterations: cfg.MaxIterations,
			StarThreshold: cfg.StarImportThreshold,
			OnError:       recipe.Policy(cfg.OnSynthesisError),
			Logger:        log,
		},
		DryRun: cfg.DryRun,
		Write:  write,
	})

	started := time.Now()
	report, runErr := runner.Run(ctx)
	finished := time.Now()
	if report == nil {
		return runErr
	}

	if cfg.History.Enabled {
		if err := record(ctx, cfg.History, report, started, finished); err != nil {
			log.Warn("run not recorded", "dsn", cfg.History.DSN, "error", err)
		}
	}

	if a.jsonOut {
		if err := a.printJSON(report); err != nil {
			return err
		}
	} else {
		a.printReport(report, showDiff, finished.Sub(started))
	}
	return runErr
}

func record(ctx context.Context, h config.HistoryConfig, report *core.RunReport, started, finished time.Time) error {
	conn, err := db.Connect(h.DSN, h.Debug)
	if err != nil {
		return err
	}
	defer db.Close(conn)
	_, err = db.Record(ctx, conn, report, started, finished)
	return err
}
