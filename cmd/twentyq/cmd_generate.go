package main

import (
	"context"
	"github.com/myrjola/twentyq/internal/ai"
	"github.com/myrjola/twentyq/internal/candidates"
	"github.com/myrjola/twentyq/internal/dialogue"
	"github.com/myrjola/twentyq/internal/envstruct"
	"github.com/myrjola/twentyq/internal/errors"
	"github.com/myrjola/twentyq/internal/models"
	"github.com/myrjola/twentyq/internal/pprofserver"
	"github.com/myrjola/twentyq/internal/prompts"
	"github.com/myrjola/twentyq/internal/sqlite"
	"github.com/myrjola/twentyq/internal/storage"
	"github.com/spf13/cobra"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

type modelFactory func(logger *slog.Logger) (ai.Model, error)

// openAIModel configures the OpenAI backed model from the environment.
func openAIModel(logger *slog.Logger) (ai.Model, error) {
	var cfg ai.Config
	if err := envstruct.Populate(&cfg, os.LookupEnv); err != nil {
		return nil, errors.Wrap(err, "configure model")
	}
	logger.Info("using model", slog.String("model", cfg.Model), slog.Int("consistency_samples", cfg.ConsistencySamples))
	return ai.NewClient(cfg, logger), nil
}

type generateOptions struct {
	gameSet       string
	dataPath      string
	numCandidates int
	contrastSets  string
	sqliteURL     string
	pprofPort     string
	turnCap       int
	backoff       time.Duration
}

func newGenerateCommand(app *application) *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a dialogue for every candidate set of a game set",
		Long: `Generate plays one dialogue per candidate set of the contrast-set file.

Candidate sets whose dialogue is already in the transcript log are skipped. A dialogue is retried from scratch
until the oracle confirms the guess within the turn cap. Rate-limited requests are retried after a fixed wait.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			model, err := app.newModel(app.logger)
			if err != nil {
				return err
			}
			return runGenerate(cmd.Context(), opts, model, app.logger)
		},
	}

	cmd.Flags().StringVar(&opts.gameSet, "game-set", "", "Game set name, a name containing \"stepwise\" selects the stepwise prompts")
	cmd.Flags().StringVar(&opts.dataPath, "data-path", "./data", "Root directory of game sets and generated logs")
	cmd.Flags().IntVar(&opts.numCandidates, "num-candidates", 0, "Number of candidates per set, for bookkeeping only")
	cmd.Flags().StringVar(&opts.contrastSets, "contrast-sets", "", "Contrast-set file (default: <data-path>/game_sets/<game-set>.json)")
	cmd.Flags().StringVar(&opts.sqliteURL, "sqlite-url", "", "Also record turns and dialogues to this SQLite database")
	cmd.Flags().StringVar(&opts.pprofPort, "pprof-port", "", "Serve pprof on localhost at this port, e.g. \":6060\"")
	cmd.Flags().IntVar(&opts.turnCap, "turn-cap", dialogue.TurnCap, "Turns before an attempt is abandoned and restarted")
	cmd.Flags().DurationVar(&opts.backoff, "rate-limit-backoff", ai.RateLimitBackoff, "Wait before retrying a rate-limited request")
	_ = cmd.MarkFlagRequired("game-set")

	return cmd
}

func runGenerate(ctx context.Context, opts generateOptions, model ai.Model, logger *slog.Logger) error {
	if opts.contrastSets == "" {
		opts.contrastSets = filepath.Join(opts.dataPath, "game_sets", opts.gameSet+".json")
	}
	stepwise := prompts.IsStepwise(opts.gameSet)
	logger.LogAttrs(ctx, slog.LevelInfo, "starting generation",
		slog.String("game_set", opts.gameSet),
		slog.Bool("stepwise", stepwise),
		slog.Int("num_candidates", opts.numCandidates),
		slog.String("contrast_sets", opts.contrastSets))

	if opts.pprofPort != "" {
		if _, err := pprofserver.Launch(ctx, opts.pprofPort, logger); err != nil {
			return err
		}
	}

	logs, err := storage.Open(opts.dataPath, opts.gameSet, logger)
	if err != nil {
		return err
	}
	if err = logs.WriteHeader(ctx); err != nil {
		return err
	}
	var resumePoint int
	if resumePoint, err = logs.ResumePoint(); err != nil {
		return err
	}

	var sets []models.CandidateSet
	if sets, err = candidates.Load(opts.contrastSets); err != nil {
		return err
	}
	pending := storage.Pending(sets, resumePoint)
	logger.LogAttrs(ctx, slog.LevelInfo, "resuming",
		slog.Int("resume_point", resumePoint),
		slog.Int("sets", len(sets)),
		slog.Int("pending", len(pending)))

	recorders := dialogue.Recorders{logs}
	if opts.sqliteURL != "" {
		var db *sqlite.Database
		if db, err = sqlite.NewDatabase(ctx, opts.sqliteURL, logger); err != nil {
			return err
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				logger.LogAttrs(ctx, slog.LevelError, "close database", errors.SlogError(closeErr))
			}
		}()
		optimizerCtx, stopOptimizer := context.WithCancel(ctx)
		defer stopOptimizer()
		go db.RunOptimizer(optimizerCtx, sqlite.OptimizeInterval)
		recorders = append(recorders, sqlite.NewDialogueRepository(db, logger))
	}

	backoff := opts.backoff
	if backoff <= 0 {
		backoff = ai.RateLimitBackoff
	}
	executor := dialogue.NewExecutor(ai.RetryOnRateLimit(model, backoff, logger))
	generator := dialogue.NewGenerator(executor, recorders, dialogue.Config{
		Stepwise: stepwise,
		TurnCap:  opts.turnCap,
	}, logger)

	if err = generator.Run(ctx, pending); err != nil {
		return err
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "generation finished",
		slog.String("turn_log", logs.TurnLogPath()),
		slog.String("transcript_log", logs.TranscriptLogPath()))
	return nil
}
