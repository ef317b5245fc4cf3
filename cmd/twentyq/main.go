package main

import (
	"context"
	"fmt"
	"github.com/joho/godotenv"
	"github.com/myrjola/twentyq/internal/errors"
	"github.com/myrjola/twentyq/internal/logging"
	"github.com/spf13/cobra"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// application carries what every subcommand needs once the persistent flags are parsed.
type application struct {
	verbose bool
	logger  *slog.Logger
	// newModel is replaced in tests to avoid calling the OpenAI API.
	newModel modelFactory
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		// The logger may not be configured yet when flag parsing fails.
		logger := logging.NewLogger(os.Stderr, false)
		logger.LogAttrs(ctx, slog.LevelError, "twentyq failed", errors.SlogError(err))
		stop()
		os.Exit(1) //nolint:gocritic // stop is called above
	}
}

func run(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) error {
	app := &application{newModel: openAIModel}
	cmd := newRootCommand(app, stderr)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.ExecuteContext(ctx)
}

func newRootCommand(app *application, logOutput io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "twentyq",
		Short: "Generate twenty-questions dialogues between two language model agents",
		Long: `twentyq plays guessing games between a questioner and an oracle model and logs every turn.

Each candidate set becomes one dialogue. The questioner narrows the candidates down with yes/no questions until
the oracle confirms the guess. Turns are appended to <data-path>/generation/<game-set>/dialogues.csv and finished
dialogues to dialogues.txt, which is also used to resume an interrupted run.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			app.logger = logging.NewLogger(logOutput, app.verbose)
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return errors.Wrap(err, "load .env")
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "Log every turn at debug level")

	cmd.AddCommand(newGenerateCommand(app))
	cmd.AddCommand(newSummaryCommand(app))

	return cmd
}

// printf writes to the command output. Failing to write the report is not worth aborting a run for.
func printf(cmd *cobra.Command, format string, a ...any) {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), format, a...)
}
