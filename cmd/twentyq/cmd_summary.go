package main

import (
	"github.com/mattn/go-runewidth"
	"github.com/myrjola/twentyq/internal/errors"
	"github.com/myrjola/twentyq/internal/storage"
	"github.com/spf13/cobra"
	"log/slog"
	"os"
	"strings"
)

const targetColumnWidth = 24

func newSummaryCommand(app *application) *cobra.Command {
	var (
		gameSet  string
		dataPath string
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize the generated logs of a game set",
		Long: `Summary prints the turn rows and mean latencies per dialogue id from dialogues.csv, failed attempts
included, and the id the next generate run resumes from.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logs := storage.New(dataPath, gameSet, app.logger)
			resumePoint, err := logs.ResumePoint()
			if err != nil {
				return err
			}
			records, err := storage.ReadTurnRecords(logs.TurnLogPath())
			if errors.Is(err, os.ErrNotExist) {
				app.logger.LogAttrs(cmd.Context(), slog.LevelInfo, "no turn log yet", slog.String("path", logs.TurnLogPath()))
			} else if err != nil {
				return err
			}
			app.logger.LogAttrs(cmd.Context(), slog.LevelDebug, "read turn log",
				slog.String("path", logs.TurnLogPath()), slog.Int("rows", len(records)))

			printSummary(cmd, storage.Summarize(records), resumePoint)
			return nil
		},
	}

	cmd.Flags().StringVar(&gameSet, "game-set", "", "Game set name")
	cmd.Flags().StringVar(&dataPath, "data-path", "./data", "Root directory of game sets and generated logs")
	_ = cmd.MarkFlagRequired("game-set")

	return cmd
}

func printSummary(cmd *cobra.Command, summaries []storage.DialogueSummary, resumePoint int) {
	printf(cmd, "%4s  %s  %5s  %12s  %12s\n", "ID", padRight("TARGET", targetColumnWidth), "ROWS", "MEAN Q (ms)", "MEAN A (ms)")
	for _, s := range summaries {
		target := runewidth.Truncate(s.Target, targetColumnWidth, "…")
		printf(cmd, "%4d  %s  %5d  %12.1f  %12.1f\n",
			s.DialogueID, padRight(target, targetColumnWidth), s.Rows, s.MeanQuestionMS, s.MeanAnswerMS)
	}
	printf(cmd, "\n%d dialogues with turn rows, next run resumes at id %d\n", len(summaries), resumePoint)
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}
