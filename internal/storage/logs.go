// Package storage keeps the generated dialogues in two append-only files per game set: a CSV log with one row per
// turn and a text log with the transcripts of finished dialogues.
//
// Every write opens the file, appends and closes it again, so a crash loses at most the write in flight.
package storage

import (
	"context"
	"encoding/csv"
	"github.com/myrjola/twentyq/internal/errors"
	"github.com/myrjola/twentyq/internal/models"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

const (
	TurnLogName       = "dialogues.csv"
	TranscriptLogName = "dialogues.txt"
)

// Header lists the columns of the turn log.
var Header = []string{
	"dialogue_id",
	"intra_dialogue_id",
	"target",
	"question",
	"answer",
	"question_confidence",
	"question_observed_consistency",
	"question_self_reflection",
	"answer_confidence",
	"answer_observed_consistency",
	"answer_self_reflection",
	"question_time_ms",
	"answer_time_ms",
}

// metricPrecision is the number of decimals written for uncertainty metrics.
const metricPrecision = 5

// Logs writes to <data_path>/generation/<game_set>/.
type Logs struct {
	dir    string
	logger *slog.Logger
}

// New points at the logs of gameSet without touching the filesystem.
func New(dataPath string, gameSet string, logger *slog.Logger) *Logs {
	return &Logs{
		dir:    filepath.Join(dataPath, "generation", gameSet),
		logger: logger.With("source", "Logs"),
	}
}

// Open is New followed by creating the game set directory when needed.
func Open(dataPath string, gameSet string, logger *slog.Logger) (*Logs, error) {
	logs := New(dataPath, gameSet, logger)
	if err := os.MkdirAll(logs.dir, 0o755); err != nil { //nolint:mnd // rwxr-xr-x
		return nil, errors.Wrap(err, "create game set directory", slog.String("dir", logs.dir))
	}
	return logs, nil
}

func (l *Logs) TurnLogPath() string {
	return filepath.Join(l.dir, TurnLogName)
}

func (l *Logs) TranscriptLogPath() string {
	return filepath.Join(l.dir, TranscriptLogName)
}

// WriteHeader appends the header row. It is called once per run, so resumed runs have repeated header rows.
func (l *Logs) WriteHeader(ctx context.Context) error {
	if err := appendTo(l.TurnLogPath(), func(w io.Writer) error {
		return writeCSV(w, Header)
	}); err != nil {
		return errors.Wrap(err, "write header")
	}
	l.logger.LogAttrs(ctx, slog.LevelDebug, "wrote header", slog.String("path", l.TurnLogPath()))
	return nil
}

// RecordTurn appends one row to the turn log.
func (l *Logs) RecordTurn(_ context.Context, record models.TurnRecord) error {
	if err := appendTo(l.TurnLogPath(), func(w io.Writer) error {
		return writeCSV(w, formatTurnRecord(record))
	}); err != nil {
		return errors.Wrap(err, "append turn record",
			slog.Int("dialogue_id", record.DialogueID),
			slog.Int("intra_dialogue_id", record.IntraDialogueID))
	}
	return nil
}

// RecordDialogue appends the transcript lines as one block to the text log.
func (l *Logs) RecordDialogue(_ context.Context, dialogue models.Dialogue) error {
	if err := appendTo(l.TranscriptLogPath(), func(w io.Writer) error {
		for _, line := range dialogue.Lines {
			if _, err := io.WriteString(w, line+"\n"); err != nil {
				return err //nolint:wrapcheck // wrapped by caller
			}
		}
		return nil
	}); err != nil {
		return errors.Wrap(err, "append transcript", slog.Int("dialogue_id", dialogue.ID))
	}
	return nil
}

func formatTurnRecord(r models.TurnRecord) []string {
	return []string{
		strconv.Itoa(r.DialogueID),
		strconv.Itoa(r.IntraDialogueID),
		r.Target,
		r.Question,
		r.Answer,
		formatMetric(r.QuestionMetrics.Confidence),
		formatMetric(r.QuestionMetrics.ObservedConsistency),
		formatMetric(r.QuestionMetrics.SelfReportedCertainty),
		formatMetric(r.AnswerMetrics.Confidence),
		formatMetric(r.AnswerMetrics.ObservedConsistency),
		formatMetric(r.AnswerMetrics.SelfReportedCertainty),
		strconv.FormatInt(r.QuestionTimeMS, 10),
		strconv.FormatInt(r.AnswerTimeMS, 10),
	}
}

func formatMetric(v float64) string {
	return strconv.FormatFloat(v, 'f', metricPrecision, 64)
}

func writeCSV(w io.Writer, row []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(row); err != nil {
		return errors.Wrap(err, "write csv row")
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, "flush csv row")
	}
	return nil
}

// appendTo opens path for appending, runs write and closes the file.
func appendTo(path string, write func(w io.Writer) error) (err error) {
	var f *os.File
	if f, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644); err != nil { //nolint:mnd // rw-r--r--
		return errors.Wrap(err, "open for append", slog.String("path", path))
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = errors.Wrap(closeErr, "close", slog.String("path", path))
		}
	}()
	return write(f)
}
