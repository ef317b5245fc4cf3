package sqlite

import (
	"context"
	"github.com/myrjola/twentyq/internal/errors"
	"github.com/myrjola/twentyq/internal/models"
	"log/slog"
	"strings"
)

// DialogueRepository mirrors the turn and transcript logs into SQLite for querying.
type DialogueRepository struct {
	db     *Database
	logger *slog.Logger
}

func NewDialogueRepository(db *Database, logger *slog.Logger) *DialogueRepository {
	return &DialogueRepository{
		db:     db,
		logger: logger.With("source", "DialogueRepository"),
	}
}

type turnRow struct {
	DialogueID                  int     `db:"dialogue_id"`
	Attempt                     int     `db:"attempt"`
	IntraDialogueID             int     `db:"intra_dialogue_id"`
	Target                      string  `db:"target"`
	Question                    string  `db:"question"`
	Answer                      string  `db:"answer"`
	QuestionConfidence          float64 `db:"question_confidence"`
	QuestionObservedConsistency float64 `db:"question_observed_consistency"`
	QuestionSelfReflection      float64 `db:"question_self_reflection"`
	AnswerConfidence            float64 `db:"answer_confidence"`
	AnswerObservedConsistency   float64 `db:"answer_observed_consistency"`
	AnswerSelfReflection        float64 `db:"answer_self_reflection"`
	QuestionTimeMS              int64   `db:"question_time_ms"`
	AnswerTimeMS                int64   `db:"answer_time_ms"`
}

type dialogueRow struct {
	ID         int    `db:"id"`
	Target     string `db:"target"`
	Attempt    int    `db:"attempt"`
	Turns      int    `db:"turns"`
	Transcript string `db:"transcript"`
}

// RecordTurn inserts one turn record.
func (r *DialogueRepository) RecordTurn(ctx context.Context, record models.TurnRecord) error {
	stmt := `INSERT INTO turn_records (dialogue_id, attempt, intra_dialogue_id, target, question, answer,
                          question_confidence, question_observed_consistency, question_self_reflection,
                          answer_confidence, answer_observed_consistency, answer_self_reflection,
                          question_time_ms, answer_time_ms)
VALUES (:dialogue_id, :attempt, :intra_dialogue_id, :target, :question, :answer,
        :question_confidence, :question_observed_consistency, :question_self_reflection,
        :answer_confidence, :answer_observed_consistency, :answer_self_reflection,
        :question_time_ms, :answer_time_ms)`
	row := turnRow{
		DialogueID:                  record.DialogueID,
		Attempt:                     record.Attempt,
		IntraDialogueID:             record.IntraDialogueID,
		Target:                      record.Target,
		Question:                    record.Question,
		Answer:                      record.Answer,
		QuestionConfidence:          record.QuestionMetrics.Confidence,
		QuestionObservedConsistency: record.QuestionMetrics.ObservedConsistency,
		QuestionSelfReflection:      record.QuestionMetrics.SelfReportedCertainty,
		AnswerConfidence:            record.AnswerMetrics.Confidence,
		AnswerObservedConsistency:   record.AnswerMetrics.ObservedConsistency,
		AnswerSelfReflection:        record.AnswerMetrics.SelfReportedCertainty,
		QuestionTimeMS:              record.QuestionTimeMS,
		AnswerTimeMS:                record.AnswerTimeMS,
	}
	if _, err := r.db.ReadWrite.NamedExecContext(ctx, stmt, row); err != nil {
		return errors.Wrap(err, "insert turn record",
			slog.Int("dialogue_id", record.DialogueID),
			slog.Int("intra_dialogue_id", record.IntraDialogueID))
	}
	return nil
}

// RecordDialogue stores a finished dialogue. A dialogue generated again after a resume replaces the earlier row.
func (r *DialogueRepository) RecordDialogue(ctx context.Context, dialogue models.Dialogue) error {
	stmt := `INSERT INTO dialogues (id, target, attempt, turns, transcript)
VALUES (:id, :target, :attempt, :turns, :transcript)
ON CONFLICT (id) DO UPDATE SET target     = excluded.target,
                               attempt    = excluded.attempt,
                               turns      = excluded.turns,
                               transcript = excluded.transcript,
                               updated    = excluded.updated`
	row := dialogueRow{
		ID:         dialogue.ID,
		Target:     dialogue.Target,
		Attempt:    dialogue.Attempt,
		Turns:      dialogue.Turns,
		Transcript: strings.Join(dialogue.Lines, "\n"),
	}
	if _, err := r.db.ReadWrite.NamedExecContext(ctx, stmt, row); err != nil {
		return errors.Wrap(err, "upsert dialogue", slog.Int("dialogue_id", dialogue.ID))
	}
	return nil
}

// Turns returns every turn recorded for dialogueID in insertion order, failed attempts included.
func (r *DialogueRepository) Turns(ctx context.Context, dialogueID int) ([]models.TurnRecord, error) {
	var rows []turnRow
	stmt := `SELECT dialogue_id, attempt, intra_dialogue_id, target, question, answer,
       question_confidence, question_observed_consistency, question_self_reflection,
       answer_confidence, answer_observed_consistency, answer_self_reflection,
       question_time_ms, answer_time_ms
FROM turn_records
WHERE dialogue_id = ?
ORDER BY id`
	if err := r.db.ReadOnly.SelectContext(ctx, &rows, stmt, dialogueID); err != nil {
		return nil, errors.Wrap(err, "select turn records", slog.Int("dialogue_id", dialogueID))
	}

	records := make([]models.TurnRecord, len(rows))
	for i, row := range rows {
		records[i] = models.TurnRecord{
			DialogueID:      row.DialogueID,
			Attempt:         row.Attempt,
			IntraDialogueID: row.IntraDialogueID,
			Target:          row.Target,
			Question:        row.Question,
			Answer:          row.Answer,
			QuestionMetrics: models.Metrics{
				Confidence:            row.QuestionConfidence,
				ObservedConsistency:   row.QuestionObservedConsistency,
				SelfReportedCertainty: row.QuestionSelfReflection,
			},
			AnswerMetrics: models.Metrics{
				Confidence:            row.AnswerConfidence,
				ObservedConsistency:   row.AnswerObservedConsistency,
				SelfReportedCertainty: row.AnswerSelfReflection,
			},
			QuestionTimeMS: row.QuestionTimeMS,
			AnswerTimeMS:   row.AnswerTimeMS,
		}
	}
	return records, nil
}

// Dialogue reads a finished dialogue.
func (r *DialogueRepository) Dialogue(ctx context.Context, id int) (models.Dialogue, error) {
	var row dialogueRow
	stmt := `SELECT id, target, attempt, turns, transcript FROM dialogues WHERE id = ?`
	if err := r.db.ReadOnly.GetContext(ctx, &row, stmt, id); err != nil {
		return models.Dialogue{}, errors.Wrap(err, "select dialogue", slog.Int("dialogue_id", id))
	}
	return models.Dialogue{
		ID:      row.ID,
		Target:  row.Target,
		Attempt: row.Attempt,
		Turns:   row.Turns,
		Lines:   strings.Split(row.Transcript, "\n"),
	}, nil
}
