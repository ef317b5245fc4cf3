package dialogue

import (
	"context"
	"github.com/myrjola/twentyq/internal/errors"
	"github.com/myrjola/twentyq/internal/logging"
	"github.com/myrjola/twentyq/internal/models"
	"log/slog"
	"math"
	"time"
)

// TurnCap is the number of turns an attempt gets before it is abandoned.
const TurnCap = 20

type Config struct {
	// Stepwise selects the prompt variant with the CANDIDATES/QUESTION output format.
	Stepwise bool
	// TurnCap defaults to [TurnCap] when zero.
	TurnCap int
}

// Generator plays dialogues to completion, one candidate set at a time.
//
// An attempt that does not end with the oracle confirming the guess within the turn cap is discarded and the
// dialogue starts over from fresh prompts. There is no limit on the number of attempts. Turn records of failed
// attempts stay persisted.
type Generator struct {
	executor *Executor
	recorder Recorder
	stepwise bool
	turnCap  int
	logger   *slog.Logger
}

func NewGenerator(executor *Executor, recorder Recorder, cfg Config, logger *slog.Logger) *Generator {
	turnCap := cfg.TurnCap
	if turnCap <= 0 {
		turnCap = TurnCap
	}
	return &Generator{
		executor: executor,
		recorder: recorder,
		stepwise: cfg.Stepwise,
		turnCap:  turnCap,
		logger:   logger.With("source", "Generator"),
	}
}

// Run generates a dialogue for every set in the given order. The first error stops the run.
func (g *Generator) Run(ctx context.Context, sets []models.CandidateSet) error {
	for _, set := range sets {
		if _, err := g.Generate(ctx, set); err != nil {
			return errors.Wrap(err, "generate dialogue", slog.Int("dialogue_id", set.ID))
		}
	}
	return nil
}

// Generate retries the dialogue for set until an attempt succeeds and returns the recorded dialogue.
func (g *Generator) Generate(ctx context.Context, set models.CandidateSet) (models.Dialogue, error) {
	ctx = logging.WithAttrs(ctx, slog.Int("dialogue_id", set.ID))
	g.logger.LogAttrs(ctx, slog.LevelInfo, "generating dialogue",
		slog.String("target", set.Target), slog.Int("candidates", len(set.Items)))

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return models.Dialogue{}, errors.Wrap(err, "start attempt", slog.Int("attempt", attempt))
		}

		attemptCtx := logging.WithAttrs(ctx, slog.Int("attempt", attempt))
		dialogue, ok, err := g.attempt(attemptCtx, set, attempt)
		if err != nil {
			return models.Dialogue{}, err
		}
		if !ok {
			g.logger.LogAttrs(attemptCtx, slog.LevelWarn, "no confirmation within turn cap, starting over",
				slog.Int("turn_cap", g.turnCap))
			continue
		}

		if err = g.recorder.RecordDialogue(attemptCtx, dialogue); err != nil {
			return models.Dialogue{}, errors.Wrap(err, "record dialogue")
		}
		g.logger.LogAttrs(attemptCtx, slog.LevelInfo, "dialogue finished", slog.Int("turns", dialogue.Turns))
		return dialogue, nil
	}
}

// attempt plays turns until the oracle confirms the guess or the turn cap is reached.
func (g *Generator) attempt(ctx context.Context, set models.CandidateSet, attempt int) (models.Dialogue, bool, error) {
	a := NewAttempt(set, g.stepwise)

	for intraID := range g.turnCap {
		turn, err := g.executor.Execute(ctx, a)
		if err != nil {
			return models.Dialogue{}, false, errors.Wrap(err, "execute turn", slog.Int("intra_dialogue_id", intraID))
		}

		record := models.TurnRecord{
			DialogueID:      set.ID,
			Attempt:         attempt,
			IntraDialogueID: intraID,
			Target:          set.Target,
			Question:        turn.Question,
			Answer:          turn.Answer,
			QuestionMetrics: turn.QuestionMetrics,
			AnswerMetrics:   turn.AnswerMetrics,
			QuestionTimeMS:  milliseconds(turn.QuestionTime),
			AnswerTimeMS:    milliseconds(turn.AnswerTime),
		}
		if err = g.recorder.RecordTurn(ctx, record); err != nil {
			return models.Dialogue{}, false, errors.Wrap(err, "record turn", slog.Int("intra_dialogue_id", intraID))
		}
		g.logger.LogAttrs(ctx, slog.LevelDebug, "turn",
			slog.Int("intra_dialogue_id", intraID),
			slog.String("question", turn.Question),
			slog.String("answer", turn.Answer))

		if IsConfirmation(turn.Answer) {
			return models.Dialogue{
				ID:      set.ID,
				Target:  set.Target,
				Attempt: attempt,
				Turns:   intraID + 1,
				Lines:   a.Transcript.Lines(),
			}, true, nil
		}
	}

	return models.Dialogue{}, false, nil
}

// milliseconds rounds d to the nearest whole millisecond.
func milliseconds(d time.Duration) int64 {
	return int64(math.Round(float64(d) / float64(time.Millisecond)))
}
