package dialogue

import (
	"context"
	"github.com/myrjola/twentyq/internal/ai"
	"github.com/myrjola/twentyq/internal/errors"
	"github.com/myrjola/twentyq/internal/models"
	"github.com/myrjola/twentyq/internal/prompts"
	"regexp"
	"strings"
	"time"
)

const (
	// dialoguePrefix introduces the transcript in every query, prior turns are never replayed as history.
	dialoguePrefix = "This is the current dialogue: "
	// OracleTemperature keeps the yes/no answers stable.
	OracleTemperature = 0.1
	questionMarker    = "QUESTION:"
)

var (
	paragraphBreaks = regexp.MustCompile(`\n{2,}`)
	lineBreaks      = regexp.MustCompile(`\n+`)
)

// Attempt is the state of one try at a dialogue. A failed attempt is thrown away as a whole.
type Attempt struct {
	Transcript *models.Transcript
	Questioner []models.Message
	Oracle     []models.Message
}

// NewAttempt seeds both conversations and the transcript. The questioner's candidate list becomes the first
// "answerer:" line so that both models see the framing of the game.
func NewAttempt(set models.CandidateSet, stepwise bool) *Attempt {
	seeds := prompts.Build(set.Items, set.Target, stepwise)
	transcript := models.NewTranscript(set.Target)
	transcript.AddAnswerer(strings.TrimSpace(seeds.Questioner[len(seeds.Questioner)-1].Content))
	return &Attempt{
		Transcript: transcript,
		Questioner: seeds.Questioner,
		Oracle:     seeds.Oracle,
	}
}

// Turn is the outcome of one question and answer exchange.
type Turn struct {
	Question        string
	QuestionMetrics models.Metrics
	Answer          string
	AnswerMetrics   models.Metrics
	QuestionTime    time.Duration
	AnswerTime      time.Duration
}

// Executor runs single turns against the model service.
type Executor struct {
	model ai.Model
	now   func() time.Time
}

func NewExecutor(model ai.Model) *Executor {
	return &Executor{
		model: model,
		now:   time.Now,
	}
}

// Execute asks the questioner for the next question and the oracle for its answer, extending the attempt.
func (e *Executor) Execute(ctx context.Context, a *Attempt) (Turn, error) {
	var (
		turn     Turn
		question ai.Answer
		answer   ai.Answer
		err      error
	)

	start := e.now()
	if question, err = e.model.Ask(ctx, ai.Request{
		Question:    dialoguePrefix + a.Transcript.Dialogue(),
		History:     a.Questioner[:1:1],
		Temperature: 0,
	}); err != nil {
		return Turn{}, errors.Wrap(err, "ask questioner")
	}
	turn.QuestionTime = e.now().Sub(start)
	turn.QuestionMetrics = question.Metrics

	a.Questioner = append(a.Questioner, models.Message{
		Role:    models.RoleAssistant,
		Content: paragraphBreaks.ReplaceAllString(question.Text, " "),
	})
	// Transcript entries are single lines.
	turn.Question = strings.TrimSpace(lineBreaks.ReplaceAllString(ExtractQuestion(question.Text), " "))
	a.Oracle = append(a.Oracle, models.Message{Role: models.RoleUser, Content: turn.Question})
	a.Transcript.AddQuestioner(turn.Question)

	start = e.now()
	if answer, err = e.model.Ask(ctx, ai.Request{
		Question:    dialoguePrefix + a.Transcript.Dialogue(),
		History:     a.Oracle[:1:1],
		Temperature: OracleTemperature,
	}); err != nil {
		return Turn{}, errors.Wrap(err, "ask oracle")
	}
	turn.AnswerTime = e.now().Sub(start)
	turn.AnswerMetrics = answer.Metrics

	normalized := strings.ReplaceAll(answer.Text, "\n", " ")
	a.Questioner = append(a.Questioner, models.Message{Role: models.RoleUser, Content: normalized})
	a.Oracle = append(a.Oracle, models.Message{Role: models.RoleAssistant, Content: answer.Text})
	turn.Answer = strings.TrimSpace(normalized)
	a.Transcript.AddAnswerer(turn.Answer)

	return turn, nil
}

// ExtractQuestion returns the text after the first QUESTION: marker, or the whole output when there is none.
func ExtractQuestion(output string) string {
	if _, question, ok := strings.Cut(output, questionMarker); ok {
		return strings.TrimSpace(question)
	}
	return strings.TrimSpace(output)
}

// IsConfirmation reports whether the oracle confirmed a correct guess.
func IsConfirmation(answer string) bool {
	lower := strings.ToLower(answer)
	return strings.Contains(lower, "correct") && strings.Contains(lower, "yes")
}
