package dialogue_test

import (
	"context"
	"github.com/myrjola/twentyq/internal/ai"
	"github.com/myrjola/twentyq/internal/dialogue"
	"github.com/myrjola/twentyq/internal/models"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"testing"
	"time"
)

var fruits = models.CandidateSet{ID: 0, Items: []string{"apple", "banana", "cherry"}, Target: "banana"}

func TestExtractQuestion(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{name: "stepwise format", output: "CANDIDATES: a, b\nQUESTION: Is it a?", want: "Is it a?"},
		{name: "no marker", output: "  Is it yellow?\n", want: "Is it yellow?"},
		{name: "text after first marker", output: "QUESTION: Is it a? QUESTION: or b?", want: "Is it a? QUESTION: or b?"},
		{name: "empty question", output: "CANDIDATES: a\nQUESTION:", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, dialogue.ExtractQuestion(tt.output))
		})
	}
}

func TestIsConfirmation(t *testing.T) {
	require.True(t, dialogue.IsConfirmation("Yes! That's correct."))
	require.True(t, dialogue.IsConfirmation("YES, CORRECT"))
	require.False(t, dialogue.IsConfirmation("yes"))
	require.False(t, dialogue.IsConfirmation("That is not correct, no."))
}

func TestNewAttempt(t *testing.T) {
	a := dialogue.NewAttempt(fruits, true)
	require.Equal(t, []string{
		models.TranscriptSentinel,
		"target = banana",
		"answerer: This is the list of candidates: apple, banana, cherry.",
	}, a.Transcript.Lines())
	require.Len(t, a.Questioner, 2)
	require.Len(t, a.Oracle, 1)
}

func TestExecutor_Execute(t *testing.T) {
	ctrl := gomock.NewController(t)
	model := ai.NewMockModel(ctrl)
	a := dialogue.NewAttempt(fruits, true)
	questionerSystem := a.Questioner[0]
	oracleSystem := a.Oracle[0]

	questionMetrics := models.Metrics{Confidence: 0.9, ObservedConsistency: 0.8, SelfReportedCertainty: 1}
	answerMetrics := models.Metrics{Confidence: 0.5, ObservedConsistency: 0.5, SelfReportedCertainty: 0.5}

	gomock.InOrder(
		model.EXPECT().Ask(gomock.Any(), ai.Request{
			Question:    "This is the current dialogue: answerer: This is the list of candidates: apple, banana, cherry.",
			History:     []models.Message{questionerSystem},
			Temperature: 0,
		}).Return(ai.Answer{
			Text:    "CANDIDATES: apple, banana, cherry\n\n\nQUESTION: Is it yellow?",
			Metrics: questionMetrics,
		}, nil),
		model.EXPECT().Ask(gomock.Any(), ai.Request{
			Question: "This is the current dialogue: answerer: This is the list of candidates: apple, banana, cherry.\n" +
				"questioner: Is it yellow?",
			History:     []models.Message{oracleSystem},
			Temperature: dialogue.OracleTemperature,
		}).Return(ai.Answer{Text: "Yes\nit is.", Metrics: answerMetrics}, nil),
	)

	turn, err := dialogue.NewExecutor(model).Execute(context.Background(), a)
	require.NoError(t, err)
	require.Equal(t, "Is it yellow?", turn.Question)
	require.Equal(t, "Yes it is.", turn.Answer)
	require.Equal(t, questionMetrics, turn.QuestionMetrics)
	require.Equal(t, answerMetrics, turn.AnswerMetrics)
	require.GreaterOrEqual(t, turn.QuestionTime, time.Duration(0))
	require.GreaterOrEqual(t, turn.AnswerTime, time.Duration(0))

	require.Equal(t, []models.Message{
		questionerSystem,
		a.Questioner[1],
		{Role: models.RoleAssistant, Content: "CANDIDATES: apple, banana, cherry QUESTION: Is it yellow?"},
		{Role: models.RoleUser, Content: "Yes it is."},
	}, a.Questioner)
	require.Equal(t, []models.Message{
		oracleSystem,
		{Role: models.RoleUser, Content: "Is it yellow?"},
		{Role: models.RoleAssistant, Content: "Yes\nit is."},
	}, a.Oracle)
	require.Equal(t, []string{
		models.TranscriptSentinel,
		"target = banana",
		"answerer: This is the list of candidates: apple, banana, cherry.",
		"questioner: Is it yellow?",
		"answerer: Yes it is.",
	}, a.Transcript.Lines())
}

func TestExecutor_Execute_transcriptLinesAreSingleLines(t *testing.T) {
	tests := []struct {
		name          string
		output        string
		wantQuestion  string
		wantAssistant string
	}{
		{
			name:          "blank lines inside stepwise question",
			output:        "CANDIDATES: apple, banana\n\nQUESTION: Is it\n\nyellow?",
			wantQuestion:  "Is it yellow?",
			wantAssistant: "CANDIDATES: apple, banana QUESTION: Is it yellow?",
		},
		{
			name:          "single newline without marker",
			output:        "Is it\nred?",
			wantQuestion:  "Is it red?",
			wantAssistant: "Is it\nred?",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			model := ai.NewMockModel(ctrl)
			a := dialogue.NewAttempt(fruits, true)

			gomock.InOrder(
				model.EXPECT().Ask(gomock.Any(), gomock.Any()).Return(ai.Answer{Text: tt.output}, nil),
				model.EXPECT().Ask(gomock.Any(), gomock.Any()).Return(ai.Answer{Text: "no\n\nit is not"}, nil),
			)

			turn, err := dialogue.NewExecutor(model).Execute(context.Background(), a)
			require.NoError(t, err)
			require.Equal(t, tt.wantQuestion, turn.Question)
			require.Equal(t, tt.wantAssistant, a.Questioner[2].Content)
			require.Equal(t, tt.wantQuestion, a.Oracle[1].Content)
			for _, line := range a.Transcript.Lines() {
				require.NotContains(t, line, "\n")
			}
		})
	}
}

func TestExecutor_Execute_errors(t *testing.T) {
	ctrl := gomock.NewController(t)
	model := ai.NewMockModel(ctrl)
	boom := context.DeadlineExceeded

	model.EXPECT().Ask(gomock.Any(), gomock.Any()).Return(ai.Answer{}, boom)
	_, err := dialogue.NewExecutor(model).Execute(context.Background(), dialogue.NewAttempt(fruits, false))
	require.ErrorIs(t, err, boom)
	require.ErrorContains(t, err, "ask questioner")

	gomock.InOrder(
		model.EXPECT().Ask(gomock.Any(), gomock.Any()).Return(ai.Answer{Text: "Is it red?"}, nil),
		model.EXPECT().Ask(gomock.Any(), gomock.Any()).Return(ai.Answer{}, boom),
	)
	_, err = dialogue.NewExecutor(model).Execute(context.Background(), dialogue.NewAttempt(fruits, false))
	require.ErrorIs(t, err, boom)
	require.ErrorContains(t, err, "ask oracle")
}
