package ai_test

import (
	"context"
	"encoding/json"
	"github.com/myrjola/twentyq/internal/ai"
	"github.com/myrjola/twentyq/internal/errors"
	"github.com/myrjola/twentyq/internal/models"
	"github.com/myrjola/twentyq/internal/testhelpers"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// fakeOpenAI answers chat completions with canned replies and records the requests.
type fakeOpenAI struct {
	mu       sync.Mutex
	requests []openai.ChatCompletionRequest
	answer   string
	samples  []string
	status   int
}

func (f *fakeOpenAI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.status != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"requests","code":"rate_limit_exceeded"}}`))
		return
	}

	var req openai.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	var contents []string
	last := req.Messages[len(req.Messages)-1].Content
	switch {
	case strings.HasPrefix(last, "Is the proposed answer"):
		contents = []string{"explanation: it follows the rules, answer: A"}
	case req.N > 1:
		contents = f.samples
	default:
		contents = []string{f.answer}
	}

	response := openai.ChatCompletionResponse{ //nolint:exhaustruct // only what the client reads
		ID:     "chatcmpl-test",
		Object: "chat.completion",
		Model:  req.Model,
	}
	for i, content := range contents {
		response.Choices = append(response.Choices, openai.ChatCompletionChoice{ //nolint:exhaustruct // ditto
			Index: i,
			Message: openai.ChatCompletionMessage{ //nolint:exhaustruct // ditto
				Role:    openai.ChatMessageRoleAssistant,
				Content: content,
			},
			FinishReason: openai.FinishReasonStop,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

func newTestClient(t *testing.T, fake *fakeOpenAI, samples int) *ai.Client {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)
	return ai.NewClient(ai.Config{
		APIKey:             "test",
		Model:              openai.GPT3Dot5Turbo,
		BaseURL:            server.URL + "/v1",
		ConsistencySamples: samples,
	}, testhelpers.NewLogger(io.Discard))
}

func TestClient_Ask(t *testing.T) {
	fake := &fakeOpenAI{answer: "no", samples: []string{"no", "No.", "yes"}}
	client := newTestClient(t, fake, 3)

	answer, err := client.Ask(context.Background(), ai.Request{
		Question:    "This is the current dialogue: questioner: Is it red?",
		History:     []models.Message{{Role: models.RoleSystem, Content: "You are playing an interactive game"}},
		Temperature: 0.1,
	})
	require.NoError(t, err)
	require.Equal(t, "no", answer.Text)
	require.InDelta(t, 2.0/3.0, answer.Metrics.ObservedConsistency, 1e-9)
	require.InDelta(t, 1.0, answer.Metrics.SelfReportedCertainty, 1e-9)
	require.InDelta(t, 0.7*2.0/3.0+0.3, answer.Metrics.Confidence, 1e-9)

	require.Len(t, fake.requests, 3)
	first := fake.requests[0]
	require.InDelta(t, 0.1, first.Temperature, 1e-6)
	require.Equal(t, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: "You are playing an interactive game"},
		{Role: openai.ChatMessageRoleUser, Content: "This is the current dialogue: questioner: Is it red?"},
	}, first.Messages)
	require.Equal(t, 3, fake.requests[1].N)
	require.Len(t, fake.requests[2].Messages, 4)
	require.Equal(t, "no", fake.requests[2].Messages[2].Content)
}

func TestClient_Ask_withoutSamples(t *testing.T) {
	fake := &fakeOpenAI{answer: "QUESTION: Is it a fruit?"}
	client := newTestClient(t, fake, 0)

	answer, err := client.Ask(context.Background(), ai.Request{Question: "This is the current dialogue: "})
	require.NoError(t, err)
	require.Equal(t, "QUESTION: Is it a fruit?", answer.Text)
	require.InDelta(t, 1.0, answer.Metrics.ObservedConsistency, 1e-9)
	require.Len(t, fake.requests, 2)
	require.Zero(t, fake.requests[0].Temperature)
}

func TestClient_Ask_errors(t *testing.T) {
	tests := []struct {
		name            string
		status          int
		wantRateLimited bool
	}{
		{name: "too many requests", status: http.StatusTooManyRequests, wantRateLimited: true},
		{name: "unauthorized", status: http.StatusUnauthorized, wantRateLimited: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, &fakeOpenAI{status: tt.status}, 0)
			_, err := client.Ask(context.Background(), ai.Request{Question: "q"})
			require.Error(t, err)
			require.Equal(t, tt.wantRateLimited, errors.Is(err, ai.ErrRateLimited))
		})
	}
}
