package ai

import (
	"context"
	"github.com/myrjola/twentyq/internal/errors"
	"github.com/myrjola/twentyq/internal/models"
)

//go:generate mockgen -source=model.go -destination=mock_model.go -package=ai

// ErrRateLimited is returned by a Model when the service asks the caller to slow down.
var ErrRateLimited = errors.NewSentinel("rate limited")

// Request is a single query to the model service.
type Request struct {
	// Question is sent as the last user message.
	Question string
	// History precedes the question, usually only the role's system prompt.
	History []models.Message
	// Temperature of zero leaves sampling at the service default.
	Temperature float32
}

// Answer is the generated text and the uncertainty scores of it.
type Answer struct {
	Text    string
	Metrics models.Metrics
}

// Model generates an answer together with uncertainty metrics.
type Model interface {
	Ask(ctx context.Context, req Request) (Answer, error)
}
