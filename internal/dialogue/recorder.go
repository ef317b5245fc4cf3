package dialogue

import (
	"context"
	"github.com/myrjola/twentyq/internal/models"
)

// Recorder persists turn records as they happen and finished dialogues once they succeed.
type Recorder interface {
	RecordTurn(ctx context.Context, record models.TurnRecord) error
	RecordDialogue(ctx context.Context, dialogue models.Dialogue) error
}

// Recorders fans out to every recorder in order and stops at the first error.
type Recorders []Recorder

func (rs Recorders) RecordTurn(ctx context.Context, record models.TurnRecord) error {
	for _, r := range rs {
		if err := r.RecordTurn(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

func (rs Recorders) RecordDialogue(ctx context.Context, dialogue models.Dialogue) error {
	for _, r := range rs {
		if err := r.RecordDialogue(ctx, dialogue); err != nil {
			return err
		}
	}
	return nil
}
