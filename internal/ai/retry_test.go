package ai_test

import (
	"context"
	"github.com/myrjola/twentyq/internal/ai"
	"github.com/myrjola/twentyq/internal/errors"
	"github.com/myrjola/twentyq/internal/testhelpers"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"io"
	"testing"
	"time"
)

func TestRetryOnRateLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	model := ai.NewMockModel(ctrl)
	req := ai.Request{Question: "This is the current dialogue: ", History: nil, Temperature: 0}
	want := ai.Answer{Text: "Is it a fruit?"}

	rateLimited := errors.Wrap(ai.ErrRateLimited, "create chat completion")
	gomock.InOrder(
		model.EXPECT().Ask(gomock.Any(), req).Return(ai.Answer{}, rateLimited).Times(3),
		model.EXPECT().Ask(gomock.Any(), req).Return(want, nil),
	)

	retrier := ai.RetryOnRateLimit(model, time.Millisecond, testhelpers.NewLogger(io.Discard))
	got, err := retrier.Ask(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestRetryOnRateLimit_otherErrorsPropagate(t *testing.T) {
	ctrl := gomock.NewController(t)
	model := ai.NewMockModel(ctrl)
	unauthorized := errors.NewSentinel("unauthorized")
	model.EXPECT().Ask(gomock.Any(), gomock.Any()).Return(ai.Answer{}, unauthorized).Times(1)

	retrier := ai.RetryOnRateLimit(model, time.Millisecond, testhelpers.NewLogger(io.Discard))
	_, err := retrier.Ask(context.Background(), ai.Request{})
	require.ErrorIs(t, err, unauthorized)
}

func TestRetryOnRateLimit_cancelledWhileWaiting(t *testing.T) {
	ctrl := gomock.NewController(t)
	model := ai.NewMockModel(ctrl)
	ctx, cancel := context.WithCancel(context.Background())
	model.EXPECT().Ask(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, ai.Request) (ai.Answer, error) {
		cancel()
		return ai.Answer{}, ai.ErrRateLimited
	})

	retrier := ai.RetryOnRateLimit(model, time.Hour, testhelpers.NewLogger(io.Discard))
	_, err := retrier.Ask(ctx, ai.Request{})
	require.ErrorIs(t, err, context.Canceled)
}
