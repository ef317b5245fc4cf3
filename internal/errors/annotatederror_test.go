package errors

import (
	"bytes"
	"context"
	"github.com/stretchr/testify/require"
	"log/slog"
	"slices"
	"testing"
)

func TestAnnotatedError(t *testing.T) {
	err := New("test error", slog.String("id", "123"))
	require.Equal(t, "test error", err.Error())

	// Assert that wrapping sentinel errors work as expected.
	sentinel := NewSentinel("rate limited")
	require.NotErrorIs(t, err, sentinel)
	wrapped := Wrap(sentinel, "ask model", slog.Int("dialogue_id", 7))
	require.ErrorIs(t, wrapped, sentinel)
	require.Equal(t, "ask model: rate limited", wrapped.Error())

	// Ensure log values are coming through.
	var annotated AnnotatedError
	require.True(t, As(err, &annotated))
	group := annotated.LogValue().Group()
	require.Contains(t, group, slog.String("id", "123"))

	// Assert there's a valid source
	sourceIdx := slices.IndexFunc(group, func(attr slog.Attr) bool {
		return attr.Key == "source"
	})
	require.GreaterOrEqual(t, sourceIdx, 0)
	require.Contains(t, group[sourceIdx].Value.String(), "annotatederror_test.go")
}

func TestWrap_nil(t *testing.T) {
	require.NoError(t, Wrap(nil, "nothing happened"))
}

func TestSlogError(t *testing.T) {
	inner := Wrap(NewSentinel("boom"), "write turn", slog.Int("intra_dialogue_id", 3))
	outer := Wrap(inner, "record turn", slog.Int("dialogue_id", 1))

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	logger.LogAttrs(context.Background(), slog.LevelError, "failed", SlogError(outer))

	out := buf.String()
	require.Contains(t, out, "error.dialogue_id=1")
	require.Contains(t, out, "error.intra_dialogue_id=3")
	require.Contains(t, out, "record turn: write turn: boom")

	require.Equal(t, slog.String("error", "plain"), SlogError(NewSentinel("plain")))
}
