package logging_test

import (
	"bytes"
	"context"
	"github.com/myrjola/twentyq/internal/logging"
	"github.com/stretchr/testify/require"
	"log/slog"
	"testing"
)

func TestContextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(&buf, false).With("source", "Generator")

	ctx := logging.WithAttrs(context.Background(), slog.Int("dialogue_id", 4))
	first := logging.WithAttrs(ctx, slog.Int("attempt", 1))
	second := logging.WithAttrs(ctx, slog.Int("attempt", 2))

	logger.LogAttrs(first, slog.LevelInfo, "first")
	logger.LogAttrs(second, slog.LevelInfo, "second")
	logger.LogAttrs(second, slog.LevelDebug, "hidden")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	require.Contains(t, string(lines[0]), "source=Generator")
	require.Contains(t, string(lines[0]), "dialogue_id=4 attempt=1")
	require.Contains(t, string(lines[1]), "dialogue_id=4 attempt=2")
	require.NotContains(t, string(lines[1]), "attempt=1")
}

func TestNewLogger_verbose(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(&buf, true)
	logger.LogAttrs(context.Background(), slog.LevelDebug, "visible")
	require.Contains(t, buf.String(), "visible")
}
