package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		" error ": zapcore.ErrorLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok, s)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLogLevel("verbose")
	require.False(t, ok)
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l := New(zapcore.DebugLevel, &buf)
	ctx := ToContext(context.Background(), l)

	require.Same(t, l, FromContext(ctx))
	require.Same(t, Logger(), FromContext(context.Background()))

	DebugKV(ctx, "probing", "path", ".version")
	require.NoError(t, l.Sync())
	require.Contains(t, buf.String(), "probing")
	require.Contains(t, buf.String(), ".version")
}
