package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestLoggerErrorIncludesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: "debug", Output: buf})

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithOrderID(ctx, "order-9")

	log.Error(ctx, "boom", errors.New("boom"))

	require.Contains(t, buf.String(), `"request_id":"req-123"`)
	require.Contains(t, buf.String(), `"order_id":"order-9"`)
	require.Contains(t, buf.String(), `"stack"`)
}

func TestLoggerWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: "debug", Output: buf, WarnStack: true})
	log.Warn(context.Background(), "warny")
	require.Contains(t, buf.String(), `"stack"`)

	buf.Reset()
	quiet := New(Options{ServiceName: "test", Output: buf})
	quiet.Warn(context.Background(), "warny")
	require.NotContains(t, buf.String(), `"stack"`)
}

func TestLoggerFieldsDoNotLeakBetweenContexts(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})

	base := context.Background()
	withBranch := log.WithField(base, "branch_id", "branch-1")

	log.Info(base, "plain")
	require.NotContains(t, buf.String(), "branch-1")

	log.Info(withBranch, "scoped")
	require.Contains(t, buf.String(), `"branch_id":"branch-1"`)
}

func TestParseLevelDefaults(t *testing.T) {
	require.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	require.Equal(t, zerolog.InfoLevel, ParseLevel("invalid"))
	require.Equal(t, zerolog.DebugLevel, ParseLevel(" DEBUG "))
}

func TestLoggerRedactsSensitiveFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})

	ctx := log.WithFields(context.Background(), map[string]any{
		"client_secret":     "pi_123_secret_456",
		"payment_intent_id": "pi_123",
	})
	ctx = log.WithField(ctx, "Authorization", "Bearer abc")
	log.Info(ctx, "intent created")

	require.NotContains(t, buf.String(), "secret_456")
	require.NotContains(t, buf.String(), "Bearer abc")
	require.Contains(t, buf.String(), `"payment_intent_id":"pi_123"`)
	require.Contains(t, buf.String(), `"client_secret":"[redacted]"`)
}

func TestLoggerDebugHonoursLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{ServiceName: "test", Output: buf}).Debug(context.Background(), "hidden")
	require.Empty(t, buf.String())

	New(Options{ServiceName: "test", Level: "debug", Output: buf}).Debug(context.Background(), "shown")
	require.Contains(t, buf.String(), "shown")
}

func TestLoggerIgnoresFieldsFromAnotherLogger(t *testing.T) {
	apiBuf, cronBuf := &bytes.Buffer{}, &bytes.Buffer{}
	api := New(Options{ServiceName: "api", Output: apiBuf})
	cron := New(Options{ServiceName: "cron-worker", Output: cronBuf})

	ctx := api.WithField(context.Background(), "request_id", "req-1")
	cron.Info(ctx, "tick")

	require.Contains(t, cronBuf.String(), `"service":"cron-worker"`)
	require.NotContains(t, cronBuf.String(), "req-1")
}

func TestLoggerWritesFieldsInKeyOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})
	log.Info(log.WithFields(context.Background(), map[string]any{"zeta": 1, "alpha": 2, "mid": 3}), "ordered")

	out := buf.String()
	require.Less(t, strings.Index(out, `"alpha"`), strings.Index(out, `"mid"`))
	require.Less(t, strings.Index(out, `"mid"`), strings.Index(out, `"zeta"`))
}
