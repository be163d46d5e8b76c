package meta_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rise-and-shine/docqueue/meta"
)

func TestInjectMetaToContext(t *testing.T) {
	tests := []struct {
		name        string
		initialCtx  context.Context
		data        map[meta.ContextKey]string
		keyToVerify meta.ContextKey
		valueExpect string
		nilValue    bool
	}{
		{
			name:        "inject single value",
			initialCtx:  t.Context(),
			data:        map[meta.ContextKey]string{meta.TraceID: "abc-123"},
			keyToVerify: meta.TraceID,
			valueExpect: "abc-123",
		},
		{
			name:       "inject message values",
			initialCtx: t.Context(),
			data: map[meta.ContextKey]string{
				meta.QueueName: "emails",
				meta.MessageID: "42",
				meta.Tries:     "3",
			},
			keyToVerify: meta.MessageID,
			valueExpect: "42",
		},
		{
			name:       "skip empty values",
			initialCtx: t.Context(),
			data: map[meta.ContextKey]string{
				meta.TraceID:   "trace-123",
				meta.MessageID: "",
			},
			keyToVerify: meta.MessageID,
			nilValue:    true,
		},
		{
			name:        "overwrite existing value",
			initialCtx:  context.WithValue(t.Context(), meta.TraceID, "old"),
			data:        map[meta.ContextKey]string{meta.TraceID: "new"},
			keyToVerify: meta.TraceID,
			valueExpect: "new",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := meta.InjectMetaToContext(tc.initialCtx, tc.data)

			if tc.nilValue {
				assert.Nil(t, ctx.Value(tc.keyToVerify))
				return
			}
			assert.Equal(t, tc.valueExpect, ctx.Value(tc.keyToVerify))
		})
	}
}

func TestExtractMetaFromContext(t *testing.T) {
	tests := []struct {
		name     string
		ctxSetup func() context.Context
		expected map[meta.ContextKey]string
	}{
		{
			name: "extract multiple values",
			ctxSetup: func() context.Context {
				ctx := context.WithValue(t.Context(), meta.TraceID, "trace-123")
				ctx = context.WithValue(ctx, meta.QueueName, "emails")
				return context.WithValue(ctx, meta.Tries, "1")
			},
			expected: map[meta.ContextKey]string{
				meta.TraceID:   "trace-123",
				meta.QueueName: "emails",
				meta.Tries:     "1",
			},
		},
		{
			name: "ignore non-string values",
			ctxSetup: func() context.Context {
				ctx := context.WithValue(t.Context(), meta.TraceID, 12345)
				return context.WithValue(ctx, meta.ServiceName, "docqueue")
			},
			expected: map[meta.ContextKey]string{meta.ServiceName: "docqueue"},
		},
		{
			name: "ignore unknown keys",
			ctxSetup: func() context.Context {
				ctx := context.WithValue(t.Context(), meta.ContextKey("custom"), "x")
				return context.WithValue(ctx, meta.MessageID, "7")
			},
			expected: map[meta.ContextKey]string{meta.MessageID: "7"},
		},
		{
			name:     "empty context",
			ctxSetup: t.Context,
			expected: map[meta.ContextKey]string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, meta.ExtractMetaFromContext(tc.ctxSetup()))
		})
	}
}
