// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want log.Level
	}{
		{"debug", log.DebugLevel},
		{"DEBUG", log.DebugLevel},
		{"info", log.InfoLevel},
		{"warn", log.WarnLevel},
		{"warning", log.WarnLevel},
		{" error ", log.ErrorLevel},
		{"", log.InfoLevel},
		{"verbose", log.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNewWriter_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, "warn")

	logger.Info("hidden")
	logger.Warn("shown", "key", "plot_12.png")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "plot_12.png")
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, "debug")

	ctx := WithLogger(context.Background(), logger)
	require.Same(t, logger, FromContext(ctx))

	assert.Same(t, Default(), FromContext(context.Background()))
	//nolint:staticcheck // nil context falls back to the default logger
	assert.Same(t, Default(), FromContext(nil))
}

func TestSetDefault(t *testing.T) {
	original := Default()
	defer SetDefault(original)

	var buf bytes.Buffer
	replacement := NewWriter(&buf, "error")
	SetDefault(replacement)
	assert.Same(t, replacement, Default())

	SetLevel("debug")
	assert.Equal(t, log.DebugLevel, replacement.GetLevel())
}
