// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{Enabled: false, ExporterType: "grpc"})
	require.NoError(t, err)
	assert.Nil(t, provider.tp)

	_, span := otel.Tracer("test").Start(context.Background(), "noop-check")
	assert.False(t, span.IsRecording())
	span.End()

	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, ExporterType: "invalid"})
	require.Error(t, err)
	assert.Equal(t, `telemetry: unsupported exporter "invalid" (want grpc or http)`, err.Error())
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{rate: 1.0, want: sdktrace.AlwaysSample().Description()},
		{rate: 2.0, want: sdktrace.AlwaysSample().Description()},
		{rate: 0, want: sdktrace.NeverSample().Description()},
		{rate: 0.5, want: sdktrace.ParentBased(sdktrace.TraceIDRatioBased(0.5)).Description()},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, samplerFor(tt.rate).Description())
	}
}

func TestResolveAttributes(t *testing.T) {
	attrs := ResolveAttributes("42", "manual_hls", "Transcode", 0)
	require.Len(t, attrs, 4)
	assert.Equal(t, "42", attrs[0].Value.AsString())
	assert.Equal(t, int64(0), attrs[3].Value.AsInt64())
}
