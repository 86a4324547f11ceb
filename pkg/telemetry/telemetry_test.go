// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	cfg := DefaultConfig()
	assert.Equal(t, "journai", cfg.ServiceName)
	assert.Equal(t, ExporterNone, cfg.TraceExporter)

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	cfg = DefaultConfig()
	assert.Equal(t, ExporterOTLP, cfg.TraceExporter)
	assert.Equal(t, "collector:4317", cfg.OTLPEndpoint)
}

func TestInit_NilContext(t *testing.T) {
	_, err := Init(nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrNilContext)
}

func TestInit_UnknownExporter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TraceExporter = "zipkin"
	_, err := Init(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrUnknownExporter)
}

func TestInit_None(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TraceExporter = ExporterNone
	shutdown, err := Init(context.Background(), cfg)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInit_StdoutExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.TraceExporter = ExporterStdout
	cfg.Writer = &buf

	shutdown, err := Init(context.Background(), cfg)
	require.NoError(t, err)

	_, span := otel.Tracer("journai.test").Start(context.Background(), "unit-span")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, buf.String(), "unit-span")
}
