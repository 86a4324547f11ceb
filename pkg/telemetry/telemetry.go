// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry installs the process-wide OpenTelemetry tracer provider.
//
// Spans started with otel.Tracer anywhere in JournAI are exported through
// the provider configured here. Metrics do not flow through OpenTelemetry;
// they are Prometheus collectors exposed at /metrics.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

var (
	// ErrNilContext is returned when Init is called with a nil context.
	ErrNilContext = errors.New("telemetry: nil context")

	// ErrUnknownExporter is returned for an unsupported exporter name.
	ErrUnknownExporter = errors.New("telemetry: unknown exporter")
)

// Exporter names accepted in Config.TraceExporter.
const (
	ExporterOTLP   = "otlp"
	ExporterStdout = "stdout"
	ExporterNone   = "none"
)

// Config controls trace export.
type Config struct {
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	Environment    string `yaml:"environment"`

	// TraceExporter is "otlp", "stdout" or "none".
	TraceExporter string `yaml:"trace_exporter"`

	// OTLPEndpoint is the gRPC collector address, host:port.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`

	// SampleRatio is the fraction of root traces kept, 0 to 1.
	SampleRatio float64 `yaml:"sample_ratio"`

	// Writer receives stdout exporter output. Defaults to os.Stdout.
	Writer io.Writer `yaml:"-"`
}

// DefaultConfig exports nothing unless OTEL_EXPORTER_OTLP_ENDPOINT is set.
func DefaultConfig() Config {
	cfg := Config{
		ServiceName:    "journai",
		ServiceVersion: "dev",
		Environment:    getEnvOr("JOURNAI_ENV", "development"),
		TraceExporter:  ExporterNone,
		OTLPEndpoint:   "localhost:4317",
		OTLPInsecure:   true,
		SampleRatio:    1.0,
	}
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		cfg.TraceExporter = ExporterOTLP
		cfg.OTLPEndpoint = endpoint
	}
	return cfg
}

// Init installs a tracer provider and the W3C propagators.
//
// # Outputs
//
//   - shutdown: flushes and stops the exporter. Always non-nil on success,
//     including for the "none" exporter.
//   - error: ErrNilContext, ErrUnknownExporter, or an exporter failure.
//
// # Thread Safety
//
// Call once at startup.
func Init(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if cfg.TraceExporter == "" || cfg.TraceExporter == ExporterNone {
		return func(context.Context) error { return nil }, nil
	}

	exporter, closeConn, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironment(cfg.Environment),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	)
	otel.SetTracerProvider(tp)
	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), closeConn())
	}, nil
}

// newExporter returns the span exporter and a closer for any connection the
// exporter does not own.
func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, func() error, error) {
	noop := func() error { return nil }
	switch cfg.TraceExporter {
	case ExporterOTLP:
		if !cfg.OTLPInsecure {
			exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint))
			if err != nil {
				return nil, nil, fmt.Errorf("create otlp exporter: %w", err)
			}
			return exporter, noop, nil
		}
		conn, err := grpc.NewClient(cfg.OTLPEndpoint,
			grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, nil, fmt.Errorf("dial otlp collector: %w", err)
		}
		exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
		if err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("create otlp exporter: %w", err)
		}
		return exporter, conn.Close, nil

	case ExporterStdout:
		w := cfg.Writer
		if w == nil {
			w = os.Stdout
		}
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, nil, fmt.Errorf("create stdout exporter: %w", err)
		}
		return exporter, noop, nil

	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.TraceExporter)
	}
}

func getEnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
