package main

import (
	"context"
	"errors"

	"calculator-api/internal/calculator"
	"calculator-api/internal/config"
	"calculator-api/internal/observability"
)

// initTelemetry starts the OTLP trace, metric and (optionally) log pipelines
// and registers the calculator's metric instruments. With telemetry disabled
// the instruments bind to the global no-op providers.
func initTelemetry(ctx context.Context, cfg config.TelemetryConfig) (func(context.Context) error, error) {
	observability.SetServiceName(cfg.ServiceName)

	var shutdowns []func(context.Context) error
	shutdown := func(ctx context.Context) error {
		var errs []error
		for i := len(shutdowns) - 1; i >= 0; i-- {
			errs = append(errs, shutdowns[i](ctx))
		}
		return errors.Join(errs...)
	}

	if cfg.Enabled {
		traceShutdown, err := observability.InitTracing(ctx)
		if err != nil {
			return nil, err
		}
		shutdowns = append(shutdowns, traceShutdown)

		metricShutdown, err := observability.InitMetrics(ctx)
		if err != nil {
			shutdown(ctx)
			return nil, err
		}
		shutdowns = append(shutdowns, metricShutdown)

		if cfg.LogsEnabled {
			logShutdown, err := observability.InitLogging(ctx)
			if err != nil {
				shutdown(ctx)
				return nil, err
			}
			shutdowns = append(shutdowns, logShutdown)
		}
	}

	// Add new domain InitMetrics calls here as the project grows.
	if err := calculator.InitMetrics(); err != nil {
		shutdown(ctx)
		return nil, err
	}

	return shutdown, nil
}
