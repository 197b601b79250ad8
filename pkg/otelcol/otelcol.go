package otelcol

import (
	"context"

	"coinvest-platform/pkg/config"
	"coinvest-platform/pkg/otelcol/exporters"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("otelcol", fx.Invoke(Register))

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
}

// Register installs the global tracer provider when tracing is enabled. The
// gorm otel plugin and any instrumented clients pick it up from the global.
func Register(p Params) error {
	if !p.Config.Otel.Enable {
		return nil
	}

	exporter, err := exporters.ProvideHTTP(p.Config)
	if err != nil {
		return err
	}

	tp := ProvideTrace(exporter)
	otel.SetTracerProvider(tp)

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})

	zap.L().Info("otel tracing enabled", zap.String("endpoint", p.Config.Otel.Endpoint))
	return nil
}

func defaultTraceProviderOption() []trace.TracerProviderOption {
	return []trace.TracerProviderOption{
		trace.WithResource(resource.Default()),
	}
}

func ProvideTrace(exporter trace.SpanExporter, opts ...trace.TracerProviderOption) *trace.TracerProvider {
	if len(opts) == 0 {
		opts = defaultTraceProviderOption()
	}

	opts = append(opts, trace.WithBatcher(exporter))

	return trace.NewTracerProvider(opts...)
}
