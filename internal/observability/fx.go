package observability

import (
	obsmetrics "github.com/smallbiznis/pixcheckout/internal/observability/metrics"
	"go.uber.org/fx"
)

func metricsConfig(cfg Config) obsmetrics.Config {
	return obsmetrics.Config{
		Enabled:          cfg.OtelEnabled,
		ExporterEndpoint: cfg.OtelExporterEndpoint,
		ExporterProtocol: cfg.OtelExporterProtocol,
		ServiceName:      cfg.ServiceName,
		Environment:      cfg.Environment,
	}
}

// Module wires observability config and the otel metrics instruments.
var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		metricsConfig,
		obsmetrics.NewProvider,
		obsmetrics.New,
	),
)
