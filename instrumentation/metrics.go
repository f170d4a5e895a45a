package instrumentation

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the metric instruments for the connection manager.
type Metrics struct {
	// Flow metrics
	AuthURLIssued     metric.Int64Counter
	CallbackProcessed metric.Int64Counter
	TokenRefreshed    metric.Int64Counter
	Disconnected      metric.Int64Counter

	// Provider boundary metrics
	ProviderCallsTotal  metric.Int64Counter
	ProviderCallErrors  metric.Int64Counter
	ProviderAPIDuration metric.Float64Histogram

	// Storage metrics
	ConnectionsLive metric.Int64ObservableGauge
}

func newMetrics(inst *Instrumentation) (*Metrics, error) {
	m := &Metrics{}
	meter := inst.Meter("manager")

	var err error
	m.AuthURLIssued, err = meter.Int64Counter(
		"connect.authurl.issued",
		metric.WithDescription("Number of authorization URLs issued"),
		metric.WithUnit("{flow}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create authurl.issued counter: %w", err)
	}

	m.CallbackProcessed, err = meter.Int64Counter(
		"connect.callback.processed",
		metric.WithDescription("Number of provider callbacks processed"),
		metric.WithUnit("{callback}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create callback.processed counter: %w", err)
	}

	m.TokenRefreshed, err = meter.Int64Counter(
		"connect.token.refreshed",
		metric.WithDescription("Number of token refreshes attempted"),
		metric.WithUnit("{refresh}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token.refreshed counter: %w", err)
	}

	m.Disconnected, err = meter.Int64Counter(
		"connect.disconnected",
		metric.WithDescription("Number of connections disconnected"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create disconnected counter: %w", err)
	}

	providerMeter := inst.Meter("provider")

	m.ProviderCallsTotal, err = providerMeter.Int64Counter(
		"connect.provider.calls",
		metric.WithDescription("Total calls to the remote provider"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider.calls counter: %w", err)
	}

	m.ProviderCallErrors, err = providerMeter.Int64Counter(
		"connect.provider.errors",
		metric.WithDescription("Failed calls to the remote provider"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider.errors counter: %w", err)
	}

	m.ProviderAPIDuration, err = providerMeter.Float64Histogram(
		"connect.provider.duration",
		metric.WithDescription("Remote provider call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider.duration histogram: %w", err)
	}

	storageMeter := inst.Meter("storage")

	m.ConnectionsLive, err = storageMeter.Int64ObservableGauge(
		"connect.connections.live",
		metric.WithDescription("Number of connection rows currently stored"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create connections.live gauge: %w", err)
	}

	return m, nil
}
