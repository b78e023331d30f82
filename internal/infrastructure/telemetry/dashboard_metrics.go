package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/bakery/orderdesk/internal/domain/order"
)

var (
	attrEvent     = attribute.Key("event")
	attrOutcome   = attribute.Key("outcome")
	attrAction    = attribute.Key("action")
	attrTransport = attribute.Key("transport")
	attrBreaker   = attribute.Key("breaker")
	attrState     = attribute.Key("state")
)

// actionBuckets are seconds; actions are one upstream round trip.
var actionBuckets = []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// DashboardMetrics records session, action and realtime measurements. It
// satisfies both the dashboard and realtime metrics ports.
type DashboardMetrics struct {
	events         metric.Int64Counter
	reconnects     metric.Int64Counter
	actions        metric.Int64Counter
	actionDuration metric.Float64Histogram
	sessions       metric.Int64Gauge
	breakerChanges metric.Int64Counter
}

func NewDashboardMetrics(meter metric.Meter) (*DashboardMetrics, error) {
	m := &DashboardMetrics{}
	var err error
	if m.events, err = meter.Int64Counter("orderdesk.realtime.events",
		metric.WithDescription("Realtime events received, by event name and reconcile outcome"),
		metric.WithUnit("{event}")); err != nil {
		return nil, fmt.Errorf("create events counter: %w", err)
	}
	if m.reconnects, err = meter.Int64Counter("orderdesk.realtime.reconnects",
		metric.WithDescription("Event source reconnections after an outage"),
		metric.WithUnit("{reconnect}")); err != nil {
		return nil, fmt.Errorf("create reconnects counter: %w", err)
	}
	if m.actions, err = meter.Int64Counter("orderdesk.actions",
		metric.WithDescription("Submitted dashboard actions by outcome"),
		metric.WithUnit("{action}")); err != nil {
		return nil, fmt.Errorf("create actions counter: %w", err)
	}
	if m.actionDuration, err = meter.Float64Histogram("orderdesk.action.duration",
		metric.WithDescription("Time from submit to settled store"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(actionBuckets...)); err != nil {
		return nil, fmt.Errorf("create action histogram: %w", err)
	}
	if m.sessions, err = meter.Int64Gauge("orderdesk.sessions.active",
		metric.WithDescription("Open dashboard sessions"),
		metric.WithUnit("{session}")); err != nil {
		return nil, fmt.Errorf("create sessions gauge: %w", err)
	}
	if m.breakerChanges, err = meter.Int64Counter("orderdesk.api.breaker.transitions",
		metric.WithDescription("Circuit breaker state changes of the order API client"),
		metric.WithUnit("{transition}")); err != nil {
		return nil, fmt.Errorf("create breaker counter: %w", err)
	}
	return m, nil
}

func (m *DashboardMetrics) EventReceived(ctx context.Context, event, outcome string) {
	m.events.Add(ctx, 1, metric.WithAttributes(attrEvent.String(event), attrOutcome.String(outcome)))
}

func (m *DashboardMetrics) SourceReconnected(ctx context.Context, transport string) {
	m.reconnects.Add(ctx, 1, metric.WithAttributes(attrTransport.String(transport)))
}

func (m *DashboardMetrics) ActionCompleted(ctx context.Context, action order.Action, outcome string, d time.Duration) {
	attrs := metric.WithAttributes(attrAction.String(string(action)), attrOutcome.String(outcome))
	m.actions.Add(ctx, 1, attrs)
	m.actionDuration.Record(ctx, d.Seconds(), attrs)
}

func (m *DashboardMetrics) SessionsActive(ctx context.Context, n int) {
	m.sessions.Record(ctx, int64(n))
}

// BreakerStateChanged is hooked into the API client's circuit breaker.
func (m *DashboardMetrics) BreakerStateChanged(name, to string) {
	m.breakerChanges.Add(context.Background(), 1, metric.WithAttributes(attrBreaker.String(name), attrState.String(to)))
}
