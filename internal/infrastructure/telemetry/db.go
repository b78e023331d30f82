package telemetry

import (
	"context"
	"fmt"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"gorm.io/gorm"
)

// InstrumentDB adds a span per statement and observable connection pool
// gauges to db. Statement values are not recorded since snapshots carry
// whole order lists.
func InstrumentDB(db *gorm.DB, meter metric.Meter, dbName string) error {
	if err := db.Use(otelgorm.NewPlugin(
		otelgorm.WithDBName(dbName),
		otelgorm.WithoutQueryVariables(),
	)); err != nil {
		return fmt.Errorf("register otelgorm: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}

	conns, err := meter.Int64ObservableGauge("orderdesk.db.connections",
		metric.WithDescription("Database pool connections by state"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return fmt.Errorf("create pool gauge: %w", err)
	}
	waits, err := meter.Int64ObservableCounter("orderdesk.db.wait_count",
		metric.WithDescription("Connections waited for since start"),
		metric.WithUnit("{wait}"))
	if err != nil {
		return fmt.Errorf("create wait counter: %w", err)
	}

	inUse := metric.WithAttributes(attribute.String("state", "in_use"))
	idle := metric.WithAttributes(attribute.String("state", "idle"))
	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := sqlDB.Stats()
		o.ObserveInt64(conns, int64(s.InUse), inUse)
		o.ObserveInt64(conns, int64(s.Idle), idle)
		o.ObserveInt64(waits, s.WaitCount)
		return nil
	}, conns, waits)
	if err != nil {
		return fmt.Errorf("register pool callback: %w", err)
	}
	return nil
}
