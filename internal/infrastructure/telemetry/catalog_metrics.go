package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope of the catalog instruments
const MeterName = "github.com/storefront/backend/catalog"

// Descendant cache lookup results
const (
	CacheLookupHit   = "hit"
	CacheLookupMiss  = "miss"
	CacheLookupError = "error"
)

// Category move outcomes
const (
	MoveOutcomeMoved  = "moved"
	MoveOutcomeEdge   = "edge"
	MoveOutcomeFailed = "failed"
)

var (
	attrResult  = attribute.Key("result")
	attrOutcome = attribute.Key("outcome")
)

// ErrMeterNil is returned when CatalogMetrics is built without a meter
var ErrMeterNil = errors.New("catalog metrics: meter cannot be nil")

// CatalogMetrics records counters for the category hierarchy.
// Every method is a no-op on a nil receiver so collaborators can hold an
// optional *CatalogMetrics without checking it.
type CatalogMetrics struct {
	cacheLookups       metric.Int64Counter
	sortOrderRetries   metric.Int64Counter
	sortOrderExhausted metric.Int64Counter
	moves              metric.Int64Counter
}

// NewCatalogMetrics registers the catalog instruments on meter
func NewCatalogMetrics(meter metric.Meter) (*CatalogMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	var (
		m   CatalogMetrics
		err error
	)
	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
		unit        string
	}{
		{&m.cacheLookups, "catalog_descendant_cache_lookups_total", "Descendant cache lookups by result", "{lookups}"},
		{&m.sortOrderRetries, "catalog_sort_order_retries_total", "Writes retried after losing a sort order race", "{retries}"},
		{&m.sortOrderExhausted, "catalog_sort_order_contention_total", "Writes that gave up after the last sort order retry", "{writes}"},
		{&m.moves, "catalog_category_moves_total", "Category move requests by outcome", "{moves}"},
	}
	for _, c := range counters {
		*c.target, err = meter.Int64Counter(c.name, metric.WithDescription(c.description), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", c.name, err)
		}
	}
	return &m, nil
}

// RecordCacheLookup counts one descendant cache lookup
func (m *CatalogMetrics) RecordCacheLookup(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(attrResult.String(result)))
}

// RecordSortOrderRetry counts one retried write
func (m *CatalogMetrics) RecordSortOrderRetry(ctx context.Context) {
	if m == nil {
		return
	}
	m.sortOrderRetries.Add(ctx, 1)
}

// RecordSortOrderContention counts one write that ran out of retries
func (m *CatalogMetrics) RecordSortOrderContention(ctx context.Context) {
	if m == nil {
		return
	}
	m.sortOrderExhausted.Add(ctx, 1)
}

// RecordMove counts one move request
func (m *CatalogMetrics) RecordMove(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.moves.Add(ctx, 1, metric.WithAttributes(attrOutcome.String(outcome)))
}
