package avl

import (
	"context"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// treeMetrics records the counters the rebalancer and BST core touch
// on every operation. Instrumentation names follow the teacher's
// observability/stats.go dotted convention (app.core.* there,
// avl.core.* here).
type treeMetrics struct {
	ops       metric.Int64Counter
	retries   metric.Int64Counter
	rotations metric.Int64Counter
	walks     metric.Int64Counter
	reclaimed metric.Int64Counter
}

// newTreeMetrics builds every instrument against the given provider.
// A nil provider falls back to noop.NewMeterProvider(), so a Tree
// built without WithMeterProvider still works — every Add call just
// lands in a no-op instrument.
func newTreeMetrics(mp metric.MeterProvider) *treeMetrics {
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	meter := mp.Meter("xavl/avl")
	return &treeMetrics{
		ops: lo.Must(meter.Int64Counter(
			"avl.core.ops",
			metric.WithDescription("Completed Insert/Remove/Contains calls, by operation and outcome."),
		)),
		retries: lo.Must(meter.Int64Counter(
			"avl.core.retries",
			metric.WithDescription("Validation failures that forced a retry, by kind."),
		)),
		rotations: lo.Must(meter.Int64Counter(
			"avl.core.rotations",
			metric.WithDescription("Single and double rotations performed by the rebalancer."),
		)),
		walks: lo.Must(meter.Int64Counter(
			"avl.core.rebalance_walks",
			metric.WithDescription("Upward rebalance walks invoked from Insert or Remove."),
		)),
		reclaimed: lo.Must(meter.Int64Counter(
			"avl.core.nodes_reclaimed",
			metric.WithDescription("Unlinked nodes handed off to the reclaimer."),
		)),
	}
}

func (m *treeMetrics) op(name, outcome string) {
	m.ops.Add(context.Background(), 1,
		metric.WithAttributes(attrOp(name), attrOutcome(outcome)))
}

func (m *treeMetrics) retry(kind string) {
	m.retries.Add(context.Background(), 1, metric.WithAttributes(attrKind(kind)))
}

func (m *treeMetrics) rotation() {
	m.rotations.Add(context.Background(), 1)
}

func (m *treeMetrics) walk() {
	m.walks.Add(context.Background(), 1)
}

func (m *treeMetrics) reclaim() {
	m.reclaimed.Add(context.Background(), 1)
}

func attrOp(name string) attribute.KeyValue      { return attribute.String("op", name) }
func attrOutcome(outcome string) attribute.KeyValue { return attribute.String("outcome", outcome) }
func attrKind(kind string) attribute.KeyValue    { return attribute.String("kind", kind) }
