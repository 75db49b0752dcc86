package otel

import (
	"context"
	"errors"
	"fmt"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrNilMeter is returned when no Meter is supplied.
	ErrNilMeter = errors.New("nil meter")
	// ErrNilSource is returned when no metrics source is supplied.
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() goSession.MetricsSnapshot
	AuditDropped() uint64
}

// observedSeries is one family member. Unlabeled members carry no options.
type observedSeries struct {
	id   goSession.MetricID
	opts []metric.ObserveOption
}

type observedFamily struct {
	instrument metric.Int64ObservableCounter
	series     []observedSeries
}

type observedHistogram struct {
	id      goSession.MetricID
	buckets [8]metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// OTelExporter publishes engine metrics through an OpenTelemetry Meter until
// Close is called.
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration
	families     []observedFamily
	histograms   []observedHistogram
	auditDropped metric.Int64ObservableCounter
}

// NewOTelExporter registers instruments on meter that read from engine.
func NewOTelExporter(meter metric.Meter, engine *goSession.Engine) (*OTelExporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, engine)
}

// NewOTelExporterFromSource registers instruments on meter that read from source.
func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{
		source:     source,
		families:   make([]observedFamily, 0, len(internaldefs.CounterFamilies)),
		histograms: make([]observedHistogram, 0, len(internaldefs.HistogramDefs)),
	}

	observables := make([]metric.Observable, 0, len(internaldefs.CounterFamilies)+len(internaldefs.HistogramDefs)*9+1)

	for _, family := range internaldefs.CounterFamilies {
		ins, err := meter.Int64ObservableCounter(family.Name, metric.WithDescription(family.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", family.Name, err)
		}
		f := observedFamily{instrument: ins, series: make([]observedSeries, 0, len(family.Series))}
		for _, s := range family.Series {
			member := observedSeries{id: s.ID}
			if family.Label != "" {
				member.opts = []metric.ObserveOption{
					metric.WithAttributes(attribute.String(family.Label, s.Value)),
				}
			}
			f.series = append(f.series, member)
		}
		e.families = append(e.families, f)
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		h := observedHistogram{id: def.ID}
		for i, suffix := range internaldefs.HistogramBoundSuffix {
			name := def.Name + "_bucket_le_" + suffix
			ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative histogram bucket count."))
			if err != nil {
				return nil, fmt.Errorf("create histogram bucket gauge %s: %w", name, err)
			}
			h.buckets[i] = ins
			observables = append(observables, ins)
		}
		countName := def.Name + "_count"
		countIns, err := meter.Int64ObservableGauge(countName, metric.WithDescription("Histogram total sample count."))
		if err != nil {
			return nil, fmt.Errorf("create histogram count gauge %s: %w", countName, err)
		}
		h.count = countIns
		observables = append(observables, countIns)
		e.histograms = append(e.histograms, h)
	}

	auditDropped, err := meter.Int64ObservableCounter(
		internaldefs.AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	e.auditDropped = auditDropped
	observables = append(observables, auditDropped)

	registration, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = registration
	return e, nil
}

func (e *OTelExporter) observe(_ context.Context, observer metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for _, f := range e.families {
		for _, s := range f.series {
			observer.ObserveInt64(f.instrument, int64(snapshot.Counters[s.id]), s.opts...)
		}
	}
	for _, h := range e.histograms {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[h.id]))
		for i := range cumulative {
			observer.ObserveInt64(h.buckets[i], int64(cumulative[i]))
		}
		observer.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]))
	}
	observer.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the callback. Instruments stop reporting afterwards.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
