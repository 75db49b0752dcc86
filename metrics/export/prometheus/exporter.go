package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
)

const contentType = "text/plain; version=0.0.4; charset=utf-8"

type metricsSource interface {
	MetricsSnapshot() goSession.MetricsSnapshot
	AuditDropped() uint64
}

// PrometheusExporter renders engine counters and the decode latency histogram
// in the Prometheus text format. Related counters are grouped into labeled
// families, so rate limiting appears as gosession_rate_limited_total with a
// dimension label and decode outcomes as gosession_token_decode_total with a
// result label.
type PrometheusExporter struct {
	source metricsSource
}

// NewPrometheusExporter returns an exporter that reads from engine.
func NewPrometheusExporter(engine *goSession.Engine) *PrometheusExporter {
	return &PrometheusExporter{source: engine}
}

// NewPrometheusExporterFromSource returns an exporter over any metrics source,
// such as a test fake.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler serves Render on every request.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the current exposition. It is empty when the engine was built
// with metrics disabled and no audit events were dropped.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var e exposition
	e.b.Grow(2048)

	for _, family := range internaldefs.CounterFamilies {
		e.family(family.Name, family.Help, "counter")
		for _, s := range family.Series {
			e.sample(family.Name, family.Label, s.Value, snapshot.Counters[s.ID])
		}
	}

	for _, def := range internaldefs.HistogramDefs {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID]))
		e.family(def.Name, def.Help, "histogram")
		for i, le := range internaldefs.HistogramBounds {
			e.sample(def.Name+"_bucket", "le", le, cumulative[i])
		}
		// The engine keeps bucket counts only, so no _sum series is written.
		e.sample(def.Name+"_count", "", "", cumulative[len(cumulative)-1])
	}

	e.family(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, "counter")
	e.sample(internaldefs.AuditDroppedName, "", "", dropped)

	return e.b.String()
}

// exposition accumulates text-format lines. Every sample carries at most one
// label.
type exposition struct {
	b strings.Builder
}

func (e *exposition) family(name, help, kind string) {
	e.b.WriteString("# HELP ")
	e.b.WriteString(name)
	e.b.WriteByte(' ')
	e.b.WriteString(escape(help, false))
	e.b.WriteString("\n# TYPE ")
	e.b.WriteString(name)
	e.b.WriteByte(' ')
	e.b.WriteString(kind)
	e.b.WriteByte('\n')
}

func (e *exposition) sample(name, label, value string, v uint64) {
	e.b.WriteString(name)
	if label != "" {
		e.b.WriteByte('{')
		e.b.WriteString(label)
		e.b.WriteString(`="`)
		e.b.WriteString(escape(value, true))
		e.b.WriteString(`"}`)
	}
	e.b.WriteByte(' ')
	e.b.WriteString(strconv.FormatUint(v, 10))
	e.b.WriteByte('\n')
}

// escape applies the text-format escaping rules. Label values additionally
// escape double quotes.
func escape(s string, quoted bool) string {
	if !strings.ContainsAny(s, "\\\n\"") {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	if quoted {
		s = strings.ReplaceAll(s, `"`, `\"`)
	}
	return s
}
