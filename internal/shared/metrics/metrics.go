package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

type counter struct {
	name  string
	help  string
	value atomic.Uint64
}

var (
	analysisStarted   = &counter{name: "analysis_started_total", help: "Total analyses started"}
	analysisCompleted = &counter{name: "analysis_completed_total", help: "Total analyses completed"}
	analysisFailed    = &counter{name: "analysis_failed_total", help: "Total analyses failed"}
	persistDegraded   = &counter{name: "persist_degraded_total", help: "Persistence steps that failed and were skipped"}
	reportRendered    = &counter{name: "report_rendered_total", help: "Total PDF reports rendered"}
	reportFailed      = &counter{name: "report_failed_total", help: "Total PDF reports that failed to render"}
	shareSent         = &counter{name: "share_sent_total", help: "Total reports delivered by email"}
	shareFailed       = &counter{name: "share_failed_total", help: "Total email deliveries that failed"}

	counters = []*counter{
		analysisStarted, analysisCompleted, analysisFailed, persistDegraded,
		reportRendered, reportFailed, shareSent, shareFailed,
	}

	analysisDuration = newHistogram([]float64{500, 1000, 2000, 5000, 10000, 30000, 60000, 120000})
	reportDuration   = newHistogram([]float64{50, 100, 250, 500, 1000, 5000, 20000})

	analysisByTask = &labeledCounter{name: "analysis_by_task_total", help: "Completed analyses per task", label: "task_id"}
)

func IncAnalysisStarted()   { analysisStarted.value.Add(1) }
func IncAnalysisCompleted() { analysisCompleted.value.Add(1) }
func IncAnalysisFailed()    { analysisFailed.value.Add(1) }

// IncPersistDegraded counts one skipped persistence step (bucket, upload, url or record).
func IncPersistDegraded() { persistDegraded.value.Add(1) }

func IncReportRendered() { reportRendered.value.Add(1) }
func IncReportFailed()   { reportFailed.value.Add(1) }
func IncShareSent()      { shareSent.value.Add(1) }
func IncShareFailed()    { shareFailed.value.Add(1) }

// ObserveAnalysisDurationMs records an analysis duration in milliseconds.
func ObserveAnalysisDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	analysisDuration.Observe(value)
}

// IncAnalysisByTask counts a completed analysis under its task id.
func IncAnalysisByTask(taskID string) { analysisByTask.inc(taskID) }

// ObserveReportRenderMs records a PDF render duration in milliseconds.
func ObserveReportRenderMs(value float64) {
	if value < 0 {
		value = 0
	}
	reportDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	for _, c := range counters {
		writeCounter(&buf, c.name, c.help, c.value.Load())
	}
	analysisByTask.write(&buf)
	writeHistogram(&buf, "analysis_duration_ms", "Analysis duration in milliseconds", analysisDuration.Snapshot())
	writeHistogram(&buf, "report_render_duration_ms", "PDF render duration in milliseconds", reportDuration.Snapshot())
	return buf.String()
}

// labeledCounter is a counter family keyed by one label. Label values come
// from the closed task catalog, so cardinality stays bounded.
type labeledCounter struct {
	name  string
	help  string
	label string

	mu     sync.Mutex
	values map[string]uint64
}

func (l *labeledCounter) inc(value string) {
	if value == "" {
		value = "unknown"
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.values == nil {
		l.values = make(map[string]uint64)
	}
	l.values[value]++
}

func (l *labeledCounter) write(buf *bytes.Buffer) {
	l.mu.Lock()
	keys := make([]string, 0, len(l.values))
	for k := range l.values {
		keys = append(keys, k)
	}
	snapshot := make(map[string]uint64, len(keys))
	for _, k := range keys {
		snapshot[k] = l.values[k]
	}
	l.mu.Unlock()

	sort.Strings(keys)
	fmt.Fprintf(buf, "# HELP %s %s\n", l.name, l.help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", l.name)
	for _, k := range keys {
		fmt.Fprintf(buf, "%s{%s=%q} %d\n", l.name, l.label, k, snapshot[k])
	}
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe records value in the first bucket whose bound covers it; Render accumulates.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
