package metrics

import (
	"strings"
	"testing"
)

func TestHistogramBucketsAreCumulative(t *testing.T) {
	h := newHistogram([]float64{10, 100})
	h.Observe(5)
	h.Observe(50)
	h.Observe(500)

	snap := h.Snapshot()
	if snap.count != 3 {
		t.Fatalf("expected count 3, got %d", snap.count)
	}
	var cumulative uint64
	for i := range snap.buckets {
		cumulative += snap.counts[i]
	}
	if cumulative != 2 {
		t.Fatalf("expected 2 observations within bounds, got %d", cumulative)
	}
}

func TestRenderIncludesCounters(t *testing.T) {
	IncShareSent()
	out := Render()
	for _, name := range []string{"analysis_started_total", "share_sent_total", "report_rendered_total", "analysis_duration_ms_count"} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected %s in output", name)
		}
	}
}

func TestAnalysisByTaskIsLabeledAndSorted(t *testing.T) {
	IncAnalysisByTask("fracture-detection")
	IncAnalysisByTask("bone-age")
	IncAnalysisByTask("fracture-detection")
	ObserveReportRenderMs(42)

	out := Render()
	boneAge := strings.Index(out, `analysis_by_task_total{task_id="bone-age"} 1`)
	fracture := strings.Index(out, `analysis_by_task_total{task_id="fracture-detection"} 2`)
	if boneAge < 0 || fracture < 0 {
		t.Fatalf("expected labeled series in output:\n%s", out)
	}
	if boneAge > fracture {
		t.Fatalf("expected series sorted by label value")
	}
	if !strings.Contains(out, "report_render_duration_ms_count") {
		t.Fatalf("expected render histogram in output")
	}
}
