package metrics

import (
	"strings"
	"testing"
)

func TestExportContainsRecordedMetrics(t *testing.T) {
	RecordRequest("GET", "/extractions/:id", 200, 12)
	RecordScrapeOutcome(0)
	RecordScrapeOutcome(2)
	RecordCaptchaSolve(true)
	RecordProgressFlush()
	RecordRetentionExtractions(3)

	out := Export()

	for _, want := range []string{
		`gradex_http_requests_total{method="GET",path="/extractions/:id",status="200"}`,
		`gradex_scrape_outcomes_total{status="0"}`,
		`gradex_scrape_outcomes_total{status="2"}`,
		`gradex_captcha_solves_total{success="true"}`,
		"gradex_progress_flushes_total",
		"gradex_retention_extractions_deleted_total",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("export missing %q", want)
		}
	}
}

func TestRetentionIgnoresNonPositive(t *testing.T) {
	before := Export()
	RecordRetentionExtractions(0)
	RecordRetentionExtractions(-4)
	if Export() != before {
		t.Error("non-positive deltas changed the export")
	}
}
