package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Simple Prometheus-style metrics for HTTP requests and the extraction
// engine. This is intentionally minimal and in-memory only.

var (
	mu             sync.RWMutex
	requestsTotal  = make(map[reqKey]int64)
	latencyMsSum   = make(map[latKey]int64)
	latencyMsCount = make(map[latKey]int64)

	scrapeOutcomes = make(map[int]int64)
	captchaSolves  = make(map[string]int64)
	flushesTotal   int64

	retentionExtractionsDeleted int64
)

type reqKey struct {
	Method string
	Path   string
	Status int
}

type latKey struct {
	Method string
	Path   string
}

// RecordRequest increments request counter and records latency.
func RecordRequest(method, path string, status int, latencyMs int64) {
	mu.Lock()
	defer mu.Unlock()

	rk := reqKey{Method: method, Path: path, Status: status}
	requestsTotal[rk]++

	lk := latKey{Method: method, Path: path}
	latencyMsSum[lk] += latencyMs
	latencyMsCount[lk]++
}

// RecordScrapeOutcome counts one finished per-USN scrape by its status
// code.
func RecordScrapeOutcome(status int) {
	mu.Lock()
	defer mu.Unlock()
	scrapeOutcomes[status]++
}

// RecordCaptchaSolve counts one round trip to the captcha service.
func RecordCaptchaSolve(success bool) {
	mu.Lock()
	defer mu.Unlock()

	s := "false"
	if success {
		s = "true"
	}
	captchaSolves[s]++
}

// RecordProgressFlush counts one coordinator progress flush.
func RecordProgressFlush() {
	mu.Lock()
	defer mu.Unlock()
	flushesTotal++
}

// RecordRetentionExtractions increments the counter of extraction rows
// deleted by TTL cleanup.
func RecordRetentionExtractions(deleted int64) {
	if deleted <= 0 {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	retentionExtractionsDeleted += deleted
}

// Export returns Prometheus-style metrics text.
func Export() string {
	mu.RLock()
	defer mu.RUnlock()

	var b strings.Builder

	b.WriteString("# HELP gradex_http_requests_total Total HTTP requests\n")
	b.WriteString("# TYPE gradex_http_requests_total counter\n")

	// Sort keys for stable output
	var reqKeys []reqKey
	for k := range requestsTotal {
		reqKeys = append(reqKeys, k)
	}
	sort.Slice(reqKeys, func(i, j int) bool {
		if reqKeys[i].Method != reqKeys[j].Method {
			return reqKeys[i].Method < reqKeys[j].Method
		}
		if reqKeys[i].Path != reqKeys[j].Path {
			return reqKeys[i].Path < reqKeys[j].Path
		}
		return reqKeys[i].Status < reqKeys[j].Status
	})

	for _, k := range reqKeys {
		v := requestsTotal[k]
		fmt.Fprintf(&b, "gradex_http_requests_total{method=\"%s\",path=\"%s\",status=\"%d\"} %d\n",
			k.Method, k.Path, k.Status, v)
	}

	b.WriteString("# HELP gradex_http_request_duration_ms_sum Total request duration in milliseconds\n")
	b.WriteString("# TYPE gradex_http_request_duration_ms_sum counter\n")
	b.WriteString("# HELP gradex_http_request_duration_ms_count Request count for latency metric\n")
	b.WriteString("# TYPE gradex_http_request_duration_ms_count counter\n")

	var latKeys []latKey
	for k := range latencyMsSum {
		latKeys = append(latKeys, k)
	}
	sort.Slice(latKeys, func(i, j int) bool {
		if latKeys[i].Method != latKeys[j].Method {
			return latKeys[i].Method < latKeys[j].Method
		}
		return latKeys[i].Path < latKeys[j].Path
	})

	for _, k := range latKeys {
		sum := latencyMsSum[k]
		cnt := latencyMsCount[k]
		fmt.Fprintf(&b, "gradex_http_request_duration_ms_sum{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, sum)
		fmt.Fprintf(&b, "gradex_http_request_duration_ms_count{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, cnt)
	}

	// Scrape outcome metrics
	b.WriteString("# HELP gradex_scrape_outcomes_total Total per-USN scrapes by status code\n")
	b.WriteString("# TYPE gradex_scrape_outcomes_total counter\n")

	var statuses []int
	for s := range scrapeOutcomes {
		statuses = append(statuses, s)
	}
	sort.Ints(statuses)
	for _, s := range statuses {
		fmt.Fprintf(&b, "gradex_scrape_outcomes_total{status=\"%d\"} %d\n", s, scrapeOutcomes[s])
	}

	b.WriteString("# HELP gradex_captcha_solves_total Total captcha service round trips\n")
	b.WriteString("# TYPE gradex_captcha_solves_total counter\n")

	var solveKeys []string
	for k := range captchaSolves {
		solveKeys = append(solveKeys, k)
	}
	sort.Strings(solveKeys)
	for _, k := range solveKeys {
		fmt.Fprintf(&b, "gradex_captcha_solves_total{success=\"%s\"} %d\n", k, captchaSolves[k])
	}

	b.WriteString("# HELP gradex_progress_flushes_total Total coordinator progress flushes\n")
	b.WriteString("# TYPE gradex_progress_flushes_total counter\n")
	fmt.Fprintf(&b, "gradex_progress_flushes_total %d\n", flushesTotal)

	// Retention metrics
	b.WriteString("# HELP gradex_retention_extractions_deleted_total Total extraction rows deleted by TTL\n")
	b.WriteString("# TYPE gradex_retention_extractions_deleted_total counter\n")
	fmt.Fprintf(&b, "gradex_retention_extractions_deleted_total %d\n", retentionExtractionsDeleted)

	return b.String()
}
