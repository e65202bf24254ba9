package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	batchesStartedTotal  atomic.Uint64
	batchesRejectedTotal atomic.Uint64
	documentsSucceeded   atomic.Uint64
	budgetRejections     atomic.Uint64
	llmCallsTotal        atomic.Uint64
	llmCallFailures      atomic.Uint64

	documentFailures = newLabeledCounter()

	llmCallDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000})
	batchDuration   = newHistogram([]float64{250, 1000, 5000, 10000, 30000, 60000, 180000})
)

// IncBatchStarted counts a batch that passed up-front validation.
func IncBatchStarted() {
	batchesStartedTotal.Add(1)
}

// IncBatchRejected counts a batch refused before any document was processed.
func IncBatchRejected() {
	batchesRejectedTotal.Add(1)
}

func IncDocumentSucceeded() {
	documentsSucceeded.Add(1)
}

// IncDocumentFailed counts a per-document failure by error kind.
func IncDocumentFailed(kind string) {
	documentFailures.Inc(kind)
}

func IncBudgetRejected() {
	budgetRejections.Add(1)
}

// ObserveLLMCall records one provider call and whether it failed.
func ObserveLLMCall(durationMs float64, failed bool) {
	llmCallsTotal.Add(1)
	if failed {
		llmCallFailures.Add(1)
	}
	if durationMs < 0 {
		durationMs = 0
	}
	llmCallDuration.Observe(durationMs)
}

// ObserveBatchDurationMs records a batch duration in milliseconds.
func ObserveBatchDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	batchDuration.Observe(value)
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
	writeCounter(&buf, "match_batches_started_total", "Total batches accepted for processing", batchesStartedTotal.Load())
	writeCounter(&buf, "match_batches_rejected_total", "Total batches rejected by validation", batchesRejectedTotal.Load())
	writeCounter(&buf, "match_documents_succeeded_total", "Total documents analyzed successfully", documentsSucceeded.Load())
	writeLabeledCounter(&buf, "match_documents_failed_total", "Total documents failed by error kind", "kind", documentFailures.Snapshot())
	writeCounter(&buf, "match_budget_rejections_total", "Total analyses refused by the token budget", budgetRejections.Load())
	writeCounter(&buf, "llm_calls_total", "Total reasoning service calls", llmCallsTotal.Load())
	writeCounter(&buf, "llm_call_failures_total", "Total failed reasoning service calls", llmCallFailures.Load())
	writeHistogram(&buf, "llm_call_duration_ms", "Reasoning service call duration in milliseconds", llmCallDuration.Snapshot())
	writeHistogram(&buf, "match_batch_duration_ms", "Batch duration in milliseconds", batchDuration.Snapshot())
	return buf.String()
}

type labeledCounter struct {
	mu     sync.Mutex
	values map[string]uint64
}

func newLabeledCounter() *labeledCounter {
	return &labeledCounter{values: map[string]uint64{}}
}

func (c *labeledCounter) Inc(label string) {
	c.mu.Lock()
	c.values[label]++
	c.mu.Unlock()
}

func (c *labeledCounter) Snapshot() map[string]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]uint64, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
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

// Observe stores value in its smallest matching bucket; writeHistogram accumulates.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeLabeledCounter(buf *bytes.Buffer, name, help, label string, values map[string]uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(buf, "%s{%s=%q} %d\n", name, label, k, values[k])
	}
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

// SinceMillis returns the elapsed time since start in milliseconds.
func SinceMillis(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
