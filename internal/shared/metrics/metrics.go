package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	boardOps       = newCounterVec("op", "result")
	boardRollbacks = newCounterVec("op")
	assistantCalls = newCounterVec("task", "result")
	notifyCalls    = newCounterVec("channel", "result")
	rateLimited    = newCounterVec("group")

	boardOpDuration = newHistogram([]float64{5, 25, 50, 100, 250, 500, 1000, 2500, 5000})
)

// ObserveBoardOp records the outcome and duration of a synchronization operation.
func ObserveBoardOp(op string, err error, elapsed time.Duration) {
	boardOps.Inc(op, result(err))
	ms := float64(elapsed) / float64(time.Millisecond)
	if ms < 0 {
		ms = 0
	}
	boardOpDuration.Observe(ms)
}

// IncBoardRollback counts a local state restore after a remote failure.
func IncBoardRollback(op string) {
	boardRollbacks.Inc(op)
}

// IncAssistant counts an assistant request.
func IncAssistant(task string, err error) {
	assistantCalls.Inc(task, result(err))
}

// IncNotify counts a relay request.
func IncNotify(channel string, err error) {
	notifyCalls.Inc(channel, result(err))
}

// IncRateLimited counts a request rejected by the rate limiter.
func IncRateLimited(group string) {
	rateLimited.Inc(group)
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
	writeCounterVec(&buf, "board_operations_total", "Applicant board operations by outcome", boardOps)
	writeCounterVec(&buf, "board_rollbacks_total", "Local rollbacks after remote failures", boardRollbacks)
	writeCounterVec(&buf, "assistant_requests_total", "Assistant requests by outcome", assistantCalls)
	writeCounterVec(&buf, "notify_requests_total", "Notification relay requests by outcome", notifyCalls)
	writeCounterVec(&buf, "rate_limited_total", "Requests rejected by the rate limiter", rateLimited)
	writeHistogram(&buf, "board_operation_duration_ms", "Board operation duration in milliseconds", boardOpDuration.Snapshot())
	return buf.String()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// counterVec is a counter keyed by an ordered label tuple.
type counterVec struct {
	mu     sync.Mutex
	labels []string
	values map[string]uint64
}

func newCounterVec(labels ...string) *counterVec {
	return &counterVec{labels: labels, values: map[string]uint64{}}
}

func (c *counterVec) Inc(values ...string) {
	key := strings.Join(values, "\x00")
	c.mu.Lock()
	c.values[key]++
	c.mu.Unlock()
}

func (c *counterVec) Get(values ...string) uint64 {
	key := strings.Join(values, "\x00")
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[key]
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
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounterVec(buf *bytes.Buffer, name, help string, c *counterVec) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)

	c.mu.Lock()
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts := strings.Split(k, "\x00")
		pairs := make([]string, 0, len(parts))
		for i, v := range parts {
			if i < len(c.labels) {
				pairs = append(pairs, fmt.Sprintf("%s=%q", c.labels[i], v))
			}
		}
		fmt.Fprintf(buf, "%s{%s} %d\n", name, strings.Join(pairs, ","), c.values[k])
	}
	c.mu.Unlock()
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
