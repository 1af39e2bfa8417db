// Package telemetry collects in-process query analytics. Nothing is
// reported externally; snapshots are exposed for operators to pull.
package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LatencyBucket is a latency histogram bucket.
type LatencyBucket string

const (
	BucketP100  LatencyBucket = "p100"  // <100ms
	BucketP250  LatencyBucket = "p250"  // 100-250ms
	BucketP500  LatencyBucket = "p500"  // 250-500ms
	BucketP1000 LatencyBucket = "p1000" // 500ms-1s
	BucketSlow  LatencyBucket = "slow"  // >=1s
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 100:
		return BucketP100
	case ms < 250:
		return BucketP250
	case ms < 500:
		return BucketP500
	case ms < 1000:
		return BucketP1000
	default:
		return BucketSlow
	}
}

// Query is a single recorded search.
type Query struct {
	Query    string
	Lang     string
	Rerank   bool
	Results  int
	Duration time.Duration
}

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	items    []T
	head     int
	size     int
	capacity int
	mu       sync.RWMutex
}

// NewCircularBuffer creates a circular buffer with the given capacity.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &CircularBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
}

// Add adds an item. When full, the oldest item is evicted.
func (b *CircularBuffer[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.head] = item
	b.head = (b.head + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
}

// Items returns all items, oldest first.
func (b *CircularBuffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.size == 0 {
		return []T{}
	}
	result := make([]T, b.size)
	if b.size < b.capacity {
		copy(result, b.items[:b.size])
	} else {
		copy(result, b.items[b.head:])
		copy(result[b.capacity-b.head:], b.items[:b.head])
	}
	return result
}

// Size returns the current number of items.
func (b *CircularBuffer[T]) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Snapshot is an immutable view of the collected metrics.
type Snapshot struct {
	TotalQueries        int64                   `json:"total_queries"`
	ZeroResultCount     int64                   `json:"zero_result_count"`
	ZeroResultQueries   []string                `json:"zero_result_queries"`
	LangCounts          map[string]int64        `json:"lang_counts"`
	RerankCount         int64                   `json:"rerank_count"`
	ExactRepeatCount    int64                   `json:"exact_repeat_count"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	Since               time.Time               `json:"since"`
}

// ZeroResultPercentage returns the share of queries with no results.
func (s Snapshot) ZeroResultPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalQueries) * 100
}

// Config tunes the metrics collector.
type Config struct {
	ZeroResultsCapacity   int // recent zero-result queries kept (default 100)
	RecentQueriesCapacity int // query hashes tracked for repeats (default 500)
}

// QueryMetrics aggregates search telemetry. Safe for concurrent use.
type QueryMetrics struct {
	mu sync.RWMutex

	totalQueries    int64
	zeroResultCount int64
	zeroResults     *CircularBuffer[string]
	langCounts      map[string]int64
	rerankCount     int64
	latencies       map[LatencyBucket]int64
	startTime       time.Time

	recentQueries    *lru.Cache[string, struct{}]
	exactRepeatCount int64
}

// NewQueryMetrics creates a metrics collector.
func NewQueryMetrics(cfg Config) *QueryMetrics {
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = 100
	}
	if cfg.RecentQueriesCapacity <= 0 {
		cfg.RecentQueriesCapacity = 500
	}
	recentQueries, _ := lru.New[string, struct{}](cfg.RecentQueriesCapacity)

	return &QueryMetrics{
		zeroResults:   NewCircularBuffer[string](cfg.ZeroResultsCapacity),
		langCounts:    make(map[string]int64),
		latencies:     make(map[LatencyBucket]int64),
		startTime:     time.Now(),
		recentQueries: recentQueries,
	}
}

// Record captures one search query.
func (m *QueryMetrics) Record(q Query) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalQueries++
	m.langCounts[q.Lang]++
	if q.Rerank {
		m.rerankCount++
	}
	m.latencies[LatencyToBucket(q.Duration)]++

	if q.Results == 0 {
		m.zeroResultCount++
		m.zeroResults.Add(q.Query)
	}

	key := queryHash(q.Query)
	if _, seen := m.recentQueries.Get(key); seen {
		m.exactRepeatCount++
	}
	m.recentQueries.Add(key, struct{}{})
}

// Snapshot returns a copy of the current aggregates.
func (m *QueryMetrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	langs := make(map[string]int64, len(m.langCounts))
	for k, v := range m.langCounts {
		langs[k] = v
	}
	latencies := make(map[LatencyBucket]int64, len(m.latencies))
	for k, v := range m.latencies {
		latencies[k] = v
	}

	return Snapshot{
		TotalQueries:        m.totalQueries,
		ZeroResultCount:     m.zeroResultCount,
		ZeroResultQueries:   m.zeroResults.Items(),
		LangCounts:          langs,
		RerankCount:         m.rerankCount,
		ExactRepeatCount:    m.exactRepeatCount,
		LatencyDistribution: latencies,
		Since:               m.startTime,
	}
}

// queryHash normalizes and hashes a query so raw text is not retained
// for repeat tracking.
func queryHash(query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
