package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetReturnsSingleton(t *testing.T) {
	m1 := Get()
	m2 := Get()
	assert.Same(t, m1, m2)
}

func TestRecordQuery(t *testing.T) {
	m := New()

	m.RecordQuery(true, nil)
	assert.Equal(t, float64(1), m.queriesTotal.Get())
	assert.Equal(t, float64(1), m.queriesCacheHits.Get())
	assert.Equal(t, float64(0), m.queriesCacheMiss.Get())

	m.RecordQuery(false, nil)
	assert.Equal(t, float64(2), m.queriesTotal.Get())
	assert.Equal(t, float64(1), m.queriesCacheMiss.Get())

	m.RecordQuery(false, assert.AnError)
	assert.Equal(t, float64(3), m.queriesTotal.Get())
	assert.Equal(t, float64(1), m.queriesErrors.Get())
	// Errors count neither as hit nor miss.
	assert.Equal(t, float64(1), m.queriesCacheHits.Get())
	assert.Equal(t, float64(1), m.queriesCacheMiss.Get())
}

func TestRecordRetrieval(t *testing.T) {
	m := New()

	m.RecordRetrieval(100*time.Millisecond, nil)
	assert.Equal(t, float64(1), m.retrievalTotal.Get())
	assert.InDelta(t, 0.1, m.retrievalSeconds.Get(), 0.001)
	assert.Equal(t, float64(0), m.retrievalErrors.Get())

	// Duration is recorded even for failures.
	m.RecordRetrieval(50*time.Millisecond, assert.AnError)
	assert.Equal(t, float64(2), m.retrievalTotal.Get())
	assert.Equal(t, float64(1), m.retrievalErrors.Get())
	assert.InDelta(t, 0.15, m.retrievalSeconds.Get(), 0.001)
}

func TestRecordGeneration(t *testing.T) {
	m := New()

	m.RecordGenerationAttempt("model-a")
	m.RecordGenerationAttempt("model-a")
	m.RecordGenerationAttempt("model-b")
	m.RecordGeneration(500*time.Millisecond, nil)

	assert.Equal(t, float64(1), m.generationTotal.Get())
	assert.InDelta(t, 0.5, m.generationSeconds.Get(), 0.001)
	assert.Equal(t, float64(2), m.generationAttempts.With(map[string]string{"model": "model-a"}).Get())
	assert.Equal(t, float64(1), m.generationAttempts.With(map[string]string{"model": "model-b"}).Get())

	m.RecordGeneration(200*time.Millisecond, assert.AnError)
	assert.Equal(t, float64(2), m.generationTotal.Get())
	assert.Equal(t, float64(1), m.generationErrors.Get())

	m.RecordFallback()
	assert.Equal(t, float64(1), m.generationFallbacks.Get())
}

func TestRecordIngest(t *testing.T) {
	m := New()

	m.RecordIngest(1, 12, nil)
	assert.Equal(t, float64(1), m.documentsIngested.Get())
	assert.Equal(t, float64(12), m.chunksIngested.Get())

	// Failed ingests count as errors without inflating the success counters.
	m.RecordIngest(1, 8, assert.AnError)
	assert.Equal(t, float64(1), m.ingestErrors.Get())
	assert.Equal(t, float64(1), m.documentsIngested.Get())
	assert.Equal(t, float64(12), m.chunksIngested.Get())
}

func TestExport(t *testing.T) {
	m := New()

	m.RecordQuery(true, nil)
	m.RecordIngest(2, 40, nil)
	m.RecordGenerationAttempt("model-a")

	out := m.Export()

	assert.Contains(t, out, "# HELP docchat_queries_total")
	assert.Contains(t, out, "# TYPE docchat_queries_total counter")
	assert.Contains(t, out, "docchat_queries_total 1.000000")
	assert.Contains(t, out, "docchat_documents_ingested_total 2.000000")
	assert.Contains(t, out, "docchat_chunks_ingested_total 40.000000")
	assert.Contains(t, out, `docchat_generation_attempts_total{model="model-a"} 1.000000`)
	assert.Contains(t, out, "docchat_uptime_seconds")
}

func TestStats(t *testing.T) {
	m := New()

	m.RecordQuery(true, nil)
	m.RecordQuery(true, nil)
	m.RecordQuery(true, nil)
	m.RecordQuery(false, nil)
	m.RecordRetrieval(2*time.Second, nil)
	m.RecordRetrieval(4*time.Second, nil)
	m.RecordGeneration(3*time.Second, nil)
	m.RecordIngest(1, 10, nil)

	stats := m.Stats()

	queries := stats["queries"].(map[string]interface{})
	assert.Equal(t, float64(4), queries["total"])
	assert.InDelta(t, 0.75, queries["cache_hit_rate"].(float64), 0.0001)

	retrieval := stats["retrieval"].(map[string]interface{})
	assert.InDelta(t, 3.0, retrieval["avg_duration_secs"].(float64), 0.01)

	generation := stats["generation"].(map[string]interface{})
	assert.InDelta(t, 3.0, generation["avg_duration_secs"].(float64), 0.01)

	ingest := stats["ingest"].(map[string]interface{})
	assert.Equal(t, float64(10), ingest["chunks"])

	assert.GreaterOrEqual(t, stats["uptime_seconds"].(float64), 0.0)
}

func TestStatsZeroDivision(t *testing.T) {
	m := New()
	stats := m.Stats()

	queries := stats["queries"].(map[string]interface{})
	assert.Equal(t, 0.0, queries["cache_hit_rate"])

	retrieval := stats["retrieval"].(map[string]interface{})
	assert.Equal(t, 0.0, retrieval["avg_duration_secs"])
}

func TestConcurrentRecording(t *testing.T) {
	m := New()

	var wg sync.WaitGroup
	const goroutines = 50
	const perGoroutine = 100

	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				m.RecordQuery(j%2 == 0, nil)
				m.RecordIngest(0, 1, nil)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, float64(goroutines*perGoroutine), m.queriesTotal.Get())
	assert.Equal(t, float64(goroutines*perGoroutine), m.chunksIngested.Get())
}
