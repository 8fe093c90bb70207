// Package metrics collects business metrics for the document chat pipeline.
package metrics

import (
	"sync"
	"time"

	obs "github.com/kart-io/docchat/pkg/metrics"
)

// Pipeline tracks counters for the query, retrieval, generation and ingest
// stages. All metrics are registered in an instance-scoped registry so tests
// can use a fresh instance instead of resetting global state.
type Pipeline struct {
	registry *obs.Registry

	queriesTotal      obs.Counter
	queriesCacheHits  obs.Counter
	queriesCacheMiss  obs.Counter
	queriesErrors     obs.Counter

	retrievalTotal   obs.Counter
	retrievalSeconds obs.Counter
	retrievalErrors  obs.Counter

	generationTotal     obs.Counter
	generationSeconds   obs.Counter
	generationErrors    obs.Counter
	generationFallbacks obs.Counter
	generationAttempts  obs.CounterVec

	documentsIngested obs.Counter
	chunksIngested    obs.Counter
	ingestErrors      obs.Counter

	uptime    obs.Gauge
	startTime time.Time
}

var (
	global *Pipeline
	once   sync.Once
)

// Get returns the process-wide metrics instance.
func Get() *Pipeline {
	once.Do(func() {
		global = New()
	})
	return global
}

// New creates a metrics instance with its own registry.
func New() *Pipeline {
	r := obs.NewRegistry()
	m := &Pipeline{
		registry:  r,
		startTime: time.Now(),

		queriesTotal:     obs.NewCounter("docchat_queries_total", "Total number of chat queries."),
		queriesCacheHits: obs.NewCounter("docchat_queries_cache_hits_total", "Number of answers served from cache."),
		queriesCacheMiss: obs.NewCounter("docchat_queries_cache_misses_total", "Number of answers computed from scratch."),
		queriesErrors:    obs.NewCounter("docchat_queries_errors_total", "Number of failed chat queries."),

		retrievalTotal:   obs.NewCounter("docchat_retrieval_total", "Total number of chunk retrievals."),
		retrievalSeconds: obs.NewCounter("docchat_retrieval_duration_seconds_total", "Total retrieval duration."),
		retrievalErrors:  obs.NewCounter("docchat_retrieval_errors_total", "Number of failed retrievals."),

		generationTotal:     obs.NewCounter("docchat_generation_total", "Total number of answer generations."),
		generationSeconds:   obs.NewCounter("docchat_generation_duration_seconds_total", "Total answer generation duration."),
		generationErrors:    obs.NewCounter("docchat_generation_errors_total", "Number of generations where every model failed."),
		generationFallbacks: obs.NewCounter("docchat_generation_fallbacks_total", "Number of answers built from the fallback text."),
		generationAttempts:  obs.NewCounterVec("docchat_generation_attempts_total", "Generation attempts by model."),

		documentsIngested: obs.NewCounter("docchat_documents_ingested_total", "Total documents ingested."),
		chunksIngested:    obs.NewCounter("docchat_chunks_ingested_total", "Total chunks ingested."),
		ingestErrors:      obs.NewCounter("docchat_ingest_errors_total", "Number of failed ingests."),

		uptime: obs.NewGauge("docchat_uptime_seconds", "Service uptime in seconds."),
	}

	r.Register(m.queriesTotal)
	r.Register(m.queriesCacheHits)
	r.Register(m.queriesCacheMiss)
	r.Register(m.queriesErrors)
	r.Register(m.retrievalTotal)
	r.Register(m.retrievalSeconds)
	r.Register(m.retrievalErrors)
	r.Register(m.generationTotal)
	r.Register(m.generationSeconds)
	r.Register(m.generationErrors)
	r.Register(m.generationFallbacks)
	r.Register(m.generationAttempts)
	r.Register(m.documentsIngested)
	r.Register(m.chunksIngested)
	r.Register(m.ingestErrors)
	r.Register(m.uptime)

	return m
}

// RecordQuery records one chat turn.
func (m *Pipeline) RecordQuery(cacheHit bool, err error) {
	m.queriesTotal.Inc()
	if err != nil {
		m.queriesErrors.Inc()
		return
	}
	if cacheHit {
		m.queriesCacheHits.Inc()
	} else {
		m.queriesCacheMiss.Inc()
	}
}

// RecordRetrieval records one retrieval. Duration is recorded even when the
// retrieval failed so slow failures remain visible.
func (m *Pipeline) RecordRetrieval(duration time.Duration, err error) {
	m.retrievalTotal.Inc()
	m.retrievalSeconds.Add(duration.Seconds())
	if err != nil {
		m.retrievalErrors.Inc()
	}
}

// RecordGenerationAttempt records one model call within the chain.
func (m *Pipeline) RecordGenerationAttempt(model string) {
	m.generationAttempts.With(map[string]string{"model": model}).Inc()
}

// RecordGeneration records the outcome of a whole generation pass, after the
// model chain has been exhausted or an answer was accepted.
func (m *Pipeline) RecordGeneration(duration time.Duration, err error) {
	m.generationTotal.Inc()
	m.generationSeconds.Add(duration.Seconds())
	if err != nil {
		m.generationErrors.Inc()
	}
}

// RecordFallback records an answer assembled from the fallback text.
func (m *Pipeline) RecordFallback() {
	m.generationFallbacks.Inc()
}

// RecordIngest records one document ingest.
func (m *Pipeline) RecordIngest(documents, chunks int, err error) {
	if err != nil {
		m.ingestErrors.Inc()
		return
	}
	m.documentsIngested.Add(float64(documents))
	m.chunksIngested.Add(float64(chunks))
}

// Export returns all metrics in Prometheus text format.
func (m *Pipeline) Export() string {
	m.uptime.Set(time.Since(m.startTime).Seconds())
	return m.registry.Export()
}

// Stats returns the current values as a nested map for the stats endpoint.
func (m *Pipeline) Stats() map[string]interface{} {
	cacheHits := m.queriesCacheHits.Get()
	cacheMisses := m.queriesCacheMiss.Get()
	cacheHitRate := 0.0
	if total := cacheHits + cacheMisses; total > 0 {
		cacheHitRate = cacheHits / total
	}

	retrievalTotal := m.retrievalTotal.Get()
	avgRetrieval := 0.0
	if retrievalTotal > 0 {
		avgRetrieval = m.retrievalSeconds.Get() / retrievalTotal
	}

	generationTotal := m.generationTotal.Get()
	avgGeneration := 0.0
	if generationTotal > 0 {
		avgGeneration = m.generationSeconds.Get() / generationTotal
	}

	return map[string]interface{}{
		"queries": map[string]interface{}{
			"total":          m.queriesTotal.Get(),
			"cache_hits":     cacheHits,
			"cache_misses":   cacheMisses,
			"cache_hit_rate": cacheHitRate,
			"errors":         m.queriesErrors.Get(),
		},
		"retrieval": map[string]interface{}{
			"total":               retrievalTotal,
			"total_duration_secs": m.retrievalSeconds.Get(),
			"avg_duration_secs":   avgRetrieval,
			"errors":              m.retrievalErrors.Get(),
		},
		"generation": map[string]interface{}{
			"total":               generationTotal,
			"total_duration_secs": m.generationSeconds.Get(),
			"avg_duration_secs":   avgGeneration,
			"errors":              m.generationErrors.Get(),
			"fallbacks":           m.generationFallbacks.Get(),
		},
		"ingest": map[string]interface{}{
			"documents": m.documentsIngested.Get(),
			"chunks":    m.chunksIngested.Get(),
			"errors":    m.ingestErrors.Get(),
		},
		"uptime_seconds": time.Since(m.startTime).Seconds(),
	}
}
