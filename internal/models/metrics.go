package models

import "time"

// SystemMetrics is the aggregated instrumentation snapshot served over the API.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	GenerationRuns           uint64    `json:"generation_runs"`
	LessonsPlaced            uint64    `json:"lessons_placed"`
	ConflictsResolved        uint64    `json:"conflicts_resolved"`
	AverageGenerationMs      float64   `json:"average_generation_ms"`
	ValidationViolations     uint64    `json:"validation_violations"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
