package models

import "time"

// SystemMetrics is a point-in-time summary of the in-process instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	RequestErrors            uint64    `json:"request_errors"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	Reconciliations          uint64    `json:"reconciliations"`
	ReconciliationDrifts     uint64    `json:"reconciliation_drifts"`
	ReconciliationDegraded   uint64    `json:"reconciliation_degraded"`
	Uploads                  uint64    `json:"uploads"`
	UploadsRejected          uint64    `json:"uploads_rejected"`
	JobsSucceeded            uint64    `json:"jobs_succeeded"`
	JobsFailed               uint64    `json:"jobs_failed"`
	Goroutines               int       `json:"goroutines"`
	UptimeSeconds            int64     `json:"uptime_seconds"`
	GeneratedAt              time.Time `json:"generated_at"`
}
