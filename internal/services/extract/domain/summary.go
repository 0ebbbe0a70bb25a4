package domain

import "time"

// Summary is the counter snapshot served on /stats and logged when a job ends
type Summary struct {
	RunID       string           `json:"run_id"`
	Running     bool             `json:"running"`
	StartedAt   time.Time        `json:"started_at"`
	Elapsed     string           `json:"elapsed"`
	Files       int              `json:"files"`
	Records     int64            `json:"records"`
	Oversize    int64            `json:"oversize"`
	Bytes       int64            `json:"bytes"`
	Emissions   int64            `json:"emissions"`
	Groups      int64            `json:"groups"`
	Outputs     int64            `json:"outputs"`
	MapOutcomes map[string]int64 `json:"map_outcomes"`
	Reduce      map[string]int64 `json:"reduce_outcomes"`
	SinkRows    map[string]int64 `json:"sink_rows"`
}
