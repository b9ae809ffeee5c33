// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names.
const (
	CompletedQueue = "ingestion.completed"
	ProgressQueue  = "ingestion.progress"
)

// IngestionCompletedEvent is published when an ingestion run reaches Done.
// It carries the report counters, not the row errors, so consumers can log
// or trigger downstream refreshes without querying the store.
type IngestionCompletedEvent struct {
	IngestionID    string `json:"ingestion_id"`
	TotalRows      int    `json:"total_rows"`
	Succeeded      int    `json:"succeeded"`
	Failed         int    `json:"failed"`
	Committed      int    `json:"committed"`
	Batches        int    `json:"batches"`
	BucketsTouched int    `json:"buckets_touched"`
	CompletedAt    string `json:"completed_at"`
}

// IngestionProgressEvent is published after every committed batch.
type IngestionProgressEvent struct {
	IngestionID string  `json:"ingestion_id"`
	Committed   int     `json:"committed"`
	Batches     int     `json:"batches"`
	Fraction    float64 `json:"fraction"`
	At          string  `json:"at"`
}
