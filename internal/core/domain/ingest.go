package domain

import "time"

// StepDurations records per-step timing for one ingestion batch.
type StepDurations struct {
	Registry time.Duration
	Extract  time.Duration
	Chunk    time.Duration
	Embed    time.Duration
	Upsert   time.Duration
}

// BatchResult summarises one ingestion batch. It is always returned,
// even under partial failure: no single bad document fails a run.
type BatchResult struct {
	// Processed counts documents extracted, embedded and registered.
	Processed int

	// Skipped counts documents whose version was already indexed.
	Skipped int

	// Failed counts documents that could not be ingested this run.
	Failed int

	// Durations holds per-step timings for the batch.
	Durations StepDurations
}

// Total returns the number of documents seen by the batch.
func (r BatchResult) Total() int {
	return r.Processed + r.Skipped + r.Failed
}
