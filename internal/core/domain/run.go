package domain

import "time"

// RunSummary aggregates the counters for one sync run.
// It exists only in memory and in log/trigger output; the durable
// outcome of a run is whatever was written per entry.
type RunSummary struct {
	// RunID uniquely identifies this run.
	RunID string

	// Processed counts every entry listed, whatever its outcome.
	Processed int

	// Uploaded counts entries whose document was (re)indexed.
	Uploaded int

	// Skipped counts entries left alone: disabled, or hash-unchanged
	// with a live index ref.
	Skipped int

	// Failed counts entries that hit a per-entry error.
	Failed int

	// StartedAt is when the run began.
	StartedAt time.Time

	// EndedAt is when the run finished.
	EndedAt time.Time
}

// Add merges another summary's counters into this one.
// Used when a run spans multiple sources.
func (r *RunSummary) Add(other *RunSummary) {
	r.Processed += other.Processed
	r.Uploaded += other.Uploaded
	r.Skipped += other.Skipped
	r.Failed += other.Failed
}
