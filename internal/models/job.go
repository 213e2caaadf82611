// -----------------------------------------------------------------------
// Scan Job - One batch execution of the scan engine over a product list
// -----------------------------------------------------------------------

package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/buybox/internal/common"
)

// JobStatus represents the lifecycle state of a scan job
type JobStatus string

const (
	// JobStatusRunning indicates the scan loop is still attempting identifiers
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates every identifier has been attempted,
	// regardless of how many individual items failed
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the scan loop itself crashed. Individual
	// item failures never produce this status.
	JobStatusFailed JobStatus = "failed"
)

// Scan job sources
const (
	ScanSourceScheduled = "scheduled"
	ScanSourceManual    = "manual"
	scanSourceRetry     = "retry:" // prefix, followed by the parent job id
)

// RetrySource builds the source string for a retry scan of the given parent job
func RetrySource(parentID string) string {
	return scanSourceRetry + parentID
}

// ScanJob represents one batch execution of the scan engine.
// Counters are updated after every item so progress is observable mid-run.
type ScanJob struct {
	ID     string    `json:"id"`
	Status JobStatus `json:"status"`
	Source string    `json:"source"` // "scheduled", "manual", or "retry:<parentId>"

	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	DurationSeconds float64    `json:"duration_seconds"`

	TotalCount   int `json:"total_count"`
	SuccessCount int `json:"success_count"`
	FailureCount int `json:"failure_count"`

	RatePerSecond float64 `json:"rate_per_second"`
	JitterMs      int     `json:"jitter_ms"`
	MaxRetries    int     `json:"max_retries"`

	Notes string `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewScanJob creates a scan job in running state, ready to be persisted
// before the loop starts.
func NewScanJob(source string, totalCount int, ratePerSecond float64, jitterMs, maxRetries int) *ScanJob {
	now := time.Now()
	return &ScanJob{
		ID:            common.NewJobID(),
		Status:        JobStatusRunning,
		Source:        source,
		StartedAt:     now,
		TotalCount:    totalCount,
		RatePerSecond: ratePerSecond,
		JitterMs:      jitterMs,
		MaxRetries:    maxRetries,
		CreatedAt:     now,
	}
}

// Complete transitions the job to its terminal completed state
func (j *ScanJob) Complete() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.CompletedAt = &now
	j.DurationSeconds = now.Sub(j.StartedAt).Seconds()
}

// Fail transitions the job to failed and appends the loop error to notes.
// This is the only path to failed status.
func (j *ScanJob) Fail(reason string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.DurationSeconds = now.Sub(j.StartedAt).Seconds()
	j.AppendNote(reason)
}

// AppendNote appends a free-text note, newline-separated
func (j *ScanJob) AppendNote(note string) {
	if note == "" {
		return
	}
	if j.Notes == "" {
		j.Notes = note
		return
	}
	j.Notes = j.Notes + "\n" + note
}

// IsTerminal returns true once the job has reached completed or failed
func (j *ScanJob) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// IsRetry returns true when the job was created by the retry planner
func (j *ScanJob) IsRetry() bool {
	return strings.HasPrefix(j.Source, scanSourceRetry)
}

// ParentJobID returns the parent job id for retry jobs, empty otherwise
func (j *ScanJob) ParentJobID() string {
	if !j.IsRetry() {
		return ""
	}
	return strings.TrimPrefix(j.Source, scanSourceRetry)
}

// Validate checks the counter invariant that holds at all times
func (j *ScanJob) Validate() error {
	if j.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if j.SuccessCount+j.FailureCount > j.TotalCount {
		return fmt.Errorf("job %s counters exceed total: %d + %d > %d",
			j.ID, j.SuccessCount, j.FailureCount, j.TotalCount)
	}
	return nil
}
