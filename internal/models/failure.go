// -----------------------------------------------------------------------
// Scan Failure - Per-item failure record, also the retry set
// -----------------------------------------------------------------------

package models

import (
	"time"

	"github.com/ternarybob/buybox/internal/common"
)

// FailureCode is the coarse classification of an item-level failure
type FailureCode string

const (
	// FailureRateLimited indicates the upstream API signalled throttling
	FailureRateLimited FailureCode = "RATE_LIMITED"
	// FailureNotFound indicates the product id is unknown upstream
	FailureNotFound FailureCode = "NOT_FOUND"
	// FailureParseError indicates a response that did not match the expected shape
	FailureParseError FailureCode = "PARSE_ERROR"
	// FailureUnknown covers any other network or unexpected error
	FailureUnknown FailureCode = "UNKNOWN"
)

// Failure records one failed identifier within a scan job. The retry
// planner reads a job's failures to build the follow-up job's input list.
type Failure struct {
	ID    string `json:"id"`
	JobID string `json:"job_id" badgerholdIndex:"JobID"`
	Seq   int    `json:"seq"` // insertion order within the job

	ASIN string `json:"asin"`
	SKU  string `json:"sku,omitempty"`

	Code     FailureCode `json:"code"`
	Reason   string      `json:"reason"`
	Attempt  int         `json:"attempt"`
	RawError string      `json:"raw_error,omitempty"`

	CapturedAt time.Time `json:"captured_at"`
}

// NewFailure creates a failure row for a job with its insertion sequence
func NewFailure(jobID string, seq int, asin, sku string, code FailureCode, reason string, attempt int) *Failure {
	return &Failure{
		ID:         common.NewFailureID(),
		JobID:      jobID,
		Seq:        seq,
		ASIN:       asin,
		SKU:        sku,
		Code:       code,
		Reason:     reason,
		Attempt:    attempt,
		RawError:   reason,
		CapturedAt: time.Now(),
	}
}
