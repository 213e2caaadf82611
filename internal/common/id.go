package common

import (
	"github.com/google/uuid"
)

// NewJobID generates a unique scan job ID with the "job_" prefix
func NewJobID() string {
	return "job_" + uuid.New().String()
}

// NewSnapshotID generates a unique snapshot ID with the "snap_" prefix
func NewSnapshotID() string {
	return "snap_" + uuid.New().String()
}

// NewFailureID generates a unique failure ID with the "fail_" prefix
func NewFailureID() string {
	return "fail_" + uuid.New().String()
}
