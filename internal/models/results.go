package models

import (
	"time"
)

type Step string

const (
	StepQueued    Step = "queued"
	StepStarted   Step = "started"
	StepComparing Step = "comparing"
	StepCompleted Step = "completed"
	StepFailed    Step = "failed"
)

// ReportMatch is one candidate's score inside a SimilarityReport.
type ReportMatch struct {
	FileID     string  `bson:"fileId" json:"file_id"`
	Identical  bool    `bson:"identical" json:"identical"`
	Similarity float64 `bson:"similarity" json:"jaccard_similarity"`
	Error      string  `bson:"error,omitempty" json:"error,omitempty"`
}

// SimilarityReport is a one-against-many comparison stored in MongoDB
type SimilarityReport struct {
	ReportID   string        `bson:"reportId" json:"report_id"`
	FileID     string        `bson:"fileId" json:"file_id"`
	Status     string        `bson:"status" json:"status"` // pending, completed, failed
	Matches    []ReportMatch `bson:"matches" json:"matches"`
	Flagged    []string      `bson:"flagged" json:"flagged"` // candidates at or above the threshold
	Threshold  float64       `bson:"threshold" json:"threshold"`
	Error      string        `bson:"error,omitempty" json:"error,omitempty"`
	CreatedAt  time.Time     `bson:"createdAt" json:"created_at"`
	FinishedAt *time.Time    `bson:"finishedAt,omitempty" json:"finished_at,omitempty"`
}

// BatchCompareRequest asks for FileID to be compared against every candidate
type BatchCompareRequest struct {
	FileID     string   `json:"file_id" binding:"required"`
	Candidates []string `json:"candidates" binding:"required,min=1"`
	Threshold  float64  `json:"threshold"`
}

// BatchCompareResponse represents the response from the batch endpoint
type BatchCompareResponse struct {
	Step     Step   `json:"step"`
	ReportID string `json:"report_id"`
}

// ReportResponse pairs a stored report with its live status
type ReportResponse struct {
	Step   Step              `json:"step"`
	Report *SimilarityReport `json:"report,omitempty"`
}
