// Package cache holds derived analysis results keyed by file id so repeated
// stats and comparison requests skip the storage round trip.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/RishiKendai/textscan/internal/models"
)

var ErrUnknownStep = errors.New("cache: unknown step")

// Cache stores statistics per file and comparison results per unordered pair.
// A miss is (nil, false, nil).
type Cache interface {
	GetStats(ctx context.Context, fileID string) (*models.Statistics, bool, error)
	SetStats(ctx context.Context, fileID string, stats models.Statistics) error
	GetComparison(ctx context.Context, fileID, otherFileID string) (*models.ComparisonResult, bool, error)
	SetComparison(ctx context.Context, fileID, otherFileID string, result models.ComparisonResult) error
	// Invalidate drops the stats of fileID and every comparison that involves it.
	Invalidate(ctx context.Context, fileID string) error
}

// StatusStore tracks the step of a batch comparison job.
type StatusStore interface {
	SetStatus(ctx context.Context, reportID string, step models.Step) error
	GetStatus(ctx context.Context, reportID string) (models.Step, bool, error)
}

const statusTTL = 12 * time.Hour

var validSteps = map[models.Step]bool{
	models.StepQueued:    true,
	models.StepStarted:   true,
	models.StepComparing: true,
	models.StepCompleted: true,
	models.StepFailed:    true,
}

func statsKey(fileID string) string {
	return "textscan:stats:" + fileID
}

// pairKey is the same for (a, b) and (b, a); similarity is symmetric.
func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return "textscan:compare:" + a + ":" + b
}

func pairIndexKey(fileID string) string {
	return "textscan:compare-index:" + fileID
}

func statusKey(reportID string) string {
	return "textscan:report-status:" + reportID
}
