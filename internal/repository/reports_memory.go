package repository

import (
	"context"
	"sync"
	"time"

	"github.com/RishiKendai/textscan/internal/models"
)

// MemoryReports keeps similarity reports in process when MongoDB is not configured.
type MemoryReports struct {
	mu      sync.RWMutex
	reports map[string]models.SimilarityReport
}

func NewMemoryReports() *MemoryReports {
	return &MemoryReports{reports: make(map[string]models.SimilarityReport)}
}

func (m *MemoryReports) SaveReport(_ context.Context, report *models.SimilarityReport) error {
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	cp := *report
	cp.Matches = append([]models.ReportMatch(nil), report.Matches...)
	cp.Flagged = append([]string(nil), report.Flagged...)

	m.mu.Lock()
	m.reports[report.ReportID] = cp
	m.mu.Unlock()
	return nil
}

// GetReport returns nil, nil when no report has that id.
func (m *MemoryReports) GetReport(_ context.Context, reportID string) (*models.SimilarityReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	report, ok := m.reports[reportID]
	if !ok {
		return nil, nil
	}
	return &report, nil
}

func (m *MemoryReports) DeleteReportsForFile(_ context.Context, fileID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, report := range m.reports {
		if report.FileID == fileID {
			delete(m.reports, id)
			n++
		}
	}
	return n, nil
}
