package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RishiKendai/textscan/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const reportsCollection = "similarity_reports"

type ReportsRepository struct {
	mongoRepo *MongoRepository
}

func NewReportsRepository(mongoRepo *MongoRepository) *ReportsRepository {
	return &ReportsRepository{
		mongoRepo: mongoRepo,
	}
}

func (r *ReportsRepository) InsertReport(ctx context.Context, report *models.SimilarityReport) error {
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}

	if err := r.mongoRepo.InsertOne(ctx, reportsCollection, report); err != nil {
		return fmt.Errorf("failed to insert similarity report: %w", err)
	}
	return nil
}

// SaveReport replaces the stored report with the same report id, inserting it if absent.
func (r *ReportsRepository) SaveReport(ctx context.Context, report *models.SimilarityReport) error {
	filter := bson.M{"reportId": report.ReportID}
	opts := options.Replace().SetUpsert(true)

	if _, err := r.mongoRepo.ReplaceOne(ctx, reportsCollection, filter, report, opts); err != nil {
		return fmt.Errorf("failed to save similarity report: %w", err)
	}
	return nil
}

// GetReport returns nil, nil when no report has that id.
func (r *ReportsRepository) GetReport(ctx context.Context, reportID string) (*models.SimilarityReport, error) {
	filter := bson.M{"reportId": reportID}

	var report models.SimilarityReport
	err := r.mongoRepo.FindOne(ctx, reportsCollection, filter).Decode(&report)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find report: %w", err)
	}

	return &report, nil
}

// DeleteReportsForFile drops every report whose subject is fileID.
func (r *ReportsRepository) DeleteReportsForFile(ctx context.Context, fileID string) (int64, error) {
	n, err := r.mongoRepo.DeleteMany(ctx, reportsCollection, bson.M{"fileId": fileID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete reports for %s: %w", fileID, err)
	}
	return n, nil
}
