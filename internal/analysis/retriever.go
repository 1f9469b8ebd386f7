package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/RishiKendai/textscan/internal/similarity"
	"github.com/RishiKendai/textscan/internal/upstream"
)

// ContentSource fetches stored bytes; *upstream.StorageClient is the
// production implementation.
type ContentSource interface {
	GetContent(ctx context.Context, fileID string) ([]byte, error)
}

// storageRetriever translates upstream errors into the similarity taxonomy.
// Timeouts keep upstream.ErrTimeout in the chain so the edge can answer 504.
type storageRetriever struct {
	source ContentSource
}

func (r storageRetriever) GetContent(ctx context.Context, fileID string) ([]byte, error) {
	data, err := r.source.GetContent(ctx, fileID)
	switch {
	case err == nil:
		return data, nil
	case errors.Is(err, upstream.ErrNotFound):
		return nil, fmt.Errorf("%w: %v", similarity.ErrNotFound, err)
	case errors.Is(err, context.Canceled), errors.Is(err, similarity.ErrUnavailable):
		return nil, err
	default:
		return nil, fmt.Errorf("%w: %w", similarity.ErrUnavailable, err)
	}
}
