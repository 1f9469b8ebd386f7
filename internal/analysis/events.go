package analysis

import (
	"context"

	"github.com/RishiKendai/textscan/internal/models"
	"github.com/rs/zerolog/log"
)

// HandleFileEvent keeps the duplicate index and the cache in step with the
// storage service. Uploads pre-claim their digest so analysis agrees with the
// storage service on which file is canonical; deletes release it.
func (s *Service) HandleFileEvent(ctx context.Context, ev models.FileEvent) error {
	switch ev.Type {
	case models.FileUploaded:
		if ev.Hash == "" {
			return nil
		}
		_, err := s.index.Observe(ctx, ev.FileID, ev.Hash)
		return err

	case models.FileDeleted:
		if ev.Hash != "" {
			if _, err := s.index.Release(ctx, ev.FileID, ev.Hash); err != nil {
				return err
			}
		}
		if err := s.cache.Invalidate(ctx, ev.FileID); err != nil {
			return err
		}
		n, err := s.reports.DeleteReportsForFile(ctx, ev.FileID)
		if err != nil {
			return err
		}
		log.Debug().Str("file_id", ev.FileID).Int64("reports", n).Msg("Dropped state of deleted file")
	}
	return nil
}
