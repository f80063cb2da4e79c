package services

import (
	"context"
	"log"

	"github.com/lungscan/apiserver/internal/events"
	"github.com/lungscan/apiserver/types"
)

const defaultHistoryLimit = 50

// PredictionRepository defines persistence operations for prediction records.
type PredictionRepository interface {
	Create(ctx context.Context, pred types.Prediction) (types.Prediction, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]types.Prediction, error)
}

// PredictionService encapsulates prediction use-cases.
type PredictionService struct {
	repo      PredictionRepository
	publisher events.Publisher
}

// NewPredictionService constructs a PredictionService. The publisher
// may be nil when no event broker is configured.
func NewPredictionService(repo PredictionRepository, publisher events.Publisher) *PredictionService {
	return &PredictionService{repo: repo, publisher: publisher}
}

// Record stores an immutable audit record for a relay attempt and
// announces it to the configured broker. Publish failures are logged,
// never surfaced: the record is the source of truth, the event is a
// convenience for downstream consumers.
func (s *PredictionService) Record(ctx context.Context, pred types.Prediction) (types.Prediction, error) {
	created, err := s.repo.Create(ctx, pred)
	if err != nil {
		return types.Prediction{}, err
	}

	if s.publisher != nil {
		event := events.PredictionRecorded{
			PredictionID: created.ID,
			UserID:       created.UserID,
			ImagePath:    created.ImagePath,
			CreatedAt:    created.CreatedAt,
		}
		if err := s.publisher.PredictionRecorded(ctx, event); err != nil {
			log.Printf("failed to publish prediction event %d: %v", created.ID, err)
		}
	}

	return created, nil
}

// History returns the caller's prediction records, newest first. The
// limit is capped at 50.
func (s *PredictionService) History(ctx context.Context, userID int64, limit int) ([]types.Prediction, error) {
	if limit <= 0 || limit > defaultHistoryLimit {
		limit = defaultHistoryLimit
	}
	return s.repo.ListByUser(ctx, userID, limit)
}
