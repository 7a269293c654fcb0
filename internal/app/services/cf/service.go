package cf

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stamp-ai/recommender/internal/app/metrics"
	"github.com/stamp-ai/recommender/internal/app/storage"
	"github.com/stamp-ai/recommender/pkg/logger"
)

// Service owns the collaborative-filtering model and retrains it from the
// visit store. Reads see the last fully trained model; Train swaps the model
// atomically.
type Service struct {
	visits storage.VisitStore
	log    *logger.Logger

	mu        sync.RWMutex
	model     *Model
	trainedAt time.Time
}

// New constructs a collaborative-filtering service.
func New(visits storage.VisitStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("cf")
	}
	return &Service{visits: visits, log: log}
}

// Train rebuilds the model from all recorded visits.
func (s *Service) Train(ctx context.Context) error {
	start := time.Now()
	visits, err := s.visits.ListVisits(ctx)
	if err != nil {
		return fmt.Errorf("list visits: %w", err)
	}

	model := NewModel(visits)

	s.mu.Lock()
	s.model = model
	s.trainedAt = time.Now().UTC()
	s.mu.Unlock()

	metrics.RecordModelTraining(time.Since(start))
	if model == nil {
		s.log.Warn("no visit data; collaborative filtering model is empty")
		return nil
	}
	stats := model.Stats()
	s.log.WithField("users", stats.Users).
		WithField("stores", stats.Stores).
		WithField("visits", stats.TotalVisits).
		Info("collaborative filtering model trained")
	return nil
}

// ensureTrained trains on first use so reads work without waiting for the
// scheduled trainer.
func (s *Service) ensureTrained(ctx context.Context) {
	s.mu.RLock()
	trained := !s.trainedAt.IsZero()
	s.mu.RUnlock()
	if trained {
		return
	}
	if err := s.Train(ctx); err != nil {
		s.log.WithError(err).Warn("on-demand model training failed")
	}
}

func (s *Service) snapshot() *Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

// SimilarUsers returns up to n users with visiting habits closest to userID.
func (s *Service) SimilarUsers(ctx context.Context, userID string, n int) []UserScore {
	if n <= 0 {
		n = 5
	}
	s.ensureTrained(ctx)
	return s.snapshot().SimilarUsers(userID, n)
}

// Recommend returns up to n predicted stores for userID.
func (s *Service) Recommend(ctx context.Context, userID string, n int) []StoreScore {
	if n <= 0 {
		n = 10
	}
	s.ensureTrained(ctx)
	return s.snapshot().Recommend(userID, n)
}

// Stats reports the current model state.
func (s *Service) Stats(ctx context.Context) Stats {
	s.ensureTrained(ctx)
	return s.snapshot().Stats()
}
