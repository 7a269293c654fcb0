package geocode

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/stamp-ai/recommender/internal/app/services/catalog"
	"github.com/stamp-ai/recommender/internal/app/system"
	"github.com/stamp-ai/recommender/pkg/logger"
)

var _ system.Service = (*Backfill)(nil)

// Backfill periodically geocodes catalog stores that still lack coordinates.
// Lookups are rate limited to stay inside the upstream API quota.
type Backfill struct {
	catalog  *catalog.Service
	geocoder Geocoder
	log      *logger.Logger
	interval time.Duration
	batch    int
	limiter  *rate.Limiter

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewBackfill creates a lifecycle-managed geocode backfill worker. The rate
// limiter defaults to ten lookups per second, matching the pacing the
// upstream API expects.
func NewBackfill(catalogService *catalog.Service, geocoder Geocoder, log *logger.Logger) *Backfill {
	if log == nil {
		log = logger.NewDefault("geocode-backfill")
	}
	return &Backfill{
		catalog:  catalogService,
		geocoder: geocoder,
		log:      log,
		interval: time.Minute,
		batch:    50,
		limiter:  rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
	}
}

func (b *Backfill) Name() string { return "geocode-backfill" }

func (b *Backfill) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.geocoder == nil {
		b.mu.Unlock()
		b.log.Warn("geocoder not configured; backfill disabled")
		return nil
	}
	if b.running {
		b.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.running = true
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				b.tick(runCtx)
			}
		}
	}()

	b.log.Info("geocode backfill started")
	return nil
}

func (b *Backfill) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	cancel := b.cancel
	b.running = false
	b.cancel = nil
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	b.log.Info("geocode backfill stopped")
	return nil
}

func (b *Backfill) tick(ctx context.Context) {
	pending, err := b.catalog.MissingCoordinates(ctx, b.batch)
	if err != nil {
		b.log.WithError(err).Warn("list stores without coordinates failed")
		return
	}
	if len(pending) == 0 {
		return
	}

	resolved := 0
	for _, st := range pending {
		if err := b.limiter.Wait(ctx); err != nil {
			return
		}
		lat, lon, err := b.geocoder.Geocode(ctx, st.Address)
		if err != nil {
			if errors.Is(err, ErrUnauthorized) {
				b.log.WithError(err).Error("geocoder credentials rejected; stopping batch")
				return
			}
			b.log.WithError(err).WithField("store_id", st.ID).Warn("geocode failed")
			continue
		}
		if _, err := b.catalog.SetCoordinates(ctx, st.ID, lat, lon); err != nil {
			b.log.WithError(err).WithField("store_id", st.ID).Warn("store coordinate update failed")
			continue
		}
		resolved++
	}
	if resolved > 0 {
		b.log.WithField("resolved", resolved).
			WithField("pending", len(pending)-resolved).
			Info("geocode backfill batch complete")
	}
}
