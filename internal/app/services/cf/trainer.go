package cf

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/stamp-ai/recommender/internal/app/system"
	"github.com/stamp-ai/recommender/pkg/logger"
)

var _ system.Service = (*Trainer)(nil)

var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Trainer retrains the collaborative-filtering model on a cron schedule
// (standard specs or "@every" intervals).
type Trainer struct {
	service  *Service
	log      *logger.Logger
	schedule cron.Schedule

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewTrainer creates a lifecycle-managed trainer. The spec defaults to
// retraining every ten minutes.
func NewTrainer(service *Service, spec string, log *logger.Logger) (*Trainer, error) {
	if log == nil {
		log = logger.NewDefault("cf-trainer")
	}
	if spec == "" {
		spec = "@every 10m"
	}
	schedule, err := cronParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse training schedule %q: %w", spec, err)
	}
	return &Trainer{
		service:  service,
		log:      log,
		schedule: schedule,
	}, nil
}

func (t *Trainer) Name() string { return "cf-trainer" }

func (t *Trainer) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.running = true
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for {
			next := t.schedule.Next(time.Now())
			timer := time.NewTimer(time.Until(next))
			select {
			case <-runCtx.Done():
				timer.Stop()
				return
			case <-timer.C:
				t.train(runCtx)
			}
		}
	}()

	t.log.Info("model trainer started")
	return nil
}

func (t *Trainer) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return nil
	}
	cancel := t.cancel
	t.running = false
	t.cancel = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		t.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	t.log.Info("model trainer stopped")
	return nil
}

func (t *Trainer) train(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := t.service.Train(ctx); err != nil {
		t.log.WithError(err).Warn("scheduled model training failed")
	}
}
