package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/cosinefox/telemetry-aggregation/internal/telemetry"
)

const runTimeout = 30 * time.Second

// Warmer refreshes stale cache categories.
type Warmer interface {
	RefreshStale(ctx context.Context) []telemetry.Category
}

// Scheduler periodically refreshes stale categories so requests hit a warm cache.
type Scheduler struct {
	scheduler *gocron.Scheduler
	warmer    Warmer
	interval  time.Duration
}

// New creates a new Scheduler.
func New(interval time.Duration, warmer Warmer) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		warmer:    warmer,
		interval:  interval,
	}
}

// Start schedules the warming job and starts the underlying scheduler.
// A non-positive interval disables warming.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		log.Println("scheduler: warm interval not set; cache warming disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(s.run)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	refreshed := s.warmer.RefreshStale(ctx)
	if len(refreshed) > 0 {
		log.Printf("scheduler: refreshed %v", refreshed)
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
