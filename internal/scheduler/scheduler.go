package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"

	"weather-history/internal/weather"
)

// Warmer is the pipeline operation the warm-up job drives.
type Warmer interface {
	GetAverage(ctx context.Context, city string, days int) (weather.Series, error)
}

// Scheduler periodically runs the average pipeline for configured cities
// so their store rows and cache entries stay primed.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   Warmer
	cities    []string
	days      int
	interval  time.Duration
	log       *logrus.Entry
}

func New(cities []string, days int, interval time.Duration, service Warmer, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		service:   service,
		cities:    cities,
		days:      days,
		interval:  interval,
		log:       log.WithField("component", "scheduler"),
	}
}

// Start schedules the periodic warm-up job and starts the underlying
// scheduler. With no cities configured nothing is scheduled.
func (s *Scheduler) Start() error {
	if len(s.cities) == 0 {
		s.log.Info("no warm-up cities configured; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(func() {
		s.log.Info("running warm-up job")

		var wg sync.WaitGroup
		for _, city := range s.cities {
			city := city
			wg.Add(1)
			go func() {
				defer wg.Done()

				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if _, err := s.service.GetAverage(ctx, city, s.days); err != nil {
					s.log.WithField("city", city).Warnf("warm-up failed: %v", err)
				}
			}()
		}
		wg.Wait()
		s.log.Info("completed warm-up job")
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
