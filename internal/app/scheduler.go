/**
 * @description
 * Cron scheduler that promotes due scheduled payments to completed payments.
 *
 * @dependencies
 * - github.com/robfig/cron/v3: Job scheduling with panic recovery.
 */
package app

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the recurring due-payment promotion job.
type Scheduler struct {
	cron     *cron.Cron
	service  *Service
	schedule string
}

// NewScheduler creates a scheduler that executes ProcessDuePayments on the
// given cron schedule.
func NewScheduler(service *Service, schedule string) *Scheduler {
	cronLogger := cron.PrintfLogger(log.Default())
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:     c,
		service:  service,
		schedule: schedule,
	}
}

// Start registers the due-payment job and starts the cron loop.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		processed, failed, err := s.service.ProcessDuePayments(ctx)
		if err != nil {
			log.Printf("level=error component=scheduler msg=\"due payment run failed\" error=%q", err)
			return
		}
		if processed > 0 || failed > 0 {
			log.Printf("level=info component=scheduler msg=\"due payment run complete\" processed=%d failed=%d", processed, failed)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	log.Printf("level=info component=scheduler msg=\"scheduled due payment job\" schedule=%q", s.schedule)
	return nil
}

// Stop stops the cron loop and returns a context that completes when any
// in-flight job has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
