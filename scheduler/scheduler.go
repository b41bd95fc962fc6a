// Package scheduler runs recurring synchronization jobs on cron schedules
// for daemon mode.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type SyncJob interface {
	Run()
}

type SchedulerParams struct {
	Logger zerolog.Logger
}

func NewScheduler(params SchedulerParams) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: params.Logger,
		jobs:   make(map[cron.EntryID]SyncJob),
	}
}

type Scheduler struct {
	cron   *cron.Cron
	jobs   map[cron.EntryID]SyncJob
	logger zerolog.Logger
}

// Start the scheduler in its own routine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) AddSyncJob(ctx context.Context, schedule string, job SyncJob) error {
	entry, err := s.cron.AddJob(schedule, job)
	if err != nil {
		return fmt.Errorf("could not add sync job: %w", err)
	}

	s.jobs[entry] = job

	return nil
}

func (s *Scheduler) RemoveJobs() {
	for entry := range s.jobs {
		s.cron.Remove(entry)
		delete(s.jobs, entry)
	}
}
