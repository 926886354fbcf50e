// Package scheduler runs periodic maintenance by enqueueing tasks on a cron
// schedule. The work itself happens in the task queue.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Enqueuer adds a task to the queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, task backlite.Task) (string, error)
}

// Job enqueues Task every time Schedule fires.
type Job struct {
	Name     string
	Schedule string // Standard 5-field cron expression
	Task     backlite.Task
}

// Scheduler manages the periodic maintenance jobs.
type Scheduler struct {
	queue Enqueuer
	jobs  []Job

	cron       *cron.Cron
	entries    map[string]cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

func New(queue Enqueuer, jobs ...Job) *Scheduler {
	return &Scheduler{
		queue:   queue,
		jobs:    jobs,
		cron:    cron.New(cron.WithParser(parser)),
		entries: make(map[string]cron.EntryID),
	}
}

// ValidateCronSchedule checks a 5-field cron expression.
func ValidateCronSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// Start schedules every job and starts the cron loop. The scheduler stops
// when ctx is cancelled. Invalid schedules are rejected before anything runs.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if len(s.jobs) == 0 {
		log.Printf("Scheduler: no jobs enabled")
		return nil
	}

	for _, job := range s.jobs {
		if err := ValidateCronSchedule(job.Schedule); err != nil {
			return fmt.Errorf("invalid cron schedule '%s' for %s: %w", job.Schedule, job.Name, err)
		}
	}

	for _, job := range s.jobs {
		job := job
		entryID, err := s.cron.AddFunc(job.Schedule, func() {
			s.enqueue(job)
		})
		if err != nil {
			return fmt.Errorf("failed to schedule %s: %w", job.Name, err)
		}
		s.entries[job.Name] = entryID
	}

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	for _, job := range s.jobs {
		log.Printf("Scheduler: %s scheduled with '%s'", job.Name, job.Schedule)
	}

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop waits for running jobs and stops the cron loop.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}

	log.Printf("Scheduler: stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns when the named job fires next, or nil if it is not scheduled.
func (s *Scheduler) NextRunTime(name string) *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	id, ok := s.entries[name]
	if !ok {
		return nil
	}
	t := s.cron.Entry(id).Next
	return &t
}

func (s *Scheduler) enqueue(job Job) {
	id, err := s.queue.Enqueue(context.Background(), job.Task)
	if err != nil {
		log.Printf("Scheduler: failed to enqueue %s: %v", job.Name, err)
		return
	}
	log.Printf("Scheduler: enqueued %s as task %s", job.Name, id)
}
