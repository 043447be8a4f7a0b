package server

import (
	"context"

	"github.com/pkg/errors"

	"github.com/Luismorlan/postwall/panoptic/modules"
	"github.com/Luismorlan/postwall/publisher"
	"github.com/Luismorlan/postwall/store"
)

var ErrSchedulerUnavailable = errors.New("scheduler not initialized")

// Scheduler starts asynchronous pipeline runs and reports on them.
type Scheduler interface {
	TriggerManualFetch() error
	Status() modules.SchedulerStatus
}

// Pipeline runs the fetch-and-store pipeline synchronously.
type Pipeline interface {
	Run(ctx context.Context, trigger publisher.Trigger) (*publisher.RunReport, error)
}

// Service is the boundary the route layer talks to.
type Service struct {
	Display   *DisplayService
	Handles   *HandleService
	Pipeline  Pipeline
	// Optional, nil when the process runs without a scheduler.
	Scheduler Scheduler

	store *store.Store
}

func NewService(s *store.Store, pipeline Pipeline, scheduler Scheduler) *Service {
	return &Service{
		Display:   NewDisplayService(s),
		Handles:   NewHandleService(s),
		Pipeline:  pipeline,
		Scheduler: scheduler,
		store:     s,
	}
}

// FetchAndStore runs the pipeline on the caller's goroutine.
func (s *Service) FetchAndStore(ctx context.Context) (publisher.RunStats, error) {
	report, err := s.Pipeline.Run(ctx, publisher.TriggerApi)
	if report == nil {
		return publisher.RunStats{}, err
	}
	return report.Stats, err
}

// TriggerManualFetch asks the scheduler for an out-of-band run.
func (s *Service) TriggerManualFetch() error {
	if s.Scheduler == nil {
		return ErrSchedulerUnavailable
	}
	return s.Scheduler.TriggerManualFetch()
}

func (s *Service) SchedulerStatus() (modules.SchedulerStatus, error) {
	if s.Scheduler == nil {
		return modules.SchedulerStatus{}, ErrSchedulerUnavailable
	}
	return s.Scheduler.Status(), nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
