package modules

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Luismorlan/postwall/panoptic"
	"github.com/Luismorlan/postwall/publisher"
	Logger "github.com/Luismorlan/postwall/utils/log"
)

var ErrSchedulerStopped = errors.New("scheduler is stopped")

// Runner executes one fetch-and-store pipeline run.
type Runner interface {
	Run(ctx context.Context, trigger publisher.Trigger) (*publisher.RunReport, error)
}

type SchedulerConfig struct {
	// Name of the scheduler.
	Name string

	// Time between two scheduled runs.
	Interval time.Duration

	// Upper bound of a single run.
	RunTimeout time.Duration

	// How long Shutdown waits for in-flight runs before cancelling them.
	ShutdownGracePeriod time.Duration

	// Run once as soon as the module starts, before the first tick.
	RunOnStartup bool
}

type SchedulerStatus struct {
	Running    bool                 `json:"running"`
	Interval   string               `json:"interval"`
	RunCount   int64                `json:"run_count"`
	InFlight   int                  `json:"in_flight"`
	LastReport *publisher.RunReport `json:"last_report"`
}

// Scheduler drives the pipeline on a fixed interval and on demand. Scheduled
// runs execute one after another on the module goroutine; manual runs get
// their own goroutine and never touch the ticker. Runs are bound to a context
// detached from the engine's, so cancelling the engine lets them finish until
// Shutdown's grace period expires.
type Scheduler struct {
	Config SchedulerConfig

	Runner Runner

	// Optional, receives a RunReport after every run.
	EventBus *gochannel.GoChannel

	m          sync.Mutex
	stopped    bool
	stop       chan struct{}
	inflight   sync.WaitGroup
	inflightN  int
	runCount   int64
	lastReport *publisher.RunReport

	runCtx    context.Context
	runCancel context.CancelFunc
}

// Return a new instance of Scheduler.
func NewScheduler(config SchedulerConfig, runner Runner, e *gochannel.GoChannel) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	if config.RunTimeout <= 0 {
		config.RunTimeout = 10 * time.Minute
	}
	runCtx, runCancel := context.WithCancel(context.Background())
	return &Scheduler{
		Config:    config,
		Runner:    runner,
		EventBus:  e,
		stop:      make(chan struct{}),
		runCtx:    runCtx,
		runCancel: runCancel,
	}
}

func (s *Scheduler) RunModule(ctx context.Context) error {
	if s.Config.RunOnStartup {
		s.runOnce(publisher.TriggerStartup)
	}

	ticker := time.NewTicker(s.Config.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stop:
			return nil
		case <-ticker.C:
			s.runOnce(publisher.TriggerScheduled)
		}
	}
}

// TriggerManualFetch starts an out-of-band run and returns immediately.
func (s *Scheduler) TriggerManualFetch() error {
	if !s.beginRun() {
		return ErrSchedulerStopped
	}
	go func() {
		defer s.endRun()
		s.execute(publisher.TriggerManual)
	}()
	return nil
}

func (s *Scheduler) runOnce(trigger publisher.Trigger) {
	if !s.beginRun() {
		return
	}
	defer s.endRun()
	s.execute(trigger)
}

// beginRun registers a run unless the scheduler is stopped. Registration and
// the stopped check share the lock, so Shutdown never waits on a run it
// could not see.
func (s *Scheduler) beginRun() bool {
	s.m.Lock()
	defer s.m.Unlock()
	if s.stopped {
		return false
	}
	s.inflight.Add(1)
	s.inflightN++
	return true
}

func (s *Scheduler) endRun() {
	s.m.Lock()
	s.inflightN--
	s.m.Unlock()
	s.inflight.Done()
}

// execute performs one run. A failing or panicking run is logged and never
// escapes to the caller, the schedule keeps going.
func (s *Scheduler) execute(trigger publisher.Trigger) {
	logger := Logger.Log.WithFields(logrus.Fields{"module": s.Name(), "trigger": trigger})
	ctx, cancel := context.WithTimeout(s.runCtx, s.Config.RunTimeout)
	defer cancel()

	var report *publisher.RunReport
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("pipeline run panicked: %v\n%s", r, debug.Stack())
			if report == nil {
				report = &publisher.RunReport{Trigger: trigger, FailedHandles: []string{}}
			}
			report.Error = fmt.Sprintf("panic: %v", r)
		}
		s.record(report)
	}()

	report, err := s.Runner.Run(ctx, trigger)
	if err != nil {
		logger.WithError(err).Error("pipeline run failed")
	}
}

func (s *Scheduler) record(report *publisher.RunReport) {
	if report == nil {
		return
	}
	s.m.Lock()
	s.runCount++
	s.lastReport = report
	s.m.Unlock()

	if s.EventBus == nil {
		return
	}
	msg, err := panoptic.NewRunReportMessage(report)
	if err != nil {
		Logger.Log.Errorf("fail to encode run report: %v", err)
		return
	}
	if err := s.EventBus.Publish(panoptic.TOPIC_EXECUTED_RUN, msg); err != nil {
		Logger.Log.Errorf("fail to publish run report: %v", err)
	}
}

func (s *Scheduler) Status() SchedulerStatus {
	s.m.Lock()
	defer s.m.Unlock()
	return SchedulerStatus{
		Running:    !s.stopped,
		Interval:   s.Config.Interval.String(),
		RunCount:   s.runCount,
		InFlight:   s.inflightN,
		LastReport: s.lastReport,
	}
}

// Shutdown stops the schedule, rejects new runs and waits for in-flight runs.
// Runs still going after the grace period are cancelled, which rolls back
// their open transactions, and waited for.
func (s *Scheduler) Shutdown() {
	s.m.Lock()
	if s.stopped {
		s.m.Unlock()
		return
	}
	s.stopped = true
	close(s.stop)
	s.m.Unlock()

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.Config.ShutdownGracePeriod):
		Logger.Log.Warnf("%s: in-flight runs exceeded grace period, cancelling", s.Name())
		s.runCancel()
		<-done
	}
	s.runCancel()
}

func (s *Scheduler) Name() string {
	return s.Config.Name
}
