package modules

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luismorlan/postwall/panoptic"
	"github.com/Luismorlan/postwall/publisher"
)

// TestRunner records every run. behavior, if set, decides the outcome of the
// n-th run (0 based).
type TestRunner struct {
	m        sync.Mutex
	triggers []publisher.Trigger
	behavior func(ctx context.Context, n int) error
}

func (r *TestRunner) Run(ctx context.Context, trigger publisher.Trigger) (*publisher.RunReport, error) {
	r.m.Lock()
	n := len(r.triggers)
	r.triggers = append(r.triggers, trigger)
	behavior := r.behavior
	r.m.Unlock()

	report := &publisher.RunReport{RunId: "run", Trigger: trigger, FailedHandles: []string{}}
	if behavior != nil {
		if err := behavior(ctx, n); err != nil {
			report.Error = err.Error()
			return report, err
		}
	}
	return report, nil
}

func (r *TestRunner) Triggers() []publisher.Trigger {
	r.m.Lock()
	defer r.m.Unlock()
	return append([]publisher.Trigger{}, r.triggers...)
}

func startScheduler(t *testing.T, s *Scheduler) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		assert.Nil(t, s.RunModule(ctx))
	}()
	return func() {
		cancel()
		s.Shutdown()
		<-exited
	}
}

func TestSchedulerStartupAndIntervalRuns(t *testing.T) {
	runner := &TestRunner{}
	s := NewScheduler(SchedulerConfig{
		Name:                "scheduler",
		Interval:            20 * time.Millisecond,
		RunOnStartup:        true,
		ShutdownGracePeriod: time.Second,
	}, runner, nil)
	stop := startScheduler(t, s)

	assert.Eventually(t, func() bool { return len(runner.Triggers()) >= 3 }, 2*time.Second, 5*time.Millisecond)
	stop()

	triggers := runner.Triggers()
	assert.Equal(t, publisher.TriggerStartup, triggers[0])
	for _, trigger := range triggers[1:] {
		assert.Equal(t, publisher.TriggerScheduled, trigger)
	}
	assert.False(t, s.Status().Running)

	// No run starts once stopped.
	count := len(runner.Triggers())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, count, len(runner.Triggers()))
	assert.ErrorIs(t, s.TriggerManualFetch(), ErrSchedulerStopped)
}

func TestSchedulerManualTrigger(t *testing.T) {
	runner := &TestRunner{}
	s := NewScheduler(SchedulerConfig{Name: "scheduler", Interval: time.Hour, ShutdownGracePeriod: time.Second}, runner, nil)
	stop := startScheduler(t, s)
	defer stop()

	require.Nil(t, s.TriggerManualFetch())
	require.Nil(t, s.TriggerManualFetch())
	assert.Eventually(t, func() bool { return s.Status().RunCount == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []publisher.Trigger{publisher.TriggerManual, publisher.TriggerManual}, runner.Triggers())
	assert.Equal(t, publisher.TriggerManual, s.Status().LastReport.Trigger)
}

func TestSchedulerSurvivesFailingRuns(t *testing.T) {
	runner := &TestRunner{behavior: func(ctx context.Context, n int) error {
		switch n {
		case 0:
			panic("unexpected nil")
		case 1:
			return errors.New("store unavailable")
		}
		return nil
	}}
	s := NewScheduler(SchedulerConfig{
		Name:                "scheduler",
		Interval:            10 * time.Millisecond,
		RunOnStartup:        true,
		ShutdownGracePeriod: time.Second,
	}, runner, nil)
	stop := startScheduler(t, s)
	defer stop()

	assert.Eventually(t, func() bool { return s.Status().RunCount >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestSchedulerShutdownWaitsForInflightRun(t *testing.T) {
	finished := make(chan struct{})
	runner := &TestRunner{behavior: func(ctx context.Context, n int) error {
		time.Sleep(50 * time.Millisecond)
		close(finished)
		return nil
	}}
	s := NewScheduler(SchedulerConfig{Name: "scheduler", Interval: time.Hour, ShutdownGracePeriod: 5 * time.Second}, runner, nil)

	require.Nil(t, s.TriggerManualFetch())
	assert.Eventually(t, func() bool { return len(runner.Triggers()) == 1 }, time.Second, time.Millisecond)
	s.Shutdown()

	select {
	case <-finished:
	default:
		t.Fatal("shutdown returned before the in-flight run finished")
	}
	assert.Equal(t, int64(1), s.Status().RunCount)
}

func TestSchedulerShutdownCancelsRunAfterGracePeriod(t *testing.T) {
	cancelled := make(chan error, 1)
	runner := &TestRunner{behavior: func(ctx context.Context, n int) error {
		<-ctx.Done()
		cancelled <- ctx.Err()
		return ctx.Err()
	}}
	s := NewScheduler(SchedulerConfig{Name: "scheduler", Interval: time.Hour, ShutdownGracePeriod: 20 * time.Millisecond}, runner, nil)

	require.Nil(t, s.TriggerManualFetch())
	assert.Eventually(t, func() bool { return len(runner.Triggers()) == 1 }, time.Second, time.Millisecond)
	start := time.Now()
	s.Shutdown()
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.ErrorIs(t, <-cancelled, context.Canceled)
}

func TestSchedulerPublishesRunReports(t *testing.T) {
	eventbus := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	defer eventbus.Close()
	messages, err := eventbus.Subscribe(context.Background(), panoptic.TOPIC_EXECUTED_RUN)
	require.Nil(t, err)

	s := NewScheduler(SchedulerConfig{Name: "scheduler", Interval: time.Hour, ShutdownGracePeriod: time.Second}, &TestRunner{}, eventbus)
	defer s.Shutdown()
	require.Nil(t, s.TriggerManualFetch())

	select {
	case msg := <-messages:
		msg.Ack()
		report, err := panoptic.DecodeRunReport(msg)
		require.Nil(t, err)
		assert.Equal(t, publisher.TriggerManual, report.Trigger)
	case <-time.After(2 * time.Second):
		t.Fatal("no run report published")
	}
}
