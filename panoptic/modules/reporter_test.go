package modules

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luismorlan/postwall/panoptic"
	"github.com/Luismorlan/postwall/publisher"
)

type TestMetricsClient struct {
	m      sync.Mutex
	counts map[string]int64
	tags   map[string][]string
}

func NewTestMetricsClient() *TestMetricsClient {
	return &TestMetricsClient{counts: map[string]int64{}, tags: map[string][]string{}}
}

func (c *TestMetricsClient) Incr(name string, tags []string, rate float64) error {
	return c.Count(name, 1, tags, rate)
}

func (c *TestMetricsClient) Count(name string, value int64, tags []string, rate float64) error {
	c.m.Lock()
	defer c.m.Unlock()
	c.counts[name] += value
	c.tags[name] = tags
	return nil
}

func (c *TestMetricsClient) Timing(name string, value time.Duration, tags []string, rate float64) error {
	return c.Count(name, int64(value), tags, rate)
}

func (c *TestMetricsClient) Get(name string) (int64, []string) {
	c.m.Lock()
	defer c.m.Unlock()
	return c.counts[name], c.tags[name]
}


type TestNotifier struct {
	m       sync.Mutex
	reports []*publisher.RunReport
}

func (n *TestNotifier) Notify(ctx context.Context, report *publisher.RunReport) error {
	n.m.Lock()
	defer n.m.Unlock()
	n.reports = append(n.reports, report)
	return nil
}

func (n *TestNotifier) Len() int {
	n.m.Lock()
	defer n.m.Unlock()
	return len(n.reports)
}

func publishReport(t *testing.T, eventbus *gochannel.GoChannel, report *publisher.RunReport) {
	msg, err := panoptic.NewRunReportMessage(report)
	require.Nil(t, err)
	require.Nil(t, eventbus.Publish(panoptic.TOPIC_EXECUTED_RUN, msg))
}

func TestReporter(t *testing.T) {
	eventbus := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	defer eventbus.Close()
	metrics := NewTestMetricsClient()
	notifier := &TestNotifier{}
	r := NewReporter(ReporterConfig{Name: "reporter"}, metrics, notifier, eventbus)

	ctx, cancel := context.WithCancel(context.Background())
	require.Nil(t, r.Init(ctx))
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		assert.Nil(t, r.RunModule(ctx))
	}()

	publishReport(t, eventbus, &publisher.RunReport{
		RunId: "1", Trigger: publisher.TriggerScheduled,
		Stats:         publisher.RunStats{Fetched: 3, New: 3, HandlesProcessed: 1},
		FailedHandles: []string{},
	})
	// Malformed payloads are dropped without stopping the reporter.
	require.Nil(t, eventbus.Publish(panoptic.TOPIC_EXECUTED_RUN, message.NewMessage(watermill.NewUUID(), []byte("{"))))
	publishReport(t, eventbus, &publisher.RunReport{
		RunId: "2", Trigger: publisher.TriggerManual,
		Stats:         publisher.RunStats{Fetched: 2, Duplicates: 2, HandlesProcessed: 2},
		FailedHandles: []string{"bob"},
	})

	assert.Eventually(t, func() bool {
		runs, _ := metrics.Get(panoptic.DDOG_RUN_COUNTER)
		return runs == 2
	}, 2*time.Second, 5*time.Millisecond)

	fetched, _ := metrics.Get(panoptic.DDOG_POSTS_FETCHED_COUNTER)
	assert.Equal(t, int64(5), fetched)
	newPosts, _ := metrics.Get(panoptic.DDOG_POSTS_NEW_COUNTER)
	assert.Equal(t, int64(3), newPosts)
	failed, _ := metrics.Get(panoptic.DDOG_FAILED_HANDLE_COUNTER)
	assert.Equal(t, int64(1), failed)
	// Only the run with a failed handle is escalated.
	assert.Eventually(t, func() bool { return notifier.Len() == 1 }, time.Second, 5*time.Millisecond)
	notifier.m.Lock()
	assert.Equal(t, "2", notifier.reports[0].RunId)
	notifier.m.Unlock()

	cancel()
	<-exited
}

func TestSlackNotifier(t *testing.T) {
	bodies := make(chan map[string]interface{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		assert.Nil(t, json.NewDecoder(r.Body).Decode(&body))
		bodies <- body
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	report := &publisher.RunReport{
		RunId:         "run-1",
		Trigger:       publisher.TriggerScheduled,
		Stats:         publisher.RunStats{Fetched: 1, New: 1, HandlesProcessed: 2},
		FailedHandles: []string{"bob", "carol"},
		Error:         "",
	}
	require.Nil(t, NewSlackNotifier(srv.URL).Notify(context.Background(), report))
	received := <-bodies
	assert.Equal(t, FormatRunReport(report), received["text"])
	assert.Contains(t, received["text"], "failed handles: bob, carol")
}
