package modules

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/slack-go/slack"

	"github.com/Luismorlan/postwall/panoptic"
	"github.com/Luismorlan/postwall/publisher"
	Logger "github.com/Luismorlan/postwall/utils/log"
)

type ReporterConfig struct {
	Name string
}

// MetricsClient is the subset of *statsd.Client the reporter uses.
type MetricsClient interface {
	Incr(name string, tags []string, rate float64) error
	Count(name string, value int64, tags []string, rate float64) error
	Timing(name string, value time.Duration, tags []string, rate float64) error
}

// Notifier alerts humans about runs that did not fully succeed.
type Notifier interface {
	Notify(ctx context.Context, report *publisher.RunReport) error
}

// Reporter's job is to listen to run reports and aggregate results, sending
// to Datadog (Or other service if there's any) for monitoring purpose.
type Reporter struct {
	Config ReporterConfig

	Statsd MetricsClient

	// Optional.
	Notifier Notifier

	EventBus *gochannel.GoChannel

	messages <-chan *message.Message
}

func NewReporter(config ReporterConfig, statsd MetricsClient, notifier Notifier, e *gochannel.GoChannel) *Reporter {
	return &Reporter{
		Config:   config,
		Statsd:   statsd,
		Notifier: notifier,
		EventBus: e,
	}
}

// Init subscribes to run reports. The bus does not keep messages published
// before a subscription exists, so this runs before any module starts.
func (r *Reporter) Init(ctx context.Context) error {
	messages, err := r.EventBus.Subscribe(ctx, panoptic.TOPIC_EXECUTED_RUN)
	if err != nil {
		return err
	}
	r.messages = messages
	return nil
}

// Report run result to datadog.
func ReportRunResult(report *publisher.RunReport, statsd MetricsClient) {
	status := "success"
	if report.Error != "" || len(report.FailedHandles) > 0 {
		status = "failure"
	}
	tags := []string{"trigger:" + string(report.Trigger), "status:" + status}

	errs := []error{
		statsd.Incr(panoptic.DDOG_RUN_COUNTER, tags, 1),
		statsd.Count(panoptic.DDOG_POSTS_FETCHED_COUNTER, int64(report.Stats.Fetched), tags, 1),
		statsd.Count(panoptic.DDOG_POSTS_NEW_COUNTER, int64(report.Stats.New), tags, 1),
		statsd.Count(panoptic.DDOG_POSTS_DUP_COUNTER, int64(report.Stats.Duplicates), tags, 1),
		statsd.Count(panoptic.DDOG_FAILED_HANDLE_COUNTER, int64(len(report.FailedHandles)), tags, 1),
		statsd.Timing(panoptic.DDOG_RUN_DURATION, report.Duration, tags, 1),
	}
	for _, err := range errs {
		if err != nil {
			Logger.Log.Infoln("cannot report run result", err)
			return
		}
	}
}

func (r *Reporter) ProcessRunReports(ctx context.Context) error {
	if r.messages == nil {
		if err := r.Init(ctx); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-r.messages:
			if !ok {
				return nil
			}
			msg.Ack()

			report, err := panoptic.DecodeRunReport(msg)
			if err != nil {
				Logger.Log.Errorf("drop malformed run report: %v", err)
				continue
			}
			ReportRunResult(report, r.Statsd)
			r.maybeNotify(ctx, report)
		}
	}
}

func (r *Reporter) maybeNotify(ctx context.Context, report *publisher.RunReport) {
	if r.Notifier == nil || (report.Error == "" && len(report.FailedHandles) == 0) {
		return
	}
	if err := r.Notifier.Notify(ctx, report); err != nil {
		Logger.Log.Errorf("fail to notify run failure: %v", err)
	}
}

func (r *Reporter) RunModule(ctx context.Context) error {
	return r.ProcessRunReports(ctx)
}

func (r *Reporter) Name() string {
	return r.Config.Name
}

// Subscription ends with the engine context, nothing else to release.
func (r *Reporter) Shutdown() {}

// SlackNotifier posts failed runs to a Slack incoming webhook.
type SlackNotifier struct {
	WebhookUrl string
}

func NewSlackNotifier(webhookUrl string) *SlackNotifier {
	return &SlackNotifier{WebhookUrl: webhookUrl}
}

func FormatRunReport(report *publisher.RunReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "postwall %s run %s did not fully succeed\n", report.Trigger, report.RunId)
	fmt.Fprintf(&sb, "fetched=%d new=%d duplicates=%d handles_processed=%d\n",
		report.Stats.Fetched, report.Stats.New, report.Stats.Duplicates, report.Stats.HandlesProcessed)
	if len(report.FailedHandles) > 0 {
		fmt.Fprintf(&sb, "failed handles: %s\n", strings.Join(report.FailedHandles, ", "))
	}
	if report.Error != "" {
		fmt.Fprintf(&sb, "error: %s\n", report.Error)
	}
	return strings.TrimSpace(sb.String())
}

func (n *SlackNotifier) Notify(ctx context.Context, report *publisher.RunReport) error {
	return slack.PostWebhookContext(ctx, n.WebhookUrl, &slack.WebhookMessage{Text: FormatRunReport(report)})
}
