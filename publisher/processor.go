package publisher

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Luismorlan/postwall/collector"
	"github.com/Luismorlan/postwall/model"
	"github.com/Luismorlan/postwall/store"
	. "github.com/Luismorlan/postwall/utils/log"
)

const (
	DefaultPageSize      = 10
	DefaultHandleTimeout = 30 * time.Second
)

type Trigger string

const (
	TriggerStartup   Trigger = "startup"
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
	TriggerApi       Trigger = "api"
	TriggerOneShot   Trigger = "oneshot"
)

type RunStats struct {
	Fetched          int `json:"fetched"`
	New              int `json:"new"`
	Duplicates       int `json:"duplicates"`
	HandlesProcessed int `json:"handles_processed"`
}

func (s *RunStats) add(other RunStats) {
	s.Fetched += other.Fetched
	s.New += other.New
	s.Duplicates += other.Duplicates
	s.HandlesProcessed += other.HandlesProcessed
}

// RunReport describes one pipeline run. Error is set when the run could not
// complete, e.g. the handle list could not be loaded or the run was
// cancelled. Handles whose batch was rolled back are listed in FailedHandles.
type RunReport struct {
	RunId         string        `json:"run_id"`
	Trigger       Trigger       `json:"trigger"`
	Stats         RunStats      `json:"stats"`
	FailedHandles []string      `json:"failed_handles"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
	Error         string        `json:"error,omitempty"`
}

// PostPublisherProcessor runs the fetch-and-store pipeline: for every active
// handle it fetches one page from the provider and inserts the posts it has
// not seen yet. Each handle is committed in its own transaction, so a failure
// only rolls back that handle's batch.
type PostPublisherProcessor struct {
	Store    *store.Store
	Provider collector.Provider
	// Maximum posts requested per handle.
	PageSize int
	// Upper bound of a single provider call.
	HandleTimeout time.Duration

	now func() time.Time
}

func NewPostPublisherProcessor(s *store.Store, provider collector.Provider, pageSize int, handleTimeout time.Duration) *PostPublisherProcessor {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if handleTimeout <= 0 {
		handleTimeout = DefaultHandleTimeout
	}
	return &PostPublisherProcessor{
		Store:         s,
		Provider:      provider,
		PageSize:      pageSize,
		HandleTimeout: handleTimeout,
		now:           time.Now,
	}
}

// Run executes one pipeline run. The returned report is never nil. An error is
// returned only when the run as a whole could not proceed. Concurrent runs
// are safe: inserts skip post ids that already exist.
func (processor *PostPublisherProcessor) Run(ctx context.Context, trigger Trigger) (*RunReport, error) {
	report := &RunReport{
		RunId:         uuid.New().String(),
		Trigger:       trigger,
		FailedHandles: []string{},
		StartedAt:     processor.now().UTC(),
	}
	logger := Log.WithFields(logrus.Fields{"run_id": report.RunId, "trigger": trigger, "provider": processor.Provider.Name()})
	defer func() {
		report.Duration = processor.now().Sub(report.StartedAt)
	}()

	var handles []model.Handle
	err := processor.Store.View(ctx, func(tx *store.Tx) (err error) {
		handles, err = tx.ListActiveHandles()
		return err
	})
	if err != nil {
		report.Error = err.Error()
		logger.WithError(err).Error("fail to load active handles")
		return report, err
	}
	if len(handles) == 0 {
		logger.Info("no active handles found")
		return report, nil
	}

	for _, h := range handles {
		if err := ctx.Err(); err != nil {
			report.Error = err.Error()
			logger.WithError(err).Warn("run cancelled before all handles were processed")
			return report, errors.Wrap(err, "run cancelled")
		}
		stats, err := processor.processHandle(ctx, h.Handle)
		if err != nil {
			report.FailedHandles = append(report.FailedHandles, h.Handle)
			logger.WithError(err).WithField("handle", h.Handle).Error("fail to store posts, batch rolled back")
		}
		report.Stats.add(stats)
	}

	logger.WithFields(logrus.Fields{
		"fetched":           report.Stats.Fetched,
		"new":               report.Stats.New,
		"duplicates":        report.Stats.Duplicates,
		"handles_processed": report.Stats.HandlesProcessed,
		"failed_handles":    len(report.FailedHandles),
	}).Info("fetch complete")
	return report, nil
}

// processHandle fetches and stores one handle. Fetched and HandlesProcessed
// are always counted; New and Duplicates only once the batch is committed.
func (processor *PostPublisherProcessor) processHandle(ctx context.Context, handle string) (RunStats, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, processor.HandleTimeout)
	posts := processor.Provider.FetchPosts(fetchCtx, handle, processor.PageSize)
	cancel()

	stats := RunStats{Fetched: len(posts), HandlesProcessed: 1}
	if len(posts) == 0 {
		return stats, nil
	}

	var inserted, duplicates int
	err := processor.Store.Transaction(ctx, func(tx *store.Tx) error {
		inserted, duplicates = 0, 0
		for i := range posts {
			isNew, err := processor.storePost(tx, &posts[i])
			if err != nil {
				return err
			}
			if isNew {
				inserted++
			} else {
				duplicates++
			}
		}
		return nil
	})
	if err != nil {
		return stats, err
	}

	stats.New = inserted
	stats.Duplicates = duplicates
	return stats, nil
}

// storePost inserts post unless its id is already stored. It reports whether
// a row was written. The store is the only source of truth, a post removed
// from it is inserted again on its next sighting.
func (processor *PostPublisherProcessor) storePost(tx *store.Tx, post *collector.NormalizedPost) (bool, error) {
	exists, err := tx.PostExists(post.PostId)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	// Another run may insert the same id between the check and the insert,
	// InsertPost reports that as not inserted.
	return tx.InsertPost(&model.Post{
		PostId:            post.PostId,
		Text:              post.Text,
		AuthorHandle:      post.AuthorHandle,
		AuthorName:        post.AuthorName,
		CreatedAtProvider: post.CreatedAt.UTC(),
		MediaUrl:          post.MediaUrl,
		Url:               post.Url,
		IsDisplayed:       false,
		FetchedAt:         processor.now().UTC(),
	})
}
