package server

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Luismorlan/postwall/model"
	"github.com/Luismorlan/postwall/store"
	. "github.com/Luismorlan/postwall/utils/log"
)

var ErrNoPostAvailable = errors.New("no undisplayed post available")

// errAlreadyDisplayed aborts the acknowledgement transaction when another
// caller already wrote the marker. It never leaves this package.
var errAlreadyDisplayed = errors.New("post already displayed")

// DisplayService implements the select-next and acknowledge operations. A
// post moves from unseen to displayed exactly once; the displayed marker's
// unique post id is the final arbiter between concurrent acknowledgements.
type DisplayService struct {
	store *store.Store
	now   func() time.Time
	// Pre-insert marker lookup. The insert below still decides when the
	// lookup misses a marker committed concurrently.
	markerExists func(tx *store.Tx, postId string) (bool, error)
}

func NewDisplayService(s *store.Store) *DisplayService {
	return &DisplayService{
		store:        s,
		now:          time.Now,
		markerExists: (*store.Tx).DisplayedMarkerExists,
	}
}

// GetNextUndisplayed returns the most recent undisplayed post without changing
// any state. ErrNoPostAvailable is returned when every post was displayed.
func (d *DisplayService) GetNextUndisplayed(ctx context.Context) (*model.Post, error) {
	var post *model.Post
	err := d.store.View(ctx, func(tx *store.Tx) (err error) {
		post, err = tx.FindNextUndisplayed()
		return err
	})
	if errors.Is(err, store.ErrNoUndisplayedPost) {
		return nil, ErrNoPostAvailable
	}
	if err != nil {
		return nil, err
	}
	return post, nil
}

// AcknowledgeDisplayed marks postId as displayed. It is idempotent: repeated
// or concurrent calls for the same post all report true and only one of them
// writes. store.ErrPostNotFound is returned for unknown ids.
func (d *DisplayService) AcknowledgeDisplayed(ctx context.Context, postId string) (bool, error) {
	logger := Log.WithFields(logrus.Fields{"post_id": postId})
	now := d.now().UTC()

	err := d.store.Transaction(ctx, func(tx *store.Tx) error {
		if _, err := tx.FindPostByPostId(postId); err != nil {
			return err
		}
		exists, err := d.markerExists(tx, postId)
		if err != nil {
			return err
		}
		if exists {
			return errAlreadyDisplayed
		}
		// Two callers may both pass the check above, the insert decides.
		inserted, err := tx.InsertDisplayedMarker(postId, now)
		if err != nil {
			return err
		}
		if !inserted {
			return errAlreadyDisplayed
		}
		// Flag and marker commit together or not at all.
		return tx.MarkPostDisplayed(postId, now)
	})

	switch {
	case err == nil:
		logger.Info("post marked as displayed")
		return true, nil
	case errors.Is(err, errAlreadyDisplayed):
		logger.Debug("post already marked as displayed")
		return true, nil
	case errors.Is(err, store.ErrPostNotFound):
		return false, store.ErrPostNotFound
	default:
		logger.WithError(err).Error("fail to mark post as displayed")
		return false, err
	}
}

func (d *DisplayService) GetStats(ctx context.Context) (store.Stats, error) {
	var stats store.Stats
	err := d.store.View(ctx, func(tx *store.Tx) (err error) {
		stats, err = tx.Stats()
		return err
	})
	return stats, err
}
