package store

import (
	"time"

	"github.com/Luismorlan/postwall/model"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Stats summarizes the store for the consumer facing stats endpoint.
type Stats struct {
	Total         int64 `json:"total"`
	Displayed     int64 `json:"displayed"`
	Remaining     int64 `json:"remaining"`
	ActiveHandles int64 `json:"active_handles"`
}

func (tx *Tx) FindPostByPostId(postId string) (*model.Post, error) {
	var post model.Post
	err := tx.db.Where("post_id = ?", postId).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "fail to find post %s", postId)
	}
	return &post, nil
}

func (tx *Tx) PostExists(postId string) (bool, error) {
	var count int64
	if err := tx.db.Model(&model.Post{}).Where("post_id = ?", postId).Count(&count).Error; err != nil {
		return false, errors.Wrapf(err, "fail to check post %s", postId)
	}
	return count > 0, nil
}

// InsertPost inserts a new post and reports whether a row was written. A post
// id that already exists, including one inserted concurrently by another run,
// yields false without error.
func (tx *Tx) InsertPost(post *model.Post) (bool, error) {
	res := tx.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "post_id"}},
		DoNothing: true,
	}).Create(post)
	if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	if res.Error != nil {
		return false, errors.Wrapf(res.Error, "fail to insert post %s", post.PostId)
	}
	return res.RowsAffected > 0, nil
}

// FindNextUndisplayed returns the undisplayed post with the latest provider
// creation time. Equal timestamps fall back to insertion order.
func (tx *Tx) FindNextUndisplayed() (*model.Post, error) {
	var post model.Post
	err := tx.db.
		Where("is_displayed = ?", false).
		Order("created_at_provider desc").
		Order("id asc").
		First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoUndisplayedPost
	}
	if err != nil {
		return nil, errors.Wrap(err, "fail to find next undisplayed post")
	}
	return &post, nil
}

func (tx *Tx) DisplayedMarkerExists(postId string) (bool, error) {
	var count int64
	if err := tx.db.Model(&model.DisplayedPost{}).Where("post_id = ?", postId).Count(&count).Error; err != nil {
		return false, errors.Wrapf(err, "fail to check displayed marker %s", postId)
	}
	return count > 0, nil
}

// InsertDisplayedMarker writes the ledger row for postId. It returns false
// when a marker already exists, which callers treat as "already displayed".
func (tx *Tx) InsertDisplayedMarker(postId string, at time.Time) (bool, error) {
	marker := &model.DisplayedPost{PostId: postId, DisplayedAt: at}
	res := tx.db.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "post_id"}},
		DoNothing: true,
	}).Create(marker)
	if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	if res.Error != nil {
		return false, errors.Wrapf(res.Error, "fail to insert displayed marker %s", postId)
	}
	return res.RowsAffected > 0, nil
}

func (tx *Tx) MarkPostDisplayed(postId string, at time.Time) error {
	res := tx.db.Model(&model.Post{}).
		Where("post_id = ?", postId).
		Updates(map[string]interface{}{"is_displayed": true, "displayed_at": at})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "fail to mark post %s displayed", postId)
	}
	if res.RowsAffected == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (tx *Tx) Stats() (Stats, error) {
	var stats Stats
	if err := tx.db.Model(&model.Post{}).Count(&stats.Total).Error; err != nil {
		return stats, errors.Wrap(err, "fail to count posts")
	}
	if err := tx.db.Model(&model.Post{}).Where("is_displayed = ?", true).Count(&stats.Displayed).Error; err != nil {
		return stats, errors.Wrap(err, "fail to count displayed posts")
	}
	if err := tx.db.Model(&model.Handle{}).Where("is_active = ?", true).Count(&stats.ActiveHandles).Error; err != nil {
		return stats, errors.Wrap(err, "fail to count active handles")
	}
	stats.Remaining = stats.Total - stats.Displayed
	return stats, nil
}
