package utils

import (
	"fmt"
	"testing"
	"time"

	"github.com/Luismorlan/postwall/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// create handle with name, do sanity checks and returns it
func TestCreateHandle(t *testing.T, db *gorm.DB, handle string, isActive bool) *model.Handle {
	t.Helper()
	h := &model.Handle{Handle: handle, IsActive: isActive}
	require.Nil(t, db.Create(h).Error)
	require.NotZero(t, h.Id)
	return h
}

// create an undisplayed post with the given id and provider creation time
func TestCreatePost(t *testing.T, db *gorm.DB, postId string, createdAt time.Time) *model.Post {
	t.Helper()
	post := &model.Post{
		PostId:            postId,
		Text:              "text of " + postId,
		AuthorHandle:      "tester",
		AuthorName:        "Tester",
		CreatedAtProvider: createdAt.UTC(),
		Url:               fmt.Sprintf("https://twitter.com/tester/status/%s", postId),
		IsDisplayed:       false,
		FetchedAt:         time.Now().UTC(),
	}
	require.Nil(t, db.Create(post).Error)
	return post
}

// count rows of the displayed ledger for a post id
func TestCountDisplayedMarkers(t *testing.T, db *gorm.DB, postId string) int64 {
	t.Helper()
	var count int64
	require.Nil(t, db.Model(&model.DisplayedPost{}).Where("post_id = ?", postId).Count(&count).Error)
	return count
}
