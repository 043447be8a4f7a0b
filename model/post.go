package model

import (
	"time"
)

/*

Post is a normalized piece of content fetched from a provider.

Id: auto-increment primary key, also the insertion order used as tie breaker
PostId: provider-issued id, globally unique, the deduplication key
Text: post body in plain text
AuthorHandle: handle the post was fetched for
AuthorName: display name of the author
CreatedAtProvider: creation time reported by the provider, stored in UTC
MediaUrl: optional media reference
Url: canonical link to the post on the provider

IsDisplayed / DisplayedAt: set exactly once, together with a DisplayedPost
row, when a consumer acknowledges the post
FetchedAt: time the post was inserted
*/
type Post struct {
	Id                uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PostId            string     `gorm:"size:255;not null;uniqueIndex" json:"post_id"`
	Text              string     `gorm:"type:text;not null" json:"text"`
	AuthorHandle      string     `gorm:"size:255;not null;index" json:"author_handle"`
	AuthorName        string     `gorm:"size:255" json:"author_name"`
	CreatedAtProvider time.Time  `gorm:"not null;index:idx_posts_undisplayed,priority:2" json:"created_at_provider"`
	MediaUrl          *string    `gorm:"type:text" json:"media_url"`
	Url               string     `gorm:"type:text;not null" json:"url"`
	IsDisplayed       bool       `gorm:"not null;index:idx_posts_undisplayed,priority:1" json:"is_displayed"`
	DisplayedAt       *time.Time `json:"displayed_at"`
	FetchedAt         time.Time  `gorm:"not null" json:"fetched_at"`
}
