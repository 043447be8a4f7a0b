package model

import "time"

// DisplayedPost is the write-once ledger entry confirming a post was shown.
// The unique index on PostId is the final arbiter between concurrent
// acknowledgements of the same post.
type DisplayedPost struct {
	Id          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	PostId      string    `gorm:"size:255;not null;uniqueIndex" json:"post_id"`
	Post        *Post     `gorm:"foreignKey:PostId;references:PostId;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	DisplayedAt time.Time `gorm:"not null" json:"displayed_at"`
}
