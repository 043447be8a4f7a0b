package model

import "time"

/*

Handle is a tracked account on the provider side.

Id: primary key
Handle: provider-specific account identifier, stored without the leading "@"
IsActive: only active handles are fetched by the pipeline

IsActive deliberately carries no gorm default: a default tag would make gorm
skip an explicit false on insert.
*/
type Handle struct {
	Id        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Handle    string    `gorm:"size:255;not null;uniqueIndex" json:"handle"`
	IsActive  bool      `gorm:"not null;index" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
