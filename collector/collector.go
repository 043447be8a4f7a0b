package collector

import (
	"context"
	"time"
)

// NormalizedPost is the provider independent shape every provider produces.
type NormalizedPost struct {
	PostId       string
	Text         string
	AuthorHandle string
	AuthorName   string
	CreatedAt    time.Time
	MediaUrl     *string
	Url          string
}

// Provider fetches the latest posts of a handle.
//
// FetchPosts never fails: network errors, timeouts, rate limits and malformed
// payloads are logged by the implementation and yield an empty (or partial)
// slice. Implementations must not substitute fabricated posts for a failed
// fetch.
type Provider interface {
	FetchPosts(ctx context.Context, handle string, max int) []NormalizedPost
	Name() string
}

// Pinger is implemented by providers that can probe their upstream.
type Pinger interface {
	Ping(ctx context.Context) error
}
