package clients

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

const (
	UserByScreenNamePath = "/user"
	UserTweetsPath       = "/user-tweets"

	// The timeline endpoint rejects larger pages.
	MaxTweetsPerRequest = 40
)

var ErrUserNotFound = errors.New("user not found")

// RapidApiClient talks to the twitter241 API hosted on RapidAPI. It returns
// raw payloads; interpreting the unstable response schema is left to the
// caller.
type RapidApiClient struct {
	client  *HttpClient
	baseUrl string
}

func NewRapidApiClient(apiKey string, host string, timeout time.Duration) *RapidApiClient {
	header := http.Header{}
	header.Set("X-RapidAPI-Key", apiKey)
	header.Set("X-RapidAPI-Host", host)
	return &RapidApiClient{
		client:  NewHttpClient(header, []http.Cookie{}, timeout),
		baseUrl: "https://" + host,
	}
}

// WithBaseUrl points the client to another server, e.g. a test double.
func (c *RapidApiClient) WithBaseUrl(baseUrl string) *RapidApiClient {
	c.baseUrl = baseUrl
	return c
}

// GetUser resolves a screen name. A 404 is reported as ErrUserNotFound.
func (c *RapidApiClient) GetUser(ctx context.Context, handle string) ([]byte, error) {
	body, err := c.client.GetWithQueryParams(ctx, c.baseUrl+UserByScreenNamePath,
		map[string]string{"username": handle})
	if IsNotFound(err) {
		return nil, ErrUserNotFound
	}
	return body, err
}

func (c *RapidApiClient) GetUserTweets(ctx context.Context, userId string, count int) ([]byte, error) {
	if count > MaxTweetsPerRequest {
		count = MaxTweetsPerRequest
	}
	if count <= 0 {
		return nil, fmt.Errorf("invalid tweet count %d", count)
	}
	return c.client.GetWithQueryParams(ctx, c.baseUrl+UserTweetsPath,
		map[string]string{"user": userId, "count": strconv.Itoa(count)})
}
