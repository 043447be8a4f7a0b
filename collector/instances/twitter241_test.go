package collector_instances

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luismorlan/postwall/collector"
	"github.com/Luismorlan/postwall/collector/clients"
)

const userPayload = `
{
	"result": {
		"data": {
			"user": {
				"result": {
					"__typename": "User",
					"rest_id": "44196397",
					"legacy": {"name": "Alice Liddell", "screen_name": "alice"}
				}
			}
		}
	}
}`

const timelinePayload = `
{
	"result": {
		"timeline": {
			"instructions": [
				{"type": "TimelineClearCache"},
				{
					"type": "TimelinePinEntry",
					"entry": {"entryId": "tweet-999"}
				},
				{
					"type": "TimelineAddEntries",
					"entries": [
						{
							"entryId": "tweet-1001",
							"content": {"itemContent": {"tweet_results": {"result": {
								"__typename": "Tweet",
								"rest_id": "1001",
								"legacy": {
									"id_str": "1001",
									"full_text": "first post",
									"created_at": "Wed Oct 10 20:19:24 +0000 2018",
									"extended_entities": {"media": [{"media_url_https": "https://pbs.twimg.com/media/a.jpg"}]}
								}
							}}}}
						},
						{
							"entryId": "tweet-1002",
							"content": {"itemContent": {"tweet_results": {"result": {
								"__typename": "Tweet",
								"rest_id": "1002",
								"legacy": {"id_str": "1002", "full_text": "RT @bob: reposted", "created_at": "Wed Oct 10 20:00:00 +0000 2018"}
							}}}}
						},
						{
							"entryId": "tweet-1003",
							"content": {"itemContent": {"tweet_results": {"result": {
								"__typename": "TweetWithVisibilityResults",
								"tweet": {
									"rest_id": "1003",
									"legacy": {"full_text": "limited post", "created_at": "garbage"}
								}
							}}}}
						},
						{
							"entryId": "tweet-1004",
							"content": {"itemContent": {}}
						},
						{
							"entryId": "tweet-1005",
							"content": {"itemContent": {"tweet_results": {"result": {"__typename": "TweetTombstone"}}}}
						},
						{
							"entryId": "cursor-bottom-123",
							"content": {"value": "abc"}
						},
						{
							"entryId": "tweet-1006",
							"content": {"itemContent": {"tweet_results": {"result": {
								"__typename": "Tweet",
								"rest_id": 1006,
								"legacy": {"full_text": "numeric id", "created_at": "Tue Oct 09 10:00:00 +0000 2018"}
							}}}}
						}
					]
				}
			]
		}
	}
}`

type fakeTwitter241 struct {
	mu             sync.Mutex
	userStatus     int
	userBody       string
	timelineStatus int
	timelineBody   string
	userCalls      int
	timelineCalls  int
	lastUserId     string
}

func (f *fakeTwitter241) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.URL.Path {
	case clients.UserByScreenNamePath:
		f.userCalls++
		w.WriteHeader(f.userStatus)
		w.Write([]byte(f.userBody))
	case clients.UserTweetsPath:
		f.timelineCalls++
		f.lastUserId = r.URL.Query().Get("user")
		w.WriteHeader(f.timelineStatus)
		w.Write([]byte(f.timelineBody))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestTwitter241(t *testing.T, fake *fakeTwitter241, cache collector.UserCache) *Twitter241Provider {
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	client := clients.NewRapidApiClient("test-key", "example.com", time.Second).WithBaseUrl(srv.URL)
	p := NewTwitter241Provider(client, cache)
	p.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return p
}

func TestTwitter241FetchPosts(t *testing.T) {
	fake := &fakeTwitter241{
		userStatus: http.StatusOK, userBody: userPayload,
		timelineStatus: http.StatusOK, timelineBody: timelinePayload,
	}
	p := newTestTwitter241(t, fake, nil)

	posts := p.FetchPosts(context.Background(), "alice", 10)
	media := "https://pbs.twimg.com/media/a.jpg"
	expected := []collector.NormalizedPost{
		{
			PostId:       "1001",
			Text:         "first post",
			AuthorHandle: "alice",
			AuthorName:   "Alice Liddell",
			CreatedAt:    time.Date(2018, 10, 10, 20, 19, 24, 0, time.UTC),
			MediaUrl:     &media,
			Url:          "https://twitter.com/alice/status/1001",
		},
		{
			PostId:       "1003",
			Text:         "limited post",
			AuthorHandle: "alice",
			AuthorName:   "Alice Liddell",
			CreatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Url:          "https://twitter.com/alice/status/1003",
		},
		{
			PostId:       "1006",
			Text:         "numeric id",
			AuthorHandle: "alice",
			AuthorName:   "Alice Liddell",
			CreatedAt:    time.Date(2018, 10, 9, 10, 0, 0, 0, time.UTC),
			Url:          "https://twitter.com/alice/status/1006",
		},
	}
	if diff := cmp.Diff(expected, posts); diff != "" {
		t.Errorf("unexpected posts (-want +got):\n%s", diff)
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, "44196397", fake.lastUserId)
}

func TestTwitter241StopsAtMax(t *testing.T) {
	fake := &fakeTwitter241{
		userStatus: http.StatusOK, userBody: userPayload,
		timelineStatus: http.StatusOK, timelineBody: timelinePayload,
	}
	posts := newTestTwitter241(t, fake, nil).FetchPosts(context.Background(), "alice", 1)
	require.Len(t, posts, 1)
	assert.Equal(t, "1001", posts[0].PostId)
}

func TestTwitter241FailuresYieldNoPosts(t *testing.T) {
	testCases := []struct {
		name string
		fake *fakeTwitter241
	}{
		{
			name: "unknown user",
			fake: &fakeTwitter241{userStatus: http.StatusOK, userBody: `{"result": {"data": {}}}`},
		},
		{
			name: "user lookup 404",
			fake: &fakeTwitter241{userStatus: http.StatusNotFound},
		},
		{
			name: "user lookup without id",
			fake: &fakeTwitter241{userStatus: http.StatusOK, userBody: `{"something": "else"}`},
		},
		{
			name: "rate limited timeline",
			fake: &fakeTwitter241{
				userStatus: http.StatusOK, userBody: userPayload,
				timelineStatus: http.StatusTooManyRequests,
			},
		},
		{
			name: "server error",
			fake: &fakeTwitter241{
				userStatus: http.StatusOK, userBody: userPayload,
				timelineStatus: http.StatusInternalServerError,
			},
		},
		{
			name: "malformed timeline",
			fake: &fakeTwitter241{
				userStatus: http.StatusOK, userBody: userPayload,
				timelineStatus: http.StatusOK, timelineBody: `[1, 2`,
			},
		},
		{
			name: "timeline without instructions",
			fake: &fakeTwitter241{
				userStatus: http.StatusOK, userBody: userPayload,
				timelineStatus: http.StatusOK, timelineBody: `{"data": {"user": {}}}`,
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			posts := newTestTwitter241(t, tc.fake, nil).FetchPosts(context.Background(), "alice", 10)
			assert.Empty(t, posts)
		})
	}
}

func TestTwitter241Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := clients.NewRapidApiClient("test-key", "example.com", 50*time.Millisecond).WithBaseUrl(srv.URL)
	posts := NewTwitter241Provider(client, nil).FetchPosts(context.Background(), "alice", 10)
	assert.Empty(t, posts)
}

func TestTwitter241UsesUserCache(t *testing.T) {
	fake := &fakeTwitter241{
		userStatus: http.StatusOK, userBody: userPayload,
		timelineStatus: http.StatusOK, timelineBody: timelinePayload,
	}
	cache, err := collector.NewLruUserCache(10)
	require.Nil(t, err)
	p := newTestTwitter241(t, fake, cache)

	p.FetchPosts(context.Background(), "alice", 10)
	p.FetchPosts(context.Background(), "alice", 10)
	fake.mu.Lock()
	assert.Equal(t, 1, fake.userCalls)
	assert.Equal(t, 2, fake.timelineCalls)
	// A 404 timeline evicts the cached resolution.
	fake.timelineStatus = http.StatusNotFound
	fake.mu.Unlock()

	assert.Empty(t, p.FetchPosts(context.Background(), "alice", 10))
	_, ok := cache.Get(context.Background(), "alice")
	assert.False(t, ok)
}

func TestExtractUserShapes(t *testing.T) {
	testCases := []struct {
		name     string
		payload  string
		expected collector.ResolvedUser
	}{
		{
			name:     "nested result",
			payload:  userPayload,
			expected: collector.ResolvedUser{Id: "44196397", Name: "Alice Liddell"},
		},
		{
			name:     "user object",
			payload:  `{"user": {"id_str": "7", "name": "Seven"}}`,
			expected: collector.ResolvedUser{Id: "7", Name: "Seven"},
		},
		{
			name:     "user object with rest id and no name",
			payload:  `{"user": {"rest_id": "8"}}`,
			expected: collector.ResolvedUser{Id: "8", Name: "Alice"},
		},
		{
			name:     "top level fields",
			payload:  `{"rest_id": 9, "name": "Nine"}`,
			expected: collector.ResolvedUser{Id: "9", Name: "Nine"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			payload, err := decodeObject([]byte(tc.payload))
			require.Nil(t, err)
			user, err := extractUser(payload, "alice")
			require.Nil(t, err)
			assert.Equal(t, tc.expected, *user)
		})
	}

	payload, err := decodeObject([]byte(`{"result": {"data": {}}}`))
	require.Nil(t, err)
	_, err = extractUser(payload, "alice")
	assert.ErrorIs(t, err, clients.ErrUserNotFound)
}

func TestFindTimelineInstructionsAlternateShape(t *testing.T) {
	payload, err := decodeObject([]byte(`{"data": {"user": {"result": {"timeline_v2": {"timeline": {"instructions": [{"type": "TimelineAddEntries", "entries": []}]}}}}}}`))
	require.Nil(t, err)
	assert.Len(t, findTimelineInstructions(payload), 1)
}

func TestTwitter241Ping(t *testing.T) {
	fake := &fakeTwitter241{userStatus: http.StatusOK, userBody: userPayload}
	assert.Nil(t, newTestTwitter241(t, fake, nil).Ping(context.Background()))

	fake.mu.Lock()
	fake.userStatus = http.StatusForbidden
	fake.mu.Unlock()
	assert.NotNil(t, newTestTwitter241(t, fake, nil).Ping(context.Background()))
}
