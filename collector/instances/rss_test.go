package collector_instances

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/Luismorlan/postwall/collector"
	"github.com/Luismorlan/postwall/collector/clients"
)

const nitterFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <channel>
    <title>Alice Liddell / @alice</title>
    <link>https://nitter.example/alice</link>
    <description>Twitter feed for: @alice</description>
    <item>
      <title>hello wonderland</title>
      <dc:creator>@alice</dc:creator>
      <description>hello wonderland</description>
      <pubDate>Wed, 10 Oct 2018 20:19:24 GMT</pubDate>
      <guid>https://nitter.example/alice/status/2001#m</guid>
      <link>https://nitter.example/alice/status/2001#m</link>
      <enclosure url="https://nitter.example/pic/a.jpg" type="image/jpeg" length="1"/>
    </item>
    <item>
      <title>RT by @alice: someone else</title>
      <pubDate>Wed, 10 Oct 2018 20:00:00 GMT</pubDate>
      <link>https://nitter.example/bob/status/2002#m</link>
    </item>
    <item>
      <title>no id here</title>
      <link>https://nitter.example/alice</link>
    </item>
    <item>
      <title>older post</title>
      <pubDate>Tue, 09 Oct 2018 10:00:00 GMT</pubDate>
      <link>https://nitter.example/alice/status/2000#m</link>
    </item>
  </channel>
</rss>`

func newTestRssProvider(t *testing.T, status int, body string) *RssProvider {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/alice/rss" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewRssProvider(clients.NewHttpClient(nil, nil, time.Second), srv.URL+"/")
}

func TestRssProvider(t *testing.T) {
	p := newTestRssProvider(t, http.StatusOK, nitterFeed)
	posts := p.FetchPosts(context.Background(), "alice", 10)

	media := "https://nitter.example/pic/a.jpg"
	expected := []collector.NormalizedPost{
		{
			PostId:       "2001",
			Text:         "hello wonderland",
			AuthorHandle: "alice",
			AuthorName:   "Alice Liddell",
			CreatedAt:    time.Date(2018, 10, 10, 20, 19, 24, 0, time.UTC),
			MediaUrl:     &media,
			Url:          "https://twitter.com/alice/status/2001",
		},
		{
			PostId:       "2000",
			Text:         "older post",
			AuthorHandle: "alice",
			AuthorName:   "Alice Liddell",
			CreatedAt:    time.Date(2018, 10, 9, 10, 0, 0, 0, time.UTC),
			Url:          "https://twitter.com/alice/status/2000",
		},
	}
	if diff := cmp.Diff(expected, posts); diff != "" {
		t.Errorf("unexpected posts (-want +got):\n%s", diff)
	}
	assert.Len(t, p.FetchPosts(context.Background(), "alice", 1), 1)
}

func TestRssProviderFailures(t *testing.T) {
	assert.Empty(t, newTestRssProvider(t, http.StatusOK, "not xml at all").FetchPosts(context.Background(), "alice", 10))
	assert.Empty(t, newTestRssProvider(t, http.StatusBadGateway, "").FetchPosts(context.Background(), "alice", 10))
	assert.Empty(t, newTestRssProvider(t, http.StatusOK, nitterFeed).FetchPosts(context.Background(), "bob", 10))
}

func TestRssProviderConstructUrl(t *testing.T) {
	p := NewRssProvider(clients.NewDefaultHttpClient(), "https://nitter.example/")
	assert.Equal(t, "https://nitter.example/alice/rss", p.ConstructUrl("alice"))
	assert.Equal(t, "https://nitter.example/a%2Fb%3Fc=d/rss", p.ConstructUrl("a/b?c=d"))
	assert.Equal(t, "https://nitter.example/a%20b/rss", p.ConstructUrl("a b"))
}

func TestRssProviderEscapesHandleInRequest(t *testing.T) {
	requests := make(chan *http.Request, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests <- r
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)
	p := NewRssProvider(clients.NewHttpClient(nil, nil, time.Second), srv.URL)

	assert.Empty(t, p.FetchPosts(context.Background(), "a/b?c=d", 10))
	r := <-requests
	assert.Equal(t, "/a%2Fb%3Fc=d/rss", r.URL.EscapedPath())
	assert.Equal(t, "", r.URL.RawQuery)
}
