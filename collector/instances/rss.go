package collector_instances

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus"

	"github.com/Luismorlan/postwall/collector"
	"github.com/Luismorlan/postwall/collector/clients"
	"github.com/Luismorlan/postwall/utils"
	Logger "github.com/Luismorlan/postwall/utils/log"
)

const (
	RssProviderName = "rss"

	// Nitter prefixes reposts in item titles with "RT by @handle:".
	rssRepostPrefix = "RT by "
)

var statusIdRegex = regexp.MustCompile(`/status(?:es)?/(\d+)`)

// RssProvider reads a per handle RSS feed at <baseUrl>/<handle>/rss, the
// layout nitter instances serve.
type RssProvider struct {
	client  *clients.HttpClient
	baseUrl string
	now     func() time.Time
}

func NewRssProvider(client *clients.HttpClient, baseUrl string) *RssProvider {
	return &RssProvider{client: client, baseUrl: strings.TrimRight(baseUrl, "/"), now: time.Now}
}

func (p *RssProvider) Name() string {
	return RssProviderName
}

// The handle is a single path segment, reserved characters are escaped.
func (p *RssProvider) ConstructUrl(handle string) string {
	return fmt.Sprintf("%s/%s/rss", p.baseUrl, url.PathEscape(handle))
}

func (p *RssProvider) FetchPosts(ctx context.Context, handle string, max int) []collector.NormalizedPost {
	logger := Logger.Log.WithFields(logrus.Fields{"provider": p.Name(), "handle": handle})
	if max <= 0 {
		return nil
	}
	body, err := p.client.Get(ctx, p.ConstructUrl(handle))
	if err != nil {
		logIgnoredFetchError(logger, "fail to fetch feed", err)
		return nil
	}
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		logger.WithError(err).Warn("fail to parse feed")
		return nil
	}

	authorName := feedAuthorName(feed, handle)
	posts := []collector.NormalizedPost{}
	for _, item := range feed.Items {
		post := p.convertItem(item, handle, authorName)
		if post == nil {
			continue
		}
		posts = append(posts, *post)
		if len(posts) >= max {
			break
		}
	}
	logger.Infof("fetched %d posts", len(posts))
	return posts
}

func (p *RssProvider) convertItem(item *gofeed.Item, handle string, authorName string) *collector.NormalizedPost {
	if item == nil {
		return nil
	}
	text := strings.TrimSpace(item.Title)
	if text == "" {
		text = strings.TrimSpace(item.Description)
	}
	if strings.HasPrefix(text, rssRepostPrefix) || collector.IsRepost(text) {
		return nil
	}
	postId := rssPostId(item)
	if postId == "" {
		return nil
	}

	var createdAt time.Time
	if item.PublishedParsed != nil {
		createdAt = item.PublishedParsed.UTC()
	} else {
		createdAt = collector.ParseCreatedAt(item.Published, p.now)
	}

	return &collector.NormalizedPost{
		PostId:       postId,
		Text:         text,
		AuthorHandle: handle,
		AuthorName:   authorName,
		CreatedAt:    createdAt,
		MediaUrl:     rssMediaUrl(item),
		Url:          collector.PostUrl(handle, postId),
	}
}

// The numeric status id is taken from the link, then the guid.
func rssPostId(item *gofeed.Item) string {
	for _, candidate := range []string{item.Link, item.GUID} {
		if m := statusIdRegex.FindStringSubmatch(candidate); m != nil {
			return m[1]
		}
	}
	return ""
}

func rssMediaUrl(item *gofeed.Item) *string {
	if item.Image != nil {
		if u := utils.StringPtr(item.Image.URL); u != nil {
			return u
		}
	}
	for _, enclosure := range item.Enclosures {
		if enclosure != nil && strings.HasPrefix(enclosure.Type, "image/") {
			if u := utils.StringPtr(enclosure.URL); u != nil {
				return u
			}
		}
	}
	return nil
}

// Feed titles look like "Display Name / @handle".
func feedAuthorName(feed *gofeed.Feed, handle string) string {
	if name := strings.TrimSpace(strings.Split(feed.Title, " / ")[0]); name != "" && !strings.HasPrefix(name, "@") {
		return name
	}
	return collector.TitleCase(handle)
}
