package collector_instances

import (
	"context"
	"strings"
	"time"

	twitterscraper "github.com/n0madic/twitter-scraper"
	"github.com/sirupsen/logrus"

	"github.com/Luismorlan/postwall/collector"
	"github.com/Luismorlan/postwall/utils"
	Logger "github.com/Luismorlan/postwall/utils/log"
)

const ScraperProviderName = "scraper"

// tweetSource is the subset of *twitterscraper.Scraper the provider needs.
type tweetSource interface {
	FetchTweets(user string, maxTweetsNbr int, cursor string) ([]*twitterscraper.Tweet, string, error)
	GetProfile(username string) (twitterscraper.Profile, error)
}

// ScraperProvider reads public timelines through twitter-scraper and needs no
// credential.
type ScraperProvider struct {
	source tweetSource
	cache  collector.UserCache
	now    func() time.Time
}

func NewScraperProvider(cache collector.UserCache) *ScraperProvider {
	return newScraperProvider(twitterscraper.New(), cache)
}

func newScraperProvider(source tweetSource, cache collector.UserCache) *ScraperProvider {
	return &ScraperProvider{source: source, cache: cache, now: time.Now}
}

func (p *ScraperProvider) Name() string {
	return ScraperProviderName
}

type scrapeResult struct {
	tweets []*twitterscraper.Tweet
	name   string
	err    error
}

// The scraper has no context support, so the call runs on its own goroutine
// and is abandoned when ctx expires.
func (p *ScraperProvider) FetchPosts(ctx context.Context, handle string, max int) []collector.NormalizedPost {
	logger := Logger.Log.WithFields(logrus.Fields{"provider": p.Name(), "handle": handle})
	if max <= 0 {
		return nil
	}

	done := make(chan scrapeResult, 1)
	go func() {
		tweets, _, err := p.source.FetchTweets(handle, max, "")
		if err != nil {
			done <- scrapeResult{err: err}
			return
		}
		done <- scrapeResult{tweets: tweets, name: p.authorName(ctx, handle)}
	}()

	var res scrapeResult
	select {
	case <-ctx.Done():
		logger.WithError(ctx.Err()).Warn("scraper timed out")
		return nil
	case res = <-done:
	}
	if res.err != nil {
		logger.WithError(res.err).Error("fail to scrape timeline")
		return nil
	}

	posts := []collector.NormalizedPost{}
	for _, tweet := range res.tweets {
		if tweet == nil || tweet.ID == "" {
			continue
		}
		if tweet.IsRetweet || collector.IsRepost(tweet.Text) {
			continue
		}
		createdAt := p.now().UTC()
		if tweet.Timestamp > 0 {
			createdAt = time.Unix(tweet.Timestamp, 0).UTC()
		}
		var mediaUrl *string
		if len(tweet.Photos) > 0 {
			mediaUrl = utils.StringPtr(tweet.Photos[0])
		}
		posts = append(posts, collector.NormalizedPost{
			PostId:       tweet.ID,
			Text:         strings.TrimSpace(tweet.Text),
			AuthorHandle: handle,
			AuthorName:   res.name,
			CreatedAt:    createdAt,
			MediaUrl:     mediaUrl,
			Url:          collector.PostUrl(handle, tweet.ID),
		})
		if len(posts) >= max {
			break
		}
	}
	logger.Infof("fetched %d posts", len(posts))
	return posts
}

// Profile lookups are slow, resolved names are cached. A failed lookup falls
// back to the title-cased handle.
func (p *ScraperProvider) authorName(ctx context.Context, handle string) string {
	if p.cache != nil {
		if user, ok := p.cache.Get(ctx, handle); ok && user.Name != "" {
			return user.Name
		}
	}
	profile, err := p.source.GetProfile(handle)
	if err != nil || profile.Name == "" {
		return collector.TitleCase(handle)
	}
	if p.cache != nil {
		p.cache.Set(ctx, handle, collector.ResolvedUser{Id: profile.UserID, Name: profile.Name})
	}
	return profile.Name
}
