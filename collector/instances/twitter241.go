package collector_instances

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Luismorlan/postwall/collector"
	"github.com/Luismorlan/postwall/collector/clients"
	"github.com/Luismorlan/postwall/utils"
	Logger "github.com/Luismorlan/postwall/utils/log"
)

const (
	Twitter241ProviderName = "twitter241"

	// Handle used by Ping, it is guaranteed to exist.
	pingHandle = "twitter"

	timelineAddEntries = "TimelineAddEntries"
	tweetEntryMarker   = "tweet-"
)

// Twitter241Provider fetches timelines from the twitter241 RapidAPI endpoint:
// a user lookup resolves the handle to a user id, then the user timeline is
// fetched and normalized.
type Twitter241Provider struct {
	client *clients.RapidApiClient
	cache  collector.UserCache
	now    func() time.Time
}

// cache is optional.
func NewTwitter241Provider(client *clients.RapidApiClient, cache collector.UserCache) *Twitter241Provider {
	return &Twitter241Provider{client: client, cache: cache, now: time.Now}
}

func (p *Twitter241Provider) Name() string {
	return Twitter241ProviderName
}

// Ping resolves a well known account to verify credential and connectivity.
func (p *Twitter241Provider) Ping(ctx context.Context) error {
	_, err := p.client.GetUser(ctx, pingHandle)
	return err
}

func (p *Twitter241Provider) FetchPosts(ctx context.Context, handle string, max int) []collector.NormalizedPost {
	logger := Logger.Log.WithFields(logrus.Fields{"provider": p.Name(), "handle": handle})
	if max <= 0 {
		return nil
	}

	user, err := p.resolveUser(ctx, handle)
	if err != nil {
		logIgnoredFetchError(logger, "fail to resolve user", err)
		return nil
	}

	raw, err := p.client.GetUserTweets(ctx, user.Id, max)
	if err != nil {
		if clients.IsNotFound(err) && p.cache != nil {
			// The cached id may belong to a deleted or renamed account.
			p.cache.Evict(ctx, handle)
		}
		logIgnoredFetchError(logger, "fail to fetch timeline", err)
		return nil
	}

	payload, err := decodeObject(raw)
	if err != nil {
		logger.WithError(err).Warn("timeline payload is not a json object")
		return nil
	}
	instructions := findTimelineInstructions(payload)
	if instructions == nil {
		logger.Warn("no timeline instructions found in payload")
		return nil
	}

	posts := p.parseInstructions(logger, instructions, handle, user.Name, max)
	logger.Infof("fetched %d posts", len(posts))
	return posts
}

func (p *Twitter241Provider) resolveUser(ctx context.Context, handle string) (*collector.ResolvedUser, error) {
	if p.cache != nil {
		if user, ok := p.cache.Get(ctx, handle); ok {
			return user, nil
		}
	}
	raw, err := p.client.GetUser(ctx, handle)
	if err != nil {
		return nil, err
	}
	payload, err := decodeObject(raw)
	if err != nil {
		return nil, errors.Wrap(err, "user payload is not a json object")
	}
	user, err := extractUser(payload, handle)
	if err != nil {
		return nil, err
	}
	if p.cache != nil {
		p.cache.Set(ctx, handle, *user)
	}
	return user, nil
}

// A rate limit or a missing account is an expected outcome, anything else is
// logged louder.
func logIgnoredFetchError(logger *logrus.Entry, msg string, err error) {
	switch {
	case errors.Is(err, clients.ErrRateLimited), errors.Is(err, clients.ErrUserNotFound):
		logger.WithError(err).Warn(msg)
	default:
		logger.WithError(err).Error(msg)
	}
}

// userShapeMatcher extracts a user from one known variant of the user lookup
// payload. ok is false when the variant does not apply.
type userShapeMatcher func(payload jsonObject, handle string) (user collector.ResolvedUser, ok bool)

// Probed in order, the first match yielding a user id wins.
var userShapeMatchers = []userShapeMatcher{
	// {"result": {"data": {"user": {"result": {"rest_id", "legacy": {"name"}}}}}}
	func(payload jsonObject, handle string) (collector.ResolvedUser, bool) {
		result := lookupObject(payload, "result", "data", "user", "result")
		if result == nil {
			return collector.ResolvedUser{}, false
		}
		return collector.ResolvedUser{
			Id:   firstString(result, "rest_id", "id_str"),
			Name: lookupString(lookupObject(result, "legacy"), "name"),
		}, true
	},
	// {"user": {"id_str" | "rest_id", "name"}}
	func(payload jsonObject, handle string) (collector.ResolvedUser, bool) {
		user := lookupObject(payload, "user")
		if user == nil {
			return collector.ResolvedUser{}, false
		}
		return collector.ResolvedUser{
			Id:   firstString(user, "id_str", "rest_id"),
			Name: lookupString(user, "name"),
		}, true
	},
	// {"id_str" | "rest_id", "name"}
	func(payload jsonObject, handle string) (collector.ResolvedUser, bool) {
		id := firstString(payload, "id_str", "rest_id")
		if id == "" {
			return collector.ResolvedUser{}, false
		}
		return collector.ResolvedUser{Id: id, Name: lookupString(payload, "name")}, true
	},
}

func extractUser(payload jsonObject, handle string) (*collector.ResolvedUser, error) {
	// The provider answers 200 with an empty data object for unknown accounts.
	if result := lookupObject(payload, "result"); result != nil {
		if data, present := result["data"]; present {
			if obj, ok := data.(jsonObject); !ok || len(obj) == 0 {
				return nil, clients.ErrUserNotFound
			}
		}
	}
	for _, match := range userShapeMatchers {
		user, ok := match(payload, handle)
		if !ok || user.Id == "" {
			continue
		}
		if user.Name == "" {
			user.Name = collector.TitleCase(handle)
		}
		return &user, nil
	}
	return nil, errors.New("could not extract user id from payload")
}

// Known locations of the timeline instruction list, most common first.
var timelineInstructionPaths = [][]string{
	{"result", "timeline", "instructions"},
	{"data", "user", "result", "timeline_v2", "timeline", "instructions"},
	{"data", "user", "result", "timeline", "timeline", "instructions"},
}

func findTimelineInstructions(payload jsonObject) []interface{} {
	for _, path := range timelineInstructionPaths {
		if instructions := lookupArray(payload, path...); len(instructions) > 0 {
			return instructions
		}
	}
	return nil
}

func (p *Twitter241Provider) parseInstructions(
	logger *logrus.Entry, instructions []interface{}, handle string, authorName string, max int) []collector.NormalizedPost {
	posts := []collector.NormalizedPost{}
	for _, raw := range instructions {
		instruction, ok := raw.(jsonObject)
		if !ok || lookupString(instruction, "type") != timelineAddEntries {
			continue
		}
		for _, rawEntry := range lookupArray(instruction, "entries") {
			entry, ok := rawEntry.(jsonObject)
			if !ok || !strings.Contains(lookupString(entry, "entryId"), tweetEntryMarker) {
				continue
			}
			post, err := p.parseEntry(entry, handle, authorName)
			if err != nil {
				logger.WithError(err).WithField("entry_id", lookupString(entry, "entryId")).Warn("skip unparsable entry")
				continue
			}
			if post == nil {
				continue
			}
			posts = append(posts, *post)
			if len(posts) >= max {
				return posts
			}
		}
	}
	return posts
}

// parseEntry returns nil without error for entries that are valid but not
// kept, such as reposts or tombstones.
func (p *Twitter241Provider) parseEntry(entry jsonObject, handle string, authorName string) (*collector.NormalizedPost, error) {
	result := lookupObject(entry, "content", "itemContent", "tweet_results", "result")
	if result == nil {
		return nil, errors.New("entry has no tweet result")
	}
	switch lookupString(result, "__typename") {
	case "Tweet":
	case "TweetWithVisibilityResults":
		result = lookupObject(result, "tweet")
		if result == nil {
			return nil, errors.New("visibility wrapper has no tweet")
		}
	default:
		return nil, nil
	}

	legacy := lookupObject(result, "legacy")
	postId := lookupString(legacy, "id_str")
	if postId == "" {
		postId = lookupString(result, "rest_id")
	}
	if postId == "" {
		return nil, errors.New("tweet has no id")
	}
	text := firstString(legacy, "full_text", "text")
	if collector.IsRepost(text) {
		return nil, nil
	}

	return &collector.NormalizedPost{
		PostId:       postId,
		Text:         text,
		AuthorHandle: handle,
		AuthorName:   authorName,
		CreatedAt:    collector.ParseCreatedAt(lookupString(legacy, "created_at"), p.now),
		MediaUrl:     extractMediaUrl(legacy),
		Url:          collector.PostUrl(handle, postId),
	}, nil
}

func extractMediaUrl(legacy jsonObject) *string {
	for _, path := range [][]string{{"extended_entities", "media"}, {"entities", "media"}} {
		for _, raw := range lookupArray(legacy, path...) {
			media, ok := raw.(jsonObject)
			if !ok {
				continue
			}
			if u := utils.StringPtr(firstString(media, "media_url_https", "media_url")); u != nil {
				return u
			}
		}
	}
	return nil
}
