package collector

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/araddon/dateparse"
)

const (
	// Textual layout of creation timestamps in twitter timeline payloads,
	// e.g. "Wed Oct 10 20:19:24 +0000 2018".
	ProviderDateLayout = "Mon Jan 02 15:04:05 -0700 2006"

	RepostPrefix = "RT @"
)

// ParseCreatedAt parses a provider timestamp. The fixed provider layout is
// tried first, then any format dateparse understands (RSS feeds, ISO 8601).
// Unparsable input falls back to now. The result is always UTC.
func ParseCreatedAt(raw string, now func() time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw != "" {
		if t, err := time.Parse(ProviderDateLayout, raw); err == nil {
			return t.UTC()
		}
		if t, err := dateparse.ParseAny(raw); err == nil {
			return t.UTC()
		}
	}
	return now().UTC()
}

func IsRepost(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), RepostPrefix)
}

// PostUrl builds the canonical link of a post.
func PostUrl(handle string, postId string) string {
	return fmt.Sprintf("https://twitter.com/%s/status/%s", handle, postId)
}

// NormalizeHandle trims whitespace and the leading "@".
func NormalizeHandle(handle string) string {
	return strings.TrimPrefix(strings.TrimSpace(handle), "@")
}

// TitleCase upper-cases every letter that follows a non-letter and lower-cases
// the rest, keeping separators as they are: "elon_musk" becomes "Elon_Musk".
func TitleCase(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		isLetter := unicode.IsLetter(r)
		switch {
		case isLetter && !prevLetter:
			sb.WriteRune(unicode.ToUpper(r))
		case isLetter:
			sb.WriteRune(unicode.ToLower(r))
		default:
			sb.WriteRune(r)
		}
		prevLetter = isLetter
	}
	return sb.String()
}
