package collector_instances

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Luismorlan/postwall/collector"
	Logger "github.com/Luismorlan/postwall/utils/log"
)

const SyntheticProviderName = "synthetic"

var syntheticTexts = []string{
	"Just shipped a major update to our platform! 🚀 Excited to see what you all build with it.",
	"Thinking about the future of AI and how it will transform software development.",
	"Coffee + Code = Productivity ☕💻 #DevLife",
	"Pro tip: Always write tests before you think you need them. Future you will thank present you.",
	"The best code is no code at all. Sometimes the solution is simpler than you think.",
	"Debugging is like being a detective in a crime movie where you're also the murderer.",
	"Just discovered an amazing new library that solves a problem I've been wrestling with for weeks!",
	"Remember: premature optimization is the root of all evil. Make it work, then make it fast.",
	"Collaboration > Competition. The best projects come from teams that support each other.",
	"Taking a break from coding to recharge. Sometimes the best solutions come when you step away.",
	"Open source is amazing. Shoutout to all the maintainers who make our lives easier! 🙏",
	"Learning a new programming language is like learning to think in a different way.",
	"Code review isn't about finding mistakes, it's about sharing knowledge and improving together.",
	"The documentation you write today saves hours of confusion tomorrow.",
	"Refactoring old code and finding comments from past me. It's like time travel! 😄",
}

// SyntheticProvider generates clearly labeled fake posts for offline and demo
// operation. Every id carries the "mock_" prefix. It is only ever selected by
// configuration, never as a fallback for a failed real fetch.
type SyntheticProvider struct {
	now func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewSyntheticProvider() *SyntheticProvider {
	return &SyntheticProvider{
		now: time.Now,
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *SyntheticProvider) Name() string {
	return SyntheticProviderName
}

// Each item i is dated i*2 hours before now, minus a random minute offset.
func (p *SyntheticProvider) FetchPosts(ctx context.Context, handle string, max int) []collector.NormalizedPost {
	p.mu.Lock()
	defer p.mu.Unlock()

	base := p.now().UTC()
	posts := make([]collector.NormalizedPost, 0, max)
	for i := 0; i < max; i++ {
		postId := fmt.Sprintf("mock_%s_%d_%d_%d", handle, base.Unix(), i, 1000+p.rnd.Intn(9000))
		offset := time.Duration(i*2)*time.Hour + time.Duration(p.rnd.Intn(60))*time.Minute
		posts = append(posts, collector.NormalizedPost{
			PostId:       postId,
			Text:         syntheticTexts[p.rnd.Intn(len(syntheticTexts))],
			AuthorHandle: handle,
			AuthorName:   collector.TitleCase(handle),
			CreatedAt:    base.Add(-offset),
			Url:          collector.PostUrl(handle, postId),
		})
	}
	Logger.Log.WithFields(logrus.Fields{"provider": p.Name(), "handle": handle}).
		Debugf("generated %d synthetic posts", len(posts))
	return posts
}
