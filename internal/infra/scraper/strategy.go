package scraper

import (
	"fmt"
	"strings"

	"post-alert/internal/domain/entity"

	"github.com/PuerkitoBio/goquery"
)

const (
	// postSelector matches one post container on a blog listing page.
	postSelector = "div[id^='post_']"

	// listBodySelector matches the list container, which is present even
	// when the blog has no posts.
	listBodySelector = "#postListBody"
)

// Strategy extracts raw post records from a rendered listing page.
type Strategy interface {
	Kind() entity.StrategyKind

	// ReadySelector matches once at least one post has rendered.
	ReadySelector() string

	// Extract returns the post records found in doc, in page order.
	Extract(doc *goquery.Document) []entity.RawRecord
}

// waitCondition is the render wait for listings read by s.
func waitCondition(s Strategy) WaitCondition {
	return WaitCondition{Ready: s.ReadySelector(), Empty: listBodySelector}
}

// NewStrategy returns the strategy implementing kind.
func NewStrategy(kind entity.StrategyKind) (Strategy, error) {
	switch kind {
	case entity.StrategyDefault, "":
		return DefaultStrategy{}, nil
	case entity.StrategyAlternate:
		return AlternateStrategy{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, kind)
	}
}

// DefaultStrategy reads the post id from the container id and the title from
// the first editor paragraph, falling back to the first link.
type DefaultStrategy struct{}

func (DefaultStrategy) Kind() entity.StrategyKind { return entity.StrategyDefault }

func (DefaultStrategy) ReadySelector() string { return postSelector }

func (DefaultStrategy) Extract(doc *goquery.Document) []entity.RawRecord {
	return extractPosts(doc, "p.se-text-paragraph", "a")
}

// AlternateStrategy is used by blogs whose listing shows the post title block
// above the body preview. It prefers the title block, then the default chain.
type AlternateStrategy struct{}

func (AlternateStrategy) Kind() entity.StrategyKind { return entity.StrategyAlternate }

func (AlternateStrategy) ReadySelector() string { return postSelector }

func (AlternateStrategy) Extract(doc *goquery.Document) []entity.RawRecord {
	return extractPosts(doc, ".se-title-text", ".pcol1", "p.se-text-paragraph", "a")
}

// extractPosts walks every post container. The title comes from the first
// selector in titleChain that matches inside the container.
func extractPosts(doc *goquery.Document, titleChain ...string) []entity.RawRecord {
	var records []entity.RawRecord
	doc.Find(postSelector).Each(func(_ int, post *goquery.Selection) {
		id, _ := post.Attr("id")
		records = append(records, entity.RawRecord{
			ID:    id,
			Title: firstText(post, titleChain),
		})
	})
	return records
}

func firstText(sel *goquery.Selection, chain []string) string {
	for _, css := range chain {
		if found := sel.Find(css).First(); found.Length() > 0 {
			return strings.TrimSpace(found.Text())
		}
	}
	return ""
}
