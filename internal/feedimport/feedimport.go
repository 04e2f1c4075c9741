// Package feedimport turns RSS and Atom items into draft blog articles.
package feedimport

import (
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/ignite/contentflow/internal/domain"
	"github.com/ignite/contentflow/internal/pkg/logger"
	"github.com/ignite/contentflow/internal/service/content"
)

// DefaultLimit caps the items imported from one feed.
const DefaultLimit = 10

// Creator stores one draft. *content.CreateContentHandler satisfies it.
type Creator interface {
	Handle(ctx context.Context, cmd content.CreateContent) (*domain.Content, error)
}

// ImportFeed requests drafts for the newest items of the feed at URL.
type ImportFeed struct {
	OwnerID string `json:"user_id"`
	URL     string `json:"url"`
	Limit   int    `json:"limit,omitempty"`
}

// Result lists the drafts created and the items skipped.
type Result struct {
	FeedTitle string            `json:"feed_title"`
	Created   []*domain.Content `json:"created"`
	Skipped   int               `json:"skipped"`
}

// Options configures an Importer.
type Options struct {
	DefaultLimit int           // items per feed when a request gives none
	Timeout      time.Duration // whole fetch, redirects included
	AllowedHosts []string      // when set, only these hosts and their subdomains
	AllowPrivate bool          // permit loopback and private addresses
}

// Importer fetches feeds and creates drafts through a Creator.
type Importer struct {
	parser  *gofeed.Parser
	guard   guard
	creator Creator
	limit   int
}

// NewImporter returns an importer. Feeds are fetched with a bounded client
// that refuses internal addresses unless opts.AllowPrivate is set.
func NewImporter(creator Creator, opts Options) *Importer {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultLimit
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	g := guard{allowPrivate: opts.AllowPrivate, hosts: opts.AllowedHosts}
	parser := gofeed.NewParser()
	parser.Client = g.client(opts.Timeout)
	return &Importer{parser: parser, guard: g, creator: creator, limit: opts.DefaultLimit}
}

// Import fetches cmd.URL and creates one blog_article draft per item.
// Items without a title or text are skipped. A publish warning on a
// created draft does not stop the import.
func (im *Importer) Import(ctx context.Context, cmd ImportFeed) (*Result, error) {
	if strings.TrimSpace(cmd.URL) == "" {
		return nil, fmt.Errorf("%w: feed url is required", domain.ErrValidation)
	}
	u, err := im.guard.checkURL(cmd.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	feed, err := im.parser.ParseURLWithContext(u.String(), ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch feed %s: %w", domain.ErrValidation, u.Redacted(), err)
	}

	limit := cmd.Limit
	if limit <= 0 {
		limit = im.limit
	}
	res := &Result{FeedTitle: feed.Title}
	for _, item := range feed.Items {
		if len(res.Created) >= limit {
			break
		}
		title := strings.TrimSpace(item.Title)
		body := itemBody(item)
		if title == "" || body == "" {
			res.Skipped++
			continue
		}
		c, err := im.creator.Handle(ctx, content.CreateContent{
			OwnerID: cmd.OwnerID,
			Title:   title,
			Type:    domain.ContentBlogArticle,
			Body:    body,
		})
		if err != nil && !(c != nil && errors.Is(err, domain.ErrPublish)) {
			return res, err
		}
		res.Created = append(res.Created, c)
	}
	logger.Info("feed imported", "url", cmd.URL, "user_id", cmd.OwnerID,
		"created", len(res.Created), "skipped", res.Skipped)
	return res, nil
}

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	blankPattern = regexp.MustCompile(`\n{3,}`)
)

func stripHTML(s string) string {
	s = strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n", "</p>", "\n\n").Replace(s)
	s = html.UnescapeString(tagPattern.ReplaceAllString(s, ""))
	return strings.TrimSpace(blankPattern.ReplaceAllString(s, "\n\n"))
}

func itemBody(item *gofeed.Item) string {
	text := stripHTML(item.Content)
	if text == "" {
		text = stripHTML(item.Description)
	}
	if text == "" {
		return ""
	}
	if item.Link != "" {
		text += "\n\nSource: " + item.Link
	}
	return text
}
