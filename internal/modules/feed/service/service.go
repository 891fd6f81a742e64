package service

import (
	"context"
	"fmt"
	"net/url"

	"github.com/gorilla/feeds"
	"github.com/reshetovitsme/keyword-monitor/internal/modules/feed/domain"
	historyDomain "github.com/reshetovitsme/keyword-monitor/internal/modules/history/domain"
	"github.com/samber/oops"
)

// HitSource lists recent hits for a keyword, newest first.
type HitSource interface {
	Recent(ctx context.Context, keyword string, limit int) ([]historyDomain.Record, error)
}

// Service handles keyword hit feed generation
type Service struct {
	hits  HitSource
	limit int
}

// New creates a new feed service
func New(hits HitSource) *Service {
	return &Service{
		hits:  hits,
		limit: domain.DefaultItemLimit,
	}
}

// GenerateFeed builds a feed of the latest hits for keyword
func (s *Service) GenerateFeed(ctx context.Context, keyword, baseURL string) (*feeds.Feed, error) {
	records, err := s.hits.Recent(ctx, keyword, s.limit)
	if err != nil {
		return nil, oops.With("keyword", keyword, "context", "failed to get hits").Wrap(err)
	}

	feed := &feeds.Feed{
		Title:       fmt.Sprintf("%s - keyword hits", keyword),
		Link:        &feeds.Link{Href: fmt.Sprintf("%s/feed/%s", baseURL, url.PathEscape(keyword))},
		Description: fmt.Sprintf("Recent messages matching keyword: %s", keyword),
		Author:      &feeds.Author{Name: "keyword-monitor"},
	}
	if len(records) > 0 {
		feed.Updated = records[0].CreatedAt
		feed.Created = records[len(records)-1].CreatedAt
	}

	feed.Items = make([]*feeds.Item, 0, len(records))
	for _, record := range records {
		feed.Items = append(feed.Items, recordToFeedItem(record))
	}
	return feed, nil
}

// Render serializes feed in the requested format and returns its content type.
func Render(feed *feeds.Feed, format domain.Format) (string, string, error) {
	var (
		body        string
		contentType string
		err         error
	)
	switch format {
	case domain.FormatAtom:
		body, err = feed.ToAtom()
		contentType = "application/atom+xml; charset=utf-8"
	case domain.FormatJSON:
		body, err = feed.ToJSON()
		contentType = "application/feed+json; charset=utf-8"
	default:
		body, err = feed.ToRss()
		contentType = "application/rss+xml; charset=utf-8"
	}
	if err != nil {
		return "", "", oops.With("format", format).Wrap(err)
	}
	return body, contentType, nil
}

func recordToFeedItem(record historyDomain.Record) *feeds.Item {
	return &feeds.Item{
		Title:       fmt.Sprintf("#%s in chat %d", record.Keyword, record.ChatID),
		Description: fmt.Sprintf("Sender %d mentioned %s", record.UserID, record.Keyword),
		Author:      &feeds.Author{Name: fmt.Sprintf("%d", record.UserID)},
		Created:     record.CreatedAt,
		Id:          fmt.Sprintf("hit-%d", record.ID),
		Link:        &feeds.Link{Href: record.MsgLink},
	}
}
