package importer

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/backfeedhq/backfeed/internal/domain"
	"github.com/backfeedhq/backfeed/internal/logger"
	"github.com/backfeedhq/backfeed/pkg/httpclient"
)

const maxProfileBodyBytes = 1 << 20 // 1 MiB

// Enricher fills missing author details on a reaction by scraping the OG
// tags of the author's profile page. It is strictly best effort, a failed
// scrape leaves the reaction as fetched.
type Enricher struct {
	client httpclient.Client
}

// NewEnricher constructs an enricher with the provided HTTP client (or default).
func NewEnricher(client httpclient.Client) *Enricher {
	if client == nil {
		client = httpclient.NewRestyClient(10 * time.Second)
	}
	return &Enricher{client: client}
}

// Fill completes the reaction's Author and Avatar from the profile page
// when either is missing and an author URL is known.
func (e *Enricher) Fill(ctx context.Context, r *domain.Reaction) {
	if r == nil || r.AuthorURL == "" {
		return
	}
	if r.Author != "" && r.Avatar != "" {
		return
	}

	name, image, err := e.fetchProfileMeta(ctx, r.AuthorURL)
	if err != nil {
		logger.WarnObj("author profile scrape failed", "profile_scrape_error", map[string]any{
			"url":   r.AuthorURL,
			"error": err.Error(),
		})
		return
	}

	if r.Author == "" && name != "" {
		r.Author = name
	}
	if r.Avatar == "" && image != "" {
		r.Avatar = image
	}
}

func (e *Enricher) fetchProfileMeta(ctx context.Context, url string) (name, image string, err error) {
	resp, err := e.client.Get(ctx, url, nil)
	if err != nil {
		return "", "", err
	}
	if !httpclient.IsSuccess(resp) {
		return "", "", fmt.Errorf("unexpected profile page status %d", resp.StatusCode())
	}

	body := resp.Body()
	if len(body) > maxProfileBodyBytes {
		body = body[:maxProfileBodyBytes]
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", "", err
	}

	extract := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	name = extract(`meta[property="og:title"]`)
	if name == "" {
		name = strings.TrimSpace(doc.Find("title").First().Text())
	}
	image = extract(`meta[property="og:image"]`)
	return name, image, nil
}
