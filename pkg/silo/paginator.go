package silo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/backfeedhq/backfeed/internal/metrics"
)

// DefaultMaxPages caps one pagination walk. A silo that keeps handing out
// continuation URLs past this is treated as misbehaving rather than walked
// forever.
const DefaultMaxPages = 1000

// Paginate walks the paged result set starting at startURL, following the
// server-supplied continuation URL until the server stops paginating. It
// returns every element in server order. Any fetch failure aborts the walk
// and is propagated; no partial result is returned and no retry happens at
// this layer. A continuation URL that fails validation ends the walk as if
// it were absent.
func Paginate(ctx context.Context, req Requester, startURL string, maxPages int) ([]json.RawMessage, error) {
	if startURL == "" {
		return nil, fmt.Errorf("pagination start url is empty")
	}
	if req == nil {
		return nil, fmt.Errorf("requester is nil")
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	var elements []json.RawMessage
	current := startURL

	for page := 1; ; page++ {
		if page > maxPages {
			return nil, fmt.Errorf("%w after %d pages", ErrTooManyPages, maxPages)
		}

		env, err := req.Request(ctx, current)
		if err != nil {
			return nil, err
		}
		metrics.PagesFetched.Inc()

		elements = append(elements, env.Data...)

		next := env.Paging.Next
		if next == "" || !validURL(next) {
			return elements, nil
		}
		current = next
	}
}

func validURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
