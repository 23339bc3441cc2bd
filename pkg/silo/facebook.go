package silo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/backfeedhq/backfeed/internal/domain"
	"github.com/backfeedhq/backfeed/internal/logger"
)

const (
	// FacebookSlug identifies the Facebook reactions importer.
	FacebookSlug = "facebook_reactions"

	facebookSiloName     = "facebook.com"
	facebookGraphVersion = "2.2"
	facebookPageSize     = 100
	facebookAgent        = "backfeed-facebook"

	methodLikes    = "likes"
	methodComments = "comments"
)

// facebookConnector implements Connector for the Facebook Graph API.
type facebookConnector struct {
	service      Credentialed
	settings     Settings
	graphVersion string
	pageSize     int
	maxPages     int
	avatarWidth  int
	avatarHeight int
}

// NewFacebookConnector builds the Facebook connector from its registry config.
func NewFacebookConnector(cfg SiloConfig, deps Deps) (Connector, error) {
	if deps.Service == nil {
		return nil, fmt.Errorf("facebook connector requires a keyring service")
	}
	if deps.Settings == nil {
		return nil, fmt.Errorf("facebook connector requires importer settings")
	}

	c := &facebookConnector{
		service:      deps.Service,
		settings:     deps.Settings,
		graphVersion: facebookGraphVersion,
		pageSize:     facebookPageSize,
		maxPages:     DefaultMaxPages,
		avatarWidth:  150,
		avatarHeight: 150,
	}
	if cfg.PageSize > 0 {
		c.pageSize = cfg.PageSize
	}
	if cfg.MaxPages > 0 {
		c.maxPages = cfg.MaxPages
	}
	if cfg.Facebook != nil {
		if v := strings.TrimSpace(cfg.Facebook.GraphVersion); v != "" {
			c.graphVersion = v
		}
		if cfg.Facebook.AvatarWidth > 0 {
			c.avatarWidth = cfg.Facebook.AvatarWidth
		}
		if cfg.Facebook.AvatarHeight > 0 {
			c.avatarHeight = cfg.Facebook.AvatarHeight
		}
	}
	return c, nil
}

func (c *facebookConnector) Slug() string     { return FacebookSlug }
func (c *facebookConnector) SiloName() string { return facebookSiloName }

func (c *facebookConnector) Methods() []domain.MethodBinding {
	return []domain.MethodBinding{
		{Method: methodLikes, Type: "like"},
		{Method: methodComments, Type: "comment"},
	}
}

// MakeRequests fetches every reaction of one method for one work item and
// maps the raw elements into normalized comments.
func (c *facebookConnector) MakeRequests(ctx context.Context, method string, item domain.WorkItem) ([]domain.Reaction, error) {
	if strings.TrimSpace(item.PostID) == "" {
		return nil, ErrMissingPostID
	}
	if strings.TrimSpace(item.SyndicationURL) == "" {
		return nil, ErrMissingSyndicationURL
	}

	remoteID := remoteIDFromURL(item.SyndicationURL)
	if remoteID == "" {
		return nil, fmt.Errorf("%w: %s", ErrRemoteIDNotDerivable, item.SyndicationURL)
	}

	commentType, ok := c.typeFor(method)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}

	token, ok := c.service.AccessToken()
	if !ok {
		return nil, fmt.Errorf("no access token selected for %s", facebookSiloName)
	}

	elements, err := Paginate(ctx, c.service, c.startURL(remoteID, method, token), c.maxPages)
	if err != nil {
		return nil, fmt.Errorf("fetch %s for post %s: %w", method, item.PostID, err)
	}

	// Read once per fetch, not per element.
	approve := c.settings.AutoApprove()

	switch method {
	case methodLikes:
		return c.mapLikes(item.PostID, commentType, approve, elements), nil
	default:
		return c.mapComments(item.PostID, commentType, approve, elements), nil
	}
}

func (c *facebookConnector) typeFor(method string) (string, bool) {
	for _, mb := range c.Methods() {
		if mb.Method == method {
			return mb.Type, true
		}
	}
	return "", false
}

func (c *facebookConnector) startURL(remoteID, method, token string) string {
	params := url.Values{}
	params.Set("access_token", token)
	params.Set("limit", fmt.Sprintf("%d", c.pageSize))
	return fmt.Sprintf("https://graph.facebook.com/v%s/%s/%s?%s", c.graphVersion, remoteID, method, params.Encode())
}

// fbActor is the author sub-record of a like element (the element itself).
type fbActor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// fbComment is one comment element with its author and mention tags.
type fbComment struct {
	ID          string  `json:"id"`
	CreatedTime string  `json:"created_time"`
	Message     string  `json:"message"`
	From        fbActor `json:"from"`
	MessageTags []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"message_tags"`
}

// mapLikes converts like elements. Likes carry no creation time, so the
// comment date stays unset.
func (c *facebookConnector) mapLikes(postID, commentType string, approve bool, elements []json.RawMessage) []domain.Reaction {
	reactions := make([]domain.Reaction, 0, len(elements))
	for _, raw := range elements {
		var actor fbActor
		if err := json.Unmarshal(raw, &actor); err != nil || actor.ID == "" {
			logger.WarnObj("skipping malformed like element", "element", string(raw))
			continue
		}

		authorURL := "https://facebook.com/" + actor.ID
		content := fmt.Sprintf(
			`<a href="%s" rel="nofollow">%s</a> liked this entry on <a href="https://facebook.com" rel="nofollow">facebook</a>`,
			authorURL, actor.Name,
		)

		reactions = append(reactions, domain.Reaction{
			Comment: domain.Comment{
				Author:      actor.Name,
				AuthorURL:   authorURL,
				AuthorEmail: actor.ID + "@" + facebookSiloName,
				PostID:      postID,
				Type:        commentType,
				Content:     content,
				Agent:       facebookAgent,
				Approved:    approve,
			},
			Raw:    raw,
			Avatar: fmt.Sprintf("https://graph.facebook.com/%s/picture", actor.ID),
		})
	}
	return reactions
}

// mapComments converts comment elements, rewriting inline mentions into
// anchors referencing the mentioned identity.
func (c *facebookConnector) mapComments(postID, commentType string, approve bool, elements []json.RawMessage) []domain.Reaction {
	reactions := make([]domain.Reaction, 0, len(elements))
	for _, raw := range elements {
		var elem fbComment
		if err := json.Unmarshal(raw, &elem); err != nil || elem.From.ID == "" {
			logger.WarnObj("skipping malformed comment element", "element", string(raw))
			continue
		}

		message := elem.Message
		for _, tag := range elem.MessageTags {
			if tag.Name == "" {
				continue
			}
			anchor := fmt.Sprintf(`<a href="https://facebook.com/%s">%s</a>`, tag.ID, tag.Name)
			message = strings.ReplaceAll(message, tag.Name, anchor)
		}

		reactions = append(reactions, domain.Reaction{
			Comment: domain.Comment{
				Author:      elem.From.Name,
				AuthorURL:   "https://facebook.com/" + elem.From.ID,
				AuthorEmail: elem.From.ID + "@" + facebookSiloName,
				PostID:      postID,
				Type:        commentType,
				Content:     message,
				Agent:       facebookAgent,
				Approved:    approve,
				Date:        parseGraphTime(elem.CreatedTime),
			},
			Raw: raw,
			Avatar: fmt.Sprintf("https://graph.facebook.com/%s/picture/?width=%d&height=%d",
				elem.From.ID, c.avatarWidth, c.avatarHeight),
		})
	}
	return reactions
}

// remoteIDFromURL takes the final path segment of the syndication URL with
// trailing separators trimmed.
func remoteIDFromURL(raw string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	parts := strings.Split(trimmed, "/")
	return strings.TrimSpace(parts[len(parts)-1])
}

// parseGraphTime parses the Graph API timestamp format, tolerating plain
// RFC3339 as well. Unparseable times leave the date unset.
func parseGraphTime(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05-0700", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	logger.WarnObj("unparseable created_time on comment element", "created_time", raw)
	return nil
}
