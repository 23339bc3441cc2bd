package silo

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/backfeedhq/backfeed/internal/domain"
	"github.com/backfeedhq/backfeed/pkg/keyring"
)

// fakeService implements Credentialed over a mockRequester.
type fakeService struct {
	mockRequester
	token string
}

func (f *fakeService) AccessToken() (string, bool) {
	return f.token, f.token != ""
}

type fixedSettings struct {
	approve bool
}

func (s fixedSettings) AutoApprove() bool { return s.approve }

func newTestConnector(t *testing.T, svc Credentialed, approve bool) Connector {
	t.Helper()
	conn, err := NewFacebookConnector(SiloConfig{Slug: FacebookSlug}, Deps{
		Service:  svc,
		Settings: fixedSettings{approve: approve},
	})
	if err != nil {
		t.Fatalf("NewFacebookConnector: %v", err)
	}
	return conn
}

func likesURL(remoteID string) string {
	return "https://graph.facebook.com/v2.2/" + remoteID + "/likes?access_token=tok&limit=100"
}

func commentsURL(remoteID string) string {
	return "https://graph.facebook.com/v2.2/" + remoteID + "/comments?access_token=tok&limit=100"
}

func TestFacebookLikesMapping(t *testing.T) {
	svc := &fakeService{token: "tok"}
	env := &keyring.Envelope{}
	env.Data = append(env.Data, []byte(`{"id":"999","name":"Ann"}`))
	svc.pages = map[string]*keyring.Envelope{likesURL("12345"): env}

	conn := newTestConnector(t, svc, true)
	reactions, err := conn.MakeRequests(context.Background(), "likes", domain.WorkItem{
		PostID:         "42",
		SyndicationURL: "https://facebook.com/p/12345/",
	})
	if err != nil {
		t.Fatalf("MakeRequests: %v", err)
	}
	if len(reactions) != 1 {
		t.Fatalf("expected 1 reaction, got %d", len(reactions))
	}

	c := reactions[0].Comment
	if c.AuthorEmail != "999@facebook.com" {
		t.Errorf("AuthorEmail = %q", c.AuthorEmail)
	}
	if c.Author != "Ann" {
		t.Errorf("Author = %q", c.Author)
	}
	if c.AuthorURL != "https://facebook.com/999" {
		t.Errorf("AuthorURL = %q", c.AuthorURL)
	}
	if c.PostID != "42" {
		t.Errorf("PostID = %q", c.PostID)
	}
	if c.Type != "like" {
		t.Errorf("Type = %q", c.Type)
	}
	if !c.Approved {
		t.Errorf("Approved should copy the auto-approve setting")
	}
	if c.Date != nil {
		t.Errorf("likes must not carry a timestamp, got %v", c.Date)
	}
	if reactions[0].Avatar != "https://graph.facebook.com/999/picture" {
		t.Errorf("Avatar = %q", reactions[0].Avatar)
	}
	if !strings.Contains(c.Content, "liked this entry") {
		t.Errorf("Content = %q", c.Content)
	}
}

func TestFacebookCommentsMappingRewritesMentions(t *testing.T) {
	svc := &fakeService{token: "tok"}
	env := &keyring.Envelope{}
	env.Data = append(env.Data, []byte(`{
		"id": "c1",
		"created_time": "2015-01-27T10:00:00+0000",
		"message": "nice one Bob Example!",
		"from": {"id": "777", "name": "Carol"},
		"message_tags": [{"id": "888", "name": "Bob Example"}]
	}`))
	svc.pages = map[string]*keyring.Envelope{commentsURL("12345"): env}

	conn := newTestConnector(t, svc, false)
	reactions, err := conn.MakeRequests(context.Background(), "comments", domain.WorkItem{
		PostID:         "42",
		SyndicationURL: "https://facebook.com/p/12345",
	})
	if err != nil {
		t.Fatalf("MakeRequests: %v", err)
	}
	if len(reactions) != 1 {
		t.Fatalf("expected 1 reaction, got %d", len(reactions))
	}

	c := reactions[0].Comment
	if c.Type != "comment" {
		t.Errorf("Type = %q", c.Type)
	}
	if c.AuthorEmail != "777@facebook.com" {
		t.Errorf("AuthorEmail = %q", c.AuthorEmail)
	}
	if c.Approved {
		t.Errorf("Approved should copy the auto-approve setting")
	}
	if c.Date == nil {
		t.Fatalf("comments must carry the creation time")
	}
	if got := c.Date.UTC().Format("2006-01-02 15:04"); got != "2015-01-27 10:00" {
		t.Errorf("Date = %s", got)
	}
	want := `nice one <a href="https://facebook.com/888">Bob Example</a>!`
	if c.Content != want {
		t.Errorf("Content = %q, want %q", c.Content, want)
	}
}

func TestFacebookRequestValidation(t *testing.T) {
	conn := newTestConnector(t, &fakeService{token: "tok"}, false)

	cases := []struct {
		name string
		item domain.WorkItem
		want error
	}{
		{"missing post id", domain.WorkItem{SyndicationURL: "https://facebook.com/p/1"}, ErrMissingPostID},
		{"missing syndication url", domain.WorkItem{PostID: "42"}, ErrMissingSyndicationURL},
		{"underivable remote id", domain.WorkItem{PostID: "42", SyndicationURL: "///"}, ErrRemoteIDNotDerivable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := conn.MakeRequests(context.Background(), "likes", tc.item)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestFacebookRejectsUnknownMethod(t *testing.T) {
	conn := newTestConnector(t, &fakeService{token: "tok"}, false)
	_, err := conn.MakeRequests(context.Background(), "shares", domain.WorkItem{
		PostID:         "42",
		SyndicationURL: "https://facebook.com/p/12345",
	})
	if !errors.Is(err, ErrUnknownMethod) {
		t.Fatalf("expected ErrUnknownMethod, got %v", err)
	}
}

func TestFacebookRequiresToken(t *testing.T) {
	conn := newTestConnector(t, &fakeService{}, false)
	_, err := conn.MakeRequests(context.Background(), "likes", domain.WorkItem{
		PostID:         "42",
		SyndicationURL: "https://facebook.com/p/12345",
	})
	if err == nil {
		t.Fatalf("expected error without an access token")
	}
}

func TestFacebookSkipsMalformedElements(t *testing.T) {
	svc := &fakeService{token: "tok"}
	env := &keyring.Envelope{}
	env.Data = append(env.Data,
		[]byte(`{"name":"no id"}`),
		[]byte(`{"id":"1","name":"Ok"}`),
	)
	svc.pages = map[string]*keyring.Envelope{likesURL("9"): env}

	conn := newTestConnector(t, svc, false)
	reactions, err := conn.MakeRequests(context.Background(), "likes", domain.WorkItem{
		PostID:         "42",
		SyndicationURL: "https://facebook.com/9",
	})
	if err != nil {
		t.Fatalf("MakeRequests: %v", err)
	}
	if len(reactions) != 1 {
		t.Fatalf("expected malformed element to be skipped, got %d reactions", len(reactions))
	}
}

func TestRemoteIDFromURL(t *testing.T) {
	cases := map[string]string{
		"https://facebook.com/p/12345/": "12345",
		"https://facebook.com/p/12345":  "12345",
		"https://facebook.com/9":        "9",
		"///":                           "",
		"":                              "",
	}
	for in, want := range cases {
		if got := remoteIDFromURL(in); got != want {
			t.Errorf("remoteIDFromURL(%q) = %q, want %q", in, got, want)
		}
	}
}
