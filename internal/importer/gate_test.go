package importer

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/backfeedhq/backfeed/internal/domain"
)

// fakeContent serves canned content refs and metadata.
type fakeContent struct {
	refs []domain.ContentRef
	meta map[string]map[string]string
}

func (f *fakeContent) ListPublished(context.Context, string) ([]domain.ContentRef, error) {
	return f.refs, nil
}

func (f *fakeContent) Meta(_ context.Context, postID, key string) (string, error) {
	return f.meta[postID][key], nil
}

func (f *fakeContent) Get(_ context.Context, postID string) (domain.ContentRef, error) {
	for _, ref := range f.refs {
		if ref.ID == postID {
			return ref, nil
		}
	}
	return domain.ContentRef{ID: postID}, nil
}

// fakeComments records inserts and serves canned dedup matches.
type fakeComments struct {
	existing  []domain.Comment
	inserted  []domain.Comment
	insertErr error
	meta      map[int64]map[string]string
	filters   []domain.CommentFilter
	nextID    int64
}

func (f *fakeComments) Find(_ context.Context, filter domain.CommentFilter) ([]domain.Comment, error) {
	f.filters = append(f.filters, filter)
	var out []domain.Comment
	for _, c := range f.existing {
		if c.PostID != filter.PostID || c.AuthorEmail != filter.AuthorEmail {
			continue
		}
		if filter.Type != "" && c.Type != filter.Type {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeComments) Insert(_ context.Context, c domain.Comment) (int64, error) {
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.nextID++
	f.inserted = append(f.inserted, c)
	return f.nextID, nil
}

func (f *fakeComments) SetMeta(_ context.Context, commentID int64, key, value string) error {
	if f.meta == nil {
		f.meta = make(map[int64]map[string]string)
	}
	if f.meta[commentID] == nil {
		f.meta[commentID] = make(map[string]string)
	}
	f.meta[commentID][key] = value
	return nil
}

func newTestGate(t *testing.T, comments *fakeComments, content *fakeContent) (*Gate, *State) {
	t.Helper()
	st := newTestState(t)
	return NewGate(comments, content, st, "facebook_reactions"), st
}

func likeReaction(postID, email string) domain.Reaction {
	r := domain.Reaction{}
	r.PostID = postID
	r.AuthorEmail = email
	r.Author = "Ann"
	r.Type = "like"
	r.Content = "liked this entry"
	r.Avatar = "https://graph.facebook.com/999/picture"
	r.Raw = []byte(`{"id":"999"}`)
	return r
}

func TestGateInsertsNewReaction(t *testing.T) {
	comments := &fakeComments{}
	content := &fakeContent{refs: []domain.ContentRef{{ID: "42", Title: "Hello World"}}}
	gate, st := newTestGate(t, comments, content)

	id, inserted, err := gate.Insert(context.Background(), likeReaction("42", "999@facebook.com"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if !inserted || id == 0 {
		t.Fatalf("expected insert, got id=%d inserted=%v", id, inserted)
	}
	if len(comments.inserted) != 1 {
		t.Fatalf("expected 1 stored comment, got %d", len(comments.inserted))
	}
	if got := comments.meta[id]["avatar"]; got != "https://graph.facebook.com/999/picture" {
		t.Fatalf("avatar meta = %q", got)
	}
	if got := comments.meta[id]["keyring-facebook_reactions"]; got != `{"id":"999"}` {
		t.Fatalf("raw payload meta = %q", got)
	}

	lines, _ := st.Log()
	if len(lines) != 1 || !strings.Contains(lines[0], "Hello World") {
		t.Fatalf("run log = %#v", lines)
	}
}

func TestGateSkipsExistingReaction(t *testing.T) {
	comments := &fakeComments{existing: []domain.Comment{{
		PostID:      "42",
		AuthorEmail: "999@facebook.com",
		Type:        "like",
	}}}
	gate, st := newTestGate(t, comments, &fakeContent{})

	_, inserted, err := gate.Insert(context.Background(), likeReaction("42", "999@facebook.com"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if inserted {
		t.Fatalf("existing reaction must not be inserted again")
	}
	if len(comments.inserted) != 0 {
		t.Fatalf("no comment should be stored, got %d", len(comments.inserted))
	}

	lines, _ := st.Log()
	if len(lines) != 1 || !strings.Contains(lines[0], "Already exists") {
		t.Fatalf("run log = %#v", lines)
	}
}

func TestGateMatchesDefaultTypeRegardlessOfType(t *testing.T) {
	comments := &fakeComments{}
	gate, _ := newTestGate(t, comments, &fakeContent{})

	r := likeReaction("42", "999@facebook.com")
	r.Type = "comment"
	if _, _, err := gate.Insert(context.Background(), r); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	// Default-type reactions dedup on (post, author) only.
	if len(comments.filters) != 1 || comments.filters[0].Type != "" {
		t.Fatalf("filters = %#v", comments.filters)
	}

	r2 := likeReaction("42", "999@facebook.com")
	if _, _, err := gate.Insert(context.Background(), r2); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if comments.filters[1].Type != "like" {
		t.Fatalf("non-default type must be part of the dedup filter, got %#v", comments.filters[1])
	}
}

func TestGateTreatsUniqueIndexViolationAsDuplicate(t *testing.T) {
	comments := &fakeComments{insertErr: domain.ErrDuplicateComment}
	gate, st := newTestGate(t, comments, &fakeContent{})

	_, inserted, err := gate.Insert(context.Background(), likeReaction("42", "999@facebook.com"))
	if err != nil {
		t.Fatalf("a lost insert race is not an error: %v", err)
	}
	if inserted {
		t.Fatalf("lost race must report not-inserted")
	}
	lines, _ := st.Log()
	if len(lines) != 1 || !strings.Contains(lines[0], "Already exists") {
		t.Fatalf("run log = %#v", lines)
	}
}

func TestGatePropagatesInsertFailure(t *testing.T) {
	comments := &fakeComments{insertErr: fmt.Errorf("disk full")}
	gate, _ := newTestGate(t, comments, &fakeContent{})

	_, _, err := gate.Insert(context.Background(), likeReaction("42", "999@facebook.com"))
	if err == nil {
		t.Fatalf("expected insert failure to propagate")
	}
}
