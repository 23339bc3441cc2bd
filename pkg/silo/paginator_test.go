package silo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/backfeedhq/backfeed/pkg/keyring"
)

// mockRequester serves canned pages keyed by URL.
type mockRequester struct {
	pages map[string]*keyring.Envelope
	err   error
	calls []string
}

func (m *mockRequester) Request(_ context.Context, url string) (*keyring.Envelope, error) {
	m.calls = append(m.calls, url)
	if m.err != nil {
		return nil, m.err
	}
	env, ok := m.pages[url]
	if !ok {
		return nil, fmt.Errorf("unexpected url %q", url)
	}
	return env, nil
}

func page(next string, ids ...string) *keyring.Envelope {
	env := &keyring.Envelope{}
	for _, id := range ids {
		env.Data = append(env.Data, json.RawMessage(fmt.Sprintf(`{"id":%q}`, id)))
	}
	env.Paging.Next = next
	return env
}

func TestPaginateConcatenatesAllPagesInOrder(t *testing.T) {
	req := &mockRequester{pages: map[string]*keyring.Envelope{
		"https://example.com/p1": page("https://example.com/p2", "1", "2"),
		"https://example.com/p2": page("https://example.com/p3", "3"),
		"https://example.com/p3": page("", "4", "5"),
	}}

	elements, err := Paginate(context.Background(), req, "https://example.com/p1", 0)
	if err != nil {
		t.Fatalf("Paginate: %v", err)
	}
	if len(elements) != 5 {
		t.Fatalf("expected 5 elements, got %d", len(elements))
	}
	for i, want := range []string{"1", "2", "3", "4", "5"} {
		var elem struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(elements[i], &elem); err != nil {
			t.Fatalf("decode element %d: %v", i, err)
		}
		if elem.ID != want {
			t.Fatalf("element %d = %s, want %s", i, elem.ID, want)
		}
	}
	if len(req.calls) != 3 {
		t.Fatalf("expected 3 fetches, got %d", len(req.calls))
	}
}

func TestPaginateStopsOnInvalidNextURL(t *testing.T) {
	req := &mockRequester{pages: map[string]*keyring.Envelope{
		"https://example.com/p1": page("not a url", "1"),
	}}

	elements, err := Paginate(context.Background(), req, "https://example.com/p1", 0)
	if err != nil {
		t.Fatalf("Paginate: %v", err)
	}
	if len(elements) != 1 {
		t.Fatalf("expected 1 element, got %d", len(elements))
	}
	if len(req.calls) != 1 {
		t.Fatalf("invalid next url should end the walk, got %d fetches", len(req.calls))
	}
}

func TestPaginatePropagatesFetchFailure(t *testing.T) {
	req := &mockRequester{err: errors.New("connection reset")}

	_, err := Paginate(context.Background(), req, "https://example.com/p1", 0)
	if err == nil {
		t.Fatalf("expected fetch failure to propagate")
	}
}

func TestPaginateEnforcesPageCap(t *testing.T) {
	// Every page points back at itself; without the cap this never ends.
	req := &mockRequester{pages: map[string]*keyring.Envelope{
		"https://example.com/loop": page("https://example.com/loop", "x"),
	}}

	_, err := Paginate(context.Background(), req, "https://example.com/loop", 5)
	if !errors.Is(err, ErrTooManyPages) {
		t.Fatalf("expected ErrTooManyPages, got %v", err)
	}
	if len(req.calls) != 5 {
		t.Fatalf("expected exactly 5 fetches before aborting, got %d", len(req.calls))
	}
}

func TestPaginateRejectsEmptyStartURL(t *testing.T) {
	if _, err := Paginate(context.Background(), &mockRequester{}, "", 0); err == nil {
		t.Fatalf("expected error for empty start url")
	}
}
