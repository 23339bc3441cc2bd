package keyring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/backfeedhq/backfeed/internal/options"
)

func TestTokenStoreRoundTrip(t *testing.T) {
	store, err := options.NewStore("memory", "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	tokens := NewTokenStore(store)

	if _, err := tokens.Get("facebook", "1"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}

	tok := Token{ID: "1", Service: "facebook", Secret: "s3cret", Display: "Ann"}
	if err := tokens.Save(tok); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := tokens.Get("facebook", "1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != tok {
		t.Fatalf("round trip mismatch: %#v", got)
	}

	if err := tokens.Delete("facebook", "1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := tokens.Get("facebook", "1"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound after delete, got %v", err)
	}
}

func TestServiceRequestDecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data":   []map[string]string{{"id": "1"}, {"id": "2"}},
			"paging": map[string]string{"next": "https://example.com/page2"},
		})
	}))
	defer srv.Close()

	svc := NewService("facebook", 2*time.Second)
	env, err := svc.Request(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if len(env.Data) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(env.Data))
	}
	if env.Paging.Next != "https://example.com/page2" {
		t.Fatalf("unexpected next url %q", env.Paging.Next)
	}
}

func TestServiceRequestRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusBadRequest)
	}))
	defer srv.Close()

	svc := NewService("facebook", 2*time.Second)
	_, err := svc.Request(context.Background(), srv.URL)
	if err == nil {
		t.Fatalf("expected error for 400 response")
	}

	var remoteErr *RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected *RemoteError, got %T", err)
	}
	if remoteErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("StatusCode = %d", remoteErr.StatusCode)
	}
	if !remoteErr.Transient() {
		t.Fatalf("400 should be treated as transient")
	}
}

func TestRemoteErrorTransient(t *testing.T) {
	cases := []struct {
		status    int
		transient bool
	}{
		{http.StatusBadRequest, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusUnauthorized, false},
		{http.StatusInternalServerError, false},
	}
	for _, tc := range cases {
		err := &RemoteError{StatusCode: tc.status}
		if err.Transient() != tc.transient {
			t.Errorf("status %d: Transient() = %v, want %v", tc.status, err.Transient(), tc.transient)
		}
	}
}
