package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/backfeedhq/backfeed/internal/domain"
	"github.com/backfeedhq/backfeed/internal/options"
)

// Option keys of one importer instance. They all live under the importer's
// namespace, "keyring-" + silo slug, so several silos can share a store.
const (
	optQueue       = "posts"
	optCursor      = "post_todo"
	optLog         = "log"
	optTokenID     = "token"
	optAutoImport  = "auto_import"
	optAutoApprove = "auto_approve"
)

// State is the durable per-silo importer state: the work queue, the cursor
// into it, the run log and the user-facing settings. All reads and writes go
// straight to the option store so an interrupted import resumes where it
// stopped.
type State struct {
	store   options.Store
	optname string
}

// NewState binds importer state for the given silo slug to a store.
func NewState(store options.Store, slug string) *State {
	return &State{store: store, optname: "keyring-" + slug}
}

// OptName returns the storage namespace of this importer instance. It doubles
// as the provenance key attached to imported comments.
func (s *State) OptName() string { return s.optname }

// Queue returns the persisted work queue, possibly empty.
func (s *State) Queue() ([]domain.WorkItem, error) {
	var items []domain.WorkItem
	if _, err := s.store.Get(s.optname, optQueue, &items); err != nil {
		return nil, fmt.Errorf("read work queue: %w", err)
	}
	return items, nil
}

// SetQueue replaces the persisted work queue.
func (s *State) SetQueue(items []domain.WorkItem) error {
	if items == nil {
		items = []domain.WorkItem{}
	}
	if err := s.store.Set(s.optname, optQueue, items); err != nil {
		return fmt.Errorf("store work queue: %w", err)
	}
	return nil
}

// Cursor returns the index of the next queue item to process, 0 when unset.
func (s *State) Cursor() (int, error) {
	var pos int
	if _, err := s.store.Get(s.optname, optCursor, &pos); err != nil {
		return 0, fmt.Errorf("read cursor: %w", err)
	}
	return pos, nil
}

// SetCursor persists the cursor position.
func (s *State) SetCursor(pos int) error {
	if err := s.store.Set(s.optname, optCursor, pos); err != nil {
		return fmt.Errorf("store cursor: %w", err)
	}
	return nil
}

// Advance moves the cursor forward by one and returns the new position.
func (s *State) Advance() (int, error) {
	pos, err := s.Cursor()
	if err != nil {
		return 0, err
	}
	pos++
	if err := s.SetCursor(pos); err != nil {
		return 0, err
	}
	return pos, nil
}

// Log returns the accumulated run log lines.
func (s *State) Log() ([]string, error) {
	var lines []string
	if _, err := s.store.Get(s.optname, optLog, &lines); err != nil {
		return nil, fmt.Errorf("read run log: %w", err)
	}
	return lines, nil
}

// AppendLog adds a line to the run log.
func (s *State) AppendLog(line string) error {
	lines, err := s.Log()
	if err != nil {
		return err
	}
	lines = append(lines, line)
	if err := s.store.Set(s.optname, optLog, lines); err != nil {
		return fmt.Errorf("store run log: %w", err)
	}
	return nil
}

// ClearLog discards the run log.
func (s *State) ClearLog() error {
	if err := s.store.Delete(s.optname, optLog); err != nil {
		return fmt.Errorf("clear run log: %w", err)
	}
	return nil
}

// Cleanup discards the run bookkeeping (queue, cursor, log) while keeping
// the token binding and user settings.
func (s *State) Cleanup() error {
	for _, key := range []string{optLog, optQueue, optCursor} {
		if err := s.store.Delete(s.optname, key); err != nil {
			return fmt.Errorf("cleanup %s: %w", key, err)
		}
	}
	return nil
}

// Reset wipes everything this importer instance has stored, settings and
// token binding included.
func (s *State) Reset() error {
	if err := s.store.DeleteAll(s.optname); err != nil {
		return fmt.Errorf("reset importer state: %w", err)
	}
	return nil
}

// AutoApprove reports whether imported reactions are inserted pre-approved.
// Storage failures fall back to the conservative default, not approved.
func (s *State) AutoApprove() bool {
	var v bool
	if _, err := s.store.Get(s.optname, optAutoApprove, &v); err != nil {
		return false
	}
	return v
}

// SetAutoApprove persists the auto-approve setting.
func (s *State) SetAutoApprove(v bool) error {
	return s.store.Set(s.optname, optAutoApprove, v)
}

// AutoImport reports whether the background importer is enabled.
func (s *State) AutoImport() (bool, error) {
	var v bool
	if _, err := s.store.Get(s.optname, optAutoImport, &v); err != nil {
		return false, fmt.Errorf("read auto-import setting: %w", err)
	}
	return v, nil
}

// SetAutoImport persists the auto-import setting.
func (s *State) SetAutoImport(v bool) error {
	return s.store.Set(s.optname, optAutoImport, v)
}

// TokenID returns the stored credential binding, "" when none is stored.
func (s *State) TokenID() (string, error) {
	var id string
	if _, err := s.store.Get(s.optname, optTokenID, &id); err != nil {
		return "", fmt.Errorf("read token binding: %w", err)
	}
	return id, nil
}

// SetTokenID persists the credential binding.
func (s *State) SetTokenID(id string) error {
	return s.store.Set(s.optname, optTokenID, id)
}

// EnsureQueue returns the persisted work queue, rebuilding it from published
// content when none is stored. A post enters the queue once per syndication
// URL that points at the silo, so a post syndicated twice yields two items.
func (s *State) EnsureQueue(ctx context.Context, content ContentRepository, siloName, metaKey string) ([]domain.WorkItem, error) {
	items, err := s.Queue()
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		return items, nil
	}

	refs, err := content.ListPublished(ctx, metaKey)
	if err != nil {
		return nil, fmt.Errorf("list syndicated content: %w", err)
	}

	items = make([]domain.WorkItem, 0, len(refs))
	for _, ref := range refs {
		raw, err := content.Meta(ctx, ref.ID, metaKey)
		if err != nil {
			return nil, fmt.Errorf("read syndication meta of post %s: %w", ref.ID, err)
		}
		for _, line := range strings.Split(raw, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || !strings.Contains(line, siloName) {
				continue
			}
			items = append(items, domain.WorkItem{PostID: ref.ID, SyndicationURL: line})
		}
	}

	if err := s.SetQueue(items); err != nil {
		return nil, err
	}
	if err := s.SetCursor(0); err != nil {
		return nil, err
	}
	return items, nil
}
