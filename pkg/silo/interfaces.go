package silo

import (
	"context"

	"github.com/backfeedhq/backfeed/internal/domain"
	"github.com/backfeedhq/backfeed/pkg/keyring"
)

// Connector imports reactions from one remote silo. Concrete implementations
// live in silo-specific files (e.g., facebook.go).
type Connector interface {
	// Slug identifies the importer instance; it also names the option
	// namespace (keyring-<slug>) its state is persisted under.
	Slug() string
	// SiloName is the domain marker matched against syndication URLs and
	// used to scope author identity keys.
	SiloName() string
	// Methods returns the ordered reaction method -> comment type bindings
	// checked for every work item.
	Methods() []domain.MethodBinding
	// MakeRequests fetches every reaction of the given method for one work
	// item, following pagination to the end.
	MakeRequests(ctx context.Context, method string, item domain.WorkItem) ([]domain.Reaction, error)
}

// Requester issues one authenticated read against a silo API and returns one
// page of results.
type Requester interface {
	Request(ctx context.Context, url string) (*keyring.Envelope, error)
}

// Credentialed couples the paged request primitive with access to the
// selected token's secret, for connectors that pass the credential as a
// request parameter.
type Credentialed interface {
	Requester
	AccessToken() (string, bool)
}

// Settings exposes the importer options a connector reads at fetch time.
type Settings interface {
	AutoApprove() bool
}

// Deps carries the collaborators a connector is built with.
type Deps struct {
	Service  Credentialed
	Settings Settings
}
