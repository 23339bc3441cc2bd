package silo

import "errors"

var (
	// ErrMissingPostID means the work item has no local content identifier.
	ErrMissingPostID = errors.New("missing post id to make request for")
	// ErrMissingSyndicationURL means the work item has no remote locator.
	ErrMissingSyndicationURL = errors.New("missing syndication url")
	// ErrRemoteIDNotDerivable means no remote identifier could be taken from
	// the syndication URL's final path segment.
	ErrRemoteIDNotDerivable = errors.New("cannot derive remote id from syndication url")
	// ErrUnknownMethod means the connector has no fetcher for the requested
	// reaction method.
	ErrUnknownMethod = errors.New("unknown reaction method")
	// ErrTooManyPages means pagination exceeded the configured page cap
	// without the server ending the walk.
	ErrTooManyPages = errors.New("pagination exceeded page cap")
)
