package importer

import "errors"

// ErrQueueInconsistent means the cursor addresses a position past the end of
// the persisted work queue. This is an internal-consistency failure; it
// aborts the current run instead of being clamped away.
var ErrQueueInconsistent = errors.New("work queue cursor points past the end of the queue")
