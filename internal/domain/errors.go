package domain

import "errors"

// ErrDuplicateActiveKey is reported by job storage when an insert collides
// with an already-active job holding the same idempotency key. The queue
// treats it as a no-op, not a failure.
var ErrDuplicateActiveKey = errors.New("job with active idempotency key already exists")
