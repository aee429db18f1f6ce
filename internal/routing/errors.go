package routing

import "errors"

// No function in this package returns these errors.
var (
	// ErrIsLocal names an operation that targets the local peer id.
	ErrIsLocal = errors.New("routing: cannot add local peer to its own table")
	// ErrNotFound names a peer lookup that misses.
	ErrNotFound = errors.New("routing: peer not found")
	// ErrBucketFull names a bucket that has no room and whose resident
	// entries are all live.
	ErrBucketFull = errors.New("routing: bucket full, no evictable entry")
)
