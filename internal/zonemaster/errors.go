package zonemaster

import "errors"

// ErrAlreadyRunning is returned by Run when the publisher already holds an
// active monitor subscription.
var ErrAlreadyRunning = errors.New("zonemaster: publisher already running")
