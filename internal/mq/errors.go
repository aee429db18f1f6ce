package mq

import "errors"

// ErrQueueClosed is returned by Send once Close has been called.
var ErrQueueClosed = errors.New("mq: queue closed")
