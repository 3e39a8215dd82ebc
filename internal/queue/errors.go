package queue

import "errors"

// ErrClosed is returned by Put/Get once Close has been called and no more
// elements are available.
var ErrClosed = errors.New("queue: closed")
