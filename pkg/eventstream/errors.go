package eventstream

import "errors"

// ErrNilEvent indicates a nil memory event payload was provided to a publisher.
var ErrNilEvent = errors.New("nil memory event")
