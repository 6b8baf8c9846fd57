package mocks

import "errors"

// ErrStoreDown is a canned failure for tests that simulate an unavailable store.
var ErrStoreDown = errors.New("store unavailable")
