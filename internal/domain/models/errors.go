package models

import "errors"

// ErrCoinNotFound is returned when a filter verdict is reported for a symbol
// that was never snapshotted. This is a caller ordering bug, not a transient
// condition, so it is surfaced and never retried internally.
var ErrCoinNotFound = errors.New("coin not found in pool")
