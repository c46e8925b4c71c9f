package cache

import (
	"errors"
	"fmt"
)

// ErrNoLoader is returned by GetOrLoad and Refresh when neither a
// per-call loader nor Options.Loader is available.
var ErrNoLoader = errors.New("cache: no loader provided")

// ErrClosed is returned by loading operations after Close.
var ErrClosed = errors.New("cache: closed")

// LoadError reports a failed unary load. Every waiter attached to the
// failed flight receives the same LoadError; no entry is stored and the
// next miss starts a fresh load (errors are never cached).
type LoadError struct {
	Key any
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("cache: load for key %v failed: %v", e.Key, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// BatchError reports that a batch loader failed as a whole, either by
// returning an error or by returning a result of invalid shape. Every
// waiter of the flushed bucket receives the same BatchError.
type BatchError struct {
	Err error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("cache: batch load failed: %v", e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// KeyAbsentError reports that a batch completed but its result carried
// no value for this key. Only that key's waiters receive it.
type KeyAbsentError struct {
	Key any
}

func (e *KeyAbsentError) Error() string {
	return fmt.Sprintf("cache: batch result has no value for key %v", e.Key)
}

// ConfigError reports invalid construction-time options.
type ConfigError struct {
	Param  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("cache: invalid %s: %s", e.Param, e.Reason)
}
