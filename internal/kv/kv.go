// Package kv provides the flat string key-value backends the guest store
// persists into.
package kv

import "fmt"

// Backend is a synchronous string key-value store
type Backend interface {
	// Get returns ok=false when key is absent.
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
	Close() error
}

// WriteError reports a failed write. The previously stored value for Key is
// left intact.
type WriteError struct {
	Key string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write key %q: %v", e.Key, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
