// Package driver holds what the cache backends share.
package driver

import "errors"

var (
	// ErrKeyNotFound is returned by Get on a miss or an expired entry.
	ErrKeyNotFound = errors.New("cache: key not found")

	// ErrCapacity is returned when a bounded memory store is full.
	ErrCapacity = errors.New("cache: capacity exceeded")
)

// JoinPrefix combines namespace and key prefix as "namespace:prefix".
func JoinPrefix(namespace, prefix string) string {
	if namespace == "" {
		return prefix
	}
	return namespace + ":" + prefix
}
