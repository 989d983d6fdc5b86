// Package cache provides an in-memory LRU cache for snapshot blobs.
//
// Loading a snapshot from a remote store costs a round trip per blob; the
// cache keeps recently read blobs in memory, keyed by store and name. Cached
// bytes are charged to the resource controller, so the cache never pushes the
// process past its configured memory limit.
package cache
