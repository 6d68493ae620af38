// Package cmap provides a sharded concurrent map keyed by string.
//
// Each shard owns a plain map behind its own RWMutex; the shard for a key
// is chosen by its murmur3 hash, so unrelated keys rarely contend.
//
// Usage:
//
//	m := cmap.New[*domain.Session]()
//	m.Set(id, sess)
//	sess, ok := m.Get(id)
//
// All operations are safe for concurrent use. Range and Count visit
// shards one at a time, so they do not observe a single consistent
// snapshot across shards.
package cmap
