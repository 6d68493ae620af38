// Package memory provides the in-memory keyspace for MeshKV.
//
// The keyspace is a fixed number of databases, each a map from key to a
// typed, possibly-expiring entry. All access goes through Store.Exec, which
// holds one exclusive lock over every database for the duration of the
// callback, so a command observes and mutates the keyspace atomically.
//
// Expiration:
//
//   - Lazy: every read checks the deadline first; an expired entry is
//     removed and reported as a miss.
//   - Active: Store.RunExpirer periodically sweeps all databases to reclaim
//     memory held by keys nobody reads again. It is never needed for
//     correctness.
package memory
