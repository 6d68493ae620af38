// Package command implements the MeshKV command table and dispatcher.
//
// A Command couples a name and arity with a Handler. The Registry is
// populated once at startup (DefaultRegistry) and frozen; the Dispatcher
// resolves each request against it, enforces the authentication gate and
// runs keyspace commands under the store lock.
//
// Mutating handlers do not write to the persistence log themselves: they
// call Context.Propagate with a canonical record (relative TTLs already
// turned into absolute deadlines), and the dispatcher appends those records
// while the keyspace lock is still held, so log order equals commit order.
//
// Replay folds a persistence log back into an empty store using the same
// handlers.
package command
