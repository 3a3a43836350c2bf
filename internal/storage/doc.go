// Package storage defines the persistence collaborator used by the
// services: typed document collections, the query model and the sealed
// set of storage failures.
//
// Drivers live in sub-packages:
//
//   - memory: sharded in-process maps, the default for tests and dev
//   - badgerstore: embedded Badger database
//   - mongostore: MongoDB
//
// The memory and Badger drivers share KVCollection, which stores documents
// as JSON under "<collection>/<id>" keys of a KV engine.
package storage
