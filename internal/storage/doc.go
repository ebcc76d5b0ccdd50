// Package storage implements the transactional key-value engine shared
// by all drivevault features.
//
// Many logical storages coexist in one physical document: every record's
// key is prefixed with hash(baseStorageID)+hash(thisStorageID)+"_", so a
// whole tree of nested storages shares one backing file yet stays
// separable by prefix. Nested storages share the root's crypto context,
// operation queue and backend; only the identity path differs.
//
// All operations that touch the physical document are serialised through
// a FIFO queue, guaranteeing at most one in-flight read-modify-write per
// storage family. Two interleaved writes against a whole-document
// backend would otherwise clobber each other.
//
// Transactions take one queue turn for their whole lifetime and hand the
// callback a Tx handle that is the only path to storage operations, so
// the engine cannot be re-entered from inside a transaction. The handle
// carries its own FIFO queue, so concurrent calls from inside the
// callback run back-to-back rather than interleaving. There is no
// rollback; a failed transaction leaves its earlier writes committed.
package storage
