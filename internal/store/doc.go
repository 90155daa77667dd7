// Package store persists an ordered collection of records as a single JSON
// array in one file.
//
// # Reads and writes
//
// [Store.ReadAll] takes a shared flock on the file, reads it whole and
// decodes it. [Store.WriteAll] takes an exclusive flock, truncates the file
// and writes the whole encoded collection. A reader therefore never sees a
// half-written file as long as every writer goes through a Store. An absent or
// zero-length file is an empty collection; the file is created on the first
// write and is never deleted.
//
// # Mutations and lost updates
//
// Save, Update, DeleteByID and DeleteAll are a ReadAll, an in-memory change,
// and a WriteAll. The two locks are separate, so the sequence is not atomic:
// two callers that read the same snapshot will each write their own result
// and the later write discards the earlier one's change. This is a lost
// update and it is the accepted behaviour of the package.
//
// [WithSerializedMutations] closes the window for mutations issued through
// the same *Store within one process. It cannot protect against other
// processes or other Store values on the same path.
//
// # Errors
//
// Failures during the read phase are *ReadError and during the write phase
// *WriteError. Both carry the path and operation and unwrap to the cause, so
// errors.Is still finds [filelock.ErrLockTimeout],
// [filelock.ErrLockInterrupted] and [codec.ErrMalformedData].
package store
