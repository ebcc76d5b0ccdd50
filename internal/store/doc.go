// Package store layers typed, lazily-committed values over single
// storage keys. A store must be restored before use, tracks dirtiness
// in memory and writes back on Commit, either explicitly or after every
// mutation when auto-commit is on.
//
// Commits coalesce: a Commit arriving while another is in flight waits
// and is resolved by one follow-up write that captures all mutations
// made in between. Unchanged data is detected by comparing marshaled
// snapshots and skips the physical write entirely.
//
// A Group binds several stores into one composite key so that related
// values always hit the document in a single write. Group members never
// commit themselves.
package store
