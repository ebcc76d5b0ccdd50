// Package drive persists whole documents. A Drive stores named byte
// blobs; Backend adapts one named blob into the storage engine's
// load/store contract by (de)serialising the physical map as JSON.
//
// Two implementations ship: FileDrive keeps each document as a plain
// file with atomic temp-and-rename replacement, and BoltDrive packs all
// documents plus unencrypted vault metadata (salt, hardening
// parameters, vault ID, timestamps) into one bbolt database file.
package drive
