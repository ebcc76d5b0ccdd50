// Package record turns logical key/value pairs into their hashed,
// encrypted, signed persistence form and back.
//
// Encryption uses AES-256-GCM with:
//   - 32-byte symmetric key supplied by the storage crypto context
//   - 12-byte random nonce per encryption operation
//   - authenticated encryption prevents undetected tampering
//
// Index hashing uses HMAC-SHA-256 over a length-prefixed encoding,
// base62-encoded. Before a user key is attached the codec degrades to a
// plain SHA-256 digest, so unauthenticated lookups (for example a
// pre-login "does this user exist" check) still address records.
//
// Each record additionally carries a signature over key, value and all
// index values in index order, so tampering is detected independently of
// the cipher's authentication tag and reported as corruption rather than
// absence.
package record
