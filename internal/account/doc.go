// Package account keeps per-user hardening material and the login flow.
//
// Account records are public by design: salt and hardening parameters
// must be readable before any key exists, so they live in a dedicated
// plaintext storage that never receives crypto keys. Passwords are
// never stored; login re-hardens the supplied password with the
// persisted parameters and compares a derived verifier.
package account
