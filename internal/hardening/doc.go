// Package hardening derives strong symmetric key material from
// low-entropy user passphrases.
//
// The algorithm stacks three phases:
//  1. PBKDF2-HMAC-SHA-512 stretches the passphrase into an HMAC key, an
//     AES-CBC key and an IV.
//  2. A memory-hardening phase CBC-encrypts a large buffer in place for
//     a configured number of rounds. CBC is used because it cannot be
//     parallelised across blocks, which hurts bulk GPU/ASIC attacks.
//  3. A mixing phase derives fresh bytes from growing buffer suffixes
//     and writes them back at data-dependent offsets, resisting
//     time-memory tradeoff attacks.
//
// The final key is an HMAC-SHA-512 over the whole mixed buffer. The
// hardening parameters (rounds, iterations, memory) are public and
// persisted unencrypted next to the salt; security derives from their
// cost, not their secrecy.
//
// The package also provides rejection-sampled password generators and a
// benchmarked brute-force time estimate for generated passwords.
package hardening
