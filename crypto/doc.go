// Package crypto provides password-based key derivation and per-chunk
// authenticated encryption for the flux transfer protocol.
//
// # Overview
//
// The package covers two concerns:
//
//   - Key derivation: a 256-bit symmetric key is derived from the shared
//     password and a random per-transfer salt using PBKDF2-HMAC-SHA256.
//   - Sealing: each plaintext chunk is encrypted and authenticated
//     independently with AES-256-GCM under a fresh random nonce.
//
// # Wire Format
//
// A sealed chunk is laid out as:
//
//	nonce(16) || tag(16) || ciphertext
//
// On the wire every sealed chunk is additionally prefixed with a 4-byte
// big-endian length covering the sealed bytes, so a reader can demarcate
// chunk boundaries regardless of how the underlying stream fragments
// reads. WriteFrame and ReadFrame implement this framing.
//
// Example:
//
//	salt, _ := crypto.GenerateSalt()
//	key := crypto.DeriveKey("p@ss", salt)
//	sealed, _ := crypto.Seal(key, plaintext)
//	plain, err := crypto.Open(key, sealed) // fails with ErrAuthentication on tamper
package crypto
