package transfer

import "errors"

// Sentinel errors classifying every way a transfer can fail. Pipelines wrap
// lower-level failures with these so callers and tests can match with
// errors.Is.
var (
	// ErrInput indicates a missing source file, bad save directory, or a
	// malformed rendezvous code.
	ErrInput = errors.New("invalid transfer input")

	// ErrRendezvous indicates an unknown, expired, or mismatched
	// rendezvous code.
	ErrRendezvous = errors.New("rendezvous failed")

	// ErrNetwork indicates exhausted bind/connect retries, a read or
	// write timeout, or an unexpected disconnect.
	ErrNetwork = errors.New("network failure")

	// ErrCrypto indicates a chunk failed authentication: the password is
	// wrong or the stream was tampered with. Never retried.
	ErrCrypto = errors.New("authentication failed")

	// ErrCompression indicates a corrupt compressed stream.
	ErrCompression = errors.New("compression failure")

	// ErrCancelled indicates the user cancelled the transfer.
	ErrCancelled = errors.New("transfer cancelled")
)
