package core

import "errors"

// Engine error constants
var (
	// ErrValidation is returned when an audit record fails input validation
	ErrValidation = errors.New("audit record validation failed")

	// ErrIntegrity is returned when a recomputed hash, signature, or Merkle
	// root does not match the stored value
	ErrIntegrity = errors.New("integrity violation")

	// ErrSigningUnavailable is returned when the signing capability cannot
	// produce a signature within the configured retry budget
	ErrSigningUnavailable = errors.New("signing unavailable")

	// ErrBackpressure is returned when the pending buffer has reached its
	// hard cap and new entries are rejected
	ErrBackpressure = errors.New("pending buffer full")

	// ErrLinkage is returned when a block's previous hash does not match the
	// current chain tip
	ErrLinkage = errors.New("block linkage mismatch")

	// ErrEntryNotFound is returned when an entry id is not present in any
	// sealed block
	ErrEntryNotFound = errors.New("entry not found")

	// ErrBlockNotFound is returned when a block index is out of range
	ErrBlockNotFound = errors.New("block not found")

	// ErrClosed is returned when an operation is attempted on a shut-down
	// engine
	ErrClosed = errors.New("engine is closed")

	// ErrExportFormat is returned for an unsupported export format
	ErrExportFormat = errors.New("unsupported export format")

	// ErrHashAlgorithm is returned for an unknown content-hash algorithm
	ErrHashAlgorithm = errors.New("unknown hash algorithm")
)
