// Package core defines the domain model for the Veritas audit ledger.
//
// The core package provides:
//   - Domain types (AuditRecord, Entry, SealedEntry, Block, MerkleProof)
//   - The pluggable content-hash algorithm registry
//   - The compliance metadata rule table
//   - Sentinel errors shared across the engine
//
// Sealed values are plain value types: a SealedEntry wraps an Entry together
// with its finalized Merkle proof, and a Block carries its sealed entries by
// value. Nothing in the engine mutates a value after sealing; copies handed
// to callers are always safe to retain.
package core
