package core

import (
	"time"

	"github.com/google/uuid"
)

// ProofDirection identifies which side a sibling hash sits on when
// replaying a Merkle proof.
type ProofDirection string

const (
	// ProofLeft means the sibling hash is concatenated to the left
	ProofLeft ProofDirection = "left"
	// ProofRight means the sibling hash is concatenated to the right
	ProofRight ProofDirection = "right"
)

// ProofStep is a single sibling hash in a Merkle proof path.
type ProofStep struct {
	Hash      string         `json:"hash"`
	Direction ProofDirection `json:"direction"`
}

// MerkleProof is the minimal sibling-hash path needed to recompute a tree
// root from one leaf, without the rest of the tree.
type MerkleProof struct {
	LeafHash string      `json:"leaf_hash"`
	Position int         `json:"position"`
	Path     []ProofStep `json:"path"`
}

// Entry is one immutable audit record plus its integrity metadata. Entries
// live in the pending buffer between creation and sealing; sealing wraps an
// Entry in a SealedEntry, it never mutates the Entry itself.
type Entry struct {
	ID                 string              `json:"id"`
	Record             AuditRecord         `json:"record"`
	EntryHash          string              `json:"entry_hash"`
	Sequence           uint64              `json:"sequence"`
	ExecutiveMetadata  *ExecutiveMetadata `json:"executive_metadata,omitempty"`
	ComplianceMetadata ComplianceMetadata `json:"compliance_metadata"`
}

// SealedEntry is an Entry plus the Merkle proof finalized at seal time.
type SealedEntry struct {
	Entry
	Proof MerkleProof `json:"integrity_proof"`
}

// EntryFactory turns raw audit records into entries. Sequence numbers are
// strictly increasing and never reused; the factory must only be driven
// from the engine's writer section so assignment is not interleaved.
type EntryFactory struct {
	hasher *Hasher
	next   uint64
}

// NewEntryFactory creates an entry factory. nextSequence seeds the counter,
// derived from the highest persisted sequence at startup so numbers survive
// restarts.
func NewEntryFactory(hasher *Hasher, nextSequence uint64) *EntryFactory {
	return &EntryFactory{hasher: hasher, next: nextSequence}
}

// NextSequence returns the sequence number the next entry will receive.
func (f *EntryFactory) NextSequence() uint64 {
	return f.next
}

// CreateEntry validates the record, computes its content hash, assigns the
// next sequence number, and derives compliance metadata. The record is
// never buffered when validation fails.
func (f *EntryFactory) CreateEntry(record AuditRecord, meta *ExecutiveMetadata) (Entry, error) {
	if err := ValidateRecord(record); err != nil {
		return Entry{}, err
	}

	entry := Entry{
		ID:                 uuid.NewString(),
		Record:             record,
		EntryHash:          f.hasher.SumString(CanonicalRecord(record)),
		Sequence:           f.next,
		ComplianceMetadata: DeriveCompliance(meta),
	}
	if meta != nil {
		m := *meta
		entry.ExecutiveMetadata = &m
	}

	f.next++
	return entry, nil
}

// TriggersSeal reports whether ingesting this entry must seal the pending
// buffer immediately, independent of the configured block size.
func (e Entry) TriggersSeal() bool {
	if e.Record.Result.TriggersSeal() {
		return true
	}
	return e.ExecutiveMetadata != nil && e.ExecutiveMetadata.Priority.TriggersSeal()
}

// Timestamp returns the record timestamp in UTC.
func (e Entry) Timestamp() time.Time {
	return e.Record.Timestamp.UTC()
}
