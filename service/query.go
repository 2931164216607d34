// Package service provides the read-only query surface over sealed chain
// state: audit trails, executive trails, chain metrics, and export. All
// queries run against immutable sealed blocks and may execute concurrently
// with ingestion.
package service

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"veritas/chain"
	"veritas/core"
)

// ChainMetrics summarizes chain health for operators and collaborators.
type ChainMetrics struct {
	BlockCount        uint64        `json:"block_count"`
	EntryCount        uint64        `json:"entry_count"`
	PendingEntries    int           `json:"pending_entries"`
	MeanBlockInterval time.Duration `json:"mean_block_interval"`
	LastSealedAt      time.Time     `json:"last_sealed_at"`
	SigningDegraded   bool          `json:"signing_degraded"`
	LastValidationOK  *bool         `json:"last_validation_ok,omitempty"`
	LastValidatedAt   time.Time     `json:"last_validated_at,omitzero"`
	CompromisedFrom   int64         `json:"compromised_from"` // -1 while intact
}

// QueryService answers read-only queries over a single engine instance.
type QueryService struct {
	engine *chain.Engine
	logger *zap.SugaredLogger
}

// NewQueryService creates the query surface for an engine.
func NewQueryService(engine *chain.Engine, logger *zap.SugaredLogger) *QueryService {
	return &QueryService{engine: engine, logger: logger}
}

// sealedEntries walks a chain snapshot and returns every sealed entry.
func (s *QueryService) sealedEntries() []core.SealedEntry {
	store := s.engine.Store()
	blocks := store.Snapshot(store.Length())
	var entries []core.SealedEntry
	for _, block := range blocks {
		entries = append(entries, block.Entries...)
	}
	return entries
}

// GetAuditTrail returns all sealed entries whose record timestamp falls in
// [start, end], ascending by sequence. With no intervening writes, repeated
// calls return identical ordered results.
func (s *QueryService) GetAuditTrail(start, end time.Time) []core.SealedEntry {
	out := []core.SealedEntry{}
	for _, entry := range s.sealedEntries() {
		ts := entry.Timestamp()
		if ts.Before(start) || ts.After(end) {
			continue
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Sequence < out[j].Sequence
	})
	return out
}

// GetExecutiveAuditTrail returns sealed entries tagged with the given
// executive id, optionally narrowed to one classification, descending by
// record timestamp.
func (s *QueryService) GetExecutiveAuditTrail(executiveID string, classification ...core.Classification) []core.SealedEntry {
	var wanted core.Classification
	if len(classification) > 0 {
		wanted = classification[0]
	}

	out := []core.SealedEntry{}
	for _, entry := range s.sealedEntries() {
		if entry.ExecutiveMetadata == nil || entry.ExecutiveMetadata.ExecutiveID != executiveID {
			continue
		}
		if wanted != "" && entry.ExecutiveMetadata.Classification != wanted {
			continue
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp().After(out[j].Timestamp())
	})
	return out
}

// GetChainMetrics reports block/entry counts, the mean interval between
// sealed blocks, and the latest validation outcome.
func (s *QueryService) GetChainMetrics() ChainMetrics {
	store := s.engine.Store()
	blocks := store.Snapshot(store.Length())

	var entryCount uint64
	for _, block := range blocks {
		entryCount += uint64(len(block.Entries))
	}

	var meanInterval time.Duration
	if len(blocks) > 1 {
		span := blocks[len(blocks)-1].Timestamp.Sub(blocks[0].Timestamp)
		meanInterval = span / time.Duration(len(blocks)-1)
	}

	m := ChainMetrics{
		BlockCount:        uint64(len(blocks)),
		EntryCount:        entryCount,
		PendingEntries:    s.engine.PendingCount(),
		MeanBlockInterval: meanInterval,
		LastSealedAt:      s.engine.LastSealedAt(),
		SigningDegraded:   s.engine.SigningDegraded(),
		CompromisedFrom:   s.engine.CompromisedFrom(),
	}
	if result, at := s.engine.LastValidation(); result != nil {
		ok := result.OK
		m.LastValidationOK = &ok
		m.LastValidatedAt = at
	}
	return m
}
