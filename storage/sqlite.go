// Package storage persists sealed blocks to SQLite so a chain can be
// restored after restart. The chain remains the in-memory source of truth;
// storage is write-behind of append and a persistence failure never blocks
// ingestion.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"veritas/core"
)

// LedgerStore persists sealed blocks and their entries.
type LedgerStore struct {
	db     *sql.DB
	path   string
	logger *zap.SugaredLogger
}

// NewLedgerStore opens (or creates) the ledger database and applies the
// schema. Pass ":memory:" for an ephemeral store in tests.
func NewLedgerStore(dbPath string, logger *zap.SugaredLogger) (*LedgerStore, error) {
	if dir := filepath.Dir(dbPath); dbPath != ":memory:" && dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := dbPath
	if dbPath == ":memory:" {
		dsn = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}
	// The ledger has a single writer (the engine's seal path), so one open
	// connection avoids SQLITE_BUSY without hurting throughput.
	db.SetMaxOpenConns(1)

	store := &LedgerStore{db: db, path: dbPath, logger: logger}
	if err := store.configure(); err != nil {
		db.Close()
		return nil, err
	}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Infow("ledger store ready", "path", dbPath)
	return store, nil
}

func (s *LedgerStore) configure() error {
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := s.db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := s.db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("failed to ping ledger database: %w", err)
	}
	return nil
}

func (s *LedgerStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS blocks (
		block_index   INTEGER PRIMARY KEY,
		timestamp     TEXT NOT NULL,
		previous_hash TEXT NOT NULL,
		merkle_root   TEXT NOT NULL,
		nonce         TEXT NOT NULL,
		hash          TEXT NOT NULL,
		signature     BLOB,
		validator_id  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS entries (
		id                  TEXT PRIMARY KEY,
		block_index         INTEGER NOT NULL REFERENCES blocks(block_index),
		sequence            INTEGER NOT NULL UNIQUE,
		entry_hash          TEXT NOT NULL,
		record              TEXT NOT NULL,
		executive_metadata  TEXT,
		compliance_metadata TEXT NOT NULL,
		integrity_proof     TEXT NOT NULL,
		position            INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_block ON entries(block_index);
	CREATE INDEX IF NOT EXISTS idx_entries_sequence ON entries(sequence);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply ledger schema: %w", err)
	}
	return nil
}

// SaveBlock persists a sealed block and its entries in one transaction.
func (s *LedgerStore) SaveBlock(ctx context.Context, block core.Block) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO blocks (block_index, timestamp, previous_hash, merkle_root, nonce, hash, signature, validator_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		block.Index,
		block.Timestamp.UTC().Format(time.RFC3339Nano),
		block.PreviousHash,
		block.MerkleRoot,
		block.Nonce,
		block.Hash,
		block.Signature,
		block.ValidatorID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert block %d: %w", block.Index, err)
	}

	for position, entry := range block.Entries {
		record, err := json.Marshal(entry.Record)
		if err != nil {
			return fmt.Errorf("failed to marshal record for entry %s: %w", entry.ID, err)
		}
		compliance, err := json.Marshal(entry.ComplianceMetadata)
		if err != nil {
			return fmt.Errorf("failed to marshal compliance metadata for entry %s: %w", entry.ID, err)
		}
		proof, err := json.Marshal(entry.Proof)
		if err != nil {
			return fmt.Errorf("failed to marshal proof for entry %s: %w", entry.ID, err)
		}

		var executive sql.NullString
		if entry.ExecutiveMetadata != nil {
			data, err := json.Marshal(entry.ExecutiveMetadata)
			if err != nil {
				return fmt.Errorf("failed to marshal executive metadata for entry %s: %w", entry.ID, err)
			}
			executive = sql.NullString{String: string(data), Valid: true}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO entries (id, block_index, sequence, entry_hash, record, executive_metadata, compliance_metadata, integrity_proof, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			entry.ID,
			block.Index,
			entry.Sequence,
			entry.EntryHash,
			string(record),
			executive,
			string(compliance),
			string(proof),
			position,
		)
		if err != nil {
			return fmt.Errorf("failed to insert entry %s: %w", entry.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit block %d: %w", block.Index, err)
	}
	return nil
}

// LoadChain restores all persisted blocks in index order, entries in
// sealing position order.
func (s *LedgerStore) LoadChain(ctx context.Context) ([]core.Block, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT block_index, timestamp, previous_hash, merkle_root, nonce, hash, signature, validator_id
		FROM blocks ORDER BY block_index ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query blocks: %w", err)
	}
	defer rows.Close()

	var blocks []core.Block
	for rows.Next() {
		var block core.Block
		var timestamp string
		if err := rows.Scan(&block.Index, &timestamp, &block.PreviousHash, &block.MerkleRoot,
			&block.Nonce, &block.Hash, &block.Signature, &block.ValidatorID); err != nil {
			return nil, fmt.Errorf("failed to scan block: %w", err)
		}
		block.Timestamp, err = time.Parse(time.RFC3339Nano, timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to parse block %d timestamp: %w", block.Index, err)
		}
		block.Entries = []core.SealedEntry{}
		blocks = append(blocks, block)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate blocks: %w", err)
	}

	for i := range blocks {
		entries, err := s.loadEntries(ctx, blocks[i].Index)
		if err != nil {
			return nil, err
		}
		blocks[i].Entries = entries
	}
	return blocks, nil
}

func (s *LedgerStore) loadEntries(ctx context.Context, blockIndex uint64) ([]core.SealedEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sequence, entry_hash, record, executive_metadata, compliance_metadata, integrity_proof
		FROM entries WHERE block_index = ? ORDER BY position ASC`, blockIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries for block %d: %w", blockIndex, err)
	}
	defer rows.Close()

	entries := []core.SealedEntry{}
	for rows.Next() {
		var entry core.SealedEntry
		var record, compliance, proof string
		var executive sql.NullString
		if err := rows.Scan(&entry.ID, &entry.Sequence, &entry.EntryHash,
			&record, &executive, &compliance, &proof); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		if err := json.Unmarshal([]byte(record), &entry.Record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record for entry %s: %w", entry.ID, err)
		}
		if err := json.Unmarshal([]byte(compliance), &entry.ComplianceMetadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal compliance metadata for entry %s: %w", entry.ID, err)
		}
		if err := json.Unmarshal([]byte(proof), &entry.Proof); err != nil {
			return nil, fmt.Errorf("failed to unmarshal proof for entry %s: %w", entry.ID, err)
		}
		if executive.Valid {
			var meta core.ExecutiveMetadata
			if err := json.Unmarshal([]byte(executive.String), &meta); err != nil {
				return nil, fmt.Errorf("failed to unmarshal executive metadata for entry %s: %w", entry.ID, err)
			}
			entry.ExecutiveMetadata = &meta
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}
	return entries, nil
}

// MaxSequence returns the highest persisted entry sequence, or 0 when the
// ledger is empty. The engine seeds its sequence counter from this value
// so numbers are never reused across restarts.
func (s *LedgerStore) MaxSequence(ctx context.Context) (uint64, error) {
	var maxSeq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(sequence) FROM entries`).Scan(&maxSeq)
	if err != nil {
		return 0, fmt.Errorf("failed to query max sequence: %w", err)
	}
	if !maxSeq.Valid {
		return 0, nil
	}
	return uint64(maxSeq.Int64), nil
}

// Close closes the underlying database.
func (s *LedgerStore) Close() error {
	return s.db.Close()
}
