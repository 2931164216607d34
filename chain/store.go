// Package chain implements the append-only block chain engine: the pending
// entry buffer and seal triggers, the hash-linked block store, the
// background integrity validator, and the engine facade producers talk to.
package chain

import (
	"fmt"
	"sync"

	"veritas/core"
)

// entryLocation addresses a sealed entry by containing block and position.
type entryLocation struct {
	blockIndex uint64
	position   int
}

// Store is the ordered, append-only sequence of sealed blocks. Appends are
// funneled through the engine's writer section; reads may run concurrently
// because sealed blocks are immutable values.
type Store struct {
	mu      sync.RWMutex
	blocks  []core.Block
	byEntry map[string]entryLocation
}

// NewStore creates a store seeded with the given blocks (genesis first).
// Restored blocks are trusted at load time; the validator re-checks them on
// its first cycle.
func NewStore(blocks []core.Block) (*Store, error) {
	if len(blocks) == 0 {
		return nil, fmt.Errorf("store requires at least the genesis block")
	}
	s := &Store{
		blocks:  make([]core.Block, 0, len(blocks)),
		byEntry: make(map[string]entryLocation),
	}
	s.blocks = append(s.blocks, blocks[0])
	s.indexEntries(blocks[0])
	for _, b := range blocks[1:] {
		if err := s.Append(b); err != nil {
			return nil, fmt.Errorf("restored chain is not linked at block %d: %w", b.Index, err)
		}
	}
	return s, nil
}

// Append adds a sealed block to the chain. The block's previous hash must
// match the current tip hash and its index must be the next in sequence.
func (s *Store) Append(block core.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tip := s.blocks[len(s.blocks)-1]
	if block.Index != tip.Index+1 {
		return fmt.Errorf("%w: expected index %d, got %d", core.ErrLinkage, tip.Index+1, block.Index)
	}
	if block.PreviousHash != tip.Hash {
		return fmt.Errorf("%w: previous hash %s does not match tip %s", core.ErrLinkage, block.PreviousHash, tip.Hash)
	}

	s.blocks = append(s.blocks, block)
	s.indexEntries(block)
	return nil
}

func (s *Store) indexEntries(block core.Block) {
	for position, entry := range block.Entries {
		s.byEntry[entry.ID] = entryLocation{blockIndex: block.Index, position: position}
	}
}

// GetBlock returns the block at the given index.
func (s *Store) GetBlock(index uint64) (core.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index >= uint64(len(s.blocks)) {
		return core.Block{}, fmt.Errorf("%w: index %d, chain length %d", core.ErrBlockNotFound, index, len(s.blocks))
	}
	return s.blocks[index], nil
}

// Latest returns the chain tip.
func (s *Store) Latest() core.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.blocks[len(s.blocks)-1]
}

// Length returns the number of blocks including genesis.
func (s *Store) Length() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.blocks))
}

// Snapshot returns a copy of the first n blocks (or all when n exceeds the
// length). The validator runs against such a snapshot so blocks sealed
// mid-validation are simply covered on the next cycle.
func (s *Store) Snapshot(n uint64) []core.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n > uint64(len(s.blocks)) {
		n = uint64(len(s.blocks))
	}
	out := make([]core.Block, n)
	copy(out, s.blocks[:n])
	return out
}

// FindEntry locates a sealed entry and its containing block by entry id.
func (s *Store) FindEntry(id string) (core.SealedEntry, core.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	loc, ok := s.byEntry[id]
	if !ok {
		return core.SealedEntry{}, core.Block{}, fmt.Errorf("%w: %s", core.ErrEntryNotFound, id)
	}
	block := s.blocks[loc.blockIndex]
	return block.Entries[loc.position], block, nil
}
