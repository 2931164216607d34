package chain

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"veritas/core"
	"veritas/merkle"
	"veritas/metrics"
	"veritas/signer"
)

const proofCacheSize = 4096

// ValidationResult is the outcome of one full-chain validation run.
type ValidationResult struct {
	// OK is true when every validated block passed
	OK bool
	// FirstBadIndex is the index of the first failing block; meaningful
	// only when OK is false
	FirstBadIndex uint64
	// BlocksChecked is the length snapshot the run covered
	BlocksChecked uint64
}

// Validator recomputes and checks hashes, signatures, linkage, and Merkle
// roots over sealed state. A validation failure is a security event, not a
// programming error: methods report it, they never panic.
type Validator struct {
	store      *Store
	hasher     *core.Hasher
	authority  signer.Signer
	logger     *zap.SugaredLogger
	proofCache *lru.Cache[string, bool]
}

// NewValidator creates a validator over the given store.
func NewValidator(store *Store, hasher *core.Hasher, authority signer.Signer, logger *zap.SugaredLogger) *Validator {
	// Sealed entries are immutable, so a positive proof verification never
	// goes stale; the cache is bounded by size, not TTL.
	cache, _ := lru.New[string, bool](proofCacheSize)
	return &Validator{
		store:      store,
		hasher:     hasher,
		authority:  authority,
		logger:     logger,
		proofCache: cache,
	}
}

// VerifyChain validates every block in a length snapshot taken at the start
// of the run: hash recomputation, signature, Merkle root, and linkage.
// Blocks sealed while the run is in progress are validated on the next
// cycle.
func (v *Validator) VerifyChain() ValidationResult {
	blocks := v.store.Snapshot(v.store.Length())

	for i, block := range blocks {
		if kind, err := v.verifyBlock(block, blocks, i); err != nil {
			v.logger.Errorw("chain integrity violation",
				"block_index", block.Index, "kind", kind, "error", err)
			metrics.IntegrityViolations.WithLabelValues(kind).Inc()
			metrics.ChainValidations.WithLabelValues("failed").Inc()
			return ValidationResult{OK: false, FirstBadIndex: block.Index, BlocksChecked: uint64(len(blocks))}
		}
	}

	metrics.ChainValidations.WithLabelValues("passed").Inc()
	return ValidationResult{OK: true, BlocksChecked: uint64(len(blocks))}
}

// verifyBlock returns the violation kind and error for the first failed
// check, or ("", nil) when the block is intact.
func (v *Validator) verifyBlock(block core.Block, blocks []core.Block, i int) (string, error) {
	if i > 0 {
		prev := blocks[i-1]
		if block.PreviousHash != prev.Hash {
			return "linkage", fmt.Errorf("%w: block %d previous hash does not match block %d hash",
				core.ErrIntegrity, block.Index, prev.Index)
		}
	}

	if root := merkle.Root(v.hasher, block.EntryHashes()); root != block.MerkleRoot {
		return "merkle_root", fmt.Errorf("%w: block %d merkle root mismatch", core.ErrIntegrity, block.Index)
	}

	if computed := block.ComputeHash(v.hasher); computed != block.Hash {
		return "block_hash", fmt.Errorf("%w: block %d hash mismatch", core.ErrIntegrity, block.Index)
	}

	if !block.IsGenesis() {
		if len(block.Signature) == 0 {
			return "signature", fmt.Errorf("%w: block %d is unsigned", core.ErrIntegrity, block.Index)
		}
		if !v.authority.Verify([]byte(block.Hash), block.Signature) {
			return "signature", fmt.Errorf("%w: block %d signature invalid for validator %s",
				core.ErrIntegrity, block.Index, block.ValidatorID)
		}
	}

	return "", nil
}

// VerifyEntry checks a single sealed entry: the stored record still hashes
// to the stored entry hash (payload tampering), and the stored Merkle proof
// still replays to the containing block's root (positional tampering).
func (v *Validator) VerifyEntry(entryID string) (bool, error) {
	entry, block, err := v.store.FindEntry(entryID)
	if err != nil {
		return false, err
	}

	if recomputed := v.hasher.SumString(core.CanonicalRecord(entry.Record)); recomputed != entry.EntryHash {
		v.proofCache.Remove(entryID)
		return false, nil
	}

	if ok, cached := v.proofCache.Get(entryID); cached {
		return ok, nil
	}

	ok := merkle.VerifyProof(v.hasher, entry.EntryHash, entry.Proof, block.MerkleRoot)
	v.proofCache.Add(entryID, ok)
	return ok, nil
}
