package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"veritas/core"
	"veritas/merkle"
)

func testStore(t *testing.T) *LedgerStore {
	t.Helper()
	store, err := NewLedgerStore(filepath.Join(t.TempDir(), "ledger.db"), zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func buildBlock(t *testing.T, hasher *core.Hasher, tip core.Block, seqStart uint64, n int) core.Block {
	t.Helper()
	factory := core.NewEntryFactory(hasher, seqStart)
	sealed := make([]core.SealedEntry, n)
	hashes := make([]string, n)
	for i := 0; i < n; i++ {
		entry, err := factory.CreateEntry(core.AuditRecord{
			OperationID: "op",
			Timestamp:   time.Date(2026, 5, 1, 12, 0, i, 0, time.UTC),
			Operation:   "vault.unseal",
			Result:      core.ResultSuccess,
			UserID:      "auditor",
		}, &core.ExecutiveMetadata{
			ExecutiveID:    "exec-9",
			Classification: core.ClassConfidential,
			Priority:       core.PriorityImportant,
		})
		require.NoError(t, err)
		hashes[i] = entry.EntryHash
		sealed[i] = core.SealedEntry{Entry: entry}
	}
	tree := merkle.Build(hasher, hashes)
	for i := range sealed {
		sealed[i].Proof = tree.Proofs[i]
	}

	block := core.Block{
		Index:        tip.Index + 1,
		Timestamp:    time.Now().UTC(),
		PreviousHash: tip.Hash,
		MerkleRoot:   tree.Root,
		Entries:      sealed,
		Nonce:        core.NewNonce(),
		Signature:    []byte("sig"),
		ValidatorID:  "validator-1",
	}
	block.Hash = block.ComputeHash(hasher)
	return block
}

func TestSaveAndLoadChainRoundTrip(t *testing.T) {
	store := testStore(t)
	hasher := core.MustNewHasher(core.HashSHA256)
	ctx := context.Background()

	genesis := core.NewGenesisBlock(hasher, time.Now())
	require.NoError(t, store.SaveBlock(ctx, genesis))

	b1 := buildBlock(t, hasher, genesis, 1, 3)
	require.NoError(t, store.SaveBlock(ctx, b1))
	b2 := buildBlock(t, hasher, b1, 4, 2)
	require.NoError(t, store.SaveBlock(ctx, b2))

	blocks, err := store.LoadChain(ctx)
	require.NoError(t, err)
	require.Len(t, blocks, 3)

	assert.Equal(t, genesis.Hash, blocks[0].Hash)
	assert.Equal(t, b1.MerkleRoot, blocks[1].MerkleRoot)
	assert.Equal(t, b1.Signature, blocks[1].Signature)
	require.Len(t, blocks[1].Entries, 3)

	restored := blocks[1].Entries[0]
	original := b1.Entries[0]
	assert.Equal(t, original.ID, restored.ID)
	assert.Equal(t, original.Sequence, restored.Sequence)
	assert.Equal(t, original.EntryHash, restored.EntryHash)
	assert.Equal(t, original.Record, restored.Record)
	assert.Equal(t, original.Proof, restored.Proof)
	require.NotNil(t, restored.ExecutiveMetadata)
	assert.Equal(t, "exec-9", restored.ExecutiveMetadata.ExecutiveID)
	assert.Equal(t, original.ComplianceMetadata, restored.ComplianceMetadata)

	// Entry order within a block is the sealing order
	for i := 1; i < len(blocks[1].Entries); i++ {
		assert.Greater(t, blocks[1].Entries[i].Sequence, blocks[1].Entries[i-1].Sequence)
	}
}

func TestMaxSequence(t *testing.T) {
	store := testStore(t)
	hasher := core.MustNewHasher(core.HashSHA256)
	ctx := context.Background()

	maxSeq, err := store.MaxSequence(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), maxSeq, "empty ledger reports zero")

	genesis := core.NewGenesisBlock(hasher, time.Now())
	require.NoError(t, store.SaveBlock(ctx, genesis))
	b1 := buildBlock(t, hasher, genesis, 1, 5)
	require.NoError(t, store.SaveBlock(ctx, b1))

	maxSeq, err = store.MaxSequence(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), maxSeq)
}

func TestDuplicateBlockIndexRejected(t *testing.T) {
	store := testStore(t)
	hasher := core.MustNewHasher(core.HashSHA256)
	ctx := context.Background()

	genesis := core.NewGenesisBlock(hasher, time.Now())
	require.NoError(t, store.SaveBlock(ctx, genesis))
	err := store.SaveBlock(ctx, genesis)
	require.Error(t, err, "block indexes are unique; re-saving must fail")
}
