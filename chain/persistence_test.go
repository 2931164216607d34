package chain

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"veritas/notify"
	"veritas/storage"
)

func TestEngineRestoresChainAndSequenceAcrossRestart(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	logger := zap.NewNop().Sugar()
	authority := mustSigner(t)
	ctx := context.Background()

	ledger, err := storage.NewLedgerStore(dbPath, logger)
	require.NoError(t, err)
	engine, err := NewEngine(testConfig(3), authority, ledger, notify.NewNotifier(nil, logger), logger)
	require.NoError(t, err)

	for i := 0; i < 7; i++ {
		_, err := engine.AddAuditEntry(ctx, routineRecord(fmt.Sprintf("op-%d", i)), nil)
		require.NoError(t, err)
	}
	// 7 entries with block size 3: two sealed blocks, one entry force-sealed
	// at shutdown.
	require.NoError(t, engine.Close(ctx))
	require.Equal(t, uint64(4), engine.Store().Length())

	reopened, err := storage.NewLedgerStore(dbPath, logger)
	require.NoError(t, err)
	restarted, err := NewEngine(testConfig(3), authority, reopened, notify.NewNotifier(nil, logger), logger)
	require.NoError(t, err)

	assert.Equal(t, uint64(4), restarted.Store().Length(), "the sealed chain survives restart")

	ok, _ := restarted.VerifyChainIntegrity()
	assert.True(t, ok, "the restored chain validates end to end")

	// Sequence numbers resume after the highest persisted one
	id, err := restarted.AddAuditEntry(ctx, routineRecord("op-after-restart"), nil)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Equal(t, uint64(9), restarted.factory.NextSequence(),
		"7 persisted entries, the 8th assigned after restart")

	require.NoError(t, restarted.Close(ctx))
}

func TestEnginePersistsBlocksAsSealed(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	logger := zap.NewNop().Sugar()
	ctx := context.Background()

	ledger, err := storage.NewLedgerStore(dbPath, logger)
	require.NoError(t, err)
	engine, err := NewEngine(testConfig(2), mustSigner(t), ledger, notify.NewNotifier(nil, logger), logger)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := engine.AddAuditEntry(ctx, routineRecord(fmt.Sprintf("op-%d", i)), nil)
		require.NoError(t, err)
	}
	require.NoError(t, engine.Close(ctx))

	reopened, err := storage.NewLedgerStore(dbPath, logger)
	require.NoError(t, err)
	defer reopened.Close()

	blocks, err := reopened.LoadChain(ctx)
	require.NoError(t, err)
	require.Len(t, blocks, 3, "genesis plus two sealed blocks")
	assert.Equal(t, engine.Store().Latest().Hash, blocks[2].Hash)
}
