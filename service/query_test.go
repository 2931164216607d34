package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"veritas/chain"
	"veritas/config"
	"veritas/core"
	"veritas/notify"
	"veritas/signer"
)

func testService(t *testing.T, blockSize int) (*QueryService, *chain.Engine) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Chain.HashAlgorithm = string(core.HashSHA256)
	cfg.Chain.BlockSize = blockSize
	cfg.Chain.MaxPendingEntries = blockSize * 100
	cfg.Chain.ValidationInterval = time.Minute
	cfg.Signing.Backend = "local"
	cfg.Signing.ValidatorID = "test-validator"
	cfg.Signing.Backoff.Initial = time.Millisecond
	cfg.Signing.Backoff.Factor = 2
	cfg.Signing.Backoff.Max = 5 * time.Millisecond
	cfg.Signing.Backoff.MaxAttempts = 3

	logger := zap.NewNop().Sugar()
	authority, err := signer.GenerateEd25519Signer("test-validator")
	require.NoError(t, err)
	engine, err := chain.NewEngine(cfg, authority, nil, notify.NewNotifier(nil, logger), logger)
	require.NoError(t, err)
	return NewQueryService(engine, logger), engine
}

func recordAt(opID string, ts time.Time) core.AuditRecord {
	return core.AuditRecord{
		OperationID: opID,
		Timestamp:   ts,
		Operation:   "hsm.sign",
		Result:      core.ResultSuccess,
	}
}

func TestGetAuditTrailRangeAndOrder(t *testing.T) {
	svc, engine := testService(t, 2)
	ctx := context.Background()
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 6; i++ {
		_, err := engine.AddAuditEntry(ctx, recordAt(fmt.Sprintf("op-%d", i), base.Add(time.Duration(i)*time.Hour)), nil)
		require.NoError(t, err)
	}

	trail := svc.GetAuditTrail(base.Add(1*time.Hour), base.Add(4*time.Hour))
	require.Len(t, trail, 4)
	for i := 1; i < len(trail); i++ {
		assert.Greater(t, trail[i].Sequence, trail[i-1].Sequence, "trail is ascending by sequence")
	}
	assert.Equal(t, "op-1", trail[0].Record.OperationID)
	assert.Equal(t, "op-4", trail[3].Record.OperationID)
}

func TestGetAuditTrailIsIdempotent(t *testing.T) {
	svc, engine := testService(t, 2)
	ctx := context.Background()
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		_, err := engine.AddAuditEntry(ctx, recordAt(fmt.Sprintf("op-%d", i), base.Add(time.Duration(i)*time.Minute)), nil)
		require.NoError(t, err)
	}

	first := svc.GetAuditTrail(base, base.Add(time.Hour))
	second := svc.GetAuditTrail(base, base.Add(time.Hour))
	assert.Equal(t, first, second, "repeated reads with no writes are identical")
}

func TestGetAuditTrailExcludesPendingEntries(t *testing.T) {
	svc, engine := testService(t, 100)
	ctx := context.Background()
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	_, err := engine.AddAuditEntry(ctx, recordAt("op-pending", base), nil)
	require.NoError(t, err)

	assert.Empty(t, svc.GetAuditTrail(base.Add(-time.Hour), base.Add(time.Hour)),
		"the pending buffer is never exposed to readers")
}

func TestGetExecutiveAuditTrail(t *testing.T) {
	svc, engine := testService(t, 1)
	ctx := context.Background()
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_, err := engine.AddAuditEntry(ctx, recordAt(fmt.Sprintf("exec-op-%d", i), base.Add(time.Duration(i)*time.Hour)),
			&core.ExecutiveMetadata{
				ExecutiveID:    "exec-1",
				Classification: core.ClassSecret,
			})
		require.NoError(t, err)
	}
	_, err := engine.AddAuditEntry(ctx, recordAt("other-op", base),
		&core.ExecutiveMetadata{ExecutiveID: "exec-2", Classification: core.ClassSecret})
	require.NoError(t, err)
	_, err = engine.AddAuditEntry(ctx, recordAt("untagged-op", base), nil)
	require.NoError(t, err)

	trail := svc.GetExecutiveAuditTrail("exec-1")
	require.Len(t, trail, 3)
	for i := 1; i < len(trail); i++ {
		assert.False(t, trail[i].Timestamp().After(trail[i-1].Timestamp()),
			"executive trail is descending by timestamp")
	}

	assert.Empty(t, svc.GetExecutiveAuditTrail("exec-1", core.ClassTopSecret))
	assert.Len(t, svc.GetExecutiveAuditTrail("exec-1", core.ClassSecret), 3)
}

func TestGetChainMetrics(t *testing.T) {
	svc, engine := testService(t, 2)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := engine.AddAuditEntry(ctx, recordAt(fmt.Sprintf("op-%d", i), time.Now().UTC()), nil)
		require.NoError(t, err)
	}
	_, err := engine.AddAuditEntry(ctx, recordAt("op-pending", time.Now().UTC()), nil)
	require.NoError(t, err)

	m := svc.GetChainMetrics()
	assert.Equal(t, uint64(3), m.BlockCount, "genesis plus two sealed blocks")
	assert.Equal(t, uint64(4), m.EntryCount)
	assert.Equal(t, 1, m.PendingEntries)
	assert.Equal(t, int64(-1), m.CompromisedFrom)
	assert.False(t, m.SigningDegraded)
	assert.False(t, m.LastSealedAt.IsZero())
	assert.Nil(t, m.LastValidationOK, "no validation has run yet")

	ok, _ := engine.VerifyChainIntegrity()
	require.True(t, ok)
	m = svc.GetChainMetrics()
	require.NotNil(t, m.LastValidationOK)
	assert.True(t, *m.LastValidationOK)
	assert.False(t, m.LastValidatedAt.IsZero())
}
