package chain

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"veritas/config"
	"veritas/core"
	"veritas/merkle"
	"veritas/metrics"
	"veritas/notify"
	"veritas/signer"
	"veritas/storage"
)

// seal trigger labels for metrics and logs
const (
	sealTriggerSize     = "block_size"
	sealTriggerPriority = "priority"
	sealTriggerResult   = "result"
	sealTriggerShutdown = "shutdown"
)

// Engine is one tamper-evident audit ledger instance. It owns the chain for
// a single logical audit stream: the pending buffer, sequence assignment,
// sealing, and the background validator all belong to this instance; there
// is no process-wide state.
//
// Ingestion runs inside a single writer section so sequence assignment,
// proof finalization, and chain append are never interleaved. Reads run
// concurrently against immutable sealed state.
type Engine struct {
	cfg       *config.Config
	logger    *zap.SugaredLogger
	hasher    *core.Hasher
	authority signer.Signer
	store     *Store
	validator *Validator
	notifier  *notify.Notifier
	ledger    *storage.LedgerStore // nil when persistence is disabled
	backoff   core.BackoffConfig

	writerMu     sync.Mutex // guards pending, factory, seal, append
	factory      *core.EntryFactory
	pending      []core.Entry
	unsaved      []core.Block // blocks whose persistence failed, retried later
	closed       bool
	lastSealedAt time.Time
	signingDown  bool

	stateMu         sync.RWMutex // guards validation state
	lastValidation  *ValidationResult
	lastValidatedAt time.Time
	compromisedAt   int64 // first failing block index, -1 when intact

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine constructs an engine. When ledger is non-nil the persisted
// chain is restored and the sequence counter resumes after the highest
// stored sequence; otherwise a fresh chain starts at genesis.
func NewEngine(cfg *config.Config, authority signer.Signer, ledger *storage.LedgerStore, notifier *notify.Notifier, logger *zap.SugaredLogger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}

	hasher, err := core.NewHasher(core.HashAlgorithm(cfg.Chain.HashAlgorithm))
	if err != nil {
		return nil, err
	}

	blocks, nextSequence, err := restoreChain(ledger, hasher)
	if err != nil {
		return nil, err
	}

	store, err := NewStore(blocks)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		cfg:           cfg,
		logger:        logger,
		hasher:        hasher,
		authority:     authority,
		store:         store,
		validator:     NewValidator(store, hasher, authority, logger),
		notifier:      notifier,
		ledger:        ledger,
		backoff:       cfg.Backoff(),
		factory:       core.NewEntryFactory(hasher, nextSequence),
		lastSealedAt:  store.Latest().Timestamp,
		compromisedAt: -1,
	}

	logger.Infow("audit ledger engine ready",
		"chain_length", store.Length(),
		"next_sequence", nextSequence,
		"hash_algorithm", hasher.Algorithm(),
		"validator_id", authority.ValidatorID())
	return engine, nil
}

// restoreChain loads persisted blocks, creating and persisting genesis when
// the ledger is empty or persistence is disabled.
func restoreChain(ledger *storage.LedgerStore, hasher *core.Hasher) ([]core.Block, uint64, error) {
	if ledger == nil {
		return []core.Block{core.NewGenesisBlock(hasher, time.Now())}, 1, nil
	}

	ctx := context.Background()
	blocks, err := ledger.LoadChain(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to restore chain: %w", err)
	}
	if len(blocks) == 0 {
		genesis := core.NewGenesisBlock(hasher, time.Now())
		if err := ledger.SaveBlock(ctx, genesis); err != nil {
			return nil, 0, fmt.Errorf("failed to persist genesis block: %w", err)
		}
		return []core.Block{genesis}, 1, nil
	}

	maxSeq, err := ledger.MaxSequence(ctx)
	if err != nil {
		return nil, 0, err
	}
	return blocks, maxSeq + 1, nil
}

// Start launches the periodic full-chain validator. It runs until Close.
func (e *Engine) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.notifier.Start()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(e.cfg.Chain.ValidationInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.runValidation()
			}
		}
	}()
}

func (e *Engine) runValidation() {
	result := e.validator.VerifyChain()
	now := time.Now().UTC()

	e.stateMu.Lock()
	e.lastValidation = &result
	e.lastValidatedAt = now
	if !result.OK && (e.compromisedAt < 0 || uint64(e.compromisedAt) > result.FirstBadIndex) {
		e.compromisedAt = int64(result.FirstBadIndex)
	}
	e.stateMu.Unlock()

	if !result.OK {
		// The chain is flagged compromised from this block forward; the
		// engine keeps accepting entries so evidence capture continues.
		e.logger.Errorw("chain compromised",
			"first_bad_index", result.FirstBadIndex,
			"blocks_checked", result.BlocksChecked)
	}
}

// AddAuditEntry validates and ingests one audit record, returning the new
// entry id. The entry lands in the pending buffer and at most one seal is
// triggered by this call. A seal failure (signing unavailable) does not
// fail the call: the entry stays buffered and sealing is retried on later
// ingestion.
func (e *Engine) AddAuditEntry(ctx context.Context, record core.AuditRecord, meta *core.ExecutiveMetadata) (string, error) {
	e.writerMu.Lock()
	defer e.writerMu.Unlock()

	if e.closed {
		return "", core.ErrClosed
	}
	if len(e.pending) >= e.cfg.Chain.MaxPendingEntries {
		metrics.EntriesRejected.WithLabelValues("backpressure").Inc()
		return "", fmt.Errorf("%w: %d entries pending", core.ErrBackpressure, len(e.pending))
	}

	entry, err := e.factory.CreateEntry(record, meta)
	if err != nil {
		metrics.EntriesRejected.WithLabelValues("validation").Inc()
		return "", err
	}

	e.pending = append(e.pending, entry)
	metrics.EntriesIngested.WithLabelValues(record.Result.String()).Inc()
	metrics.PendingEntries.Set(float64(len(e.pending)))

	if trigger := e.sealTrigger(entry); trigger != "" {
		if err := e.sealLocked(ctx, trigger); err != nil {
			e.logger.Errorw("seal failed, entries remain pending",
				"trigger", trigger, "pending", len(e.pending), "error", err)
		}
	}

	return entry.ID, nil
}

// sealTrigger returns the trigger label when the buffer must seal now, or
// "" when the entry just accumulates.
func (e *Engine) sealTrigger(entry core.Entry) string {
	if entry.ExecutiveMetadata != nil && entry.ExecutiveMetadata.Priority.TriggersSeal() {
		return sealTriggerPriority
	}
	if entry.Record.Result.TriggersSeal() {
		return sealTriggerResult
	}
	if len(e.pending) >= e.cfg.Chain.BlockSize {
		return sealTriggerSize
	}
	return ""
}

// sealLocked freezes the pending buffer into a signed block and appends it.
// Caller must hold writerMu. On signing failure the buffer is left intact.
func (e *Engine) sealLocked(ctx context.Context, trigger string) error {
	if len(e.pending) == 0 {
		return nil
	}
	started := time.Now()

	tree := merkle.Build(e.hasher, entryHashes(e.pending))
	sealed := make([]core.SealedEntry, len(e.pending))
	for i, entry := range e.pending {
		sealed[i] = core.SealedEntry{Entry: entry, Proof: tree.Proofs[i]}
	}

	tip := e.store.Latest()
	block := core.Block{
		Index:        tip.Index + 1,
		Timestamp:    time.Now().UTC(),
		PreviousHash: tip.Hash,
		MerkleRoot:   tree.Root,
		Entries:      sealed,
		Nonce:        core.NewNonce(),
		ValidatorID:  e.authority.ValidatorID(),
	}
	block.Hash = block.ComputeHash(e.hasher)

	// An unsigned block violates the integrity contract: retry with bounded
	// backoff and keep the buffer pending when the budget is exhausted.
	var signature []byte
	attempt := 0
	err := e.backoff.Retry(ctx, func() error {
		attempt++
		if attempt > 1 {
			metrics.SigningRetries.Inc()
		}
		var signErr error
		signature, signErr = e.authority.Sign(ctx, []byte(block.Hash))
		return signErr
	})
	if err != nil {
		e.signingDown = true
		return fmt.Errorf("%w: %v", core.ErrSigningUnavailable, err)
	}
	e.signingDown = false
	block.Signature = signature

	if err := e.store.Append(block); err != nil {
		// Cannot happen under the writer lock; treat as corruption.
		return fmt.Errorf("failed to append sealed block: %w", err)
	}

	e.pending = e.pending[:0]
	e.lastSealedAt = block.Timestamp
	metrics.PendingEntries.Set(0)
	metrics.BlocksSealed.WithLabelValues(trigger).Inc()
	metrics.SealDuration.Observe(time.Since(started).Seconds())

	e.persistLocked(ctx, block)

	e.notifier.Publish(notify.BlockSealed{
		Index:      block.Index,
		Hash:       block.Hash,
		EntryCount: len(block.Entries),
		SealedAt:   block.Timestamp,
	})

	e.logger.Infow("block sealed",
		"index", block.Index,
		"entries", len(block.Entries),
		"trigger", trigger,
		"merkle_root", block.MerkleRoot)
	return nil
}

// persistLocked writes the block (and any previously unsaved blocks) to the
// ledger. Persistence failures never fail a seal: the block is already
// appended in memory and retried on the next seal and at shutdown.
func (e *Engine) persistLocked(ctx context.Context, block core.Block) {
	if e.ledger == nil {
		return
	}
	queue := append(e.unsaved, block)
	e.unsaved = e.unsaved[:0]
	for i, b := range queue {
		if err := e.ledger.SaveBlock(ctx, b); err != nil {
			metrics.PersistFailures.Inc()
			e.logger.Errorw("failed to persist block, will retry",
				"index", b.Index, "error", err)
			e.unsaved = append(e.unsaved, queue[i:]...)
			return
		}
	}
}

func entryHashes(entries []core.Entry) []string {
	hashes := make([]string, len(entries))
	for i, entry := range entries {
		hashes[i] = entry.EntryHash
	}
	return hashes
}

// VerifyChainIntegrity runs a full-chain validation now and returns whether
// the chain is intact; when it is not, the second return is the index of
// the first failing block.
func (e *Engine) VerifyChainIntegrity() (bool, uint64) {
	result := e.validator.VerifyChain()

	e.stateMu.Lock()
	e.lastValidation = &result
	e.lastValidatedAt = time.Now().UTC()
	if !result.OK && (e.compromisedAt < 0 || uint64(e.compromisedAt) > result.FirstBadIndex) {
		e.compromisedAt = int64(result.FirstBadIndex)
	}
	e.stateMu.Unlock()

	return result.OK, result.FirstBadIndex
}

// VerifyEntryIntegrity verifies a single sealed entry by id.
func (e *Engine) VerifyEntryIntegrity(entryID string) (bool, error) {
	return e.validator.VerifyEntry(entryID)
}

// Subscribe registers an in-process subscriber for block-sealed events.
func (e *Engine) Subscribe(sub notify.Subscriber) {
	e.notifier.Subscribe(sub)
}

// Store exposes read access to sealed chain state for the query surface.
func (e *Engine) Store() *Store {
	return e.store
}

// Hasher returns the chain's content hasher.
func (e *Engine) Hasher() *core.Hasher {
	return e.hasher
}

// PendingCount returns the current pending buffer depth.
func (e *Engine) PendingCount() int {
	e.writerMu.Lock()
	defer e.writerMu.Unlock()
	return len(e.pending)
}

// SigningDegraded reports whether the most recent seal attempt exhausted its
// signing retry budget. It clears on the next successful seal.
func (e *Engine) SigningDegraded() bool {
	e.writerMu.Lock()
	defer e.writerMu.Unlock()
	return e.signingDown
}

// LastSealedAt returns the timestamp of the most recently sealed block, or
// the genesis timestamp when nothing has sealed yet.
func (e *Engine) LastSealedAt() time.Time {
	e.writerMu.Lock()
	defer e.writerMu.Unlock()
	return e.lastSealedAt
}

// LastValidation returns the most recent validation result and its time,
// or nil when no validation has run yet.
func (e *Engine) LastValidation() (*ValidationResult, time.Time) {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.lastValidation, e.lastValidatedAt
}

// CompromisedFrom returns the first block index flagged by a failed
// validation, or -1 while the chain is intact.
func (e *Engine) CompromisedFrom() int64 {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.compromisedAt
}

// Close shuts the engine down: the validation timer is cancelled first to
// avoid re-entrant scheduling, any non-empty pending buffer is force-sealed
// into a final block, one last full-chain validation runs, and resources
// are released.
func (e *Engine) Close(ctx context.Context) error {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()

	e.writerMu.Lock()
	if e.closed {
		e.writerMu.Unlock()
		return core.ErrClosed
	}
	var sealErr error
	if len(e.pending) > 0 {
		sealErr = e.sealLocked(ctx, sealTriggerShutdown)
	}
	if e.ledger != nil && len(e.unsaved) > 0 {
		last := e.unsaved[len(e.unsaved)-1]
		e.unsaved = e.unsaved[:len(e.unsaved)-1]
		e.persistLocked(ctx, last)
	}
	e.closed = true
	e.writerMu.Unlock()

	e.runValidation()
	e.notifier.Stop()

	if e.ledger != nil {
		if err := e.ledger.Close(); err != nil {
			e.logger.Errorw("failed to close ledger store", "error", err)
		}
	}

	if sealErr != nil {
		return fmt.Errorf("shutdown seal failed: %w", sealErr)
	}
	return nil
}
