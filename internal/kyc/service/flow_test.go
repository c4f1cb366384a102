package service

import (
	"context"
	"fmt"
	"math/big"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dkyc/internal/kyc/metrics"
	"dkyc/internal/kyc/models"
	"dkyc/internal/kyc/workflow"
	"dkyc/pkg/domain"
	dErrors "dkyc/pkg/domain-errors"
	"dkyc/pkg/testutil"
)

// memoryLedger is an in-process ledger with the contract's duplicate and
// existence rules. Its records carry no explicit verified flag unless
// flagged is set.
type memoryLedger struct {
	mu       sync.Mutex
	records  map[[32]byte]models.SubmitParams
	flagged  map[[32]byte]bool
	writes   int
	minFee   *big.Int
	sequence int
	failWith error
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{
		records: make(map[[32]byte]models.SubmitParams),
		flagged: make(map[[32]byte]bool),
		minFee:  big.NewInt(10_000_000_000_000_000),
	}
}

func (l *memoryLedger) write(p models.SubmitParams, fee *big.Int, mustExist bool) (*models.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writes++
	if l.failWith != nil {
		return nil, l.failWith
	}
	if fee.Cmp(l.minFee) < 0 {
		return nil, dErrors.New(dErrors.CodeLedgerRejected, "Insufficient fee")
	}
	_, exists := l.records[p.CustomerID.Key()]
	if mustExist && !exists {
		return nil, dErrors.New(dErrors.CodeLedgerRejected, "KYC not found")
	}
	if !mustExist && exists {
		return nil, dErrors.New(dErrors.CodeLedgerRejected, "KYC already exists")
	}
	l.records[p.CustomerID.Key()] = p
	l.sequence++
	return &models.Receipt{TxID: fmt.Sprintf("0x%064x", l.sequence), BlockNumber: uint64(l.sequence)}, nil
}

func (l *memoryLedger) Submit(_ context.Context, p models.SubmitParams, fee *big.Int) (*models.Receipt, error) {
	return l.write(p, fee, false)
}

func (l *memoryLedger) Update(_ context.Context, p models.SubmitParams, fee *big.Int) (*models.Receipt, error) {
	return l.write(p, fee, true)
}

func (l *memoryLedger) Get(_ context.Context, id domain.CustomerID) (*models.LedgerRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fields := testutil.NewLedgerFields().Without(models.FieldVerified)
	if p, ok := l.records[id.Key()]; ok {
		fields.FromParams(p)
	}
	if verified, set := l.flagged[id.Key()]; set {
		fields.WithVerified(verified)
	}
	return &models.LedgerRecord{CustomerID: id, Fields: fields.Build()}, nil
}

func (l *memoryLedger) Fee(context.Context) (*big.Int, error) {
	return new(big.Int).Set(l.minFee), nil
}

func TestSubmitThenRetrieve(t *testing.T) {
	ledger := newMemoryLedger()
	svc := New(ledger, nil, nil, WithLogger(discardLogger()))
	ctx := context.Background()

	receipt, err := svc.Submit(ctx, validCommand())
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.TxID)

	_, err = svc.Submit(ctx, validCommand())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeLedgerRejected))
	assert.Equal(t, "KYC already exists", err.Error())

	rec, err := svc.Retrieve(ctx, strings.ToLower(customerHex))
	require.NoError(t, err)
	assert.Equal(t, customerHex, rec.CustomerID.String())
	assert.Equal(t, "Jane Doe", rec.Name)
	assert.Equal(t, "1990-01-01", rec.DateOfBirth)
	assert.Equal(t, "1 Main St", rec.HomeAddress)
	assert.Equal(t, "0x"+strings.Repeat("11", 32), rec.DocumentHash.String())
	assert.Equal(t, domain.StorageKey("uploads/123-id.png"), rec.StorageKey)
	assert.True(t, rec.Exists)
	assert.True(t, rec.Verified, "non-zero document hash without a flag counts as verified")

	id, _ := domain.ParseCustomerID(customerHex)
	ledger.flagged[id.Key()] = false
	rec, err = svc.Retrieve(ctx, customerHex)
	require.NoError(t, err)
	assert.False(t, rec.Verified, "an explicit ledger flag wins")
}

func TestUpdateReplacesRecordWholesale(t *testing.T) {
	ledger := newMemoryLedger()
	svc := New(ledger, nil, nil, WithLogger(discardLogger()))
	ctx := context.Background()

	_, err := svc.Update(ctx, validCommand())
	assert.ErrorIs(t, err, ErrNoRecord)
	assert.Zero(t, ledger.writes, "precondition failure pays no fee")

	_, err = svc.Submit(ctx, validCommand())
	require.NoError(t, err)

	cmd := validCommand()
	cmd.HomeAddress = "2 High St"
	cmd.StorageKey = ""
	_, err = svc.Update(ctx, cmd)
	require.NoError(t, err)

	rec, err := svc.Retrieve(ctx, customerHex)
	require.NoError(t, err)
	assert.Equal(t, "2 High St", rec.HomeAddress)
	assert.True(t, rec.StorageKey.IsNil())
}

func TestFailedAmendKeepsCommittedUpload(t *testing.T) {
	journal, err := workflow.OpenBoltJournal(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = journal.Close() })

	m := metrics.New(prometheus.NewRegistry())
	tracker := workflow.NewTracker(workflow.WithJournal(journal), workflow.WithMetrics(m), workflow.WithLogger(discardLogger()))
	ledger := newMemoryLedger()
	svc := New(ledger, nil, nil, WithLogger(discardLogger()), WithTracker(tracker))
	ctx := context.Background()

	cmd := validCommand()
	tracker.UploadIssued(ctx, cmd.StorageKey)
	receipt, err := svc.Submit(ctx, cmd)
	require.NoError(t, err)

	ledger.failWith = dErrors.New(dErrors.CodeLedgerUnavailable, "ledger update failed")
	cmd.HomeAddress = "2 High St"
	_, err = svc.Update(ctx, cmd)
	require.True(t, dErrors.HasCode(err, dErrors.CodeLedgerUnavailable))

	assert.Zero(t, promtestutil.ToFloat64(m.OrphanedUploadsTotal), "object is still referenced by the committed record")

	committed, err := journal.Get(ctx, cmd.StorageKey)
	require.NoError(t, err)
	assert.Equal(t, workflow.StateCommitted, committed.State)
	assert.Equal(t, receipt.TxID, committed.TxID)

	failed, err := journal.List(ctx, workflow.StateFailed, 0)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, workflow.KindUpdate, failed[0].Kind)
	assert.False(t, failed[0].Orphaned())
}

// blockingLedger holds Submit until released.
type blockingLedger struct {
	*memoryLedger
	entered chan struct{}
	release chan struct{}
}

func (l *blockingLedger) Submit(ctx context.Context, p models.SubmitParams, fee *big.Int) (*models.Receipt, error) {
	l.entered <- struct{}{}
	<-l.release
	return l.memoryLedger.Submit(ctx, p, fee)
}

func TestWritesForOneCustomerAreSerialised(t *testing.T) {
	ledger := &blockingLedger{memoryLedger: newMemoryLedger(), entered: make(chan struct{}, 2), release: make(chan struct{})}
	svc := New(ledger, nil, nil, WithLogger(discardLogger()))

	done := make(chan error, 1)
	go func() {
		_, err := svc.Submit(context.Background(), validCommand())
		done <- err
	}()
	<-ledger.entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := svc.Submit(ctx, validCommand())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeLedgerUnavailable))

	other := validCommand()
	other.CustomerID = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
	go func() {
		_, _ = svc.Submit(context.Background(), other)
	}()
	select {
	case <-ledger.entered:
	case <-time.After(time.Second):
		t.Fatal("a different customer's write was blocked")
	}

	close(ledger.release)
	require.NoError(t, <-done)
}

func TestConcurrentSubmitsOneWins(t *testing.T) {
	ledger := newMemoryLedger()
	svc := New(ledger, nil, nil, WithLogger(discardLogger()))

	res := testutil.RunConcurrentCtx(context.Background(), 8, func(ctx context.Context, _ int) error {
		_, err := svc.Submit(ctx, validCommand())
		return err
	})
	assert.EqualValues(t, 1, res.Successes)
	assert.EqualValues(t, 7, res.Rejected)
	assert.EqualValues(t, 8, res.Total())
}

func TestLedgerRecordToKYC(t *testing.T) {
	t.Run("nil record", func(t *testing.T) {
		assert.Equal(t, models.KYCRecord{}, LedgerRecordToKYC(nil))
	})

	t.Run("exists inferred without flag", func(t *testing.T) {
		rec := LedgerRecordToKYC(&models.LedgerRecord{Fields: map[string]any{"name": "Jane"}})
		assert.True(t, rec.Exists)
		assert.False(t, rec.Verified)
	})

	t.Run("hash forms", func(t *testing.T) {
		hexHash := "0x" + strings.Repeat("ab", 32)
		for _, v := range []any{hexHash, []byte(strings.Repeat("\xab", 32))} {
			rec := LedgerRecordToKYC(&models.LedgerRecord{Fields: map[string]any{"documentHash": v}})
			assert.Equal(t, hexHash, rec.DocumentHash.String())
		}
	})

	t.Run("mistyped fields become zero values", func(t *testing.T) {
		rec := LedgerRecordToKYC(&models.LedgerRecord{Fields: map[string]any{"name": 7, "documentHash": 3}})
		assert.Empty(t, rec.Name)
		assert.True(t, rec.DocumentHash.IsZero())
		assert.False(t, rec.Exists)
	})
}
