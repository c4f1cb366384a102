// Package ledger is the gateway to the KYC registry contract. Writes attach
// the verification fee and block until the transaction is mined; reads return
// the contract's outputs untouched for the verification deriver.
//
// The gateway never retries. A write that timed out may still be mined, and
// resubmitting it could pay twice or trip the duplicate-record check.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/core/types"

	"dkyc/internal/kyc/metrics"
	"dkyc/internal/kyc/models"
	"dkyc/internal/kyc/tracer"
	"dkyc/pkg/domain"
	dErrors "dkyc/pkg/domain-errors"
	"dkyc/pkg/platform/circuit"
)

// Operation labels used in logs and metrics.
const (
	OpSubmit = "submit"
	OpUpdate = "update"
	OpGet    = "get"
	OpFee    = "fee"
)

const (
	DefaultConfirmTimeout = 2 * time.Minute
	feeOutput             = "fee"
)

// DefaultFee is 0.01 ether in wei.
var DefaultFee = big.NewInt(10_000_000_000_000_000)

// Gateway wraps a Contract with fee policy, confirmation, error
// classification and instrumentation.
type Gateway struct {
	contract        Contract
	fixedFee        *big.Int
	feeFromContract bool
	confirmTimeout  time.Duration
	logger          *slog.Logger
	tracer          tracer.Tracer
	metrics         *metrics.Metrics
	breaker         *circuit.Breaker
}

type Option func(*Gateway)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) { g.logger = logger }
}

func WithTracer(t tracer.Tracer) Option {
	return func(g *Gateway) { g.tracer = t }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithBreaker replaces the default health breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(g *Gateway) { g.breaker = b }
}

// WithFixedFee sets the fee attached to every write.
func WithFixedFee(fee *big.Int) Option {
	return func(g *Gateway) {
		if fee != nil {
			g.fixedFee = new(big.Int).Set(fee)
		}
	}
}

// WithFeeFromContract quotes the fee from verificationFee() on every write
// instead of using the fixed fee.
func WithFeeFromContract(enabled bool) Option {
	return func(g *Gateway) { g.feeFromContract = enabled }
}

// WithConfirmTimeout bounds how long a write waits to be mined.
func WithConfirmTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.confirmTimeout = d
		}
	}
}

func New(contract Contract, opts ...Option) *Gateway {
	g := &Gateway{
		contract:       contract,
		fixedFee:       new(big.Int).Set(DefaultFee),
		confirmTimeout: DefaultConfirmTimeout,
		logger:         slog.Default(),
		tracer:         tracer.NewNoop(),
		breaker:        circuit.New("ledger"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Submit creates the customer's record. The ledger rejects duplicates.
func (g *Gateway) Submit(ctx context.Context, p models.SubmitParams, fee *big.Int) (*models.Receipt, error) {
	return g.write(ctx, OpSubmit, MethodSubmit, tracer.SpanLedgerSubmit, p, fee)
}

// Update replaces the customer's record wholesale.
func (g *Gateway) Update(ctx context.Context, p models.SubmitParams, fee *big.Int) (*models.Receipt, error) {
	return g.write(ctx, OpUpdate, MethodUpdate, tracer.SpanLedgerUpdate, p, fee)
}

func (g *Gateway) write(ctx context.Context, op, method, spanName string, p models.SubmitParams, fee *big.Int) (_ *models.Receipt, err error) {
	start := time.Now()
	ctx, span := g.tracer.Start(ctx, spanName, tracer.String(tracer.AttrCustomer, p.CustomerID.Redacted()))
	defer func() {
		g.observe(ctx, op, start, err)
		span.End(err)
	}()

	if p.CustomerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "customer id is required")
	}
	if fee == nil || fee.Sign() < 0 {
		return nil, dErrors.New(dErrors.CodeConfiguration, "ledger fee must be a non-negative amount")
	}
	span.SetAttributes(tracer.String(tracer.AttrFeeWei, fee.String()))

	// Once handed to the node the transaction cannot be recalled, so sending
	// and confirmation ignore the caller's cancellation.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.confirmTimeout)
	defer cancel()

	tx, err := g.contract.Transact(wctx, fee, method, writeArgs(p)...)
	if err != nil {
		return nil, toDomainError(op, err)
	}
	txID := tx.Hash().Hex()
	span.AddEvent(tracer.EventTxSent, tracer.String(tracer.AttrTxID, txID))
	g.logger.InfoContext(ctx, "ledger transaction sent",
		"operation", op,
		"tx_id", txID,
		"customer", p.CustomerID.Redacted(),
	)

	receipt, err := g.contract.WaitMined(wctx, tx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %s after %s: %w", ErrNotConfirmed, txID, g.confirmTimeout, err)
		}
		g.logger.WarnContext(ctx, "ledger transaction outcome unknown",
			"operation", op,
			"tx_id", txID,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeLedgerUnavailable,
			fmt.Sprintf("transaction %s was sent but not confirmed; it may still be mined, retrieve the record before retrying", txID))
	}

	block := blockNumber(receipt)
	span.AddEvent(tracer.EventTxMined, tracer.Int64(tracer.AttrBlock, int64(block)))

	if receipt.Status != types.ReceiptStatusSuccessful {
		reason, rerr := g.contract.RevertReason(wctx, tx, receipt)
		if rerr != nil || reason == "" {
			g.logger.DebugContext(ctx, "revert reason unavailable", "tx_id", txID, "error", rerr)
			reason = fmt.Sprintf("transaction %s reverted", txID)
		}
		return nil, dErrors.New(dErrors.CodeLedgerRejected, reason)
	}

	g.logger.InfoContext(ctx, "ledger transaction mined",
		"operation", op,
		"tx_id", txID,
		"block", block,
	)
	return &models.Receipt{TxID: txID, BlockNumber: block}, nil
}

// Get reads the raw record for id. An unknown id is not an error: the
// contract answers with an empty record.
func (g *Gateway) Get(ctx context.Context, id domain.CustomerID) (_ *models.LedgerRecord, err error) {
	start := time.Now()
	ctx, span := g.tracer.Start(ctx, tracer.SpanLedgerGet, tracer.String(tracer.AttrCustomer, id.Redacted()))
	defer func() {
		g.observe(ctx, OpGet, start, err)
		span.End(err)
	}()

	if id.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "customer id is required")
	}
	fields, err := g.contract.Call(ctx, MethodGet, id.Key())
	if err != nil {
		return nil, toDomainError(OpGet, err)
	}
	return &models.LedgerRecord{CustomerID: id, Fields: fields}, nil
}

// Fee returns the amount to attach to the next write.
func (g *Gateway) Fee(ctx context.Context) (_ *big.Int, err error) {
	if !g.feeFromContract {
		return new(big.Int).Set(g.fixedFee), nil
	}

	start := time.Now()
	ctx, span := g.tracer.Start(ctx, tracer.SpanLedgerFee)
	defer func() {
		g.observe(ctx, OpFee, start, err)
		span.End(err)
	}()

	out, err := g.contract.Call(ctx, MethodFee)
	if err != nil {
		return nil, toDomainError(OpFee, err)
	}
	fee, ok := out[feeOutput].(*big.Int)
	if !ok || fee == nil {
		return nil, dErrors.New(dErrors.CodeLedgerUnavailable, "ledger returned an unexpected verificationFee response")
	}
	return fee, nil
}

// Check reports an error while the health breaker is open.
func (g *Gateway) Check(context.Context) error {
	if g.breaker.State() == circuit.StateOpen {
		return fmt.Errorf("ledger circuit open since %s", g.breaker.OpenSince().Format(time.RFC3339))
	}
	return nil
}

func (g *Gateway) observe(ctx context.Context, op string, start time.Time, err error) {
	outcome := outcomeOf(err)
	if g.metrics != nil {
		g.metrics.ObserveLedgerCall(op, outcome, time.Since(start).Seconds())
	}
	if outcome == metrics.OutcomeInvalid {
		return
	}

	change := g.breaker.Observe(outcome == metrics.OutcomeUnavailable)
	switch {
	case change.Opened:
		g.logger.WarnContext(ctx, "ledger circuit opened", "breaker", g.breaker.Name(), "operation", op)
		if g.metrics != nil {
			g.metrics.SetBreakerOpen(true)
		}
	case change.Closed:
		g.logger.InfoContext(ctx, "ledger circuit closed", "breaker", g.breaker.Name())
		if g.metrics != nil {
			g.metrics.SetBreakerOpen(false)
		}
	}
}

func outcomeOf(err error) string {
	if err == nil {
		return metrics.OutcomeOK
	}
	switch dErrors.CodeOf(err) {
	case dErrors.CodeLedgerRejected:
		return metrics.OutcomeRejected
	case dErrors.CodeValidation, dErrors.CodeConfiguration, dErrors.CodeInvalidInput:
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeUnavailable
	}
}

func writeArgs(p models.SubmitParams) []any {
	return []any{
		p.CustomerID.Key(),
		p.Name,
		p.DateOfBirth,
		p.HomeAddress,
		[32]byte(p.DocumentHash),
		p.StorageKey.String(),
	}
}

func blockNumber(r *types.Receipt) uint64 {
	if r == nil || r.BlockNumber == nil {
		return 0
	}
	return r.BlockNumber.Uint64()
}
