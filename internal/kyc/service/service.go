// Package service is the workflow orchestrator. It validates every request
// before any downstream call, drives the ledger gateway for submit, update
// and retrieve, and passes presign requests through to the storage brokers.
//
// Hashing and uploading happen on the caller's side before Submit or Update:
// the orchestrator only sees the resulting hash and storage key and does not
// check that they match.
package service

import (
	"context"
	"log/slog"

	"dkyc/internal/kyc/metrics"
	"dkyc/internal/kyc/models"
	"dkyc/internal/kyc/tracer"
	"dkyc/internal/kyc/workflow"
	dErrors "dkyc/pkg/domain-errors"
	platformsync "dkyc/pkg/platform/sync"
	"dkyc/pkg/requestcontext"
)

const (
	presignUpload   = "upload"
	presignDownload = "download"
)

// ErrNoRecord is returned by Update when the precondition check finds no
// record for the customer.
var ErrNoRecord = dErrors.New(dErrors.CodeLedgerRejected, "no KYC record exists for customer")

// Service coordinates the KYC flows.
type Service struct {
	ledger    Ledger
	uploads   UploadBroker
	downloads DownloadBroker
	tracker   *workflow.Tracker
	writes    *platformsync.KeyedMutex

	updateRequiresExisting bool

	logger  *slog.Logger
	tracer  tracer.Tracer
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTracker(t *workflow.Tracker) Option {
	return func(s *Service) { s.tracker = t }
}

// WithUpdateRequiresExisting controls whether Update reads the record first
// and refuses, without paying the fee, when none exists. Enabled by default.
func WithUpdateRequiresExisting(enabled bool) Option {
	return func(s *Service) { s.updateRequiresExisting = enabled }
}

func New(ledger Ledger, uploads UploadBroker, downloads DownloadBroker, opts ...Option) *Service {
	s := &Service{
		ledger:                 ledger,
		uploads:                uploads,
		downloads:              downloads,
		writes:                 platformsync.NewKeyedMutex(),
		updateRequiresExisting: true,
		logger:                 slog.Default(),
		tracer:                 tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracker == nil {
		s.tracker = workflow.NewTracker(workflow.WithLogger(s.logger), workflow.WithMetrics(s.metrics))
	}
	return s
}

// Submit creates the customer's record and waits for it to be mined.
func (s *Service) Submit(ctx context.Context, cmd WriteCommand) (*models.Receipt, error) {
	return s.write(ctx, workflow.KindSubmit, tracer.SpanSubmit, cmd)
}

// Update replaces the customer's record and waits for it to be mined.
func (s *Service) Update(ctx context.Context, cmd WriteCommand) (*models.Receipt, error) {
	return s.write(ctx, workflow.KindUpdate, tracer.SpanUpdate, cmd)
}

func (s *Service) write(ctx context.Context, kind workflow.Kind, spanName string, cmd WriteCommand) (_ *models.Receipt, err error) {
	ctx, span := s.tracer.Start(ctx, spanName)
	defer func() { span.End(err) }()

	params, err := cmd.Parse()
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		tracer.String(tracer.AttrCustomer, params.CustomerID.Redacted()),
		tracer.String(tracer.AttrDocumentHash, params.DocumentHash.String()),
	)

	// one write per customer at a time
	unlock, err := s.writes.Lock(ctx, params.CustomerID.String())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeLedgerUnavailable, "another write for this customer is still in progress")
	}
	defer unlock()

	run := s.tracker.Begin(ctx, kind, params.CustomerID.Redacted(), params.StorageKey.String(), params.DocumentHash.String())
	receipt, err := s.dispatch(ctx, kind, params, run)
	if err != nil {
		run.Fail(ctx, err)
		s.logger.WarnContext(ctx, "kyc write failed",
			"kind", kind,
			"customer", params.CustomerID.Redacted(),
			"code", dErrors.CodeOf(err),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, err
	}
	run.Commit(ctx, receipt.TxID)
	span.SetAttributes(tracer.String(tracer.AttrTxID, receipt.TxID))
	return receipt, nil
}

func (s *Service) dispatch(ctx context.Context, kind workflow.Kind, params models.SubmitParams, run *workflow.Run) (*models.Receipt, error) {
	if kind == workflow.KindUpdate && s.updateRequiresExisting {
		rec, err := s.ledger.Get(ctx, params.CustomerID)
		if err != nil {
			return nil, err
		}
		if !LedgerRecordToKYC(rec).Exists {
			return nil, ErrNoRecord
		}
	}

	fee, err := s.ledger.Fee(ctx)
	if err != nil {
		return nil, err
	}

	run.Pending(ctx)
	if kind == workflow.KindUpdate {
		return s.ledger.Update(ctx, params, fee)
	}
	return s.ledger.Submit(ctx, params, fee)
}

// Retrieve reads and normalises the customer's record. An unknown customer
// yields the empty default record with Exists false.
func (s *Service) Retrieve(ctx context.Context, rawCustomerID string) (_ *models.KYCRecord, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanRetrieve)
	defer func() { span.End(err) }()

	id, err := ParseCustomer(rawCustomerID)
	if err != nil {
		return nil, err
	}
	rec, err := s.ledger.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	kyc := LedgerRecordToKYC(rec)
	kyc.CustomerID = id
	span.SetAttributes(
		tracer.String(tracer.AttrCustomer, id.Redacted()),
		tracer.Bool(tracer.AttrExists, kyc.Exists),
		tracer.Bool(tracer.AttrVerified, kyc.Verified),
	)
	if s.metrics != nil {
		s.metrics.RecordRetrieval(kyc.Verified)
	}
	return &kyc, nil
}

// IssueUploadTarget presigns an upload and opens its workflow run.
func (s *Service) IssueUploadTarget(ctx context.Context, filenameHint, contentType string) (*models.UploadTarget, error) {
	target, err := s.uploads.CreateUploadTarget(ctx, filenameHint, contentType)
	if err != nil {
		return nil, err
	}
	s.tracker.UploadIssued(ctx, target.StorageKey.String())
	if s.metrics != nil {
		s.metrics.RecordPresignedURL(presignUpload)
	}
	return target, nil
}

// IssueDownloadURL presigns a read of a stored document.
func (s *Service) IssueDownloadURL(ctx context.Context, storageKey string) (*models.DownloadTarget, error) {
	target, err := s.downloads.CreateDownloadURL(ctx, storageKey)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordPresignedURL(presignDownload)
	}
	return target, nil
}
