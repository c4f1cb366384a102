// Package tracer provides a small tracing abstraction for the KYC workflow.
//
// Ledger writes can block for minutes while a transaction is mined, so every
// gateway call and orchestrator flow opens a span here. Callers depend on the
// Tracer interface; production wires the OpenTelemetry adapter and tests use
// NoopTracer.
package tracer

import (
	"context"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span. A non-nil err marks the span as failed.
	// End must be called exactly once, typically via defer.
	End(err error)

	SetAttributes(attrs ...Attribute)

	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	// Start creates a new span; the returned context carries it to child calls.
	//
	//   ctx, span := t.Start(ctx, tracer.SpanLedgerSubmit,
	//       tracer.String(tracer.AttrCustomer, id.Redacted()),
	//   )
	//   defer func() { span.End(err) }()
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute is a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names.
const (
	SpanSubmit          = "kyc.submit"
	SpanUpdate          = "kyc.update"
	SpanRetrieve        = "kyc.retrieve"
	SpanLedgerSubmit    = "kyc.ledger.submit"
	SpanLedgerUpdate    = "kyc.ledger.update"
	SpanLedgerGet       = "kyc.ledger.get"
	SpanLedgerFee       = "kyc.ledger.fee"
	SpanLedgerConfirm   = "kyc.ledger.confirm"
	SpanStorageUpload   = "kyc.storage.upload_url"
	SpanStorageDownload = "kyc.storage.download_url"
)

// Attribute keys. Customer ids are always recorded redacted.
const (
	AttrCustomer     = "customer"
	AttrTxID         = "tx.id"
	AttrBlock        = "tx.block"
	AttrFeeWei       = "fee.wei"
	AttrDocumentHash = "document.hash"
	AttrStorageKey   = "storage.key"
	AttrExists       = "record.exists"
	AttrVerified     = "record.verified"
)

// Event names.
const (
	EventTxSent       = "tx.sent"
	EventTxMined      = "tx.mined"
	EventPrecondition = "precondition.checked"
)
