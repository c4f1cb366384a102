package tracer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"dkyc/internal/kyc/tracer"
)

func TestNoopTracer_Start(t *testing.T) {
	tr := tracer.NewNoop()
	ctx := context.Background()

	newCtx, span := tr.Start(ctx, tracer.SpanLedgerSubmit,
		tracer.String(tracer.AttrCustomer, "0x5aAe…eAed"),
	)
	assert.Equal(t, ctx, newCtx)
	require.NotNil(t, span)

	span.SetAttributes(tracer.Bool(tracer.AttrExists, true))
	span.AddEvent(tracer.EventTxMined, tracer.Int64(tracer.AttrBlock, 42))
	span.End(errors.New("execution reverted"))
}

func TestOTelTracer_WithInjectedTracer(t *testing.T) {
	tr := tracer.NewOTel(tracer.WithOTelTracer(noop.NewTracerProvider().Tracer("test")))

	_, span := tr.Start(context.Background(), tracer.SpanLedgerGet,
		tracer.String(tracer.AttrCustomer, "0x5aAe…eAed"),
		tracer.Duration("elapsed", 150*time.Millisecond),
	)
	require.NotNil(t, span)
	span.AddEvent(tracer.EventTxSent, tracer.String(tracer.AttrTxID, "0xabc"))
	span.End(nil)
}

func TestDurationAttribute(t *testing.T) {
	attr := tracer.Duration("latency", 150*time.Millisecond)
	assert.Equal(t, int64(150), attr.Value)
}
