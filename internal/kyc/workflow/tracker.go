package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"dkyc/internal/kyc/metrics"
	"dkyc/pkg/requestcontext"
)

// Journal persists entries. Record upserts by Entry.ID.
type Journal interface {
	Record(ctx context.Context, e Entry) error
}

// entryReader is implemented by journals that can look entries up, letting
// a restarted tracker pick up uploads issued before the restart.
type entryReader interface {
	Get(ctx context.Context, id string) (*Entry, error)
}

// openUploadTTL bounds how long an unclaimed upload is remembered in memory.
const openUploadTTL = 24 * time.Hour

// Tracker logs every transition and forwards it to an optional Journal.
// Journal failures are logged and never fail the flow being tracked.
type Tracker struct {
	journal Journal
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu      sync.Mutex
	open    map[string]time.Time // storage key -> upload issued at
	claimed map[string]time.Time // keys claimed from the journal
}

type Option func(*Tracker)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) { t.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

// WithJournal persists entries in addition to logging them.
func WithJournal(j Journal) Option {
	return func(t *Tracker) { t.journal = j }
}

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		logger:  slog.Default(),
		now:     time.Now,
		open:    make(map[string]time.Time),
		claimed: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// UploadIssued opens a run in AwaitingUpload, keyed by the storage key. The
// first submit or update referencing the key continues it.
func (t *Tracker) UploadIssued(ctx context.Context, storageKey string) {
	now := t.now()
	t.mu.Lock()
	for _, m := range []map[string]time.Time{t.open, t.claimed} {
		for key, at := range m {
			if now.Sub(at) > openUploadTTL {
				delete(m, key)
			}
		}
	}
	t.open[storageKey] = now
	t.mu.Unlock()

	e := Entry{
		ID:         storageKey,
		State:      StateAwaitingUpload,
		StorageKey: storageKey,
		Device:     requestcontext.Device(ctx),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	t.emit(ctx, e)
}

// Begin opens a run for a submit or update. The run starts in Uploaded. When
// storageKey names an upload still awaiting its submission, the run continues
// that upload's entry and owns the object. Otherwise it gets a fresh id and
// never reports the object as orphaned.
func (t *Tracker) Begin(ctx context.Context, kind Kind, customer, storageKey, documentHash string) *Run {
	now := t.now()
	id, createdAt, owns := uuid.NewString(), now, false
	if storageKey != "" {
		if issued, ok := t.claimUpload(ctx, storageKey); ok {
			id, createdAt, owns = storageKey, issued, true
		}
	}
	r := &Run{tracker: t, entry: Entry{
		ID:           id,
		Kind:         kind,
		State:        StateUploaded,
		Customer:     customer,
		StorageKey:   storageKey,
		DocumentHash: documentHash,
		OwnsUpload:   owns,
		Device:       requestcontext.Device(ctx),
		CreatedAt:    createdAt,
		UpdatedAt:    now,
	}}
	t.emit(ctx, r.entry)
	return r
}

// claimUpload hands the open upload for storageKey to exactly one run.
func (t *Tracker) claimUpload(ctx context.Context, storageKey string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if issued, ok := t.open[storageKey]; ok {
		delete(t.open, storageKey)
		t.claimed[storageKey] = t.now()
		return issued, true
	}

	if _, done := t.claimed[storageKey]; done {
		return time.Time{}, false
	}
	reader, ok := t.journal.(entryReader)
	if !ok {
		return time.Time{}, false
	}
	e, err := reader.Get(ctx, storageKey)
	if err != nil || e.State != StateAwaitingUpload {
		return time.Time{}, false
	}
	t.claimed[storageKey] = t.now()
	return e.CreatedAt, true
}

func (t *Tracker) emit(ctx context.Context, e Entry) {
	if t.metrics != nil {
		t.metrics.RecordTransition(string(e.State))
	}

	attrs := []any{
		"workflow_id", e.ID,
		"state", e.State,
		"kind", e.Kind,
		"customer", e.Customer,
		"storage_key", e.StorageKey,
		"request_id", requestcontext.RequestID(ctx),
	}
	if e.TxID != "" {
		attrs = append(attrs, "tx_id", e.TxID)
	}
	switch {
	case e.Orphaned():
		if t.metrics != nil {
			t.metrics.RecordOrphanedUpload()
		}
		t.logger.WarnContext(ctx, "workflow failed after upload; stored object is orphaned",
			append(attrs, "error", e.Error)...)
	case e.State == StateFailed:
		t.logger.WarnContext(ctx, "workflow failed", append(attrs, "error", e.Error)...)
	default:
		t.logger.InfoContext(ctx, "workflow transition", attrs...)
	}

	if t.journal == nil {
		return
	}
	if err := t.journal.Record(ctx, e); err != nil {
		t.logger.ErrorContext(ctx, "failed to journal workflow entry", "workflow_id", e.ID, "error", err)
	}
}

// Run is one in-flight submission.
type Run struct {
	tracker *Tracker
	entry   Entry
}

func (r *Run) State() State { return r.entry.State }

// Entry returns a copy of the current entry.
func (r *Run) Entry() Entry { return r.entry }

// Pending marks the ledger write as dispatched.
func (r *Run) Pending(ctx context.Context) {
	r.advance(ctx, StateLedgerPending, func(*Entry) {})
}

// Commit records the mined transaction.
func (r *Run) Commit(ctx context.Context, txID string) {
	r.advance(ctx, StateCommitted, func(e *Entry) { e.TxID = txID })
}

// Fail records the error that ended the run.
func (r *Run) Fail(ctx context.Context, err error) {
	r.advance(ctx, StateFailed, func(e *Entry) {
		if err != nil {
			e.Error = err.Error()
		}
	})
}

func (r *Run) advance(ctx context.Context, to State, mutate func(*Entry)) {
	if !CanTransition(r.entry.State, to) {
		r.tracker.logger.ErrorContext(ctx, "illegal workflow transition",
			"workflow_id", r.entry.ID,
			"from", r.entry.State,
			"to", to,
		)
		return
	}
	r.entry.State = to
	r.entry.UpdatedAt = r.tracker.now()
	mutate(&r.entry)
	r.tracker.emit(ctx, r.entry)
}
