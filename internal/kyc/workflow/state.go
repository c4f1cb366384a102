// Package workflow makes the multi-step submission visible. A submission
// moves AwaitingUpload -> Uploaded -> LedgerPending -> Committed|Failed.
// Nothing here compensates: a Failed run that references an uploaded object
// leaves that object orphaned, and the tracker reports it.
package workflow

import (
	"fmt"
	"time"
)

type State string

const (
	StateAwaitingUpload State = "AwaitingUpload"
	StateUploaded       State = "Uploaded"
	StateLedgerPending  State = "LedgerPending"
	StateCommitted      State = "Committed"
	StateFailed         State = "Failed"
)

var transitions = map[State][]State{
	StateAwaitingUpload: {StateUploaded},
	StateUploaded:       {StateLedgerPending, StateFailed},
	StateLedgerPending:  {StateCommitted, StateFailed},
}

// CanTransition reports whether from -> to is a legal step.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s State) Terminal() bool {
	return s == StateCommitted || s == StateFailed
}

// ParseState accepts the exact state names.
func ParseState(s string) (State, error) {
	switch st := State(s); st {
	case StateAwaitingUpload, StateUploaded, StateLedgerPending, StateCommitted, StateFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown workflow state %q", s)
}

// Kind is the flow an entry belongs to.
type Kind string

const (
	KindSubmit Kind = "submit"
	KindUpdate Kind = "update"
)

// Entry is the journaled view of one run. It carries no customer PII: the
// customer id is redacted and attributes are omitted.
type Entry struct {
	ID           string    `json:"id"`
	Kind         Kind      `json:"kind,omitempty"`
	State        State     `json:"state"`
	Customer     string    `json:"customer,omitempty"`
	StorageKey   string    `json:"storageKey,omitempty"`
	DocumentHash string    `json:"documentHash,omitempty"`
	OwnsUpload   bool      `json:"ownsUpload,omitempty"`
	TxID         string    `json:"txId,omitempty"`
	Error        string    `json:"error,omitempty"`
	Device       string    `json:"device,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Orphaned reports whether the entry failed after uploading an object that
// no record references. Runs reusing an earlier record's key never orphan it.
func (e Entry) Orphaned() bool {
	return e.State == StateFailed && e.OwnsUpload && e.StorageKey != ""
}
