package ledger

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	dErrors "dkyc/pkg/domain-errors"
)

// Category is the normalized failure taxonomy for ledger calls.
type Category string

const (
	// CategoryRejected means the contract reverted: duplicate or missing
	// record, insufficient fee, or any explicit require failure.
	CategoryRejected Category = "rejected"
	// CategoryTimeout means no answer arrived in time. For writes the
	// transaction may still be mined.
	CategoryTimeout Category = "timeout"
	// CategoryUnavailable covers transport failures and node-side refusals
	// that say nothing about the record.
	CategoryUnavailable Category = "unavailable"
)

// ErrNotConfirmed marks a write whose transaction was sent but not mined
// before the confirmation deadline.
var ErrNotConfirmed = errors.New("transaction not confirmed")

// Classify returns the category of err.
func Classify(err error) Category {
	if _, ok := RevertReason(err); ok {
		return CategoryRejected
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrNotConfirmed) {
		return CategoryTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CategoryTimeout
	}
	return CategoryUnavailable
}

// RevertReason extracts the contract's revert reason. Node errors carrying
// ABI-encoded Error(string) data are decoded; otherwise the node's message is
// used when it reports a revert.
func RevertReason(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if raw, ok := dataErr.ErrorData().(string); ok {
			if data, decErr := hexutil.Decode(raw); decErr == nil {
				if reason, unpackErr := abi.UnpackRevert(data); unpackErr == nil {
					return reason, true
				}
			}
		}
		if isRevertMessage(dataErr.Error()) {
			return dataErr.Error(), true
		}
	}
	if isRevertMessage(err.Error()) {
		return err.Error(), true
	}
	return "", false
}

func isRevertMessage(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "execution reverted")
}

// toDomainError maps a ledger failure onto the gateway's error codes. The
// revert reason, when present, is the whole message.
func toDomainError(op string, err error) error {
	switch Classify(err) {
	case CategoryRejected:
		reason, _ := RevertReason(err)
		return dErrors.Wrap(err, dErrors.CodeLedgerRejected, reason)
	case CategoryTimeout:
		return dErrors.Wrap(err, dErrors.CodeLedgerUnavailable, fmt.Sprintf("ledger %s timed out", op))
	default:
		return dErrors.Wrap(err, dErrors.CodeLedgerUnavailable, fmt.Sprintf("ledger %s failed: %v", op, err))
	}
}
