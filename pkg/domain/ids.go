// Package domain provides the validated primitives used at every trust boundary:
// customer identifiers, document hashes and storage keys.
package domain

import (
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	dErrors "dkyc/pkg/domain-errors"
)

// CustomerKind distinguishes how a customer identifier was produced.
type CustomerKind int

const (
	// CustomerAddress is a 20-byte chain address supplied by the customer's wallet.
	CustomerAddress CustomerKind = iota + 1
	// CustomerDerived is a 32-byte identifier derived from customer attributes.
	CustomerDerived
)

// CustomerID is the ledger key of a KYC record. Both kinds are keyed on the
// ledger as bytes32; addresses are left-padded, matching their ABI encoding.
type CustomerID struct {
	kind CustomerKind
	key  common.Hash
}

// ParseCustomerID accepts either a chain address (0x + 40 hex) or a derived
// identifier (0x + 64 hex). Mixed-case addresses must carry a valid checksum.
func ParseCustomerID(s string) (CustomerID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CustomerID{}, dErrors.New(dErrors.CodeInvalidInput, "customer id cannot be empty")
	}
	body, ok := strings.CutPrefix(s, "0x")
	if !ok {
		body, ok = strings.CutPrefix(s, "0X")
	}
	if !ok || !isHex(body) {
		return CustomerID{}, dErrors.New(dErrors.CodeInvalidInput, "customer id must be a 0x-prefixed hex address or identifier")
	}

	switch len(body) {
	case 2 * common.AddressLength:
		addr := common.HexToAddress(s)
		if isMixedCase(body) && addr.Hex() != "0x"+body {
			return CustomerID{}, dErrors.New(dErrors.CodeInvalidInput, "customer address has an invalid checksum")
		}
		return CustomerIDFromAddress(addr), nil
	case 2 * common.HashLength:
		return CustomerIDFromHash(common.HexToHash(s)), nil
	default:
		return CustomerID{}, dErrors.New(dErrors.CodeInvalidInput, "customer id must be 20 or 32 bytes")
	}
}

// CustomerIDFromAddress wraps a chain address.
func CustomerIDFromAddress(addr common.Address) CustomerID {
	return CustomerID{kind: CustomerAddress, key: common.BytesToHash(addr.Bytes())}
}

// CustomerIDFromHash wraps a derived 32-byte identifier.
func CustomerIDFromHash(h common.Hash) CustomerID {
	return CustomerID{kind: CustomerDerived, key: h}
}

// Kind reports how the identifier was formed.
func (id CustomerID) Kind() CustomerKind { return id.kind }

// Key returns the bytes32 ledger key.
func (id CustomerID) Key() [32]byte { return id.key }

// IsNil reports whether the identifier was never set.
func (id CustomerID) IsNil() bool { return id.kind == 0 }

// String returns the canonical textual form: a checksummed address, or the
// lower-case hex identifier for derived ids.
func (id CustomerID) String() string {
	switch id.kind {
	case CustomerAddress:
		return common.BytesToAddress(id.key[12:]).Hex()
	case CustomerDerived:
		return id.key.Hex()
	default:
		return ""
	}
}

// Redacted keeps the first and last four hex digits for logs.
func (id CustomerID) Redacted() string {
	s := id.String()
	if len(s) < 12 {
		return "****"
	}
	return s[:6] + "…" + s[len(s)-4:]
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	_, err := hex.DecodeString(padEven(s))
	return err == nil
}

func padEven(s string) string {
	if len(s)%2 == 1 {
		return "0" + s
	}
	return s
}

func isMixedCase(s string) bool {
	return strings.ToLower(s) != s && strings.ToUpper(s) != s
}
