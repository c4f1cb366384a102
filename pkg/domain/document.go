package domain

import (
	"encoding/hex"
	"path"
	"strings"

	dErrors "dkyc/pkg/domain-errors"
)

// DocumentHashSize is the digest length in bytes.
const DocumentHashSize = 32

// DocumentHash is the content fingerprint of a supporting document.
type DocumentHash [DocumentHashSize]byte

// ZeroDocumentHash is what the ledger reports for a record without evidence.
var ZeroDocumentHash DocumentHash

// ParseDocumentHash requires "0x" followed by exactly 64 hex digits.
// Upper-case digits are accepted and normalised by String.
func ParseDocumentHash(s string) (DocumentHash, error) {
	var h DocumentHash
	s = strings.TrimSpace(s)
	body, ok := strings.CutPrefix(s, "0x")
	if !ok {
		return h, dErrors.New(dErrors.CodeInvalidInput, "document hash must start with 0x")
	}
	if len(body) != 2*DocumentHashSize {
		return h, dErrors.New(dErrors.CodeInvalidInput, "document hash must be 64 hex characters")
	}
	if _, err := hex.Decode(h[:], []byte(body)); err != nil {
		return DocumentHash{}, dErrors.New(dErrors.CodeInvalidInput, "document hash must be hex encoded")
	}
	return h, nil
}

// String returns the wire form: 0x + 64 lower-case hex digits.
func (h DocumentHash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// IsZero reports whether the hash is the all-zero digest.
func (h DocumentHash) IsZero() bool {
	return h == ZeroDocumentHash
}

// MaxStorageKeyLength matches the S3 object key limit.
const MaxStorageKeyLength = 1024

// StorageKey identifies an uploaded object. It is opaque to everything except
// the storage brokers.
type StorageKey string

// ParseStorageKey rejects empty, absolute, oversized or traversing keys.
func ParseStorageKey(s string) (StorageKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "storage key cannot be empty")
	}
	if len(s) > MaxStorageKeyLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "storage key is too long")
	}
	if strings.HasPrefix(s, "/") || path.Clean(s) != s || strings.HasPrefix(s, "../") || s == ".." {
		return "", dErrors.New(dErrors.CodeInvalidInput, "storage key must be a clean relative path")
	}
	return StorageKey(s), nil
}

func (k StorageKey) String() string { return string(k) }

// IsNil reports whether no key was provided.
func (k StorageKey) IsNil() bool { return k == "" }
