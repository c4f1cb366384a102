package models

import (
	"time"

	"dkyc/pkg/domain"
)

// Ledger field names as returned by the contract's getKYCInfo.
const (
	FieldName         = "name"
	FieldDateOfBirth  = "dob"
	FieldHomeAddress  = "homeAddress"
	FieldDocumentHash = "documentHash"
	FieldStorageKey   = "fileKey"
	FieldVerified     = "isVerified"
	FieldExists       = "exists"
)

// KYCRecord is the normalised view of a customer's ledger entry.
type KYCRecord struct {
	CustomerID   domain.CustomerID
	Name         string
	DateOfBirth  string
	HomeAddress  string
	DocumentHash domain.DocumentHash
	StorageKey   domain.StorageKey
	Verified     bool
	Exists       bool
}

// SubmitParams carries one validated submit or update. Attributes replace the
// ledger entry wholesale.
type SubmitParams struct {
	CustomerID   domain.CustomerID
	Name         string
	DateOfBirth  string
	HomeAddress  string
	DocumentHash domain.DocumentHash
	StorageKey   domain.StorageKey
}

// LedgerRecord is the raw ledger response keyed by output name. Values keep
// their ledger-native types ([32]uint8, bool, *big.Int, string).
type LedgerRecord struct {
	CustomerID domain.CustomerID
	Fields     map[string]any
}

// Receipt confirms a mined ledger write.
type Receipt struct {
	TxID        string
	BlockNumber uint64
}

// UploadTarget is a presigned single-object write capability.
type UploadTarget struct {
	UploadURL  string
	StorageKey domain.StorageKey
	ExpiresAt  time.Time
}

// DownloadTarget is a presigned single-object read capability.
type DownloadTarget struct {
	DownloadURL string
	StorageKey  domain.StorageKey
	ExpiresAt   time.Time
}
