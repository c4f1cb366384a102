package service

import (
	"github.com/ethereum/go-ethereum/common"

	"dkyc/internal/kyc/models"
	"dkyc/internal/kyc/verification"
	"dkyc/pkg/domain"
)

// LedgerRecordToKYC normalises raw ledger outputs. Missing or oddly typed
// fields become zero values; the verified flag comes from the deriver.
func LedgerRecordToKYC(rec *models.LedgerRecord) models.KYCRecord {
	if rec == nil {
		return models.KYCRecord{}
	}
	f := rec.Fields
	out := models.KYCRecord{
		CustomerID:   rec.CustomerID,
		Name:         getString(f, models.FieldName),
		DateOfBirth:  getString(f, models.FieldDateOfBirth),
		HomeAddress:  getString(f, models.FieldHomeAddress),
		DocumentHash: getHash(f, models.FieldDocumentHash),
		StorageKey:   domain.StorageKey(getString(f, models.FieldStorageKey)),
		Verified:     verification.Derive(f),
	}
	if exists, ok := f[models.FieldExists].(bool); ok {
		out.Exists = exists
	} else {
		out.Exists = out.Name != "" || !out.DocumentHash.IsZero()
	}
	return out
}

func getString(data map[string]any, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

func getHash(data map[string]any, key string) domain.DocumentHash {
	switch v := data[key].(type) {
	case [32]byte:
		return v
	case common.Hash:
		return domain.DocumentHash(v)
	case []byte:
		if len(v) == domain.DocumentHashSize {
			return domain.DocumentHash(v)
		}
	case string:
		if h, err := domain.ParseDocumentHash(v); err == nil {
			return h
		}
	}
	return domain.ZeroDocumentHash
}
