package testutil

import (
	"bytes"
	"maps"

	"dkyc/internal/kyc/models"
	"dkyc/pkg/domain"
)

// TestIDs provides fixed customer identifiers for tests.
var TestIDs = struct {
	Address1 domain.CustomerID
	Address2 domain.CustomerID
	Derived1 domain.CustomerID
}{
	Address1: mustCustomer("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"),
	Address2: mustCustomer("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"),
	Derived1: domain.CustomerIDFromHash([32]byte(bytes.Repeat([]byte{0xd1}, 32))),
}

func mustCustomer(s string) domain.CustomerID {
	id, err := domain.ParseCustomerID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// DocumentHash returns a digest with every byte set to fill.
func DocumentHash(fill byte) domain.DocumentHash {
	return domain.DocumentHash(bytes.Repeat([]byte{fill}, domain.DocumentHashSize))
}

// LedgerFieldsBuilder builds getKYCInfo-shaped field maps with the types the
// contract binding produces.
type LedgerFieldsBuilder struct {
	fields map[string]any
}

// NewLedgerFields starts from the contract's default record: empty strings,
// zero hash, not verified, not existing.
func NewLedgerFields() *LedgerFieldsBuilder {
	return &LedgerFieldsBuilder{fields: map[string]any{
		models.FieldName:         "",
		models.FieldDateOfBirth:  "",
		models.FieldHomeAddress:  "",
		models.FieldDocumentHash: [32]byte{},
		models.FieldStorageKey:   "",
		models.FieldVerified:     false,
		models.FieldExists:       false,
	}}
}

// FromParams fills the attributes of a stored submit or update and marks the
// record as existing.
func (b *LedgerFieldsBuilder) FromParams(p models.SubmitParams) *LedgerFieldsBuilder {
	b.fields[models.FieldName] = p.Name
	b.fields[models.FieldDateOfBirth] = p.DateOfBirth
	b.fields[models.FieldHomeAddress] = p.HomeAddress
	b.fields[models.FieldDocumentHash] = [32]byte(p.DocumentHash)
	b.fields[models.FieldStorageKey] = p.StorageKey.String()
	b.fields[models.FieldExists] = true
	return b
}

func (b *LedgerFieldsBuilder) WithVerified(v bool) *LedgerFieldsBuilder {
	b.fields[models.FieldVerified] = v
	return b
}

func (b *LedgerFieldsBuilder) WithExists(v bool) *LedgerFieldsBuilder {
	b.fields[models.FieldExists] = v
	return b
}

// Without drops a field, as an older contract revision would.
func (b *LedgerFieldsBuilder) Without(field string) *LedgerFieldsBuilder {
	delete(b.fields, field)
	return b
}

func (b *LedgerFieldsBuilder) Build() map[string]any {
	return maps.Clone(b.fields)
}
