package service

import (
	"strings"

	"dkyc/internal/kyc/models"
	"dkyc/pkg/domain"
	dErrors "dkyc/pkg/domain-errors"
	"dkyc/pkg/platform/validation"
)

// WriteCommand is an unvalidated submit or update as received from a caller.
type WriteCommand struct {
	CustomerID   string `json:"customerId" validate:"notblank"`
	Name         string `json:"name" validate:"notblank,max=256"`
	DateOfBirth  string `json:"dob" validate:"notblank,max=32"`
	HomeAddress  string `json:"homeAddress" validate:"notblank,max=512"`
	DocumentHash string `json:"documentHash" validate:"notblank"`
	StorageKey   string `json:"storageKey"`
}

// Parse validates every field and builds ledger parameters. It is the only
// gate between a caller and a fee-bearing ledger call.
func (c WriteCommand) Parse() (models.SubmitParams, error) {
	c.CustomerID = strings.TrimSpace(c.CustomerID)
	c.Name = strings.TrimSpace(c.Name)
	c.DateOfBirth = strings.TrimSpace(c.DateOfBirth)
	c.HomeAddress = strings.TrimSpace(c.HomeAddress)
	c.DocumentHash = strings.TrimSpace(c.DocumentHash)
	c.StorageKey = strings.TrimSpace(c.StorageKey)

	if err := validation.Validate(c); err != nil {
		return models.SubmitParams{}, err
	}

	id, err := ParseCustomer(c.CustomerID)
	if err != nil {
		return models.SubmitParams{}, err
	}
	hash, err := domain.ParseDocumentHash(c.DocumentHash)
	if err != nil {
		return models.SubmitParams{}, asValidation("documentHash", err)
	}
	var key domain.StorageKey
	if c.StorageKey != "" {
		if key, err = domain.ParseStorageKey(c.StorageKey); err != nil {
			return models.SubmitParams{}, asValidation("storageKey", err)
		}
	}

	return models.SubmitParams{
		CustomerID:   id,
		Name:         c.Name,
		DateOfBirth:  c.DateOfBirth,
		HomeAddress:  c.HomeAddress,
		DocumentHash: hash,
		StorageKey:   key,
	}, nil
}

// ParseCustomer validates a customer id from a request.
func ParseCustomer(raw string) (domain.CustomerID, error) {
	if strings.TrimSpace(raw) == "" {
		return domain.CustomerID{}, dErrors.New(dErrors.CodeValidation, "customerId is required")
	}
	id, err := domain.ParseCustomerID(raw)
	if err != nil {
		return domain.CustomerID{}, asValidation("customerId", err)
	}
	return id, nil
}

func asValidation(field string, err error) error {
	return dErrors.New(dErrors.CodeValidation, field+": "+err.Error())
}
