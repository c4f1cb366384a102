package validation

import (
	"fmt"

	dErrors "dkyc/pkg/domain-errors"
)

// HTTP body limits
const (
	// MaxBodySize is the maximum allowed request body size (64 KB).
	// Request bodies carry metadata only; document bytes go straight to storage.
	MaxBodySize = 64 * 1024
)

// String length limits for KYC attributes. The ledger stores these as
// strings and charges gas per byte.
const (
	MaxNameLength        = 256
	MaxDateOfBirthLength = 32
	MaxHomeAddressLength = 512
	MaxFilenameLength    = 255
	MaxContentTypeLength = 255
)

// CheckStringLength validates that a string does not exceed the maximum length.
func CheckStringLength(fieldName, value string, max int) error {
	if len(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
	}
	return nil
}
