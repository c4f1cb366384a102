// Package hasher fingerprints document bytes with Keccak-256, the digest the
// ledger contract uses for its bytes32 fields.
package hasher

import (
	"bufio"
	"io"
	"strings"

	"golang.org/x/crypto/sha3"

	"dkyc/pkg/domain"
	dErrors "dkyc/pkg/domain-errors"
)

// Hash returns the Keccak-256 digest of b. Empty documents are rejected.
func Hash(b []byte) (domain.DocumentHash, error) {
	if len(b) == 0 {
		return domain.DocumentHash{}, dErrors.New(dErrors.CodeInvalidInput, "document is empty")
	}
	return sum(b), nil
}

// HashReader streams r through the digest. The same empty-input policy as
// Hash applies.
func HashReader(r io.Reader) (domain.DocumentHash, error) {
	h := sha3.NewLegacyKeccak256()
	n, err := io.Copy(h, bufio.NewReader(r))
	if err != nil {
		return domain.DocumentHash{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "failed to read document")
	}
	if n == 0 {
		return domain.DocumentHash{}, dErrors.New(dErrors.CodeInvalidInput, "document is empty")
	}
	var out domain.DocumentHash
	h.Sum(out[:0])
	return out, nil
}

// DeriveCustomerID builds an identifier for customers without a chain
// address: keccak256(trim(name) + "|" + trim(dob)).
func DeriveCustomerID(name, dob string) (domain.CustomerID, error) {
	name = strings.TrimSpace(name)
	dob = strings.TrimSpace(dob)
	if name == "" || dob == "" {
		return domain.CustomerID{}, dErrors.New(dErrors.CodeInvalidInput, "name and date of birth are required to derive a customer id")
	}
	return domain.CustomerIDFromHash(sum([]byte(name + "|" + dob))), nil
}

func sum(b []byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(b)
	var out [32]byte
	h.Sum(out[:0])
	return out
}
