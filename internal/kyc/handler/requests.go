package handler

import (
	"strconv"
	"strings"

	"dkyc/internal/kyc/service"
	dErrors "dkyc/pkg/domain-errors"
	"dkyc/pkg/platform/validation"
	strutil "dkyc/pkg/string"
)

// HTTP Request DTOs - contain JSON tags for API serialization.
// Aliases accepted by older clients are folded into the canonical field by Normalize.

const (
	defaultFilename    = "document"
	defaultContentType = "application/octet-stream"
)

type UploadURLRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

func (r *UploadURLRequest) Normalize() {
	if r == nil {
		return
	}
	r.Filename = strutil.FirstNonEmpty(r.Filename, defaultFilename)
	r.ContentType = strutil.FirstNonEmpty(r.ContentType, defaultContentType)
}

func (r *UploadURLRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if err := validation.CheckStringLength("filename", r.Filename, validation.MaxFilenameLength); err != nil {
		return err
	}
	return validation.CheckStringLength("contentType", r.ContentType, validation.MaxContentTypeLength)
}

type DownloadURLRequest struct {
	Key     string `json:"key"`
	FileKey string `json:"fileKey"`
}

// Normalize folds fileKey into key. A missing key is reported by the broker so
// that configuration errors take precedence.
func (r *DownloadURLRequest) Normalize() {
	if r == nil {
		return
	}
	r.Key = strutil.FirstNonEmpty(r.Key, r.FileKey)
	r.FileKey = ""
}

// WriteRequest is the body of submit-dkyc and update-dkyc.
type WriteRequest struct {
	CustomerID      string `json:"customerId"`
	Customer        string `json:"customer"`
	CustomerIDHex   string `json:"customerIdHex"`
	Name            string `json:"name"`
	DateOfBirth     string `json:"dob"`
	HomeAddress     string `json:"homeAddress"`
	DocumentHash    string `json:"documentHash"`
	DocumentHashHex string `json:"documentHashHex"`
	StorageKey      string `json:"storageKey"`
	FileKey         string `json:"fileKey"`
}

func (r *WriteRequest) Normalize() {
	if r == nil {
		return
	}
	r.CustomerID = strutil.FirstNonEmpty(r.CustomerID, r.Customer, r.CustomerIDHex)
	r.DocumentHash = strutil.FirstNonEmpty(r.DocumentHash, r.DocumentHashHex)
	r.StorageKey = strutil.FirstNonEmpty(r.StorageKey, r.FileKey)
	strutil.TrimStrings(&r.Name, &r.DateOfBirth, &r.HomeAddress)
}

// Command converts the request into the orchestrator's input. Field
// validation happens there so every caller goes through the same gate.
func (r *WriteRequest) Command() service.WriteCommand {
	return service.WriteCommand{
		CustomerID:   r.CustomerID,
		Name:         r.Name,
		DateOfBirth:  r.DateOfBirth,
		HomeAddress:  r.HomeAddress,
		DocumentHash: r.DocumentHash,
		StorageKey:   r.StorageKey,
	}
}

// customerFromQuery reads customerId, customer or address, in that order.
func customerFromQuery(get func(string) string) string {
	return strutil.FirstNonEmpty(get("customerId"), get("customer"), get("address"))
}

const (
	defaultWorkflowLimit = 50
	maxWorkflowLimit     = 500
)

func parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultWorkflowLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer")
	}
	return min(n, maxWorkflowLimit), nil
}
