package service

//go:generate mockgen -source=contracts.go -destination=mocks/contracts_mock.go -package=mocks

import (
	"context"
	"math/big"

	"dkyc/internal/kyc/models"
	"dkyc/pkg/domain"
)

// Ledger is the record gateway the orchestrator drives.
type Ledger interface {
	Submit(ctx context.Context, p models.SubmitParams, fee *big.Int) (*models.Receipt, error)
	Update(ctx context.Context, p models.SubmitParams, fee *big.Int) (*models.Receipt, error)
	Get(ctx context.Context, id domain.CustomerID) (*models.LedgerRecord, error)
	Fee(ctx context.Context) (*big.Int, error)
}

// UploadBroker issues presigned write capabilities.
type UploadBroker interface {
	CreateUploadTarget(ctx context.Context, filenameHint, contentType string) (*models.UploadTarget, error)
}

// DownloadBroker issues presigned read capabilities.
type DownloadBroker interface {
	CreateDownloadURL(ctx context.Context, storageKey string) (*models.DownloadTarget, error)
}
