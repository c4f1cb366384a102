package service

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"dkyc/internal/kyc/metrics"
	"dkyc/internal/kyc/models"
	"dkyc/internal/kyc/service/mocks"
	"dkyc/pkg/domain"
	dErrors "dkyc/pkg/domain-errors"
)

const customerHex = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

var fee = big.NewInt(10_000_000_000_000_000)

func validCommand() WriteCommand {
	return WriteCommand{
		CustomerID:   customerHex,
		Name:         "Jane Doe",
		DateOfBirth:  "1990-01-01",
		HomeAddress:  "1 Main St",
		DocumentHash: "0x" + strings.Repeat("11", 32),
		StorageKey:   "uploads/123-id.png",
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type ServiceSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	ledger    *mocks.MockLedger
	uploads   *mocks.MockUploadBroker
	downloads *mocks.MockDownloadBroker
	metrics   *metrics.Metrics
	service   *Service
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.ledger = mocks.NewMockLedger(s.ctrl)
	s.uploads = mocks.NewMockUploadBroker(s.ctrl)
	s.downloads = mocks.NewMockDownloadBroker(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.service = s.newService(true)
}

func (s *ServiceSuite) newService(updateRequiresExisting bool) *Service {
	return New(s.ledger, s.uploads, s.downloads,
		WithLogger(discardLogger()),
		WithMetrics(s.metrics),
		WithUpdateRequiresExisting(updateRequiresExisting),
	)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) expectedParams() models.SubmitParams {
	params, err := validCommand().Parse()
	s.Require().NoError(err)
	return params
}

func (s *ServiceSuite) TestSubmitValidationShortCircuits() {
	cases := map[string]func(*WriteCommand){
		"missing document hash": func(c *WriteCommand) { c.DocumentHash = "" },
		"short document hash":   func(c *WriteCommand) { c.DocumentHash = "0x1234" },
		"missing customer":      func(c *WriteCommand) { c.CustomerID = "" },
		"malformed address":     func(c *WriteCommand) { c.CustomerID = "0xnot-an-address" },
		"blank name":            func(c *WriteCommand) { c.Name = "   " },
		"missing dob":           func(c *WriteCommand) { c.DateOfBirth = "" },
		"missing home address":  func(c *WriteCommand) { c.HomeAddress = "" },
		"name too long":         func(c *WriteCommand) { c.Name = strings.Repeat("n", 257) },
		"traversing key":        func(c *WriteCommand) { c.StorageKey = "../secret" },
	}
	for name, mutate := range cases {
		s.Run(name, func() {
			cmd := validCommand()
			mutate(&cmd)

			// no ledger expectations: any ledger call fails the test
			_, err := s.service.Submit(context.Background(), cmd)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation), "got %v", err)
		})
	}
}

func (s *ServiceSuite) TestSubmit() {
	s.Run("pays the fee and returns the receipt", func() {
		s.ledger.EXPECT().Fee(gomock.Any()).Return(fee, nil)
		s.ledger.EXPECT().Submit(gomock.Any(), s.expectedParams(), fee).Return(&models.Receipt{TxID: "0xtx"}, nil)

		receipt, err := s.service.Submit(context.Background(), validCommand())
		s.Require().NoError(err)
		s.Equal("0xtx", receipt.TxID)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.WorkflowTransitionsTotal.WithLabelValues("Committed")))
	})

	s.Run("storage key is optional", func() {
		cmd := validCommand()
		cmd.StorageKey = ""
		s.ledger.EXPECT().Fee(gomock.Any()).Return(fee, nil)
		s.ledger.EXPECT().Submit(gomock.Any(), gomock.Any(), fee).Return(&models.Receipt{TxID: "0xtx2"}, nil)

		_, err := s.service.Submit(context.Background(), cmd)
		s.NoError(err)
	})

	s.Run("ledger failure after upload counts an orphan", func() {
		before := testutil.ToFloat64(s.metrics.OrphanedUploadsTotal)
		s.uploads.EXPECT().CreateUploadTarget(gomock.Any(), "id.png", "image/png").
			Return(&models.UploadTarget{StorageKey: domain.StorageKey(validCommand().StorageKey)}, nil)
		_, err := s.service.IssueUploadTarget(context.Background(), "id.png", "image/png")
		s.Require().NoError(err)

		s.ledger.EXPECT().Fee(gomock.Any()).Return(fee, nil)
		s.ledger.EXPECT().Submit(gomock.Any(), gomock.Any(), fee).
			Return(nil, dErrors.New(dErrors.CodeLedgerUnavailable, "dial tcp: connection refused"))

		_, err = s.service.Submit(context.Background(), validCommand())
		s.True(dErrors.HasCode(err, dErrors.CodeLedgerUnavailable))
		s.Equal(before+1, testutil.ToFloat64(s.metrics.OrphanedUploadsTotal))
	})

	s.Run("fee quote failure stops before the write", func() {
		s.ledger.EXPECT().Fee(gomock.Any()).Return(nil, dErrors.New(dErrors.CodeLedgerUnavailable, "rpc down"))

		_, err := s.service.Submit(context.Background(), validCommand())
		s.True(dErrors.HasCode(err, dErrors.CodeLedgerUnavailable))
	})
}

func (s *ServiceSuite) TestUpdateRequiresExisting() {
	id, err := domain.ParseCustomerID(customerHex)
	s.Require().NoError(err)

	s.Run("absent record is rejected without paying", func() {
		s.ledger.EXPECT().Get(gomock.Any(), id).
			Return(&models.LedgerRecord{CustomerID: id, Fields: map[string]any{"exists": false}}, nil)

		_, err := s.service.Update(context.Background(), validCommand())
		s.True(dErrors.HasCode(err, dErrors.CodeLedgerRejected))
		s.ErrorIs(err, ErrNoRecord)
	})

	s.Run("existing record is updated", func() {
		s.ledger.EXPECT().Get(gomock.Any(), id).
			Return(&models.LedgerRecord{CustomerID: id, Fields: map[string]any{"name": "Jane", "exists": true}}, nil)
		s.ledger.EXPECT().Fee(gomock.Any()).Return(fee, nil)
		s.ledger.EXPECT().Update(gomock.Any(), s.expectedParams(), fee).Return(&models.Receipt{TxID: "0xup"}, nil)

		receipt, err := s.service.Update(context.Background(), validCommand())
		s.Require().NoError(err)
		s.Equal("0xup", receipt.TxID)
	})

	s.Run("read failure is surfaced", func() {
		s.ledger.EXPECT().Get(gomock.Any(), id).Return(nil, dErrors.New(dErrors.CodeLedgerUnavailable, "timeout"))

		_, err := s.service.Update(context.Background(), validCommand())
		s.True(dErrors.HasCode(err, dErrors.CodeLedgerUnavailable))
	})
}

func (s *ServiceSuite) TestUpdateWithoutPrecondition() {
	svc := s.newService(false)
	s.ledger.EXPECT().Fee(gomock.Any()).Return(fee, nil)
	s.ledger.EXPECT().Update(gomock.Any(), s.expectedParams(), fee).
		Return(nil, dErrors.New(dErrors.CodeLedgerRejected, "KYC not found"))

	_, err := svc.Update(context.Background(), validCommand())
	s.True(dErrors.HasCode(err, dErrors.CodeLedgerRejected))
	s.Equal("KYC not found", err.Error())
}

func (s *ServiceSuite) TestRetrieve() {
	s.Run("invalid identifier makes no ledger call", func() {
		_, err := s.service.Retrieve(context.Background(), "0x1234")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = s.service.Retrieve(context.Background(), "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown customer yields the default record", func() {
		s.ledger.EXPECT().Get(gomock.Any(), gomock.Any()).Return(&models.LedgerRecord{Fields: map[string]any{
			"name": "", "dob": "", "homeAddress": "", "documentHash": [32]byte{}, "fileKey": "", "isVerified": false, "exists": false,
		}}, nil)

		rec, err := s.service.Retrieve(context.Background(), customerHex)
		s.Require().NoError(err)
		s.False(rec.Exists)
		s.False(rec.Verified)
		s.Empty(rec.Name)
		s.True(rec.DocumentHash.IsZero())
		s.Equal(customerHex, rec.CustomerID.String())
	})
}

func (s *ServiceSuite) TestIssueUploadTarget() {
	target := &models.UploadTarget{UploadURL: "https://example/put", StorageKey: "uploads/1-a-id.png"}
	s.uploads.EXPECT().CreateUploadTarget(gomock.Any(), "id.png", "image/png").Return(target, nil)

	got, err := s.service.IssueUploadTarget(context.Background(), "id.png", "image/png")
	s.Require().NoError(err)
	s.Equal(target, got)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.PresignedURLsTotal.WithLabelValues("upload")))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.WorkflowTransitionsTotal.WithLabelValues("AwaitingUpload")))

	s.uploads.EXPECT().CreateUploadTarget(gomock.Any(), "", "").
		Return(nil, dErrors.New(dErrors.CodeConfiguration, "KYC_BUCKET is not set"))
	_, err = s.service.IssueUploadTarget(context.Background(), "", "")
	s.True(dErrors.HasCode(err, dErrors.CodeConfiguration))
}

func (s *ServiceSuite) TestIssueDownloadURL() {
	target := &models.DownloadTarget{DownloadURL: "https://example/get", StorageKey: "uploads/1-a-id.png"}
	s.downloads.EXPECT().CreateDownloadURL(gomock.Any(), "uploads/1-a-id.png").Return(target, nil)

	got, err := s.service.IssueDownloadURL(context.Background(), "uploads/1-a-id.png")
	s.Require().NoError(err)
	s.Equal(target, got)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.PresignedURLsTotal.WithLabelValues("download")))
}
