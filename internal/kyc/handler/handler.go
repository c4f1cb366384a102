package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"dkyc/internal/kyc/models"
	"dkyc/internal/kyc/service"
	"dkyc/internal/kyc/workflow"
	dErrors "dkyc/pkg/domain-errors"
	"dkyc/pkg/platform/httputil"
	"dkyc/pkg/requestcontext"
)

const (
	messageSubmitted = "KYC submitted successfully"
	messageUpdated   = "KYC updated successfully"
)

// KYCService defines the orchestrator operations used by handlers.
type KYCService interface {
	Submit(ctx context.Context, cmd service.WriteCommand) (*models.Receipt, error)
	Update(ctx context.Context, cmd service.WriteCommand) (*models.Receipt, error)
	Retrieve(ctx context.Context, rawCustomerID string) (*models.KYCRecord, error)
	IssueUploadTarget(ctx context.Context, filenameHint, contentType string) (*models.UploadTarget, error)
	IssueDownloadURL(ctx context.Context, storageKey string) (*models.DownloadTarget, error)
}

// WorkflowLister reads journaled workflow entries.
type WorkflowLister interface {
	List(ctx context.Context, state workflow.State, limit int) ([]workflow.Entry, error)
}

// Handler handles HTTP requests for the KYC flows.
type Handler struct {
	service   KYCService
	workflows WorkflowLister
	logger    *slog.Logger
}

// HandlerOption configures the Handler.
type HandlerOption func(*Handler)

// WithWorkflows exposes GET /workflows backed by lister.
func WithWorkflows(lister WorkflowLister) HandlerOption {
	return func(h *Handler) {
		h.workflows = lister
	}
}

// New creates a new KYC handler.
func New(service KYCService, logger *slog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		service: service,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the handler routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/upload-url", h.HandleUploadURL)
	r.Post("/download-url", h.HandleDownloadURL)
	r.Post("/submit-dkyc", h.HandleSubmit)
	r.Put("/update-dkyc", h.HandleUpdate)
	r.Post("/update-dkyc", h.HandleUpdate)
	r.Get("/get-dkyc", h.HandleGet)
	if h.workflows != nil {
		r.Get("/workflows", h.HandleListWorkflows)
	}
}

type UploadURLResponse struct {
	UploadURL  string    `json:"uploadUrl"`
	StorageKey string    `json:"storageKey"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

type DownloadURLResponse struct {
	DownloadURL string    `json:"downloadUrl"`
	Key         string    `json:"key"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type WriteResponse struct {
	TxID    string `json:"txId"`
	Message string `json:"message"`
}

// KYCResponse is the normalised record returned by get-dkyc. Exists is false
// for a customer without a record.
type KYCResponse struct {
	Customer     string `json:"customer"`
	Name         string `json:"name"`
	DateOfBirth  string `json:"dob"`
	HomeAddress  string `json:"homeAddress"`
	DocumentHash string `json:"documentHash"`
	StorageKey   string `json:"storageKey"`
	Verified     bool   `json:"verified"`
	Exists       bool   `json:"exists"`
}

type WorkflowListResponse struct {
	Workflows []workflow.Entry `json:"workflows"`
	Count     int              `json:"count"`
}

// HandleUploadURL handles POST /upload-url. An empty body selects the defaults.
func (h *Handler) HandleUploadURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeOptionalAndPrepare[UploadURLRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	target, err := h.service.IssueUploadTarget(ctx, req.Filename, req.ContentType)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue upload url",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &UploadURLResponse{
		UploadURL:  target.UploadURL,
		StorageKey: target.StorageKey.String(),
		ExpiresAt:  target.ExpiresAt,
	})
}

// HandleDownloadURL handles POST /download-url.
func (h *Handler) HandleDownloadURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeOptionalAndPrepare[DownloadURLRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	target, err := h.service.IssueDownloadURL(ctx, req.Key)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue download url",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &DownloadURLResponse{
		DownloadURL: target.DownloadURL,
		Key:         target.StorageKey.String(),
		ExpiresAt:   target.ExpiresAt,
	})
}

// HandleSubmit handles POST /submit-dkyc.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	h.handleWrite(w, r, h.service.Submit, messageSubmitted)
}

// HandleUpdate handles PUT and POST /update-dkyc.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	h.handleWrite(w, r, h.service.Update, messageUpdated)
}

type writeFunc func(context.Context, service.WriteCommand) (*models.Receipt, error)

func (h *Handler) handleWrite(w http.ResponseWriter, r *http.Request, write writeFunc, message string) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[WriteRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	receipt, err := write(ctx, req.Command())
	if err != nil {
		// validation failures are routine client errors
		level := slog.LevelError
		if dErrors.HasCode(err, dErrors.CodeValidation) {
			level = slog.LevelInfo
		}
		h.logger.Log(ctx, level, "kyc write request failed",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &WriteResponse{
		TxID:    receipt.TxID,
		Message: message,
	})
}

// HandleGet handles GET /get-dkyc?customerId=.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	rec, err := h.service.Retrieve(ctx, customerFromQuery(r.URL.Query().Get))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to retrieve kyc record",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toKYCResponse(rec))
}

// HandleListWorkflows handles GET /workflows?state=&limit=.
func (h *Handler) HandleListWorkflows(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	q := r.URL.Query()

	var state workflow.State
	if raw := q.Get("state"); raw != "" {
		parsed, err := workflow.ParseState(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, err.Error()))
			return
		}
		state = parsed
	}
	limit, err := parseLimit(q.Get("limit"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.workflows.List(ctx, state, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list workflows",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list workflows"))
		return
	}
	if entries == nil {
		entries = []workflow.Entry{}
	}

	httputil.WriteJSON(w, http.StatusOK, &WorkflowListResponse{
		Workflows: entries,
		Count:     len(entries),
	})
}

func toKYCResponse(rec *models.KYCRecord) *KYCResponse {
	return &KYCResponse{
		Customer:     rec.CustomerID.String(),
		Name:         rec.Name,
		DateOfBirth:  rec.DateOfBirth,
		HomeAddress:  rec.HomeAddress,
		DocumentHash: rec.DocumentHash.String(),
		StorageKey:   rec.StorageKey.String(),
		Verified:     rec.Verified,
		Exists:       rec.Exists,
	}
}
