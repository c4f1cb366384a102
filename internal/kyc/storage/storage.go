// Package storage issues presigned S3 URLs for staging KYC documents. No
// document bytes pass through the gateway: customers PUT directly to the
// bucket and bankers GET directly from it.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"dkyc/internal/kyc/models"
	"dkyc/internal/kyc/tracer"
	"dkyc/pkg/domain"
	dErrors "dkyc/pkg/domain-errors"
	"dkyc/pkg/platform/validation"
)

const (
	// DefaultTTL is the lifetime of every presigned URL.
	DefaultTTL          = 600 * time.Second
	DefaultPrefix       = "uploads/"
	DefaultFilename     = "document"
	DefaultContentType  = "application/octet-stream"
	nonceLength         = 8
	missingBucketReason = "KYC_BUCKET is not set"
)

// Presigner is the subset of *s3.PresignClient the brokers use.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Config selects the bucket and URL lifetime. An empty Bucket is a
// per-request configuration error, not a startup failure.
type Config struct {
	Bucket string
	Prefix string
	TTL    time.Duration
}

type broker struct {
	presigner Presigner
	cfg       Config
	logger    *slog.Logger
	tracer    tracer.Tracer
	now       func() time.Time
	nonce     func() string
}

// Option configures a broker.
type Option func(*broker)

func WithLogger(logger *slog.Logger) Option {
	return func(b *broker) { b.logger = logger }
}

func WithTracer(t tracer.Tracer) Option {
	return func(b *broker) { b.tracer = t }
}

// WithClock replaces time.Now for key generation and expiry.
func WithClock(now func() time.Time) Option {
	return func(b *broker) { b.now = now }
}

// WithNonce replaces the random key component.
func WithNonce(nonce func() string) Option {
	return func(b *broker) { b.nonce = nonce }
}

func newBroker(p Presigner, cfg Config, opts ...Option) broker {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	b := broker{
		presigner: p,
		cfg:       cfg,
		logger:    slog.Default(),
		tracer:    tracer.NewNoop(),
		now:       time.Now,
		nonce:     func() string { return uuid.NewString()[:nonceLength] },
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b *broker) bucket() (string, error) {
	if strings.TrimSpace(b.cfg.Bucket) == "" {
		return "", dErrors.New(dErrors.CodeConfiguration, missingBucketReason)
	}
	return b.cfg.Bucket, nil
}

// Configured reports whether a bucket is set; used by the readiness probe.
func (b *broker) Configured() bool {
	_, err := b.bucket()
	return err == nil
}

// UploadBroker issues presigned PUT URLs under server-generated keys.
type UploadBroker struct {
	broker
}

func NewUploadBroker(p Presigner, cfg Config, opts ...Option) *UploadBroker {
	return &UploadBroker{broker: newBroker(p, cfg, opts...)}
}

// CreateUploadTarget returns a PUT URL and the key the object will live
// under. The key is <prefix><unix millis>-<nonce>-<sanitised filename>; the
// client never chooses it. Missing filename and content type fall back to
// "document" and application/octet-stream.
func (u *UploadBroker) CreateUploadTarget(ctx context.Context, filenameHint, contentType string) (_ *models.UploadTarget, err error) {
	ctx, span := u.tracer.Start(ctx, tracer.SpanStorageUpload)
	defer func() { span.End(err) }()

	bucket, err := u.bucket()
	if err != nil {
		return nil, err
	}
	contentType, err = normalizeContentType(contentType)
	if err != nil {
		return nil, err
	}

	now := u.now()
	key, err := domain.ParseStorageKey(fmt.Sprintf("%s%d-%s-%s", u.cfg.Prefix, now.UnixMilli(), u.nonce(), SanitizeFilename(filenameHint)))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConfiguration, "upload prefix produces invalid storage keys")
	}
	span.SetAttributes(tracer.String(tracer.AttrStorageKey, key.String()))

	req, err := u.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key.String()),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(u.cfg.TTL))
	if err != nil {
		u.logger.ErrorContext(ctx, "failed to presign upload", "error", err, "storage_key", key.String())
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate upload URL")
	}

	return &models.UploadTarget{
		UploadURL:  req.URL,
		StorageKey: key,
		ExpiresAt:  now.Add(u.cfg.TTL),
	}, nil
}

// DownloadBroker issues presigned GET URLs for existing keys. It does not
// check that the object exists; a missing object fails at access time.
type DownloadBroker struct {
	broker
}

func NewDownloadBroker(p Presigner, cfg Config, opts ...Option) *DownloadBroker {
	return &DownloadBroker{broker: newBroker(p, cfg, opts...)}
}

func (d *DownloadBroker) CreateDownloadURL(ctx context.Context, rawKey string) (_ *models.DownloadTarget, err error) {
	ctx, span := d.tracer.Start(ctx, tracer.SpanStorageDownload)
	defer func() { span.End(err) }()

	bucket, err := d.bucket()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(rawKey) == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "storage key is required")
	}
	key, err := domain.ParseStorageKey(rawKey)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(tracer.String(tracer.AttrStorageKey, key.String()))

	req, err := d.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key.String()),
	}, s3.WithPresignExpires(d.cfg.TTL))
	if err != nil {
		d.logger.ErrorContext(ctx, "failed to presign download", "error", err, "storage_key", key.String())
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate download URL")
	}

	return &models.DownloadTarget{
		DownloadURL: req.URL,
		StorageKey:  key,
		ExpiresAt:   d.now().Add(d.cfg.TTL),
	}, nil
}

// SanitizeFilename keeps the base name and replaces anything outside
// [A-Za-z0-9._-] with '_'. Empty or dot-only names become "document".
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	name = path.Base(name)

	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	out := sb.String()
	if len(out) > validation.MaxFilenameLength {
		out = out[len(out)-validation.MaxFilenameLength:]
	}
	if strings.Trim(out, "._") == "" {
		return DefaultFilename
	}
	return out
}

func normalizeContentType(ct string) (string, error) {
	ct = strings.TrimSpace(ct)
	if ct == "" {
		return DefaultContentType, nil
	}
	if len(ct) > validation.MaxContentTypeLength {
		return "", dErrors.New(dErrors.CodeBadRequest, "content type is too long")
	}
	if _, _, err := mime.ParseMediaType(ct); err != nil {
		return "", dErrors.New(dErrors.CodeBadRequest, "content type is malformed")
	}
	return ct, nil
}
