// Package requestcontext carries request-scoped values set by middleware.
package requestcontext

import "context"

type ctxKey int

const (
	keyRequestID ctxKey = iota
	keyClientIP
	keyUserAgent
	keyDevice
)

// WithRequestID stores the request correlation ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

// RequestID returns the correlation ID, or "" outside a request.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(keyRequestID).(string)
	return v
}

// WithClientMetadata stores the caller's IP, raw User-Agent and a display label
// for the device ("Chrome on Windows").
func WithClientMetadata(ctx context.Context, ip, userAgent, device string) context.Context {
	ctx = context.WithValue(ctx, keyClientIP, ip)
	ctx = context.WithValue(ctx, keyUserAgent, userAgent)
	return context.WithValue(ctx, keyDevice, device)
}

func ClientIP(ctx context.Context) string {
	v, _ := ctx.Value(keyClientIP).(string)
	return v
}

func UserAgent(ctx context.Context) string {
	v, _ := ctx.Value(keyUserAgent).(string)
	return v
}

func Device(ctx context.Context) string {
	v, _ := ctx.Value(keyDevice).(string)
	return v
}
