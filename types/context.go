package types

import "context"

// contextKey is used for storing values in context.Context.
type contextKey string

const (
	keyRequestID contextKey = "request_id"
	keyProvider  contextKey = "provider"
	keyModel     contextKey = "model"
)

// WithRequestID adds a request correlation id to context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, keyRequestID, requestID)
}

// RequestID extracts the request correlation id from context.
func RequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyRequestID).(string)
	return v, ok && v != ""
}

// WithProvider adds the provider name to context.
func WithProvider(ctx context.Context, provider string) context.Context {
	return context.WithValue(ctx, keyProvider, provider)
}

// Provider extracts the provider name from context.
func Provider(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyProvider).(string)
	return v, ok && v != ""
}

// WithModel adds the model id to context.
func WithModel(ctx context.Context, model string) context.Context {
	return context.WithValue(ctx, keyModel, model)
}

// Model extracts the model id from context.
func Model(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyModel).(string)
	return v, ok && v != ""
}
