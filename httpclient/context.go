/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import "context"

type ctxKey int

const (
	ctxKeyRequestType ctxKey = iota
	ctxKeyAuthToken
)

func getStringFromContext(ctx context.Context, key ctxKey) string {
	s, _ := ctx.Value(key).(string)
	return s
}

// NewContextWithRequestType creates a new context with request type.
// Request type is a short name of the outgoing call ("get_product", "batch_update_products")
// that is used in logs and as a metrics label.
func NewContextWithRequestType(ctx context.Context, requestType string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestType, requestType)
}

// GetRequestTypeFromContext extracts request type from the context.
func GetRequestTypeFromContext(ctx context.Context) string {
	return getStringFromContext(ctx, ctxKeyRequestType)
}

// NewContextWithAuthToken creates a new context carrying the bearer token of the caller.
func NewContextWithAuthToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ctxKeyAuthToken, token)
}

// GetAuthTokenFromContext extracts the bearer token from the context.
func GetAuthTokenFromContext(ctx context.Context) string {
	return getStringFromContext(ctx, ctxKeyAuthToken)
}
