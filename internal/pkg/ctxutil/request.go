package ctxutil

import "context"

type requestDataKey struct{}

// RequestData carries per-request identifiers through handlers and services.
type RequestData struct {
	RequestID string
	TraceID   string
	Admin     bool
	// Subject is the admin token subject; empty for API-key callers.
	Subject string
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(Default(ctx), requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	rd, _ := ctx.Value(requestDataKey{}).(*RequestData)
	return rd
}
