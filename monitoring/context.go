package monitoring

import "context"

type contextKey string

const requestIDKey contextKey = "request_id"

// WithRequestID 将请求ID写入上下文
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID 从上下文中获取请求ID
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
