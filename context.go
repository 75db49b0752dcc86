package goSession

import "context"

type clientIPContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. IssueSession uses it
// for the per-IP rate limit and audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// ClientIPFromContext returns the IP attached by WithClientIP.
func ClientIPFromContext(ctx context.Context) string {
	return clientIPFromContext(ctx)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
