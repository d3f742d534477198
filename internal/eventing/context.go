package eventing

import "context"

type contextKey string

const (
	contextKeyEnvelope contextKey = "eventing.envelope"
	contextKeyMeta     contextKey = "eventing.meta"
)

// WithEnvelope attaches the in-flight delivery to the context so
// consumers can read tenant and correlation metadata for the event
// they are handling.
func WithEnvelope(ctx context.Context, env Envelope) context.Context {
	return context.WithValue(ctx, contextKeyEnvelope, env)
}

// EnvelopeFromContext returns the delivery envelope during dispatch.
func EnvelopeFromContext(ctx context.Context) (Envelope, bool) {
	env, ok := ctx.Value(contextKeyEnvelope).(Envelope)
	return env, ok
}

// WithMeta attaches request-scoped event metadata, so that events
// published while serving the request inherit its tenant and
// correlation id.
func WithMeta(ctx context.Context, meta Meta) context.Context {
	return context.WithValue(ctx, contextKeyMeta, meta)
}

// MetaFromContext resolves the metadata for a new event. Missing
// fields fall back to the in-flight delivery, so a settlement event
// raised while handling a count event stays on the same correlation
// chain, and finally to the configured tenant.
func MetaFromContext(ctx context.Context, defaultTenantID string) Meta {
	meta, _ := ctx.Value(contextKeyMeta).(Meta)
	if env, ok := EnvelopeFromContext(ctx); ok {
		if meta.TenantID == "" {
			meta.TenantID = env.TenantID
		}
		if meta.CorrelationID == "" {
			meta.CorrelationID = env.CorrelationID
		}
	}
	if meta.TenantID == "" {
		meta.TenantID = defaultTenantID
	}
	return meta
}
