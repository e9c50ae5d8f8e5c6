// Package tracer provides a lightweight tracing abstraction for registry API calls.
//
// The gateway depends on this interface rather than on OpenTelemetry directly, so tests
// run with the no-op tracer and production wires the OTel adapter.
//
// Implementations:
//   - NoopTracer: for tests
//   - OTelTracer: OpenTelemetry adapter for production
package tracer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span, marking it failed when err is non-nil.
	// End must be called exactly once, typically via defer.
	End(err error)

	// SetAttributes adds key-value pairs to the span.
	SetAttributes(attrs ...Attribute)

	// AddEvent records a timestamped event within the span.
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	// Start creates a new span with the given name and attributes.
	// The returned context carries the span and should be passed to child operations.
	//
	// Example:
	//   ctx, span := tr.Start(ctx, tracer.SpanRegistryCall,
	//       tracer.String(tracer.AttrOperation, "card.get"),
	//   )
	//   defer span.End(err)
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

// String creates a string attribute.
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Bool creates a boolean attribute.
func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int64 creates an int64 attribute.
func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// HashKey returns a short SHA-256 digest of a search key (user id or card number)
// so traces can be correlated without carrying the identifier itself.
func HashKey(key string) string {
	if key == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:8])
}

// Span names.
const (
	SpanRegistryCall = "registry.call"
	SpanLookup       = "registry.lookup"
	SpanUpdate       = "registry.update"
	SpanRegister     = "registry.register"
)

// Attribute keys.
const (
	AttrOperation  = "registry.operation"
	AttrMethod     = "http.method"
	AttrEndpoint   = "registry.endpoint"
	AttrStatusCode = "http.status_code"
	AttrSearchKind = "registry.search_kind"
	AttrKeyHash    = "registry.key_hash"
	AttrMultipart  = "registry.multipart"
	AttrParts      = "registry.parts"
)

// Event names.
const (
	EventFailureSurfaced = "failure.surfaced"
)
