// Package gateway issues every request the portal makes to the registry API and owns
// the single failure path: failures are logged, surfaced once to the user and then
// returned so callers can adjust the panels that depend on them.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cardportal/internal/registry/tracer"
	dErrors "cardportal/pkg/domain-errors"
	"cardportal/pkg/platform/middleware/request"
)

const (
	headerAccept      = "Accept"
	headerContentType = "Content-Type"
	jsonContentType   = "application/json"
)

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// BusyIndicator is acquired around every call; the returned func releases it.
type BusyIndicator interface {
	Busy(ctx context.Context) (done func())
}

// Notifier shows a transient failure message to the user.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// Recorder observes call outcomes.
type Recorder interface {
	ObserveRegistryCall(operation, outcome string, durationSeconds float64)
}

// Options describe one call.
type Options struct {
	// Method defaults to GET.
	Method string
	// Header is merged into the request before Accept and Content-Type are applied.
	Header http.Header
	// Body is a JSON-serialisable value, raw JSON ([]byte, json.RawMessage, string)
	// sent verbatim, or a *Multipart.
	Body any
	// Into, when set, receives the decoded success body.
	Into any
	// Operation is a low-cardinality name for logs, metrics and traces ("card.get").
	Operation string
}

// Gateway wraps the registry HTTP API.
type Gateway struct {
	baseURL  string
	client   HTTPDoer
	logger   *slog.Logger
	busy     BusyIndicator
	notifier Notifier
	recorder Recorder
	tracer   tracer.Tracer
}

// Option configures the Gateway.
type Option func(*Gateway)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(client HTTPDoer) Option {
	return func(g *Gateway) {
		g.client = client
	}
}

// WithTimeout bounds every call. Zero keeps the transport default.
func WithTimeout(timeout time.Duration) Option {
	return func(g *Gateway) {
		if timeout > 0 {
			g.client = &http.Client{Timeout: timeout}
		}
	}
}

// WithBusyIndicator sets the indicator acquired around each call.
func WithBusyIndicator(b BusyIndicator) Option {
	return func(g *Gateway) {
		g.busy = b
	}
}

// WithNotifier sets where failure messages are surfaced.
func WithNotifier(n Notifier) Option {
	return func(g *Gateway) {
		g.notifier = n
	}
}

// WithRecorder sets the call metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(g *Gateway) {
		g.recorder = r
	}
}

// WithTracer sets the tracer used for call spans.
func WithTracer(t tracer.Tracer) Option {
	return func(g *Gateway) {
		g.tracer = t
	}
}

// New creates a gateway for the API rooted at baseURL (no trailing slash expected,
// endpoints start with one).
func New(baseURL string, logger *slog.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		baseURL:  baseURL,
		client:   &http.Client{},
		logger:   logger,
		busy:     noopBusy{},
		notifier: noopNotifier{},
		recorder: noopRecorder{},
		tracer:   tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Call issues one request against baseURL+endpoint.
//
// It returns the raw JSON body on success and nil for 204 No Content. Every failure
// (transport, non-2xx status, malformed body) is surfaced through Fail before it is
// returned.
func (g *Gateway) Call(ctx context.Context, endpoint string, opts Options) (result json.RawMessage, err error) {
	done := g.busy.Busy(ctx)
	defer done()

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	operation := opts.Operation
	if operation == "" {
		operation = strings.ToLower(method)
	}

	start := time.Now()
	ctx, span := g.tracer.Start(ctx, tracer.SpanRegistryCall,
		tracer.String(tracer.AttrOperation, operation),
		tracer.String(tracer.AttrMethod, method),
		tracer.Bool(tracer.AttrMultipart, isMultipart(opts.Body)),
	)
	defer func() {
		span.End(err)
		g.recorder.ObserveRegistryCall(operation, outcome(err), time.Since(start).Seconds())
	}()

	result, status, err := g.do(ctx, method, endpoint, opts)
	if status != 0 {
		span.SetAttributes(tracer.Int64(tracer.AttrStatusCode, int64(status)))
	}
	if err != nil {
		span.AddEvent(tracer.EventFailureSurfaced)
		return nil, g.Fail(ctx, err)
	}
	return result, nil
}

// Fail logs err, surfaces its message once through the notifier and returns it
// unchanged. Local failures that never reach the network (empty search input) go
// through here too, so every failure reaches the user the same way.
func (g *Gateway) Fail(ctx context.Context, err error) error {
	level := slog.LevelError
	if dErrors.HasCode(err, dErrors.CodeValidation) {
		level = slog.LevelWarn
	}
	g.logger.Log(ctx, level, "registry call failed",
		"error", err,
		"request_id", request.GetRequestID(ctx),
	)
	g.notifier.Notify(ctx, dErrors.Message(err))
	return err
}

func (g *Gateway) do(ctx context.Context, method, endpoint string, opts Options) (json.RawMessage, int, error) {
	body, contentType, err := encodeBody(opts.Body)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+endpoint, body)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, err.Error())
	}
	for key, values := range opts.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set(headerAccept, jsonContentType)
	req.Header.Set(headerContentType, contentType)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeTransport, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// An unreadable error body is treated like an unparsable one.
		raw, _ := io.ReadAll(resp.Body)
		httpErr := &HTTPError{Status: resp.StatusCode, StatusText: statusText(resp)}
		return nil, resp.StatusCode, dErrors.Wrap(httpErr, dErrors.CodeUpstream, errorMessage(raw, httpErr))
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil, resp.StatusCode, nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, dErrors.Wrap(err, dErrors.CodeTransport, err.Error())
	}

	target := opts.Into
	if target == nil {
		target = &json.RawMessage{}
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return nil, resp.StatusCode, dErrors.Wrap(err, dErrors.CodeTransport, err.Error())
	}
	return json.RawMessage(raw), resp.StatusCode, nil
}

// encodeBody returns the request body and the Content-Type to send with it.
// Multipart bodies supply their own boundary-carrying content type; everything
// else is sent as JSON.
func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, jsonContentType, nil
	case *Multipart:
		if b == nil {
			return nil, jsonContentType, nil
		}
		return b.encode()
	case json.RawMessage:
		return bytes.NewReader(b), jsonContentType, nil
	case []byte:
		return bytes.NewReader(b), jsonContentType, nil
	case string:
		return strings.NewReader(b), jsonContentType, nil
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(raw), jsonContentType, nil
	}
}

func isMultipart(body any) bool {
	m, ok := body.(*Multipart)
	return ok && m != nil
}

// statusText extracts the reason phrase from resp.Status ("404 Not Found" -> "Not Found").
func statusText(resp *http.Response) string {
	return strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return string(de.Code)
	}
	return string(dErrors.CodeInternal)
}

type noopBusy struct{}

func (noopBusy) Busy(context.Context) func() { return func() {} }

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, string) {}

type noopRecorder struct{}

func (noopRecorder) ObserveRegistryCall(string, string, float64) {}
