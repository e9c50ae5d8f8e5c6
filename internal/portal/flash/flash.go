// Package flash carries the single transient banner of a request from the code that
// raises it to the page that renders it.
package flash

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Kind styles a banner.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// DismissAfter is how long a banner stays on screen.
const DismissAfter = 5 * time.Second

// Message is one banner.
type Message struct {
	Kind Kind
	Text string
}

// Box holds at most one message; a later message replaces an earlier one.
type Box struct {
	mu  sync.Mutex
	msg *Message
}

// Set replaces the current message.
func (b *Box) Set(kind Kind, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msg = &Message{Kind: kind, Text: text}
}

// Current returns the message to show, if any.
func (b *Box) Current() (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.msg == nil {
		return Message{}, false
	}
	return *b.msg, true
}

type ctxKey struct{}

// NewContext returns a context carrying a fresh Box.
func NewContext(ctx context.Context) (context.Context, *Box) {
	box := &Box{}
	return context.WithValue(ctx, ctxKey{}, box), box
}

// FromContext returns the request's Box, or nil outside a request.
func FromContext(ctx context.Context) *Box {
	box, _ := ctx.Value(ctxKey{}).(*Box)
	return box
}

// Middleware gives every request its own Box.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, _ := NewContext(r.Context())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Counter counts banners by kind.
type Counter interface {
	IncrementBanners(kind string)
}

// Notifier raises banners on the request's Box. Its Notify method is the gateway's
// failure sink.
type Notifier struct {
	counter Counter
}

// NewNotifier creates a notifier; counter may be nil.
func NewNotifier(counter Counter) *Notifier {
	return &Notifier{counter: counter}
}

// Notify raises an error banner.
func (n *Notifier) Notify(ctx context.Context, message string) {
	n.raise(ctx, KindError, message)
}

// Success raises a success banner.
func (n *Notifier) Success(ctx context.Context, message string) {
	n.raise(ctx, KindSuccess, message)
}

func (n *Notifier) raise(ctx context.Context, kind Kind, message string) {
	box := FromContext(ctx)
	if box == nil {
		return
	}
	box.Set(kind, message)
	if n.counter != nil {
		n.counter.IncrementBanners(string(kind))
	}
}
