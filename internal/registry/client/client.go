// Package client exposes the registry API operations the portal uses: lookup by user
// or card, full-replace update and multipart registration.
package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"

	"cardportal/internal/registry/gateway"
	"cardportal/internal/registry/models"
	"cardportal/internal/registry/tracer"
	dErrors "cardportal/pkg/domain-errors"
)

// MsgEmptySearch is surfaced when a lookup is attempted with a blank key.
const MsgEmptySearch = "Please enter a value to search"

// MsgNoSelection is surfaced when an update is attempted before a record was looked up.
const MsgNoSelection = "Please search for a record before saving changes"

// Client calls the registry through the gateway.
type Client struct {
	gateway  *gateway.Gateway
	validate *validator.Validate
	tracer   tracer.Tracer
}

// Option configures the Client.
type Option func(*Client)

// WithTracer sets the tracer used for operation spans.
func WithTracer(t tracer.Tracer) Option {
	return func(c *Client) {
		c.tracer = t
	}
}

// New creates a registry client on top of gw.
func New(gw *gateway.Gateway, opts ...Option) *Client {
	c := &Client{
		gateway:  gw,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		tracer:   tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type lookupInput struct {
	Key string `validate:"required"`
}

type updateInput struct {
	Kind models.SearchKind `validate:"oneof=user card"`
	Key  string            `validate:"required"`
}

// Lookup fetches one record by user id or card number. The key is trimmed first; a
// blank key fails through the gateway's failure path without touching the network.
// A 204 from the registry yields a nil record and no error.
func (c *Client) Lookup(ctx context.Context, kind models.SearchKind, key string) (rec *models.Record, err error) {
	key = strings.TrimSpace(key)
	ctx, span := c.tracer.Start(ctx, tracer.SpanLookup,
		tracer.String(tracer.AttrSearchKind, string(kind)),
		tracer.String(tracer.AttrKeyHash, tracer.HashKey(key)),
	)
	defer func() { span.End(err) }()

	if err := c.validate.Struct(lookupInput{Key: key}); err != nil {
		return nil, c.gateway.Fail(ctx, dErrors.Wrap(err, dErrors.CodeValidation, MsgEmptySearch))
	}

	var out models.Record
	raw, err := c.gateway.Call(ctx, lookupPath(kind, key), gateway.Options{
		Into:      &out,
		Operation: string(kind) + ".get",
	})
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return &out, nil
}

// Update replaces the editable fields of the record addressed by kind and key. The
// request always carries the four UpdatePayload fields. It returns the record as the
// registry reports it after the update, or nil on 204.
func (c *Client) Update(ctx context.Context, kind models.SearchKind, key string, payload models.UpdatePayload) (rec *models.Record, err error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanUpdate,
		tracer.String(tracer.AttrSearchKind, string(kind)),
		tracer.String(tracer.AttrKeyHash, tracer.HashKey(key)),
	)
	defer func() { span.End(err) }()

	if err := c.validate.Struct(updateInput{Kind: kind, Key: key}); err != nil {
		return nil, c.gateway.Fail(ctx, dErrors.Wrap(err, dErrors.CodeValidation, MsgNoSelection))
	}

	var out models.Record
	raw, err := c.gateway.Call(ctx, updatePath(kind, key), gateway.Options{
		Method:    http.MethodPut,
		Body:      payload,
		Into:      &out,
		Operation: string(kind) + ".update",
	})
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return &out, nil
}

// Register creates a user and card from a multipart form. The body is forwarded
// as is; the created record carries the new id_user.
func (c *Client) Register(ctx context.Context, body *gateway.Multipart) (rec *models.Record, err error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanRegister,
		tracer.Int64(tracer.AttrParts, int64(body.Len())),
	)
	defer func() { span.End(err) }()

	var out models.Record
	raw, err := c.gateway.Call(ctx, "/register/", gateway.Options{
		Method:    http.MethodPost,
		Body:      body,
		Into:      &out,
		Operation: "register",
	})
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return &out, nil
}

func lookupPath(kind models.SearchKind, key string) string {
	if kind == models.KindUser {
		return "/user/" + url.PathEscape(key) + "/"
	}
	return "/card/" + url.PathEscape(key) + "/"
}

func updatePath(kind models.SearchKind, key string) string {
	return "/update/" + string(kind) + "/" + url.PathEscape(key) + "/"
}
