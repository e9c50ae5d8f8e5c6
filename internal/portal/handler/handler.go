// Package handler serves the portal's three tabs. Registry failures are surfaced by
// the gateway; handlers only decide which panels to show afterwards.
package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"cardportal/internal/portal/flash"
	"cardportal/internal/portal/view"
	"cardportal/internal/registry/gateway"
	"cardportal/internal/registry/models"
	dErrors "cardportal/pkg/domain-errors"
	"cardportal/pkg/platform/httputil"
	"cardportal/pkg/platform/middleware/request"
)

// Banner texts.
const (
	MsgUpdated      = "Success! The information has been updated completely."
	MsgRegistered   = "Registro creado exitosamente. ID de Usuario: "
	MsgInvalidForm  = "The submitted form could not be read."
	MsgFileTooLarge = "The uploaded file is too large."
)

// multipartMemory is how much of an upload is held in memory before spilling to disk.
const multipartMemory = 8 << 20

// Registry is the set of registry operations the portal needs.
type Registry interface {
	Lookup(ctx context.Context, kind models.SearchKind, key string) (*models.Record, error)
	Update(ctx context.Context, kind models.SearchKind, key string, payload models.UpdatePayload) (*models.Record, error)
	Register(ctx context.Context, body *gateway.Multipart) (*models.Record, error)
}

// Banners raises page banners.
type Banners interface {
	Notify(ctx context.Context, message string)
	Success(ctx context.Context, message string)
}

// Handler renders the portal pages.
type Handler struct {
	registry Registry
	banners  Banners
	renderer *view.Renderer
	viewOpts view.Options
	logger   *slog.Logger
}

// Option configures the Handler.
type Option func(*Handler)

// WithViewOptions sets how records are presented.
func WithViewOptions(opts view.Options) Option {
	return func(h *Handler) {
		h.viewOpts = opts
	}
}

// New creates the portal handler.
func New(registry Registry, banners Banners, renderer *view.Renderer, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		registry: registry,
		banners:  banners,
		renderer: renderer,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterReads mounts the page and search routes.
func (h *Handler) RegisterReads(r chi.Router) {
	r.Get("/", h.HandleIndex)
	r.Get("/search", h.HandleSearch)
	r.Get("/update", h.HandleUpdateSearch)
}

// RegisterWrites mounts the routes that change registry data.
func (h *Handler) RegisterWrites(r chi.Router) {
	r.Post("/update", h.HandleUpdate)
	r.Post("/register", h.HandleRegister)
}

// HandleIndex handles GET /?tab=.
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, nil, view.NewPage(view.ParseTab(r.URL.Query().Get("tab"))))
}

// HandleSearch handles GET /search?kind=&q= and shows the read-only record.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	kind := models.ParseSearchKind(query.Get("kind"))

	page := view.NewPage(view.TabSearch)
	page.Search.Kind = kind
	page.Search.Query = query.Get("q")

	rec, err := h.registry.Lookup(r.Context(), kind, query.Get("q"))
	if err == nil && rec != nil {
		rv := view.NewRecordView(*rec, h.viewOpts)
		page.Search.Result = &rv
	}
	h.render(w, r, err, page)
}

// HandleUpdateSearch handles GET /update?kind=&q= and shows the edit form.
func (h *Handler) HandleUpdateSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	kind := models.ParseSearchKind(query.Get("kind"))
	key := strings.TrimSpace(query.Get("q"))

	page := view.NewPage(view.TabUpdate)
	page.Update.Kind = kind
	page.Update.Query = query.Get("q")

	rec, err := h.registry.Lookup(r.Context(), kind, key)
	if err == nil && rec != nil {
		form := view.NewEditForm(*rec, kind, key)
		page.Update.Form = &form
	}
	h.render(w, r, err, page)
}

// HandleUpdate handles POST /update. The edit form stays on screen either way: with
// the registry's record after a save, with the submitted values after a failure.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := view.NewPage(view.TabUpdate)

	if err := r.ParseForm(); err != nil {
		h.banners.Notify(ctx, MsgInvalidForm)
		h.render(w, r, dErrors.Wrap(err, dErrors.CodeBadRequest, MsgInvalidForm), page)
		return
	}

	kind := models.ParseSearchKind(r.PostForm.Get("kind"))
	key := r.PostForm.Get("key")
	payload := models.UpdatePayload{
		FullName: r.PostForm.Get("full_name"),
		State:    models.State(r.PostForm.Get("state")),
		CarPlate: r.PostForm.Get("car_plate"),
		Brand:    r.PostForm.Get("brand"),
	}
	page.Update.Kind = kind
	page.Update.Query = key

	rec, err := h.registry.Update(ctx, kind, key, payload)
	shown := models.Record{FullName: payload.FullName, State: payload.State, CarPlate: payload.CarPlate, Brand: payload.Brand}
	if err == nil {
		h.banners.Success(ctx, MsgUpdated)
		if rec != nil {
			shown = *rec
		}
	}
	if key != "" {
		form := view.NewEditForm(shown, kind, key)
		page.Update.Form = &form
	}
	h.render(w, r, err, page)
}

// HandleRegister handles POST /register. Every named field and file of the form is
// forwarded; the form is cleared after a successful registration and kept otherwise.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := view.NewPage(view.TabRegister)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		msg := MsgInvalidForm
		code := dErrors.CodeBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			msg = MsgFileTooLarge
			code = dErrors.CodeValidation
		}
		h.banners.Notify(ctx, msg)
		h.render(w, r, dErrors.Wrap(err, code, msg), page)
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	body, values, closers, err := formBody(r.MultipartForm)
	defer closeAll(closers)
	if err != nil {
		h.banners.Notify(ctx, MsgInvalidForm)
		h.render(w, r, dErrors.Wrap(err, dErrors.CodeBadRequest, MsgInvalidForm), page)
		return
	}

	rec, err := h.registry.Register(ctx, body)
	if err != nil {
		page.Register = view.NewRegisterForm(values)
		h.render(w, r, err, page)
		return
	}

	var id string
	if rec != nil {
		id = rec.IDUser
	}
	h.banners.Success(ctx, MsgRegistered+id)
	h.render(w, r, nil, page)
}

// formBody rebuilds the submitted form as a multipart body: the known registration
// fields first in form order, then any other fields and files by name.
func formBody(form *multipart.Form) (*gateway.Multipart, map[string]string, []io.Closer, error) {
	body := gateway.NewMultipart()
	values := make(map[string]string, len(form.Value))

	for _, name := range orderedNames(form.Value) {
		for _, v := range form.Value[name] {
			body.AddField(name, v)
		}
		if vs := form.Value[name]; len(vs) > 0 {
			values[name] = vs[0]
		}
	}

	var closers []io.Closer
	for _, name := range orderedNames(form.File) {
		for _, fh := range form.File[name] {
			f, err := fh.Open()
			if err != nil {
				return nil, nil, closers, err
			}
			closers = append(closers, f)
			body.AddFile(name, fh.Filename, fh.Header.Get("Content-Type"), f)
		}
	}
	return body, values, closers, nil
}

func orderedNames[V any](m map[string]V) []string {
	known := make(map[string]bool, len(view.RegisterFields))
	var names []string
	for _, name := range view.RegisterFields {
		known[name] = true
		if _, ok := m[name]; ok {
			names = append(names, name)
		}
	}
	var rest []string
	for name := range m {
		if !known[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		_ = c.Close()
	}
}

// render writes page with the request's banner. The status follows err so scripted
// clients can tell failures apart; browsers show the page either way.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, err error, page view.Page) {
	page = page.WithBanner(flash.FromContext(r.Context()))

	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
	}

	var buf bytes.Buffer
	if renderErr := h.renderer.Page(&buf, page); renderErr != nil {
		h.logger.ErrorContext(r.Context(), "failed to render page",
			"error", renderErr,
			"request_id", request.GetRequestID(r.Context()),
		)
		http.Error(w, "A server error occurred.", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func statusFor(err error) int {
	var httpErr *gateway.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Status < http.StatusInternalServerError {
			return httpErr.Status
		}
		return http.StatusBadGateway
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return httputil.DomainCodeToHTTPStatus(de.Code)
	}
	return http.StatusInternalServerError
}
