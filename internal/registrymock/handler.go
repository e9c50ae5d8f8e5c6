package registrymock

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"cardportal/internal/registry/models"
	dErrors "cardportal/pkg/domain-errors"
	"cardportal/pkg/platform/httputil"
	"cardportal/pkg/platform/middleware/request"
)

// multipartMemory is how much of an upload is held in memory before spilling to disk.
const multipartMemory = 8 << 20

// Handler serves the registry API over a Store.
type Handler struct {
	store  *Store
	logger *slog.Logger
}

// NewHandler creates the mock registry handler.
func NewHandler(store *Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Register mounts the registry routes on r, relative to the API root.
func (h *Handler) Register(r chi.Router) {
	r.Get("/user/{userID}/", h.HandleGetUser)
	r.Get("/card/{cardNumber}/", h.HandleGetCard)

	r.Group(func(r chi.Router) {
		r.Use(request.ContentTypeJSON)
		r.Get("/update/user/{userID}/", h.HandleGetUser)
		r.Put("/update/user/{userID}/", h.HandleUpdateUser)
		r.Patch("/update/user/{userID}/", h.HandleUpdateUser)
		r.Get("/update/card/{cardNumber}/", h.HandleGetCard)
		r.Put("/update/card/{cardNumber}/", h.HandleUpdateCard)
		r.Patch("/update/card/{cardNumber}/", h.HandleUpdateCard)
	})

	r.Post("/register/", h.HandleRegister)
}

// RegisterMedia mounts the document download route on r.
func (h *Handler) RegisterMedia(r chi.Router) {
	r.Get(MediaPrefix+"{name}", h.HandleDocument)
}

// NotFound answers unknown routes in the registry's error shape.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
}

// MethodNotAllowed answers known routes called with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{
		"detail": `Method "` + r.Method + `" not allowed.`,
	})
}

// HandleGetUser handles GET /user/{userID}/.
func (h *Handler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.FindByUser(r.Context(), pathParam(r, "userID"))
	h.respond(w, r, http.StatusOK, rec, err)
}

// HandleGetCard handles GET /card/{cardNumber}/.
func (h *Handler) HandleGetCard(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.FindByCard(r.Context(), pathParam(r, "cardNumber"))
	h.respond(w, r, http.StatusOK, rec, err)
}

// HandleUpdateUser handles PUT|PATCH /update/user/{userID}/.
func (h *Handler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(ctx context.Context, c Changes) (models.Record, error) {
		return h.store.UpdateByUser(ctx, pathParam(r, "userID"), c)
	})
}

// HandleUpdateCard handles PUT|PATCH /update/card/{cardNumber}/.
func (h *Handler) HandleUpdateCard(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(ctx context.Context, c Changes) (models.Record, error) {
		return h.store.UpdateByCard(ctx, pathParam(r, "cardNumber"), c)
	})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request, apply func(context.Context, Changes) (models.Record, error)) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[updateRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}

	rec, err := apply(ctx, req.changes())
	if dErrors.HasCode(err, dErrors.CodeConflict) {
		err = httputil.FieldErrors{"car_plate": {dErrors.Message(err)}}
	}
	h.respond(w, r, http.StatusOK, rec, err)
}

// HandleRegister handles POST /register/ with a multipart form.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.logger.WarnContext(ctx, "failed to parse registration form",
			"error", err,
			"request_id", request.GetRequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Multipart form parse error - "+err.Error()))
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	reg, err := readRegistration(r.MultipartForm)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	rec, err := h.store.Register(ctx, reg)
	if dErrors.HasCode(err, dErrors.CodeConflict) {
		err = httputil.FieldErrors{"non_field_errors": {dErrors.Message(err)}}
	}
	h.respond(w, r, http.StatusCreated, rec, err)
}

// readRegistration validates every field before anything is stored; all field
// errors are reported together.
func readRegistration(form *multipart.Form) (Registration, error) {
	errs := httputil.FieldErrors{}
	text := func(field, rules string) string {
		vs, ok := form.Value[field]
		if !ok || len(vs) == 0 {
			errs.Add(field, msgRequired)
			return ""
		}
		v := strings.TrimSpace(vs[0])
		checkText(errs, field, v, rules)
		return v
	}

	reg := Registration{
		IDUser:     text("id_user", ruleIDUser),
		FullName:   text("full_name", ruleFullName),
		CardNumber: text("card_number", ruleCardNumber),
		State:      models.StateActive,
	}
	if vs, ok := form.Value["state"]; ok && len(vs) > 0 {
		checkState(errs, "state", vs[0])
		reg.State = models.State(vs[0])
	}
	reg.CarPlate = text("car_plate", ruleCarPlate)
	reg.Brand = text("brand", ruleBrand)

	files := form.File["authorization_document"]
	if len(files) == 0 {
		errs.Add("authorization_document", msgNoFile)
	} else {
		fh := files[0]
		checkDocument(errs, "authorization_document", fh.Filename, fh.Size)
		if _, failed := errs["authorization_document"]; !failed {
			doc, err := readFile(fh)
			if err != nil {
				return Registration{}, err
			}
			reg.Document = doc
			reg.DocumentName = fh.Filename
		}
	}

	if !errs.Empty() {
		return Registration{}, errs
	}
	return reg, nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// HandleDocument serves a stored document.
func (h *Handler) HandleDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.store.Document(pathParam(r, "name"))
	if !ok {
		NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, rec models.Record, err error) {
	if err != nil {
		var fieldErrs httputil.FieldErrors
		if !errors.As(err, &fieldErrs) && !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(r.Context(), "registry request failed",
				"error", err,
				"request_id", request.GetRequestID(r.Context()),
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, status, rec)
}

// pathParam returns an unescaped URL parameter; chi matches on the raw path.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// NewRouter wires the mock registry with its API under apiPrefix and documents at
// the media root.
func NewRouter(h *Handler, logger *slog.Logger, apiPrefix string, maxUploadBytes int64) http.Handler {
	r := chi.NewRouter()
	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(request.Logger(logger))
	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)

	h.RegisterMedia(r)
	r.Route(apiPrefix, func(r chi.Router) {
		if maxUploadBytes > 0 {
			r.Use(request.BodyLimit(maxUploadBytes))
		}
		r.NotFound(NotFound)
		r.MethodNotAllowed(MethodNotAllowed)
		h.Register(r)
	})
	return r
}
