package handler

//go:generate mockgen -source=handler.go -destination=mocks/handler_mock.go -package=mocks Registry

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"cardportal/internal/portal/flash"
	"cardportal/internal/portal/handler/mocks"
	"cardportal/internal/portal/view"
	"cardportal/internal/registry/client"
	"cardportal/internal/registry/gateway"
	"cardportal/internal/registry/models"
	dErrors "cardportal/pkg/domain-errors"
)

type HandlerSuite struct {
	suite.Suite
	ctrl         *gomock.Controller
	mockRegistry *mocks.MockRegistry
	notifier     *flash.Notifier
	router       http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func newRouter(t *testing.T, registry Registry, notifier *flash.Notifier) http.Handler {
	t.Helper()
	renderer, err := view.NewRenderer()
	require.NoError(t, err)

	h := New(registry, notifier, renderer, slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithViewOptions(view.Options{DocumentBaseURL: "https://servertest1.me/"}),
	)
	r := chi.NewRouter()
	r.Use(flash.Middleware)
	h.RegisterReads(r)
	h.RegisterWrites(r)
	return r
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockRegistry = mocks.NewMockRegistry(s.ctrl)
	s.notifier = flash.NewNotifier(nil)
	s.router = newRouter(s.T(), s.mockRegistry, s.notifier)
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// failWith mimics the gateway: surface the message, then return the error.
func (s *HandlerSuite) failWith(msg string, code dErrors.Code) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		s.notifier.Notify(ctx, msg)
		return dErrors.New(code, msg)
	}
}

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func registrationRequest(t *testing.T, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	part, err := w.CreateFormFile("authorization_document", "permiso.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/register", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func (s *HandlerSuite) TestIndex() {
	s.Run("defaults to the search tab", func() {
		rec := s.serve(httptest.NewRequest(http.MethodGet, "/", nil))

		s.Equal(http.StatusOK, rec.Code)
		s.Contains(rec.Body.String(), `id="consulta" class="tab-panel active"`)
		s.NotContains(rec.Body.String(), `id="message"`)
	})

	s.Run("opens the requested tab", func() {
		rec := s.serve(httptest.NewRequest(http.MethodGet, "/?tab=registro", nil))

		s.Contains(rec.Body.String(), `id="registro" class="tab-panel active"`)
		s.Equal("text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	})
}

func (s *HandlerSuite) TestSearch() {
	s.Run("shows the record", func() {
		s.mockRegistry.EXPECT().Lookup(gomock.Any(), models.KindCard, "ABC123").Return(&models.Record{
			IDUser:     "0801199912345",
			FullName:   "Ana <b>López</b>",
			CardNumber: "ABC123",
			State:      models.StateActive,
		}, nil)

		rec := s.serve(httptest.NewRequest(http.MethodGet, "/search?kind=card&q=ABC123", nil))

		s.Equal(http.StatusOK, rec.Code)
		body := rec.Body.String()
		s.Contains(body, `id="resultadoConsulta"`)
		s.Contains(body, "0801199912345")
		s.Contains(body, "Ana &lt;b&gt;López&lt;/b&gt;")
		s.Contains(body, `class="value state-active">Activa`)
	})

	s.Run("unknown kind searches by card", func() {
		s.mockRegistry.EXPECT().Lookup(gomock.Any(), models.KindCard, "X").Return(&models.Record{}, nil)

		rec := s.serve(httptest.NewRequest(http.MethodGet, "/search?kind=plate&q=X", nil))
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("failure hides the results and shows the banner", func() {
		fail := s.failWith("not found", dErrors.CodeUpstream)
		s.mockRegistry.EXPECT().Lookup(gomock.Any(), models.KindCard, "ABC123").
			DoAndReturn(func(ctx context.Context, _ models.SearchKind, _ string) (*models.Record, error) {
				return nil, fail(ctx)
			})

		rec := s.serve(httptest.NewRequest(http.MethodGet, "/search?kind=card&q=ABC123", nil))

		s.Equal(http.StatusBadGateway, rec.Code)
		body := rec.Body.String()
		s.NotContains(body, `id="resultadoConsulta"`)
		s.Contains(body, `class="message error"`)
		s.Contains(body, ">not found</div>")
		s.Contains(body, `value="ABC123"`, "search input keeps its value")
	})
}

func (s *HandlerSuite) TestUpdateSearch() {
	s.Run("shows the edit form for the trimmed key", func() {
		s.mockRegistry.EXPECT().Lookup(gomock.Any(), models.KindUser, "42").Return(&models.Record{
			FullName: "Ana",
			State:    models.StateInactive,
			CarPlate: "HAA1234",
		}, nil)

		rec := s.serve(httptest.NewRequest(http.MethodGet, "/update?kind=user&q=+42+", nil))

		body := rec.Body.String()
		s.Contains(body, `id="actualizar" class="tab-panel active"`)
		s.Contains(body, "Actualizar Información para: 42")
		s.Contains(body, `<option value="inactive" selected>Inactiva</option>`)
		s.Contains(body, `name="car_plate" value="HAA1234"`)
	})

	s.Run("failure hides the form", func() {
		fail := s.failWith("Please enter a value to search", dErrors.CodeValidation)
		s.mockRegistry.EXPECT().Lookup(gomock.Any(), models.KindUser, "").
			DoAndReturn(func(ctx context.Context, _ models.SearchKind, _ string) (*models.Record, error) {
				return nil, fail(ctx)
			})

		rec := s.serve(httptest.NewRequest(http.MethodGet, "/update?kind=user&q=", nil))

		s.Equal(http.StatusBadRequest, rec.Code)
		s.NotContains(rec.Body.String(), `id="formularioActualizar"`)
		s.Contains(rec.Body.String(), "Please enter a value to search")
	})
}

func (s *HandlerSuite) TestUpdate() {
	form := url.Values{
		"kind":      {"user"},
		"key":       {"42"},
		"full_name": {"Ana López"},
		"state":     {"expired"},
		"car_plate": {"HAA1234"},
		"brand":     {"Toyota"},
	}
	submitted := models.UpdatePayload{
		FullName: "Ana López",
		State:    models.StateExpired,
		CarPlate: "HAA1234",
		Brand:    "Toyota",
	}

	s.Run("saves and re-renders from the registry response", func() {
		s.mockRegistry.EXPECT().Update(gomock.Any(), models.KindUser, "42", submitted).Return(&models.Record{
			FullName: "ANA LÓPEZ",
			State:    models.StateExpired,
			CarPlate: "HAA1234",
			Brand:    "Toyota",
		}, nil)

		rec := s.serve(postForm("/update", form))

		s.Equal(http.StatusOK, rec.Code)
		body := rec.Body.String()
		s.Contains(body, `class="message success"`)
		s.Contains(body, MsgUpdated)
		s.Contains(body, `value="ANA LÓPEZ"`)
		s.Contains(body, `<option value="expired" selected>Expirada</option>`)
	})

	s.Run("failure keeps the submitted values", func() {
		fail := s.failWith("Plate HAA1234 already registered.", dErrors.CodeUpstream)
		s.mockRegistry.EXPECT().Update(gomock.Any(), models.KindUser, "42", submitted).
			DoAndReturn(func(ctx context.Context, _ models.SearchKind, _ string, _ models.UpdatePayload) (*models.Record, error) {
				return nil, fail(ctx)
			})

		rec := s.serve(postForm("/update", form))

		body := rec.Body.String()
		s.Contains(body, `class="message error"`)
		s.Contains(body, "Plate HAA1234 already registered.")
		s.NotContains(body, MsgUpdated)
		s.Contains(body, `value="Ana López"`)
		s.Contains(body, `id="formularioActualizar"`)
	})

	s.Run("no content keeps the submitted values", func() {
		s.mockRegistry.EXPECT().Update(gomock.Any(), models.KindUser, "42", submitted).Return(nil, nil)

		rec := s.serve(postForm("/update", form))

		s.Contains(rec.Body.String(), MsgUpdated)
		s.Contains(rec.Body.String(), `value="Ana López"`)
	})
}

func (s *HandlerSuite) TestRegister() {
	fields := map[string]string{
		"id_user":     "0801199912345",
		"full_name":   "Ana López",
		"card_number": "ABC123",
		"state":       "inactive",
		"car_plate":   "HAA1234",
		"brand":       "Toyota",
	}

	s.Run("forwards every field and file, then clears the form", func() {
		s.mockRegistry.EXPECT().Register(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, body *gateway.Multipart) (*models.Record, error) {
				s.Equal(len(fields)+1, body.Len())
				for name, want := range fields {
					got, ok := body.Value(name)
					s.True(ok, name)
					s.Equal(want, got, name)
				}
				return &models.Record{IDUser: "0801199912345"}, nil
			})

		rec := s.serve(registrationRequest(s.T(), fields))

		s.Equal(http.StatusOK, rec.Code)
		body := rec.Body.String()
		s.Contains(body, MsgRegistered+"0801199912345")
		s.Contains(body, `name="id_user" value=""`)
		s.Contains(body, `id="registro" class="tab-panel active"`)
	})

	s.Run("failure keeps the values", func() {
		fail := s.failWith("Card number ABC123 already in use.", dErrors.CodeUpstream)
		s.mockRegistry.EXPECT().Register(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, _ *gateway.Multipart) (*models.Record, error) {
				return nil, fail(ctx)
			})

		rec := s.serve(registrationRequest(s.T(), fields))

		body := rec.Body.String()
		s.Contains(body, "Card number ABC123 already in use.")
		s.NotContains(body, MsgRegistered)
		s.Contains(body, `name="id_user" value="0801199912345"`)
		s.Contains(body, `<option value="inactive" selected>Inactiva</option>`)
	})

	s.Run("unreadable form", func() {
		req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader("garbage"))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=nope")

		rec := s.serve(req)

		s.Equal(http.StatusBadRequest, rec.Code)
		s.Contains(rec.Body.String(), MsgInvalidForm)
	})
}

func TestOrderedNames(t *testing.T) {
	names := orderedNames(map[string][]string{
		"brand":   {"x"},
		"zeta":    {"x"},
		"id_user": {"x"},
		"alpha":   {"x"},
	})
	assert.Equal(t, []string{"id_user", "brand", "alpha", "zeta"}, names)
}

// The portal wired to a real client and gateway against a fake registry.
func TestSearchThroughGateway(t *testing.T) {
	var calls int
	registry := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/api/card/ABC123/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"not found"}`))
	}))
	defer registry.Close()

	notifier := flash.NewNotifier(nil)
	gw := gateway.New(registry.URL+"/api", slog.New(slog.NewTextHandler(io.Discard, nil)), gateway.WithNotifier(notifier))
	router := newRouter(t, client.New(gw), notifier)

	t.Run("registry error becomes the banner and hides results", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search?kind=card&q=ABC123", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), `<div id="message" class="message error" role="status" data-dismiss-seconds="5">not found</div>`)
		assert.NotContains(t, rec.Body.String(), `id="resultadoConsulta"`)
		assert.Equal(t, 1, calls)
	})

	t.Run("blank search never reaches the registry", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search?kind=card&q=+++", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), client.MsgEmptySearch)
		assert.Equal(t, 1, calls)
	})
}
