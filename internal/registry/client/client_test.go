package client

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"cardportal/internal/registry/gateway"
	"cardportal/internal/registry/gateway/mocks"
	"cardportal/internal/registry/models"
	dErrors "cardportal/pkg/domain-errors"
)

type ClientSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	doer     *mocks.MockHTTPDoer
	notifier *mocks.MockNotifier
	client   *Client
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.doer = mocks.NewMockHTTPDoer(s.ctrl)
	s.notifier = mocks.NewMockNotifier(s.ctrl)
	gw := gateway.New("http://registry.test/api", slog.New(slog.NewTextHandler(io.Discard, nil)),
		gateway.WithHTTPClient(s.doer),
		gateway.WithNotifier(s.notifier),
	)
	s.client = New(gw)
}

func (s *ClientSuite) TearDownTest() {
	s.ctrl.Finish()
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func (s *ClientSuite) TestLookup() {
	s.Run("card search hits the card endpoint", func() {
		s.doer.EXPECT().Do(gomock.Any()).DoAndReturn(func(req *http.Request) (*http.Response, error) {
			s.Equal(http.MethodGet, req.Method)
			s.Equal("/api/card/ABC123/", req.URL.EscapedPath())
			return response(http.StatusOK, `{"id_user":"0801199912345","card_number":"ABC123","state":"active"}`), nil
		})

		rec, err := s.client.Lookup(context.Background(), models.KindCard, "ABC123")
		s.Require().NoError(err)
		s.Equal("ABC123", rec.CardNumber)
		s.Equal(models.StateActive, rec.State)
	})

	s.Run("user search trims the key", func() {
		s.doer.EXPECT().Do(gomock.Any()).DoAndReturn(func(req *http.Request) (*http.Response, error) {
			s.Equal("/api/user/42/", req.URL.EscapedPath())
			return response(http.StatusOK, `{"id_user":"42"}`), nil
		})

		rec, err := s.client.Lookup(context.Background(), models.KindUser, "  42 \t")
		s.Require().NoError(err)
		s.Equal("42", rec.IDUser)
	})

	s.Run("key is path escaped", func() {
		s.doer.EXPECT().Do(gomock.Any()).DoAndReturn(func(req *http.Request) (*http.Response, error) {
			s.Equal("/api/card/A%2FB%20C/", req.URL.EscapedPath())
			return response(http.StatusOK, `{}`), nil
		})

		_, err := s.client.Lookup(context.Background(), models.KindCard, "A/B C")
		s.Require().NoError(err)
	})

	s.Run("blank key fails without a network call", func() {
		s.doer.EXPECT().Do(gomock.Any()).Times(0)
		s.notifier.EXPECT().Notify(gomock.Any(), MsgEmptySearch).Times(1)

		rec, err := s.client.Lookup(context.Background(), models.KindUser, "   ")
		s.Require().Error(err)
		s.Nil(rec)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("registry error is surfaced once and returned", func() {
		s.doer.EXPECT().Do(gomock.Any()).Return(response(http.StatusNotFound, `{"detail":"not found"}`), nil)
		s.notifier.EXPECT().Notify(gomock.Any(), "not found").Times(1)

		rec, err := s.client.Lookup(context.Background(), models.KindCard, "ABC123")
		s.Require().Error(err)
		s.Nil(rec)
		s.True(dErrors.HasCode(err, dErrors.CodeUpstream))
	})

	s.Run("no content yields no record", func() {
		s.doer.EXPECT().Do(gomock.Any()).Return(response(http.StatusNoContent, ""), nil)

		rec, err := s.client.Lookup(context.Background(), models.KindCard, "ABC123")
		s.NoError(err)
		s.Nil(rec)
	})
}

func (s *ClientSuite) TestUpdate() {
	s.Run("sends exactly four fields with PUT", func() {
		s.doer.EXPECT().Do(gomock.Any()).DoAndReturn(func(req *http.Request) (*http.Response, error) {
			s.Equal(http.MethodPut, req.Method)
			s.Equal("/api/update/user/42/", req.URL.EscapedPath())
			s.Equal("application/json", req.Header.Get("Content-Type"))

			var body map[string]any
			s.Require().NoError(json.NewDecoder(req.Body).Decode(&body))
			s.Len(body, 4)
			s.Equal(map[string]any{
				"full_name": "Ana López",
				"state":     "expired",
				"car_plate": "HAA1234",
				"brand":     "",
			}, body)
			return response(http.StatusOK, `{"id_user":"42","state":"expired","updated":"2024-05-02T15:04:05Z"}`), nil
		})

		rec, err := s.client.Update(context.Background(), models.KindUser, "42", models.UpdatePayload{
			FullName: "Ana López",
			State:    models.StateExpired,
			CarPlate: "HAA1234",
		})
		s.Require().NoError(err)
		s.Equal(models.StateExpired, rec.State)
	})

	s.Run("card updates go to the card endpoint", func() {
		s.doer.EXPECT().Do(gomock.Any()).DoAndReturn(func(req *http.Request) (*http.Response, error) {
			s.Equal("/api/update/card/ABC123/", req.URL.EscapedPath())
			return response(http.StatusOK, `{}`), nil
		})

		_, err := s.client.Update(context.Background(), models.KindCard, "ABC123", models.UpdatePayload{})
		s.Require().NoError(err)
	})

	s.Run("missing key fails without a network call", func() {
		s.doer.EXPECT().Do(gomock.Any()).Times(0)
		s.notifier.EXPECT().Notify(gomock.Any(), MsgNoSelection).Times(1)

		_, err := s.client.Update(context.Background(), models.KindUser, "", models.UpdatePayload{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("field errors are joined into one message", func() {
		s.doer.EXPECT().Do(gomock.Any()).Return(response(http.StatusBadRequest,
			`{"car_plate":["Ensure this field has no more than 8 characters."]}`), nil)
		s.notifier.EXPECT().Notify(gomock.Any(), "Ensure this field has no more than 8 characters.").Times(1)

		_, err := s.client.Update(context.Background(), models.KindUser, "42", models.UpdatePayload{CarPlate: "TOO-LONG-PLATE"})
		s.Require().Error(err)
	})
}

func (s *ClientSuite) TestRegister() {
	s.Run("posts multipart to the register endpoint", func() {
		s.doer.EXPECT().Do(gomock.Any()).DoAndReturn(func(req *http.Request) (*http.Response, error) {
			s.Equal(http.MethodPost, req.Method)
			s.Equal("/api/register/", req.URL.EscapedPath())
			s.True(strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/form-data; boundary="))

			s.Require().NoError(req.ParseMultipartForm(1 << 20))
			s.Equal("0801199912345", req.FormValue("id_user"))
			return response(http.StatusCreated, `{"id_user":"0801199912345"}`), nil
		})

		body := gateway.NewMultipart()
		body.AddField("id_user", "0801199912345")
		body.AddFile("authorization_document", "permiso.pdf", "application/pdf", strings.NewReader("%PDF"))

		rec, err := s.client.Register(context.Background(), body)
		s.Require().NoError(err)
		s.Equal("0801199912345", rec.IDUser)
	})

	s.Run("non-field errors are surfaced", func() {
		s.doer.EXPECT().Do(gomock.Any()).Return(response(http.StatusBadRequest,
			`{"non_field_errors":["A user with this id_user already exists."]}`), nil)
		s.notifier.EXPECT().Notify(gomock.Any(), "A user with this id_user already exists.").Times(1)

		_, err := s.client.Register(context.Background(), gateway.NewMultipart())
		s.Require().Error(err)
	})
}
