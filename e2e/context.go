package e2e

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"cardportal/internal/platform/health"
	"cardportal/internal/platform/metrics"
	"cardportal/internal/portal/flash"
	"cardportal/internal/portal/handler"
	"cardportal/internal/portal/view"
	"cardportal/internal/registry/client"
	"cardportal/internal/registry/gateway"
	"cardportal/internal/registrymock"
	httptransport "cardportal/internal/transport/http"
)

// TestContext holds the servers and the last response of a scenario.
type TestContext struct {
	BaseURL          string
	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte

	registry *httptest.Server
	portal   *httptest.Server
}

// NewTestContext starts a mock registry and a portal wired to it, unless BASE_URL
// points at an already running portal.
func NewTestContext() *TestContext {
	tc := &TestContext{
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
	if baseURL := os.Getenv("BASE_URL"); baseURL != "" {
		tc.BaseURL = baseURL
		return tc
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tc.registry = httptest.NewServer(registrymock.NewRouter(
		registrymock.NewHandler(registrymock.NewStore(), log), log, "/api", 10<<20,
	))

	m := metrics.New(prometheus.NewRegistry())
	banners := flash.NewNotifier(m)
	gw := gateway.New(tc.registry.URL+"/api", log,
		gateway.WithBusyIndicator(m),
		gateway.WithRecorder(m),
		gateway.WithNotifier(banners),
	)
	renderer, err := view.NewRenderer()
	if err != nil {
		panic(err)
	}
	portal := handler.New(client.New(gw), banners, renderer, log, handler.WithViewOptions(view.Options{
		DocumentBaseURL: tc.registry.URL,
		Location:        time.UTC,
	}))
	tc.portal = httptest.NewServer(httptransport.NewRouter(httptransport.Deps{
		Portal:         portal,
		Health:         health.New("test"),
		Logger:         log,
		MaxUploadBytes: 10 << 20,
	}))
	tc.BaseURL = tc.portal.URL
	return tc
}

// Close stops the in-process servers.
func (tc *TestContext) Close() {
	if tc.portal != nil {
		tc.portal.Close()
	}
	if tc.registry != nil {
		tc.registry.Close()
	}
}

// GET makes a GET request with query parameters and stores the response.
func (tc *TestContext) GET(path string, query url.Values) error {
	target := tc.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return tc.do(req)
}

// PostForm submits a url-encoded form and stores the response.
func (tc *TestContext) PostForm(path string, form url.Values) error {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, tc.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return tc.do(req)
}

// PostMultipart submits fields and an optional document as multipart/form-data.
func (tc *TestContext) PostMultipart(path string, fields map[string]string, filename string, doc []byte) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("authorization_document", filename)
		if err != nil {
			return err
		}
		if _, err := fw.Write(doc); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, tc.BaseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return tc.do(req)
}

func (tc *TestContext) do(req *http.Request) error {
	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

// GetLastResponseStatus returns the status code of the last response.
func (tc *TestContext) GetLastResponseStatus() int {
	if tc.LastResponse == nil {
		return 0
	}
	return tc.LastResponse.StatusCode
}

// GetLastResponseBody returns the body of the last response.
func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.LastResponseBody
}
