package portal

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string, query url.Values) error
	PostForm(path string, form url.Values) error
	PostMultipart(path string, fields map[string]string, filename string, doc []byte) error
	GetLastResponseBody() []byte
}

// RegisterSteps registers the portal's search, update and registration steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &portalSteps{tc: tc}

	ctx.Step(`^the portal is running against an empty registry$`, steps.portalIsRunning)
	ctx.Step(`^I open the "([^"]*)" tab$`, steps.openTab)
	ctx.Step(`^I search by (user|card) for "([^"]*)"$`, steps.search)
	ctx.Step(`^I look up (user|card) "([^"]*)" for editing$`, steps.updateSearch)
	ctx.Step(`^I register the following record:$`, steps.register)
	ctx.Step(`^I register the following record without a document:$`, steps.registerWithoutDocument)
	ctx.Step(`^I save (user|card) "([^"]*)" with:$`, steps.save)
	ctx.Step(`^I should see the (success|error) banner "([^"]*)"$`, steps.bannerShouldBe)
	ctx.Step(`^I should see no banner$`, steps.noBanner)
	ctx.Step(`^the search results should be (shown|hidden)$`, steps.resultsShould)
	ctx.Step(`^the edit form should be (shown|hidden)$`, steps.editFormShould)
	ctx.Step(`^the "([^"]*)" field should read "([^"]*)"$`, steps.fieldShouldRead)
}

type portalSteps struct {
	tc TestContext
}

func (s *portalSteps) portalIsRunning(context.Context) error {
	return s.tc.GET("/health/live", nil)
}

func (s *portalSteps) openTab(_ context.Context, tab string) error {
	return s.tc.GET("/", url.Values{"tab": {tab}})
}

func (s *portalSteps) search(_ context.Context, kind, key string) error {
	return s.tc.GET("/search", url.Values{"kind": {kind}, "q": {key}})
}

func (s *portalSteps) updateSearch(_ context.Context, kind, key string) error {
	return s.tc.GET("/update", url.Values{"kind": {kind}, "q": {key}})
}

func (s *portalSteps) register(_ context.Context, table *godog.Table) error {
	fields, err := tableFields(table)
	if err != nil {
		return err
	}
	return s.tc.PostMultipart("/register", fields, "permiso.pdf", []byte("%PDF-1.4 e2e"))
}

func (s *portalSteps) registerWithoutDocument(_ context.Context, table *godog.Table) error {
	fields, err := tableFields(table)
	if err != nil {
		return err
	}
	return s.tc.PostMultipart("/register", fields, "", nil)
}

func (s *portalSteps) save(_ context.Context, kind, key string, table *godog.Table) error {
	fields, err := tableFields(table)
	if err != nil {
		return err
	}
	form := url.Values{"kind": {kind}, "key": {key}}
	for k, v := range fields {
		form.Set(k, v)
	}
	return s.tc.PostForm("/update", form)
}

var bannerPattern = regexp.MustCompile(`<div id="message" class="message (\w+)"[^>]*>([^<]*)</div>`)

func (s *portalSteps) banner() (kind, text string, ok bool) {
	m := bannerPattern.FindSubmatch(s.tc.GetLastResponseBody())
	if m == nil {
		return "", "", false
	}
	return string(m[1]), html.UnescapeString(string(m[2])), true
}

func (s *portalSteps) bannerShouldBe(_ context.Context, kind, text string) error {
	gotKind, gotText, ok := s.banner()
	if !ok {
		return fmt.Errorf("expected a %s banner, page has none", kind)
	}
	if gotKind != kind || gotText != text {
		return fmt.Errorf("expected %s banner %q, got %s banner %q", kind, text, gotKind, gotText)
	}
	return nil
}

func (s *portalSteps) noBanner(context.Context) error {
	if _, text, ok := s.banner(); ok {
		return fmt.Errorf("expected no banner, got %q", text)
	}
	return nil
}

func (s *portalSteps) resultsShould(_ context.Context, state string) error {
	return s.presence(`id="resultadoConsulta"`, "search results", state)
}

func (s *portalSteps) editFormShould(_ context.Context, state string) error {
	return s.presence(`id="updateForm"`, "edit form", state)
}

func (s *portalSteps) presence(marker, what, state string) error {
	shown := strings.Contains(string(s.tc.GetLastResponseBody()), marker)
	if shown != (state == "shown") {
		return fmt.Errorf("expected %s to be %s", what, state)
	}
	return nil
}

var fieldPattern = regexp.MustCompile(`<label>([^<]*)</label><div class="value[^"]*">(?:<a [^>]*>)?([^<]*)`)

func (s *portalSteps) fieldShouldRead(_ context.Context, label, value string) error {
	for _, m := range fieldPattern.FindAllSubmatch(s.tc.GetLastResponseBody(), -1) {
		if html.UnescapeString(string(m[1])) != label {
			continue
		}
		if got := html.UnescapeString(string(m[2])); got != value {
			return fmt.Errorf("expected %q to read %q, got %q", label, value, got)
		}
		return nil
	}
	return fmt.Errorf("field %q not on the page", label)
}

func tableFields(table *godog.Table) (map[string]string, error) {
	fields := make(map[string]string)
	for i, row := range table.Rows {
		if len(row.Cells) != 2 {
			return nil, fmt.Errorf("row %d: expected 2 cells, got %d", i+1, len(row.Cells))
		}
		fields[row.Cells[0].Value] = row.Cells[1].Value
	}
	return fields, nil
}
