package common

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers common step definitions used across features
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the page should contain "([^"]*)"$`, steps.pageShouldContain)
	ctx.Step(`^the page should not contain "([^"]*)"$`, steps.pageShouldNotContain)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) responseStatusShouldBe(_ context.Context, expected int) error {
	if got := s.tc.GetLastResponseStatus(); got != expected {
		return fmt.Errorf("expected status %d, got %d", expected, got)
	}
	return nil
}

// page compares against unescaped markup so expectations can be written as shown.
func (s *commonSteps) page() string {
	return html.UnescapeString(string(s.tc.GetLastResponseBody()))
}

func (s *commonSteps) pageShouldContain(_ context.Context, text string) error {
	if !strings.Contains(s.page(), text) {
		return fmt.Errorf("expected page to contain %q", text)
	}
	return nil
}

func (s *commonSteps) pageShouldNotContain(_ context.Context, text string) error {
	if strings.Contains(s.page(), text) {
		return fmt.Errorf("expected page not to contain %q", text)
	}
	return nil
}
