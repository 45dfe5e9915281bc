package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/raaulc/shared-tasks/internal/app/system/auth"
)

// TestUser represents user data for testing HTTP handlers.
type TestUser struct {
	ID    string
	Name  string
	Email string
}

// SignedInUser returns a TestUser with a stable identity.
func SignedInUser() TestUser {
	return TestUser{
		ID:    "auth0|test-user-1",
		Name:  "Test User",
		Email: "user@test.com",
	}
}

// WithUser adds a user to the request context for testing authenticated handlers.
// This bypasses the session middleware and injects the user directly.
func WithUser(r *http.Request, user TestUser) *http.Request {
	sessionUser := &auth.SessionUser{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
	}
	return auth.WithTestUser(r, sessionUser)
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// NewAuthenticatedRequest creates an HTTP request with a user in context.
func NewAuthenticatedRequest(method, target string, user TestUser) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return WithUser(req, user)
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d", r.Code, expected)
	}
}

// AssertRedirect checks for a redirect to the expected location.
func (r *ResponseRecorder) AssertRedirect(t interface{ Errorf(string, ...any) }, expectedLocation string) {
	if r.Code != http.StatusSeeOther && r.Code != http.StatusFound && r.Code != http.StatusMovedPermanently {
		t.Errorf("expected redirect status, got %d", r.Code)
	}
	location := r.Header().Get("Location")
	if location != expectedLocation {
		t.Errorf("redirect location: got %q, want %q", location, expectedLocation)
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	if !strings.Contains(r.Body.String(), expected) {
		t.Errorf("response body does not contain %q", expected)
	}
}
