package api_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowpost/slowpost/api"
	"github.com/slowpost/slowpost/auth"
	"github.com/slowpost/slowpost/mail"
	"github.com/slowpost/slowpost/store/memory"
)

func newTestAPI(t *testing.T) *api.API {
	t.Helper()
	st := memory.New()
	svc := auth.NewService(st, auth.WithSkipPin(true))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return api.New(st, svc, mail.NewLogMailer(logger), api.WithLogger(logger))
}

// dispatchBoth runs the same logical request through the direct Dispatch
// seam and through the HTTP front-end, and requires identical status and
// body from each.
func dispatchBoth(t *testing.T, a *api.API, method, path, body string) (int, string) {
	t.Helper()
	d := a.Dispatcher()

	req := &api.Request{
		Method:     method,
		Path:       path,
		Cookies:    map[string]string{},
		Body:       []byte(body),
		RemoteAddr: "192.0.2.1:1234",
	}
	res := d.Dispatch(context.Background(), req)
	require.NotNil(t, res)
	direct, err := json.Marshal(res.Body)
	require.NoError(t, err)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	httpReq := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, httpReq)

	assert.Equal(t, res.Status, rec.Code, "status must agree across entry points")
	assert.JSONEq(t, string(direct), rec.Body.String(), "body must agree across entry points")
	return res.Status, rec.Body.String()
}

func TestDispatchUnmatchedRouteIs404(t *testing.T) {
	a := newTestAPI(t)
	status, body := dispatchBoth(t, a, http.MethodGet, "/api/no/such/route", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, "not found")

	// Same path, wrong method.
	status, _ = dispatchBoth(t, a, http.MethodDelete, "/api/auth/login", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestDispatchAuthRequiredWithoutSessionIs401(t *testing.T) {
	a := newTestAPI(t)
	status, body := dispatchBoth(t, a, http.MethodGet, "/api/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, body, "authentication required")
}

func TestDispatchMalformedBodyIs400(t *testing.T) {
	a := newTestAPI(t)
	status, _ := dispatchBoth(t, a, http.MethodPost, "/api/auth/request-pin", "{not json")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = dispatchBoth(t, a, http.MethodPost, "/api/auth/request-pin", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestDispatchTrailingSlashMatches(t *testing.T) {
	a := newTestAPI(t)
	status, _ := dispatchBoth(t, a, http.MethodPost, "/api/auth/request-pin/", `{"email":"a@example.com"}`)
	assert.Equal(t, http.StatusOK, status)
}

func TestDispatchSetsSessionCookie(t *testing.T) {
	a := newTestAPI(t)
	d := a.Dispatcher()

	signupBody := `{"email":"a@example.com","username":"alice","fullName":"Alice","pin":"000000"}`
	httpReq := httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader(signupBody))
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, httpReq)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, "auth_token", c.Name)
	assert.NotEmpty(t, c.Value)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, 30*24*60*60, c.MaxAge)
	assert.Equal(t, "/", c.Path)

	// Logout clears it.
	httpReq = httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	httpReq.AddCookie(&http.Cookie{Name: "auth_token", Value: c.Value})
	rec = httptest.NewRecorder()
	d.ServeHTTP(rec, httpReq)
	require.Equal(t, http.StatusOK, rec.Code)

	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}
