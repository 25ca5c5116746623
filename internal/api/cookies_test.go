package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserCookiesRoundTrip(t *testing.T) {
	r := newTestRouter(t, &fakePools{})

	w := do(r, http.MethodGet, "/api/user-cookies", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"onboarding":false,"privacy":false}`, w.Body.String())

	w = do(r, http.MethodPost, "/api/user-cookies?name=onboarding", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"onboarding":true,"privacy":false}`, w.Body.String())

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "onboarding", cookies[0].Name)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	assert.True(t, cookies[0].HttpOnly)
	assert.False(t, cookies[0].Secure)

	req := httptest.NewRequest(http.MethodGet, "/api/user-cookies", nil)
	req.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.JSONEq(t, `{"onboarding":true,"privacy":false}`, w.Body.String())

	req = httptest.NewRequest(http.MethodDelete, "/api/user-cookies?name=onboarding", nil)
	req.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.JSONEq(t, `{"onboarding":false,"privacy":false}`, w.Body.String())
	require.Len(t, w.Result().Cookies(), 1)
	assert.True(t, w.Result().Cookies()[0].MaxAge < 0)
}

func TestUserCookiesRejectsUnknownName(t *testing.T) {
	r := newTestRouter(t, &fakePools{})
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/user-cookies?name=tracking", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodDelete, "/api/user-cookies", "", nil).Code)
}

func TestUserCookiesSecureInProduction(t *testing.T) {
	r := NewRouter(context.Background(), &fakePools{}, fakeAccess{}, Options{Production: true}, nil)
	defer gin.SetMode(gin.TestMode)

	w := do(r, http.MethodPost, "/api/user-cookies?name=privacy", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, w.Result().Cookies(), 1)
	assert.True(t, w.Result().Cookies()[0].Secure)
}
