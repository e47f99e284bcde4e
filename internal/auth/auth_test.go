package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Token and request-validation paths never touch the store, so a nil
// store is enough here. Register/Login against a live database are
// covered by the API integration environment.
func testService() *Service {
	return NewService(nil, "test-secret")
}

func TestTokenRoundTrip(t *testing.T) {
	s := testService()

	token, err := s.issueToken("user_abc")
	require.NoError(t, err)

	userID, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user_abc", userID)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := testService().issueToken("user_abc")
	require.NoError(t, err)

	_, err = NewService(nil, "other-secret").ValidateToken(token)
	assert.Error(t, err)
}

func TestRequireAuthInjectsUserID(t *testing.T) {
	s := testService()
	token, err := s.issueToken("user_abc")
	require.NoError(t, err)

	var seen string
	h := s.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/designs", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user_abc", seen)
}

func TestRequireAuthRejects(t *testing.T) {
	s := testService()
	h := s.RequireAuth(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic dXNlcjpwdw=="},
		{"empty token", "Bearer "},
		{"garbage token", "Bearer not.a.jwt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/designs", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestUserIDFromContextOutsideMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, UserIDFromContext(req.Context()))
}

func TestRegisterRejectsBadInput(t *testing.T) {
	h := NewHandler(testService())

	cases := []struct {
		name string
		body string
	}{
		{"not json", "{nope"},
		{"missing fields", `{"email":"a@b.c"}`},
		{"no at sign", `{"email":"nobody","password":"longenough","displayName":"N"}`},
		{"short password", `{"email":"a@b.c","password":"short","displayName":"N"}`},
		{"long display name", `{"email":"a@b.c","password":"longenough","displayName":"` + strings.Repeat("x", maxDisplayNameLen+1) + `"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			h.Register(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
}

func TestLoginRejectsBadInput(t *testing.T) {
	h := NewHandler(testService())

	for _, body := range []string{"{nope", `{"email":"a@b.c"}`, `{"password":"pw"}`} {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.Login(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
}
