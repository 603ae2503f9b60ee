package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shule/core/user"
)

func Test_authApi_login(t *testing.T) {
	env := setupServer(t)
	student := env.demoUser(t, user.RoleStudent)

	t.Run("demo credentials sign in", func(t *testing.T) {
		body := marchallObj(t, LoginRequest{Email: student.Email, Password: user.DemoPassword})
		req, rec := newRequest(http.MethodPost, "/v1/auth/login", body)
		env.server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
		}
		var res LoginResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("Unmarshal() failed: %v", err)
		}
		assert.NotEmpty(t, res.Token)
		assert.Equal(t, student.ID, res.User.ID)
		assert.Equal(t, user.RoleStudent, res.User.Role)
	})

	t.Run("email is case-insensitive", func(t *testing.T) {
		body := marchallObj(t, LoginRequest{Email: "John.Student@School.KE", Password: user.DemoPassword})
		req, rec := newRequest(http.MethodPost, "/v1/auth/login", body)
		env.server.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	// wrong password and unknown email come back identical
	invalidCreds := marchallObj(t, httpErr{Error: "invalid credentials"})
	tests := []httpTest{
		{
			name:     "wrong password",
			body:     marchallObj(t, LoginRequest{Email: student.Email, Password: "nope"}),
			wantCode: http.StatusBadRequest,
			wantData: invalidCreds,
		},
		{
			name:     "unknown email",
			body:     marchallObj(t, LoginRequest{Email: "ghost@school.ke", Password: user.DemoPassword}),
			wantCode: http.StatusBadRequest,
			wantData: invalidCreds,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/auth/login", tt.body)
			env.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("missing fields are rejected per field", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/auth/login", []byte(`{}`))
		env.server.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var fldErrs map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &fldErrs); err != nil {
			t.Fatalf("Unmarshal() failed: %v", err)
		}
		assert.Contains(t, fldErrs, "email")
		assert.Contains(t, fldErrs, "password")
	})
}

func Test_authApi_me(t *testing.T) {
	env := setupServer(t)
	student := env.demoUser(t, user.RoleStudent)

	tests := []httpTest{
		{
			name:     "no token",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "me",
			token:    getToken(t, env.conf, student),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, student),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/auth/me", tt.token)
			env.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_authApi_logout(t *testing.T) {
	env := setupServer(t)
	token := getToken(t, env.conf, env.demoUser(t, user.RoleStudent))

	req, rec := newAuthRequest(http.MethodPost, "/v1/auth/logout", token)
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// logging out again stays a no-op
	req, rec = newAuthRequest(http.MethodPost, "/v1/auth/logout", token)
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func Test_authApi_refreshToken(t *testing.T) {
	env := setupServer(t)
	student := env.demoUser(t, user.RoleStudent)

	t.Run("refresh", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/auth/token-refresh", getToken(t, env.conf, student))
		env.server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
		}
		var res TokenResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("Unmarshal() failed: %v", err)
		}
		assert.NotEmpty(t, res.Token)
	})

	t.Run("deactivated account cannot refresh", func(t *testing.T) {
		isActive := false
		if _, err := env.usrSvc.Update(context.Background(), student.ID, user.UpdateUser{IsActive: &isActive}); err != nil {
			t.Fatalf("Update() failed: %v", err)
		}

		r, rec := newAuthRequest(http.MethodPost, "/v1/auth/token-refresh", getToken(t, env.conf, student))
		env.server.ServeHTTP(rec, r)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
