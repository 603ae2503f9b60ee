package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

// remote identity service endpoints
var (
	passwordGrantEndpoint = "/auth/v1/token?grant_type=password"
	currentUserEndpoint   = "/auth/v1/user"
	signOutEndpoint       = "/auth/v1/logout"
	profileEndpoint       = "/rest/v1/users"
)

// remoteAuthenticator talks to a hosted identity service: password sign-in,
// current-principal lookup, sign-out, and a user-profile table keyed by
// principal id.
type remoteAuthenticator struct {
	client  *http.Client
	baseURL string
	anonKey string

	mu          sync.Mutex
	accessToken string
}

var _ Authenticator = (*remoteAuthenticator)(nil)

func NewRemoteAuthenticator(conf *core.Config) Authenticator {
	return &remoteAuthenticator{
		client:  &http.Client{Timeout: conf.Identity.Timeout},
		baseURL: strings.TrimRight(conf.Identity.BaseURL, "/"),
		anonKey: conf.Identity.AnonKey,
	}
}

type (
	passwordGrantRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	principal struct {
		ID string `json:"id"`
	}

	tokenResponse struct {
		AccessToken string    `json:"access_token"`
		User        principal `json:"user"`
	}

	// profileRow is a row of the remote user-profile table.
	profileRow struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		Email         string `json:"email"`
		Role          string `json:"role"`
		InstitutionID string `json:"institution_id"`
		ProfileImage  string `json:"profile_image"`
	}

	apiError struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
	}
)

func (e apiError) text() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message} {
		if s != "" {
			return s
		}
	}
	return ""
}

func (row profileRow) user() user.User {
	return user.User{
		ID:            row.ID,
		Name:          row.Name,
		Email:         row.Email,
		Role:          row.Role,
		InstitutionID: row.InstitutionID,
		ProfileImage:  row.ProfileImage,
		IsActive:      true,
	}
}

func (a *remoteAuthenticator) Login(ctx context.Context, email, password string) (user.User, error) {
	var res tokenResponse
	err := a.do(ctx, http.MethodPost, passwordGrantEndpoint, "", passwordGrantRequest{Email: email, Password: password}, &res)
	if err != nil {
		if isAuthStatus(err) {
			return user.User{}, ErrAuthenticationFailed
		}
		return user.User{}, errors.Wrap(err, "remote password sign-in")
	}

	a.mu.Lock()
	a.accessToken = res.AccessToken
	a.mu.Unlock()

	usr, err := a.fetchProfile(ctx, res.User.ID, res.AccessToken)
	return usr, errors.Wrap(err, "fetching signed-in profile")
}

func (a *remoteAuthenticator) CurrentUser(ctx context.Context) (user.User, error) {
	a.mu.Lock()
	token := a.accessToken
	a.mu.Unlock()
	if token == "" {
		return user.User{}, ErrNoSession
	}

	var p principal
	if err := a.do(ctx, http.MethodGet, currentUserEndpoint, token, nil, &p); err != nil {
		if isAuthStatus(err) {
			return user.User{}, ErrNoSession
		}
		return user.User{}, errors.Wrap(err, "looking up current principal")
	}

	usr, err := a.fetchProfile(ctx, p.ID, token)
	return usr, errors.Wrap(err, "fetching current profile")
}

func (a *remoteAuthenticator) Logout(ctx context.Context) error {
	a.mu.Lock()
	token := a.accessToken
	a.accessToken = ""
	a.mu.Unlock()
	if token == "" {
		return nil
	}
	return errors.Wrap(a.do(ctx, http.MethodPost, signOutEndpoint, token, nil, nil), "remote sign-out")
}

// fetchProfile maps the remote user record to the Identity shape.
func (a *remoteAuthenticator) fetchProfile(ctx context.Context, id, token string) (user.User, error) {
	path := fmt.Sprintf("%s?select=*&id=eq.%s", profileEndpoint, id)
	var rows []profileRow
	if err := a.do(ctx, http.MethodGet, path, token, nil, &rows); err != nil {
		return user.User{}, err
	}
	if len(rows) == 0 {
		return user.User{}, user.ErrNotFound
	}
	return rows[0].user(), nil
}

// statusError carries a non-2xx response.
type statusError struct {
	code    int
	message string
}

func (e *statusError) Error() string {
	if e.message != "" {
		return e.message
	}
	return http.StatusText(e.code)
}

func isAuthStatus(err error) bool {
	if serr, ok := errors.Cause(err).(*statusError); ok {
		return serr.code == http.StatusBadRequest || serr.code == http.StatusUnauthorized || serr.code == http.StatusForbidden
	}
	return false
}

func (a *remoteAuthenticator) do(ctx context.Context, method, path, token string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encoding request")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("apikey", a.anonKey)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := a.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "calling identity service")
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode >= http.StatusBadRequest {
		var apiErr apiError
		data, _ := ioutil.ReadAll(res.Body)
		_ = json.Unmarshal(data, &apiErr)
		return &statusError{code: res.StatusCode, message: apiErr.text()}
	}

	if out == nil {
		return nil
	}
	return errors.Wrap(json.NewDecoder(res.Body).Decode(out), "decoding response")
}
