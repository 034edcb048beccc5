// Package gateway is the portal's HTTP client for the school REST API.
// It attaches the bearer token, never retries, never caches, and reports every failure as an *Error.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sendgrid/rest"

	"github.com/rainbowkidsrealm/jaja2-sub000/core"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/school"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/session"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/user"
)

const requestIDHeader = "X-Request-ID"

// TokenSource provides the bearer token of the current session, "" if there is none.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to a TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

type Client struct {
	baseURL string
	rest    *rest.Client
	tokens  TokenSource
}

var _ session.Authenticator = (*Client)(nil)

// NewClient returns a client for the API at baseURL; tokens may be nil for anonymous calls.
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		rest:    &rest.Client{HTTPClient: &http.Client{Timeout: timeout}},
		tokens:  tokens,
	}
}

// SetTokenSource replaces the token source; it is not safe for concurrent use with requests.
func (c *Client) SetTokenSource(tokens TokenSource) {
	c.tokens = tokens
}

type (
	loginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	loginResponse struct {
		Message      string                 `json:"message"`
		Token        string                 `json:"token"`
		RefreshToken string                 `json:"refreshToken"`
		User         map[string]interface{} `json:"user"`
	}

	refreshRequest struct {
		RefreshToken string `json:"refreshToken"`
	}

	refreshResponse struct {
		Token string `json:"token"`
	}

	changePasswordRequest struct {
		OldPassword     string `json:"old_password"`
		Password        string `json:"password"`
		PasswordConfirm string `json:"password_confirm"`
	}
)

// Authenticate posts the credentials to /login.
// Any non-2xx answer is reported with core.ErrAuthentication.
func (c *Client) Authenticate(ctx context.Context, email, password string) (session.Grant, error) {
	op := "POST /login"
	res, err := c.send(ctx, rest.Post, "/login", nil, loginRequest{Email: email, Password: password}, false)
	if err != nil {
		return session.Grant{}, err
	}
	if !success(res.StatusCode) {
		return session.Grant{}, statusError(op, res.StatusCode, res.Body, core.ErrAuthentication)
	}

	var data loginResponse
	if err = json.Unmarshal([]byte(res.Body), &data); err != nil {
		return session.Grant{}, &Error{Op: op, Status: res.StatusCode, Message: err.Error(), Err: core.ErrDecode}
	}
	return session.Grant{
		Token:        data.Token,
		RefreshToken: data.RefreshToken,
		User:         identityOf(data.User),
	}, nil
}

// identityOf reads the user of a login response, whatever casing its role uses.
func identityOf(obj map[string]interface{}) user.Identity {
	rec := school.Record(obj)
	role, _ := user.ParseRole(rec.String("role", "user_type", "type"))
	active := true
	if rec.Has("active", "is_active", "isActive") {
		active = rec.Bool("active", "is_active", "isActive")
	}
	return user.Identity{
		ID:     rec.ID("id", "_id", "user_id"),
		Email:  core.CleanString(rec.String("email"), true /* lower */),
		Name:   rec.String("name", "full_name", "fullName", "username"),
		Role:   role,
		Active: active,
	}
}

// RefreshToken exchanges a refresh token for a new access token.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	var data refreshResponse
	if err := c.do(ctx, rest.Post, "/token-refresh", nil, refreshRequest{RefreshToken: refreshToken}, &data); err != nil {
		return "", err
	}
	return data.Token, nil
}

// ChangePassword changes the password of the logged in user.
func (c *Client) ChangePassword(ctx context.Context, old, pwd, confirm string) error {
	body := changePasswordRequest{OldPassword: old, Password: pwd, PasswordConfirm: confirm}
	return c.do(ctx, rest.Post, "/users/me/password", nil, body, nil)
}

// Me returns the logged in user as the API knows it.
func (c *Client) Me(ctx context.Context) (user.Identity, error) {
	var obj map[string]interface{}
	if err := c.do(ctx, rest.Get, "/users/me", nil, nil, &obj); err != nil {
		return user.Identity{}, err
	}
	return identityOf(obj), nil
}

// List fetches a collection. The API may answer a bare array or an object
// wrapping it under "data", "results", "items" or the resource name.
func (c *Client) List(ctx context.Context, resource string, params map[string]string) ([]school.Record, error) {
	path := "/" + resource
	op := string(rest.Get) + " " + path
	res, err := c.send(ctx, rest.Get, path, params, nil, true)
	if err != nil {
		return nil, err
	}
	if !success(res.StatusCode) {
		return nil, statusError(op, res.StatusCode, res.Body, core.ErrStatus)
	}

	v, err := school.Decode([]byte(res.Body))
	if err != nil {
		return nil, &Error{Op: op, Status: res.StatusCode, Message: err.Error(), Err: core.ErrDecode}
	}
	switch v := v.(type) {
	case []interface{}:
		return school.Records(v), nil
	case map[string]interface{}:
		for _, key := range []string{"data", "results", "items", resource} {
			if items, ok := v[key].([]interface{}); ok {
				return school.Records(items), nil
			}
		}
	}
	return nil, &Error{Op: op, Status: res.StatusCode, Message: "response is not a collection", Err: core.ErrDecode}
}

func (c *Client) Get(ctx context.Context, resource, id string) (school.Record, error) {
	var rec school.Record
	err := c.do(ctx, rest.Get, itemPath(resource, id), nil, nil, &rec)
	return rec, err
}

// Create posts the form and returns the created record.
func (c *Client) Create(ctx context.Context, resource string, form interface{}) (school.Record, error) {
	var rec school.Record
	err := c.do(ctx, rest.Post, "/"+resource, nil, form, &rec)
	return rec, err
}

// Update replaces the record with the form and returns the updated record.
func (c *Client) Update(ctx context.Context, resource, id string, form interface{}) (school.Record, error) {
	var rec school.Record
	err := c.do(ctx, rest.Put, itemPath(resource, id), nil, form, &rec)
	return rec, err
}

func (c *Client) Delete(ctx context.Context, resource, id string) error {
	return c.do(ctx, rest.Delete, itemPath(resource, id), nil, nil, nil)
}

func itemPath(resource, id string) string {
	return "/" + resource + "/" + url.PathEscape(id)
}

func success(status int) bool {
	return status >= 200 && status < 300
}

// do sends an authenticated request and decodes a 2xx body into out (if not nil).
func (c *Client) do(ctx context.Context, method rest.Method, path string, params map[string]string, body, out interface{}) error {
	op := string(method) + " " + path
	res, err := c.send(ctx, method, path, params, body, true)
	if err != nil {
		return err
	}
	if !success(res.StatusCode) {
		return statusError(op, res.StatusCode, res.Body, core.ErrStatus)
	}
	if out == nil || strings.TrimSpace(res.Body) == "" {
		return nil
	}
	dec := json.NewDecoder(strings.NewReader(res.Body))
	dec.UseNumber()
	if err = dec.Decode(out); err != nil {
		return &Error{Op: op, Status: res.StatusCode, Message: err.Error(), Err: core.ErrDecode}
	}
	return nil
}

// send performs the call; only failures to get a response are returned as errors.
func (c *Client) send(
	ctx context.Context,
	method rest.Method,
	path string,
	params map[string]string,
	body interface{},
	authed bool,
) (*rest.Response, error) {
	op := string(method) + " " + path
	req := rest.Request{
		Method:      method,
		BaseURL:     c.baseURL + path,
		QueryParams: params,
		Headers: map[string]string{
			"Accept":        "application/json",
			requestIDHeader: uuid.New().String(),
		},
	}
	if authed && c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Headers["Authorization"] = "Bearer " + token
		}
	}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &Error{Op: op, Message: "encoding request: " + err.Error(), Err: core.ErrTransport}
		}
		req.Body = data
		req.Headers["Content-Type"] = "application/json"
	}

	res, err := c.rest.SendWithContext(ctx, req)
	if err != nil {
		return nil, &Error{Op: op, Message: err.Error(), Err: core.ErrTransport}
	}
	return res, nil
}
