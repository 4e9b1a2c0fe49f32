package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/picosretail/pos-terminal/internal/transport"
)

// Auth covers login and account management. Login goes out unauthenticated
// and form-encoded; the backend's token endpoint follows the OAuth2 password
// flow convention.
type Auth struct {
	t *transport.Client
}

func NewAuth(t *transport.Client) *Auth {
	return &Auth{t: t}
}

func (a *Auth) Login(ctx context.Context, username, password string) (AuthResponse, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var out AuthResponse
	err := a.t.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/api/v1/auth/login",
		Form:   form,
		NoAuth: true,
	}, &out)
	return out, err
}

// ChangePasswordInput targets the caller's own account unless TargetUsername
// names another user (admin flow).
type ChangePasswordInput struct {
	CurrentPassword string  `json:"current_password"`
	NewPassword     string  `json:"new_password" validate:"required,min=4"`
	TargetUsername  *string `json:"target_username,omitempty"`
}

func (a *Auth) ChangePassword(ctx context.Context, input ChangePasswordInput) error {
	return a.t.Do(ctx, transport.Request{
		Method:   http.MethodPost,
		Path:     "/api/v1/auth/change-password",
		JSONBody: input,
	}, nil)
}

// RegisterInput creates a new cashier account.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=4"`
	IsAdmin  bool   `json:"is_admin"`
}

func (a *Auth) Register(ctx context.Context, input RegisterInput) error {
	return a.t.Do(ctx, transport.Request{
		Method:   http.MethodPost,
		Path:     "/api/v1/auth/register",
		JSONBody: input,
	}, nil)
}
