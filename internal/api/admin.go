package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/picosretail/pos-terminal/internal/transport"
)

// Admin covers the IP allow-list and the master-password rotation.
type Admin struct {
	t *transport.Client
}

func NewAdmin(t *transport.Client) *Admin {
	return &Admin{t: t}
}

func (a *Admin) ListAllowedIPs(ctx context.Context) ([]AllowedIP, error) {
	var out []AllowedIP
	err := a.t.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/api/v1/admin/allowed-ips",
	}, &out)
	return out, err
}

func (a *Admin) AddAllowedIP(ctx context.Context, ipAddress, nickname string) error {
	return a.t.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/api/v1/admin/allowed-ips",
		JSONBody: map[string]string{
			"ip_address": ipAddress,
			"nickname":   nickname,
		},
	}, nil)
}

// AddOwnIP allow-lists the caller's current address; the backend reads it off
// the connection.
func (a *Admin) AddOwnIP(ctx context.Context, nickname string) error {
	return a.t.Do(ctx, transport.Request{
		Method:   http.MethodPost,
		Path:     "/api/v1/admin/allowed-ips/me",
		JSONBody: map[string]string{"nickname": nickname},
	}, nil)
}

func (a *Admin) RemoveAllowedIP(ctx context.Context, ipAddress string) error {
	return a.t.Do(ctx, transport.Request{
		Method: http.MethodDelete,
		Path:   "/api/v1/admin/allowed-ips/" + url.PathEscape(ipAddress),
	}, nil)
}

// UpdateMasterPassword rotates the supervisor credential.
func (a *Admin) UpdateMasterPassword(ctx context.Context, newMasterPassword string) error {
	return a.t.Do(ctx, transport.Request{
		Method:   http.MethodPost,
		Path:     "/api/v1/config/master-password",
		JSONBody: map[string]string{"new_master_password": newMasterPassword},
	}, nil)
}
