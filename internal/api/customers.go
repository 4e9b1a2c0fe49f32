package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/picosretail/pos-terminal/internal/transport"
)

// Customers covers the loyalty program lookups.
type Customers struct {
	t *transport.Client
}

func NewCustomers(t *transport.Client) *Customers {
	return &Customers{t: t}
}

func (c *Customers) Search(ctx context.Context, queryText string) ([]Customer, error) {
	query := url.Values{}
	query.Set("q", queryText)

	var out []Customer
	err := c.t.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/api/v1/customers/search",
		Query:  query,
	}, &out)
	return out, err
}

// CreateCustomerInput enrolls a loyalty member.
type CreateCustomerInput struct {
	Name        string  `json:"name" validate:"required"`
	Phone       string  `json:"phone" validate:"required"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	Description *string `json:"description,omitempty"`
}

func (c *Customers) Create(ctx context.Context, input CreateCustomerInput) (Customer, error) {
	var out Customer
	err := c.t.Do(ctx, transport.Request{
		Method:   http.MethodPost,
		Path:     "/api/v1/customers/",
		JSONBody: input,
	}, &out)
	return out, err
}

func (c *Customers) Get(ctx context.Context, id int64) (Customer, error) {
	var out Customer
	err := c.t.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("/api/v1/customers/%d", id),
	}, &out)
	return out, err
}
