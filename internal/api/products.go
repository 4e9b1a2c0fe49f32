package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/picosretail/pos-terminal/internal/transport"
)

// Products covers catalog listing and management. Price edits require the
// supervisor's master password server-side.
type Products struct {
	t *transport.Client
}

func NewProducts(t *transport.Client) *Products {
	return &Products{t: t}
}

func (p *Products) List(ctx context.Context, skip, limit int) ([]Product, error) {
	query := url.Values{}
	query.Set("skip", strconv.Itoa(skip))
	query.Set("limit", strconv.Itoa(limit))

	var out []Product
	err := p.t.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/api/v1/products/",
		Query:  query,
	}, &out)
	return out, err
}

// CreateProductInput carries a new catalog entry. BasePrice keeps the wire's
// decimal-string convention.
type CreateProductInput struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description,omitempty"`
	Barcode     *string `json:"barcode,omitempty"`
	BasePrice   string  `json:"base_price" validate:"required"`
	IsActive    bool    `json:"is_active"`
}

func (p *Products) Create(ctx context.Context, input CreateProductInput) (Product, error) {
	var out Product
	err := p.t.Do(ctx, transport.Request{
		Method:   http.MethodPost,
		Path:     "/api/v1/products/",
		JSONBody: input,
	}, &out)
	return out, err
}

// UpdateProductInput patches an existing product. MasterPassword authorizes
// price changes.
type UpdateProductInput struct {
	Name           *string `json:"name,omitempty"`
	Description    *string `json:"description,omitempty"`
	Barcode        *string `json:"barcode,omitempty"`
	BasePrice      *string `json:"base_price,omitempty"`
	IsActive       *bool   `json:"is_active,omitempty"`
	MasterPassword *string `json:"master_password,omitempty"`
}

func (p *Products) Update(ctx context.Context, id int64, input UpdateProductInput) (Product, error) {
	var out Product
	err := p.t.Do(ctx, transport.Request{
		Method:   http.MethodPut,
		Path:     fmt.Sprintf("/api/v1/products/%d", id),
		JSONBody: input,
	}, &out)
	return out, err
}
