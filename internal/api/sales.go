package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/picosretail/pos-terminal/internal/transport"
)

// Payment methods accepted by the backend.
const (
	PaymentCash     = "cash"
	PaymentCard     = "card"
	PaymentTransfer = "transfer"
	PaymentMixed    = "mixed"
)

// Sales covers ticket creation, lookup and refunds.
type Sales struct {
	t *transport.Client
}

func NewSales(t *transport.Client) *Sales {
	return &Sales{t: t}
}

// SaleLineInput is one product line of a submission. Quantity and discount
// stay decimal strings so the submitted payload matches what the cart
// displayed.
type SaleLineInput struct {
	ProductID       int64  `json:"product_id" validate:"required"`
	Quantity        string `json:"quantity" validate:"required"`
	DiscountPercent string `json:"discount_percent"`
}

// ServiceItemInput is an ad-hoc service line (no catalog product behind it).
type ServiceItemInput struct {
	Name        string  `json:"name" validate:"required"`
	Price       string  `json:"price" validate:"required"`
	Description *string `json:"description,omitempty"`
	AplicaIVA   bool    `json:"aplica_iva"`
}

// CreateSaleInput is the complete checkout submission.
type CreateSaleInput struct {
	Items          []SaleLineInput    `json:"items,omitempty" validate:"dive"`
	ServiceItems   []ServiceItemInput `json:"service_items,omitempty" validate:"dive"`
	PaymentMethod  string             `json:"payment_method" validate:"required,oneof=cash card transfer mixed"`
	CashReceived   string             `json:"cash_received"`
	CardAmount     string             `json:"card_amount"`
	TransferAmount string             `json:"transfer_amount"`
	MasterPassword *string            `json:"master_password,omitempty"`
	CustomerID     *int64             `json:"customer_id,omitempty"`
}

// Create submits a completed sale. Each submission carries a fresh
// idempotency key so a timed-out retry cannot double-charge.
func (s *Sales) Create(ctx context.Context, input CreateSaleInput) (Sale, error) {
	var out Sale
	err := s.t.Do(ctx, transport.Request{
		Method:         http.MethodPost,
		Path:           "/api/v1/sales/",
		JSONBody:       input,
		IdempotencyKey: uuid.NewString(),
	}, &out)
	return out, err
}

func (s *Sales) Search(ctx context.Context, queryText string) ([]Sale, error) {
	query := url.Values{}
	query.Set("q", queryText)

	var out []Sale
	err := s.t.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/api/v1/sales/search",
		Query:  query,
	}, &out)
	return out, err
}

func (s *Sales) ByTicket(ctx context.Context, ticketNumber string) (Sale, error) {
	var out Sale
	err := s.t.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/api/v1/sales/ticket/" + url.PathEscape(ticketNumber),
	}, &out)
	return out, err
}

// Refund reverses a ticket. The master password authorizes it server-side;
// refundMethod picks where the money goes back.
func (s *Sales) Refund(ctx context.Context, ticketNumber, masterPassword, refundMethod string) (Sale, error) {
	var out Sale
	err := s.t.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/api/v1/sales/refund/" + url.PathEscape(ticketNumber),
		JSONBody: map[string]string{
			"master_password": masterPassword,
			"refund_method":   refundMethod,
		},
	}, &out)
	return out, err
}
