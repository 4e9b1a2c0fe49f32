package api

import (
	"context"
	"net/http"

	"github.com/picosretail/pos-terminal/internal/state"
	"github.com/picosretail/pos-terminal/internal/transport"
)

// Movement kinds for manual drawer adjustments.
const (
	MovementIncome  = "income"
	MovementExpense = "expense"
)

type stateWriter interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Cash covers drawer session open/close and manual movements. The
// session-open flag is mirrored into the local state store so a restarted
// terminal knows whether a drawer session is live.
type Cash struct {
	t  *transport.Client
	st stateWriter
}

func NewCash(t *transport.Client, st stateWriter) *Cash {
	return &Cash{t: t, st: st}
}

func (c *Cash) Open(ctx context.Context, openingBalance string) error {
	err := c.t.Do(ctx, transport.Request{
		Method:   http.MethodPost,
		Path:     "/api/v1/cash/open",
		JSONBody: map[string]string{"opening_balance": openingBalance},
	}, nil)
	if err != nil {
		return err
	}
	return c.st.Put(ctx, state.KeySession, "open")
}

// CloseInput reconciles the drawer. MasterPassword is only demanded by the
// backend when the count shows a discrepancy.
type CloseInput struct {
	ClosingBalance string  `json:"closing_balance"`
	MasterPassword *string `json:"master_password,omitempty"`
}

func (c *Cash) Close(ctx context.Context, input CloseInput) (CashSessionClose, error) {
	var out CashSessionClose
	err := c.t.Do(ctx, transport.Request{
		Method:   http.MethodPost,
		Path:     "/api/v1/cash/close",
		JSONBody: input,
	}, &out)
	if err != nil {
		return CashSessionClose{}, err
	}
	if err := c.st.Delete(ctx, state.KeySession); err != nil {
		return out, err
	}
	return out, nil
}

// Movement records a manual income or expense against the open session.
func (c *Cash) Movement(ctx context.Context, kind, amount, description string) error {
	return c.t.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/api/v1/cash/movement",
		JSONBody: map[string]string{
			"movement_type": kind,
			"amount":        amount,
			"description":   description,
		},
	}, nil)
}

// SessionOpen reports the locally mirrored drawer flag.
func (c *Cash) SessionOpen(ctx context.Context) (bool, error) {
	_, ok, err := c.st.Get(ctx, state.KeySession)
	return ok, err
}
