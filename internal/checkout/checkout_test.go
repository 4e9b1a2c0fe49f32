package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picosretail/pos-terminal/internal/api"
	"github.com/picosretail/pos-terminal/internal/cart"
	pkgerrors "github.com/picosretail/pos-terminal/pkg/errors"
)

func testBuilder() *Builder {
	return NewBuilder(decimal.RequireFromString("0.16"))
}

func cartWith(t *testing.T, price string, qty string) *cart.Cart {
	t.Helper()
	c := cart.New(decimal.RequireFromString("0.16"))
	c.AddItem(api.Product{ID: 1, Name: "Soda", BasePrice: price, IsActive: true})
	c.UpdateQuantity(1, qty)
	return c
}

func TestBuildRejectsEmptySale(t *testing.T) {
	t.Parallel()

	c := cart.New(decimal.RequireFromString("0.16"))
	_, err := testBuilder().Build(c, Payment{Method: api.PaymentCash, CashReceived: "100"}, BuildOptions{})

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestBuildCashComputesChange(t *testing.T) {
	t.Parallel()

	// 10.00 * 2 = 20.00 subtotal, 23.20 with 16% tax.
	c := cartWith(t, "10.00", "2")

	sub, err := testBuilder().Build(c, Payment{Method: api.PaymentCash, CashReceived: "30"}, BuildOptions{})
	require.NoError(t, err)

	assert.Equal(t, "23.20", sub.Total.StringFixed(2))
	assert.Equal(t, "6.80", sub.Change.StringFixed(2))
	require.Len(t, sub.Input.Items, 1)
	assert.Equal(t, "2", sub.Input.Items[0].Quantity)
}

func TestBuildCashRejectsInsufficientPayment(t *testing.T) {
	t.Parallel()

	c := cartWith(t, "10.00", "2")

	_, err := testBuilder().Build(c, Payment{Method: api.PaymentCash, CashReceived: "20"}, BuildOptions{})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestBuildCardEchoesTotal(t *testing.T) {
	t.Parallel()

	c := cartWith(t, "10.00", "1")

	sub, err := testBuilder().Build(c, Payment{Method: api.PaymentCard}, BuildOptions{})
	require.NoError(t, err)

	assert.Equal(t, "11.60", sub.Input.CashReceived)
	assert.Equal(t, "11.60", sub.Input.CardAmount)
	assert.True(t, sub.Change.IsZero())
}

func TestBuildMixedSplit(t *testing.T) {
	t.Parallel()

	// Total 23.20: 10 card + 15 cash covers it with 1.80 back.
	c := cartWith(t, "10.00", "2")

	sub, err := testBuilder().Build(c, Payment{
		Method:       api.PaymentMixed,
		CashReceived: "15",
		CardAmount:   "10",
	}, BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, "1.80", sub.Change.StringFixed(2))

	_, err = testBuilder().Build(c, Payment{
		Method:       api.PaymentMixed,
		CashReceived: "10",
		CardAmount:   "10",
	}, BuildOptions{})
	require.Error(t, err)
}

func TestBuildUnknownMethod(t *testing.T) {
	t.Parallel()

	c := cartWith(t, "10.00", "1")
	_, err := testBuilder().Build(c, Payment{Method: "barter"}, BuildOptions{})
	require.Error(t, err)
}

func TestBuildDiscountDemandsMasterPassword(t *testing.T) {
	t.Parallel()

	c := cartWith(t, "10.00", "2")
	c.UpdateDiscount(1, "10")

	_, err := testBuilder().Build(c, Payment{Method: api.PaymentCash, CashReceived: "100"}, BuildOptions{})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeMasterPassword, typed.Code())

	c.SetMasterPassword("supervisor")
	sub, err := testBuilder().Build(c, Payment{Method: api.PaymentCash, CashReceived: "100"}, BuildOptions{})
	require.NoError(t, err)
	require.NotNil(t, sub.Input.MasterPassword)
	assert.Equal(t, "supervisor", *sub.Input.MasterPassword)
}

func TestBuildServiceItemsOnly(t *testing.T) {
	t.Parallel()

	c := cart.New(decimal.RequireFromString("0.16"))
	desc := "haircut"
	sub, err := testBuilder().Build(c, Payment{Method: api.PaymentCash, CashReceived: "200"}, BuildOptions{
		ServiceItems: []api.ServiceItemInput{
			{Name: "Service", Price: "100", Description: &desc, AplicaIVA: true},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "116.00", sub.Total.StringFixed(2))
	assert.Equal(t, "84.00", sub.Change.StringFixed(2))
}

func TestBuildDoesNotMutateCart(t *testing.T) {
	t.Parallel()

	c := cartWith(t, "10.00", "2")
	before := c.Lines()

	_, err := testBuilder().Build(c, Payment{Method: api.PaymentCash, CashReceived: "100"}, BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, before, c.Lines())
}
