// Package checkout assembles a sale submission from the cart and a payment
// split, enforcing the client-side rules the backend would reject anyway:
// sufficient payment, a known method, and supervisor authorization for
// discounted lines.
package checkout

import (
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/picosretail/pos-terminal/internal/api"
	"github.com/picosretail/pos-terminal/internal/cart"
	pkgerrors "github.com/picosretail/pos-terminal/pkg/errors"
	"github.com/picosretail/pos-terminal/pkg/money"
)

// Payment is the tender the cashier collected.
type Payment struct {
	Method         string
	CashReceived   string
	CardAmount     string
	TransferAmount string
}

// Submission is a validated, ready-to-send sale plus the display amounts the
// cashier needs at hand-over.
type Submission struct {
	Input  api.CreateSaleInput
	Total  decimal.Decimal
	Change decimal.Decimal
}

// Builder validates and assembles submissions. One instance is shared; the
// validator is safe for concurrent use.
type Builder struct {
	validate *validator.Validate
	taxRate  decimal.Decimal
}

func NewBuilder(taxRate decimal.Decimal) *Builder {
	return &Builder{
		validate: validator.New(),
		taxRate:  taxRate,
	}
}

// BuildOptions carry the optional parts of a submission.
type BuildOptions struct {
	ServiceItems []api.ServiceItemInput
	CustomerID   *int64
}

// Build produces the submission for the cart's current content. The cart is
// not mutated; callers clear it only after the backend accepts the sale.
func (b *Builder) Build(c *cart.Cart, payment Payment, opts BuildOptions) (Submission, error) {
	lines := c.Lines()
	if len(lines) == 0 && len(opts.ServiceItems) == 0 {
		return Submission{}, pkgerrors.New(pkgerrors.CodeValidation, "nothing to sell")
	}

	total := c.Totals().Total.Add(b.serviceTotal(opts.ServiceItems))

	input := api.CreateSaleInput{
		PaymentMethod:  payment.Method,
		CashReceived:   payment.CashReceived,
		CardAmount:     payment.CardAmount,
		TransferAmount: payment.TransferAmount,
		ServiceItems:   opts.ServiceItems,
		CustomerID:     opts.CustomerID,
	}
	for _, line := range lines {
		input.Items = append(input.Items, api.SaleLineInput{
			ProductID:       line.Product.ID,
			Quantity:        line.Quantity,
			DiscountPercent: line.DiscountPercent,
		})
	}

	change := decimal.Zero
	switch payment.Method {
	case api.PaymentCard:
		// Card sales are charged exactly; the backend expects the total
		// echoed back as the received amount.
		input.CashReceived = money.String(total)
		input.CardAmount = money.String(total)
	case api.PaymentCash:
		received := money.Parse(payment.CashReceived)
		if received.LessThan(total) {
			return Submission{}, pkgerrors.New(pkgerrors.CodeValidation, "insufficient cash received")
		}
		change = received.Sub(total)
	case api.PaymentTransfer:
		input.TransferAmount = money.String(total)
	case api.PaymentMixed:
		received := money.Parse(payment.CashReceived).
			Add(money.Parse(payment.CardAmount)).
			Add(money.Parse(payment.TransferAmount))
		if received.LessThan(total) {
			return Submission{}, pkgerrors.New(pkgerrors.CodeValidation, "split payment does not cover the total")
		}
		change = money.Parse(payment.CashReceived).
			Sub(total.Sub(money.Parse(payment.CardAmount)).Sub(money.Parse(payment.TransferAmount)))
		if change.IsNegative() {
			change = decimal.Zero
		}
	default:
		return Submission{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}

	if c.HasDiscount() {
		password := c.MasterPassword()
		if password == "" {
			return Submission{}, pkgerrors.New(pkgerrors.CodeMasterPassword, "discounted sale requires the master password")
		}
		input.MasterPassword = &password
	}

	if err := b.validate.Struct(input); err != nil {
		return Submission{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "sale payload rejected")
	}

	return Submission{Input: input, Total: total, Change: change}, nil
}

// serviceTotal estimates the tax-inclusive price of ad-hoc service lines.
func (b *Builder) serviceTotal(items []api.ServiceItemInput) decimal.Decimal {
	one := decimal.NewFromInt(1)
	total := decimal.Zero
	for _, item := range items {
		price := money.Parse(item.Price)
		if item.AplicaIVA {
			price = price.Mul(one.Add(b.taxRate))
		}
		total = total.Add(price)
	}
	return total
}
