// Package cart holds the in-progress sale: one line per product, quantities
// and discounts kept as decimal strings exactly as the backend transmits
// them, with totals derived on demand and never stored.
package cart

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/picosretail/pos-terminal/internal/api"
	"github.com/picosretail/pos-terminal/pkg/money"
)

// Line is one product entry in the sale.
type Line struct {
	Product         api.Product `json:"product"`
	Quantity        string      `json:"quantity"`
	DiscountPercent string      `json:"discount_percent"`
}

// Totals is the display estimate; authoritative amounts are recomputed
// server-side on submission.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

type Cart struct {
	mu      sync.Mutex
	lines   map[int64]*Line
	taxRate decimal.Decimal

	// Transient supervisor authorization collected for discounted sales.
	// Never persisted; wiped by Clear.
	masterPassword string
}

func New(taxRate decimal.Decimal) *Cart {
	return &Cart{
		lines:   make(map[int64]*Line),
		taxRate: taxRate,
	}
}

// AddItem appends a line for the product or bumps the existing line's
// quantity by one. Always succeeds.
func (c *Cart) AddItem(product api.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if line, ok := c.lines[product.ID]; ok {
		qty := money.Parse(line.Quantity).Add(decimal.NewFromInt(1))
		line.Quantity = qty.String()
		return
	}
	c.lines[product.ID] = &Line{
		Product:         product,
		Quantity:        "1",
		DiscountPercent: "0",
	}
}

// RemoveItem drops the line for productID. Absent lines are a no-op.
func (c *Cart) RemoveItem(productID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.lines, productID)
}

// UpdateQuantity stores the string verbatim. Malformed input parses to zero
// in Totals; the server validates independently before accepting a sale.
func (c *Cart) UpdateQuantity(productID int64, quantity string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if line, ok := c.lines[productID]; ok {
		line.Quantity = quantity
	}
}

// UpdateDiscount stores the string verbatim. The [0,100] range is a UI
// concern, not enforced here.
func (c *Cart) UpdateDiscount(productID int64, discount string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if line, ok := c.lines[productID]; ok {
		line.DiscountPercent = discount
	}
}

// Clear empties every line and drops the cached master password. Used after
// a completed sale or an explicit reset.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = make(map[int64]*Line)
	c.masterPassword = ""
}

// Lines returns a product-ID-ordered snapshot of the cart.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Line, 0, len(c.lines))
	for _, line := range c.lines {
		out = append(out, *line)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Product.ID < out[j].Product.ID })
	return out
}

// Len reports the number of lines.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

// Totals derives subtotal, tax and total from the current lines. Pure with
// respect to stored state; repeated calls with no mutation in between yield
// identical results.
func (c *Cart) Totals() Totals {
	c.mu.Lock()
	defer c.mu.Unlock()

	hundred := decimal.NewFromInt(100)
	one := decimal.NewFromInt(1)

	subtotal := decimal.Zero
	for _, line := range c.lines {
		price := money.Parse(line.Product.BasePrice)
		qty := money.Parse(line.Quantity)
		discount := money.Parse(line.DiscountPercent)

		lineTotal := price.Mul(qty).Mul(one.Sub(discount.Div(hundred)))
		subtotal = subtotal.Add(lineTotal)
	}

	tax := subtotal.Mul(c.taxRate)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

// HasDiscount reports whether any line carries a discount above zero. The
// checkout flow uses it to demand supervisor authorization.
func (c *Cart) HasDiscount() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, line := range c.lines {
		if money.Parse(line.DiscountPercent).IsPositive() {
			return true
		}
	}
	return false
}

// SetMasterPassword caches the supervisor credential for the next
// submission.
func (c *Cart) SetMasterPassword(password string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.masterPassword = password
}

// MasterPassword returns the cached supervisor credential, empty when none
// was collected.
func (c *Cart) MasterPassword() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.masterPassword
}

// Snapshot serializes the lines for the persisted cart key. The master
// password is deliberately excluded.
func (c *Cart) Snapshot() ([]byte, error) {
	return json.Marshal(c.Lines())
}

// Restore replaces the cart content with a previously serialized snapshot.
func (c *Cart) Restore(raw []byte) error {
	var lines []Line
	if err := json.Unmarshal(raw, &lines); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = make(map[int64]*Line, len(lines))
	for i := range lines {
		line := lines[i]
		c.lines[line.Product.ID] = &line
	}
	return nil
}
