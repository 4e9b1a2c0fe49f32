// Package api provides typed bindings for every backend surface the
// terminal consumes. Monetary fields cross the wire as decimal strings and
// stay strings at this boundary; pkg/money is the only reader.
package api

// Product is a catalog entry. BasePrice comes from the backend as a string.
type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Barcode     *string `json:"barcode,omitempty"`
	BasePrice   string  `json:"base_price"`
	IsActive    bool    `json:"is_active"`
}

// SaleItem is one line of a completed ticket, snapshotted server-side.
type SaleItem struct {
	ID                  int64  `json:"id"`
	ProductID           int64  `json:"product_id"`
	ProductNameSnapshot string `json:"product_name_snapshot"`
	UnitPriceSnapshot   string `json:"unit_price_snapshot"`
	Quantity            string `json:"quantity"`
	DiscountPercent     string `json:"discount_percent"`
	ItemSubtotal        string `json:"item_subtotal"`
}

// Sale is a completed ticket.
type Sale struct {
	ID            int64      `json:"id"`
	TicketNumber  string     `json:"ticket_number"`
	Subtotal      string     `json:"subtotal"`
	TaxAmount     string     `json:"tax_amount"`
	TotalAmount   string     `json:"total_amount"`
	PaymentMethod string     `json:"payment_method"`
	CashReceived  string     `json:"cash_received"`
	CardAmount    string     `json:"card_amount"`
	ChangeGiven   string     `json:"change_given"`
	IsRefunded    bool       `json:"is_refunded"`
	CreatedAt     string     `json:"created_at"`
	Items         []SaleItem `json:"items"`
}

// AuthResponse is the token pair minted at login and refresh.
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
}

// Customer is a loyalty program member.
type Customer struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Phone         string  `json:"phone"`
	Email         *string `json:"email,omitempty"`
	Description   *string `json:"description,omitempty"`
	LoyaltyPoints string  `json:"loyalty_points"`
	CreatedAt     string  `json:"created_at"`
}

// CashSessionClose is the drawer reconciliation the backend returns when a
// session closes.
type CashSessionClose struct {
	SessionID           int64  `json:"session_id"`
	UserID              int64  `json:"user_id"`
	OpenedAt            string `json:"opened_at"`
	ClosedAt            string `json:"closed_at"`
	OpeningBalance      string `json:"opening_balance"`
	ClosingBalance      string `json:"closing_balance"`
	TotalSalesCash      string `json:"total_sales_cash"`
	TotalSalesCard      string `json:"total_sales_card"`
	TotalRefundedCash   string `json:"total_refunded_cash"`
	TotalRefundedCard   string `json:"total_refunded_card"`
	ExpectedCashInDrawer string `json:"expected_cash_in_drawer"`
	ActualCashInDrawer  string `json:"actual_cash_in_drawer"`
	Discrepancy         string `json:"discrepancy"`
	HasDiscrepancy      bool   `json:"has_discrepancy"`
}

// TopProduct is one row of the sales-summary report.
type TopProduct struct {
	Name         string  `json:"name"`
	TotalSold    float64 `json:"total_sold"`
	TotalRevenue float64 `json:"total_revenue"`
}

// SalesSummary aggregates sales over a date range.
type SalesSummary struct {
	TotalSales          float64      `json:"total_sales"`
	TotalTransactions   int64        `json:"total_transactions"`
	TotalRefunded       float64      `json:"total_refunded"`
	TotalRefundCount    int64        `json:"total_refund_count"`
	TotalCash           float64      `json:"total_cash"`
	TotalCard           float64      `json:"total_card"`
	TotalTransfer       float64      `json:"total_transfer"`
	TotalTax            float64      `json:"total_tax"`
	TotalServiceRevenue float64      `json:"total_service_revenue"`
	TopProducts         []TopProduct `json:"top_products"`
	BestDay             *string      `json:"best_day"`
	BestDayAmount       float64      `json:"best_day_amount"`
}

// UserSalesSummary aggregates one cashier's activity.
type UserSalesSummary struct {
	Username          string  `json:"username"`
	TotalSales        float64 `json:"total_sales"`
	TotalTransactions int64   `json:"total_transactions"`
	TotalRefunds      int64   `json:"total_refunds"`
}

// AllowedIP is one entry of the admin IP allow-list.
type AllowedIP struct {
	IPAddress string `json:"ip_address"`
	Nickname  string `json:"nickname"`
	CreatedAt string `json:"created_at"`
}
