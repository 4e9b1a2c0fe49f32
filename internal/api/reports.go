package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/picosretail/pos-terminal/internal/transport"
)

// Reports covers the admin aggregate queries. Dates travel as ISO strings.
type Reports struct {
	t *transport.Client
}

func NewReports(t *transport.Client) *Reports {
	return &Reports{t: t}
}

func (r *Reports) SalesSummary(ctx context.Context, startDate, endDate string) (SalesSummary, error) {
	query := url.Values{}
	query.Set("start_date", startDate)
	query.Set("end_date", endDate)

	var out SalesSummary
	err := r.t.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/api/v1/reports/sales-summary",
		Query:  query,
	}, &out)
	return out, err
}

func (r *Reports) UserHistory(ctx context.Context, username, startDate, endDate string) ([]Sale, error) {
	query := url.Values{}
	query.Set("username", username)
	if startDate != "" {
		query.Set("start_date", startDate)
	}
	if endDate != "" {
		query.Set("end_date", endDate)
	}

	var out []Sale
	err := r.t.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/api/v1/reports/user-history",
		Query:  query,
	}, &out)
	return out, err
}

func (r *Reports) UsersSummary(ctx context.Context, startDate, endDate string) ([]UserSalesSummary, error) {
	query := url.Values{}
	query.Set("start_date", startDate)
	query.Set("end_date", endDate)

	var out []UserSalesSummary
	err := r.t.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/api/v1/reports/users-summary",
		Query:  query,
	}, &out)
	return out, err
}
