// Package shopfront integrates the storefront platform, the primary
// order-of-record source.
package shopfront

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"ledgerlink/internal/domain/record"
)

const defaultPageSize = 100

// Config holds client settings for the storefront API.
type Config struct {
	BaseURL  string
	APIToken string
	PageSize int
}

// Client fetches paid orders from the storefront admin API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a storefront client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With("system", "shopfront"),
	}
}

// Source identifies the storefront as the primary source.
func (c *Client) Source() record.SourceKind {
	return record.SourceStorefront
}

// orderPayload mirrors the storefront's order JSON.
type orderPayload struct {
	ID            string     `json:"id"`
	OrderNumber   string     `json:"order_number"`
	CustomerEmail string     `json:"customer_email"`
	TotalAmount   *float64   `json:"total_amount"`
	PlacedAt      *time.Time `json:"placed_at"`
}

type ordersResponse struct {
	Orders   []orderPayload `json:"orders"`
	NextPage *int           `json:"next_page"`
}

// FetchRecords pulls every paid order placed inside the window, following
// pagination until the API reports no next page.
func (c *Client) FetchRecords(ctx context.Context, start, end time.Time) ([]record.RawRecord, error) {
	var records []record.RawRecord

	page := 1
	for {
		resp, err := c.fetchPage(ctx, start, end, page)
		if err != nil {
			return nil, err
		}

		for _, order := range resp.Orders {
			records = append(records, record.RawRecord{
				SourceID:     order.ID,
				Counterparty: order.CustomerEmail,
				DisplayRef:   order.OrderNumber,
				Amount:       order.TotalAmount,
				OccurredAt:   order.PlacedAt,
			})
		}

		if resp.NextPage == nil {
			break
		}
		page = *resp.NextPage
	}

	c.logger.Debug("fetched storefront orders", "count", len(records),
		"start", start.Format(time.RFC3339), "end", end.Format(time.RFC3339))

	return records, nil
}

func (c *Client) fetchPage(ctx context.Context, start, end time.Time, page int) (*ordersResponse, error) {
	q := url.Values{}
	q.Set("status", "paid")
	q.Set("placed_at_min", start.UTC().Format(time.RFC3339))
	q.Set("placed_at_max", end.UTC().Format(time.RFC3339))
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(c.cfg.PageSize))

	endpoint := c.cfg.BaseURL + "/admin/orders?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build orders request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	req.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch orders page %d: %w", page, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch orders page %d: unexpected status %d", page, httpResp.StatusCode)
	}

	var resp ordersResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode orders page %d: %w", page, err)
	}

	return &resp, nil
}
