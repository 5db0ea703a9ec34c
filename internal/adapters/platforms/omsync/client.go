// Package omsync integrates the order-management platform (secondary source
// B). OMS fulfillments embed the originating storefront order number, which
// becomes the record's external reference.
package omsync

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

// Config holds client settings for the OMS API.
type Config struct {
	BaseURL  string
	APIToken string
	PageSize int
}

// Client fetches completed fulfillments from the order-management system.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an OMS client.
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
		logger:     logger.With("system", "omsync"),
	}
}

// Source identifies the OMS as secondary source B.
func (c *Client) Source() record.SourceKind {
	return record.SourceOrderMgmt
}

type fulfillmentPayload struct {
	FulfillmentID string     `json:"fulfillment_id"`
	OrderRef      string     `json:"order_ref"`
	ContactEmail  string     `json:"contact_email"`
	InvoiceTotal  *float64   `json:"invoice_total"`
	CompletedAt   *time.Time `json:"completed_at"`
}

type fulfillmentsResponse struct {
	Fulfillments []fulfillmentPayload `json:"fulfillments"`
	TotalPages   int                  `json:"total_pages"`
}

// FetchRecords pulls every completed fulfillment inside the window.
func (c *Client) FetchRecords(ctx context.Context, start, end time.Time) ([]record.RawRecord, error) {
	var records []record.RawRecord

	page := 1
	for {
		resp, err := c.fetchPage(ctx, start, end, page)
		if err != nil {
			return nil, err
		}

		for _, f := range resp.Fulfillments {
			records = append(records, record.RawRecord{
				SourceID:     f.FulfillmentID,
				Counterparty: f.ContactEmail,
				ExternalRef:  f.OrderRef,
				Amount:       f.InvoiceTotal,
				OccurredAt:   f.CompletedAt,
			})
		}

		if page >= resp.TotalPages {
			break
		}
		page++
	}

	c.logger.Debug("fetched OMS fulfillments", "count", len(records),
		"start", start.Format(time.RFC3339), "end", end.Format(time.RFC3339))

	return records, nil
}

func (c *Client) fetchPage(ctx context.Context, start, end time.Time, page int) (*fulfillmentsResponse, error) {
	q := url.Values{}
	q.Set("completed_from", start.UTC().Format(time.RFC3339))
	q.Set("completed_to", end.UTC().Format(time.RFC3339))
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(c.cfg.PageSize))

	endpoint := c.cfg.BaseURL + "/api/fulfillments?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build fulfillments request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	req.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch fulfillments page %d: %w", page, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch fulfillments page %d: unexpected status %d", page, httpResp.StatusCode)
	}

	var resp fulfillmentsResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode fulfillments page %d: %w", page, err)
	}

	return &resp, nil
}
