// Package paygate integrates the payment-gateway platform (secondary source
// A). Gateway charges carry the buyer's billing email but no order
// reference, so downstream matching leans on identity and amount.
package paygate

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

// Config holds client settings for the gateway API.
type Config struct {
	BaseURL  string
	APIToken string
	PageSize int
}

// Client fetches settled charges from the payment gateway.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a gateway client.
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
		logger:     logger.With("system", "paygate"),
	}
}

// Source identifies the gateway as secondary source A.
func (c *Client) Source() record.SourceKind {
	return record.SourcePayGateway
}

type chargePayload struct {
	ChargeID     string     `json:"charge_id"`
	BillingEmail string     `json:"billing_email"`
	Amount       *float64   `json:"amount"`
	CapturedAt   *time.Time `json:"captured_at"`
}

type chargesResponse struct {
	Charges []chargePayload `json:"charges"`
	HasMore bool            `json:"has_more"`
}

// FetchRecords pulls every captured charge inside the window.
func (c *Client) FetchRecords(ctx context.Context, start, end time.Time) ([]record.RawRecord, error) {
	var records []record.RawRecord

	for page := 1; ; page++ {
		resp, err := c.fetchPage(ctx, start, end, page)
		if err != nil {
			return nil, err
		}

		for _, charge := range resp.Charges {
			records = append(records, record.RawRecord{
				SourceID:     charge.ChargeID,
				Counterparty: charge.BillingEmail,
				Amount:       charge.Amount,
				OccurredAt:   charge.CapturedAt,
			})
		}

		if !resp.HasMore {
			break
		}
	}

	c.logger.Debug("fetched gateway charges", "count", len(records),
		"start", start.Format(time.RFC3339), "end", end.Format(time.RFC3339))

	return records, nil
}

func (c *Client) fetchPage(ctx context.Context, start, end time.Time, page int) (*chargesResponse, error) {
	q := url.Values{}
	q.Set("captured_at_from", start.UTC().Format(time.RFC3339))
	q.Set("captured_at_to", end.UTC().Format(time.RFC3339))
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(c.cfg.PageSize))

	endpoint := c.cfg.BaseURL + "/v1/charges?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build charges request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	req.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch charges page %d: %w", page, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch charges page %d: unexpected status %d", page, httpResp.StatusCode)
	}

	var resp chargesResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode charges page %d: %w", page, err)
	}

	return &resp, nil
}
