package cryptopay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/digishop/internal/domain/errors"
	"github.com/polkiloo/digishop/internal/domain/model"
)

// TokenHeader carries the API token on every request.
const TokenHeader = "Crypto-Pay-API-Token"

// APIError is an error envelope returned by the provider.
type APIError struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("crypto pay error %d: %s", e.Code, e.Name)
}

// Unwrap lets callers match every API error as a provider failure.
func (e *APIError) Unwrap() error {
	return domainErrors.ErrExternalProvider
}

// Client talks to the Crypto Pay API.
type Client struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

type envelope struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
	Error  *APIError       `json:"error"`
}

type invoice struct {
	InvoiceID         int64  `json:"invoice_id"`
	Status            string `json:"status"`
	Amount            string `json:"amount"`
	Asset             string `json:"asset"`
	Fiat              string `json:"fiat"`
	PaidAsset         string `json:"paid_asset"`
	PaidAmount        string `json:"paid_amount"`
	PaidAt            string `json:"paid_at"`
	BotInvoiceURL     string `json:"bot_invoice_url"`
	PayURL            string `json:"pay_url"`
	MiniAppInvoiceURL string `json:"mini_app_invoice_url"`
}

type createInvoiceRequest struct {
	CurrencyType string `json:"currency_type"`
	Fiat         string `json:"fiat"`
	Amount       string `json:"amount"`
	Description  string `json:"description,omitempty"`
	Payload      string `json:"payload,omitempty"`
}

type deleteInvoiceRequest struct {
	InvoiceID int64 `json:"invoice_id"`
}

type invoiceList struct {
	Items []invoice `json:"items"`
}

// NewClient creates a Crypto Pay client with default timeout.
func NewClient(baseURL, token string, logger *slog.Logger) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse crypto pay url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("crypto pay url must be absolute")
	}
	return &Client{
		baseURL: parsed,
		token:   token,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// CreateInvoice issues a fiat-denominated invoice.
func (c *Client) CreateInvoice(ctx context.Context, req model.InvoiceRequest) (*model.Invoice, error) {
	fiat := req.Currency
	if fiat == "" {
		fiat = model.Currency
	}
	body := createInvoiceRequest{
		CurrencyType: "fiat",
		Fiat:         fiat,
		Amount:       req.Amount.StringFixed(2),
		Description:  req.Description,
		Payload:      req.Payload,
	}

	var inv invoice
	if err := c.call(ctx, http.MethodPost, "createInvoice", nil, body, &inv); err != nil {
		return nil, err
	}
	payURL := FirstNonEmpty(inv.BotInvoiceURL, inv.PayURL, inv.MiniAppInvoiceURL)
	if inv.InvoiceID == 0 || payURL == "" {
		return nil, fmt.Errorf("create invoice: incomplete response: %w", domainErrors.ErrExternalProvider)
	}
	return &model.Invoice{ID: inv.InvoiceID, PayURL: payURL}, nil
}

// GetInvoice returns the provider-side state of one invoice.
func (c *Client) GetInvoice(ctx context.Context, invoiceID int64) (*model.InvoiceInfo, error) {
	query := url.Values{"invoice_ids": {strconv.FormatInt(invoiceID, 10)}}

	var list invoiceList
	if err := c.call(ctx, http.MethodGet, "getInvoices", query, nil, &list); err != nil {
		return nil, err
	}
	if len(list.Items) == 0 {
		return nil, fmt.Errorf("invoice %d not returned: %w", invoiceID, domainErrors.ErrExternalProvider)
	}
	return list.Items[0].info(), nil
}

// DeleteInvoice removes an unpaid invoice.
func (c *Client) DeleteInvoice(ctx context.Context, invoiceID int64) error {
	return c.call(ctx, http.MethodPost, "deleteInvoice", nil, deleteInvoiceRequest{InvoiceID: invoiceID}, nil)
}

func (c *Client) call(ctx context.Context, method, name string, query url.Values, payload, result any) error {
	endpoint := *c.baseURL
	endpoint.Path = path.Join("/", endpoint.Path, name)
	if query != nil {
		endpoint.RawQuery = query.Encode()
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return err
	}
	req.Header.Set(TokenHeader, c.token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", name, domainErrors.ErrExternalProvider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read body: %w: %v", name, domainErrors.ErrExternalProvider, err)
	}

	var env envelope
	if jsonErr := json.Unmarshal(raw, &env); jsonErr != nil || (!env.OK && env.Error == nil) {
		c.logger.Error("crypto pay request failed", slog.String("method", name), slog.Int("status", resp.StatusCode), slog.String("body", string(raw)))
		return fmt.Errorf("%s: %s: %w", name, resp.Status, domainErrors.ErrExternalProvider)
	}
	if !env.OK {
		c.logger.Warn("crypto pay rejected request", slog.String("method", name), slog.Int("code", env.Error.Code), slog.String("name", env.Error.Name))
		return env.Error
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s: %s: %w", name, resp.Status, domainErrors.ErrExternalProvider)
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(env.Result, result); err != nil {
		return fmt.Errorf("%s: decode result: %w: %v", name, domainErrors.ErrExternalProvider, err)
	}
	return nil
}

func (i invoice) info() *model.InvoiceInfo {
	info := &model.InvoiceInfo{
		ID:     i.InvoiceID,
		Status: ParseStatus(i.Status),
		Amount: ParseAmount(i.PaidAmount, i.Amount),
		Asset:  FirstNonEmpty(i.PaidAsset, i.Asset, i.Fiat),
	}
	if paidAt, err := time.Parse(time.RFC3339, i.PaidAt); err == nil {
		info.PaidAt = &paidAt
	}
	return info
}

// ParseStatus maps provider invoice status to the domain status.
func ParseStatus(status string) model.InvoiceStatus {
	switch status {
	case "paid":
		return model.InvoiceStatusPaid
	case "expired":
		return model.InvoiceStatusExpired
	default:
		return model.InvoiceStatusPending
	}
}

// ParseAmount returns the first parseable amount, zero when none parses.
func ParseAmount(candidates ...string) decimal.Decimal {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if d, err := decimal.NewFromString(c); err == nil {
			return d
		}
	}
	return decimal.Zero
}

// FirstNonEmpty returns the first non-empty value.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
