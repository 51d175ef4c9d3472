package dto

// WebhookUpdate is the envelope the payment provider posts to the webhook.
type WebhookUpdate struct {
	UpdateID    int64          `json:"update_id"`
	UpdateType  string         `json:"update_type" binding:"required"`
	RequestDate string         `json:"request_date"`
	Payload     WebhookInvoice `json:"payload" binding:"required"`
}

// WebhookInvoice is the invoice carried by an update.
type WebhookInvoice struct {
	InvoiceID  int64  `json:"invoice_id" binding:"required"`
	Status     string `json:"status"`
	Amount     string `json:"amount"`
	Asset      string `json:"asset"`
	Fiat       string `json:"fiat"`
	PaidAmount string `json:"paid_amount"`
	PaidAsset  string `json:"paid_asset"`
	PaidAt     string `json:"paid_at"`
	Payload    string `json:"payload"`
}

// WebhookResponse is always {"ok": true} so the provider stops retrying.
type WebhookResponse struct {
	OK bool `json:"ok"`
}
