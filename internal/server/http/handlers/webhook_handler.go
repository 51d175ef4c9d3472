package handlers

import (
	"crypto/subtle"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/polkiloo/digishop/internal/adapter/cryptopay"
	"github.com/polkiloo/digishop/internal/dedup"
	"github.com/polkiloo/digishop/internal/domain/model"
	"github.com/polkiloo/digishop/internal/server/http/dto"
)

const (
	updateInvoicePaid = "invoice_paid"
	statusPaid        = "paid"
)

// WebhookOptions configures request authentication.
type WebhookOptions struct {
	Secret          string
	Token           string
	StrictSignature bool
}

// WebhookHandler receives payment notifications.
type WebhookHandler struct {
	facade PaymentFacade
	guard  dedup.Guard
	opts   WebhookOptions
	logger *slog.Logger
}

// NewWebhookHandler constructs WebhookHandler. A nil guard disables deduplication.
func NewWebhookHandler(facade PaymentFacade, guard dedup.Guard, opts WebhookOptions, logger *slog.Logger) *WebhookHandler {
	if guard == nil {
		guard = dedup.Noop{}
	}
	return &WebhookHandler{facade: facade, guard: guard, opts: opts, logger: logger}
}

// Receive handles POST /webhook/:secret.
func (h *WebhookHandler) Receive(c *gin.Context) {
	if subtle.ConstantTimeCompare([]byte(c.Param("secret")), []byte(h.opts.Secret)) != 1 {
		c.Status(http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	signature := c.GetHeader(cryptopay.SignatureHeader)
	switch {
	case signature != "":
		if !cryptopay.VerifySignature(h.opts.Token, body, signature) {
			h.logger.Warn("webhook signature mismatch")
			c.Status(http.StatusUnauthorized)
			return
		}
	case h.opts.StrictSignature:
		c.Status(http.StatusUnauthorized)
		return
	default:
		h.logger.Warn("webhook without signature accepted")
	}

	var update dto.WebhookUpdate
	if err := binding.JSON.BindBody(body, &update); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	if update.UpdateType == updateInvoicePaid && update.Payload.Status == statusPaid {
		h.confirm(c, update.Payload)
	}
	c.JSON(http.StatusOK, dto.WebhookResponse{OK: true})
}

func (h *WebhookHandler) confirm(c *gin.Context, invoice dto.WebhookInvoice) {
	ctx := c.Request.Context()
	logger := h.logger.With(slog.Int64("invoice_id", invoice.InvoiceID))

	seen, err := h.guard.Seen(ctx, invoice.InvoiceID)
	if err != nil {
		logger.Warn("webhook dedup lookup failed", slog.String("error", err.Error()))
	}
	if seen {
		logger.Debug("webhook already processed")
		return
	}

	outcome, err := h.facade.ConfirmInvoicePaid(ctx, invoice.InvoiceID, toPayment(invoice))
	if err != nil {
		logger.Error("confirm invoice", slog.String("error", err.Error()))
		return
	}
	logger.Info("invoice webhook processed", slog.String("outcome", outcome.String()))

	if err := h.guard.Mark(ctx, invoice.InvoiceID); err != nil {
		logger.Warn("webhook dedup mark failed", slog.String("error", err.Error()))
	}
}

// toPayment prefers the paid amount and asset over the invoiced ones.
// A missing or malformed paid_at is left zero and later replaced by the confirmation time.
func toPayment(invoice dto.WebhookInvoice) model.Payment {
	payment := model.Payment{
		Amount: cryptopay.ParseAmount(invoice.PaidAmount, invoice.Amount),
		Asset:  cryptopay.FirstNonEmpty(invoice.PaidAsset, invoice.Asset, invoice.Fiat),
	}
	if invoice.PaidAt != "" {
		if at, err := time.Parse(time.RFC3339, invoice.PaidAt); err == nil {
			payment.PaidAt = at
		}
	}
	return payment
}
