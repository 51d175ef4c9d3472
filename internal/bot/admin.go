package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/polkiloo/digishop/internal/adapter/telegram"
	domainErrors "github.com/polkiloo/digishop/internal/domain/errors"
	"github.com/polkiloo/digishop/internal/domain/model"
	"github.com/polkiloo/digishop/internal/i18n"
	"github.com/polkiloo/digishop/internal/usecase"
)

var statusOrder = []model.OrderStatus{
	model.OrderStatusPending,
	model.OrderStatusPaid,
	model.OrderStatusDelivered,
	model.OrderStatusCanceled,
}

// handleAdmin runs "/admin <command> ...". Lines after the first are the command body.
func (d *Dispatcher) handleAdmin(ctx context.Context, req *request, args string, doc *telegram.Document) error {
	head, body, _ := strings.Cut(strings.TrimSpace(args), "\n")
	fields := strings.Fields(head)
	if len(fields) == 0 {
		return d.send(ctx, req, i18n.Text(req.lang, i18n.AdminUsage), nil)
	}
	req.logger.Info("admin command", slog.String("command", fields[0]))

	switch fields[0] {
	case "addproduct":
		return d.addProduct(ctx, req, head, body)
	case "addcategory":
		return d.addCategory(ctx, req, head)
	case "addstock":
		if len(fields) < 2 {
			break
		}
		payloads := strings.Split(body, "\n")
		if doc != nil {
			payloads = []string{doc.FileID}
		}
		return d.withID(ctx, req, fields[1], func(ctx context.Context, req *request, productID int64) error {
			return d.addStock(ctx, req, productID, payloads)
		})
	case "setfield":
		if len(fields) < 3 {
			break
		}
		field, ok := model.ParseProductField(fields[2])
		if !ok {
			return d.fail(ctx, req, domainErrors.ErrInvalidField)
		}
		return d.withID(ctx, req, fields[1], func(ctx context.Context, req *request, productID int64) error {
			d.sessions.Set(req.chatID, StateAwaitingFieldValue{ProductID: productID, Field: field})
			return d.send(ctx, req, i18n.Text(req.lang, i18n.AdminFieldPrompt, field, productID), nil)
		})
	case "credit":
		if len(fields) < 2 {
			break
		}
		return d.withID(ctx, req, fields[1], func(ctx context.Context, req *request, userID int64) error {
			d.sessions.Set(req.chatID, StateAwaitingCreditAmount{TargetUserID: userID})
			return d.send(ctx, req, i18n.Text(req.lang, i18n.AdminCreditPrompt, userID), nil)
		})
	case "ban", "unban":
		if len(fields) < 2 {
			break
		}
		return d.withID(ctx, req, fields[1], func(ctx context.Context, req *request, userID int64) error {
			return d.setBanned(ctx, req, userID, fields[0] == "ban")
		})
	case "banlist":
		return d.banList(ctx, req)
	case "publish":
		return d.publishStock(ctx, req)
	case "orders":
		return d.recentOrders(ctx, req)
	case "stats":
		return d.stats(ctx, req)
	}
	return d.send(ctx, req, i18n.Text(req.lang, i18n.AdminUsage), nil)
}

// addProduct parses "addproduct <kind> <price> <title_en> | <title_ru>".
// Optional body lines carry the english and russian descriptions.
func (d *Dispatcher) addProduct(ctx context.Context, req *request, head, body string) error {
	fields := strings.Fields(head)
	if len(fields) < 4 {
		return d.send(ctx, req, i18n.Text(req.lang, i18n.AdminUsage), nil)
	}
	price, err := usecase.ParseAmount(fields[2])
	if err != nil {
		return d.fail(ctx, req, err)
	}
	titleEn, titleRu := splitTitles(afterFields(head, 3))
	descEn, descRu, _ := strings.Cut(body, "\n")

	product, err := d.catalog.CreateProduct(ctx, model.NewProduct{
		TitleEn: titleEn,
		TitleRu: titleRu,
		DescEn:  strings.TrimSpace(descEn),
		DescRu:  strings.TrimSpace(descRu),
		Price:   price,
		Kind:    model.DeliveryKind(strings.ToLower(fields[1])),
	})
	if err != nil {
		return d.fail(ctx, req, err)
	}
	return d.send(ctx, req, i18n.Text(req.lang, i18n.AdminProductCreated, product.ID), nil)
}

// addCategory parses "addcategory <sort> <title_en> | <title_ru>".
func (d *Dispatcher) addCategory(ctx context.Context, req *request, head string) error {
	fields := strings.Fields(head)
	if len(fields) < 3 {
		return d.send(ctx, req, i18n.Text(req.lang, i18n.AdminUsage), nil)
	}
	sortOrder, err := strconv.Atoi(fields[1])
	if err != nil {
		return d.fail(ctx, req, fmt.Errorf("sort %q: %w", fields[1], domainErrors.ErrInvalidValue))
	}
	titleEn, titleRu := splitTitles(afterFields(head, 2))

	category, err := d.catalog.CreateCategory(ctx, model.Category{TitleEn: titleEn, TitleRu: titleRu, SortOrder: sortOrder})
	if err != nil {
		return d.fail(ctx, req, err)
	}
	return d.send(ctx, req, i18n.Text(req.lang, i18n.AdminCategoryCreated, category.ID), nil)
}

func (d *Dispatcher) addStock(ctx context.Context, req *request, productID int64, payloads []string) error {
	added, err := d.catalog.AddUnits(ctx, productID, payloads)
	if err != nil {
		return d.fail(ctx, req, err)
	}
	return d.send(ctx, req, i18n.Text(req.lang, i18n.AdminStockAdded, added, productID), nil)
}

func (d *Dispatcher) setField(ctx context.Context, req *request, productID int64, field model.ProductField, raw string) error {
	if err := d.catalog.UpdateField(ctx, productID, field, raw); err != nil {
		return d.fail(ctx, req, err)
	}
	return d.send(ctx, req, i18n.Text(req.lang, i18n.AdminFieldUpdated, productID), nil)
}

func (d *Dispatcher) creditUser(ctx context.Context, req *request, userID int64, raw string) error {
	amount, err := usecase.ParseAmount(raw)
	if err != nil {
		d.sessions.Set(req.chatID, StateAwaitingCreditAmount{TargetUserID: userID})
		return d.fail(ctx, req, err)
	}
	balance, err := d.ledger.AdminCredit(ctx, req.userID, userID, amount)
	if err != nil {
		return d.fail(ctx, req, err)
	}
	req.logger.Info("admin credit",
		slog.Int64("target_user_id", userID),
		slog.String("amount", amount.StringFixed(2)),
	)
	return d.send(ctx, req, i18n.Text(req.lang, i18n.AdminCredited, amount.StringFixed(2), userID, balance.StringFixed(2)), nil)
}

func (d *Dispatcher) setBanned(ctx context.Context, req *request, userID int64, banned bool) error {
	if banned {
		if err := d.accounts.Ban(ctx, userID); err != nil {
			return d.fail(ctx, req, err)
		}
		return d.send(ctx, req, i18n.Text(req.lang, i18n.AdminBanned, userID), nil)
	}
	if err := d.accounts.Unban(ctx, userID); err != nil {
		return d.fail(ctx, req, err)
	}
	return d.send(ctx, req, i18n.Text(req.lang, i18n.AdminUnbanned, userID), nil)
}

func (d *Dispatcher) banList(ctx context.Context, req *request) error {
	ids, err := d.accounts.Banned(ctx)
	if err != nil {
		return d.fail(ctx, req, err)
	}
	if len(ids) == 0 {
		return d.send(ctx, req, i18n.Text(req.lang, i18n.AdminBanListEmpty), nil)
	}
	var b strings.Builder
	b.WriteString(i18n.Text(req.lang, i18n.AdminBanListTitle, len(ids)))
	for i, id := range ids {
		fmt.Fprintf(&b, "\n%d. <code>%d</code>", i+1, id)
	}
	return d.send(ctx, req, b.String(), nil)
}

func (d *Dispatcher) publishStock(ctx context.Context, req *request) error {
	result, err := d.catalog.PublishStock(ctx)
	if errors.Is(err, domainErrors.ErrOutOfStock) {
		return d.send(ctx, req, i18n.Text(req.lang, i18n.NoProducts), nil)
	}
	if err != nil {
		return d.fail(ctx, req, err)
	}
	return d.send(ctx, req, i18n.Text(req.lang, i18n.AdminPublished, result.Sent, result.Failed, result.Skipped), nil)
}

func (d *Dispatcher) recentOrders(ctx context.Context, req *request) error {
	orders, err := d.orders.Recent(ctx, 0)
	if err != nil {
		return d.fail(ctx, req, err)
	}
	if len(orders) == 0 {
		return d.send(ctx, req, i18n.Text(req.lang, i18n.HistoryEmpty), nil)
	}
	var b strings.Builder
	b.WriteString(i18n.Text(req.lang, i18n.AdminOrdersTitle))
	for _, o := range orders {
		b.WriteString("\n")
		b.WriteString(i18n.Text(req.lang, i18n.AdminOrderLine, o.ID, o.UserID, o.CreatedAt.Format(dateLayout), o.Price.StringFixed(2), o.Status))
	}
	return d.send(ctx, req, b.String(), nil)
}

func (d *Dispatcher) stats(ctx context.Context, req *request) error {
	stats, err := d.accounts.Stats(ctx)
	if err != nil {
		return d.fail(ctx, req, err)
	}
	parts := make([]string, 0, len(statusOrder))
	for _, status := range statusOrder {
		parts = append(parts, fmt.Sprintf("%s %d", status, stats.OrdersByStatus[status]))
	}
	text := i18n.Text(req.lang, i18n.AdminStats, stats.Users, strings.Join(parts, ", "), stats.Revenue.StringFixed(2))
	return d.send(ctx, req, text, nil)
}

// afterFields returns s without its first n whitespace-separated fields.
func afterFields(s string, n int) string {
	s = strings.TrimSpace(s)
	for i := 0; i < n; i++ {
		idx := strings.IndexAny(s, " \t")
		if idx < 0 {
			return ""
		}
		s = strings.TrimSpace(s[idx:])
	}
	return s
}

func splitTitles(s string) (string, string) {
	en, ru, _ := strings.Cut(s, "|")
	return strings.TrimSpace(en), strings.TrimSpace(ru)
}
