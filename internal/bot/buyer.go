package bot

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"

	"github.com/polkiloo/digishop/internal/adapter/telegram"
	domainErrors "github.com/polkiloo/digishop/internal/domain/errors"
	"github.com/polkiloo/digishop/internal/domain/model"
	"github.com/polkiloo/digishop/internal/i18n"
	"github.com/polkiloo/digishop/internal/usecase"
)

const dateLayout = "2006-01-02"

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("id %q: %w", raw, domainErrors.ErrInvalidValue)
	}
	return id, nil
}

func (d *Dispatcher) start(ctx context.Context, req *request) error {
	if _, created, err := d.accounts.Register(ctx, req.userID, req.username); err != nil {
		return d.fail(ctx, req, err)
	} else if created {
		req.logger.Info("account registered", slog.String("username", req.username))
	}
	return d.send(ctx, req, i18n.Text(req.lang, i18n.Welcome), languageKeyboard())
}

func (d *Dispatcher) chooseLanguage(ctx context.Context, req *request, lang model.Language) error {
	if err := d.accounts.SetLanguage(ctx, req.userID, lang); err != nil {
		return d.fail(ctx, req, err)
	}
	req.lang = lang
	if err := d.send(ctx, req, i18n.Text(lang, i18n.LanguageSelected), nil); err != nil {
		return err
	}
	return d.showMenu(ctx, req)
}

func (d *Dispatcher) showMenu(ctx context.Context, req *request) error {
	return d.send(ctx, req, i18n.Text(req.lang, i18n.MainMenu), mainMenu(req.lang))
}

func (d *Dispatcher) openMenu(ctx context.Context, req *request, item string) error {
	switch item {
	case menuProducts:
		return d.showCategories(ctx, req)
	case menuStock:
		return d.showStock(ctx, req)
	case menuProfile:
		return d.showProfile(ctx, req)
	case menuHistory:
		return d.showHistory(ctx, req)
	case menuTopup:
		return d.promptTopup(ctx, req)
	}
	d.sessions.Set(req.chatID, StateIdle{})
	return d.showMenu(ctx, req)
}

// showCategories falls back to the flat product list when no category exists.
func (d *Dispatcher) showCategories(ctx context.Context, req *request) error {
	categories, err := d.catalog.Categories(ctx)
	if err != nil {
		return d.fail(ctx, req, err)
	}
	if len(categories) == 0 {
		return d.showProducts(ctx, req, nil)
	}

	rows := make([][]telegram.InlineKeyboardButton, 0, len(categories)+1)
	for _, c := range categories {
		rows = append(rows, row(button(c.Title(req.lang), callbackData(actionCategory, c.ID))))
	}
	rows = append(rows, backRow(req.lang))
	return d.send(ctx, req, i18n.Text(req.lang, i18n.ChooseCategory), keyboard(rows...))
}

func (d *Dispatcher) showProducts(ctx context.Context, req *request, categoryID *int64) error {
	listings, err := d.catalog.Listings(ctx, categoryID)
	if err != nil {
		return d.fail(ctx, req, err)
	}
	if len(listings) == 0 {
		return d.send(ctx, req, i18n.Text(req.lang, i18n.NoProducts), keyboard(backRow(req.lang)))
	}

	rows := make([][]telegram.InlineKeyboardButton, 0, len(listings)+1)
	for _, l := range listings {
		label := fmt.Sprintf("%s · $%s", l.Product.Title(req.lang), l.Product.Price.StringFixed(2))
		rows = append(rows, row(button(label, callbackData(actionProduct, l.Product.ID))))
	}
	rows = append(rows, backRow(req.lang))
	return d.send(ctx, req, i18n.Text(req.lang, i18n.ChooseProduct), keyboard(rows...))
}

func (d *Dispatcher) showStock(ctx context.Context, req *request) error {
	report, err := d.catalog.StockReport(ctx)
	if err != nil {
		return d.fail(ctx, req, err)
	}
	if len(report) == 0 {
		return d.send(ctx, req, i18n.Text(req.lang, i18n.NoProducts), keyboard(backRow(req.lang)))
	}

	return d.send(ctx, req, usecase.StockText(req.lang, report), keyboard(backRow(req.lang)))
}

func (d *Dispatcher) showProduct(ctx context.Context, req *request, productID int64) error {
	listing, err := d.catalog.Product(ctx, productID)
	if err != nil {
		return d.fail(ctx, req, err)
	}
	p := listing.Product
	price := p.Price.StringFixed(2)
	text := i18n.Text(req.lang, i18n.ProductCard,
		html.EscapeString(p.Title(req.lang)),
		html.EscapeString(p.Description(req.lang)),
		price,
		listing.Stock,
	)

	var rows [][]telegram.InlineKeyboardButton
	if listing.Stock > 0 {
		rows = append(rows, row(button(i18n.Text(req.lang, i18n.BuyButton, price), callbackData(actionBuy, p.ID))))
	} else {
		text += "\n\n" + i18n.Text(req.lang, i18n.OutOfStock)
	}
	rows = append(rows,
		row(button(i18n.Text(req.lang, i18n.FavoriteAdd), callbackData(actionFavorite, p.ID))),
		backRow(req.lang),
	)
	return d.send(ctx, req, text, keyboard(rows...))
}

func (d *Dispatcher) buy(ctx context.Context, req *request, productID int64) error {
	result, err := d.settlement.Purchase(ctx, req.userID, productID)
	if err != nil {
		return d.fail(ctx, req, err)
	}
	order := result.Order

	switch {
	case order.Status == model.OrderStatusPending:
		text := i18n.Text(req.lang, i18n.InvoiceCreated, order.UsedBalance.StringFixed(2), order.NeedCrypto.StringFixed(2))
		return d.send(ctx, req, text, invoiceKeyboard(req.lang, order.PayURL, order.ID))
	case result.Delivered:
		balance, err := d.ledger.Balance(ctx, req.userID)
		if err != nil {
			return d.fail(ctx, req, err)
		}
		return d.send(ctx, req, i18n.Text(req.lang, i18n.PaidFromBalance, order.Price.StringFixed(2), balance.StringFixed(2)), nil)
	default:
		return d.send(ctx, req, i18n.Text(req.lang, i18n.DeliveryFailed, order.ID), nil)
	}
}

func (d *Dispatcher) checkOrder(ctx context.Context, req *request, orderID int64) error {
	outcome, err := d.orders.CheckPayment(ctx, req.userID, orderID)
	if err != nil {
		return d.fail(ctx, req, err)
	}
	switch outcome {
	case model.CheckNotPaid:
		return d.send(ctx, req, i18n.Text(req.lang, i18n.NotPaidYet), nil)
	case model.CheckDeliveryFailed:
		return d.send(ctx, req, i18n.Text(req.lang, i18n.DeliveryFailed, orderID), nil)
	case model.CheckCanceled:
		return d.send(ctx, req, i18n.Text(req.lang, i18n.OrderCanceled, orderID), nil)
	}
	// Delivered orders already carry the product message.
	return nil
}

func (d *Dispatcher) cancelOrder(ctx context.Context, req *request, orderID int64) error {
	canceled, err := d.orders.CancelByBuyer(ctx, req.userID, orderID)
	if err != nil {
		return d.fail(ctx, req, err)
	}
	if !canceled {
		return d.send(ctx, req, i18n.Text(req.lang, i18n.OrderNotPending, orderID), nil)
	}
	return d.send(ctx, req, i18n.Text(req.lang, i18n.OrderCanceled, orderID), nil)
}

func (d *Dispatcher) toggleFavorite(ctx context.Context, req *request, productID int64) error {
	added, err := d.catalog.ToggleFavorite(ctx, req.userID, productID)
	if err != nil {
		return d.fail(ctx, req, err)
	}
	if added {
		return d.send(ctx, req, i18n.Text(req.lang, i18n.FavoriteAdded), nil)
	}
	return d.send(ctx, req, i18n.Text(req.lang, i18n.FavoriteRemoved), nil)
}

func (d *Dispatcher) showProfile(ctx context.Context, req *request) error {
	profile, err := d.accounts.Profile(ctx, req.userID)
	if err != nil {
		return d.fail(ctx, req, err)
	}
	text := i18n.Text(req.lang, i18n.ProfileText, req.userID, profile.Balance.StringFixed(2), profile.Purchases)
	return d.send(ctx, req, text, keyboard(
		row(button(i18n.Text(req.lang, i18n.MenuHistory), callbackData(actionMenu, menuHistory))),
		row(button(i18n.Text(req.lang, i18n.MenuTopup), callbackData(actionMenu, menuTopup))),
		backRow(req.lang),
	))
}

func (d *Dispatcher) showHistory(ctx context.Context, req *request) error {
	orders, err := d.orders.History(ctx, req.userID, 0)
	if err != nil {
		return d.fail(ctx, req, err)
	}
	topups, err := d.topups.History(ctx, req.userID, 0)
	if err != nil {
		return d.fail(ctx, req, err)
	}
	if len(orders) == 0 && len(topups) == 0 {
		return d.send(ctx, req, i18n.Text(req.lang, i18n.HistoryEmpty), keyboard(backRow(req.lang)))
	}

	var b strings.Builder
	b.WriteString(i18n.Text(req.lang, i18n.HistoryTitle))
	for _, o := range orders {
		b.WriteString("\n")
		b.WriteString(i18n.Text(req.lang, i18n.HistoryOrderLine, o.ID, o.CreatedAt.Format(dateLayout), o.Price.StringFixed(2), o.Status))
	}
	for _, t := range topups {
		b.WriteString("\n")
		b.WriteString(i18n.Text(req.lang, i18n.HistoryTopupLine, t.Amount.StringFixed(2), t.Status))
	}
	return d.send(ctx, req, b.String(), keyboard(backRow(req.lang)))
}

func (d *Dispatcher) promptTopup(ctx context.Context, req *request) error {
	d.sessions.Set(req.chatID, StateAwaitingTopupAmount{})
	return d.send(ctx, req, i18n.Text(req.lang, i18n.TopupPrompt, d.topups.Minimum().StringFixed(2)), nil)
}

// createTopup keeps the session open on invalid input so the buyer can retry.
func (d *Dispatcher) createTopup(ctx context.Context, req *request, raw string) error {
	amount, err := usecase.ParseAmount(raw)
	if err != nil {
		d.sessions.Set(req.chatID, StateAwaitingTopupAmount{})
		return d.send(ctx, req, i18n.Text(req.lang, i18n.TopupInvalid), nil)
	}
	minimum := d.topups.Minimum()
	if amount.LessThan(minimum) {
		d.sessions.Set(req.chatID, StateAwaitingTopupAmount{})
		return d.send(ctx, req, i18n.Text(req.lang, i18n.TopupTooSmall, minimum.StringFixed(2)), nil)
	}

	topup, err := d.topups.Create(ctx, req.userID, amount)
	if err != nil {
		return d.fail(ctx, req, err)
	}
	text := i18n.Text(req.lang, i18n.TopupCreated, topup.Amount.StringFixed(2))
	return d.send(ctx, req, text, topupKeyboard(req.lang, topup.PayURL, topup.InvoiceID))
}

func (d *Dispatcher) checkTopup(ctx context.Context, req *request, invoiceID int64) error {
	paid, err := d.topups.Check(ctx, req.userID, invoiceID)
	if err != nil {
		return d.fail(ctx, req, err)
	}
	if !paid {
		return d.send(ctx, req, i18n.Text(req.lang, i18n.TopupNotPaid), nil)
	}
	balance, err := d.ledger.Balance(ctx, req.userID)
	if err != nil {
		return d.fail(ctx, req, err)
	}
	return d.send(ctx, req, i18n.Text(req.lang, i18n.TopupCredited, balance.StringFixed(2)), nil)
}
