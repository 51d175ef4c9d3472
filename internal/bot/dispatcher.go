// Package bot turns chat updates into shop operations.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.uber.org/fx"

	"github.com/polkiloo/digishop/internal/adapter/telegram"
	domainErrors "github.com/polkiloo/digishop/internal/domain/errors"
	"github.com/polkiloo/digishop/internal/domain/model"
	"github.com/polkiloo/digishop/internal/i18n"
	"github.com/polkiloo/digishop/internal/usecase"
)

// Params lists dependencies of Dispatcher.
type Params struct {
	fx.In

	API        API
	Accounts   *usecase.AccountUseCase
	Catalog    *usecase.CatalogUseCase
	Ledger     *usecase.LedgerUseCase
	Settlement *usecase.SettlementUseCase
	Orders     *usecase.OrderUseCase
	Topups     *usecase.TopupUseCase
	Logger     *slog.Logger
}

// Dispatcher routes updates to buyer and admin handlers and owns chat sessions.
type Dispatcher struct {
	api        API
	accounts   *usecase.AccountUseCase
	catalog    *usecase.CatalogUseCase
	ledger     *usecase.LedgerUseCase
	settlement *usecase.SettlementUseCase
	orders     *usecase.OrderUseCase
	topups     *usecase.TopupUseCase
	sessions   *Sessions
	logger     *slog.Logger
}

func NewDispatcher(p Params) *Dispatcher {
	return &Dispatcher{
		api:        p.API,
		accounts:   p.Accounts,
		catalog:    p.Catalog,
		ledger:     p.Ledger,
		settlement: p.Settlement,
		orders:     p.Orders,
		topups:     p.Topups,
		sessions:   NewSessions(),
		logger:     p.Logger,
	}
}

// request is the context of one update, resolved once per update.
type request struct {
	userID   int64
	chatID   int64
	username string
	lang     model.Language
	admin    bool
	logger   *slog.Logger
}

// Handle processes one update. Updates from banned users are dropped without reply.
func (d *Dispatcher) Handle(ctx context.Context, update telegram.Update) error {
	switch {
	case update.Message != nil && update.Message.From != nil:
		msg := update.Message
		req, ok, err := d.resolve(ctx, msg.From, msg.Chat.ID)
		if err != nil || !ok {
			return err
		}
		return d.handleMessage(ctx, req, msg)
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		chatID := cb.From.ID
		if cb.Message != nil {
			chatID = cb.Message.Chat.ID
		}
		req, ok, err := d.resolve(ctx, &cb.From, chatID)
		if err != nil || !ok {
			return err
		}
		if err := d.api.AnswerCallbackQuery(ctx, cb.ID, ""); err != nil {
			req.logger.Warn("answer callback", slog.String("error", err.Error()))
		}
		return d.handleCallback(ctx, req, cb.Data)
	}
	return nil
}

func (d *Dispatcher) resolve(ctx context.Context, from *telegram.User, chatID int64) (*request, bool, error) {
	banned, err := d.accounts.IsBanned(ctx, from.ID)
	if err != nil {
		return nil, false, err
	}
	if banned {
		d.logger.Debug("update from banned user dropped", slog.Int64("user_id", from.ID))
		return nil, false, nil
	}
	logger := d.logger.With(slog.Int64("user_id", from.ID))
	if traceID := traceIDFrom(ctx); traceID != "" {
		logger = logger.With(slog.String("trace_id", traceID))
	}
	return &request{
		userID:   from.ID,
		chatID:   chatID,
		username: from.Username,
		lang:     d.accounts.Language(ctx, from.ID),
		admin:    d.accounts.IsAdmin(from.ID),
		logger:   logger,
	}, true, nil
}

func (d *Dispatcher) handleMessage(ctx context.Context, req *request, msg *telegram.Message) error {
	text := strings.TrimSpace(msg.Text)
	if msg.Document != nil {
		text = strings.TrimSpace(msg.Caption)
	}

	if strings.HasPrefix(text, "/") {
		d.sessions.Set(req.chatID, StateIdle{})
		command, args, _ := strings.Cut(text, " ")
		command, _, _ = strings.Cut(command, "@")
		switch command {
		case "/start":
			return d.start(ctx, req)
		case "/language":
			return d.send(ctx, req, i18n.Text(req.lang, i18n.LanguagePrompt), languageKeyboard())
		case "/catalog":
			return d.showCategories(ctx, req)
		case "/stock":
			return d.showStock(ctx, req)
		case "/profile":
			return d.showProfile(ctx, req)
		case "/history":
			return d.showHistory(ctx, req)
		case "/topup":
			return d.promptTopup(ctx, req)
		case "/admin":
			if !req.admin {
				return nil
			}
			return d.handleAdmin(ctx, req, args, msg.Document)
		}
		return d.showMenu(ctx, req)
	}

	switch state := d.sessions.Take(req.chatID).(type) {
	case StateAwaitingTopupAmount:
		return d.createTopup(ctx, req, text)
	case StateAwaitingCreditAmount:
		if !req.admin {
			return nil
		}
		return d.creditUser(ctx, req, state.TargetUserID, text)
	case StateAwaitingFieldValue:
		if !req.admin {
			return nil
		}
		return d.setField(ctx, req, state.ProductID, state.Field, text)
	}
	return d.showMenu(ctx, req)
}

func (d *Dispatcher) handleCallback(ctx context.Context, req *request, data string) error {
	action, arg := parseCallback(data)
	switch action {
	case actionLanguage:
		return d.chooseLanguage(ctx, req, model.ParseLanguage(arg))
	case actionMenu:
		return d.openMenu(ctx, req, arg)
	case actionCategory:
		id, err := parseID(arg)
		if err != nil {
			return d.fail(ctx, req, err)
		}
		return d.showProducts(ctx, req, &id)
	case actionProduct:
		return d.withID(ctx, req, arg, d.showProduct)
	case actionBuy:
		return d.withID(ctx, req, arg, d.buy)
	case actionCheck:
		return d.withID(ctx, req, arg, d.checkOrder)
	case actionCancel:
		return d.withID(ctx, req, arg, d.cancelOrder)
	case actionFavorite:
		return d.withID(ctx, req, arg, d.toggleFavorite)
	case actionTopupCheck:
		return d.withID(ctx, req, arg, d.checkTopup)
	}
	req.logger.Debug("unknown callback", slog.String("data", data))
	return nil
}

func (d *Dispatcher) withID(ctx context.Context, req *request, arg string, fn func(context.Context, *request, int64) error) error {
	id, err := parseID(arg)
	if err != nil {
		return d.fail(ctx, req, err)
	}
	return fn(ctx, req, id)
}

func (d *Dispatcher) send(ctx context.Context, req *request, text string, markup *telegram.InlineKeyboardMarkup) error {
	return d.api.SendMessage(ctx, req.chatID, text, markup)
}

// fail replies with the localized message for err. Unexpected errors are logged.
func (d *Dispatcher) fail(ctx context.Context, req *request, err error) error {
	key := i18n.GenericError
	switch {
	case errors.Is(err, domainErrors.ErrOutOfStock):
		key = i18n.OutOfStock
	case errors.Is(err, domainErrors.ErrInsufficientFunds):
		key = i18n.Insufficient
	case errors.Is(err, domainErrors.ErrExternalProvider):
		key = i18n.ProviderError
	case errors.Is(err, domainErrors.ErrProductNotFound):
		key = i18n.ProductMissing
	case errors.Is(err, domainErrors.ErrOrderNotFound), errors.Is(err, domainErrors.ErrTopupNotFound):
		key = i18n.OrderMissing
	case errors.Is(err, domainErrors.ErrInvalidAmount),
		errors.Is(err, domainErrors.ErrInvalidValue),
		errors.Is(err, domainErrors.ErrInvalidField),
		errors.Is(err, domainErrors.ErrNotFound):
		key = i18n.InvalidInput
	default:
		req.logger.Error("handle update", slog.String("error", err.Error()))
	}
	return d.send(ctx, req, i18n.Text(req.lang, key), nil)
}
