package usecase

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/multierr"

	domainErrors "github.com/polkiloo/digishop/internal/domain/errors"
	"github.com/polkiloo/digishop/internal/domain/model"
	"github.com/polkiloo/digishop/internal/domain/repository"
	"github.com/polkiloo/digishop/internal/i18n"
)

// CatalogParams lists dependencies of CatalogUseCase.
type CatalogParams struct {
	fx.In

	Products   repository.ProductRepository
	Categories repository.CategoryRepository
	Inventory  repository.InventoryRepository
	Favorites  repository.FavoriteRepository
	Accounts   repository.AccountRepository
	Notifier   Notifier
	Logger     *slog.Logger
}

// CatalogUseCase serves product listings and administrative catalog edits.
type CatalogUseCase struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	inventory  repository.InventoryRepository
	favorites  repository.FavoriteRepository
	accounts   repository.AccountRepository
	notifier   Notifier
	logger     *slog.Logger
}

// NewCatalogUseCase constructs CatalogUseCase.
func NewCatalogUseCase(p CatalogParams) *CatalogUseCase {
	return &CatalogUseCase{
		products:   p.Products,
		categories: p.Categories,
		inventory:  p.Inventory,
		favorites:  p.Favorites,
		accounts:   p.Accounts,
		notifier:   p.Notifier,
		logger:     p.Logger,
	}
}

func (u *CatalogUseCase) Categories(ctx context.Context) ([]model.Category, error) {
	return u.categories.ListActive(ctx)
}

// Listings returns active products in stock. A nil category lists everything.
func (u *CatalogUseCase) Listings(ctx context.Context, categoryID *int64) ([]model.ProductListing, error) {
	return u.products.ListAvailable(ctx, categoryID)
}

func (u *CatalogUseCase) StockReport(ctx context.Context) ([]model.ProductListing, error) {
	report, err := u.products.StockReport(ctx)
	if err != nil {
		return nil, err
	}
	active := report[:0]
	for _, l := range report {
		if l.Product.Active {
			active = append(active, l)
		}
	}
	return active, nil
}

// StockText renders the stock report in lang.
func StockText(lang model.Language, report []model.ProductListing) string {
	var b strings.Builder
	b.WriteString(i18n.Text(lang, i18n.StockTitle))
	for _, l := range report {
		b.WriteString("\n")
		b.WriteString(i18n.Text(lang, i18n.StockLine, html.EscapeString(l.Product.Title(lang)), l.Stock))
	}
	return b.String()
}

// StockBroadcast counts the outcome of PublishStock.
type StockBroadcast struct {
	Sent    int
	Failed  int
	Skipped int
}

// PublishStock pushes the stock report to every account that is not banned.
// Failed sends are counted and do not stop the broadcast.
func (u *CatalogUseCase) PublishStock(ctx context.Context) (StockBroadcast, error) {
	var result StockBroadcast
	report, err := u.StockReport(ctx)
	if err != nil {
		return result, err
	}
	if len(report) == 0 {
		return result, domainErrors.ErrOutOfStock
	}
	audience, err := u.accounts.ListActive(ctx)
	if err != nil {
		return result, err
	}
	total, err := u.accounts.Count(ctx)
	if err != nil {
		return result, err
	}

	texts := make(map[model.Language]string, 2)
	var failed error
	for _, account := range audience {
		lang := model.ParseLanguage(string(account.Language))
		text, ok := texts[lang]
		if !ok {
			text = StockText(lang, report)
			texts[lang] = text
		}
		if err := u.notifier.SendText(ctx, account.ID, text); err != nil {
			result.Failed++
			failed = multierr.Append(failed, err)
			continue
		}
		result.Sent++
	}
	result.Skipped = total - len(audience)

	if failed != nil {
		u.logger.Warn("stock broadcast failures", slog.Int("failed", result.Failed), slog.String("error", failed.Error()))
	}
	u.logger.Info("stock broadcast",
		slog.Int("sent", result.Sent),
		slog.Int("failed", result.Failed),
		slog.Int("skipped", result.Skipped),
	)
	return result, nil
}

// Product returns an active product with its derived stock.
func (u *CatalogUseCase) Product(ctx context.Context, id int64) (*model.ProductListing, error) {
	product, err := u.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.Active {
		return nil, domainErrors.ErrProductNotFound
	}
	stock, err := u.inventory.CountAvailable(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.ProductListing{Product: *product, Stock: stock}, nil
}

func (u *CatalogUseCase) CreateProduct(ctx context.Context, p model.NewProduct) (*model.Product, error) {
	p.TitleEn = strings.TrimSpace(p.TitleEn)
	p.TitleRu = strings.TrimSpace(p.TitleRu)
	if p.TitleEn == "" || !p.Kind.Valid() {
		return nil, domainErrors.ErrInvalidValue
	}
	p.Price = roundCents(p.Price)
	if !p.Price.IsPositive() {
		return nil, domainErrors.ErrInvalidAmount
	}
	return u.products.Create(ctx, p)
}

func (u *CatalogUseCase) CreateCategory(ctx context.Context, c model.Category) (*model.Category, error) {
	c.TitleEn = strings.TrimSpace(c.TitleEn)
	c.TitleRu = strings.TrimSpace(c.TitleRu)
	if c.TitleEn == "" {
		return nil, domainErrors.ErrInvalidValue
	}
	return u.categories.Create(ctx, c)
}

// UpdateField validates raw input for one editable field and persists it.
func (u *CatalogUseCase) UpdateField(ctx context.Context, productID int64, field model.ProductField, raw string) error {
	update, err := buildProductUpdate(field, raw)
	if err != nil {
		return err
	}
	return u.products.Update(ctx, productID, update)
}

func buildProductUpdate(field model.ProductField, raw string) (model.ProductUpdate, error) {
	update := model.ProductUpdate{Field: field}
	value := strings.TrimSpace(raw)

	switch field {
	case model.FieldPrice:
		price, err := ParseAmount(value)
		if err != nil {
			return update, err
		}
		update.Price = price
	case model.FieldTitleEn:
		if value == "" {
			return update, fmt.Errorf("%s must not be empty: %w", field, domainErrors.ErrInvalidValue)
		}
		update.Text = value
	case model.FieldTitleRu, model.FieldDescEn, model.FieldDescRu:
		update.Text = value
	case model.FieldActive:
		active, ok := parseSwitch(value)
		if !ok {
			return update, fmt.Errorf("%s expects yes or no: %w", field, domainErrors.ErrInvalidValue)
		}
		update.Active = active
	case model.FieldCategory:
		if value == "" || value == "0" || strings.EqualFold(value, "none") {
			break
		}
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil || id <= 0 {
			return update, fmt.Errorf("%s expects a category id: %w", field, domainErrors.ErrInvalidValue)
		}
		update.Category = &id
	default:
		return update, domainErrors.ErrInvalidField
	}
	return update, nil
}

// AddUnits restocks a product with one unit per non-empty payload.
// Favoriting users are notified when the product comes back in stock.
func (u *CatalogUseCase) AddUnits(ctx context.Context, productID int64, payloads []string) (int, error) {
	product, err := u.products.GetByID(ctx, productID)
	if err != nil {
		return 0, err
	}

	cleaned := make([]string, 0, len(payloads))
	for _, p := range payloads {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) == 0 {
		return 0, domainErrors.ErrInvalidValue
	}

	before, err := u.inventory.CountAvailable(ctx, productID)
	if err != nil {
		return 0, err
	}
	added, err := u.inventory.AddUnits(ctx, productID, product.Kind, cleaned)
	if err != nil {
		return 0, err
	}
	if before == 0 && added > 0 && product.Active {
		u.notifyRestock(ctx, product)
	}
	return added, nil
}

// ToggleFavorite reports whether the product is a favorite after the call.
func (u *CatalogUseCase) ToggleFavorite(ctx context.Context, userID, productID int64) (bool, error) {
	if _, err := u.products.GetByID(ctx, productID); err != nil {
		return false, err
	}
	return u.favorites.Toggle(ctx, userID, productID)
}

func (u *CatalogUseCase) notifyRestock(ctx context.Context, product *model.Product) {
	subscribers, err := u.favorites.Subscribers(ctx, product.ID)
	if err != nil {
		u.logger.Error("load restock subscribers", slog.Int64("product_id", product.ID), slog.String("error", err.Error()))
		return
	}

	var failed error
	for _, userID := range subscribers {
		lang := languageOf(ctx, u.accounts, userID)
		if err := u.notifier.SendText(ctx, userID, i18n.Text(lang, i18n.Restocked, product.Title(lang))); err != nil {
			failed = multierr.Append(failed, err)
		}
	}
	if failed != nil {
		u.logger.Warn("restock notification failed", slog.Int64("product_id", product.ID), slog.String("error", failed.Error()))
	}
}
