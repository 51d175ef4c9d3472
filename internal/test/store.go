package test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/digishop/internal/domain/errors"
	"github.com/polkiloo/digishop/internal/domain/model"
	"github.com/polkiloo/digishop/internal/domain/repository"
)

// MemoryStore keeps every repository in memory behind one mutex.
// Status changes are compare-and-set like their SQL counterparts, so
// concurrent tests observe the same guarantees as the database.
type MemoryStore struct {
	mu sync.Mutex

	Now func() time.Time

	accounts    map[int64]*model.Account
	favorites   map[int64]map[int64]bool
	categories  []model.Category
	products    map[int64]*model.Product
	units       map[int64]*model.InventoryUnit
	balances    map[int64]decimal.Decimal
	adjustments []model.AdminAdjustment
	orders      map[int64]*model.Order
	topups      map[int64]*model.Topup

	nextID   int64
	failures map[string]error
	calls    map[string]int
}

var _ repository.Factory = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Now:       time.Now,
		accounts:  make(map[int64]*model.Account),
		favorites: make(map[int64]map[int64]bool),
		products:  make(map[int64]*model.Product),
		units:     make(map[int64]*model.InventoryUnit),
		balances:  make(map[int64]decimal.Decimal),
		orders:    make(map[int64]*model.Order),
		topups:    make(map[int64]*model.Topup),
		failures:  make(map[string]error),
		calls:     make(map[string]int),
	}
}

// Fail makes op, e.g. "orders.Create", return err until reset with a nil error.
func (s *MemoryStore) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// Calls reports how many times op was invoked.
func (s *MemoryStore) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// enter must be called with the lock held.
func (s *MemoryStore) enter(op string) error {
	s.calls[op]++
	return s.failures[op]
}

func (s *MemoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

// SeedProduct adds an active product with one available unit per payload.
func (s *MemoryStore) SeedProduct(price string, kind model.DeliveryKind, payloads ...string) *model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &model.Product{
		ID:        s.id(),
		TitleEn:   "Product",
		TitleRu:   "Товар",
		Price:     decimal.RequireFromString(price),
		Kind:      kind,
		Active:    true,
		CreatedAt: s.Now(),
	}
	s.products[p.ID] = p
	for _, payload := range payloads {
		s.addUnit(p.ID, kind, payload)
	}
	cp := *p
	return &cp
}

func (s *MemoryStore) addUnit(productID int64, kind model.DeliveryKind, payload string) {
	u := &model.InventoryUnit{ID: s.id(), ProductID: productID, Kind: kind, Payload: payload, State: model.UnitStateAvailable}
	s.units[u.ID] = u
}

// SetBalance overwrites the wallet balance of a user.
func (s *MemoryStore) SetBalance(userID int64, amount string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[userID] = decimal.RequireFromString(amount)
}

// BalanceOf returns the wallet balance of a user.
func (s *MemoryStore) BalanceOf(userID int64) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[userID]
}

// Order returns a snapshot of the order or nil.
func (s *MemoryStore) Order(id int64) *model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil
	}
	cp := *o
	return &cp
}

// AllOrders returns snapshots ordered by id.
func (s *MemoryStore) AllOrders() []model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]model.Order, 0, len(s.orders))
	for _, o := range s.orders {
		result = append(result, *o)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// SetOrderCreatedAt back-dates an order.
func (s *MemoryStore) SetOrderCreatedAt(id int64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[id]; ok {
		o.CreatedAt = at
	}
}

// Unit returns a snapshot of the inventory unit or nil.
func (s *MemoryStore) Unit(id int64) *model.InventoryUnit {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.units[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

// UnitsInState counts units of a product in the given state.
func (s *MemoryStore) UnitsInState(productID int64, state model.UnitState) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, u := range s.units {
		if u.ProductID == productID && u.State == state {
			n++
		}
	}
	return n
}

// Adjustments returns recorded admin credits.
func (s *MemoryStore) Adjustments() []model.AdminAdjustment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.AdminAdjustment(nil), s.adjustments...)
}

func (s *MemoryStore) Accounts() repository.AccountRepository { return memAccounts{s} }
func (s *MemoryStore) Favorites() repository.FavoriteRepository { return memFavorites{s} }
func (s *MemoryStore) Categories() repository.CategoryRepository { return memCategories{s} }
func (s *MemoryStore) Products() repository.ProductRepository { return memProducts{s} }
func (s *MemoryStore) Inventory() repository.InventoryRepository { return memInventory{s} }
func (s *MemoryStore) Balances() repository.BalanceRepository { return memBalances{s} }
func (s *MemoryStore) Orders() repository.OrderRepository { return memOrders{s} }
func (s *MemoryStore) Topups() repository.TopupRepository { return memTopups{s} }

type memAccounts struct{ s *MemoryStore }

func (r memAccounts) Register(ctx context.Context, id int64, username string) (*model.Account, bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("accounts.Register"); err != nil {
		return nil, false, err
	}
	a, ok := s.accounts[id]
	if ok {
		a.Username = username
		cp := *a
		return &cp, false, nil
	}
	a = &model.Account{ID: id, Username: username, Language: model.LanguageEn, CreatedAt: s.Now()}
	s.accounts[id] = a
	cp := *a
	return &cp, true, nil
}

func (r memAccounts) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("accounts.GetByID"); err != nil {
		return nil, err
	}
	a, ok := s.accounts[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r memAccounts) SetLanguage(ctx context.Context, id int64, lang model.Language) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("accounts.SetLanguage"); err != nil {
		return err
	}
	a, ok := s.accounts[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	a.Language = lang
	return nil
}

func (r memAccounts) SetBanned(ctx context.Context, id int64, banned bool) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("accounts.SetBanned"); err != nil {
		return err
	}
	a, ok := s.accounts[id]
	if !ok {
		a = &model.Account{ID: id, Language: model.LanguageEn, CreatedAt: s.Now()}
		s.accounts[id] = a
	}
	a.Banned = banned
	return nil
}

func (r memAccounts) IsBanned(ctx context.Context, id int64) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("accounts.IsBanned"); err != nil {
		return false, err
	}
	a, ok := s.accounts[id]
	return ok && a.Banned, nil
}

func (r memAccounts) Count(ctx context.Context) (int, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("accounts.Count"); err != nil {
		return 0, err
	}
	return len(s.accounts), nil
}

func (r memAccounts) ListActive(ctx context.Context) ([]model.Account, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("accounts.ListActive"); err != nil {
		return nil, err
	}
	var result []model.Account
	for _, a := range s.accounts {
		if !a.Banned {
			result = append(result, *a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r memAccounts) ListBanned(ctx context.Context) ([]int64, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("accounts.ListBanned"); err != nil {
		return nil, err
	}
	var ids []int64
	for id, a := range s.accounts {
		if a.Banned {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type memFavorites struct{ s *MemoryStore }

func (r memFavorites) Toggle(ctx context.Context, userID, productID int64) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("favorites.Toggle"); err != nil {
		return false, err
	}
	users := s.favorites[productID]
	if users == nil {
		users = make(map[int64]bool)
		s.favorites[productID] = users
	}
	if users[userID] {
		delete(users, userID)
		return false, nil
	}
	users[userID] = true
	return true, nil
}

func (r memFavorites) Subscribers(ctx context.Context, productID int64) ([]int64, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("favorites.Subscribers"); err != nil {
		return nil, err
	}
	var ids []int64
	for id := range s.favorites[productID] {
		if a, ok := s.accounts[id]; ok && a.Banned {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type memCategories struct{ s *MemoryStore }

func (r memCategories) Create(ctx context.Context, c model.Category) (*model.Category, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("categories.Create"); err != nil {
		return nil, err
	}
	c.ID = s.id()
	c.Active = true
	s.categories = append(s.categories, c)
	return &c, nil
}

func (r memCategories) ListActive(ctx context.Context) ([]model.Category, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("categories.ListActive"); err != nil {
		return nil, err
	}
	var result []model.Category
	for _, c := range s.categories {
		if c.Active {
			result = append(result, c)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].SortOrder < result[j].SortOrder })
	return result, nil
}

type memProducts struct{ s *MemoryStore }

func (r memProducts) Create(ctx context.Context, p model.NewProduct) (*model.Product, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("products.Create"); err != nil {
		return nil, err
	}
	product := &model.Product{
		ID:         s.id(),
		CategoryID: p.CategoryID,
		TitleEn:    p.TitleEn,
		TitleRu:    p.TitleRu,
		DescEn:     p.DescEn,
		DescRu:     p.DescRu,
		Price:      p.Price,
		Kind:       p.Kind,
		Active:     true,
		CreatedAt:  s.Now(),
	}
	s.products[product.ID] = product
	cp := *product
	return &cp, nil
}

func (r memProducts) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("products.GetByID"); err != nil {
		return nil, err
	}
	p, ok := s.products[id]
	if !ok {
		return nil, domainErrors.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) listings(keep func(p *model.Product, stock int) bool) []model.ProductListing {
	var result []model.ProductListing
	for _, p := range s.products {
		stock := 0
		for _, u := range s.units {
			if u.ProductID == p.ID && u.State == model.UnitStateAvailable {
				stock++
			}
		}
		if keep(p, stock) {
			result = append(result, model.ProductListing{Product: *p, Stock: stock})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Product.ID < result[j].Product.ID })
	return result
}

func (r memProducts) ListAvailable(ctx context.Context, categoryID *int64) ([]model.ProductListing, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("products.ListAvailable"); err != nil {
		return nil, err
	}
	return s.listings(func(p *model.Product, stock int) bool {
		if !p.Active || stock == 0 {
			return false
		}
		return categoryID == nil || (p.CategoryID != nil && *p.CategoryID == *categoryID)
	}), nil
}

func (r memProducts) StockReport(ctx context.Context) ([]model.ProductListing, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("products.StockReport"); err != nil {
		return nil, err
	}
	return s.listings(func(*model.Product, int) bool { return true }), nil
}

func (r memProducts) Update(ctx context.Context, id int64, u model.ProductUpdate) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("products.Update"); err != nil {
		return err
	}
	p, ok := s.products[id]
	if !ok {
		return domainErrors.ErrProductNotFound
	}
	switch u.Field {
	case model.FieldPrice:
		p.Price = u.Price
	case model.FieldTitleEn:
		p.TitleEn = u.Text
	case model.FieldTitleRu:
		p.TitleRu = u.Text
	case model.FieldDescEn:
		p.DescEn = u.Text
	case model.FieldDescRu:
		p.DescRu = u.Text
	case model.FieldActive:
		p.Active = u.Active
	case model.FieldCategory:
		p.CategoryID = u.Category
	default:
		return domainErrors.ErrInvalidField
	}
	return nil
}

type memInventory struct{ s *MemoryStore }

func (r memInventory) Reserve(ctx context.Context, productID int64) (*model.InventoryUnit, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("inventory.Reserve"); err != nil {
		return nil, err
	}
	var picked *model.InventoryUnit
	for _, u := range s.units {
		if u.ProductID != productID || u.State != model.UnitStateAvailable {
			continue
		}
		if picked == nil || u.ID < picked.ID {
			picked = u
		}
	}
	if picked == nil {
		return nil, domainErrors.ErrOutOfStock
	}
	now := s.Now()
	picked.State = model.UnitStateReserved
	picked.ReservedAt = &now
	cp := *picked
	return &cp, nil
}

func (r memInventory) Release(ctx context.Context, unitID int64) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("inventory.Release"); err != nil {
		return err
	}
	s.release(unitID)
	return nil
}

func (s *MemoryStore) release(unitID int64) {
	if u, ok := s.units[unitID]; ok && u.State == model.UnitStateReserved {
		u.State = model.UnitStateAvailable
		u.ReservedAt = nil
	}
}

func (r memInventory) Consume(ctx context.Context, unitID int64) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("inventory.Consume"); err != nil {
		return err
	}
	s.consume(unitID)
	return nil
}

func (s *MemoryStore) consume(unitID int64) {
	if u, ok := s.units[unitID]; ok && u.State == model.UnitStateReserved {
		now := s.Now()
		u.State = model.UnitStateSold
		u.SoldAt = &now
	}
}

func (r memInventory) GetByID(ctx context.Context, unitID int64) (*model.InventoryUnit, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("inventory.GetByID"); err != nil {
		return nil, err
	}
	u, ok := s.units[unitID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r memInventory) CountAvailable(ctx context.Context, productID int64) (int, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("inventory.CountAvailable"); err != nil {
		return 0, err
	}
	n := 0
	for _, u := range s.units {
		if u.ProductID == productID && u.State == model.UnitStateAvailable {
			n++
		}
	}
	return n, nil
}

func (r memInventory) AddUnits(ctx context.Context, productID int64, kind model.DeliveryKind, payloads []string) (int, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("inventory.AddUnits"); err != nil {
		return 0, err
	}
	for _, p := range payloads {
		s.addUnit(productID, kind, p)
	}
	return len(payloads), nil
}

type memBalances struct{ s *MemoryStore }

func (r memBalances) Get(ctx context.Context, userID int64) (decimal.Decimal, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("balances.Get"); err != nil {
		return decimal.Zero, err
	}
	return s.balances[userID], nil
}

func (r memBalances) Credit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("balances.Credit"); err != nil {
		return decimal.Zero, err
	}
	return s.credit(userID, amount), nil
}

func (s *MemoryStore) credit(userID int64, amount decimal.Decimal) decimal.Decimal {
	s.balances[userID] = s.balances[userID].Add(amount)
	return s.balances[userID]
}

func (r memBalances) Debit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("balances.Debit"); err != nil {
		return decimal.Zero, err
	}
	if s.balances[userID].LessThan(amount) {
		return decimal.Zero, domainErrors.ErrInsufficientFunds
	}
	s.balances[userID] = s.balances[userID].Sub(amount)
	return s.balances[userID], nil
}

func (r memBalances) AdminCredit(ctx context.Context, adj model.AdminAdjustment) (decimal.Decimal, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("balances.AdminCredit"); err != nil {
		return decimal.Zero, err
	}
	adj.ID = s.id()
	adj.CreatedAt = s.Now()
	s.adjustments = append(s.adjustments, adj)
	return s.credit(adj.UserID, adj.Amount), nil
}

type memOrders struct{ s *MemoryStore }

func (r memOrders) Create(ctx context.Context, o model.NewOrder) (*model.Order, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("orders.Create"); err != nil {
		return nil, err
	}
	unitID := o.UnitID
	order := &model.Order{
		ID:          s.id(),
		UserID:      o.UserID,
		ProductID:   o.ProductID,
		UnitID:      &unitID,
		InvoiceID:   o.InvoiceID,
		PayURL:      o.PayURL,
		Status:      o.Status,
		Price:       o.Price,
		UsedBalance: o.UsedBalance,
		NeedCrypto:  o.NeedCrypto,
		CreatedAt:   s.Now(),
	}
	if o.Payment != nil {
		p := *o.Payment
		order.Payment = &p
	}
	s.orders[order.ID] = order
	cp := *order
	return &cp, nil
}

func (r memOrders) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("orders.GetByID"); err != nil {
		return nil, err
	}
	o, ok := s.orders[id]
	if !ok {
		return nil, domainErrors.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (r memOrders) GetByInvoice(ctx context.Context, invoiceID int64) (*model.Order, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("orders.GetByInvoice"); err != nil {
		return nil, err
	}
	for _, o := range s.orders {
		if o.InvoiceID != nil && *o.InvoiceID == invoiceID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, domainErrors.ErrOrderNotFound
}

func (r memOrders) MarkPaid(ctx context.Context, id int64, p model.Payment) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("orders.MarkPaid"); err != nil {
		return false, err
	}
	o, ok := s.orders[id]
	if !ok || o.Status != model.OrderStatusPending {
		return false, nil
	}
	o.Status = model.OrderStatusPaid
	o.Payment = &p
	return true, nil
}

func (r memOrders) Cancel(ctx context.Context, id int64) (*model.Order, bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("orders.Cancel"); err != nil {
		return nil, false, err
	}
	o, ok := s.orders[id]
	if !ok || o.Status != model.OrderStatusPending {
		return nil, false, nil
	}
	o.Status = model.OrderStatusCanceled
	if o.UnitID != nil {
		s.release(*o.UnitID)
	}
	if o.UsedBalance.IsPositive() {
		s.credit(o.UserID, o.UsedBalance)
	}
	cp := *o
	return &cp, true, nil
}

func (r memOrders) ClaimDelivery(ctx context.Context, id int64, staleBefore time.Time) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("orders.ClaimDelivery"); err != nil {
		return false, err
	}
	o, ok := s.orders[id]
	if !ok || o.Status != model.OrderStatusPaid {
		return false, nil
	}
	if o.DeliveryClaimedAt != nil && !o.DeliveryClaimedAt.Before(staleBefore) {
		return false, nil
	}
	now := s.Now()
	o.DeliveryClaimedAt = &now
	return true, nil
}

func (r memOrders) ReleaseDeliveryClaim(ctx context.Context, id int64) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("orders.ReleaseDeliveryClaim"); err != nil {
		return err
	}
	if o, ok := s.orders[id]; ok && o.Status == model.OrderStatusPaid {
		o.DeliveryClaimedAt = nil
	}
	return nil
}

// HeldClaim is the claim time HoldDeliveryClaim stores.
var HeldClaim = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

func (r memOrders) HoldDeliveryClaim(ctx context.Context, id int64) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("orders.HoldDeliveryClaim"); err != nil {
		return err
	}
	if o, ok := s.orders[id]; ok && o.Status == model.OrderStatusPaid {
		held := HeldClaim
		o.DeliveryClaimedAt = &held
	}
	return nil
}

func (r memOrders) MarkDelivered(ctx context.Context, id int64, d model.Delivery) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("orders.MarkDelivered"); err != nil {
		return false, err
	}
	o, ok := s.orders[id]
	if !ok || o.Status != model.OrderStatusPaid {
		return false, nil
	}
	o.Status = model.OrderStatusDelivered
	o.Delivery = &d
	o.DeliveryClaimedAt = nil
	if o.UnitID != nil {
		s.consume(*o.UnitID)
	}
	return true, nil
}

func (s *MemoryStore) selectOrders(keep func(*model.Order) bool, newestFirst bool, limit int) []model.Order {
	var result []model.Order
	for _, o := range s.orders {
		if keep(o) {
			result = append(result, *o)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if newestFirst {
			return result[i].ID > result[j].ID
		}
		return result[i].ID < result[j].ID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

func (r memOrders) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("orders.ListExpiredPending"); err != nil {
		return nil, err
	}
	return s.selectOrders(func(o *model.Order) bool {
		return o.Status == model.OrderStatusPending && o.CreatedAt.Before(cutoff)
	}, false, limit), nil
}

func (r memOrders) ListPendingWithInvoice(ctx context.Context, limit int) ([]model.Order, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("orders.ListPendingWithInvoice"); err != nil {
		return nil, err
	}
	return s.selectOrders(func(o *model.Order) bool {
		return o.Status == model.OrderStatusPending && o.InvoiceID != nil
	}, false, limit), nil
}

func (r memOrders) ListByUser(ctx context.Context, userID int64, limit int) ([]model.Order, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("orders.ListByUser"); err != nil {
		return nil, err
	}
	return s.selectOrders(func(o *model.Order) bool { return o.UserID == userID }, true, limit), nil
}

func (r memOrders) ListRecent(ctx context.Context, limit int) ([]model.Order, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("orders.ListRecent"); err != nil {
		return nil, err
	}
	return s.selectOrders(func(*model.Order) bool { return true }, true, limit), nil
}

func (r memOrders) CountDelivered(ctx context.Context, userID int64) (int, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("orders.CountDelivered"); err != nil {
		return 0, err
	}
	n := 0
	for _, o := range s.orders {
		if o.UserID == userID && o.Status == model.OrderStatusDelivered {
			n++
		}
	}
	return n, nil
}

func (r memOrders) Stats(ctx context.Context) (map[model.OrderStatus]int, decimal.Decimal, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("orders.Stats"); err != nil {
		return nil, decimal.Zero, err
	}
	byStatus := make(map[model.OrderStatus]int)
	revenue := decimal.Zero
	for _, o := range s.orders {
		byStatus[o.Status]++
		if o.Status == model.OrderStatusPaid || o.Status == model.OrderStatusDelivered {
			revenue = revenue.Add(o.Price)
		}
	}
	return byStatus, revenue, nil
}

type memTopups struct{ s *MemoryStore }

func (r memTopups) Create(ctx context.Context, t model.Topup) (*model.Topup, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("topups.Create"); err != nil {
		return nil, err
	}
	t.ID = s.id()
	t.Status = model.TopupStatusPending
	t.CreatedAt = s.Now()
	t.PaidAt = nil
	s.topups[t.InvoiceID] = &t
	cp := t
	return &cp, nil
}

func (r memTopups) GetByInvoice(ctx context.Context, invoiceID int64) (*model.Topup, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("topups.GetByInvoice"); err != nil {
		return nil, err
	}
	t, ok := s.topups[invoiceID]
	if !ok {
		return nil, domainErrors.ErrTopupNotFound
	}
	cp := *t
	return &cp, nil
}

func (r memTopups) MarkPaid(ctx context.Context, invoiceID int64, paidAt time.Time) (*model.Topup, decimal.Decimal, bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("topups.MarkPaid"); err != nil {
		return nil, decimal.Zero, false, err
	}
	t, ok := s.topups[invoiceID]
	if !ok || t.Status != model.TopupStatusPending {
		return nil, decimal.Zero, false, nil
	}
	t.Status = model.TopupStatusPaid
	t.PaidAt = &paidAt
	balance := s.credit(t.UserID, t.Amount)
	cp := *t
	return &cp, balance, true, nil
}

func (r memTopups) MarkExpired(ctx context.Context, invoiceID int64) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("topups.MarkExpired"); err != nil {
		return false, err
	}
	t, ok := s.topups[invoiceID]
	if !ok || t.Status != model.TopupStatusPending {
		return false, nil
	}
	t.Status = model.TopupStatusExpired
	return true, nil
}

// selectTopups orders newest first like the SQL queries.
func (s *MemoryStore) selectTopups(keep func(*model.Topup) bool, limit int) []model.Topup {
	var result []model.Topup
	for _, t := range s.topups {
		if keep(t) {
			result = append(result, *t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

func (r memTopups) ListByUser(ctx context.Context, userID int64, limit int) ([]model.Topup, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("topups.ListByUser"); err != nil {
		return nil, err
	}
	return s.selectTopups(func(t *model.Topup) bool { return t.UserID == userID }, limit), nil
}

func (r memTopups) ListPending(ctx context.Context, limit int) ([]model.Topup, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("topups.ListPending"); err != nil {
		return nil, err
	}
	return s.selectTopups(func(t *model.Topup) bool { return t.Status == model.TopupStatusPending }, limit), nil
}
