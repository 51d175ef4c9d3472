package repository

// Factory describes access to different domain repositories.
type Factory interface {
	Accounts() AccountRepository
	Categories() CategoryRepository
	Products() ProductRepository
	Inventory() InventoryRepository
	Balances() BalanceRepository
	Orders() OrderRepository
	Topups() TopupRepository
	Favorites() FavoriteRepository
}
