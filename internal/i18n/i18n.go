// Package i18n holds the bot's localized message catalog.
package i18n

import (
	"fmt"

	"github.com/polkiloo/digishop/internal/domain/model"
)

// Key identifies a localized message.
type Key string

const (
	Welcome          Key = "welcome"
	LanguageSelected Key = "language_selected"
	MainMenu         Key = "main_menu"
	MenuProducts     Key = "menu_products"
	MenuStock        Key = "menu_stock"
	MenuProfile      Key = "menu_profile"
	MenuTopup        Key = "menu_topup"
	Back             Key = "back"
	ChooseCategory   Key = "choose_category"
	ChooseProduct    Key = "choose_product"
	NoProducts       Key = "no_products"
	StockTitle       Key = "stock_title"
	StockLine        Key = "stock_line"
	ProductCard      Key = "product_card"
	BuyButton        Key = "buy_button"
	FavoriteAdd      Key = "favorite_add"
	FavoriteAdded    Key = "favorite_added"
	FavoriteRemoved  Key = "favorite_removed"
	OutOfStock       Key = "out_of_stock"
	ProductMissing   Key = "product_missing"
	Insufficient     Key = "insufficient_funds"
	ProviderError    Key = "provider_error"
	InvoiceCreated   Key = "invoice_created"
	PayButton        Key = "pay_button"
	CheckButton      Key = "check_button"
	CancelButton     Key = "cancel_button"
	NotPaidYet       Key = "not_paid_yet"
	OrderCanceled    Key = "order_canceled"
	OrderNotPending  Key = "order_not_pending"
	OrderMissing     Key = "order_missing"
	DeliveryFailed   Key = "delivery_failed"
	PaidFromBalance  Key = "paid_from_balance"
	DeliveryHeader   Key = "delivery_header"
	DeliveryLink     Key = "delivery_link"
	DeliveryCode     Key = "delivery_code"
	DeliveryFile     Key = "delivery_file"
	ProfileText      Key = "profile_text"
	HistoryTitle     Key = "history_title"
	HistoryEmpty     Key = "history_empty"
	HistoryOrderLine Key = "history_order_line"
	HistoryTopupLine Key = "history_topup_line"
	TopupPrompt      Key = "topup_prompt"
	TopupInvalid     Key = "topup_invalid"
	TopupTooSmall    Key = "topup_too_small"
	TopupCreated     Key = "topup_created"
	TopupCredited    Key = "topup_credited"
	TopupNotPaid     Key = "topup_not_paid"
	Restocked        Key = "restocked"
	GenericError     Key = "generic_error"
	MenuHistory      Key = "menu_history"
	InvalidInput     Key = "invalid_input"
	LanguagePrompt   Key = "language_prompt"

	// Admin replies are English only.
	AdminUsage           Key = "admin_usage"
	AdminProductCreated  Key = "admin_product_created"
	AdminCategoryCreated Key = "admin_category_created"
	AdminStockAdded      Key = "admin_stock_added"
	AdminFieldPrompt     Key = "admin_field_prompt"
	AdminFieldUpdated    Key = "admin_field_updated"
	AdminCreditPrompt    Key = "admin_credit_prompt"
	AdminCredited        Key = "admin_credited"
	AdminBanned          Key = "admin_banned"
	AdminUnbanned        Key = "admin_unbanned"
	AdminOrdersTitle     Key = "admin_orders_title"
	AdminOrderLine       Key = "admin_order_line"
	AdminStats           Key = "admin_stats"
	AdminPublished       Key = "admin_published"
	AdminBanListTitle    Key = "admin_ban_list_title"
	AdminBanListEmpty    Key = "admin_ban_list_empty"
)

var catalog = map[model.Language]map[Key]string{
	model.LanguageEn: {
		Welcome:          "Welcome! Please choose your language.",
		LanguageSelected: "Language set: English 🇬🇧",
		MainMenu:         "Main menu:",
		MenuProducts:     "📦 Products",
		MenuStock:        "📊 Stock",
		MenuProfile:      "👤 Profile",
		MenuTopup:        "💰 Top up",
		Back:             "⬅️ Back",
		ChooseCategory:   "Choose a category:",
		ChooseProduct:    "Choose a product:",
		NoProducts:       "Nothing is available right now.",
		StockTitle:       "📦 Product stock:",
		StockLine:        "%s: %d pcs",
		ProductCard:      "<b>%s</b>\n\n%s\n\nPrice: $%s\nIn stock: %d",
		BuyButton:        "💳 Buy for $%s",
		FavoriteAdd:      "⭐ Notify on restock",
		FavoriteAdded:    "You will be notified when this product is restocked.",
		FavoriteRemoved:  "Restock notifications disabled.",
		OutOfStock:       "❌ Out of stock",
		ProductMissing:   "This product is no longer available.",
		Insufficient:     "Not enough balance. Please try again.",
		ProviderError:    "Payment service is unavailable. Please try again later.",
		InvoiceCreated:   "✅ Invoice created!\n\nBalance used: $%s\nTo pay: $%s\n\nPlease pay using the link below:",
		PayButton:        "🔗 Pay",
		CheckButton:      "🔄 Check payment",
		CancelButton:     "❌ Cancel",
		NotPaidYet:       "Payment has not arrived yet.",
		OrderCanceled:    "Order #%d canceled.",
		OrderNotPending:  "Order #%d can no longer be canceled.",
		OrderMissing:     "Order not found.",
		DeliveryFailed:   "⚠️ We could not deliver your order #%d. Please contact support.",
		PaidFromBalance:  "✅ Paid $%s from your balance. New balance: $%s",
		DeliveryHeader:   "✅ Payment confirmed!\n📦 <b>%s</b>",
		DeliveryLink:     "✅ Done! Here is your product:\n🔗 %s",
		DeliveryCode:     "✅ Done! Here is your product:\n\n<code>%s</code>",
		DeliveryFile:     "✅ Done! Here is your product: %s",
		ProfileText:      "👤 Profile\n\nID: <code>%d</code>\nBalance: $%s\nPurchases: %d",
		HistoryTitle:     "🧾 Recent activity:",
		HistoryEmpty:     "No activity yet.",
		HistoryOrderLine: "#%d %s $%s (%s)",
		HistoryTopupLine: "Top-up $%s (%s)",
		TopupPrompt:      "Enter the amount in USD (minimum $%s):",
		TopupInvalid:     "Please enter a valid amount, for example 5 or 2,50.",
		TopupTooSmall:    "The minimum top-up is $%s.",
		TopupCreated:     "✅ Top-up invoice for $%s created.",
		TopupCredited:    "✅ Balance credited. New balance: $%s",
		TopupNotPaid:     "Top-up payment has not arrived yet.",
		Restocked:        "🔔 «%s» is back in stock!",
		GenericError:     "Something went wrong. Please try again.",
		MenuHistory:      "🧾 History",
		InvalidInput:     "Invalid value. Please try again.",
		LanguagePrompt:   "Choose your language:",

		AdminUsage: "Admin commands:\n" +
			"/admin addproduct <kind> <price> <title_en> | <title_ru>\n" +
			"/admin addcategory <sort> <title_en> | <title_ru>\n" +
			"/admin addstock <product_id> followed by one payload per line\n" +
			"/admin setfield <product_id> <field>\n" +
			"/admin credit <user_id>\n" +
			"/admin ban <user_id>\n" +
			"/admin unban <user_id>\n" +
			"/admin banlist\n" +
			"/admin publish\n" +
			"/admin orders\n" +
			"/admin stats",
		AdminProductCreated:  "Product #%d created.",
		AdminCategoryCreated: "Category #%d created.",
		AdminStockAdded:      "Added %d units to product #%d.",
		AdminFieldPrompt:     "Send the new value of %s for product #%d:",
		AdminFieldUpdated:    "Product #%d updated.",
		AdminCreditPrompt:    "Send the amount to credit to user %d:",
		AdminCredited:        "Credited $%s to user %d. New balance: $%s",
		AdminBanned:          "User %d banned.",
		AdminUnbanned:        "User %d unbanned.",
		AdminOrdersTitle:     "Last orders:",
		AdminOrderLine:       "#%d user %d %s $%s (%s)",
		AdminStats:           "Users: %d\nOrders: %s\nRevenue: $%s",
		AdminPublished:       "Stock report broadcast.\nSent: %d\nFailed: %d\nBanned (skipped): %d",
		AdminBanListTitle:    "Banned users (%d):",
		AdminBanListEmpty:    "No banned users.",
	},
	model.LanguageRu: {
		Welcome:          "Добро пожаловать! Пожалуйста, выберите язык.",
		LanguageSelected: "Язык установлен: Русский 🇷🇺",
		MainMenu:         "Главное меню:",
		MenuProducts:     "📦 Товары",
		MenuStock:        "📊 Наличие товаров",
		MenuProfile:      "👤 Профиль",
		MenuTopup:        "💰 Пополнить",
		Back:             "⬅️ Назад",
		ChooseCategory:   "Выберите категорию:",
		ChooseProduct:    "Выберите товар:",
		NoProducts:       "Сейчас ничего нет в наличии.",
		StockTitle:       "📦 Наличие товаров:",
		StockLine:        "%s: %d шт.",
		ProductCard:      "<b>%s</b>\n\n%s\n\nЦена: $%s\nВ наличии: %d",
		BuyButton:        "💳 Купить за $%s",
		FavoriteAdd:      "⭐ Сообщить о поступлении",
		FavoriteAdded:    "Мы сообщим, когда товар появится.",
		FavoriteRemoved:  "Уведомления о поступлении отключены.",
		OutOfStock:       "❌ Товар закончился",
		ProductMissing:   "Этот товар больше недоступен.",
		Insufficient:     "Недостаточно средств на балансе. Попробуйте снова.",
		ProviderError:    "Платёжный сервис недоступен. Попробуйте позже.",
		InvoiceCreated:   "✅ Счет создан!\n\nСписано с баланса: $%s\nК оплате: $%s\n\nОплатите по ссылке ниже:",
		PayButton:        "🔗 Оплатить",
		CheckButton:      "🔄 Проверить оплату",
		CancelButton:     "❌ Отменить",
		NotPaidYet:       "Оплата ещё не поступила.",
		OrderCanceled:    "Заказ #%d отменён.",
		OrderNotPending:  "Заказ #%d уже нельзя отменить.",
		OrderMissing:     "Заказ не найден.",
		DeliveryFailed:   "⚠️ Не удалось выдать заказ #%d. Пожалуйста, свяжитесь с поддержкой.",
		PaidFromBalance:  "✅ Оплачено $%s с баланса. Новый баланс: $%s",
		DeliveryHeader:   "✅ Оплата подтверждена!\n📦 <b>%s</b>",
		DeliveryLink:     "✅ Готово! Вот ваш товар:\n🔗 %s",
		DeliveryCode:     "✅ Готово! Вот ваш товар:\n\n<code>%s</code>",
		DeliveryFile:     "✅ Готово! Вот ваш товар: %s",
		ProfileText:      "👤 Профиль\n\nID: <code>%d</code>\nБаланс: $%s\nПокупок: %d",
		HistoryTitle:     "🧾 Последние операции:",
		HistoryEmpty:     "Операций пока нет.",
		HistoryOrderLine: "#%d %s $%s (%s)",
		HistoryTopupLine: "Пополнение $%s (%s)",
		TopupPrompt:      "Введите сумму в USD (минимум $%s):",
		TopupInvalid:     "Введите корректную сумму, например 5 или 2,50.",
		TopupTooSmall:    "Минимальная сумма пополнения $%s.",
		TopupCreated:     "✅ Счёт на пополнение $%s создан.",
		TopupCredited:    "✅ Баланс пополнен. Новый баланс: $%s",
		TopupNotPaid:     "Оплата пополнения ещё не поступила.",
		Restocked:        "🔔 «%s» снова в наличии!",
		GenericError:     "Что-то пошло не так. Попробуйте снова.",
		MenuHistory:      "🧾 История",
		InvalidInput:     "Некорректное значение. Попробуйте снова.",
		LanguagePrompt:   "Выберите язык:",
	},
}

// Text renders key in lang, falling back to English and then to the key itself.
func Text(lang model.Language, key Key, args ...any) string {
	format, ok := catalog[lang][key]
	if !ok {
		format, ok = catalog[model.LanguageEn][key]
	}
	if !ok {
		format = string(key)
	}
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
