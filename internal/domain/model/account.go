package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Language is the buyer's interface language.
type Language string

const (
	LanguageEn Language = "en"
	LanguageRu Language = "ru"
)

// ParseLanguage maps user input to a supported language, falling back to English.
func ParseLanguage(s string) Language {
	if Language(s) == LanguageRu {
		return LanguageRu
	}
	return LanguageEn
}

// Account represents a chat user known to the shop.
type Account struct {
	ID        int64
	Username  string
	Language  Language
	Banned    bool
	CreatedAt time.Time
}

// AdminAdjustment audits a manual balance credit.
type AdminAdjustment struct {
	ID        int64
	AdminID   int64
	UserID    int64
	Amount    decimal.Decimal
	CreatedAt time.Time
}

// Profile summarizes a buyer for the profile screen.
type Profile struct {
	Account   Account
	Balance   decimal.Decimal
	Purchases int
}

// ShopStats aggregates counters for administrators.
type ShopStats struct {
	Users          int
	OrdersByStatus map[OrderStatus]int
	Revenue        decimal.Decimal
}
