package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DeliveryKind defines how a purchased unit reaches the buyer.
type DeliveryKind string

const (
	DeliveryKindLink DeliveryKind = "link"
	DeliveryKindFile DeliveryKind = "file"
	DeliveryKindCode DeliveryKind = "code"
)

// Valid reports whether kind is one of the supported delivery kinds.
func (k DeliveryKind) Valid() bool {
	switch k {
	case DeliveryKindLink, DeliveryKindFile, DeliveryKindCode:
		return true
	}
	return false
}

// Product is a catalog entry. Stock is derived from available inventory units.
type Product struct {
	ID         int64
	CategoryID *int64
	TitleEn    string
	TitleRu    string
	DescEn     string
	DescRu     string
	Price      decimal.Decimal
	Kind       DeliveryKind
	Active     bool
	CreatedAt  time.Time
}

// Title returns the product title in the requested language.
func (p Product) Title(lang Language) string {
	if lang == LanguageRu && p.TitleRu != "" {
		return p.TitleRu
	}
	return p.TitleEn
}

// Description returns the product description in the requested language.
func (p Product) Description(lang Language) string {
	if lang == LanguageRu && p.DescRu != "" {
		return p.DescRu
	}
	return p.DescEn
}

// ProductListing pairs a product with its derived stock.
type ProductListing struct {
	Product Product
	Stock   int
}

// ProductField enumerates catalog fields that can be edited after creation.
type ProductField string

const (
	FieldPrice    ProductField = "price"
	FieldTitleEn  ProductField = "title_en"
	FieldTitleRu  ProductField = "title_ru"
	FieldDescEn   ProductField = "desc_en"
	FieldDescRu   ProductField = "desc_ru"
	FieldActive   ProductField = "active"
	FieldCategory ProductField = "category"
)

// ProductFields lists every editable field in display order.
var ProductFields = []ProductField{
	FieldPrice, FieldTitleEn, FieldTitleRu, FieldDescEn, FieldDescRu, FieldActive, FieldCategory,
}

// ParseProductField resolves a field name from user input.
func ParseProductField(name string) (ProductField, bool) {
	for _, f := range ProductFields {
		if string(f) == name {
			return f, true
		}
	}
	return "", false
}

// ProductUpdate is a validated edit of exactly one product field.
type ProductUpdate struct {
	Field    ProductField
	Text     string
	Price    decimal.Decimal
	Active   bool
	Category *int64
}

// NewProduct carries fields for catalog creation.
type NewProduct struct {
	CategoryID *int64
	TitleEn    string
	TitleRu    string
	DescEn     string
	DescRu     string
	Price      decimal.Decimal
	Kind       DeliveryKind
}

// Category groups products in the catalog.
type Category struct {
	ID        int64
	TitleEn   string
	TitleRu   string
	SortOrder int
	Active    bool
}

// Title returns the category title in the requested language.
func (c Category) Title(lang Language) string {
	if lang == LanguageRu && c.TitleRu != "" {
		return c.TitleRu
	}
	return c.TitleEn
}
