package model

import (
	"errors"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product categories form a fixed enumeration; anything else is rejected
// on create and update.
const (
	CategoryNew          = "new"
	CategoryCheap        = "cheap"
	CategoryExpensive    = "expensive"
	CategoryBestseller   = "bestseller"
	CategorySale         = "sale"
	CategoryDiscount     = "discount"
	CategorySpecialOffer = "specialoffer"
	CategoryHot          = "hot"
	CategoryTrending     = "trending"
)

// ErrInvalidCategory is returned when a product category is outside the enumeration
var ErrInvalidCategory = errors.New("invalid product category")

var categories = map[string]bool{
	CategoryNew:          true,
	CategoryCheap:        true,
	CategoryExpensive:    true,
	CategoryBestseller:   true,
	CategorySale:         true,
	CategoryDiscount:     true,
	CategorySpecialOffer: true,
	CategoryHot:          true,
	CategoryTrending:     true,
}

// ValidCategory reports whether the given category is part of the enumeration
func ValidCategory(category string) bool {
	return categories[category]
}

// Product represents an item in the catalog
type Product struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	Name        string          `json:"name" gorm:"type:varchar(100);not null"`
	Category    string          `json:"category" gorm:"type:varchar(255);default:'new'"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Quantity    int             `json:"quantity"`
	Description string          `json:"description" gorm:"type:text"`
	Slug        string          `json:"slug" gorm:"type:varchar(500)"`
	Tags        []Tag           `json:"tags" gorm:"many2many:product_tags"`
	Comments    []Comment       `json:"comments" gorm:"many2many:product_comments"`
}

// BeforeSave derives the slug from the current name so the two can never
// diverge, whichever path saves the product.
func (p *Product) BeforeSave(tx *gorm.DB) error {
	p.Slug = slug.Make(p.Name)
	return nil
}

// IsTrending reports whether the product sits in the trending category
func (p *Product) IsTrending() bool {
	return p.Category == CategoryTrending
}

// UpdateQuantity sets the stock level and saves the product
func (p *Product) UpdateQuantity(db *gorm.DB, quantity int) error {
	p.Quantity = quantity
	return db.Save(p).Error
}

// Tag is a free-form label attached to products
type Tag struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"type:varchar(100);uniqueIndex;not null"`
}
