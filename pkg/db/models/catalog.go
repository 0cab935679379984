package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Branch is a restaurant location. Code prefixes human-readable order numbers.
type Branch struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Code      string    `gorm:"column:code;not null;uniqueIndex"`
	Name      string    `gorm:"column:name;not null"`
	IsActive  bool      `gorm:"column:is_active;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (b *Branch) BeforeCreate(*gorm.DB) error {
	ensureID(&b.ID)
	return nil
}

// Product is a catalog item. Pricing and stock engines only read it.
type Product struct {
	ID              uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	Name            string                  `gorm:"column:name;not null"`
	BasePrice       decimal.Decimal         `gorm:"column:base_price;type:numeric(12,2);not null"`
	IsActive        bool                    `gorm:"column:is_active;not null"`
	AttributeGroups []ProductAttributeGroup `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Branches        []BranchProduct         `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// ProductAttributeGroup groups priced options such as "Size" or "Extras".
type ProductAttributeGroup struct {
	ID        uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID                `gorm:"column:product_id;type:uuid;not null;index"`
	Name      string                   `gorm:"column:name;not null"`
	MaxSelect int                      `gorm:"column:max_select;not null;default:0"`
	Options   []ProductAttributeOption `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
}

func (g *ProductAttributeGroup) BeforeCreate(*gorm.DB) error {
	ensureID(&g.ID)
	return nil
}

// ProductAttributeOption is a single priced choice inside a group.
type ProductAttributeOption struct {
	ID       uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	GroupID  uuid.UUID       `gorm:"column:group_id;type:uuid;not null;index"`
	Name     string          `gorm:"column:name;not null"`
	Price    decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	IsActive bool            `gorm:"column:is_active;not null"`
}

func (o *ProductAttributeOption) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// BranchProduct associates a product with a branch that sells it.
type BranchProduct struct {
	BranchID    uuid.UUID `gorm:"column:branch_id;type:uuid;primaryKey"`
	ProductID   uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	IsAvailable bool      `gorm:"column:is_available;not null"`
}
