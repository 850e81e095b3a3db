package domain

import "time"

// Product is a single catalog item. Price is free-form text by contract:
// clients submit it as typed and it is never parsed as a number here.
// Image holds a base64-encoded PNG payload, or "" when no picture was set.
type Product struct {
	ID        string    `gorm:"primaryKey;size:32" json:"id"`
	Name      string    `gorm:"index" json:"name" form:"name"`
	Category  string    `gorm:"index" json:"category" form:"category"`
	Price     string    `gorm:"size:64" json:"price" form:"price"`
	Image     string    `json:"image" form:"image"`
	Sort      int64     `gorm:"index" json:"sort"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Product) TableName() string {
	return "catalog_product"
}

// Clone returns a field-for-field copy safe to mutate independently.
func (p Product) Clone() Product {
	return p
}
