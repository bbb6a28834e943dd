package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func init() {
	// prices render as JSON numbers, matching the API contract
	decimal.MarshalJSONWithoutQuotes = true
}

type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleSeller Role = "SELLER"
	RoleBuyer  Role = "BUYER"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusDelivered OrderStatus = "DELIVERED"
	StatusCanceled  OrderStatus = "CANCELED"
	StatusReturned  OrderStatus = "RETURNED"
)

func ValidStatus(s OrderStatus) bool {
	switch s {
	case StatusPending, StatusDelivered, StatusCanceled, StatusReturned:
		return true
	}
	return false
}

type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Phone     *string   `gorm:"uniqueIndex" json:"phone"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      Role      `gorm:"type:varchar(20);default:BUYER" json:"role"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	IsStaff   bool      `gorm:"default:false" json:"is_staff"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Orders []Order `gorm:"foreignKey:CustomerID" json:"-"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Code      string    `gorm:"uniqueIndex;not null" json:"category_code"`
	Name      string    `gorm:"not null;index:idx_categories_name_parent,unique" json:"name"`
	ParentID  *uint     `gorm:"index:idx_categories_name_parent,unique" json:"parent_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Parent   *Category  `gorm:"foreignKey:ParentID" json:"-"`
	Children []Category `gorm:"foreignKey:ParentID" json:"-"`
	Products []Product  `gorm:"foreignKey:CategoryID" json:"-"`
}

type Product struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	Code       string          `gorm:"uniqueIndex;not null" json:"product_code"`
	Name       string          `gorm:"not null" json:"name"`
	Price      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	CategoryID uint            `gorm:"not null" json:"category_id"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`

	Category Category `gorm:"foreignKey:CategoryID" json:"-"`
}

type Order struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	Code       string          `gorm:"uniqueIndex;not null" json:"order_code"`
	Status     OrderStatus     `gorm:"type:varchar(20);default:PENDING" json:"status"`
	CustomerID uint            `gorm:"not null" json:"customer_id"`
	Total      decimal.Decimal `gorm:"type:decimal(10,2)" json:"total"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"-"`
	DeletedAt  gorm.DeletedAt  `gorm:"index" json:"-"`

	Customer User        `gorm:"foreignKey:CustomerID" json:"-"`
	Lines    []OrderLine `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
}

// OrderLine carries a point-in-time price snapshot: the unit price is
// copied from the product when the order is placed and never follows
// later catalog price changes.
type OrderLine struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"not null" json:"-"`
	ProductID uint            `gorm:"not null" json:"product_id"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Quantity  int             `gorm:"not null" json:"quantity"`

	Product Product `gorm:"foreignKey:ProductID" json:"-"`
}

// CodeSequence is the per-(prefix, day) counter backing sequential code
// assignment. Rows are bumped inside the same transaction that inserts
// the entity so two concurrent creations cannot hand out the same code.
type CodeSequence struct {
	ID      uint   `gorm:"primaryKey"`
	Prefix  string `gorm:"not null;index:idx_code_sequences_prefix_day,unique"`
	Day     string `gorm:"not null;index:idx_code_sequences_prefix_day,unique"`
	LastSeq int    `gorm:"not null"`
}

// All lists every persisted model in migration order.
func All() []any {
	return []any{
		&User{},
		&Category{},
		&Product{},
		&Order{},
		&OrderLine{},
		&CodeSequence{},
	}
}
