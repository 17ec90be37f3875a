package db

import (
	"time"

	"gorm.io/datatypes"
)

// Intent is the durable order intent row. Rows are never deleted.
type Intent struct {
	ID          string         `gorm:"primaryKey;size:36"`
	StoreID     string         `gorm:"size:64;index"`
	Items       datatypes.JSON // []intent.Item
	TotalAmount string         `gorm:"size:80"` // smallest unit of the settlement asset
	Currency    string         `gorm:"size:16"`
	Network     string         `gorm:"size:64"`
	Asset       string         `gorm:"size:128"`
	PayTo       string         `gorm:"column:pay_to_address;size:128"`
	Description string
	Status      string `gorm:"size:16;index"` // pending, paid, failed, expired, cancelled

	ShippingAddress datatypes.JSON

	PaymentTransaction  string `gorm:"size:256"`
	PaymentPayload      string `gorm:"type:text"`
	PaymentPayer        string `gorm:"size:128"`
	VerifiedAt          *time.Time
	FacilitatorResponse datatypes.JSON
	FailureReason       string

	ExternalOrderID     string `gorm:"size:64"`
	ExternalOrderNumber string `gorm:"size:64"`
	ExternalOrderLabel  string `gorm:"size:128"`

	ClaimToken string `gorm:"size:36"` // finalize in progress
	ClaimedAt  *time.Time

	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Store struct {
	ID           string `gorm:"primaryKey;size:64"`
	Name         string
	Domain       string `gorm:"size:191;uniqueIndex"`
	PayToAddress string `gorm:"size:128"`
	Currency     string `gorm:"size:16"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Product struct {
	ID          string `gorm:"primaryKey;size:64"`
	StoreID     string `gorm:"size:64;index"`
	Title       string
	Description string    `gorm:"type:text"`
	Variants    []Variant `gorm:"foreignKey:ProductID"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Variant struct {
	ID        string `gorm:"primaryKey;size:64"`
	ProductID string `gorm:"size:64;index"`
	Title     string
	SKU       string `gorm:"size:64"`
	Price     string `gorm:"size:32"` // decimal string in the store currency
	Available bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
