package domain

import (
	"strings"
	"time"
)

// Status is the order payment status. Values outside the allow-list are
// never persisted; the stored value is the safe default.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// ParseStatus maps a provider-reported status through the fixed
// allow-list. Unrecognized values report ok=false.
func ParseStatus(raw string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusPending:
		return StatusPending, true
	case StatusPaid:
		return StatusPaid, true
	case StatusExpired:
		return StatusExpired, true
	case StatusCancelled:
		return StatusCancelled, true
	default:
		return "", false
	}
}

type Order struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string     `gorm:"not null" json:"name"`
	Phone     string     `gorm:"not null" json:"phone"`
	Email     string     `gorm:"not null" json:"email"`
	TaxID     string     `gorm:"column:tax_id;not null" json:"tax_id"`
	PaymentID *string    `gorm:"column:payment_id" json:"payment_id,omitempty"`
	Status    Status     `gorm:"type:text;not null;default:'pending'" json:"status"`
	Amount    int64      `gorm:"not null" json:"amount"`
	ExpiresAt *time.Time `gorm:"column:expires_at" json:"expires_at,omitempty"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null" json:"updated_at"`
}

func (Order) TableName() string { return "orders" }
