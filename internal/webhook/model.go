package webhook

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// EventRecord journals every inbound payment webhook before its status
// is applied, so deliveries can be audited and replayed deliveries are
// harmless.
type EventRecord struct {
	ID          snowflake.ID   `json:"id" gorm:"primaryKey"`
	OrderID     int64          `json:"order_id" gorm:"not null;index"`
	Status      string         `json:"status" gorm:"type:text;not null"`
	Payload     datatypes.JSON `json:"payload" gorm:"not null"`
	ReceivedAt  time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "payment_events" }

var (
	ErrInvalidPayload   = errors.New("invalid_webhook_payload")
	ErrInvalidSignature = errors.New("invalid_webhook_signature")
)
