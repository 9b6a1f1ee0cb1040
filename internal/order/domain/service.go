package domain

import (
	"context"
	"errors"
	"time"
)

type CreateOrderRequest struct {
	Name  string
	Phone string
	Email string
	CPF   string
}

type CreateOrderResponse struct {
	OrderID      int64      `json:"order_id"`
	PaymentID    string     `json:"payment_id"`
	QRCode       string     `json:"qr_code"`
	QRCodeBase64 string     `json:"qr_code_base64"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Amount       int64      `json:"amount"`
}

type PaymentStatusResponse struct {
	OrderID   int64      `json:"order_id"`
	Status    Status     `json:"status"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type SimulatePaymentResponse struct {
	OrderID int64  `json:"order_id"`
	Status  Status `json:"status"`
}

// Service is the order lifecycle controller. Every status transition in
// the system goes through one of these operations.
type Service interface {
	Create(ctx context.Context, req CreateOrderRequest) (CreateOrderResponse, error)
	ApplyWebhookStatus(ctx context.Context, orderID int64, rawStatus string) error
	PaymentStatus(ctx context.Context, orderID int64) (PaymentStatusResponse, error)
	SimulatePayment(ctx context.Context, orderID int64) (SimulatePaymentResponse, error)
}

var (
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidPhone   = errors.New("invalid_phone")
	ErrInvalidEmail   = errors.New("invalid_email")
	ErrInvalidTaxID   = errors.New("invalid_cpf")
	ErrInvalidID      = errors.New("invalid_id")
	ErrNotFound       = errors.New("not_found")
	ErrNoPaymentID    = errors.New("order_has_no_payment_id")
	ErrSimulateFailed = errors.New("simulate_payment_failed")
)
