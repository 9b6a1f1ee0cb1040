package abacatepay

import (
	"context"
	"errors"
)

// Gateway is the typed surface over the AbacatePay PIX API. The order
// lifecycle controller never sees HTTP or JSON details.
type Gateway interface {
	CreateCharge(ctx context.Context, req CreateChargeRequest) (Charge, error)
	CheckStatus(ctx context.Context, paymentID string) (ChargeStatus, error)
	SimulatePayment(ctx context.Context, paymentID string) (ChargeStatus, error)
}

type Customer struct {
	Name      string `json:"name"`
	Cellphone string `json:"cellphone"`
	Email     string `json:"email"`
	TaxID     string `json:"taxId"`
}

type CreateChargeRequest struct {
	OrderID     int64
	Amount      int64
	ExpiresIn   int64
	Description string
	Product     string
	Customer    Customer
}

// Charge is a created PIX QR code charge. ExpiresAt carries the
// provider's raw ISO-8601 value; parsing it is the caller's concern and
// is best-effort there.
type Charge struct {
	PaymentID    string
	BRCode       string
	BRCodeBase64 string
	ExpiresAt    string
	Amount       int64
	Status       string
}

type ChargeStatus struct {
	Status    string
	ExpiresAt string
}

var (
	// ErrMissingCredentials means no API key was configured. Checked
	// before any request is made.
	ErrMissingCredentials = errors.New("abacatepay_missing_credentials")
	// ErrUnavailable wraps transport and timeout failures.
	ErrUnavailable = errors.New("abacatepay_unavailable")
	// ErrProviderResponse covers non-2xx statuses and 2xx bodies that
	// carry an embedded error or lack the expected payload.
	ErrProviderResponse = errors.New("abacatepay_invalid_response")
)
